package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const triangleProgram = "triangle"

// Colours are packed ABGR so that their little endian bytes read R, G, B, A.
type colorVertex struct {
	X, Y  float32
	Color uint32
}

var triangleDecl = metadata.NewVertexDecl().
	Add(metadata.AttributePosition, 2, metadata.AttributeTypeFloat, false).
	Add(metadata.AttributeColor, 4, metadata.AttributeTypeUint8, true).
	End()

var (
	triangleVertices = []colorVertex{
		{0.0, 0.5, 0xFF0000FF},
		{-0.5, -0.5, 0xFF00FF00},
		{0.5, -0.5, 0xFFFF0000},
	}

	sceneClearColor = mgl32.Vec4{0, 0, 0.2, 1}
)

// triangleScene draws one triangle from a static vertex buffer.
type triangleScene struct {
	vertexBuffer metadata.VertexBufferHandle
}

func (s *triangleScene) Name() string       { return "triangle" }
func (s *triangleScene) Programs() []string { return []string{triangleProgram} }

func (s *triangleScene) Initialize(ctx *SceneContext) error {
	s.vertexBuffer = ctx.Renderer.CreateVertexBuffer(metadata.MemoryFromSlice(triangleVertices), triangleDecl, metadata.BufferUsageStatic)
	return nil
}

func (s *triangleScene) Resize(*SceneContext, uint32, uint32) error { return nil }
func (s *triangleScene) Update(float64)                             {}

func (s *triangleScene) Render(ctx *SceneContext) error {
	s.draw(ctx, nil)
	return nil
}

func (s *triangleScene) draw(ctx *SceneContext, uniforms map[string]metadata.UniformValue) {
	r := ctx.Renderer
	r.StartRenderQueue(metadata.InvalidFramebuffer)
	r.SetViewClear(sceneClearColor, true, true)

	r.SetVertexBuffer(s.vertexBuffer)
	for name, value := range uniforms {
		r.SetUniform(name, value)
	}
	r.SetStateCull(false, metadata.WindingCCW)
	r.Submit(ctx.Program(triangleProgram), 3, 0)
}

func (s *triangleScene) Shutdown(ctx *SceneContext) {
	ctx.Renderer.DeleteVertexBuffer(s.vertexBuffer)
}

// unknownUniformScene is the triangle with a uniform no program declares.
// The backend warns once for the program and draws normally.
type unknownUniformScene struct {
	triangleScene
}

func (s *unknownUniformScene) Name() string { return "uniform" }

func (s *unknownUniformScene) Render(ctx *SceneContext) error {
	s.draw(ctx, map[string]metadata.UniformValue{
		"nonexistent": metadata.UniformFloat(1),
	})
	return nil
}
