package testbed

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

const quadProgram = "quad"

type quadVertex struct {
	Position [3]float32
	Color    [3]float32
}

var quadDecl = metadata.NewVertexDecl().
	Add(metadata.AttributePosition, 3, metadata.AttributeTypeFloat, false).
	Add(metadata.AttributeColor, 3, metadata.AttributeTypeFloat, false).
	End()

var (
	quadVertices = []quadVertex{
		{[3]float32{-0.5, -0.5, 0}, [3]float32{1, 0, 0}},
		{[3]float32{0.5, 0.5, 0}, [3]float32{0, 1, 0}},
		{[3]float32{-0.5, 0.5, 0}, [3]float32{0, 0, 1}},
		{[3]float32{0.5, -0.5, 0}, [3]float32{1, 1, 0}},
	}
	quadIndices = []uint32{0, 2, 1, 2, 0, 3}
)

// quadScene draws a spinning quad from a static vertex buffer and a 32 bit
// index buffer.
type quadScene struct {
	vertexBuffer metadata.VertexBufferHandle
	indexBuffer  metadata.IndexBufferHandle
	angle        float32
}

func (s *quadScene) Name() string       { return "quad" }
func (s *quadScene) Programs() []string { return []string{quadProgram} }

func (s *quadScene) Initialize(ctx *SceneContext) error {
	r := ctx.Renderer
	s.vertexBuffer = r.CreateVertexBuffer(metadata.MemoryFromSlice(quadVertices), quadDecl, metadata.BufferUsageStatic)
	s.indexBuffer = r.CreateIndexBuffer(metadata.MemoryFromSlice(quadIndices), metadata.IndexTypeUint32, metadata.BufferUsageStatic)
	return nil
}

func (s *quadScene) Resize(*SceneContext, uint32, uint32) error { return nil }

func (s *quadScene) Update(deltaTime float64) {
	s.angle += float32(deltaTime) * 0.5
}

func (s *quadScene) Render(ctx *SceneContext) error {
	r := ctx.Renderer
	r.StartRenderQueue(metadata.InvalidFramebuffer)
	r.SetViewClear(sceneClearColor, true, true)

	r.SetVertexBuffer(s.vertexBuffer)
	r.SetIndexBuffer(s.indexBuffer)
	r.SetUniform("u_transform", metadata.UniformMat4(mgl32.HomogRotate3DZ(s.angle)))
	r.SetStateCull(false, metadata.WindingCCW)
	r.Submit(ctx.Program(quadProgram), uint32(len(quadIndices)), 0)
	return nil
}

func (s *quadScene) Shutdown(ctx *SceneContext) {
	ctx.Renderer.DeleteVertexBuffer(s.vertexBuffer)
	ctx.Renderer.DeleteIndexBuffer(s.indexBuffer)
}
