package testbed

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
)

const (
	cubeProgram = "cube"
	blitProgram = "blit"

	offscreenWidth  = 800
	offscreenHeight = 600
)

var postClearColor = mgl32.Vec4{0, 0.2, 0, 1}

// postProcessScene renders a textured cube into an offscreen target, then
// draws that target to the window through a distortion pass.
type postProcessScene struct {
	framebuffer metadata.FramebufferHandle
	cube        *systems.Geometry
	camera      *components.Camera
	angle       float32
	time        float32
}

func (s *postProcessScene) Name() string { return "postprocess" }

func (s *postProcessScene) Programs() []string {
	return []string{cubeProgram, blitProgram}
}

func (s *postProcessScene) Initialize(ctx *SceneContext) error {
	cube, err := ctx.Systems.GeometrySystem.Acquire(systems.CubeGeometryName)
	if err != nil {
		return err
	}
	s.cube = cube

	s.camera, err = ctx.Systems.CameraSystem.Acquire("postprocess")
	if err != nil {
		return err
	}
	s.camera.LookAt(mgl32.Vec3{0, 1.5, 3}, mgl32.Vec3{})

	s.framebuffer = ctx.Renderer.CreateFramebufferWithFormat(offscreenWidth, offscreenHeight, metadata.TextureFormatRGBA8)
	if !s.framebuffer.IsValid() {
		return fmt.Errorf("failed to create the offscreen target")
	}
	return nil
}

func (s *postProcessScene) Resize(*SceneContext, uint32, uint32) error { return nil }

func (s *postProcessScene) Update(deltaTime float64) {
	s.angle += float32(deltaTime)
	s.time += float32(deltaTime)
}

func (s *postProcessScene) Render(ctx *SceneContext) error {
	r := ctx.Renderer

	offscreen := r.StartRenderQueue(s.framebuffer)
	r.SetRenderQueueClear(offscreen, sceneClearColor, true, true)

	viewProj := ctx.Projection(float32(offscreenWidth) / float32(offscreenHeight)).Mul4(s.camera.GetView())
	model := mgl32.HomogRotate3DY(s.angle).Mul4(mgl32.HomogRotate3DX(s.angle * 0.3))
	ctx.Systems.GeometrySystem.Bind(s.cube)
	r.SetUniform("u_viewProj", metadata.UniformMat4(viewProj))
	r.SetUniform("u_model", metadata.UniformMat4(model))
	r.SetTexture(1, ctx.Systems.TextureSystem.Acquire(systems.CheckerTextureName), linearRepeat)
	r.Submit(ctx.Program(cubeProgram), s.cube.IndexCount, 0)

	window := r.StartRenderQueue(metadata.InvalidFramebuffer)
	r.SetRenderQueueClear(window, postClearColor, true, true)

	r.SetTexture(1, r.FramebufferTexture(s.framebuffer, 0), linearClamp)
	r.SetUniform("u_time", metadata.UniformFloat(s.time))
	r.SetUniform("u_strength", metadata.UniformFloat(1))
	r.SetStateDepth(false, false)
	r.SetStateCull(false, metadata.WindingCCW)
	r.SubmitFullscreenQuad(ctx.Program(blitProgram))
	return nil
}

func (s *postProcessScene) Shutdown(ctx *SceneContext) {
	ctx.Renderer.DeleteFramebuffer(s.framebuffer)
	ctx.Systems.CameraSystem.Release("postprocess")
}
