package testbed

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/renderer/components"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/systems"
)

const (
	gbufferProgram = "gbuffer"
	ambientProgram = "ambient"
	lightProgram   = "light"

	sphereCount = 50
	lightCount  = 30
	lightRadius = 3.0

	gbufferPosition = 0
	gbufferNormal   = 1
	gbufferAlbedo   = 2
)

type pointLight struct {
	Position mgl32.Vec3
	Color    mgl32.Vec3
	Radius   float32
	orbit    float32
	phase    float32
	height   float32
}

// deferredScene fills a three target G-buffer with spheres and lights it
// with an ambient pass plus additive light volumes.
type deferredScene struct {
	textures    [3]metadata.TextureHandle
	framebuffer metadata.FramebufferHandle
	sphere      *systems.Geometry
	camera      *components.Camera

	spheres []mgl32.Vec3
	albedo  []mgl32.Vec4
	lights  []pointLight
	time    float32
}

func (s *deferredScene) Name() string { return "deferred" }

func (s *deferredScene) Programs() []string {
	return []string{gbufferProgram, ambientProgram, lightProgram}
}

// hue returns a saturated colour around the colour wheel.
func hue(t float32) mgl32.Vec3 {
	h := float64(t) * 2 * gomath.Pi
	return mgl32.Vec3{
		float32(0.5 + 0.5*gomath.Cos(h)),
		float32(0.5 + 0.5*gomath.Cos(h-2*gomath.Pi/3)),
		float32(0.5 + 0.5*gomath.Cos(h+2*gomath.Pi/3)),
	}
}

func (s *deferredScene) Initialize(ctx *SceneContext) error {
	sphere, err := ctx.Systems.GeometrySystem.Acquire(systems.SphereGeometryName)
	if err != nil {
		return err
	}
	s.sphere = sphere

	s.camera, err = ctx.Systems.CameraSystem.Acquire("deferred")
	if err != nil {
		return err
	}
	s.camera.LookAt(mgl32.Vec3{0, 6, 14}, mgl32.Vec3{})

	// A 10 x 5 grid on the ground plane.
	for i := 0; i < sphereCount; i++ {
		x := float32(i%10) - 4.5
		z := float32(i/10)*2 - 4
		s.spheres = append(s.spheres, mgl32.Vec3{x * 2, 0, z})
		s.albedo = append(s.albedo, hue(float32(i)/sphereCount).Vec4(1))
	}
	for i := 0; i < lightCount; i++ {
		t := float32(i) / lightCount
		s.lights = append(s.lights, pointLight{
			Color:  hue(1 - t),
			Radius: lightRadius,
			orbit:  3 + 7*t,
			phase:  t * 2 * gomath.Pi,
			height: 0.5 + float32(i%3)*0.5,
		})
	}
	s.moveLights()
	return nil
}

// Resize rebuilds the G-buffer at the window resolution.
func (s *deferredScene) Resize(ctx *SceneContext, width, height uint32) error {
	r := ctx.Renderer
	s.release(ctx)
	for i := range s.textures {
		s.textures[i] = r.CreateTexture(metadata.TextureInfo{
			Width:       width,
			Height:      height,
			Format:      metadata.TextureFormatRGBA32F,
			Framebuffer: true,
		}, nil)
	}
	fb, err := r.CreateFramebuffer(s.textures[:]...)
	if err != nil {
		return fmt.Errorf("failed to create the G-buffer: %w", err)
	}
	s.framebuffer = fb
	return nil
}

func (s *deferredScene) release(ctx *SceneContext) {
	if s.framebuffer.IsValid() {
		ctx.Renderer.DeleteFramebuffer(s.framebuffer)
		s.framebuffer = metadata.InvalidFramebuffer
	}
	for i, t := range s.textures {
		if t.IsValid() {
			ctx.Renderer.DeleteTexture(t)
			s.textures[i] = metadata.InvalidTexture
		}
	}
}

func (s *deferredScene) Update(deltaTime float64) {
	s.time += float32(deltaTime)
	s.moveLights()
}

func (s *deferredScene) moveLights() {
	for i := range s.lights {
		l := &s.lights[i]
		a := float64(l.phase + s.time*0.4)
		l.Position = mgl32.Vec3{l.orbit * float32(gomath.Cos(a)), l.height, l.orbit * float32(gomath.Sin(a)) * 0.6}
	}
}

// cameraInside reports whether the eye lies in the light volume. The
// sphere mesh is a polygon inside the true sphere, so a margin is kept.
func cameraInside(eye mgl32.Vec3, l pointLight) bool {
	return eye.Sub(l.Position).Len() < l.Radius*1.05
}

func (s *deferredScene) Render(ctx *SceneContext) error {
	r := ctx.Renderer
	gs := ctx.Systems.GeometrySystem
	viewProj := ctx.Projection(ctx.Aspect()).Mul4(s.camera.GetView())

	gbuffer := r.StartRenderQueue(s.framebuffer)
	r.SetRenderQueueClear(gbuffer, mgl32.Vec4{}, true, true)
	for i, p := range s.spheres {
		gs.Bind(s.sphere)
		r.SetUniform("u_viewProj", metadata.UniformMat4(viewProj))
		r.SetUniform("u_model", metadata.UniformMat4(mgl32.Translate3D(p.X(), p.Y(), p.Z()).Mul4(mgl32.Scale3D(0.7, 0.7, 0.7))))
		r.SetUniform("u_albedo", metadata.UniformVec4(s.albedo[i]))
		r.Submit(ctx.Program(gbufferProgram), s.sphere.IndexCount, 0)
	}

	lighting := r.StartRenderQueue(metadata.InvalidFramebuffer)
	r.SetRenderQueueClear(lighting, mgl32.Vec4{0, 0, 0, 1}, true, true)

	r.SetTexture(1, s.textures[gbufferAlbedo], pointClamp)
	r.SetUniform("u_ambient", metadata.UniformVec4(mgl32.Vec4{0.1, 0.1, 0.12, 1}))
	r.SetStateDepth(false, false)
	r.SetStateCull(false, metadata.WindingCCW)
	r.SubmitFullscreenQuad(ctx.Program(ambientProgram))

	eye := s.camera.GetPosition()
	screen := mgl32.Vec4{float32(ctx.Width), float32(ctx.Height), 0, 0}
	for _, l := range s.lights {
		gs.Bind(s.sphere)
		r.SetTexture(1, s.textures[gbufferPosition], pointClamp)
		r.SetTexture(3, s.textures[gbufferNormal], pointClamp)
		r.SetTexture(5, s.textures[gbufferAlbedo], pointClamp)
		r.SetUniform("u_viewProj", metadata.UniformMat4(viewProj))
		r.SetUniform("u_model", metadata.UniformMat4(mgl32.Translate3D(l.Position.X(), l.Position.Y(), l.Position.Z()).
			Mul4(mgl32.Scale3D(l.Radius, l.Radius, l.Radius))))
		r.SetUniform("u_lightPosition", metadata.UniformVec4(l.Position.Vec4(l.Radius)))
		r.SetUniform("u_lightColor", metadata.UniformVec4(l.Color.Vec4(1)))
		r.SetUniform("u_screenSize", metadata.UniformVec4(screen))
		r.SetStateBlend(metadata.AdditiveBlend())
		r.SetStateDepth(false, false)
		// From inside the volume only its back faces are visible.
		if cameraInside(eye, l) {
			r.SetStateCull(true, metadata.WindingCW)
		} else {
			r.SetStateCull(true, metadata.WindingCCW)
		}
		r.Submit(ctx.Program(lightProgram), s.sphere.IndexCount, 0)
	}
	return nil
}

func (s *deferredScene) Shutdown(ctx *SceneContext) {
	s.release(ctx)
	ctx.Systems.CameraSystem.Release("deferred")
}
