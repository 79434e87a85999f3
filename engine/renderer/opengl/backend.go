package opengl

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/dispatch"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// maxErrorsPerFrame bounds the glGetError drain after a swap.
const maxErrorsPerFrame = 16

type OpenGLRenderer struct {
	config      core.RendererConfig
	host        platform.GLContextHost
	FrameNumber uint64

	current bool
	ready   bool
	width   uint32
	height  uint32

	vertexBuffers map[metadata.VertexBufferHandle]*glBuffer
	indexBuffers  map[metadata.IndexBufferHandle]*glBuffer
	shaders       map[metadata.ShaderHandle]metadata.ShaderStageInfo
	programs      map[metadata.ProgramHandle]*glProgram
	textures      map[metadata.TextureHandle]*glTexture
	targets       map[metadata.FramebufferHandle]*renderTarget

	samplers *containers.Cache[metadata.SamplerInfo, uint32]
	// Vertex array objects by VertexDecl.Hash; only the format lives in the
	// VAO, buffers are attached per draw.
	vertexArrays map[uint64]uint32

	maxAnisotropy       float32
	maxColorAttachments int

	// Bound where a binding has no texture.
	fallback *glTexture

	encoder   frameEncoder
	lastStats dispatch.Stats
}

func New(cfg core.RendererConfig) *OpenGLRenderer {
	return &OpenGLRenderer{config: cfg}
}

func (r *OpenGLRenderer) CreateWindow(host platform.WindowHost, width, height uint32) error {
	glHost, ok := host.(platform.GLContextHost)
	if !ok {
		return core.NewInitError(core.ErrWindowCreation, "window host %T has no OpenGL context", host)
	}
	r.host = glHost
	glHost.MakeContextCurrent()
	r.current = true

	if err := gl.Init(); err != nil {
		r.DestroyWindow()
		return core.NewInitError(err, "OpenGL function loading")
	}
	core.LogInfo("OpenGL %s on %s.", gl.GoStr(gl.GetString(gl.VERSION)), gl.GoStr(gl.GetString(gl.RENDERER)))

	if r.config.OpenGL.VSync {
		glHost.SwapInterval(1)
	} else {
		glHost.SwapInterval(0)
	}
	if r.config.OpenGL.DebugOutput {
		gl.Enable(gl.DEBUG_OUTPUT)
		gl.Enable(gl.DEBUG_OUTPUT_SYNCHRONOUS)
		gl.DebugMessageCallback(debugCallback, nil)
		core.LogDebug("OpenGL debug output enabled.")
	}

	var anisotropy float32
	gl.GetFloatv(gl.MAX_TEXTURE_MAX_ANISOTROPY, &anisotropy)
	r.maxAnisotropy = max(anisotropy, 1)
	var colors int32
	gl.GetIntegerv(gl.MAX_COLOR_ATTACHMENTS, &colors)
	r.maxColorAttachments = int(max(colors, 1))

	r.vertexBuffers = make(map[metadata.VertexBufferHandle]*glBuffer)
	r.indexBuffers = make(map[metadata.IndexBufferHandle]*glBuffer)
	r.shaders = make(map[metadata.ShaderHandle]metadata.ShaderStageInfo)
	r.programs = make(map[metadata.ProgramHandle]*glProgram)
	r.textures = make(map[metadata.TextureHandle]*glTexture)
	r.targets = make(map[metadata.FramebufferHandle]*renderTarget)
	r.samplers = containers.NewCache[metadata.SamplerInfo, uint32]()
	r.vertexArrays = make(map[uint64]uint32)

	white, err := textureCreate(metadata.TextureInfo{Width: 1, Height: 1, Format: metadata.TextureFormatRGBA8}, []byte{0xff, 0xff, 0xff, 0xff})
	if err != nil {
		r.DestroyWindow()
		return core.NewInitError(err, "fallback texture")
	}
	r.fallback = white

	r.width, r.height = glHost.FramebufferSize()
	if r.width == 0 || r.height == 0 {
		r.width, r.height = width, height
	}
	r.ready = r.width > 0 && r.height > 0
	core.LogInfo("OpenGL renderer initialized successfully.")
	return nil
}

func (r *OpenGLRenderer) DestroyWindow() {
	if !r.current {
		return
	}
	if r.samplers != nil {
		r.samplers.Clear(func(_ metadata.SamplerInfo, s uint32) {
			gl.DeleteSamplers(1, &s)
		})
	}
	for decl, vao := range r.vertexArrays {
		gl.DeleteVertexArrays(1, &vao)
		delete(r.vertexArrays, decl)
	}
	for h, t := range r.targets {
		t.Destroy()
		delete(r.targets, h)
	}
	for h, t := range r.textures {
		t.Destroy()
		delete(r.textures, h)
	}
	for h, p := range r.programs {
		p.Destroy()
		delete(r.programs, h)
	}
	for h, b := range r.vertexBuffers {
		b.Destroy()
		delete(r.vertexBuffers, h)
	}
	for h, b := range r.indexBuffers {
		b.Destroy()
		delete(r.indexBuffers, h)
	}
	clear(r.shaders)
	if r.fallback != nil {
		r.fallback.Destroy()
		r.fallback = nil
	}

	r.host.ReleaseContext()
	r.current = false
	r.ready = false
	core.LogDebug("OpenGL renderer destroyed.")
}

// PrepareFrame picks up framebuffer resizes. The default framebuffer
// follows the window, so only the cached size changes.
func (r *OpenGLRenderer) PrepareFrame() {
	if !r.current {
		return
	}
	if !r.host.FramebufferResized() {
		return
	}
	r.width, r.height = r.host.FramebufferSize()
	r.ready = r.width > 0 && r.height > 0
	if r.ready {
		core.LogInfo("Framebuffer resized to %dx%d.", r.width, r.height)
	}
}

func (r *OpenGLRenderer) Frame(frame *metadata.Frame, transient metadata.TransientBacking) error {
	if !r.ready {
		return nil
	}
	r.uploadTransient(frame, transient)

	r.encoder.begin(r)
	stats, err := dispatch.Run(frame, &r.encoder)
	if err != nil {
		return err
	}
	r.lastStats = stats
	r.encoder.finish()
	gl.BindVertexArray(0)

	r.host.SwapBuffers()
	for i := 0; i < maxErrorsPerFrame; i++ {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			break
		}
		if code == gl.CONTEXT_LOST {
			r.ready = false
			return fmt.Errorf("%w: OpenGL context lost", core.ErrDeviceLost)
		}
		core.LogError("frame %d: GL error 0x%x", r.FrameNumber, code)
	}
	r.FrameNumber++
	return nil
}

// uploadTransient copies the transient arenas into their Stream buffers.
// The driver orphans or waits as needed.
func (r *OpenGLRenderer) uploadTransient(frame *metadata.Frame, transient metadata.TransientBacking) {
	if data := frame.TransientVertices.Bytes(); len(data) > 0 {
		if buf, ok := r.vertexBuffers[transient.VertexBuffer]; ok {
			if err := buf.Update(0, data); err != nil {
				core.LogError("transient vertices: %s", err)
			}
		}
	}
	if data := frame.TransientIndices.Bytes(); len(data) > 0 {
		if buf, ok := r.indexBuffers[transient.IndexBuffer]; ok {
			if err := buf.Update(0, data); err != nil {
				core.LogError("transient indices: %s", err)
			}
		}
	}
}

// Stats reports what the last rendered frame executed.
func (r *OpenGLRenderer) Stats() dispatch.Stats {
	return r.lastStats
}

// glClipAdjust maps clip space with y down and depth in [0,1] onto the GL
// convention of y up and depth in [-1,1].
var glClipAdjust = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 2, 0,
	0, 0, -1, 1,
}

func (r *OpenGLRenderer) AdjustProjectionMatrix(m mgl32.Mat4) mgl32.Mat4 {
	return glClipAdjust.Mul4(m)
}

func (r *OpenGLRenderer) HasFlippedViewport() bool {
	return false
}

// sampler returns the sampler object for info, creating it on first use.
func (r *OpenGLRenderer) sampler(info metadata.SamplerInfo) uint32 {
	s, _ := r.samplers.GetOrCreate(info, func(info metadata.SamplerInfo) (uint32, error) {
		return samplerCreate(info, r.maxAnisotropy), nil
	})
	return s
}

// vertexArray returns the vertex array object describing decl.
func (r *OpenGLRenderer) vertexArray(decl metadata.VertexDecl) (uint32, error) {
	key := decl.Hash()
	if vao, ok := r.vertexArrays[key]; ok {
		return vao, nil
	}
	var vao uint32
	gl.CreateVertexArrays(1, &vao)
	for _, e := range decl.Elements() {
		f, err := vertexAttributeFormat(e)
		if err != nil {
			gl.DeleteVertexArrays(1, &vao)
			return 0, err
		}
		loc := e.Attribute.Location()
		gl.EnableVertexArrayAttrib(vao, loc)
		if f.integer {
			gl.VertexArrayAttribIFormat(vao, loc, f.size, f.xtype, e.Offset)
		} else {
			gl.VertexArrayAttribFormat(vao, loc, f.size, f.xtype, f.normalized, e.Offset)
		}
		gl.VertexArrayAttribBinding(vao, loc, 0)
	}
	r.vertexArrays[key] = vao
	return vao, nil
}

func debugCallback(source, gltype, id, severity uint32, length int32, message string, userParam unsafe.Pointer) {
	switch severity {
	case gl.DEBUG_SEVERITY_HIGH:
		core.LogError("GL: [0x%x] %s", id, message)
	case gl.DEBUG_SEVERITY_MEDIUM:
		core.LogWarn("GL: [0x%x] %s", id, message)
	case gl.DEBUG_SEVERITY_LOW:
		core.LogInfo("GL: [0x%x] %s", id, message)
	default:
		core.LogDebug("GL: [0x%x] %s", id, message)
	}
}
