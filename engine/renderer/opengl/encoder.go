package opengl

import (
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// frameEncoder turns the dispatch calls of one frame into GL calls. State
// setters map one to one onto GL state since dispatch only calls them on
// change.
type frameEncoder struct {
	renderer *OpenGLRenderer

	framebuffer   uint32
	colorCount    int
	width         uint32
	height        uint32
	swapchainUsed bool

	program *glProgram
	handle  metadata.ProgramHandle

	vertexBuffer  *glBuffer
	vertexOffset  uint32
	vertexMissing bool
	decl          metadata.VertexDecl
	indexBuffer   *glBuffer
	indexOffset   uint32
	indexType     metadata.IndexType
	indexMissing  bool
}

func (e *frameEncoder) begin(renderer *OpenGLRenderer) {
	*e = frameEncoder{renderer: renderer}
}

// clearTarget clears the bound framebuffer regardless of the current
// masks and scissor.
func (e *frameEncoder) clearTarget(c metadata.ClearState) {
	gl.Disable(gl.SCISSOR_TEST)
	if c.ClearColor {
		gl.ColorMask(true, true, true, true)
		color := c.Color
		if e.framebuffer == 0 {
			gl.ClearNamedFramebufferfv(0, gl.COLOR, 0, &color[0])
		}
		for i := 0; i < e.colorCount && e.framebuffer != 0; i++ {
			gl.ClearNamedFramebufferfv(e.framebuffer, gl.COLOR, int32(i), &color[0])
		}
	}
	if c.ClearDepth {
		gl.DepthMask(true)
		gl.ClearNamedFramebufferfi(e.framebuffer, gl.DEPTH_STENCIL, 0, 1, 0)
	}
}

func (e *frameEncoder) BeginQueue(index int, q *metadata.RenderQueue) bool {
	r := e.renderer
	if !q.Framebuffer.IsValid() {
		e.framebuffer, e.colorCount = 0, 1
		e.width, e.height = r.width, r.height
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		if !e.swapchainUsed {
			// The default framebuffer is undefined after a swap.
			e.clearTarget(metadata.ClearState{ClearColor: true, ClearDepth: true})
			e.swapchainUsed = true
		}
	} else {
		target, ok := r.targets[q.Framebuffer]
		if !ok {
			core.LogError("queue %d targets %s which does not exist, skipping it", index, q.Framebuffer)
			return false
		}
		if !target.Complete {
			core.LogError("queue %d: %s is incomplete, skipping", index, q.Framebuffer)
			return false
		}
		e.framebuffer, e.colorCount = target.Handle, len(target.Colors)
		e.width, e.height = target.Width, target.Height
		gl.BindFramebuffer(gl.FRAMEBUFFER, target.Handle)
	}
	gl.Viewport(0, 0, int32(e.width), int32(e.height))
	e.program, e.handle = nil, metadata.InvalidProgram
	return true
}

func (e *frameEncoder) Clear(c metadata.ClearState) {
	e.clearTarget(c)
}

func (e *frameEncoder) EndQueue() {}

// finish clears the default framebuffer when no queue drew into it.
func (e *frameEncoder) finish() {
	if e.swapchainUsed {
		return
	}
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	e.framebuffer, e.colorCount = 0, 1
	e.clearTarget(metadata.ClearState{ClearColor: true, ClearDepth: true})
}

func (e *frameEncoder) SetScissor(s metadata.Scissor) {
	if !s.Enabled {
		gl.Disable(gl.SCISSOR_TEST)
		return
	}
	gl.Enable(gl.SCISSOR_TEST)
	gl.Scissor(scissorBox(s, e.width, e.height))
}

func (e *frameEncoder) SetCull(c metadata.CullState) {
	if !c.Enabled {
		gl.Disable(gl.CULL_FACE)
		return
	}
	gl.Enable(gl.CULL_FACE)
	gl.CullFace(gl.BACK)
	gl.FrontFace(frontFace(c.Winding))
}

func (e *frameEncoder) SetPolygonMode(m metadata.PolygonMode) {
	gl.PolygonMode(gl.FRONT_AND_BACK, polygonMode(m))
}

func (e *frameEncoder) SetDepth(d metadata.DepthState) {
	if d.Test {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(d.Write)
}

func (e *frameEncoder) SetColorWrite(enabled bool) {
	gl.ColorMask(enabled, enabled, enabled, enabled)
}

func (e *frameEncoder) SetBlend(b metadata.BlendState) {
	if !b.Enabled {
		gl.Disable(gl.BLEND)
		return
	}
	gl.Enable(gl.BLEND)
	gl.BlendEquationSeparate(blendEquation(b.EquationRGB), blendEquation(b.EquationAlpha))
	gl.BlendFuncSeparate(blendFactor(b.SrcRGB), blendFactor(b.DstRGB), blendFactor(b.SrcAlpha), blendFactor(b.DstAlpha))
}

func (e *frameEncoder) BindProgram(h metadata.ProgramHandle) bool {
	program, ok := e.renderer.programs[h]
	if !ok || !program.Usable() {
		return false
	}
	gl.UseProgram(program.Handle)
	e.program, e.handle = program, h
	return true
}

func (e *frameEncoder) BindVertexBuffer(h metadata.VertexBufferHandle, offset uint32, decl metadata.VertexDecl) {
	e.vertexBuffer, e.vertexOffset, e.decl, e.vertexMissing = nil, offset, decl, false
	if !h.IsValid() {
		return
	}
	buf, ok := e.renderer.vertexBuffers[h]
	if !ok {
		e.vertexMissing = true
		return
	}
	e.vertexBuffer = buf
}

func (e *frameEncoder) BindIndexBuffer(h metadata.IndexBufferHandle, offset uint32, typ metadata.IndexType) {
	e.indexBuffer, e.indexOffset, e.indexType, e.indexMissing = nil, offset, typ, false
	if !h.IsValid() {
		return
	}
	buf, ok := e.renderer.indexBuffers[h]
	if !ok {
		e.indexMissing = true
		return
	}
	e.indexBuffer = buf
}

// BindTextures binds every texture and its sampler to the unit named by
// the binding location. Missing textures are replaced by a white one.
func (e *frameEncoder) BindTextures(bindings []metadata.TextureBinding) {
	r := e.renderer
	for _, b := range bindings {
		tex, ok := r.textures[b.Texture]
		if !ok {
			core.WarnOnce("texture:"+b.Texture.String(), "%s is missing, sampling white instead", b.Texture)
			tex = r.fallback
		}
		gl.BindTextureUnit(b.Location, tex.Handle)
		gl.BindSampler(b.Location, r.sampler(b.Sampler))
	}
}

func (e *frameEncoder) Draw(item *metadata.RenderItem) error {
	if e.program == nil {
		return errors.New("no program bound")
	}
	if e.vertexMissing {
		return fmt.Errorf("%w: %s", core.ErrInvalidHandle, item.VertexBuffer)
	}
	if e.indexMissing {
		return fmt.Errorf("%w: %s", core.ErrInvalidHandle, item.IndexBuffer)
	}
	if err := checkInputs(e.decl, &e.program.Layout); err != nil {
		return err
	}

	vao, err := e.renderer.vertexArray(e.decl)
	if err != nil {
		return err
	}
	if e.vertexBuffer != nil {
		gl.VertexArrayVertexBuffer(vao, 0, e.vertexBuffer.Handle, int(e.vertexOffset), int32(e.decl.Stride()))
	}
	var ib uint32
	if e.indexBuffer != nil {
		ib = e.indexBuffer.Handle
	}
	gl.VertexArrayElementBuffer(vao, ib)
	gl.BindVertexArray(vao)

	if err := e.program.upload(item.Uniforms, unknownUniformWarner(e.handle)); err != nil {
		return err
	}

	count := int32(item.VertexCount())
	if e.indexBuffer != nil {
		gl.DrawElementsWithOffset(gl.TRIANGLES, count, indexType(e.indexType), uintptr(e.indexOffset))
	} else {
		gl.DrawArrays(gl.TRIANGLES, 0, count)
	}
	return nil
}
