package renderer

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Every setter below edits the work in progress render item of the submit
// frame. Submit moves it into the last started render queue.

func (r *Renderer) SetVertexBuffer(h metadata.VertexBufferHandle) {
	decl, ok := r.vertexDecls[h]
	if !ok {
		r.invalidHandle("set vertex buffer", h)
		return
	}
	cur := &r.submit.Current
	cur.VertexBuffer = h
	cur.VertexOffset = 0
	cur.VertexDecl = decl
}

// SetTransientVertexBuffer binds a transient allocation of this frame. The
// draw reads from the shared Stream buffer with the allocation's layout.
func (r *Renderer) SetTransientVertexBuffer(h metadata.TransientVertexBufferHandle) {
	tvb, ok := r.submit.TransientVertexBuffer(h)
	if !ok {
		r.invalidHandle("set transient vertex buffer", h)
		return
	}
	cur := &r.submit.Current
	cur.VertexBuffer = r.transient.VertexBuffer
	cur.VertexOffset = tvb.Offset
	cur.VertexDecl = tvb.Decl
}

func (r *Renderer) SetIndexBuffer(h metadata.IndexBufferHandle) {
	typ, ok := r.indexTypes[h]
	if !ok {
		r.invalidHandle("set index buffer", h)
		return
	}
	cur := &r.submit.Current
	cur.IndexBuffer = h
	cur.IndexOffset = 0
	cur.IndexType = typ
}

func (r *Renderer) SetTransientIndexBuffer(h metadata.TransientIndexBufferHandle) {
	tib, ok := r.submit.TransientIndexBuffer(h)
	if !ok {
		r.invalidHandle("set transient index buffer", h)
		return
	}
	cur := &r.submit.Current
	cur.IndexBuffer = r.transient.IndexBuffer
	cur.IndexOffset = tib.Offset
	cur.IndexType = tib.Type
}

// SetUniform records a uniform value for the next draw. Names unknown to
// the program are reported by the backend once and ignored.
func (r *Renderer) SetUniform(name string, value metadata.UniformValue) {
	r.submit.Current.Uniforms[name] = value
}

// SetTexture binds tex with sampler to the sampler binding location.
func (r *Renderer) SetTexture(location uint32, tex metadata.TextureHandle, sampler metadata.SamplerInfo) {
	if !tex.IsValid() {
		core.WarnOnce("no-texture:"+r.ID.String(), "binding location %d set without a texture", location)
		return
	}
	r.submit.Current.SetTexture(location, tex, sampler)
}

func (r *Renderer) SetScissor(x, y int32, width, height uint32) {
	r.submit.Current.Scissor = metadata.Scissor{Enabled: true, X: x, Y: y, Width: width, Height: height}
}

func (r *Renderer) DisableScissor() {
	r.submit.Current.Scissor = metadata.Scissor{}
}

func (r *Renderer) SetStateCull(enabled bool, winding metadata.Winding) {
	r.submit.Current.State.Cull = metadata.CullState{Enabled: enabled, Winding: winding}
}

func (r *Renderer) SetStatePolygonMode(mode metadata.PolygonMode) {
	r.submit.Current.State.PolygonMode = mode
}

func (r *Renderer) SetStateDepth(test, write bool) {
	r.submit.Current.State.Depth = metadata.DepthState{Test: test, Write: write}
}

func (r *Renderer) SetStateColorWrite(enabled bool) {
	r.submit.Current.State.ColorWrite = enabled
}

func (r *Renderer) SetStateBlend(blend metadata.BlendState) {
	r.submit.Current.State.Blend = blend
}

// StartRenderQueue appends a render queue targeting fb, or the swapchain
// for an invalid handle, and returns its id. Later submissions go there.
func (r *Renderer) StartRenderQueue(fb metadata.FramebufferHandle) int {
	if fb.IsValid() {
		if _, ok := r.framebuffers[fb]; !ok {
			r.invalidHandle("start render queue", fb)
		}
	}
	return r.submit.StartQueue(fb)
}

// SetRenderQueueClear sets the clear performed when the queue starts.
func (r *Renderer) SetRenderQueueClear(queue int, color mgl32.Vec4, clearColor, clearDepth bool) {
	q := r.submit.Queue(queue)
	if q == nil {
		r.log.Errorf("set render queue clear: no render queue %d in this frame", queue)
		return
	}
	q.Clear = &metadata.ClearState{Color: color, ClearColor: clearColor, ClearDepth: clearDepth}
}

// SetViewClear sets the clear of the most recently started queue.
func (r *Renderer) SetViewClear(color mgl32.Vec4, clearColor, clearDepth bool) {
	r.SetRenderQueueClear(len(r.submit.Queues)-1, color, clearColor, clearDepth)
}

/**
 * @brief Submit finishes the work in progress item and queues it.
 *
 * vertexCount is the number of vertices (or indices) drawn, three per
 * triangle. offset counts indices when an index buffer is bound and bytes
 * into the vertex buffer otherwise.
 */
func (r *Renderer) Submit(program metadata.ProgramHandle, vertexCount, offset uint32) {
	cur := &r.submit.Current
	cur.Program = program
	cur.PrimitiveCount = vertexCount / 3
	if cur.IsIndexed() {
		cur.IndexOffset += offset * cur.IndexType.Size()
	} else {
		cur.VertexOffset += offset
	}
	r.submit.SubmitCurrent()
}

// SubmitFullscreenQuad draws one oversized triangle covering the viewport.
// Position is at attribute 0 and texture coordinates at TexCoord0.
func (r *Renderer) SubmitFullscreenQuad(program metadata.ProgramHandle) {
	cur := &r.submit.Current
	cur.VertexBuffer = r.fullscreenVB
	cur.VertexOffset = 0
	cur.VertexDecl = r.fullscreenDecl
	cur.IndexBuffer = metadata.InvalidIndexBuffer
	cur.IndexOffset = 0
	r.Submit(program, 3, 0)
}
