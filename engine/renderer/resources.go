package renderer

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// The renderer takes over the reference of every Memory passed in; it is
// released once the render thread has executed the command.

func (r *Renderer) CreateVertexBuffer(data *metadata.Memory, decl metadata.VertexDecl, usage metadata.BufferUsage) metadata.VertexBufferHandle {
	h := r.handles.VertexBuffers.Next()
	r.vertexDecls[h] = decl
	r.submit.Pre = append(r.submit.Pre, metadata.CreateVertexBufferCmd{Handle: h, Data: data, Decl: decl, Usage: usage})
	return h
}

// UpdateVertexBuffer overwrites the buffer content starting at offset bytes.
func (r *Renderer) UpdateVertexBuffer(h metadata.VertexBufferHandle, data *metadata.Memory, offset uint32) {
	if _, ok := r.vertexDecls[h]; !ok {
		r.invalidHandle("update", h)
		data.Release()
		return
	}
	r.warnDoubleUpdate(h)
	r.submit.Pre = append(r.submit.Pre, metadata.UpdateVertexBufferCmd{Handle: h, Data: data, Offset: offset})
}

func (r *Renderer) DeleteVertexBuffer(h metadata.VertexBufferHandle) {
	if _, ok := r.vertexDecls[h]; !ok {
		r.invalidHandle("delete", h)
		return
	}
	delete(r.vertexDecls, h)
	r.submit.Post = append(r.submit.Post, metadata.DeleteVertexBufferCmd{Handle: h})
}

func (r *Renderer) CreateIndexBuffer(data *metadata.Memory, typ metadata.IndexType, usage metadata.BufferUsage) metadata.IndexBufferHandle {
	h := r.handles.IndexBuffers.Next()
	r.indexTypes[h] = typ
	r.submit.Pre = append(r.submit.Pre, metadata.CreateIndexBufferCmd{Handle: h, Data: data, Type: typ, Usage: usage})
	return h
}

func (r *Renderer) UpdateIndexBuffer(h metadata.IndexBufferHandle, data *metadata.Memory, offset uint32) {
	if _, ok := r.indexTypes[h]; !ok {
		r.invalidHandle("update", h)
		data.Release()
		return
	}
	r.warnDoubleUpdate(h)
	r.submit.Pre = append(r.submit.Pre, metadata.UpdateIndexBufferCmd{Handle: h, Data: data, Offset: offset})
}

func (r *Renderer) DeleteIndexBuffer(h metadata.IndexBufferHandle) {
	if _, ok := r.indexTypes[h]; !ok {
		r.invalidHandle("delete", h)
		return
	}
	delete(r.indexTypes, h)
	r.submit.Post = append(r.submit.Post, metadata.DeleteIndexBufferCmd{Handle: h})
}

func (r *Renderer) CreateShader(stage metadata.ShaderStageInfo) metadata.ShaderHandle {
	h := r.handles.Shaders.Next()
	r.submit.Pre = append(r.submit.Pre, metadata.CreateShaderCmd{Handle: h, Stage: stage})
	return h
}

func (r *Renderer) DeleteShader(h metadata.ShaderHandle) {
	r.submit.Post = append(r.submit.Post, metadata.DeleteShaderCmd{Handle: h})
}

// CreateProgram builds a program from compiled stages. Reflection happens
// in the backend, a failure leaves the program present but unusable.
func (r *Renderer) CreateProgram(stages ...metadata.ShaderStageInfo) metadata.ProgramHandle {
	h := r.handles.Programs.Next()
	r.submit.Pre = append(r.submit.Pre, metadata.CreateProgramCmd{Handle: h, Stages: stages})
	return h
}

// LinkProgram builds a program out of previously created shaders.
func (r *Renderer) LinkProgram(shaders ...metadata.ShaderHandle) metadata.ProgramHandle {
	h := r.handles.Programs.Next()
	r.submit.Pre = append(r.submit.Pre, metadata.LinkProgramCmd{Handle: h, Shaders: shaders})
	return h
}

func (r *Renderer) DeleteProgram(h metadata.ProgramHandle) {
	r.submit.Post = append(r.submit.Post, metadata.DeleteProgramCmd{Handle: h})
}

// CreateTexture creates a 2D texture. data may be nil for render targets.
func (r *Renderer) CreateTexture(info metadata.TextureInfo, data *metadata.Memory) metadata.TextureHandle {
	h := r.handles.Textures.Next()
	r.textures[h] = info
	r.submit.Pre = append(r.submit.Pre, metadata.CreateTextureCmd{Handle: h, Info: info, Data: data})
	return h
}

func (r *Renderer) UpdateTexture(h metadata.TextureHandle, x, y, width, height uint32, data *metadata.Memory) {
	info, ok := r.textures[h]
	if !ok {
		r.invalidHandle("update", h)
		data.Release()
		return
	}
	if x+width > info.Width || y+height > info.Height {
		r.log.Warnf("update of %s outside of its %dx%d extent, skipped", h, info.Width, info.Height)
		data.Release()
		return
	}
	r.warnDoubleUpdate(h)
	r.submit.Pre = append(r.submit.Pre, metadata.UpdateTextureCmd{Handle: h, X: x, Y: y, Width: width, Height: height, Data: data})
}

func (r *Renderer) DeleteTexture(h metadata.TextureHandle) {
	if _, ok := r.textures[h]; !ok {
		r.invalidHandle("delete", h)
		return
	}
	delete(r.textures, h)
	r.submit.Post = append(r.submit.Post, metadata.DeleteTextureCmd{Handle: h})
}

func (r *Renderer) TextureInfo(h metadata.TextureHandle) (metadata.TextureInfo, bool) {
	info, ok := r.textures[h]
	return info, ok
}

/**
 * @brief CreateFramebuffer creates a render target over existing textures.
 *
 * All attachments must share their dimensions. The framebuffer references
 * the textures, which must outlive it. A depth attachment is created
 * implicitly by the backend.
 */
func (r *Renderer) CreateFramebuffer(attachments ...metadata.TextureHandle) (metadata.FramebufferHandle, error) {
	if len(attachments) == 0 {
		return metadata.InvalidFramebuffer, fmt.Errorf("framebuffer needs at least one colour attachment")
	}
	var width, height uint32
	for i, t := range attachments {
		info, ok := r.textures[t]
		if !ok {
			return metadata.InvalidFramebuffer, fmt.Errorf("attachment %d: %w: %s", i, core.ErrInvalidHandle, t)
		}
		if info.Format.IsDepth() {
			return metadata.InvalidFramebuffer, fmt.Errorf("attachment %d: %s is a depth format", i, info.Format)
		}
		if i == 0 {
			width, height = info.Width, info.Height
		} else if info.Width != width || info.Height != height {
			return metadata.InvalidFramebuffer, fmt.Errorf("attachment %d is %dx%d, expected %dx%d", i, info.Width, info.Height, width, height)
		}
	}
	return r.createFramebuffer(width, height, attachments, false), nil
}

// CreateFramebufferWithFormat creates a framebuffer together with a single
// colour texture of the given format.
func (r *Renderer) CreateFramebufferWithFormat(width, height uint32, format metadata.TextureFormat) metadata.FramebufferHandle {
	tex := r.CreateTexture(metadata.TextureInfo{
		Width:       width,
		Height:      height,
		Format:      format,
		Framebuffer: true,
	}, nil)
	return r.createFramebuffer(width, height, []metadata.TextureHandle{tex}, true)
}

func (r *Renderer) createFramebuffer(width, height uint32, attachments []metadata.TextureHandle, owned bool) metadata.FramebufferHandle {
	h := r.handles.Framebuffers.Next()
	r.framebuffers[h] = framebufferInfo{
		width:       width,
		height:      height,
		attachments: attachments,
		owned:       owned,
	}
	r.submit.Pre = append(r.submit.Pre, metadata.CreateFramebufferCmd{
		Handle:      h,
		Width:       width,
		Height:      height,
		Attachments: attachments,
	})
	return h
}

// FramebufferTexture returns the colour attachment at index, or an invalid
// handle.
func (r *Renderer) FramebufferTexture(h metadata.FramebufferHandle, index int) metadata.TextureHandle {
	fb, ok := r.framebuffers[h]
	if !ok || index < 0 || index >= len(fb.attachments) {
		return metadata.InvalidTexture
	}
	return fb.attachments[index]
}

// DeleteFramebuffer deletes the framebuffer and the texture created with
// it, if any.
func (r *Renderer) DeleteFramebuffer(h metadata.FramebufferHandle) {
	fb, ok := r.framebuffers[h]
	if !ok {
		r.invalidHandle("delete", h)
		return
	}
	delete(r.framebuffers, h)
	r.submit.Post = append(r.submit.Post, metadata.DeleteFramebufferCmd{Handle: h})
	if fb.owned {
		for _, t := range fb.attachments {
			r.DeleteTexture(t)
		}
	}
}

// AllocTransientVertexBuffer reserves count vertices of decl in the current
// frame. The handle is only valid until the next call to Frame.
func (r *Renderer) AllocTransientVertexBuffer(count uint32, decl metadata.VertexDecl) (metadata.TransientVertexBufferHandle, bool) {
	h, ok := r.submit.AllocTransientVertexBuffer(count, decl)
	if !ok {
		r.log.Warnf("transient vertex arena exhausted: %d vertices of %d bytes requested, %d bytes left",
			count, decl.Stride(), r.submit.TransientVertices.Remaining())
	}
	return h, ok
}

func (r *Renderer) AllocTransientIndexBuffer(count uint32, typ metadata.IndexType) (metadata.TransientIndexBufferHandle, bool) {
	h, ok := r.submit.AllocTransientIndexBuffer(count, typ)
	if !ok {
		r.log.Warnf("transient index arena exhausted: %d indices requested, %d bytes left",
			count, r.submit.TransientIndices.Remaining())
	}
	return h, ok
}

// TransientVertexBufferData is the writable memory of a transient
// allocation. It returns nil for a handle of another frame.
func (r *Renderer) TransientVertexBufferData(h metadata.TransientVertexBufferHandle) []byte {
	return r.submit.TransientVertexBufferData(h)
}

func (r *Renderer) TransientIndexBufferData(h metadata.TransientIndexBufferHandle) []byte {
	return r.submit.TransientIndexBufferData(h)
}

func (r *Renderer) warnDoubleUpdate(key fmt.Stringer) {
	if r.submit.MarkUpdated(key) {
		core.WarnOnce("double-update:"+key.String(), "%s updated more than once in the same frame", key)
	}
}

func (r *Renderer) invalidHandle(op string, h fmt.Stringer) {
	r.log.Errorf("%s: %s: %s", op, core.ErrInvalidHandle, h)
}
