package opengl

import (
	"fmt"
	"slices"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// ProcessCommandList executes resource commands in order. A failing command
// is logged and leaves its handle without a resource. GL keeps objects
// alive while queued work uses them, so deletions happen right away.
func (r *OpenGLRenderer) ProcessCommandList(cmds []metadata.RenderCommand) {
	if !r.current {
		return
	}
	for _, cmd := range cmds {
		if err := r.processCommand(cmd); err != nil {
			core.LogError("%T: %s", cmd, err)
		}
	}
}

func (r *OpenGLRenderer) processCommand(cmd metadata.RenderCommand) error {
	switch c := cmd.(type) {
	case metadata.CreateVertexBufferCmd:
		buf, err := bufferCreate(c.ByteSize(), c.Usage, c.Data.Bytes())
		if err != nil {
			return err
		}
		r.replaceVertexBuffer(c.Handle, buf)
	case metadata.UpdateVertexBufferCmd:
		buf, ok := r.vertexBuffers[c.Handle]
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrInvalidHandle, c.Handle)
		}
		return buf.Update(c.Offset, c.Data.Bytes())
	case metadata.DeleteVertexBufferCmd:
		r.replaceVertexBuffer(c.Handle, nil)

	case metadata.CreateIndexBufferCmd:
		buf, err := bufferCreate(c.ByteSize(), c.Usage, c.Data.Bytes())
		if err != nil {
			return err
		}
		r.replaceIndexBuffer(c.Handle, buf)
	case metadata.UpdateIndexBufferCmd:
		buf, ok := r.indexBuffers[c.Handle]
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrInvalidHandle, c.Handle)
		}
		return buf.Update(c.Offset, c.Data.Bytes())
	case metadata.DeleteIndexBufferCmd:
		r.replaceIndexBuffer(c.Handle, nil)

	case metadata.CreateShaderCmd:
		if c.Stage.Source == "" && len(c.Stage.Code) == 0 {
			return &core.ShaderError{Stage: c.Stage.Stage.String(), Message: "stage carries neither GLSL nor SPIR-V"}
		}
		r.shaders[c.Handle] = c.Stage
	case metadata.DeleteShaderCmd:
		delete(r.shaders, c.Handle)

	case metadata.CreateProgramCmd:
		return r.createProgram(c.Handle, c.Stages)
	case metadata.LinkProgramCmd:
		stages := make([]metadata.ShaderStageInfo, 0, len(c.Shaders))
		for _, h := range c.Shaders {
			info, ok := r.shaders[h]
			if !ok {
				r.replaceProgram(c.Handle, &glProgram{Err: fmt.Errorf("%w: %s", core.ErrInvalidHandle, h)})
				return fmt.Errorf("linking %s: %w: %s", c.Handle, core.ErrInvalidHandle, h)
			}
			stages = append(stages, info)
		}
		return r.createProgram(c.Handle, stages)
	case metadata.DeleteProgramCmd:
		r.replaceProgram(c.Handle, nil)

	case metadata.CreateTextureCmd:
		tex, err := textureCreate(c.Info, c.Data.Bytes())
		if err != nil {
			r.replaceTexture(c.Handle, nil)
			return err
		}
		r.replaceTexture(c.Handle, tex)
	case metadata.UpdateTextureCmd:
		tex, ok := r.textures[c.Handle]
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrInvalidHandle, c.Handle)
		}
		return tex.Update(c.X, c.Y, c.Width, c.Height, c.Data.Bytes())
	case metadata.DeleteTextureCmd:
		r.replaceTexture(c.Handle, nil)

	case metadata.CreateFramebufferCmd:
		target, err := r.createRenderTarget(c)
		if err != nil {
			r.replaceTarget(c.Handle, nil)
			return err
		}
		r.replaceTarget(c.Handle, target)
	case metadata.DeleteFramebufferCmd:
		r.replaceTarget(c.Handle, nil)

	default:
		return fmt.Errorf("unknown render command")
	}
	return nil
}

func (r *OpenGLRenderer) replaceVertexBuffer(h metadata.VertexBufferHandle, buf *glBuffer) {
	if old, ok := r.vertexBuffers[h]; ok {
		old.Destroy()
		delete(r.vertexBuffers, h)
	}
	if buf != nil {
		gl.ObjectLabel(gl.BUFFER, buf.Handle, -1, gl.Str(h.String()+"\x00"))
		r.vertexBuffers[h] = buf
	}
}

func (r *OpenGLRenderer) replaceIndexBuffer(h metadata.IndexBufferHandle, buf *glBuffer) {
	if old, ok := r.indexBuffers[h]; ok {
		old.Destroy()
		delete(r.indexBuffers, h)
	}
	if buf != nil {
		gl.ObjectLabel(gl.BUFFER, buf.Handle, -1, gl.Str(h.String()+"\x00"))
		r.indexBuffers[h] = buf
	}
}

func (r *OpenGLRenderer) createProgram(h metadata.ProgramHandle, stages []metadata.ShaderStageInfo) error {
	program := programCreate(stages, h.String())
	r.replaceProgram(h, program)
	if program.Err != nil {
		return fmt.Errorf("%s is unusable: %w", h, program.Err)
	}
	return nil
}

func (r *OpenGLRenderer) replaceProgram(h metadata.ProgramHandle, program *glProgram) {
	if old, ok := r.programs[h]; ok {
		old.Destroy()
		delete(r.programs, h)
	}
	if program != nil {
		r.programs[h] = program
	}
}

// replaceTexture also marks the framebuffers built over h incomplete: GL
// keeps a deleted texture alive while it is attached.
func (r *OpenGLRenderer) replaceTexture(h metadata.TextureHandle, tex *glTexture) {
	if old, ok := r.textures[h]; ok {
		for fh, t := range r.targets {
			if t.Complete && (t.Depth == h || slices.Contains(t.Colors, h)) {
				core.LogWarn("%s lost attachment %s and can no longer be rendered to", fh, h)
				t.Complete = false
			}
		}
		old.Destroy()
		delete(r.textures, h)
	}
	if tex != nil {
		gl.ObjectLabel(gl.TEXTURE, tex.Handle, -1, gl.Str(h.String()+"\x00"))
		r.textures[h] = tex
	}
}

func (r *OpenGLRenderer) replaceTarget(h metadata.FramebufferHandle, target *renderTarget) {
	if old, ok := r.targets[h]; ok {
		old.Destroy()
		delete(r.targets, h)
	}
	if target != nil {
		r.targets[h] = target
	}
}
