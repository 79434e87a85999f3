package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief A client framebuffer. Colour textures are referenced, not owned;
 * without a depth texture the target gets its own depth renderbuffer.
 * Incomplete targets are kept so that queues using them can be skipped.
 */
type renderTarget struct {
	Handle   uint32
	Width    uint32
	Height   uint32
	Colors   []metadata.TextureHandle
	Depth    metadata.TextureHandle
	depthRB  uint32
	Complete bool
}

func framebufferStatusString(status uint32) string {
	switch status {
	case gl.FRAMEBUFFER_COMPLETE:
		return "complete"
	case gl.FRAMEBUFFER_INCOMPLETE_ATTACHMENT:
		return "incomplete attachment"
	case gl.FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT:
		return "missing attachment"
	case gl.FRAMEBUFFER_UNSUPPORTED:
		return "unsupported"
	}
	return fmt.Sprintf("status 0x%x", status)
}

func (r *OpenGLRenderer) createRenderTarget(c metadata.CreateFramebufferCmd) (*renderTarget, error) {
	if c.Width == 0 || c.Height == 0 {
		return nil, fmt.Errorf("framebuffer size %dx%d", c.Width, c.Height)
	}
	target := &renderTarget{Width: c.Width, Height: c.Height}
	var colors []*glTexture
	var depth *glTexture
	for _, h := range c.Attachments {
		tex, ok := r.textures[h]
		if !ok {
			return nil, fmt.Errorf("%w: attachment %s", core.ErrInvalidHandle, h)
		}
		if tex.Info.Width != c.Width || tex.Info.Height != c.Height {
			return nil, fmt.Errorf("attachment %s is %dx%d, framebuffer is %dx%d", h, tex.Info.Width, tex.Info.Height, c.Width, c.Height)
		}
		if tex.Info.Format.IsDepth() || tex.Info.Format.HasStencil() {
			if depth != nil {
				return nil, fmt.Errorf("%s has more than one depth attachment", c.Handle)
			}
			depth = tex
			target.Depth = h
			continue
		}
		if !tex.Info.Framebuffer {
			return nil, fmt.Errorf("attachment %s was not created as a framebuffer texture", h)
		}
		colors = append(colors, tex)
		target.Colors = append(target.Colors, h)
	}
	if len(colors) == 0 {
		return nil, fmt.Errorf("framebuffer has no colour attachment")
	}
	if len(colors) > r.maxColorAttachments {
		return nil, fmt.Errorf("%d colour attachments, the driver allows %d", len(colors), r.maxColorAttachments)
	}

	gl.CreateFramebuffers(1, &target.Handle)
	drawBuffers := make([]uint32, len(colors))
	for i, tex := range colors {
		drawBuffers[i] = gl.COLOR_ATTACHMENT0 + uint32(i)
		gl.NamedFramebufferTexture(target.Handle, drawBuffers[i], tex.Handle, 0)
	}
	gl.NamedFramebufferDrawBuffers(target.Handle, int32(len(drawBuffers)), &drawBuffers[0])
	if depth != nil {
		gl.NamedFramebufferTexture(target.Handle, depthAttachment(depth.Info.Format), depth.Handle, 0)
	} else {
		gl.CreateRenderbuffers(1, &target.depthRB)
		gl.NamedRenderbufferStorage(target.depthRB, gl.DEPTH_COMPONENT32F, int32(c.Width), int32(c.Height))
		gl.NamedFramebufferRenderbuffer(target.Handle, gl.DEPTH_ATTACHMENT, gl.RENDERBUFFER, target.depthRB)
	}

	status := gl.CheckNamedFramebufferStatus(target.Handle, gl.FRAMEBUFFER)
	target.Complete = status == gl.FRAMEBUFFER_COMPLETE
	if !target.Complete {
		core.LogError("%s is %s", c.Handle, framebufferStatusString(status))
		return target, nil
	}
	core.LogDebug("Framebuffer created: %dx%d, %d colour attachments.", c.Width, c.Height, len(colors))
	return target, nil
}

func (t *renderTarget) Destroy() {
	if t.depthRB != 0 {
		gl.DeleteRenderbuffers(1, &t.depthRB)
		t.depthRB = 0
	}
	if t.Handle != 0 {
		gl.DeleteFramebuffers(1, &t.Handle)
		t.Handle = 0
	}
}
