package vulkan

import (
	"fmt"
	"slices"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/spirv"
)

// ProcessCommandList executes resource commands in order. A failing command
// is logged and leaves its handle without a resource; draws referring to it
// are skipped later.
func (vr *VulkanRenderer) ProcessCommandList(cmds []metadata.RenderCommand) {
	if vr.context.Device == nil {
		return
	}
	for _, cmd := range cmds {
		if err := vr.processCommand(cmd); err != nil {
			core.LogError("%T: %s", cmd, err)
		}
	}
}

func (vr *VulkanRenderer) processCommand(cmd metadata.RenderCommand) error {
	switch c := cmd.(type) {
	case metadata.CreateVertexBufferCmd:
		buf, err := vr.createGeometryBuffer(c.ByteSize(), c.Usage, vk.BufferUsageVertexBufferBit, c.Data.Bytes())
		if err != nil {
			return err
		}
		vr.replaceVertexBuffer(c.Handle, buf)
	case metadata.UpdateVertexBufferCmd:
		buf, ok := vr.vertexBuffers[c.Handle]
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrInvalidHandle, c.Handle)
		}
		return vr.updateGeometryBuffer(buf, uint64(c.Offset), c.Data.Bytes())
	case metadata.DeleteVertexBufferCmd:
		vr.replaceVertexBuffer(c.Handle, nil)

	case metadata.CreateIndexBufferCmd:
		buf, err := vr.createGeometryBuffer(c.ByteSize(), c.Usage, vk.BufferUsageIndexBufferBit, c.Data.Bytes())
		if err != nil {
			return err
		}
		vr.replaceIndexBuffer(c.Handle, buf)
	case metadata.UpdateIndexBufferCmd:
		buf, ok := vr.indexBuffers[c.Handle]
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrInvalidHandle, c.Handle)
		}
		return vr.updateGeometryBuffer(buf, uint64(c.Offset), c.Data.Bytes())
	case metadata.DeleteIndexBufferCmd:
		vr.replaceIndexBuffer(c.Handle, nil)

	case metadata.CreateShaderCmd:
		// Modules are created per program, the stage is kept until linked.
		if len(c.Stage.Code) == 0 {
			return &core.ShaderError{Stage: c.Stage.Stage.String(), Message: "stage carries no SPIR-V code"}
		}
		vr.shaders[c.Handle] = c.Stage
	case metadata.DeleteShaderCmd:
		delete(vr.shaders, c.Handle)

	case metadata.CreateProgramCmd:
		return vr.createProgram(c.Handle, c.Stages)
	case metadata.LinkProgramCmd:
		stages := make([]metadata.ShaderStageInfo, 0, len(c.Shaders))
		for _, h := range c.Shaders {
			info, ok := vr.shaders[h]
			if !ok {
				vr.replaceProgram(c.Handle, &VulkanProgram{Err: fmt.Errorf("%w: %s", core.ErrInvalidHandle, h)})
				return fmt.Errorf("linking %s: %w: %s", c.Handle, core.ErrInvalidHandle, h)
			}
			stages = append(stages, info)
		}
		return vr.createProgram(c.Handle, stages)
	case metadata.DeleteProgramCmd:
		vr.replaceProgram(c.Handle, nil)

	case metadata.CreateTextureCmd:
		tex, err := TextureCreate(vr.context, c.Info, c.Data.Bytes())
		if err != nil {
			vr.replaceTexture(c.Handle, nil)
			return err
		}
		vr.replaceTexture(c.Handle, tex)
	case metadata.UpdateTextureCmd:
		tex, ok := vr.textures[c.Handle]
		if !ok {
			return fmt.Errorf("%w: %s", core.ErrInvalidHandle, c.Handle)
		}
		return tex.Update(vr.context, c.X, c.Y, c.Width, c.Height, c.Data.Bytes())
	case metadata.DeleteTextureCmd:
		vr.replaceTexture(c.Handle, nil)

	case metadata.CreateFramebufferCmd:
		target, err := vr.createRenderTarget(c)
		if err != nil {
			vr.replaceTarget(c.Handle, nil)
			return err
		}
		vr.replaceTarget(c.Handle, target)
	case metadata.DeleteFramebufferCmd:
		vr.replaceTarget(c.Handle, nil)

	default:
		return fmt.Errorf("unknown render command")
	}
	return nil
}

func (vr *VulkanRenderer) createGeometryBuffer(size uint32, usage metadata.BufferUsage, kind vk.BufferUsageFlagBits, data []byte) (*VulkanBuffer, error) {
	buf, err := geometryBufferCreate(vr.context, max(size, 1), usage, kind)
	if err != nil {
		return nil, err
	}
	if len(data) > 0 {
		if err := buf.Update(vr.context, 0, data); err != nil {
			buf.BufferDestroy(vr.context)
			return nil, err
		}
	}
	return buf, nil
}

// updateGeometryBuffer writes data at offset. Device local buffers go
// through a staging copy; host visible ones get the region of the current
// slot written now and the other regions once the GPU is done with them.
func (vr *VulkanRenderer) updateGeometryBuffer(buf *VulkanBuffer, offset uint64, data []byte) error {
	if !buf.HostVisible {
		return buf.Upload(vr.context, offset, data)
	}
	current := vr.context.CurrentFrame
	if err := buf.Write(current, offset, data); err != nil {
		return err
	}
	copied := slices.Clone(data)
	for slot := uint32(0); slot < buf.Regions; slot++ {
		if slot == current {
			continue
		}
		vr.pending[slot].Push(func() {
			// The buffer may have been deleted in the meantime.
			if buf.Mapped != nil {
				_ = buf.Write(slot, offset, copied)
			}
		})
	}
	return nil
}

func (vr *VulkanRenderer) replaceVertexBuffer(h metadata.VertexBufferHandle, buf *VulkanBuffer) {
	if old, ok := vr.vertexBuffers[h]; ok {
		vr.deferToGPU(func() { old.BufferDestroy(vr.context) })
		delete(vr.vertexBuffers, h)
	}
	if buf != nil {
		vr.vertexBuffers[h] = buf
	}
}

func (vr *VulkanRenderer) replaceIndexBuffer(h metadata.IndexBufferHandle, buf *VulkanBuffer) {
	if old, ok := vr.indexBuffers[h]; ok {
		vr.deferToGPU(func() { old.BufferDestroy(vr.context) })
		delete(vr.indexBuffers, h)
	}
	if buf != nil {
		vr.indexBuffers[h] = buf
	}
}

func (vr *VulkanRenderer) createProgram(h metadata.ProgramHandle, stages []metadata.ShaderStageInfo) error {
	program := ProgramCreate(vr.context, stages)
	vr.replaceProgram(h, program)
	if program.Err != nil {
		return fmt.Errorf("%s is unusable: %w", h, program.Err)
	}
	return nil
}

// replaceProgram drops every pipeline and descriptor set built from the
// program previously stored at h.
func (vr *VulkanRenderer) replaceProgram(h metadata.ProgramHandle, program *VulkanProgram) {
	context := vr.context
	if old, ok := vr.programs[h]; ok {
		var dropped []*VulkanPipeline
		vr.pipelines.RemoveIf(func(k pipelineKey, _ *VulkanPipeline) bool {
			return k.program == h
		}, func(_ pipelineKey, p *VulkanPipeline) {
			dropped = append(dropped, p)
		})
		var sets [][]vk.DescriptorSet
		vr.descriptors.RemoveIf(func(k descriptorKey, _ *descriptorEntry) bool {
			return k.program == h
		}, func(_ descriptorKey, e *descriptorEntry) {
			sets = append(sets, e.sets)
		})
		vr.deferToGPU(func() {
			for _, p := range dropped {
				p.Destroy(context)
			}
			for _, s := range sets {
				vr.descriptorPool.Free(context, s)
			}
			old.Destroy(context)
		})
		delete(vr.programs, h)
	}
	if program != nil {
		vr.programs[h] = program
	}
}

func (vr *VulkanRenderer) replaceTexture(h metadata.TextureHandle, tex *VulkanTexture) {
	context := vr.context
	old, ok := vr.textures[h]
	if ok {
		delete(vr.textures, h)
	}
	// Descriptor sets pointing at the handle are stale either way.
	vr.dropDescriptors(func(e *descriptorEntry) bool { return e.references(h) })
	if ok {
		vr.deferToGPU(func() { old.Destroy(context) })
	}
	if tex != nil {
		vr.textures[h] = tex
	}
}

func (vr *VulkanRenderer) dropDescriptors(pred func(*descriptorEntry) bool) {
	var sets [][]vk.DescriptorSet
	vr.descriptors.RemoveIf(func(_ descriptorKey, e *descriptorEntry) bool {
		return pred(e)
	}, func(_ descriptorKey, e *descriptorEntry) {
		sets = append(sets, e.sets)
	})
	if len(sets) == 0 {
		return
	}
	vr.deferToGPU(func() {
		for _, s := range sets {
			vr.descriptorPool.Free(vr.context, s)
		}
	})
}

func (vr *VulkanRenderer) replaceTarget(h metadata.FramebufferHandle, target *renderTarget) {
	if old, ok := vr.targets[h]; ok {
		vr.deferToGPU(func() { old.destroy(vr.context) })
		delete(vr.targets, h)
	}
	if target != nil {
		vr.targets[h] = target
	}
}

// createRenderTarget builds a framebuffer over client textures. Colour
// attachments come first in the order given; a depth texture replaces the
// implicit depth image.
func (vr *VulkanRenderer) createRenderTarget(c metadata.CreateFramebufferCmd) (*renderTarget, error) {
	context := vr.context
	if c.Width == 0 || c.Height == 0 {
		return nil, fmt.Errorf("framebuffer size %dx%d", c.Width, c.Height)
	}

	var (
		colors   []vk.Format
		views    []vk.ImageView
		depthTex *VulkanTexture
	)
	textures := make([]metadata.TextureHandle, 0, len(c.Attachments))
	for _, h := range c.Attachments {
		tex, ok := vr.textures[h]
		if !ok {
			return nil, fmt.Errorf("attachment %w: %s", core.ErrInvalidHandle, h)
		}
		if tex.Info.Width != c.Width || tex.Info.Height != c.Height {
			return nil, fmt.Errorf("attachment %s is %dx%d, framebuffer is %dx%d", h, tex.Info.Width, tex.Info.Height, c.Width, c.Height)
		}
		textures = append(textures, h)
		if tex.Info.Format.IsDepth() || tex.Info.Format.HasStencil() {
			if depthTex != nil {
				return nil, fmt.Errorf("more than one depth attachment")
			}
			depthTex = tex
			continue
		}
		if !tex.Info.Framebuffer {
			return nil, fmt.Errorf("attachment %s was not created as a framebuffer texture", h)
		}
		colors = append(colors, tex.Image.Format)
		views = append(views, tex.Image.View)
	}
	if len(colors) == 0 {
		return nil, fmt.Errorf("framebuffer has no colour attachment")
	}
	if len(colors) > maxColorAttachments {
		return nil, fmt.Errorf("%d colour attachments, at most %d are supported", len(colors), maxColorAttachments)
	}

	target := &renderTarget{shape: newPassShape(colors), textures: textures}
	if depthTex != nil {
		target.shape.depth = depthTex.Image.Format
		views = append(views, depthTex.Image.View)
	} else {
		depth, err := ImageCreate(context, imageCreateInfo{
			Width:     c.Width,
			Height:    c.Height,
			Format:    framebufferDepthFormat,
			MipLevels: 1,
			Usage:     vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
			Aspect:    vk.ImageAspectFlags(vk.ImageAspectDepthBit),
			Swizzle:   identitySwizzle(),
		})
		if err != nil {
			return nil, err
		}
		target.depth = depth
		views = append(views, depth.View)
		err = immediate(context, func(cmd vk.CommandBuffer) {
			depth.TransitionLayout(cmd, vk.ImageLayoutDepthStencilAttachmentOptimal)
		})
		if err != nil {
			target.destroy(context)
			return nil, err
		}
	}

	rp, err := vr.renderpass(renderpassKey{shape: target.shape})
	if err != nil {
		target.destroy(context)
		return nil, err
	}
	fb, err := FramebufferCreate(context, rp, c.Width, c.Height, views)
	if err != nil {
		target.destroy(context)
		return nil, err
	}
	target.framebuffer = fb
	core.LogDebug("Framebuffer created: %dx%d, %d colour attachments.", c.Width, c.Height, len(colors))
	return target, nil
}

// descriptorEntry returns the descriptor sets of program bound to bindings,
// allocating and writing them on first use.
func (vr *VulkanRenderer) descriptorEntry(h metadata.ProgramHandle, program *VulkanProgram, bindings []metadata.TextureBinding) (*descriptorEntry, error) {
	key := descriptorKey{program: h, bindings: encodeBindings(bindings)}
	return vr.descriptors.GetOrCreate(key, func(descriptorKey) (*descriptorEntry, error) {
		context := vr.context
		sets, err := vr.descriptorPool.Allocate(context, program.SetLayout, int(context.Swapchain.ImageCount))
		if err != nil {
			return nil, err
		}
		entry := &descriptorEntry{sets: sets}
		resolve := func(s metadata.SamplerBindingInfo) resolvedImage {
			return vr.resolveImage(h, s, program.SamplerKinds[s.Binding], bindings, entry)
		}
		for _, set := range sets {
			writeDescriptorSet(context, set, program, vr.scratch.Handle, resolve)
		}
		return entry, nil
	})
}

// resolveImage finds the view and sampler a binding of the program points
// at. Missing textures are replaced with a white one.
func (vr *VulkanRenderer) resolveImage(h metadata.ProgramHandle, s metadata.SamplerBindingInfo, kind spirv.SamplerKind, bindings []metadata.TextureBinding, entry *descriptorEntry) resolvedImage {
	var out resolvedImage
	tex := vr.fallback
	sampler := metadata.DefaultSamplerInfo()

	if b, ok := samplerSource(bindings, s.Binding, kind); ok {
		sampler = b.Sampler
		if t, ok := vr.textures[b.Texture]; ok {
			tex = t
		} else {
			core.WarnOnce(fmt.Sprintf("texture:%s:%s", h, b.Texture), "%s binding %q uses missing %s, sampling white", h, s.Name, b.Texture)
		}
		if !slices.Contains(entry.textures, b.Texture) {
			entry.textures = append(entry.textures, b.Texture)
		}
	} else {
		core.WarnOnce(fmt.Sprintf("binding:%s:%d", h, s.Binding), "%s binding %q has no texture bound, sampling white", h, s.Name)
	}

	out.view = tex.Image.View
	if kind != spirv.SamplerImage {
		vs, err := vr.samplers.GetOrCreate(sampler, func(info metadata.SamplerInfo) (vk.Sampler, error) {
			return SamplerCreate(vr.context, info)
		})
		if err != nil {
			core.LogError("sampler for %s: %s", h, err)
		}
		out.sampler = vs
	}
	return out
}
