package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief Records the render queues of one frame into the graphics command
 * buffer of the current slot. Pipelines are resolved lazily at draw time
 * from the state accumulated by the Set calls.
 */
type frameEncoder struct {
	renderer *VulkanRenderer
	cb       *VulkanCommandBuffer
	slot     uint32
	image    uint32

	// Target of the current queue. target is nil for the swapchain.
	target        *renderTarget
	pass          *VulkanRenderpass
	shape         passShape
	width, height uint32
	inPass        bool
	swapchainUsed bool

	program  *VulkanProgram
	state    metadata.RenderState
	decl     metadata.VertexDecl
	textures []metadata.TextureBinding
	pipeline vk.Pipeline

	vertexMissing bool
	indexMissing  bool
}

func (e *frameEncoder) begin(renderer *VulkanRenderer, cb *VulkanCommandBuffer, slot, image uint32) {
	*e = frameEncoder{renderer: renderer, cb: cb, slot: slot, image: image}
}

func indexType(t metadata.IndexType) vk.IndexType {
	if t == metadata.IndexTypeUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

// scissorRect clips a scissor to a width x height target. A disabled
// scissor covers the whole target.
func scissorRect(s metadata.Scissor, width, height uint32) vk.Rect2D {
	if !s.Enabled {
		return vk.Rect2D{Extent: vk.Extent2D{Width: width, Height: height}}
	}
	x0 := math.Clamp(int64(s.X), 0, int64(width))
	y0 := math.Clamp(int64(s.Y), 0, int64(height))
	x1 := math.Clamp(int64(s.X)+int64(s.Width), x0, int64(width))
	y1 := math.Clamp(int64(s.Y)+int64(s.Height), y0, int64(height))
	return vk.Rect2D{
		Offset: vk.Offset2D{X: int32(x0), Y: int32(y0)},
		Extent: vk.Extent2D{Width: uint32(x1 - x0), Height: uint32(y1 - y0)},
	}
}

func (e *frameEncoder) BeginQueue(index int, q *metadata.RenderQueue) bool {
	r := e.renderer
	context := r.context

	var (
		framebuffer vk.Framebuffer
		clear       bool
	)
	if !q.Framebuffer.IsValid() {
		sc := context.Swapchain
		e.target = nil
		e.shape = sc.Shape()
		e.width, e.height = sc.Extent.Width, sc.Extent.Height
		framebuffer = sc.Framebuffers[e.image].Handle
		// The first pass over the swapchain image discards what the
		// presentation engine left in it.
		clear = !e.swapchainUsed
	} else {
		target, ok := r.targets[q.Framebuffer]
		if !ok {
			core.LogError("queue %d targets %s which does not exist, skipping it", index, q.Framebuffer)
			return false
		}
		e.target = target
		e.shape = target.shape
		e.width, e.height = target.framebuffer.Width, target.framebuffer.Height
		framebuffer = target.framebuffer.Handle
		for _, h := range target.textures {
			if tex, ok := r.textures[h]; ok {
				tex.Image.TransitionLayout(e.cb.Handle, attachmentLayout(tex.Info.Format))
			}
		}
	}

	rp, err := r.renderpass(renderpassKey{shape: e.shape, clear: clear})
	if err != nil {
		core.LogError("queue %d: %s", index, err)
		e.restTargetTextures()
		return false
	}
	rp.RenderpassBegin(e.cb, framebuffer, e.width, e.height)
	e.pass = rp
	e.inPass = true
	if e.target == nil {
		e.swapchainUsed = true
	}

	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(e.width),
		Height:   float32(e.height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(e.cb.Handle, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(e.cb.Handle, 0, 1, []vk.Rect2D{scissorRect(metadata.Scissor{}, e.width, e.height)})

	e.program = nil
	e.state = metadata.DefaultRenderState()
	e.decl = metadata.VertexDecl{}
	e.textures = nil
	e.pipeline = vk.NullPipeline
	e.vertexMissing = false
	e.indexMissing = false
	return true
}

func (e *frameEncoder) Clear(c metadata.ClearState) {
	attachments := make([]vk.ClearAttachment, 0, e.shape.count+1)
	if c.ClearColor {
		for i := uint32(0); i < uint32(e.shape.count); i++ {
			var value vk.ClearValue
			value.SetColor([]float32{c.Color[0], c.Color[1], c.Color[2], c.Color[3]})
			attachments = append(attachments, vk.ClearAttachment{
				AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
				ColorAttachment: i,
				ClearValue:      value,
			})
		}
	}
	if c.ClearDepth {
		var value vk.ClearValue
		value.SetDepthStencil(1.0, 0)
		aspect := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if e.shape.depth == vk.FormatD24UnormS8Uint || e.shape.depth == vk.FormatD32SfloatS8Uint {
			aspect |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
		}
		attachments = append(attachments, vk.ClearAttachment{
			AspectMask: aspect,
			ClearValue: value,
		})
	}
	if len(attachments) == 0 {
		return
	}
	rect := vk.ClearRect{
		Rect:           scissorRect(metadata.Scissor{}, e.width, e.height),
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	vk.CmdClearAttachments(e.cb.Handle, uint32(len(attachments)), attachments, 1, []vk.ClearRect{rect})
}

func (e *frameEncoder) EndQueue() {
	if !e.inPass {
		return
	}
	e.pass.RenderpassEnd(e.cb)
	e.pass = nil
	e.inPass = false
	e.restTargetTextures()
}

// restTargetTextures moves the attachments of the current client target
// back to the layout they are sampled in.
func (e *frameEncoder) restTargetTextures() {
	if e.target == nil {
		return
	}
	for _, h := range e.target.textures {
		if tex, ok := e.renderer.textures[h]; ok {
			tex.Image.TransitionLayout(e.cb.Handle, textureRestingLayout)
		}
	}
	e.target = nil
}

// finish ends the frame with the swapchain image ready for presentation.
// A frame without any swapchain queue still clears the image.
func (e *frameEncoder) finish() error {
	sc := e.renderer.context.Swapchain
	if !e.swapchainUsed {
		rp, err := e.renderer.renderpass(renderpassKey{shape: sc.Shape(), clear: true})
		if err != nil {
			return err
		}
		rp.RenderpassBegin(e.cb, sc.Framebuffers[e.image].Handle, sc.Extent.Width, sc.Extent.Height)
		rp.RenderpassEnd(e.cb)
		e.swapchainUsed = true
	}
	rng := vk.ImageSubresourceRange{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LevelCount: 1,
		LayerCount: 1,
	}
	layoutBarrier(e.cb.Handle, sc.Images[e.image], rng, vk.ImageLayoutColorAttachmentOptimal, vk.ImageLayoutPresentSrc)
	return nil
}

func (e *frameEncoder) SetScissor(s metadata.Scissor) {
	vk.CmdSetScissor(e.cb.Handle, 0, 1, []vk.Rect2D{scissorRect(s, e.width, e.height)})
}

func (e *frameEncoder) SetCull(c metadata.CullState) {
	e.state.Cull = c
}

func (e *frameEncoder) SetPolygonMode(m metadata.PolygonMode) {
	e.state.PolygonMode = m
}

func (e *frameEncoder) SetDepth(d metadata.DepthState) {
	e.state.Depth = d
}

func (e *frameEncoder) SetColorWrite(enabled bool) {
	e.state.ColorWrite = enabled
}

func (e *frameEncoder) SetBlend(b metadata.BlendState) {
	e.state.Blend = b
}

func (e *frameEncoder) BindProgram(p metadata.ProgramHandle) bool {
	program, ok := e.renderer.programs[p]
	if !ok || !program.Usable() {
		return false
	}
	e.program = program
	return true
}

func (e *frameEncoder) BindVertexBuffer(vb metadata.VertexBufferHandle, offset uint32, decl metadata.VertexDecl) {
	e.decl = decl
	e.vertexMissing = false
	if !vb.IsValid() {
		return
	}
	buf, ok := e.renderer.vertexBuffers[vb]
	if !ok {
		e.vertexMissing = true
		return
	}
	vk.CmdBindVertexBuffers(e.cb.Handle, 0, 1,
		[]vk.Buffer{buf.Handle},
		[]vk.DeviceSize{vk.DeviceSize(buf.RegionOffset(e.slot) + uint64(offset))})
}

func (e *frameEncoder) BindIndexBuffer(ib metadata.IndexBufferHandle, offset uint32, typ metadata.IndexType) {
	e.indexMissing = false
	if !ib.IsValid() {
		return
	}
	buf, ok := e.renderer.indexBuffers[ib]
	if !ok {
		e.indexMissing = true
		return
	}
	vk.CmdBindIndexBuffer(e.cb.Handle, buf.Handle, vk.DeviceSize(buf.RegionOffset(e.slot)+uint64(offset)), indexType(typ))
}

func (e *frameEncoder) BindTextures(bindings []metadata.TextureBinding) {
	e.textures = bindings
}

func (e *frameEncoder) Draw(item *metadata.RenderItem) error {
	r := e.renderer
	if e.program == nil {
		return fmt.Errorf("no program bound")
	}
	if e.vertexMissing {
		return fmt.Errorf("%w: %s", core.ErrInvalidHandle, item.VertexBuffer)
	}
	if e.indexMissing {
		return fmt.Errorf("%w: %s", core.ErrInvalidHandle, item.IndexBuffer)
	}

	rp, err := r.renderpass(renderpassKey{shape: e.shape})
	if err != nil {
		return err
	}
	key := pipelineKey{
		program: item.Program,
		decl:    e.decl.Hash(),
		pass:    e.shape,
		state:   newPipelineState(e.state),
	}
	pipeline, err := r.pipelines.GetOrCreate(key, func(pipelineKey) (*VulkanPipeline, error) {
		return NewGraphicsPipeline(r.context, &VulkanPipelineConfig{
			Renderpass:       rp,
			Program:          e.program,
			Decl:             e.decl,
			State:            key.state,
			FillModeNonSolid: r.context.Device.Features.FillModeNonSolid == vk.True,
		})
	})
	if err != nil {
		return fmt.Errorf("pipeline for %s: %w", item.Program, err)
	}
	if pipeline.Handle != e.pipeline {
		pipeline.Bind(e.cb, vk.PipelineBindPointGraphics)
		e.pipeline = pipeline.Handle
	}

	layout := &e.program.Layout
	offsets, err := packUniforms(layout, item.Uniforms, r.scratchArena, r.context.Device.MinUniformBufferOffsetAlignment, unknownUniformWarner(item.Program))
	if err != nil {
		return err
	}
	base := uint32(r.scratch.RegionOffset(e.slot))
	for i := range offsets {
		offsets[i] += base
	}

	if data := packPushConstants(layout.PushConstants, item.Uniforms); data != nil {
		vk.CmdPushConstants(e.cb.Handle, e.program.PipelineLayout, shaderStageFlags(layout.PushConstants.Stages), 0, uint32(len(data)), unsafe.Pointer(&data[0]))
	}

	if len(layout.UniformBuffers)+len(layout.Samplers) > 0 {
		entry, err := r.descriptorEntry(item.Program, e.program, e.textures)
		if err != nil {
			return err
		}
		vk.CmdBindDescriptorSets(e.cb.Handle, vk.PipelineBindPointGraphics, e.program.PipelineLayout, 0, 1,
			[]vk.DescriptorSet{entry.sets[e.image]}, uint32(len(offsets)), offsets)
	}

	if item.IsIndexed() {
		vk.CmdDrawIndexed(e.cb.Handle, item.VertexCount(), 1, 0, 0, 0)
	} else {
		vk.CmdDraw(e.cb.Handle, item.VertexCount(), 1, 0, 0)
	}
	return nil
}
