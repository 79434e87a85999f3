package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
)

/**
 * @brief The attachment formats of a render pass. Two passes with the same
 * shape are compatible, so a pipeline built against one works with both.
 */
type passShape struct {
	colors [maxColorAttachments]vk.Format
	count  uint8
	depth  vk.Format
}

func newPassShape(colors []vk.Format) passShape {
	var s passShape
	s.count = uint8(copy(s.colors[:], colors))
	s.depth = framebufferDepthFormat
	return s
}

func (s passShape) colorFormats() []vk.Format {
	return s.colors[:s.count]
}

/**
 * @brief A render pass over one shape. The clear variant discards previous
 * content and clears colour to black and depth to 1; the load variant keeps
 * it. Colour attachments start and end in ColorAttachmentOptimal.
 */
type renderpassKey struct {
	shape passShape
	clear bool
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	Shape  passShape
	Clear  bool
}

func attachmentDescriptions(key renderpassKey) []vk.AttachmentDescription {
	colorLoad := vk.AttachmentLoadOpLoad
	colorInitial := vk.ImageLayoutColorAttachmentOptimal
	depthLoad := vk.AttachmentLoadOpLoad
	depthInitial := vk.ImageLayoutDepthStencilAttachmentOptimal
	if key.clear {
		colorLoad = vk.AttachmentLoadOpClear
		colorInitial = vk.ImageLayoutUndefined
		depthLoad = vk.AttachmentLoadOpClear
		depthInitial = vk.ImageLayoutUndefined
	}

	descs := make([]vk.AttachmentDescription, 0, key.shape.count+1)
	for _, format := range key.shape.colorFormats() {
		descs = append(descs, vk.AttachmentDescription{
			Format:         format,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         colorLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  colorInitial,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
	}
	descs = append(descs, vk.AttachmentDescription{
		Format:         key.shape.depth,
		Samples:        vk.SampleCount1Bit,
		LoadOp:         depthLoad,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  depthInitial,
		FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
	})
	return descs
}

func RenderpassCreate(context *VulkanContext, key renderpassKey) (*VulkanRenderpass, error) {
	if key.shape.count == 0 {
		return nil, fmt.Errorf("render pass needs at least one colour attachment")
	}
	descs := attachmentDescriptions(key)

	colorRefs := make([]vk.AttachmentReference, key.shape.count)
	for i := range colorRefs {
		colorRefs[i] = vk.AttachmentReference{
			Attachment: uint32(i),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}
	}
	depthRef := vk.AttachmentReference{
		Attachment: uint32(key.shape.count),
		Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    uint32(len(colorRefs)),
		PColorAttachments:       colorRefs,
		PDepthStencilAttachment: &depthRef,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass: vk.SubpassExternal,
		DstSubpass: 0,
		SrcStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
			vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		SrcAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		DstStageMask: vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit |
			vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit |
			vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(descs)),
		PAttachments:    descs,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	rp := &VulkanRenderpass{Shape: key.shape, Clear: key.clear}
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &createInfo, context.Allocator, &rp.Handle); res != vk.Success {
		return nil, resultError("vkCreateRenderPass", res)
	}
	return rp, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = vk.NullRenderPass
	}
}

func (vr *VulkanRenderpass) RenderpassBegin(commandBuffer *VulkanCommandBuffer, frameBuffer vk.Framebuffer, width, height uint32) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: frameBuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
	}
	if vr.Clear {
		clearValues := make([]vk.ClearValue, vr.Shape.count+1)
		for i := 0; i < int(vr.Shape.count); i++ {
			clearValues[i].SetColor([]float32{0, 0, 0, 1})
		}
		clearValues[vr.Shape.count].SetDepthStencil(1.0, 0)
		beginInfo.ClearValueCount = uint32(len(clearValues))
		beginInfo.PClearValues = clearValues
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) RenderpassEnd(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}
