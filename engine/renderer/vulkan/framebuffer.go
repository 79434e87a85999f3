package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Width       uint32
	Height      uint32
	Attachments []vk.ImageView
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	fb := &VulkanFramebuffer{
		Width:       width,
		Height:      height,
		Attachments: append([]vk.ImageView(nil), attachments...),
	}

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(fb.Attachments)),
		PAttachments:    fb.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &createInfo, context.Allocator, &fb.Handle); res != vk.Success {
		return nil, resultError("vkCreateFramebuffer", res)
	}
	return fb, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Attachments = nil
}

/**
 * @brief A client render target: colour textures owned by the texture
 * table plus a depth image owned by the target itself.
 */
type renderTarget struct {
	framebuffer *VulkanFramebuffer
	depth       *VulkanImage
	shape       passShape
	textures    []metadata.TextureHandle
}

func (rt *renderTarget) destroy(context *VulkanContext) {
	if rt.framebuffer != nil {
		rt.framebuffer.Destroy(context)
	}
	if rt.depth != nil {
		rt.depth.ImageDestroy(context)
	}
}

func (rt *renderTarget) references(tex metadata.TextureHandle) bool {
	for _, t := range rt.textures {
		if t == tex {
			return true
		}
	}
	return false
}
