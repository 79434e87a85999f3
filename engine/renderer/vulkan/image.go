package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type VulkanImage struct {
	Handle    vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	Width     uint32
	Height    uint32
	Format    vk.Format
	MipLevels uint32
	Aspect    vk.ImageAspectFlags
	// Layout every level is currently in, tracked across command buffers.
	Layout vk.ImageLayout
}

type imageCreateInfo struct {
	Width     uint32
	Height    uint32
	Format    vk.Format
	MipLevels uint32
	Usage     vk.ImageUsageFlags
	Aspect    vk.ImageAspectFlags
	Swizzle   vk.ComponentMapping
}

func identitySwizzle() vk.ComponentMapping {
	return vk.ComponentMapping{
		R: vk.ComponentSwizzleIdentity,
		G: vk.ComponentSwizzleIdentity,
		B: vk.ComponentSwizzleIdentity,
		A: vk.ComponentSwizzleIdentity,
	}
}

func ImageCreate(context *VulkanContext, info imageCreateInfo) (*VulkanImage, error) {
	device := context.Device.LogicalDevice
	img := &VulkanImage{
		Width:     info.Width,
		Height:    info.Height,
		Format:    info.Format,
		MipLevels: max(info.MipLevels, 1),
		Aspect:    info.Aspect,
		Layout:    vk.ImageLayoutUndefined,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    info.Format,
		Extent: vk.Extent3D{
			Width:  info.Width,
			Height: info.Height,
			Depth:  1,
		},
		MipLevels:     img.MipLevels,
		ArrayLayers:   1,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         info.Usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if res := vk.CreateImage(device, &imageCreateInfo, context.Allocator, &img.Handle); res != vk.Success {
		return nil, resultError("vkCreateImage", res)
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, img.Handle, &req)
	req.Deref()

	memory, err := context.allocateMemory(req, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		return nil, err
	}
	img.Memory = memory
	if res := vk.BindImageMemory(device, img.Handle, img.Memory, 0); res != vk.Success {
		img.ImageDestroy(context)
		return nil, resultError("vkBindImageMemory", res)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:      vk.StructureTypeImageViewCreateInfo,
		Image:      img.Handle,
		ViewType:   vk.ImageViewType2d,
		Format:     info.Format,
		Components: info.Swizzle,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     info.Aspect,
			BaseMipLevel:   0,
			LevelCount:     img.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	if res := vk.CreateImageView(device, &viewInfo, context.Allocator, &img.View); res != vk.Success {
		img.ImageDestroy(context)
		return nil, resultError("vkCreateImageView", res)
	}
	return img, nil
}

func (img *VulkanImage) ImageDestroy(context *VulkanContext) {
	device := context.Device.LogicalDevice
	if img.View != vk.NullImageView {
		vk.DestroyImageView(device, img.View, context.Allocator)
		img.View = vk.NullImageView
	}
	if img.Memory != vk.NullDeviceMemory {
		vk.FreeMemory(device, img.Memory, context.Allocator)
		img.Memory = vk.NullDeviceMemory
	}
	if img.Handle != vk.NullImage {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		img.Handle = vk.NullImage
	}
}

func (img *VulkanImage) subresourceRange(baseLevel, levels uint32) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     img.Aspect,
		BaseMipLevel:   baseLevel,
		LevelCount:     levels,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

// layoutSync returns the access mask and pipeline stage that produce or
// consume an image in layout.
func layoutSync(layout vk.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch layout {
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutTransferSrcOptimal:
		return vk.AccessFlags(vk.AccessTransferReadBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	case vk.ImageLayoutPresentSrc:
		return 0, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
}

func layoutBarrier(cmd vk.CommandBuffer, image vk.Image, rng vk.ImageSubresourceRange, from, to vk.ImageLayout) {
	srcAccess, srcStage := layoutSync(from)
	dstAccess, dstStage := layoutSync(to)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange:    rng,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
	}
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

// TransitionLayout moves every level of the image to layout.
func (img *VulkanImage) TransitionLayout(cmd vk.CommandBuffer, layout vk.ImageLayout) {
	if img.Layout == layout {
		return
	}
	layoutBarrier(cmd, img.Handle, img.subresourceRange(0, img.MipLevels), img.Layout, layout)
	img.Layout = layout
}

// CopyFromBuffer copies a tightly packed region into level 0. The image
// must be in TransferDstOptimal.
func (img *VulkanImage) CopyFromBuffer(cmd vk.CommandBuffer, buffer vk.Buffer, x, y, width, height uint32) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     img.Aspect,
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: int32(x), Y: int32(y), Z: 0},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cmd, buffer, img.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

// GenerateMipmaps fills levels 1..n by blitting each level from the one
// above. Level 0 must be in TransferDstOptimal; every level ends up in
// ShaderReadOnlyOptimal.
func (img *VulkanImage) GenerateMipmaps(cmd vk.CommandBuffer) {
	width, height := int32(img.Width), int32(img.Height)
	for level := uint32(1); level < img.MipLevels; level++ {
		layoutBarrier(cmd, img.Handle, img.subresourceRange(level-1, 1),
			vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal)
		layoutBarrier(cmd, img.Handle, img.subresourceRange(level, 1),
			vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)

		nextWidth, nextHeight := max(width/2, 1), max(height/2, 1)
		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask: img.Aspect,
				MipLevel:   level - 1,
				LayerCount: 1,
			},
			SrcOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: width, Y: height, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask: img.Aspect,
				MipLevel:   level,
				LayerCount: 1,
			},
			DstOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: nextWidth, Y: nextHeight, Z: 1}},
		}
		vk.CmdBlitImage(cmd,
			img.Handle, vk.ImageLayoutTransferSrcOptimal,
			img.Handle, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)

		layoutBarrier(cmd, img.Handle, img.subresourceRange(level-1, 1),
			vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
		width, height = nextWidth, nextHeight
	}
	layoutBarrier(cmd, img.Handle, img.subresourceRange(img.MipLevels-1, 1),
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	img.Layout = vk.ImageLayoutShaderReadOnlyOptimal
}

/** @brief Native representation of a client texture format. */
type textureFormat struct {
	format vk.Format
	// expandRGB marks 3 byte formats uploaded as 4 byte ones.
	expandRGB bool
	swizzle   vk.ComponentMapping
}

func swizzled(format vk.Format, r, g, b, a vk.ComponentSwizzle) textureFormat {
	return textureFormat{format: format, swizzle: vk.ComponentMapping{R: r, G: g, B: b, A: a}}
}

func plain(format vk.Format) textureFormat {
	return textureFormat{format: format, swizzle: identitySwizzle()}
}

func expanded(format vk.Format) textureFormat {
	return textureFormat{format: format, expandRGB: true, swizzle: identitySwizzle()}
}

var textureFormats = [metadata.TextureFormatCount]textureFormat{
	metadata.TextureFormatUnknown: {format: vk.FormatUndefined},
	metadata.TextureFormatA8: swizzled(vk.FormatR8Unorm,
		vk.ComponentSwizzleZero, vk.ComponentSwizzleZero, vk.ComponentSwizzleZero, vk.ComponentSwizzleR),
	metadata.TextureFormatR8:       plain(vk.FormatR8Unorm),
	metadata.TextureFormatR8I:      plain(vk.FormatR8Sint),
	metadata.TextureFormatR8U:      plain(vk.FormatR8Uint),
	metadata.TextureFormatR8S:      plain(vk.FormatR8Snorm),
	metadata.TextureFormatR16:      plain(vk.FormatR16Unorm),
	metadata.TextureFormatR16I:     plain(vk.FormatR16Sint),
	metadata.TextureFormatR16U:     plain(vk.FormatR16Uint),
	metadata.TextureFormatR16F:     plain(vk.FormatR16Sfloat),
	metadata.TextureFormatR16S:     plain(vk.FormatR16Snorm),
	metadata.TextureFormatR32I:     plain(vk.FormatR32Sint),
	metadata.TextureFormatR32U:     plain(vk.FormatR32Uint),
	metadata.TextureFormatR32F:     plain(vk.FormatR32Sfloat),
	metadata.TextureFormatRG8:      plain(vk.FormatR8g8Unorm),
	metadata.TextureFormatRG8I:     plain(vk.FormatR8g8Sint),
	metadata.TextureFormatRG8U:     plain(vk.FormatR8g8Uint),
	metadata.TextureFormatRG8S:     plain(vk.FormatR8g8Snorm),
	metadata.TextureFormatRG16:     plain(vk.FormatR16g16Unorm),
	metadata.TextureFormatRG16I:    plain(vk.FormatR16g16Sint),
	metadata.TextureFormatRG16U:    plain(vk.FormatR16g16Uint),
	metadata.TextureFormatRG16F:    plain(vk.FormatR16g16Sfloat),
	metadata.TextureFormatRG16S:    plain(vk.FormatR16g16Snorm),
	metadata.TextureFormatRG32I:    plain(vk.FormatR32g32Sint),
	metadata.TextureFormatRG32U:    plain(vk.FormatR32g32Uint),
	metadata.TextureFormatRG32F:    plain(vk.FormatR32g32Sfloat),
	metadata.TextureFormatRGB8:     expanded(vk.FormatR8g8b8a8Unorm),
	metadata.TextureFormatRGB8I:    expanded(vk.FormatR8g8b8a8Sint),
	metadata.TextureFormatRGB8U:    expanded(vk.FormatR8g8b8a8Uint),
	metadata.TextureFormatRGB8S:    expanded(vk.FormatR8g8b8a8Snorm),
	metadata.TextureFormatBGRA8:    plain(vk.FormatB8g8r8a8Unorm),
	metadata.TextureFormatRGBA8:    plain(vk.FormatR8g8b8a8Unorm),
	metadata.TextureFormatRGBA8I:   plain(vk.FormatR8g8b8a8Sint),
	metadata.TextureFormatRGBA8U:   plain(vk.FormatR8g8b8a8Uint),
	metadata.TextureFormatRGBA8S:   plain(vk.FormatR8g8b8a8Snorm),
	metadata.TextureFormatRGBA16:   plain(vk.FormatR16g16b16a16Unorm),
	metadata.TextureFormatRGBA16I:  plain(vk.FormatR16g16b16a16Sint),
	metadata.TextureFormatRGBA16U:  plain(vk.FormatR16g16b16a16Uint),
	metadata.TextureFormatRGBA16F:  plain(vk.FormatR16g16b16a16Sfloat),
	metadata.TextureFormatRGBA16S:  plain(vk.FormatR16g16b16a16Snorm),
	metadata.TextureFormatRGBA32I:  plain(vk.FormatR32g32b32a32Sint),
	metadata.TextureFormatRGBA32U:  plain(vk.FormatR32g32b32a32Uint),
	metadata.TextureFormatRGBA32F:  plain(vk.FormatR32g32b32a32Sfloat),
	metadata.TextureFormatR5G6B5:   plain(vk.FormatR5g6b5UnormPack16),
	metadata.TextureFormatRGBA4:    plain(vk.FormatR4g4b4a4UnormPack16),
	metadata.TextureFormatRGB5A1:   plain(vk.FormatR5g5b5a1UnormPack16),
	metadata.TextureFormatRGB10A2:  plain(vk.FormatA2b10g10r10UnormPack32),
	metadata.TextureFormatRG11B10F: plain(vk.FormatB10g11r11UfloatPack32),
	metadata.TextureFormatD16:      plain(vk.FormatD16Unorm),
	metadata.TextureFormatD24:      plain(vk.FormatX8D24UnormPack32),
	metadata.TextureFormatD24S8:    plain(vk.FormatD24UnormS8Uint),
	metadata.TextureFormatD32:      plain(vk.FormatD32Sfloat),
	metadata.TextureFormatD16F:     plain(vk.FormatD32Sfloat),
	metadata.TextureFormatD24F:     plain(vk.FormatD32Sfloat),
	metadata.TextureFormatD32F:     plain(vk.FormatD32Sfloat),
	metadata.TextureFormatD0S8:     plain(vk.FormatS8Uint),
}

// lookupTextureFormat returns the native format for f, false for unknown
// formats.
func lookupTextureFormat(f metadata.TextureFormat) (textureFormat, bool) {
	if !f.IsValid() {
		return textureFormat{}, false
	}
	return textureFormats[f], true
}

// uploadBytesPerPixel is the texel size once the data is in GPU layout.
func (tf textureFormat) uploadBytesPerPixel(f metadata.TextureFormat) uint32 {
	if tf.expandRGB {
		return 4
	}
	return f.BytesPerPixel()
}

func formatAspect(f metadata.TextureFormat) vk.ImageAspectFlags {
	var aspect vk.ImageAspectFlagBits
	if f.IsDepth() {
		aspect |= vk.ImageAspectDepthBit
	}
	if f.HasStencil() {
		aspect |= vk.ImageAspectStencilBit
	}
	if aspect == 0 {
		aspect = vk.ImageAspectColorBit
	}
	return vk.ImageAspectFlags(aspect)
}

// expandRGB pads every 3 byte texel with an opaque alpha byte. The alpha
// value follows the channel encoding: 0xFF for unsigned, 0x7F for signed.
func expandRGB(data []byte, signed bool) []byte {
	alpha := byte(0xFF)
	if signed {
		alpha = 0x7F
	}
	texels := len(data) / 3
	out := make([]byte, texels*4)
	for i := 0; i < texels; i++ {
		copy(out[i*4:i*4+3], data[i*3:i*3+3])
		out[i*4+3] = alpha
	}
	return out
}
