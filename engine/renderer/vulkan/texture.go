package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief A client texture. Framebuffer textures rest in ShaderReadOnly
 * between the queues that render into them.
 */
type VulkanTexture struct {
	Image  *VulkanImage
	Info   metadata.TextureInfo
	format textureFormat
}

// textureUsage returns the image usage and the mip count of a texture.
func textureUsage(info metadata.TextureInfo) (vk.ImageUsageFlags, uint32) {
	usage := vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit
	mips := info.MipLevels()
	switch {
	case info.Format.IsDepth() || info.Format.HasStencil():
		usage |= vk.ImageUsageDepthStencilAttachmentBit
		mips = 1
	case info.Framebuffer:
		usage |= vk.ImageUsageColorAttachmentBit
		mips = 1
	}
	if mips > 1 {
		usage |= vk.ImageUsageTransferSrcBit
	}
	return vk.ImageUsageFlags(usage), max(mips, 1)
}

// attachmentLayout is the layout a texture takes while bound as a render
// target.
func attachmentLayout(f metadata.TextureFormat) vk.ImageLayout {
	if f.IsDepth() || f.HasStencil() {
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	}
	return vk.ImageLayoutColorAttachmentOptimal
}

func TextureCreate(context *VulkanContext, info metadata.TextureInfo, data []byte) (*VulkanTexture, error) {
	tf, ok := lookupTextureFormat(info.Format)
	if !ok {
		return nil, fmt.Errorf("unknown texture format %s", info.Format)
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("texture size %dx%d", info.Width, info.Height)
	}
	usage, mips := textureUsage(info)

	features := vk.FormatFeatureSampledImageBit
	if usage&vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit) != 0 {
		features |= vk.FormatFeatureColorAttachmentBit
	}
	if usage&vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit) != 0 {
		features = vk.FormatFeatureDepthStencilAttachmentBit
	}
	if !DeviceSupportsFormat(context.Device, tf.format, features) {
		return nil, fmt.Errorf("format %s is not supported for this usage by the device", info.Format)
	}

	// Attachment views must not be swizzled.
	swizzle := tf.swizzle
	if info.Framebuffer || info.Format.IsDepth() {
		swizzle = identitySwizzle()
	}
	image, err := ImageCreate(context, imageCreateInfo{
		Width:     info.Width,
		Height:    info.Height,
		Format:    tf.format,
		MipLevels: mips,
		Usage:     usage,
		Aspect:    formatAspect(info.Format),
		Swizzle:   swizzle,
	})
	if err != nil {
		return nil, err
	}
	tex := &VulkanTexture{Image: image, Info: info, format: tf}

	if len(data) > 0 {
		err = tex.upload(context, 0, 0, info.Width, info.Height, data)
	} else {
		err = immediate(context, func(cmd vk.CommandBuffer) {
			tex.Image.TransitionLayout(cmd, textureRestingLayout)
		})
	}
	if err != nil {
		tex.Destroy(context)
		return nil, err
	}
	core.LogDebug("Texture created: %dx%d %s, %d levels.", info.Width, info.Height, info.Format, mips)
	return tex, nil
}

// Update replaces a region of the base level and regenerates the mip chain.
func (t *VulkanTexture) Update(context *VulkanContext, x, y, width, height uint32, data []byte) error {
	if x+width > t.Info.Width || y+height > t.Info.Height {
		return fmt.Errorf("region %dx%d at (%d,%d) is outside the %dx%d texture", width, height, x, y, t.Info.Width, t.Info.Height)
	}
	return t.upload(context, x, y, width, height, data)
}

func (t *VulkanTexture) upload(context *VulkanContext, x, y, width, height uint32, data []byte) error {
	want := width * height * t.Info.Format.BytesPerPixel()
	if uint32(len(data)) < want {
		return fmt.Errorf("texture data has %d bytes, %d needed", len(data), want)
	}
	data = data[:want]
	if t.format.expandRGB {
		signed := t.Info.Format == metadata.TextureFormatRGB8S || t.Info.Format == metadata.TextureFormatRGB8I
		data = expandRGB(data, signed)
	}

	staging, err := BufferCreate(context, uint64(len(data)), 1, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit), true)
	if err != nil {
		return err
	}
	defer staging.BufferDestroy(context)
	if err := staging.Write(0, 0, data); err != nil {
		return err
	}

	return immediate(context, func(cmd vk.CommandBuffer) {
		// Levels above 0 are regenerated from level 0 below.
		t.Image.TransitionLayout(cmd, vk.ImageLayoutTransferDstOptimal)
		t.Image.CopyFromBuffer(cmd, staging.Handle, x, y, width, height)
		if t.Image.MipLevels > 1 {
			t.Image.GenerateMipmaps(cmd)
			return
		}
		t.Image.TransitionLayout(cmd, textureRestingLayout)
	})
}

func (t *VulkanTexture) Destroy(context *VulkanContext) {
	if t.Image != nil {
		t.Image.ImageDestroy(context)
		t.Image = nil
	}
}

func samplerAddressMode(w metadata.WrapMode) vk.SamplerAddressMode {
	switch w {
	case metadata.WrapMirror:
		return vk.SamplerAddressModeMirroredRepeat
	case metadata.WrapClamp:
		return vk.SamplerAddressModeClampToEdge
	}
	return vk.SamplerAddressModeRepeat
}

func samplerFilter(f metadata.FilterMode) vk.Filter {
	if f == metadata.FilterPoint {
		return vk.FilterNearest
	}
	return vk.FilterLinear
}

func samplerMipmapMode(f metadata.FilterMode) vk.SamplerMipmapMode {
	if f == metadata.FilterPoint {
		return vk.SamplerMipmapModeNearest
	}
	return vk.SamplerMipmapModeLinear
}

// samplerCreateInfo translates a sampler description, clamping the
// anisotropy to what the device allows.
func samplerCreateInfo(info metadata.SamplerInfo, maxAnisotropy float32) vk.SamplerCreateInfo {
	anisotropy := min(info.MaxAnisotropy, maxAnisotropy)
	createInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               samplerFilter(info.MagFilter()),
		MinFilter:               samplerFilter(info.MinFilter()),
		MipmapMode:              samplerMipmapMode(info.MipFilter()),
		AddressModeU:            samplerAddressMode(info.WrapU()),
		AddressModeV:            samplerAddressMode(info.WrapV()),
		AddressModeW:            samplerAddressMode(info.WrapW()),
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MinLod:                  0,
		MaxLod:                  lodClampNone,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
	}
	if anisotropy > 1 {
		createInfo.AnisotropyEnable = vk.True
		createInfo.MaxAnisotropy = anisotropy
	}
	return createInfo
}

func SamplerCreate(context *VulkanContext, info metadata.SamplerInfo) (vk.Sampler, error) {
	createInfo := samplerCreateInfo(info, context.Device.MaxSamplerAnisotropy)
	var sampler vk.Sampler
	if res := vk.CreateSampler(context.Device.LogicalDevice, &createInfo, context.Allocator, &sampler); res != vk.Success {
		return nil, resultError("vkCreateSampler", res)
	}
	return sampler, nil
}
