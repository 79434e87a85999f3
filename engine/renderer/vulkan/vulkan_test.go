package vulkan

import (
	"encoding/binary"
	stdmath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/spirv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormatTable(t *testing.T) {
	for f := metadata.TextureFormatUnknown + 1; f < metadata.TextureFormatCount; f++ {
		tf, ok := lookupTextureFormat(f)
		require.True(t, ok, f.String())
		assert.NotEqual(t, vk.FormatUndefined, tf.format, "%s has no native format", f)
	}

	_, ok := lookupTextureFormat(metadata.TextureFormatUnknown)
	assert.False(t, ok)
	_, ok = lookupTextureFormat(metadata.TextureFormatCount)
	assert.False(t, ok)

	a8, _ := lookupTextureFormat(metadata.TextureFormatA8)
	assert.Equal(t, vk.FormatR8Unorm, a8.format)
	assert.Equal(t, vk.ComponentSwizzleZero, a8.swizzle.R)
	assert.Equal(t, vk.ComponentSwizzleR, a8.swizzle.A)

	rgb8, _ := lookupTextureFormat(metadata.TextureFormatRGB8)
	assert.True(t, rgb8.expandRGB)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, rgb8.format)
	assert.Equal(t, uint32(4), rgb8.uploadBytesPerPixel(metadata.TextureFormatRGB8))

	rgba8, _ := lookupTextureFormat(metadata.TextureFormatRGBA8)
	assert.False(t, rgba8.expandRGB)
	assert.Equal(t, uint32(4), rgba8.uploadBytesPerPixel(metadata.TextureFormatRGBA8))

	d24s8, _ := lookupTextureFormat(metadata.TextureFormatD24S8)
	assert.Equal(t, vk.FormatD24UnormS8Uint, d24s8.format)
	d16f, _ := lookupTextureFormat(metadata.TextureFormatD16F)
	assert.Equal(t, vk.FormatD32Sfloat, d16f.format)
}

func TestFormatAspect(t *testing.T) {
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), formatAspect(metadata.TextureFormatRGBA8))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), formatAspect(metadata.TextureFormatD32))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit), formatAspect(metadata.TextureFormatD24S8))
}

func TestExpandRGB(t *testing.T) {
	in := []byte{1, 2, 3, 4, 5, 6}
	assert.Equal(t, []byte{1, 2, 3, 0xFF, 4, 5, 6, 0xFF}, expandRGB(in, false))
	assert.Equal(t, []byte{1, 2, 3, 0x7F, 4, 5, 6, 0x7F}, expandRGB(in, true))

	// A trailing partial texel is dropped.
	assert.Len(t, expandRGB([]byte{1, 2, 3, 4}, false), 4)
}

func TestLayoutSync(t *testing.T) {
	access, stage := layoutSync(vk.ImageLayoutTransferDstOptimal)
	assert.Equal(t, vk.AccessFlags(vk.AccessTransferWriteBit), access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), stage)

	access, stage = layoutSync(vk.ImageLayoutShaderReadOnlyOptimal)
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderReadBit), access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit), stage)

	access, stage = layoutSync(vk.ImageLayoutPresentSrc)
	assert.Zero(t, access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit), stage)

	access, stage = layoutSync(vk.ImageLayoutUndefined)
	assert.Zero(t, access)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), stage)
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox, vk.PresentModeFifo}
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(all, true))
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(all, false))
	assert.Equal(t, vk.PresentModeImmediate, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate}, false))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, false))
}

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, preferred, chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSurfaceFormat([]vk.SurfaceFormat{other}))
	assert.Equal(t, preferred, chooseSurfaceFormat([]vk.SurfaceFormat{{Format: vk.FormatUndefined}}))
}

func TestPassShape(t *testing.T) {
	a := newPassShape([]vk.Format{vk.FormatB8g8r8a8Unorm})
	b := newPassShape([]vk.Format{vk.FormatB8g8r8a8Unorm})
	c := newPassShape([]vk.Format{vk.FormatR8g8b8a8Unorm, vk.FormatR16g16b16a16Sfloat})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, []vk.Format{vk.FormatR8g8b8a8Unorm, vk.FormatR16g16b16a16Sfloat}, c.colorFormats())

	clear := attachmentDescriptions(renderpassKey{shape: c, clear: true})
	require.Len(t, clear, 3)
	assert.Equal(t, vk.AttachmentLoadOpClear, clear[0].LoadOp)
	assert.Equal(t, vk.ImageLayoutUndefined, clear[0].InitialLayout)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, clear[1].FinalLayout)
	assert.Equal(t, framebufferDepthFormat, clear[2].Format)

	load := attachmentDescriptions(renderpassKey{shape: c})
	assert.Equal(t, vk.AttachmentLoadOpLoad, load[0].LoadOp)
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, load[0].InitialLayout)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, load[2].InitialLayout)
}

func TestPipelineStateNormalization(t *testing.T) {
	a := metadata.DefaultRenderState()
	a.Cull.Enabled = false
	a.Cull.Winding = metadata.WindingCW
	b := metadata.DefaultRenderState()
	b.Cull.Enabled = false
	assert.Equal(t, newPipelineState(a), newPipelineState(b), "winding is ignored without culling")

	c := metadata.DefaultRenderState()
	c.Blend.SrcRGB = metadata.BlendFuncSrcAlpha
	assert.Equal(t, newPipelineState(metadata.DefaultRenderState()), newPipelineState(c), "factors are ignored without blending")

	c.Blend.Enabled = true
	assert.NotEqual(t, newPipelineState(metadata.DefaultRenderState()), newPipelineState(c))
}

func TestVertexInput(t *testing.T) {
	decl := metadata.NewVertexDecl().
		Add(metadata.AttributePosition, 3, metadata.AttributeTypeFloat, false).
		Add(metadata.AttributeColor, 4, metadata.AttributeTypeUint8, true).
		Add(metadata.AttributeTexCoord0, 2, metadata.AttributeTypeFloat, false).
		End()
	layout := &metadata.ProgramLayout{Inputs: []metadata.StageInput{
		{Name: "a_position", Location: metadata.AttributePosition.Location()},
		{Name: "a_color", Location: metadata.AttributeColor.Location()},
	}}

	binding, attrs, err := vertexInputDescriptions(decl, layout)
	require.NoError(t, err)
	assert.Equal(t, uint32(24), binding.Stride)
	require.Len(t, attrs, 2, "unused texcoord is skipped")
	assert.Equal(t, vk.FormatR32g32b32Sfloat, attrs[0].Format)
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, attrs[1].Format)
	assert.Equal(t, uint32(12), attrs[1].Offset)

	layout.Inputs = append(layout.Inputs, metadata.StageInput{Name: "a_normal", Location: metadata.AttributeNormal.Location()})
	_, _, err = vertexInputDescriptions(decl, layout)
	assert.ErrorContains(t, err, "a_normal")

	format, err := attributeFormat(metadata.VertexElement{Attribute: metadata.AttributeColor, Count: 4, Type: metadata.AttributeTypeUint8})
	require.NoError(t, err)
	assert.Equal(t, vk.FormatR8g8b8a8Uint, format)
	_, err = attributeFormat(metadata.VertexElement{Attribute: metadata.AttributeColor, Count: 5, Type: metadata.AttributeTypeFloat})
	assert.Error(t, err)
}

func testLayout() *metadata.ProgramLayout {
	return &metadata.ProgramLayout{
		UniformBuffers: []metadata.UniformBufferInfo{
			{Name: "Frame", Binding: 0, Size: 64},
			{Name: "Object", Binding: 1, Size: 32},
		},
		Uniforms: map[string]metadata.UniformLocation{
			"u_viewProj": {Buffer: 0, Binding: 0, Offset: 0, Size: 64},
			"u_tint":     {Buffer: 1, Binding: 1, Offset: 16, Size: 16},
		},
		PushConstants: &metadata.PushConstantInfo{
			Name: "Push",
			Size: 16,
			Fields: []metadata.UniformField{
				{Name: "u_offset", Offset: 0, Size: 8},
				{Name: "u_scale", Offset: 8, Size: 4},
			},
		},
	}
}

func floatAt(b []byte, offset int) float32 {
	return stdmath.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}

func TestPackUniforms(t *testing.T) {
	layout := testLayout()
	arena := containers.NewLinearArena(1024)
	var unknown []string

	offsets, err := packUniforms(layout, map[string]metadata.UniformValue{
		"u_viewProj": metadata.UniformMat4(mgl32.Ident4()),
		"u_tint":     metadata.UniformVec4(mgl32.Vec4{0.25, 0.5, 0.75, 1}),
		"u_scale":    metadata.UniformFloat(2),
		"u_missing":  metadata.UniformFloat(1),
	}, arena, 256, func(name string) { unknown = append(unknown, name) })
	require.NoError(t, err)

	assert.Equal(t, []uint32{0, 256}, offsets)
	assert.Equal(t, []string{"u_missing"}, unknown, "push constants are not reported")

	frame := arena.Slice(offsets[0], 64)
	assert.Equal(t, float32(1), floatAt(frame, 0))
	assert.Equal(t, float32(0), floatAt(frame, 4))
	assert.Equal(t, float32(1), floatAt(frame, 20))

	object := arena.Slice(offsets[1], 32)
	assert.Equal(t, float32(0), floatAt(object, 0))
	assert.Equal(t, float32(0.25), floatAt(object, 16))
	assert.Equal(t, float32(1), floatAt(object, 28))
}

func TestPackUniformsExhausted(t *testing.T) {
	arena := containers.NewLinearArena(128)
	_, err := packUniforms(testLayout(), nil, arena, 256, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrScratchExhausted)
}

func TestPackPushConstants(t *testing.T) {
	pc := testLayout().PushConstants
	block := packPushConstants(pc, map[string]metadata.UniformValue{
		"u_offset":     metadata.UniformVec2(mgl32.Vec2{3, 4}),
		"Push.u_scale": metadata.UniformFloat(5),
	})
	require.Len(t, block, 16)
	assert.Equal(t, float32(3), floatAt(block, 0))
	assert.Equal(t, float32(4), floatAt(block, 4))
	assert.Equal(t, float32(5), floatAt(block, 8))
	assert.Equal(t, float32(0), floatAt(block, 12))

	assert.Nil(t, packPushConstants(nil, nil))
}

func TestEncodeBindingsOrder(t *testing.T) {
	alloc := metadata.NewHandleAllocators()
	t0, t1 := alloc.Textures.Next(), alloc.Textures.Next()
	linear := metadata.NewSamplerInfo(metadata.WrapRepeat, metadata.WrapRepeat, metadata.WrapRepeat,
		metadata.FilterLinear, metadata.FilterLinear, metadata.FilterLinear)

	a := []metadata.TextureBinding{{Location: 0, Texture: t0, Sampler: linear}, {Location: 1, Texture: t1}}
	b := []metadata.TextureBinding{{Location: 1, Texture: t1}, {Location: 0, Texture: t0, Sampler: linear}}
	assert.Equal(t, encodeBindings(a), encodeBindings(b))

	c := []metadata.TextureBinding{{Location: 0, Texture: t0}, {Location: 1, Texture: t1}}
	assert.NotEqual(t, encodeBindings(a), encodeBindings(c), "sampler state is part of the key")
	assert.Empty(t, encodeBindings(nil))
}

func TestSamplerSource(t *testing.T) {
	alloc := metadata.NewHandleAllocators()
	tex := alloc.Textures.Next()
	bindings := []metadata.TextureBinding{{Location: 2, Texture: tex}}

	b, ok := samplerSource(bindings, 3, spirv.SamplerOnly)
	require.True(t, ok)
	assert.Equal(t, tex, b.Texture)

	_, ok = samplerSource(bindings, 3, spirv.SamplerCombined)
	assert.False(t, ok)

	b, ok = samplerSource(bindings, 2, spirv.SamplerCombined)
	require.True(t, ok)
	assert.Equal(t, tex, b.Texture)
}

func TestTextureUsage(t *testing.T) {
	usage, mips := textureUsage(metadata.TextureInfo{Width: 256, Height: 64, Format: metadata.TextureFormatRGBA8, GenerateMipmaps: true})
	assert.Equal(t, uint32(9), mips)
	assert.NotZero(t, usage&vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit))

	usage, mips = textureUsage(metadata.TextureInfo{Width: 256, Height: 64, Format: metadata.TextureFormatRGBA8, Framebuffer: true, GenerateMipmaps: true})
	assert.Equal(t, uint32(1), mips)
	assert.NotZero(t, usage&vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit))

	usage, _ = textureUsage(metadata.TextureInfo{Width: 4, Height: 4, Format: metadata.TextureFormatD24S8})
	assert.NotZero(t, usage&vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit))
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, attachmentLayout(metadata.TextureFormatD24S8))
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, attachmentLayout(metadata.TextureFormatRGBA8))
}

func TestSamplerCreateInfo(t *testing.T) {
	info := metadata.NewSamplerInfo(metadata.WrapClamp, metadata.WrapMirror, metadata.WrapRepeat,
		metadata.FilterPoint, metadata.FilterLinear, metadata.FilterPoint)
	info.MaxAnisotropy = 16

	ci := samplerCreateInfo(info, 8)
	assert.Equal(t, vk.SamplerAddressModeClampToEdge, ci.AddressModeU)
	assert.Equal(t, vk.SamplerAddressModeMirroredRepeat, ci.AddressModeV)
	assert.Equal(t, vk.SamplerAddressModeRepeat, ci.AddressModeW)
	assert.Equal(t, vk.FilterNearest, ci.MinFilter)
	assert.Equal(t, vk.FilterLinear, ci.MagFilter)
	assert.Equal(t, vk.SamplerMipmapModeNearest, ci.MipmapMode)
	assert.Equal(t, vk.True, ci.AnisotropyEnable)
	assert.Equal(t, float32(8), ci.MaxAnisotropy)

	info.MaxAnisotropy = 0
	ci = samplerCreateInfo(info, 8)
	assert.Equal(t, vk.False, ci.AnisotropyEnable)
}

func TestGeometryBufferUsage(t *testing.T) {
	visible, regions := geometryBufferUsage(metadata.BufferUsageStream)
	assert.True(t, visible)
	assert.Equal(t, uint32(maxFramesInFlight), regions)

	visible, regions = geometryBufferUsage(metadata.BufferUsageStatic)
	assert.False(t, visible)
	assert.Equal(t, uint32(1), regions)
}

func TestScissorRect(t *testing.T) {
	full := scissorRect(metadata.Scissor{}, 800, 600)
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, full.Extent)

	r := scissorRect(metadata.Scissor{Enabled: true, X: 10, Y: 20, Width: 100, Height: 50}, 800, 600)
	assert.Equal(t, vk.Offset2D{X: 10, Y: 20}, r.Offset)
	assert.Equal(t, vk.Extent2D{Width: 100, Height: 50}, r.Extent)

	clipped := scissorRect(metadata.Scissor{Enabled: true, X: -10, Y: 580, Width: 100, Height: 50}, 800, 600)
	assert.Equal(t, vk.Offset2D{X: 0, Y: 580}, clipped.Offset)
	assert.Equal(t, vk.Extent2D{Width: 90, Height: 20}, clipped.Extent)

	outside := scissorRect(metadata.Scissor{Enabled: true, X: 900, Y: 0, Width: 10, Height: 10}, 800, 600)
	assert.Zero(t, outside.Extent.Width)
}

func TestIndexType(t *testing.T) {
	assert.Equal(t, vk.IndexTypeUint16, indexType(metadata.IndexTypeUint16))
	assert.Equal(t, vk.IndexTypeUint32, indexType(metadata.IndexTypeUint32))
}

func TestResultError(t *testing.T) {
	assert.NoError(t, resultError("vkQueueSubmit", vk.Success))
	assert.ErrorIs(t, resultError("vkQueueSubmit", vk.ErrorDeviceLost), core.ErrDeviceLost)

	err := resultError("vkCreateBuffer", vk.ErrorOutOfDeviceMemory)
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDeviceLost)
	assert.Contains(t, err.Error(), "vkCreateBuffer")
}

func TestVulkanSafeString(t *testing.T) {
	assert.Equal(t, "\x00", VulkanSafeString(""))
	assert.Equal(t, "VK_LAYER_KHRONOS_validation\x00", VulkanSafeString("VK_LAYER_KHRONOS_validation"))
	assert.Equal(t, "x\x00", VulkanSafeString("x\x00"))
}
