package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSamplerInfoPacking(t *testing.T) {
	s := NewSamplerInfo(WrapClamp, WrapMirror, WrapRepeat, FilterPoint, FilterLinear, FilterPoint)

	assert.Equal(t, WrapClamp, s.WrapU())
	assert.Equal(t, WrapMirror, s.WrapV())
	assert.Equal(t, WrapRepeat, s.WrapW())
	assert.Equal(t, FilterPoint, s.MinFilter())
	assert.Equal(t, FilterLinear, s.MagFilter())
	assert.Equal(t, FilterPoint, s.MipFilter())
}

func TestSamplerInfoEquality(t *testing.T) {
	a := NewSamplerInfo(WrapClamp, WrapClamp, WrapClamp, FilterLinear, FilterLinear, FilterLinear)
	b := NewSamplerInfo(WrapClamp, WrapClamp, WrapClamp, FilterLinear, FilterLinear, FilterLinear)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, a.WithAnisotropy(8))
	assert.NotEqual(t, a, DefaultSamplerInfo())

	cache := map[SamplerInfo]int{a: 1}
	_, hit := cache[b]
	assert.True(t, hit)
}

func TestTextureFormats(t *testing.T) {
	assert.Equal(t, uint32(4), TextureFormatRGBA8.BytesPerPixel())
	assert.Equal(t, uint32(16), TextureFormatRGBA32F.BytesPerPixel())
	assert.True(t, TextureFormatD24S8.IsDepth())
	assert.True(t, TextureFormatD24S8.HasStencil())
	assert.False(t, TextureFormatD0S8.IsDepth())
	assert.True(t, TextureFormatD0S8.IsDepthStencil())
	assert.False(t, TextureFormatRGBA8.IsDepthStencil())
	assert.Equal(t, "RG11B10F", TextureFormatRG11B10F.String())
	assert.False(t, TextureFormatUnknown.IsValid())

	for f := TextureFormatA8; f < TextureFormatCount; f++ {
		assert.NotZero(t, f.BytesPerPixel(), f.String())
	}
}

func TestMipLevels(t *testing.T) {
	assert.Equal(t, uint32(1), TextureInfo{Width: 256, Height: 256}.MipLevels())
	assert.Equal(t, uint32(9), TextureInfo{Width: 256, Height: 128, GenerateMipmaps: true}.MipLevels())
	assert.Equal(t, uint32(1), TextureInfo{Width: 1, Height: 1, GenerateMipmaps: true}.MipLevels())
}
