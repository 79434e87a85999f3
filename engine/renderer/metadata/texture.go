package metadata

import "fmt"

/** @brief Pixel formats exposed to clients. Backends own the native tables. */
type TextureFormat uint8

const (
	TextureFormatUnknown TextureFormat = iota
	TextureFormatA8
	TextureFormatR8
	TextureFormatR8I
	TextureFormatR8U
	TextureFormatR8S
	TextureFormatR16
	TextureFormatR16I
	TextureFormatR16U
	TextureFormatR16F
	TextureFormatR16S
	TextureFormatR32I
	TextureFormatR32U
	TextureFormatR32F
	TextureFormatRG8
	TextureFormatRG8I
	TextureFormatRG8U
	TextureFormatRG8S
	TextureFormatRG16
	TextureFormatRG16I
	TextureFormatRG16U
	TextureFormatRG16F
	TextureFormatRG16S
	TextureFormatRG32I
	TextureFormatRG32U
	TextureFormatRG32F
	TextureFormatRGB8
	TextureFormatRGB8I
	TextureFormatRGB8U
	TextureFormatRGB8S
	TextureFormatBGRA8
	TextureFormatRGBA8
	TextureFormatRGBA8I
	TextureFormatRGBA8U
	TextureFormatRGBA8S
	TextureFormatRGBA16
	TextureFormatRGBA16I
	TextureFormatRGBA16U
	TextureFormatRGBA16F
	TextureFormatRGBA16S
	TextureFormatRGBA32I
	TextureFormatRGBA32U
	TextureFormatRGBA32F
	TextureFormatR5G6B5
	TextureFormatRGBA4
	TextureFormatRGB5A1
	TextureFormatRGB10A2
	TextureFormatRG11B10F
	TextureFormatD16
	TextureFormatD24
	TextureFormatD24S8
	TextureFormatD32
	TextureFormatD16F
	TextureFormatD24F
	TextureFormatD32F
	TextureFormatD0S8
	TextureFormatCount
)

type formatInfo struct {
	name          string
	bytesPerPixel uint32
	depth         bool
	stencil       bool
}

var formatInfos = [TextureFormatCount]formatInfo{
	TextureFormatUnknown:  {"unknown", 0, false, false},
	TextureFormatA8:       {"A8", 1, false, false},
	TextureFormatR8:       {"R8", 1, false, false},
	TextureFormatR8I:      {"R8I", 1, false, false},
	TextureFormatR8U:      {"R8U", 1, false, false},
	TextureFormatR8S:      {"R8S", 1, false, false},
	TextureFormatR16:      {"R16", 2, false, false},
	TextureFormatR16I:     {"R16I", 2, false, false},
	TextureFormatR16U:     {"R16U", 2, false, false},
	TextureFormatR16F:     {"R16F", 2, false, false},
	TextureFormatR16S:     {"R16S", 2, false, false},
	TextureFormatR32I:     {"R32I", 4, false, false},
	TextureFormatR32U:     {"R32U", 4, false, false},
	TextureFormatR32F:     {"R32F", 4, false, false},
	TextureFormatRG8:      {"RG8", 2, false, false},
	TextureFormatRG8I:     {"RG8I", 2, false, false},
	TextureFormatRG8U:     {"RG8U", 2, false, false},
	TextureFormatRG8S:     {"RG8S", 2, false, false},
	TextureFormatRG16:     {"RG16", 4, false, false},
	TextureFormatRG16I:    {"RG16I", 4, false, false},
	TextureFormatRG16U:    {"RG16U", 4, false, false},
	TextureFormatRG16F:    {"RG16F", 4, false, false},
	TextureFormatRG16S:    {"RG16S", 4, false, false},
	TextureFormatRG32I:    {"RG32I", 8, false, false},
	TextureFormatRG32U:    {"RG32U", 8, false, false},
	TextureFormatRG32F:    {"RG32F", 8, false, false},
	TextureFormatRGB8:     {"RGB8", 3, false, false},
	TextureFormatRGB8I:    {"RGB8I", 3, false, false},
	TextureFormatRGB8U:    {"RGB8U", 3, false, false},
	TextureFormatRGB8S:    {"RGB8S", 3, false, false},
	TextureFormatBGRA8:    {"BGRA8", 4, false, false},
	TextureFormatRGBA8:    {"RGBA8", 4, false, false},
	TextureFormatRGBA8I:   {"RGBA8I", 4, false, false},
	TextureFormatRGBA8U:   {"RGBA8U", 4, false, false},
	TextureFormatRGBA8S:   {"RGBA8S", 4, false, false},
	TextureFormatRGBA16:   {"RGBA16", 8, false, false},
	TextureFormatRGBA16I:  {"RGBA16I", 8, false, false},
	TextureFormatRGBA16U:  {"RGBA16U", 8, false, false},
	TextureFormatRGBA16F:  {"RGBA16F", 8, false, false},
	TextureFormatRGBA16S:  {"RGBA16S", 8, false, false},
	TextureFormatRGBA32I:  {"RGBA32I", 16, false, false},
	TextureFormatRGBA32U:  {"RGBA32U", 16, false, false},
	TextureFormatRGBA32F:  {"RGBA32F", 16, false, false},
	TextureFormatR5G6B5:   {"R5G6B5", 2, false, false},
	TextureFormatRGBA4:    {"RGBA4", 2, false, false},
	TextureFormatRGB5A1:   {"RGB5A1", 2, false, false},
	TextureFormatRGB10A2:  {"RGB10A2", 4, false, false},
	TextureFormatRG11B10F: {"RG11B10F", 4, false, false},
	TextureFormatD16:      {"D16", 2, true, false},
	TextureFormatD24:      {"D24", 4, true, false},
	TextureFormatD24S8:    {"D24S8", 4, true, true},
	TextureFormatD32:      {"D32", 4, true, false},
	TextureFormatD16F:     {"D16F", 2, true, false},
	TextureFormatD24F:     {"D24F", 4, true, false},
	TextureFormatD32F:     {"D32F", 4, true, false},
	TextureFormatD0S8:     {"D0S8", 1, false, true},
}

func (f TextureFormat) info() formatInfo {
	if f < TextureFormatCount {
		return formatInfos[f]
	}
	return formatInfos[TextureFormatUnknown]
}

func (f TextureFormat) String() string {
	if f >= TextureFormatCount {
		return fmt.Sprintf("format(%d)", uint8(f))
	}
	return f.info().name
}

// BytesPerPixel is the size of one texel in client memory.
func (f TextureFormat) BytesPerPixel() uint32 { return f.info().bytesPerPixel }

func (f TextureFormat) IsDepth() bool { return f.info().depth }

func (f TextureFormat) HasStencil() bool { return f.info().stencil }

// IsDepthStencil reports formats that belong in a depth/stencil attachment.
func (f TextureFormat) IsDepthStencil() bool {
	i := f.info()
	return i.depth || i.stencil
}

func (f TextureFormat) IsValid() bool {
	return f > TextureFormatUnknown && f < TextureFormatCount
}

/** @brief Creation parameters of a 2D texture. */
type TextureInfo struct {
	Width  uint32
	Height uint32
	Format TextureFormat
	/** @brief Build the full mip chain after the base level is uploaded. */
	GenerateMipmaps bool
	/** @brief The texture is used as a framebuffer attachment. */
	Framebuffer bool
}

// MipLevels returns the number of levels of the texture.
func (t TextureInfo) MipLevels() uint32 {
	if !t.GenerateMipmaps {
		return 1
	}
	levels := uint32(1)
	for size := max(t.Width, t.Height); size > 1; size >>= 1 {
		levels++
	}
	return levels
}

// ByteSize is the size of the base level.
func (t TextureInfo) ByteSize() uint32 {
	return t.Width * t.Height * t.Format.BytesPerPixel()
}

type WrapMode uint32

const (
	WrapRepeat WrapMode = iota
	WrapMirror
	WrapClamp
)

type FilterMode uint32

const (
	FilterPoint FilterMode = iota
	FilterLinear
)

// Bit layout of SamplerInfo.Flags.
const (
	samplerWrapUShift = 0
	samplerWrapVShift = 2
	samplerWrapWShift = 4
	samplerMinShift   = 6
	samplerMagShift   = 7
	samplerMipShift   = 8
	samplerWrapMask   = 0x3
)

/**
 * @brief A bit packed sampling configuration. Two samplers are the same
 * exactly when their SamplerInfo values compare equal, so the struct is used
 * directly as the cache key by the backends.
 */
type SamplerInfo struct {
	Flags         uint32
	MaxAnisotropy float32
}

func NewSamplerInfo(wrapU, wrapV, wrapW WrapMode, minFilter, magFilter, mipFilter FilterMode) SamplerInfo {
	flags := uint32(wrapU)&samplerWrapMask<<samplerWrapUShift |
		uint32(wrapV)&samplerWrapMask<<samplerWrapVShift |
		uint32(wrapW)&samplerWrapMask<<samplerWrapWShift |
		uint32(minFilter)&1<<samplerMinShift |
		uint32(magFilter)&1<<samplerMagShift |
		uint32(mipFilter)&1<<samplerMipShift
	return SamplerInfo{Flags: flags, MaxAnisotropy: 1}
}

// DefaultSamplerInfo repeats on every axis and filters linearly.
func DefaultSamplerInfo() SamplerInfo {
	return NewSamplerInfo(WrapRepeat, WrapRepeat, WrapRepeat, FilterLinear, FilterLinear, FilterLinear)
}

// WithAnisotropy returns a copy with the given max anisotropy.
func (s SamplerInfo) WithAnisotropy(a float32) SamplerInfo {
	s.MaxAnisotropy = a
	return s
}

func (s SamplerInfo) WrapU() WrapMode { return WrapMode(s.Flags >> samplerWrapUShift & samplerWrapMask) }
func (s SamplerInfo) WrapV() WrapMode { return WrapMode(s.Flags >> samplerWrapVShift & samplerWrapMask) }
func (s SamplerInfo) WrapW() WrapMode { return WrapMode(s.Flags >> samplerWrapWShift & samplerWrapMask) }

func (s SamplerInfo) MinFilter() FilterMode { return FilterMode(s.Flags >> samplerMinShift & 1) }
func (s SamplerInfo) MagFilter() FilterMode { return FilterMode(s.Flags >> samplerMagShift & 1) }
func (s SamplerInfo) MipFilter() FilterMode { return FilterMode(s.Flags >> samplerMipShift & 1) }
