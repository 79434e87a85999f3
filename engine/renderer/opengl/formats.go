package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/** @brief Native representation of a client texture format. */
type textureFormat struct {
	internal uint32
	format   uint32
	xtype    uint32
	// swizzle is applied through TEXTURE_SWIZZLE_RGBA when set.
	swizzle *[4]int32
}

func fmtOf(internal, format, xtype uint32) textureFormat {
	return textureFormat{internal: internal, format: format, xtype: xtype}
}

var alphaSwizzle = [4]int32{gl.ZERO, gl.ZERO, gl.ZERO, gl.RED}

var textureFormats = [metadata.TextureFormatCount]textureFormat{
	metadata.TextureFormatA8:       {internal: gl.R8, format: gl.RED, xtype: gl.UNSIGNED_BYTE, swizzle: &alphaSwizzle},
	metadata.TextureFormatR8:       fmtOf(gl.R8, gl.RED, gl.UNSIGNED_BYTE),
	metadata.TextureFormatR8I:      fmtOf(gl.R8I, gl.RED_INTEGER, gl.BYTE),
	metadata.TextureFormatR8U:      fmtOf(gl.R8UI, gl.RED_INTEGER, gl.UNSIGNED_BYTE),
	metadata.TextureFormatR8S:      fmtOf(gl.R8_SNORM, gl.RED, gl.BYTE),
	metadata.TextureFormatR16:      fmtOf(gl.R16, gl.RED, gl.UNSIGNED_SHORT),
	metadata.TextureFormatR16I:     fmtOf(gl.R16I, gl.RED_INTEGER, gl.SHORT),
	metadata.TextureFormatR16U:     fmtOf(gl.R16UI, gl.RED_INTEGER, gl.UNSIGNED_SHORT),
	metadata.TextureFormatR16F:     fmtOf(gl.R16F, gl.RED, gl.HALF_FLOAT),
	metadata.TextureFormatR16S:     fmtOf(gl.R16_SNORM, gl.RED, gl.SHORT),
	metadata.TextureFormatR32I:     fmtOf(gl.R32I, gl.RED_INTEGER, gl.INT),
	metadata.TextureFormatR32U:     fmtOf(gl.R32UI, gl.RED_INTEGER, gl.UNSIGNED_INT),
	metadata.TextureFormatR32F:     fmtOf(gl.R32F, gl.RED, gl.FLOAT),
	metadata.TextureFormatRG8:      fmtOf(gl.RG8, gl.RG, gl.UNSIGNED_BYTE),
	metadata.TextureFormatRG8I:     fmtOf(gl.RG8I, gl.RG_INTEGER, gl.BYTE),
	metadata.TextureFormatRG8U:     fmtOf(gl.RG8UI, gl.RG_INTEGER, gl.UNSIGNED_BYTE),
	metadata.TextureFormatRG8S:     fmtOf(gl.RG8_SNORM, gl.RG, gl.BYTE),
	metadata.TextureFormatRG16:     fmtOf(gl.RG16, gl.RG, gl.UNSIGNED_SHORT),
	metadata.TextureFormatRG16I:    fmtOf(gl.RG16I, gl.RG_INTEGER, gl.SHORT),
	metadata.TextureFormatRG16U:    fmtOf(gl.RG16UI, gl.RG_INTEGER, gl.UNSIGNED_SHORT),
	metadata.TextureFormatRG16F:    fmtOf(gl.RG16F, gl.RG, gl.HALF_FLOAT),
	metadata.TextureFormatRG16S:    fmtOf(gl.RG16_SNORM, gl.RG, gl.SHORT),
	metadata.TextureFormatRG32I:    fmtOf(gl.RG32I, gl.RG_INTEGER, gl.INT),
	metadata.TextureFormatRG32U:    fmtOf(gl.RG32UI, gl.RG_INTEGER, gl.UNSIGNED_INT),
	metadata.TextureFormatRG32F:    fmtOf(gl.RG32F, gl.RG, gl.FLOAT),
	metadata.TextureFormatRGB8:     fmtOf(gl.RGB8, gl.RGB, gl.UNSIGNED_BYTE),
	metadata.TextureFormatRGB8I:    fmtOf(gl.RGB8I, gl.RGB_INTEGER, gl.BYTE),
	metadata.TextureFormatRGB8U:    fmtOf(gl.RGB8UI, gl.RGB_INTEGER, gl.UNSIGNED_BYTE),
	metadata.TextureFormatRGB8S:    fmtOf(gl.RGB8_SNORM, gl.RGB, gl.BYTE),
	metadata.TextureFormatBGRA8:    fmtOf(gl.RGBA8, gl.BGRA, gl.UNSIGNED_BYTE),
	metadata.TextureFormatRGBA8:    fmtOf(gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE),
	metadata.TextureFormatRGBA8I:   fmtOf(gl.RGBA8I, gl.RGBA_INTEGER, gl.BYTE),
	metadata.TextureFormatRGBA8U:   fmtOf(gl.RGBA8UI, gl.RGBA_INTEGER, gl.UNSIGNED_BYTE),
	metadata.TextureFormatRGBA8S:   fmtOf(gl.RGBA8_SNORM, gl.RGBA, gl.BYTE),
	metadata.TextureFormatRGBA16:   fmtOf(gl.RGBA16, gl.RGBA, gl.UNSIGNED_SHORT),
	metadata.TextureFormatRGBA16I:  fmtOf(gl.RGBA16I, gl.RGBA_INTEGER, gl.SHORT),
	metadata.TextureFormatRGBA16U:  fmtOf(gl.RGBA16UI, gl.RGBA_INTEGER, gl.UNSIGNED_SHORT),
	metadata.TextureFormatRGBA16F:  fmtOf(gl.RGBA16F, gl.RGBA, gl.HALF_FLOAT),
	metadata.TextureFormatRGBA16S:  fmtOf(gl.RGBA16_SNORM, gl.RGBA, gl.SHORT),
	metadata.TextureFormatRGBA32I:  fmtOf(gl.RGBA32I, gl.RGBA_INTEGER, gl.INT),
	metadata.TextureFormatRGBA32U:  fmtOf(gl.RGBA32UI, gl.RGBA_INTEGER, gl.UNSIGNED_INT),
	metadata.TextureFormatRGBA32F:  fmtOf(gl.RGBA32F, gl.RGBA, gl.FLOAT),
	metadata.TextureFormatR5G6B5:   fmtOf(gl.RGB565, gl.RGB, gl.UNSIGNED_SHORT_5_6_5),
	metadata.TextureFormatRGBA4:    fmtOf(gl.RGBA4, gl.RGBA, gl.UNSIGNED_SHORT_4_4_4_4),
	metadata.TextureFormatRGB5A1:   fmtOf(gl.RGB5_A1, gl.RGBA, gl.UNSIGNED_SHORT_5_5_5_1),
	metadata.TextureFormatRGB10A2:  fmtOf(gl.RGB10_A2, gl.RGBA, gl.UNSIGNED_INT_2_10_10_10_REV),
	metadata.TextureFormatRG11B10F: fmtOf(gl.R11F_G11F_B10F, gl.RGB, gl.UNSIGNED_INT_10F_11F_11F_REV),
	metadata.TextureFormatD16:      fmtOf(gl.DEPTH_COMPONENT16, gl.DEPTH_COMPONENT, gl.UNSIGNED_SHORT),
	metadata.TextureFormatD24:      fmtOf(gl.DEPTH_COMPONENT24, gl.DEPTH_COMPONENT, gl.UNSIGNED_INT),
	metadata.TextureFormatD24S8:    fmtOf(gl.DEPTH24_STENCIL8, gl.DEPTH_STENCIL, gl.UNSIGNED_INT_24_8),
	metadata.TextureFormatD32:      fmtOf(gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT),
	metadata.TextureFormatD16F:     fmtOf(gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT),
	metadata.TextureFormatD24F:     fmtOf(gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT),
	metadata.TextureFormatD32F:     fmtOf(gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT),
	metadata.TextureFormatD0S8:     fmtOf(gl.STENCIL_INDEX8, gl.STENCIL_INDEX, gl.UNSIGNED_BYTE),
}

func lookupTextureFormat(f metadata.TextureFormat) (textureFormat, bool) {
	if !f.IsValid() {
		return textureFormat{}, false
	}
	return textureFormats[f], true
}

// unpackAlignment is the largest row alignment that divides a row of
// width texels.
func unpackAlignment(width, bytesPerPixel uint32) int32 {
	row := width * bytesPerPixel
	for _, a := range []uint32{8, 4, 2} {
		if row%a == 0 {
			return int32(a)
		}
	}
	return 1
}

// depthAttachment is the framebuffer attachment point of a depth or stencil
// texture.
func depthAttachment(f metadata.TextureFormat) uint32 {
	switch {
	case f.IsDepth() && f.HasStencil():
		return gl.DEPTH_STENCIL_ATTACHMENT
	case f.HasStencil():
		return gl.STENCIL_ATTACHMENT
	}
	return gl.DEPTH_ATTACHMENT
}

func bufferUsageHint(usage metadata.BufferUsage) uint32 {
	switch usage {
	case metadata.BufferUsageDynamic:
		return gl.DYNAMIC_DRAW
	case metadata.BufferUsageStream:
		return gl.STREAM_DRAW
	}
	return gl.STATIC_DRAW
}

func indexType(t metadata.IndexType) uint32 {
	if t == metadata.IndexTypeUint32 {
		return gl.UNSIGNED_INT
	}
	return gl.UNSIGNED_SHORT
}

func shaderType(stage metadata.ShaderStage) uint32 {
	switch stage {
	case metadata.ShaderStageGeometry:
		return gl.GEOMETRY_SHADER
	case metadata.ShaderStageFragment:
		return gl.FRAGMENT_SHADER
	}
	return gl.VERTEX_SHADER
}

/** @brief How one vertex element is fetched. */
type attributeFormat struct {
	size       int32
	xtype      uint32
	normalized bool
	// integer attributes go through the IFormat entry point.
	integer bool
}

func vertexAttributeFormat(e metadata.VertexElement) (attributeFormat, error) {
	if e.Count == 0 || e.Count > 4 {
		return attributeFormat{}, fmt.Errorf("%s has %d components", e.Attribute, e.Count)
	}
	switch e.Type {
	case metadata.AttributeTypeFloat:
		return attributeFormat{size: int32(e.Count), xtype: gl.FLOAT}, nil
	case metadata.AttributeTypeUint8:
		return attributeFormat{
			size:       int32(e.Count),
			xtype:      gl.UNSIGNED_BYTE,
			normalized: e.Normalized,
			integer:    !e.Normalized,
		}, nil
	}
	return attributeFormat{}, fmt.Errorf("%s has unsupported type %s", e.Attribute, e.Type)
}

// checkInputs fails when the vertex stage reads a location decl does not
// provide.
func checkInputs(decl metadata.VertexDecl, layout *metadata.ProgramLayout) error {
	for _, in := range layout.Inputs {
		found := false
		for _, e := range decl.Elements() {
			if e.Attribute.Location() == in.Location {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("vertex input %q at location %d is missing from %s", in.Name, in.Location, decl)
		}
	}
	return nil
}

func blendEquation(eq metadata.BlendEquation) uint32 {
	switch eq {
	case metadata.BlendEquationSubtract:
		return gl.FUNC_SUBTRACT
	case metadata.BlendEquationReverseSubtract:
		return gl.FUNC_REVERSE_SUBTRACT
	case metadata.BlendEquationMin:
		return gl.MIN
	case metadata.BlendEquationMax:
		return gl.MAX
	}
	return gl.FUNC_ADD
}

var blendFactors = [...]uint32{
	metadata.BlendFuncZero:                  gl.ZERO,
	metadata.BlendFuncOne:                   gl.ONE,
	metadata.BlendFuncSrcColor:              gl.SRC_COLOR,
	metadata.BlendFuncOneMinusSrcColor:      gl.ONE_MINUS_SRC_COLOR,
	metadata.BlendFuncDstColor:              gl.DST_COLOR,
	metadata.BlendFuncOneMinusDstColor:      gl.ONE_MINUS_DST_COLOR,
	metadata.BlendFuncSrcAlpha:              gl.SRC_ALPHA,
	metadata.BlendFuncOneMinusSrcAlpha:      gl.ONE_MINUS_SRC_ALPHA,
	metadata.BlendFuncDstAlpha:              gl.DST_ALPHA,
	metadata.BlendFuncOneMinusDstAlpha:      gl.ONE_MINUS_DST_ALPHA,
	metadata.BlendFuncConstantColor:         gl.CONSTANT_COLOR,
	metadata.BlendFuncOneMinusConstantColor: gl.ONE_MINUS_CONSTANT_COLOR,
	metadata.BlendFuncSrcAlphaSaturate:      gl.SRC_ALPHA_SATURATE,
}

func blendFactor(f metadata.BlendFunc) uint32 {
	if int(f) < len(blendFactors) {
		return blendFactors[f]
	}
	return gl.ONE
}

func frontFace(w metadata.Winding) uint32 {
	if w == metadata.WindingCW {
		return gl.CW
	}
	return gl.CCW
}

func polygonMode(m metadata.PolygonMode) uint32 {
	if m == metadata.PolygonModeLine {
		return gl.LINE
	}
	return gl.FILL
}

func wrapMode(w metadata.WrapMode) int32 {
	switch w {
	case metadata.WrapMirror:
		return gl.MIRRORED_REPEAT
	case metadata.WrapClamp:
		return gl.CLAMP_TO_EDGE
	}
	return gl.REPEAT
}

func minFilter(filter, mip metadata.FilterMode) int32 {
	switch {
	case filter == metadata.FilterPoint && mip == metadata.FilterPoint:
		return gl.NEAREST_MIPMAP_NEAREST
	case filter == metadata.FilterPoint:
		return gl.NEAREST_MIPMAP_LINEAR
	case mip == metadata.FilterPoint:
		return gl.LINEAR_MIPMAP_NEAREST
	}
	return gl.LINEAR_MIPMAP_LINEAR
}

func magFilter(mag metadata.FilterMode) int32 {
	if mag == metadata.FilterPoint {
		return gl.NEAREST
	}
	return gl.LINEAR
}

// samplerParam is one glSamplerParameter call.
type samplerParam struct {
	pname uint32
	i     int32
	f     float32
	float bool
}

// samplerParams translates a sampler description, clamping the anisotropy
// to what the driver allows.
func samplerParams(info metadata.SamplerInfo, maxAnisotropy float32) []samplerParam {
	params := []samplerParam{
		{pname: gl.TEXTURE_WRAP_S, i: wrapMode(info.WrapU())},
		{pname: gl.TEXTURE_WRAP_T, i: wrapMode(info.WrapV())},
		{pname: gl.TEXTURE_WRAP_R, i: wrapMode(info.WrapW())},
		{pname: gl.TEXTURE_MIN_FILTER, i: minFilter(info.MinFilter(), info.MipFilter())},
		{pname: gl.TEXTURE_MAG_FILTER, i: magFilter(info.MagFilter())},
	}
	if anisotropy := min(info.MaxAnisotropy, maxAnisotropy); anisotropy > 1 {
		params = append(params, samplerParam{pname: gl.TEXTURE_MAX_ANISOTROPY, f: anisotropy, float: true})
	}
	return params
}

// scissorBox converts a top-left origin scissor to the bottom-left origin
// box of a target height pixels high, clipped to the target.
func scissorBox(s metadata.Scissor, width, height uint32) (x, y, w, h int32) {
	x0 := min(max(int64(s.X), 0), int64(width))
	y0 := min(max(int64(s.Y), 0), int64(height))
	x1 := min(max(int64(s.X)+int64(s.Width), x0), int64(width))
	y1 := min(max(int64(s.Y)+int64(s.Height), y0), int64(height))
	return int32(x0), int32(int64(height) - y1), int32(x1 - x0), int32(y1 - y0)
}
