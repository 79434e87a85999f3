package opengl

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextureFormatTable(t *testing.T) {
	for f := metadata.TextureFormatUnknown + 1; f < metadata.TextureFormatCount; f++ {
		tf, ok := lookupTextureFormat(f)
		require.True(t, ok, f.String())
		assert.NotZero(t, tf.internal, "%s has no internal format", f)
		assert.NotZero(t, tf.format, "%s has no pixel format", f)
		assert.NotZero(t, tf.xtype, "%s has no pixel type", f)
	}

	_, ok := lookupTextureFormat(metadata.TextureFormatUnknown)
	assert.False(t, ok)

	a8, _ := lookupTextureFormat(metadata.TextureFormatA8)
	require.NotNil(t, a8.swizzle)
	assert.Equal(t, int32(gl.RED), a8.swizzle[3])
	assert.Equal(t, int32(gl.ZERO), a8.swizzle[0])

	bgra, _ := lookupTextureFormat(metadata.TextureFormatBGRA8)
	assert.Equal(t, uint32(gl.RGBA8), bgra.internal)
	assert.Equal(t, uint32(gl.BGRA), bgra.format)

	rgb8, _ := lookupTextureFormat(metadata.TextureFormatRGB8)
	assert.Equal(t, uint32(gl.RGB8), rgb8.internal)
	assert.Nil(t, rgb8.swizzle)

	d24s8, _ := lookupTextureFormat(metadata.TextureFormatD24S8)
	assert.Equal(t, uint32(gl.DEPTH24_STENCIL8), d24s8.internal)
}

func TestUnpackAlignment(t *testing.T) {
	assert.Equal(t, int32(8), unpackAlignment(2, 4))
	assert.Equal(t, int32(4), unpackAlignment(1, 4))
	assert.Equal(t, int32(2), unpackAlignment(3, 2))
	assert.Equal(t, int32(1), unpackAlignment(3, 3))
	assert.Equal(t, int32(8), unpackAlignment(256, 3))
}

func TestDepthAttachment(t *testing.T) {
	assert.Equal(t, uint32(gl.DEPTH_ATTACHMENT), depthAttachment(metadata.TextureFormatD32F))
	assert.Equal(t, uint32(gl.DEPTH_STENCIL_ATTACHMENT), depthAttachment(metadata.TextureFormatD24S8))
	assert.Equal(t, uint32(gl.STENCIL_ATTACHMENT), depthAttachment(metadata.TextureFormatD0S8))
}

func TestVertexAttributeFormat(t *testing.T) {
	decl := metadata.NewVertexDecl().
		Add(metadata.AttributePosition, 3, metadata.AttributeTypeFloat, false).
		Add(metadata.AttributeColor, 4, metadata.AttributeTypeUint8, true).
		Add(metadata.AttributeTexCoord0, 2, metadata.AttributeTypeUint8, false).
		End()
	elements := decl.Elements()

	pos, err := vertexAttributeFormat(elements[0])
	require.NoError(t, err)
	assert.Equal(t, attributeFormat{size: 3, xtype: gl.FLOAT}, pos)

	color, err := vertexAttributeFormat(elements[1])
	require.NoError(t, err)
	assert.Equal(t, attributeFormat{size: 4, xtype: gl.UNSIGNED_BYTE, normalized: true}, color)

	uv, err := vertexAttributeFormat(elements[2])
	require.NoError(t, err)
	assert.True(t, uv.integer)
	assert.False(t, uv.normalized)

	_, err = vertexAttributeFormat(metadata.VertexElement{Attribute: metadata.AttributeNormal, Count: 5, Type: metadata.AttributeTypeFloat})
	assert.Error(t, err)
}

func TestCheckInputs(t *testing.T) {
	decl := metadata.NewVertexDecl().
		Add(metadata.AttributePosition, 3, metadata.AttributeTypeFloat, false).
		End()
	layout := &metadata.ProgramLayout{Inputs: []metadata.StageInput{{Name: "in_position", Location: 0}}}
	assert.NoError(t, checkInputs(decl, layout))

	layout.Inputs = append(layout.Inputs, metadata.StageInput{Name: "in_uv", Location: uint32(metadata.AttributeTexCoord0)})
	err := checkInputs(decl, layout)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in_uv")
}

func TestStateMappers(t *testing.T) {
	assert.Equal(t, uint32(gl.FUNC_ADD), blendEquation(metadata.BlendEquationAdd))
	assert.Equal(t, uint32(gl.FUNC_REVERSE_SUBTRACT), blendEquation(metadata.BlendEquationReverseSubtract))
	assert.Equal(t, uint32(gl.MAX), blendEquation(metadata.BlendEquationMax))

	assert.Equal(t, uint32(gl.ONE_MINUS_SRC_ALPHA), blendFactor(metadata.BlendFuncOneMinusSrcAlpha))
	assert.Equal(t, uint32(gl.SRC_ALPHA_SATURATE), blendFactor(metadata.BlendFuncSrcAlphaSaturate))
	assert.Equal(t, uint32(gl.ONE), blendFactor(metadata.BlendFunc(200)))

	assert.Equal(t, uint32(gl.CCW), frontFace(metadata.WindingCCW))
	assert.Equal(t, uint32(gl.CW), frontFace(metadata.WindingCW))
	assert.Equal(t, uint32(gl.LINE), polygonMode(metadata.PolygonModeLine))
	assert.Equal(t, uint32(gl.FILL), polygonMode(metadata.PolygonModeFill))

	assert.Equal(t, uint32(gl.UNSIGNED_INT), indexType(metadata.IndexTypeUint32))
	assert.Equal(t, uint32(gl.UNSIGNED_SHORT), indexType(metadata.IndexTypeUint16))
	assert.Equal(t, uint32(gl.STREAM_DRAW), bufferUsageHint(metadata.BufferUsageStream))
	assert.Equal(t, uint32(gl.FRAGMENT_SHADER), shaderType(metadata.ShaderStageFragment))
}

func TestSamplerParams(t *testing.T) {
	info := metadata.NewSamplerInfo(metadata.WrapClamp, metadata.WrapMirror, metadata.WrapRepeat,
		metadata.FilterPoint, metadata.FilterLinear, metadata.FilterPoint)
	info.MaxAnisotropy = 16

	params := samplerParams(info, 8)
	byName := make(map[uint32]samplerParam, len(params))
	for _, p := range params {
		byName[p.pname] = p
	}
	assert.Equal(t, int32(gl.CLAMP_TO_EDGE), byName[gl.TEXTURE_WRAP_S].i)
	assert.Equal(t, int32(gl.MIRRORED_REPEAT), byName[gl.TEXTURE_WRAP_T].i)
	assert.Equal(t, int32(gl.REPEAT), byName[gl.TEXTURE_WRAP_R].i)
	assert.Equal(t, int32(gl.NEAREST_MIPMAP_NEAREST), byName[gl.TEXTURE_MIN_FILTER].i)
	assert.Equal(t, int32(gl.LINEAR), byName[gl.TEXTURE_MAG_FILTER].i)

	aniso, ok := byName[gl.TEXTURE_MAX_ANISOTROPY]
	require.True(t, ok)
	assert.True(t, aniso.float)
	assert.Equal(t, float32(8), aniso.f)

	info.MaxAnisotropy = 1
	for _, p := range samplerParams(info, 8) {
		assert.NotEqual(t, uint32(gl.TEXTURE_MAX_ANISOTROPY), p.pname)
	}
}

func TestMinFilter(t *testing.T) {
	assert.Equal(t, int32(gl.LINEAR_MIPMAP_LINEAR), minFilter(metadata.FilterLinear, metadata.FilterLinear))
	assert.Equal(t, int32(gl.LINEAR_MIPMAP_NEAREST), minFilter(metadata.FilterLinear, metadata.FilterPoint))
	assert.Equal(t, int32(gl.NEAREST_MIPMAP_LINEAR), minFilter(metadata.FilterPoint, metadata.FilterLinear))
}

func TestScissorBox(t *testing.T) {
	x, y, w, h := scissorBox(metadata.Scissor{Enabled: true, X: 10, Y: 20, Width: 30, Height: 40}, 100, 100)
	assert.Equal(t, []int32{10, 40, 30, 40}, []int32{x, y, w, h})

	// Clipped against the target.
	x, y, w, h = scissorBox(metadata.Scissor{Enabled: true, X: -10, Y: 90, Width: 30, Height: 40}, 100, 100)
	assert.Equal(t, []int32{0, 0, 20, 10}, []int32{x, y, w, h})

	_, _, w, h = scissorBox(metadata.Scissor{Enabled: true, X: 200, Y: 200, Width: 5, Height: 5}, 100, 100)
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func floatAt(b []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[offset:]))
}

func TestWriteBlocks(t *testing.T) {
	p := &glProgram{
		Layout: metadata.ProgramLayout{
			UniformBuffers: []metadata.UniformBufferInfo{
				{Name: "Frame", Binding: 0, Size: 64},
				{Name: "Object", Binding: 1, Size: 32},
			},
			Uniforms: map[string]metadata.UniformLocation{
				"u_viewProj": {Buffer: 0, Binding: 0, Offset: 0, Size: 64},
				"u_tint":     {Buffer: 1, Binding: 1, Offset: 16, Size: 16},
			},
		},
		blocks: []uniformBlock{
			{data: make([]byte, 64)},
			{data: make([]byte, 32)},
		},
	}
	// Stale bytes from a previous draw are cleared.
	p.blocks[1].data[0] = 0xff

	rest := p.writeBlocks(map[string]metadata.UniformValue{
		"u_viewProj": metadata.UniformMat4(mgl32.Translate3D(1, 2, 3)),
		"u_tint":     metadata.UniformVec4(mgl32.Vec4{0.25, 0.5, 0.75, 1}),
		"u_time":     metadata.UniformFloat(3),
	})
	assert.Equal(t, []string{"u_time"}, rest)

	assert.Zero(t, p.blocks[1].data[0])
	assert.Equal(t, float32(0.25), floatAt(p.blocks[1].data, 16))
	assert.Equal(t, float32(1), floatAt(p.blocks[1].data, 28))
	// Column major: the translation is the fourth column.
	assert.Equal(t, float32(1), floatAt(p.blocks[0].data, 48))
	assert.Equal(t, float32(3), floatAt(p.blocks[0].data, 56))
}

func TestAdjustProjectionMatrix(t *testing.T) {
	r := New(core.DefaultConfig())
	assert.False(t, r.HasFlippedViewport())

	m := r.AdjustProjectionMatrix(mgl32.Ident4())
	near := m.Mul4x1(mgl32.Vec4{0, 1, 0, 1})
	far := m.Mul4x1(mgl32.Vec4{0, 1, 1, 1})
	assert.InDelta(t, -1, near.Z()/near.W(), 1e-6)
	assert.InDelta(t, 1, far.Z()/far.W(), 1e-6)
	assert.InDelta(t, -1, near.Y(), 1e-6)
}

func TestProgramUsable(t *testing.T) {
	var missing *glProgram
	assert.False(t, missing.Usable())
	assert.True(t, (&glProgram{}).Usable())
	assert.False(t, (&glProgram{Err: core.ErrInvalidHandle}).Usable())
}
