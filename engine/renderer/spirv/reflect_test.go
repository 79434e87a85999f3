package spirv

import (
	"testing"

	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moduleBuilder struct {
	words []uint32
}

func newModuleBuilder() *moduleBuilder {
	return &moduleBuilder{words: []uint32{Magic, 0x00010300, 0, 64, 0}}
}

func (b *moduleBuilder) op(code uint32, args ...uint32) {
	b.words = append(b.words, uint32(len(args)+1)<<16|code)
	b.words = append(b.words, args...)
}

func literal(s string) []uint32 {
	raw := append([]byte(s), 0)
	for len(raw)%4 != 0 {
		raw = append(raw, 0)
	}
	words, _ := BytesToWords(raw)
	return words
}

func (b *moduleBuilder) name(id uint32, s string) {
	b.op(opName, append([]uint32{id}, literal(s)...)...)
}

func (b *moduleBuilder) memberName(id, member uint32, s string) {
	b.op(opMemberName, append([]uint32{id, member}, literal(s)...)...)
}

const (
	idMain = iota + 1
	idFloat
	idVec3
	idVec4
	idMat4
	idUboType
	idUboPtr
	idUbo
	idInPtr
	idInPos
	idInColor
	idVertexIndex
	idImage
	idSampledImage
	idSampledPtr
	idTexCombined
	idImagePtr
	idTexSeparate
	idSamplerType
	idSamplerPtr
	idSampler
	idPushType
	idPushPtr
	idPush
)

func vertexModule() []uint32 {
	b := newModuleBuilder()
	b.op(opEntryPoint, append(append([]uint32{modelVertex, idMain}, literal("vs_main")...), idInPos, idInColor, idVertexIndex)...)

	b.name(idUboType, "Transforms")
	b.memberName(idUboType, 0, "u_model")
	b.memberName(idUboType, 1, "u_tint")
	b.name(idUbo, "xf")
	b.name(idInPos, "a_position")
	b.name(idInColor, "a_color")
	b.name(idTexCombined, "s_albedo")
	b.name(idTexSeparate, "t_normal")
	b.name(idSampler, "s_normal")
	b.memberName(idPushType, 0, "u_time")

	b.op(opDecorate, idInPos, decorationLocation, 0)
	b.op(opDecorate, idInColor, decorationLocation, 2)
	b.op(opDecorate, idVertexIndex, decorationBuiltIn, 42)
	b.op(opDecorate, idUboType, decorationBlock)
	b.op(opMemberDecorate, idUboType, 0, decorationOffset, 0)
	b.op(opMemberDecorate, idUboType, 0, decorationMatrixStride, 16)
	b.op(opMemberDecorate, idUboType, 1, decorationOffset, 64)
	b.op(opDecorate, idUbo, decorationDescriptorSet, 0)
	b.op(opDecorate, idUbo, decorationBinding, 1)
	b.op(opDecorate, idTexCombined, decorationBinding, 2)
	b.op(opDecorate, idTexSeparate, decorationBinding, 3)
	b.op(opDecorate, idSampler, decorationBinding, 4)
	b.op(opDecorate, idPushType, decorationBlock)
	b.op(opMemberDecorate, idPushType, 0, decorationOffset, 0)

	b.op(opTypeFloat, idFloat, 32)
	b.op(opTypeVector, idVec3, idFloat, 3)
	b.op(opTypeVector, idVec4, idFloat, 4)
	b.op(opTypeMatrix, idMat4, idVec4, 4)
	b.op(opTypeStruct, idUboType, idMat4, idVec3)
	b.op(opTypePointer, idUboPtr, storageUniform, idUboType)
	b.op(opVariable, idUboPtr, idUbo, storageUniform)
	b.op(opTypePointer, idInPtr, storageInput, idVec4)
	b.op(opVariable, idInPtr, idInPos, storageInput)
	b.op(opVariable, idInPtr, idInColor, storageInput)
	b.op(opVariable, idInPtr, idVertexIndex, storageInput)
	b.op(opTypeImage, idImage, idFloat, 1, 0, 0, 0, 1, 0)
	b.op(opTypeSampledImage, idSampledImage, idImage)
	b.op(opTypePointer, idSampledPtr, storageUniformConstant, idSampledImage)
	b.op(opVariable, idSampledPtr, idTexCombined, storageUniformConstant)
	b.op(opTypePointer, idImagePtr, storageUniformConstant, idImage)
	b.op(opVariable, idImagePtr, idTexSeparate, storageUniformConstant)
	b.op(opTypeSampler, idSamplerType)
	b.op(opTypePointer, idSamplerPtr, storageUniformConstant, idSamplerType)
	b.op(opVariable, idSamplerPtr, idSampler, storageUniformConstant)
	b.op(opTypeStruct, idPushType, idFloat)
	b.op(opTypePointer, idPushPtr, storagePushConstant, idPushType)
	b.op(opVariable, idPushPtr, idPush, storagePushConstant)
	return b.words
}

func TestReflectVertexStage(t *testing.T) {
	res, err := Reflect(vertexModule(), metadata.ShaderStageVertex, "")
	require.NoError(t, err)

	assert.Equal(t, "vs_main", res.EntryPoint)
	assert.Equal(t, []metadata.StageInput{
		{Name: "a_position", Location: 0},
		{Name: "a_color", Location: 2},
	}, res.Inputs)

	require.Len(t, res.UniformBuffers, 1)
	ub := res.UniformBuffers[0]
	assert.Equal(t, "Transforms", ub.Name)
	assert.Equal(t, "xf", ub.Instance)
	assert.Equal(t, uint32(1), ub.Binding)
	assert.Equal(t, uint32(80), ub.Size)
	assert.Equal(t, []metadata.UniformField{
		{Name: "u_model", Offset: 0, Size: 64},
		{Name: "u_tint", Offset: 64, Size: 12},
	}, ub.Fields)
	assert.True(t, ub.Stages.Has(metadata.ShaderStageVertex))

	require.Len(t, res.Bindings, 3)
	assert.Equal(t, SamplerCombined, res.Bindings[0].Kind)
	assert.Equal(t, uint32(2), res.Bindings[0].Binding)
	assert.Equal(t, SamplerImage, res.Bindings[1].Kind)
	assert.Equal(t, SamplerOnly, res.Bindings[2].Kind)
	assert.Equal(t, "s_normal", res.Samplers[2].Name)

	require.NotNil(t, res.PushConstants)
	assert.Equal(t, uint32(4), res.PushConstants.Size)
	assert.Equal(t, "u_time", res.PushConstants.Fields[0].Name)
}

func TestReflectMissingEntryPoint(t *testing.T) {
	_, err := Reflect(vertexModule(), metadata.ShaderStageFragment, "")
	assert.ErrorIs(t, err, ErrNoEntryPoint)

	_, err = Reflect(vertexModule(), metadata.ShaderStageVertex, "other")
	assert.ErrorIs(t, err, ErrNoEntryPoint)
}

func TestReflectRejectsBrokenModules(t *testing.T) {
	_, err := Reflect([]uint32{1, 2, 3, 4, 5}, metadata.ShaderStageVertex, "")
	assert.ErrorIs(t, err, ErrInvalidMagic)

	words := vertexModule()
	_, err = Reflect(words[:len(words)-2], metadata.ShaderStageVertex, "")
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Reflect(words[:3], metadata.ShaderStageVertex, "")
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestBytesWordsRoundTrip(t *testing.T) {
	words := vertexModule()
	back, err := BytesToWords(WordsToBytes(words))
	require.NoError(t, err)
	assert.Equal(t, words, back)

	_, err = BytesToWords([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrMisalignedLen)
}
