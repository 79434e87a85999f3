package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeReflections(t *testing.T) {
	vs := ShaderReflection{
		Stage:  ShaderStageVertex,
		Inputs: []StageInput{{Name: "a_color", Location: 2}, {Name: "a_position", Location: 0}},
		UniformBuffers: []UniformBufferInfo{{
			Name: "Transforms", Instance: "xf", Binding: 1, Size: 128,
			Fields: []UniformField{{Name: "u_model", Offset: 0, Size: 64}, {Name: "u_view_proj", Offset: 64, Size: 64}},
		}},
	}
	fs := ShaderReflection{
		Stage: ShaderStageFragment,
		UniformBuffers: []UniformBufferInfo{
			{Name: "Material", Binding: 0, Size: 16, Fields: []UniformField{{Name: "u_tint", Offset: 0, Size: 16}}},
			{Name: "Transforms", Instance: "xf", Binding: 1, Size: 128, Fields: vs.UniformBuffers[0].Fields},
		},
		Samplers: []SamplerBindingInfo{{Name: "s_albedo", Binding: 2}},
	}

	layout := MergeReflections(vs, fs)

	require.Len(t, layout.UniformBuffers, 2)
	assert.Equal(t, uint32(0), layout.UniformBuffers[0].Binding)
	assert.Equal(t, uint32(1), layout.UniformBuffers[1].Binding)
	assert.True(t, layout.UniformBuffers[1].Stages.Has(ShaderStageVertex))
	assert.True(t, layout.UniformBuffers[1].Stages.Has(ShaderStageFragment))
	assert.False(t, layout.UniformBuffers[0].Stages.Has(ShaderStageVertex))

	loc, ok := layout.Lookup("u_view_proj")
	require.True(t, ok)
	assert.Equal(t, UniformLocation{Buffer: 1, Binding: 1, Offset: 64, Size: 64}, loc)

	qualified, ok := layout.Lookup("Transforms.u_view_proj")
	require.True(t, ok)
	assert.Equal(t, loc, qualified)
	_, ok = layout.Lookup("xf.u_model")
	assert.True(t, ok)
	_, ok = layout.Lookup("nonexistent")
	assert.False(t, ok)

	assert.Equal(t, []StageInput{{Name: "a_position", Location: 0}, {Name: "a_color", Location: 2}}, layout.Inputs)
	assert.True(t, layout.HasInput(2))
	assert.False(t, layout.HasInput(1))

	s, ok := layout.SamplerAt(2)
	require.True(t, ok)
	assert.Equal(t, "s_albedo", s.Name)
}

func TestParseShaderStage(t *testing.T) {
	s, err := ParseShaderStage("frag")
	require.NoError(t, err)
	assert.Equal(t, ShaderStageFragment, s)

	_, err = ParseShaderStage("compute")
	assert.Error(t, err)
}
