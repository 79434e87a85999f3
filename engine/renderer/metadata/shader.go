package metadata

import (
	"fmt"
	"slices"
)

type ShaderStage uint8

const (
	ShaderStageVertex ShaderStage = iota
	ShaderStageGeometry
	ShaderStageFragment
)

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageGeometry:
		return "geometry"
	case ShaderStageFragment:
		return "fragment"
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// ParseShaderStage accepts the usual short and long stage names.
func ParseShaderStage(name string) (ShaderStage, error) {
	switch name {
	case "vertex", "vert", "vs":
		return ShaderStageVertex, nil
	case "geometry", "geom", "gs":
		return ShaderStageGeometry, nil
	case "fragment", "frag", "fs":
		return ShaderStageFragment, nil
	}
	return 0, fmt.Errorf("unknown shader stage %q", name)
}

// StageFlags is a set of shader stages.
type StageFlags uint8

func (s ShaderStage) Flag() StageFlags {
	return 1 << s
}

func (f StageFlags) Has(s ShaderStage) bool {
	return f&s.Flag() != 0
}

/**
 * @brief Everything a backend needs to build one stage of a program.
 *
 * Code is the intermediate binary as a sequence of 32 bit words. Source is
 * optional text for the same stage (cross compiled GLSL) that the legacy
 * backend prefers when present.
 */
type ShaderStageInfo struct {
	Stage      ShaderStage
	EntryPoint string
	Code       []uint32
	Source     string
}

/** @brief A member of a uniform block. */
type UniformField struct {
	Name   string
	Offset uint32
	Size   uint32
}

/** @brief A uniform buffer binding as declared by a shader. */
type UniformBufferInfo struct {
	/** @brief Name of the block type. */
	Name string
	/** @brief Name of the block instance, empty for anonymous blocks. */
	Instance string
	Set      uint32
	Binding  uint32
	/** @brief Declared size in bytes. */
	Size   uint32
	Fields []UniformField
	Stages StageFlags
}

/** @brief A combined image sampler (or separate sampled image) binding. */
type SamplerBindingInfo struct {
	Name    string
	Set     uint32
	Binding uint32
	Stages  StageFlags
}

type PushConstantInfo struct {
	Name   string
	Size   uint32
	Fields []UniformField
	Stages StageFlags
}

type StageInput struct {
	Name     string
	Location uint32
}

/** @brief Reflection data of a single stage. */
type ShaderReflection struct {
	Stage          ShaderStage
	EntryPoint     string
	Inputs         []StageInput
	UniformBuffers []UniformBufferInfo
	Samplers       []SamplerBindingInfo
	PushConstants  *PushConstantInfo
}

// UniformLocation says where a named uniform lives inside a program's
// uniform buffers.
type UniformLocation struct {
	// Buffer indexes ProgramLayout.UniformBuffers.
	Buffer  int
	Binding uint32
	Offset  uint32
	Size    uint32
}

/**
 * @brief ProgramLayout is the merged reflection of all stages of a program.
 *
 * UniformBuffers and Samplers are sorted by binding, which is also the
 * order of the dynamic offsets handed to the descriptor set bind.
 */
type ProgramLayout struct {
	Inputs         []StageInput
	UniformBuffers []UniformBufferInfo
	Samplers       []SamplerBindingInfo
	PushConstants  *PushConstantInfo
	Uniforms       map[string]UniformLocation
}

// MergeReflections combines per stage reflection into one program layout.
// Bindings shared between stages are merged and their stage flags combined;
// a binding declared with different sizes keeps the largest one.
func MergeReflections(stages ...ShaderReflection) ProgramLayout {
	layout := ProgramLayout{Uniforms: make(map[string]UniformLocation)}

	ubos := make(map[uint32]int)
	samplers := make(map[uint32]int)
	for _, st := range stages {
		flag := st.Stage.Flag()
		if st.Stage == ShaderStageVertex {
			layout.Inputs = append(layout.Inputs, st.Inputs...)
		}
		for _, ub := range st.UniformBuffers {
			if i, ok := ubos[ub.Binding]; ok {
				existing := &layout.UniformBuffers[i]
				existing.Stages |= flag
				if ub.Size > existing.Size {
					existing.Size = ub.Size
					existing.Fields = slices.Clone(ub.Fields)
				}
				continue
			}
			ub.Stages = flag
			ub.Fields = slices.Clone(ub.Fields)
			ubos[ub.Binding] = len(layout.UniformBuffers)
			layout.UniformBuffers = append(layout.UniformBuffers, ub)
		}
		for _, s := range st.Samplers {
			if i, ok := samplers[s.Binding]; ok {
				layout.Samplers[i].Stages |= flag
				continue
			}
			s.Stages = flag
			samplers[s.Binding] = len(layout.Samplers)
			layout.Samplers = append(layout.Samplers, s)
		}
		if st.PushConstants != nil {
			if layout.PushConstants == nil {
				pc := *st.PushConstants
				pc.Stages = flag
				layout.PushConstants = &pc
			} else {
				layout.PushConstants.Stages |= flag
				layout.PushConstants.Size = max(layout.PushConstants.Size, st.PushConstants.Size)
			}
		}
	}

	slices.SortFunc(layout.UniformBuffers, func(a, b UniformBufferInfo) int { return int(a.Binding) - int(b.Binding) })
	slices.SortFunc(layout.Samplers, func(a, b SamplerBindingInfo) int { return int(a.Binding) - int(b.Binding) })
	slices.SortFunc(layout.Inputs, func(a, b StageInput) int { return int(a.Location) - int(b.Location) })

	for i, ub := range layout.UniformBuffers {
		for _, f := range ub.Fields {
			loc := UniformLocation{Buffer: i, Binding: ub.Binding, Offset: f.Offset, Size: f.Size}
			if _, taken := layout.Uniforms[f.Name]; !taken {
				layout.Uniforms[f.Name] = loc
			}
			if ub.Name != "" {
				layout.Uniforms[ub.Name+"."+f.Name] = loc
			}
			if ub.Instance != "" {
				layout.Uniforms[ub.Instance+"."+f.Name] = loc
			}
		}
	}
	return layout
}

// Lookup resolves a uniform name to its location.
func (l *ProgramLayout) Lookup(name string) (UniformLocation, bool) {
	loc, ok := l.Uniforms[name]
	return loc, ok
}

// SamplerAt returns the sampler declared at binding.
func (l *ProgramLayout) SamplerAt(binding uint32) (SamplerBindingInfo, bool) {
	for _, s := range l.Samplers {
		if s.Binding == binding {
			return s, true
		}
	}
	return SamplerBindingInfo{}, false
}

// HasInput reports whether the vertex stage reads the given location.
func (l *ProgramLayout) HasInput(location uint32) bool {
	for _, in := range l.Inputs {
		if in.Location == location {
			return true
		}
	}
	return false
}
