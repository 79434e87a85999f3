package spirv

import (
	"fmt"
	"slices"

	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// SamplerKind tells how a texture binding is declared by the shader.
type SamplerKind uint8

const (
	// SamplerCombined is a combined image sampler (GLSL sampler2D).
	SamplerCombined SamplerKind = iota
	// SamplerImage is a separate sampled image (WGSL texture_2d).
	SamplerImage
	// SamplerOnly is a separate sampler object (WGSL sampler).
	SamplerOnly
)

// Binding pairs a reflected sampler binding with its declaration kind.
type Binding struct {
	metadata.SamplerBindingInfo
	Kind SamplerKind
}

// Result is the reflection of one stage.
type Result struct {
	metadata.ShaderReflection
	// Bindings keeps the kind of every entry of Samplers, in the same order.
	Bindings []Binding
}

func executionModel(stage metadata.ShaderStage) uint32 {
	switch stage {
	case metadata.ShaderStageGeometry:
		return modelGeometry
	case metadata.ShaderStageFragment:
		return modelFragment
	}
	return modelVertex
}

// Reflect parses code and returns the layout of the entry point for stage.
// An empty entry name selects the first entry point of that stage.
func Reflect(code []uint32, stage metadata.ShaderStage, entry string) (*Result, error) {
	m, err := parse(code)
	if err != nil {
		return nil, err
	}

	model := executionModel(stage)
	idx := slices.IndexFunc(m.entryPoints, func(ep entryPoint) bool {
		return ep.model == model && (entry == "" || ep.name == entry)
	})
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s stage, entry %q", ErrNoEntryPoint, stage, entry)
	}
	ep := m.entryPoints[idx]

	res := &Result{ShaderReflection: metadata.ShaderReflection{Stage: stage, EntryPoint: ep.name}}
	flag := stage.Flag()

	for _, v := range m.variables {
		ptr, ok := m.types[v.typeID]
		if !ok || ptr.op != opTypePointer {
			continue
		}
		deco := m.decorations[v.id]
		switch v.storage {
		case storageInput:
			if stage != metadata.ShaderStageVertex || deco == nil || !deco.hasLoc || deco.builtin {
				continue
			}
			if !slices.Contains(ep.interfaces, v.id) {
				continue
			}
			res.Inputs = append(res.Inputs, metadata.StageInput{Name: m.names[v.id], Location: deco.location})

		case storageUniform:
			st, ok := m.types[ptr.elem]
			if !ok || st.op != opTypeStruct || deco == nil {
				continue
			}
			ub := metadata.UniformBufferInfo{
				Name:     m.names[ptr.elem],
				Instance: m.names[v.id],
				Set:      deco.set,
				Binding:  deco.binding,
				Stages:   flag,
			}
			ub.Fields = m.fields(ptr.elem, "", 0)
			ub.Size = math.AlignUp(m.structSize(ptr.elem), 16)
			res.UniformBuffers = append(res.UniformBuffers, ub)

		case storageUniformConstant:
			if deco == nil || !deco.hasBinding {
				continue
			}
			kind, ok := m.samplerKind(ptr.elem)
			if !ok {
				continue
			}
			info := metadata.SamplerBindingInfo{
				Name:    m.names[v.id],
				Set:     deco.set,
				Binding: deco.binding,
				Stages:  flag,
			}
			res.Samplers = append(res.Samplers, info)
			res.Bindings = append(res.Bindings, Binding{SamplerBindingInfo: info, Kind: kind})

		case storagePushConstant:
			st, ok := m.types[ptr.elem]
			if !ok || st.op != opTypeStruct {
				continue
			}
			res.PushConstants = &metadata.PushConstantInfo{
				Name:   m.names[v.id],
				Size:   m.structSize(ptr.elem),
				Fields: m.fields(ptr.elem, "", 0),
				Stages: flag,
			}
		}
	}

	slices.SortFunc(res.UniformBuffers, func(a, b metadata.UniformBufferInfo) int { return int(a.Binding) - int(b.Binding) })
	slices.SortFunc(res.Inputs, func(a, b metadata.StageInput) int { return int(a.Location) - int(b.Location) })
	return res, nil
}

// samplerKind follows arrays down to the image or sampler type.
func (m *module) samplerKind(typeID uint32) (SamplerKind, bool) {
	t, ok := m.types[typeID]
	for ok && (t.op == opTypeArray || t.op == opTypeRuntimeArray) {
		t, ok = m.types[t.elem]
	}
	if !ok {
		return 0, false
	}
	switch t.op {
	case opTypeSampledImage:
		return SamplerCombined, true
	case opTypeImage:
		// sampled == 2 is a storage image.
		if t.sampled == 2 {
			return 0, false
		}
		return SamplerImage, true
	case opTypeSampler:
		return SamplerOnly, true
	}
	return 0, false
}

// fields flattens the members of a struct. Nested struct members are
// reported with a dotted prefix.
func (m *module) fields(structID uint32, prefix string, base uint32) []metadata.UniformField {
	st := m.types[structID]
	var out []metadata.UniformField
	for i, member := range st.members {
		md := m.memberDecos[structID][uint32(i)]
		var offset, stride uint32
		if md != nil {
			offset, stride = md.offset, md.matrixStride
		}
		name := m.memberNames[structID][uint32(i)]
		if name == "" {
			name = fmt.Sprintf("_m%d", i)
		}
		name = prefix + name
		size := m.sizeOf(member, stride)
		out = append(out, metadata.UniformField{Name: name, Offset: base + offset, Size: size})
		if t, ok := m.types[member]; ok && t.op == opTypeStruct {
			out = append(out, m.fields(member, name+".", base+offset)...)
		}
	}
	return out
}

func (m *module) structSize(structID uint32) uint32 {
	st := m.types[structID]
	var size uint32
	for i, member := range st.members {
		md := m.memberDecos[structID][uint32(i)]
		var offset, stride uint32
		if md != nil {
			offset, stride = md.offset, md.matrixStride
		}
		size = max(size, offset+m.sizeOf(member, stride))
	}
	return size
}

// sizeOf returns the byte size of a type inside an explicitly laid out
// block. matrixStride comes from the enclosing member decoration.
func (m *module) sizeOf(typeID, matrixStride uint32) uint32 {
	t, ok := m.types[typeID]
	if !ok {
		return 0
	}
	switch t.op {
	case opTypeBool, opTypeInt, opTypeFloat:
		return t.width / 8
	case opTypeVector:
		return t.count * m.sizeOf(t.elem, 0)
	case opTypeMatrix:
		if matrixStride == 0 {
			matrixStride = math.AlignUp(m.sizeOf(t.elem, 0), 16)
		}
		return t.count * matrixStride
	case opTypeArray:
		length := m.constants[t.lengthID]
		if d := m.decorations[typeID]; d != nil && d.arrayStride > 0 {
			return length * d.arrayStride
		}
		return length * m.sizeOf(t.elem, matrixStride)
	case opTypeStruct:
		return m.structSize(typeID)
	}
	return 0
}
