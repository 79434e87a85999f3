package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

var (
	floatFormats = [5]vk.Format{vk.FormatUndefined, vk.FormatR32Sfloat, vk.FormatR32g32Sfloat, vk.FormatR32g32b32Sfloat, vk.FormatR32g32b32a32Sfloat}
	unormFormats = [5]vk.Format{vk.FormatUndefined, vk.FormatR8Unorm, vk.FormatR8g8Unorm, vk.FormatR8g8b8Unorm, vk.FormatR8g8b8a8Unorm}
	uintFormats  = [5]vk.Format{vk.FormatUndefined, vk.FormatR8Uint, vk.FormatR8g8Uint, vk.FormatR8g8b8Uint, vk.FormatR8g8b8a8Uint}
)

// attributeFormat maps a declaration element to the vertex fetch format.
func attributeFormat(e metadata.VertexElement) (vk.Format, error) {
	if e.Count == 0 || e.Count > 4 {
		return vk.FormatUndefined, fmt.Errorf("%s has %d components", e.Attribute, e.Count)
	}
	switch e.Type {
	case metadata.AttributeTypeFloat:
		return floatFormats[e.Count], nil
	case metadata.AttributeTypeUint8:
		if e.Normalized {
			return unormFormats[e.Count], nil
		}
		return uintFormats[e.Count], nil
	}
	return vk.FormatUndefined, fmt.Errorf("%s has unsupported type %s", e.Attribute, e.Type)
}

// vertexInputDescriptions builds the single interleaved binding of decl.
// Elements the vertex stage does not read are left out; an input the stage
// reads that decl does not provide is an error.
func vertexInputDescriptions(decl metadata.VertexDecl, layout *metadata.ProgramLayout) (vk.VertexInputBindingDescription, []vk.VertexInputAttributeDescription, error) {
	binding := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    decl.Stride(),
		InputRate: vk.VertexInputRateVertex,
	}

	provided := make(map[uint32]bool, len(decl.Elements()))
	var attributes []vk.VertexInputAttributeDescription
	for _, e := range decl.Elements() {
		location := e.Attribute.Location()
		provided[location] = true
		if !layout.HasInput(location) {
			continue
		}
		format, err := attributeFormat(e)
		if err != nil {
			return binding, nil, err
		}
		attributes = append(attributes, vk.VertexInputAttributeDescription{
			Location: location,
			Binding:  0,
			Format:   format,
			Offset:   e.Offset,
		})
	}
	for _, in := range layout.Inputs {
		if !provided[in.Location] {
			return binding, nil, fmt.Errorf("vertex input %q at location %d is missing from %s", in.Name, in.Location, decl)
		}
	}
	return binding, attributes, nil
}
