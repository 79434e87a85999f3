package vulkan

import (
	"fmt"

	"github.com/spaghettifunk/prism/engine/containers"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/math"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// packUniforms reserves one zeroed block per uniform buffer of layout in
// arena and writes values into them at their reflected offsets. It returns
// the block offsets in binding order, which is the order of the dynamic
// offsets of the descriptor set. Names found in neither a uniform buffer
// nor the push constant block are reported to unknown.
func packUniforms(layout *metadata.ProgramLayout, values map[string]metadata.UniformValue, arena *containers.LinearArena, align uint32, unknown func(name string)) ([]uint32, error) {
	align = max(align, 1)
	offsets := make([]uint32, len(layout.UniformBuffers))
	for i, ub := range layout.UniformBuffers {
		size := math.AlignUp(max(ub.Size, 1), align)
		offset, ok := arena.Alloc(size, align)
		if !ok {
			return nil, fmt.Errorf("%w: %d bytes for block %q, %d of %d left",
				core.ErrScratchExhausted, size, ub.Name, arena.Remaining(), arena.Capacity())
		}
		clear(arena.Slice(offset, size))
		offsets[i] = offset
	}

	for name, value := range values {
		loc, ok := layout.Lookup(name)
		if !ok {
			if !hasPushConstant(layout.PushConstants, name) && unknown != nil {
				unknown(name)
			}
			continue
		}
		writeField(arena.Slice(offsets[loc.Buffer]+loc.Offset, loc.Size), value)
	}
	return offsets, nil
}

func hasPushConstant(pc *metadata.PushConstantInfo, name string) bool {
	if pc == nil {
		return false
	}
	for _, f := range pc.Fields {
		if f.Name == name || pc.Name+"."+f.Name == name {
			return true
		}
	}
	return false
}

// packPushConstants lays out the push constant block of layout. It returns
// nil when the program has none.
func packPushConstants(pc *metadata.PushConstantInfo, values map[string]metadata.UniformValue) []byte {
	if pc == nil || pc.Size == 0 {
		return nil
	}
	block := make([]byte, pc.Size)
	for _, f := range pc.Fields {
		value, ok := values[f.Name]
		if !ok {
			value, ok = values[pc.Name+"."+f.Name]
		}
		if !ok || f.Offset+f.Size > pc.Size {
			continue
		}
		writeField(block[f.Offset:f.Offset+f.Size], value)
	}
	return block
}

// writeField copies the std140 bytes of value into dst, truncated to the
// declared size of the field.
func writeField(dst []byte, value metadata.UniformValue) {
	copy(dst, value.Std140())
}

// unknownUniformWarner warns once per program and name.
func unknownUniformWarner(program metadata.ProgramHandle) func(string) {
	return func(name string) {
		core.WarnOnce("uniform:"+program.String()+":"+name, "%s has no uniform named %q, value skipped", program, name)
	}
}
