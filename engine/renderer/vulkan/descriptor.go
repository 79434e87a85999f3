package vulkan

import (
	"encoding/binary"
	stdmath "math"
	"slices"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/spirv"
)

/**
 * @brief The shared descriptor pool. Sets are freed individually when the
 * program or a texture they reference goes away.
 */
type VulkanDescriptorPool struct {
	Handle  vk.DescriptorPool
	MaxSets uint32
}

func descriptorPoolSizes(maxSets uint32) []vk.DescriptorPoolSize {
	return []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: maxSets * maxUniformBuffersPerSet},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets * maxSamplersPerSet},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: maxSets * maxSamplersPerSet},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: maxSets * maxSamplersPerSet},
	}
}

func DescriptorPoolCreate(context *VulkanContext, maxSets uint32) (*VulkanDescriptorPool, error) {
	pool := &VulkanDescriptorPool{MaxSets: max(maxSets, 1)}
	sizes := descriptorPoolSizes(pool.MaxSets)
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       pool.MaxSets,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	if res := vk.CreateDescriptorPool(context.Device.LogicalDevice, &createInfo, context.Allocator, &pool.Handle); res != vk.Success {
		return nil, resultError("vkCreateDescriptorPool", res)
	}
	return pool, nil
}

func (p *VulkanDescriptorPool) Allocate(context *VulkanContext, layout vk.DescriptorSetLayout, count int) ([]vk.DescriptorSet, error) {
	sets := make([]vk.DescriptorSet, 0, count)
	for i := 0; i < count; i++ {
		var set vk.DescriptorSet
		res := vk.AllocateDescriptorSets(context.Device.LogicalDevice, &vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     p.Handle,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{layout},
		}, &set)
		if res != vk.Success {
			p.Free(context, sets)
			return nil, resultError("vkAllocateDescriptorSets", res)
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (p *VulkanDescriptorPool) Free(context *VulkanContext, sets []vk.DescriptorSet) {
	if len(sets) == 0 {
		return
	}
	vk.FreeDescriptorSets(context.Device.LogicalDevice, p.Handle, uint32(len(sets)), sets)
}

func (p *VulkanDescriptorPool) Destroy(context *VulkanContext) {
	if p.Handle != nil {
		vk.DestroyDescriptorPool(context.Device.LogicalDevice, p.Handle, context.Allocator)
		p.Handle = nil
	}
}

// descriptorKey identifies the descriptor sets of a program bound to one
// list of textures.
type descriptorKey struct {
	program  metadata.ProgramHandle
	bindings string
}

// encodeBindings turns a texture binding list into a comparable key. The
// order of the list does not matter.
func encodeBindings(bindings []metadata.TextureBinding) string {
	sorted := slices.Clone(bindings)
	slices.SortStableFunc(sorted, func(a, b metadata.TextureBinding) int {
		return int(a.Location) - int(b.Location)
	})
	buf := make([]byte, 0, len(sorted)*16)
	for _, b := range sorted {
		buf = binary.LittleEndian.AppendUint32(buf, b.Location)
		buf = binary.LittleEndian.AppendUint32(buf, b.Texture.Index())
		buf = binary.LittleEndian.AppendUint32(buf, b.Sampler.Flags)
		buf = binary.LittleEndian.AppendUint32(buf, stdmath.Float32bits(b.Sampler.MaxAnisotropy))
	}
	return string(buf)
}

/** @brief One descriptor set per swapchain image plus the textures they point at. */
type descriptorEntry struct {
	sets     []vk.DescriptorSet
	textures []metadata.TextureHandle
}

func (e *descriptorEntry) references(tex metadata.TextureHandle) bool {
	return slices.Contains(e.textures, tex)
}

// resolvedImage is what a sampler binding ends up pointing at.
type resolvedImage struct {
	view    vk.ImageView
	sampler vk.Sampler
}

// findBinding returns the texture bound at location.
func findBinding(bindings []metadata.TextureBinding, location uint32) (metadata.TextureBinding, bool) {
	for _, b := range bindings {
		if b.Location == location {
			return b, true
		}
	}
	return metadata.TextureBinding{}, false
}

// samplerSource is the binding whose sampler description a separate
// sampler at location uses: the texture bound one location below, which is
// where the matching image is declared.
func samplerSource(bindings []metadata.TextureBinding, location uint32, kind spirv.SamplerKind) (metadata.TextureBinding, bool) {
	if kind == spirv.SamplerOnly && location > 0 {
		if b, ok := findBinding(bindings, location-1); ok {
			return b, true
		}
	}
	return findBinding(bindings, location)
}

// writeDescriptorSet points every binding of set at its resource. Uniform
// buffers use the scratch buffer with a dynamic offset; images come from
// resolve.
func writeDescriptorSet(context *VulkanContext, set vk.DescriptorSet, program *VulkanProgram, scratch vk.Buffer, resolve func(binding metadata.SamplerBindingInfo) resolvedImage) {
	writes := make([]vk.WriteDescriptorSet, 0, len(program.Layout.UniformBuffers)+len(program.Layout.Samplers))
	for _, ub := range program.Layout.UniformBuffers {
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      ub.Binding,
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: scratch,
				Offset: 0, // dynamic
				Range:  vk.DeviceSize(max(ub.Size, 1)),
			}},
		})
	}
	for _, s := range program.Layout.Samplers {
		kind := program.SamplerKinds[s.Binding]
		img := resolve(s)
		info := vk.DescriptorImageInfo{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}
		switch kind {
		case spirv.SamplerOnly:
			info.Sampler = img.sampler
		case spirv.SamplerImage:
			info.ImageView = img.view
		default:
			info.ImageView = img.view
			info.Sampler = img.sampler
		}
		writes = append(writes, vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      s.Binding,
			DescriptorCount: 1,
			DescriptorType:  samplerDescriptorType(kind),
			PImageInfo:      []vk.DescriptorImageInfo{info},
		})
	}
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	}
}
