package vulkan

import (
	"errors"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/spirv"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	Stage      metadata.ShaderStage
	EntryPoint string
	/** @brief The internal shader module Handle. */
	Handle     vk.ShaderModule
	Reflection *spirv.Result
}

/**
 * @brief A linked program: its stage modules, the merged reflection and the
 * layouts derived from it. A program that failed to build is kept with
 * Err set so that draws using it can be skipped.
 */
type VulkanProgram struct {
	Stages []VulkanShaderStage
	Layout metadata.ProgramLayout
	/** @brief How each sampler binding is declared, keyed by binding. */
	SamplerKinds map[uint32]spirv.SamplerKind

	SetLayout      vk.DescriptorSetLayout
	PipelineLayout vk.PipelineLayout

	Err error
}

func (p *VulkanProgram) Usable() bool {
	return p != nil && p.Err == nil
}

func shaderStageBit(stage metadata.ShaderStage) vk.ShaderStageFlagBits {
	switch stage {
	case metadata.ShaderStageGeometry:
		return vk.ShaderStageGeometryBit
	case metadata.ShaderStageFragment:
		return vk.ShaderStageFragmentBit
	}
	return vk.ShaderStageVertexBit
}

func shaderStageFlags(flags metadata.StageFlags) vk.ShaderStageFlags {
	var out vk.ShaderStageFlags
	for _, s := range []metadata.ShaderStage{metadata.ShaderStageVertex, metadata.ShaderStageGeometry, metadata.ShaderStageFragment} {
		if flags.Has(s) {
			out |= vk.ShaderStageFlags(shaderStageBit(s))
		}
	}
	return out
}

func samplerDescriptorType(kind spirv.SamplerKind) vk.DescriptorType {
	switch kind {
	case spirv.SamplerImage:
		return vk.DescriptorTypeSampledImage
	case spirv.SamplerOnly:
		return vk.DescriptorTypeSampler
	}
	return vk.DescriptorTypeCombinedImageSampler
}

// programBindings lists the set 0 layout bindings of a program: dynamic
// uniform buffers first, then its texture and sampler bindings.
func programBindings(layout *metadata.ProgramLayout, kinds map[uint32]spirv.SamplerKind) ([]vk.DescriptorSetLayoutBinding, error) {
	if len(layout.UniformBuffers) > maxUniformBuffersPerSet {
		return nil, fmt.Errorf("%d uniform buffers, at most %d are supported", len(layout.UniformBuffers), maxUniformBuffersPerSet)
	}
	if len(layout.Samplers) > maxSamplersPerSet {
		return nil, fmt.Errorf("%d sampler bindings, at most %d are supported", len(layout.Samplers), maxSamplersPerSet)
	}
	bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(layout.UniformBuffers)+len(layout.Samplers))
	for _, ub := range layout.UniformBuffers {
		if ub.Set != 0 {
			return nil, fmt.Errorf("uniform buffer %q uses set %d, only set 0 is supported", ub.Name, ub.Set)
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         ub.Binding,
			DescriptorType:  vk.DescriptorTypeUniformBufferDynamic,
			DescriptorCount: 1,
			StageFlags:      shaderStageFlags(ub.Stages),
		})
	}
	for _, s := range layout.Samplers {
		if s.Set != 0 {
			return nil, fmt.Errorf("sampler %q uses set %d, only set 0 is supported", s.Name, s.Set)
		}
		bindings = append(bindings, vk.DescriptorSetLayoutBinding{
			Binding:         s.Binding,
			DescriptorType:  samplerDescriptorType(kinds[s.Binding]),
			DescriptorCount: 1,
			StageFlags:      shaderStageFlags(s.Stages),
		})
	}
	return bindings, nil
}

func createShaderModule(context *VulkanContext, info metadata.ShaderStageInfo) (VulkanShaderStage, error) {
	stage := VulkanShaderStage{Stage: info.Stage, EntryPoint: info.EntryPoint}
	if len(info.Code) == 0 {
		return stage, &core.ShaderError{Stage: info.Stage.String(), Message: "stage carries no SPIR-V code"}
	}
	if stage.EntryPoint == "" {
		stage.EntryPoint = "main"
	}

	reflection, err := spirv.Reflect(info.Code, info.Stage, stage.EntryPoint)
	if err != nil {
		return stage, &core.ShaderError{Stage: info.Stage.String(), Message: "reflection failed", DebugLog: err.Error()}
	}
	stage.Reflection = reflection
	stage.EntryPoint = reflection.EntryPoint

	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(info.Code) * 4),
		PCode:    info.Code,
	}
	if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &stage.Handle); res != vk.Success {
		return stage, &core.ShaderError{Stage: info.Stage.String(), Message: "vkCreateShaderModule failed", DebugLog: VulkanResultString(res)}
	}
	return stage, nil
}

// ProgramCreate builds a program from stage infos. It always returns a
// program; on failure the program is unusable and Err says why.
func ProgramCreate(context *VulkanContext, infos []metadata.ShaderStageInfo) *VulkanProgram {
	program := &VulkanProgram{SamplerKinds: make(map[uint32]spirv.SamplerKind)}
	program.Err = program.build(context, infos)
	if program.Err != nil {
		program.release(context)
	}
	return program
}

func (p *VulkanProgram) build(context *VulkanContext, infos []metadata.ShaderStageInfo) error {
	hasVertex := false
	reflections := make([]metadata.ShaderReflection, 0, len(infos))
	for _, info := range infos {
		stage, err := createShaderModule(context, info)
		if err != nil {
			return err
		}
		p.Stages = append(p.Stages, stage)
		reflections = append(reflections, stage.Reflection.ShaderReflection)
		for _, b := range stage.Reflection.Bindings {
			p.SamplerKinds[b.Binding] = b.Kind
		}
		hasVertex = hasVertex || info.Stage == metadata.ShaderStageVertex
	}
	if !hasVertex {
		return errors.New("program has no vertex stage")
	}
	p.Layout = metadata.MergeReflections(reflections...)

	bindings, err := programBindings(&p.Layout, p.SamplerKinds)
	if err != nil {
		return err
	}
	device := context.Device.LogicalDevice
	setInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if res := vk.CreateDescriptorSetLayout(device, &setInfo, context.Allocator, &p.SetLayout); res != vk.Success {
		return resultError("vkCreateDescriptorSetLayout", res)
	}

	layoutInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 1,
		PSetLayouts:    []vk.DescriptorSetLayout{p.SetLayout},
	}
	if pc := p.Layout.PushConstants; pc != nil && pc.Size > 0 {
		layoutInfo.PushConstantRangeCount = 1
		layoutInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: shaderStageFlags(pc.Stages),
			Offset:     0,
			Size:       pc.Size,
		}}
	}
	if res := vk.CreatePipelineLayout(device, &layoutInfo, context.Allocator, &p.PipelineLayout); res != vk.Success {
		return resultError("vkCreatePipelineLayout", res)
	}

	core.LogDebug("Program built: %d stages, %d uniform buffers, %d samplers.",
		len(p.Stages), len(p.Layout.UniformBuffers), len(p.Layout.Samplers))
	return nil
}

func (p *VulkanProgram) StageCreateInfos() []vk.PipelineShaderStageCreateInfo {
	infos := make([]vk.PipelineShaderStageCreateInfo, len(p.Stages))
	for i, s := range p.Stages {
		infos[i] = vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  shaderStageBit(s.Stage),
			Module: s.Handle,
			PName:  VulkanSafeString(s.EntryPoint),
		}
	}
	return infos
}

func (p *VulkanProgram) release(context *VulkanContext) {
	device := context.Device.LogicalDevice
	for i := range p.Stages {
		if p.Stages[i].Handle != vk.NullShaderModule {
			vk.DestroyShaderModule(device, p.Stages[i].Handle, context.Allocator)
			p.Stages[i].Handle = vk.NullShaderModule
		}
	}
	if p.PipelineLayout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(device, p.PipelineLayout, context.Allocator)
		p.PipelineLayout = vk.NullPipelineLayout
	}
	if p.SetLayout != nil {
		vk.DestroyDescriptorSetLayout(device, p.SetLayout, context.Allocator)
		p.SetLayout = nil
	}
}

func (p *VulkanProgram) Destroy(context *VulkanContext) {
	p.release(context)
	p.Err = errors.New("program destroyed")
}
