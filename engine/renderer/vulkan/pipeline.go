package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

/**
 * @brief The part of the render state baked into a pipeline. Scissor and
 * viewport are dynamic and not part of it.
 */
type pipelineState struct {
	cullEnabled bool
	winding     metadata.Winding
	polygon     metadata.PolygonMode
	depthTest   bool
	depthWrite  bool
	colorWrite  bool
	blend       metadata.BlendState
}

// newPipelineState drops the fields that have no effect so that equivalent
// states share a pipeline.
func newPipelineState(rs metadata.RenderState) pipelineState {
	ps := pipelineState{
		cullEnabled: rs.Cull.Enabled,
		winding:     rs.Cull.Winding,
		polygon:     rs.PolygonMode,
		depthTest:   rs.Depth.Test,
		depthWrite:  rs.Depth.Write,
		colorWrite:  rs.ColorWrite,
		blend:       rs.Blend,
	}
	if !ps.cullEnabled {
		ps.winding = metadata.WindingCCW
	}
	if !ps.blend.Enabled {
		ps.blend = metadata.BlendState{}
	}
	return ps
}

type pipelineKey struct {
	program metadata.ProgramHandle
	decl    uint64
	pass    passShape
	state   pipelineState
}

/**
 * @brief Holds a Vulkan pipeline. The layout belongs to the program it was
 * built from.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
}

/**
 * @brief Everything needed to build a graphics pipeline for one key.
 */
type VulkanPipelineConfig struct {
	/** @brief A render pass of the target shape. */
	Renderpass *VulkanRenderpass
	Program    *VulkanProgram
	Decl       metadata.VertexDecl
	State      pipelineState
	/** @brief Whether the device can rasterize lines. */
	FillModeNonSolid bool
}

func blendOp(eq metadata.BlendEquation) vk.BlendOp {
	switch eq {
	case metadata.BlendEquationSubtract:
		return vk.BlendOpSubtract
	case metadata.BlendEquationReverseSubtract:
		return vk.BlendOpReverseSubtract
	case metadata.BlendEquationMin:
		return vk.BlendOpMin
	case metadata.BlendEquationMax:
		return vk.BlendOpMax
	}
	return vk.BlendOpAdd
}

func blendFactor(f metadata.BlendFunc) vk.BlendFactor {
	switch f {
	case metadata.BlendFuncZero:
		return vk.BlendFactorZero
	case metadata.BlendFuncOne:
		return vk.BlendFactorOne
	case metadata.BlendFuncSrcColor:
		return vk.BlendFactorSrcColor
	case metadata.BlendFuncOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case metadata.BlendFuncDstColor:
		return vk.BlendFactorDstColor
	case metadata.BlendFuncOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case metadata.BlendFuncSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case metadata.BlendFuncOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case metadata.BlendFuncDstAlpha:
		return vk.BlendFactorDstAlpha
	case metadata.BlendFuncOneMinusDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	case metadata.BlendFuncConstantColor:
		return vk.BlendFactorConstantColor
	case metadata.BlendFuncOneMinusConstantColor:
		return vk.BlendFactorOneMinusConstantColor
	case metadata.BlendFuncSrcAlphaSaturate:
		return vk.BlendFactorSrcAlphaSaturate
	}
	return vk.BlendFactorOne
}

func frontFace(w metadata.Winding) vk.FrontFace {
	if w == metadata.WindingCW {
		return vk.FrontFaceClockwise
	}
	return vk.FrontFaceCounterClockwise
}

func colorWriteMask(enabled bool) vk.ColorComponentFlags {
	if !enabled {
		return 0
	}
	return vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit |
		vk.ColorComponentBBit | vk.ColorComponentABit)
}

// colorBlendAttachment is shared by every colour attachment of the pass.
func colorBlendAttachment(ps pipelineState) vk.PipelineColorBlendAttachmentState {
	att := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: vk.BlendFactorOne,
		DstColorBlendFactor: vk.BlendFactorZero,
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: vk.BlendFactorOne,
		DstAlphaBlendFactor: vk.BlendFactorZero,
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      colorWriteMask(ps.colorWrite),
	}
	if ps.blend.Enabled {
		att.BlendEnable = vk.True
		att.SrcColorBlendFactor = blendFactor(ps.blend.SrcRGB)
		att.DstColorBlendFactor = blendFactor(ps.blend.DstRGB)
		att.ColorBlendOp = blendOp(ps.blend.EquationRGB)
		att.SrcAlphaBlendFactor = blendFactor(ps.blend.SrcAlpha)
		att.DstAlphaBlendFactor = blendFactor(ps.blend.DstAlpha)
		att.AlphaBlendOp = blendOp(ps.blend.EquationAlpha)
	}
	return att
}

func NewGraphicsPipeline(context *VulkanContext, config *VulkanPipelineConfig) (*VulkanPipeline, error) {
	program := config.Program
	if !program.Usable() {
		return nil, fmt.Errorf("program is not usable")
	}
	outPipeline := &VulkanPipeline{PipelineLayout: program.PipelineLayout}

	binding, attributes, err := vertexInputDescriptions(config.Decl, &program.Layout)
	if err != nil {
		return nil, err
	}

	// Viewport and scissor are dynamic, only the counts matter here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               frontFace(config.State.winding),
		DepthBiasEnable:         vk.False,
	}
	if config.State.polygon == metadata.PolygonModeLine {
		if config.FillModeNonSolid {
			rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
		} else {
			core.WarnOnce("vulkan:fill_mode_non_solid", "device cannot rasterize lines, drawing wireframe items filled")
		}
	}
	if config.State.cullEnabled {
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       boolToVk(config.State.depthTest),
		DepthWriteEnable:      boolToVk(config.State.depthWrite),
		DepthCompareOp:        vk.CompareOpLessOrEqual,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}

	attachments := make([]vk.PipelineColorBlendAttachmentState, config.Renderpass.Shape.count)
	for i := range attachments {
		attachments[i] = colorBlendAttachment(config.State)
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}
	if len(attributes) > 0 {
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{binding}
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	stages := program.StageCreateInfos()
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		PTessellationState:  nil,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.Renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	result := vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pPipelines)
	if !VulkanResultIsSuccess(result) {
		return nil, resultError("vkCreateGraphicsPipelines", result)
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("Graphics pipeline created (%d stages, %d attributes).", len(stages), len(attributes))
	return outPipeline, nil
}

// Destroy releases the pipeline only; the layout is destroyed with the
// program.
func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, context.Allocator)
		pipeline.Handle = vk.NullPipeline
	}
}

func (pipeline *VulkanPipeline) Bind(commandBuffer *VulkanCommandBuffer, bindPoint vk.PipelineBindPoint) {
	vk.CmdBindPipeline(commandBuffer.Handle, bindPoint, pipeline.Handle)
}
