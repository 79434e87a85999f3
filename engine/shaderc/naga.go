package shaderc

import (
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/ir"
	nagaspirv "github.com/gogpu/naga/spirv"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/spirv"
)

// NagaCompiler compiles WGSL with naga, in process. Every compilation
// yields SPIR-V with debug names, needed for reflection, and GLSL text.
type NagaCompiler struct {
	// Validate runs the naga IR validator before code generation.
	Validate bool
	// SkipGLSL disables GLSL generation, for Vulkan only setups.
	SkipGLSL bool
}

func NewNagaCompiler() *NagaCompiler {
	return &NagaCompiler{Validate: true}
}

func (c *NagaCompiler) Compile(stage metadata.ShaderStage, source string, defines []string) (Result, error) {
	src, err := Preprocess(source, defines)
	if err != nil {
		return Result{}, compileError(stage, "preprocessing failed", err.Error())
	}

	ast, err := naga.Parse(src)
	if err != nil {
		return Result{}, compileError(stage, "parse failed", err.Error())
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return Result{}, compileError(stage, "lowering failed", err.Error())
	}
	if c.Validate {
		errs, err := naga.Validate(module)
		if err != nil {
			return Result{}, compileError(stage, "validation failed", err.Error())
		}
		if len(errs) > 0 {
			msgs := make([]string, 0, len(errs))
			for _, e := range errs {
				msgs = append(msgs, e.Error())
			}
			return Result{}, compileError(stage, "validation failed", strings.Join(msgs, "\n"))
		}
	}

	entry, err := entryPointFor(module, stage)
	if err != nil {
		return Result{}, compileError(stage, err.Error(), "")
	}

	code, err := naga.GenerateSPIRV(module, nagaspirv.Options{
		Version: nagaspirv.Version1_3,
		Debug:   true,
	})
	if err != nil {
		return Result{}, compileError(stage, "SPIR-V generation failed", err.Error())
	}
	words, err := spirv.BytesToWords(code)
	if err != nil {
		return Result{}, compileError(stage, "SPIR-V generation failed", err.Error())
	}

	res := Result{EntryPoint: entry, Binary: words}
	if !c.SkipGLSL {
		text, _, err := glsl.Compile(module, glsl.Options{
			LangVersion: glsl.Version430,
			EntryPoint:  entry,
			BindingMap:  flatBindings(module),
		})
		if err != nil {
			return Result{}, compileError(stage, "GLSL generation failed", err.Error())
		}
		res.GLSL = text
	}
	core.LogDebug("compiled %s entry point %q (%d words)", stage, entry, len(words))
	return res, nil
}

func entryPointFor(module *ir.Module, stage metadata.ShaderStage) (string, error) {
	var want ir.ShaderStage
	switch stage {
	case metadata.ShaderStageVertex:
		want = ir.StageVertex
	case metadata.ShaderStageFragment:
		want = ir.StageFragment
	default:
		return "", fmt.Errorf("WGSL has no %s stage", stage)
	}
	for _, ep := range module.EntryPoints {
		if ep.Stage == want {
			return ep.Name, nil
		}
	}
	return "", fmt.Errorf("no %s entry point", stage)
}

// flatBindings keeps the WGSL binding numbers as GL binding points. A
// combined sampler takes its texture's binding, which is also its texture
// unit.
func flatBindings(module *ir.Module) map[glsl.BindingMapKey]uint8 {
	m := make(map[glsl.BindingMapKey]uint8)
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		if gv.Binding.Group != 0 {
			core.WarnOnce("glsl-group:"+gv.Name, "binding group %d of %q is flattened into group 0", gv.Binding.Group, gv.Name)
		}
		m[glsl.BindingMapKey{Group: gv.Binding.Group, Binding: gv.Binding.Binding}] = uint8(gv.Binding.Binding)
	}
	return m
}
