// Package shaderc turns shader source text into the intermediate binary
// consumed by the renderer backends.
package shaderc

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// CompileError carries the compiler diagnostic of a failed compilation.
type CompileError = core.ShaderError

/**
 * @brief The output of one stage compilation.
 *
 * Binary is SPIR-V. GLSL, when not empty, is the same stage cross compiled
 * to GLSL 4.30 core for the OpenGL backend.
 */
type Result struct {
	EntryPoint string
	Binary     []uint32
	GLSL       string
}

// Compiler compiles one shader stage. defines are NAME or NAME=VALUE
// entries. Failures are returned as *CompileError.
type Compiler interface {
	Compile(stage metadata.ShaderStage, source string, defines []string) (Result, error)
}

// StageInfo converts a compilation result into what CreateShader and
// CreateProgram expect.
func StageInfo(res Result, stage metadata.ShaderStage) metadata.ShaderStageInfo {
	return metadata.ShaderStageInfo{
		Stage:      stage,
		EntryPoint: res.EntryPoint,
		Code:       res.Binary,
		Source:     res.GLSL,
	}
}

func compileError(stage metadata.ShaderStage, message, debugLog string) *CompileError {
	return &CompileError{Stage: stage.String(), Message: message, DebugLog: debugLog}
}
