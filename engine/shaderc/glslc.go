package shaderc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/spirv"
)

// GLSLCCompiler compiles Vulkan GLSL through the glslc executable. It only
// produces SPIR-V; the OpenGL backend then loads it with ARB_gl_spirv.
type GLSLCCompiler struct {
	// Path of the glslc binary, looked up in PATH when empty.
	Path string
	// TempDir receives the intermediate files, os.TempDir() when empty.
	TempDir string
	Timeout time.Duration
}

func NewGLSLCCompiler() *GLSLCCompiler {
	return &GLSLCCompiler{Path: "glslc", Timeout: 30 * time.Second}
}

func glslcStage(stage metadata.ShaderStage) string {
	switch stage {
	case metadata.ShaderStageVertex:
		return "vert"
	case metadata.ShaderStageGeometry:
		return "geom"
	default:
		return "frag"
	}
}

func (c *GLSLCCompiler) Compile(stage metadata.ShaderStage, source string, defines []string) (Result, error) {
	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	base := filepath.Join(dir, "prism-"+uuid.NewString())
	in, out := base+".glsl", base+".spv"
	if err := os.WriteFile(in, []byte(source), 0o600); err != nil {
		return Result{}, fmt.Errorf("failed to write shader source: %w", err)
	}
	defer os.Remove(in)
	defer os.Remove(out)

	args := []string{"-fshader-stage=" + glslcStage(stage), "--target-env=vulkan1.1"}
	for _, d := range defines {
		args = append(args, "-D"+d)
	}
	args = append(args, "-o", out, in)

	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	path := c.Path
	if path == "" {
		path = "glslc"
	}
	cmd := exec.CommandContext(ctx, path, args...)
	var b bytes.Buffer
	cmd.Stdout = &b
	cmd.Stderr = &b
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("error executing %s: %w", path, err)
		}
		return Result{}, compileError(stage, "glslc failed", b.String())
	}

	code, err := os.ReadFile(out)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read glslc output: %w", err)
	}
	words, err := spirv.BytesToWords(code)
	if err != nil {
		return Result{}, compileError(stage, "glslc produced an invalid module", err.Error())
	}
	if b.Len() > 0 {
		core.LogWarn("glslc (%s): %s", stage, b.String())
	}
	return Result{EntryPoint: "main", Binary: words}, nil
}
