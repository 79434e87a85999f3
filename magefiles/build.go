//go:build mage

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/spaghettifunk/prism/engine/shaderc"
)

type Build mg.Namespace

const (
	shaderDir = "shaders"
	spirvDir  = "shaders/spv"
)

// Compiles every WGSL shader to SPIR-V under shaders/spv. Fails on the first
// shader that does not compile.
func (Build) Shaders() error {
	return buildShaders()
}

// Builds the example program into bin/prism.
func (Build) Testbed() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("build", "-o", "bin/prism", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	sources, err := filepath.Glob(filepath.Join(shaderDir, "*.wgsl"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(spirvDir, 0o755); err != nil {
		return err
	}

	compiler := shaderc.NewNagaCompiler()
	var errs []error
	for _, path := range sources {
		stage, err := shaderc.StageFromPath(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res, err := shaderc.CompileFile(compiler, path, stage, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		out := filepath.Join(spirvDir, strings.TrimSuffix(filepath.Base(path), ".wgsl")+".spv")
		if err := writeSPIRV(out, res.Binary); err != nil {
			errs = append(errs, err)
			continue
		}
		if mg.Verbose() {
			fmt.Printf("%s -> %s (%d words)\n", path, out, len(res.Binary))
		}
	}
	fmt.Printf("Compiled %d of %d shaders\n", len(sources)-len(errs), len(sources))
	return errors.Join(errs...)
}

func writeSPIRV(path string, words []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, words); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
