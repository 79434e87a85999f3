//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed. SCENE selects the scene, BACKEND the backend.
func (Run) Testbed() error {
	if err := buildShaders(); err != nil {
		return err
	}
	args := []string{"run", ".", "-hot-reload"}
	if scene := os.Getenv("SCENE"); scene != "" {
		args = append(args, "-scene", scene)
	}
	if backend := os.Getenv("BACKEND"); backend != "" {
		args = append(args, "-backend", backend)
	}
	fmt.Println("Run testbed...")
	if _, err := executeCmd("go", withArgs(args...), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs every scene for a few hundred frames on the null backend.
func (Run) Headless() error {
	for _, scene := range []string{"triangle", "quad", "transient", "postprocess", "deferred", "uniform"} {
		if _, err := executeCmd("go", withArgs("run", ".", "-backend", "null", "-frames", "300", "-scene", scene)); err != nil {
			return err
		}
	}
	return nil
}

// Runs the unit tests.
func Test() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}
