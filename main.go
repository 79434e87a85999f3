/*
This is an example of application that will use the
engine package to run one of the testbed scenes
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/testbed"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML renderer configuration")
		backend    = flag.String("backend", "", "Backend to use: vulkan, opengl or null")
		scene      = flag.String("scene", "triangle", "Scene to run: "+strings.Join(testbed.SceneNames(), ", "))
		frames     = flag.Uint64("frames", 0, "Stop after that many frames, 0 runs until the window is closed")
		hotReload  = flag.Bool("hot-reload", false, "Recompile shaders when their sources change")
	)
	flag.Parse()

	config := engine.DefaultApplicationConfig()
	if *configPath != "" {
		cfg, err := core.LoadConfig(*configPath)
		if err != nil {
			core.LogFatal("%s", err)
		}
		config.Renderer = cfg
	}
	if *backend != "" {
		config.Renderer.Backend = *backend
	}
	if *hotReload {
		config.Renderer.Shaders.HotReload = true
	}
	config.MaxFrames = *frames
	config.Renderer.Title = fmt.Sprintf("%s - %s", config.Renderer.Title, *scene)

	tb, err := testbed.NewTestGame(config, *scene)
	if err != nil {
		core.LogFatal("%s", err)
	}

	engine, err := engine.New(tb.Game)
	if err != nil {
		panic(err)
	}

	if err := engine.Initialize(); err != nil {
		core.LogError("%s", err)
		os.Exit(1)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	// start shutdown goroutine
	go func() {
		// capture sigterm and other system call here
		<-sigCh
		engine.Shutdown()
	}()

	// run engine
	if err := engine.Run(); err != nil {
		core.LogError("%s", err)
		os.Exit(1)
	}
}
