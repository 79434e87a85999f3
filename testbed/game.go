package testbed

import (
	"errors"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/shaderc"
	"github.com/spaghettifunk/prism/engine/systems"
)

type TestGame struct {
	*engine.Game
	// Compiler builds the scene programs. nil selects the WGSL compiler.
	Compiler shaderc.Compiler
}

type gameState struct {
	scene  Scene
	ctx    *SceneContext
	paused bool
}

func NewTestGame(config *engine.ApplicationConfig, sceneName string) (*TestGame, error) {
	if config == nil {
		config = engine.DefaultApplicationConfig()
	}
	scene, err := NewScene(sceneName)
	if err != nil {
		return nil, err
	}
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{scene: scene},
		},
	}

	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnRender = tg.Render
	tg.FnOnResize = tg.OnResize
	tg.FnOnKey = tg.OnKey
	tg.FnShutdown = tg.Shutdown

	return tg, nil
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

// Scene is the scene this game runs.
func (g *TestGame) Scene() Scene {
	return g.state().scene
}

func (g *TestGame) Initialize(r *renderer.Renderer) error {
	state := g.state()
	core.LogInfo("initializing testbed scene %s...", state.scene.Name())

	sm, err := systems.NewSystemManager(r, g.ApplicationConfig.Renderer.Shaders, g.Compiler)
	if err != nil {
		return err
	}
	width, height := r.Size()
	state.ctx = &SceneContext{Renderer: r, Systems: sm, Width: width, Height: height}

	if textures := g.ApplicationConfig.Renderer.Textures; textures.Directory != "" {
		if _, err := sm.TextureSystem.LoadDirectory(textures.Directory, textures.HotReload); err != nil {
			core.LogWarn("some textures failed to load: %s", err)
		}
	}

	if err := sm.ShaderSystem.Load(state.scene.Programs()...); err != nil {
		return errors.Join(err, sm.Shutdown())
	}
	if err := state.scene.Initialize(state.ctx); err != nil {
		return errors.Join(err, sm.Shutdown())
	}
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	state := g.state()
	state.ctx.Systems.Update()
	if !state.paused {
		state.scene.Update(deltaTime)
	}
	return nil
}

func (g *TestGame) Render(r *renderer.Renderer, deltaTime float64) error {
	state := g.state()
	return state.scene.Render(state.ctx)
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.state()
	state.ctx.Width, state.ctx.Height = width, height
	return state.scene.Resize(state.ctx, width, height)
}

// OnKey handles R (recompile the scene programs) and Space (pause the
// animation).
func (g *TestGame) OnKey(key core.Key, mods core.Modifier, pressed bool) {
	if !pressed {
		return
	}
	state := g.state()
	switch key {
	case core.KeyR:
		core.LogInfo("reloading %d programs", len(state.scene.Programs()))
		for _, name := range state.scene.Programs() {
			state.ctx.Systems.ShaderSystem.Queue(name)
		}
	case core.KeySpace:
		state.paused = !state.paused
	}
}

func (g *TestGame) Shutdown(r *renderer.Renderer) error {
	state := g.state()
	core.LogInfo("shutting down testbed scene %s", state.scene.Name())
	state.scene.Shutdown(state.ctx)
	return state.ctx.Systems.Shutdown()
}
