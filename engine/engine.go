package engine

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released the renderer
	EngineStageShutdown
)

/**
 * @brief Engine drives a Game: it owns the renderer, ticks the game once
 * per frame and ends the frame on the renderer.
 *
 * Shutdown may be called from any goroutine; everything else belongs to the
 * goroutine that called Initialize.
 */
type Engine struct {
	currentStage Stage
	gameInstance *Game
	renderer     *renderer.Renderer
	isRunning    atomic.Bool
	isSuspended  bool
	width        uint32
	height       uint32
	clock        *core.Clock
	lastTime     time.Duration
	frames       uint64
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, errors.New("game has no application config")
	}
	if g.FnUpdate == nil || g.FnRender == nil {
		return nil, errors.New("game must provide update and render functions")
	}
	return &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		clock:        core.NewClock(),
		width:        g.ApplicationConfig.Renderer.Width,
		height:       g.ApplicationConfig.Renderer.Height,
	}, nil
}

func (e *Engine) Initialize() error {
	if e.currentStage != EngineStageUninitialized {
		return fmt.Errorf("engine already initialized")
	}
	e.currentStage = EngineStageInitializing

	callbacks := &core.InputCallbacks{OnKey: e.onKey}
	r, err := renderer.InitWithConfig(e.gameInstance.ApplicationConfig.Renderer, callbacks)
	if err != nil {
		e.currentStage = EngineStageUninitialized
		return err
	}
	e.renderer = r
	e.width, e.height = r.Size()

	if fn := e.gameInstance.FnInitialize; fn != nil {
		if err := fn(r); err != nil {
			r.Shutdown()
			e.currentStage = EngineStageUninitialized
			return err
		}
	}
	if fn := e.gameInstance.FnOnResize; fn != nil {
		if err := fn(e.width, e.height); err != nil {
			return err
		}
	}
	e.isRunning.Store(true)
	e.currentStage = EngineStageInitialized
	return nil
}

// Run loops until the window closes, the device is lost, MaxFrames is
// reached or Shutdown is called. The renderer is released before it
// returns.
func (e *Engine) Run() error {
	if e.currentStage != EngineStageInitialized {
		return fmt.Errorf("engine is not initialized")
	}
	e.currentStage = EngineStageRunning
	defer e.shutdown()

	config := e.gameInstance.ApplicationConfig
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := (currentTime - e.lastTime).Seconds()
		frameStart := currentTime

		e.checkResize()
		if !e.isSuspended {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("Game update failed, shutting down: %s", err)
				return err
			}
			// Call the game's render routine.
			if err := e.gameInstance.FnRender(e.renderer, delta); err != nil {
				core.LogError("Game render failed, shutting down: %s", err)
				return err
			}
		}
		if !e.renderer.Frame() {
			e.isRunning.Store(false)
		}
		e.frames++
		e.lastTime = currentTime

		if config.MaxFrames > 0 && e.frames >= config.MaxFrames {
			e.isRunning.Store(false)
		}

		// Give the rest of the frame back to the OS.
		if config.TargetFrameTime > 0 {
			e.clock.Update()
			if remaining := config.TargetFrameTime - (e.clock.Elapsed() - frameStart); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return nil
}

// Shutdown asks the loop to stop after the current frame.
func (e *Engine) Shutdown() {
	e.isRunning.Store(false)
}

func (e *Engine) shutdown() {
	e.currentStage = EngineStageShuttingDown
	if fn := e.gameInstance.FnShutdown; fn != nil {
		if err := fn(e.renderer); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}
	e.renderer.Shutdown()
	stats := e.renderer.Stats()
	core.LogInfo("Engine stopped after %d frames (%.1f fps, %.2f ms).", e.frames, stats.FPS, stats.FrameTimeMS)
	e.currentStage = EngineStageShutdown
}

// Stage reports where the engine is in its lifecycle.
func (e *Engine) Stage() Stage {
	return e.currentStage
}

// Frames is the number of frames the loop has completed.
func (e *Engine) Frames() uint64 {
	return e.frames
}

// GetFramebufferSize returns the width and height (in this order) of the
// window framebuffer.
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

func (e *Engine) onKey(key core.Key, mods core.Modifier, pressed bool) {
	if pressed && key == core.KeyEscape {
		core.LogInfo("Escape pressed, shutting down.")
		e.Shutdown()
		// Block anything else from processing this.
		return
	}
	if fn := e.gameInstance.FnOnKey; fn != nil {
		fn(key, mods, pressed)
	}
}

func (e *Engine) checkResize() {
	width, height := e.renderer.Size()
	// Check if different. If so, trigger a resize event.
	if width == e.width && height == e.height {
		return
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if fn := e.gameInstance.FnOnResize; fn != nil {
		if err := fn(width, height); err != nil {
			core.LogError("game resize: %s", err)
		}
	}
}
