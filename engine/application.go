package engine

import (
	"time"

	"github.com/spaghettifunk/prism/engine/core"
)

type ApplicationConfig struct {
	// Renderer construction parameters and backend tunables.
	Renderer core.RendererConfig
	// MaxFrames stops the application after that many frames, 0 runs until
	// the window is closed.
	MaxFrames uint64
	// TargetFrameTime gives the remainder of each frame back to the OS when
	// positive.
	TargetFrameTime time.Duration
}

func DefaultApplicationConfig() *ApplicationConfig {
	return &ApplicationConfig{Renderer: core.DefaultConfig()}
}
