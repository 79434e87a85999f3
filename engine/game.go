package engine

import (
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	State             interface{}
	FnInitialize      Initialize
	FnUpdate          Update
	FnRender          Render
	FnOnResize        OnResize
	FnOnKey           OnKey
	FnShutdown        Shutdown
}

type Initialize func(r *renderer.Renderer) error
type Update func(deltaTime float64) error
type Render func(r *renderer.Renderer, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type OnKey func(key core.Key, mods core.Modifier, pressed bool)
type Shutdown func(r *renderer.Renderer) error
