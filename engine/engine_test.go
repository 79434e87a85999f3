package engine

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGame struct {
	initialized bool
	updates     int
	renders     int
	resizes     [][2]uint32
	keys        []core.Key
	shutdown    bool
}

func newCountingGame(maxFrames uint64) (*Game, *countingGame) {
	config := DefaultApplicationConfig()
	config.Renderer.Backend = "null"
	config.Renderer.Width = 320
	config.Renderer.Height = 200
	config.MaxFrames = maxFrames

	state := &countingGame{}
	g := &Game{
		ApplicationConfig: config,
		State:             state,
		FnInitialize: func(r *renderer.Renderer) error {
			state.initialized = true
			return nil
		},
		FnUpdate: func(float64) error {
			state.updates++
			return nil
		},
		FnRender: func(r *renderer.Renderer, _ float64) error {
			state.renders++
			r.StartRenderQueue(metadata.InvalidFramebuffer)
			return nil
		},
		FnOnResize: func(width, height uint32) error {
			state.resizes = append(state.resizes, [2]uint32{width, height})
			return nil
		},
		FnOnKey: func(key core.Key, _ core.Modifier, pressed bool) {
			if pressed {
				state.keys = append(state.keys, key)
			}
		},
		FnShutdown: func(*renderer.Renderer) error {
			state.shutdown = true
			return nil
		},
	}
	return g, state
}

func TestNewRequiresCallbacks(t *testing.T) {
	_, err := New(&Game{ApplicationConfig: DefaultApplicationConfig()})
	assert.Error(t, err)
	_, err = New(nil)
	assert.Error(t, err)
}

func TestRunStopsAfterMaxFrames(t *testing.T) {
	g, state := newCountingGame(5)
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.Equal(t, EngineStageInitialized, e.Stage())
	assert.True(t, state.initialized)
	assert.Equal(t, [][2]uint32{{320, 200}}, state.resizes)

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(5), e.Frames())
	assert.Equal(t, 5, state.updates)
	assert.Equal(t, 5, state.renders)
	assert.True(t, state.shutdown)
	assert.Equal(t, EngineStageShutdown, e.Stage())
}

func TestRunRequiresInitialize(t *testing.T) {
	g, _ := newCountingGame(1)
	e, err := New(g)
	require.NoError(t, err)
	assert.Error(t, e.Run())
}

func TestEscapeStopsTheLoop(t *testing.T) {
	g, state := newCountingGame(100)
	render := g.FnRender
	g.FnRender = func(r *renderer.Renderer, delta float64) error {
		host := r.Host().(*platform.HeadlessHost)
		if state.renders == 2 {
			host.EmitKey(core.KeyA, core.ModifierNone, true)
			host.EmitKey(core.KeyEscape, core.ModifierNone, true)
		}
		return render(r, delta)
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())

	assert.Equal(t, uint64(3), e.Frames())
	// Escape is consumed by the engine.
	assert.Equal(t, []core.Key{core.KeyA}, state.keys)
}

func TestResizeAndSuspend(t *testing.T) {
	g, state := newCountingGame(4)
	render := g.FnRender
	g.FnRender = func(r *renderer.Renderer, delta float64) error {
		host := r.Host().(*platform.HeadlessHost)
		switch state.renders {
		case 0:
			host.Resize(640, 480)
		case 1:
			host.Resize(0, 0)
		}
		return render(r, delta)
	}

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())

	assert.Equal(t, [][2]uint32{{320, 200}, {640, 480}}, state.resizes)
	// Frames after the minimization skip the game.
	assert.Equal(t, 2, state.renders)
	assert.Equal(t, uint64(4), e.Frames())
}

func TestUpdateErrorStopsRun(t *testing.T) {
	g, state := newCountingGame(0)
	boom := errors.New("boom")
	g.FnUpdate = func(float64) error { return boom }

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	assert.ErrorIs(t, e.Run(), boom)
	assert.True(t, state.shutdown)
}
