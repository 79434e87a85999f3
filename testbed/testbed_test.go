package testbed

import (
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/spaghettifunk/prism/engine/renderer/null"
	"github.com/spaghettifunk/prism/engine/shaderc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompiler struct {
	mu    sync.Mutex
	calls int
}

func (c *fakeCompiler) Compile(stage metadata.ShaderStage, source string, defines []string) (shaderc.Result, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return shaderc.Result{EntryPoint: "main", Binary: []uint32{0x07230203}, GLSL: source}, nil
}

func (c *fakeCompiler) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type harness struct {
	game     *TestGame
	ctx      *null.Context
	host     *platform.HeadlessHost
	renderer *renderer.Renderer
	compiler *fakeCompiler
}

// newHarness drives a TestGame by hand so the null context stays
// observable.
func newHarness(t *testing.T, scene string) *harness {
	t.Helper()
	config := engine.DefaultApplicationConfig()
	config.Renderer.Backend = "null"
	config.Renderer.Width = 320
	config.Renderer.Height = 200
	config.Renderer.WorkerThread = false
	config.Renderer.Shaders = core.ShaderConfig{Directory: "../shaders"}

	game, err := NewTestGame(config, scene)
	require.NoError(t, err)
	h := &harness{
		game:     game,
		ctx:      null.New(),
		host:     platform.NewHeadlessHost(),
		compiler: &fakeCompiler{},
	}
	game.Compiler = h.compiler

	h.renderer, err = renderer.New(h.ctx, h.host, config.Renderer)
	require.NoError(t, err)
	t.Cleanup(h.renderer.Shutdown)

	require.NoError(t, game.FnInitialize(h.renderer))
	require.NoError(t, game.FnOnResize(h.renderer.Size()))
	return h
}

// run records n frames. The first frame only primes the pipeline, so n-1
// frames reach the context.
func (h *harness) run(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, h.game.FnUpdate(1.0/60))
		require.NoError(t, h.game.FnRender(h.renderer, 1.0/60))
		require.True(t, h.renderer.Frame())
	}
}

func TestSceneNames(t *testing.T) {
	assert.Equal(t, []string{"deferred", "postprocess", "quad", "transient", "triangle", "uniform"}, SceneNames())

	_, err := NewScene("teapot")
	assert.ErrorContains(t, err, `unknown scene "teapot"`)

	_, err = NewTestGame(nil, "teapot")
	assert.Error(t, err)
}

func TestScenesRender(t *testing.T) {
	itemsPerFrame := map[string]int{
		"triangle":    1,
		"quad":        1,
		"transient":   1,
		"uniform":     1,
		"postprocess": 2,
		"deferred":    sphereCount + 1 + lightCount,
	}
	for name, items := range itemsPerFrame {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, name)
			assert.Equal(t, name, h.game.Scene().Name())
			assert.Equal(t, 2*len(h.game.Scene().Programs()), h.compiler.Calls())

			h.run(t, 4)
			assert.Equal(t, uint64(3), h.ctx.Frames())
			assert.Equal(t, 3*items, h.ctx.Items())
			assert.NotZero(t, h.ctx.LiveCount())

			require.NoError(t, h.game.FnShutdown(h.renderer))
		})
	}
}

func TestDeferredResizeRebuildsTargets(t *testing.T) {
	h := newHarness(t, "deferred")
	scene := h.game.Scene().(*deferredScene)
	first := scene.framebuffer
	require.True(t, first.IsValid())

	h.run(t, 2)
	assert.True(t, h.ctx.Live(first))

	h.host.Resize(640, 480)
	require.NoError(t, h.game.FnOnResize(h.renderer.Size()))
	assert.NotEqual(t, first, scene.framebuffer)
	info, ok := h.renderer.TextureInfo(scene.textures[gbufferAlbedo])
	require.True(t, ok)
	assert.Equal(t, uint32(640), info.Width)
	assert.Equal(t, uint32(480), info.Height)
	assert.Equal(t, metadata.TextureFormatRGBA32F, info.Format)

	h.run(t, 2)
	assert.False(t, h.ctx.Live(first))
	assert.True(t, h.ctx.Live(scene.framebuffer))
}

func TestCameraInsideLightVolume(t *testing.T) {
	l := pointLight{Radius: lightRadius}
	assert.True(t, cameraInside(l.Position, l))
	l.Position[2] = 10
	assert.False(t, cameraInside(mgl32.Vec3{}, l))
}

func TestOnKeyPausesAndReloads(t *testing.T) {
	h := newHarness(t, "quad")
	scene := h.game.Scene().(*quadScene)

	h.run(t, 1)
	angle := scene.angle
	assert.NotZero(t, angle)

	h.game.FnOnKey(core.KeySpace, core.ModifierNone, true)
	h.run(t, 2)
	assert.Equal(t, angle, scene.angle)

	h.game.FnOnKey(core.KeySpace, core.ModifierNone, false)
	assert.Equal(t, angle, scene.angle)

	before := h.compiler.Calls()
	h.game.FnOnKey(core.KeyR, core.ModifierNone, true)
	assert.Eventually(t, func() bool {
		return h.compiler.Calls() == before+2
	}, time.Second, 5*time.Millisecond)
}

func TestTransientSceneEncodesQuad(t *testing.T) {
	s := &transientScene{}
	vertices := s.vertices()
	require.Len(t, vertices, 4)
	// size starts at 0.35 with a zero clock.
	assert.InDelta(t, -0.35, vertices[0].Position[0], 1e-6)
	assert.InDelta(t, 0.35, vertices[1].Position[1], 1e-6)
	assert.Equal(t, uint32(24), quadDecl.Stride())
}
