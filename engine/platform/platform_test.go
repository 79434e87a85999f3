package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateKey(t *testing.T) {
	cases := map[glfw.Key]core.Key{
		glfw.KeyA:          core.KeyA,
		glfw.KeyZ:          core.KeyZ,
		glfw.Key0:          core.Key0,
		glfw.Key7:          core.Key7,
		glfw.KeyF1:         core.KeyF1,
		glfw.KeyF12:        core.KeyF12,
		glfw.KeyEscape:     core.KeyEscape,
		glfw.KeySpace:      core.KeySpace,
		glfw.KeyRightSuper: core.KeyRightSuper,
		glfw.KeyWorld1:     core.KeyUnknown,
		glfw.KeyKP5:        core.KeyUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, translateKey(in), "glfw key %d", in)
	}
}

func TestTranslateModifiers(t *testing.T) {
	assert.Equal(t, core.ModifierNone, translateModifiers(0))
	assert.Equal(t, core.ModifierShift|core.ModifierAlt, translateModifiers(glfw.ModShift|glfw.ModAlt))
	assert.Equal(t, core.ModifierControl|core.ModifierSuper, translateModifiers(glfw.ModControl|glfw.ModSuper))
}

func TestTranslateMouseButton(t *testing.T) {
	assert.Equal(t, core.MouseButtonLeft, translateMouseButton(glfw.MouseButtonLeft))
	assert.Equal(t, core.MouseButtonMiddle, translateMouseButton(glfw.MouseButtonMiddle))
	assert.Equal(t, core.MouseButtonUnknown, translateMouseButton(glfw.MouseButton5))
}

func TestHeadlessHostLifecycle(t *testing.T) {
	h := NewHeadlessHost()
	require.Error(t, h.CreateWindow("bad", 0, 10, ClientAPINone))
	require.NoError(t, h.CreateWindow("headless", 800, 600, ClientAPINone))

	assert.False(t, h.IsWindowClosed())
	assert.Equal(t, "headless", h.Title())
	w, ht := h.WindowSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), ht)

	h.SetScale(2)
	fw, fh := h.FramebufferSize()
	assert.Equal(t, uint32(1600), fw)
	assert.Equal(t, uint32(1200), fh)
	assert.True(t, h.FramebufferResized())
	assert.False(t, h.FramebufferResized())

	h.PollEvents()
	h.PollEvents()
	assert.Equal(t, 2, h.Polls())

	h.Close()
	assert.True(t, h.IsWindowClosed())
}

func TestHeadlessHostDispatchesInput(t *testing.T) {
	h := NewHeadlessHost()
	var (
		keys    []core.Key
		text    string
		pressed bool
		moved   [2]float64
	)
	h.SetInputCallbacks(&core.InputCallbacks{
		OnKey: func(key core.Key, mods core.Modifier, down bool) {
			keys = append(keys, key)
		},
		OnCharInput:   func(s string) { text += s },
		OnMouseButton: func(b core.MouseButton, down bool) { pressed = down },
		OnMouseMove:   func(x, y float64) { moved = [2]float64{x, y} },
	})

	h.EmitKey(core.KeyW, core.ModifierNone, true)
	h.EmitKey(core.KeyEscape, core.ModifierShift, false)
	h.EmitChar("é")
	h.EmitChar("x")
	h.EmitMouseButton(core.MouseButtonLeft, true)
	h.EmitMouseMove(12.5, 3)
	// no scroll callback installed
	h.EmitMouseScroll(0, 1)

	assert.Equal(t, []core.Key{core.KeyW, core.KeyEscape}, keys)
	assert.Equal(t, "éx", text)
	assert.True(t, pressed)
	assert.Equal(t, [2]float64{12.5, 3}, moved)
}
