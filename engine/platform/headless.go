package platform

import (
	"sync"

	"github.com/spaghettifunk/prism/engine/core"
)

// HeadlessHost is a window host without a window. It backs the null
// backend and lets tests drive input and resize events by hand.
type HeadlessHost struct {
	mu        sync.Mutex
	title     string
	width     uint32
	height    uint32
	scale     float32
	created   bool
	closed    bool
	resized   bool
	polls     int
	callbacks *core.InputCallbacks
}

func NewHeadlessHost() *HeadlessHost {
	return &HeadlessHost{scale: 1}
}

func (h *HeadlessHost) CreateWindow(title string, width, height uint32, api ClientAPI) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if width == 0 || height == 0 {
		return core.NewInitError(core.ErrWindowCreation, "invalid window size %dx%d", width, height)
	}
	h.title = title
	h.width = width
	h.height = height
	h.created = true
	h.closed = false
	return nil
}

func (h *HeadlessHost) DestroyWindow() {
	h.mu.Lock()
	h.created = false
	h.closed = true
	h.mu.Unlock()
}

func (h *HeadlessHost) PollEvents() {
	h.mu.Lock()
	h.polls++
	h.mu.Unlock()
}

// Polls returns how many times PollEvents ran.
func (h *HeadlessHost) Polls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.polls
}

func (h *HeadlessHost) IsWindowClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// Close marks the window as closed, as if the user dismissed it.
func (h *HeadlessHost) Close() {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
}

func (h *HeadlessHost) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.title
}

func (h *HeadlessHost) WindowSize() (uint32, uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.width, h.height
}

func (h *HeadlessHost) FramebufferSize() (uint32, uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return uint32(float32(h.width) * h.scale), uint32(float32(h.height) * h.scale)
}

func (h *HeadlessHost) WindowScale() (float32, float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scale, h.scale
}

// SetScale changes the content scale, resizing the framebuffer.
func (h *HeadlessHost) SetScale(scale float32) {
	h.mu.Lock()
	h.scale = scale
	h.resized = true
	h.mu.Unlock()
}

// Resize changes the logical window size and raises the resize flag.
func (h *HeadlessHost) Resize(width, height uint32) {
	h.mu.Lock()
	h.width = width
	h.height = height
	h.resized = true
	h.mu.Unlock()
}

func (h *HeadlessHost) FramebufferResized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.resized
	h.resized = false
	return r
}

func (h *HeadlessHost) SetInputCallbacks(callbacks *core.InputCallbacks) {
	h.mu.Lock()
	h.callbacks = callbacks
	h.mu.Unlock()
}

func (h *HeadlessHost) input() *core.InputCallbacks {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.callbacks
}

func (h *HeadlessHost) EmitKey(key core.Key, mods core.Modifier, pressed bool) {
	h.input().Key(key, mods, pressed)
}

func (h *HeadlessHost) EmitChar(text string) {
	h.input().Char(text)
}

func (h *HeadlessHost) EmitMouseButton(button core.MouseButton, pressed bool) {
	h.input().MouseButton(button, pressed)
}

func (h *HeadlessHost) EmitMouseMove(x, y float64) {
	h.input().MouseMove(x, y)
}

func (h *HeadlessHost) EmitMouseScroll(dx, dy float64) {
	h.input().MouseScroll(dx, dy)
}
