package platform

import (
	"sync/atomic"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/prism/engine/core"
)

// GLFWHost is the desktop window host. CreateWindow, PollEvents and
// DestroyWindow must be called from the main thread; the Vulkan surface and
// GL context entry points may be used from the render thread.
type GLFWHost struct {
	Window *glfw.Window

	api       ClientAPI
	callbacks atomic.Pointer[core.InputCallbacks]
	resized   atomic.Bool
	fbWidth   atomic.Uint32
	fbHeight  atomic.Uint32
}

func NewGLFWHost() *GLFWHost {
	return &GLFWHost{}
}

func (h *GLFWHost) CreateWindow(title string, width, height uint32, api ClientAPI) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return core.NewInitError(core.ErrWindowCreation, "glfw init: %s", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	switch api {
	case ClientAPIOpenGL:
		glfw.WindowHint(glfw.ClientAPI, glfw.OpenGLAPI)
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 6)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
		glfw.WindowHint(glfw.OpenGLDebugContext, glfw.True)
	default:
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.
	}

	window, err := glfw.CreateWindow(int(width), int(height), title, nil, nil)
	if err != nil {
		glfw.Terminate()
		core.LogError("failed to create window: %s", err)
		return core.NewInitError(core.ErrWindowCreation, "%s", err)
	}
	h.Window = window
	h.api = api

	if api == ClientAPIOpenGL {
		// The render thread makes the context current on its own.
		glfw.DetachCurrentContext()
	}

	fw, fh := window.GetFramebufferSize()
	h.fbWidth.Store(uint32(fw))
	h.fbHeight.Store(uint32(fh))

	window.SetKeyCallback(h.keyCallback)
	window.SetCharCallback(h.charCallback)
	window.SetMouseButtonCallback(h.mouseButtonCallback)
	window.SetCursorPosCallback(h.cursorPosCallback)
	window.SetScrollCallback(h.scrollCallback)
	window.SetFramebufferSizeCallback(h.framebufferSizeCallback)
	window.Show()

	core.LogDebug("window %q created (%dx%d, api %s)", title, width, height, api)
	return nil
}

func (h *GLFWHost) DestroyWindow() {
	if h.Window == nil {
		return
	}
	h.Window.Destroy()
	h.Window = nil
	glfw.Terminate()
}

func (h *GLFWHost) PollEvents() {
	glfw.PollEvents()
}

func (h *GLFWHost) IsWindowClosed() bool {
	return h.Window == nil || h.Window.ShouldClose()
}

func (h *GLFWHost) WindowSize() (uint32, uint32) {
	w, ht := h.Window.GetSize()
	return uint32(w), uint32(ht)
}

func (h *GLFWHost) FramebufferSize() (uint32, uint32) {
	return h.fbWidth.Load(), h.fbHeight.Load()
}

func (h *GLFWHost) WindowScale() (float32, float32) {
	return h.Window.GetContentScale()
}

func (h *GLFWHost) FramebufferResized() bool {
	return h.resized.Swap(false)
}

func (h *GLFWHost) SetInputCallbacks(callbacks *core.InputCallbacks) {
	h.callbacks.Store(callbacks)
}

func (h *GLFWHost) InstanceProcAddr() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

func (h *GLFWHost) RequiredInstanceExtensions() []string {
	return h.Window.GetRequiredInstanceExtensions()
}

func (h *GLFWHost) CreateVulkanSurface(instance interface{}) (uintptr, error) {
	return h.Window.CreateWindowSurface(instance, nil)
}

func (h *GLFWHost) MakeContextCurrent() {
	h.Window.MakeContextCurrent()
}

func (h *GLFWHost) ReleaseContext() {
	glfw.DetachCurrentContext()
}

func (h *GLFWHost) SwapBuffers() {
	h.Window.SwapBuffers()
}

func (h *GLFWHost) SwapInterval(interval int) {
	glfw.SwapInterval(interval)
}

func (h *GLFWHost) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	h.callbacks.Load().Key(translateKey(key), translateModifiers(mods), action == glfw.Press)
}

func (h *GLFWHost) charCallback(w *glfw.Window, char rune) {
	h.callbacks.Load().Char(string(char))
}

func (h *GLFWHost) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	h.callbacks.Load().MouseButton(translateMouseButton(button), action == glfw.Press)
}

func (h *GLFWHost) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	h.callbacks.Load().MouseMove(xpos, ypos)
}

func (h *GLFWHost) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	h.callbacks.Load().MouseScroll(xoff, yoff)
}

func (h *GLFWHost) framebufferSizeCallback(w *glfw.Window, width, height int) {
	h.fbWidth.Store(uint32(width))
	h.fbHeight.Store(uint32(height))
	h.resized.Store(true)
}
