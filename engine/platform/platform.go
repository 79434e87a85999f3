package platform

import (
	"runtime"
	"unsafe"

	"github.com/spaghettifunk/prism/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// ClientAPI selects what kind of native surface the host prepares for the
// backend.
type ClientAPI uint8

const (
	// ClientAPINone creates a bare window, the backend brings its own
	// surface (Vulkan).
	ClientAPINone ClientAPI = iota
	// ClientAPIOpenGL creates a window with a GL 4.6 core context.
	ClientAPIOpenGL
)

func (a ClientAPI) String() string {
	switch a {
	case ClientAPINone:
		return "none"
	case ClientAPIOpenGL:
		return "opengl"
	default:
		return "unknown"
	}
}

// WindowHost is the windowing layer a backend renders into. Hosts translate
// their native input events into core enums and dispatch them through the
// installed callbacks during PollEvents.
type WindowHost interface {
	CreateWindow(title string, width, height uint32, api ClientAPI) error
	DestroyWindow()

	PollEvents()
	IsWindowClosed() bool

	WindowSize() (uint32, uint32)
	FramebufferSize() (uint32, uint32)
	WindowScale() (float32, float32)

	// FramebufferResized reports whether the framebuffer changed size since
	// the last call and clears the flag.
	FramebufferResized() bool

	SetInputCallbacks(callbacks *core.InputCallbacks)
}

// VulkanSurfaceHost is implemented by hosts able to back a Vulkan
// swapchain.
type VulkanSurfaceHost interface {
	WindowHost
	// InstanceProcAddr returns the vkGetInstanceProcAddr used to bootstrap
	// the loader.
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	// CreateVulkanSurface returns a VkSurfaceKHR for the window. instance is
	// the native VkInstance.
	CreateVulkanSurface(instance interface{}) (uintptr, error)
}

// GLContextHost is implemented by hosts owning an OpenGL context.
type GLContextHost interface {
	WindowHost
	// MakeContextCurrent binds the context to the calling OS thread.
	MakeContextCurrent()
	ReleaseContext()
	SwapBuffers()
	SwapInterval(interval int)
}
