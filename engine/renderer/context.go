package renderer

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// RenderContext is the backend contract. Every method is called from the
// render thread; CreateWindow runs before anything else and DestroyWindow
// last.
type RenderContext interface {
	// CreateWindow initialises the backend against a window the host has
	// already opened.
	CreateWindow(host platform.WindowHost, width, height uint32) error
	DestroyWindow()

	// PrepareFrame runs once per rendered frame before any command list,
	// backends react to framebuffer resizes here.
	PrepareFrame()
	ProcessCommandList(cmds []metadata.RenderCommand)
	// Frame uploads the transient arenas, executes every render queue and
	// presents. Only the fatal core.ErrDeviceLost and core.ErrScratchExhausted
	// are returned, other failures are logged and skipped.
	Frame(frame *metadata.Frame, transient metadata.TransientBacking) error

	AdjustProjectionMatrix(m mgl32.Mat4) mgl32.Mat4
	HasFlippedViewport() bool
}

type BackendKind uint8

const (
	BackendNull BackendKind = iota
	BackendVulkan
	BackendOpenGL
)

func (k BackendKind) String() string {
	switch k {
	case BackendNull:
		return "null"
	case BackendVulkan:
		return "vulkan"
	case BackendOpenGL:
		return "opengl"
	default:
		return fmt.Sprintf("backend(%d)", uint8(k))
	}
}

// ClientAPI is the kind of window the backend needs from the host.
func (k BackendKind) ClientAPI() platform.ClientAPI {
	if k == BackendOpenGL {
		return platform.ClientAPIOpenGL
	}
	return platform.ClientAPINone
}

func ParseBackendKind(s string) (BackendKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "null", "none", "noop":
		return BackendNull, nil
	case "vulkan", "vk":
		return BackendVulkan, nil
	case "opengl", "gl":
		return BackendOpenGL, nil
	}
	return BackendNull, fmt.Errorf("%w: %q", core.ErrUnsupportedBackend, s)
}
