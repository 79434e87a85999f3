package vulkan

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/prism/engine/core"
)

// The loader is process wide state of the vk package. Every renderer takes
// a reference while it is alive; the entry point is installed by the first
// one and may be replaced once every reference is gone.
var loader struct {
	mu    sync.Mutex
	refs  int
	ready bool
}

func acquireLoader(procAddr unsafe.Pointer) error {
	loader.mu.Lock()
	defer loader.mu.Unlock()

	if !loader.ready {
		if procAddr == nil {
			return fmt.Errorf("vkGetInstanceProcAddr is nil")
		}
		vk.SetGetInstanceProcAddr(procAddr)
		if err := vk.Init(); err != nil {
			return fmt.Errorf("failed to initialize the Vulkan loader: %w", err)
		}
		loader.ready = true
		core.LogDebug("Vulkan loader initialized.")
	}
	loader.refs++
	return nil
}

func releaseLoader() {
	loader.mu.Lock()
	defer loader.mu.Unlock()

	if loader.refs == 0 {
		return
	}
	loader.refs--
	if loader.refs == 0 {
		loader.ready = false
		core.LogDebug("Vulkan loader released.")
	}
}
