// Package null implements a render context that executes nothing. It keeps
// enough bookkeeping for tests to observe what reached the backend.
package null

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type Context struct {
	mu       sync.Mutex
	open     bool
	frames   uint64
	commands int
	items    int
	live     map[any]struct{}
}

func New() *Context {
	return &Context{live: make(map[any]struct{})}
}

func (c *Context) CreateWindow(host platform.WindowHost, width, height uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
	core.LogDebug("null backend ready (%dx%d)", width, height)
	return nil
}

func (c *Context) DestroyWindow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	clear(c.live)
}

func (c *Context) PrepareFrame() {}

func (c *Context) ProcessCommandList(cmds []metadata.RenderCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cmd := range cmds {
		c.commands++
		switch cmd := cmd.(type) {
		case metadata.CreateVertexBufferCmd:
			c.live[cmd.Handle] = struct{}{}
		case metadata.DeleteVertexBufferCmd:
			delete(c.live, cmd.Handle)
		case metadata.CreateIndexBufferCmd:
			c.live[cmd.Handle] = struct{}{}
		case metadata.DeleteIndexBufferCmd:
			delete(c.live, cmd.Handle)
		case metadata.CreateShaderCmd:
			c.live[cmd.Handle] = struct{}{}
		case metadata.DeleteShaderCmd:
			delete(c.live, cmd.Handle)
		case metadata.CreateProgramCmd:
			c.live[cmd.Handle] = struct{}{}
		case metadata.LinkProgramCmd:
			c.live[cmd.Handle] = struct{}{}
		case metadata.DeleteProgramCmd:
			delete(c.live, cmd.Handle)
		case metadata.CreateTextureCmd:
			c.live[cmd.Handle] = struct{}{}
		case metadata.DeleteTextureCmd:
			delete(c.live, cmd.Handle)
		case metadata.CreateFramebufferCmd:
			c.live[cmd.Handle] = struct{}{}
		case metadata.DeleteFramebufferCmd:
			delete(c.live, cmd.Handle)
		}
	}
}

func (c *Context) Frame(frame *metadata.Frame, transient metadata.TransientBacking) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames++
	c.items += frame.ItemCount()
	return nil
}

func (c *Context) AdjustProjectionMatrix(m mgl32.Mat4) mgl32.Mat4 {
	return m
}

func (c *Context) HasFlippedViewport() bool {
	return false
}

// Frames is the number of frames rendered.
func (c *Context) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Commands is the number of resource commands processed.
func (c *Context) Commands() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commands
}

// Items is the number of render items seen over all frames.
func (c *Context) Items() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

// Live reports whether a resource with handle h currently exists.
func (c *Context) Live(h any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live[h]
	return ok
}

// LiveCount is the number of resources currently alive.
func (c *Context) LiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}
