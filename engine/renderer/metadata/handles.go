package metadata

import (
	"fmt"
	"sync/atomic"
)

// Handles are small value types wrapping a 32 bit index. The zero value of
// every handle type is the invalid sentinel; allocated indices start at 1 and
// are never reused within a process.

type VertexBufferHandle struct{ id uint32 }
type IndexBufferHandle struct{ id uint32 }
type TransientVertexBufferHandle struct{ id uint32 }
type TransientIndexBufferHandle struct{ id uint32 }
type ShaderHandle struct{ id uint32 }
type ProgramHandle struct{ id uint32 }
type TextureHandle struct{ id uint32 }
type FramebufferHandle struct{ id uint32 }

var (
	InvalidVertexBuffer          VertexBufferHandle
	InvalidIndexBuffer           IndexBufferHandle
	InvalidTransientVertexBuffer TransientVertexBufferHandle
	InvalidTransientIndexBuffer  TransientIndexBufferHandle
	InvalidShader                ShaderHandle
	InvalidProgram               ProgramHandle
	InvalidTexture               TextureHandle
	InvalidFramebuffer           FramebufferHandle
)

func handleString(kind string, id uint32) string {
	if id == 0 {
		return kind + "#invalid"
	}
	return fmt.Sprintf("%s#%d", kind, id)
}

func (h VertexBufferHandle) IsValid() bool  { return h.id != 0 }
func (h VertexBufferHandle) Index() uint32  { return h.id }
func (h VertexBufferHandle) String() string { return handleString("vertex_buffer", h.id) }

func (h IndexBufferHandle) IsValid() bool  { return h.id != 0 }
func (h IndexBufferHandle) Index() uint32  { return h.id }
func (h IndexBufferHandle) String() string { return handleString("index_buffer", h.id) }

func (h TransientVertexBufferHandle) IsValid() bool  { return h.id != 0 }
func (h TransientVertexBufferHandle) Index() uint32  { return h.id }
func (h TransientVertexBufferHandle) String() string { return handleString("transient_vb", h.id) }

func (h TransientIndexBufferHandle) IsValid() bool  { return h.id != 0 }
func (h TransientIndexBufferHandle) Index() uint32  { return h.id }
func (h TransientIndexBufferHandle) String() string { return handleString("transient_ib", h.id) }

func (h ShaderHandle) IsValid() bool  { return h.id != 0 }
func (h ShaderHandle) Index() uint32  { return h.id }
func (h ShaderHandle) String() string { return handleString("shader", h.id) }

func (h ProgramHandle) IsValid() bool  { return h.id != 0 }
func (h ProgramHandle) Index() uint32  { return h.id }
func (h ProgramHandle) String() string { return handleString("program", h.id) }

func (h TextureHandle) IsValid() bool  { return h.id != 0 }
func (h TextureHandle) Index() uint32  { return h.id }
func (h TextureHandle) String() string { return handleString("texture", h.id) }

func (h FramebufferHandle) IsValid() bool  { return h.id != 0 }
func (h FramebufferHandle) Index() uint32  { return h.id }
func (h FramebufferHandle) String() string { return handleString("framebuffer", h.id) }

// HandleAllocator hands out monotonic handles of one kind. Safe for
// concurrent use.
type HandleAllocator[H comparable] struct {
	next atomic.Uint32
	wrap func(uint32) H
}

func newHandleAllocator[H comparable](wrap func(uint32) H) *HandleAllocator[H] {
	return &HandleAllocator[H]{wrap: wrap}
}

// Next returns a handle that has never been returned before.
func (a *HandleAllocator[H]) Next() H {
	return a.wrap(a.next.Add(1))
}

// Allocated is the number of handles handed out so far.
func (a *HandleAllocator[H]) Allocated() uint32 {
	return a.next.Load()
}

// HandleAllocators groups one allocator per persistent resource kind.
type HandleAllocators struct {
	VertexBuffers *HandleAllocator[VertexBufferHandle]
	IndexBuffers  *HandleAllocator[IndexBufferHandle]
	Shaders       *HandleAllocator[ShaderHandle]
	Programs      *HandleAllocator[ProgramHandle]
	Textures      *HandleAllocator[TextureHandle]
	Framebuffers  *HandleAllocator[FramebufferHandle]
}

func NewHandleAllocators() *HandleAllocators {
	return &HandleAllocators{
		VertexBuffers: newHandleAllocator(func(id uint32) VertexBufferHandle { return VertexBufferHandle{id} }),
		IndexBuffers:  newHandleAllocator(func(id uint32) IndexBufferHandle { return IndexBufferHandle{id} }),
		Shaders:       newHandleAllocator(func(id uint32) ShaderHandle { return ShaderHandle{id} }),
		Programs:      newHandleAllocator(func(id uint32) ProgramHandle { return ProgramHandle{id} }),
		Textures:      newHandleAllocator(func(id uint32) TextureHandle { return TextureHandle{id} }),
		Framebuffers:  newHandleAllocator(func(id uint32) FramebufferHandle { return FramebufferHandle{id} }),
	}
}
