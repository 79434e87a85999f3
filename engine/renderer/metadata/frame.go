package metadata

import (
	"github.com/spaghettifunk/prism/engine/containers"
)

// TransientVertexBuffer records where a transient vertex allocation lives
// inside the frame's vertex arena.
type TransientVertexBuffer struct {
	Offset uint32
	Size   uint32
	Decl   VertexDecl
}

type TransientIndexBuffer struct {
	Offset uint32
	Size   uint32
	Type   IndexType
}

/**
 * @brief Frame is the declarative description of one presentation.
 *
 * The submit thread writes into one Frame while the render thread consumes
 * the other. Reset clears all mutable state but keeps the backing arrays.
 */
type Frame struct {
	/** @brief The work in progress render item. */
	Current RenderItem
	/** @brief Resource creations and updates, run before any queue. */
	Pre []RenderCommand
	/** @brief Resource deletions, run after every queue. */
	Post   []RenderCommand
	Queues []RenderQueue

	TransientVertices *containers.LinearArena
	TransientIndices  *containers.LinearArena

	transientVB map[TransientVertexBufferHandle]TransientVertexBuffer
	transientIB map[TransientIndexBufferHandle]TransientIndexBuffer
	nextVB      uint32
	nextIB      uint32

	updated map[any]struct{}
}

func NewFrame(vertexBytes, indexBytes uint32) *Frame {
	f := &Frame{
		TransientVertices: containers.NewLinearArena(vertexBytes),
		TransientIndices:  containers.NewLinearArena(indexBytes),
		transientVB:       make(map[TransientVertexBufferHandle]TransientVertexBuffer),
		transientIB:       make(map[TransientIndexBufferHandle]TransientIndexBuffer),
		updated:           make(map[any]struct{}),
	}
	f.Reset()
	return f
}

// Reset prepares the frame for recording the next one. The initial queue
// targets the swapchain.
func (f *Frame) Reset() {
	f.Current = NewRenderItem()
	clear(f.Pre)
	f.Pre = f.Pre[:0]
	clear(f.Post)
	f.Post = f.Post[:0]
	clear(f.Queues)
	f.Queues = append(f.Queues[:0], RenderQueue{})

	f.TransientVertices.Reset()
	f.TransientIndices.Reset()
	clear(f.transientVB)
	clear(f.transientIB)
	f.nextVB = 0
	f.nextIB = 0
	clear(f.updated)
}

// StartQueue appends a queue targeting fb and returns its id.
func (f *Frame) StartQueue(fb FramebufferHandle) int {
	f.Queues = append(f.Queues, RenderQueue{Framebuffer: fb})
	return len(f.Queues) - 1
}

// Queue returns the queue with the given id, or nil.
func (f *Frame) Queue(id int) *RenderQueue {
	if id < 0 || id >= len(f.Queues) {
		return nil
	}
	return &f.Queues[id]
}

func (f *Frame) LastQueue() *RenderQueue {
	return &f.Queues[len(f.Queues)-1]
}

// SubmitCurrent moves the work in progress item into the last queue and
// starts a fresh one.
func (f *Frame) SubmitCurrent() {
	q := f.LastQueue()
	q.Items = append(q.Items, f.Current)
	f.Current = NewRenderItem()
}

// AllocTransientVertexBuffer reserves count vertices of decl. It returns
// false, leaving the arena untouched, when the arena is too small.
func (f *Frame) AllocTransientVertexBuffer(count uint32, decl VertexDecl) (TransientVertexBufferHandle, bool) {
	size := uint64(count) * uint64(decl.Stride())
	if size == 0 || size > uint64(f.TransientVertices.Remaining()) {
		return InvalidTransientVertexBuffer, false
	}
	offset, ok := f.TransientVertices.Alloc(uint32(size), 4)
	if !ok {
		return InvalidTransientVertexBuffer, false
	}
	f.nextVB++
	h := TransientVertexBufferHandle{f.nextVB}
	f.transientVB[h] = TransientVertexBuffer{Offset: offset, Size: uint32(size), Decl: decl}
	return h, true
}

func (f *Frame) AllocTransientIndexBuffer(count uint32, typ IndexType) (TransientIndexBufferHandle, bool) {
	size := uint64(count) * uint64(typ.Size())
	if size == 0 || size > uint64(f.TransientIndices.Remaining()) {
		return InvalidTransientIndexBuffer, false
	}
	offset, ok := f.TransientIndices.Alloc(uint32(size), typ.Size())
	if !ok {
		return InvalidTransientIndexBuffer, false
	}
	f.nextIB++
	h := TransientIndexBufferHandle{f.nextIB}
	f.transientIB[h] = TransientIndexBuffer{Offset: offset, Size: uint32(size), Type: typ}
	return h, true
}

func (f *Frame) TransientVertexBuffer(h TransientVertexBufferHandle) (TransientVertexBuffer, bool) {
	tvb, ok := f.transientVB[h]
	return tvb, ok
}

func (f *Frame) TransientIndexBuffer(h TransientIndexBufferHandle) (TransientIndexBuffer, bool) {
	tib, ok := f.transientIB[h]
	return tib, ok
}

// TransientVertexBufferData returns the writable bytes of a transient
// allocation, or nil for a handle not allocated in this frame.
func (f *Frame) TransientVertexBufferData(h TransientVertexBufferHandle) []byte {
	tvb, ok := f.transientVB[h]
	if !ok {
		return nil
	}
	return f.TransientVertices.Slice(tvb.Offset, tvb.Size)
}

func (f *Frame) TransientIndexBufferData(h TransientIndexBufferHandle) []byte {
	tib, ok := f.transientIB[h]
	if !ok {
		return nil
	}
	return f.TransientIndices.Slice(tib.Offset, tib.Size)
}

// MarkUpdated records that the resource identified by key was updated in
// this frame and reports whether it already was.
func (f *Frame) MarkUpdated(key any) bool {
	if _, ok := f.updated[key]; ok {
		return true
	}
	f.updated[key] = struct{}{}
	return false
}

// IsEmpty reports whether the frame carries no work at all.
func (f *Frame) IsEmpty() bool {
	if len(f.Pre) > 0 || len(f.Post) > 0 || len(f.Queues) > 1 {
		return false
	}
	q := f.Queues[0]
	return q.Clear == nil && len(q.Items) == 0
}

// ItemCount is the number of submitted render items over all queues.
func (f *Frame) ItemCount() int {
	n := 0
	for i := range f.Queues {
		n += len(f.Queues[i].Items)
	}
	return n
}

// TransientBacking names the two renderer owned Stream buffers the
// transient arenas are uploaded into every frame.
type TransientBacking struct {
	VertexBuffer VertexBufferHandle
	IndexBuffer  IndexBufferHandle
}
