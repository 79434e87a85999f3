package metadata

import (
	"sync/atomic"
	"unsafe"
)

/**
 * @brief Memory is a reference counted byte span used to hand bulk data
 * (vertices, indices, pixels) from the client to the render thread.
 *
 * A new Memory starts with one reference. Every command carrying it owns that
 * reference and the backend drops it once the command has been processed.
 * The optional deleter runs when the last reference is released.
 */
type Memory struct {
	data    []byte
	refs    atomic.Int32
	deleter func([]byte)
}

func newMemory(data []byte, deleter func([]byte)) *Memory {
	m := &Memory{data: data, deleter: deleter}
	m.refs.Store(1)
	return m
}

// EmptyMemory returns a blob holding no bytes.
func EmptyMemory() *Memory {
	return newMemory(nil, nil)
}

// AllocMemory returns an owned blob of size bytes. The content is zeroed.
func AllocMemory(size int) *Memory {
	return newMemory(make([]byte, size), nil)
}

// CopyMemory copies src into a new blob.
func CopyMemory(src []byte) *Memory {
	data := make([]byte, len(src))
	copy(data, src)
	return newMemory(data, nil)
}

// MoveMemory takes buf as is; the caller must not touch it afterwards.
func MoveMemory(buf []byte) *Memory {
	return newMemory(buf, nil)
}

// TakeMemory takes ownership of buf and calls deleter with it once the last
// reference is gone.
func TakeMemory(buf []byte, deleter func([]byte)) *Memory {
	return newMemory(buf, deleter)
}

// MemoryFromSlice copies the raw bytes of a slice of plain values (vertex
// structs, uint16/uint32 indices, pixels) into a new blob.
func MemoryFromSlice[T any](s []T) *Memory {
	if len(s) == 0 {
		return EmptyMemory()
	}
	var zero T
	n := len(s) * int(unsafe.Sizeof(zero))
	raw := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), n)
	return CopyMemory(raw)
}

// Bytes returns the blob content. It must be treated as read-only.
func (m *Memory) Bytes() []byte {
	if m == nil {
		return nil
	}
	return m.data
}

func (m *Memory) Len() int {
	if m == nil {
		return 0
	}
	return len(m.data)
}

// Refs is the current reference count.
func (m *Memory) Refs() int32 {
	if m == nil {
		return 0
	}
	return m.refs.Load()
}

func (m *Memory) Retain() *Memory {
	if m != nil {
		m.refs.Add(1)
	}
	return m
}

// Release drops a reference and frees the blob when it was the last one.
func (m *Memory) Release() {
	if m == nil {
		return
	}
	switch n := m.refs.Add(-1); {
	case n == 0:
		if m.deleter != nil {
			m.deleter(m.data)
		}
		m.data = nil
	case n < 0:
		panic("metadata: memory released more times than retained")
	}
}
