package containers

import "github.com/spaghettifunk/prism/engine/math"

// LinearArena is a bump allocator over a fixed byte array. The backing array
// is allocated once and kept across resets.
type LinearArena struct {
	data []byte
	size uint32
}

func NewLinearArena(capacity uint32) *LinearArena {
	return &LinearArena{data: make([]byte, capacity)}
}

// Alloc reserves size bytes aligned to align and returns their offset. When
// the arena cannot hold the request it returns false and is left unchanged.
func (a *LinearArena) Alloc(size, align uint32) (uint32, bool) {
	offset := a.size
	if align > 1 {
		offset = math.AlignUp(offset, align)
	}
	end := uint64(offset) + uint64(size)
	if end > uint64(len(a.data)) {
		return 0, false
	}
	a.size = uint32(end)
	return offset, true
}

// Slice returns the bytes in [offset, offset+size).
func (a *LinearArena) Slice(offset, size uint32) []byte {
	return a.data[offset : offset+size : offset+size]
}

// Bytes returns the used part of the arena.
func (a *LinearArena) Bytes() []byte {
	return a.data[:a.size]
}

// Size is the high water mark of the current cycle.
func (a *LinearArena) Size() uint32 {
	return a.size
}

func (a *LinearArena) Capacity() uint32 {
	return uint32(len(a.data))
}

func (a *LinearArena) Remaining() uint32 {
	return uint32(len(a.data)) - a.size
}

func (a *LinearArena) Reset() {
	a.size = 0
}
