package metadata

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlesAreDistinctAndValid(t *testing.T) {
	allocs := NewHandleAllocators()

	a := allocs.Textures.Next()
	b := allocs.Textures.Next()
	assert.True(t, a.IsValid())
	assert.True(t, b.IsValid())
	assert.NotEqual(t, a, b)
	assert.Equal(t, uint32(1), a.Index())
	assert.Equal(t, "texture#2", b.String())

	// Kinds count independently.
	assert.Equal(t, uint32(1), allocs.Programs.Next().Index())
	assert.False(t, InvalidProgram.IsValid())
	assert.Equal(t, "program#invalid", InvalidProgram.String())
}

func TestHandleAllocatorConcurrent(t *testing.T) {
	allocs := NewHandleAllocators()
	const workers, perWorker = 8, 500

	var mu sync.Mutex
	seen := make(map[VertexBufferHandle]struct{})
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]VertexBufferHandle, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				local = append(local, allocs.VertexBuffers.Next())
			}
			mu.Lock()
			for _, h := range local {
				seen[h] = struct{}{}
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, uint32(workers*perWorker), allocs.VertexBuffers.Allocated())
}

func TestMemoryLifecycle(t *testing.T) {
	deleted := 0
	m := TakeMemory([]byte{1, 2, 3}, func(b []byte) {
		deleted++
		assert.Equal(t, []byte{1, 2, 3}, b)
	})
	m.Retain()
	assert.Equal(t, int32(2), m.Refs())

	m.Release()
	assert.Equal(t, 0, deleted)
	assert.Equal(t, 3, m.Len())

	m.Release()
	assert.Equal(t, 1, deleted)
	assert.Nil(t, m.Bytes())
	assert.Panics(t, func() { m.Release() })
}

func TestMemoryConstructors(t *testing.T) {
	assert.Equal(t, 0, EmptyMemory().Len())
	assert.Equal(t, make([]byte, 16), AllocMemory(16).Bytes())

	src := []byte{9, 8, 7}
	c := CopyMemory(src)
	src[0] = 0
	assert.Equal(t, []byte{9, 8, 7}, c.Bytes())

	buf := []byte{4, 5}
	assert.Equal(t, &buf[0], &MoveMemory(buf).Bytes()[0])

	idx := MemoryFromSlice([]uint16{0x0102, 0x0304})
	assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03}, idx.Bytes())

	var nilMem *Memory
	assert.Equal(t, 0, nilMem.Len())
	assert.NotPanics(t, func() { nilMem.Release() })
}
