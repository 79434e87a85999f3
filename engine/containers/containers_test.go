package containers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingQueueOrder(t *testing.T) {
	q := NewRingQueue[int](3)
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.NoError(t, q.Enqueue(3))
	assert.ErrorIs(t, q.Enqueue(4), ErrQueueFull)

	v, err := q.Dequeue()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, q.Enqueue(4))
	for _, want := range []int{2, 3, 4} {
		v, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
	_, err = q.Dequeue()
	assert.ErrorIs(t, err, ErrQueueEmpty)
}

func TestRingQueuePushGrows(t *testing.T) {
	q := NewRingQueue[string](2)
	q.Push("a")
	q.Push("b")
	_, _ = q.Dequeue()
	q.Push("c")
	q.Push("d")

	assert.Equal(t, 3, q.Len())
	head, err := q.Peek()
	require.NoError(t, err)
	assert.Equal(t, "b", head)

	var got []string
	for !q.IsEmpty() {
		v, _ := q.Dequeue()
		got = append(got, v)
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
}

func TestCacheGetOrCreate(t *testing.T) {
	c := NewCache[string, int]()
	calls := 0
	create := func(k string) (int, error) {
		calls++
		return len(k), nil
	}

	v1, err := c.GetOrCreate("abc", create)
	require.NoError(t, err)
	v2, err := c.GetOrCreate("abc", create)
	require.NoError(t, err)

	assert.Equal(t, 3, v1)
	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls)
	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestCacheFailedCreateIsNotStored(t *testing.T) {
	c := NewCache[int, string]()
	boom := errors.New("boom")
	_, err := c.GetOrCreate(1, func(int) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestCacheRemoveAndClear(t *testing.T) {
	c := NewCache[int, int]()
	for i := 0; i < 6; i++ {
		c.Put(i, i*i)
	}
	destroyed := map[int]bool{}
	n := c.RemoveIf(func(k, _ int) bool { return k%2 == 0 }, func(k, _ int) { destroyed[k] = true })
	assert.Equal(t, 3, n)
	assert.Equal(t, map[int]bool{0: true, 2: true, 4: true}, destroyed)

	_, ok := c.Get(1)
	assert.True(t, ok)

	c.Clear(func(k, _ int) { destroyed[k] = true })
	assert.Equal(t, 0, c.Len())
	assert.Len(t, destroyed, 6)
}

func TestLinearArena(t *testing.T) {
	a := NewLinearArena(64)

	off, ok := a.Alloc(10, 4)
	require.True(t, ok)
	assert.Equal(t, uint32(0), off)

	off, ok = a.Alloc(8, 4)
	require.True(t, ok)
	assert.Equal(t, uint32(12), off)
	assert.Equal(t, uint32(20), a.Size())

	_, ok = a.Alloc(50, 4)
	assert.False(t, ok)
	assert.Equal(t, uint32(20), a.Size(), "failed allocation must leave the arena unchanged")

	a.Slice(12, 8)[0] = 0xAB
	assert.Equal(t, byte(0xAB), a.Bytes()[12])

	a.Reset()
	assert.Equal(t, uint32(0), a.Size())
	assert.Equal(t, uint32(64), a.Remaining())
}
