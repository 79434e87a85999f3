package metadata

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadDecl() VertexDecl {
	return NewVertexDecl().
		Add(AttributePosition, 2, AttributeTypeFloat, false).
		Add(AttributeTexCoord0, 2, AttributeTypeFloat, false).
		End()
}

func TestFrameResetKeepsInitialQueue(t *testing.T) {
	f := NewFrame(1024, 1024)
	require.Len(t, f.Queues, 1)
	assert.False(t, f.Queues[0].Framebuffer.IsValid())
	assert.True(t, f.IsEmpty())

	f.StartQueue(FramebufferHandle{3})
	f.Pre = append(f.Pre, DeleteTextureCmd{})
	f.Current.PrimitiveCount = 1
	f.SubmitCurrent()

	assert.Equal(t, 1, f.ItemCount())
	f.Reset()
	assert.Len(t, f.Queues, 1)
	assert.Empty(t, f.Pre)
	assert.Equal(t, 0, f.ItemCount())
	assert.True(t, f.IsEmpty())
}

func TestSubmitCurrentMovesItem(t *testing.T) {
	f := NewFrame(64, 64)
	f.Current.Uniforms["u_time"] = UniformFloat(1)
	f.Current.PrimitiveCount = 2
	f.SubmitCurrent()

	assert.Equal(t, uint32(2), f.Queues[0].Items[0].PrimitiveCount)
	assert.Contains(t, f.Queues[0].Items[0].Uniforms, "u_time")
	assert.Empty(t, f.Current.Uniforms)
	assert.Equal(t, DefaultRenderState(), f.Current.State)
	assert.Zero(t, f.Current.PrimitiveCount)
}

func TestTransientAllocationsAreDisjoint(t *testing.T) {
	f := NewFrame(1024, 256)
	decl := quadDecl()

	type span struct{ lo, hi uintptr }
	arena := f.TransientVertices.Slice(0, f.TransientVertices.Capacity())
	base := uintptr(unsafe.Pointer(&arena[0]))
	end := base + uintptr(len(arena))

	var spans []span
	for i := 0; i < 5; i++ {
		h, ok := f.AllocTransientVertexBuffer(uint32(3+i), decl)
		require.True(t, ok)
		data := f.TransientVertexBufferData(h)
		require.Len(t, data, (3+i)*int(decl.Stride()))

		lo := uintptr(unsafe.Pointer(&data[0]))
		hi := lo + uintptr(len(data))
		assert.GreaterOrEqual(t, lo, base)
		assert.LessOrEqual(t, hi, end)
		for _, s := range spans {
			assert.True(t, hi <= s.lo || lo >= s.hi, "transient allocations overlap")
		}
		spans = append(spans, span{lo, hi})
	}
}

func TestTransientExhaustionLeavesArenaUnchanged(t *testing.T) {
	f := NewFrame(64, 8)
	decl := quadDecl()

	_, ok := f.AllocTransientVertexBuffer(3, decl)
	require.True(t, ok)
	before := f.TransientVertices.Size()

	h, ok := f.AllocTransientVertexBuffer(3, decl)
	assert.False(t, ok)
	assert.False(t, h.IsValid())
	assert.Equal(t, before, f.TransientVertices.Size())

	_, ok = f.AllocTransientIndexBuffer(5, IndexTypeUint16)
	assert.False(t, ok)
	assert.Equal(t, uint32(0), f.TransientIndices.Size())
}

func TestTransientBuffersPerFrame(t *testing.T) {
	f := NewFrame(1<<20, 1<<20)
	decl := NewVertexDecl().
		Add(AttributePosition, 3, AttributeTypeFloat, false).
		Add(AttributeColor, 4, AttributeTypeUint8, true).
		End()
	limit := 4*decl.Stride() + 6*2

	for frame := 0; frame < 300; frame++ {
		vb, ok := f.AllocTransientVertexBuffer(4, decl)
		require.True(t, ok)
		ib, ok := f.AllocTransientIndexBuffer(6, IndexTypeUint16)
		require.True(t, ok)

		tvb, _ := f.TransientVertexBuffer(vb)
		assert.Equal(t, decl, tvb.Decl)
		tib, _ := f.TransientIndexBuffer(ib)
		assert.Equal(t, IndexTypeUint16, tib.Type)

		assert.LessOrEqual(t, f.TransientVertices.Size()+f.TransientIndices.Size(), limit)
		f.Reset()
	}
}

func TestTransientHandleFromOtherFrameMisses(t *testing.T) {
	f := NewFrame(128, 128)
	h, ok := f.AllocTransientIndexBuffer(3, IndexTypeUint32)
	require.True(t, ok)
	f.Reset()
	assert.Nil(t, f.TransientIndexBufferData(h))
}

func TestMarkUpdated(t *testing.T) {
	f := NewFrame(8, 8)
	vb := VertexBufferHandle{1}
	assert.False(t, f.MarkUpdated(vb))
	assert.True(t, f.MarkUpdated(vb))
	assert.False(t, f.MarkUpdated(IndexBufferHandle{1}))
	f.Reset()
	assert.False(t, f.MarkUpdated(vb))
}
