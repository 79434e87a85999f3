// Package dispatch walks the render queues of a frame and drives a backend
// Encoder, applying render state differentially between consecutive items
// of the same queue.
package dispatch

import (
	"errors"
	"slices"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

// Encoder is implemented by each GPU backend. Set and Bind calls are only
// issued when the value differs from the previous item of the queue.
type Encoder interface {
	// BeginQueue binds the queue target. Returning false skips the queue.
	BeginQueue(index int, q *metadata.RenderQueue) bool
	Clear(c metadata.ClearState)
	EndQueue()

	SetScissor(s metadata.Scissor)
	SetCull(c metadata.CullState)
	SetPolygonMode(m metadata.PolygonMode)
	SetDepth(d metadata.DepthState)
	SetColorWrite(enabled bool)
	SetBlend(b metadata.BlendState)

	// BindProgram returns false when the program is missing or unusable;
	// the item is then skipped.
	BindProgram(p metadata.ProgramHandle) bool
	BindVertexBuffer(vb metadata.VertexBufferHandle, offset uint32, decl metadata.VertexDecl)
	BindIndexBuffer(ib metadata.IndexBufferHandle, offset uint32, typ metadata.IndexType)
	BindTextures(bindings []metadata.TextureBinding)

	// Draw uploads the item's uniforms and issues the draw call.
	Draw(item *metadata.RenderItem) error
}

// Stats counts what one Run did.
type Stats struct {
	Queues       int
	Items        int
	Draws        int
	Skipped      int
	StateChanges int
}

type vertexBinding struct {
	handle metadata.VertexBufferHandle
	offset uint32
	decl   uint64
}

type indexBinding struct {
	handle metadata.IndexBufferHandle
	offset uint32
	typ    metadata.IndexType
}

// tracker remembers what was last applied in the current queue. Every
// field starts unset so that the first item applies everything.
type tracker struct {
	set bool

	scissor    metadata.Scissor
	cull       metadata.CullState
	polygon    metadata.PolygonMode
	depth      metadata.DepthState
	colorWrite bool
	blend      metadata.BlendState

	program  metadata.ProgramHandle
	vertex   vertexBinding
	index    indexBinding
	textures []metadata.TextureBinding
	bound    bool
}

func (t *tracker) reset() {
	*t = tracker{}
}

// blendChanged compares the enable flag and the equation/func tuple.
func blendChanged(prev, next metadata.BlendState) bool {
	if prev.Enabled != next.Enabled {
		return true
	}
	return next.Enabled && prev.Params() != next.Params()
}

func (t *tracker) applyState(enc Encoder, item *metadata.RenderItem, st *Stats) {
	s := &item.State
	first := !t.set
	if first || t.scissor != item.Scissor {
		enc.SetScissor(item.Scissor)
		t.scissor = item.Scissor
		st.StateChanges++
	}
	if first || t.cull != s.Cull {
		enc.SetCull(s.Cull)
		t.cull = s.Cull
		st.StateChanges++
	}
	if first || t.polygon != s.PolygonMode {
		enc.SetPolygonMode(s.PolygonMode)
		t.polygon = s.PolygonMode
		st.StateChanges++
	}
	if first || t.depth != s.Depth {
		enc.SetDepth(s.Depth)
		t.depth = s.Depth
		st.StateChanges++
	}
	if first || t.colorWrite != s.ColorWrite {
		enc.SetColorWrite(s.ColorWrite)
		t.colorWrite = s.ColorWrite
		st.StateChanges++
	}
	if first || blendChanged(t.blend, s.Blend) {
		enc.SetBlend(s.Blend)
		t.blend = s.Blend
		st.StateChanges++
	}
	t.set = true
}

func (t *tracker) applyBindings(enc Encoder, item *metadata.RenderItem, st *Stats) {
	vb := vertexBinding{item.VertexBuffer, item.VertexOffset, item.VertexDecl.Hash()}
	if !t.bound || t.vertex != vb {
		enc.BindVertexBuffer(item.VertexBuffer, item.VertexOffset, item.VertexDecl)
		t.vertex = vb
		st.StateChanges++
	}
	ib := indexBinding{item.IndexBuffer, item.IndexOffset, item.IndexType}
	if !t.bound || t.index != ib {
		enc.BindIndexBuffer(item.IndexBuffer, item.IndexOffset, item.IndexType)
		t.index = ib
		st.StateChanges++
	}
	if !t.bound || !slices.Equal(t.textures, item.Textures) {
		enc.BindTextures(item.Textures)
		t.textures = item.Textures
		st.StateChanges++
	}
	t.bound = true
}

// Run executes every queue of frame against enc in creation order. Items
// run in submission order; nothing is reordered. A failing draw is logged
// and skipped. Run stops at the first fatal error, a lost device or an
// exhausted uniform scratch buffer, and returns it.
func Run(frame *metadata.Frame, enc Encoder) (Stats, error) {
	var st Stats
	var t tracker
	for qi := range frame.Queues {
		q := &frame.Queues[qi]
		if !enc.BeginQueue(qi, q) {
			continue
		}
		st.Queues++
		if q.Clear != nil {
			enc.Clear(*q.Clear)
		}

		t.reset()
		for ii := range q.Items {
			item := &q.Items[ii]
			st.Items++

			if !t.program.IsValid() || t.program != item.Program {
				if !enc.BindProgram(item.Program) {
					core.WarnOnce("program:"+item.Program.String(), "skipping draws with unusable %s", item.Program)
					t.program = metadata.InvalidProgram
					st.Skipped++
					continue
				}
				t.program = item.Program
				st.StateChanges++
			}

			t.applyState(enc, item, &st)
			t.applyBindings(enc, item, &st)

			if item.PrimitiveCount == 0 {
				continue
			}
			if err := enc.Draw(item); err != nil {
				if isFatal(err) {
					enc.EndQueue()
					return st, err
				}
				core.LogError("queue %d item %d: draw failed: %s", qi, ii, err)
				st.Skipped++
				continue
			}
			st.Draws++
		}
		enc.EndQueue()
	}
	return st, nil
}

func isFatal(err error) bool {
	return errors.Is(err, core.ErrDeviceLost) || errors.Is(err, core.ErrScratchExhausted)
}
