package dispatch

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls      []string
	counts     map[string]int
	badProgram metadata.ProgramHandle
	skipQueue  int
	drawErr    error
}

func newRecorder() *recorder {
	return &recorder{counts: map[string]int{}, skipQueue: -1}
}

func (r *recorder) record(name string) {
	r.calls = append(r.calls, name)
	r.counts[name]++
}

func (r *recorder) BeginQueue(index int, q *metadata.RenderQueue) bool {
	if index == r.skipQueue {
		return false
	}
	r.record("begin")
	return true
}

func (r *recorder) Clear(metadata.ClearState)              { r.record("clear") }
func (r *recorder) EndQueue()                              { r.record("end") }
func (r *recorder) SetScissor(metadata.Scissor)            { r.record("scissor") }
func (r *recorder) SetCull(metadata.CullState)             { r.record("cull") }
func (r *recorder) SetPolygonMode(metadata.PolygonMode)    { r.record("polygon") }
func (r *recorder) SetDepth(metadata.DepthState)           { r.record("depth") }
func (r *recorder) SetColorWrite(bool)                     { r.record("color_write") }
func (r *recorder) SetBlend(metadata.BlendState)           { r.record("blend") }
func (r *recorder) BindTextures([]metadata.TextureBinding) { r.record("textures") }

func (r *recorder) BindProgram(p metadata.ProgramHandle) bool {
	if p == r.badProgram {
		return false
	}
	r.record("program")
	return true
}

func (r *recorder) BindVertexBuffer(metadata.VertexBufferHandle, uint32, metadata.VertexDecl) {
	r.record("vertex")
}

func (r *recorder) BindIndexBuffer(metadata.IndexBufferHandle, uint32, metadata.IndexType) {
	r.record("index")
}

func (r *recorder) Draw(*metadata.RenderItem) error {
	if r.drawErr != nil {
		return r.drawErr
	}
	r.record("draw")
	return nil
}

func (r *recorder) stateCalls() int {
	n := 0
	for name, c := range r.counts {
		switch name {
		case "begin", "end", "clear", "draw":
		default:
			n += c
		}
	}
	return n
}

type fixture struct {
	allocs  *metadata.HandleAllocators
	program metadata.ProgramHandle
	vb      metadata.VertexBufferHandle
	decl    metadata.VertexDecl
}

func newFixture() *fixture {
	allocs := metadata.NewHandleAllocators()
	return &fixture{
		allocs:  allocs,
		program: allocs.Programs.Next(),
		vb:      allocs.VertexBuffers.Next(),
		decl:    metadata.NewVertexDecl().Add(metadata.AttributePosition, 3, metadata.AttributeTypeFloat, false).End(),
	}
}

func (fx *fixture) submit(f *metadata.Frame, primitives uint32) {
	f.Current.Program = fx.program
	f.Current.VertexBuffer = fx.vb
	f.Current.VertexDecl = fx.decl
	f.Current.PrimitiveCount = primitives
	f.Current.Uniforms["u_color"] = metadata.UniformVec4(mgl32.Vec4{1, 0, 0, 1})
	f.SubmitCurrent()
}

func TestIdenticalItemsOnlyDraw(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 1)

	first := newRecorder()
	_, err := Run(f, first)
	require.NoError(t, err)
	single := first.stateCalls()

	fx.submit(f, 1)
	both := newRecorder()
	stats, err := Run(f, both)
	require.NoError(t, err)

	assert.Equal(t, single, both.stateCalls(), "second identical item must not change state")
	assert.Equal(t, 2, both.counts["draw"])
	assert.Equal(t, 2, stats.Draws)
}

func TestFirstItemAppliesEverything(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 1)

	rec := newRecorder()
	_, err := Run(f, rec)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"begin", "program", "scissor", "cull", "polygon", "depth", "color_write", "blend",
		"vertex", "index", "textures", "draw", "end",
	}, rec.calls)
}

func TestOnlyChangedStateIsApplied(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 1)
	f.Current.State.Cull.Winding = metadata.WindingCW
	f.Current.State.Blend = metadata.AdditiveBlend()
	fx.submit(f, 1)

	rec := newRecorder()
	_, err := Run(f, rec)
	require.NoError(t, err)

	assert.Equal(t, 2, rec.counts["cull"])
	assert.Equal(t, 2, rec.counts["blend"])
	assert.Equal(t, 1, rec.counts["depth"])
	assert.Equal(t, 1, rec.counts["program"])
}

func TestDisabledBlendIgnoresFactors(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 1)
	f.Current.State.Blend.SrcRGB = metadata.BlendFuncSrcAlpha
	fx.submit(f, 1)

	rec := newRecorder()
	_, err := Run(f, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.counts["blend"])
}

func TestStateResetsPerQueue(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 1)
	f.StartQueue(metadata.InvalidFramebuffer)
	fx.submit(f, 1)

	rec := newRecorder()
	stats, err := Run(f, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, rec.counts["program"])
	assert.Equal(t, 2, rec.counts["cull"])
	assert.Equal(t, 2, stats.Queues)
}

func TestZeroPrimitivesBindsWithoutDraw(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 0)

	rec := newRecorder()
	stats, err := Run(f, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.counts["program"])
	assert.Equal(t, 1, rec.counts["vertex"])
	assert.Zero(t, rec.counts["draw"])
	assert.Zero(t, stats.Draws)
}

func TestEmptyQueueStillClears(t *testing.T) {
	f := metadata.NewFrame(64, 64)
	f.Queues[0].Clear = &metadata.ClearState{Color: mgl32.Vec4{0, 0, 0.2, 1}, ClearColor: true, ClearDepth: true}

	rec := newRecorder()
	_, err := Run(f, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"begin", "clear", "end"}, rec.calls)
}

func TestSkippedQueue(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 1)
	f.StartQueue(fx.allocs.Framebuffers.Next())
	fx.submit(f, 1)

	rec := newRecorder()
	rec.skipQueue = 1
	stats, err := Run(f, rec)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.counts["draw"])
	assert.Equal(t, 1, stats.Queues)
}

func TestUnusableProgramSkipsItem(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	rec := newRecorder()
	rec.badProgram = fx.program
	fx.submit(f, 1)
	fx.submit(f, 1)

	stats, err := Run(f, rec)
	require.NoError(t, err)
	assert.Zero(t, rec.counts["draw"])
	assert.Equal(t, 2, stats.Skipped)
}

func TestDrawErrors(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 1)
	fx.submit(f, 1)

	rec := newRecorder()
	rec.drawErr = errors.New("pipeline creation failed")
	stats, err := Run(f, rec)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Skipped)

	rec = newRecorder()
	rec.drawErr = fmt.Errorf("submit: %w", core.ErrDeviceLost)
	_, err = Run(f, rec)
	assert.ErrorIs(t, err, core.ErrDeviceLost)
	assert.Equal(t, "end", rec.calls[len(rec.calls)-1])
}


func TestScratchExhaustionStopsTheFrame(t *testing.T) {
	fx := newFixture()
	f := metadata.NewFrame(64, 64)
	fx.submit(f, 1)
	f.StartQueue(metadata.InvalidFramebuffer)
	fx.submit(f, 1)

	rec := newRecorder()
	rec.drawErr = fmt.Errorf("uniforms: %w", core.ErrScratchExhausted)
	_, err := Run(f, rec)
	require.ErrorIs(t, err, core.ErrScratchExhausted)
	assert.Equal(t, 1, rec.counts["begin"])
	assert.Equal(t, 1, rec.counts["end"])
}
