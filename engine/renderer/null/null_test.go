package null

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/prism/engine/platform"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullContextTracksResources(t *testing.T) {
	c := New()
	require.NoError(t, c.CreateWindow(platform.NewHeadlessHost(), 64, 64))

	handles := metadata.NewHandleAllocators()
	vb := handles.VertexBuffers.Next()
	tex := handles.Textures.Next()

	c.ProcessCommandList([]metadata.RenderCommand{
		metadata.CreateVertexBufferCmd{Handle: vb},
		metadata.CreateTextureCmd{Handle: tex},
	})
	assert.True(t, c.Live(vb))
	assert.True(t, c.Live(tex))
	assert.Equal(t, 2, c.LiveCount())

	c.ProcessCommandList([]metadata.RenderCommand{metadata.DeleteVertexBufferCmd{Handle: vb}})
	assert.False(t, c.Live(vb))
	assert.Equal(t, 3, c.Commands())

	f := metadata.NewFrame(64, 64)
	f.SubmitCurrent()
	require.NoError(t, c.Frame(f, metadata.TransientBacking{}))
	assert.Equal(t, uint64(1), c.Frames())
	assert.Equal(t, 1, c.Items())

	c.DestroyWindow()
	assert.Zero(t, c.LiveCount())
}

func TestNullContextProjectionUntouched(t *testing.T) {
	c := New()
	m := mgl32.Perspective(1, 1.5, 0.1, 100)
	assert.Equal(t, m, c.AdjustProjectionMatrix(m))
	assert.False(t, c.HasFlippedViewport())
}
