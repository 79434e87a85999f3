package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint32(0), AlignUp(uint32(0), 256))
	assert.Equal(t, uint32(256), AlignUp(uint32(1), 256))
	assert.Equal(t, uint32(256), AlignUp(uint32(256), 256))
	assert.Equal(t, uint32(512), AlignUp(uint32(257), 256))
	assert.Equal(t, uint64(12), AlignUp(uint64(10), 6))
	assert.Equal(t, uint32(7), AlignUp(uint32(7), 0))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(10, 0, 5))
	assert.Equal(t, 0, Clamp(-3, 0, 5))
	assert.Equal(t, float32(0.5), Clamp(float32(0.5), 0, 1))
}

func TestPerspectiveDepthRange(t *testing.T) {
	p := Perspective(mgl32.DegToRad(60), 1, 0.1, 100)

	near := p.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := p.Mul4x1(mgl32.Vec4{0, 0, -100, 1})

	assert.InDelta(t, 0.0, near.Z()/near.W(), 1e-5)
	assert.InDelta(t, 1.0, far.Z()/far.W(), 1e-4)
}

func TestProjectionsPointYDown(t *testing.T) {
	p := Perspective(mgl32.DegToRad(90), 1, 1, 10)
	up := p.Mul4x1(mgl32.Vec4{0, 1, -1, 1})
	assert.InDelta(t, -1.0, up.Y()/up.W(), 1e-5)

	// pixel space with the origin at the top left corner
	o := Orthographic(0, 100, 50, 0, 0, 1)
	topLeft := o.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	bottomRight := o.Mul4x1(mgl32.Vec4{100, 50, -1, 1})
	assert.InDelta(t, -1.0, topLeft.X(), 1e-5)
	assert.InDelta(t, -1.0, topLeft.Y(), 1e-5)
	assert.InDelta(t, 1.0, bottomRight.X(), 1e-5)
	assert.InDelta(t, 1.0, bottomRight.Y(), 1e-5)
	assert.InDelta(t, 1.0, bottomRight.Z(), 1e-5)
}
