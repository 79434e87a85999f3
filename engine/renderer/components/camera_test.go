package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func assertVec3(t *testing.T, expected, actual mgl32.Vec3) {
	t.Helper()
	assert.True(t, expected.ApproxEqualThreshold(actual, 1e-4), "expected %v, got %v", expected, actual)
}

func TestNewCamera(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, mgl32.Ident4(), c.GetView())
	assertVec3(t, mgl32.Vec3{0, 0, -1}, c.Forward())
	assertVec3(t, mgl32.Vec3{1, 0, 0}, c.Right())
}

func TestCameraViewInvertsPosition(t *testing.T) {
	c := NewCamera()
	c.SetPosition(mgl32.Vec3{1, 2, 3})
	assert.True(t, c.IsDirty)
	view := c.GetView()
	assert.False(t, c.IsDirty)
	assertVec3(t, mgl32.Vec3{}, view.Mul4x1(mgl32.Vec4{1, 2, 3, 1}).Vec3())
}

func TestCameraLookAt(t *testing.T) {
	c := NewCamera()
	c.LookAt(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{})
	assertVec3(t, mgl32.Vec3{0, 0, -1}, c.Forward())
	assertVec3(t, mgl32.Vec3{0, 0, -5}, c.GetView().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3())

	c.LookAt(mgl32.Vec3{3, 4, 0}, mgl32.Vec3{})
	assertVec3(t, mgl32.Vec3{-0.6, -0.8, 0}, c.Forward())
	// The target is straight ahead in view space.
	p := c.GetView().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assertVec3(t, mgl32.Vec3{0, 0, -5}, p.Vec3())
}

func TestCameraPitchIsClamped(t *testing.T) {
	c := NewCamera()
	c.Pitch(10)
	assert.InDelta(t, pitchLimit, c.GetEulerRotation().X(), 1e-6)
	c.Pitch(-20)
	assert.InDelta(t, -pitchLimit, c.GetEulerRotation().X(), 1e-6)
}

func TestCameraMovement(t *testing.T) {
	c := NewCamera()
	c.Yaw(mgl32.DegToRad(90))
	assertVec3(t, mgl32.Vec3{-1, 0, 0}, c.Forward())

	c.MoveForward(2)
	c.MoveUp(1)
	assertVec3(t, mgl32.Vec3{-2, 1, 0}, c.GetPosition())
	c.MoveBackward(2)
	c.MoveDown(1)
	assertVec3(t, mgl32.Vec3{}, c.GetPosition())

	c.Reset()
	assert.Equal(t, mgl32.Vec3{}, c.GetEulerRotation())
}
