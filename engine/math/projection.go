package math

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl32"
)

// Perspective builds a right handed projection with depth mapped to [0, 1],
// 0 at the near plane, and clip space y pointing down. Pass it through the
// renderer's AdjustProjectionMatrix before uploading it.
func Perspective(fovY, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1.0 / gomath.Tan(float64(fovY)/2.0))
	rangeInv := 1.0 / (near - far)
	return mgl32.Mat4{
		f / aspect, 0, 0, 0,
		0, -f, 0, 0,
		0, 0, far * rangeInv, -1,
		0, 0, near * far * rangeInv, 0,
	}
}

// Orthographic is the orthographic counterpart of Perspective. Passing
// top < bottom gives the usual y down pixel space for UI.
func Orthographic(left, right, bottom, top, near, far float32) mgl32.Mat4 {
	rangeInv := 1.0 / (near - far)
	return mgl32.Mat4{
		2 / (right - left), 0, 0, 0,
		0, 2 / (bottom - top), 0, 0,
		0, 0, rangeInv, 0,
		(left + right) / (left - right), (top + bottom) / (top - bottom), near * rangeInv, 1,
	}
}
