package math

import "golang.org/x/exp/constraints"

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// AlignUp rounds v up to the next multiple of align. A zero align returns v.
func AlignUp[T constraints.Unsigned](v, align T) T {
	if align == 0 {
		return v
	}
	if align&(align-1) == 0 {
		return (v + align - 1) &^ (align - 1)
	}
	return (v + align - 1) / align * align
}

// DivideRoundUp returns ceil(a / b).
func DivideRoundUp[T constraints.Unsigned](a, b T) T {
	return (a + b - 1) / b
}
