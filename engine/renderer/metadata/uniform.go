package metadata

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type UniformType uint8

const (
	UniformTypeInt UniformType = iota
	UniformTypeFloat
	UniformTypeVec2
	UniformTypeVec3
	UniformTypeVec4
	UniformTypeMat3
	UniformTypeMat4
)

func (t UniformType) String() string {
	switch t {
	case UniformTypeInt:
		return "int"
	case UniformTypeFloat:
		return "float"
	case UniformTypeVec2:
		return "vec2"
	case UniformTypeVec3:
		return "vec3"
	case UniformTypeVec4:
		return "vec4"
	case UniformTypeMat3:
		return "mat3"
	case UniformTypeMat4:
		return "mat4"
	}
	return fmt.Sprintf("uniform(%d)", uint8(t))
}

// UniformData lists the Go types a uniform can be built from.
type UniformData interface {
	int32 | float32 | mgl32.Vec2 | mgl32.Vec3 | mgl32.Vec4 | mgl32.Mat3 | mgl32.Mat4
}

// UniformValue is a tagged union of the supported uniform types. Matrices
// are stored as mgl32 values; Bytes exposes them row-major.
type UniformValue struct {
	typ UniformType
	i   int32
	f   [16]float32
}

func UniformInt(v int32) UniformValue     { return UniformValue{typ: UniformTypeInt, i: v} }
func UniformFloat(v float32) UniformValue { return UniformValue{typ: UniformTypeFloat, f: [16]float32{v}} }

func UniformVec2(v mgl32.Vec2) UniformValue {
	u := UniformValue{typ: UniformTypeVec2}
	copy(u.f[:], v[:])
	return u
}

func UniformVec3(v mgl32.Vec3) UniformValue {
	u := UniformValue{typ: UniformTypeVec3}
	copy(u.f[:], v[:])
	return u
}

func UniformVec4(v mgl32.Vec4) UniformValue {
	u := UniformValue{typ: UniformTypeVec4}
	copy(u.f[:], v[:])
	return u
}

func UniformMat3(m mgl32.Mat3) UniformValue {
	u := UniformValue{typ: UniformTypeMat3}
	copy(u.f[:], m[:])
	return u
}

func UniformMat4(m mgl32.Mat4) UniformValue {
	u := UniformValue{typ: UniformTypeMat4}
	copy(u.f[:], m[:])
	return u
}

// Uniform builds a UniformValue from any supported type.
func Uniform[T UniformData](v T) UniformValue {
	switch x := any(v).(type) {
	case int32:
		return UniformInt(x)
	case float32:
		return UniformFloat(x)
	case mgl32.Vec2:
		return UniformVec2(x)
	case mgl32.Vec3:
		return UniformVec3(x)
	case mgl32.Vec4:
		return UniformVec4(x)
	case mgl32.Mat3:
		return UniformMat3(x)
	case mgl32.Mat4:
		return UniformMat4(x)
	}
	panic("unreachable")
}

func (u UniformValue) Type() UniformType { return u.typ }

func (u UniformValue) Int() int32     { return u.i }
func (u UniformValue) Float() float32 { return u.f[0] }

func (u UniformValue) Vec2() mgl32.Vec2 { return mgl32.Vec2{u.f[0], u.f[1]} }
func (u UniformValue) Vec3() mgl32.Vec3 { return mgl32.Vec3{u.f[0], u.f[1], u.f[2]} }
func (u UniformValue) Vec4() mgl32.Vec4 { return mgl32.Vec4{u.f[0], u.f[1], u.f[2], u.f[3]} }

func (u UniformValue) Mat3() mgl32.Mat3 {
	var m mgl32.Mat3
	copy(m[:], u.f[:9])
	return m
}

func (u UniformValue) Mat4() mgl32.Mat4 {
	var m mgl32.Mat4
	copy(m[:], u.f[:16])
	return m
}

// Floats returns the float components. Matrices come back row-major.
func (u UniformValue) Floats() []float32 {
	switch u.typ {
	case UniformTypeFloat:
		return u.f[:1]
	case UniformTypeVec2:
		return u.f[:2]
	case UniformTypeVec3:
		return u.f[:3]
	case UniformTypeVec4:
		return u.f[:4]
	case UniformTypeMat3:
		t := u.Mat3().Transpose()
		return t[:]
	case UniformTypeMat4:
		t := u.Mat4().Transpose()
		return t[:]
	}
	return nil
}

// Size is the byte size of the raw value.
func (u UniformValue) Size() uint32 {
	switch u.typ {
	case UniformTypeInt, UniformTypeFloat:
		return 4
	case UniformTypeVec2:
		return 8
	case UniformTypeVec3:
		return 12
	case UniformTypeVec4:
		return 16
	case UniformTypeMat3:
		return 36
	case UniformTypeMat4:
		return 64
	}
	return 0
}

// Std140Size is the byte size of the value inside a std140 block.
func (u UniformValue) Std140Size() uint32 {
	if u.typ == UniformTypeMat3 {
		return 48
	}
	return u.Size()
}

// Bytes returns the raw little endian bytes; matrices are row-major.
func (u UniformValue) Bytes() []byte {
	if u.typ == UniformTypeInt {
		return binary.LittleEndian.AppendUint32(nil, uint32(u.i))
	}
	return appendFloats(make([]byte, 0, u.Size()), u.Floats())
}

// Std140 returns the value as laid out in a std140 uniform block: matrices
// are column-major and mat3 columns are padded to 16 bytes.
func (u UniformValue) Std140() []byte {
	switch u.typ {
	case UniformTypeMat3:
		out := make([]byte, 0, 48)
		for c := 0; c < 3; c++ {
			out = appendFloats(out, u.f[c*3:c*3+3])
			out = appendFloats(out, []float32{0})
		}
		return out
	case UniformTypeMat4:
		return appendFloats(make([]byte, 0, 64), u.f[:16])
	}
	return u.Bytes()
}

func (u UniformValue) String() string {
	if u.typ == UniformTypeInt {
		return fmt.Sprintf("int(%d)", u.i)
	}
	return fmt.Sprintf("%s%v", u.typ, u.Floats())
}

func appendFloats(dst []byte, fs []float32) []byte {
	for _, f := range fs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(f))
	}
	return dst
}
