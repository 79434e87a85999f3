package metadata

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func floatsOf(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func TestUniformScalarBytes(t *testing.T) {
	assert.Equal(t, []byte{0xFE, 0xFF, 0xFF, 0xFF}, UniformInt(-2).Bytes())
	assert.Equal(t, []float32{1.5}, floatsOf(Uniform(float32(1.5)).Bytes()))
	assert.Equal(t, []float32{1, 2, 3}, floatsOf(Uniform(mgl32.Vec3{1, 2, 3}).Bytes()))
	assert.Equal(t, uint32(12), UniformVec3(mgl32.Vec3{}).Size())
}

func TestUniformMat4Layouts(t *testing.T) {
	// Translation lives in the last column.
	m := mgl32.Translate3D(7, 8, 9)
	u := Uniform(m)

	rowMajor := floatsOf(u.Bytes())
	assert.Equal(t, float32(7), rowMajor[3])
	assert.Equal(t, float32(8), rowMajor[7])
	assert.Equal(t, float32(9), rowMajor[11])

	colMajor := floatsOf(u.Std140())
	assert.Equal(t, []float32{7, 8, 9, 1}, colMajor[12:16])
	assert.Equal(t, m, u.Mat4())
}

func TestUniformMat3Std140Padding(t *testing.T) {
	m := mgl32.Mat3{1, 2, 3, 4, 5, 6, 7, 8, 9}
	u := UniformMat3(m)

	assert.Equal(t, uint32(36), u.Size())
	assert.Equal(t, uint32(48), u.Std140Size())
	assert.Equal(t, []float32{1, 2, 3, 0, 4, 5, 6, 0, 7, 8, 9, 0}, floatsOf(u.Std140()))
	assert.Equal(t, []float32{1, 4, 7, 2, 5, 8, 3, 6, 9}, floatsOf(u.Bytes()))
}
