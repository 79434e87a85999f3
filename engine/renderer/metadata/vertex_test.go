package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeAttributeRoundTrip(t *testing.T) {
	for attr := AttributePosition; attr < AttributeCount; attr++ {
		for count := uint8(1); count <= 4; count++ {
			for _, typ := range []AttributeType{AttributeTypeFloat, AttributeTypeUint8} {
				for _, norm := range []bool{false, true} {
					a, c, ty, n := DecodeAttribute(EncodeAttribute(attr, count, typ, norm))
					assert.Equal(t, attr, a)
					assert.Equal(t, count, c)
					assert.Equal(t, typ, ty)
					assert.Equal(t, norm, n)
				}
			}
		}
	}
}

func TestVertexDeclOffsetsAndStride(t *testing.T) {
	decl := NewVertexDecl().
		Add(AttributePosition, 2, AttributeTypeFloat, false).
		Add(AttributeColor, 4, AttributeTypeUint8, true).
		End()

	assert.Equal(t, uint32(12), decl.Stride())
	elems := decl.Elements()
	assert.Equal(t, uint32(0), elems[0].Offset)
	assert.Equal(t, uint32(8), elems[1].Offset)

	var sum uint32
	for _, e := range elems {
		assert.Equal(t, sum, e.Offset)
		sum += e.Size()
	}
	assert.Equal(t, decl.Stride(), sum)

	c, ok := decl.Find(AttributeColor)
	assert.True(t, ok)
	assert.True(t, c.Normalized)
	assert.False(t, decl.Has(AttributeNormal))
}

func TestVertexDeclHash(t *testing.T) {
	a := NewVertexDecl().Add(AttributePosition, 3, AttributeTypeFloat, false).Add(AttributeColor, 3, AttributeTypeFloat, false).End()
	b := NewVertexDecl().Add(AttributePosition, 3, AttributeTypeFloat, false).Add(AttributeColor, 3, AttributeTypeFloat, false).End()
	c := NewVertexDecl().Add(AttributePosition, 3, AttributeTypeFloat, false).Add(AttributeNormal, 3, AttributeTypeFloat, false).End()

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestBuilderEndCopiesElements(t *testing.T) {
	b := NewVertexDecl().Add(AttributePosition, 2, AttributeTypeFloat, false)
	first := b.End()
	b.Add(AttributeTexCoord0, 2, AttributeTypeFloat, false)

	assert.Len(t, first.Elements(), 1)
	assert.Equal(t, uint32(8), first.Stride())
}
