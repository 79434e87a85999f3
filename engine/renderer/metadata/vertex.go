package metadata

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"strings"
)

type VertexAttribute uint8

const (
	AttributePosition VertexAttribute = iota
	AttributeNormal
	AttributeColor
	AttributeTexCoord0
	AttributeTangent
	AttributeCount
)

var attributeNames = [AttributeCount]string{"position", "normal", "color", "texcoord0", "tangent"}

func (a VertexAttribute) String() string {
	if a < AttributeCount {
		return attributeNames[a]
	}
	return fmt.Sprintf("attribute(%d)", uint8(a))
}

// Location is the shader input location an attribute is fed to.
func (a VertexAttribute) Location() uint32 {
	return uint32(a)
}

type AttributeType uint8

const (
	AttributeTypeFloat AttributeType = iota
	AttributeTypeUint8
)

func (t AttributeType) Size() uint32 {
	switch t {
	case AttributeTypeFloat:
		return 4
	case AttributeTypeUint8:
		return 1
	}
	return 0
}

func (t AttributeType) String() string {
	switch t {
	case AttributeTypeFloat:
		return "float"
	case AttributeTypeUint8:
		return "uint8"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// Packing of an attribute description into 16 bits:
// bits 0-6 semantic, 7-9 component count, 10-14 component type, 15 normalised.
const (
	attrSemanticBits = 7
	attrCountBits    = 3
	attrTypeBits     = 5

	attrCountShift      = attrSemanticBits
	attrTypeShift       = attrCountShift + attrCountBits
	attrNormalizedShift = attrTypeShift + attrTypeBits

	attrSemanticMask = 1<<attrSemanticBits - 1
	attrCountMask    = 1<<attrCountBits - 1
	attrTypeMask     = 1<<attrTypeBits - 1
)

// EncodeAttribute packs an attribute description into 16 bits.
func EncodeAttribute(attr VertexAttribute, count uint8, typ AttributeType, normalized bool) uint16 {
	v := uint16(attr)&attrSemanticMask |
		uint16(count)&attrCountMask<<attrCountShift |
		uint16(typ)&attrTypeMask<<attrTypeShift
	if normalized {
		v |= 1 << attrNormalizedShift
	}
	return v
}

// DecodeAttribute is the inverse of EncodeAttribute.
func DecodeAttribute(v uint16) (attr VertexAttribute, count uint8, typ AttributeType, normalized bool) {
	attr = VertexAttribute(v & attrSemanticMask)
	count = uint8(v >> attrCountShift & attrCountMask)
	typ = AttributeType(v >> attrTypeShift & attrTypeMask)
	normalized = v>>attrNormalizedShift&1 == 1
	return
}

/** @brief One element of a vertex declaration. */
type VertexElement struct {
	Attribute  VertexAttribute
	Count      uint8
	Type       AttributeType
	Normalized bool
	/** @brief Byte offset from the start of the vertex. */
	Offset uint32
}

func (e VertexElement) Size() uint32 {
	return uint32(e.Count) * e.Type.Size()
}

func (e VertexElement) Encode() uint16 {
	return EncodeAttribute(e.Attribute, e.Count, e.Type, e.Normalized)
}

/**
 * @brief Describes the layout of one vertex: an ordered list of elements and
 * the total stride. Offsets are the running sum of the previous element sizes.
 */
type VertexDecl struct {
	elements []VertexElement
	stride   uint32
}

// VertexDeclBuilder accumulates elements until End is called.
type VertexDeclBuilder struct {
	decl VertexDecl
}

func NewVertexDecl() *VertexDeclBuilder {
	return &VertexDeclBuilder{}
}

func (b *VertexDeclBuilder) Add(attr VertexAttribute, count uint8, typ AttributeType, normalized bool) *VertexDeclBuilder {
	e := VertexElement{
		Attribute:  attr,
		Count:      count,
		Type:       typ,
		Normalized: normalized,
		Offset:     b.decl.stride,
	}
	b.decl.elements = append(b.decl.elements, e)
	b.decl.stride += e.Size()
	return b
}

func (b *VertexDeclBuilder) End() VertexDecl {
	d := b.decl
	d.elements = append([]VertexElement(nil), b.decl.elements...)
	return d
}

func (d VertexDecl) Elements() []VertexElement {
	return d.elements
}

func (d VertexDecl) Stride() uint32 {
	return d.stride
}

func (d VertexDecl) IsEmpty() bool {
	return len(d.elements) == 0
}

func (d VertexDecl) Find(attr VertexAttribute) (VertexElement, bool) {
	for _, e := range d.elements {
		if e.Attribute == attr {
			return e, true
		}
	}
	return VertexElement{}, false
}

func (d VertexDecl) Has(attr VertexAttribute) bool {
	_, ok := d.Find(attr)
	return ok
}

func (d VertexDecl) Equal(o VertexDecl) bool {
	if d.stride != o.stride || len(d.elements) != len(o.elements) {
		return false
	}
	for i := range d.elements {
		if d.elements[i] != o.elements[i] {
			return false
		}
	}
	return true
}

// Hash returns a stable key over the encoded elements, offsets and stride.
func (d VertexDecl) Hash() uint64 {
	h := fnv.New64a()
	var buf [6]byte
	for _, e := range d.elements {
		binary.LittleEndian.PutUint16(buf[0:2], e.Encode())
		binary.LittleEndian.PutUint32(buf[2:6], e.Offset)
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint32(buf[0:4], d.stride)
	h.Write(buf[:4])
	return h.Sum64()
}

func (d VertexDecl) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, e := range d.elements {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s:%dx%s", e.Attribute, e.Count, e.Type)
		if e.Normalized {
			sb.WriteString("n")
		}
		fmt.Fprintf(&sb, "@%d", e.Offset)
	}
	fmt.Fprintf(&sb, "] stride=%d", d.stride)
	return sb.String()
}
