// Package spirv extracts the binding layout of a shader stage from its
// SPIR-V binary: uniform blocks with their members, sampled images,
// samplers, push constants and vertex inputs.
package spirv

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Magic      uint32 = 0x07230203
	headerSize        = 5
)

var (
	ErrInvalidMagic  = errors.New("spirv: invalid magic number")
	ErrTruncated     = errors.New("spirv: truncated module")
	ErrNoEntryPoint  = errors.New("spirv: no matching entry point")
	ErrMisalignedLen = errors.New("spirv: byte length is not a multiple of 4")
)

// Opcodes used by reflection.
const (
	opName             = 5
	opMemberName       = 6
	opEntryPoint       = 15
	opTypeBool         = 20
	opTypeInt          = 21
	opTypeFloat        = 22
	opTypeVector       = 23
	opTypeMatrix       = 24
	opTypeImage        = 25
	opTypeSampler      = 26
	opTypeSampledImage = 27
	opTypeArray        = 28
	opTypeRuntimeArray = 29
	opTypeStruct       = 30
	opTypePointer      = 32
	opConstant         = 43
	opVariable         = 59
	opDecorate         = 71
	opMemberDecorate   = 72
)

// Decorations.
const (
	decorationBlock         = 2
	decorationBufferBlock   = 3
	decorationRowMajor      = 4
	decorationArrayStride   = 6
	decorationMatrixStride  = 7
	decorationBuiltIn       = 11
	decorationLocation      = 30
	decorationBinding       = 33
	decorationDescriptorSet = 34
	decorationOffset        = 35
)

// Storage classes.
const (
	storageUniformConstant = 0
	storageInput           = 1
	storageUniform         = 2
	storagePushConstant    = 9
)

// Execution models.
const (
	modelVertex   = 0
	modelGeometry = 3
	modelFragment = 4
)

// BytesToWords converts a little endian SPIR-V byte stream to words.
func BytesToWords(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, ErrMisalignedLen
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// WordsToBytes is the inverse of BytesToWords.
func WordsToBytes(words []uint32) []byte {
	out := make([]byte, 0, len(words)*4)
	for _, w := range words {
		out = binary.LittleEndian.AppendUint32(out, w)
	}
	return out
}

type decoration struct {
	binding, set, location     uint32
	hasBinding, hasSet, hasLoc bool
	builtin                    bool
	block                      bool
	arrayStride                uint32
}

type memberDecoration struct {
	offset       uint32
	matrixStride uint32
	rowMajor     bool
	builtin      bool
}

type typeInfo struct {
	op       uint32
	width    uint32
	elem     uint32
	count    uint32
	lengthID uint32
	members  []uint32
	storage  uint32
	sampled  uint32
}

type variable struct {
	id      uint32
	typeID  uint32
	storage uint32
}

type entryPoint struct {
	model      uint32
	name       string
	interfaces []uint32
}

type module struct {
	names       map[uint32]string
	memberNames map[uint32]map[uint32]string
	decorations map[uint32]*decoration
	memberDecos map[uint32]map[uint32]*memberDecoration
	types       map[uint32]*typeInfo
	constants   map[uint32]uint32
	variables   []variable
	entryPoints []entryPoint
}

func (m *module) decoration(id uint32) *decoration {
	d, ok := m.decorations[id]
	if !ok {
		d = &decoration{}
		m.decorations[id] = d
	}
	return d
}

func (m *module) memberDecoration(id, member uint32) *memberDecoration {
	byMember, ok := m.memberDecos[id]
	if !ok {
		byMember = make(map[uint32]*memberDecoration)
		m.memberDecos[id] = byMember
	}
	d, ok := byMember[member]
	if !ok {
		d = &memberDecoration{}
		byMember[member] = d
	}
	return d
}

// decodeString reads a nul terminated literal string and returns it with
// the number of words it used.
func decodeString(words []uint32) (string, int) {
	var buf []byte
	for i, w := range words {
		for shift := 0; shift < 32; shift += 8 {
			c := byte(w >> shift)
			if c == 0 {
				return string(buf), i + 1
			}
			buf = append(buf, c)
		}
	}
	return string(buf), len(words)
}

func parse(code []uint32) (*module, error) {
	if len(code) < headerSize {
		return nil, ErrTruncated
	}
	if code[0] != Magic {
		return nil, ErrInvalidMagic
	}
	m := &module{
		names:       make(map[uint32]string),
		memberNames: make(map[uint32]map[uint32]string),
		decorations: make(map[uint32]*decoration),
		memberDecos: make(map[uint32]map[uint32]*memberDecoration),
		types:       make(map[uint32]*typeInfo),
		constants:   make(map[uint32]uint32),
	}

	for pos := headerSize; pos < len(code); {
		wordCount := int(code[pos] >> 16)
		opcode := code[pos] & 0xFFFF
		if wordCount == 0 || pos+wordCount > len(code) {
			return nil, fmt.Errorf("%w: instruction at word %d", ErrTruncated, pos)
		}
		args := code[pos+1 : pos+wordCount]
		if err := m.instruction(opcode, args); err != nil {
			return nil, fmt.Errorf("spirv: opcode %d at word %d: %w", opcode, pos, err)
		}
		pos += wordCount
	}
	return m, nil
}

func need(args []uint32, n int) error {
	if len(args) < n {
		return ErrTruncated
	}
	return nil
}

func (m *module) instruction(opcode uint32, args []uint32) error {
	switch opcode {
	case opName:
		if err := need(args, 1); err != nil {
			return err
		}
		m.names[args[0]], _ = decodeString(args[1:])
	case opMemberName:
		if err := need(args, 2); err != nil {
			return err
		}
		byMember, ok := m.memberNames[args[0]]
		if !ok {
			byMember = make(map[uint32]string)
			m.memberNames[args[0]] = byMember
		}
		byMember[args[1]], _ = decodeString(args[2:])
	case opEntryPoint:
		if err := need(args, 3); err != nil {
			return err
		}
		name, n := decodeString(args[2:])
		m.entryPoints = append(m.entryPoints, entryPoint{
			model:      args[0],
			name:       name,
			interfaces: append([]uint32(nil), args[2+n:]...),
		})
	case opTypeBool:
		if err := need(args, 1); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode, width: 32}
	case opTypeInt, opTypeFloat:
		if err := need(args, 2); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode, width: args[1]}
	case opTypeVector, opTypeMatrix:
		if err := need(args, 3); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode, elem: args[1], count: args[2]}
	case opTypeImage:
		if err := need(args, 7); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode, elem: args[1], sampled: args[6]}
	case opTypeSampler:
		if err := need(args, 1); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode}
	case opTypeSampledImage, opTypeRuntimeArray:
		if err := need(args, 2); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode, elem: args[1]}
	case opTypeArray:
		if err := need(args, 3); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode, elem: args[1], lengthID: args[2]}
	case opTypeStruct:
		if err := need(args, 1); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode, members: append([]uint32(nil), args[1:]...)}
	case opTypePointer:
		if err := need(args, 3); err != nil {
			return err
		}
		m.types[args[0]] = &typeInfo{op: opcode, storage: args[1], elem: args[2]}
	case opConstant:
		if err := need(args, 3); err != nil {
			return err
		}
		m.constants[args[1]] = args[2]
	case opVariable:
		if err := need(args, 3); err != nil {
			return err
		}
		m.variables = append(m.variables, variable{typeID: args[0], id: args[1], storage: args[2]})
	case opDecorate:
		if err := need(args, 2); err != nil {
			return err
		}
		d := m.decoration(args[0])
		switch args[1] {
		case decorationBinding:
			if err := need(args, 3); err != nil {
				return err
			}
			d.binding, d.hasBinding = args[2], true
		case decorationDescriptorSet:
			if err := need(args, 3); err != nil {
				return err
			}
			d.set, d.hasSet = args[2], true
		case decorationLocation:
			if err := need(args, 3); err != nil {
				return err
			}
			d.location, d.hasLoc = args[2], true
		case decorationBuiltIn:
			d.builtin = true
		case decorationBlock, decorationBufferBlock:
			d.block = true
		case decorationArrayStride:
			if err := need(args, 3); err != nil {
				return err
			}
			d.arrayStride = args[2]
		}
	case opMemberDecorate:
		if err := need(args, 3); err != nil {
			return err
		}
		d := m.memberDecoration(args[0], args[1])
		switch args[2] {
		case decorationOffset:
			if err := need(args, 4); err != nil {
				return err
			}
			d.offset = args[3]
		case decorationMatrixStride:
			if err := need(args, 4); err != nil {
				return err
			}
			d.matrixStride = args[3]
		case decorationRowMajor:
			d.rowMajor = true
		case decorationBuiltIn:
			d.builtin = true
		}
	}
	return nil
}
