package message

import (
	"fmt"
	"math/bits"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// DatatypeClass is the class of a datatype.
type DatatypeClass uint8

const (
	ClassFixedPoint DatatypeClass = 0
	ClassFloatPoint DatatypeClass = 1
	ClassTime       DatatypeClass = 2
	ClassString     DatatypeClass = 3
	ClassBitfield   DatatypeClass = 4
	ClassOpaque     DatatypeClass = 5
	ClassCompound   DatatypeClass = 6
	ClassReference  DatatypeClass = 7
	ClassEnum       DatatypeClass = 8
	ClassVarLen     DatatypeClass = 9
	ClassArray      DatatypeClass = 10
)

var classNames = map[DatatypeClass]string{
	ClassFixedPoint: "integer",
	ClassFloatPoint: "float",
	ClassTime:       "time",
	ClassString:     "string",
	ClassBitfield:   "bitfield",
	ClassOpaque:     "opaque",
	ClassCompound:   "compound",
	ClassReference:  "reference",
	ClassEnum:       "enum",
	ClassVarLen:     "vlen",
	ClassArray:      "array",
}

func (c DatatypeClass) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// ByteOrder of numeric types.
type ByteOrder uint8

const (
	OrderLE ByteOrder = 0
	OrderBE ByteOrder = 1
)

// Reference kinds, stored in the low class bits of a reference type.
const (
	RefObject uint32 = 0
	RefRegion uint32 = 1
)

// Datatype is the datatype message (type 0x0003).
type Datatype struct {
	Version   uint8
	Class     DatatypeClass
	ClassBits uint32
	Size      uint32

	// Fixed-point and bitfield.
	ByteOrder    ByteOrder
	Signed       bool
	BitOffset    uint16
	BitPrecision uint16

	Members   []CompoundMember
	ArrayDims []uint32
	Base      *Datatype // enum, vlen and array base type

	// Properties holds the raw class properties of types that are kept
	// opaque (float, time, opaque, enum names and values).
	Properties []byte
}

// CompoundMember is one member of a compound datatype.
type CompoundMember struct {
	Name       string
	ByteOffset uint32
	Type       *Datatype
}

func (m *Datatype) Type() Type { return TypeDatatype }

// IsCompound reports whether this is a compound type.
func (m *Datatype) IsCompound() bool { return m.Class == ClassCompound }

// IsObjectReference reports whether this is an object reference type.
func (m *Datatype) IsObjectReference() bool {
	return m.Class == ClassReference && m.ClassBits&0x0F == RefObject
}

// MemberIndex returns the index of the named compound member, or -1.
func (m *Datatype) MemberIndex(name string) int {
	for i := range m.Members {
		if m.Members[i].Name == name {
			return i
		}
	}
	return -1
}

// String gives a short human-readable description such as "int32 LE".
func (m *Datatype) String() string {
	switch m.Class {
	case ClassFixedPoint:
		sign := "u"
		if m.Signed {
			sign = ""
		}
		order := "LE"
		if m.ByteOrder == OrderBE {
			order = "BE"
		}
		return fmt.Sprintf("%sint%d %s", sign, m.Size*8, order)
	case ClassFloatPoint:
		return fmt.Sprintf("float%d", m.Size*8)
	case ClassReference:
		if m.IsObjectReference() {
			return "object reference"
		}
		return "region reference"
	case ClassCompound:
		return fmt.Sprintf("compound(%d members, %d bytes)", len(m.Members), m.Size)
	}
	return fmt.Sprintf("%s(%d bytes)", m.Class, m.Size)
}

// Equal reports whether two datatypes describe the same binary layout.
func (m *Datatype) Equal(o *Datatype) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.Class != o.Class || m.Size != o.Size {
		return false
	}
	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		return m.ClassBits == o.ClassBits && m.BitOffset == o.BitOffset && m.BitPrecision == o.BitPrecision
	case ClassReference:
		return m.ClassBits&0x0F == o.ClassBits&0x0F
	case ClassCompound:
		if len(m.Members) != len(o.Members) {
			return false
		}
		for i := range m.Members {
			a, b := m.Members[i], o.Members[i]
			if a.Name != b.Name || a.ByteOffset != b.ByteOffset || !a.Type.Equal(b.Type) {
				return false
			}
		}
		return true
	case ClassArray:
		if len(m.ArrayDims) != len(o.ArrayDims) {
			return false
		}
		for i := range m.ArrayDims {
			if m.ArrayDims[i] != o.ArrayDims[i] {
				return false
			}
		}
		return m.Base.Equal(o.Base)
	case ClassVarLen:
		return m.ClassBits == o.ClassBits && m.Base.Equal(o.Base)
	}
	return m.ClassBits == o.ClassBits && string(m.Properties) == string(o.Properties)
}

func parseDatatype(data []byte, r *binary.Reader) (*Datatype, error) {
	return readDatatype(body(data, r))
}

// readDatatype decodes one datatype and leaves br just past it, which is
// what nested member and base types need.
func readDatatype(br *binary.Reader) (*Datatype, error) {
	head, err := br.ReadBytes(8)
	if err != nil {
		return nil, truncated("datatype", err)
	}
	dt := &Datatype{
		Version:   head[0] >> 4,
		Class:     DatatypeClass(head[0] & 0x0F),
		ClassBits: uint32(head[1]) | uint32(head[2])<<8 | uint32(head[3])<<16,
		Size:      uint32(binary.DecodeUint(br.Config().ByteOrder, head[4:8])),
	}

	switch dt.Class {
	case ClassFixedPoint, ClassBitfield:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		dt.Signed = dt.Class == ClassFixedPoint && dt.ClassBits&0x08 != 0
		off, err := br.ReadUint16()
		if err != nil {
			return nil, truncated("datatype bit offset", err)
		}
		prec, err := br.ReadUint16()
		if err != nil {
			return nil, truncated("datatype precision", err)
		}
		dt.BitOffset, dt.BitPrecision = off, prec

	case ClassFloatPoint:
		dt.ByteOrder = ByteOrder(dt.ClassBits & 0x01)
		if dt.Properties, err = br.ReadBytes(12); err != nil {
			return nil, truncated("float properties", err)
		}

	case ClassTime:
		if dt.Properties, err = br.ReadBytes(2); err != nil {
			return nil, truncated("time properties", err)
		}

	case ClassString, ClassReference:
		// Class bits only.

	case ClassOpaque:
		if dt.Properties, err = br.ReadBytes(int(dt.ClassBits & 0xFF)); err != nil {
			return nil, truncated("opaque tag", err)
		}

	case ClassCompound:
		n := int(dt.ClassBits & 0xFFFF)
		dt.Members = make([]CompoundMember, 0, n)
		for i := 0; i < n; i++ {
			member, err := readCompoundMember(br, dt.Version, dt.Size)
			if err != nil {
				return nil, fmt.Errorf("compound member %d: %w", i, err)
			}
			dt.Members = append(dt.Members, member)
		}

	case ClassEnum:
		if dt.Base, err = readDatatype(br); err != nil {
			return nil, err
		}
		start := br.Pos()
		n := int(dt.ClassBits & 0xFFFF)
		for i := 0; i < n; i++ {
			if _, err := readName(br, dt.Version < 3); err != nil {
				return nil, truncated("enum name", err)
			}
		}
		br.Skip(int64(n) * int64(dt.Base.Size))
		if dt.Properties, err = br.At(start).ReadBytes(int(br.Pos() - start)); err != nil {
			return nil, truncated("enum values", err)
		}

	case ClassVarLen:
		if dt.Base, err = readDatatype(br); err != nil {
			return nil, err
		}

	case ClassArray:
		if err := readArray(br, dt); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown datatype class %d", dt.Class)
	}
	return dt, nil
}

func readArray(br *binary.Reader, dt *Datatype) error {
	ndims, err := br.ReadUint8()
	if err != nil {
		return truncated("array rank", err)
	}
	if dt.Version < 3 {
		br.Skip(3)
	}
	dt.ArrayDims = make([]uint32, ndims)
	for i := range dt.ArrayDims {
		if dt.ArrayDims[i], err = br.ReadUint32(); err != nil {
			return truncated("array dims", err)
		}
	}
	if dt.Version < 3 {
		br.Skip(4 * int64(ndims)) // permutation indices
	}
	dt.Base, err = readDatatype(br)
	return err
}

func readCompoundMember(br *binary.Reader, version uint8, compoundSize uint32) (CompoundMember, error) {
	var member CompoundMember
	name, err := readName(br, version < 3)
	if err != nil {
		return member, truncated("member name", err)
	}
	member.Name = name

	offsetWidth := 4
	if version >= 3 {
		offsetWidth = memberOffsetSize(compoundSize)
	}
	off, err := br.ReadUintN(offsetWidth)
	if err != nil {
		return member, truncated("member offset", err)
	}
	member.ByteOffset = uint32(off)

	var dims []uint32
	if version == 1 {
		rank, err := br.ReadUint8()
		if err != nil {
			return member, truncated("member rank", err)
		}
		br.Skip(3 + 4 + 4) // reserved, permutation, reserved
		for i := 0; i < 4; i++ {
			d, err := br.ReadUint32()
			if err != nil {
				return member, truncated("member dims", err)
			}
			if i < int(rank) {
				dims = append(dims, d)
			}
		}
	}

	member.Type, err = readDatatype(br)
	if err != nil {
		return member, err
	}
	if len(dims) > 0 {
		total := member.Type.Size
		for _, d := range dims {
			total *= d
		}
		member.Type = &Datatype{Version: 2, Class: ClassArray, Size: total, ArrayDims: dims, Base: member.Type}
	}
	return member, nil
}

// readName reads a NUL-terminated name. Older encodings pad the name and its
// terminator to a multiple of eight bytes.
func readName(br *binary.Reader, pad8 bool) (string, error) {
	var name []byte
	for {
		c, err := br.ReadUint8()
		if err != nil {
			return "", err
		}
		if c == 0 {
			break
		}
		name = append(name, c)
	}
	if rem := (len(name) + 1) % 8; pad8 && rem != 0 {
		br.Skip(int64(8 - rem))
	}
	return string(name), nil
}

// memberOffsetSize is the width of a version 3 member offset: the fewest
// bytes that can hold the compound size.
func memberOffsetSize(compoundSize uint32) int {
	if compoundSize == 0 {
		return 1
	}
	return (bits.Len32(compoundSize)-1)/8 + 1
}
