package message

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// NewFixedPoint returns an integer type of size bytes with full precision.
func NewFixedPoint(size uint32, signed bool, order ByteOrder) *Datatype {
	bits := uint32(order) & 0x01
	if signed {
		bits |= 0x08
	}
	return &Datatype{
		Version:      1,
		Class:        ClassFixedPoint,
		ClassBits:    bits,
		Size:         size,
		ByteOrder:    order,
		Signed:       signed,
		BitPrecision: uint16(size * 8),
	}
}

// NewObjectReference returns the object reference type. Its size is the
// width of a stored object header address.
func NewObjectReference(size uint32) *Datatype {
	return &Datatype{
		Version:   1,
		Class:     ClassReference,
		ClassBits: RefObject,
		Size:      size,
	}
}

// NewCompound returns a compound type of the given total size.
func NewCompound(size uint32, members []CompoundMember) *Datatype {
	return &Datatype{
		Version:   3,
		Class:     ClassCompound,
		ClassBits: uint32(len(members)) & 0xFFFF,
		Size:      size,
		Members:   members,
	}
}

// Serialize writes the datatype. Compound and array types are always written
// in version 3 encoding, everything else in version 1.
func (m *Datatype) Serialize(w *binary.Writer) error {
	version := uint8(1)
	if m.Class == ClassCompound || m.Class == ClassArray {
		version = 3
	}
	head := []byte{
		uint8(m.Class) | version<<4,
		uint8(m.ClassBits), uint8(m.ClassBits >> 8), uint8(m.ClassBits >> 16),
	}
	if err := w.WriteBytes(head); err != nil {
		return err
	}
	if err := w.WriteUint32(m.Size); err != nil {
		return err
	}

	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		if err := w.WriteUint16(m.BitOffset); err != nil {
			return err
		}
		return w.WriteUint16(m.BitPrecision)

	case ClassString, ClassReference:
		return nil

	case ClassFloatPoint, ClassTime, ClassOpaque:
		return w.WriteBytes(m.Properties)

	case ClassCompound:
		width := memberOffsetSize(m.Size)
		for _, member := range m.Members {
			if err := w.WriteBytes(append([]byte(member.Name), 0)); err != nil {
				return err
			}
			if err := w.WriteUintN(uint64(member.ByteOffset), width); err != nil {
				return err
			}
			if err := member.Type.Serialize(w); err != nil {
				return err
			}
		}
		return nil

	case ClassArray:
		if err := w.WriteUint8(uint8(len(m.ArrayDims))); err != nil {
			return err
		}
		for _, d := range m.ArrayDims {
			if err := w.WriteUint32(d); err != nil {
				return err
			}
		}
		return m.Base.Serialize(w)
	}
	return fmt.Errorf("serializing %s datatype not supported", m.Class)
}

func (m *Datatype) SerializedSize(w *binary.Writer) int {
	size := 8
	switch m.Class {
	case ClassFixedPoint, ClassBitfield:
		size += 4
	case ClassFloatPoint, ClassTime, ClassOpaque:
		size += len(m.Properties)
	case ClassCompound:
		width := memberOffsetSize(m.Size)
		for _, member := range m.Members {
			size += len(member.Name) + 1 + width + member.Type.SerializedSize(w)
		}
	case ClassArray:
		size += 1 + 4*len(m.ArrayDims) + m.Base.SerializedSize(w)
	}
	return size
}
