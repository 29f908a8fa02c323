package message

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// Space allocation times.
const (
	AllocEarly       uint8 = 1
	AllocLate        uint8 = 2
	AllocIncremental uint8 = 3
)

// Fill value write times.
const (
	FillWriteOnAlloc uint8 = 0
	FillWriteNever   uint8 = 1
	FillWriteIfSet   uint8 = 2
)

// FillValue is the fill value message (type 0x0005).
type FillValue struct {
	Version        uint8
	SpaceAllocTime uint8
	FillWriteTime  uint8
	Defined        bool
	Value          []byte
}

func (m *FillValue) Type() Type { return TypeFillValue }

// NewFillValue returns a version 3 message with no user fill value, so
// unwritten elements read as zero.
func NewFillValue(allocTime uint8) *FillValue {
	return &FillValue{Version: 3, SpaceAllocTime: allocTime, FillWriteTime: FillWriteIfSet}
}

func parseFillValue(data []byte, r *binary.Reader) (*FillValue, error) {
	br := body(data, r)
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, truncated("fill value", err)
	}
	fv := &FillValue{Version: head[0]}

	switch fv.Version {
	case 1, 2:
		rest, err := br.ReadBytes(2)
		if err != nil {
			return nil, truncated("fill value", err)
		}
		fv.SpaceAllocTime = head[1]
		fv.FillWriteTime = rest[0]
		fv.Defined = rest[1] != 0
		if fv.Version == 1 || fv.Defined {
			if fv.Value, err = readFill(br); err != nil {
				return nil, err
			}
		}
	case 3:
		flags := head[1]
		fv.SpaceAllocTime = flags & 0x03
		fv.FillWriteTime = (flags >> 2) & 0x03
		fv.Defined = flags&0x20 != 0
		if fv.Defined {
			if fv.Value, err = readFill(br); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unsupported fill value version %d", fv.Version)
	}
	return fv, nil
}

func readFill(br *binary.Reader) ([]byte, error) {
	size, err := br.ReadUint32()
	if err != nil {
		return nil, truncated("fill value size", err)
	}
	value, err := br.ReadBytes(int(size))
	if err != nil {
		return nil, truncated("fill value data", err)
	}
	return value, nil
}

// Serialize writes a version 3 fill value message.
func (m *FillValue) Serialize(w *binary.Writer) error {
	flags := m.SpaceAllocTime&0x03 | (m.FillWriteTime&0x03)<<2
	if !m.Defined {
		return w.WriteBytes([]byte{3, flags})
	}
	if err := w.WriteBytes([]byte{3, flags | 0x20}); err != nil {
		return err
	}
	if err := w.WriteUint32(uint32(len(m.Value))); err != nil {
		return err
	}
	return w.WriteBytes(m.Value)
}

func (m *FillValue) SerializedSize(w *binary.Writer) int {
	if !m.Defined {
		return 2
	}
	return 6 + len(m.Value)
}

// FilterPipeline is the filter pipeline message (type 0x000B). Only the
// filter identifiers are kept: filtered datasets are rejected, not decoded.
type FilterPipeline struct {
	Version uint8
	Filters []uint16
}

func (m *FilterPipeline) Type() Type { return TypeFilterPipeline }

func parseFilterPipeline(data []byte, r *binary.Reader) (*FilterPipeline, error) {
	br := body(data, r)
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, truncated("filter pipeline", err)
	}
	m := &FilterPipeline{Version: head[0]}
	n := int(head[1])
	if m.Version == 1 {
		br.Skip(6)
	}
	for i := 0; i < n; i++ {
		id, err := br.ReadUint16()
		if err != nil {
			return nil, truncated("filter id", err)
		}
		m.Filters = append(m.Filters, id)

		var nameLen uint16
		if m.Version == 1 || id >= 256 {
			if nameLen, err = br.ReadUint16(); err != nil {
				return nil, truncated("filter name length", err)
			}
		}
		br.Skip(2) // flags
		nvalues, err := br.ReadUint16()
		if err != nil {
			return nil, truncated("filter values", err)
		}
		if m.Version == 1 {
			nameLen = (nameLen + 7) &^ 7
		}
		skip := int64(nameLen) + 4*int64(nvalues)
		if m.Version == 1 && nvalues%2 == 1 {
			skip += 4
		}
		br.Skip(skip)
	}
	return m, nil
}
