package message

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// Unlimited is the maximum-dimension value of an extensible axis.
const Unlimited = ^uint64(0)

// DataspaceType is the kind of dataspace.
type DataspaceType uint8

const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Dataspace is the dataspace message (type 0x0001).
type Dataspace struct {
	Version    uint8
	SpaceType  DataspaceType
	Dimensions []uint64
	MaxDims    []uint64 // nil when equal to Dimensions
}

func (m *Dataspace) Type() Type { return TypeDataspace }

// Rank returns the number of dimensions.
func (m *Dataspace) Rank() int { return len(m.Dimensions) }

// NumElements returns the number of selected elements of the full extent.
func (m *Dataspace) NumElements() uint64 {
	switch m.SpaceType {
	case DataspaceNull:
		return 0
	case DataspaceScalar:
		return 1
	}
	n := uint64(1)
	for _, d := range m.Dimensions {
		n *= d
	}
	return n
}

// CanExtendTo reports whether the extent may grow to dims.
func (m *Dataspace) CanExtendTo(dims []uint64) bool {
	if m.SpaceType != DataspaceSimple || len(dims) != len(m.Dimensions) {
		return false
	}
	for i, d := range dims {
		limit := m.Dimensions[i]
		if m.MaxDims != nil {
			limit = m.MaxDims[i]
		}
		if limit != Unlimited && d > limit {
			return false
		}
	}
	return true
}

// NewDataspace returns a simple version 2 dataspace. maxDims may be nil.
func NewDataspace(dims, maxDims []uint64) *Dataspace {
	return &Dataspace{
		Version:    2,
		SpaceType:  DataspaceSimple,
		Dimensions: append([]uint64(nil), dims...),
		MaxDims:    append([]uint64(nil), maxDims...),
	}
}

func parseDataspace(data []byte, r *binary.Reader) (*Dataspace, error) {
	br := body(data, r)
	head, err := br.ReadBytes(4)
	if err != nil {
		return nil, truncated("dataspace", err)
	}
	ds := &Dataspace{Version: head[0]}
	rank := int(head[1])
	flags := head[2]

	switch ds.Version {
	case 1:
		br.Skip(4)
		ds.SpaceType = DataspaceSimple
		if rank == 0 {
			ds.SpaceType = DataspaceScalar
		}
	case 2:
		ds.SpaceType = DataspaceType(head[3])
	default:
		return nil, fmt.Errorf("unsupported dataspace version %d", ds.Version)
	}
	if ds.SpaceType != DataspaceSimple {
		return ds, nil
	}

	ds.Dimensions = make([]uint64, rank)
	for i := range ds.Dimensions {
		if ds.Dimensions[i], err = br.ReadLength(); err != nil {
			return nil, truncated("dataspace dims", err)
		}
	}
	if flags&0x01 != 0 {
		ds.MaxDims = make([]uint64, rank)
		for i := range ds.MaxDims {
			if ds.MaxDims[i], err = br.ReadLength(); err != nil {
				return nil, truncated("dataspace max dims", err)
			}
			if ds.MaxDims[i] == binary.Undefined(br.LengthSize()) {
				ds.MaxDims[i] = Unlimited
			}
		}
	}
	return ds, nil
}

// Serialize writes the message in its own version, so a parsed message can
// be patched back in place at the same size.
func (m *Dataspace) Serialize(w *binary.Writer) error {
	var flags uint8
	if len(m.MaxDims) > 0 {
		flags = 0x01
	}
	head := []byte{2, uint8(len(m.Dimensions)), flags, uint8(m.SpaceType)}
	if m.Version == 1 {
		head = []byte{1, uint8(len(m.Dimensions)), flags, 0, 0, 0, 0, 0}
	}
	if err := w.WriteBytes(head); err != nil {
		return err
	}
	for _, d := range m.Dimensions {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	for _, d := range m.MaxDims {
		if err := w.WriteLength(d); err != nil {
			return err
		}
	}
	return nil
}

func (m *Dataspace) SerializedSize(w *binary.Writer) int {
	head := 4
	if m.Version == 1 {
		head = 8
	}
	return head + (len(m.Dimensions)+len(m.MaxDims))*w.LengthSize()
}
