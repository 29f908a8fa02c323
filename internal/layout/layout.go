package layout

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/message"
)

var (
	ErrFiltered         = errors.New("filtered chunk storage")
	ErrUnsupportedIndex = errors.New("unsupported chunk index")
	ErrUnsupportedClass = errors.New("unsupported layout class")
)

// Layout reads every element of a dataset in row-major order.
type Layout interface {
	Read() ([]byte, error)
	Class() message.LayoutClass
}

// Storage bundles what a layout needs to know about its dataset.
type Storage struct {
	Layout      *message.DataLayout
	Dataspace   *message.Dataspace
	ElementSize uint32
	Filters     *message.FilterPipeline // nil when unfiltered
}

// Size is the number of bytes the dataset's elements occupy in memory.
func (s Storage) Size() uint64 {
	if s.Dataspace == nil {
		return 0
	}
	return s.Dataspace.NumElements() * uint64(s.ElementSize)
}

// New returns the reader for s's layout class.
func New(s Storage, r *binary.Reader) (Layout, error) {
	if s.Layout == nil {
		return nil, errors.New("dataset has no layout message")
	}
	switch s.Layout.Class {
	case message.LayoutCompact:
		return &Compact{data: s.Layout.CompactData, size: s.Size()}, nil
	case message.LayoutContiguous:
		return &Contiguous{storage: s, reader: r}, nil
	case message.LayoutChunked:
		return NewChunked(s, r)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedClass, s.Layout.Class)
}

// Compact storage lives inside the object header.
type Compact struct {
	data []byte
	size uint64
}

func (c *Compact) Class() message.LayoutClass { return message.LayoutCompact }

func (c *Compact) Read() ([]byte, error) {
	if uint64(len(c.data)) < c.size {
		return nil, fmt.Errorf("compact data holds %d bytes, dataset needs %d", len(c.data), c.size)
	}
	out := make([]byte, c.size)
	copy(out, c.data)
	return out, nil
}

// Contiguous storage is a single block of the file.
type Contiguous struct {
	storage Storage
	reader  *binary.Reader
}

func (c *Contiguous) Class() message.LayoutClass { return message.LayoutContiguous }

// Read returns the dataset's bytes. Storage that was never allocated reads
// as zeros.
func (c *Contiguous) Read() ([]byte, error) {
	size := c.storage.Size()
	addr := c.storage.Layout.Address
	if c.reader.IsUndefinedOffset(addr) || size == 0 {
		return make([]byte, size), nil
	}
	if s := c.storage.Layout.Size; s != 0 && s < size {
		return nil, fmt.Errorf("contiguous block holds %d bytes, dataset needs %d", s, size)
	}
	data, err := c.reader.At(int64(addr)).ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("reading contiguous data at %d: %w", addr, err)
	}
	return data, nil
}
