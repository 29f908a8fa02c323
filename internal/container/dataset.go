package container

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/layout"
	"github.com/robert-malhotra/h5compound/internal/message"
)

// Dataset is a dataset node.
type Dataset struct {
	Node
}

// Dataspace returns the dataset's extent.
func (d *Dataset) Dataspace() *message.Dataspace { return d.header.Dataspace() }

// Datatype returns the element type.
func (d *Dataset) Datatype() *message.Datatype { return d.header.Datatype() }

// Layout returns the storage layout message.
func (d *Dataset) Layout() *message.DataLayout { return d.header.DataLayout() }

// Shape returns the current dimensions; nil for a scalar.
func (d *Dataset) Shape() []uint64 {
	ds := d.Dataspace()
	if ds == nil {
		return nil
	}
	return ds.Dimensions
}

// MaxShape returns the maximum dimensions, [message.Unlimited] marking an
// unlimited axis.
func (d *Dataset) MaxShape() []uint64 {
	ds := d.Dataspace()
	if ds == nil {
		return nil
	}
	if ds.MaxDims == nil {
		return ds.Dimensions
	}
	return ds.MaxDims
}

// Chunked reports whether the dataset uses chunked storage.
func (d *Dataset) Chunked() bool {
	l := d.Layout()
	return l != nil && l.IsChunked()
}

// Storage describes the dataset for the layout package.
func (d *Dataset) Storage() (layout.Storage, error) {
	dt := d.Datatype()
	if dt == nil {
		return layout.Storage{}, fmt.Errorf("%s: missing or unreadable datatype", d.path)
	}
	s := layout.Storage{
		Layout:      d.Layout(),
		Dataspace:   d.Dataspace(),
		ElementSize: dt.Size,
	}
	m, err := d.header.Message(message.TypeFilterPipeline)
	if err != nil {
		return s, fmt.Errorf("%s: %w", d.path, err)
	}
	s.Filters, _ = m.(*message.FilterPipeline)
	return s, nil
}

// ReadRaw returns every element in row-major order as stored on disk.
func (d *Dataset) ReadRaw() ([]byte, error) {
	s, err := d.Storage()
	if err != nil {
		return nil, err
	}
	l, err := layout.New(s, d.file.reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.path, unsupported(err))
	}
	data, err := l.Read()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", d.path, err)
	}
	return data, nil
}

// CheckAppendable reports why rows cannot be appended to the dataset, or
// nil. It performs no writes.
func (d *Dataset) CheckAppendable(rows uint64) error {
	if !d.file.writable {
		return ErrReadOnly
	}
	if !d.Chunked() {
		return fmt.Errorf("%w: %s", ErrNotChunked, d.path)
	}
	s, err := d.Storage()
	if err != nil {
		return err
	}
	if err := layout.Supported(s); err != nil {
		return fmt.Errorf("%s: %w", d.path, unsupported(err))
	}
	ds := s.Dataspace
	if ds.Rank() != 1 {
		return fmt.Errorf("%w: %s has rank %d", ErrUnsupported, d.path, ds.Rank())
	}
	if n := ds.Dimensions[0] + rows; !ds.CanExtendTo([]uint64{n}) {
		return fmt.Errorf("%w: %s to %d rows", ErrNotExtendable, d.path, n)
	}
	if d.Layout().AddressOffset() < 0 {
		return fmt.Errorf("%w: %s layout version %d", ErrUnsupported, d.path, d.Layout().Version)
	}
	return nil
}

// AppendRows adds data, a whole number of elements, after the last row of a
// one-dimensional chunked dataset. Chunks and the rebuilt index are written
// first; the new index address and then the new extent are patched into the
// header last, so a failure before that leaves the dataset as it was.
func (d *Dataset) AppendRows(data []byte) error {
	s, err := d.Storage()
	if err != nil {
		return err
	}
	if s.ElementSize == 0 || len(data)%int(s.ElementSize) != 0 {
		return fmt.Errorf("%d bytes is not a whole number of %d-byte elements", len(data), s.ElementSize)
	}
	rows := uint64(len(data)) / uint64(s.ElementSize)
	if err := d.CheckAppendable(rows); err != nil {
		return err
	}
	if rows == 0 {
		return nil
	}

	f := d.file
	f.dirty = true
	ap := layout.Appender{W: f.file, R: f.reader, Alloc: f.allocator, K: f.chunkK()}
	root, err := ap.Append(s, data)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", d.path, err)
	}

	cfg := f.Config()
	entry, _ := d.header.Find(message.TypeDataLayout)
	addr := make([]byte, cfg.OffsetSize)
	binary.EncodeUint(cfg.ByteOrder, addr, root)
	if err := d.header.Patch(f.file, entry, d.Layout().AddressOffset(), addr); err != nil {
		return fmt.Errorf("updating %s chunk index address: %w", d.path, err)
	}
	return d.Extend([]uint64{s.Dataspace.Dimensions[0] + rows})
}

// Extend sets the dataset's current dimensions. The dataspace message is
// rewritten in place in its original encoding.
func (d *Dataset) Extend(dims []uint64) error {
	if !d.file.writable {
		return ErrReadOnly
	}
	ds := d.Dataspace()
	if ds == nil || !ds.CanExtendTo(dims) {
		return fmt.Errorf("%w: %s to %v", ErrNotExtendable, d.path, dims)
	}
	grown := *ds
	grown.Dimensions = append([]uint64(nil), dims...)

	d.file.dirty = true
	entry, _ := d.header.Find(message.TypeDataspace)
	if err := d.header.Replace(d.file.file, d.file.Config(), entry, &grown); err != nil {
		return fmt.Errorf("updating %s dataspace: %w", d.path, err)
	}
	return d.reload()
}

// unsupported tags layout limitations with ErrUnsupported.
func unsupported(err error) error {
	if errors.Is(err, layout.ErrFiltered) || errors.Is(err, layout.ErrUnsupportedIndex) || errors.Is(err, layout.ErrUnsupportedClass) {
		return fmt.Errorf("%w: %w", ErrUnsupported, err)
	}
	return err
}
