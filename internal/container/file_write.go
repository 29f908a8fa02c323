package container

import (
	"errors"
	"fmt"
	"os"

	"github.com/robert-malhotra/h5compound/internal/alloc"
	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/btree"
	"github.com/robert-malhotra/h5compound/internal/layout"
	"github.com/robert-malhotra/h5compound/internal/message"
	"github.com/robert-malhotra/h5compound/internal/object"
	"github.com/robert-malhotra/h5compound/internal/superblock"
)

// Create creates a new file holding an empty root group, truncating any
// existing file at path. It is written with a version 2 superblock and
// version 2 object headers.
func Create(path string) (*File, error) {
	osFile, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	sb := superblock.New()
	cfg := sb.ReaderConfig()
	a := alloc.New(uint64(sb.Size()))

	fail := func(err error) (*File, error) {
		osFile.Close()
		os.Remove(path)
		return nil, err
	}
	root, err := object.Write(osFile, a, cfg, groupMessages(), object.GroupReserve, "root group")
	if err != nil {
		return fail(err)
	}
	sb.RootGroupAddress = root
	sb.EOFAddress = a.EOF()
	raw, err := sb.Encode()
	if err != nil {
		return fail(fmt.Errorf("encoding superblock: %w", err))
	}
	if _, err := osFile.WriteAt(raw, 0); err != nil {
		return fail(fmt.Errorf("writing superblock: %w", err))
	}

	return &File{
		path:       path,
		file:       osFile,
		reader:     binary.NewReader(osFile, cfg),
		superblock: sb,
		writable:   true,
		allocator:  a,
	}, nil
}

func groupMessages() []message.Serializable {
	return []message.Serializable{message.NewLinkInfo(), &message.GroupInfo{}}
}

// CreateGroup creates an empty group at path. The parent group must exist.
func (f *File) CreateGroup(path string) (*Group, error) {
	parent, name, err := f.prepareLink(path)
	if err != nil {
		return nil, err
	}
	f.dirty = true
	addr, err := object.Write(f.file, f.allocator, f.Config(), groupMessages(), object.GroupReserve, "group")
	if err != nil {
		return nil, err
	}
	if err := parent.insertLink(message.NewHardLink(name, addr)); err != nil {
		return nil, err
	}
	n, err := f.OpenAt(addr, JoinPath(parent.path, name))
	if err != nil {
		return nil, err
	}
	return n.Group()
}

// CreateGroups creates every missing group along path.
func (f *File) CreateGroups(path string) (*Group, error) {
	if err := checkPath(path); err != nil {
		return nil, err
	}
	cur := "/"
	for _, name := range SplitPath(path) {
		cur = JoinPath(cur, name)
		n, err := f.Lookup(cur)
		if err == nil {
			if _, err := n.Group(); err != nil {
				return nil, err
			}
			continue
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if _, err := f.CreateGroup(cur); err != nil {
			return nil, err
		}
	}
	return f.OpenGroup(path)
}

// CreateDataset creates a dataset at path holding data, which must contain
// exactly the elements of dims in row-major order. Without [WithChunks] the
// data is stored contiguously. The object is linked into its parent only
// after its storage and header are written.
func (f *File) CreateDataset(path string, dt *message.Datatype, dims []uint64, data []byte, opts ...DatasetOption) (*Dataset, error) {
	options := &datasetOptions{}
	for _, opt := range opts {
		opt(options)
	}
	if dt == nil || dt.Size == 0 {
		return nil, errors.New("dataset needs a sized datatype")
	}
	n := uint64(1)
	for _, d := range dims {
		n *= d
	}
	if uint64(len(data)) != n*uint64(dt.Size) {
		return nil, fmt.Errorf("data is %d bytes, %v elements of %d bytes need %d", len(data), dims, dt.Size, n*uint64(dt.Size))
	}
	if options.maxDims != nil && len(options.maxDims) != len(dims) {
		return nil, fmt.Errorf("max dims %v do not match rank %d", options.maxDims, len(dims))
	}

	parent, name, err := f.prepareLink(path)
	if err != nil {
		return nil, err
	}
	f.dirty = true

	space := message.NewDataspace(dims, options.maxDims)
	var msgs []message.Serializable
	if options.chunks != nil {
		l, err := f.writeChunked(dt, space, options.chunks, data)
		if err != nil {
			return nil, err
		}
		msgs = []message.Serializable{space, dt, message.NewFillValue(message.AllocIncremental), l}
	} else {
		addr := binary.Undefined(f.Config().OffsetSize)
		if len(data) > 0 {
			addr = f.allocator.AllocAligned(uint64(len(data)), 8, "contiguous data")
			if _, err := f.file.WriteAt(data, int64(addr)); err != nil {
				return nil, fmt.Errorf("writing %s data: %w", path, err)
			}
		}
		l := message.NewContiguousLayout(addr, uint64(len(data)))
		msgs = []message.Serializable{space, dt, message.NewFillValue(message.AllocLate), l}
	}

	addr, err := object.Write(f.file, f.allocator, f.Config(), msgs, 0, "dataset")
	if err != nil {
		return nil, err
	}
	if err := parent.insertLink(message.NewHardLink(name, addr)); err != nil {
		return nil, err
	}
	node, err := f.OpenAt(addr, JoinPath(parent.path, name))
	if err != nil {
		return nil, err
	}
	return node.Dataset()
}

// writeChunked writes the chunks and index of a new one-dimensional chunked
// dataset and returns its layout message.
func (f *File) writeChunked(dt *message.Datatype, space *message.Dataspace, chunks []uint64, data []byte) (*message.DataLayout, error) {
	if space.Rank() != 1 || len(chunks) != 1 || chunks[0] == 0 {
		return nil, fmt.Errorf("%w: chunked datasets must be one-dimensional with a positive chunk extent", ErrUnsupported)
	}
	cfg := f.Config()
	tree := btree.ChunkTree{K: f.chunkK(), ChunkDims: chunks}
	root, err := btree.WriteChunkIndex(f.file, f.allocator, cfg, tree, btree.NewChunkIndex(1))
	if err != nil {
		return nil, err
	}
	l := message.NewChunkedLayout(chunks, dt.Size, root)
	if len(data) == 0 {
		return l, nil
	}

	empty := layout.Storage{
		Layout:      l,
		Dataspace:   message.NewDataspace([]uint64{0}, []uint64{message.Unlimited}),
		ElementSize: dt.Size,
	}
	ap := layout.Appender{W: f.file, R: f.reader, Alloc: f.allocator, K: tree.K}
	if l.Address, err = ap.Append(empty, data); err != nil {
		return nil, err
	}
	return l, nil
}

// prepareLink checks that a new object may be linked at path and returns the
// parent group and the link name.
func (f *File) prepareLink(path string) (*Group, string, error) {
	if f.closed {
		return nil, "", ErrClosed
	}
	if !f.writable {
		return nil, "", ErrReadOnly
	}
	parentPath, name, err := parentAndName(path)
	if err != nil {
		return nil, "", err
	}
	parent, err := f.OpenGroup(parentPath)
	if err != nil {
		return nil, "", err
	}
	if _, err := parent.Link(name); err == nil {
		return nil, "", fmt.Errorf("%w: %s", ErrExists, JoinPath(parent.path, name))
	} else if !errors.Is(err, ErrNotFound) {
		return nil, "", err
	}
	if parent.symbolTable() != nil {
		return nil, "", fmt.Errorf("%w: adding links to old-style group %s", ErrUnsupported, parent.path)
	}
	return parent, name, nil
}

// insertLink adds link to the group's header without moving it.
func (g *Group) insertLink(link *message.Link) error {
	f := g.file
	if err := g.header.Insert(f.file, f.Config(), f.allocator, link); err != nil {
		if errors.Is(err, object.ErrUnsupportedVersion) {
			return fmt.Errorf("%w: %v", ErrUnsupported, err)
		}
		return fmt.Errorf("linking %s: %w", JoinPath(g.path, link.Name), err)
	}
	return nil
}

// CreateHardLink adds a second name, path, for the object at addr.
func (f *File) CreateHardLink(path string, addr uint64) error {
	if _, err := f.OpenAt(addr, path); err != nil {
		return err
	}
	parent, name, err := f.prepareLink(path)
	if err != nil {
		return err
	}
	f.dirty = true
	return parent.insertLink(message.NewHardLink(name, addr))
}

// CreateSoftLink adds a link at path that resolves through target.
func (f *File) CreateSoftLink(path, target string) error {
	if err := checkPath(target); err != nil {
		return err
	}
	parent, name, err := f.prepareLink(path)
	if err != nil {
		return err
	}
	f.dirty = true
	return parent.insertLink(message.NewSoftLink(name, CleanPath(target)))
}

// CreateChunkedDataset creates a one-dimensional dataset of rows stored one
// row per chunk with an unlimited maximum extent, so it can always grow.
func (f *File) CreateChunkedDataset(path string, dt *message.Datatype, data []byte) (*Dataset, error) {
	if dt == nil || dt.Size == 0 {
		return nil, errors.New("dataset needs a sized datatype")
	}
	rows := uint64(len(data)) / uint64(dt.Size)
	return f.CreateDataset(path, dt, []uint64{rows}, data, WithChunks(1), WithMaxDims(message.Unlimited))
}
