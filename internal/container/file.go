package container

import (
	"errors"
	"fmt"
	"os"

	"github.com/robert-malhotra/h5compound/internal/alloc"
	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/btree"
	"github.com/robert-malhotra/h5compound/internal/object"
	"github.com/robert-malhotra/h5compound/internal/superblock"
)

// File is an open file.
type File struct {
	path       string
	file       *os.File
	reader     *binary.Reader
	superblock *superblock.Superblock
	closed     bool

	writable  bool
	dirty     bool
	allocator *alloc.Allocator
}

// Open opens a file for reading.
func Open(path string) (*File, error) {
	return open(path, os.O_RDONLY)
}

// OpenReadWrite opens an existing file for reading and writing. New
// structures are allocated past the current end of file.
func OpenReadWrite(path string) (*File, error) {
	return open(path, os.O_RDWR)
}

func open(path string, flag int) (*File, error) {
	osFile, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	sb, err := superblock.Read(osFile)
	if err != nil {
		osFile.Close()
		return nil, fmt.Errorf("reading superblock: %w", err)
	}
	if sb.FileOffset != 0 || sb.BaseAddress != 0 {
		osFile.Close()
		return nil, fmt.Errorf("%w: user block of %d bytes", ErrUnsupported, sb.FileOffset)
	}

	f := &File{
		path:       path,
		file:       osFile,
		reader:     binary.NewReader(osFile, sb.ReaderConfig()),
		superblock: sb,
	}
	if _, err := f.Root(); err != nil {
		osFile.Close()
		return nil, fmt.Errorf("opening root group: %w", err)
	}

	if flag&os.O_RDWR != 0 {
		info, err := osFile.Stat()
		if err != nil {
			osFile.Close()
			return nil, err
		}
		f.writable = true
		f.allocator = alloc.New(max(sb.EOFAddress, uint64(info.Size())))
	}
	return f, nil
}

// Close flushes pending changes of a writable file and closes it. Closing
// twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	err := f.flush()
	return errors.Join(err, f.file.Close())
}

// Flush records the end of file in the superblock and syncs the file.
func (f *File) Flush() error {
	if f.closed {
		return ErrClosed
	}
	return f.flush()
}

func (f *File) flush() error {
	if !f.writable || !f.dirty {
		return nil
	}
	if err := f.superblock.UpdateEOF(f.file, f.allocator.EOF()); err != nil {
		return fmt.Errorf("updating superblock: %w", err)
	}
	f.dirty = false
	return f.file.Sync()
}

// Path returns the file's name on disk.
func (f *File) Path() string { return f.path }

// Writable reports whether the file was opened for writing.
func (f *File) Writable() bool { return f.writable }

// Superblock returns the parsed superblock.
func (f *File) Superblock() *superblock.Superblock { return f.superblock }

// Config returns the field widths of the file.
func (f *File) Config() binary.Config { return f.reader.Config() }

// RootAddress is the object header address of the root group.
func (f *File) RootAddress() uint64 { return f.superblock.RootGroupAddress }

// AllocStats returns allocation statistics of a writable file.
func (f *File) AllocStats() alloc.Stats {
	if f.allocator == nil {
		return alloc.Stats{}
	}
	return f.allocator.Stats()
}

// chunkK is the chunk B-tree K of this file.
func (f *File) chunkK() int {
	if k := f.superblock.IndexedStorageK; k > 0 {
		return int(k)
	}
	return btree.DefaultK
}

// Root returns the root group.
func (f *File) Root() (*Group, error) {
	n, err := f.OpenAt(f.RootAddress(), "/")
	if err != nil {
		return nil, err
	}
	return n.Group()
}

// OpenAt reads the object header at addr and returns it as a node named
// path. Every call reads the header afresh.
func (f *File) OpenAt(addr uint64, path string) (*Node, error) {
	if f.closed {
		return nil, ErrClosed
	}
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", addr, err)
	}
	return &Node{file: f, path: path, addr: addr, header: h}, nil
}

// Lookup resolves path from the root group, following soft links.
func (f *File) Lookup(path string) (*Node, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if err := checkPath(path); err != nil {
		return nil, err
	}
	depth := 0
	return f.lookup(SplitPath(path), &depth)
}

func (f *File) lookup(parts []string, depth *int) (*Node, error) {
	cur, err := f.OpenAt(f.RootAddress(), "/")
	if err != nil {
		return nil, err
	}
	for _, name := range parts {
		g, err := cur.Group()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", cur.path, err)
		}
		link, err := g.Link(name)
		if err != nil {
			return nil, err
		}
		path := JoinPath(cur.path, name)
		switch link.Kind {
		case LinkHard:
			cur, err = f.OpenAt(link.Address, path)
		case LinkSoft:
			*depth++
			if *depth > MaxLinkDepth {
				return nil, ErrLinkDepth
			}
			cur, err = f.lookup(SplitPath(link.Target), depth)
			if err == nil {
				cur.path = path
			}
		default:
			err = fmt.Errorf("%w: external link %s -> %s:%s", ErrUnsupported, path, link.File, link.Target)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}

// Exists reports whether path resolves to an object.
func (f *File) Exists(path string) bool {
	_, err := f.Lookup(path)
	return err == nil
}

// OpenGroup resolves path to a group.
func (f *File) OpenGroup(path string) (*Group, error) {
	n, err := f.Lookup(path)
	if err != nil {
		return nil, err
	}
	return n.Group()
}

// OpenDataset resolves path to a dataset.
func (f *File) OpenDataset(path string) (*Dataset, error) {
	n, err := f.Lookup(path)
	if err != nil {
		return nil, err
	}
	return n.Dataset()
}
