package layout

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/btree"
	"github.com/robert-malhotra/h5compound/internal/message"
)

// Chunked storage is a set of equally shaped chunks found through a B-tree.
type Chunked struct {
	storage Storage
	reader  *binary.Reader
}

// NewChunked checks that the chunk storage is one this package can read.
func NewChunked(s Storage, r *binary.Reader) (*Chunked, error) {
	if err := Supported(s); err != nil {
		return nil, err
	}
	return &Chunked{storage: s, reader: r}, nil
}

// Supported reports why s cannot be read or appended to, or nil.
func Supported(s Storage) error {
	l := s.Layout
	if l.IndexType != message.IndexBTreeV1 {
		return fmt.Errorf("%w: type %d", ErrUnsupportedIndex, l.IndexType)
	}
	if s.Filters != nil && len(s.Filters.Filters) > 0 {
		return fmt.Errorf("%w: filters %v", ErrFiltered, s.Filters.Filters)
	}
	if s.Dataspace != nil && len(l.ChunkDims) != s.Dataspace.Rank() {
		return fmt.Errorf("chunk rank %d does not match dataset rank %d", len(l.ChunkDims), s.Dataspace.Rank())
	}
	return nil
}

func (c *Chunked) Class() message.LayoutClass { return message.LayoutChunked }

// Index loads the dataset's chunk index.
func (c *Chunked) Index() (*btree.ChunkIndex, error) {
	return btree.ReadChunkIndex(c.reader, c.storage.Layout.Address, len(c.storage.Layout.ChunkDims))
}

// Read assembles the dataset from its chunks. Chunks absent from the index
// read as zeros.
func (c *Chunked) Read() ([]byte, error) {
	out := make([]byte, c.storage.Size())
	if len(out) == 0 {
		return out, nil
	}
	ix, err := c.Index()
	if err != nil {
		return nil, err
	}

	dims := c.storage.Dataspace.Dimensions
	chunkDims := c.storage.Layout.ChunkDims
	elem := uint64(c.storage.ElementSize)
	chunkBytes := elem
	for _, d := range chunkDims {
		chunkBytes *= d
	}

	var readErr error
	ix.Ascend(func(ch btree.Chunk) bool {
		if !inside(ch.Offset, dims) {
			return true
		}
		data, err := c.reader.At(int64(ch.Address)).ReadBytes(int(chunkBytes))
		if err != nil {
			readErr = fmt.Errorf("reading chunk %v at %d: %w", ch.Offset, ch.Address, err)
			return false
		}
		copyChunk(out, data, dims, chunkDims, ch.Offset, elem)
		return true
	})
	if readErr != nil {
		return nil, readErr
	}
	return out, nil
}

func inside(offset, dims []uint64) bool {
	for d, o := range offset {
		if o >= dims[d] {
			return false
		}
	}
	return true
}

// copyChunk copies the part of a chunk that lies within the dataset extent
// into the row-major output buffer.
func copyChunk(out, chunk []byte, dims, chunkDims, origin []uint64, elem uint64) {
	rank := len(dims)
	// Strides in bytes, for the dataset and for the chunk.
	dst := make([]uint64, rank)
	src := make([]uint64, rank)
	dst[rank-1], src[rank-1] = elem, elem
	for d := rank - 2; d >= 0; d-- {
		dst[d] = dst[d+1] * dims[d+1]
		src[d] = src[d+1] * chunkDims[d+1]
	}

	var walk func(d int, dstOff, srcOff uint64)
	walk = func(d int, dstOff, srcOff uint64) {
		n := min(chunkDims[d], dims[d]-origin[d])
		if d == rank-1 {
			copy(out[dstOff+origin[d]*elem:], chunk[srcOff:srcOff+n*elem])
			return
		}
		for i := uint64(0); i < n; i++ {
			walk(d+1, dstOff+(origin[d]+i)*dst[d], srcOff+i*src[d])
		}
	}
	walk(0, 0, 0)
}
