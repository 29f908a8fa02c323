package layout

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/h5compound/internal/alloc"
	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/btree"
)

// Appender writes rows past the end of a one-dimensional chunked dataset.
type Appender struct {
	W     io.WriterAt
	R     *binary.Reader
	Alloc *alloc.Allocator
	K     int // chunk B-tree K
}

// Append stores data, a whole number of rows, after the dataset's current
// extent and writes a rebuilt chunk index. It returns the new index address;
// the caller publishes it together with the new extent. Rows landing in an
// existing partial chunk are written in place; every new chunk is carved
// from one allocation.
func (ap Appender) Append(s Storage, data []byte) (uint64, error) {
	if err := Supported(s); err != nil {
		return 0, err
	}
	if s.Dataspace.Rank() != 1 {
		return 0, fmt.Errorf("append needs a one-dimensional dataset, got rank %d", s.Dataspace.Rank())
	}
	elem := uint64(s.ElementSize)
	if elem == 0 || uint64(len(data))%elem != 0 {
		return 0, fmt.Errorf("%d bytes is not a whole number of %d-byte rows", len(data), elem)
	}

	rows := s.Dataspace.Dimensions[0]
	added := uint64(len(data)) / elem
	perChunk := s.Layout.ChunkDims[0]
	chunkBytes := perChunk * elem

	ix, err := btree.ReadChunkIndex(ap.R, s.Layout.Address, 1)
	if err != nil {
		return 0, fmt.Errorf("reading chunk index: %w", err)
	}

	// Rows that fit into the last, partially used chunk.
	pos := uint64(0)
	if within := rows % perChunk; within != 0 && added > 0 {
		last, ok := ix.Find([]uint64{rows - within})
		if ok {
			n := min(perChunk-within, added)
			if _, err := ap.W.WriteAt(data[:n*elem], int64(last.Address+within*elem)); err != nil {
				return 0, fmt.Errorf("writing into chunk %d: %w", rows-within, err)
			}
			pos = n
		}
	}

	first := rows + pos
	if pos == 0 {
		first = rows - rows%perChunk
	}
	var fresh uint64
	if pos < added {
		fresh = (rows + added - first + perChunk - 1) / perChunk
	}
	if fresh > 0 {
		block := make([]byte, fresh*chunkBytes)
		lead := (rows + pos - first) * elem
		copy(block[lead:], data[pos*elem:])
		base := ap.Alloc.AllocAligned(uint64(len(block)), 8, "chunk data")
		if _, err := ap.W.WriteAt(block, int64(base)); err != nil {
			return 0, fmt.Errorf("writing %d chunks: %w", fresh, err)
		}
		for i := uint64(0); i < fresh; i++ {
			c := btree.Chunk{
				Offset:  []uint64{first + i*perChunk},
				Size:    uint32(chunkBytes),
				Address: base + i*chunkBytes,
			}
			if err := ix.Insert(c); err != nil {
				return 0, err
			}
		}
	}

	tree := btree.ChunkTree{K: ap.K, ChunkDims: s.Layout.ChunkDims}
	root, err := btree.WriteChunkIndex(ap.W, ap.Alloc, ap.R.Config(), tree, ix)
	if err != nil {
		return 0, fmt.Errorf("writing chunk index: %w", err)
	}
	return root, nil
}
