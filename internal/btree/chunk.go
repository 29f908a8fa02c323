package btree

import (
	"fmt"
	"slices"

	gbtree "github.com/google/btree"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// Chunk locates one stored chunk of a dataset.
type Chunk struct {
	// Offset is the chunk's first element coordinate in each dataset
	// dimension.
	Offset     []uint64
	Size       uint32 // bytes on disk
	FilterMask uint32
	Address    uint64
}

func chunkLess(a, b Chunk) bool {
	return slices.Compare(a.Offset, b.Offset) < 0
}

// ChunkIndex is the set of chunks of one dataset, ordered by coordinates.
type ChunkIndex struct {
	Rank int
	tree *gbtree.BTreeG[Chunk]
}

// NewChunkIndex returns an empty index for a dataset of the given rank.
func NewChunkIndex(rank int) *ChunkIndex {
	return &ChunkIndex{Rank: rank, tree: gbtree.NewG(16, chunkLess)}
}

// Insert adds c, replacing any chunk at the same coordinates.
func (ix *ChunkIndex) Insert(c Chunk) error {
	if len(c.Offset) != ix.Rank {
		return fmt.Errorf("chunk offset has rank %d, index has rank %d", len(c.Offset), ix.Rank)
	}
	ix.tree.ReplaceOrInsert(c)
	return nil
}

// Len returns the number of chunks.
func (ix *ChunkIndex) Len() int { return ix.tree.Len() }

// Find returns the chunk starting at offset.
func (ix *ChunkIndex) Find(offset []uint64) (Chunk, bool) {
	return ix.tree.Get(Chunk{Offset: offset})
}

// Ascend calls fn for each chunk in coordinate order until fn returns false.
func (ix *ChunkIndex) Ascend(fn func(Chunk) bool) {
	ix.tree.Ascend(gbtree.ItemIteratorG[Chunk](fn))
}

// Chunks returns every chunk in coordinate order.
func (ix *ChunkIndex) Chunks() []Chunk {
	out := make([]Chunk, 0, ix.tree.Len())
	ix.Ascend(func(c Chunk) bool {
		out = append(out, c)
		return true
	})
	return out
}

// ReadChunkIndex loads the chunk B-tree rooted at addr for a dataset of the
// given rank. Chunks with an undefined address are skipped.
func ReadChunkIndex(r *binary.Reader, addr uint64, rank int) (*ChunkIndex, error) {
	ix := NewChunkIndex(rank)
	if r.IsUndefinedOffset(addr) {
		return ix, nil
	}
	if err := readChunkNode(r, ix, addr, 0); err != nil {
		return nil, err
	}
	return ix, nil
}

const maxDepth = 64

func readChunkNode(r *binary.Reader, ix *ChunkIndex, addr uint64, depth int) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: chunk tree deeper than %d", ErrInvalidNode, maxDepth)
	}
	nr := r.At(int64(addr))
	h, err := readNodeHeader(nr, NodeChunk)
	if err != nil {
		return fmt.Errorf("chunk node at %d: %w", addr, err)
	}

	for i := 0; i < int(h.Entries); i++ {
		key, err := readChunkKey(nr, ix.Rank)
		if err != nil {
			return fmt.Errorf("chunk node at %d key %d: %w", addr, i, err)
		}
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		if h.Level > 0 {
			if err := readChunkNode(r, ix, child, depth+1); err != nil {
				return err
			}
			continue
		}
		if nr.IsUndefinedOffset(child) || key.Size == 0 {
			continue
		}
		key.Address = child
		ix.tree.ReplaceOrInsert(key)
	}
	return nil
}

// readChunkKey reads one key. The trailing element-size coordinate is
// dropped.
func readChunkKey(r *binary.Reader, rank int) (Chunk, error) {
	var c Chunk
	var err error
	if c.Size, err = r.ReadUint32(); err != nil {
		return c, err
	}
	if c.FilterMask, err = r.ReadUint32(); err != nil {
		return c, err
	}
	c.Offset = make([]uint64, rank)
	for d := range rank {
		if c.Offset[d], err = r.ReadUint64(); err != nil {
			return c, err
		}
	}
	r.Skip(8)
	return c, nil
}

func chunkKeySize(rank int) int {
	return 8 + 8*(rank+1)
}
