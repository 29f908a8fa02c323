package btree

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/h5compound/internal/alloc"
	"github.com/robert-malhotra/h5compound/internal/binary"
)

// ChunkTree describes the dataset a chunk index is written for.
type ChunkTree struct {
	K         int      // node capacity is 2K children
	ChunkDims []uint64 // chunk extent per dataset dimension
}

// nodeSize is the on-disk size of a node, which is always allocated for a
// full 2K entries.
func (t ChunkTree) nodeSize(cfg binary.Config) int {
	rank := len(t.ChunkDims)
	return headerSize(cfg.OffsetSize) + (2*t.K+1)*chunkKeySize(rank) + 2*t.K*cfg.OffsetSize
}

// node is a node being built: keys[i] bounds child i from the left and
// keys[len(children)] is the right bound of the last child.
type node struct {
	addr     uint64
	keys     []Chunk
	children []uint64
}

// WriteChunkIndex writes ix as a fresh B-tree and returns the root address.
// Leaves are filled to 2K children; each level above indexes the one below
// until a single root remains. An empty index is written as an empty leaf.
func WriteChunkIndex(f io.WriterAt, a *alloc.Allocator, cfg binary.Config, t ChunkTree, ix *ChunkIndex) (uint64, error) {
	if t.K <= 0 {
		return 0, fmt.Errorf("invalid B-tree K %d", t.K)
	}
	if len(t.ChunkDims) != ix.Rank {
		return 0, fmt.Errorf("chunk dims have rank %d, index has rank %d", len(t.ChunkDims), ix.Rank)
	}
	chunks := ix.Chunks()
	width := 2 * t.K

	var level []node
	for start := 0; start < len(chunks); start += width {
		end := min(start+width, len(chunks))
		n := node{}
		for _, c := range chunks[start:end] {
			n.keys = append(n.keys, c)
			n.children = append(n.children, c.Address)
		}
		n.keys = append(n.keys, t.rightKey(chunks, end))
		level = append(level, n)
	}
	if len(level) == 0 {
		level = []node{{keys: []Chunk{t.rightKey(nil, 0)}}}
	}

	for depth := uint8(0); ; depth++ {
		if err := t.writeLevel(f, a, cfg, level, depth); err != nil {
			return 0, err
		}
		if len(level) == 1 {
			return level[0].addr, nil
		}
		var parents []node
		for start := 0; start < len(level); start += width {
			end := min(start+width, len(level))
			p := node{}
			for _, child := range level[start:end] {
				p.keys = append(p.keys, child.keys[0])
				p.children = append(p.children, child.addr)
			}
			p.keys = append(p.keys, level[end-1].keys[len(level[end-1].keys)-1])
			parents = append(parents, p)
		}
		level = parents
	}
}

// rightKey is the upper bound of the leaf ending before chunks[end]: the next
// chunk's key, or one chunk past the last chunk.
func (t ChunkTree) rightKey(chunks []Chunk, end int) Chunk {
	if end < len(chunks) {
		return Chunk{Offset: chunks[end].Offset}
	}
	off := make([]uint64, len(t.ChunkDims))
	if end > 0 {
		last := chunks[end-1].Offset
		copy(off, last)
		off[0] += t.ChunkDims[0]
	}
	return Chunk{Offset: off}
}

// writeLevel allocates and writes the nodes of one level, linking siblings.
func (t ChunkTree) writeLevel(f io.WriterAt, a *alloc.Allocator, cfg binary.Config, level []node, depth uint8) error {
	size := t.nodeSize(cfg)
	for i := range level {
		level[i].addr = a.AllocAligned(uint64(size), 8, "chunk B-tree node")
	}
	undef := binary.Undefined(cfg.OffsetSize)
	for i, n := range level {
		left, right := undef, undef
		if i > 0 {
			left = level[i-1].addr
		}
		if i+1 < len(level) {
			right = level[i+1].addr
		}
		buf := binary.NewBuffer(size)
		w := binary.NewWriter(buf, cfg)
		if err := t.encodeNode(w, n, depth, left, right); err != nil {
			return fmt.Errorf("encoding chunk B-tree node: %w", err)
		}
		if err := w.WriteZeros(size - buf.Len()); err != nil {
			return fmt.Errorf("encoding chunk B-tree node: %w", err)
		}
		if _, err := f.WriteAt(buf.Bytes(), int64(n.addr)); err != nil {
			return fmt.Errorf("writing chunk B-tree node: %w", err)
		}
	}
	return nil
}

func (t ChunkTree) encodeNode(w *binary.Writer, n node, depth uint8, left, right uint64) error {
	if err := w.WriteBytes(Signature); err != nil {
		return err
	}
	if err := w.WriteBytes([]byte{NodeChunk, depth}); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(n.children))); err != nil {
		return err
	}
	if err := w.WriteOffset(left); err != nil {
		return err
	}
	if err := w.WriteOffset(right); err != nil {
		return err
	}
	for j, key := range n.keys {
		if err := t.writeKey(w, key); err != nil {
			return err
		}
		if j < len(n.children) {
			if err := w.WriteOffset(n.children[j]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t ChunkTree) writeKey(w *binary.Writer, c Chunk) error {
	if err := w.WriteUint32(c.Size); err != nil {
		return err
	}
	if err := w.WriteUint32(c.FilterMask); err != nil {
		return err
	}
	for _, o := range c.Offset {
		if err := w.WriteUint64(o); err != nil {
			return err
		}
	}
	return w.WriteUint64(0)
}
