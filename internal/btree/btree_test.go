package btree

import (
	"errors"
	"fmt"
	"testing"

	"github.com/robert-malhotra/h5compound/internal/alloc"
	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/heap"
)

func rowChunks(n int) *ChunkIndex {
	ix := NewChunkIndex(1)
	for i := n - 1; i >= 0; i-- {
		_ = ix.Insert(Chunk{Offset: []uint64{uint64(i)}, Size: 16, Address: uint64(100000 + 16*i)})
	}
	return ix
}

func TestChunkIndexOrdering(t *testing.T) {
	ix := rowChunks(10)
	if ix.Len() != 10 {
		t.Fatalf("Len = %d, want 10", ix.Len())
	}
	for i, c := range ix.Chunks() {
		if c.Offset[0] != uint64(i) {
			t.Fatalf("chunk %d has offset %d", i, c.Offset[0])
		}
	}
	c, ok := ix.Find([]uint64{7})
	if !ok || c.Address != 100000+16*7 {
		t.Fatalf("Find(7) = %+v, %v", c, ok)
	}
	if _, ok := ix.Find([]uint64{10}); ok {
		t.Fatal("Find(10) found a chunk")
	}

	_ = ix.Insert(Chunk{Offset: []uint64{7}, Size: 16, Address: 1})
	if c, _ := ix.Find([]uint64{7}); c.Address != 1 || ix.Len() != 10 {
		t.Fatalf("replace failed: %+v len %d", c, ix.Len())
	}
}

func TestChunkIndexRankMismatch(t *testing.T) {
	ix := NewChunkIndex(1)
	if err := ix.Insert(Chunk{Offset: []uint64{0, 0}}); err == nil {
		t.Fatal("expected rank mismatch error")
	}
}

func TestWriteReadChunkIndex(t *testing.T) {
	cfg := binary.DefaultConfig()
	tree := ChunkTree{K: 2, ChunkDims: []uint64{1}}

	for _, n := range []int{0, 1, 4, 5, 16, 37} {
		t.Run(fmt.Sprintf("%d chunks", n), func(t *testing.T) {
			buf := binary.NewBuffer(4096)
			a := alloc.New(0)
			root, err := WriteChunkIndex(buf, a, cfg, tree, rowChunks(n))
			if err != nil {
				t.Fatalf("WriteChunkIndex: %v", err)
			}
			got, err := ReadChunkIndex(binary.NewReader(buf, cfg), root, 1)
			if err != nil {
				t.Fatalf("ReadChunkIndex: %v", err)
			}
			if got.Len() != n {
				t.Fatalf("read %d chunks, want %d", got.Len(), n)
			}
			for i, c := range got.Chunks() {
				if c.Offset[0] != uint64(i) || c.Size != 16 || c.Address != uint64(100000+16*i) {
					t.Fatalf("chunk %d = %+v", i, c)
				}
			}

			level := buf.Bytes()[root+5]
			if n > 4 && level == 0 {
				t.Fatalf("root of %d chunks is a leaf", n)
			}
			if n <= 4 && level != 0 {
				t.Fatalf("root of %d chunks has level %d", n, level)
			}
			if err := a.Validate(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestWriteChunkIndexNodeSize(t *testing.T) {
	cfg := binary.DefaultConfig()
	tree := ChunkTree{K: DefaultK, ChunkDims: []uint64{1}}
	a := alloc.New(0)
	if _, err := WriteChunkIndex(binary.NewBuffer(0), a, cfg, tree, NewChunkIndex(1)); err != nil {
		t.Fatal(err)
	}
	// 24-byte header, 65 keys of 24 bytes, 64 child addresses.
	if want := uint64(24 + 65*24 + 64*8); a.EOF() != want {
		t.Fatalf("node size = %d, want %d", a.EOF(), want)
	}
}

func TestWriteChunkIndexRejectsBadTree(t *testing.T) {
	cfg := binary.DefaultConfig()
	if _, err := WriteChunkIndex(binary.NewBuffer(0), alloc.New(0), cfg, ChunkTree{K: 0, ChunkDims: []uint64{1}}, NewChunkIndex(1)); err == nil {
		t.Fatal("expected error for K=0")
	}
	if _, err := WriteChunkIndex(binary.NewBuffer(0), alloc.New(0), cfg, ChunkTree{K: 2, ChunkDims: []uint64{1, 1}}, NewChunkIndex(1)); err == nil {
		t.Fatal("expected rank mismatch error")
	}
}

func TestReadChunkIndexUndefinedRoot(t *testing.T) {
	ix, err := ReadChunkIndex(binary.NewReader(binary.NewBuffer(0), binary.DefaultConfig()), binary.Undefined(8), 1)
	if err != nil || ix.Len() != 0 {
		t.Fatalf("got %v, %v", ix, err)
	}
}

func TestReadChunkIndexWrongNodeType(t *testing.T) {
	buf := writeGroupFixture(t)
	_, err := ReadChunkIndex(binary.NewReader(buf, binary.DefaultConfig()), 0, 1)
	if !errors.Is(err, ErrInvalidNode) {
		t.Fatalf("err = %v, want ErrInvalidNode", err)
	}
}

// writeGroupFixture lays out an old-style group: a one-leaf group B-tree at
// 0, a symbol node at 256 and a local heap at 512 with its data at 576.
func writeGroupFixture(t *testing.T) *binary.Buffer {
	t.Helper()
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(1024)

	w := binary.NewWriter(buf, cfg)
	_ = w.WriteBytes(Signature)
	_ = w.WriteBytes([]byte{NodeGroup, 0})
	_ = w.WriteUint16(1)
	_ = w.WriteUndefinedOffset()
	_ = w.WriteUndefinedOffset()
	_ = w.WriteLength(0)
	_ = w.WriteOffset(256)
	_ = w.WriteLength(14)

	names := []byte("\x00comp\x00tsA\x00/comp\x00")
	w = binary.NewWriter(buf, cfg).At(256)
	_ = w.WriteBytes(SymbolNodeSignature)
	_ = w.WriteBytes([]byte{1, 0})
	_ = w.WriteUint16(3)
	entry := func(name, addr uint64, cache uint32, scratch uint32) {
		_ = w.WriteOffset(name)
		_ = w.WriteOffset(addr)
		_ = w.WriteUint32(cache)
		_ = w.WriteUint32(0)
		_ = w.WriteUint32(scratch)
		_ = w.WriteZeros(12)
	}
	entry(1, 800, cacheNone, 0)
	entry(6, 900, cacheHeader, 0)
	entry(1, 0, cacheSoftLink, 10)

	w = binary.NewWriter(buf, cfg).At(512)
	_ = w.WriteBytes(heap.Signature)
	_ = w.WriteBytes([]byte{0, 0, 0, 0})
	_ = w.WriteLength(uint64(len(names)))
	_ = w.WriteLength(uint64(len(names)))
	_ = w.WriteOffset(576)
	_, _ = buf.WriteAt(names, 576)
	return buf
}

func TestReadGroupEntries(t *testing.T) {
	buf := writeGroupFixture(t)
	r := binary.NewReader(buf, binary.DefaultConfig())
	names, err := heap.ReadLocal(r, 512)
	if err != nil {
		t.Fatalf("ReadLocal: %v", err)
	}
	entries, err := ReadGroupEntries(r, 0, names)
	if err != nil {
		t.Fatalf("ReadGroupEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %+v", entries)
	}
	if entries[0].Name != "comp" || entries[0].ObjectAddress != 800 || entries[0].Soft {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Name != "tsA" || entries[1].ObjectAddress != 900 {
		t.Errorf("entry 1 = %+v", entries[1])
	}
	if !entries[2].Soft || entries[2].SoftLinkValue != "/comp" {
		t.Errorf("entry 2 = %+v", entries[2])
	}
}

var errFull = errors.New("writer full")

// cappedWriter accepts writes ending at or before limit and fails the rest.
type cappedWriter struct{ limit int64 }

func (c cappedWriter) WriteAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > c.limit {
		return 0, errFull
	}
	return len(p), nil
}

func TestEncodeNodeReportsWriteErrors(t *testing.T) {
	tree := ChunkTree{K: 2, ChunkDims: []uint64{1}}
	cfg := binary.DefaultConfig()
	n := node{
		keys:     []Chunk{{Offset: []uint64{0}, Size: 16}, {Offset: []uint64{1}}},
		children: []uint64{4096},
	}

	full := binary.NewBuffer(0)
	if err := tree.encodeNode(binary.NewWriter(full, cfg), n, 0, 0, 0); err != nil {
		t.Fatalf("encodeNode: %v", err)
	}
	for limit := 0; limit < full.Len(); limit++ {
		w := binary.NewWriter(cappedWriter{limit: int64(limit)}, cfg)
		if err := tree.encodeNode(w, n, 0, 0, 0); !errors.Is(err, errFull) {
			t.Fatalf("limit %d: err = %v, want errFull", limit, err)
		}
	}
}
