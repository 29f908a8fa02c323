package object

import (
	"errors"
	"fmt"
	"testing"

	"github.com/robert-malhotra/h5compound/internal/alloc"
	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/message"
)

func newGroupHeader(t *testing.T) (*binary.Buffer, *alloc.Allocator, uint64) {
	t.Helper()
	buf := binary.NewBuffer(1024)
	a := alloc.New(48)
	cfg := binary.DefaultConfig()
	addr, err := Write(buf, a, cfg, []message.Serializable{
		message.NewLinkInfo(),
		&message.GroupInfo{},
	}, GroupReserve, "group")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	return buf, a, addr
}

func readHeader(t *testing.T, buf *binary.Buffer, addr uint64) *Header {
	t.Helper()
	h, err := Read(binary.NewReader(buf, binary.DefaultConfig()), addr)
	if err != nil {
		t.Fatalf("Read(%d): %v", addr, err)
	}
	return h
}

func TestEncodeReadRoundTrip(t *testing.T) {
	buf, _, addr := newGroupHeader(t)
	if addr%8 != 0 {
		t.Fatalf("header address %d not 8-aligned", addr)
	}
	h := readHeader(t, buf, addr)
	if h.Version != 2 {
		t.Fatalf("version = %d, want 2", h.Version)
	}
	if h.LinkInfo() == nil {
		t.Fatal("link info message missing")
	}
	if !h.Has(message.TypeGroupInfo) {
		t.Fatal("group info message missing")
	}
	if len(h.Links()) != 0 {
		t.Fatalf("new group has %d links", len(h.Links()))
	}
	nil0, ok := h.Find(message.TypeNIL)
	if !ok {
		t.Fatal("NIL reserve missing")
	}
	if got := nil0.Size + h.prefixSize(); got != GroupReserve {
		t.Fatalf("NIL reserve = %d bytes, want %d", got, GroupReserve)
	}
}

func TestEncodeRejectsTinyReserve(t *testing.T) {
	if _, err := Encode(binary.DefaultConfig(), nil, 3); err == nil {
		t.Fatal("expected error for a 3-byte reserve")
	}
}

func TestReadDetectsChecksumMismatch(t *testing.T) {
	buf, _, addr := newGroupHeader(t)
	raw := buf.Bytes()
	raw[addr+8] ^= 0xFF

	_, err := Read(binary.NewReader(buf, binary.DefaultConfig()), addr)
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestReadRejectsGarbage(t *testing.T) {
	buf := binary.NewBuffer(64)
	_, _ = buf.WriteAt([]byte("JUNKJUNK"), 0)
	_, err := Read(binary.NewReader(buf, binary.DefaultConfig()), 0)
	if !errors.Is(err, ErrInvalidHeader) {
		t.Fatalf("err = %v, want ErrInvalidHeader", err)
	}
}

func TestReplaceDataspace(t *testing.T) {
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(512)
	a := alloc.New(0)
	ds := message.NewDataspace([]uint64{3}, []uint64{message.Unlimited})
	addr, err := Write(buf, a, cfg, []message.Serializable{ds}, 0, "dataset")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	h := readHeader(t, buf, addr)
	e, ok := h.Find(message.TypeDataspace)
	if !ok {
		t.Fatal("dataspace missing")
	}
	grown := message.NewDataspace([]uint64{10}, []uint64{message.Unlimited})
	if err := h.Replace(buf, cfg, e, grown); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	h = readHeader(t, buf, addr)
	if got := h.Dataspace().Dimensions[0]; got != 10 {
		t.Fatalf("dims[0] = %d, want 10", got)
	}
	if h.Dataspace().MaxDims[0] != message.Unlimited {
		t.Fatal("max dims not preserved")
	}
}

func TestReplaceRejectsSizeChange(t *testing.T) {
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(512)
	addr, err := Write(buf, alloc.New(0), cfg, []message.Serializable{
		message.NewDataspace([]uint64{3}, nil),
	}, 0, "dataset")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	h := readHeader(t, buf, addr)
	e, _ := h.Find(message.TypeDataspace)
	bigger := message.NewDataspace([]uint64{3, 4}, nil)
	if err := h.Replace(buf, cfg, e, bigger); err == nil {
		t.Fatal("expected size mismatch error")
	}
}

func TestPatchBounds(t *testing.T) {
	buf, _, addr := newGroupHeader(t)
	h := readHeader(t, buf, addr)
	e, _ := h.Find(message.TypeGroupInfo)
	if err := h.Patch(buf, e, 1, []byte{0, 0}); err == nil {
		t.Fatal("expected out of bounds error")
	}
}

func TestInsertDirect(t *testing.T) {
	buf, a, addr := newGroupHeader(t)
	cfg := binary.DefaultConfig()
	h := readHeader(t, buf, addr)

	if err := h.Insert(buf, cfg, a, message.NewHardLink("tsA", 4096)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if h.Address != addr {
		t.Fatalf("header moved from %d to %d", addr, h.Address)
	}
	if len(h.Chunks) != 1 {
		t.Fatalf("chunks = %d, want 1", len(h.Chunks))
	}

	h = readHeader(t, buf, addr)
	links := h.Links()
	if len(links) != 1 || links[0].Name != "tsA" || links[0].ObjectAddress != 4096 {
		t.Fatalf("links = %+v", links)
	}
}

func TestInsertSpillsIntoContinuation(t *testing.T) {
	buf, a, addr := newGroupHeader(t)
	cfg := binary.DefaultConfig()
	h := readHeader(t, buf, addr)

	const n = 40
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("timeseries_%02d", i)
		if err := h.Insert(buf, cfg, a, message.NewHardLink(name, uint64(1000+i))); err != nil {
			t.Fatalf("Insert %s: %v", name, err)
		}
	}

	h = readHeader(t, buf, addr)
	if len(h.Chunks) < 2 {
		t.Fatalf("chunks = %d, want a continuation block", len(h.Chunks))
	}
	links := h.Links()
	if len(links) != n {
		t.Fatalf("links = %d, want %d", len(links), n)
	}
	seen := map[string]uint64{}
	for _, l := range links {
		seen[l.Name] = l.ObjectAddress
	}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("timeseries_%02d", i)
		if seen[name] != uint64(1000+i) {
			t.Fatalf("link %s -> %d", name, seen[name])
		}
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("allocator: %v", err)
	}
}

func TestInsertFullHeader(t *testing.T) {
	cfg := binary.DefaultConfig()
	buf := binary.NewBuffer(256)
	a := alloc.New(0)
	addr, err := Write(buf, a, cfg, []message.Serializable{message.NewLinkInfo()}, 0, "group")
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	h := readHeader(t, buf, addr)
	err = h.Insert(buf, cfg, a, message.NewHardLink("x", 1))
	if !errors.Is(err, ErrHeaderFull) {
		t.Fatalf("err = %v, want ErrHeaderFull", err)
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

func TestWriteRawReportsWriteErrors(t *testing.T) {
	cfg := binary.DefaultConfig()
	msg := message.NewHardLink("ts", 4096)
	body, err := message.Encode(msg, cfg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	const prefix = 6
	total := prefix + len(body)

	full := binary.NewBuffer(0)
	if err := writeRaw(binary.NewWriter(full, cfg), msg, body, prefix); err != nil {
		t.Fatalf("writeRaw: %v", err)
	}
	if full.Len() != total {
		t.Fatalf("writeRaw wrote %d bytes, want %d", full.Len(), total)
	}
	for limit := 0; limit < total; limit++ {
		w := binary.NewWriter(cappedWriter{limit: int64(limit)}, cfg)
		if err := writeRaw(w, msg, body, prefix); !errors.Is(err, errFull) {
			t.Fatalf("limit %d: err = %v, want errFull", limit, err)
		}
	}
}
