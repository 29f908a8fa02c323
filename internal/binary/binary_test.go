package binary

import (
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

func TestReaderFields(t *testing.T) {
	data := []byte{
		0x42,
		0x02, 0x01,
		0x78, 0x56, 0x34, 0x12,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x10, 0x00, 0x00, 0x00, // 4-byte offset
	}
	r := NewReader(bytesReaderAt(data), DefaultConfig())

	u8, err := r.ReadUint8()
	if err != nil || u8 != 0x42 {
		t.Fatalf("ReadUint8 = 0x%x, %v", u8, err)
	}
	u16, err := r.ReadUint16()
	if err != nil || u16 != 0x0102 {
		t.Fatalf("ReadUint16 = 0x%x, %v", u16, err)
	}
	u32, err := r.ReadUint32()
	if err != nil || u32 != 0x12345678 {
		t.Fatalf("ReadUint32 = 0x%x, %v", u32, err)
	}
	u64, err := r.ReadUint64()
	if err != nil || u64 != 0x0102030405060708 {
		t.Fatalf("ReadUint64 = 0x%x, %v", u64, err)
	}

	small := r.WithSizes(4, 4)
	off, err := small.ReadOffset()
	if err != nil || off != 0x10 {
		t.Fatalf("ReadOffset = 0x%x, %v", off, err)
	}
	if small.Pos() != int64(len(data)) {
		t.Errorf("expected position %d, got %d", len(data), small.Pos())
	}
}

func TestReaderShortRead(t *testing.T) {
	r := NewReader(bytesReaderAt{0x01, 0x02}, DefaultConfig())
	if _, err := r.ReadUint32(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
	if r.Pos() != 0 {
		t.Errorf("failed read must not advance, position %d", r.Pos())
	}
}

func TestReaderAlignAndPeek(t *testing.T) {
	r := NewReader(bytesReaderAt(make([]byte, 32)), DefaultConfig()).At(3)
	r.Align(8)
	if r.Pos() != 8 {
		t.Errorf("Align(8) from 3: got %d", r.Pos())
	}
	r.Align(8)
	if r.Pos() != 8 {
		t.Errorf("Align on boundary moved to %d", r.Pos())
	}
	if _, err := r.Peek(4); err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	if r.Pos() != 8 {
		t.Errorf("Peek advanced to %d", r.Pos())
	}
}

func TestUndefined(t *testing.T) {
	tests := []struct {
		size int
		want uint64
	}{
		{2, 0xFFFF},
		{4, 0xFFFFFFFF},
		{8, 0xFFFFFFFFFFFFFFFF},
	}
	for _, tt := range tests {
		if got := Undefined(tt.size); got != tt.want {
			t.Errorf("Undefined(%d) = 0x%x, want 0x%x", tt.size, got, tt.want)
		}
		r := NewReader(bytesReaderAt(nil), DefaultConfig()).WithSizes(tt.size, tt.size)
		if !r.IsUndefinedOffset(tt.want) {
			t.Errorf("IsUndefinedOffset(0x%x) false for size %d", tt.want, tt.size)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := Config{ByteOrder: binary.LittleEndian, OffsetSize: 3, LengthSize: 8}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestWriterRoundTrip(t *testing.T) {
	buf := NewBuffer(0)
	w := NewWriter(buf, DefaultConfig())

	if err := w.WriteUint8(0xAB); err != nil {
		t.Fatalf("WriteUint8 failed: %v", err)
	}
	if err := w.WriteUint32(0xDEADBEEF); err != nil {
		t.Fatalf("WriteUint32 failed: %v", err)
	}
	if err := w.WriteOffset(0x1122334455667788); err != nil {
		t.Fatalf("WriteOffset failed: %v", err)
	}
	if err := w.WritePadding(8); err != nil {
		t.Fatalf("WritePadding failed: %v", err)
	}
	if err := w.WriteUndefinedOffset(); err != nil {
		t.Fatalf("WriteUndefinedOffset failed: %v", err)
	}
	if buf.Len() != 24 {
		t.Fatalf("expected 24 bytes, got %d", buf.Len())
	}

	r := NewReader(buf, DefaultConfig())
	r.Skip(1)
	v32, _ := r.ReadUint32()
	off, _ := r.ReadOffset()
	r.Align(8)
	undef, _ := r.ReadOffset()
	if v32 != 0xDEADBEEF || off != 0x1122334455667788 || !r.IsUndefinedOffset(undef) {
		t.Errorf("round trip mismatch: 0x%x 0x%x 0x%x", v32, off, undef)
	}
}

func TestBufferWriteAtGaps(t *testing.T) {
	buf := NewBuffer(0)
	if _, err := buf.WriteAt([]byte{1, 2}, 6); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	want := []byte{0, 0, 0, 0, 0, 0, 1, 2}
	if string(buf.Bytes()) != string(want) {
		t.Errorf("got %v, want %v", buf.Bytes(), want)
	}

	p := make([]byte, 4)
	n, err := buf.ReadAt(p, 6)
	if n != 2 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadAt past end: n=%d err=%v", n, err)
	}
}

func TestLookup3Checksum(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  uint32
	}{
		{"empty", "", 0xdeadbeef},
		{"four score", "Four score and seven years ago", 0x17770551},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Lookup3Checksum([]byte(tt.input)); got != tt.want {
				t.Errorf("Lookup3Checksum(%q) = 0x%08x, want 0x%08x", tt.input, got, tt.want)
			}
		})
	}
}

func TestLookup3ChecksumLengthVariations(t *testing.T) {
	seen := make(map[uint32]int)
	for length := 0; length <= 24; length++ {
		data := make([]byte, length)
		for i := range data {
			data[i] = byte(i)
		}
		seen[Lookup3Checksum(data)] = length
	}
	if len(seen) != 25 {
		t.Errorf("expected 25 unique checksums for lengths 0-24, got %d", len(seen))
	}
}

// bytesReaderAt wraps a byte slice to implement io.ReaderAt.
type bytesReaderAt []byte

func (b bytesReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
