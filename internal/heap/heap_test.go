package heap

import (
	"errors"
	"testing"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

func writeHeap(t *testing.T, data []byte) (*binary.Buffer, uint64) {
	t.Helper()
	buf := binary.NewBuffer(128)
	w := binary.NewWriter(buf, binary.DefaultConfig())
	_ = w.WriteBytes(Signature)
	_ = w.WriteBytes([]byte{0, 0, 0, 0})
	_ = w.WriteLength(uint64(len(data)))
	_ = w.WriteLength(uint64(len(data)))
	_ = w.WriteOffset(64)
	if _, err := buf.WriteAt(data, 64); err != nil {
		t.Fatal(err)
	}
	return buf, 0
}

func TestReadLocal(t *testing.T) {
	buf, addr := writeHeap(t, []byte("\x00comp\x00tsA\x00noterm"))
	h, err := ReadLocal(binary.NewReader(buf, binary.DefaultConfig()), addr)
	if err != nil {
		t.Fatalf("ReadLocal: %v", err)
	}
	if h.DataAddress != 64 {
		t.Fatalf("DataAddress = %d, want 64", h.DataAddress)
	}

	tests := []struct {
		name   string
		offset uint64
		want   string
	}{
		{"empty root name", 0, ""},
		{"first", 1, "comp"},
		{"second", 6, "tsA"},
		{"unterminated", 10, "noterm"},
		{"out of bounds", 100, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.String(tt.offset); got != tt.want {
				t.Errorf("String(%d) = %q, want %q", tt.offset, got, tt.want)
			}
		})
	}
}

func TestReadLocalInvalidSignature(t *testing.T) {
	buf := binary.NewBuffer(16)
	_, _ = buf.WriteAt([]byte("XXXX\x00\x00\x00\x00"), 0)
	_, err := ReadLocal(binary.NewReader(buf, binary.DefaultConfig()), 0)
	if !errors.Is(err, ErrInvalidHeap) {
		t.Fatalf("err = %v, want ErrInvalidHeap", err)
	}
}

func TestReadLocalTruncatedData(t *testing.T) {
	buf := binary.NewBuffer(64)
	w := binary.NewWriter(buf, binary.DefaultConfig())
	_ = w.WriteBytes(Signature)
	_ = w.WriteBytes([]byte{0, 0, 0, 0})
	_ = w.WriteLength(1000)
	_ = w.WriteLength(0)
	_ = w.WriteOffset(32)
	if _, err := ReadLocal(binary.NewReader(buf, binary.DefaultConfig()), 0); err == nil {
		t.Fatal("expected error for data segment past end of file")
	}
}
