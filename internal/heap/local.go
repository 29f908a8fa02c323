package heap

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// Signature of a local heap.
var Signature = []byte("HEAP")

var ErrInvalidHeap = errors.New("invalid local heap")

// Local is a local heap with its data segment loaded.
type Local struct {
	DataSize    uint64
	FreeOffset  uint64
	DataAddress uint64
	data        []byte
}

// ReadLocal reads the local heap at address.
func ReadLocal(r *binary.Reader, address uint64) (*Local, error) {
	hr := r.At(int64(address))
	sig, err := hr.ReadBytes(4)
	if err != nil {
		return nil, fmt.Errorf("reading local heap signature: %w", err)
	}
	if string(sig) != string(Signature) {
		return nil, fmt.Errorf("%w: signature %q at %d", ErrInvalidHeap, sig, address)
	}
	version, err := hr.ReadUint8()
	if err != nil {
		return nil, err
	}
	if version != 0 {
		return nil, fmt.Errorf("%w: version %d", ErrInvalidHeap, version)
	}
	hr.Skip(3)

	h := &Local{}
	if h.DataSize, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.FreeOffset, err = hr.ReadLength(); err != nil {
		return nil, err
	}
	if h.DataAddress, err = hr.ReadOffset(); err != nil {
		return nil, err
	}
	if h.data, err = r.At(int64(h.DataAddress)).ReadBytes(int(h.DataSize)); err != nil {
		return nil, fmt.Errorf("reading local heap data: %w", err)
	}
	return h, nil
}

// String returns the NUL-terminated string at offset, or "" when offset is
// outside the data segment.
func (h *Local) String(offset uint64) string {
	if offset >= uint64(len(h.data)) {
		return ""
	}
	s := h.data[offset:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}
