// Package binary provides the variable-width little-endian codec used by
// every on-disk structure in the container format.
package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidSize is returned when an invalid offset or length size is specified.
var ErrInvalidSize = errors.New("invalid offset/length size: must be 2, 4, or 8")

// Config holds the field widths of a file, taken from its superblock.
type Config struct {
	ByteOrder  binary.ByteOrder
	OffsetSize int // 2, 4, or 8 bytes
	LengthSize int // 2, 4, or 8 bytes
}

// DefaultConfig returns little-endian 8-byte offsets and lengths, which is
// what the superblock reader starts with and what new files are written with.
func DefaultConfig() Config {
	return Config{
		ByteOrder:  binary.LittleEndian,
		OffsetSize: 8,
		LengthSize: 8,
	}
}

// Validate checks that the offset and length widths are supported.
func (c Config) Validate() error {
	for _, n := range []int{c.OffsetSize, c.LengthSize} {
		if n != 2 && n != 4 && n != 8 {
			return fmt.Errorf("%w: got %d", ErrInvalidSize, n)
		}
	}
	return nil
}

// Undefined returns the all-ones "undefined address" sentinel for a field of
// size bytes.
func Undefined(size int) uint64 {
	if size >= 8 {
		return ^uint64(0)
	}
	return uint64(1)<<(uint(size)*8) - 1
}

// Reader decodes fields from an io.ReaderAt at a cursor position.
type Reader struct {
	r   io.ReaderAt
	cfg Config
	pos int64
}

// NewReader creates a reader positioned at offset 0.
func NewReader(r io.ReaderAt, cfg Config) *Reader {
	return &Reader{r: r, cfg: cfg}
}

// At returns a reader sharing the source but positioned at offset.
func (r *Reader) At(offset int64) *Reader {
	return &Reader{r: r.r, cfg: r.cfg, pos: offset}
}

// WithSizes returns a reader with the given offset and length widths at the
// same position.
func (r *Reader) WithSizes(offsetSize, lengthSize int) *Reader {
	cfg := r.cfg
	cfg.OffsetSize = offsetSize
	cfg.LengthSize = lengthSize
	return &Reader{r: r.r, cfg: cfg, pos: r.pos}
}

// Pos returns the current read position.
func (r *Reader) Pos() int64 { return r.pos }

// Config returns the reader's field widths.
func (r *Reader) Config() Config { return r.cfg }

// OffsetSize returns the configured offset size in bytes.
func (r *Reader) OffsetSize() int { return r.cfg.OffsetSize }

// LengthSize returns the configured length size in bytes.
func (r *Reader) LengthSize() int { return r.cfg.LengthSize }

// ReadBytes reads exactly n bytes and advances the cursor.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	buf, err := r.Peek(n)
	if err != nil {
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// Peek reads n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n <= 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	got, err := r.r.ReadAt(buf, r.pos)
	if got == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, fmt.Errorf("read %d bytes at %d: %w", n, r.pos, err)
}

// ReadUint8 reads an unsigned 8-bit integer.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads an unsigned 16-bit integer.
func (r *Reader) ReadUint16() (uint16, error) {
	v, err := r.ReadUintN(2)
	return uint16(v), err
}

// ReadUint32 reads an unsigned 32-bit integer.
func (r *Reader) ReadUint32() (uint32, error) {
	v, err := r.ReadUintN(4)
	return uint32(v), err
}

// ReadUint64 reads an unsigned 64-bit integer.
func (r *Reader) ReadUint64() (uint64, error) {
	return r.ReadUintN(8)
}

// ReadUintN reads an unsigned integer n bytes wide.
func (r *Reader) ReadUintN(n int) (uint64, error) {
	buf, err := r.ReadBytes(n)
	if err != nil {
		return 0, err
	}
	return DecodeUint(r.cfg.ByteOrder, buf), nil
}

// ReadOffset reads a file address using the configured offset size.
func (r *Reader) ReadOffset() (uint64, error) {
	return r.ReadUintN(r.cfg.OffsetSize)
}

// ReadLength reads a length using the configured length size.
func (r *Reader) ReadLength() (uint64, error) {
	return r.ReadUintN(r.cfg.LengthSize)
}

// IsUndefinedOffset reports whether v is the undefined address sentinel.
func (r *Reader) IsUndefinedOffset(v uint64) bool {
	return v == Undefined(r.cfg.OffsetSize)
}

// Skip advances the position by n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// Align advances the position to the next multiple of alignment.
func (r *Reader) Align(alignment int64) {
	r.pos = alignUp(r.pos, alignment)
}

// DecodeUint decodes an unsigned integer of len(buf) bytes.
func DecodeUint(order binary.ByteOrder, buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	case 8:
		return order.Uint64(buf)
	}
	var v uint64
	for i := len(buf) - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

// EncodeUint encodes v into len(buf) bytes.
func EncodeUint(order binary.ByteOrder, buf []byte, v uint64) {
	switch len(buf) {
	case 1:
		buf[0] = uint8(v)
	case 2:
		order.PutUint16(buf, uint16(v))
	case 4:
		order.PutUint32(buf, uint32(v))
	case 8:
		order.PutUint64(buf, v)
	default:
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
	}
}

func alignUp(pos, alignment int64) int64 {
	if alignment <= 1 {
		return pos
	}
	if rem := pos % alignment; rem != 0 {
		pos += alignment - rem
	}
	return pos
}
