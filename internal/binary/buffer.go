package binary

import "io"

// Buffer is a growable in-memory io.WriterAt and io.ReaderAt. Structures are
// serialized into a Buffer first so their size is known before space is
// allocated for them in the file.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// WriteAt implements io.WriterAt, growing the buffer as needed.
func (b *Buffer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, io.ErrShortWrite
	}
	end := int(off) + len(p)
	if end > len(b.buf) {
		if end > cap(b.buf) {
			grown := make([]byte, end, 2*end)
			copy(grown, b.buf)
			b.buf = grown
		} else {
			b.buf = b.buf[:end]
		}
	}
	copy(b.buf[off:], p)
	return len(p), nil
}

// ReadAt implements io.ReaderAt.
func (b *Buffer) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b.buf)) {
		return 0, io.EOF
	}
	n := copy(p, b.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Bytes returns the written contents.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes written.
func (b *Buffer) Len() int { return len(b.buf) }
