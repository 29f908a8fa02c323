package binary

import "io"

// Writer encodes fields into an io.WriterAt at a cursor position.
type Writer struct {
	w   io.WriterAt
	cfg Config
	pos int64
}

// NewWriter creates a writer positioned at offset 0.
func NewWriter(w io.WriterAt, cfg Config) *Writer {
	return &Writer{w: w, cfg: cfg}
}

// At returns a writer sharing the destination but positioned at offset.
func (w *Writer) At(offset int64) *Writer {
	return &Writer{w: w.w, cfg: w.cfg, pos: offset}
}

// Pos returns the current write position.
func (w *Writer) Pos() int64 { return w.pos }

// OffsetSize returns the configured offset size in bytes.
func (w *Writer) OffsetSize() int { return w.cfg.OffsetSize }

// LengthSize returns the configured length size in bytes.
func (w *Writer) LengthSize() int { return w.cfg.LengthSize }

// WriteBytes writes data at the current position.
func (w *Writer) WriteBytes(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	n, err := w.w.WriteAt(data, w.pos)
	w.pos += int64(n)
	return err
}

// WriteUint8 writes an unsigned 8-bit integer.
func (w *Writer) WriteUint8(v uint8) error {
	return w.WriteBytes([]byte{v})
}

// WriteUint16 writes an unsigned 16-bit integer.
func (w *Writer) WriteUint16(v uint16) error {
	return w.WriteUintN(uint64(v), 2)
}

// WriteUint32 writes an unsigned 32-bit integer.
func (w *Writer) WriteUint32(v uint32) error {
	return w.WriteUintN(uint64(v), 4)
}

// WriteUint64 writes an unsigned 64-bit integer.
func (w *Writer) WriteUint64(v uint64) error {
	return w.WriteUintN(v, 8)
}

// WriteUintN writes v as an n-byte unsigned integer.
func (w *Writer) WriteUintN(v uint64, n int) error {
	buf := make([]byte, n)
	EncodeUint(w.cfg.ByteOrder, buf, v)
	return w.WriteBytes(buf)
}

// WriteOffset writes a file address using the configured offset size.
func (w *Writer) WriteOffset(v uint64) error {
	return w.WriteUintN(v, w.cfg.OffsetSize)
}

// WriteLength writes a length using the configured length size.
func (w *Writer) WriteLength(v uint64) error {
	return w.WriteUintN(v, w.cfg.LengthSize)
}

// UndefinedOffset returns the undefined address sentinel for this writer.
func (w *Writer) UndefinedOffset() uint64 {
	return Undefined(w.cfg.OffsetSize)
}

// WriteUndefinedOffset writes the undefined address sentinel.
func (w *Writer) WriteUndefinedOffset() error {
	return w.WriteOffset(w.UndefinedOffset())
}

// WriteZeros writes n zero bytes.
func (w *Writer) WriteZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.WriteBytes(make([]byte, n))
}

// WritePadding writes zero bytes up to the next multiple of alignment.
func (w *Writer) WritePadding(alignment int64) error {
	return w.WriteZeros(int(alignUp(w.pos, alignment) - w.pos))
}
