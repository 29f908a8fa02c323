package object

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/h5compound/internal/alloc"
	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/message"
)

// File is the storage a header is edited in.
type File interface {
	io.ReaderAt
	io.WriterAt
}

// Patch overwrites len(data) bytes of the entry's body starting at off and
// reseals the chunk. The body size never changes.
func (h *Header) Patch(f File, e *Entry, off int, data []byte) error {
	if off < 0 || off+len(data) > e.Size {
		return fmt.Errorf("patch of %d bytes at %d exceeds %d-byte message 0x%x",
			len(data), off, e.Size, uint16(e.Type))
	}
	if _, err := f.WriteAt(data, e.Offset+int64(off)); err != nil {
		return err
	}
	return h.reseal(f, e.Chunk)
}

// Replace re-encodes msg over the entry it came from. The encoding must have
// the same size as the original body.
func (h *Header) Replace(f File, cfg binary.Config, e *Entry, msg message.Serializable) error {
	data, err := message.Encode(msg, cfg)
	if err != nil {
		return err
	}
	if len(data) != e.Size {
		return fmt.Errorf("replacement message 0x%x is %d bytes, slot is %d",
			uint16(e.Type), len(data), e.Size)
	}
	if err := h.Patch(f, e, 0, data); err != nil {
		return err
	}
	e.Message = msg
	return nil
}

// reseal recomputes the checksum of a version 2 chunk after an edit.
func (h *Header) reseal(f File, chunk int) error {
	c := h.Chunks[chunk]
	if !c.Checksummed {
		return nil
	}
	raw := make([]byte, c.End-c.Start)
	if _, err := f.ReadAt(raw, c.Start); err != nil {
		return err
	}
	sum := make([]byte, 4)
	binary.EncodeUint(binary.DefaultConfig().ByteOrder, sum, uint64(binary.Lookup3Checksum(raw)))
	_, err := f.WriteAt(sum, c.End)
	return err
}

// Insert adds msg to a version 2 header without moving it. The message goes
// into a NIL slot when one fits while still leaving room for a continuation
// message; otherwise a continuation message takes a NIL slot and msg goes
// into a freshly allocated continuation block. The header is re-read
// afterwards so h reflects the file.
func (h *Header) Insert(f File, cfg binary.Config, a *alloc.Allocator, msg message.Serializable) error {
	if h.Version != 2 {
		return fmt.Errorf("%w: inserting into a version %d header", ErrUnsupportedVersion, h.Version)
	}
	body, err := message.Encode(msg, cfg)
	if err != nil {
		return err
	}
	prefix := h.prefixSize()
	need := prefix + len(body)
	contNeed := prefix + cfg.OffsetSize + cfg.LengthSize

	slot := -1
	for i, e := range h.Entries {
		if e.Type != message.TypeNIL {
			continue
		}
		total := prefix + e.Size
		if !fits(total, need, prefix) {
			continue
		}
		if total-need >= contNeed || h.spareSlot(i, contNeed) {
			slot = i
			break
		}
	}
	if slot >= 0 {
		return h.place(f, cfg, slot, msg, body)
	}

	for i, e := range h.Entries {
		if e.Type == message.TypeNIL && fits(prefix+e.Size, contNeed, prefix) {
			return h.spill(f, cfg, a, i, msg, body)
		}
	}
	return ErrHeaderFull
}

// fits reports whether a message of need bytes can take a slot of total
// bytes, leaving either nothing or a valid NIL message behind.
func fits(total, need, prefix int) bool {
	return total == need || total-need >= prefix
}

// spareSlot reports whether a NIL slot other than skip can hold need bytes.
func (h *Header) spareSlot(skip, need int) bool {
	prefix := h.prefixSize()
	for i, e := range h.Entries {
		if i != skip && e.Type == message.TypeNIL && fits(prefix+e.Size, need, prefix) {
			return true
		}
	}
	return false
}

// place writes msg over NIL entry i and turns any remainder into a NIL.
func (h *Header) place(f File, cfg binary.Config, i int, msg message.Message, body []byte) error {
	e := h.Entries[i]
	prefix := h.prefixSize()
	start := e.Offset - int64(prefix)
	total := prefix + e.Size

	buf := binary.NewBuffer(total)
	w := binary.NewWriter(buf, cfg)
	if err := writeRaw(w, msg, body, prefix); err != nil {
		return err
	}
	if rest := total - buf.Len(); rest > 0 {
		if err := writeNIL(w, rest, prefix); err != nil {
			return err
		}
	}
	if _, err := f.WriteAt(buf.Bytes(), start); err != nil {
		return err
	}
	if err := h.reseal(f, e.Chunk); err != nil {
		return err
	}
	return h.reload(f, cfg)
}

// spill writes msg into a new continuation block and links it from NIL
// entry i.
func (h *Header) spill(f File, cfg binary.Config, a *alloc.Allocator, i int, msg message.Message, body []byte) error {
	prefix := h.prefixSize()

	block := binary.NewBuffer(4 + prefix + len(body) + ContinuationReserve + 4)
	w := binary.NewWriter(block, cfg)
	if err := w.WriteBytes(SignatureContinuation); err != nil {
		return err
	}
	if err := writeRaw(w, msg, body, prefix); err != nil {
		return err
	}
	if err := writeNIL(w, ContinuationReserve, prefix); err != nil {
		return err
	}
	if err := w.WriteUint32(binary.Lookup3Checksum(block.Bytes())); err != nil {
		return err
	}

	addr := a.AllocAligned(uint64(block.Len()), 8, "header continuation")
	if _, err := f.WriteAt(block.Bytes(), int64(addr)); err != nil {
		return err
	}

	cont := &message.Continuation{Offset: addr, Length: uint64(block.Len())}
	contBody, err := message.Encode(cont, cfg)
	if err != nil {
		return err
	}
	return h.place(f, cfg, i, cont, contBody)
}

// writeRaw writes a v2 message prefix of prefix bytes followed by an already
// encoded body.
func writeRaw(w *binary.Writer, msg message.Message, body []byte, prefix int) error {
	if err := w.WriteUint8(uint8(msg.Type())); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(body))); err != nil {
		return err
	}
	if err := w.WriteUint8(messageFlags(msg)); err != nil {
		return err
	}
	if err := w.WriteZeros(prefix - 4); err != nil {
		return err
	}
	return w.WriteBytes(body)
}

func (h *Header) reload(f File, cfg binary.Config) error {
	fresh, err := Read(binary.NewReader(f, cfg), h.Address)
	if err != nil {
		return fmt.Errorf("re-reading header at %d: %w", h.Address, err)
	}
	*h = *fresh
	return nil
}
