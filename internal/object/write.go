package object

import (
	"fmt"
	"io"

	"github.com/robert-malhotra/h5compound/internal/alloc"
	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/message"
)

// GroupReserve is the NIL space left in a new group header for links added
// later. Once it is used up, links spill into continuation blocks.
const GroupReserve = 256

// ContinuationReserve is the NIL space left in each new continuation block.
const ContinuationReserve = 256

// Encode builds a version 2 object header holding msgs followed by a NIL
// message of reserve bytes (prefix included; 0 or at least 4).
func Encode(cfg binary.Config, msgs []message.Serializable, reserve int) ([]byte, error) {
	if reserve != 0 && reserve < 4 {
		return nil, fmt.Errorf("NIL reserve of %d bytes is smaller than a message prefix", reserve)
	}
	body := binary.NewBuffer(256)
	bw := binary.NewWriter(body, cfg)
	for _, msg := range msgs {
		if err := writeMessage(bw, cfg, msg); err != nil {
			return nil, err
		}
	}
	if reserve > 0 {
		if err := writeNIL(bw, reserve, 4); err != nil {
			return nil, err
		}
	}

	width, flags := sizeField(body.Len())
	buf := binary.NewBuffer(body.Len() + 16)
	w := binary.NewWriter(buf, cfg)
	if err := w.WriteBytes(SignatureV2); err != nil {
		return nil, err
	}
	if err := w.WriteBytes([]byte{2, flags}); err != nil {
		return nil, err
	}
	if err := w.WriteUintN(uint64(body.Len()), width); err != nil {
		return nil, err
	}
	if err := w.WriteBytes(body.Bytes()); err != nil {
		return nil, err
	}
	if err := w.WriteUint32(binary.Lookup3Checksum(buf.Bytes())); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write encodes a version 2 header, allocates space for it and writes it.
// It returns the header address.
func Write(f io.WriterAt, a *alloc.Allocator, cfg binary.Config, msgs []message.Serializable, reserve int, tag string) (uint64, error) {
	raw, err := Encode(cfg, msgs, reserve)
	if err != nil {
		return 0, err
	}
	addr := a.AllocAligned(uint64(len(raw)), 8, tag)
	if _, err := f.WriteAt(raw, int64(addr)); err != nil {
		return 0, fmt.Errorf("writing %s header: %w", tag, err)
	}
	return addr, nil
}

// sizeField returns the width of the chunk 0 size field and the header
// flag bits that announce it.
func sizeField(n int) (width int, flags uint8) {
	switch {
	case n <= 0xFF:
		return 1, 0
	case n <= 0xFFFF:
		return 2, 1
	}
	return 4, 2
}

// messageFlags marks datatype messages constant, as the library does.
func messageFlags(msg message.Message) uint8 {
	if msg.Type() == message.TypeDatatype {
		return 0x01
	}
	return 0
}

func writeMessage(w *binary.Writer, cfg binary.Config, msg message.Serializable) error {
	data, err := message.Encode(msg, cfg)
	if err != nil {
		return err
	}
	if len(data) > 0xFFFF {
		return fmt.Errorf("message 0x%x too large: %d bytes", uint16(msg.Type()), len(data))
	}
	if err := w.WriteUint8(uint8(msg.Type())); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(data))); err != nil {
		return err
	}
	if err := w.WriteUint8(messageFlags(msg)); err != nil {
		return err
	}
	return w.WriteBytes(data)
}

// writeNIL fills total bytes with a NIL message whose prefix is prefix bytes.
func writeNIL(w *binary.Writer, total, prefix int) error {
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(total - prefix)); err != nil {
		return err
	}
	return w.WriteZeros(total - 3)
}
