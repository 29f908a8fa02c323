package object

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/message"
)

/*
Version 2 object header:

	0    "OHDR"
	4    version (2)
	5    flags: bits 0-1 width of the chunk 0 size field (1 << n bytes)
	           bit 2 message creation order present
	           bit 4 attribute phase change values present
	           bit 5 timestamps present
	     [4 timestamps, 16 bytes] [max compact / min dense, 4 bytes]
	     chunk 0 size
	     messages: type (1), size (2), flags (1), [creation order (2)], body
	     checksum (4)

Continuation blocks are "OCHK", messages, checksum.
*/

func readV2(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address) + 4)
	head, err := hr.ReadBytes(2)
	if err != nil {
		return nil, err
	}
	if head[0] != 2 {
		return nil, fmt.Errorf("%w: OHDR version %d", ErrUnsupportedVersion, head[0])
	}
	h := &Header{Version: 2, Address: address, Flags: head[1]}
	if h.Flags&0x20 != 0 {
		hr.Skip(16)
	}
	if h.Flags&0x10 != 0 {
		hr.Skip(4)
	}
	size, err := hr.ReadUintN(1 << (h.Flags & 0x03))
	if err != nil {
		return nil, err
	}
	h.Chunks = append(h.Chunks, Chunk{
		Start:       int64(address),
		MsgStart:    hr.Pos(),
		End:         hr.Pos() + int64(size),
		Checksummed: true,
	})

	seen := map[uint64]bool{address: true}
	for i := 0; i < len(h.Chunks); i++ {
		if err := verifyChunk(r, h.Chunks[i]); err != nil {
			return nil, fmt.Errorf("header at %d chunk %d: %w", address, i, err)
		}
		if err := h.readV2Messages(r, i, seen); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Header) readV2Messages(r *binary.Reader, chunk int, seen map[uint64]bool) error {
	c := h.Chunks[chunk]
	prefix := int64(h.prefixSize())
	cr := r.At(c.MsgStart)

	// A trailing gap smaller than a message prefix is allowed.
	for cr.Pos()+prefix <= c.End {
		head, err := cr.ReadBytes(int(prefix))
		if err != nil {
			return err
		}
		typ := message.Type(head[0])
		size := int64(head[1]) | int64(head[2])<<8
		if cr.Pos()+size > c.End {
			return fmt.Errorf("%w: message 0x%x overruns chunk", ErrInvalidHeader, head[0])
		}
		offset := cr.Pos()
		data, err := cr.ReadBytes(int(size))
		if err != nil {
			return err
		}
		h.addEntry(r, typ, head[3], offset, data, chunk)

		if cont, ok := h.Entries[len(h.Entries)-1].Message.(*message.Continuation); ok {
			if seen[cont.Offset] {
				return fmt.Errorf("%w: continuation loop at %d", ErrInvalidHeader, cont.Offset)
			}
			seen[cont.Offset] = true
			sig, err := r.At(int64(cont.Offset)).Peek(4)
			if err != nil {
				return err
			}
			if string(sig) != string(SignatureContinuation) {
				return fmt.Errorf("%w: bad continuation signature %q", ErrInvalidHeader, sig)
			}
			h.Chunks = append(h.Chunks, Chunk{
				Start:       int64(cont.Offset),
				MsgStart:    int64(cont.Offset) + 4,
				End:         int64(cont.Offset+cont.Length) - 4,
				Checksummed: true,
			})
		}
	}
	return nil
}

func verifyChunk(r *binary.Reader, c Chunk) error {
	raw, err := r.At(c.Start).ReadBytes(int(c.End - c.Start))
	if err != nil {
		return err
	}
	stored, err := r.At(c.End).ReadUint32()
	if err != nil {
		return err
	}
	if !binary.VerifyLookup3(raw, stored) {
		return ErrChecksumMismatch
	}
	return nil
}
