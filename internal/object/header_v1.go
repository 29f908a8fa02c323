package object

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/message"
)

/*
Version 1 object header:

	0   version (1), reserved
	2   number of messages (2)
	4   reference count (4)
	8   header size (4)
	12  reserved, pads the prefix to 16 bytes
	16  messages: type (2), size (2), flags (1), reserved (3), body

Bodies are padded to multiples of eight. Continuation blocks hold bare
messages with no signature or checksum.
*/

func readV1(r *binary.Reader, address uint64) (*Header, error) {
	hr := r.At(int64(address))
	head, err := hr.ReadBytes(12)
	if err != nil {
		return nil, err
	}
	h := &Header{Version: 1, Address: address}
	remaining := int(head[2]) | int(head[3])<<8
	size := int64(binary.DecodeUint(r.Config().ByteOrder, head[8:12]))

	start := int64(address) + 16
	h.Chunks = append(h.Chunks, Chunk{Start: start, MsgStart: start, End: start + size})

	seen := map[uint64]bool{address: true}
	for i := 0; i < len(h.Chunks) && remaining > 0; i++ {
		c := h.Chunks[i]
		cr := r.At(c.MsgStart)
		for remaining > 0 && cr.Pos()+8 <= c.End {
			prefix, err := cr.ReadBytes(8)
			if err != nil {
				return nil, err
			}
			typ := message.Type(uint16(prefix[0]) | uint16(prefix[1])<<8)
			n := int64(prefix[2]) | int64(prefix[3])<<8
			if cr.Pos()+n > c.End {
				return nil, fmt.Errorf("%w: message 0x%x overruns chunk", ErrInvalidHeader, typ)
			}
			offset := cr.Pos()
			data, err := cr.ReadBytes(int(n))
			if err != nil {
				return nil, err
			}
			remaining--
			h.addEntry(r, typ, prefix[4], offset, data, i)

			if cont, ok := h.Entries[len(h.Entries)-1].Message.(*message.Continuation); ok {
				if seen[cont.Offset] {
					return nil, fmt.Errorf("%w: continuation loop at %d", ErrInvalidHeader, cont.Offset)
				}
				seen[cont.Offset] = true
				h.Chunks = append(h.Chunks, Chunk{
					Start:    int64(cont.Offset),
					MsgStart: int64(cont.Offset),
					End:      int64(cont.Offset + cont.Length),
				})
			}
		}
	}
	return h, nil
}
