package object

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/message"
)

var (
	SignatureV2           = []byte("OHDR")
	SignatureContinuation = []byte("OCHK")
)

var (
	ErrInvalidHeader      = errors.New("invalid object header")
	ErrUnsupportedVersion = errors.New("unsupported object header version")
	ErrChecksumMismatch   = errors.New("object header checksum mismatch")
	ErrHeaderFull         = errors.New("object header has no room for another message")
)

// Chunk is one contiguous block of header messages.
type Chunk struct {
	Start       int64 // first byte covered by the checksum
	MsgStart    int64 // first message prefix
	End         int64 // end of the message area; the checksum follows when Checksummed
	Checksummed bool
}

// Entry locates one message inside the header.
type Entry struct {
	Type    message.Type
	Flags   uint8
	Offset  int64 // absolute position of the message body
	Size    int
	Chunk   int
	Message message.Message // nil for NIL messages
	Err     error           // set when the body could not be parsed
}

// Header is a parsed object header.
type Header struct {
	Version uint8
	Address uint64
	Flags   uint8
	Chunks  []Chunk
	Entries []Entry
}

// Read parses the object header at address, following continuation blocks.
func Read(r *binary.Reader, address uint64) (*Header, error) {
	peek, err := r.At(int64(address)).Peek(4)
	if err != nil {
		return nil, fmt.Errorf("reading object header at %d: %w", address, err)
	}
	if string(peek) == string(SignatureV2) {
		return readV2(r, address)
	}
	if peek[0] == 1 {
		return readV1(r, address)
	}
	return nil, fmt.Errorf("%w: unknown format at address %d", ErrInvalidHeader, address)
}

// Messages returns every parsed message in header order, skipping NIL and
// continuation messages.
func (h *Header) Messages() []message.Message {
	var out []message.Message
	for _, e := range h.Entries {
		if e.Message != nil && e.Type != message.TypeObjectHeaderContinuation {
			out = append(out, e.Message)
		}
	}
	return out
}

// Find returns the first entry of the given type.
func (h *Header) Find(typ message.Type) (*Entry, bool) {
	for i := range h.Entries {
		if h.Entries[i].Type == typ {
			return &h.Entries[i], true
		}
	}
	return nil, false
}

// Has reports whether the header carries a message of the given type.
func (h *Header) Has(typ message.Type) bool {
	_, ok := h.Find(typ)
	return ok
}

// Message returns the first parsed message of the given type. A message that
// is present but unreadable yields its parse error.
func (h *Header) Message(typ message.Type) (message.Message, error) {
	e, ok := h.Find(typ)
	if !ok {
		return nil, nil
	}
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Message, nil
}

// Links returns the link messages of a compact-storage group.
func (h *Header) Links() []*message.Link {
	var links []*message.Link
	for _, e := range h.Entries {
		if l, ok := e.Message.(*message.Link); ok {
			links = append(links, l)
		}
	}
	return links
}

// Dataspace returns the dataspace message, if any.
func (h *Header) Dataspace() *message.Dataspace {
	m, _ := h.Message(message.TypeDataspace)
	ds, _ := m.(*message.Dataspace)
	return ds
}

// Datatype returns the datatype message, if any.
func (h *Header) Datatype() *message.Datatype {
	m, _ := h.Message(message.TypeDatatype)
	dt, _ := m.(*message.Datatype)
	return dt
}

// DataLayout returns the layout message, if any.
func (h *Header) DataLayout() *message.DataLayout {
	m, _ := h.Message(message.TypeDataLayout)
	l, _ := m.(*message.DataLayout)
	return l
}

// SymbolTable returns the symbol table message of an old-style group.
func (h *Header) SymbolTable() *message.SymbolTable {
	m, _ := h.Message(message.TypeSymbolTable)
	st, _ := m.(*message.SymbolTable)
	return st
}

// LinkInfo returns the link info message of a new-style group.
func (h *Header) LinkInfo() *message.LinkInfo {
	m, _ := h.Message(message.TypeLinkInfo)
	li, _ := m.(*message.LinkInfo)
	return li
}

// prefixSize is the size of a message prefix in this header.
func (h *Header) prefixSize() int {
	if h.Version == 1 {
		return 8
	}
	if h.Flags&0x04 != 0 {
		return 6
	}
	return 4
}

// addEntry parses a message body and records where it lives.
func (h *Header) addEntry(r *binary.Reader, typ message.Type, flags uint8, offset int64, data []byte, chunk int) {
	e := Entry{Type: typ, Flags: flags, Offset: offset, Size: len(data), Chunk: chunk}
	if typ != message.TypeNIL {
		e.Message, e.Err = message.Parse(typ, data, r)
	}
	h.Entries = append(h.Entries, e)
}
