package message

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// Type is a header message type.
type Type uint16

const (
	TypeNIL                      Type = 0x0000
	TypeDataspace                Type = 0x0001
	TypeLinkInfo                 Type = 0x0002
	TypeDatatype                 Type = 0x0003
	TypeFillValueOld             Type = 0x0004
	TypeFillValue                Type = 0x0005
	TypeLink                     Type = 0x0006
	TypeExternalDataFiles        Type = 0x0007
	TypeDataLayout               Type = 0x0008
	TypeBogus                    Type = 0x0009
	TypeGroupInfo                Type = 0x000A
	TypeFilterPipeline           Type = 0x000B
	TypeAttribute                Type = 0x000C
	TypeObjectComment            Type = 0x000D
	TypeObjectModTime            Type = 0x000E
	TypeSharedMessageTable       Type = 0x000F
	TypeObjectHeaderContinuation Type = 0x0010
	TypeSymbolTable              Type = 0x0011
	TypeObjectModTimeOld         Type = 0x0012
	TypeBTreeKValues             Type = 0x0013
	TypeDriverInfo               Type = 0x0014
	TypeAttributeInfo            Type = 0x0015
	TypeObjectRefCount           Type = 0x0016
)

// ErrTruncated is returned when a message body ends before its fields do.
var ErrTruncated = errors.New("message truncated")

// Message is implemented by every header message.
type Message interface {
	Type() Type
}

// Parse decodes a message body. r supplies the file's offset and length
// widths; its position is ignored.
func Parse(typ Type, data []byte, r *binary.Reader) (Message, error) {
	var (
		msg Message
		err error
	)
	switch typ {
	case TypeDataspace:
		msg, err = parseDataspace(data, r)
	case TypeDatatype:
		msg, err = parseDatatype(data, r)
	case TypeDataLayout:
		msg, err = parseDataLayout(data, r)
	case TypeFilterPipeline:
		msg, err = parseFilterPipeline(data, r)
	case TypeFillValue:
		msg, err = parseFillValue(data, r)
	case TypeLink:
		msg, err = parseLink(data, r)
	case TypeLinkInfo:
		msg, err = parseLinkInfo(data, r)
	case TypeGroupInfo:
		msg, err = parseGroupInfo(data, r)
	case TypeSymbolTable:
		msg, err = parseSymbolTable(data, r)
	case TypeObjectHeaderContinuation:
		msg, err = parseContinuation(data, r)
	default:
		return &Unknown{typ: typ, data: data}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("message 0x%04x: %w", uint16(typ), err)
	}
	return msg, nil
}

// body returns a reader over a message body using the file's field widths.
func body(data []byte, r *binary.Reader) *binary.Reader {
	return binary.NewReader(bytes.NewReader(data), r.Config())
}

// truncated turns a short read inside a body into ErrTruncated.
func truncated(what string, err error) error {
	return fmt.Errorf("%s: %w (%v)", what, ErrTruncated, err)
}

// Unknown is a message type this package does not interpret.
type Unknown struct {
	typ  Type
	data []byte
}

func (m *Unknown) Type() Type   { return m.typ }
func (m *Unknown) Data() []byte { return m.data }

// Continuation points to another block of header messages.
type Continuation struct {
	Offset uint64
	Length uint64
}

func (m *Continuation) Type() Type { return TypeObjectHeaderContinuation }

func parseContinuation(data []byte, r *binary.Reader) (*Continuation, error) {
	br := body(data, r)
	off, err := br.ReadOffset()
	if err != nil {
		return nil, truncated("continuation", err)
	}
	length, err := br.ReadLength()
	if err != nil {
		return nil, truncated("continuation", err)
	}
	return &Continuation{Offset: off, Length: length}, nil
}

func (m *Continuation) Serialize(w *binary.Writer) error {
	if err := w.WriteOffset(m.Offset); err != nil {
		return err
	}
	return w.WriteLength(m.Length)
}

func (m *Continuation) SerializedSize(w *binary.Writer) int {
	return w.OffsetSize() + w.LengthSize()
}
