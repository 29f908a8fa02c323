package compound

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/message"
)

// Member names in canonical order.
const (
	MemberStart = "idx_start"
	MemberCount = "count"
	MemberRef   = "timeseries"
)

const (
	// ReferenceSize is the width of a stored object reference.
	ReferenceSize = 8
	// RecordSize is the size of one record as created by this package.
	RecordSize = 8 + ReferenceSize
)

// Member describes one member of the record type.
type Member struct {
	Name   string
	Index  int
	Offset uint32
	Type   *message.Datatype
}

// Schema returns the record members in canonical order.
func Schema() []Member {
	return []Member{
		{Name: MemberStart, Index: 0, Offset: 0, Type: int32Type()},
		{Name: MemberCount, Index: 1, Offset: 4, Type: int32Type()},
		{Name: MemberRef, Index: 2, Offset: 8, Type: message.NewObjectReference(ReferenceSize)},
	}
}

func int32Type() *message.Datatype { return message.NewFixedPoint(4, true, message.OrderLE) }

// RecordDatatype returns the compound datatype written when a dataset is
// created.
func RecordDatatype() *message.Datatype {
	schema := Schema()
	members := make([]message.CompoundMember, len(schema))
	for i, m := range schema {
		members[i] = message.CompoundMember{Name: m.Name, ByteOffset: m.Offset, Type: m.Type}
	}
	return message.NewCompound(RecordSize, members)
}

// ValidateDatatype checks that dt is the record type. Member byte offsets
// may differ from Schema as long as names, types and order agree.
func ValidateDatatype(dt *message.Datatype) error {
	if dt == nil || !dt.IsCompound() {
		return &SchemaError{Msg: msgNotCompound}
	}
	schema := Schema()
	if len(dt.Members) != len(schema) {
		return &SchemaError{Msg: fmt.Sprintf(msgMemberCount, len(schema))}
	}
	for _, m := range schema {
		i := dt.MemberIndex(m.Name)
		if i < 0 || !dt.Members[i].Type.Equal(m.Type) {
			return &SchemaError{Member: m.Name, Msg: msgWrongType}
		}
	}
	for _, m := range schema {
		if dt.MemberIndex(m.Name) != m.Index {
			return &SchemaError{Member: m.Name, Msg: msgWrongOrder}
		}
	}
	for _, m := range dt.Members {
		if uint64(m.ByteOffset)+uint64(m.Type.Size) > uint64(dt.Size) {
			return &SchemaError{Member: m.Name, Msg: fmt.Sprintf("member at offset %d overruns the %d-byte record", m.ByteOffset, dt.Size)}
		}
	}
	return nil
}
