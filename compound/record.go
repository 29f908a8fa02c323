package compound

import (
	"encoding/binary"
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/message"
)

// Reference is a stored object reference: the address of the referenced
// object's header. Zero is the null reference.
type Reference uint64

// Record is one stored row.
type Record struct {
	Offset int32
	Size   int32
	Ref    Reference
}

// fieldOffsets returns where idx_start, count and timeseries live in a row
// of dt. dt must have passed ValidateDatatype.
func fieldOffsets(dt *message.Datatype) (start, count, ref uint32) {
	return dt.Members[0].ByteOffset, dt.Members[1].ByteOffset, dt.Members[2].ByteOffset
}

// EncodeRecords lays records out as rows of dt. Bytes not covered by a
// member are zero.
func EncodeRecords(dt *message.Datatype, records []Record) ([]byte, error) {
	if err := ValidateDatatype(dt); err != nil {
		return nil, err
	}
	start, count, ref := fieldOffsets(dt)
	stride := int(dt.Size)
	out := make([]byte, len(records)*stride)
	for i, r := range records {
		row := out[i*stride : (i+1)*stride]
		binary.LittleEndian.PutUint32(row[start:], uint32(r.Offset))
		binary.LittleEndian.PutUint32(row[count:], uint32(r.Size))
		binary.LittleEndian.PutUint64(row[ref:], uint64(r.Ref))
	}
	return out, nil
}

// DecodeRecords reads n rows of dt from data.
func DecodeRecords(dt *message.Datatype, data []byte, n uint64) ([]Record, error) {
	if err := ValidateDatatype(dt); err != nil {
		return nil, err
	}
	stride := uint64(dt.Size)
	if uint64(len(data)) < n*stride {
		return nil, fmt.Errorf("%d bytes hold fewer than %d records of %d bytes", len(data), n, stride)
	}
	start, count, ref := fieldOffsets(dt)
	records := make([]Record, n)
	for i := range records {
		row := data[uint64(i)*stride:]
		records[i] = Record{
			Offset: int32(binary.LittleEndian.Uint32(row[start:])),
			Size:   int32(binary.LittleEndian.Uint32(row[count:])),
			Ref:    Reference(binary.LittleEndian.Uint64(row[ref:])),
		}
	}
	return records, nil
}
