package message

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// LayoutClass is the storage class of a dataset.
type LayoutClass uint8

const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	}
	return fmt.Sprintf("layout(%d)", uint8(c))
}

// ChunkIndexType identifies the structure indexing a chunked dataset.
// Layout versions 1-3 always use a version 1 B-tree.
type ChunkIndexType uint8

const (
	IndexBTreeV1         ChunkIndexType = 0
	IndexSingleChunk     ChunkIndexType = 1
	IndexImplicit        ChunkIndexType = 2
	IndexFixedArray      ChunkIndexType = 3
	IndexExtensibleArray ChunkIndexType = 4
	IndexBTreeV2         ChunkIndexType = 5
)

// DataLayout is the data layout message (type 0x0008).
type DataLayout struct {
	Version uint8
	Class   LayoutClass

	// Address of the contiguous data or of the chunk index.
	Address uint64
	// Size of contiguous data; zero when versions 1/2 leave it implied.
	Size        uint64
	CompactData []byte

	ChunkDims   []uint64 // excludes the trailing element-size dimension
	ElementSize uint32
	IndexType   ChunkIndexType
	ChunkFlags  uint8 // version 4 only
}

func (m *DataLayout) Type() Type { return TypeDataLayout }

// IsChunked reports whether the dataset is stored in chunks.
func (m *DataLayout) IsChunked() bool { return m.Class == LayoutChunked }

// NewChunkedLayout returns a version 3 chunked layout indexed by a version 1
// B-tree rooted at indexAddr.
func NewChunkedLayout(chunkDims []uint64, elementSize uint32, indexAddr uint64) *DataLayout {
	return &DataLayout{
		Version:     3,
		Class:       LayoutChunked,
		Address:     indexAddr,
		ChunkDims:   append([]uint64(nil), chunkDims...),
		ElementSize: elementSize,
		IndexType:   IndexBTreeV1,
	}
}

// NewContiguousLayout returns a version 3 contiguous layout.
func NewContiguousLayout(addr, size uint64) *DataLayout {
	return &DataLayout{Version: 3, Class: LayoutContiguous, Address: addr, Size: size}
}

func parseDataLayout(data []byte, r *binary.Reader) (*DataLayout, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("layout: %w", ErrTruncated)
	}
	switch data[0] {
	case 1, 2:
		return parseLayoutV1V2(body(data, r))
	case 3, 4:
		return parseLayoutV3V4(body(data, r))
	}
	return nil, fmt.Errorf("unsupported layout version %d", data[0])
}

func parseLayoutV1V2(br *binary.Reader) (*DataLayout, error) {
	head, err := br.ReadBytes(8)
	if err != nil {
		return nil, truncated("layout", err)
	}
	m := &DataLayout{Version: head[0], Class: LayoutClass(head[2])}
	ndims := int(head[1])

	if m.Class != LayoutCompact {
		if m.Address, err = br.ReadOffset(); err != nil {
			return nil, truncated("layout address", err)
		}
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		d, err := br.ReadUint32()
		if err != nil {
			return nil, truncated("layout dims", err)
		}
		dims[i] = uint64(d)
	}

	switch m.Class {
	case LayoutChunked:
		if ndims < 2 {
			return nil, fmt.Errorf("chunked layout with %d dims", ndims)
		}
		m.ChunkDims = dims[:ndims-1]
		m.ElementSize = uint32(dims[ndims-1])
	case LayoutCompact:
		size, err := br.ReadUint32()
		if err != nil {
			return nil, truncated("compact size", err)
		}
		if m.CompactData, err = br.ReadBytes(int(size)); err != nil {
			return nil, truncated("compact data", err)
		}
		m.Size = uint64(size)
	}
	return m, nil
}

func parseLayoutV3V4(br *binary.Reader) (*DataLayout, error) {
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, truncated("layout", err)
	}
	m := &DataLayout{Version: head[0], Class: LayoutClass(head[1])}

	switch m.Class {
	case LayoutCompact:
		size, err := br.ReadUint16()
		if err != nil {
			return nil, truncated("compact size", err)
		}
		if m.CompactData, err = br.ReadBytes(int(size)); err != nil {
			return nil, truncated("compact data", err)
		}
		m.Size = uint64(size)

	case LayoutContiguous:
		if m.Address, err = br.ReadOffset(); err != nil {
			return nil, truncated("contiguous address", err)
		}
		if m.Size, err = br.ReadLength(); err != nil {
			return nil, truncated("contiguous size", err)
		}

	case LayoutChunked:
		if m.Version == 3 {
			err = parseChunkedV3(br, m)
		} else {
			err = parseChunkedV4(br, m)
		}
		if err != nil {
			return nil, err
		}

	case LayoutVirtual:
		// Nothing beyond the class is needed to reject it.

	default:
		return nil, fmt.Errorf("unknown layout class %d", m.Class)
	}
	return m, nil
}

func parseChunkedV3(br *binary.Reader, m *DataLayout) error {
	ndims, err := br.ReadUint8()
	if err != nil {
		return truncated("chunk rank", err)
	}
	if ndims < 2 {
		return fmt.Errorf("chunked layout with %d dims", ndims)
	}
	if m.Address, err = br.ReadOffset(); err != nil {
		return truncated("chunk index address", err)
	}
	m.IndexType = IndexBTreeV1
	m.ChunkDims = make([]uint64, ndims-1)
	for i := range m.ChunkDims {
		d, err := br.ReadUint32()
		if err != nil {
			return truncated("chunk dims", err)
		}
		m.ChunkDims[i] = uint64(d)
	}
	m.ElementSize, err = br.ReadUint32()
	if err != nil {
		return truncated("chunk element size", err)
	}
	return nil
}

func parseChunkedV4(br *binary.Reader, m *DataLayout) error {
	head, err := br.ReadBytes(3)
	if err != nil {
		return truncated("chunk layout", err)
	}
	m.ChunkFlags = head[0]
	ndims, width := int(head[1]), int(head[2])
	if ndims < 2 {
		return fmt.Errorf("chunked layout with %d dims", ndims)
	}
	dims := make([]uint64, ndims)
	for i := range dims {
		if dims[i], err = br.ReadUintN(width); err != nil {
			return truncated("chunk dims", err)
		}
	}
	m.ChunkDims = dims[:ndims-1]
	m.ElementSize = uint32(dims[ndims-1])

	idx, err := br.ReadUint8()
	if err != nil {
		return truncated("chunk index type", err)
	}
	m.IndexType = ChunkIndexType(idx)
	switch m.IndexType {
	case IndexSingleChunk:
		if m.ChunkFlags&0x02 != 0 {
			br.Skip(int64(br.LengthSize()) + 4)
		}
	case IndexImplicit:
	case IndexFixedArray:
		br.Skip(1)
	case IndexExtensibleArray:
		br.Skip(5)
	case IndexBTreeV2:
		br.Skip(6)
	default:
		return fmt.Errorf("unknown chunk index type %d", idx)
	}
	if m.Address, err = br.ReadOffset(); err != nil {
		return truncated("chunk index address", err)
	}
	return nil
}

// Serialize writes a version 3 layout message.
func (m *DataLayout) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{3, uint8(m.Class)}); err != nil {
		return err
	}
	switch m.Class {
	case LayoutCompact:
		if err := w.WriteUint16(uint16(len(m.CompactData))); err != nil {
			return err
		}
		return w.WriteBytes(m.CompactData)
	case LayoutContiguous:
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		return w.WriteLength(m.Size)
	case LayoutChunked:
		if err := w.WriteUint8(uint8(len(m.ChunkDims) + 1)); err != nil {
			return err
		}
		if err := w.WriteOffset(m.Address); err != nil {
			return err
		}
		for _, d := range m.ChunkDims {
			if err := w.WriteUint32(uint32(d)); err != nil {
				return err
			}
		}
		return w.WriteUint32(m.ElementSize)
	}
	return fmt.Errorf("serializing %s layout not supported", m.Class)
}

func (m *DataLayout) SerializedSize(w *binary.Writer) int {
	switch m.Class {
	case LayoutCompact:
		return 4 + len(m.CompactData)
	case LayoutContiguous:
		return 2 + w.OffsetSize() + w.LengthSize()
	case LayoutChunked:
		return 3 + w.OffsetSize() + 4*(len(m.ChunkDims)+1)
	}
	return 2
}

// AddressOffset returns the position of the address field inside the
// message body, so the index address can be patched without re-encoding
// the message. It returns -1 when the encoding has no fixed position.
func (m *DataLayout) AddressOffset() int {
	switch {
	case m.Version < 3 && m.Class != LayoutCompact:
		return 8
	case m.Version == 3 && m.Class == LayoutChunked:
		return 3
	case m.Version >= 3 && m.Class == LayoutContiguous:
		return 2
	}
	return -1
}
