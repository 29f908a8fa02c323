package message

import "github.com/robert-malhotra/h5compound/internal/binary"

// LinkInfo is the link info message (type 0x0002). A group whose
// FractalHeapAddress is defined keeps its links in dense storage.
type LinkInfo struct {
	Flags                uint8
	MaxCreationIndex     uint64
	FractalHeapAddress   uint64
	NameIndexAddress     uint64
	CreationIndexAddress uint64
}

func (m *LinkInfo) Type() Type { return TypeLinkInfo }

// NewLinkInfo returns a link info message for compact link storage.
func NewLinkInfo() *LinkInfo {
	undef := binary.Undefined(8)
	return &LinkInfo{FractalHeapAddress: undef, NameIndexAddress: undef, CreationIndexAddress: undef}
}

// IsDense reports whether links are stored in a fractal heap.
func (m *LinkInfo) IsDense(offsetSize int) bool {
	return m.FractalHeapAddress != binary.Undefined(offsetSize)
}

func parseLinkInfo(data []byte, r *binary.Reader) (*LinkInfo, error) {
	br := body(data, r)
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, truncated("link info", err)
	}
	m := &LinkInfo{Flags: head[1]}
	if m.Flags&0x01 != 0 {
		if m.MaxCreationIndex, err = br.ReadUint64(); err != nil {
			return nil, truncated("link info", err)
		}
	}
	if m.FractalHeapAddress, err = br.ReadOffset(); err != nil {
		return nil, truncated("link info heap", err)
	}
	if m.NameIndexAddress, err = br.ReadOffset(); err != nil {
		return nil, truncated("link info name index", err)
	}
	m.CreationIndexAddress = binary.Undefined(br.OffsetSize())
	if m.Flags&0x02 != 0 {
		if m.CreationIndexAddress, err = br.ReadOffset(); err != nil {
			return nil, truncated("link info creation index", err)
		}
	}
	return m, nil
}

func (m *LinkInfo) Serialize(w *binary.Writer) error {
	if err := w.WriteBytes([]byte{0, m.Flags}); err != nil {
		return err
	}
	if m.Flags&0x01 != 0 {
		if err := w.WriteUint64(m.MaxCreationIndex); err != nil {
			return err
		}
	}
	if err := w.WriteOffset(m.FractalHeapAddress); err != nil {
		return err
	}
	if err := w.WriteOffset(m.NameIndexAddress); err != nil {
		return err
	}
	if m.Flags&0x02 != 0 {
		return w.WriteOffset(m.CreationIndexAddress)
	}
	return nil
}

func (m *LinkInfo) SerializedSize(w *binary.Writer) int {
	size := 2 + 2*w.OffsetSize()
	if m.Flags&0x01 != 0 {
		size += 8
	}
	if m.Flags&0x02 != 0 {
		size += w.OffsetSize()
	}
	return size
}

// GroupInfo is the group info message (type 0x000A). Only the defaults are
// written; stored thresholds are parsed for completeness.
type GroupInfo struct {
	Flags            uint8
	MaxCompact       uint16
	MinDense         uint16
	EstimatedEntries uint16
	EstimatedNameLen uint16
}

func (m *GroupInfo) Type() Type { return TypeGroupInfo }

func parseGroupInfo(data []byte, r *binary.Reader) (*GroupInfo, error) {
	br := body(data, r)
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, truncated("group info", err)
	}
	m := &GroupInfo{Flags: head[1]}
	if m.Flags&0x01 != 0 {
		if m.MaxCompact, err = br.ReadUint16(); err != nil {
			return nil, truncated("group info", err)
		}
		if m.MinDense, err = br.ReadUint16(); err != nil {
			return nil, truncated("group info", err)
		}
	}
	if m.Flags&0x02 != 0 {
		if m.EstimatedEntries, err = br.ReadUint16(); err != nil {
			return nil, truncated("group info", err)
		}
		if m.EstimatedNameLen, err = br.ReadUint16(); err != nil {
			return nil, truncated("group info", err)
		}
	}
	return m, nil
}

func (m *GroupInfo) Serialize(w *binary.Writer) error {
	return w.WriteBytes([]byte{0, 0})
}

func (m *GroupInfo) SerializedSize(w *binary.Writer) int { return 2 }

// SymbolTable is the symbol table message (type 0x0011) of an old-style
// group: a version 1 B-tree of symbol nodes plus a local heap of names.
type SymbolTable struct {
	BTreeAddress     uint64
	LocalHeapAddress uint64
}

func (m *SymbolTable) Type() Type { return TypeSymbolTable }

func parseSymbolTable(data []byte, r *binary.Reader) (*SymbolTable, error) {
	br := body(data, r)
	btree, err := br.ReadOffset()
	if err != nil {
		return nil, truncated("symbol table", err)
	}
	heap, err := br.ReadOffset()
	if err != nil {
		return nil, truncated("symbol table", err)
	}
	return &SymbolTable{BTreeAddress: btree, LocalHeapAddress: heap}, nil
}
