package btree

import (
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/heap"
)

// SymbolNodeSignature marks a symbol table node.
var SymbolNodeSignature = []byte("SNOD")

// Symbol table entry cache types.
const (
	cacheNone     uint32 = 0
	cacheHeader   uint32 = 1
	cacheSoftLink uint32 = 2
)

// GroupEntry is one member of an old-style group.
type GroupEntry struct {
	Name          string
	ObjectAddress uint64
	Soft          bool
	SoftLinkValue string
}

// ReadGroupEntries returns the members of the group whose B-tree is rooted
// at addr. Names are resolved through names. Entries come back in B-tree
// order, which is name order.
func ReadGroupEntries(r *binary.Reader, addr uint64, names *heap.Local) ([]GroupEntry, error) {
	var out []GroupEntry
	if err := readGroupNode(r, addr, names, 0, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func readGroupNode(r *binary.Reader, addr uint64, names *heap.Local, depth int, out *[]GroupEntry) error {
	if depth > maxDepth {
		return fmt.Errorf("%w: group tree deeper than %d", ErrInvalidNode, maxDepth)
	}
	nr := r.At(int64(addr))
	h, err := readNodeHeader(nr, NodeGroup)
	if err != nil {
		return fmt.Errorf("group node at %d: %w", addr, err)
	}
	for i := 0; i < int(h.Entries); i++ {
		if _, err := nr.ReadLength(); err != nil {
			return err
		}
		child, err := nr.ReadOffset()
		if err != nil {
			return err
		}
		if h.Level > 0 {
			err = readGroupNode(r, child, names, depth+1, out)
		} else {
			err = readSymbolNode(r, child, names, out)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readSymbolNode(r *binary.Reader, addr uint64, names *heap.Local, out *[]GroupEntry) error {
	nr := r.At(int64(addr))
	sig, err := nr.ReadBytes(4)
	if err != nil {
		return fmt.Errorf("reading symbol node signature: %w", err)
	}
	if string(sig) != string(SymbolNodeSignature) {
		return fmt.Errorf("%w: symbol node signature %q at %d", ErrInvalidNode, sig, addr)
	}
	head, err := nr.ReadBytes(4)
	if err != nil {
		return err
	}
	if head[0] != 1 {
		return fmt.Errorf("%w: symbol node version %d", ErrInvalidNode, head[0])
	}
	count := int(head[2]) | int(head[3])<<8
	for i := range count {
		e, err := readSymbolEntry(nr, names)
		if err != nil {
			return fmt.Errorf("symbol node at %d entry %d: %w", addr, i, err)
		}
		if e.Name != "" {
			*out = append(*out, e)
		}
	}
	return nil
}

func readSymbolEntry(r *binary.Reader, names *heap.Local) (GroupEntry, error) {
	var e GroupEntry
	nameOff, err := r.ReadOffset()
	if err != nil {
		return e, err
	}
	if e.ObjectAddress, err = r.ReadOffset(); err != nil {
		return e, err
	}
	cache, err := r.ReadUint32()
	if err != nil {
		return e, err
	}
	r.Skip(4)
	scratch, err := r.ReadBytes(16)
	if err != nil {
		return e, err
	}
	e.Name = names.String(nameOff)
	if cache == cacheSoftLink {
		e.Soft = true
		e.SoftLinkValue = names.String(binary.DecodeUint(r.Config().ByteOrder, scratch[:4]))
		e.ObjectAddress = 0
	}
	return e, nil
}
