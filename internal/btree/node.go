package btree

import (
	"errors"
	"fmt"

	"github.com/robert-malhotra/h5compound/internal/binary"
)

// Signature of a version 1 B-tree node.
var Signature = []byte("TREE")

// Node types.
const (
	NodeGroup uint8 = 0
	NodeChunk uint8 = 1
)

// DefaultK is the chunk-index K used when the superblock does not carry one.
// A node holds up to 2K children.
const DefaultK = 32

var ErrInvalidNode = errors.New("invalid B-tree node")

// nodeHeader is the fixed part of a node.
type nodeHeader struct {
	Type    uint8
	Level   uint8
	Entries uint16
	Left    uint64
	Right   uint64
}

func readNodeHeader(r *binary.Reader, want uint8) (nodeHeader, error) {
	var h nodeHeader
	sig, err := r.ReadBytes(4)
	if err != nil {
		return h, fmt.Errorf("reading B-tree signature: %w", err)
	}
	if string(sig) != string(Signature) {
		return h, fmt.Errorf("%w: signature %q", ErrInvalidNode, sig)
	}
	head, err := r.ReadBytes(4)
	if err != nil {
		return h, err
	}
	h.Type, h.Level = head[0], head[1]
	h.Entries = uint16(head[2]) | uint16(head[3])<<8
	if h.Type != want {
		return h, fmt.Errorf("%w: node type %d, want %d", ErrInvalidNode, h.Type, want)
	}
	if h.Left, err = r.ReadOffset(); err != nil {
		return h, err
	}
	if h.Right, err = r.ReadOffset(); err != nil {
		return h, err
	}
	return h, nil
}

// headerSize is the size of the fixed part of a node.
func headerSize(offsetSize int) int {
	return 8 + 2*offsetSize
}
