package container

import (
	"fmt"
	"path"

	"github.com/robert-malhotra/h5compound/internal/message"
	"github.com/robert-malhotra/h5compound/internal/object"
)

// Kind is the kind of object a header describes.
type Kind int

const (
	KindUnknown Kind = iota
	KindGroup
	KindDataset
	KindDatatype
)

func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindDataset:
		return "dataset"
	case KindDatatype:
		return "datatype"
	}
	return "unknown"
}

// Node is an object reached through the hierarchy or by address.
type Node struct {
	file   *File
	path   string
	addr   uint64
	header *object.Header
}

// Path is the path the node was reached by.
func (n *Node) Path() string { return n.path }

// Name is the last component of Path.
func (n *Node) Name() string {
	if n.path == "/" {
		return "/"
	}
	return path.Base(n.path)
}

// Address is the object header address.
func (n *Node) Address() uint64 { return n.addr }

// Header is the parsed object header.
func (n *Node) Header() *object.Header { return n.header }

// Kind classifies the object by the messages in its header.
func (n *Node) Kind() Kind {
	h := n.header
	switch {
	case h.Has(message.TypeDataLayout) && h.Has(message.TypeDataspace):
		return KindDataset
	case h.Has(message.TypeLinkInfo), h.Has(message.TypeSymbolTable), h.Has(message.TypeLink):
		return KindGroup
	case n.addr == n.file.RootAddress():
		return KindGroup
	case h.Has(message.TypeDatatype):
		return KindDatatype
	}
	return KindUnknown
}

// Group returns the node as a group.
func (n *Node) Group() (*Group, error) {
	if n.Kind() != KindGroup {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotGroup, n.path, n.Kind())
	}
	return &Group{Node: *n}, nil
}

// Dataset returns the node as a dataset.
func (n *Node) Dataset() (*Dataset, error) {
	if n.Kind() != KindDataset {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotDataset, n.path, n.Kind())
	}
	return &Dataset{Node: *n}, nil
}

// reload re-reads the node's header after an edit.
func (n *Node) reload() error {
	h, err := object.Read(n.file.reader, n.addr)
	if err != nil {
		return err
	}
	n.header = h
	return nil
}
