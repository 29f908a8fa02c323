package container

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/robert-malhotra/h5compound/internal/btree"
	"github.com/robert-malhotra/h5compound/internal/heap"
	"github.com/robert-malhotra/h5compound/internal/message"
)

// LinkKind is the kind of a group member link.
type LinkKind int

const (
	LinkHard LinkKind = iota
	LinkSoft
	LinkExternal
)

// Link is one member of a group.
type Link struct {
	Name    string
	Kind    LinkKind
	Address uint64 // hard links
	Target  string // soft and external links
	File    string // external links
}

// Group is a group node.
type Group struct {
	Node
}

// Links returns the group's members sorted by name.
func (g *Group) Links() ([]Link, error) {
	var links []Link
	switch st, li := g.symbolTable(), g.header.LinkInfo(); {
	case st != nil:
		entries, err := g.readSymbolTable(st)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			l := Link{Name: e.Name, Address: e.ObjectAddress}
			if e.Soft {
				l.Kind, l.Target = LinkSoft, e.SoftLinkValue
			}
			links = append(links, l)
		}
	case li != nil && li.IsDense(g.file.Config().OffsetSize):
		return nil, fmt.Errorf("%w: %s keeps its links in dense storage", ErrUnsupported, g.path)
	default:
		for _, m := range g.header.Links() {
			links = append(links, fromMessage(m))
		}
	}
	slices.SortFunc(links, func(a, b Link) int { return cmp.Compare(a.Name, b.Name) })
	return links, nil
}

// Link returns the member called name.
func (g *Group) Link(name string) (Link, error) {
	links, err := g.Links()
	if err != nil {
		return Link{}, err
	}
	i, ok := slices.BinarySearchFunc(links, name, func(l Link, n string) int { return cmp.Compare(l.Name, n) })
	if !ok {
		return Link{}, fmt.Errorf("%w: %s", ErrNotFound, JoinPath(g.path, name))
	}
	return links[i], nil
}

// Members returns the names of the group's members.
func (g *Group) Members() ([]string, error) {
	links, err := g.Links()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(links))
	for i, l := range links {
		names[i] = l.Name
	}
	return names, nil
}

func fromMessage(m *message.Link) Link {
	l := Link{Name: m.Name}
	switch {
	case m.IsSoft():
		l.Kind, l.Target = LinkSoft, m.SoftLinkValue
	case m.IsExternal():
		l.Kind, l.File, l.Target = LinkExternal, m.ExternalFile, m.ExternalPath
	default:
		l.Address = m.ObjectAddress
	}
	return l
}

// symbolTable returns the group's symbol table, falling back to the root
// entry cached in an old superblock.
func (g *Group) symbolTable() *message.SymbolTable {
	if st := g.header.SymbolTable(); st != nil {
		return st
	}
	sb := g.file.superblock
	if g.addr == sb.RootGroupAddress && sb.HasRootSymbolTable() && !g.header.Has(message.TypeLinkInfo) {
		return &message.SymbolTable{BTreeAddress: sb.RootBTreeAddress, LocalHeapAddress: sb.RootHeapAddress}
	}
	return nil
}

func (g *Group) readSymbolTable(st *message.SymbolTable) ([]btree.GroupEntry, error) {
	names, err := heap.ReadLocal(g.file.reader, st.LocalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.path, err)
	}
	entries, err := btree.ReadGroupEntries(g.file.reader, st.BTreeAddress, names)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.path, err)
	}
	return entries, nil
}
