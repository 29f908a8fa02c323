package container

import (
	"errors"
	"fmt"
)

// WalkFunc is called for each object reached during a walk. err reports a
// member that could not be opened; n is nil then. Returning SkipGroup from a
// group's call skips its members; any other error stops the walk.
type WalkFunc func(path string, n *Node, err error) error

// SkipGroup tells Walk not to descend into the current group.
var SkipGroup = errors.New("skip this group")

// errStop ends a walk early without an error.
var errStop = errors.New("stop walk")

// Walk visits the hierarchy depth first from the root group, members in name
// order. Only hard links are followed and each object is visited once, at
// the first path that reaches it.
func (f *File) Walk(fn WalkFunc) error {
	if f.closed {
		return ErrClosed
	}
	root, err := f.OpenAt(f.RootAddress(), "/")
	if err != nil {
		return err
	}
	seen := map[uint64]bool{root.addr: true}
	err = f.walk(root, seen, fn)
	if errors.Is(err, SkipGroup) {
		return nil
	}
	return err
}

func (f *File) walk(n *Node, seen map[uint64]bool, fn WalkFunc) error {
	if err := fn(n.path, n, nil); err != nil {
		return err
	}
	g, err := n.Group()
	if err != nil {
		return nil
	}
	links, err := g.Links()
	if err != nil {
		return fn(n.path, nil, err)
	}
	for _, l := range links {
		if l.Kind != LinkHard || seen[l.Address] {
			continue
		}
		seen[l.Address] = true
		path := JoinPath(n.path, l.Name)
		child, err := f.OpenAt(l.Address, path)
		if err != nil {
			if err := fn(path, nil, err); err != nil {
				return err
			}
			continue
		}
		if err := f.walk(child, seen, fn); err != nil {
			if errors.Is(err, SkipGroup) {
				continue
			}
			return err
		}
	}
	return nil
}

// NameOf returns the first path, in walk order, of the object whose header
// is at addr. The root group is "/".
func (f *File) NameOf(addr uint64) (string, error) {
	if addr == f.RootAddress() {
		return "/", nil
	}
	var found string
	err := f.Walk(func(path string, n *Node, err error) error {
		if err != nil {
			return nil
		}
		if n.addr == addr {
			found = path
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("%w: no path reaches address %d", ErrNotFound, addr)
	}
	return found, nil
}

// Dereference opens the object at addr as a fresh node whose path is
// NameOf(addr).
func (f *File) Dereference(addr uint64) (*Node, error) {
	if f.closed {
		return nil, ErrClosed
	}
	path, err := f.NameOf(addr)
	if err != nil {
		return nil, err
	}
	return f.OpenAt(addr, path)
}
