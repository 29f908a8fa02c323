package compound

import (
	"errors"

	"github.com/robert-malhotra/h5compound/internal/binary"
	"github.com/robert-malhotra/h5compound/internal/container"
)

var errNullReference = errors.New("null reference")

// Resolver converts between object paths and references within one open
// file. It holds no state besides the file.
type Resolver struct {
	f *container.File
}

// NewResolver returns a resolver for f.
func NewResolver(f *container.File) *Resolver {
	return &Resolver{f: f}
}

// Resolve returns the canonical path of the object ref points at. Every
// call opens its own node, so results never depend on earlier calls.
func (r *Resolver) Resolve(ref Reference) (string, error) {
	if ref == 0 || uint64(ref) == binary.Undefined(r.f.Config().OffsetSize) {
		return "", &ResolutionError{Ref: ref, Err: errNullReference}
	}
	n, err := r.f.Dereference(uint64(ref))
	if err != nil {
		return "", &ResolutionError{Ref: ref, Err: err}
	}
	return n.Path(), nil
}

// Construct returns a reference to the object at path, following soft links.
func (r *Resolver) Construct(path string) (Reference, error) {
	n, err := r.f.Lookup(path)
	if err != nil {
		return 0, &ResolutionError{Path: path, Err: err}
	}
	return Reference(n.Address()), nil
}
