package compound

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every error returned by this package matches exactly one of
// them with errors.Is.
var (
	ErrShapeMismatch = errors.New("shape mismatch")
	ErrSchema        = errors.New("schema mismatch")
	ErrResolution    = errors.New("reference resolution failed")
	ErrIO            = errors.New("storage failure")
)

// Detail texts carried by IOError.
var (
	ErrNotPresent       = errors.New("HDF5 data not present at given path.")
	ErrAppendNotChunked = errors.New("Existing dataset is not chunked. Can not append new data.")
)

// Schema mismatch texts.
const (
	msgNotCompound   = "Referenced HDF5 dataset has not compound type."
	msgMemberCount   = "Referenced HDF5 compound has not %d members."
	msgWrongType     = "Referenced HDF5 compound member has wrong type."
	msgWrongOrder    = "Referenced HDF5 compound member has wrong element order."
	msgShapeMismatch = "Waves must have the same size"
)

// ShapeMismatchError reports parallel input arrays of different lengths.
type ShapeMismatchError struct {
	Offsets, Sizes, Paths int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s (offsets %d, sizes %d, paths %d)", msgShapeMismatch, e.Offsets, e.Sizes, e.Paths)
}

func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// SchemaError reports an on-disk datatype that is not the record type.
type SchemaError struct {
	Member string // empty when the mismatch is not about one member
	Msg    string
}

func (e *SchemaError) Error() string {
	if e.Member == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (member %q)", e.Msg, e.Member)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// ResolutionError reports a path that names no object, or a reference that
// names no reachable object.
type ResolutionError struct {
	Path string
	Ref  Reference
	Err  error
}

func (e *ResolutionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("cannot resolve path %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("cannot resolve reference %#x: %v", uint64(e.Ref), e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// IOError wraps a storage layer failure. Op names the failing step.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// Kind returns the kind sentinel err matches, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrShapeMismatch, ErrSchema, ErrResolution, ErrIO} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
