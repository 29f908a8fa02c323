package container

import "errors"

var (
	ErrNotFound      = errors.New("object not found")
	ErrNotDataset    = errors.New("object is not a dataset")
	ErrNotGroup      = errors.New("object is not a group")
	ErrUnsupported   = errors.New("unsupported feature")
	ErrInvalidPath   = errors.New("invalid path")
	ErrClosed        = errors.New("file is closed")
	ErrLinkDepth     = errors.New("maximum link depth exceeded")
	ErrExists        = errors.New("object already exists")
	ErrReadOnly      = errors.New("file is not open for writing")
	ErrNotChunked    = errors.New("dataset is not chunked")
	ErrNotExtendable = errors.New("dataset cannot grow to the requested extent")
)

// MaxLinkDepth bounds the number of soft links followed while resolving a
// single path.
const MaxLinkDepth = 100
