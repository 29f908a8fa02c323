package dispatch

import (
	"errors"

	"github.com/robert-malhotra/h5compound/compound"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitOther      = 1
	ExitParams     = 2
	ExitShape      = 3
	ExitSchema     = 4
	ExitResolution = 5
	ExitIO         = 6
)

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	var pe *ParamError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &pe):
		return ExitParams
	case errors.Is(err, compound.ErrShapeMismatch):
		return ExitShape
	case errors.Is(err, compound.ErrSchema):
		return ExitSchema
	case errors.Is(err, compound.ErrResolution):
		return ExitResolution
	case errors.Is(err, compound.ErrIO):
		return ExitIO
	}
	return ExitOther
}

// KindName names the kind of err for logs and messages.
func KindName(err error) string {
	switch ExitCode(err) {
	case ExitOK:
		return "ok"
	case ExitParams:
		return "params"
	case ExitShape:
		return "shape"
	case ExitSchema:
		return "schema"
	case ExitResolution:
		return "resolution"
	case ExitIO:
		return "io"
	}
	if errors.Is(err, ErrBusy) {
		return "busy"
	}
	return "other"
}
