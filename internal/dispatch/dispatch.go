// Package dispatch is the entry layer in front of the compound engine. It
// checks request parameters, serializes calls with a process-wide lock and
// logs each outcome.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/robert-malhotra/h5compound/compound"
)

// ErrBusy is returned when the lock is not acquired within the timeout.
var ErrBusy = errors.New("another operation holds the file lock")

// ParamError reports a missing or malformed request parameter. No file is
// touched when it is returned.
type ParamError struct {
	Msg string
}

func (e *ParamError) Error() string { return e.Msg }

// Engine is the part of compound.Engine the dispatcher calls.
type Engine interface {
	WriteArrays(filePath, datasetPath string, offsets, sizes []int32, paths []string, opts ...compound.CallOption) error
	ReadArrays(filePath, datasetPath string, opts ...compound.CallOption) (compound.Batch, error)
}

// WriteRequest carries the arguments of one write.
type WriteRequest struct {
	File    string
	Path    string
	Offsets []int32
	Sizes   []int32
	Paths   []string
	Quiet   bool
}

// ReadRequest carries the arguments of one read.
type ReadRequest struct {
	File  string
	Path  string
	Quiet bool
}

// Dispatcher runs engine calls one at a time.
type Dispatcher struct {
	engine  Engine
	log     zerolog.Logger
	timeout time.Duration
	lock    *semaphore.Weighted
}

// New returns a dispatcher. A non-positive lockTimeout waits for the lock
// as long as the request context allows.
func New(engine Engine, log zerolog.Logger, lockTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		engine:  engine,
		log:     log,
		timeout: lockTimeout,
		lock:    semaphore.NewWeighted(1),
	}
}

// Write validates req and appends its records.
func (d *Dispatcher) Write(ctx context.Context, req WriteRequest) error {
	if err := checkTarget(req.File, req.Path); err != nil {
		return d.done("write", req.File, req.Path, 0, err)
	}
	release, err := d.acquire(ctx)
	if err != nil {
		return d.done("write", req.File, req.Path, 0, err)
	}
	defer release()

	err = d.engine.WriteArrays(req.File, req.Path, req.Offsets, req.Sizes, req.Paths, callOptions(req.Quiet)...)
	return d.done("write", req.File, req.Path, len(req.Offsets), err)
}

// Read validates req and returns every record.
func (d *Dispatcher) Read(ctx context.Context, req ReadRequest) (compound.Batch, error) {
	if err := checkTarget(req.File, req.Path); err != nil {
		return compound.Batch{}, d.done("read", req.File, req.Path, 0, err)
	}
	release, err := d.acquire(ctx)
	if err != nil {
		return compound.Batch{}, d.done("read", req.File, req.Path, 0, err)
	}
	defer release()

	b, err := d.engine.ReadArrays(req.File, req.Path, callOptions(req.Quiet)...)
	if err != nil {
		return compound.Batch{}, d.done("read", req.File, req.Path, 0, err)
	}
	return b, d.done("read", req.File, req.Path, b.Len(), nil)
}

func checkTarget(file, path string) error {
	if file == "" {
		return &ParamError{Msg: "File name missing."}
	}
	if path == "" {
		return &ParamError{Msg: "HDF5 data path missing."}
	}
	return nil
}

func callOptions(quiet bool) []compound.CallOption {
	if quiet {
		return []compound.CallOption{compound.Quiet()}
	}
	return nil
}

func (d *Dispatcher) acquire(ctx context.Context) (func(), error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.lock.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrBusy
		}
		return nil, err
	}
	return func() { d.lock.Release(1) }, nil
}

// done logs the outcome of op and returns err unchanged.
func (d *Dispatcher) done(op, file, path string, records int, err error) error {
	if err != nil {
		d.log.Error().Err(err).
			Str("op", op).
			Str("file", file).
			Str("dataset", path).
			Str("kind", KindName(err)).
			Msg("operation failed")
		return err
	}
	d.log.Info().
		Str("op", op).
		Str("file", file).
		Str("dataset", path).
		Int("records", records).
		Msg("operation succeeded")
	return nil
}
