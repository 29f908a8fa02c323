package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/robert-malhotra/h5compound/compound"
	"github.com/robert-malhotra/h5compound/internal/batchio"
	"github.com/robert-malhotra/h5compound/internal/dispatch"
	"github.com/robert-malhotra/h5compound/internal/logger"
)

func runWrite(args []string, stdout io.Writer) error {
	fs, common := newFlagSet("write")
	file := fs.String("file", "", "HDF5 file to write to; it must exist")
	path := fs.String("path", "", "dataset path inside the file")
	batch := fs.String("batch", "", "record batch document (yaml, json or cbor by extension)")
	offsets := fs.Int32Slice("offsets", nil, "idx_start values")
	sizes := fs.Int32Slice("sizes", nil, "count values")
	refs := fs.StringArray("refs", nil, "object path a record refers to, once per record (repeatable)")
	fs.Bool("quiet", false, "log only warnings and errors")

	cfg, err := parse(fs, common, args)
	if err != nil {
		return err
	}

	req := dispatch.WriteRequest{
		File:    *file,
		Path:    *path,
		Offsets: *offsets,
		Sizes:   *sizes,
		Paths:   *refs,
		Quiet:   cfg.Engine.Quiet,
	}
	if *batch != "" {
		if fs.Changed("offsets") || fs.Changed("sizes") || fs.Changed("refs") {
			return &dispatch.ParamError{Msg: "--batch cannot be combined with --offsets, --sizes or --refs"}
		}
		entries, err := readBatch(*batch)
		if err != nil {
			return err
		}
		b := compound.FromEntries(entries)
		req.Offsets, req.Sizes, req.Paths = b.Offsets, b.Sizes, b.Paths
	}

	d := newDispatcher(cfg.Dispatch.LockTimeout)
	if err := d.Write(context.Background(), req); err != nil {
		return err
	}
	if !req.Quiet {
		fmt.Fprintf(stdout, "wrote %d records to %s:%s\n", len(req.Offsets), req.File, req.Path)
	}
	return nil
}

func readBatch(path string) ([]compound.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &dispatch.ParamError{Msg: err.Error()}
	}
	defer f.Close()
	entries, err := batchio.Decode(f, batchio.FormatOf(path))
	if err != nil {
		return nil, &dispatch.ParamError{Msg: err.Error()}
	}
	return entries, nil
}

func newDispatcher(lockTimeout time.Duration) *dispatch.Dispatcher {
	engine := compound.New(compound.WithLogger(logger.Get("engine")))
	return dispatch.New(engine, logger.Get("dispatch"), lockTimeout)
}
