package main

import (
	"context"
	"io"
	"os"

	"github.com/robert-malhotra/h5compound/internal/batchio"
	"github.com/robert-malhotra/h5compound/internal/dispatch"
)

func runRead(args []string, stdout io.Writer) (err error) {
	fs, common := newFlagSet("read")
	file := fs.String("file", "", "HDF5 file to read")
	path := fs.String("path", "", "dataset path inside the file")
	format := fs.String("format", "", "output format: yaml, json or cbor (default from --out, else yaml)")
	out := fs.String("out", "", "output file (default stdout)")
	fs.Bool("quiet", false, "log only warnings and errors")

	cfg, err := parse(fs, common, args)
	if err != nil {
		return err
	}
	f := batchio.YAML
	switch {
	case *format != "":
		if f, err = batchio.ParseFormat(*format); err != nil {
			return &dispatch.ParamError{Msg: err.Error()}
		}
	case *out != "":
		f = batchio.FormatOf(*out)
	}

	d := newDispatcher(cfg.Dispatch.LockTimeout)
	b, err := d.Read(context.Background(), dispatch.ReadRequest{File: *file, Path: *path, Quiet: cfg.Engine.Quiet})
	if err != nil {
		return err
	}
	entries, err := b.Entries()
	if err != nil {
		return err
	}

	w := stdout
	if *out != "" {
		o, cerr := os.Create(*out)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if cerr := o.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = o
	}
	return batchio.Encode(w, f, entries)
}
