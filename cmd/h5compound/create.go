package main

import (
	"fmt"
	"io"
	"os"

	"github.com/robert-malhotra/h5compound/internal/container"
	"github.com/robert-malhotra/h5compound/internal/dispatch"
	"github.com/robert-malhotra/h5compound/internal/logger"
	"github.com/robert-malhotra/h5compound/internal/message"
)

func runCreate(args []string, stdout io.Writer) error {
	fs, common := newFlagSet("create")
	file := fs.String("file", "", "HDF5 file to create")
	groups := fs.StringArray("group", nil, "group to create, with missing parents (repeatable)")
	objects := fs.StringArray("object", nil, "empty int32 dataset to create, with missing parents (repeatable)")
	force := fs.Bool("force", false, "overwrite an existing file")

	if _, err := parse(fs, common, args); err != nil {
		return err
	}
	if *file == "" {
		return &dispatch.ParamError{Msg: "File name missing."}
	}
	if _, err := os.Stat(*file); err == nil && !*force {
		return &dispatch.ParamError{Msg: fmt.Sprintf("%s exists; use --force to overwrite", *file)}
	}

	f, err := container.Create(*file)
	if err != nil {
		return err
	}
	err = populate(f, *groups, *objects)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	log := logger.Get("cli")
	if err != nil {
		log.Error().Err(err).Str("file", *file).Msg("create failed")
		return err
	}
	log.Info().Str("file", *file).Strs("groups", *groups).Strs("objects", *objects).Msg("created file")
	fmt.Fprintf(stdout, "created %s with %d groups and %d objects\n", *file, len(*groups), len(*objects))
	return nil
}

func populate(f *container.File, groups, objects []string) error {
	for _, g := range groups {
		if _, err := f.CreateGroups(g); err != nil {
			return fmt.Errorf("creating group %s: %w", g, err)
		}
	}
	i32 := message.NewFixedPoint(4, true, message.OrderLE)
	for _, o := range objects {
		parts := container.SplitPath(o)
		if len(parts) == 0 {
			return fmt.Errorf("creating object %q: %w", o, container.ErrInvalidPath)
		}
		if len(parts) > 1 {
			parent := "/"
			for _, p := range parts[:len(parts)-1] {
				parent = container.JoinPath(parent, p)
			}
			if _, err := f.CreateGroups(parent); err != nil {
				return fmt.Errorf("creating group %s: %w", parent, err)
			}
		}
		if _, err := f.CreateDataset(o, i32, []uint64{0}, nil); err != nil {
			return fmt.Errorf("creating object %s: %w", o, err)
		}
	}
	return nil
}
