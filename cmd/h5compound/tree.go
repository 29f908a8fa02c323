package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/robert-malhotra/h5compound/internal/container"
	"github.com/robert-malhotra/h5compound/internal/dispatch"
)

func runTree(args []string, stdout io.Writer) (err error) {
	fs, common := newFlagSet("tree")
	file := fs.String("file", "", "HDF5 file to list")
	if _, err := parse(fs, common, args); err != nil {
		return err
	}
	if *file == "" {
		return &dispatch.ParamError{Msg: "File name missing."}
	}

	f, err := container.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "superblock v%d\t\t\t\n", f.Superblock().Version)
	err = f.Walk(func(path string, n *container.Node, err error) error {
		if err != nil {
			fmt.Fprintf(tw, "%s\terror\t\t%v\n", path, err)
			return nil
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", path, n.Kind(), n.Address(), describe(n))
		return nil
	})
	if ferr := tw.Flush(); err == nil {
		err = ferr
	}
	return err
}

func describe(n *container.Node) string {
	switch n.Kind() {
	case container.KindGroup:
		g, err := n.Group()
		if err != nil {
			return err.Error()
		}
		links, err := g.Links()
		if err != nil {
			return err.Error()
		}
		return fmt.Sprintf("%d links", len(links))
	case container.KindDataset:
		ds, err := n.Dataset()
		if err != nil {
			return err.Error()
		}
		layout := "contiguous"
		if ds.Chunked() {
			layout = "chunked"
		}
		dt := "unknown type"
		if ds.Datatype() != nil {
			dt = ds.Datatype().String()
		}
		return fmt.Sprintf("%s shape=%v max=%v %s", dt, ds.Shape(), ds.MaxShape(), layout)
	}
	return ""
}
