// Command h5compound writes and reads compound index records in HDF5 files.
//
// Usage:
//
//	h5compound write  --file F --path P (--batch B | --offsets .. --sizes .. --refs ..)
//	h5compound read   --file F --path P [--format yaml|json|cbor] [--out O]
//	h5compound create --file F [--group G ...] [--object O ...]
//	h5compound tree   --file F
//
// The exit status is 0 on success, 2 for bad parameters, 3 for arrays of
// different lengths, 4 for a dataset with the wrong record type, 5 for an
// unresolvable path or reference, 6 for storage errors and 1 otherwise.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/pflag"

	"github.com/robert-malhotra/h5compound/internal/config"
	"github.com/robert-malhotra/h5compound/internal/dispatch"
	"github.com/robert-malhotra/h5compound/internal/logger"
)

type command struct {
	summary string
	run     func(args []string, stdout io.Writer) error
}

var commands = map[string]command{
	"write":  {"append records to a compound dataset", runWrite},
	"read":   {"print every record of a compound dataset", runRead},
	"create": {"create a file with groups and placeholder datasets", runCreate},
	"tree":   {"list every object in a file", runTree},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, pflag.ErrHelp) {
		return dispatch.ExitOK
	}
	return dispatch.ExitCode(err)
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(os.Stderr)
		if len(args) == 0 {
			return &dispatch.ParamError{Msg: "missing command"}
		}
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(os.Stderr)
		return &dispatch.ParamError{Msg: fmt.Sprintf("unknown command %q", args[0])}
	}
	return cmd.run(args[1:], stdout)
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: h5compound <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-7s %s\n", name, commands[name].summary)
	}
}

// commonFlags are accepted by every command.
type commonFlags struct {
	config string
}

func newFlagSet(name string) (*pflag.FlagSet, *commonFlags) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	c := &commonFlags{}
	fs.StringVar(&c.config, "config", "", "config file (default ./h5compound.yaml or $HOME/.h5compound/h5compound.yaml)")
	fs.String("log-level", "info", "log level: debug, info, warn, error or disabled")
	fs.String("log-format", "console", "log format: console or json")
	fs.Duration("lock-timeout", 0, "how long to wait for another operation to finish")
	return fs, c
}

// parse parses args and loads the configuration the flags feed into.
func parse(fs *pflag.FlagSet, c *commonFlags, args []string) (*config.Config, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		return nil, &dispatch.ParamError{Msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return nil, &dispatch.ParamError{Msg: fmt.Sprintf("unexpected argument %q", fs.Arg(0))}
	}
	cfg, err := config.Load(c.config, fs)
	if err != nil {
		return nil, &dispatch.ParamError{Msg: err.Error()}
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}
