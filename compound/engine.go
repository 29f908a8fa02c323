package compound

import (
	"errors"

	"github.com/rs/zerolog"

	"github.com/robert-malhotra/h5compound/internal/container"
)

// Engine writes and reads record datasets. It keeps no per-file state, so a
// single Engine may serve any number of files, one call at a time per file.
type Engine struct {
	log zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New returns an engine.
func New(opts ...Option) *Engine {
	e := &Engine{log: zerolog.Nop()}
	for _, o := range opts {
		o(e)
	}
	return e
}

type callConfig struct {
	quiet bool
}

// CallOption adjusts a single call.
type CallOption func(*callConfig)

// Quiet limits logging of the call to warnings and errors.
func Quiet() CallOption {
	return func(c *callConfig) { c.quiet = true }
}

func (e *Engine) logger(op, file, dataset string, opts []CallOption) zerolog.Logger {
	var c callConfig
	for _, o := range opts {
		o(&c)
	}
	l := e.log.With().Str("op", op).Str("file", file).Str("dataset", dataset).Logger()
	if c.quiet && l.GetLevel() < zerolog.WarnLevel {
		l = l.Level(zerolog.WarnLevel)
	}
	return l
}

// WriteArrays writes three parallel arrays as records. Unequal lengths fail
// with a ShapeMismatchError before the file is opened.
func (e *Engine) WriteArrays(filePath, datasetPath string, offsets, sizes []int32, paths []string, opts ...CallOption) error {
	entries, err := ToEntries(offsets, sizes, paths)
	if err != nil {
		return err
	}
	return e.WriteBatch(filePath, datasetPath, entries, opts...)
}

// WriteBatch appends entries to the record dataset at datasetPath, creating
// it if it does not exist. The file must exist, as must the dataset's parent
// group.
//
// Every path is resolved, and an existing dataset is checked to be a chunked
// record dataset, before anything is written. A failure in those steps
// leaves the file unchanged.
func (e *Engine) WriteBatch(filePath, datasetPath string, entries []Entry, opts ...CallOption) (err error) {
	log := e.logger("write", filePath, datasetPath, opts)

	f, err := container.OpenReadWrite(filePath)
	if err != nil {
		return &IOError{Op: "open " + filePath, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &IOError{Op: "close " + filePath, Err: cerr}
		}
	}()

	res := NewResolver(f)
	records := make([]Record, len(entries))
	for i, en := range entries {
		ref, err := res.Construct(en.Path)
		if err != nil {
			return err
		}
		records[i] = Record{Offset: en.Offset, Size: en.Size, Ref: ref}
	}

	n, err := f.Lookup(datasetPath)
	if errors.Is(err, container.ErrNotFound) {
		dt := RecordDatatype()
		data, err := EncodeRecords(dt, records)
		if err != nil {
			return err
		}
		if _, err := f.CreateChunkedDataset(datasetPath, dt, data); err != nil {
			return &IOError{Op: "create " + datasetPath, Err: err}
		}
		log.Info().Int("records", len(records)).Msg("created record dataset")
		return nil
	}
	if err != nil {
		return &IOError{Op: "open " + datasetPath, Err: err}
	}

	ds, err := n.Dataset()
	if err != nil {
		return &IOError{Op: "open " + datasetPath, Err: err}
	}
	dt := ds.Datatype()
	if err := ValidateDatatype(dt); err != nil {
		return err
	}
	if err := ds.CheckAppendable(uint64(len(records))); err != nil {
		if errors.Is(err, container.ErrNotChunked) {
			return &IOError{Op: "append " + datasetPath, Err: ErrAppendNotChunked}
		}
		return &IOError{Op: "append " + datasetPath, Err: err}
	}
	data, err := EncodeRecords(dt, records)
	if err != nil {
		return err
	}
	before := ds.Shape()[0]
	if err := ds.AppendRows(data); err != nil {
		return &IOError{Op: "append " + datasetPath, Err: err}
	}
	log.Info().Uint64("from", before).Int("records", len(records)).Msg("appended records")
	return nil
}

// ReadArrays reads every record as three parallel arrays.
func (e *Engine) ReadArrays(filePath, datasetPath string, opts ...CallOption) (Batch, error) {
	entries, err := e.ReadAll(filePath, datasetPath, opts...)
	if err != nil {
		return Batch{}, err
	}
	return FromEntries(entries), nil
}

// ReadAll reads every record of the dataset at datasetPath and resolves
// each reference to a path. It returns all records or none.
func (e *Engine) ReadAll(filePath, datasetPath string, opts ...CallOption) (_ []Entry, err error) {
	log := e.logger("read", filePath, datasetPath, opts)

	f, err := container.Open(filePath)
	if err != nil {
		return nil, &IOError{Op: "open " + filePath, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &IOError{Op: "close " + filePath, Err: cerr}
		}
	}()

	n, err := f.Lookup(datasetPath)
	if errors.Is(err, container.ErrNotFound) {
		return nil, &IOError{Op: "read " + datasetPath, Err: ErrNotPresent}
	}
	if err != nil {
		return nil, &IOError{Op: "open " + datasetPath, Err: err}
	}
	ds, err := n.Dataset()
	if err != nil {
		return nil, &IOError{Op: "open " + datasetPath, Err: err}
	}
	dt := ds.Datatype()
	if err := ValidateDatatype(dt); err != nil {
		return nil, err
	}
	space := ds.Dataspace()
	if space == nil {
		return nil, &IOError{Op: "read " + datasetPath, Err: errors.New("dataset has no dataspace")}
	}

	raw, err := ds.ReadRaw()
	if err != nil {
		return nil, &IOError{Op: "read " + datasetPath, Err: err}
	}
	records, err := DecodeRecords(dt, raw, space.NumElements())
	if err != nil {
		return nil, &IOError{Op: "read " + datasetPath, Err: err}
	}

	res := NewResolver(f)
	entries := make([]Entry, len(records))
	for i, r := range records {
		path, err := res.Resolve(r.Ref)
		if err != nil {
			return nil, err
		}
		entries[i] = Entry{Offset: r.Offset, Size: r.Size, Path: path}
	}
	log.Info().Int("records", len(entries)).Msg("read record dataset")
	return entries, nil
}
