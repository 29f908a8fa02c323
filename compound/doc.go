// Package compound reads and appends compound index records in HDF5 files.
//
// A record locates one time-series segment: a start index, an element count
// and an object reference to the dataset holding the segment. Records are
// stored in a one-dimensional dataset whose compound type is
//
//	idx_start   int32 LE   offset 0
//	count       int32 LE   offset 4
//	timeseries  object ref offset 8
//
// chunked one record per chunk with an unlimited maximum extent, so every
// write either creates the dataset or appends to it.
//
// The Engine is stateless between calls. Each call opens the file, works on
// it and closes it again. Calls touching the same file must be serialized by
// the caller.
package compound
