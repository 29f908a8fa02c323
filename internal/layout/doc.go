// Package layout moves raw element bytes between a dataset's storage and
// memory.
//
// Compact, contiguous and chunked storage can be read. Chunked datasets must
// be indexed by a version 1 B-tree and carry no filters. [Append] grows a
// one-dimensional chunked dataset.
package layout
