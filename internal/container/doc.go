// Package container opens, creates and edits files in the HDF5 format.
//
// It is the object layer over the byte-level packages: a [File] resolves
// paths to [Group] and [Dataset] nodes, walks the hierarchy in name order,
// maps object addresses back to paths, and can add groups, datasets and rows
// to a file opened for writing.
//
// Writes never move an existing object header, so object addresses (and
// therefore object references stored in datasets) stay valid. Links go into
// free space inside the parent's header or into a new continuation block.
//
// Supported input: superblocks 0-3 without a user block, object headers
// version 1 and 2, compact (link message) and old-style (symbol table)
// groups for reading, compact groups for writing, and compact, contiguous
// and unfiltered B-tree chunked storage.
package container
