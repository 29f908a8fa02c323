// Package superblock reads and updates the superblock, the fixed entry point
// of a container file.
//
// Versions 0 through 3 are readable. Version 0/1 files locate the root group
// through a symbol table entry whose scratch pad carries the root B-tree and
// local heap addresses; version 2/3 files point directly at the root object
// header and protect the block with a lookup3 checksum.
//
// New files are written with a version 2 superblock. Appending to an existing
// file only ever moves the end-of-file address, which [Superblock.UpdateEOF]
// rewrites in place for every version.
package superblock
