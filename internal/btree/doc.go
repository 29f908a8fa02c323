// Package btree reads and writes version 1 B-trees ("TREE" nodes).
//
// Two node types are handled. Type 1 nodes index the chunks of a chunked
// dataset: each key holds the chunk's size, filter mask and coordinates,
// and each leaf child is the chunk's address. Type 0 nodes index the
// symbol table nodes ("SNOD") of an old-style group, whose entry names live
// in the group's local heap.
//
// Chunk indexes are kept in memory as a [ChunkIndex] ordered by chunk
// coordinates. [WriteChunkIndex] bulk-loads a complete tree from one; the
// tree is always rebuilt at fresh addresses rather than edited in place.
package btree
