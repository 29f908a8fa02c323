// Package alloc hands out file space for new structures.
//
// Space is only ever appended: an [Allocator] starts at the end of the
// existing file and every allocation advances that end. Nothing written by
// an earlier call is moved or reused, which is what keeps object header
// addresses (and therefore object references) stable across appends.
package alloc
