// Package heap reads local heaps ("HEAP"), which hold the member names of
// old-style groups as NUL-terminated strings.
package heap
