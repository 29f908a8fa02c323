// Package message parses and serializes the object header messages the
// compound engine touches.
//
// Parsed: dataspace, datatype (every class, so unexpected member types are
// still consumed correctly), fill value, link, link info, group info, data
// layout (versions 1-4), filter pipeline, symbol table and continuation.
// Everything else is kept as [Unknown].
//
// Serialized: dataspace v2, fixed-point / reference / compound datatypes,
// fill value v3, link, link info, group info, data layout v3 (contiguous and
// chunked) and continuation.
package message
