// Package object reads, writes and edits object headers.
//
// An object header is a list of messages spread over one or more chunks:
// the header prefix chunk plus any continuation blocks. [Read] follows
// continuations and records where every message body lives, so later edits
// can happen in place:
//
//   - [Header.Patch] overwrites part of a message body without changing its
//     size, then recomputes the chunk checksum (version 2 headers).
//   - [Header.Insert] adds a message to a version 2 header by claiming a
//     NIL message, spilling into a new continuation block when no NIL slot
//     is large enough.
//
// Neither operation ever moves a header, so the header address, which is
// also what an object reference stores, stays valid.
package object
