// Package codec implements the encoding of the values a multi-tree writes to
// its base tree. Every value is wrapped in a Node envelope which tells plain
// data apart from link records written at the same log position.
//
// Two implementations of the ICodec interface are available:
//
//   - binary: a compact custom format (1 byte node type, presence flags and
//     big endian length prefixed fields). This is the default.
//   - cbor: core deterministic CBOR with integer map keys.
//
// Both encodings are deterministic. Trees that link to each other must be
// written with the same codec.
//
// DecodeLink never fails hard: any value that is not a well-formed link node
// yields ErrNotALink, so callers can fall back to treating it as data.
package codec
