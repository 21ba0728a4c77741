// Package memlog implements an in-memory append-only log tree satisfying the
// tree.ITree interface.
//
// Key Features:
//   - Log plus name index: every write appends an entry, the index maps each
//     name to the ascending list of sequence numbers written at it
//   - Cheap checkouts: a checkout shares the feed with the live tree and only
//     bounds the visible log length
//   - Binary snapshots: Save and Load persist the complete log
//
// Implementation Details:
//
//   - Lookups: The latest entry of a name below a given version is found by a
//     binary search over the name's sequence numbers, so reads against old
//     versions cost the same as reads against the head.
//
//   - Snapshot Format: magic number "MEMLOG\x00\x00", a format version byte, the
//     length prefixed feed key, the entry count and then every entry as
//     flags byte, length prefixed name and length prefixed value (little endian).
//
// Thread Safety:
//
//	All operations are safe for concurrent use. Appends take the write lock of
//	the feed, reads take the read lock.
//
// Usage Example:
//
//	backend := memlog.NewBackend()
//	t, _ := backend.Create(ctx)
//	_, _ = t.Put(ctx, "/hello", []byte("world"))
//	old, _ := t.Checkout(0) // empty view
package memlog
