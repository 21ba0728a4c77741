package tree

import (
	"context"
	"errors"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrNotFound is returned when a name (or feed) has no live entry.
	ErrNotFound = errors.New("tree: not found")
	// ErrReadOnly is returned by write operations on a checkout.
	ErrReadOnly = errors.New("tree: read-only checkout")
	// ErrInvalidVersion is returned when a checkout is requested beyond the log length.
	ErrInvalidVersion = errors.New("tree: version out of range")
	// ErrClosed is returned by operations on a closed tree.
	ErrClosed = errors.New("tree: closed")
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Entry is a single record of the append-only log.
type Entry struct {
	Seq     uint64 // position in the log (0 based)
	Name    string // normalized path the entry was written at
	Value   []byte // raw value (nil for tombstones)
	Deleted bool   // whether the entry is a tombstone
}

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// ITree is a log-backed key/value index. Every write appends exactly one
// entry to the log, so the log length doubles as the version of the tree.
// Reads always observe the latest entry for a name that lies below the
// version of the tree (checkouts fix this version).
type ITree interface {
	// Ready initializes the tree. It is safe to call Ready multiple times.
	Ready(ctx context.Context) (err error)

	// Key returns the stable identity of the underlying feed.
	Key() (key string)

	// Version returns the current log length.
	Version() (version uint64)

	// Get returns the latest live value stored exactly at name.
	// ErrNotFound is returned if there is none.
	Get(ctx context.Context, name string) (value []byte, err error)

	// Put appends a value for name and returns the sequence number of the new entry.
	Put(ctx context.Context, name string, value []byte) (seq uint64, err error)

	// Delete appends a tombstone for name and returns its sequence number.
	// ErrNotFound is returned if name has no live entry.
	Delete(ctx context.Context, name string) (seq uint64, err error)

	// List returns the sorted names of the direct children of name that have a live
	// entry at or below them. ErrNotFound is returned if nothing lives below name.
	List(ctx context.Context, name string) (children []string, err error)

	// Path returns the sequence numbers of the live entries located exactly at each
	// prefix of name, root-most first and most specific last.
	// ErrNotFound is returned if none of the prefixes has a live entry.
	Path(ctx context.Context, name string) (seqs []uint64, err error)

	// Head returns the sequence number of the latest entry (tombstones included)
	// at or below prefix. ErrNotFound is returned if nothing was ever written there.
	Head(ctx context.Context, prefix string) (seq uint64, err error)

	// Entry reads a raw log entry without going through the path index.
	Entry(ctx context.Context, seq uint64) (entry Entry, err error)

	// Checkout returns a read-only view of the tree pinned to the given log length.
	Checkout(version uint64) (view ITree, err error)

	// Close releases the resources held by the tree. Closing a checkout is a no-op.
	Close() (err error)
}

// Backend creates and opens feeds of a single storage engine.
type Backend interface {
	// Create mints a new, empty feed with a random key.
	Create(ctx context.Context) (t ITree, err error)

	// Open returns the feed for key. ErrNotFound is returned for unknown keys.
	Open(ctx context.Context, key string) (t ITree, err error)
}
