// Package tree defines the base tree contract: a log-backed key/value index
// in which every write appends one entry to an append-only log.
//
// The package focuses on:
//   - A unified interface (ITree) for reading and appending path-addressed entries
//   - Version pinning through read-only checkouts
//   - Raw log access by sequence number for metadata that must be enumerable
//     without the path index
//
// Key Components:
//
//   - ITree Interface: Get, Put, Delete and List operate on normalized paths.
//     Path, Head and Entry expose the log positions behind the index so
//     callers can cache decoded metadata keyed by sequence number.
//
//   - Backend Interface: creates and opens feeds. A Backend instance is owned by
//     its caller; there is no process wide registry of feeds.
//
//   - Path helpers: Clean, Join, Under, IsBelow, Prefixes and Child implement the
//     path arithmetic shared by all engines.
//
// Note on Versions:
//   - The version of a tree equals the length of its log. Entries are numbered
//     from 0 to Version()-1.
//   - Checkout(v) returns a view that only observes entries with a sequence
//     number below v. Writes to a view fail with ErrReadOnly.
//
// Implementations:
//
//   - memlog (github.com/ValentinKolb/mtree/lib/tree/engines/memlog): in-memory
//     log with binary snapshots.
//   - sqlog (github.com/ValentinKolb/mtree/lib/tree/engines/sqlog): SQLite backed
//     log, one database file per feed.
//
// The testing package (github.com/ValentinKolb/mtree/lib/tree/testing) provides the
// conformance suite every implementation runs.
package tree
