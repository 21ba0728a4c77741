// Package sqlog implements a persistent append-only log tree on top of SQLite
// (modernc.org/sqlite, no cgo). Each feed lives in its own database file named
// after the feed key.
//
// The log table stores one row per entry (seq, name, value, deleted). Every
// query is bounded by the version of the view (seq < version), which makes
// checkouts plain SQL predicates instead of copies.
//
// Appends are serialized by a mutex per feed: the next sequence number is read
// from the cached log length and written in the same critical section.
package sqlog
