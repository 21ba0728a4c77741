// Package registry provides a caller-owned mtree.Factory. A Registry wraps a
// tree.Backend and hands out one live multitree per feed key and one read-only
// checkout per (key, version), so links and parents that reach the same feed
// share a single instance.
package registry
