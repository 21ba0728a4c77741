package mtree

import (
	"context"

	"github.com/ValentinKolb/mtree/lib/codec"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Target identifies a tree (and optionally a version and sub-path of it) that is
// mounted as a link or declared as a parent.
type Target struct {
	Key     string // key of the target tree
	Version uint64 // pinned version, 0 follows the latest version
	Path    string // sub-path inside the target ("" = root)
}

// Conflict is one of several parent values found for the same path.
type Conflict struct {
	Parent int               // index of the declaring parent
	Key    string            // key of the parent tree the value came from
	Value  []byte            // the value (nil if the parent holds a link at the path)
	Link   *codec.LinkRecord // the link record (if the parent holds a link at the path)
}

// GetResult is the outcome of a Get.
//   - Found is false only with MissEmpty, when no tree holds the path.
//   - Value is set when exactly one tree holds a plain value.
//   - Link is set when the path is the mount point of a link.
//   - Conflicts is set when two or more parents hold the path and no local value shadows them.
type GetResult struct {
	Found     bool
	Value     []byte
	Link      *codec.LinkRecord
	Conflicts []Conflict
}

// IsConflict reports whether the result is an unresolved multi-parent conflict.
func (r GetResult) IsConflict() bool {
	return len(r.Conflicts) > 0
}

// Factory returns the tree for key pinned to version (0 = live). The returned
// tree may not be ready yet; callers must call Ready before use. A conforming
// factory returns the same instance for repeated requests of the same key and version.
type Factory func(ctx context.Context, key string, version uint64) (IMultiTree, error)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IMultiTree composes a local tree with parent trees and linked subtrees into a
// single namespace. The interface mirrors the base tree so multitrees nest.
// All operations wait for Ready and fail with the error of a failed initialization.
type IMultiTree interface {
	// Ready initializes the multitree exactly once. Every call observes the same outcome.
	Ready(ctx context.Context) (err error)

	// Key returns the key of the local tree.
	Key() (key string)

	// Version returns the log length of the local tree.
	Version() (version uint64)

	// Get resolves name against links, the local tree and the parents (in that order).
	Get(ctx context.Context, name string) (result GetResult, err error)

	// Put writes value at name, locally or in the link target that owns name.
	Put(ctx context.Context, name string, value []byte) (err error)

	// Delete removes name, locally or in the link target that owns name.
	Delete(ctx context.Context, name string) (err error)

	// List returns the sorted union of the direct children of name in the
	// local tree and all parents, or the children in the owning link target.
	List(ctx context.Context, name string) (children []string, err error)

	// Link registers a link record at name that mounts target.
	Link(ctx context.Context, name string, target Target) (err error)

	// Unlink removes the link at name (identical to Delete).
	Unlink(ctx context.Context, name string) (err error)

	// Checkout returns a read-only multitree pinned to the given version of the local tree.
	Checkout(version uint64) (view IMultiTree, err error)
}
