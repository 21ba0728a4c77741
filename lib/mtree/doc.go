// Package mtree implements the multi-tree resolution engine. A MultiTree wraps a
// base tree (see lib/tree) and composes it with parent trees and linked subtrees
// into one namespace.
//
// Layout of the base tree:
//
//	/entries/<path>   user values (DATA nodes) and link records (LINK nodes)
//	/parents/<index>  parent declarations (LINK nodes), written once on creation
//
// Resolution order for reads:
//
//  1. If a link record is registered at a strict prefix of the path, the request
//     is delegated to the link target (the outermost link wins).
//  2. Otherwise a local value is returned.
//  3. Otherwise all parents are queried concurrently. One hit is returned as is,
//     two or more hits are returned as GetResult.Conflicts in declaration order.
//
// Writes follow the same link resolution but never touch parents. Writes beneath a
// link pinned to a version fail with ErrReadOnlyTarget.
//
// Link and parent targets are inflated through a Factory (see lib/registry) and
// cached per (key, version). Decoded link records are cached by log position.
package mtree
