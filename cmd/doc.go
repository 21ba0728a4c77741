// Package cmd implements the command-line interface of mtree. Every command
// opens the configured storage backend, performs one operation on a tree and
// closes the backend again.
//
// The package is organized into several subpackages:
//
//   - tree: Commands for tree operations (create, put, get, del, list, link, unlink, info, stats)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// All flags can also be set through environment variables with the MTREE_ prefix
// (e.g. MTREE_DATA_DIR), which are also read from .env and .env.local.
//
// See mtree -help for a list of all commands.
package cmd
