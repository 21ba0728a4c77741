package mtree

import (
	"fmt"

	"github.com/ValentinKolb/mtree/lib/codec"
)

// MissPolicy decides what Get reports when no tree in the namespace holds a path.
type MissPolicy string

const (
	// MissNotFound surfaces ErrNotFound (default).
	MissNotFound MissPolicy = "notfound"
	// MissEmpty returns a GetResult with Found == false and no error.
	MissEmpty MissPolicy = "empty"
)

// ParseMissPolicy validates a policy name ("" selects the default).
func ParseMissPolicy(s string) (MissPolicy, error) {
	switch MissPolicy(s) {
	case "", MissNotFound:
		return MissNotFound, nil
	case MissEmpty:
		return MissEmpty, nil
	default:
		return "", fmt.Errorf("invalid miss policy %q (notfound|empty)", s)
	}
}

// Options configure a multitree.
type Options struct {
	// Parents are declared on first initialization. They may only be declared while
	// the base tree has no entries beyond Offset.
	Parents []Target

	// Offset is the log length the base tree is allowed to have when parents are declared.
	Offset uint64

	// Factory inflates link and parent targets. Without a factory, resolving a link fails.
	Factory Factory

	// Codec encodes the nodes written to the base tree (default: binary).
	Codec codec.ICodec

	// MissPolicy for Get (default: MissNotFound).
	MissPolicy MissPolicy

	// ReadOnly rejects all writes with ErrReadOnlyTarget.
	ReadOnly bool
}

// withDefaults returns a copy of the options with all unset fields filled in
func (o *Options) withDefaults() Options {
	var opts Options
	if o != nil {
		opts = *o
		opts.Parents = append([]Target(nil), o.Parents...)
	}
	if opts.Codec == nil {
		opts.Codec = codec.NewBinaryCodec()
	}
	if opts.MissPolicy == "" {
		opts.MissPolicy = MissNotFound
	}
	return opts
}
