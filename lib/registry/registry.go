package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/mtree"
	"github.com/ValentinKolb/mtree/lib/tree"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("registry")

// Options configure the multitrees created by a registry
type Options struct {
	Codec      codec.ICodec
	MissPolicy mtree.MissPolicy
	Offset     uint64
}

// entry is a multitree that is opened at most once
type entry struct {
	once sync.Once
	tree *mtree.MultiTree
	base tree.ITree
	err  error
}

// Registry owns the multitrees of one backend. It opens one live multitree per key and
// one read-only multitree per (key, version), and serves as their shared mtree.Factory.
//
// Usage:
//
//	reg := registry.New(memlog.NewBackend(), nil)
//	defer reg.Close()
//
//	m, err := reg.Create(ctx)
//	...
//	other, err := reg.Open(ctx, m.Key(), 0)
type Registry struct {
	backend tree.Backend
	opts    Options
	live    *xsync.MapOf[string, *entry]
	pinned  *xsync.MapOf[string, *entry]
}

// New creates a registry over backend.
func New(backend tree.Backend, opts *Options) *Registry {
	r := &Registry{
		backend: backend,
		live:    xsync.NewMapOf[string, *entry](),
		pinned:  xsync.NewMapOf[string, *entry](),
	}
	if opts != nil {
		r.opts = *opts
	}
	return r
}

// Factory returns the registry as mtree.Factory.
func (r *Registry) Factory() mtree.Factory {
	return r.Open
}

func (r *Registry) options(parents []mtree.Target) *mtree.Options {
	return &mtree.Options{
		Parents:    parents,
		Offset:     r.opts.Offset,
		Factory:    r.Open,
		Codec:      r.opts.Codec,
		MissPolicy: r.opts.MissPolicy,
	}
}

// Create mints a new feed and returns its ready multitree with the given parents declared.
func (r *Registry) Create(ctx context.Context, parents ...mtree.Target) (*mtree.MultiTree, error) {
	base, err := r.backend.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create feed: %w", err)
	}

	m := mtree.New(base, r.options(parents))
	if err := m.Ready(ctx); err != nil {
		return nil, err
	}

	e := &entry{tree: m, base: base}
	e.once.Do(func() {})
	if _, loaded := r.live.LoadOrStore(base.Key(), e); loaded {
		return nil, fmt.Errorf("feed %s already registered", base.Key())
	}
	log.Infof("created multitree %s with %d parents", base.Key(), len(parents))
	return m, nil
}

// Open returns the ready multitree for key pinned to version (0 = live). Concurrent
// callers for the same key and version share one instance.
func (r *Registry) Open(ctx context.Context, key string, version uint64) (mtree.IMultiTree, error) {
	if version == 0 {
		m, err := r.openLive(ctx, key)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	e, _ := r.pinned.LoadOrStore(fmt.Sprintf("%s@%d", key, version), &entry{})
	e.once.Do(func() {
		var live *mtree.MultiTree
		live, e.err = r.openLive(ctx, key)
		if e.err != nil {
			return
		}
		var view mtree.IMultiTree
		if view, e.err = live.Checkout(version); e.err == nil {
			e.tree = view.(*mtree.MultiTree)
			e.err = e.tree.Ready(ctx)
		}
	})
	if e.err != nil {
		forget(r.pinned, fmt.Sprintf("%s@%d", key, version), e)
		return nil, e.err
	}
	return e.tree, nil
}

func (r *Registry) openLive(ctx context.Context, key string) (*mtree.MultiTree, error) {
	e, _ := r.live.LoadOrStore(key, &entry{})
	e.once.Do(func() {
		e.base, e.err = r.backend.Open(ctx, key)
		if e.err != nil {
			return
		}
		e.tree = mtree.New(e.base, r.options(nil))
		e.err = e.tree.Ready(ctx)
		if e.err == nil {
			log.Debugf("opened multitree %s", key)
		}
	})
	if e.err != nil {
		forget(r.live, key, e)
		return nil, e.err
	}
	return e.tree, nil
}

// forget removes a failed entry so the next caller retries (a newer entry is kept)
func forget(m *xsync.MapOf[string, *entry], key string, e *entry) {
	m.Compute(key, func(old *entry, loaded bool) (*entry, bool) {
		return old, !loaded || old == e
	})
}

// Close drops all multitrees and closes their feeds. A backend that implements
// io.Closer is closed instead of the individual feeds.
func (r *Registry) Close() error {
	var errs []error
	if c, ok := r.backend.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	} else {
		r.live.Range(func(key string, e *entry) bool {
			if e.base != nil {
				if err := e.base.Close(); err != nil {
					errs = append(errs, fmt.Errorf("close %s: %w", key, err))
				}
			}
			return true
		})
	}
	r.live.Clear()
	r.pinned.Clear()
	return errors.Join(errs...)
}
