package mtree

import (
	"context"
	"fmt"
	"sync"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/puzpuzpuz/xsync/v3"
)

// inflation is a target tree that is created (and readied) at most once
type inflation struct {
	once sync.Once
	tree IMultiTree
	err  error
}

// linkCache maps log positions to decoded link records and (key, version) pairs to
// inflated target trees. Entries are never evicted: a log position always refers to
// the same record, and the number of link writes is small compared to data writes.
type linkCache struct {
	records *xsync.MapOf[uint64, codec.LinkRecord]
	trees   *xsync.MapOf[string, *inflation]
}

func newLinkCache() *linkCache {
	return &linkCache{
		records: xsync.NewMapOf[uint64, codec.LinkRecord](),
		trees:   xsync.NewMapOf[string, *inflation](),
	}
}

// lookup returns the link record written at seq, if it was seen before.
func (c *linkCache) lookup(seq uint64) (codec.LinkRecord, bool) {
	return c.records.Load(seq)
}

// store caches the link record written at seq.
func (c *linkCache) store(seq uint64, link codec.LinkRecord) {
	c.records.Store(seq, link)
}

func inflationKey(key string, version uint64) string {
	return fmt.Sprintf("%s@%d", key, version)
}

// inflate returns the ready target tree of a link record. Concurrent callers for the
// same target share one factory call. Failed inflations are forgotten so they can be retried.
func (c *linkCache) inflate(ctx context.Context, factory Factory, link codec.LinkRecord, s *stats) (IMultiTree, error) {
	if factory == nil {
		return nil, NewError(RetCInternalError, fmt.Sprintf("no factory to inflate %s", link.Key))
	}

	id := inflationKey(link.Key, link.Version)
	inf, _ := c.trees.LoadOrStore(id, &inflation{})
	inf.once.Do(func() {
		s.inflation()
		log.Debugf("inflating %s for %s", id, link.Name)
		t, err := factory(ctx, link.Key, link.Version)
		if err == nil {
			err = t.Ready(ctx)
		}
		inf.tree, inf.err = t, err
	})

	if inf.err != nil {
		c.trees.Compute(id, func(old *inflation, loaded bool) (*inflation, bool) {
			// only remove the failed inflation, not a newer one
			return old, !loaded || old == inf
		})
		return nil, fmt.Errorf("inflate %s: %w", id, inf.err)
	}
	return inf.tree, nil
}
