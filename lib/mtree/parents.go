package mtree

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/tree"
)

// resolved pairs a target tree with the link record it was inflated for. For links
// path is the requested path translated into the target.
type resolved struct {
	link codec.LinkRecord
	tree IMultiTree
	path string
}

// parentCache holds the inflated parents, keyed by the head of the /parents namespace
type parentCache struct {
	mu      sync.Mutex
	valid   bool
	head    uint64
	parents []resolved
}

// resolveParents returns the parents in declaration order, each paired with its
// declared sub-path. The list is only rebuilt when /parents changed.
func (m *MultiTree) resolveParents(ctx context.Context) ([]resolved, error) {
	head, err := m.base.Head(ctx, parentsRoot)
	if errors.Is(err, tree.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}

	c := &m.parents
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.head == head {
		return c.parents, nil
	}

	m.stats.parentRebuild()
	names, err := m.base.List(ctx, parentsRoot)
	if errors.Is(err, tree.ErrNotFound) {
		names = nil
	} else if err != nil {
		return nil, err
	}
	slices.SortFunc(names, func(a, b string) int {
		ia, _ := strconv.Atoi(a)
		ib, _ := strconv.Atoi(b)
		return ia - ib
	})

	parents := make([]resolved, 0, len(names))
	for _, name := range names {
		p, err := m.resolveParent(ctx, tree.Join(parentsRoot, name))
		if err != nil {
			return nil, err
		}
		parents = append(parents, p)
	}

	log.Debugf("resolved %d parents of %s at head %d", len(parents), m.base.Key(), head)
	c.valid, c.head, c.parents = true, head, parents
	return parents, nil
}

// resolveParent reads a parent declaration straight from its log entry and inflates it
func (m *MultiTree) resolveParent(ctx context.Context, name string) (resolved, error) {
	seqs, err := m.base.Path(ctx, name)
	if err != nil {
		return resolved{}, fmt.Errorf("parent %s: %w", name, err)
	}
	link, ok, err := m.linkAt(ctx, seqs[len(seqs)-1])
	if err != nil {
		return resolved{}, fmt.Errorf("parent %s: %w", name, err)
	}
	if !ok {
		return resolved{}, NewError(RetCInternalError, fmt.Sprintf("parent %s is not a link record", name))
	}

	t, err := m.links.inflate(ctx, m.opts.Factory, link, &m.stats)
	if err != nil {
		return resolved{}, err
	}
	return resolved{link: link, tree: t}, nil
}

// at returns the path inside the target that corresponds to name
func (r resolved) at(name string) string {
	return tree.Join(r.link.Path, name)
}
