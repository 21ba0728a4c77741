package mtree

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/tree"
)

// --------------------------------------------------------------------------
// Interface Methods (docu see mtree.IMultiTree)
// --------------------------------------------------------------------------

func (m *MultiTree) Get(ctx context.Context, name string) (GetResult, error) {
	countOp("get")
	name = tree.Clean(name)
	if err := m.ready(ctx); err != nil {
		return GetResult{}, err
	}

	owner, err := m.resolve(ctx, name, false)
	if err != nil {
		return GetResult{}, err
	}
	if owner != nil {
		return owner.tree.Get(ctx, owner.path)
	}

	res, err := m.getLocal(ctx, name)
	if err == nil {
		return res, nil
	} else if !errors.Is(err, tree.ErrNotFound) {
		return GetResult{}, err
	}
	return m.getParents(ctx, name)
}

func (m *MultiTree) Put(ctx context.Context, name string, value []byte) error {
	countOp("put")
	name = tree.Clean(name)
	if err := m.writable(name); err != nil {
		return err
	}
	if err := m.ready(ctx); err != nil {
		return err
	}

	owner, err := m.resolveWrite(ctx, name)
	if err != nil {
		return err
	}
	if owner != nil {
		return owner.tree.Put(ctx, owner.path, value)
	}

	b, err := m.opts.Codec.Encode(codec.DataNode(value))
	if err != nil {
		return err
	}
	_, err = m.base.Put(ctx, entryName(name), b)
	return err
}

func (m *MultiTree) Delete(ctx context.Context, name string) error {
	countOp("delete")
	return m.delete(ctx, name)
}

func (m *MultiTree) Unlink(ctx context.Context, name string) error {
	countOp("unlink")
	return m.delete(ctx, name)
}

func (m *MultiTree) List(ctx context.Context, name string) ([]string, error) {
	countOp("list")
	name = tree.Clean(name)
	if err := m.ready(ctx); err != nil {
		return nil, err
	}

	// listing a mount point lists the root of its target
	owner, err := m.resolve(ctx, name, true)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		return owner.tree.List(ctx, owner.path)
	}

	found := false
	children := make(map[string]struct{})

	local, err := m.base.List(ctx, entryName(name))
	if err == nil {
		found = true
		for _, c := range local {
			children[c] = struct{}{}
		}
	} else if !errors.Is(err, tree.ErrNotFound) {
		return nil, err
	}

	parents, err := m.resolveParents(ctx)
	if err != nil {
		return nil, err
	}
	lists := make([][]string, len(parents))
	errs := make([]error, len(parents))
	fanOut(parents, func(i int, p resolved) {
		lists[i], errs[i] = p.tree.List(ctx, p.at(name))
	})
	for i := range parents {
		if errs[i] != nil {
			if isNotFound(errs[i]) {
				continue
			}
			return nil, errs[i]
		}
		found = true
		for _, c := range lists[i] {
			children[c] = struct{}{}
		}
	}

	if !found || len(children) == 0 {
		return nil, notFound(name)
	}
	res := make([]string, 0, len(children))
	for c := range children {
		res = append(res, c)
	}
	slices.Sort(res)
	return res, nil
}

func (m *MultiTree) Link(ctx context.Context, name string, target Target) error {
	countOp("link")
	name = tree.Clean(name)
	if err := m.writable(name); err != nil {
		return err
	}
	if target.Key == "" {
		return NewError(RetCInvalidOperation, "link target has no key")
	}
	if target.Path != "" {
		target.Path = tree.Clean(target.Path)
	}
	if err := m.ready(ctx); err != nil {
		return err
	}

	owner, err := m.resolveWrite(ctx, name)
	if err != nil {
		return err
	}
	if owner != nil {
		return owner.tree.Link(ctx, owner.path, target)
	}

	pos, err := m.writeLink(ctx, entryName(name), codec.LinkRecord{
		Key:     target.Key,
		Version: target.Version,
		Path:    target.Path,
		Name:    name,
	})
	if err != nil {
		return err
	}
	log.Debugf("linked %s of %s to %s@%d at position %d", name, m.base.Key(), target.Key, target.Version, pos)
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (m *MultiTree) delete(ctx context.Context, name string) error {
	name = tree.Clean(name)
	if err := m.writable(name); err != nil {
		return err
	}
	if err := m.ready(ctx); err != nil {
		return err
	}

	owner, err := m.resolveWrite(ctx, name)
	if err != nil {
		return err
	}
	if owner != nil {
		return owner.tree.Delete(ctx, owner.path)
	}

	_, err = m.base.Delete(ctx, entryName(name))
	if errors.Is(err, tree.ErrNotFound) {
		return notFound(name)
	}
	return err
}

// writable rejects writes to read-only multitrees and to the root
func (m *MultiTree) writable(name string) error {
	if m.opts.ReadOnly {
		return NewError(RetCReadOnlyTarget, fmt.Sprintf("cannot write %s to a read-only multitree", name))
	}
	if name == "/" {
		return NewError(RetCInvalidOperation, "cannot write the root")
	}
	return nil
}

// getLocal reads the node stored at name. tree.ErrNotFound is returned for a local miss.
func (m *MultiTree) getLocal(ctx context.Context, name string) (GetResult, error) {
	b, err := m.base.Get(ctx, entryName(name))
	if err != nil {
		return GetResult{}, err
	}
	node, err := m.opts.Codec.Decode(b)
	if err != nil {
		return GetResult{}, wrapError(RetCInternalError, fmt.Sprintf("decode %s", name), err)
	}
	if node.Type == codec.NodeTLink {
		// the stamped position may be stale, the cached record carries the real one
		if seqs, err := m.base.Path(ctx, entryName(name)); err == nil {
			if link, ok, err := m.linkAt(ctx, seqs[len(seqs)-1]); err == nil && ok && link.Name == name {
				return GetResult{Found: true, Link: &link}, nil
			}
		}
		return GetResult{Found: true, Link: node.Link}, nil
	}
	return GetResult{Found: true, Value: node.Value}, nil
}

// getParents queries all parents concurrently. One hit is returned as is, more hits
// are returned as conflicts in declaration order.
func (m *MultiTree) getParents(ctx context.Context, name string) (GetResult, error) {
	parents, err := m.resolveParents(ctx)
	if err != nil {
		return GetResult{}, err
	}

	results := make([]GetResult, len(parents))
	errs := make([]error, len(parents))
	fanOut(parents, func(i int, p resolved) {
		results[i], errs[i] = p.tree.Get(ctx, p.at(name))
	})

	var hits []int
	for i := range parents {
		if errs[i] != nil {
			if isNotFound(errs[i]) {
				continue
			}
			return GetResult{}, errs[i]
		}
		if results[i].Found {
			hits = append(hits, i)
		}
	}

	switch len(hits) {
	case 0:
		return m.miss(name)
	case 1:
		return results[hits[0]], nil
	}

	res := GetResult{Found: true}
	for _, i := range hits {
		r := results[i]
		if r.IsConflict() {
			// nested conflicts are attributed to the parent they came through
			for _, c := range r.Conflicts {
				res.Conflicts = append(res.Conflicts, Conflict{Parent: i, Key: c.Key, Value: c.Value, Link: c.Link})
			}
			continue
		}
		res.Conflicts = append(res.Conflicts, Conflict{Parent: i, Key: parents[i].tree.Key(), Value: r.Value, Link: r.Link})
	}
	return res, nil
}

func (m *MultiTree) miss(name string) (GetResult, error) {
	if m.opts.MissPolicy == MissEmpty {
		return GetResult{}, nil
	}
	return GetResult{}, notFound(name)
}

// fanOut runs fn for every parent concurrently and waits for all of them
func fanOut(parents []resolved, fn func(i int, p resolved)) {
	var wg sync.WaitGroup
	for i, p := range parents {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(i, p)
		}()
	}
	wg.Wait()
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, tree.ErrNotFound)
}
