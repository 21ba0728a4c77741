package mtree

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/mtree/lib/codec"
	"github.com/ValentinKolb/mtree/lib/tree"
	"github.com/ValentinKolb/mtree/lib/tree/engines/memlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test Environment
// --------------------------------------------------------------------------

// testEnv is a minimal factory over an in-memory backend (one multitree per key@version)
type testEnv struct {
	t       testing.TB
	backend *memlog.Backend
	codec   codec.ICodec
	policy  MissPolicy

	mu    sync.Mutex
	trees map[string]IMultiTree
}

func newEnv(t testing.TB) *testEnv {
	return &testEnv{
		t:       t,
		backend: memlog.NewBackend(),
		codec:   codec.NewBinaryCodec(),
		policy:  MissNotFound,
		trees:   make(map[string]IMultiTree),
	}
}

func (e *testEnv) options() *Options {
	return &Options{Factory: e.factory, Codec: e.codec, MissPolicy: e.policy}
}

func (e *testEnv) factory(ctx context.Context, key string, version uint64) (IMultiTree, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := inflationKey(key, version)
	if t, ok := e.trees[id]; ok {
		return t, nil
	}

	var t IMultiTree
	if live, ok := e.trees[inflationKey(key, 0)]; ok {
		t = live
	} else {
		base, err := e.backend.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		t = New(base, e.options())
		e.trees[inflationKey(key, 0)] = t
	}
	if version != 0 {
		view, err := t.Checkout(version)
		if err != nil {
			return nil, err
		}
		t = view
		e.trees[id] = t
	}
	return t, nil
}

// create mints a new ready multitree with the given parents
func (e *testEnv) create(parents ...Target) *MultiTree {
	ctx := context.Background()
	base, err := e.backend.Create(ctx)
	require.NoError(e.t, err)

	opts := e.options()
	opts.Parents = parents
	m := New(base, opts)
	require.NoError(e.t, m.Ready(ctx))

	e.mu.Lock()
	e.trees[inflationKey(m.Key(), 0)] = m
	e.mu.Unlock()
	return m
}

func put(t *testing.T, m IMultiTree, name, value string) {
	t.Helper()
	require.NoError(t, m.Put(context.Background(), name, []byte(value)))
}

func get(t *testing.T, m IMultiTree, name string) string {
	t.Helper()
	res, err := m.Get(context.Background(), name)
	require.NoError(t, err)
	require.True(t, res.Found)
	require.False(t, res.IsConflict())
	return string(res.Value)
}

func link(t *testing.T, m IMultiTree, name string, target Target) {
	t.Helper()
	require.NoError(t, m.Link(context.Background(), name, target))
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

func TestPutGetDelete(t *testing.T) {
	ctx := context.Background()
	m := newEnv(t).create()

	put(t, m, "/hey", "there")
	assert.Equal(t, "there", get(t, m, "/hey"))

	require.NoError(t, m.Delete(ctx, "/hey"))
	_, err := m.Get(ctx, "/hey")
	assert.ErrorIs(t, err, ErrNotFound)

	err = m.Delete(ctx, "/hey")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	m := newEnv(t).create()

	put(t, m, "/a/1", "x")
	put(t, m, "/a/2", "y")
	put(t, m, "/a/3", "z")

	children, err := m.List(ctx, "/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, children)

	_, err = m.List(ctx, "/nothing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLinkAndOverwrite(t *testing.T) {
	for name, newCodec := range map[string]func() codec.ICodec{
		"Binary": codec.NewBinaryCodec,
		"CBOR": func() codec.ICodec {
			c, err := codec.NewCBORCodec()
			require.NoError(t, err)
			return c
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			env := newEnv(t)
			env.codec = newCodec()

			e1 := env.create()
			put(t, e1, "/a", "hello")
			put(t, e1, "/b", "goodbye")

			e2 := env.create()
			link(t, e2, "mt1", Target{Key: e1.Key()})
			put(t, e2, "/a", "new hello")

			assert.Equal(t, "new hello", get(t, e2, "/a"))
			assert.Equal(t, "goodbye", get(t, e2, "/mt1/b"))
			assert.Equal(t, "hello", get(t, e2, "/mt1/a"))

			// a plain value at the mount point retires the link
			put(t, e2, "mt1", "overwrite")
			_, err := e2.Get(ctx, "/mt1/a")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, "overwrite", get(t, e2, "mt1"))

			// the target is untouched
			assert.Equal(t, "hello", get(t, e1, "/a"))
		})
	}
}

func TestParents(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)

	e1 := env.create()
	put(t, e1, "/a", "hello")
	put(t, e1, "/b", "bye")

	e2 := env.create(Target{Key: e1.Key()})
	put(t, e2, "/c", "cat")

	children, err := e2.List(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, children)

	assert.Equal(t, "hello", get(t, e2, "/a"))

	// local values shadow the parents
	put(t, e2, "/a", "cat")
	assert.Equal(t, "cat", get(t, e2, "/a"))
	assert.Equal(t, "hello", get(t, e1, "/a"))

	// parents are not touched by writes
	require.NoError(t, e2.Delete(ctx, "/a"))
	assert.Equal(t, "hello", get(t, e2, "/a"))
	err = e2.Delete(ctx, "/b")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --------------------------------------------------------------------------
// Links
// --------------------------------------------------------------------------

func TestLinkShadowsLocalSubtree(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	e1 := env.create()
	put(t, e1, "/a", "hello")

	e2 := env.create()
	put(t, e2, "/mt1/local", "hidden")
	link(t, e2, "/mt1", Target{Key: e1.Key()})

	_, err := e2.Get(ctx, "/mt1/local")
	assert.ErrorIs(t, err, ErrNotFound)

	children, err := e2.List(ctx, "/mt1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, children)

	// writes beneath the link go to the target
	put(t, e2, "/mt1/new", "value")
	assert.Equal(t, "value", get(t, e1, "/new"))
	require.NoError(t, e2.Delete(ctx, "/mt1/new"))
	_, err = e1.Get(ctx, "/new")
	assert.ErrorIs(t, err, ErrNotFound)

	// the mount point itself shows up in the local listing
	children, err = e2.List(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"mt1"}, children)

	// unlinking makes the local subtree reachable again
	require.NoError(t, e2.Unlink(ctx, "/mt1"))
	assert.Equal(t, "hidden", get(t, e2, "/mt1/local"))
}

func TestGetReturnsLinkRecord(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	e1 := env.create()
	e2 := env.create()

	link(t, e2, "/mt1", Target{Key: e1.Key(), Path: "sub"})

	res, err := e2.Get(ctx, "/mt1")
	require.NoError(t, err)
	require.True(t, res.Found)
	require.NotNil(t, res.Link)
	assert.Equal(t, e1.Key(), res.Link.Key)
	assert.Equal(t, "/mt1", res.Link.Name)
	assert.Equal(t, "/sub", res.Link.Path)
	assert.Equal(t, e2.Version(), res.Link.Position)
	assert.False(t, res.Link.Pinned())
}

func TestLinkSubPath(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	e1 := env.create()
	put(t, e1, "/dir/x", "1")
	put(t, e1, "/dir/y", "2")
	put(t, e1, "/other", "3")

	e2 := env.create()
	link(t, e2, "/sub", Target{Key: e1.Key(), Path: "/dir"})

	assert.Equal(t, "1", get(t, e2, "/sub/x"))
	children, err := e2.List(ctx, "/sub")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, children)

	_, err = e2.Get(ctx, "/sub/other")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPinnedLink(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	e1 := env.create()
	put(t, e1, "/a", "v1")
	pinned := e1.Version()
	put(t, e1, "/a", "v2")
	put(t, e1, "/b", "later")

	e2 := env.create()
	link(t, e2, "/pin", Target{Key: e1.Key(), Version: pinned})
	link(t, e2, "/live", Target{Key: e1.Key()})

	assert.Equal(t, "v1", get(t, e2, "/pin/a"))
	assert.Equal(t, "v2", get(t, e2, "/live/a"))
	_, err := e2.Get(ctx, "/pin/b")
	assert.ErrorIs(t, err, ErrNotFound)

	// writes after pinning are not visible through the pinned link
	put(t, e1, "/a", "v3")
	assert.Equal(t, "v1", get(t, e2, "/pin/a"))

	err = e2.Put(ctx, "/pin/a", []byte("nope"))
	assert.ErrorIs(t, err, ErrReadOnlyTarget)
	err = e2.Delete(ctx, "/pin/a")
	assert.ErrorIs(t, err, ErrReadOnlyTarget)
	err = e2.Link(ctx, "/pin/nested", Target{Key: e1.Key()})
	assert.ErrorIs(t, err, ErrReadOnlyTarget)

	// the pinned link itself can still be removed
	require.NoError(t, e2.Unlink(ctx, "/pin"))
}

func TestLinkBeneathLinkIsDelegated(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	e1 := env.create()
	e3 := env.create()
	put(t, e3, "/k", "deep")

	e2 := env.create()
	link(t, e2, "/mt1", Target{Key: e1.Key()})
	link(t, e2, "/mt1/mt3", Target{Key: e3.Key()})

	// the record was written into the target of /mt1
	res, err := e1.Get(ctx, "/mt3")
	require.NoError(t, err)
	require.NotNil(t, res.Link)
	assert.Equal(t, e3.Key(), res.Link.Key)

	assert.Equal(t, "deep", get(t, e2, "/mt1/mt3/k"))
	assert.Equal(t, "deep", get(t, e1, "/mt3/k"))
}

func TestOuterLinkOwnsWrites(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	e1 := env.create()
	e3 := env.create()
	put(t, e1, "/y/z", "outer")

	e2 := env.create()
	link(t, e2, "/x/y", Target{Key: e3.Key()})
	link(t, e2, "/x", Target{Key: e1.Key()})

	// reads and writes both follow the outermost link
	assert.Equal(t, "outer", get(t, e2, "/x/y/z"))
	put(t, e2, "/x/y/z", "written")
	assert.Equal(t, "written", get(t, e1, "/y/z"))
	assert.Equal(t, "written", get(t, e2, "/x/y/z"))

	// the shadowed target was not touched
	_, err := e3.Get(ctx, "/z")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, e2.Delete(ctx, "/x/y/z"))
	_, err = e1.Get(ctx, "/y/z")
	assert.ErrorIs(t, err, ErrNotFound)

	// a link written beneath the outer link lands in its target
	e4 := env.create()
	put(t, e4, "/v", "four")
	link(t, e2, "/x/w", Target{Key: e4.Key()})
	assert.Equal(t, "four", get(t, e1, "/w/v"))
}

func TestDanglingLink(t *testing.T) {
	ctx := context.Background()
	m := newEnv(t).create()
	link(t, m, "/gone", Target{Key: "does-not-exist"})

	_, err := m.Get(ctx, "/gone/a")
	assert.Error(t, err)

	// failed inflations are retried
	_, err = m.Get(ctx, "/gone/a")
	assert.Error(t, err)
	assert.Equal(t, uint64(2), m.Stats().Inflations)
}

func TestLinkRequiresKey(t *testing.T) {
	m := newEnv(t).create()
	err := m.Link(context.Background(), "/x", Target{})
	assert.ErrorIs(t, err, ErrInvalidOperation)
}

// --------------------------------------------------------------------------
// Parents
// --------------------------------------------------------------------------

func TestParentConflicts(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	p1 := env.create()
	p2 := env.create()
	p3 := env.create()
	put(t, p1, "/k", "one")
	put(t, p3, "/k", "three")
	put(t, p2, "/only", "two")

	child := env.create(Target{Key: p1.Key()}, Target{Key: p2.Key()}, Target{Key: p3.Key()})

	res, err := child.Get(ctx, "/k")
	require.NoError(t, err)
	require.True(t, res.IsConflict())
	assert.Equal(t, []Conflict{
		{Parent: 0, Key: p1.Key(), Value: []byte("one")},
		{Parent: 2, Key: p3.Key(), Value: []byte("three")},
	}, res.Conflicts)

	// a single hit is returned directly
	assert.Equal(t, "two", get(t, child, "/only"))

	put(t, child, "/k", "mine")
	assert.Equal(t, "mine", get(t, child, "/k"))
}

func TestNestedConflictsAreFlattened(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	g1 := env.create()
	g2 := env.create()
	put(t, g1, "/k", "g1")
	put(t, g2, "/k", "g2")

	p1 := env.create(Target{Key: g1.Key()}, Target{Key: g2.Key()})
	p2 := env.create()
	put(t, p2, "/k", "p2")

	child := env.create(Target{Key: p1.Key()}, Target{Key: p2.Key()})
	res, err := child.Get(ctx, "/k")
	require.NoError(t, err)
	assert.Equal(t, []Conflict{
		{Parent: 0, Key: g1.Key(), Value: []byte("g1")},
		{Parent: 0, Key: g2.Key(), Value: []byte("g2")},
		{Parent: 1, Key: p2.Key(), Value: []byte("p2")},
	}, res.Conflicts)
}

func TestParentSubPath(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	p := env.create()
	put(t, p, "/shared/x", "1")
	put(t, p, "/private", "2")

	child := env.create(Target{Key: p.Key(), Path: "/shared"})
	assert.Equal(t, "1", get(t, child, "/x"))
	_, err := child.Get(ctx, "/private")
	assert.ErrorIs(t, err, ErrNotFound)

	children, err := child.List(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, children)
}

func TestPinnedParent(t *testing.T) {
	env := newEnv(t)
	p := env.create()
	put(t, p, "/a", "old")
	v := p.Version()
	put(t, p, "/a", "new")

	child := env.create(Target{Key: p.Key(), Version: v})
	assert.Equal(t, "old", get(t, child, "/a"))
}

func TestParentListUnionIsDeduplicated(t *testing.T) {
	env := newEnv(t)
	p1 := env.create()
	p2 := env.create()
	put(t, p1, "/d/a", "1")
	put(t, p1, "/d/b", "1")
	put(t, p2, "/d/b", "2")
	put(t, p2, "/d/c", "2")

	for _, order := range [][]*MultiTree{{p1, p2}, {p2, p1}} {
		child := env.create(Target{Key: order[0].Key()}, Target{Key: order[1].Key()})
		put(t, child, "/d/a", "local")

		children, err := child.List(context.Background(), "/d")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, children)
	}
}

func TestInvalidParentAttachment(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	p := env.create()

	base := memlog.NewMemLog("")
	_, err := base.Put(ctx, "/entries/x", []byte("existing"))
	require.NoError(t, err)

	opts := env.options()
	opts.Parents = []Target{{Key: p.Key()}}
	m := New(base, opts)
	assert.ErrorIs(t, m.Ready(ctx), ErrInvalidParentAttachment)

	// every operation observes the failed initialization
	_, err = m.Get(ctx, "/x")
	assert.ErrorIs(t, err, ErrInvalidParentAttachment)
	assert.ErrorIs(t, m.Put(ctx, "/y", nil), ErrInvalidParentAttachment)

	// entries up to the offset are allowed
	opts.Offset = 1
	m = New(base, opts)
	require.NoError(t, m.Ready(ctx))
}

func TestParentCacheIsReused(t *testing.T) {
	env := newEnv(t)
	p := env.create()
	put(t, p, "/a", "1")

	child := env.create(Target{Key: p.Key()})
	for i := 0; i < 5; i++ {
		assert.Equal(t, "1", get(t, child, "/a"))
		put(t, child, fmt.Sprintf("/local/%d", i), "x")
	}

	s := child.Stats()
	assert.Equal(t, uint64(1), s.ParentRebuilds)
	assert.Equal(t, uint64(1), s.Inflations)
}

func TestParentCacheRebuildsOnChange(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	p1 := env.create()
	p2 := env.create()
	put(t, p2, "/late", "arrived")

	child := env.create(Target{Key: p1.Key()})
	_, err := child.Get(ctx, "/late")
	assert.ErrorIs(t, err, ErrNotFound)

	// a record appended to /parents changes the head of the namespace
	_, err = child.writeLink(ctx, parentName(1), codec.LinkRecord{Key: p2.Key(), Name: parentName(1)})
	require.NoError(t, err)

	assert.Equal(t, "arrived", get(t, child, "/late"))
	assert.Equal(t, uint64(2), child.Stats().ParentRebuilds)
}

// --------------------------------------------------------------------------
// Caches and Concurrency
// --------------------------------------------------------------------------

func TestLinkCache(t *testing.T) {
	env := newEnv(t)
	e1 := env.create()
	put(t, e1, "/a", "hello")

	e2 := env.create()
	link(t, e2, "/mt1", Target{Key: e1.Key()})
	for i := 0; i < 10; i++ {
		assert.Equal(t, "hello", get(t, e2, "/mt1/a"))
	}

	s := e2.Stats()
	assert.Equal(t, uint64(0), s.LinkDecodes)
	assert.Equal(t, uint64(10), s.LinkCacheHits)
	assert.Equal(t, uint64(1), s.Inflations)

	// a fresh instance over the same log decodes the record once
	base, err := env.backend.Open(context.Background(), e2.Key())
	require.NoError(t, err)
	fresh := New(base, env.options())
	assert.Equal(t, "hello", get(t, fresh, "/mt1/a"))
	assert.Equal(t, "hello", get(t, fresh, "/mt1/a"))
	assert.Equal(t, uint64(1), fresh.Stats().LinkDecodes)
}

func TestConcurrentLinksGetDistinctPositions(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	target := env.create()
	m := env.create()

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Link(ctx, fmt.Sprintf("/l%d", i), Target{Key: target.Key()}))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Put(ctx, fmt.Sprintf("/d%d", i), []byte("x")))
		}()
	}
	wg.Wait()

	seen := make(map[uint64]bool)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("/l%d", i)
		res, err := m.Get(ctx, name)
		require.NoError(t, err)
		require.NotNil(t, res.Link)

		pos := res.Link.Position
		assert.False(t, seen[pos], "position %d used twice", pos)
		seen[pos] = true

		e, err := m.base.Entry(ctx, pos-1)
		require.NoError(t, err)
		assert.Equal(t, entryName(name), e.Name)
	}
}

func TestConcurrentParentReads(t *testing.T) {
	env := newEnv(t)
	p1 := env.create()
	p2 := env.create()
	for i := 0; i < 20; i++ {
		put(t, p1, fmt.Sprintf("/p1/%d", i), "1")
		put(t, p2, fmt.Sprintf("/p2/%d", i), "2")
	}
	child := env.create(Target{Key: p1.Key()}, Target{Key: p2.Key()})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := child.Get(context.Background(), fmt.Sprintf("/p2/%d", i))
			if assert.NoError(t, err) {
				assert.Equal(t, []byte("2"), res.Value)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(1), child.Stats().ParentRebuilds)
}

// --------------------------------------------------------------------------
// Lifecycle, Policies and Views
// --------------------------------------------------------------------------

func TestMissPolicy(t *testing.T) {
	ctx := context.Background()

	env := newEnv(t)
	p := env.create()
	m := env.create(Target{Key: p.Key()})
	_, err := m.Get(ctx, "/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	env = newEnv(t)
	env.policy = MissEmpty
	p = env.create()
	m = env.create(Target{Key: p.Key()})
	res, err := m.Get(ctx, "/missing")
	require.NoError(t, err)
	assert.False(t, res.Found)

	put(t, p, "/present", "yes")
	assert.Equal(t, "yes", get(t, m, "/present"))
}

func TestParseMissPolicy(t *testing.T) {
	p, err := ParseMissPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MissNotFound, p)
	p, err = ParseMissPolicy("empty")
	require.NoError(t, err)
	assert.Equal(t, MissEmpty, p)
	_, err = ParseMissPolicy("list")
	assert.Error(t, err)
}

// unreadyTree fails initialization
type unreadyTree struct {
	tree.ITree
}

func (unreadyTree) Ready(context.Context) error {
	return errors.New("disk on fire")
}

var errDisk = errors.New("io failure")

// failingTree fails every read of a value or listing
type failingTree struct {
	tree.ITree
}

func (failingTree) Get(context.Context, string) ([]byte, error) {
	return nil, errDisk
}

func (failingTree) List(context.Context, string) ([]string, error) {
	return nil, errDisk
}

func TestParentErrorAbortsOperation(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t)
	good := env.create()
	put(t, good, "/a", "good")

	base, err := env.backend.Create(ctx)
	require.NoError(t, err)
	bad := New(failingTree{base}, env.options())
	require.NoError(t, bad.Ready(ctx))
	env.mu.Lock()
	env.trees[inflationKey(bad.Key(), 0)] = bad
	env.mu.Unlock()

	child := env.create(Target{Key: good.Key()}, Target{Key: bad.Key()})

	res, err := child.Get(ctx, "/a")
	assert.ErrorIs(t, err, errDisk)
	assert.False(t, res.Found)

	list, err := child.List(ctx, "/")
	assert.ErrorIs(t, err, errDisk)
	assert.Nil(t, list)

	// local values are served without asking the parents
	put(t, child, "/a", "mine")
	assert.Equal(t, "mine", get(t, child, "/a"))
}

func TestNotReady(t *testing.T) {
	ctx := context.Background()
	m := New(unreadyTree{memlog.NewMemLog("")}, nil)

	err := m.Ready(ctx)
	require.Error(t, err)
	assert.Equal(t, err, m.Ready(ctx))

	_, err = m.Get(ctx, "/a")
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, m.Put(ctx, "/a", nil), ErrNotReady)
	_, err = m.List(ctx, "/")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	m := newEnv(t).create()
	put(t, m, "/a", "v1")
	v := m.Version()
	put(t, m, "/a", "v2")
	put(t, m, "/b", "new")

	view, err := m.Checkout(v)
	require.NoError(t, err)
	assert.Equal(t, v, view.Version())
	assert.Equal(t, "v1", get(t, view, "/a"))
	_, err = view.Get(ctx, "/b")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, view.Put(ctx, "/a", nil), ErrReadOnlyTarget)
	assert.ErrorIs(t, view.Link(ctx, "/l", Target{Key: m.Key()}), ErrReadOnlyTarget)

	_, err = m.Checkout(m.Version() + 1)
	assert.Error(t, err)
}

func TestWriteRoot(t *testing.T) {
	ctx := context.Background()
	m := newEnv(t).create()
	assert.ErrorIs(t, m.Put(ctx, "/", []byte("x")), ErrInvalidOperation)
	assert.ErrorIs(t, m.Delete(ctx, ""), ErrInvalidOperation)
}

func TestErrorCodes(t *testing.T) {
	err := notFound("/x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrNotReady)
	assert.Contains(t, err.Error(), "NotFound")

	wrapped := fmt.Errorf("outer: %w", wrapError(RetCNotReady, "init", errors.New("cause")))
	assert.ErrorIs(t, wrapped, ErrNotReady)
	assert.Contains(t, wrapped.Error(), "cause")
}
