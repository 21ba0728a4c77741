package testing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/ValentinKolb/mtree/lib/tree"
)

// TreeFactory is a function that creates a new, empty instance of an ITree implementation
type TreeFactory func(t *testing.T) tree.ITree

// RunTreeTests runs a comprehensive test suite for an ITree implementation.
func RunTreeTests(t *testing.T, name string, factory TreeFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Put&Get", func(t *testing.T) {
			testPutGet(t, ready(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, ready(t, factory))
		})

		t.Run("List", func(t *testing.T) {
			testList(t, ready(t, factory))
		})

		t.Run("Path", func(t *testing.T) {
			testPath(t, ready(t, factory))
		})

		t.Run("Head", func(t *testing.T) {
			testHead(t, ready(t, factory))
		})

		t.Run("Entry", func(t *testing.T) {
			testEntry(t, ready(t, factory))
		})

		t.Run("Checkout", func(t *testing.T) {
			testCheckout(t, ready(t, factory))
		})

		t.Run("ConcurrentAppends", func(t *testing.T) {
			testConcurrentAppends(t, ready(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// ready creates a tree and waits for it to become ready
func ready(t *testing.T, factory TreeFactory) tree.ITree {
	tr := factory(t)
	if err := tr.Ready(context.Background()); err != nil {
		t.Fatalf("Ready failed: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func mustPut(t *testing.T, tr tree.ITree, name, value string) uint64 {
	t.Helper()
	seq, err := tr.Put(context.Background(), name, []byte(value))
	if err != nil {
		t.Fatalf("Put(%s) failed: %v", name, err)
	}
	return seq
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testPutGet(t *testing.T, tr tree.ITree) {
	ctx := context.Background()

	if tr.Version() != 0 {
		t.Errorf("Expected new tree to have version 0, got %d", tr.Version())
	}
	if tr.Key() == "" {
		t.Errorf("Expected tree to have a key")
	}

	seq := mustPut(t, tr, "/hey", "there")
	if seq != 0 {
		t.Errorf("Expected first entry to have seq 0, got %d", seq)
	}

	value, err := tr.Get(ctx, "hey")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !bytes.Equal(value, []byte("there")) {
		t.Errorf("Expected value %s, got %s", "there", value)
	}

	value[0] = 'X'
	value, _ = tr.Get(ctx, "/hey")
	if !bytes.Equal(value, []byte("there")) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	mustPut(t, tr, "/hey/", "you")
	value, _ = tr.Get(ctx, "/hey")
	if !bytes.Equal(value, []byte("you")) {
		t.Errorf("Expected overwritten value %s, got %s", "you", value)
	}

	if tr.Version() != 2 {
		t.Errorf("Expected version 2 after two writes, got %d", tr.Version())
	}

	if _, err := tr.Get(ctx, "/nonexistent"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for nonexistent name, got %v", err)
	}

	mustPut(t, tr, "/empty", "")
	value, err = tr.Get(ctx, "/empty")
	if err != nil || len(value) != 0 {
		t.Errorf("Expected empty value, got %q (%v)", value, err)
	}
}

func testDelete(t *testing.T, tr tree.ITree) {
	ctx := context.Background()

	mustPut(t, tr, "/hey", "there")
	seq, err := tr.Delete(ctx, "/hey")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("Expected tombstone at seq 1, got %d", seq)
	}

	if _, err := tr.Get(ctx, "/hey"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after Delete, got %v", err)
	}

	if _, err := tr.Delete(ctx, "/hey"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound when deleting twice, got %v", err)
	}

	mustPut(t, tr, "/hey", "again")
	if value, _ := tr.Get(ctx, "/hey"); !bytes.Equal(value, []byte("again")) {
		t.Errorf("Expected value %s after re-put, got %s", "again", value)
	}
}

func testList(t *testing.T, tr tree.ITree) {
	ctx := context.Background()

	mustPut(t, tr, "/a/1", "x")
	mustPut(t, tr, "/a/2", "y")
	mustPut(t, tr, "/a/3/deep", "z")
	mustPut(t, tr, "/ab", "not a child of a")

	children, err := tr.List(ctx, "/a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !reflect.DeepEqual(children, []string{"1", "2", "3"}) {
		t.Errorf("Expected [1 2 3], got %v", children)
	}

	children, _ = tr.List(ctx, "/")
	if !reflect.DeepEqual(children, []string{"a", "ab"}) {
		t.Errorf("Expected [a ab] at root, got %v", children)
	}

	if _, err := tr.Delete(ctx, "/a/3/deep"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	children, _ = tr.List(ctx, "/a")
	if !reflect.DeepEqual(children, []string{"1", "2"}) {
		t.Errorf("Expected [1 2] after delete, got %v", children)
	}

	if _, err := tr.List(ctx, "/nothing"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for empty directory, got %v", err)
	}
}

func testPath(t *testing.T, tr tree.ITree) {
	ctx := context.Background()

	a := mustPut(t, tr, "/a", "dir")
	abc := mustPut(t, tr, "/a/b/c", "leaf")

	seqs, err := tr.Path(ctx, "/a/b/c/d")
	if err != nil {
		t.Fatalf("Path failed: %v", err)
	}
	if !reflect.DeepEqual(seqs, []uint64{a, abc}) {
		t.Errorf("Expected path %v, got %v", []uint64{a, abc}, seqs)
	}

	if _, err := tr.Delete(ctx, "/a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	seqs, _ = tr.Path(ctx, "/a/b/c")
	if !reflect.DeepEqual(seqs, []uint64{abc}) {
		t.Errorf("Expected deleted prefixes to be skipped, got %v", seqs)
	}

	if _, err := tr.Path(ctx, "/x/y"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unwritten path, got %v", err)
	}
}

func testHead(t *testing.T, tr tree.ITree) {
	ctx := context.Background()

	if _, err := tr.Head(ctx, "/p"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on empty tree, got %v", err)
	}

	mustPut(t, tr, "/p/0", "a")
	last := mustPut(t, tr, "/p/1", "b")
	mustPut(t, tr, "/q", "c")
	mustPut(t, tr, "/pp", "not below p")

	head, err := tr.Head(ctx, "/p")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if head != last {
		t.Errorf("Expected head %d, got %d", last, head)
	}

	tomb, _ := tr.Delete(ctx, "/p/0")
	if head, _ = tr.Head(ctx, "/p"); head != tomb {
		t.Errorf("Expected tombstones to move the head to %d, got %d", tomb, head)
	}
}

func testEntry(t *testing.T, tr tree.ITree) {
	ctx := context.Background()

	seq := mustPut(t, tr, "raw", "bytes")
	e, err := tr.Entry(ctx, seq)
	if err != nil {
		t.Fatalf("Entry failed: %v", err)
	}
	if e.Seq != seq || e.Name != "/raw" || !bytes.Equal(e.Value, []byte("bytes")) || e.Deleted {
		t.Errorf("Unexpected entry %+v", e)
	}

	tomb, _ := tr.Delete(ctx, "/raw")
	if e, _ = tr.Entry(ctx, tomb); !e.Deleted {
		t.Errorf("Expected entry %d to be a tombstone", tomb)
	}

	if _, err := tr.Entry(ctx, 100); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected ErrNotFound beyond the log, got %v", err)
	}
}

func testCheckout(t *testing.T, tr tree.ITree) {
	ctx := context.Background()

	mustPut(t, tr, "/a", "v1")
	mustPut(t, tr, "/b", "v1")
	version := tr.Version()
	mustPut(t, tr, "/a", "v2")
	mustPut(t, tr, "/c", "v2")

	view, err := tr.Checkout(version)
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	if view.Version() != version {
		t.Errorf("Expected checkout version %d, got %d", version, view.Version())
	}
	if view.Key() != tr.Key() {
		t.Errorf("Expected checkout to keep the key")
	}

	if value, _ := view.Get(ctx, "/a"); !bytes.Equal(value, []byte("v1")) {
		t.Errorf("Expected pinned value v1, got %s", value)
	}
	if _, err := view.Get(ctx, "/c"); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected later writes to be invisible, got %v", err)
	}
	if children, _ := view.List(ctx, "/"); !reflect.DeepEqual(children, []string{"a", "b"}) {
		t.Errorf("Expected [a b] in checkout, got %v", children)
	}
	if _, err := view.Put(ctx, "/a", []byte("nope")); !errors.Is(err, tree.ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly on checkout, got %v", err)
	}
	if _, err := view.Entry(ctx, version); !errors.Is(err, tree.ErrNotFound) {
		t.Errorf("Expected entries beyond the checkout to be invisible, got %v", err)
	}

	if _, err := tr.Checkout(tr.Version() + 1); !errors.Is(err, tree.ErrInvalidVersion) {
		t.Errorf("Expected ErrInvalidVersion, got %v", err)
	}
}

func testConcurrentAppends(t *testing.T, tr tree.ITree) {
	ctx := context.Background()

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[uint64]bool)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				seq, err := tr.Put(ctx, fmt.Sprintf("/w%d/%d", w, i), []byte("v"))
				if err != nil {
					t.Errorf("Put failed: %v", err)
					return
				}
				mu.Lock()
				if seen[seq] {
					t.Errorf("Duplicate seq %d", seq)
				}
				seen[seq] = true
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	if tr.Version() != workers*perWorker {
		t.Errorf("Expected version %d, got %d", workers*perWorker, tr.Version())
	}
}
