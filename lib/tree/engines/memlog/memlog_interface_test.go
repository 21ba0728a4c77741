package memlog

import (
	"bytes"
	"context"
	"testing"

	"github.com/ValentinKolb/mtree/lib/tree"
	treetesting "github.com/ValentinKolb/mtree/lib/tree/testing"
	"github.com/stretchr/testify/require"
)

func Test(t *testing.T) {
	treetesting.RunTreeTests(t, "MemLog", func(t *testing.T) tree.ITree {
		return NewMemLog("")
	})
}

func Benchmark(b *testing.B) {
	treetesting.RunTreeBenchmarks(b, "MemLog", func(b *testing.B) tree.ITree {
		return NewMemLog("")
	})
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	src := NewMemLog("feed-a")

	_, err := src.Put(ctx, "/a", []byte("1"))
	require.NoError(t, err)
	_, err = src.Put(ctx, "/b/c", []byte("2"))
	require.NoError(t, err)
	_, err = src.Delete(ctx, "/a")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	dst := NewMemLog("")
	require.NoError(t, dst.Load(&buf))

	require.Equal(t, "feed-a", dst.Key())
	require.Equal(t, src.Version(), dst.Version())

	_, err = dst.Get(ctx, "/a")
	require.ErrorIs(t, err, tree.ErrNotFound)

	value, err := dst.Get(ctx, "/b/c")
	require.NoError(t, err)
	require.Equal(t, []byte("2"), value)

	e, err := dst.Entry(ctx, 2)
	require.NoError(t, err)
	require.True(t, e.Deleted)
}

func TestLoadRejectsGarbage(t *testing.T) {
	dst := NewMemLog("")
	require.Error(t, dst.Load(bytes.NewReader([]byte("definitely not a snapshot"))))
}

func TestBackend(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	created, err := b.Create(ctx)
	require.NoError(t, err)

	opened, err := b.Open(ctx, created.Key())
	require.NoError(t, err)
	require.Same(t, created, opened)

	_, err = b.Open(ctx, "unknown")
	require.ErrorIs(t, err, tree.ErrNotFound)
}

func TestBackendSnapshots(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := OpenBackend(dir)
	require.NoError(t, err)
	created, err := b.Create(ctx)
	require.NoError(t, err)
	_, err = created.Put(ctx, "/a", []byte("kept"))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	b, err = OpenBackend(dir)
	require.NoError(t, err)
	defer b.Close()

	opened, err := b.Open(ctx, created.Key())
	require.NoError(t, err)
	value, err := opened.Get(ctx, "/a")
	require.NoError(t, err)
	require.Equal(t, []byte("kept"), value)
}
