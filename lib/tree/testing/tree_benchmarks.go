package testing

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/ValentinKolb/mtree/lib/tree"
)

// BenchFactory creates a new, ready tree for a benchmark
type BenchFactory func(b *testing.B) tree.ITree

// RunTreeBenchmarks runs all benchmarks for a base tree implementation
func RunTreeBenchmarks(b *testing.B, name string, factory BenchFactory) {

	b.Run("Put", func(b *testing.B) {
		benchmarkPut(b, factory(b))
	})

	b.Run("PutExisting", func(b *testing.B) {
		benchmarkPutExisting(b, factory(b))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory(b))
	})

	b.Run("Path", func(b *testing.B) {
		benchmarkPath(b, factory(b))
	})

	b.Run("List", func(b *testing.B) {
		benchmarkList(b, factory(b))
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory(b))
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory(b))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// fill writes n values below /bench and returns their names
func fill(b *testing.B, t tree.ITree, n int) []string {
	ctx := context.Background()
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("/bench/%d/key-%d", i%100, i)
		if _, err := t.Put(ctx, names[i], []byte(fmt.Sprintf("value-%d", i))); err != nil {
			b.Fatalf("Put failed: %v", err)
		}
	}
	return names
}

// Benchmark for Put operation
func benchmarkPut(b *testing.B, t tree.ITree) {
	ctx := context.Background()
	b.Cleanup(func() {
		t.Close()
	})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			name := fmt.Sprintf("/bench/key-%d", counter)
			t.Put(ctx, name, []byte(name))
			counter++
		}
	})
}

// Benchmark for Put operation with existing names
func benchmarkPutExisting(b *testing.B, t tree.ITree) {
	ctx := context.Background()
	b.Cleanup(func() {
		t.Close()
	})

	names := fill(b, t, 1000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			t.Put(ctx, names[counter%len(names)], []byte("updated"))
			counter++
		}
	})
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, t tree.ITree) {
	ctx := context.Background()
	b.Cleanup(func() {
		t.Close()
	})

	names := fill(b, t, 10000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			t.Get(ctx, names[counter%len(names)])
			counter++
		}
	})
}

// Parallel benchmarking for Path operation (the lookup behind link resolution)
func benchmarkPath(b *testing.B, t tree.ITree) {
	ctx := context.Background()
	b.Cleanup(func() {
		t.Close()
	})

	names := fill(b, t, 10000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			t.Path(ctx, names[counter%len(names)]+"/below")
			counter++
		}
	})
}

// Parallel benchmarking for List operation
func benchmarkList(b *testing.B, t tree.ITree) {
	ctx := context.Background()
	b.Cleanup(func() {
		t.Close()
	})

	fill(b, t, 10000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			t.List(ctx, fmt.Sprintf("/bench/%d", counter%100))
			counter++
		}
	})
}

// Benchmark for Delete operation
func benchmarkDelete(b *testing.B, t tree.ITree) {
	ctx := context.Background()
	b.Cleanup(func() {
		t.Close()
	})

	n := 100000
	if b.N < n {
		n = b.N
	}
	names := fill(b, t, n)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.Delete(ctx, names[i%n])
	}
}

// benchmarkMixedUsage runs 70% reads and 30% writes
func benchmarkMixedUsage(b *testing.B, t tree.ITree) {
	ctx := context.Background()
	b.Cleanup(func() {
		t.Close()
	})

	names := fill(b, t, 10000)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

		for pb.Next() {
			name := names[counter%len(names)]
			if rnd.Float32() < .7 {
				t.Get(ctx, name)
			} else {
				t.Put(ctx, name, []byte(fmt.Sprintf("mixed-%d", counter)))
			}
			counter++
		}
	})
}
