// Package testing provides a standardised test suite for base tree
// implementations that satisfy the tree.ITree interface.
//
// Example usage:
//
//	// Creating a factory function for your implementation
//	factory := func(t *testing.T) tree.ITree {
//		return NewMyTree()
//	}
//
//	// Running the standard test suite
//	treetesting.RunTreeTests(t, "MyTree", factory)
//
// RunTreeBenchmarks runs the matching benchmarks (Put, Get, Path, List, Delete and
// a mixed 70/30 read/write load) against a BenchFactory.
package testing
