// Package benchmark provides performance benchmarks for NodeStore over the
// embedded backends.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Run a single backend:
//
//	go test -bench='BenchmarkNodeStoreGet/badger' -benchmem -benchtime=10s ./internal/tests/benchmark/...
//
// Compare results:
//
//	benchstat old.txt new.txt
package benchmark
