package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/yndnr/nodestore-go/internal/core/service"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

// BenchmarkNodeStoreSet benchmarks writes per backend and encoding.
func BenchmarkNodeStoreSet(b *testing.B) {
	for _, enc := range []codec.Encoding{codec.EncodingIdentity, codec.EncodingZstd} {
		name := string(enc)
		if name == "" {
			name = "identity"
		}
		b.Run(name, func(b *testing.B) {
			runWithBackends(b, func(b *testing.B, repo service.NodeRepository) {
				ctx := context.Background()
				store := newStore(b, repo, enc)
				value := newEvent(0, 1024)

				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					if err := store.Set(ctx, newNodeID(), value); err != nil {
						b.Fatalf("Set failed: %v", err)
					}
				}
			})
		})
	}
}

// BenchmarkNodeStoreGet benchmarks reads at various preload sizes.
func BenchmarkNodeStoreGet(b *testing.B) {
	runWithBackends(b, func(b *testing.B, repo service.NodeRepository) {
		ctx := context.Background()
		store := newStore(b, repo, codec.EncodingIdentity)

		for _, count := range SmallNodeCounts {
			b.Run(fmt.Sprintf("nodes_%d", count), func(b *testing.B) {
				ids := prefillStore(ctx, b, store, count)

				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					_, found, err := store.Get(ctx, ids[i%len(ids)])
					if err != nil || !found {
						b.Fatalf("Get failed: found=%v err=%v", found, err)
					}
				}

				b.StopTimer()
				reportMemory(b, "mem")
			})
		}
	})
}

// BenchmarkNodeStoreGetInto benchmarks typed reads.
func BenchmarkNodeStoreGetInto(b *testing.B) {
	runWithBackends(b, func(b *testing.B, repo service.NodeRepository) {
		ctx := context.Background()
		store := newStore(b, repo, codec.EncodingIdentity)
		ids := prefillStore(ctx, b, store, 1000)

		b.ResetTimer()
		b.ReportAllocs()

		for i := 0; i < b.N; i++ {
			var e event
			if _, err := store.GetInto(ctx, ids[i%len(ids)], &e); err != nil {
				b.Fatalf("GetInto failed: %v", err)
			}
		}
	})
}

// BenchmarkNodeStoreGetMany benchmarks batch reads by batch size.
func BenchmarkNodeStoreGetMany(b *testing.B) {
	runWithBackends(b, func(b *testing.B, repo service.NodeRepository) {
		ctx := context.Background()
		store := newStore(b, repo, codec.EncodingIdentity)
		ids := prefillStore(ctx, b, store, 1000)

		for _, batch := range []int{10, 100} {
			b.Run(fmt.Sprintf("batch_%d", batch), func(b *testing.B) {
				b.ResetTimer()
				b.ReportAllocs()

				for i := 0; i < b.N; i++ {
					start := (i * batch) % (len(ids) - batch)
					values, err := store.GetMany(ctx, ids[start:start+batch])
					if err != nil || len(values) != batch {
						b.Fatalf("GetMany failed: got %d err=%v", len(values), err)
					}
				}
			})
		}
	})
}

// BenchmarkNodeStoreParallelMixed runs concurrent reads and writes.
func BenchmarkNodeStoreParallelMixed(b *testing.B) {
	runWithBackends(b, func(b *testing.B, repo service.NodeRepository) {
		ctx := context.Background()
		store := newStore(b, repo, codec.EncodingIdentity)
		ids := prefillStore(ctx, b, store, 1000)
		value := newEvent(0, 256)

		b.ResetTimer()
		b.ReportAllocs()

		b.RunParallel(func(pb *testing.PB) {
			i := 0
			for pb.Next() {
				if i%4 == 0 {
					if err := store.Set(ctx, newNodeID(), value); err != nil {
						b.Errorf("Set failed: %v", err)
						return
					}
				} else if _, _, err := store.Get(ctx, ids[i%len(ids)]); err != nil {
					b.Errorf("Get failed: %v", err)
					return
				}
				i++
			}
		})
	})
}
