package benchmark

import (
	"context"
	"crypto/rand"
	"fmt"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/nodestore-go/internal/core/service"
	"github.com/yndnr/nodestore-go/internal/storage"
	"github.com/yndnr/nodestore-go/internal/storage/memory"
	"github.com/yndnr/nodestore-go/internal/telemetry/logger"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

// NodeCounts defines the preloaded node counts for benchmarking.
var NodeCounts = []int{1000, 10000, 100000}

// SmallNodeCounts for quick benchmarks.
var SmallNodeCounts = []int{1000, 5000}

// backend opens a repository for one benchmark.
type backend struct {
	name string
	open func(b *testing.B) service.NodeRepository
}

var backends = []backend{
	{
		name: "memory",
		open: func(b *testing.B) service.NodeRepository {
			return memory.New(memory.WithSweepInterval(0))
		},
	},
	{
		name: "badger",
		open: func(b *testing.B) service.NodeRepository {
			cfg := storage.DefaultBadgerConfig(b.TempDir())
			cfg.GCInterval = 0
			repo, err := storage.NewBadgerStore(cfg, logger.Discard())
			if err != nil {
				b.Fatalf("open badger: %v", err)
			}
			return repo
		},
	},
}

// newNodeID generates a benchmark node ID.
func newNodeID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, _ := ulid.New(ulid.Timestamp(time.Now()), entropy)
	return "bench-" + strings.ToLower(id.String())
}

// event is a representative stored value.
type event struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Sequence  int               `json:"sequence"`
	CreatedAt int64             `json:"created_at"`
	Tags      []string          `json:"tags"`
	Attrs     map[string]string `json:"attrs"`
	Body      string            `json:"body"`
}

func newEvent(i int, bodySize int) event {
	return event{
		ID:        fmt.Sprintf("evt-%d", i),
		Kind:      "transition",
		Sequence:  i,
		CreatedAt: time.Now().UnixMilli(),
		Tags:      []string{"bench", "node"},
		Attrs:     map[string]string{"source": "benchmark", "region": "local"},
		Body:      strings.Repeat("lorem ipsum ", bodySize/12),
	}
}

// newStore wraps repo in a NodeStore with the given encoding.
func newStore(b *testing.B, repo service.NodeRepository, enc codec.Encoding) *service.NodeStore {
	b.Helper()
	cfg := service.DefaultNodeStoreConfig()
	cfg.Compression = enc
	cfg.Logger = logger.Discard()

	store, err := service.NewNodeStore(repo, cfg)
	if err != nil {
		b.Fatalf("NewNodeStore: %v", err)
	}
	b.Cleanup(func() { store.Close() })
	return store
}

// prefillStore writes count nodes and returns their ids.
func prefillStore(ctx context.Context, b *testing.B, store *service.NodeStore, count int) []string {
	b.Helper()
	ids := make([]string, count)
	for i := 0; i < count; i++ {
		ids[i] = newNodeID()
		if err := store.Set(ctx, ids[i], newEvent(i, 256)); err != nil {
			b.Fatalf("prefill: %v", err)
		}
	}
	return ids
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithBackends runs a benchmark function against every embedded backend.
func runWithBackends(b *testing.B, benchFn func(b *testing.B, repo service.NodeRepository)) {
	for _, be := range backends {
		b.Run(be.name, func(b *testing.B) {
			benchFn(b, be.open(b))
		})
	}
}
