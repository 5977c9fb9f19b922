package storage

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/internal/core/service"
	"github.com/yndnr/nodestore-go/internal/telemetry/logger"
)

var _ service.NodeRepository = (*BadgerStore)(nil)

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()

	cfg := DefaultBadgerConfig(t.TempDir())
	cfg.GCInterval = time.Hour

	store, err := NewBadgerStore(cfg, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerStore_BasicOperations(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	t.Run("Replace and Find", func(t *testing.T) {
		node := &domain.Node{ID: "k1", Data: []byte(`{"a":1}`)}
		if err := store.Replace(ctx, node); err != nil {
			t.Fatal(err)
		}

		got, err := store.Find(ctx, "k1")
		if err != nil {
			t.Fatal(err)
		}
		if string(got.Data) != `{"a":1}` {
			t.Errorf("expected %s, got %s", node.Data, got.Data)
		}
		if got.HasExpiry() {
			t.Errorf("expected no expiry, got %v", got.ExpiresAt)
		}
	})

	t.Run("Replace overwrites", func(t *testing.T) {
		if err := store.Replace(ctx, &domain.Node{ID: "k1", Data: []byte(`2`)}); err != nil {
			t.Fatal(err)
		}
		got, err := store.Find(ctx, "k1")
		if err != nil {
			t.Fatal(err)
		}
		if string(got.Data) != "2" {
			t.Errorf("expected 2, got %s", got.Data)
		}
	})

	t.Run("Find non-existent key", func(t *testing.T) {
		_, err := store.Find(ctx, "non-existent")
		if !errors.Is(err, domain.ErrNodeNotFound) {
			t.Errorf("expected ErrNodeNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := store.Replace(ctx, &domain.Node{ID: "del", Data: []byte(`1`)}); err != nil {
			t.Fatal(err)
		}
		if err := store.Delete(ctx, "del"); err != nil {
			t.Fatal(err)
		}
		if _, err := store.Find(ctx, "del"); !errors.Is(err, domain.ErrNodeNotFound) {
			t.Errorf("expected ErrNodeNotFound after delete, got %v", err)
		}
		if err := store.Delete(ctx, "del"); err != nil {
			t.Errorf("deleting a missing key should succeed, got %v", err)
		}
	})
}

func TestBadgerStore_FindManyDeleteMany(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Replace(ctx, &domain.Node{ID: id, Data: []byte(`"` + id + `"`)}); err != nil {
			t.Fatal(err)
		}
	}

	nodes, err := store.FindMany(ctx, []string{"a", "missing", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
	for _, n := range nodes {
		if string(n.Data) != `"`+n.ID+`"` {
			t.Errorf("node %s has data %s", n.ID, n.Data)
		}
	}

	if err := store.DeleteMany(ctx, []string{"a", "b", "missing"}); err != nil {
		t.Fatal(err)
	}
	nodes, err = store.FindMany(ctx, []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 1 || nodes[0].ID != "c" {
		t.Errorf("expected only c to remain, got %v", nodes)
	}
}

func TestBadgerStore_Expiry(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	future := time.Now().Add(time.Hour)
	if err := store.Replace(ctx, &domain.Node{ID: "later", Data: []byte(`1`), ExpiresAt: future}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Find(ctx, "later")
	if err != nil {
		t.Fatal(err)
	}
	if got.ExpiresAt.Before(future.Truncate(time.Second)) || got.ExpiresAt.After(future.Add(time.Second)) {
		t.Errorf("ExpiresAt = %v, want about %v", got.ExpiresAt, future)
	}

	past := time.Now().Add(-time.Minute)
	if err := store.Replace(ctx, &domain.Node{ID: "gone", Data: []byte(`1`), ExpiresAt: past}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Find(ctx, "gone"); !errors.Is(err, domain.ErrNodeNotFound) {
		t.Errorf("expected expired node to be absent, got %v", err)
	}
}

func TestBadgerStore_ContentEncoding(t *testing.T) {
	store := newTestBadger(t)
	ctx := context.Background()

	if err := store.Replace(ctx, &domain.Node{ID: "z", Data: []byte{0x28, 0xb5}, ContentEncoding: "zstd"}); err != nil {
		t.Fatal(err)
	}
	got, err := store.Find(ctx, "z")
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentEncoding != "zstd" {
		t.Errorf("expected zstd, got %q", got.ContentEncoding)
	}

	err = store.Replace(ctx, &domain.Node{ID: "x", Data: []byte(`1`), ContentEncoding: "brotli"})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown encoding, got %v", err)
	}

	// A user meta byte this version does not know about surfaces as an
	// encoding no codec accepts.
	if err := store.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte("odd"), []byte(`1`)).WithMeta(9))
	}); err != nil {
		t.Fatal(err)
	}
	got, err = store.Find(ctx, "odd")
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentEncoding != "meta-9" {
		t.Errorf("expected meta-9, got %q", got.ContentEncoding)
	}
}

func TestBadgerStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cfg := DefaultBadgerConfig(dir)
	cfg.GCInterval = time.Hour

	store, err := NewBadgerStore(cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Replace(ctx, &domain.Node{ID: "durable", Data: []byte(`true`)}); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	store, err = NewBadgerStore(cfg, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	got, err := store.Find(ctx, "durable")
	if err != nil {
		t.Fatalf("expected node to survive reopen: %v", err)
	}
	if string(got.Data) != "true" {
		t.Errorf("expected true, got %s", got.Data)
	}
}

func TestBadgerStore_Close(t *testing.T) {
	cfg := DefaultBadgerConfig("")
	cfg.InMemory = true

	store, err := NewBadgerStore(cfg, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	err = store.Ping(ctx)
	if !errors.Is(err, domain.ErrBackendUnavailable) || !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrBackendUnavailable wrapping ErrClosed, got %v", err)
	}
}

func TestBadgerStore_RequiresDir(t *testing.T) {
	_, err := NewBadgerStore(BadgerConfig{}, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestBadgerStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "badger")
	cfg := DefaultBadgerConfig(dir)
	cfg.GCInterval = 0

	store, err := NewBadgerStore(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("NewBadgerStore() error = %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("badger dir not created: %v", err)
	}
}

func TestBadgerStore_GC(t *testing.T) {
	store := newTestBadger(t)
	reg := prometheus.NewRegistry()
	store.RegisterMetrics(reg)

	ctx := context.Background()
	for i := 0; i < 100; i++ {
		if err := store.Replace(ctx, &domain.Node{ID: "churn", Data: make([]byte, 1024)}); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := store.GC(ctx); err != nil {
		t.Fatalf("GC() error = %v", err)
	}
	store.updateMetrics()

	if store.lastGCTime.Load() == 0 {
		t.Error("expected last GC time to be recorded")
	}
	if got := testutil.ToFloat64(store.metricsLastGCTime); got == 0 {
		t.Error("expected last GC timestamp gauge to be set")
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 4 {
		t.Errorf("expected 4 registered metrics, got %d (%v)", n, err)
	}
}

func TestBadgerConfigFrom(t *testing.T) {
	sec := config.Default().Badger
	sec.Dir = "/data"
	sec.GCInterval = 0
	sec.CacheSize = 1 << 20
	sec.SyncWrites = true

	cfg := BadgerConfigFrom(sec)
	if cfg.Dir != "/data" {
		t.Errorf("Dir = %q", cfg.Dir)
	}
	if cfg.GCInterval != 0 {
		t.Errorf("GCInterval = %v, want 0 (disabled)", cfg.GCInterval)
	}
	if cfg.GCThreshold != 0.5 {
		t.Errorf("GCThreshold = %v, want default", cfg.GCThreshold)
	}
	if cfg.CacheSize != 1<<20 {
		t.Errorf("CacheSize = %d", cfg.CacheSize)
	}
	if !cfg.SyncWrites {
		t.Error("SyncWrites should be carried over")
	}
}

func TestExpiresAtSeconds(t *testing.T) {
	base := time.Unix(1700000000, 0)
	if got := expiresAtSeconds(base); got != 1700000000 {
		t.Errorf("whole second: got %d", got)
	}
	if got := expiresAtSeconds(base.Add(time.Millisecond)); got != 1700000001 {
		t.Errorf("fractional second should round up: got %d", got)
	}
}
