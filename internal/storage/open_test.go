package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/internal/storage/memory"
	"github.com/yndnr/nodestore-go/internal/storage/redis"
	"github.com/yndnr/nodestore-go/internal/telemetry/logger"
)

func TestOpen_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory

	repo, err := Open(context.Background(), cfg, logger.Discard(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	if _, ok := repo.(*memory.Store); !ok {
		t.Errorf("expected *memory.Store, got %T", repo)
	}
}

func TestOpen_Badger(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendBadger
	cfg.Badger.Dir = t.TempDir()
	cfg.Badger.GCInterval = time.Hour

	reg := prometheus.NewRegistry()
	repo, err := Open(context.Background(), cfg, logger.Discard(), reg)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	if _, ok := repo.(*BadgerStore); !ok {
		t.Errorf("expected *BadgerStore, got %T", repo)
	}
	if n, err := testutil.GatherAndCount(reg, "nodestore_badger_lsm_size_bytes"); err != nil || n != 1 {
		t.Errorf("badger metrics not registered: %d, %v", n, err)
	}
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Store.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()

	repo, err := Open(context.Background(), cfg, logger.Discard(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()

	if _, ok := repo.(*redis.Repository); !ok {
		t.Errorf("expected *redis.Repository, got %T", repo)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "cassandra"

	_, err := Open(context.Background(), cfg, nil, nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestOpenArchive_Disabled(t *testing.T) {
	archive, err := OpenArchive(context.Background(), config.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if archive != nil {
		t.Errorf("expected nil archive, got %T", archive)
	}
}

func TestOpenArchive_Enabled(t *testing.T) {
	cfg := config.Default()
	cfg.Archive.Enabled = true
	cfg.Archive.Bucket = "cold"
	cfg.Archive.AccessKeyID = "test"
	cfg.Archive.SecretAccessKey = "test"

	archive, err := OpenArchive(context.Background(), cfg, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if archive == nil {
		t.Fatal("expected an archive")
	}
}
