package storage

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/internal/core/service"
	"github.com/yndnr/nodestore-go/internal/storage/memory"
	"github.com/yndnr/nodestore-go/internal/storage/mongo"
	"github.com/yndnr/nodestore-go/internal/storage/redis"
	"github.com/yndnr/nodestore-go/internal/storage/s3archive"
)

// Open connects the repository selected by cfg.Store.Backend.
// reg, when non-nil, receives backend-specific metrics.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (service.NodeRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Store.Backend {
	case config.BackendMongo:
		return mongo.New(ctx, mongo.ConfigFrom(cfg.Mongo), logger)

	case config.BackendRedis:
		return redis.New(ctx, redis.ConfigFrom(cfg.Redis), logger)

	case config.BackendBadger:
		store, err := NewBadgerStore(BadgerConfigFrom(cfg.Badger), logger.With("backend", "badger"))
		if err != nil {
			return nil, err
		}
		if reg != nil {
			store.RegisterMetrics(reg)
		}
		return store, nil

	case config.BackendMemory:
		return memory.New(
			memory.WithSweepInterval(cfg.Memory.SweepInterval),
			memory.WithLogger(logger.With("backend", "memory")),
		), nil

	default:
		return nil, domain.ErrInvalidConfig.WithDetailsf("unknown backend %q", cfg.Store.Backend)
	}
}

// OpenArchive returns the S3 archive when archive.enabled is set, and nil
// otherwise.
func OpenArchive(ctx context.Context, cfg *config.Config, logger *slog.Logger) (service.Archive, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	archive, err := s3archive.New(ctx, cfg.Archive, logger)
	if err != nil {
		return nil, err
	}
	return archive, nil
}
