package nodestore

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/internal/core/service"
	"github.com/yndnr/nodestore-go/internal/storage"
	"github.com/yndnr/nodestore-go/internal/telemetry/metric"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

type (
	// Store is a connected node store.
	Store = service.NodeStore

	// Repository is the document store a Store persists into.
	Repository = service.NodeRepository

	// Archive is a cold-storage fallback for reads.
	Archive = service.Archive

	// Node is the stored unit.
	Node = domain.Node

	// SetOption customizes one Set call.
	SetOption = service.SetOption

	// Config is the root configuration.
	Config = config.Config
)

// Error sentinels, matched with errors.Is.
var (
	ErrSerialization      = domain.ErrSerialization
	ErrCorruption         = domain.ErrCorruption
	ErrBackendUnavailable = domain.ErrBackendUnavailable
	ErrArchiveUnavailable = domain.ErrArchiveUnavailable
	ErrInvalidArgument    = domain.ErrInvalidArgument
	ErrInvalidConfig      = domain.ErrInvalidConfig
)

// WithTTL overrides the default TTL for one write.
func WithTTL(ttl time.Duration) SetOption {
	return service.WithTTL(ttl)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// LoadConfig reads configuration from the YAML file at path (optional),
// NODESTORE_* environment variables and overrides, then verifies it.
func LoadConfig(path string, overrides map[string]any) (*Config, error) {
	return config.Load(path, overrides)
}

// Option customizes Open.
type Option func(*openOptions)

type openOptions struct {
	logger  *slog.Logger
	metrics *metric.Registry
	clock   func() time.Time
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *openOptions) { o.logger = logger }
}

// WithMetrics records operation and backend metrics into reg.
func WithMetrics(reg *metric.Registry) Option {
	return func(o *openOptions) { o.metrics = reg }
}

// WithClock replaces time.Now for expiry computation.
func WithClock(now func() time.Time) Option {
	return func(o *openOptions) { o.clock = now }
}

// Open verifies cfg, connects the configured backend and archive, and
// returns a ready Store. Unreachable backends fail here.
func Open(ctx context.Context, cfg *Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Verify(cfg); err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}

	o := openOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var reg prometheus.Registerer
	if o.metrics != nil {
		reg = o.metrics.Prometheus()
	}

	repo, err := storage.Open(ctx, cfg, o.logger, reg)
	if err != nil {
		return nil, err
	}

	archive, err := storage.OpenArchive(ctx, cfg, o.logger)
	if err != nil {
		repo.Close()
		return nil, err
	}

	storeCfg, err := StoreConfig(cfg)
	if err != nil {
		repo.Close()
		return nil, err
	}
	storeCfg.Archive = archive
	storeCfg.Logger = o.logger
	storeCfg.Metrics = o.metrics
	storeCfg.Clock = o.clock

	store, err := service.NewNodeStore(repo, storeCfg)
	if err != nil {
		repo.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an already connected repository, for callers that build
// their own backend.
func New(repo Repository, cfg *service.NodeStoreConfig) (*Store, error) {
	return service.NewNodeStore(repo, cfg)
}

// StoreConfig derives the NodeStore settings from the store section.
func StoreConfig(cfg *Config) (*service.NodeStoreConfig, error) {
	enc, err := codec.Parse(cfg.Store.Compression)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}
	return &service.NodeStoreConfig{
		DefaultTTL:  cfg.Store.DefaultTTL,
		Compression: enc,
		Timeout:     cfg.Store.Timeout,
	}, nil
}
