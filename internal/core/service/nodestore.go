package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/internal/telemetry/metric"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

// NodeRepository defines the document store the NodeStore persists into.
//
// Every method is a single request against the underlying store.
// Implementations must be safe for concurrent use.
type NodeRepository interface {
	// Replace atomically replaces (or inserts) the node with node.ID.
	Replace(ctx context.Context, node *domain.Node) error

	// Find returns the node for id, or domain.ErrNodeNotFound.
	Find(ctx context.Context, id string) (*domain.Node, error)

	// FindMany returns the nodes found for ids in any order.
	// Missing ids are omitted.
	FindMany(ctx context.Context, ids []string) ([]*domain.Node, error)

	// Delete removes the node for id. Missing ids are not an error.
	Delete(ctx context.Context, id string) error

	// DeleteMany removes the nodes for ids. Missing ids are ignored.
	DeleteMany(ctx context.Context, ids []string) error

	// Ping checks connectivity with the store.
	Ping(ctx context.Context) error

	// Close releases the connection to the store.
	Close() error
}

// Archive is a cold-storage fallback consulted when the primary store
// has no node for an id.
type Archive interface {
	// Fetch returns the archived node for id, or domain.ErrNodeNotFound.
	Fetch(ctx context.Context, id string) (*domain.Node, error)

	// Remove deletes the archived copy of id.
	Remove(ctx context.Context, id string) error
}

// NodeStoreConfig holds configuration for NodeStore.
type NodeStoreConfig struct {
	// DefaultTTL applies to writes without their own TTL.
	// Zero means nodes written without a TTL never expire.
	DefaultTTL time.Duration

	// Compression is the content encoding applied to stored payloads.
	Compression codec.Encoding

	// Timeout bounds every operation. Zero leaves only the caller's deadline.
	Timeout time.Duration

	// Archive is an optional cold-storage fallback for reads.
	Archive Archive

	// Logger receives operational logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records operation metrics when set.
	Metrics *metric.Registry

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultNodeStoreConfig returns default configuration: no default TTL,
// identity encoding and a 10s operation timeout.
func DefaultNodeStoreConfig() *NodeStoreConfig {
	return &NodeStoreConfig{
		Compression: codec.EncodingIdentity,
		Timeout:     10 * time.Second,
	}
}

// NodeStore maps opaque string keys to JSON-serializable values, one
// document per key, with optional per-write expiration.
//
// NodeStore holds no locks and spawns no goroutines; concurrent calls are
// independent requests against the repository.
type NodeStore struct {
	repo       NodeRepository
	archive    Archive
	codec      codec.Codec
	defaultTTL time.Duration
	timeout    time.Duration
	logger     *slog.Logger
	metrics    *metric.Registry
	now        func() time.Time
}

// NewNodeStore creates a NodeStore on top of repo.
// The configuration is validated here so misconfiguration fails fast.
func NewNodeStore(repo NodeRepository, cfg *NodeStoreConfig) (*NodeStore, error) {
	if repo == nil {
		return nil, domain.ErrInvalidConfig.WithDetails("repository is required")
	}
	if cfg == nil {
		cfg = DefaultNodeStoreConfig()
	}
	if cfg.DefaultTTL < 0 {
		return nil, domain.ErrInvalidConfig.WithDetails("default ttl must not be negative")
	}
	if cfg.Timeout < 0 {
		return nil, domain.ErrInvalidConfig.WithDetails("timeout must not be negative")
	}

	c, err := codec.NewWithType(cfg.Compression)
	if err != nil {
		return nil, domain.ErrInvalidConfig.WithCause(err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &NodeStore{
		repo:       repo,
		archive:    cfg.Archive,
		codec:      c,
		defaultTTL: cfg.DefaultTTL,
		timeout:    cfg.Timeout,
		logger:     logger.With("component", "nodestore"),
		metrics:    cfg.Metrics,
		now:        now,
	}, nil
}

// SetOption customizes a single Set call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl    time.Duration
	hasTTL bool
}

// WithTTL overrides the default TTL for one write. A zero TTL makes the
// node eligible for removal immediately.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
		o.hasTTL = true
	}
}

// ============================================================================
// Write Operations
// ============================================================================

// Set serializes value to JSON and atomically replaces the node for id.
//
// The expiration is computed from the TTL given with WithTTL, else the
// configured default TTL, else the node never expires.
func (s *NodeStore) Set(ctx context.Context, id string, value any, opts ...SetOption) (err error) {
	start := time.Now()
	defer func() { s.record("set", start, resultOf(err)) }()

	if err := domain.ValidateID(id); err != nil {
		return err
	}

	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.hasTTL && o.ttl < 0 {
		return domain.ErrInvalidArgument.WithDetails("ttl must not be negative")
	}

	raw, err := encodeValue(value)
	if err != nil {
		return domain.ErrSerialization.WithDetailsf("id %q", id).WithCause(err)
	}

	data, enc, err := codec.Compact(s.codec, raw)
	if err != nil {
		return domain.ErrSerialization.WithDetailsf("id %q: %s", id, s.codec.Encoding()).WithCause(err)
	}
	s.observeSize("encoded", len(raw))
	s.observeSize("stored", len(data))

	node := &domain.Node{
		ID:              id,
		Data:            data,
		ContentEncoding: string(enc),
	}
	if ttl, ok := s.effectiveTTL(o); ok {
		node.ExpiresAt = s.now().Add(ttl)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Replace(ctx, node); err != nil {
		return s.backendError("set", err, "id", id)
	}
	return nil
}

// Delete removes the node for id. Deleting a missing id is not an error.
func (s *NodeStore) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.record("delete", start, resultOf(err)) }()

	if err := domain.ValidateID(id); err != nil {
		return err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.backendError("delete", err, "id", id)
	}
	return nil
}

// DeleteMany removes the nodes for ids in one request.
// Missing ids are ignored.
func (s *NodeStore) DeleteMany(ctx context.Context, ids []string) (err error) {
	start := time.Now()
	defer func() { s.record("delete_many", start, resultOf(err)) }()

	uniq, err := uniqueIDs(ids)
	if err != nil {
		return err
	}
	if len(uniq) == 0 {
		return nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.DeleteMany(ctx, uniq); err != nil {
		return s.backendError("delete_many", err, "count", len(uniq))
	}
	return nil
}

// ============================================================================
// Read Operations
// ============================================================================

// Get returns the decoded value for id. The boolean is false when no node
// exists (never written, deleted, or removed by the engine after expiry);
// absence is not an error.
//
// A failed archive read returns an error matching ErrArchiveUnavailable;
// it also matches ErrBackendUnavailable, like primary store failures.
//
// Numbers decode as json.Number.
func (s *NodeStore) Get(ctx context.Context, id string) (value any, found bool, err error) {
	start := time.Now()
	defer func() { s.record("get", start, lookupResult(found, err)) }()

	raw, found, err := s.load(ctx, id)
	if err != nil || !found {
		return nil, false, err
	}

	value, err = decodeValue(raw)
	if err != nil {
		return nil, false, s.corruptionError(err, id)
	}
	return value, true, nil
}

// GetInto decodes the value for id into dst, which must be a non-nil
// pointer. It reports whether the node was found.
func (s *NodeStore) GetInto(ctx context.Context, id string, dst any) (found bool, err error) {
	start := time.Now()
	defer func() { s.record("get", start, lookupResult(found, err)) }()

	raw, found, err := s.load(ctx, id)
	if err != nil || !found {
		return false, err
	}

	// raw is valid JSON here, so failures are destination mismatches.
	if err := decodeInto(raw, dst); err != nil {
		return false, err
	}
	return true, nil
}

// GetMany fetches all ids in one bulk request and returns a map holding
// an entry for each id that was found. Duplicate ids are tolerated.
//
// A node that fails to decode does not abort the batch: the decoded
// entries are returned together with an ErrCorruption error naming the
// failing ids. Backend failures return a nil map.
func (s *NodeStore) GetMany(ctx context.Context, ids []string) (values map[string]any, err error) {
	start := time.Now()
	defer func() { s.record("get_many", start, resultOf(err)) }()

	uniq, err := uniqueIDs(ids)
	if err != nil {
		return nil, err
	}
	values = make(map[string]any, len(uniq))
	if len(uniq) == 0 {
		return values, nil
	}

	fetchCtx, cancel := s.withTimeout(ctx)
	nodes, err := s.repo.FindMany(fetchCtx, uniq)
	cancel()
	if err != nil {
		return nil, s.backendError("get_many", err, "count", len(uniq))
	}

	requested := make(map[string]struct{}, len(uniq))
	for _, id := range uniq {
		requested[id] = struct{}{}
	}

	var corrupt []string
	var firstCause error
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if _, ok := requested[node.ID]; !ok {
			continue
		}
		v, err := decodeNode(node)
		if err != nil {
			s.logger.Error("corrupt node in batch", "id", node.ID, "error", err)
			corrupt = append(corrupt, node.ID)
			if firstCause == nil {
				firstCause = err
			}
			continue
		}
		values[node.ID] = v
		delete(requested, node.ID)
	}
	for _, id := range corrupt {
		delete(requested, id)
	}

	if s.archive != nil && len(requested) > 0 {
		for _, id := range uniq {
			if _, missing := requested[id]; !missing {
				continue
			}
			raw, found, err := s.fetchArchived(ctx, id)
			if err != nil {
				if domain.IsDomainError(err, domain.ErrCorruption.Code) {
					corrupt = append(corrupt, id)
					if firstCause == nil {
						firstCause = err
					}
					continue
				}
				return nil, err
			}
			if !found {
				continue
			}
			v, err := decodeValue(raw)
			if err != nil {
				corrupt = append(corrupt, id)
				if firstCause == nil {
					firstCause = err
				}
				continue
			}
			values[id] = v
		}
	}

	if len(corrupt) > 0 {
		return values, domain.ErrCorruption.
			WithDetails("ids: " + strings.Join(corrupt, ", ")).
			WithCause(firstCause)
	}
	return values, nil
}

// load fetches the raw JSON payload for id, consulting the archive on a miss.
func (s *NodeStore) load(ctx context.Context, id string) ([]byte, bool, error) {
	if err := domain.ValidateID(id); err != nil {
		return nil, false, err
	}

	findCtx, cancel := s.withTimeout(ctx)
	node, err := s.repo.Find(findCtx, id)
	cancel()

	switch {
	case errors.Is(err, domain.ErrNodeNotFound):
		if s.archive == nil {
			return nil, false, nil
		}
		return s.fetchArchived(ctx, id)
	case err != nil:
		return nil, false, s.backendError("get", err, "id", id)
	}

	raw, err := unwrapPayload(node)
	if err != nil {
		return nil, false, s.corruptionError(err, id)
	}
	return raw, true, nil
}

// ============================================================================
// Lifecycle
// ============================================================================

// Ping checks connectivity with the underlying store.
func (s *NodeStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Ping(ctx); err != nil {
		return s.backendError("ping", err)
	}
	return nil
}

// Close releases the underlying store connection.
func (s *NodeStore) Close() error {
	return s.repo.Close()
}

// ============================================================================
// Helpers
// ============================================================================

func (s *NodeStore) effectiveTTL(o setOptions) (time.Duration, bool) {
	if o.hasTTL {
		return o.ttl, true
	}
	if s.defaultTTL > 0 {
		return s.defaultTTL, true
	}
	return 0, false
}

func (s *NodeStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// backendError maps a repository failure to ErrBackendUnavailable,
// keeping domain errors the repository already classified.
func (s *NodeStore) backendError(op string, err error, attrs ...any) error {
	s.logger.Warn("backend operation failed", append([]any{"op", op, "error", err}, attrs...)...)

	var de *domain.DomainError
	if errors.As(err, &de) && de.Code != domain.ErrNodeNotFound.Code {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrBackendUnavailable.WithDetails(op + " timed out").WithCause(err)
	}
	return domain.ErrBackendUnavailable.WithDetails(op).WithCause(err)
}

func (s *NodeStore) corruptionError(err error, id string) error {
	if domain.IsDomainError(err, domain.ErrCorruption.Code) {
		return err
	}
	s.logger.Error("corrupt node", "id", id, "error", err)
	return domain.ErrCorruption.WithDetailsf("id %q", id).WithCause(err)
}

func (s *NodeStore) record(op string, start time.Time, result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordOperation(op, result)
	s.metrics.ObserveOperationDuration(op, time.Since(start).Seconds())
}

func (s *NodeStore) observeSize(stage string, n int) {
	if s.metrics != nil {
		s.metrics.ObservePayloadBytes(stage, n)
	}
}

func resultOf(err error) string {
	if err != nil {
		return metric.ResultError
	}
	return metric.ResultOK
}

func lookupResult(found bool, err error) string {
	switch {
	case err != nil:
		return metric.ResultError
	case !found:
		return metric.ResultAbsent
	default:
		return metric.ResultOK
	}
}

// uniqueIDs validates ids and drops duplicates, keeping first-seen order.
func uniqueIDs(ids []string) ([]string, error) {
	seen := make(map[string]struct{}, len(ids))
	uniq := make([]string, 0, len(ids))
	for i, id := range ids {
		if err := domain.ValidateID(id); err != nil {
			return nil, domain.ErrInvalidArgument.WithDetails(fmt.Sprintf("ids[%d]", i)).WithCause(err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}
	return uniq, nil
}
