package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

// ErrClosed is returned by a Badger store after Close.
var ErrClosed = errors.New("badger store closed")

// Content encodings are persisted in the Badger item's user meta byte.
const (
	metaIdentity byte = 0
	metaZstd     byte = 1
)

// BadgerStore implements service.NodeRepository on an embedded Badger DB.
//
// The node ID is the key and the payload is the value. Expiry is delegated
// to Badger's own TTL support, which has one-second resolution.
type BadgerStore struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	closed     atomic.Bool
	closeOnce  sync.Once
	lastGCTime atomic.Int64 // Unix milliseconds
	gcRuns     atomic.Uint64

	// Prometheus metrics
	metricsLSMSize      prometheus.Gauge
	metricsValueLogSize prometheus.Gauge
	metricsLastGCTime   prometheus.Gauge
	metricsGCRewrites   prometheus.Counter

	// Shutdown
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBadgerStore opens (or creates) a Badger store.
func NewBadgerStore(cfg BadgerConfig, logger *slog.Logger) (*BadgerStore, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, domain.ErrInvalidConfig.WithDetails("badger: dir is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if !cfg.InMemory {
		if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
			return nil, domain.ErrInvalidConfig.WithDetails("badger: create dir").WithCause(err)
		}
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = &badgerLogger{logger: logger}
	opts.BlockCacheSize = cfg.CacheSize
	opts.ValueLogFileSize = cfg.ValueLogFileSize
	opts.NumMemtables = cfg.NumMemtables
	opts.NumLevelZeroTables = cfg.NumLevelZeroTables
	opts.NumLevelZeroTablesStall = cfg.NumLevelZeroTablesStall
	opts.SyncWrites = cfg.SyncWrites
	// Writes are single-key replaces; last writer wins.
	opts.DetectConflicts = false

	db, err := badger.Open(opts)
	if err != nil {
		return nil, domain.ErrBackendUnavailable.WithDetails("badger: open db").WithCause(err)
	}

	s := &BadgerStore{
		db:     db,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		go s.gcLoop()
	} else {
		close(s.doneCh)
	}

	logger.Info("badger store opened",
		"dir", cfg.Dir,
		"in_memory", cfg.InMemory,
		"cache_size", cfg.CacheSize,
		"gc_interval", cfg.GCInterval)

	return s, nil
}

// Replace writes node under its ID, replacing any previous value.
func (s *BadgerStore) Replace(ctx context.Context, node *domain.Node) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	meta, err := encodingMeta(node.ContentEncoding)
	if err != nil {
		return err
	}

	entry := badger.NewEntry([]byte(node.ID), node.Data).WithMeta(meta)
	if node.HasExpiry() {
		entry.ExpiresAt = expiresAtSeconds(node.ExpiresAt)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(entry)
	})
	return s.wrap("replace", err)
}

// Find returns the node for id, or domain.ErrNodeNotFound.
func (s *BadgerStore) Find(ctx context.Context, id string) (*domain.Node, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var node *domain.Node
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		node, err = itemNode(id, item)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, domain.ErrNodeNotFound
	}
	if err != nil {
		return nil, s.wrap("find", err)
	}
	return node, nil
}

// FindMany returns the nodes present for ids, read in one transaction.
func (s *BadgerStore) FindMany(ctx context.Context, ids []string) ([]*domain.Node, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	nodes := make([]*domain.Node, 0, len(ids))
	err := s.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get([]byte(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			node, err := itemNode(id, item)
			if err != nil {
				return err
			}
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, s.wrap("find_many", err)
	}
	return nodes, nil
}

// Delete removes the node for id.
func (s *BadgerStore) Delete(ctx context.Context, id string) error {
	return s.DeleteMany(ctx, []string{id})
}

// DeleteMany removes the nodes for ids in one batch.
func (s *BadgerStore) DeleteMany(ctx context.Context, ids []string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, id := range ids {
		if err := wb.Delete([]byte(id)); err != nil {
			return s.wrap("delete", err)
		}
	}
	return s.wrap("delete", wb.Flush())
}

// Ping reports whether the store is open.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return domain.ErrBackendUnavailable.WithDetails("badger: db closed")
	}
	return nil
}

// GC runs value log garbage collection until nothing is left to rewrite.
// Returns the number of value log files rewritten.
func (s *BadgerStore) GC(ctx context.Context) (int, error) {
	startTime := time.Now()

	rewrites := 0
	for ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.cfg.GCThreshold)
		if err != nil {
			if errors.Is(err, badger.ErrNoRewrite) {
				break
			}
			return rewrites, fmt.Errorf("gc: %w", err)
		}
		rewrites++
	}

	s.lastGCTime.Store(time.Now().UnixMilli())
	s.gcRuns.Add(uint64(rewrites))
	if s.metricsGCRewrites != nil {
		s.metricsGCRewrites.Add(float64(rewrites))
	}

	s.logger.Debug("gc completed",
		"rewrites", rewrites,
		"elapsed", time.Since(startTime))

	return rewrites, nil
}

// Size returns the LSM tree and value log sizes in bytes.
func (s *BadgerStore) Size() (lsm, vlog int64) {
	return s.db.Size()
}

// Close stops the GC loop and closes the database.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		close(s.stopCh)
		<-s.doneCh

		if cerr := s.db.Close(); cerr != nil {
			err = fmt.Errorf("close db: %w", cerr)
		}
		s.logger.Info("badger store closed")
	})
	return err
}

// RegisterMetrics registers Badger size and GC metrics.
// It should be called once, right after NewBadgerStore.
func (s *BadgerStore) RegisterMetrics(registry prometheus.Registerer) *BadgerStore {
	s.metricsLSMSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nodestore",
		Subsystem: "badger",
		Name:      "lsm_size_bytes",
		Help:      "Badger LSM tree size in bytes",
	})

	s.metricsValueLogSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nodestore",
		Subsystem: "badger",
		Name:      "value_log_size_bytes",
		Help:      "Badger value log size in bytes",
	})

	s.metricsLastGCTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nodestore",
		Subsystem: "badger",
		Name:      "last_gc_timestamp_seconds",
		Help:      "Unix timestamp of the last Badger GC run",
	})

	s.metricsGCRewrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nodestore",
		Subsystem: "badger",
		Name:      "gc_rewrites_total",
		Help:      "Total value log files rewritten by Badger garbage collection",
	})

	registry.MustRegister(
		s.metricsLSMSize,
		s.metricsValueLogSize,
		s.metricsLastGCTime,
		s.metricsGCRewrites,
	)

	s.updateMetrics()
	return s
}

func (s *BadgerStore) updateMetrics() {
	if s.metricsLSMSize == nil {
		return
	}
	lsm, vlog := s.db.Size()
	s.metricsLSMSize.Set(float64(lsm))
	s.metricsValueLogSize.Set(float64(vlog))
	if ms := s.lastGCTime.Load(); ms > 0 {
		s.metricsLastGCTime.Set(float64(ms) / 1000.0)
	}
}

// gcLoop runs periodic garbage collection and refreshes size metrics.
func (s *BadgerStore) gcLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.GC(ctx); err != nil {
				s.logger.Error("auto gc failed", "error", err)
			}
			cancel()
			s.updateMetrics()

		case <-s.stopCh:
			return
		}
	}
}

func (s *BadgerStore) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed.Load() {
		return domain.ErrBackendUnavailable.WithCause(ErrClosed)
	}
	return nil
}

func (s *BadgerStore) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsDomainError(err, "") {
		return err
	}
	if errors.Is(err, badger.ErrDBClosed) {
		err = ErrClosed
	}
	return domain.ErrBackendUnavailable.WithDetails("badger: " + op).WithCause(err)
}

func itemNode(id string, item *badger.Item) (*domain.Node, error) {
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	node := &domain.Node{
		ID:              id,
		Data:            data,
		ContentEncoding: metaEncoding(item.UserMeta()),
	}
	if exp := item.ExpiresAt(); exp > 0 {
		node.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	}
	return node, nil
}

func encodingMeta(enc string) (byte, error) {
	switch codec.Encoding(enc) {
	case codec.EncodingIdentity:
		return metaIdentity, nil
	case codec.EncodingZstd:
		return metaZstd, nil
	default:
		return 0, domain.ErrInvalidArgument.WithDetailsf("badger: unsupported content encoding %q", enc)
	}
}

// metaEncoding maps a user meta byte back to its encoding name. Unknown
// bytes yield a name no codec accepts, so the read reports corruption.
func metaEncoding(meta byte) string {
	switch meta {
	case metaIdentity:
		return string(codec.EncodingIdentity)
	case metaZstd:
		return string(codec.EncodingZstd)
	default:
		return "meta-" + strconv.Itoa(int(meta))
	}
}

// expiresAtSeconds rounds up to Badger's one-second resolution so a node
// never expires before its deadline.
func expiresAtSeconds(t time.Time) uint64 {
	sec := t.Unix()
	if t.Nanosecond() > 0 {
		sec++
	}
	if sec < 1 {
		sec = 1
	}
	return uint64(sec)
}

// badgerLogger adapts slog.Logger to Badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
