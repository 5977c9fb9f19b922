package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/nodestore-go/internal/core/domain"
	"github.com/yndnr/nodestore-go/pkg/cmap"
)

// DefaultSweepInterval is how often expired nodes are removed.
const DefaultSweepInterval = time.Second

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("memory store closed")

// Store provides in-memory node storage.
type Store struct {
	nodes *cmap.Map[*domain.Node]

	sweepInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger

	mu       sync.RWMutex
	closed   bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// Option configures the Store.
type Option func(*Store)

// WithSweepInterval sets the interval of the expiry sweeper.
// A non-positive interval disables the sweeper.
func WithSweepInterval(d time.Duration) Option {
	return func(s *Store) {
		s.sweepInterval = d
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithShards sets the shard count of the underlying map (power of 2).
func WithShards(n int) Option {
	return func(s *Store) {
		s.nodes = cmap.NewWithShards[*domain.Node](n)
	}
}

// New creates a new in-memory store and starts its sweeper.
func New(opts ...Option) *Store {
	s := &Store{
		nodes:         cmap.New[*domain.Node](),
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
		logger:        slog.Default(),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.sweepInterval > 0 {
		go s.sweepLoop()
	} else {
		close(s.doneCh)
	}

	return s
}

// Replace stores a copy of node, replacing any node with the same ID.
func (s *Store) Replace(ctx context.Context, node *domain.Node) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.nodes.Set(node.ID, node.Clone())
	return nil
}

// Find returns a copy of the node for id. Expired nodes read as absent
// even before the sweeper removes them.
func (s *Store) Find(ctx context.Context, id string) (*domain.Node, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	node, ok := s.nodes.Get(id)
	if !ok || node.IsExpired(s.now()) {
		return nil, domain.ErrNodeNotFound
	}
	return node.Clone(), nil
}

// FindMany returns copies of the live nodes for ids.
func (s *Store) FindMany(ctx context.Context, ids []string) ([]*domain.Node, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}
	now := s.now()
	found := s.nodes.GetMany(ids)
	nodes := make([]*domain.Node, 0, len(found))
	for _, node := range found {
		if !node.IsExpired(now) {
			nodes = append(nodes, node.Clone())
		}
	}
	return nodes, nil
}

// Delete removes the node for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.nodes.Delete(id)
	return nil
}

// DeleteMany removes the nodes for ids.
func (s *Store) DeleteMany(ctx context.Context, ids []string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.nodes.DeleteMany(ids)
	return nil
}

// Ping reports whether the store is open.
func (s *Store) Ping(ctx context.Context) error {
	return s.check(ctx)
}

// Count returns the number of stored nodes, including expired nodes not
// yet swept.
func (s *Store) Count() int {
	return s.nodes.Count()
}

// Sweep removes nodes expired at now and returns how many were removed.
func (s *Store) Sweep(now time.Time) int {
	return s.nodes.DeleteFunc(func(_ string, node *domain.Node) bool {
		return node.IsExpired(now)
	})
}

// Close stops the sweeper and drops all nodes.
func (s *Store) Close() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		close(s.stopCh)
		<-s.doneCh
		s.nodes.Clear()
	})
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// sweepLoop runs periodic expiry sweeps.
func (s *Store) sweepLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.Sweep(s.now()); n > 0 {
				s.logger.Debug("expired nodes swept", "count", n)
			}
		case <-s.stopCh:
			return
		}
	}
}
