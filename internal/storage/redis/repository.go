package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v7"

	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/core/domain"
)

// Config configures the Redis repository.
type Config struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
	PoolSize    int
}

// ConfigFrom converts the redis configuration section.
func ConfigFrom(sec config.RedisSection) Config {
	return Config{
		Addr:        sec.Addr,
		Password:    sec.Password,
		DB:          sec.DB,
		KeyPrefix:   sec.KeyPrefix,
		DialTimeout: sec.DialTimeout,
		PoolSize:    sec.PoolSize,
	}
}

// envelope is the stored JSON value. Data is base64 in JSON.
type envelope struct {
	Data     []byte `json:"data"`
	Encoding string `json:"enc,omitempty"`
	// ExpiresAt is Unix milliseconds; 0 means no expiry.
	ExpiresAt int64 `json:"exp,omitempty"`
}

// Repository stores nodes as Redis strings.
type Repository struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// New connects to Redis and pings it. An unreachable server fails
// construction.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	if cfg.Addr == "" {
		return nil, domain.ErrInvalidConfig.WithDetails("redis: addr is required")
	}
	if cfg.DB < 0 {
		return nil, domain.ErrInvalidConfig.WithDetails("redis: db must not be negative")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
		PoolSize:    cfg.PoolSize,
	})

	r := &Repository{
		client: client,
		prefix: cfg.KeyPrefix,
		logger: logger.With("backend", "redis"),
	}

	if err := r.Ping(ctx); err != nil {
		client.Close()
		return nil, err
	}

	r.logger.Info("redis repository connected", "addr", cfg.Addr, "db", cfg.DB, "key_prefix", cfg.KeyPrefix)
	return r, nil
}

// Replace writes the envelope and its expiry in one transaction.
func (r *Repository) Replace(ctx context.Context, node *domain.Node) error {
	env := envelope{Data: node.Data, Encoding: node.ContentEncoding}
	if node.HasExpiry() {
		env.ExpiresAt = node.ExpiresAt.UnixMilli()
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("redis: encode envelope: %w", err)
	}

	key := r.key(node.ID)
	_, err = r.client.WithContext(ctx).TxPipelined(func(pipe redis.Pipeliner) error {
		pipe.Set(key, value, 0)
		if node.HasExpiry() {
			pipe.PExpireAt(key, node.ExpiresAt)
		}
		return nil
	})
	if err != nil {
		return wrap("replace", err)
	}
	return nil
}

// Find returns the node for id, or domain.ErrNodeNotFound.
func (r *Repository) Find(ctx context.Context, id string) (*domain.Node, error) {
	raw, err := r.client.WithContext(ctx).Get(r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNodeNotFound
	}
	if err != nil {
		return nil, wrap("get", err)
	}
	return decodeEnvelope(id, raw), nil
}

// FindMany returns the nodes present for ids with one MGET.
func (r *Repository) FindMany(ctx context.Context, ids []string) ([]*domain.Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}

	values, err := r.client.WithContext(ctx).MGet(keys...).Result()
	if err != nil {
		return nil, wrap("mget", err)
	}

	nodes := make([]*domain.Node, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		nodes = append(nodes, decodeEnvelope(ids[i], []byte(s)))
	}
	return nodes, nil
}

// Delete removes the key for id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.DeleteMany(ctx, []string{id})
}

// DeleteMany removes the keys for ids with one DEL.
func (r *Repository) DeleteMany(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	if err := r.client.WithContext(ctx).Del(keys...).Err(); err != nil {
		return wrap("del", err)
	}
	return nil
}

// Ping checks connectivity with the server.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.client.WithContext(ctx).Ping().Err(); err != nil {
		return wrap("ping", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) key(id string) string {
	return r.prefix + id
}

// malformedEncoding marks a stored value that is not an envelope. No
// codec accepts it, so reads of that id report corruption while the rest
// of a batch is still served.
const malformedEncoding = "redis-malformed-envelope"

func decodeEnvelope(id string, raw []byte) *domain.Node {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &domain.Node{ID: id, Data: raw, ContentEncoding: malformedEncoding}
	}
	node := &domain.Node{
		ID:              id,
		Data:            env.Data,
		ContentEncoding: env.Encoding,
	}
	if env.ExpiresAt > 0 {
		node.ExpiresAt = time.UnixMilli(env.ExpiresAt).UTC()
	}
	return node
}

func wrap(op string, err error) error {
	return domain.ErrBackendUnavailable.WithDetails("redis: " + op).WithCause(err)
}
