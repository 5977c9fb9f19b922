package mongo

import (
	"time"

	"github.com/yndnr/nodestore-go/internal/config"
	"github.com/yndnr/nodestore-go/internal/core/domain"
)

// TTLIndexName is the name of the expiry index.
const TTLIndexName = "expires_at_ttl"

// Config configures the MongoDB repository.
type Config struct {
	// URI is the connection string (mongodb:// or mongodb+srv://).
	URI string

	// Database and Collection locate the node documents.
	Database   string
	Collection string

	// ConnectTimeout bounds the initial connect and ping.
	ConnectTimeout time.Duration

	// EnsureIndexes creates the TTL index at construction.
	EnsureIndexes bool
}

// ConfigFrom converts the mongo configuration section.
func ConfigFrom(sec config.MongoSection) Config {
	return Config{
		URI:            sec.URI,
		Database:       sec.Database,
		Collection:     sec.Collection,
		ConnectTimeout: sec.ConnectTimeout,
		EnsureIndexes:  sec.EnsureIndexes,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URI == "" {
		return domain.ErrInvalidConfig.WithDetails("mongo: uri is required")
	}
	if c.Database == "" {
		return domain.ErrInvalidConfig.WithDetails("mongo: database is required")
	}
	if c.Collection == "" {
		return domain.ErrInvalidConfig.WithDetails("mongo: collection is required")
	}
	if c.ConnectTimeout < 0 {
		return domain.ErrInvalidConfig.WithDetails("mongo: connect_timeout must not be negative")
	}
	return nil
}
