package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/nodestore-go/internal/telemetry/logger"
	"github.com/yndnr/nodestore-go/pkg/codec"
)

// Verify validates the configuration. Only the section of the selected
// backend is checked.
func Verify(cfg *Config) error {
	if err := verifyStore(&cfg.Store); err != nil {
		return err
	}

	var err error
	switch cfg.Store.Backend {
	case BackendMongo:
		err = verifyMongo(&cfg.Mongo)
	case BackendRedis:
		err = verifyRedis(&cfg.Redis)
	case BackendBadger:
		err = verifyBadger(&cfg.Badger)
	case BackendMemory:
		err = verifyMemory(&cfg.Memory)
	}
	if err != nil {
		return err
	}

	if err := verifyArchive(&cfg.Archive); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyStore(cfg *StoreSection) error {
	switch cfg.Backend {
	case BackendMongo, BackendRedis, BackendBadger, BackendMemory:
	case "":
		return errors.New("store.backend is required")
	default:
		return fmt.Errorf("store.backend %q is not one of mongo, redis, badger, memory", cfg.Backend)
	}

	if cfg.DefaultTTL < 0 {
		return errors.New("store.default_ttl must not be negative")
	}
	if cfg.Timeout < 0 {
		return errors.New("store.timeout must not be negative")
	}
	if _, err := codec.Parse(cfg.Compression); err != nil {
		return fmt.Errorf("store.compression: %w", err)
	}
	return nil
}

func verifyMongo(cfg *MongoSection) error {
	if cfg.URI == "" {
		return errors.New("mongo.uri is required")
	}
	// Seed lists (host1,host2) are not valid URL hosts, so only the
	// scheme is checked here; the driver parses the rest.
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return fmt.Errorf("mongo.uri %s must use the mongodb or mongodb+srv scheme", logger.RedactURI(cfg.URI))
	}
	if cfg.Database == "" {
		return errors.New("mongo.database is required")
	}
	if cfg.Collection == "" {
		return errors.New("mongo.collection is required")
	}
	if strings.ContainsAny(cfg.Database, `/\. "$`) {
		return fmt.Errorf("mongo.database %q contains invalid characters", cfg.Database)
	}
	if strings.HasPrefix(cfg.Collection, "system.") || strings.Contains(cfg.Collection, "$") {
		return fmt.Errorf("mongo.collection %q is not a valid collection name", cfg.Collection)
	}
	if cfg.ConnectTimeout < 0 {
		return errors.New("mongo.connect_timeout must not be negative")
	}
	return nil
}

func verifyRedis(cfg *RedisSection) error {
	if cfg.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if cfg.DB < 0 {
		return errors.New("redis.db must not be negative")
	}
	if cfg.PoolSize < 0 {
		return errors.New("redis.pool_size must not be negative")
	}
	return nil
}

func verifyBadger(cfg *BadgerSection) error {
	if cfg.Dir == "" {
		return errors.New("badger.dir is required")
	}

	if cfg.GCThreshold <= 0 || cfg.GCThreshold >= 1 {
		return errors.New("badger.gc_threshold must be between 0 and 1")
	}
	if cfg.GCInterval < 0 {
		return errors.New("badger.gc_interval must not be negative")
	}
	return nil
}

func verifyMemory(cfg *MemorySection) error {
	if cfg.SweepInterval <= 0 {
		return errors.New("memory.sweep_interval must be positive")
	}
	return nil
}

func verifyArchive(cfg *ArchiveSection) error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.Bucket == "" {
		return errors.New("archive.bucket is required when the archive is enabled")
	}
	if cfg.RetryAttempts < 0 {
		return errors.New("archive.retry_attempts must not be negative")
	}
	if (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == "") {
		return errors.New("archive.access_key_id and archive.secret_access_key must be set together")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if cfg.Level != "" && !logger.ValidLevel(cfg.Level) {
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "", "json", "text", "console":
		return nil
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
}
