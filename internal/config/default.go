package config

import "time"

// Default configuration values.
const (
	DefaultBackend     = BackendMongo
	DefaultCompression = "zstd"
	DefaultTimeout     = 10 * time.Second

	DefaultMongoURI            = "mongodb://127.0.0.1:27017"
	DefaultMongoDatabase       = "nodestore"
	DefaultMongoCollection     = "nodes"
	DefaultMongoConnectTimeout = 10 * time.Second

	DefaultRedisAddr        = "127.0.0.1:6379"
	DefaultRedisKeyPrefix   = "node:"
	DefaultRedisDialTimeout = 5 * time.Second

	DefaultBadgerDir = "/var/lib/nodestore/badger"

	DefaultSweepInterval = time.Second

	// DefaultArchivePrefix keeps archived objects keyed by the bare node id.
	DefaultArchivePrefix  = ""
	DefaultArchiveRegion  = "us-east-1"
	DefaultArchiveRetries = 3

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Store: StoreSection{
			Backend:     DefaultBackend,
			Compression: DefaultCompression,
			Timeout:     DefaultTimeout,
		},
		Mongo: MongoSection{
			URI:            DefaultMongoURI,
			Database:       DefaultMongoDatabase,
			Collection:     DefaultMongoCollection,
			ConnectTimeout: DefaultMongoConnectTimeout,
			EnsureIndexes:  true,
		},
		Redis: RedisSection{
			Addr:        DefaultRedisAddr,
			KeyPrefix:   DefaultRedisKeyPrefix,
			DialTimeout: DefaultRedisDialTimeout,
		},
		Badger: BadgerSection{
			Dir:                     DefaultBadgerDir,
			GCInterval:              10 * time.Minute,
			GCThreshold:             0.5,
			CacheSize:               64 << 20, // 64MB
			ValueLogFileSize:        1 << 30,  // 1GB
			NumMemtables:            2,
			NumLevelZeroTables:      5,
			NumLevelZeroTablesStall: 10,
		},
		Memory: MemorySection{
			SweepInterval: DefaultSweepInterval,
		},
		Archive: ArchiveSection{
			Prefix:        DefaultArchivePrefix,
			Region:        DefaultArchiveRegion,
			RetryAttempts: DefaultArchiveRetries,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
