package config

import "time"

// Backend names.
const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config is the root configuration for a node store.
type Config struct {
	Store   StoreSection   `koanf:"store" json:"store" yaml:"store"`
	Mongo   MongoSection   `koanf:"mongo" json:"mongo" yaml:"mongo"`
	Redis   RedisSection   `koanf:"redis" json:"redis" yaml:"redis"`
	Badger  BadgerSection  `koanf:"badger" json:"badger" yaml:"badger"`
	Memory  MemorySection  `koanf:"memory" json:"memory" yaml:"memory"`
	Archive ArchiveSection `koanf:"archive" json:"archive" yaml:"archive"`
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`
}

// StoreSection configures the NodeStore itself.
type StoreSection struct {
	// Backend selects the repository: mongo, redis, badger or memory.
	Backend string `koanf:"backend" json:"backend" yaml:"backend"`

	// DefaultTTL applies to writes without their own TTL. Zero disables it.
	DefaultTTL time.Duration `koanf:"default_ttl" json:"default_ttl" yaml:"default_ttl"`

	// Compression is the payload encoding: none or zstd.
	Compression string `koanf:"compression" json:"compression" yaml:"compression"`

	// Timeout bounds every store operation. Zero disables it.
	Timeout time.Duration `koanf:"timeout" json:"timeout" yaml:"timeout"`
}

// MongoSection configures the MongoDB backend.
type MongoSection struct {
	URI            string        `koanf:"uri" json:"uri" yaml:"uri"`
	Database       string        `koanf:"database" json:"database" yaml:"database"`
	Collection     string        `koanf:"collection" json:"collection" yaml:"collection"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" json:"connect_timeout" yaml:"connect_timeout"`

	// EnsureIndexes creates the expires_at TTL index at startup.
	EnsureIndexes bool `koanf:"ensure_indexes" json:"ensure_indexes" yaml:"ensure_indexes"`
}

// RedisSection configures the Redis backend.
type RedisSection struct {
	Addr        string        `koanf:"addr" json:"addr" yaml:"addr"`
	Password    string        `koanf:"password" json:"password" yaml:"password"`
	DB          int           `koanf:"db" json:"db" yaml:"db"`
	KeyPrefix   string        `koanf:"key_prefix" json:"key_prefix" yaml:"key_prefix"`
	DialTimeout time.Duration `koanf:"dial_timeout" json:"dial_timeout" yaml:"dial_timeout"`
	PoolSize    int           `koanf:"pool_size" json:"pool_size" yaml:"pool_size"`
}

// BadgerSection configures the embedded Badger backend.
type BadgerSection struct {
	Dir                     string        `koanf:"dir" json:"dir" yaml:"dir"`
	GCInterval              time.Duration `koanf:"gc_interval" json:"gc_interval" yaml:"gc_interval"`
	GCThreshold             float64       `koanf:"gc_threshold" json:"gc_threshold" yaml:"gc_threshold"`
	CacheSize               int64         `koanf:"cache_size" json:"cache_size" yaml:"cache_size"`
	ValueLogFileSize        int64         `koanf:"value_log_file_size" json:"value_log_file_size" yaml:"value_log_file_size"`
	NumMemtables            int           `koanf:"num_memtables" json:"num_memtables" yaml:"num_memtables"`
	NumLevelZeroTables      int           `koanf:"num_level_zero_tables" json:"num_level_zero_tables" yaml:"num_level_zero_tables"`
	NumLevelZeroTablesStall int           `koanf:"num_level_zero_tables_stall" json:"num_level_zero_tables_stall" yaml:"num_level_zero_tables_stall"`
	SyncWrites              bool          `koanf:"sync_writes" json:"sync_writes" yaml:"sync_writes"`
}

// MemorySection configures the in-memory backend.
type MemorySection struct {
	SweepInterval time.Duration `koanf:"sweep_interval" json:"sweep_interval" yaml:"sweep_interval"`
}

// ArchiveSection configures the S3 cold-storage fallback.
type ArchiveSection struct {
	Enabled         bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Bucket          string `koanf:"bucket" json:"bucket" yaml:"bucket"`
	Prefix          string `koanf:"prefix" json:"prefix" yaml:"prefix"`
	Region          string `koanf:"region" json:"region" yaml:"region"`
	Endpoint        string `koanf:"endpoint" json:"endpoint" yaml:"endpoint"`
	RetryAttempts   int    `koanf:"retry_attempts" json:"retry_attempts" yaml:"retry_attempts"`
	AccessKeyID     string `koanf:"access_key_id" json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key" json:"secret_access_key" yaml:"secret_access_key"`
	PathStyle       bool   `koanf:"path_style" json:"path_style" yaml:"path_style"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr is the listen address for /metrics. Empty disables the endpoint.
	Addr string `koanf:"addr" json:"addr" yaml:"addr"`
}
