package storage

import (
	"time"

	"github.com/yndnr/nodestore-go/internal/config"
)

// BadgerConfig contains the embedded Badger store's tuning parameters.
type BadgerConfig struct {
	// Dir is the storage directory. Empty with InMemory set runs Badger
	// without touching disk.
	Dir string

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool

	// GCInterval is the interval between automatic value log GC runs.
	// Default: 10m
	GCInterval time.Duration

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5 (rewrite a value log file when 50% of it is stale)
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 64MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 1GB
	ValueLogFileSize int64

	// NumMemtables is the number of memtables.
	// Default: 2
	NumMemtables int

	// NumLevelZeroTables is the number of Level 0 tables before compaction.
	// Default: 5
	NumLevelZeroTables int

	// NumLevelZeroTablesStall is the number of Level 0 tables that triggers write stall.
	// Default: 10
	NumLevelZeroTablesStall int

	// SyncWrites enables sync writes (fsync after each write).
	// Default: false
	SyncWrites bool
}

// DefaultBadgerConfig returns the default Badger configuration for dir.
func DefaultBadgerConfig(dir string) BadgerConfig {
	return BadgerConfig{
		Dir:                     dir,
		GCInterval:              10 * time.Minute,
		GCThreshold:             0.5,
		CacheSize:               64 << 20, // 64MB
		ValueLogFileSize:        1 << 30,  // 1GB
		NumMemtables:            2,
		NumLevelZeroTables:      5,
		NumLevelZeroTablesStall: 10,
	}
}

// BadgerConfigFrom converts the badger configuration section.
// Zero tuning values fall back to the defaults. A zero GCInterval
// disables value-log GC.
func BadgerConfigFrom(sec config.BadgerSection) BadgerConfig {
	cfg := DefaultBadgerConfig(sec.Dir)
	cfg.GCInterval = sec.GCInterval
	if sec.GCThreshold > 0 {
		cfg.GCThreshold = sec.GCThreshold
	}
	if sec.CacheSize > 0 {
		cfg.CacheSize = sec.CacheSize
	}
	if sec.ValueLogFileSize > 0 {
		cfg.ValueLogFileSize = sec.ValueLogFileSize
	}
	if sec.NumMemtables > 0 {
		cfg.NumMemtables = sec.NumMemtables
	}
	if sec.NumLevelZeroTables > 0 {
		cfg.NumLevelZeroTables = sec.NumLevelZeroTables
	}
	if sec.NumLevelZeroTablesStall > 0 {
		cfg.NumLevelZeroTablesStall = sec.NumLevelZeroTablesStall
	}
	cfg.SyncWrites = sec.SyncWrites
	return cfg
}
