package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Store struct {
		Backend    string        `koanf:"backend"`
		DefaultTTL time.Duration `koanf:"default_ttl"`
		Timeout    time.Duration `koanf:"timeout"`
	} `koanf:"store"`
	Mongo struct {
		URI            string        `koanf:"uri"`
		ConnectTimeout time.Duration `koanf:"connect_timeout"`
		EnsureIndexes  bool          `koanf:"ensure_indexes"`
	} `koanf:"mongo"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/path/to/config.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.filePath != "/path/to/config.yaml" {
		t.Errorf("filePath = %q", l.filePath)
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: mongo
mongo:
  uri: "mongodb://localhost:27017"
  ensure_indexes: true
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := l.GetString("mongo.uri"); got != "mongodb://localhost:27017" {
		t.Errorf("mongo.uri = %q", got)
	}
	if !l.GetBool("mongo.ensure_indexes") {
		t.Error("mongo.ensure_indexes should be true")
	}

	if err := l.LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Error("LoadFile() should return error for nonexistent file")
	}
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") should not error, got: %v", err)
	}
}

func TestLoader_LoadEnv(t *testing.T) {
	t.Setenv("NODESTORE_MONGO_CONNECT_TIMEOUT", "5s")
	t.Setenv("NODESTORE_STORE_BACKEND", "redis")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}

	if got := l.GetString("mongo.connect_timeout"); got != "5s" {
		t.Errorf("mongo.connect_timeout = %q, want 5s", got)
	}
	if got := l.GetString("store.backend"); got != "redis" {
		t.Errorf("store.backend = %q, want redis", got)
	}
}

func TestLoader_LoadEnv_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_STORE_BACKEND", "badger")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := l.GetString("store.backend"); got != "badger" {
		t.Errorf("store.backend = %q, want badger", got)
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
store:
  backend: mongo
  timeout: 3s
`)
	t.Setenv("NODESTORE_STORE_BACKEND", "redis")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{"store.timeout": "7s"}),
	)

	var cfg testConfig
	cfg.Mongo.URI = "mongodb://default"
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.Backend != "redis" {
		t.Errorf("Backend = %q, want redis (env should override file)", cfg.Store.Backend)
	}
	if cfg.Store.Timeout != 7*time.Second {
		t.Errorf("Timeout = %v, want 7s (overrides win)", cfg.Store.Timeout)
	}
	if cfg.Mongo.URI != "mongodb://default" {
		t.Errorf("URI = %q, defaults should survive when no source sets them", cfg.Mongo.URI)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load()")
	}
}

func TestLoader_Unmarshal_Durations(t *testing.T) {
	path := writeConfig(t, `
store:
  default_ttl: 60
  timeout: "1m30s"
mongo:
  connect_timeout: 2.5
`)

	l := NewLoader(WithConfigFile(path))
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Store.DefaultTTL != 60*time.Second {
		t.Errorf("DefaultTTL = %v, want 60s (plain numbers are seconds)", cfg.Store.DefaultTTL)
	}
	if cfg.Store.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 1m30s", cfg.Store.Timeout)
	}
	if cfg.Mongo.ConnectTimeout != 2500*time.Millisecond {
		t.Errorf("ConnectTimeout = %v, want 2.5s", cfg.Mongo.ConnectTimeout)
	}
}

func TestLoader_EnvSeconds(t *testing.T) {
	t.Setenv("NODESTORE_STORE_DEFAULT_TTL", "120")

	l := NewLoader()
	var cfg testConfig
	if err := l.Load(&cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Store.DefaultTTL != 2*time.Minute {
		t.Errorf("DefaultTTL = %v, want 2m", cfg.Store.DefaultTTL)
	}
}

func TestLoader_MapAccessors(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{
		"redis.db":   3,
		"log.level":  "debug",
		"store.flag": true,
	}); err != nil {
		t.Fatal(err)
	}

	if got := l.GetInt("redis.db"); got != 3 {
		t.Errorf("GetInt(redis.db) = %d, want 3", got)
	}
	if got := l.Get("log.level"); got != "debug" {
		t.Errorf("Get(log.level) = %v", got)
	}
	if !l.GetBool("store.flag") {
		t.Error("GetBool(store.flag) should be true")
	}
	if len(l.Keys()) != 3 {
		t.Errorf("Keys() = %v, want 3 keys", l.Keys())
	}
	if _, ok := l.All()["redis.db"]; !ok {
		t.Error("All() should contain flattened keys")
	}
}
