package config

import (
	"fmt"

	"github.com/yndnr/nodestore-go/internal/infra/confloader"
)

// Load builds the configuration from defaults, the optional YAML file at
// path, NODESTORE_* environment variables and overrides (in increasing
// priority), then verifies it.
func Load(path string, overrides map[string]any) (*Config, error) {
	cfg := Default()

	loader := confloader.NewLoader(
		confloader.WithConfigFile(path),
		confloader.WithOverrides(overrides),
	)
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
