// Package config defines the node store configuration.
//
//   - spec.go: Config struct definition
//   - default.go: default configuration values
//   - verify.go: validation run before any backend is opened
//   - sanitize.go: secret masking for display and logs
//   - load.go: loading through internal/infra/confloader
//
// Configuration is immutable once a store has been opened from it.
package config
