package config

import (
	"strings"

	"github.com/yndnr/nodestore-go/internal/telemetry/logger"
)

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging and `config show` without exposing secrets.
func Sanitize(cfg *Config) *Config {
	sanitized := *cfg

	sanitized.Mongo.URI = logger.RedactURI(sanitized.Mongo.URI)
	if sanitized.Redis.Password != "" {
		sanitized.Redis.Password = maskSecret(sanitized.Redis.Password)
	}
	if sanitized.Archive.AccessKeyID != "" {
		sanitized.Archive.AccessKeyID = maskSecret(sanitized.Archive.AccessKeyID)
	}
	if sanitized.Archive.SecretAccessKey != "" {
		sanitized.Archive.SecretAccessKey = maskSecret(sanitized.Archive.SecretAccessKey)
	}

	return &sanitized
}

// maskSecret masks a secret value for safe logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}
