// Package logger provides structured logging for the node store.
//
//   - logger.go: log/slog handler setup and runtime level control
//   - context.go: context-aware logging with operation IDs
//   - redact.go: masking of credentials and connection-string passwords
//
// Storage engines and the NodeStore take a *slog.Logger directly; this
// package only builds one from configuration.
package logger
