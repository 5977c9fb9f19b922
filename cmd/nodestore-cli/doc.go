// Package main provides the entry point for nodestore-cli.
//
// The CLI reads and writes nodes through any configured backend and
// drives load tests against it:
//
//   - Node access (set, get, mget, delete)
//   - Connectivity checks (ping)
//   - Configuration inspection (config show, config validate)
//   - Concurrent load generation (bench)
//
// Usage:
//
//	nodestore-cli [global flags] command [flags] [args]
//	nodestore-cli --backend redis set evt-1 '{"state":"open"}'
//	nodestore-cli -c nodestore.yaml -o json mget evt-1 evt-2
//	nodestore-cli bench --workers 16 --duration 30s --metrics-addr :9100
package main
