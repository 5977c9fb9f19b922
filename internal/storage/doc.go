// Package storage provides the node repositories and selects one from
// configuration.
//
// Backends:
//
//   - mongo: MongoDB documents with a server-side TTL index (default)
//   - redis: Redis strings with PEXPIREAT expiry
//   - badger: embedded Badger DB with native entry TTL
//   - memory: sharded in-process map with a background sweeper
//
// The Badger store lives in this package; the others are subpackages.
// Open returns the backend named by store.backend, already connected.
// OpenArchive returns the optional S3 cold-storage fallback.
package storage
