// Package service provides the NodeStore domain service.
//
// NodeStore owns the payload encoding discipline: values are serialized
// to UTF-8 JSON, optionally compressed, and handed to a NodeRepository
// as a single document per key. Repositories are injected, so the same
// service runs against MongoDB, Redis, Badger or the in-memory engine.
//
// NodeStore is stateless and safe for concurrent use.
package service
