// Package memory provides an in-memory NodeRepository.
//
// Nodes live in a sharded concurrent map. A background sweeper removes
// expired nodes on a fixed interval, the way a document database's TTL
// monitor does; reads also hide nodes whose expiry has passed.
//
// The store is used by tests and local runs; nothing survives Close.
package memory
