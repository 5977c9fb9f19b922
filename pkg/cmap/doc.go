// Package cmap provides a concurrent-safe map keyed by string, split into
// independently locked shards.
//
// Batch operations group their keys by shard and take each shard lock
// once, which keeps multi-key reads and deletes of the in-memory node
// repository cheap under contention.
//
//	m := cmap.New[*domain.Node]()
//	m.Set(node.ID, node)
//	found := m.GetMany([]string{"a", "b"})
package cmap
