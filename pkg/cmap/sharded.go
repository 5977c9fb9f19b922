package cmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShardCount is the default number of shards.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map from string keys to V.
type Map[V any] struct {
	shards    []*shard[V]
	shardMask uint64
	seed      maphash.Seed
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// New creates a map with DefaultShardCount shards.
func New[V any]() *Map[V] {
	return NewWithShards[V](DefaultShardCount)
}

// NewWithShards creates a map with shardCount shards. Counts that are not
// a positive power of 2 fall back to DefaultShardCount.
func NewWithShards[V any](shardCount int) *Map[V] {
	if shardCount <= 0 || shardCount&(shardCount-1) != 0 {
		shardCount = DefaultShardCount
	}

	m := &Map[V]{
		shards:    make([]*shard[V], shardCount),
		shardMask: uint64(shardCount - 1),
		seed:      maphash.MakeSeed(),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardIndex(key string) int {
	return int(maphash.String(m.seed, key) & m.shardMask)
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[m.shardIndex(key)]
}

// groupKeys buckets keys by shard index, keeping their order.
func (m *Map[V]) groupKeys(keys []string) map[int][]string {
	groups := make(map[int][]string)
	for _, k := range keys {
		i := m.shardIndex(k)
		groups[i] = append(groups[i], k)
	}
	return groups
}

// Get returns the value stored for key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// GetMany returns the entries present for keys. Each shard is read-locked
// once. Missing keys are omitted.
func (m *Map[V]) GetMany(keys []string) map[string]V {
	found := make(map[string]V, len(keys))
	for i, group := range m.groupKeys(keys) {
		s := m.shards[i]
		s.mu.RLock()
		for _, k := range group {
			if v, ok := s.items[k]; ok {
				found[k] = v
			}
		}
		s.mu.RUnlock()
	}
	return found
}

// Set stores value under key, replacing any previous value.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Delete removes key. Missing keys are ignored.
func (m *Map[V]) Delete(key string) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// DeleteMany removes keys and returns how many were present. Each shard
// is write-locked once.
func (m *Map[V]) DeleteMany(keys []string) int {
	removed := 0
	for i, group := range m.groupKeys(keys) {
		s := m.shards[i]
		s.mu.Lock()
		for _, k := range group {
			if _, ok := s.items[k]; ok {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Count returns the number of entries.
func (m *Map[V]) Count() int {
	count := 0
	for _, s := range m.shards {
		s.mu.RLock()
		count += len(s.items)
		s.mu.RUnlock()
	}
	return count
}

// Clear removes all entries.
func (m *Map[V]) Clear() {
	for _, s := range m.shards {
		s.mu.Lock()
		s.items = make(map[string]V)
		s.mu.Unlock()
	}
}
