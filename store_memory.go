package igvf

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const memoryStoreShards = 16

// memoryEntry holds either a plain value or a field map, plus the expiry
// shared by the whole entry.
type memoryEntry struct {
	value     string
	fields    map[string]string
	expiresAt time.Time
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type memoryShard struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// MemoryStore is an in-process Store for development and tests. Keys are
// spread over fixed shards to keep lock contention down under concurrent
// access. Expired entries are removed lazily on lookup.
type MemoryStore struct {
	shards [memoryStoreShards]*memoryShard

	now func() time.Time
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{now: time.Now}
	for i := range ms.shards {
		ms.shards[i] = &memoryShard{entries: make(map[string]*memoryEntry)}
	}
	return ms
}

func (ms *MemoryStore) shardFor(key string) *memoryShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return ms.shards[h.Sum32()%memoryStoreShards]
}

func (ms *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	shard := ms.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[key]
	if !ok {
		return "", false, nil
	}
	if entry.expired(ms.now()) {
		delete(shard.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (ms *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	shard := ms.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry := &memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = ms.now().Add(ttl)
	}
	shard.entries[key] = entry
	return nil
}

func (ms *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	shard := ms.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[key]
	if !ok || entry.fields == nil {
		return "", false, nil
	}
	if entry.expired(ms.now()) {
		delete(shard.entries, key)
		return "", false, nil
	}
	value, ok := entry.fields[field]
	return value, ok, nil
}

func (ms *MemoryStore) HSet(_ context.Context, key, field, value string) error {
	shard := ms.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[key]
	if !ok || entry.expired(ms.now()) {
		entry = &memoryEntry{fields: make(map[string]string)}
		shard.entries[key] = entry
	}
	if entry.fields == nil {
		entry.fields = make(map[string]string)
	}
	entry.fields[field] = value
	return nil
}

func (ms *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	shard := ms.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	entry, ok := shard.entries[key]
	if !ok {
		return nil
	}
	if ttl > 0 {
		entry.expiresAt = ms.now().Add(ttl)
	} else {
		entry.expiresAt = time.Time{}
	}
	return nil
}
