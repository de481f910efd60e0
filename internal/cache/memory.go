package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	count     int64
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// DefaultSweepInterval 是内存缓存清理过期条目的最小间隔。
const DefaultSweepInterval = time.Minute

// MemoryStore 是进程内的缓存实现，适用于单实例部署与测试。
// 写入时按 sweepEvery 间隔顺带清理所有过期条目。
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	now        func() time.Time
	sweepEvery time.Duration
	lastSweep  time.Time
}

// NewMemoryStore 创建空的内存缓存。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		now:        time.Now,
		sweepEvery: DefaultSweepInterval,
	}
}

// Len 返回当前保存的条目数，包含尚未清理的过期条目。
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// sweep 删除过期条目，调用方需持有锁。
func (m *MemoryStore) sweep(now time.Time) {
	if !m.lastSweep.IsZero() && now.Sub(m.lastSweep) < m.sweepEvery {
		return
	}
	m.lastSweep = now
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
		}
	}
}

// Get 返回未过期的缓存值，过期条目会被顺带清除。
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if entry.expired(m.now()) {
		delete(m.entries, key)
		return nil, ErrMiss
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set 写入缓存，ttl<=0 表示不过期。
func (m *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	m.entries[key] = entry
	return nil
}

// Delete 删除缓存条目。
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Incr 累加计数，窗口过期后重新从 1 开始。
func (m *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	entry, ok := m.entries[key]
	if !ok || entry.expired(now) {
		entry = memoryEntry{}
		if window > 0 {
			entry.expiresAt = now.Add(window)
		}
	}
	entry.count++
	m.entries[key] = entry
	return entry.count, nil
}
