package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultCapacity bounds the in-process cache when no capacity is set.
const DefaultCapacity = 50_000

type memoryItem struct {
	key   Key
	entry Entry
}

// Memory is an in-process cache with a fixed capacity. Expired entries are
// ignored on read and dropped when space is needed; otherwise the oldest
// insert is evicted.
type Memory struct {
	mu       sync.Mutex
	capacity int
	now      func() time.Time
	items    map[Key]*list.Element
	order    *list.List
}

type MemoryOption func(*Memory)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) {
		m.now = now
	}
}

func NewMemory(capacity int, opts ...MemoryOption) *Memory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	m := &Memory{
		capacity: capacity,
		now:      time.Now,
		items:    make(map[Key]*list.Element),
		order:    list.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Get(_ context.Context, key Key) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return Entry{}, false, nil
	}
	item := el.Value.(*memoryItem)
	if !m.now().Before(item.entry.ExpiresAt) {
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

func (m *Memory) Put(_ context.Context, key Key, entry Entry, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry.ExpiresAt = now.Add(ttl)
	if el, ok := m.items[key]; ok {
		m.order.Remove(el)
		delete(m.items, key)
	}
	if m.order.Len() >= m.capacity {
		m.dropExpired(now)
	}
	for m.order.Len() >= m.capacity {
		oldest := m.order.Front()
		m.order.Remove(oldest)
		delete(m.items, oldest.Value.(*memoryItem).key)
	}
	m.items[key] = m.order.PushBack(&memoryItem{key: key, entry: entry})
	return nil
}

func (m *Memory) dropExpired(now time.Time) {
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		item := el.Value.(*memoryItem)
		if !now.Before(item.entry.ExpiresAt) {
			m.order.Remove(el)
			delete(m.items, item.key)
		}
		el = next
	}
}

// Len reports stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
