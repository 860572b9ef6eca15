package pagecache

import (
	"context"
	"sync"
	"time"
)

type memItem struct {
	entry   Entry
	expires time.Time
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu     sync.RWMutex
	items  map[string]memItem
	now    func() time.Time
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]memItem), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Entry{}, false, ErrClosed
	}
	it, ok := m.items[key]
	if !ok || !m.now().Before(it.expires) {
		return Entry{}, false, nil
	}
	return it.entry, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, e Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.items[key] = memItem{entry: e, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) InvalidatePrefix(_ context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	n := 0
	for k := range m.items {
		if Matches(k, prefix) {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.items = nil
	return nil
}
