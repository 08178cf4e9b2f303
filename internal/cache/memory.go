package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type entry struct {
	key     string
	val     []byte
	expires time.Time
}

// Memory is a bounded in-process LRU cache.
type Memory struct {
	mu    sync.Mutex
	size  int
	order *list.List
	items map[string]*list.Element
	now   func() time.Time
}

// NewMemory returns an LRU cache holding at most size entries.
func NewMemory(size int) *Memory {
	if size <= 0 {
		size = 1024
	}
	return &Memory{
		size:  size,
		order: list.New(),
		items: make(map[string]*list.Element),
		now:   time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	el, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.order.Remove(el)
		delete(m.items, key)
		return nil, false, nil
	}
	m.order.MoveToFront(el)
	return append([]byte(nil), e.val...), true, nil
}

// Set stores val. A zero ttl never expires.
func (m *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	val = append([]byte(nil), val...)
	if el, ok := m.items[key]; ok {
		e := el.Value.(*entry)
		e.val, e.expires = val, exp
		m.order.MoveToFront(el)
		return nil
	}
	m.items[key] = m.order.PushFront(&entry{key: key, val: val, expires: exp})
	for m.order.Len() > m.size {
		last := m.order.Back()
		m.order.Remove(last)
		delete(m.items, last.Value.(*entry).key)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *Memory) Close() error { return nil }
