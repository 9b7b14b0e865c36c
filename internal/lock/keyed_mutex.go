package lock

import (
	"context"
	"fmt"
	"sync"
)

// KeyedMutex is an in-process Locker. Entries are reference counted and
// removed once no goroutine holds or waits for the key.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	slot chan struct{}
	refs int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Acquire blocks until key is free or ctx is done.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) (Release, error) {
	m.mu.Lock()
	entry, ok := m.locks[key]
	if !ok {
		entry = &keyedEntry{slot: make(chan struct{}, 1)}
		m.locks[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, entry)
		return nil, fmt.Errorf("%w: %s: %w", ErrNotAcquired, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.slot
			m.unref(key, entry)
		})
	}, nil
}

// Len reports how many keys are currently held or awaited.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *KeyedMutex) unref(key string, entry *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.refs--
	if entry.refs == 0 {
		delete(m.locks, key)
	}
}
