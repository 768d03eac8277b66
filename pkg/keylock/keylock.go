// Package keylock serializes work per key inside one process.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Mutex hands out one lock per key and forgets keys nobody holds or waits on.
type Mutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

func New() *Mutex {
	return &Mutex{locks: make(map[string]*entry)}
}

func (m *Mutex) Lock(key string) (unlock func()) {
	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}

// TryLock takes the key's lock only when it is free.
func (m *Mutex) TryLock(key string) (unlock func(), ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[key]; held {
		return nil, false
	}
	e := &entry{refs: 1}
	e.mu.Lock()
	m.locks[key] = e
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}, true
}

func (m *Mutex) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}
