package state

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/pkg/enums"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps session values in process. Used for local runs and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[enums.StateKey]memoryEntry
	ttl  time.Duration
	now  clock
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]map[enums.StateKey]memoryEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string, key enums.StateKey) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.data[sessionID][key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID string, key enums.StateKey, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.data[sessionID]
	if !ok {
		session = make(map[enums.StateKey]memoryEntry)
		m.data[sessionID] = session
	}
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	session[key] = entry
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string, keys ...enums.StateKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.data[sessionID]
	if !ok {
		return nil
	}
	for _, key := range keys {
		delete(session, key)
	}
	if len(session) == 0 {
		delete(m.data, sessionID)
	}
	return nil
}

// PurgeExpired drops entries whose TTL has passed.
func (m *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var purged int64
	for sessionID, session := range m.data {
		for key, entry := range session {
			if !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt) {
				delete(session, key)
				purged++
			}
		}
		if len(session) == 0 {
			delete(m.data, sessionID)
		}
	}
	return purged, nil
}
