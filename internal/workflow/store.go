package workflow

import (
	"context"
	"sync"
)

// Repository stores values keyed by K. All returns the newest value first.
type Repository[K comparable, V any] interface {
	All(ctx context.Context) ([]V, error)
	Get(ctx context.Context, id K) (V, bool, error)
	Upsert(ctx context.Context, v V) error
}

// SessionStore holds the logged-in user. CurrentUser returns nil when nobody
// is logged in.
type SessionStore interface {
	CurrentUser(ctx context.Context) (*User, error)
	SetCurrentUser(ctx context.Context, u *User) error
}

type (
	RecordRepository       = Repository[int64, Record]
	NotificationRepository = Repository[string, Notification]
)

// RecordKey extracts the record repository key.
func RecordKey(r Record) int64 {
	return r.ID
}

// NotificationKey extracts the notification repository key.
func NotificationKey(n Notification) string {
	return n.ID
}

// MemoryRepository is a Repository kept in process memory.
type MemoryRepository[K comparable, V any] struct {
	mu    sync.RWMutex
	key   func(V) K
	items []V
}

func NewMemoryRepository[K comparable, V any](key func(V) K) *MemoryRepository[K, V] {
	return &MemoryRepository[K, V]{key: key}
}

func (m *MemoryRepository[K, V]) All(ctx context.Context) ([]V, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]V, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *MemoryRepository[K, V]) Get(ctx context.Context, id K) (V, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, v := range m.items {
		if m.key(v) == id {
			return v, true, nil
		}
	}
	var zero V
	return zero, false, nil
}

// Upsert replaces an existing value in place or prepends a new one.
func (m *MemoryRepository[K, V]) Upsert(ctx context.Context, v V) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.key(v)
	for i := range m.items {
		if m.key(m.items[i]) == id {
			m.items[i] = v
			return nil
		}
	}
	m.items = append([]V{v}, m.items...)
	return nil
}

type MemorySession struct {
	mu   sync.RWMutex
	user *User
}

func NewMemorySession() *MemorySession {
	return &MemorySession{}
}

func (s *MemorySession) CurrentUser(ctx context.Context) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, nil
	}
	u := *s.user
	return &u, nil
}

func (s *MemorySession) SetCurrentUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		return nil
	}
	c := *u
	s.user = &c
	return nil
}
