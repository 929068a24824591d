package memory

import (
	"context"
	"sync"
	"time"

	"console/internal/storage"
)

type entry struct {
	value     string
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type Storage struct {
	mu   sync.RWMutex
	data map[string]entry
	now  func() time.Time
}

func New() *Storage {
	return &Storage{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

func (s *Storage) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return "", storage.ErrNotFound
	}
	if e.expired(s.now()) {
		s.mu.Lock()
		// a Set may have replaced the entry since the read lock was released
		if cur, ok := s.data[key]; ok && cur.expired(s.now()) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return "", storage.ErrNotFound
	}
	return e.value, nil
}

// Set also drops every expired entry, so keys that are never read again do
// not accumulate.
func (s *Storage) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	now := s.now()
	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}
	s.mu.Lock()
	for k, old := range s.data {
		if old.expired(now) {
			delete(s.data, k)
		}
	}
	s.data[key] = e
	s.mu.Unlock()
	return nil
}

func (s *Storage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.data, k)
	}
	s.mu.Unlock()
	return nil
}

// Len is used by tests.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
