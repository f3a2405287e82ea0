package store

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no session exists for a given id.
	ErrNotFound = errors.New("session not found")
)

// MemoryStore is a concurrency-safe in-memory session store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*Session

	// retention configuration
	maxCount int           // max number of live sessions
	maxAge   time.Duration // sessions idle longer than this are pruned

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxCount or maxAge is <= 0, that limit is disabled.
func NewMemoryStore(maxCount int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:     make(map[string]*Session),
		maxCount: maxCount,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Create registers a new empty session and enforces the count limit.
func (s *MemoryStore) Create() *Session {
	sess := newSession(uuid.NewString(), s.now)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[sess.ID] = sess

	// Enforce retention by count, least recently used first.
	if s.maxCount > 0 && len(s.data) > s.maxCount {
		over := len(s.data) - s.maxCount
		others := make([]*Session, 0, len(s.data)-1)
		for id, existing := range s.data {
			if id != sess.ID {
				others = append(others, existing)
			}
		}
		sort.Slice(others, func(i, j int) bool {
			return others[i].UpdatedAt().Before(others[j].UpdatedAt())
		})
		for _, old := range others[:over] {
			delete(s.data, old.ID)
		}
	}

	return sess
}

// Get returns the session with the given id.
func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Prune removes sessions idle for longer than maxAge and returns how many
// were removed.
func (s *MemoryStore) Prune() int {
	if s.maxAge <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.data {
		if sess.UpdatedAt().Before(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}
