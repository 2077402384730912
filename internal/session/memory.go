package session

import (
	"context"
	"time"

	cache "github.com/patrickmn/go-cache"

	"cert-quiz/internal/quiz"
)

// MemoryStore keeps attempt snapshots in process. Every Save refreshes the
// idle expiry, so active sessions never age out mid-attempt.
type MemoryStore struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	cleanup := ttl
	if cleanup == cache.NoExpiration || cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &MemoryStore{
		cache: cache.New(ttl, cleanup),
		ttl:   ttl,
	}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) (*quiz.Attempt, error) {
	item, found := m.cache.Get(sessionID)
	if !found {
		return nil, quiz.ErrSessionNotFound
	}
	snapshot, ok := item.(quiz.AttemptSnapshot)
	if !ok {
		return nil, quiz.ErrSessionNotFound
	}
	return quiz.RestoreAttempt(snapshot), nil
}

// Save stores a snapshot rather than the pointer so callers cannot mutate a
// stored attempt without saving it.
func (m *MemoryStore) Save(_ context.Context, sessionID string, attempt *quiz.Attempt) error {
	m.cache.Set(sessionID, attempt.Snapshot(), m.ttl)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.cache.Delete(sessionID)
	return nil
}

func (m *MemoryStore) Len() int {
	return m.cache.ItemCount()
}
