package repository

import (
	"context"
	"sync"
	"time"

	"consultly/internal/models"
)

// MemorySessionRepository keeps sessions and locks in process. It backs the
// Redis repository when Redis is unreachable and serves local runs.
type MemorySessionRepository struct {
	mu         sync.Mutex
	sessions   map[string]memoryEntry
	locks      map[string]memoryLock
	rateLimits map[string]*rateLimitEntry
	ttl        time.Duration
	now        func() time.Time
}

type memoryEntry struct {
	session   models.Session
	expiresAt time.Time
}

type memoryLock struct {
	owner string
	until time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions:   make(map[string]memoryEntry),
		locks:      make(map[string]memoryLock),
		rateLimits: make(map[string]*rateLimitEntry),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (r *MemorySessionRepository) GetSession(_ context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && !r.now().Before(entry.expiresAt) {
		delete(r.sessions, id)
		return nil, nil
	}
	s := entry.session
	return &s, nil
}

func (r *MemorySessionRepository) SetSession(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry := memoryEntry{session: *session}
	if ttl := sessionTTL(r.ttl, session, now); ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	r.sessions[session.ID] = entry
	return nil
}

func (r *MemorySessionRepository) ClearSession(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemorySessionRepository) TryLock(_ context.Context, key, owner string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if l, held := r.locks[key]; held && now.Before(l.until) {
		return false, nil
	}
	r.locks[key] = memoryLock{owner: owner, until: now.Add(ttl)}
	return true, nil
}

func (r *MemorySessionRepository) Unlock(_ context.Context, key, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, held := r.locks[key]; held && l.owner == owner {
		delete(r.locks, key)
	}
	return nil
}

func (r *MemorySessionRepository) CheckRateLimit(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rateLimits[key] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}
