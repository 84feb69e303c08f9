package repository

import (
	"context"
	"sync/atomic"
	"time"

	"consultly/internal/domain"
	"consultly/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverSessionRepository serves from the primary (Redis) and switches to
// the fallback (memory) after the first primary error. The primary is probed
// again once recoveryInterval has passed.
type FailoverSessionRepository struct {
	primary   domain.SessionRepository
	fallback  domain.SessionRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverSessionRepository(primary, fallback domain.SessionRepository, logger *zerolog.Logger) *FailoverSessionRepository {
	return &FailoverSessionRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to the primary.
func (r *FailoverSessionRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverSessionRepository) observe(err error) {
	if err == nil {
		if r.isDown.CompareAndSwap(true, false) {
			r.logger.Info().Msg("Primary session repository recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverSessionRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	if r.usePrimary() {
		session, err := r.primary.GetSession(ctx, id)
		r.observe(err)
		if err == nil {
			return session, nil
		}
	}
	return r.fallback.GetSession(ctx, id)
}

func (r *FailoverSessionRepository) SetSession(ctx context.Context, session *models.Session) error {
	if r.usePrimary() {
		err := r.primary.SetSession(ctx, session)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetSession(ctx, session)
}

func (r *FailoverSessionRepository) ClearSession(ctx context.Context, id string) error {
	if r.usePrimary() {
		err := r.primary.ClearSession(ctx, id)
		r.observe(err)
		if err == nil {
			// a copy may have been written while the primary was down
			_ = r.fallback.ClearSession(ctx, id)
			return nil
		}
	}
	return r.fallback.ClearSession(ctx, id)
}

func (r *FailoverSessionRepository) TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if r.usePrimary() {
		ok, err := r.primary.TryLock(ctx, key, owner, ttl)
		r.observe(err)
		if err == nil {
			return ok, nil
		}
	}
	return r.fallback.TryLock(ctx, key, owner, ttl)
}

func (r *FailoverSessionRepository) Unlock(ctx context.Context, key, owner string) error {
	if r.usePrimary() {
		err := r.primary.Unlock(ctx, key, owner)
		r.observe(err)
		if err == nil {
			_ = r.fallback.Unlock(ctx, key, owner)
			return nil
		}
	}
	return r.fallback.Unlock(ctx, key, owner)
}

func (r *FailoverSessionRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
