package worker

import (
	"context"
	"time"

	"consultly/internal/domain"
	"consultly/internal/metrics"

	"github.com/rs/zerolog"
)

// AttemptJanitor closes checkout attempts that never reached the gateway
// callback, so the journal only shows open orders that can still be paid.
type AttemptJanitor struct {
	store  domain.AttemptStore
	ttl    time.Duration
	logger *zerolog.Logger
	now    func() time.Time
}

func NewAttemptJanitor(store domain.AttemptStore, ttl time.Duration, logger *zerolog.Logger) *AttemptJanitor {
	return &AttemptJanitor{
		store:  store,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (j *AttemptJanitor) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.ttl)
	n, err := j.store.ExpireStaleAttempts(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		metrics.AddAbandonedAttempts(n)
		j.logger.Info().Int64("count", n).Time("cutoff", cutoff).Msg("abandoned stale checkout attempts")
	}
	return nil
}
