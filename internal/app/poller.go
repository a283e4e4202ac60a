package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/liststore/internal/listing"
	"github.com/five82/liststore/internal/state"
)

const (
	defaultRetryBase   = 2 * time.Second
	defaultMaxAttempts = 5
	maxBackoff         = 30 * time.Second
)

// retryPolicy bounds listing retries. Zero values use the defaults.
type retryPolicy struct {
	base     time.Duration
	attempts int
}

// runProducer runs listing passes until one succeeds, the context ends or
// the attempts are used up. Failures are recorded in progress for the status
// bar; they never end the application, so it always returns nil.
func runProducer(ctx context.Context, p *listing.Producer, progress *state.Store, log *zap.Logger, policy retryPolicy) error {
	base := policy.base
	if base <= 0 {
		base = defaultRetryBase
	}
	attempts := policy.attempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}

	for failures := 0; ; failures++ {
		err := p.Run(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}
		progress.Update(nil, err)
		if failures+1 >= attempts {
			log.Error("listing abandoned", zap.Int("attempts", failures+1), zap.Error(err))
			return nil
		}

		wait := calculateBackoff(failures, base)
		log.Info("listing retry scheduled", zap.Duration("in", wait), zap.Int("failures", failures+1))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// calculateBackoff returns the delay before the next attempt: base doubled
// once per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures < 0 {
		failures = 0
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
