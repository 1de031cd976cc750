package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/regidor/inventario/internal/inventory"
)

const (
	defaultRetryInterval = 2 * time.Second
	maxBackoff           = 30 * time.Second
	// refreshLead renews the session this long before it expires.
	refreshLead = 60 * time.Second
	// idleInterval is how often a signed-out refresher checks for a session.
	idleInterval = 30 * time.Second
)

// SessionSource is the part of the authenticator the refresher drives.
type SessionSource interface {
	Session() *inventory.Session
	Refresh(ctx context.Context) (*inventory.Session, error)
}

type refresher struct {
	src      SessionSource
	log      zerolog.Logger
	now      func() time.Time
	retry    time.Duration
	failures int
}

// StartRefresher launches a background goroutine that renews the session
// ahead of expiry and backs off exponentially when the backend is
// unreachable. It returns immediately; the goroutine stops with ctx.
func StartRefresher(ctx context.Context, src SessionSource, logger zerolog.Logger, retry time.Duration) {
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	r := &refresher{
		src:   src,
		log:   logger.With().Str("component", "refresher").Logger(),
		now:   time.Now,
		retry: retry,
	}
	go func() {
		timer := time.NewTimer(r.step(ctx))
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				timer.Reset(r.step(ctx))
			}
		}
	}()
}

// step refreshes when due and returns how long to wait before the next check.
func (r *refresher) step(ctx context.Context) time.Duration {
	sess := r.src.Session()
	if sess == nil || sess.ExpiresAt.IsZero() {
		r.failures = 0
		return idleInterval
	}
	if wait := sess.ExpiresAt.Sub(r.now()) - refreshLead; wait > 0 {
		return wait
	}

	renewed, err := r.src.Refresh(ctx)
	switch {
	case err == nil:
		r.failures = 0
		if renewed == nil || renewed.ExpiresAt.IsZero() {
			return idleInterval
		}
		r.log.Debug().Time("expires_at", renewed.ExpiresAt).Msg("session refreshed")
		if wait := renewed.ExpiresAt.Sub(r.now()) - refreshLead; wait > 0 {
			return wait
		}
		return r.retry
	case errors.Is(err, inventory.ErrNotAuthenticated):
		r.failures = 0
		r.log.Info().Err(err).Msg("session ended")
		return idleInterval
	default:
		r.failures++
		backoff := calculateBackoff(r.failures, r.retry)
		r.log.Warn().Err(err).Int("failures", r.failures).Dur("retry_in", backoff).Msg("session refresh failed")
		return backoff
	}
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
