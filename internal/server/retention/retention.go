// Package retention periodically removes one-time and refresh tokens that
// expired long enough ago to be of no further use.
package retention

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
)

// DefaultGrace is how long an expired token is kept. A rotated refresh
// token must survive its expiry long enough for reuse to still be detected.
const DefaultGrace = 24 * time.Hour

type Sweeper struct {
	rm    repomanager.RepositoryManager
	grace time.Duration
	log   logging.Logger
	now   func() time.Time
}

func NewSweeper(rm repomanager.RepositoryManager, grace time.Duration, log logging.Logger) *Sweeper {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Sweeper{rm: rm, grace: grace, log: log.With("module", "retention"), now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (s *Sweeper) WithClock(now func() time.Time) *Sweeper {
	s.now = now
	return s
}

// Sweep deletes tokens that expired before now minus the grace period.
func (s *Sweeper) Sweep(ctx context.Context) (onetime, refresh int64, err error) {
	cutoff := s.now().Add(-s.grace)
	conn := s.rm.Conn()

	onetime, err = s.rm.OneTimeTokens(conn).DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, 0, err
	}
	refresh, err = s.rm.RefreshTokens(conn).DeleteExpired(ctx, cutoff)
	if err != nil {
		return onetime, 0, err
	}
	return onetime, refresh, nil
}

// Run sweeps every interval until ctx is cancelled. Errors are logged and
// the next tick tries again.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepCtx, cancel := context.WithTimeout(ctx, interval)
			ot, rt, err := s.Sweep(sweepCtx)
			cancel()

			if err != nil {
				s.log.Warn(ctx, "retention sweep failed", "error", err)
				continue
			}
			if ot > 0 || rt > 0 {
				s.log.Info(ctx, "expired tokens removed", "onetime", ot, "refresh", rt)
			}
		}
	}
}
