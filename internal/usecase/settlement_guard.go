package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/infrastructure/logger"
	"github.com/iho/pokersettle/internal/infrastructure/metrics"
)

// SettlementGuard scopes the per-game settlement lock around a function.
type SettlementGuard struct {
	locker  SettlementLocker
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// NewSettlementGuard creates a new SettlementGuard.
func NewSettlementGuard(locker SettlementLocker, logger zerolog.Logger, m *metrics.Metrics) *SettlementGuard {
	return &SettlementGuard{
		locker:  locker,
		logger:  logger,
		metrics: m,
	}
}

// WithLock runs fn while holding gameID's lock. It returns domain.ErrSettlementBusy
// without running fn if the lock is held elsewhere. The lock is released on every
// exit path including panics; a failed release is logged and does not change the
// returned error.
func (g *SettlementGuard) WithLock(ctx context.Context, tx Tx, gameID string, fn func() error) error {
	lease, err := g.locker.TryLock(ctx, tx, gameID)
	if err != nil {
		if errors.Is(err, domain.ErrSettlementBusy) {
			if g.metrics != nil {
				g.metrics.SettlementLockBusy.Inc()
			}
			return err
		}
		return domain.NewPersistenceError("acquire settlement lock", err)
	}

	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log := logger.ForGame(g.logger, gameID)
			log.Error().Err(err).Msg("failed to release settlement lock")
			if g.metrics != nil {
				g.metrics.LockReleaseFailures.Inc()
			}
		}
	}()

	return fn()
}
