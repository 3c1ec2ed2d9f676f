package postgres

import (
	"context"
	"fmt"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

const advisoryLockPrefix = "pokersettle:settlement:"

// AdvisoryLocker implements usecase.SettlementLocker with transaction-scoped
// advisory locks. The lock belongs to the caller's transaction and is dropped by
// PostgreSQL when it commits or rolls back.
type AdvisoryLocker struct{}

// NewAdvisoryLocker creates a new AdvisoryLocker.
func NewAdvisoryLocker() *AdvisoryLocker {
	return &AdvisoryLocker{}
}

// TryLock takes gameID's lock without waiting.
func (l *AdvisoryLocker) TryLock(ctx context.Context, tx usecase.Tx, gameID string) (usecase.Lease, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	var acquired bool
	err = q.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtextextended($1, 0))`, advisoryLockPrefix+gameID).Scan(&acquired)
	if err != nil {
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	if !acquired {
		return nil, domain.ErrSettlementBusy
	}

	return xactLease{}, nil
}

// xactLease has nothing to release; the lock ends with its transaction.
type xactLease struct{}

func (xactLease) Release(context.Context) error { return nil }
