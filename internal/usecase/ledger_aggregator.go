package usecase

import (
	"context"

	"github.com/iho/pokersettle/internal/domain"
)

// LedgerAggregator produces per-player totals for a game.
type LedgerAggregator struct {
	gameRepo        GameRepository
	participantRepo ParticipantRepository
}

// NewLedgerAggregator creates a new LedgerAggregator.
func NewLedgerAggregator(gameRepo GameRepository, participantRepo ParticipantRepository) *LedgerAggregator {
	return &LedgerAggregator{
		gameRepo:        gameRepo,
		participantRepo: participantRepo,
	}
}

// Aggregate returns the totals of every player with at least one transaction,
// ordered by user id. Reads go through tx so they observe the same snapshot as
// the rest of the caller's unit of work.
func (a *LedgerAggregator) Aggregate(ctx context.Context, tx Tx, gameID string) ([]*domain.ParticipantTotals, error) {
	if _, err := a.gameRepo.GetByIDTx(ctx, tx, gameID); err != nil {
		return nil, domain.NewPersistenceError("load game", err)
	}

	totals, err := a.participantRepo.ListByGameTx(ctx, tx, gameID)
	if err != nil {
		return nil, domain.NewPersistenceError("load participant totals", err)
	}

	return totals, nil
}
