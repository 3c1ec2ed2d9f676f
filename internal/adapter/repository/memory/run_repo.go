package memory

import (
	"context"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// SettlementRunRepository implements usecase.SettlementRunRepository.
type SettlementRunRepository struct {
	store *Store
}

// NewSettlementRunRepository creates a new SettlementRunRepository.
func NewSettlementRunRepository(store *Store) *SettlementRunRepository {
	return &SettlementRunRepository{store: store}
}

// Claim inserts run unless the game already has one. A claim held by another
// open transaction blocks until that transaction ends, like a unique index.
func (r *SettlementRunRepository) Claim(ctx context.Context, tx usecase.Tx, run *domain.SettlementRun) (bool, error) {
	if _, err := r.store.lockRow(ctx, tx, "settlement_runs:"+run.GameID); err != nil {
		return false, err
	}

	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := r.get(t, run.GameID); err == nil {
		return false, nil
	}

	row := *run
	t.runs[run.GameID] = &row

	return true, nil
}

// GetByGame returns the game's committed run.
func (r *SettlementRunRepository) GetByGame(ctx context.Context, gameID string) (*domain.SettlementRun, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.get(nil, gameID)
}

// GetByGameTx returns the game's run as seen by tx.
func (r *SettlementRunRepository) GetByGameTx(ctx context.Context, tx usecase.Tx, gameID string) (*domain.SettlementRun, error) {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.get(t, gameID)
}

func (r *SettlementRunRepository) get(t *Tx, gameID string) (*domain.SettlementRun, error) {
	var (
		run *domain.SettlementRun
		ok  bool
	)
	if t != nil {
		run, ok = t.runs[gameID]
	}
	if !ok {
		run, ok = r.store.runs[gameID]
	}
	if !ok {
		return nil, domain.ErrSettlementRunNotFound
	}
	row := *run
	return &row, nil
}
