package memory

import (
	"context"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// SettlementRepository implements usecase.SettlementRepository.
type SettlementRepository struct {
	store *Store
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(store *Store) *SettlementRepository {
	return &SettlementRepository{store: store}
}

// CreateBatch inserts settlements in order.
func (r *SettlementRepository) CreateBatch(ctx context.Context, tx usecase.Tx, settlements []*domain.Settlement) error {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, s := range settlements {
		if _, err := r.get(t, s.ID); err == nil {
			return ErrDuplicateKey
		}
	}

	for _, s := range settlements {
		t.settlements[s.ID] = s.Clone()
		t.createdSettlements = append(t.createdSettlements, s.ID)
	}

	return nil
}

// GetByID returns a committed settlement.
func (r *SettlementRepository) GetByID(ctx context.Context, id string) (*domain.Settlement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.get(nil, id)
}

// GetByIDForUpdate locks the settlement row for the rest of tx.
func (r *SettlementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Settlement, error) {
	if _, err := r.store.lockRow(ctx, tx, "settlements:"+id); err != nil {
		return nil, err
	}

	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.get(t, id)
}

// ListByGame returns a game's committed settlements in creation order.
func (r *SettlementRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.Settlement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.list(nil, gameID), nil
}

// ListByGameTx returns a game's settlements as seen by tx.
func (r *SettlementRepository) ListByGameTx(ctx context.Context, tx usecase.Tx, gameID string) ([]*domain.Settlement, error) {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.list(t, gameID), nil
}

// UpdateStatus stores the settlement's status and timestamps.
func (r *SettlementRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, settlement *domain.Settlement) error {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := r.get(t, settlement.ID); err != nil {
		return err
	}

	t.settlements[settlement.ID] = settlement.Clone()

	return nil
}

// get reads through t's buffer when t is not nil.
func (r *SettlementRepository) get(t *Tx, id string) (*domain.Settlement, error) {
	var (
		s  *domain.Settlement
		ok bool
	)
	if t != nil {
		s, ok = t.settlements[id]
	}
	if !ok {
		s, ok = r.store.settlements[id]
	}
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	return s.Clone(), nil
}

func (r *SettlementRepository) list(t *Tx, gameID string) []*domain.Settlement {
	ids := r.store.settlementIx
	if t != nil {
		ids = append(ids[:len(ids):len(ids)], t.createdSettlements...)
	}

	result := make([]*domain.Settlement, 0)
	for _, id := range ids {
		if s, err := r.get(t, id); err == nil && s.GameID == gameID {
			result = append(result, s)
		}
	}
	return result
}
