package memory

import (
	"context"
	"sort"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// ParticipantRepository implements usecase.ParticipantRepository.
type ParticipantRepository struct {
	store *Store
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(store *Store) *ParticipantRepository {
	return &ParticipantRepository{store: store}
}

// Increment adds t to the player's totals, creating the row on first use.
// The amount is kept as a delta and added to the committed row on commit.
func (r *ParticipantRepository) Increment(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	mt, unlock, err := r.store.begin(tx)
	if err != nil {
		return err
	}
	defer unlock()

	game, ok := mt.totals[t.GameID]
	if !ok {
		game = make(map[string]*domain.ParticipantTotals)
		mt.totals[t.GameID] = game
	}

	delta, ok := game[t.UserID]
	if !ok {
		delta = &domain.ParticipantTotals{GameID: t.GameID, UserID: t.UserID}
		game[t.UserID] = delta
	}
	delta.Apply(t)

	return nil
}

// ListByGame returns a game's committed totals ordered by user id.
func (r *ParticipantRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.list(nil, gameID), nil
}

// ListByGameTx returns a game's totals including tx's own increments.
func (r *ParticipantRepository) ListByGameTx(ctx context.Context, tx usecase.Tx, gameID string) ([]*domain.ParticipantTotals, error) {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.list(t, gameID), nil
}

func (r *ParticipantRepository) list(t *Tx, gameID string) []*domain.ParticipantTotals {
	rows := make(map[string]*domain.ParticipantTotals)
	for userID, p := range r.store.totals[gameID] {
		row := *p
		rows[userID] = &row
	}
	if t != nil {
		for userID, delta := range t.totals[gameID] {
			rows[userID] = mergeTotals(rows[userID], delta)
		}
	}

	result := make([]*domain.ParticipantTotals, 0, len(rows))
	for _, row := range rows {
		result = append(result, row)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })

	return result
}
