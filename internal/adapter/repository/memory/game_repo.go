package memory

import (
	"context"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// GameRepository implements usecase.GameRepository.
type GameRepository struct {
	store *Store
}

// NewGameRepository creates a new GameRepository.
func NewGameRepository(store *Store) *GameRepository {
	return &GameRepository{store: store}
}

// Create inserts a game. The id stays locked until tx ends, so a concurrent
// create of the same id waits and then fails with ErrGameExists.
func (r *GameRepository) Create(ctx context.Context, tx usecase.Tx, game *domain.Game) error {
	if _, err := r.store.lockRow(ctx, tx, "games:"+game.ID); err != nil {
		return err
	}

	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := r.get(t, game.ID); err == nil {
		return domain.ErrGameExists
	}

	t.games[game.ID] = game.Clone()
	t.createdGames = append(t.createdGames, game.ID)

	return nil
}

// GetByID returns a committed game.
func (r *GameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.get(nil, id)
}

// GetByIDTx returns a game within tx.
func (r *GameRepository) GetByIDTx(ctx context.Context, tx usecase.Tx, id string) (*domain.Game, error) {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return r.get(t, id)
}

// GetByIDForUpdate locks the game row for the rest of tx.
func (r *GameRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Game, error) {
	if _, err := r.store.lockRow(ctx, tx, "games:"+id); err != nil {
		return nil, err
	}

	return r.GetByIDTx(ctx, tx, id)
}

// UpdateStatus stores the game's status and timestamps.
func (r *GameRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, game *domain.Game) error {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := r.get(t, game.ID); err != nil {
		return err
	}

	t.games[game.ID] = game.Clone()

	return nil
}

// get reads through t's buffer when t is not nil.
func (r *GameRepository) get(t *Tx, id string) (*domain.Game, error) {
	var (
		g  *domain.Game
		ok bool
	)
	if t != nil {
		g, ok = t.games[id]
	}
	if !ok {
		g, ok = r.store.games[id]
	}
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return g.Clone(), nil
}
