package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

const gameColumns = `id, name, status, scheduled_at, started_at, ended_at, created_at, updated_at`

// GameRepository implements usecase.GameRepository.
type GameRepository struct {
	db DBTX
}

// NewGameRepository creates a new GameRepository.
func NewGameRepository(db DBTX) *GameRepository {
	return &GameRepository{db: db}
}

// Create inserts a game. A duplicate id returns domain.ErrGameExists.
func (r *GameRepository) Create(ctx context.Context, tx usecase.Tx, game *domain.Game) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO games (`+gameColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		game.ID, game.Name, string(game.Status), game.ScheduledAt, game.StartedAt, game.EndedAt,
		game.CreatedAt, game.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrGameExists
	}

	return err
}

// GetByID retrieves a game.
func (r *GameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	return scanGame(r.db.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
}

// GetByIDTx retrieves a game within tx.
func (r *GameRepository) GetByIDTx(ctx context.Context, tx usecase.Tx, id string) (*domain.Game, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return scanGame(q.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id))
}

// GetByIDForUpdate retrieves a game and locks its row until tx ends.
func (r *GameRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Game, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return scanGame(q.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1 FOR UPDATE`, id))
}

// UpdateStatus stores the game's status and lifecycle timestamps.
func (r *GameRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, game *domain.Game) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE games
		SET status = $2, started_at = $3, ended_at = $4, updated_at = $5
		WHERE id = $1`,
		game.ID, string(game.Status), game.StartedAt, game.EndedAt, game.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrGameNotFound
	}

	return nil
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var (
		g      domain.Game
		status string
	)

	err := row.Scan(&g.ID, &g.Name, &status, &g.ScheduledAt, &g.StartedAt, &g.EndedAt, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGameNotFound
		}
		return nil, err
	}

	g.Status = domain.GameStatus(status)

	return &g, nil
}
