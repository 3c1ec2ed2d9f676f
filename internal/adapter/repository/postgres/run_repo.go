package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

const runColumns = `game_id, calculated_by, calculated_at, transfer_count, forced,
	total_buyins::text, total_cashouts::text, difference::text`

// SettlementRunRepository implements usecase.SettlementRunRepository.
type SettlementRunRepository struct {
	db DBTX
}

// NewSettlementRunRepository creates a new SettlementRunRepository.
func NewSettlementRunRepository(db DBTX) *SettlementRunRepository {
	return &SettlementRunRepository{db: db}
}

// Claim inserts the run unless the game already has one. It reports whether
// this call inserted it.
func (r *SettlementRunRepository) Claim(ctx context.Context, tx usecase.Tx, run *domain.SettlementRun) (bool, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return false, err
	}

	tag, err := q.Exec(ctx, `
		INSERT INTO settlement_runs (game_id, calculated_by, calculated_at, transfer_count, forced,
			total_buyins, total_cashouts, difference)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric)
		ON CONFLICT (game_id) DO NOTHING`,
		run.GameID, run.CalculatedBy, run.CalculatedAt, run.TransferCount, run.Forced,
		amountArg(run.TotalBuyins), amountArg(run.TotalCashouts), amountArg(run.Difference),
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// GetByGame returns a game's run.
func (r *SettlementRunRepository) GetByGame(ctx context.Context, gameID string) (*domain.SettlementRun, error) {
	return scanRun(r.db.QueryRow(ctx, `SELECT `+runColumns+` FROM settlement_runs WHERE game_id = $1`, gameID))
}

// GetByGameTx returns a game's run within tx.
func (r *SettlementRunRepository) GetByGameTx(ctx context.Context, tx usecase.Tx, gameID string) (*domain.SettlementRun, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return scanRun(q.QueryRow(ctx, `SELECT `+runColumns+` FROM settlement_runs WHERE game_id = $1`, gameID))
}

func scanRun(row pgx.Row) (*domain.SettlementRun, error) {
	var (
		run                          domain.SettlementRun
		buyins, cashouts, difference string
	)

	err := row.Scan(&run.GameID, &run.CalculatedBy, &run.CalculatedAt, &run.TransferCount, &run.Forced,
		&buyins, &cashouts, &difference)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettlementRunNotFound
		}
		return nil, err
	}

	if run.TotalBuyins, err = parseAmount("total_buyins", buyins); err != nil {
		return nil, err
	}
	if run.TotalCashouts, err = parseAmount("total_cashouts", cashouts); err != nil {
		return nil, err
	}
	if run.Difference, err = parseAmount("difference", difference); err != nil {
		return nil, err
	}

	return &run, nil
}
