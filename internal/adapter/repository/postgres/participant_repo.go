package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

const listTotalsSQL = `
	SELECT user_id, total_buyin::text, total_cashout::text, updated_at
	FROM participant_totals
	WHERE game_id = $1
	ORDER BY user_id`

// ParticipantRepository implements usecase.ParticipantRepository.
type ParticipantRepository struct {
	db DBTX
}

// NewParticipantRepository creates a new ParticipantRepository.
func NewParticipantRepository(db DBTX) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Increment adds a transaction to the player's running totals.
func (r *ParticipantRepository) Increment(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	var buyin, cashout string
	switch t.Type {
	case domain.TransactionTypeBuyin:
		buyin, cashout = amountArg(t.Amount), "0"
	case domain.TransactionTypeCashout:
		buyin, cashout = "0", amountArg(t.Amount)
	default:
		return fmt.Errorf("%w: %s", domain.ErrInvalidTransactionType, t.Type)
	}

	_, err = q.Exec(ctx, `
		INSERT INTO participant_totals (game_id, user_id, total_buyin, total_cashout, updated_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5)
		ON CONFLICT (game_id, user_id) DO UPDATE
		SET total_buyin = participant_totals.total_buyin + EXCLUDED.total_buyin,
		    total_cashout = participant_totals.total_cashout + EXCLUDED.total_cashout,
		    updated_at = GREATEST(participant_totals.updated_at, EXCLUDED.updated_at)`,
		t.GameID, t.UserID, buyin, cashout, t.CreatedAt,
	)

	return err
}

// ListByGame returns a game's totals ordered by user id.
func (r *ParticipantRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error) {
	rows, err := r.db.Query(ctx, listTotalsSQL, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTotals(gameID, rows)
}

// ListByGameTx returns a game's totals within tx.
func (r *ParticipantRepository) ListByGameTx(ctx context.Context, tx usecase.Tx, gameID string) ([]*domain.ParticipantTotals, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, listTotalsSQL, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTotals(gameID, rows)
}

func scanTotals(gameID string, rows pgx.Rows) ([]*domain.ParticipantTotals, error) {
	result := make([]*domain.ParticipantTotals, 0)
	for rows.Next() {
		var (
			p              domain.ParticipantTotals
			buyin, cashout string
			err            error
		)

		if err := rows.Scan(&p.UserID, &buyin, &cashout, &p.UpdatedAt); err != nil {
			return nil, err
		}

		p.GameID = gameID
		if p.TotalBuyin, err = parseAmount("total_buyin", buyin); err != nil {
			return nil, err
		}
		if p.TotalCashout, err = parseAmount("total_cashout", cashout); err != nil {
			return nil, err
		}

		result = append(result, &p)
	}

	return result, rows.Err()
}
