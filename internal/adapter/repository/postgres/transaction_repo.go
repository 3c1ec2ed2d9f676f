package postgres

import (
	"context"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
type TransactionRepository struct {
	db DBTX
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db DBTX) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create appends a transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO transactions (id, game_id, user_id, type, amount, notes, created_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7)`,
		t.ID, t.GameID, t.UserID, string(t.Type), amountArg(t.Amount), t.Notes, t.CreatedAt,
	)

	return err
}

// ListByGame returns a game's transactions in recording order.
func (r *TransactionRepository) ListByGame(ctx context.Context, gameID string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, game_id, user_id, type, amount::text, notes, created_at
		FROM transactions
		WHERE game_id = $1
		ORDER BY seq
		LIMIT $2 OFFSET $3`,
		gameID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.Transaction, 0)
	for rows.Next() {
		var (
			t      domain.Transaction
			typ    string
			amount string
		)

		if err := rows.Scan(&t.ID, &t.GameID, &t.UserID, &typ, &amount, &t.Notes, &t.CreatedAt); err != nil {
			return nil, err
		}

		t.Type = domain.TransactionType(typ)
		if t.Amount, err = parseAmount("amount", amount); err != nil {
			return nil, err
		}

		result = append(result, &t)
	}

	return result, rows.Err()
}

// SumByGame recomputes per-player totals from the raw transactions.
func (r *TransactionRepository) SumByGame(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id,
		       COALESCE(SUM(amount) FILTER (WHERE type = 'buyin'), 0)::text,
		       COALESCE(SUM(amount) FILTER (WHERE type = 'cashout'), 0)::text,
		       MAX(created_at)
		FROM transactions
		WHERE game_id = $1
		GROUP BY user_id
		ORDER BY user_id`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTotals(gameID, rows)
}
