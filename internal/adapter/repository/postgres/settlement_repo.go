package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

const settlementColumns = `id, game_id, payer_id, payee_id, amount::text, status, created_at, updated_at, completed_at`

// SettlementRepository implements usecase.SettlementRepository.
type SettlementRepository struct {
	db DBTX
}

// NewSettlementRepository creates a new SettlementRepository.
func NewSettlementRepository(db DBTX) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// CreateBatch inserts settlements in order. The caller's transaction makes the
// batch all-or-nothing.
func (r *SettlementRepository) CreateBatch(ctx context.Context, tx usecase.Tx, settlements []*domain.Settlement) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	for _, s := range settlements {
		_, err := q.Exec(ctx, `
			INSERT INTO settlements (id, game_id, payer_id, payee_id, amount, status, created_at, updated_at, completed_at)
			VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9)`,
			s.ID, s.GameID, s.PayerID, s.PayeeID, amountArg(s.Amount), string(s.Status),
			s.CreatedAt, s.UpdatedAt, s.CompletedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a settlement.
func (r *SettlementRepository) GetByID(ctx context.Context, id string) (*domain.Settlement, error) {
	return scanSettlement(r.db.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id))
}

// GetByIDForUpdate retrieves a settlement and locks its row until tx ends.
func (r *SettlementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Settlement, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return scanSettlement(q.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1 FOR UPDATE`, id))
}

// ListByGame returns a game's settlements in creation order.
func (r *SettlementRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.Settlement, error) {
	return r.list(ctx, r.db, gameID)
}

// ListByGameTx returns a game's settlements within tx.
func (r *SettlementRepository) ListByGameTx(ctx context.Context, tx usecase.Tx, gameID string) ([]*domain.Settlement, error) {
	q, err := pgxTx(tx)
	if err != nil {
		return nil, err
	}

	return r.list(ctx, q, gameID)
}

// UpdateStatus stores a status transition.
func (r *SettlementRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, s *domain.Settlement) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	tag, err := q.Exec(ctx, `
		UPDATE settlements
		SET status = $2, updated_at = $3, completed_at = $4
		WHERE id = $1`,
		s.ID, string(s.Status), s.UpdatedAt, s.CompletedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrSettlementNotFound
	}

	return nil
}

func (r *SettlementRepository) list(ctx context.Context, q DBTX, gameID string) ([]*domain.Settlement, error) {
	rows, err := q.Query(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE game_id = $1 ORDER BY seq`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.Settlement, 0)
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}

	return result, rows.Err()
}

func scanSettlement(row pgx.Row) (*domain.Settlement, error) {
	var (
		s              domain.Settlement
		amount, status string
	)

	err := row.Scan(&s.ID, &s.GameID, &s.PayerID, &s.PayeeID, &amount, &status, &s.CreatedAt, &s.UpdatedAt, &s.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSettlementNotFound
		}
		return nil, err
	}

	s.Status = domain.SettlementStatus(status)
	if s.Amount, err = parseAmount("amount", amount); err != nil {
		return nil, err
	}

	return &s, nil
}
