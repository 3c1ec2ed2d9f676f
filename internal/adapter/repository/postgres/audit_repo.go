package postgres

import (
	"context"
	"encoding/json"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository over the append-only audit_log table.
type AuditRepository struct {
	db DBTX
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateTx appends an entry within tx.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Tx, entry *domain.AuditEntry) error {
	q, err := pgxTx(tx)
	if err != nil {
		return err
	}

	before, err := marshalState(entry.BeforeState)
	if err != nil {
		return err
	}

	after, err := marshalState(entry.AfterState)
	if err != nil {
		return err
	}

	_, err = q.Exec(ctx, `
		INSERT INTO audit_log (id, table_name, record_id, game_id, actor_id, action, before_state, after_state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.TableName, entry.RecordID, entry.GameID, entry.ActorID, string(entry.Action),
		before, after, entry.CreatedAt,
	)

	return err
}

// ListByRecord returns a record's entries, oldest first.
func (r *AuditRepository) ListByRecord(ctx context.Context, table, recordID string) ([]*domain.AuditEntry, error) {
	return r.list(ctx, `
		SELECT id, table_name, record_id, game_id, actor_id, action, before_state, after_state, created_at
		FROM audit_log
		WHERE table_name = $1 AND record_id = $2
		ORDER BY seq`,
		table, recordID,
	)
}

// ListByActor returns up to limit entries made by actorID, newest first.
func (r *AuditRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]*domain.AuditEntry, error) {
	return r.list(ctx, `
		SELECT id, table_name, record_id, game_id, actor_id, action, before_state, after_state, created_at
		FROM audit_log
		WHERE actor_id = $1
		ORDER BY seq DESC
		LIMIT $2`,
		actorID, limit,
	)
}

// CountByGame groups a game's entries by table and action.
func (r *AuditRepository) CountByGame(ctx context.Context, gameID string) ([]domain.AuditActionCount, error) {
	rows, err := r.db.Query(ctx, `
		SELECT table_name, action, COUNT(*), MIN(created_at), MAX(created_at)
		FROM audit_log
		WHERE game_id = $1
		GROUP BY table_name, action
		ORDER BY table_name, action`,
		gameID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.AuditActionCount, 0)
	for rows.Next() {
		var (
			c      domain.AuditActionCount
			action string
		)

		if err := rows.Scan(&c.TableName, &action, &c.Count, &c.FirstAt, &c.LastAt); err != nil {
			return nil, err
		}

		c.Action = domain.AuditAction(action)
		result = append(result, c)
	}

	return result, rows.Err()
}

func (r *AuditRepository) list(ctx context.Context, query string, args ...any) ([]*domain.AuditEntry, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*domain.AuditEntry, 0)
	for rows.Next() {
		var (
			e             domain.AuditEntry
			action        string
			before, after []byte
		)

		if err := rows.Scan(&e.ID, &e.TableName, &e.RecordID, &e.GameID, &e.ActorID, &action, &before, &after, &e.CreatedAt); err != nil {
			return nil, err
		}

		e.Action = domain.AuditAction(action)
		if e.BeforeState, err = unmarshalState(before); err != nil {
			return nil, err
		}
		if e.AfterState, err = unmarshalState(after); err != nil {
			return nil, err
		}

		result = append(result, &e)
	}

	return result, rows.Err()
}

// marshalState encodes a snapshot for a JSONB column. A nil snapshot is stored as NULL.
func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}
	return json.Marshal(state)
}

func unmarshalState(data []byte) (domain.JSON, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var state domain.JSON
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return state, nil
}
