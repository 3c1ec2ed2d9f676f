package memory

import (
	"context"
	"sort"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	store *Store
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

// CreateTx appends an entry.
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Tx, entry *domain.AuditEntry) error {
	t, unlock, err := r.store.begin(tx)
	if err != nil {
		return err
	}
	defer unlock()

	row := *entry
	t.audit = append(t.audit, &row)

	return nil
}

// ListByRecord returns a record's entries, oldest first.
func (r *AuditRepository) ListByRecord(ctx context.Context, table, recordID string) ([]*domain.AuditEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]*domain.AuditEntry, 0)
	for _, e := range r.store.audit {
		if e.TableName == table && e.RecordID == recordID {
			row := *e
			result = append(result, &row)
		}
	}

	return result, nil
}

// ListByActor returns up to limit entries made by actorID, newest first.
func (r *AuditRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]*domain.AuditEntry, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]*domain.AuditEntry, 0)
	for i := len(r.store.audit) - 1; i >= 0 && len(result) < limit; i-- {
		if e := r.store.audit[i]; e.ActorID == actorID {
			row := *e
			result = append(result, &row)
		}
	}

	return result, nil
}

// CountByGame groups a game's entries by table and action.
func (r *AuditRepository) CountByGame(ctx context.Context, gameID string) ([]domain.AuditActionCount, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	type key struct {
		table  string
		action domain.AuditAction
	}

	groups := make(map[key]*domain.AuditActionCount)
	for _, e := range r.store.audit {
		if e.GameID != gameID {
			continue
		}

		k := key{e.TableName, e.Action}
		c, ok := groups[k]
		if !ok {
			c = &domain.AuditActionCount{TableName: e.TableName, Action: e.Action, FirstAt: e.CreatedAt, LastAt: e.CreatedAt}
			groups[k] = c
		}

		c.Count++
		if e.CreatedAt.Before(c.FirstAt) {
			c.FirstAt = e.CreatedAt
		}
		if e.CreatedAt.After(c.LastAt) {
			c.LastAt = e.CreatedAt
		}
	}

	result := make([]domain.AuditActionCount, 0, len(groups))
	for _, c := range groups {
		result = append(result, *c)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TableName != result[j].TableName {
			return result[i].TableName < result[j].TableName
		}
		return result[i].Action < result[j].Action
	})

	return result, nil
}
