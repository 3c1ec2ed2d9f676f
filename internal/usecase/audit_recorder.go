package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/infrastructure/metrics"
)

// AuditRecorder appends audit entries inside the caller's unit of work.
type AuditRecorder struct {
	repo    AuditRepository
	idGen   IDGenerator
	metrics *metrics.Metrics
}

// NewAuditRecorder creates a new AuditRecorder.
func NewAuditRecorder(repo AuditRepository, idGen IDGenerator, m *metrics.Metrics) *AuditRecorder {
	return &AuditRecorder{
		repo:    repo,
		idGen:   idGen,
		metrics: m,
	}
}

// AuditChange describes one mutation to record.
type AuditChange struct {
	Table    string
	RecordID string
	GameID   string
	Action   domain.AuditAction
	Before   any
	After    any
}

// Record writes change to the audit log within tx. Any failure is returned as a
// PersistenceError wrapping domain.ErrAuditFailure so the caller's unit of work
// is rolled back with it.
func (r *AuditRecorder) Record(ctx context.Context, tx Tx, change AuditChange) error {
	op := "audit " + change.Table

	before, err := domain.MarshalState(change.Before)
	if err != nil {
		return &domain.PersistenceError{Op: op, Err: fmt.Errorf("%w: before state: %w", domain.ErrAuditFailure, err)}
	}

	after, err := domain.MarshalState(change.After)
	if err != nil {
		return &domain.PersistenceError{Op: op, Err: fmt.Errorf("%w: after state: %w", domain.ErrAuditFailure, err)}
	}

	entry := &domain.AuditEntry{
		ID:          r.idGen.Generate(),
		TableName:   change.Table,
		RecordID:    change.RecordID,
		GameID:      change.GameID,
		ActorID:     domain.ActorFromContext(ctx),
		Action:      change.Action,
		BeforeState: before,
		AfterState:  after,
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.repo.CreateTx(ctx, tx, entry); err != nil {
		return &domain.PersistenceError{Op: op, Err: fmt.Errorf("%w: %w", domain.ErrAuditFailure, err)}
	}

	if r.metrics != nil {
		r.metrics.AuditEntriesCreated.WithLabelValues(change.Table, string(change.Action)).Inc()
	}

	return nil
}
