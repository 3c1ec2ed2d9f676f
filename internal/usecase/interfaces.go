package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/iho/pokersettle/internal/domain"
)

// GameRepository defines data access for games.
type GameRepository interface {
	Create(ctx context.Context, tx Tx, game *domain.Game) error
	GetByID(ctx context.Context, id string) (*domain.Game, error)
	GetByIDTx(ctx context.Context, tx Tx, id string) (*domain.Game, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.Game, error)
	UpdateStatus(ctx context.Context, tx Tx, game *domain.Game) error
}

// TransactionRepository defines data access for buy-ins and cash-outs.
type TransactionRepository interface {
	Create(ctx context.Context, tx Tx, t *domain.Transaction) error
	ListByGame(ctx context.Context, gameID string, limit, offset int) ([]*domain.Transaction, error)
	// SumByGame derives participant totals directly from the raw transactions.
	SumByGame(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error)
}

// ParticipantRepository defines data access for per-player running totals.
type ParticipantRepository interface {
	// Increment atomically adds t's amount to the player's totals, creating the row if needed.
	Increment(ctx context.Context, tx Tx, t *domain.Transaction) error
	ListByGame(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error)
	ListByGameTx(ctx context.Context, tx Tx, gameID string) ([]*domain.ParticipantTotals, error)
}

// SettlementRepository defines data access for settlement transfers.
type SettlementRepository interface {
	CreateBatch(ctx context.Context, tx Tx, settlements []*domain.Settlement) error
	GetByID(ctx context.Context, id string) (*domain.Settlement, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id string) (*domain.Settlement, error)
	ListByGame(ctx context.Context, gameID string) ([]*domain.Settlement, error)
	ListByGameTx(ctx context.Context, tx Tx, gameID string) ([]*domain.Settlement, error)
	UpdateStatus(ctx context.Context, tx Tx, settlement *domain.Settlement) error
}

// SettlementRunRepository records that a game's settlement has been calculated.
type SettlementRunRepository interface {
	// Claim inserts run unless one already exists for the game. It reports whether
	// this call created the row.
	Claim(ctx context.Context, tx Tx, run *domain.SettlementRun) (bool, error)
	GetByGame(ctx context.Context, gameID string) (*domain.SettlementRun, error)
	GetByGameTx(ctx context.Context, tx Tx, gameID string) (*domain.SettlementRun, error)
}

// SettlementLocker provides the per-game mutual exclusion for settlement calculation.
type SettlementLocker interface {
	// TryLock acquires the game's lock without waiting. It returns
	// domain.ErrSettlementBusy when another caller holds it.
	TryLock(ctx context.Context, tx Tx, gameID string) (Lease, error)
}

// ErrLeaseLost is returned by Lease.Release when the lock was no longer held by
// the lease, for example because its TTL expired.
var ErrLeaseLost = errors.New("settlement lock no longer held")

// Lease is a held settlement lock.
type Lease interface {
	Release(ctx context.Context) error
}

// AuditRepository defines data access for the audit log.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Tx, entry *domain.AuditEntry) error
	ListByRecord(ctx context.Context, table, recordID string) ([]*domain.AuditEntry, error)
	ListByActor(ctx context.Context, actorID string, limit int) ([]*domain.AuditEntry, error)
	CountByGame(ctx context.Context, gameID string) ([]domain.AuditActionCount, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Tx, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Tx represents a database unit of work.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxManager handles unit of work lifecycle.
type TxManager interface {
	Begin(ctx context.Context) (Tx, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release forgets key so a failed request can be retried with it.
	Release(ctx context.Context, key string) error
}

// Retrier retries operations that failed with transient storage errors.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}
