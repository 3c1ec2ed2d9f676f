package handler

import (
	"context"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// GameService is the game lifecycle API used by GameHandler.
type GameService interface {
	CreateGame(ctx context.Context, input usecase.CreateGameInput) (*domain.Game, error)
	GetGame(ctx context.Context, id string) (*domain.Game, error)
	StartGame(ctx context.Context, id string) (*domain.Game, error)
	EndGame(ctx context.Context, id string) (*domain.Game, error)
}

// TransactionService is the buy-in/cash-out API used by TransactionHandler.
type TransactionService interface {
	RecordTransaction(ctx context.Context, input usecase.RecordTransactionInput) (*domain.Transaction, error)
	ListByGame(ctx context.Context, gameID string, limit, offset int) ([]*domain.Transaction, error)
	Totals(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error)
}

// SettlementService is the settlement API used by SettlementHandler.
type SettlementService interface {
	Validate(ctx context.Context, gameID string) (*domain.SettlementValidation, error)
	Calculate(ctx context.Context, input usecase.CalculateInput) (*usecase.CalculateResult, error)
	ListByGame(ctx context.Context, gameID string) ([]*domain.Settlement, error)
	GetSettlement(ctx context.Context, id string) (*domain.Settlement, error)
	MarkComplete(ctx context.Context, settlementID string) (*domain.Settlement, error)
	Cancel(ctx context.Context, settlementID string) (*domain.Settlement, error)
}

// ReconciliationService compares stored totals with raw transactions.
type ReconciliationService interface {
	ReconcileGame(ctx context.Context, gameID string) (*usecase.ReconciliationReport, error)
}

// AuditService is the audit read API used by AuditHandler.
type AuditService interface {
	History(ctx context.Context, table, recordID string) ([]*domain.AuditEntry, error)
	UserHistory(ctx context.Context, userID string, limit int) ([]*domain.AuditEntry, error)
	GameSummary(ctx context.Context, gameID string) (*domain.AuditSummary, error)
}

var (
	_ GameService           = (*usecase.GameUseCase)(nil)
	_ TransactionService    = (*usecase.TransactionUseCase)(nil)
	_ SettlementService     = (*usecase.SettlementUseCase)(nil)
	_ ReconciliationService = (*usecase.ReconciliationUseCase)(nil)
	_ AuditService          = (*usecase.AuditUseCase)(nil)
)
