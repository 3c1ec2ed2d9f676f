package usecase

import (
	"context"
	"fmt"

	"github.com/iho/pokersettle/internal/domain"
)

// AuditUseCase serves reads over the audit trail.
type AuditUseCase struct {
	auditRepo      AuditRepository
	gameRepo       GameRepository
	settlementRepo SettlementRepository
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(auditRepo AuditRepository, gameRepo GameRepository, settlementRepo SettlementRepository) *AuditUseCase {
	return &AuditUseCase{
		auditRepo:      auditRepo,
		gameRepo:       gameRepo,
		settlementRepo: settlementRepo,
	}
}

// History returns every entry for one record, oldest first.
func (uc *AuditUseCase) History(ctx context.Context, table, recordID string) ([]*domain.AuditEntry, error) {
	if !domain.ValidAuditTable(table) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAuditTable, table)
	}

	if recordID == "" || len(recordID) > domain.MaxIDLength {
		return nil, domain.ErrInvalidRecordID
	}

	entries, err := uc.auditRepo.ListByRecord(ctx, table, recordID)
	if err != nil {
		return nil, domain.NewPersistenceError("list audit entries", err)
	}

	return entries, nil
}

// UserHistory returns the most recent entries made by a user, newest first.
// limit defaults to domain.DefaultPageSize and is capped at domain.MaxPageSize.
func (uc *AuditUseCase) UserHistory(ctx context.Context, userID string, limit int) ([]*domain.AuditEntry, error) {
	if err := domain.ValidateUserID(userID); err != nil {
		return nil, err
	}

	limit, _ = domain.ValidatePagination(limit, 0)

	entries, err := uc.auditRepo.ListByActor(ctx, userID, limit)
	if err != nil {
		return nil, domain.NewPersistenceError("list audit entries", err)
	}

	return entries, nil
}

// GameSummary aggregates a game's audit trail and settlement states.
func (uc *AuditUseCase) GameSummary(ctx context.Context, gameID string) (*domain.AuditSummary, error) {
	if err := domain.ValidateGameID(gameID); err != nil {
		return nil, err
	}

	if _, err := uc.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, domain.NewPersistenceError("load game", err)
	}

	counts, err := uc.auditRepo.CountByGame(ctx, gameID)
	if err != nil {
		return nil, domain.NewPersistenceError("count audit entries", err)
	}

	settlements, err := uc.settlementRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, domain.NewPersistenceError("list settlements", err)
	}

	return domain.NewAuditSummary(gameID, counts, settlements), nil
}
