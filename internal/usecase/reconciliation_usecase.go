package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pokersettle/internal/domain"
)

// ReconciliationUseCase checks stored participant totals against the raw transactions.
type ReconciliationUseCase struct {
	gameRepo        GameRepository
	transactionRepo TransactionRepository
	participantRepo ParticipantRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	gameRepo GameRepository,
	transactionRepo TransactionRepository,
	participantRepo ParticipantRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		gameRepo:        gameRepo,
		transactionRepo: transactionRepo,
		participantRepo: participantRepo,
	}
}

// ReconciliationResult compares one player's stored totals with the recomputed ones.
type ReconciliationResult struct {
	UserID          string          `json:"user_id"`
	StoredBuyin     decimal.Decimal `json:"stored_buyin"`
	StoredCashout   decimal.Decimal `json:"stored_cashout"`
	ComputedBuyin   decimal.Decimal `json:"computed_buyin"`
	ComputedCashout decimal.Decimal `json:"computed_cashout"`
	IsReconciled    bool            `json:"is_reconciled"`
}

// ReconciliationReport represents a full reconciliation report for a game.
type ReconciliationReport struct {
	GameID        string                       `json:"game_id"`
	Participants  int                          `json:"participants"`
	Reconciled    int                          `json:"reconciled"`
	Discrepancies []*ReconciliationResult      `json:"discrepancies"`
	Validation    *domain.SettlementValidation `json:"validation"`
	CheckedAt     time.Time                    `json:"checked_at"`
}

// ReconcileGame recomputes a game's totals from its transactions and reports
// every player whose stored totals drifted.
func (uc *ReconciliationUseCase) ReconcileGame(ctx context.Context, gameID string) (*ReconciliationReport, error) {
	if err := domain.ValidateGameID(gameID); err != nil {
		return nil, err
	}

	if _, err := uc.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, domain.NewPersistenceError("load game", err)
	}

	stored, err := uc.participantRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, domain.NewPersistenceError("list participant totals", err)
	}

	computed, err := uc.transactionRepo.SumByGame(ctx, gameID)
	if err != nil {
		return nil, domain.NewPersistenceError("sum transactions", err)
	}

	validation, err := domain.ValidateBalance(computed)
	if err != nil {
		return nil, err
	}

	byUser := make(map[string]*ReconciliationResult)
	results := make([]*ReconciliationResult, 0, len(computed))

	get := func(userID string) *ReconciliationResult {
		r, ok := byUser[userID]
		if !ok {
			r = &ReconciliationResult{UserID: userID}
			byUser[userID] = r
			results = append(results, r)
		}
		return r
	}

	for _, p := range stored {
		r := get(p.UserID)
		r.StoredBuyin = p.TotalBuyin
		r.StoredCashout = p.TotalCashout
	}
	for _, p := range computed {
		r := get(p.UserID)
		r.ComputedBuyin = p.TotalBuyin
		r.ComputedCashout = p.TotalCashout
	}

	report := &ReconciliationReport{
		GameID:        gameID,
		Participants:  len(results),
		Discrepancies: make([]*ReconciliationResult, 0),
		Validation:    validation,
		CheckedAt:     time.Now().UTC(),
	}

	for _, r := range results {
		r.IsReconciled = r.StoredBuyin.Equal(r.ComputedBuyin) && r.StoredCashout.Equal(r.ComputedCashout)
		if r.IsReconciled {
			report.Reconciled++
		} else {
			report.Discrepancies = append(report.Discrepancies, r)
		}
	}

	return report, nil
}
