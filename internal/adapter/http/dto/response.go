package dto

import (
	"time"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// GameResponse represents a game in API responses.
type GameResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// GameFromDomain converts a domain game to response.
func GameFromDomain(g *domain.Game) *GameResponse {
	return &GameResponse{
		ID:          g.ID,
		Name:        g.Name,
		Status:      string(g.Status),
		ScheduledAt: g.ScheduledAt,
		StartedAt:   g.StartedAt,
		EndedAt:     g.EndedAt,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

// TransactionResponse represents a buy-in or cash-out in API responses.
type TransactionResponse struct {
	ID        string    `json:"id"`
	GameID    string    `json:"game_id"`
	UserID    string    `json:"user_id"`
	Type      string    `json:"type"`
	Amount    string    `json:"amount"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TransactionFromDomain converts a domain transaction to response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:        t.ID,
		GameID:    t.GameID,
		UserID:    t.UserID,
		Type:      string(t.Type),
		Amount:    t.Amount.StringFixed(domain.AmountScale),
		Notes:     t.Notes,
		CreatedAt: t.CreatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txs []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txs))
	for i, t := range txs {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ParticipantResponse represents a player's totals in a game.
type ParticipantResponse struct {
	UserID       string `json:"user_id"`
	TotalBuyin   string `json:"total_buyin"`
	TotalCashout string `json:"total_cashout"`
	Net          string `json:"net"`
}

// ParticipantsFromDomain converts participant totals to responses.
func ParticipantsFromDomain(totals []*domain.ParticipantTotals) []*ParticipantResponse {
	result := make([]*ParticipantResponse, len(totals))
	for i, p := range totals {
		result[i] = &ParticipantResponse{
			UserID:       p.UserID,
			TotalBuyin:   p.TotalBuyin.StringFixed(domain.AmountScale),
			TotalCashout: p.TotalCashout.StringFixed(domain.AmountScale),
			Net:          p.Net().StringFixed(domain.AmountScale),
		}
	}
	return result
}

// ValidationResponse represents a balance check.
type ValidationResponse struct {
	IsValid          bool   `json:"is_valid"`
	TotalBuyins      string `json:"total_buyins"`
	TotalCashouts    string `json:"total_cashouts"`
	Difference       string `json:"difference"`
	Message          string `json:"message"`
	ParticipantCount int    `json:"participant_count"`
}

// ValidationFromDomain converts a validation to response.
func ValidationFromDomain(v *domain.SettlementValidation) *ValidationResponse {
	if v == nil {
		return nil
	}
	return &ValidationResponse{
		IsValid:          v.IsValid,
		TotalBuyins:      v.TotalBuyins.String(),
		TotalCashouts:    v.TotalCashouts.String(),
		Difference:       v.Difference.String(),
		Message:          v.Message,
		ParticipantCount: v.ParticipantCount,
	}
}

// SettlementResponse represents a settlement transfer in API responses.
type SettlementResponse struct {
	ID          string     `json:"id"`
	GameID      string     `json:"game_id"`
	PayerID     string     `json:"payer_id"`
	PayeeID     string     `json:"payee_id"`
	Amount      string     `json:"amount"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// SettlementFromDomain converts a domain settlement to response.
func SettlementFromDomain(s *domain.Settlement) *SettlementResponse {
	return &SettlementResponse{
		ID:          s.ID,
		GameID:      s.GameID,
		PayerID:     s.PayerID,
		PayeeID:     s.PayeeID,
		Amount:      s.Amount.StringFixed(domain.AmountScale),
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		CompletedAt: s.CompletedAt,
	}
}

// SettlementsFromDomain converts domain settlements to responses.
func SettlementsFromDomain(settlements []*domain.Settlement) []*SettlementResponse {
	result := make([]*SettlementResponse, len(settlements))
	for i, s := range settlements {
		result[i] = SettlementFromDomain(s)
	}
	return result
}

// ResidualResponse is a net balance the solver could not pair.
type ResidualResponse struct {
	UserID string `json:"user_id"`
	Net    string `json:"net"`
}

// CalculateResponse is the outcome of a settlement calculation.
type CalculateResponse struct {
	Status      string                `json:"status"`
	GameID      string                `json:"game_id"`
	Settlements []*SettlementResponse `json:"settlements"`
	Validation  *ValidationResponse   `json:"validation"`
	Unresolved  []ResidualResponse    `json:"unresolved,omitempty"`
	Forced      bool                  `json:"forced"`
}

// CalculateFromUseCase converts a calculation result to response.
func CalculateFromUseCase(r *usecase.CalculateResult) *CalculateResponse {
	resp := &CalculateResponse{
		Status:      string(r.Status),
		GameID:      r.GameID,
		Settlements: SettlementsFromDomain(r.Settlements),
		Validation:  ValidationFromDomain(r.Validation),
	}
	if r.Run != nil {
		resp.Forced = r.Run.Forced
	}
	for _, u := range r.Unresolved {
		resp.Unresolved = append(resp.Unresolved, ResidualResponse{UserID: u.UserID, Net: u.Net.String()})
	}
	return resp
}

// DiscrepancyResponse describes one player whose stored totals disagree with the raw transactions.
type DiscrepancyResponse struct {
	UserID          string `json:"user_id"`
	StoredBuyin     string `json:"stored_buyin"`
	StoredCashout   string `json:"stored_cashout"`
	ComputedBuyin   string `json:"computed_buyin"`
	ComputedCashout string `json:"computed_cashout"`
}

// ReconciliationResponse represents a reconciliation report.
type ReconciliationResponse struct {
	GameID        string                 `json:"game_id"`
	Participants  int                    `json:"participants"`
	Reconciled    int                    `json:"reconciled"`
	Discrepancies []*DiscrepancyResponse `json:"discrepancies"`
	Validation    *ValidationResponse    `json:"validation"`
	CheckedAt     time.Time              `json:"checked_at"`
}

// ReconciliationFromUseCase converts a reconciliation report to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationReport) *ReconciliationResponse {
	resp := &ReconciliationResponse{
		GameID:        r.GameID,
		Participants:  r.Participants,
		Reconciled:    r.Reconciled,
		Discrepancies: make([]*DiscrepancyResponse, len(r.Discrepancies)),
		Validation:    ValidationFromDomain(r.Validation),
		CheckedAt:     r.CheckedAt,
	}
	for i, d := range r.Discrepancies {
		resp.Discrepancies[i] = &DiscrepancyResponse{
			UserID:          d.UserID,
			StoredBuyin:     d.StoredBuyin.StringFixed(domain.AmountScale),
			StoredCashout:   d.StoredCashout.StringFixed(domain.AmountScale),
			ComputedBuyin:   d.ComputedBuyin.StringFixed(domain.AmountScale),
			ComputedCashout: d.ComputedCashout.StringFixed(domain.AmountScale),
		}
	}
	return resp
}
