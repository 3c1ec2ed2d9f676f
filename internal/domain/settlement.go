package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusCompleted SettlementStatus = "completed"
	SettlementStatusCancelled SettlementStatus = "cancelled"
)

// Settlement is a directed payer to payee transfer resolving a game's net results.
// Rows are created once per game and afterwards only change status.
type Settlement struct {
	ID          string           `json:"id"`
	GameID      string           `json:"game_id"`
	PayerID     string           `json:"payer_id"`
	PayeeID     string           `json:"payee_id"`
	Amount      decimal.Decimal  `json:"amount"`
	Status      SettlementStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Validate checks the row invariants.
func (s *Settlement) Validate() error {
	if s.PayerID == s.PayeeID {
		return ErrSamePayerPayee
	}

	if err := ValidateSettlementAmount(s.Amount); err != nil {
		return err
	}

	if s.Status == SettlementStatusCompleted && s.CompletedAt == nil {
		return ErrInvalidSettlementState
	}

	return nil
}

// MarkCompleted transitions pending to completed.
func (s *Settlement) MarkCompleted(now time.Time) error {
	switch s.Status {
	case SettlementStatusCompleted:
		return ErrSettlementAlreadyCompleted
	case SettlementStatusCancelled:
		return ErrSettlementCancelled
	}

	s.Status = SettlementStatusCompleted
	s.CompletedAt = &now
	s.UpdatedAt = now

	return nil
}

// Cancel transitions pending to cancelled.
func (s *Settlement) Cancel(now time.Time) error {
	switch s.Status {
	case SettlementStatusCompleted:
		return ErrSettlementAlreadyCompleted
	case SettlementStatusCancelled:
		return ErrSettlementCancelled
	}

	s.Status = SettlementStatusCancelled
	s.UpdatedAt = now

	return nil
}

// Clone returns a copy safe to use as an audit snapshot.
func (s *Settlement) Clone() *Settlement {
	c := *s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// SettlementRun marks that a game's settlement has been calculated.
// At most one run exists per game.
type SettlementRun struct {
	GameID        string          `json:"game_id"`
	CalculatedBy  string          `json:"calculated_by"`
	CalculatedAt  time.Time       `json:"calculated_at"`
	TransferCount int             `json:"transfer_count"`
	Forced        bool            `json:"forced"`
	TotalBuyins   decimal.Decimal `json:"total_buyins"`
	TotalCashouts decimal.Decimal `json:"total_cashouts"`
	Difference    decimal.Decimal `json:"difference"`
}
