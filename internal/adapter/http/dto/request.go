package dto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// CreateGameRequest represents a request to create a game.
type CreateGameRequest struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateGameRequest) ToUseCaseInput() usecase.CreateGameInput {
	return usecase.CreateGameInput{
		ID:          r.ID,
		Name:        r.Name,
		ScheduledAt: r.ScheduledAt,
	}
}

// RecordTransactionRequest represents a buy-in or cash-out.
// Amount is a decimal string such as "25.50".
type RecordTransactionRequest struct {
	UserID string `json:"user_id"`
	Type   string `json:"type"`
	Amount string `json:"amount"`
	Notes  string `json:"notes,omitempty"`
}

// ToUseCaseInput converts to use case input for gameID.
func (r *RecordTransactionRequest) ToUseCaseInput(gameID string) (usecase.RecordTransactionInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return usecase.RecordTransactionInput{}, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, r.Amount)
	}

	return usecase.RecordTransactionInput{
		GameID: gameID,
		UserID: r.UserID,
		Type:   domain.TransactionType(r.Type),
		Amount: amount,
		Notes:  r.Notes,
	}, nil
}
