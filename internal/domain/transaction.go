package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeBuyin   TransactionType = "buyin"
	TransactionTypeCashout TransactionType = "cashout"
)

// IsValid checks the type is one of the known values.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeBuyin || t == TransactionTypeCashout
}

// Transaction is a single buy-in or cash-out. Transactions are append-only.
type Transaction struct {
	ID        string          `json:"id"`
	GameID    string          `json:"game_id"`
	UserID    string          `json:"user_id"`
	Type      TransactionType `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Validate validates a transaction before it is recorded.
func (t *Transaction) Validate() error {
	if err := ValidateGameID(t.GameID); err != nil {
		return err
	}

	if err := ValidateUserID(t.UserID); err != nil {
		return err
	}

	if !t.Type.IsValid() {
		return ErrInvalidTransactionType
	}

	if len(t.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrNotesTooLong, MaxNotesLength)
	}

	return ValidateAmount(t.Amount)
}

// ParticipantTotals is the running buy-in and cash-out sum for one player in one game.
type ParticipantTotals struct {
	GameID       string          `json:"game_id"`
	UserID       string          `json:"user_id"`
	TotalBuyin   decimal.Decimal `json:"total_buyin"`
	TotalCashout decimal.Decimal `json:"total_cashout"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Net returns cash-out minus buy-in. Positive means the player is owed money.
func (p *ParticipantTotals) Net() decimal.Decimal {
	return p.TotalCashout.Sub(p.TotalBuyin)
}

// Apply adds a transaction's amount to the matching total.
func (p *ParticipantTotals) Apply(t *Transaction) {
	switch t.Type {
	case TransactionTypeBuyin:
		p.TotalBuyin = p.TotalBuyin.Add(t.Amount)
	case TransactionTypeCashout:
		p.TotalCashout = p.TotalCashout.Add(t.Amount)
	}

	if t.CreatedAt.After(p.UpdatedAt) {
		p.UpdatedAt = t.CreatedAt
	}
}

// SumTransactions derives participant totals from raw transactions, ordered by user id.
func SumTransactions(gameID string, txs []*Transaction) []*ParticipantTotals {
	byUser := make(map[string]*ParticipantTotals)
	for _, t := range txs {
		p, ok := byUser[t.UserID]
		if !ok {
			p = &ParticipantTotals{GameID: gameID, UserID: t.UserID}
			byUser[t.UserID] = p
		}
		p.Apply(t)
	}

	totals := make([]*ParticipantTotals, 0, len(byUser))
	for _, p := range byUser {
		totals = append(totals, p)
	}

	sort.Slice(totals, func(i, j int) bool { return totals[i].UserID < totals[j].UserID })

	return totals
}

// NetResult is one participant's net position in cents.
type NetResult struct {
	UserID string
	Net    Cents
}

// NetResults converts totals into net results ordered by user id.
// Negative totals or totals with more than two decimal places are corrupt input.
func NetResults(totals []*ParticipantTotals) ([]NetResult, error) {
	nets := make([]NetResult, 0, len(totals))
	for _, p := range totals {
		buyin, cashout, err := p.cents()
		if err != nil {
			return nil, err
		}
		nets = append(nets, NetResult{UserID: p.UserID, Net: cashout - buyin})
	}

	sort.Slice(nets, func(i, j int) bool { return nets[i].UserID < nets[j].UserID })

	return nets, nil
}

func (p *ParticipantTotals) cents() (Cents, Cents, error) {
	if p.TotalBuyin.IsNegative() || p.TotalCashout.IsNegative() {
		return 0, 0, fmt.Errorf("%w: negative total for user %s", ErrCorruptAmount, p.UserID)
	}

	buyin, err := CentsFromDecimal(p.TotalBuyin)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: buy-in total for user %s: %v", ErrCorruptAmount, p.UserID, err)
	}

	cashout, err := CentsFromDecimal(p.TotalCashout)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: cash-out total for user %s: %v", ErrCorruptAmount, p.UserID, err)
	}

	return buyin, cashout, nil
}
