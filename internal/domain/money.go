package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount in hundredths of the game currency unit.
// All settlement arithmetic happens in Cents; decimal.Decimal is used at the edges.
type Cents int64

const (
	// AmountScale is the number of decimal places kept for money.
	AmountScale = 2

	// MaxAmount bounds a single transaction amount.
	MaxAmount = "1000000"

	// MaxSettlementAmount bounds a settlement transfer. A transfer never exceeds
	// a player's net result, which is bounded by the aggregated totals.
	MaxSettlementAmount = "1000000000000000"
)

var (
	maxAmount = decimal.RequireFromString(MaxAmount)

	// maxTotal bounds aggregated totals so cents fit comfortably in int64.
	maxTotal = decimal.RequireFromString(MaxSettlementAmount)
)

// CentsFromDecimal converts d to Cents. Values carrying more than two decimal
// places of precision are rejected rather than rounded.
func CentsFromDecimal(d decimal.Decimal) (Cents, error) {
	if !d.Equal(d.Truncate(AmountScale)) {
		return 0, fmt.Errorf("%w: %s", ErrAmountPrecision, d.String())
	}

	if d.Abs().GreaterThan(maxTotal) {
		return 0, fmt.Errorf("%w: %s", ErrAmountTooLarge, d.String())
	}

	return Cents(d.Shift(AmountScale).IntPart()), nil
}

// Decimal returns c as a decimal with two places.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -AmountScale)
}

// String formats c with exactly two decimal places.
func (c Cents) String() string {
	return c.Decimal().StringFixed(AmountScale)
}

// Abs returns the magnitude of c.
func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// ValidateAmount validates a transaction amount.
func ValidateAmount(amount decimal.Decimal) error {
	return validateAmount(amount, maxAmount, MaxAmount)
}

// ValidateSettlementAmount validates a settlement transfer amount.
func ValidateSettlementAmount(amount decimal.Decimal) error {
	return validateAmount(amount, maxTotal, MaxSettlementAmount)
}

func validateAmount(amount, limit decimal.Decimal, limitText string) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.Equal(amount.Truncate(AmountScale)) {
		return fmt.Errorf("%w: %s", ErrAmountPrecision, amount.String())
	}

	if amount.GreaterThan(limit) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, limitText)
	}

	return nil
}
