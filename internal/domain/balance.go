package domain

import (
	"fmt"
)

// BalanceTolerance is the largest buy-in/cash-out difference still treated as balanced.
const BalanceTolerance Cents = 1

// SettlementValidation is the outcome of checking a game's totals.
// It is returned as data; an invalid result is not an error.
type SettlementValidation struct {
	IsValid          bool   `json:"is_valid"`
	TotalBuyins      Cents  `json:"-"`
	TotalCashouts    Cents  `json:"-"`
	Difference       Cents  `json:"-"`
	Message          string `json:"message"`
	ParticipantCount int    `json:"participant_count"`
}

// ValidateBalance sums totals across participants and checks buy-ins equal cash-outs
// within BalanceTolerance.
func ValidateBalance(totals []*ParticipantTotals) (*SettlementValidation, error) {
	if len(totals) == 0 {
		return &SettlementValidation{
			IsValid: false,
			Message: "No participants found.",
		}, nil
	}

	var buyins, cashouts Cents
	for _, p := range totals {
		b, c, err := p.cents()
		if err != nil {
			return nil, err
		}
		buyins += b
		cashouts += c
	}

	diff := buyins - cashouts
	v := &SettlementValidation{
		TotalBuyins:      buyins,
		TotalCashouts:    cashouts,
		Difference:       diff,
		ParticipantCount: len(totals),
		IsValid:          diff.Abs() <= BalanceTolerance,
	}

	switch {
	case v.IsValid:
		v.Message = "Buy-ins and cash-outs are balanced."
	case diff > 0:
		v.Message = fmt.Sprintf("Imbalance of %s: more buy-ins than cash-outs.", diff.Abs())
	default:
		v.Message = fmt.Sprintf("Imbalance of %s: more cash-outs than buy-ins.", diff.Abs())
	}

	return v, nil
}
