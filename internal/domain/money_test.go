package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCentsFromDecimal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Cents
		wantErr error
	}{
		{in: "0", want: 0},
		{in: "12.34", want: 1234},
		{in: "-0.50", want: -50},
		{in: "100", want: 10000},
		{in: "0.001", wantErr: ErrAmountPrecision},
		{in: "10.125", wantErr: ErrAmountPrecision},
		{in: "10000000000000000", wantErr: ErrAmountTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := CentsFromDecimal(decimal.RequireFromString(tc.in))
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestCentsString(t *testing.T) {
	t.Parallel()

	if got := Cents(50).String(); got != "0.50" {
		t.Fatalf("expected 0.50, got %s", got)
	}
	if got := Cents(-1234).String(); got != "-12.34" {
		t.Fatalf("expected -12.34, got %s", got)
	}
	if !Cents(999).Decimal().Equal(decimal.RequireFromString("9.99")) {
		t.Fatalf("expected 9.99")
	}
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	if err := ValidateAmount(decimal.RequireFromString("100.25")); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}

	if err := ValidateAmount(decimal.RequireFromString("-5")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for negative, got %v", err)
	}

	if err := ValidateAmount(decimal.RequireFromString("0.001")); !errors.Is(err, ErrAmountPrecision) {
		t.Fatalf("expected ErrAmountPrecision, got %v", err)
	}

	huge := decimal.RequireFromString(MaxAmount).Add(decimal.NewFromInt(1))
	if err := ValidateAmount(huge); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestValidateSettlementAmount(t *testing.T) {
	t.Parallel()

	aboveTransactionCap := decimal.RequireFromString(MaxAmount).Mul(decimal.NewFromInt(3))
	if err := ValidateSettlementAmount(aboveTransactionCap); err != nil {
		t.Fatalf("expected %s to be a valid transfer, got %v", aboveTransactionCap, err)
	}

	if err := ValidateSettlementAmount(decimal.RequireFromString(MaxSettlementAmount)); err != nil {
		t.Fatalf("expected the bound itself to be valid, got %v", err)
	}

	if err := ValidateSettlementAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for zero, got %v", err)
	}

	over := decimal.RequireFromString(MaxSettlementAmount).Add(decimal.RequireFromString("0.01"))
	if err := ValidateSettlementAmount(over); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}
