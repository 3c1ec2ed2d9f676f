package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindUnknown},
		{ErrSettlementBusy, KindBusy},
		{fmt.Errorf("calculate: %w", ErrSettlementBusy), KindBusy},
		{ErrGameNotFound, KindNotFound},
		{ErrSettlementAlreadyCompleted, KindConflict},
		{ErrNoParticipants, KindInput},
		{fmt.Errorf("%w: bad", ErrInvalidGameID), KindInput},
		{NewPersistenceError("insert", errors.New("connection reset")), KindPersistence},
		{NewPersistenceError("audit", ErrAuditFailure), KindPersistence},
		{context.DeadlineExceeded, KindPersistence},
		{errors.New("boom"), KindUnknown},
	}

	for _, tc := range tests {
		if got := KindOf(tc.err); got != tc.want {
			t.Errorf("KindOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}

	if !KindBusy.Retryable() || KindPersistence.Retryable() {
		t.Fatalf("only busy should be retryable")
	}
}

func TestNewPersistenceError(t *testing.T) {
	t.Parallel()

	if NewPersistenceError("op", nil) != nil {
		t.Fatalf("expected nil for nil error")
	}

	if err := NewPersistenceError("op", ErrGameNotFound); err != ErrGameNotFound {
		t.Fatalf("expected domain error to pass through, got %v", err)
	}

	base := errors.New("disk full")
	err := NewPersistenceError("insert settlements", base)

	var pErr *PersistenceError
	if !errors.As(err, &pErr) || pErr.Op != "insert settlements" {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to unwrap to base")
	}
	if again := NewPersistenceError("outer", err); again != err {
		t.Fatalf("expected existing PersistenceError to pass through")
	}
}
