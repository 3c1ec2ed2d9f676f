package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Game errors
	ErrGameNotFound          = errors.New("game not found")
	ErrGameExists            = errors.New("game already exists")
	ErrInvalidGameID         = errors.New("invalid game id")
	ErrGameNotActive         = errors.New("game is not active")
	ErrInvalidGameName       = errors.New("invalid game name")
	ErrInvalidGameTransition = errors.New("invalid game status transition")

	// Transaction errors
	ErrInvalidUserID          = errors.New("invalid user id")
	ErrInvalidTransactionType = errors.New("transaction type must be buyin or cashout")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrAmountPrecision        = errors.New("amount has more than 2 decimal places")
	ErrAmountTooLarge         = errors.New("amount exceeds maximum allowed")
	ErrNotesTooLong           = errors.New("notes too long")

	// Settlement errors
	ErrNoParticipants             = errors.New("no participants found")
	ErrCorruptAmount              = errors.New("corrupt amount in participant totals")
	ErrInvalidNetResult           = errors.New("invalid net result")
	ErrSettlementNotFound         = errors.New("settlement not found")
	ErrInvalidSettlementID        = errors.New("invalid settlement id")
	ErrSettlementRunNotFound      = errors.New("settlement has not been calculated")
	ErrSettlementAlreadyCompleted = errors.New("settlement already completed")
	ErrSettlementCancelled        = errors.New("settlement is cancelled")
	ErrSamePayerPayee             = errors.New("payer and payee must differ")
	ErrInvalidSettlementState     = errors.New("completed settlement must have a completion time")
	ErrSettlementBusy             = errors.New("settlement calculation already in progress")
	ErrSettlementConflict         = errors.New("settlement already claimed by another calculation")

	// Audit errors
	ErrAuditFailure      = errors.New("audit write failed")
	ErrInvalidAuditTable = errors.New("invalid audit table")
	ErrInvalidRecordID   = errors.New("invalid record id")
)

// ErrorKind classifies failures so callers can decide whether to retry.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInput
	KindNotFound
	KindBusy
	KindConflict
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindNotFound:
		return "not_found"
	case KindBusy:
		return "busy"
	case KindConflict:
		return "conflict"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Retryable reports whether a caller should retry with backoff.
func (k ErrorKind) Retryable() bool {
	return k == KindBusy
}

// KindOf returns the classification of err.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	switch {
	case errors.Is(err, ErrSettlementBusy), errors.Is(err, ErrSettlementConflict):
		return KindBusy
	case errors.Is(err, ErrGameNotFound),
		errors.Is(err, ErrSettlementNotFound),
		errors.Is(err, ErrSettlementRunNotFound):
		return KindNotFound
	case errors.Is(err, ErrSettlementAlreadyCompleted),
		errors.Is(err, ErrSettlementCancelled),
		errors.Is(err, ErrGameNotActive),
		errors.Is(err, ErrGameExists),
		errors.Is(err, ErrInvalidGameTransition):
		return KindConflict
	case errors.Is(err, ErrInvalidGameID),
		errors.Is(err, ErrInvalidGameName),
		errors.Is(err, ErrInvalidUserID),
		errors.Is(err, ErrInvalidSettlementID),
		errors.Is(err, ErrInvalidTransactionType),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAmountPrecision),
		errors.Is(err, ErrAmountTooLarge),
		errors.Is(err, ErrNotesTooLong),
		errors.Is(err, ErrNoParticipants),
		errors.Is(err, ErrCorruptAmount),
		errors.Is(err, ErrInvalidNetResult),
		errors.Is(err, ErrSamePayerPayee),
		errors.Is(err, ErrInvalidSettlementState),
		errors.Is(err, ErrInvalidAuditTable),
		errors.Is(err, ErrInvalidRecordID):
		return KindInput
	}

	var pErr *PersistenceError
	if errors.As(err, &pErr) {
		return KindPersistence
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindPersistence
	}

	return KindUnknown
}

// PersistenceError wraps a storage failure. The enclosing unit of work has been
// rolled back when one of these is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError wraps err unless it is nil, already classified, or a domain error.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pErr *PersistenceError
	if errors.As(err, &pErr) {
		return err
	}

	if k := KindOf(err); k != KindUnknown && k != KindPersistence {
		return err
	}

	return &PersistenceError{Op: op, Err: err}
}
