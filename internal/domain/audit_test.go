package domain

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMarshalState(t *testing.T) {
	t.Parallel()

	state, err := MarshalState(pendingSettlement())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state["payer_id"] != "bob" || state["status"] != "pending" {
		t.Fatalf("unexpected state: %v", state)
	}
	if state["amount"] != "12.5" {
		t.Fatalf("expected decimal amount as string, got %v", state["amount"])
	}

	if state, err := MarshalState(nil); err != nil || state != nil {
		t.Fatalf("expected nil state for nil value, got %v, %v", state, err)
	}

	if _, err := MarshalState(make(chan int)); err == nil {
		t.Fatalf("expected error for unmarshalable value")
	}
}

func TestValidAuditTable(t *testing.T) {
	t.Parallel()

	for _, table := range []string{AuditTableGames, AuditTableTransactions, AuditTableSettlements, AuditTableSettlementRuns} {
		if !ValidAuditTable(table) {
			t.Fatalf("expected %s to be valid", table)
		}
	}
	if ValidAuditTable("users") {
		t.Fatalf("expected users to be rejected")
	}
}

func TestNewAuditSummary(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 10, 19, 19, 0, 0, 0, time.UTC)
	counts := []AuditActionCount{
		{TableName: AuditTableTransactions, Action: AuditActionInsert, Count: 6, FirstAt: t0, LastAt: t0.Add(3 * time.Hour)},
		{TableName: AuditTableSettlements, Action: AuditActionInsert, Count: 2, FirstAt: t0.Add(4 * time.Hour), LastAt: t0.Add(4 * time.Hour)},
		{TableName: AuditTableSettlements, Action: AuditActionUpdate, Count: 1, FirstAt: t0.Add(5 * time.Hour), LastAt: t0.Add(5 * time.Hour)},
	}

	completed := pendingSettlement()
	_ = completed.MarkCompleted(t0.Add(5 * time.Hour))
	settlements := []*Settlement{completed, {ID: "stl-2", Status: SettlementStatusPending, Amount: decimal.NewFromInt(1)}}

	s := NewAuditSummary("game-1", counts, settlements)

	if s.EntryCount != 9 || s.TransactionCount != 6 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.SettlementCount != 2 || s.PendingCount != 1 || s.CompletedCount != 1 || s.CancelledCount != 0 {
		t.Fatalf("unexpected settlement counts: %+v", s)
	}
	if !s.FirstActivity.Equal(t0) || !s.LastActivity.Equal(t0.Add(5*time.Hour)) {
		t.Fatalf("unexpected activity window: %v - %v", s.FirstActivity, s.LastActivity)
	}

	empty := NewAuditSummary("game-2", nil, nil)
	if empty.Counts == nil || empty.FirstActivity != nil {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}

func TestActorFromContext(t *testing.T) {
	t.Parallel()

	if got := ActorFromContext(context.Background()); got != SystemActor {
		t.Fatalf("expected %s, got %s", SystemActor, got)
	}

	ctx := ContextWithActor(context.Background(), "alice")
	if got := ActorFromContext(ctx); got != "alice" {
		t.Fatalf("expected alice, got %s", got)
	}
}
