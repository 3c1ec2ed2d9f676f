package domain

import (
	"encoding/json"
	"time"
)

// Audited tables.
const (
	AuditTableGames          = "games"
	AuditTableTransactions   = "transactions"
	AuditTableSettlements    = "settlements"
	AuditTableSettlementRuns = "settlement_runs"
)

// AuditAction is the kind of change an audit entry records.
type AuditAction string

const (
	AuditActionInsert    AuditAction = "insert"
	AuditActionUpdate    AuditAction = "update"
	AuditActionCalculate AuditAction = "calculate"
)

// JSON is a decoded state snapshot.
type JSON map[string]any

// AuditEntry is an append-only change log record. It is written in the same
// unit of work as the mutation it describes and never modified afterwards.
type AuditEntry struct {
	ID          string      `json:"id"`
	TableName   string      `json:"table_name"`
	RecordID    string      `json:"record_id"`
	GameID      string      `json:"game_id,omitempty"`
	ActorID     string      `json:"actor_id"`
	Action      AuditAction `json:"action"`
	BeforeState JSON        `json:"before_state,omitempty"`
	AfterState  JSON        `json:"after_state,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ValidAuditTable reports whether table is one the recorder writes to.
func ValidAuditTable(table string) bool {
	switch table {
	case AuditTableGames, AuditTableTransactions, AuditTableSettlements, AuditTableSettlementRuns:
		return true
	}
	return false
}

// MarshalState converts a domain object into a JSON snapshot.
// A nil value yields a nil snapshot.
func MarshalState(v any) (JSON, error) {
	if v == nil {
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}

	return result, nil
}

// AuditActionCount aggregates entries of one table and action.
type AuditActionCount struct {
	TableName string      `json:"table_name"`
	Action    AuditAction `json:"action"`
	Count     int         `json:"count"`
	FirstAt   time.Time   `json:"first_at"`
	LastAt    time.Time   `json:"last_at"`
}

// AuditSummary is the per-game view over the audit trail.
type AuditSummary struct {
	GameID           string             `json:"game_id"`
	EntryCount       int                `json:"entry_count"`
	Counts           []AuditActionCount `json:"counts"`
	TransactionCount int                `json:"transaction_count"`
	SettlementCount  int                `json:"settlement_count"`
	PendingCount     int                `json:"pending_count"`
	CompletedCount   int                `json:"completed_count"`
	CancelledCount   int                `json:"cancelled_count"`
	FirstActivity    *time.Time         `json:"first_activity,omitempty"`
	LastActivity     *time.Time         `json:"last_activity,omitempty"`
}

// NewAuditSummary folds per-action counts and the game's settlements into a summary.
func NewAuditSummary(gameID string, counts []AuditActionCount, settlements []*Settlement) *AuditSummary {
	s := &AuditSummary{
		GameID: gameID,
		Counts: counts,
	}
	if s.Counts == nil {
		s.Counts = []AuditActionCount{}
	}

	for _, c := range counts {
		s.EntryCount += c.Count
		if c.TableName == AuditTableTransactions && c.Action == AuditActionInsert {
			s.TransactionCount += c.Count
		}

		if s.FirstActivity == nil || c.FirstAt.Before(*s.FirstActivity) {
			first := c.FirstAt
			s.FirstActivity = &first
		}
		if s.LastActivity == nil || c.LastAt.After(*s.LastActivity) {
			last := c.LastAt
			s.LastActivity = &last
		}
	}

	for _, st := range settlements {
		s.SettlementCount++
		switch st.Status {
		case SettlementStatusPending:
			s.PendingCount++
		case SettlementStatusCompleted:
			s.CompletedCount++
		case SettlementStatusCancelled:
			s.CancelledCount++
		}
	}

	return s
}
