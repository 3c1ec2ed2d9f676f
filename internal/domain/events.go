package domain

import "time"

// Event types
const (
	EventTypeTransactionRecorded  = "transaction.recorded"
	EventTypeSettlementCalculated = "settlement.calculated"
	EventTypeSettlementCompleted  = "settlement.completed"
	EventTypeSettlementCancelled  = "settlement.cancelled"
)

// Aggregate types
const (
	AggregateTypeGame       = "game"
	AggregateTypeSettlement = "settlement"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransactionRecordedEvent payload
type TransactionRecordedEvent struct {
	TransactionID string `json:"transaction_id"`
	GameID        string `json:"game_id"`
	UserID        string `json:"user_id"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
}

// SettlementCalculatedEvent payload
type SettlementCalculatedEvent struct {
	GameID        string   `json:"game_id"`
	SettlementIDs []string `json:"settlement_ids"`
	Forced        bool     `json:"forced"`
	CalculatedBy  string   `json:"calculated_by"`
}

// SettlementStatusEvent payload, used for completed and cancelled transitions.
type SettlementStatusEvent struct {
	SettlementID string `json:"settlement_id"`
	GameID       string `json:"game_id"`
	PayerID      string `json:"payer_id"`
	PayeeID      string `json:"payee_id"`
	Amount       string `json:"amount"`
	Status       string `json:"status"`
}
