package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction.
	// It also bounds how long a settlement lock can be held.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultCacheTTL is how long settlement reads are cached.
	DefaultCacheTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// IdempotencyPending is stored under an idempotency key while its first request runs.
const IdempotencyPending = "processing"

func gameSettlementsCacheKey(gameID string) string {
	return "settlements:game:" + gameID
}

func settlementCacheKey(id string) string {
	return "settlements:id:" + id
}
