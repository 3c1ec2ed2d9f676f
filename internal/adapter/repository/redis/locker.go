package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// DefaultLockTTL bounds how long a crashed holder can block a game.
const DefaultLockTTL = 30 * time.Second

// releaseScript deletes the key only if it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker implements usecase.SettlementLocker with a Redis key per game, for
// deployments that run several API instances against one database.
type Locker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewLocker creates a new Locker. A non-positive ttl uses DefaultLockTTL.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	return &Locker{
		client: client,
		prefix: "pokersettle:lock:settlement:",
		ttl:    ttl,
	}
}

// TryLock sets gameID's key if absent. It never waits.
func (l *Locker) TryLock(ctx context.Context, _ usecase.Tx, gameID string) (usecase.Lease, error) {
	key := l.prefix + gameID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", gameID, err)
	}
	if !ok {
		return nil, domain.ErrSettlementBusy
	}

	return &lease{client: l.client, key: key, token: token}, nil
}

type lease struct {
	client *redis.Client
	key    string
	token  string
}

// Release deletes the key if this lease still owns it. It returns
// usecase.ErrLeaseLost when the key expired or was taken over.
func (le *lease) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, le.client, []string{le.key}, le.token).Int()
	if err != nil {
		return fmt.Errorf("redis unlock: %w", err)
	}
	if n == 0 {
		return usecase.ErrLeaseLost
	}
	return nil
}
