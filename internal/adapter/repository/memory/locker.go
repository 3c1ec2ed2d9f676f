package memory

import (
	"context"
	"sync"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// Locker is an in-process keyed mutex for single-node deployments.
type Locker struct {
	mu   sync.Mutex
	held map[string]uint64
	seq  uint64
}

// NewLocker creates a new Locker.
func NewLocker() *Locker {
	return &Locker{held: make(map[string]uint64)}
}

// TryLock acquires gameID's lock or returns domain.ErrSettlementBusy.
func (l *Locker) TryLock(ctx context.Context, _ usecase.Tx, gameID string) (usecase.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.held[gameID]; busy {
		return nil, domain.ErrSettlementBusy
	}

	l.seq++
	l.held[gameID] = l.seq

	return &lease{locker: l, gameID: gameID, token: l.seq}, nil
}

type lease struct {
	locker *Locker
	gameID string
	token  uint64
}

func (le *lease) Release(ctx context.Context) error {
	l := le.locker
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held[le.gameID] != le.token {
		return usecase.ErrLeaseLost
	}
	delete(l.held, le.gameID)

	return nil
}
