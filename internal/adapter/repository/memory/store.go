// Package memory is a single-node storage backend that keeps every table in
// process memory. Writes are buffered per transaction and become visible on
// commit.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

var (
	// ErrTxClosed is returned when a committed or rolled back transaction is used.
	ErrTxClosed = errors.New("memory: transaction already closed")
	// ErrForeignTx is returned when a repository receives a transaction it did not create.
	ErrForeignTx = errors.New("memory: unexpected transaction type")
	// ErrDuplicateKey mirrors a unique constraint violation.
	ErrDuplicateKey = errors.New("memory: duplicate key")
)

// Store holds all tables.
type Store struct {
	mu sync.Mutex

	games        map[string]*domain.Game
	transactions []*domain.Transaction
	totals       map[string]map[string]*domain.ParticipantTotals
	settlements  map[string]*domain.Settlement
	settlementIx []string
	runs         map[string]*domain.SettlementRun
	audit        []*domain.AuditEntry
	outbox       []*domain.OutboxEvent

	rows map[string]*rowLock
}

type rowLock struct {
	owner    *Tx
	released chan struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		games:       make(map[string]*domain.Game),
		totals:      make(map[string]map[string]*domain.ParticipantTotals),
		settlements: make(map[string]*domain.Settlement),
		runs:        make(map[string]*domain.SettlementRun),
		rows:        make(map[string]*rowLock),
	}
}

// TxManager implements usecase.TxManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newTx(m.store), nil
}

// Tx buffers its writes. Reads made through the transaction see the buffer
// over the committed tables. Other readers see nothing until Commit.
type Tx struct {
	store *Store

	games              map[string]*domain.Game
	createdGames       []string
	totals             map[string]map[string]*domain.ParticipantTotals
	runs               map[string]*domain.SettlementRun
	settlements        map[string]*domain.Settlement
	createdSettlements []string
	transactions       []*domain.Transaction
	audit              []*domain.AuditEntry
	outbox             []*domain.OutboxEvent

	rows   []string
	closed bool
}

func newTx(store *Store) *Tx {
	return &Tx{
		store:       store,
		games:       make(map[string]*domain.Game),
		totals:      make(map[string]map[string]*domain.ParticipantTotals),
		runs:        make(map[string]*domain.SettlementRun),
		settlements: make(map[string]*domain.Settlement),
	}
}

// Commit applies the buffered writes atomically. A unique key taken by another
// transaction in the meantime fails the commit and nothing is applied.
func (t *Tx) Commit(ctx context.Context) error {
	return t.finish(true)
}

// Rollback discards the buffered writes.
func (t *Tx) Rollback(ctx context.Context) error {
	return t.finish(false)
}

func (t *Tx) finish(commit bool) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.closed {
		return ErrTxClosed
	}
	t.closed = true

	var err error
	if commit {
		if err = t.conflicts(); err == nil {
			t.apply()
		}
	}

	for _, key := range t.rows {
		if l, ok := s.rows[key]; ok && l.owner == t {
			delete(s.rows, key)
			close(l.released)
		}
	}
	t.rows = nil

	*t = Tx{store: s, closed: true}

	return err
}

// conflicts reports inserts that collide with committed rows. Callers hold s.mu.
func (t *Tx) conflicts() error {
	s := t.store

	for _, id := range t.createdGames {
		if _, exists := s.games[id]; exists {
			return domain.ErrGameExists
		}
	}
	for gameID := range t.runs {
		if _, exists := s.runs[gameID]; exists {
			return ErrDuplicateKey
		}
	}
	for _, id := range t.createdSettlements {
		if _, exists := s.settlements[id]; exists {
			return ErrDuplicateKey
		}
	}

	return nil
}

// apply copies the buffer into the committed tables. Callers hold s.mu.
func (t *Tx) apply() {
	s := t.store

	for id, g := range t.games {
		s.games[id] = g
	}

	for gameID, deltas := range t.totals {
		game, ok := s.totals[gameID]
		if !ok {
			game = make(map[string]*domain.ParticipantTotals)
			s.totals[gameID] = game
		}
		for userID, delta := range deltas {
			game[userID] = mergeTotals(game[userID], delta)
		}
	}

	for gameID, run := range t.runs {
		s.runs[gameID] = run
	}

	s.settlementIx = append(s.settlementIx, t.createdSettlements...)
	for id, st := range t.settlements {
		s.settlements[id] = st
	}

	s.transactions = append(s.transactions, t.transactions...)
	s.audit = append(s.audit, t.audit...)
	s.outbox = append(s.outbox, t.outbox...)
}

// mergeTotals adds delta to base without modifying either.
func mergeTotals(base, delta *domain.ParticipantTotals) *domain.ParticipantTotals {
	row := *delta
	if base == nil {
		return &row
	}

	row.TotalBuyin = base.TotalBuyin.Add(delta.TotalBuyin)
	row.TotalCashout = base.TotalCashout.Add(delta.TotalCashout)
	if base.UpdatedAt.After(delta.UpdatedAt) {
		row.UpdatedAt = base.UpdatedAt
	}

	return &row
}

// begin resolves tx and locks the store. The returned unlock must be called.
func (s *Store) begin(tx usecase.Tx) (*Tx, func(), error) {
	t, ok := tx.(*Tx)
	if !ok || t.store != s {
		return nil, nil, ErrForeignTx
	}

	s.mu.Lock()
	if t.closed {
		s.mu.Unlock()
		return nil, nil, ErrTxClosed
	}

	return t, s.mu.Unlock, nil
}

// lockRow blocks until tx holds key or ctx is done. Locks are held until the
// transaction ends.
func (s *Store) lockRow(ctx context.Context, tx usecase.Tx, key string) (*Tx, error) {
	for {
		t, unlock, err := s.begin(tx)
		if err != nil {
			return nil, err
		}

		l, held := s.rows[key]
		if !held {
			s.rows[key] = &rowLock{owner: t, released: make(chan struct{})}
			t.rows = append(t.rows, key)
			unlock()
			return t, nil
		}
		if l.owner == t {
			unlock()
			return t, nil
		}
		unlock()

		select {
		case <-l.released:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
