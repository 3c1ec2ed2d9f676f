package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// MockGameRepository is a mock implementation of GameRepository.
type MockGameRepository struct {
	mu    sync.RWMutex
	games map[string]*domain.Game

	CreateFunc           func(ctx context.Context, tx usecase.Tx, game *domain.Game) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Game, error)
	GetByIDForUpdateFunc func(ctx context.Context, tx usecase.Tx, id string) (*domain.Game, error)
	UpdateStatusFunc     func(ctx context.Context, tx usecase.Tx, game *domain.Game) error
}

func NewMockGameRepository(games ...*domain.Game) *MockGameRepository {
	m := &MockGameRepository{games: make(map[string]*domain.Game)}
	for _, g := range games {
		m.games[g.ID] = g
	}
	return m
}

func (m *MockGameRepository) Create(ctx context.Context, tx usecase.Tx, game *domain.Game) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, game)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[game.ID]; ok {
		return domain.ErrGameExists
	}
	m.games[game.ID] = game.Clone()
	return nil
}

func (m *MockGameRepository) GetByID(ctx context.Context, id string) (*domain.Game, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.games[id]; ok {
		return g.Clone(), nil
	}
	return nil, domain.ErrGameNotFound
}

func (m *MockGameRepository) GetByIDTx(ctx context.Context, tx usecase.Tx, id string) (*domain.Game, error) {
	return m.GetByID(ctx, id)
}

func (m *MockGameRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Game, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockGameRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, game *domain.Game) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, game)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games[game.ID] = game.Clone()
	return nil
}

// MockTransactionRepository is a mock implementation of TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions []*domain.Transaction

	CreateFunc    func(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error
	SumByGameFunc func(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{}
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	row := *t
	m.transactions = append(m.transactions, &row)
	return nil
}

func (m *MockTransactionRepository) ListByGame(ctx context.Context, gameID string, limit, offset int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Transaction
	for _, t := range m.transactions {
		if t.GameID == gameID {
			result = append(result, t)
		}
	}
	if offset >= len(result) {
		return []*domain.Transaction{}, nil
	}
	result = result[offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockTransactionRepository) SumByGame(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error) {
	if m.SumByGameFunc != nil {
		return m.SumByGameFunc(ctx, gameID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var txs []*domain.Transaction
	for _, t := range m.transactions {
		if t.GameID == gameID {
			txs = append(txs, t)
		}
	}
	return domain.SumTransactions(gameID, txs), nil
}

// MockParticipantRepository is a mock implementation of ParticipantRepository.
type MockParticipantRepository struct {
	mu     sync.RWMutex
	totals map[string]map[string]*domain.ParticipantTotals

	IncrementFunc    func(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error
	ListByGameTxFunc func(ctx context.Context, tx usecase.Tx, gameID string) ([]*domain.ParticipantTotals, error)
}

func NewMockParticipantRepository(totals ...*domain.ParticipantTotals) *MockParticipantRepository {
	m := &MockParticipantRepository{totals: make(map[string]map[string]*domain.ParticipantTotals)}
	for _, p := range totals {
		if m.totals[p.GameID] == nil {
			m.totals[p.GameID] = make(map[string]*domain.ParticipantTotals)
		}
		m.totals[p.GameID][p.UserID] = p
	}
	return m
}

func (m *MockParticipantRepository) Increment(ctx context.Context, tx usecase.Tx, t *domain.Transaction) error {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, tx, t)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totals[t.GameID] == nil {
		m.totals[t.GameID] = make(map[string]*domain.ParticipantTotals)
	}
	p, ok := m.totals[t.GameID][t.UserID]
	if !ok {
		p = &domain.ParticipantTotals{GameID: t.GameID, UserID: t.UserID}
		m.totals[t.GameID][t.UserID] = p
	}
	p.Apply(t)
	return nil
}

func (m *MockParticipantRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.ParticipantTotals, 0)
	for _, p := range m.totals[gameID] {
		row := *p
		result = append(result, &row)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

func (m *MockParticipantRepository) ListByGameTx(ctx context.Context, tx usecase.Tx, gameID string) ([]*domain.ParticipantTotals, error) {
	if m.ListByGameTxFunc != nil {
		return m.ListByGameTxFunc(ctx, tx, gameID)
	}
	return m.ListByGame(ctx, gameID)
}

// MockSettlementRepository is a mock implementation of SettlementRepository.
type MockSettlementRepository struct {
	mu          sync.RWMutex
	settlements map[string]*domain.Settlement
	order       []string

	CreateBatchFunc  func(ctx context.Context, tx usecase.Tx, settlements []*domain.Settlement) error
	UpdateStatusFunc func(ctx context.Context, tx usecase.Tx, settlement *domain.Settlement) error
}

func NewMockSettlementRepository(settlements ...*domain.Settlement) *MockSettlementRepository {
	m := &MockSettlementRepository{settlements: make(map[string]*domain.Settlement)}
	for _, s := range settlements {
		m.settlements[s.ID] = s
		m.order = append(m.order, s.ID)
	}
	return m
}

func (m *MockSettlementRepository) CreateBatch(ctx context.Context, tx usecase.Tx, settlements []*domain.Settlement) error {
	if m.CreateBatchFunc != nil {
		return m.CreateBatchFunc(ctx, tx, settlements)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range settlements {
		m.settlements[s.ID] = s.Clone()
		m.order = append(m.order, s.ID)
	}
	return nil
}

func (m *MockSettlementRepository) GetByID(ctx context.Context, id string) (*domain.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.settlements[id]; ok {
		return s.Clone(), nil
	}
	return nil, domain.ErrSettlementNotFound
}

func (m *MockSettlementRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Tx, id string) (*domain.Settlement, error) {
	return m.GetByID(ctx, id)
}

func (m *MockSettlementRepository) ListByGame(ctx context.Context, gameID string) ([]*domain.Settlement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Settlement, 0)
	for _, id := range m.order {
		if s := m.settlements[id]; s.GameID == gameID {
			result = append(result, s.Clone())
		}
	}
	return result, nil
}

func (m *MockSettlementRepository) ListByGameTx(ctx context.Context, tx usecase.Tx, gameID string) ([]*domain.Settlement, error) {
	return m.ListByGame(ctx, gameID)
}

func (m *MockSettlementRepository) UpdateStatus(ctx context.Context, tx usecase.Tx, settlement *domain.Settlement) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, tx, settlement)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements[settlement.ID] = settlement.Clone()
	return nil
}

// MockSettlementRunRepository is a mock implementation of SettlementRunRepository.
type MockSettlementRunRepository struct {
	mu   sync.RWMutex
	runs map[string]*domain.SettlementRun

	ClaimFunc func(ctx context.Context, tx usecase.Tx, run *domain.SettlementRun) (bool, error)
}

func NewMockSettlementRunRepository(runs ...*domain.SettlementRun) *MockSettlementRunRepository {
	m := &MockSettlementRunRepository{runs: make(map[string]*domain.SettlementRun)}
	for _, r := range runs {
		m.runs[r.GameID] = r
	}
	return m
}

func (m *MockSettlementRunRepository) Claim(ctx context.Context, tx usecase.Tx, run *domain.SettlementRun) (bool, error) {
	if m.ClaimFunc != nil {
		return m.ClaimFunc(ctx, tx, run)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.GameID]; ok {
		return false, nil
	}
	row := *run
	m.runs[run.GameID] = &row
	return true, nil
}

func (m *MockSettlementRunRepository) GetByGame(ctx context.Context, gameID string) (*domain.SettlementRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.runs[gameID]; ok {
		row := *r
		return &row, nil
	}
	return nil, domain.ErrSettlementRunNotFound
}

func (m *MockSettlementRunRepository) GetByGameTx(ctx context.Context, tx usecase.Tx, gameID string) (*domain.SettlementRun, error) {
	return m.GetByGame(ctx, gameID)
}

// MockAuditRepository is a mock implementation of AuditRepository.
type MockAuditRepository struct {
	mu      sync.RWMutex
	Entries []*domain.AuditEntry

	CreateTxFunc    func(ctx context.Context, tx usecase.Tx, entry *domain.AuditEntry) error
	CountByGameFunc func(ctx context.Context, gameID string) ([]domain.AuditActionCount, error)
}

func NewMockAuditRepository() *MockAuditRepository {
	return &MockAuditRepository{}
}

func (m *MockAuditRepository) CreateTx(ctx context.Context, tx usecase.Tx, entry *domain.AuditEntry) error {
	if m.CreateTxFunc != nil {
		return m.CreateTxFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockAuditRepository) ListByRecord(ctx context.Context, table, recordID string) ([]*domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.AuditEntry, 0)
	for _, e := range m.Entries {
		if e.TableName == table && e.RecordID == recordID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockAuditRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]*domain.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.AuditEntry, 0)
	for i := len(m.Entries) - 1; i >= 0 && len(result) < limit; i-- {
		if m.Entries[i].ActorID == actorID {
			result = append(result, m.Entries[i])
		}
	}
	return result, nil
}

func (m *MockAuditRepository) CountByGame(ctx context.Context, gameID string) ([]domain.AuditActionCount, error) {
	if m.CountByGameFunc != nil {
		return m.CountByGameFunc(ctx, gameID)
	}
	return []domain.AuditActionCount{}, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	Events []*domain.OutboxEvent

	CreateFunc func(ctx context.Context, tx usecase.Tx, event *domain.OutboxEvent) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Tx, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.OutboxEvent
	for _, e := range m.Events {
		if !e.Published && len(result) < limit {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return nil
}

// MockTxManager is a mock implementation of TxManager.
type MockTxManager struct {
	BeginFunc func(ctx context.Context) (usecase.Tx, error)
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

func (m *MockTxManager) Begin(ctx context.Context) (usecase.Tx, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTx{}, nil
}

// MockTx is a mock implementation of Tx.
type MockTx struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTx) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTx) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%d", m.counter)
}

// MockCache is a mock implementation of Cache.
type MockCache struct {
	mu   sync.RWMutex
	data map[string][]byte

	GetFunc func(ctx context.Context, key string) ([]byte, error)
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, usecase.ErrCacheMiss
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Has reports whether key is cached.
func (m *MockCache) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[key]
	return ok
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
	ReleaseFunc     func(ctx context.Context, key string) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte(usecase.IdempotencyPending)
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}

func (m *MockIdempotencyStore) Release(ctx context.Context, key string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Stored returns the value held for key.
func (m *MockIdempotencyStore) Stored(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}
