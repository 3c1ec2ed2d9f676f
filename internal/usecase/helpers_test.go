package usecase_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iho/pokersettle/internal/adapter/repository/memory"
	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/infrastructure/metrics"
	"github.com/iho/pokersettle/internal/usecase"
	"github.com/iho/pokersettle/internal/usecase/mocks"
)

// testEnv wires every use case over the in-memory backend.
type testEnv struct {
	store        *memory.Store
	games        *memory.GameRepository
	transactions *memory.TransactionRepository
	participants *memory.ParticipantRepository
	settlements  *memory.SettlementRepository
	runs         *memory.SettlementRunRepository
	audit        *memory.AuditRepository
	outbox       *memory.OutboxRepository
	metrics      *metrics.Metrics
	logs         *bytes.Buffer

	gameUC        *usecase.GameUseCase
	transactionUC *usecase.TransactionUseCase
	settlementUC  *usecase.SettlementUseCase
	auditUC       *usecase.AuditUseCase
}

type envOptions struct {
	locker     usecase.SettlementLocker
	auditRepo  func(usecase.AuditRepository) usecase.AuditRepository
	settleRepo func(usecase.SettlementRepository) usecase.SettlementRepository
	cache      usecase.Cache
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	store := memory.NewStore()
	env := &testEnv{
		store:        store,
		games:        memory.NewGameRepository(store),
		transactions: memory.NewTransactionRepository(store),
		participants: memory.NewParticipantRepository(store),
		settlements:  memory.NewSettlementRepository(store),
		runs:         memory.NewSettlementRunRepository(store),
		audit:        memory.NewAuditRepository(store),
		outbox:       memory.NewOutboxRepository(store),
		metrics:      metrics.New(prometheus.NewRegistry()),
		logs:         &bytes.Buffer{},
	}

	logger := zerolog.New(zerolog.SyncWriter(env.logs))
	txManager := memory.NewTxManager(store)
	participants := env.participants
	transactions := env.transactions
	idGen := mocks.NewMockIDGenerator()

	var auditRepo usecase.AuditRepository = env.audit
	if opts.auditRepo != nil {
		auditRepo = opts.auditRepo(auditRepo)
	}

	var settlementRepo usecase.SettlementRepository = env.settlements
	if opts.settleRepo != nil {
		settlementRepo = opts.settleRepo(settlementRepo)
	}

	locker := opts.locker
	if locker == nil {
		locker = memory.NewLocker()
	}

	recorder := usecase.NewAuditRecorder(auditRepo, idGen, env.metrics)
	aggregator := usecase.NewLedgerAggregator(env.games, participants)
	guard := usecase.NewSettlementGuard(locker, logger, env.metrics)

	env.gameUC = usecase.NewGameUseCase(txManager, env.games, recorder, idGen)
	env.transactionUC = usecase.NewTransactionUseCase(txManager, env.games, transactions, participants, env.outbox, recorder, idGen, logger, env.metrics)
	env.settlementUC = usecase.NewSettlementUseCase(txManager, env.games, settlementRepo, env.runs, env.outbox, aggregator, guard, recorder, idGen, logger, env.metrics)
	env.auditUC = usecase.NewAuditUseCase(env.audit, env.games, env.settlements)

	if opts.cache != nil {
		env.settlementUC.WithCache(opts.cache, 0)
	}

	return env
}

// activeGame creates and starts a game.
func (e *testEnv) activeGame(t *testing.T, id string) {
	t.Helper()

	ctx := context.Background()
	_, err := e.gameUC.CreateGame(ctx, usecase.CreateGameInput{ID: id, Name: "Thursday game"})
	require.NoError(t, err)
	_, err = e.gameUC.StartGame(ctx, id)
	require.NoError(t, err)
}

func (e *testEnv) record(t *testing.T, gameID, userID string, typ domain.TransactionType, amount string) {
	t.Helper()

	_, err := e.transactionUC.RecordTransaction(context.Background(), usecase.RecordTransactionInput{
		GameID: gameID,
		UserID: userID,
		Type:   typ,
		Amount: decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
}

// play records a buy-in and a cash-out per player.
func (e *testEnv) play(t *testing.T, gameID string, sessions map[string][2]string) {
	t.Helper()

	for userID, s := range sessions {
		if s[0] != "0" {
			e.record(t, gameID, userID, domain.TransactionTypeBuyin, s[0])
		}
		if s[1] != "0" {
			e.record(t, gameID, userID, domain.TransactionTypeCashout, s[1])
		}
	}
}

type transfer struct {
	payer, payee, amount string
}

func transfersOf(settlements []*domain.Settlement) []transfer {
	result := make([]transfer, len(settlements))
	for i, s := range settlements {
		result[i] = transfer{s.PayerID, s.PayeeID, s.Amount.StringFixed(2)}
	}
	return result
}

// failingAuditRepo fails writes to table while *fail is true, or always when fail is nil.
type failingAuditRepo struct {
	usecase.AuditRepository
	fail  *bool
	table string
	err   error
}

func (f *failingAuditRepo) CreateTx(ctx context.Context, tx usecase.Tx, entry *domain.AuditEntry) error {
	if (f.fail == nil || *f.fail) && entry.TableName == f.table {
		return f.err
	}
	return f.AuditRepository.CreateTx(ctx, tx, entry)
}

type failingSettlementRepo struct {
	usecase.SettlementRepository
	err error
}

func (f *failingSettlementRepo) CreateBatch(context.Context, usecase.Tx, []*domain.Settlement) error {
	return f.err
}

// hookedAuditRepo runs before ahead of every write to table.
type hookedAuditRepo struct {
	usecase.AuditRepository
	table  string
	before func()
}

func (h *hookedAuditRepo) CreateTx(ctx context.Context, tx usecase.Tx, entry *domain.AuditEntry) error {
	if entry.TableName == h.table {
		h.before()
	}
	return h.AuditRepository.CreateTx(ctx, tx, entry)
}
