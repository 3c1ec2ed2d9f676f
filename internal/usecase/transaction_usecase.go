package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/infrastructure/logger"
	"github.com/iho/pokersettle/internal/infrastructure/metrics"
)

// TransactionUseCase records buy-ins and cash-outs.
type TransactionUseCase struct {
	txManager       TxManager
	gameRepo        GameRepository
	transactionRepo TransactionRepository
	participantRepo ParticipantRepository
	outboxRepo      OutboxRepository
	audit           *AuditRecorder
	idGen           IDGenerator
	retrier         Retrier
	logger          zerolog.Logger
	metrics         *metrics.Metrics
}

// NewTransactionUseCase creates a new TransactionUseCase.
func NewTransactionUseCase(
	txManager TxManager,
	gameRepo GameRepository,
	transactionRepo TransactionRepository,
	participantRepo ParticipantRepository,
	outboxRepo OutboxRepository,
	audit *AuditRecorder,
	idGen IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *TransactionUseCase {
	return &TransactionUseCase{
		txManager:       txManager,
		gameRepo:        gameRepo,
		transactionRepo: transactionRepo,
		participantRepo: participantRepo,
		outboxRepo:      outboxRepo,
		audit:           audit,
		idGen:           idGen,
		logger:          logger,
		metrics:         m,
	}
}

// WithRetrier retries recording on transient storage errors.
func (uc *TransactionUseCase) WithRetrier(r Retrier) *TransactionUseCase {
	uc.retrier = r
	return uc
}

// RecordTransactionInput represents input for recording a buy-in or cash-out.
type RecordTransactionInput struct {
	GameID string
	UserID string
	Type   domain.TransactionType
	Amount decimal.Decimal
	Notes  string
}

// RecordTransaction appends a transaction and bumps the player's totals in one
// unit of work. It does not take the settlement lock.
func (uc *TransactionUseCase) RecordTransaction(ctx context.Context, input RecordTransactionInput) (*domain.Transaction, error) {
	t := &domain.Transaction{
		ID:     uc.idGen.Generate(),
		GameID: input.GameID,
		UserID: input.UserID,
		Type:   input.Type,
		Amount: input.Amount,
		Notes:  input.Notes,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	record := func() error {
		t.CreatedAt = time.Now().UTC()
		return uc.record(ctx, t)
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, record)
	} else {
		err = record()
	}
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsRecorded.WithLabelValues(string(t.Type)).Inc()
		uc.metrics.TransactionAmount.Observe(t.Amount.InexactFloat64())
	}

	log := logger.ForGame(uc.logger, t.GameID)
	log.Debug().
		Str(logger.FieldUserID, t.UserID).
		Str("type", string(t.Type)).
		Str("amount", t.Amount.StringFixed(domain.AmountScale)).
		Msg("transaction recorded")

	return t, nil
}

func (uc *TransactionUseCase) record(ctx context.Context, t *domain.Transaction) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return domain.NewPersistenceError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	game, err := uc.gameRepo.GetByIDTx(txCtx, tx, t.GameID)
	if err != nil {
		return domain.NewPersistenceError("load game", err)
	}

	if !game.AcceptsTransactions() {
		return domain.ErrGameNotActive
	}

	if err := uc.transactionRepo.Create(txCtx, tx, t); err != nil {
		return domain.NewPersistenceError("insert transaction", err)
	}

	if err := uc.participantRepo.Increment(txCtx, tx, t); err != nil {
		return domain.NewPersistenceError("update participant totals", err)
	}

	if err := uc.audit.Record(txCtx, tx, AuditChange{
		Table:    domain.AuditTableTransactions,
		RecordID: t.ID,
		GameID:   t.GameID,
		Action:   domain.AuditActionInsert,
		After:    t,
	}); err != nil {
		return err
	}

	payload, err := eventPayload(domain.TransactionRecordedEvent{
		TransactionID: t.ID,
		GameID:        t.GameID,
		UserID:        t.UserID,
		Type:          string(t.Type),
		Amount:        t.Amount.StringFixed(domain.AmountScale),
	})
	if err != nil {
		return err
	}

	if err := uc.outboxRepo.Create(txCtx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   t.GameID,
		AggregateType: domain.AggregateTypeGame,
		EventType:     domain.EventTypeTransactionRecorded,
		Payload:       payload,
		CreatedAt:     t.CreatedAt,
	}); err != nil {
		return domain.NewPersistenceError("insert outbox event", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return domain.NewPersistenceError("commit transaction", err)
	}

	return nil
}

// ListByGame returns a game's transactions in recording order.
func (uc *TransactionUseCase) ListByGame(ctx context.Context, gameID string, limit, offset int) ([]*domain.Transaction, error) {
	if err := domain.ValidateGameID(gameID); err != nil {
		return nil, err
	}

	if _, err := uc.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, domain.NewPersistenceError("load game", err)
	}

	limit, offset = domain.ValidatePagination(limit, offset)

	txs, err := uc.transactionRepo.ListByGame(ctx, gameID, limit, offset)
	if err != nil {
		return nil, domain.NewPersistenceError("list transactions", err)
	}

	return txs, nil
}

// Totals returns the stored per-player totals of a game.
func (uc *TransactionUseCase) Totals(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error) {
	if err := domain.ValidateGameID(gameID); err != nil {
		return nil, err
	}

	if _, err := uc.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, domain.NewPersistenceError("load game", err)
	}

	totals, err := uc.participantRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, domain.NewPersistenceError("list participant totals", err)
	}

	return totals, nil
}
