package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/infrastructure/logger"
	"github.com/iho/pokersettle/internal/infrastructure/metrics"
)

// CalculateStatus describes what a Calculate call did.
type CalculateStatus string

const (
	// CalculateStatusCreated means this call computed and stored the settlements.
	CalculateStatusCreated CalculateStatus = "created"
	// CalculateStatusExisting means settlements already existed and were returned unchanged.
	CalculateStatusExisting CalculateStatus = "existing"
	// CalculateStatusImbalanced means totals did not balance and nothing was stored.
	CalculateStatusImbalanced CalculateStatus = "imbalanced"
)

// CalculateInput represents input for calculating a game's settlements.
type CalculateInput struct {
	GameID string
	// Force proceeds even when buy-ins and cash-outs do not balance.
	Force bool
}

// CalculateResult is returned by Calculate.
type CalculateResult struct {
	Status      CalculateStatus
	GameID      string
	Settlements []*domain.Settlement
	Validation  *domain.SettlementValidation
	Run         *domain.SettlementRun
	Unresolved  []domain.NetResult
}

// SettlementUseCase handles settlement calculation and lifecycle.
type SettlementUseCase struct {
	txManager      TxManager
	gameRepo       GameRepository
	settlementRepo SettlementRepository
	runRepo        SettlementRunRepository
	outboxRepo     OutboxRepository
	aggregator     *LedgerAggregator
	guard          *SettlementGuard
	audit          *AuditRecorder
	idGen          IDGenerator
	cache          Cache
	cacheTTL       time.Duration
	txTimeout      time.Duration
	logger         zerolog.Logger
	metrics        *metrics.Metrics
}

// NewSettlementUseCase creates a new SettlementUseCase.
func NewSettlementUseCase(
	txManager TxManager,
	gameRepo GameRepository,
	settlementRepo SettlementRepository,
	runRepo SettlementRunRepository,
	outboxRepo OutboxRepository,
	aggregator *LedgerAggregator,
	guard *SettlementGuard,
	audit *AuditRecorder,
	idGen IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *SettlementUseCase {
	return &SettlementUseCase{
		txManager:      txManager,
		gameRepo:       gameRepo,
		settlementRepo: settlementRepo,
		runRepo:        runRepo,
		outboxRepo:     outboxRepo,
		aggregator:     aggregator,
		guard:          guard,
		audit:          audit,
		idGen:          idGen,
		cacheTTL:       DefaultCacheTTL,
		txTimeout:      DefaultTransactionTimeout,
		logger:         logger,
		metrics:        m,
	}
}

// WithCache enables read-through caching of settlement reads.
func (uc *SettlementUseCase) WithCache(cache Cache, ttl time.Duration) *SettlementUseCase {
	uc.cache = cache
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
	return uc
}

// WithTransactionTimeout overrides DefaultTransactionTimeout.
func (uc *SettlementUseCase) WithTransactionTimeout(d time.Duration) *SettlementUseCase {
	if d > 0 {
		uc.txTimeout = d
	}
	return uc
}

// Validate checks whether a game's buy-ins and cash-outs balance. An imbalance
// is reported in the result, not as an error.
func (uc *SettlementUseCase) Validate(ctx context.Context, gameID string) (*domain.SettlementValidation, error) {
	if err := domain.ValidateGameID(gameID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.NewPersistenceError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	totals, err := uc.aggregator.Aggregate(txCtx, tx, gameID)
	if err != nil {
		return nil, err
	}

	return domain.ValidateBalance(totals)
}

// Calculate computes and stores the settlements for a game. It is idempotent:
// once settlements exist they are returned unchanged. Concurrent callers for the
// same game either receive domain.ErrSettlementBusy or the stored result.
func (uc *SettlementUseCase) Calculate(ctx context.Context, input CalculateInput) (*CalculateResult, error) {
	start := time.Now()

	result, err := uc.calculate(ctx, input)
	if uc.metrics != nil {
		if err != nil {
			uc.metrics.SettlementErrors.WithLabelValues(domain.KindOf(err).String()).Inc()
		} else {
			uc.metrics.SettlementCalculations.WithLabelValues(string(result.Status)).Inc()
			uc.metrics.SettlementDuration.Observe(time.Since(start).Seconds())
			if result.Status == CalculateStatusCreated {
				uc.metrics.SettlementTransfers.Observe(float64(len(result.Settlements)))
			}
		}
	}

	if err != nil {
		return nil, err
	}

	if result.Status == CalculateStatusCreated {
		uc.invalidate(ctx, gameSettlementsCacheKey(input.GameID))
		log := logger.ForGame(uc.logger, input.GameID)
		log.Info().
			Int("transfers", len(result.Settlements)).
			Bool("forced", result.Run.Forced).
			Msg("settlement calculated")
	}

	return result, nil
}

func (uc *SettlementUseCase) calculate(ctx context.Context, input CalculateInput) (*CalculateResult, error) {
	if err := domain.ValidateGameID(input.GameID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.NewPersistenceError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	var result *CalculateResult
	err = uc.guard.WithLock(txCtx, tx, input.GameID, func() error {
		r, err := uc.calculateLocked(txCtx, tx, input)
		if err != nil {
			_ = tx.Rollback(txCtx)
			return err
		}

		if err := tx.Commit(txCtx); err != nil {
			return domain.NewPersistenceError("commit settlement", err)
		}

		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// currentValidation reports the game's balance for an already settled game.
// Stored settlements are returned even when the totals no longer validate, so
// failures are logged and yield nil.
func (uc *SettlementUseCase) currentValidation(ctx context.Context, tx Tx, gameID string) *domain.SettlementValidation {
	totals, err := uc.aggregator.Aggregate(ctx, tx, gameID)
	if err == nil {
		var validation *domain.SettlementValidation
		if validation, err = domain.ValidateBalance(totals); err == nil {
			return validation
		}
	}

	log := logger.ForGame(uc.logger, gameID)
	log.Warn().Err(err).Msg("settled game totals failed validation")
	return nil
}

// calculateLocked runs with the game's lock held. Every read happens through tx.
func (uc *SettlementUseCase) calculateLocked(ctx context.Context, tx Tx, input CalculateInput) (*CalculateResult, error) {
	run, err := uc.runRepo.GetByGameTx(ctx, tx, input.GameID)
	switch {
	case err == nil:
		settlements, err := uc.settlementRepo.ListByGameTx(ctx, tx, input.GameID)
		if err != nil {
			return nil, domain.NewPersistenceError("load settlements", err)
		}
		return &CalculateResult{
			Status:      CalculateStatusExisting,
			GameID:      input.GameID,
			Settlements: settlements,
			Validation:  uc.currentValidation(ctx, tx, input.GameID),
			Run:         run,
		}, nil
	case !errors.Is(err, domain.ErrSettlementRunNotFound):
		return nil, domain.NewPersistenceError("load settlement run", err)
	}

	totals, err := uc.aggregator.Aggregate(ctx, tx, input.GameID)
	if err != nil {
		return nil, err
	}

	validation, err := domain.ValidateBalance(totals)
	if err != nil {
		return nil, err
	}

	if validation.ParticipantCount == 0 {
		return nil, domain.ErrNoParticipants
	}

	if !validation.IsValid && !input.Force {
		return &CalculateResult{
			Status:      CalculateStatusImbalanced,
			GameID:      input.GameID,
			Settlements: []*domain.Settlement{},
			Validation:  validation,
		}, nil
	}

	nets, err := domain.NetResults(totals)
	if err != nil {
		return nil, err
	}

	solution, err := domain.SolveSettlements(nets)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	settlements := make([]*domain.Settlement, 0, len(solution.Transfers))
	for _, tr := range solution.Transfers {
		s := &domain.Settlement{
			ID:        uc.idGen.Generate(),
			GameID:    input.GameID,
			PayerID:   tr.PayerID,
			PayeeID:   tr.PayeeID,
			Amount:    tr.Amount.Decimal(),
			Status:    domain.SettlementStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		settlements = append(settlements, s)
	}

	run = &domain.SettlementRun{
		GameID:        input.GameID,
		CalculatedBy:  domain.ActorFromContext(ctx),
		CalculatedAt:  now,
		TransferCount: len(settlements),
		Forced:        !validation.IsValid,
		TotalBuyins:   validation.TotalBuyins.Decimal(),
		TotalCashouts: validation.TotalCashouts.Decimal(),
		Difference:    validation.Difference.Decimal(),
	}

	claimed, err := uc.runRepo.Claim(ctx, tx, run)
	if err != nil {
		return nil, domain.NewPersistenceError("claim settlement run", err)
	}
	if !claimed {
		return nil, domain.ErrSettlementConflict
	}

	if len(settlements) > 0 {
		if err := uc.settlementRepo.CreateBatch(ctx, tx, settlements); err != nil {
			return nil, domain.NewPersistenceError("insert settlements", err)
		}
	}

	for _, s := range settlements {
		if err := uc.audit.Record(ctx, tx, AuditChange{
			Table:    domain.AuditTableSettlements,
			RecordID: s.ID,
			GameID:   s.GameID,
			Action:   domain.AuditActionInsert,
			After:    s,
		}); err != nil {
			return nil, err
		}
	}

	if err := uc.audit.Record(ctx, tx, AuditChange{
		Table:    domain.AuditTableSettlementRuns,
		RecordID: input.GameID,
		GameID:   input.GameID,
		Action:   domain.AuditActionCalculate,
		After:    runAuditState(run, validation, solution.Unresolved),
	}); err != nil {
		return nil, err
	}

	ids := make([]string, len(settlements))
	for i, s := range settlements {
		ids[i] = s.ID
	}

	payload, err := eventPayload(domain.SettlementCalculatedEvent{
		GameID:        input.GameID,
		SettlementIDs: ids,
		Forced:        run.Forced,
		CalculatedBy:  run.CalculatedBy,
	})
	if err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   input.GameID,
		AggregateType: domain.AggregateTypeGame,
		EventType:     domain.EventTypeSettlementCalculated,
		Payload:       payload,
		CreatedAt:     now,
	}); err != nil {
		return nil, domain.NewPersistenceError("insert outbox event", err)
	}

	return &CalculateResult{
		Status:      CalculateStatusCreated,
		GameID:      input.GameID,
		Settlements: settlements,
		Validation:  validation,
		Run:         run,
		Unresolved:  solution.Unresolved,
	}, nil
}

// runAuditState is the snapshot stored for a calculation. A forced run keeps the
// imbalance and any residual the transfers could not clear.
func runAuditState(run *domain.SettlementRun, v *domain.SettlementValidation, unresolved []domain.NetResult) map[string]any {
	state := map[string]any{
		"run": run,
		"validation": map[string]any{
			"is_valid":       v.IsValid,
			"total_buyins":   v.TotalBuyins.String(),
			"total_cashouts": v.TotalCashouts.String(),
			"difference":     v.Difference.String(),
			"message":        v.Message,
		},
	}

	if len(unresolved) > 0 {
		residuals := make([]map[string]string, len(unresolved))
		for i, u := range unresolved {
			residuals[i] = map[string]string{"user_id": u.UserID, "net": u.Net.String()}
		}
		state["unresolved"] = residuals
	}

	return state
}

// MarkComplete transitions a pending settlement to completed.
func (uc *SettlementUseCase) MarkComplete(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	return uc.transition(ctx, settlementID, domain.SettlementStatusCompleted, domain.EventTypeSettlementCompleted,
		func(s *domain.Settlement, now time.Time) error { return s.MarkCompleted(now) })
}

// Cancel transitions a pending settlement to cancelled.
func (uc *SettlementUseCase) Cancel(ctx context.Context, settlementID string) (*domain.Settlement, error) {
	return uc.transition(ctx, settlementID, domain.SettlementStatusCancelled, domain.EventTypeSettlementCancelled,
		func(s *domain.Settlement, now time.Time) error { return s.Cancel(now) })
}

func (uc *SettlementUseCase) transition(
	ctx context.Context,
	settlementID string,
	status domain.SettlementStatus,
	eventType string,
	apply func(*domain.Settlement, time.Time) error,
) (*domain.Settlement, error) {
	if err := domain.ValidateSettlementID(settlementID); err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, uc.txTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, domain.NewPersistenceError("begin", err)
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	settlement, err := uc.settlementRepo.GetByIDForUpdate(txCtx, tx, settlementID)
	if err != nil {
		return nil, domain.NewPersistenceError("load settlement", err)
	}

	before := settlement.Clone()
	now := time.Now().UTC()

	if err := apply(settlement, now); err != nil {
		return nil, err
	}

	if err := uc.settlementRepo.UpdateStatus(txCtx, tx, settlement); err != nil {
		return nil, domain.NewPersistenceError("update settlement", err)
	}

	if err := uc.audit.Record(txCtx, tx, AuditChange{
		Table:    domain.AuditTableSettlements,
		RecordID: settlement.ID,
		GameID:   settlement.GameID,
		Action:   domain.AuditActionUpdate,
		Before:   before,
		After:    settlement,
	}); err != nil {
		return nil, err
	}

	payload, err := eventPayload(domain.SettlementStatusEvent{
		SettlementID: settlement.ID,
		GameID:       settlement.GameID,
		PayerID:      settlement.PayerID,
		PayeeID:      settlement.PayeeID,
		Amount:       settlement.Amount.StringFixed(domain.AmountScale),
		Status:       string(settlement.Status),
	})
	if err != nil {
		return nil, err
	}

	if err := uc.outboxRepo.Create(txCtx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   settlement.ID,
		AggregateType: domain.AggregateTypeSettlement,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     now,
	}); err != nil {
		return nil, domain.NewPersistenceError("insert outbox event", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, domain.NewPersistenceError("commit settlement update", err)
	}

	if uc.metrics != nil {
		uc.metrics.SettlementTransitions.WithLabelValues(string(status)).Inc()
	}

	uc.invalidate(ctx, gameSettlementsCacheKey(settlement.GameID), settlementCacheKey(settlement.ID))

	log := logger.ForSettlement(uc.logger, settlement.GameID, settlement.ID)
	log.Info().
		Str("status", string(settlement.Status)).
		Str(logger.FieldActor, domain.ActorFromContext(ctx)).
		Msg("settlement status changed")

	return settlement, nil
}

// ListByGame returns a game's settlements. It returns domain.ErrSettlementRunNotFound
// when the game has not been calculated yet, so callers can tell that apart from
// a calculation that produced no transfers.
func (uc *SettlementUseCase) ListByGame(ctx context.Context, gameID string) ([]*domain.Settlement, error) {
	if err := domain.ValidateGameID(gameID); err != nil {
		return nil, err
	}

	key := gameSettlementsCacheKey(gameID)

	var cached []*domain.Settlement
	if uc.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	if _, err := uc.gameRepo.GetByID(ctx, gameID); err != nil {
		return nil, domain.NewPersistenceError("load game", err)
	}

	if _, err := uc.runRepo.GetByGame(ctx, gameID); err != nil {
		return nil, domain.NewPersistenceError("load settlement run", err)
	}

	settlements, err := uc.settlementRepo.ListByGame(ctx, gameID)
	if err != nil {
		return nil, domain.NewPersistenceError("load settlements", err)
	}

	uc.cacheSet(ctx, key, settlements)

	return settlements, nil
}

// GetSettlement returns one settlement by id.
func (uc *SettlementUseCase) GetSettlement(ctx context.Context, id string) (*domain.Settlement, error) {
	if err := domain.ValidateSettlementID(id); err != nil {
		return nil, err
	}

	key := settlementCacheKey(id)

	var cached domain.Settlement
	if uc.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	settlement, err := uc.settlementRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("load settlement", err)
	}

	uc.cacheSet(ctx, key, settlement)

	return settlement, nil
}

func (uc *SettlementUseCase) cacheGet(ctx context.Context, key string, dst any) bool {
	if uc.cache == nil {
		return false
	}

	data, err := uc.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			uc.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		uc.countCache("miss")
		return false
	}

	if err := json.Unmarshal(data, dst); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		uc.countCache("miss")
		return false
	}

	uc.countCache("hit")
	return true
}

func (uc *SettlementUseCase) cacheSet(ctx context.Context, key string, v any) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	if err := uc.cache.Set(ctx, key, data, uc.cacheTTL); err != nil {
		uc.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (uc *SettlementUseCase) invalidate(ctx context.Context, keys ...string) {
	if uc.cache == nil {
		return
	}

	if err := uc.cache.Delete(context.WithoutCancel(ctx), keys...); err != nil {
		uc.logger.Warn().Err(err).Strs("keys", keys).Msg("cache invalidation failed")
	}
}

func (uc *SettlementUseCase) countCache(result string) {
	if uc.metrics != nil {
		uc.metrics.CacheRequests.WithLabelValues(result).Inc()
	}
}

// eventPayload converts an event struct into the outbox payload map.
func eventPayload(v any) (map[string]any, error) {
	payload, err := domain.MarshalState(v)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "encode event", Err: err}
	}
	return payload, nil
}
