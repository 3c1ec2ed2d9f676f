package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type gameServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreateGameInput) (*domain.Game, error)
	getFn    func(ctx context.Context, id string) (*domain.Game, error)
	startFn  func(ctx context.Context, id string) (*domain.Game, error)
	endFn    func(ctx context.Context, id string) (*domain.Game, error)
}

func (s *gameServiceStub) CreateGame(ctx context.Context, input usecase.CreateGameInput) (*domain.Game, error) {
	return s.createFn(ctx, input)
}

func (s *gameServiceStub) GetGame(ctx context.Context, id string) (*domain.Game, error) {
	return s.getFn(ctx, id)
}

func (s *gameServiceStub) StartGame(ctx context.Context, id string) (*domain.Game, error) {
	return s.startFn(ctx, id)
}

func (s *gameServiceStub) EndGame(ctx context.Context, id string) (*domain.Game, error) {
	return s.endFn(ctx, id)
}

type transactionServiceStub struct {
	recordFn func(ctx context.Context, input usecase.RecordTransactionInput) (*domain.Transaction, error)
	listFn   func(ctx context.Context, gameID string, limit, offset int) ([]*domain.Transaction, error)
	totalsFn func(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error)
}

func (s *transactionServiceStub) RecordTransaction(ctx context.Context, input usecase.RecordTransactionInput) (*domain.Transaction, error) {
	return s.recordFn(ctx, input)
}

func (s *transactionServiceStub) ListByGame(ctx context.Context, gameID string, limit, offset int) ([]*domain.Transaction, error) {
	return s.listFn(ctx, gameID, limit, offset)
}

func (s *transactionServiceStub) Totals(ctx context.Context, gameID string) ([]*domain.ParticipantTotals, error) {
	return s.totalsFn(ctx, gameID)
}

type reconciliationServiceStub struct {
	reconcileFn func(ctx context.Context, gameID string) (*usecase.ReconciliationReport, error)
}

func (s *reconciliationServiceStub) ReconcileGame(ctx context.Context, gameID string) (*usecase.ReconciliationReport, error) {
	return s.reconcileFn(ctx, gameID)
}

type settlementServiceStub struct {
	validateFn  func(ctx context.Context, gameID string) (*domain.SettlementValidation, error)
	calculateFn func(ctx context.Context, input usecase.CalculateInput) (*usecase.CalculateResult, error)
	listFn      func(ctx context.Context, gameID string) ([]*domain.Settlement, error)
	getFn       func(ctx context.Context, id string) (*domain.Settlement, error)
	completeFn  func(ctx context.Context, id string) (*domain.Settlement, error)
	cancelFn    func(ctx context.Context, id string) (*domain.Settlement, error)
}

func (s *settlementServiceStub) Validate(ctx context.Context, gameID string) (*domain.SettlementValidation, error) {
	return s.validateFn(ctx, gameID)
}

func (s *settlementServiceStub) Calculate(ctx context.Context, input usecase.CalculateInput) (*usecase.CalculateResult, error) {
	return s.calculateFn(ctx, input)
}

func (s *settlementServiceStub) ListByGame(ctx context.Context, gameID string) ([]*domain.Settlement, error) {
	return s.listFn(ctx, gameID)
}

func (s *settlementServiceStub) GetSettlement(ctx context.Context, id string) (*domain.Settlement, error) {
	return s.getFn(ctx, id)
}

func (s *settlementServiceStub) MarkComplete(ctx context.Context, id string) (*domain.Settlement, error) {
	return s.completeFn(ctx, id)
}

func (s *settlementServiceStub) Cancel(ctx context.Context, id string) (*domain.Settlement, error) {
	return s.cancelFn(ctx, id)
}

type auditServiceStub struct {
	historyFn     func(ctx context.Context, table, recordID string) ([]*domain.AuditEntry, error)
	userHistoryFn func(ctx context.Context, userID string, limit int) ([]*domain.AuditEntry, error)
	summaryFn     func(ctx context.Context, gameID string) (*domain.AuditSummary, error)
}

func (s *auditServiceStub) History(ctx context.Context, table, recordID string) ([]*domain.AuditEntry, error) {
	return s.historyFn(ctx, table, recordID)
}

func (s *auditServiceStub) UserHistory(ctx context.Context, userID string, limit int) ([]*domain.AuditEntry, error) {
	return s.userHistoryFn(ctx, userID, limit)
}

func (s *auditServiceStub) GameSummary(ctx context.Context, gameID string) (*domain.AuditSummary, error) {
	return s.summaryFn(ctx, gameID)
}
