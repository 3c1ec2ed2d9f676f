package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pokersettle/internal/adapter/http/dto"
	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/usecase"
)

// SettlementHandler handles settlement validation, calculation and transitions.
type SettlementHandler struct {
	settlementUC SettlementService
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(settlementUC SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementUC: settlementUC}
}

// Validate reports whether a game's buy-ins and cash-outs balance.
func (h *SettlementHandler) Validate(w http.ResponseWriter, r *http.Request) {
	v, err := h.settlementUC.Validate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to validate game", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ValidationFromDomain(v))
}

// Calculate computes a game's settlements. ?force=true settles an imbalanced game.
// A new calculation returns 201, a repeated one 200 with the stored transfers,
// and an imbalanced game without force 422 with the validation.
func (h *SettlementHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	result, err := h.settlementUC.Calculate(r.Context(), usecase.CalculateInput{
		GameID: chi.URLParam(r, "id"),
		Force:  parseBoolQuery(r, "force"),
	})
	if err != nil {
		writeDomainError(w, "failed to calculate settlement", err)
		return
	}

	status := http.StatusOK
	switch result.Status {
	case usecase.CalculateStatusCreated:
		status = http.StatusCreated
	case usecase.CalculateStatusImbalanced:
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, dto.CalculateFromUseCase(result))
}

// ListByGame lists a game's settlements.
func (h *SettlementHandler) ListByGame(w http.ResponseWriter, r *http.Request) {
	settlements, err := h.settlementUC.ListByGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to list settlements", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementsFromDomain(settlements))
}

// Get retrieves a settlement by ID.
func (h *SettlementHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "failed to get settlement", h.settlementUC.GetSettlement)
}

// Complete marks a pending settlement as paid.
func (h *SettlementHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "failed to complete settlement", h.settlementUC.MarkComplete)
}

// Cancel cancels a pending settlement.
func (h *SettlementHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "failed to cancel settlement", h.settlementUC.Cancel)
}

func (h *SettlementHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	message string,
	load func(ctx context.Context, id string) (*domain.Settlement, error),
) {
	s, err := load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, message, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SettlementFromDomain(s))
}
