package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pokersettle/internal/adapter/http/dto"
	"github.com/iho/pokersettle/internal/domain"
)

// TransactionHandler handles buy-in and cash-out requests.
type TransactionHandler struct {
	transactionUC    TransactionService
	reconciliationUC ReconciliationService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionUC TransactionService, reconciliationUC ReconciliationService) *TransactionHandler {
	return &TransactionHandler{
		transactionUC:    transactionUC,
		reconciliationUC: reconciliationUC,
	}
}

// Record records a buy-in or cash-out for the game in the path.
func (h *TransactionHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req dto.RecordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "invalid amount", err)
		return
	}

	t, err := h.transactionUC.RecordTransaction(r.Context(), input)
	if err != nil {
		writeDomainError(w, "failed to record transaction", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransactionFromDomain(t))
}

// List lists a game's transactions in recording order.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", domain.DefaultPageSize)
	offset := parseIntQuery(r, "offset", 0)

	txs, err := h.transactionUC.ListByGame(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(txs))
}

// Totals returns each player's running totals and net result.
func (h *TransactionHandler) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.transactionUC.Totals(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to load totals", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ParticipantsFromDomain(totals))
}

// Reconcile recomputes totals from the raw transactions and reports mismatches.
func (h *TransactionHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciliationUC.ReconcileGame(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to reconcile game", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(report))
}
