package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/pokersettle/internal/domain"
)

// AuditHandler serves the audit trail.
type AuditHandler struct {
	auditUC AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditUC AuditService) *AuditHandler {
	return &AuditHandler{auditUC: auditUC}
}

// History lists the entries for one record, oldest first.
func (h *AuditHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.auditUC.History(r.Context(), chi.URLParam(r, "table"), chi.URLParam(r, "recordID"))
	if err != nil {
		writeDomainError(w, "failed to load audit history", err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(entries))
}

// UserHistory lists the most recent entries made by a user.
func (h *AuditHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", domain.DefaultPageSize)

	entries, err := h.auditUC.UserHistory(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeDomainError(w, "failed to load user audit history", err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(entries))
}

// GameSummary aggregates a game's audit trail.
func (h *AuditHandler) GameSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.auditUC.GameSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "failed to load audit summary", err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func nonNil(entries []*domain.AuditEntry) []*domain.AuditEntry {
	if entries == nil {
		return []*domain.AuditEntry{}
	}
	return entries
}
