package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/iho/pokersettle/internal/adapter/http/dto"
	"github.com/iho/pokersettle/internal/domain"
)

// RetryAfterSeconds is advertised to callers that hit a busy settlement lock.
const RetryAfterSeconds = 1

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps err to a status and writes it.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	kind := domain.KindOf(err)
	status := mapDomainError(err)

	if kind == domain.KindBusy {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}

	details := err.Error()
	if status >= http.StatusInternalServerError {
		details = ""
	}

	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Kind:    kind.String(),
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBusy, domain.KindConflict:
		return http.StatusConflict
	case domain.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// parseBoolQuery parses a boolean query parameter, false when absent or malformed.
func parseBoolQuery(r *http.Request, key string) bool {
	b, err := strconv.ParseBool(r.URL.Query().Get(key))
	return err == nil && b
}
