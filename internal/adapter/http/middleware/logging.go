package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/pokersettle/internal/domain"
	"github.com/iho/pokersettle/internal/infrastructure/logger"
)

// routeResources maps a route prefix to the log field its {id} parameter fills.
var routeResources = []struct {
	prefix string
	field  string
}{
	{"/api/v1/games/{id}", logger.FieldGameID},
	{"/api/v1/settlements/{id}", logger.FieldSettlementID},
	{"/api/v1/users/{id}", logger.FieldUserID},
}

// LoggingMiddleware logs HTTP requests.
type LoggingMiddleware struct {
	logger zerolog.Logger
}

// NewLoggingMiddleware creates a new LoggingMiddleware.
func NewLoggingMiddleware(logger zerolog.Logger) *LoggingMiddleware {
	return &LoggingMiddleware{logger: logger}
}

// Wrap wraps an http.Handler with logging. Server errors log at error level;
// lock contention and rate limiting log at warn.
func (m *LoggingMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		var event *zerolog.Event
		switch {
		case wrapped.statusCode >= http.StatusInternalServerError:
			event = m.logger.Error()
		case wrapped.statusCode == http.StatusTooManyRequests,
			wrapped.statusCode == http.StatusConflict && wrapped.Header().Get("Retry-After") != "":
			event = m.logger.Warn()
		default:
			event = m.logger.Info()
		}

		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			pattern := rctx.RoutePattern()
			if pattern != "" {
				event = event.Str("route", pattern)
			}
			for _, res := range routeResources {
				if strings.HasPrefix(pattern, res.prefix) {
					event = event.Str(res.field, rctx.URLParam("id"))
					break
				}
			}
		}

		event.
			Str(logger.FieldRequestID, chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapped.statusCode).
			Dur("duration", time.Since(start)).
			Str(logger.FieldActor, domain.ActorFromContext(r.Context())).
			Str("remote_addr", r.RemoteAddr).
			Msg("request completed")
	})
}

type statusRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
