package middleware

import (
	"net/http"
	"strings"

	"github.com/iho/pokersettle/internal/domain"
)

// ActorHeader carries the caller's user id. Authentication happens upstream.
const ActorHeader = "X-Actor-ID"

// Actor puts the X-Actor-ID header into the request context for the audit trail.
// Requests without the header are attributed to domain.SystemActor.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actor == "" {
			next.ServeHTTP(w, r)
			return
		}

		if err := domain.ValidateUserID(actor); err != nil {
			http.Error(w, "invalid "+ActorHeader+" header", http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r.WithContext(domain.ContextWithActor(r.Context(), actor)))
	})
}
