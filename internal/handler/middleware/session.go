// Package middleware holds the HTTP interceptors shared by the console handlers.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MahdadGhasemian/octocommerce-panel-sub001/internal/service"
	"github.com/google/uuid"
)

type contextKey string

const (
	// SessionContextKey is the key used to store/retrieve the resolved session.
	SessionContextKey contextKey = "console_session"

	// SessionHeader carries the session id. Browsers cannot set headers on a
	// WebSocket handshake, so SessionQueryParam is accepted as well.
	SessionHeader     = "X-Session-ID"
	SessionQueryParam = "session_id"
)

// SessionLookup is the read side of the session registry.
type SessionLookup interface {
	Get(id uuid.UUID) (*service.Session, error)
}

// RequireSession resolves the caller's session before the handler runs.
func RequireSession(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// [PRE_AUTH] Reject before any handler work
			raw := r.Header.Get(SessionHeader)
			if raw == "" {
				raw = r.URL.Query().Get(SessionQueryParam)
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, "missing or invalid session id")
				return
			}
			sess, err := sessions.Get(id)
			if err != nil {
				WriteError(w, http.StatusUnauthorized, err.Error())
				return
			}

			// [ENRICHMENT] Downstream handlers read the session from the context
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), SessionContextKey, sess)))
		})
	}
}

// SessionFrom extracts the session injected by RequireSession.
func SessionFrom(ctx context.Context) (*service.Session, bool) {
	sess, ok := ctx.Value(SessionContextKey).(*service.Session)
	return sess, ok
}

// WriteJSON answers with a JSON body.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError answers with {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}
