package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/credit-tracker/internal/auth"
)

const (
	SessionCookie = "tracker_session"
	SessionHeader = "X-Session-ID"
)

func sessionID(r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// Session resolves the caller's session and stores the State in the request context.
func (h *Handler) Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, err := h.sessions.Restore(r.Context(), sessionID(r))
		if err != nil {
			h.logger.Error("restore session", zap.Error(err))
		}
		next.ServeHTTP(w, r.WithContext(auth.WithState(r.Context(), state)))
	})
}

// RequireAuth rejects callers without a session.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.FromContext(r.Context()).Phase != auth.Authenticated {
			Error(w, http.StatusUnauthorized, "login required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets only admin sessions through. This is the only place roles are
// enforced; the document store accepts writes from anyone who can reach it.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := auth.FromContext(r.Context())
		if state.Phase != auth.Authenticated {
			Error(w, http.StatusUnauthorized, "login required")
			return
		}
		if !state.Role().CanWrite() {
			Error(w, http.StatusForbidden, "view-only access")
			return
		}
		next.ServeHTTP(w, r)
	})
}
