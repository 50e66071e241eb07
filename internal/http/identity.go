package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"bachat/internal/core"
)

const sessionCookieName = "session_token"

type contextKey string

const identityKey contextKey = "identity"

// withIdentity resolves the session cookie to a user exactly once per
// request and stores the immutable result in the request context. Handlers
// never touch the session store themselves.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			user, err := s.auth.ResolveIdentity(r.Context(), cookie.Value)
			switch {
			case err == nil:
				r = r.WithContext(context.WithValue(r.Context(), identityKey, user))
			case errors.Is(err, core.ErrNotFound):
				// absent identity; fall through unauthenticated
			default:
				slog.ErrorContext(r.Context(), "Identity resolution failed", "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// currentUser returns the resolved identity for this request, if any.
func currentUser(r *http.Request) (*core.User, bool) {
	user, ok := r.Context().Value(identityKey).(*core.User)
	return user, ok
}

// requirePage guards server-rendered routes: unauthenticated requests are
// redirected to the login page.
func (s *Server) requirePage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := currentUser(r); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// setSessionCookie installs the session token on the client.
func setSessionCookie(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie on the client.
func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
