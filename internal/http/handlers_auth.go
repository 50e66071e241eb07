package http

import (
	"errors"
	"log/slog"
	"net/http"

	"bachat/internal/core"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	_, loggedIn := currentUser(r)
	s.render(w, r, "home.html", map[string]any{
		"LoggedIn": loggedIn,
		"Flash":    popFlash(w, r),
	})
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "signup.html", map[string]any{"Flash": popFlash(w, r)})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")

	err := s.auth.Register(r.Context(), username, password)
	switch {
	case err == nil:
		s.render(w, r, "signup_success.html", nil)
	case errors.Is(err, core.ErrInvalidInput):
		setFlash(w, "Fill both fields")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
	case errors.Is(err, core.ErrUsernameTaken):
		setFlash(w, "Username already taken")
		http.Redirect(w, r, "/signup", http.StatusSeeOther)
	default:
		slog.ErrorContext(r.Context(), "Signup failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", map[string]any{"Flash": popFlash(w, r)})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}

	username := r.Form.Get("username")
	password := r.Form.Get("password")

	userID, err := s.auth.Authenticate(r.Context(), username, password)
	if err != nil {
		// Uniform message: no detail on whether the account exists.
		setFlash(w, "Invalid credentials")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	// Drop any session carried by a pre-existing cookie before issuing a
	// new one (no fixation carryover).
	if cookie, cerr := r.Cookie(sessionCookieName); cerr == nil {
		if err := s.auth.EndSession(r.Context(), cookie.Value); err != nil {
			slog.WarnContext(r.Context(), "Failed to clear prior session", "error", err)
		}
	}

	sess, err := s.auth.StartSession(r.Context(), userID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Session creation failed", "error", err, "user_id", userID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	setSessionCookie(w, r, sess.Token, sess.ExpiresAt)
	http.Redirect(w, r, "/app/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		if err := s.auth.EndSession(r.Context(), cookie.Value); err != nil {
			slog.WarnContext(r.Context(), "Failed to end session", "error", err)
		}
	}
	clearSessionCookie(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
