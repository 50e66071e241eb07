// Package http wires the HTTP surface: routing, identity resolution,
// page handlers and the JSON API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bachat/internal/auth"
	"bachat/internal/events"
	"bachat/internal/middleware/security"
	"bachat/internal/middleware/trace"
	"bachat/internal/storage"
	appweb "bachat/web"
)

// EventPublisher publishes expense lifecycle events. A nil publisher
// disables event publishing entirely.
type EventPublisher interface {
	Publish(ctx context.Context, event *events.ExpenseEvent) error
}

type Server struct {
	http.Server
	templates *template.Template
	repo      *storage.SQLiteRepository
	auth      *auth.Service
	publisher EventPublisher
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, repo *storage.SQLiteRepository, authSvc *auth.Service, publisher EventPublisher) *Server {
	mux := http.NewServeMux()

	s := &Server{
		repo:      repo,
		auth:      authSvc,
		publisher: publisher,
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /signup", s.handleSignupPage)
	mux.HandleFunc("POST /signup", s.handleSignup)
	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("GET /logout", s.handleLogout)

	// Page routes: unauthenticated requests redirect to /login.
	mux.HandleFunc("GET /app/dashboard", s.requirePage(s.handleDashboard))
	mux.HandleFunc("POST /app/set_budget", s.handleSetBudget)
	mux.HandleFunc("POST /app/add_transaction", s.requirePage(s.handleAddTransaction))
	mux.HandleFunc("GET /app/transactions", s.requirePage(s.handleTransactions))
	mux.HandleFunc("POST /app/transactions/delete/{id}", s.requirePage(s.handleDeleteTransaction))
	mux.HandleFunc("GET /app/transactions/edit/{id}", s.requirePage(s.handleEditTransactionPage))
	mux.HandleFunc("POST /app/transactions/edit/{id}", s.requirePage(s.handleEditTransaction))
	mux.HandleFunc("GET /app/analytics", s.requirePage(s.handleAnalytics))

	// API routes: unauthenticated requests degrade to empty-success JSON.
	mux.HandleFunc("GET /api/analytics/category_pie", s.handleCategoryPie)
	mux.HandleFunc("GET /api/analytics/monthly_bar", s.handleMonthlyBar)
	mux.HandleFunc("GET /api/transactions", s.handleAPITransactions)

	traced := trace.NewMiddleware(trace.ClientIP)
	handler := security.Headers(traced.Middleware(s.withIdentity(mux)))

	s.Server = http.Server{
		Addr:    addr,
		Handler: handler,
	}

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	if err := s.repo.Ping(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
