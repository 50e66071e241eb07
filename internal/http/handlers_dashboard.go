package http

import (
	"log/slog"
	"net/http"
	"time"

	"bachat/internal/core"
)

// handleDashboard renders the aggregate summary: current-month spend,
// remaining budget, highest-spending day and category. All aggregates are
// computed fresh per request.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	ctx := r.Context()

	monthlySpent, err := s.repo.MonthlySpent(ctx, user.ID, core.CurrentMonth(time.Now()))
	if err != nil {
		slog.ErrorContext(ctx, "Monthly spent query failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	highestDay, err := s.repo.HighestSpendingDay(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Highest day query failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	highestCat, err := s.repo.HighestSpendingCategory(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "Highest category query failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	summary := core.DashboardSummary{
		MonthlySpent: monthlySpent,
		Budget:       user.Budget,
		HighestDay:   highestDay,
		HighestCat:   highestCat,
	}
	summary.Remaining, summary.HasBudget = core.RemainingBudget(user.Budget, monthlySpent)

	s.render(w, r, "dashboard.html", map[string]any{
		"Username": user.Username,
		"Summary":  summary,
		"Flash":    popFlash(w, r),
	})
}

// handleAnalytics renders the analytics page shell; the charts fetch
// their data from the JSON API.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "analytics.html", nil)
}
