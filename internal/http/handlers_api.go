package http

import (
	"log/slog"
	"net/http"

	"bachat/internal/core"
)

// chartData is the {labels, data} payload both chart endpoints produce.
type chartData struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// transactionJSON mirrors the raw expense row shape of the export API.
type transactionJSON struct {
	ID       int64   `json:"id"`
	UserID   int64   `json:"user_id"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Note     string  `json:"note"`
}

func emptyChart() chartData {
	return chartData{Labels: []string{}, Data: []float64{}}
}

func toChart(rows []core.KeyTotal) chartData {
	out := emptyChart()
	for _, row := range rows {
		out.Labels = append(out.Labels, row.Key)
		out.Data = append(out.Data, row.Total)
	}
	return out
}

// handleCategoryPie returns per-category totals for the pie chart.
// Unauthenticated requests get an empty-success payload, not an error.
func (s *Server) handleCategoryPie(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondJSON(w, http.StatusOK, emptyChart())
		return
	}

	rows, err := s.repo.CategoryBreakdown(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Category breakdown failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, toChart(rows))
}

// handleMonthlyBar returns per-month totals, ascending by month.
func (s *Server) handleMonthlyBar(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondJSON(w, http.StatusOK, emptyChart())
		return
	}

	rows, err := s.repo.MonthlyBreakdown(r.Context(), user.ID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Monthly breakdown failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, toChart(rows))
}

// handleAPITransactions exports the user's expenses as a raw JSON array.
// Unauthenticated requests get [].
func (s *Server) handleAPITransactions(w http.ResponseWriter, r *http.Request) {
	out := make([]transactionJSON, 0)

	user, ok := currentUser(r)
	if !ok {
		respondJSON(w, http.StatusOK, out)
		return
	}

	rows, _, err := s.repo.ListExpenses(r.Context(), user.ID, "", "")
	if err != nil {
		slog.ErrorContext(r.Context(), "Transaction export failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	for _, e := range rows {
		out = append(out, transactionJSON{
			ID:       e.ID,
			UserID:   e.UserID,
			Category: e.Category,
			Amount:   e.Amount,
			Date:     e.Date,
			Note:     e.Note,
		})
	}

	respondJSON(w, http.StatusOK, out)
}
