package http

import (
	"errors"
	"log/slog"
	"net/http"

	"bachat/internal/core"
	"bachat/internal/events"
)

// handleSetBudget updates the user's monthly budget. Unlike the other
// protected POST routes this one answers unauthenticated requests with a
// 401 JSON error rather than a redirect.
func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}

	budget, err := parseBudgetForm(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid budget"})
		return
	}

	if err := s.repo.SetBudget(r.Context(), user.ID, budget); err != nil {
		slog.ErrorContext(r.Context(), "Budget update failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/app/dashboard", http.StatusSeeOther)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)

	in, err := parseExpenseForm(r)
	if err != nil {
		setFlash(w, err.Error())
		http.Redirect(w, r, "/app/transactions", http.StatusSeeOther)
		return
	}

	expense := core.Expense{
		UserID:   user.ID,
		Category: in.Category,
		Amount:   in.Amount,
		Date:     in.Date,
		Note:     in.Note,
	}

	id, err := s.repo.CreateExpense(r.Context(), expense)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense creation failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.publishEvent(r, events.NewExpenseCreated(id))
	http.Redirect(w, r, "/app/transactions", http.StatusSeeOther)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)
	category, month := listFilters(r)

	rows, total, err := s.repo.ListExpenses(r.Context(), user.ID, category, month)
	if err != nil {
		slog.ErrorContext(r.Context(), "Expense listing failed", "error", err, "user_id", user.ID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "transactions.html", map[string]any{
		"Rows":           rows,
		"Total":          total,
		"FilterCategory": category,
		"FilterMonth":    month,
		"Flash":          popFlash(w, r),
	})
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)

	id, err := parsePathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	// Idempotent: deleting a missing or non-owned row is a silent no-op.
	if err := s.repo.DeleteExpense(r.Context(), user.ID, id); err != nil {
		slog.ErrorContext(r.Context(), "Expense deletion failed", "error", err, "user_id", user.ID, "id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.publishEvent(r, events.NewExpenseDeleted(id))
	setFlash(w, "Transaction deleted")
	http.Redirect(w, r, "/app/transactions", http.StatusSeeOther)
}

func (s *Server) handleEditTransactionPage(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)

	id, err := parsePathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	expense, err := s.repo.GetExpense(r.Context(), user.ID, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			setFlash(w, "Transaction not found")
			http.Redirect(w, r, "/app/transactions", http.StatusSeeOther)
			return
		}
		slog.ErrorContext(r.Context(), "Expense lookup failed", "error", err, "user_id", user.ID, "id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.render(w, r, "edit_transaction.html", map[string]any{"Tx": expense})
}

func (s *Server) handleEditTransaction(w http.ResponseWriter, r *http.Request) {
	user, _ := currentUser(r)

	id, err := parsePathID(r)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	in, err := parseExpenseForm(r)
	if err != nil {
		setFlash(w, err.Error())
		http.Redirect(w, r, "/app/transactions", http.StatusSeeOther)
		return
	}

	// Full overwrite of category/amount/date/note.
	expense := core.Expense{
		ID:       id,
		UserID:   user.ID,
		Category: in.Category,
		Amount:   in.Amount,
		Date:     in.Date,
		Note:     in.Note,
	}

	err = s.repo.UpdateExpense(r.Context(), expense)
	switch {
	case err == nil:
		setFlash(w, "Transaction updated")
	case errors.Is(err, core.ErrNotFound):
		setFlash(w, "Transaction not found")
	default:
		slog.ErrorContext(r.Context(), "Expense update failed", "error", err, "user_id", user.ID, "id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, "/app/transactions", http.StatusSeeOther)
}

// publishEvent fires an expense event if a publisher is configured.
// Failures are logged and never surface to the request.
func (s *Server) publishEvent(r *http.Request, event *events.ExpenseEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(r.Context(), event); err != nil {
		slog.ErrorContext(r.Context(), "Failed to publish expense event",
			"type", event.Type, "id", event.ID, "error", err)
	}
}
