// Request validation: every form endpoint parses its body into a typed,
// validated input before any business logic runs, so malformed numbers or
// dates become structured errors instead of propagating failures.

package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bachat/internal/core"
)

// ExpenseInput is the validated payload of add/edit transaction forms.
type ExpenseInput struct {
	Category string
	Amount   float64
	Date     string
	Note     string
}

// parseExpenseForm validates the transaction form fields. All failures
// map to core.ErrInvalidInput with a user-facing reason.
func parseExpenseForm(r *http.Request) (ExpenseInput, error) {
	if err := r.ParseForm(); err != nil {
		return ExpenseInput{}, fmt.Errorf("%w: malformed form body", core.ErrInvalidInput)
	}

	in := ExpenseInput{
		Category: sanitizeInput(r.Form.Get("category")),
		Date:     strings.TrimSpace(r.Form.Get("date")),
		Note:     sanitizeInput(r.Form.Get("note")),
	}

	if in.Category == "" {
		return ExpenseInput{}, fmt.Errorf("%w: category is required", core.ErrInvalidInput)
	}

	amount, err := core.ParseAmount(r.Form.Get("amount"))
	if err != nil {
		return ExpenseInput{}, fmt.Errorf("%w: amount must be a number", core.ErrInvalidInput)
	}
	in.Amount = amount

	if err := core.ValidateDate(in.Date); err != nil {
		return ExpenseInput{}, fmt.Errorf("%w: date must be YYYY-MM-DD", core.ErrInvalidInput)
	}

	return in, nil
}

// parseBudgetForm validates the set_budget form field.
func parseBudgetForm(r *http.Request) (float64, error) {
	if err := r.ParseForm(); err != nil {
		return 0, fmt.Errorf("%w: malformed form body", core.ErrInvalidInput)
	}
	budget, err := core.ParseAmount(r.Form.Get("budget"))
	if err != nil {
		return 0, fmt.Errorf("%w: budget must be a number", core.ErrInvalidInput)
	}
	return budget, nil
}

// parsePathID extracts the numeric {id} path segment.
func parsePathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", core.ErrInvalidInput)
	}
	return id, nil
}

// listFilters extracts the optional category/month query filters.
func listFilters(r *http.Request) (category, month string) {
	return strings.TrimSpace(r.URL.Query().Get("category")),
		strings.TrimSpace(r.URL.Query().Get("month"))
}
