package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical expense date format. Month grouping keys on
// the first 7 characters ("YYYY-MM").
const DateLayout = "2006-01-02"

type (
	// User is an account row. Budget is nil until the user sets one.
	User struct {
		ID           int64
		Username     string
		PasswordHash string
		Budget       *float64
	}

	// Expense is a single categorized transaction owned by exactly one user.
	Expense struct {
		ID       int64
		UserID   int64
		Category string
		Amount   float64
		Date     string // YYYY-MM-DD
		Note     string
	}
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
)

// ParseAmount converts a user-supplied amount string to a float64.
// Rejects empty strings and anything strconv cannot parse; the sign is not
// restricted, matching the store's behavior.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidInput
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrInvalidInput
	}
	return v, nil
}

// ValidateDate checks that s is a well-formed YYYY-MM-DD date.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidInput
	}
	return nil
}

// MonthPrefix returns the YYYY-MM grouping key of a date string.
func MonthPrefix(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// CurrentMonth returns the grouping key for the current month.
func CurrentMonth(now time.Time) string {
	return now.Format("2006-01")
}

// Validate checks the fields required before an expense reaches the store.
func (e Expense) Validate() error {
	if strings.TrimSpace(e.Category) == "" {
		return ErrInvalidInput
	}
	if err := ValidateDate(e.Date); err != nil {
		return err
	}
	return nil
}

// RemainingBudget computes budget minus spent, or absent when no budget is
// set. It is never computed against a missing budget.
func RemainingBudget(budget *float64, monthlySpent float64) (float64, bool) {
	if budget == nil {
		return 0, false
	}
	return *budget - monthlySpent, true
}
