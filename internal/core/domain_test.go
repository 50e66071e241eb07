package core

import (
	"errors"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{name: "plain integer", input: "42", want: 42},
		{name: "decimal", input: "12.50", want: 12.5},
		{name: "negative allowed", input: "-3.25", want: -3.25},
		{name: "surrounding whitespace", input: "  7.1  ", want: 7.1},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "trailing garbage", input: "12x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("ParseAmount(%q) error = %v, want ErrInvalidInput", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidateDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid date", input: "2026-08-28"},
		{name: "leap day", input: "2024-02-29"},
		{name: "non-leap feb 29", input: "2025-02-29", wantErr: true},
		{name: "wrong separator", input: "2026/08/28", wantErr: true},
		{name: "month out of range", input: "2026-13-01", wantErr: true},
		{name: "missing day", input: "2026-08", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDate(tt.input)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateDate(%q) = nil, want error", tt.input)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateDate(%q) = %v, want nil", tt.input, err)
			}
		})
	}
}

func TestMonthPrefix(t *testing.T) {
	if got := MonthPrefix("2026-08-28"); got != "2026-08" {
		t.Errorf("MonthPrefix = %q, want 2026-08", got)
	}
	// Short inputs pass through untouched.
	if got := MonthPrefix("2026"); got != "2026" {
		t.Errorf("MonthPrefix short input = %q, want 2026", got)
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{Category: "food", Amount: 10, Date: "2026-08-28"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	missingCategory := Expense{Category: "  ", Amount: 10, Date: "2026-08-28"}
	if err := missingCategory.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("blank category error = %v, want ErrInvalidInput", err)
	}

	badDate := Expense{Category: "food", Amount: 10, Date: "today"}
	if err := badDate.Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad date error = %v, want ErrInvalidInput", err)
	}
}

func TestRemainingBudget(t *testing.T) {
	if _, ok := RemainingBudget(nil, 100); ok {
		t.Fatal("expected no remaining budget when budget is unset")
	}

	budget := 500.0
	remaining, ok := RemainingBudget(&budget, 120.5)
	if !ok {
		t.Fatal("expected remaining budget to be present")
	}
	if remaining != 379.5 {
		t.Errorf("remaining = %v, want 379.5", remaining)
	}

	// Overspending goes negative rather than clamping.
	remaining, _ = RemainingBudget(&budget, 600)
	if remaining != -100 {
		t.Errorf("overspent remaining = %v, want -100", remaining)
	}
}
