package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"bachat/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustCreateUser(t *testing.T, repo *SQLiteRepository, username string) int64 {
	t.Helper()
	id, err := repo.CreateUser(context.Background(), username, "hash")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return id
}

func mustCreateExpense(t *testing.T, repo *SQLiteRepository, e core.Expense) int64 {
	t.Helper()
	id, err := repo.CreateExpense(context.Background(), e)
	if err != nil {
		t.Fatalf("CreateExpense: %v", err)
	}
	return id
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	mustCreateUser(t, repo, "alice")

	_, err := repo.CreateUser(ctx, "alice", "otherhash")
	if !errors.Is(err, core.ErrUsernameTaken) {
		t.Fatalf("duplicate username error = %v, want ErrUsernameTaken", err)
	}
}

func TestSetBudget(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id := mustCreateUser(t, repo, "alice")

	user, err := repo.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if user.Budget != nil {
		t.Fatalf("fresh user budget = %v, want nil", *user.Budget)
	}

	if err := repo.SetBudget(ctx, id, 750.5); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	user, err = repo.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("GetUserByID after SetBudget: %v", err)
	}
	if user.Budget == nil || *user.Budget != 750.5 {
		t.Errorf("budget = %v, want 750.5", user.Budget)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	repo := newTestRepo(t)

	if _, err := repo.GetUserByUsername(context.Background(), "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetUserByUsername error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetUserByID(context.Background(), 999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetUserByID error = %v, want ErrNotFound", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID := mustCreateUser(t, repo, "alice")
	now := time.Now().Truncate(time.Second)
	sess := Session{
		Token:     "tok-123",
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}

	if err := repo.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := repo.GetSession(ctx, "tok-123")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.UserID != userID {
		t.Errorf("session user = %d, want %d", got.UserID, userID)
	}
	if !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, sess.ExpiresAt)
	}

	if err := repo.DeleteSession(ctx, "tok-123"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := repo.GetSession(ctx, "tok-123"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted session error = %v, want ErrNotFound", err)
	}

	// Deleting an unknown token is a no-op.
	if err := repo.DeleteSession(ctx, "never-existed"); err != nil {
		t.Errorf("DeleteSession unknown token: %v", err)
	}
}

func TestListExpenses_FiltersAndTotal(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID := mustCreateUser(t, repo, "alice")
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 10, Date: "2026-08-01"})
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 5, Date: "2026-08-15"})
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "rent", Amount: 800, Date: "2026-08-01"})
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 20, Date: "2026-07-20"})

	tests := []struct {
		name      string
		category  string
		month     string
		wantCount int
		wantTotal float64
	}{
		{name: "no filter", wantCount: 4, wantTotal: 835},
		{name: "by category", category: "food", wantCount: 3, wantTotal: 35},
		{name: "by month", month: "2026-08", wantCount: 3, wantTotal: 815},
		{name: "category and month", category: "food", month: "2026-08", wantCount: 2, wantTotal: 15},
		{name: "no matches", category: "travel", wantCount: 0, wantTotal: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, total, err := repo.ListExpenses(ctx, userID, tt.category, tt.month)
			if err != nil {
				t.Fatalf("ListExpenses: %v", err)
			}
			if len(rows) != tt.wantCount {
				t.Errorf("count = %d, want %d", len(rows), tt.wantCount)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %v, want %v", total, tt.wantTotal)
			}
		})
	}

	// Ordered by date descending.
	rows, _, err := repo.ListExpenses(ctx, userID, "", "")
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Date < rows[i].Date {
			t.Fatalf("rows not ordered by date desc: %q before %q", rows[i-1].Date, rows[i].Date)
		}
	}
}

func TestExpenses_UserIsolation(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	alice := mustCreateUser(t, repo, "alice")
	bob := mustCreateUser(t, repo, "bob")

	aliceID := mustCreateExpense(t, repo, core.Expense{UserID: alice, Category: "food", Amount: 10, Date: "2026-08-01"})
	mustCreateExpense(t, repo, core.Expense{UserID: bob, Category: "food", Amount: 99, Date: "2026-08-01"})

	rows, total, err := repo.ListExpenses(ctx, alice, "", "")
	if err != nil {
		t.Fatalf("ListExpenses: %v", err)
	}
	if len(rows) != 1 || total != 10 {
		t.Errorf("alice sees %d rows total %v, want 1 row total 10", len(rows), total)
	}

	// Bob cannot read, update or delete Alice's expense.
	if _, err := repo.GetExpense(ctx, bob, aliceID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user GetExpense error = %v, want ErrNotFound", err)
	}
	err = repo.UpdateExpense(ctx, core.Expense{ID: aliceID, UserID: bob, Category: "x", Amount: 1, Date: "2026-08-02"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-user UpdateExpense error = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteExpense(ctx, bob, aliceID); err != nil {
		t.Errorf("cross-user DeleteExpense should be silent no-op, got %v", err)
	}
	if _, err := repo.GetExpense(ctx, alice, aliceID); err != nil {
		t.Errorf("alice's expense should survive bob's delete: %v", err)
	}
}

func TestUpdateExpense_FullOverwrite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID := mustCreateUser(t, repo, "alice")
	id := mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 10, Date: "2026-08-01", Note: "lunch"})

	err := repo.UpdateExpense(ctx, core.Expense{
		ID: id, UserID: userID,
		Category: "transport", Amount: 3.5, Date: "2026-08-02", Note: "",
	})
	if err != nil {
		t.Fatalf("UpdateExpense: %v", err)
	}

	got, err := repo.GetExpense(ctx, userID, id)
	if err != nil {
		t.Fatalf("GetExpense: %v", err)
	}
	if got.Category != "transport" || got.Amount != 3.5 || got.Date != "2026-08-02" || got.Note != "" {
		t.Errorf("after update: %+v", got)
	}

	// Unknown id reports not found.
	err = repo.UpdateExpense(ctx, core.Expense{ID: 9999, UserID: userID, Category: "x", Amount: 1, Date: "2026-08-01"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateExpense unknown id error = %v, want ErrNotFound", err)
	}
}

func TestDeleteExpense_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID := mustCreateUser(t, repo, "alice")
	id := mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 10, Date: "2026-08-01"})

	if err := repo.DeleteExpense(ctx, userID, id); err != nil {
		t.Fatalf("DeleteExpense: %v", err)
	}
	// Second delete of the same id still succeeds.
	if err := repo.DeleteExpense(ctx, userID, id); err != nil {
		t.Errorf("repeat DeleteExpense: %v", err)
	}
	if _, err := repo.GetExpense(ctx, userID, id); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("deleted expense error = %v, want ErrNotFound", err)
	}
}

func TestMonthlySpent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID := mustCreateUser(t, repo, "alice")
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 10, Date: "2026-08-01"})
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "rent", Amount: 800, Date: "2026-08-28"})
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 99, Date: "2026-07-31"})

	total, err := repo.MonthlySpent(ctx, userID, "2026-08")
	if err != nil {
		t.Fatalf("MonthlySpent: %v", err)
	}
	if total != 810 {
		t.Errorf("monthly spent = %v, want 810", total)
	}

	// Empty month sums to zero, not an error.
	total, err = repo.MonthlySpent(ctx, userID, "2020-01")
	if err != nil {
		t.Fatalf("MonthlySpent empty month: %v", err)
	}
	if total != 0 {
		t.Errorf("empty month spent = %v, want 0", total)
	}
}

func TestHighestSpending_TieBreaksToSmallestKey(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID := mustCreateUser(t, repo, "alice")
	// Two days and two categories with identical totals.
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 50, Date: "2026-08-02"})
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "rent", Amount: 50, Date: "2026-08-01"})

	day, err := repo.HighestSpendingDay(ctx, userID)
	if err != nil {
		t.Fatalf("HighestSpendingDay: %v", err)
	}
	if day.Key != "2026-08-01" || day.Total != 50 {
		t.Errorf("highest day = %+v, want 2026-08-01/50", day)
	}

	cat, err := repo.HighestSpendingCategory(ctx, userID)
	if err != nil {
		t.Fatalf("HighestSpendingCategory: %v", err)
	}
	if cat.Key != "food" || cat.Total != 50 {
		t.Errorf("highest category = %+v, want food/50", cat)
	}
}

func TestHighestSpending_EmptyData(t *testing.T) {
	repo := newTestRepo(t)
	userID := mustCreateUser(t, repo, "alice")

	day, err := repo.HighestSpendingDay(context.Background(), userID)
	if err != nil {
		t.Fatalf("HighestSpendingDay: %v", err)
	}
	if day.Key != "" || day.Total != 0 {
		t.Errorf("empty data highest day = %+v, want zero value", day)
	}
}

func TestBreakdowns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID := mustCreateUser(t, repo, "alice")
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "rent", Amount: 800, Date: "2026-08-01"})
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 10, Date: "2026-08-02"})
	mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 5, Date: "2026-07-15"})

	cats, err := repo.CategoryBreakdown(ctx, userID)
	if err != nil {
		t.Fatalf("CategoryBreakdown: %v", err)
	}
	want := []core.KeyTotal{{Key: "food", Total: 15}, {Key: "rent", Total: 800}}
	if len(cats) != len(want) {
		t.Fatalf("category rows = %d, want %d", len(cats), len(want))
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("category[%d] = %+v, want %+v", i, cats[i], want[i])
		}
	}

	months, err := repo.MonthlyBreakdown(ctx, userID)
	if err != nil {
		t.Fatalf("MonthlyBreakdown: %v", err)
	}
	wantMonths := []core.KeyTotal{{Key: "2026-07", Total: 5}, {Key: "2026-08", Total: 810}}
	if len(months) != len(wantMonths) {
		t.Fatalf("month rows = %d, want %d", len(months), len(wantMonths))
	}
	for i := range wantMonths {
		if months[i] != wantMonths[i] {
			t.Errorf("month[%d] = %+v, want %+v", i, months[i], wantMonths[i])
		}
	}
}

func TestExportTracking(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	userID := mustCreateUser(t, repo, "alice")
	id1 := mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "food", Amount: 10, Date: "2026-08-01"})
	id2 := mustCreateExpense(t, repo, core.Expense{UserID: userID, Category: "rent", Amount: 800, Date: "2026-08-01"})

	ids, err := repo.GetPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExports: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("pending = %v, want both ids", ids)
	}

	row, err := repo.GetExpenseForExport(ctx, id1)
	if err != nil {
		t.Fatalf("GetExpenseForExport: %v", err)
	}
	if row.Username != "alice" || row.Expense.Category != "food" {
		t.Errorf("export row = %+v", row)
	}

	if err := repo.MarkExported(ctx, id1); err != nil {
		t.Fatalf("MarkExported: %v", err)
	}
	if err := repo.MarkExportError(ctx, id2); err != nil {
		t.Fatalf("MarkExportError: %v", err)
	}

	// Both exported and errored rows leave the pending set.
	ids, err = repo.GetPendingExports(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingExports: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("pending after marking = %v, want empty", ids)
	}

	if _, err := repo.GetExpenseForExport(ctx, 9999); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetExpenseForExport unknown id error = %v, want ErrNotFound", err)
	}
}
