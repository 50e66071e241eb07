package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bachat/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository provides all persistence for users, sessions and
// expenses. Every expense query is scoped by user_id in the SQL itself so
// cross-user access is structurally impossible.
type SQLiteRepository struct {
	db *sql.DB
}

// Session is a server-side session row referenced by the client's token.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Ping verifies the database connection, used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ---- users ----

// CreateUser inserts a new account. A violated username uniqueness
// constraint surfaces as core.ErrUsernameTaken.
func (r *SQLiteRepository) CreateUser(ctx context.Context, username, passwordHash string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash) VALUES (?, ?)",
		username, passwordHash)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, core.ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "User created", "id", id, "username", username)
	return id, nil
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, budget FROM users WHERE username = ?", username))
}

func (r *SQLiteRepository) GetUserByID(ctx context.Context, id int64) (*core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, budget FROM users WHERE id = ?", id))
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (*core.User, error) {
	var u core.User
	var budget sql.NullFloat64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &budget); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if budget.Valid {
		v := budget.Float64
		u.Budget = &v
	}
	return &u, nil
}

// SetBudget overwrites the user's monthly budget. Concurrent updates race
// with last-write-wins, which is acceptable here.
func (r *SQLiteRepository) SetBudget(ctx context.Context, userID int64, budget float64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE users SET budget = ? WHERE id = ?", budget, userID); err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return nil
}

// ---- sessions ----

func (r *SQLiteRepository) CreateSession(ctx context.Context, s Session) error {
	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		s.Token, s.UserID, s.CreatedAt, s.ExpiresAt); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string) (*Session, error) {
	var s Session
	err := r.db.QueryRowContext(ctx,
		"SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = ?",
		token).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return &s, nil
}

// DeleteSession removes a session row. Deleting an unknown token is a no-op.
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ---- expenses ----

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO expenses (user_id, category, amount, date, note) VALUES (?, ?, ?, ?, ?)",
		e.UserID, e.Category, e.Amount, e.Date, e.Note)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"user_id", e.UserID,
		"category", e.Category,
		"amount", e.Amount,
		"date", e.Date)

	return id, nil
}

// ListExpenses returns the user's expenses ordered by date descending,
// optionally narrowed by exact category and/or month prefix, together with
// the sum of amounts over the same filtered set.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID int64, category, month string) ([]core.Expense, float64, error) {
	query := "SELECT id, user_id, category, amount, date, note FROM expenses WHERE user_id = ?"
	args := []any{userID}
	if category != "" {
		query += " AND category = ?"
		args = append(args, category)
	}
	if month != "" {
		query += " AND substr(date,1,7) = ?"
		args = append(args, month)
	}
	query += " ORDER BY date DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	var total float64
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, err
		}
		total += e.Amount
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate expenses: %w", err)
	}

	return out, total, nil
}

// GetExpense fetches a single owned expense; core.ErrNotFound when no row
// matches both id and user.
func (r *SQLiteRepository) GetExpense(ctx context.Context, userID, id int64) (*core.Expense, error) {
	var e core.Expense
	var note sql.NullString
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, category, amount, date, note FROM expenses WHERE id = ? AND user_id = ?",
		id, userID).Scan(&e.ID, &e.UserID, &e.Category, &e.Amount, &e.Date, &note)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get expense: %w", err)
	}
	e.Note = note.String
	return &e, nil
}

// UpdateExpense applies a full overwrite of category/amount/date/note.
// Zero matched rows means the expense does not exist or is not owned.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	if err := e.Validate(); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET category = ?, amount = ?, date = ?, note = ? WHERE id = ? AND user_id = ?",
		e.Category, e.Amount, e.Date, e.Note, e.ID, e.UserID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteExpense deletes at most one owned row. A non-existent or non-owned
// id is a silent no-op to keep delete idempotent.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, userID, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"DELETE FROM expenses WHERE id = ? AND user_id = ?", id, userID); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func scanExpense(rows *sql.Rows) (core.Expense, error) {
	var e core.Expense
	var note sql.NullString
	if err := rows.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount, &e.Date, &note); err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Note = note.String
	return e, nil
}

// ---- aggregation ----
// All aggregates are computed fresh per request; the per-user dataset is
// small enough that caching is not warranted.

func (r *SQLiteRepository) MonthlySpent(ctx context.Context, userID int64, yearMonth string) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount),0) FROM expenses WHERE user_id = ? AND substr(date,1,7) = ?",
		userID, yearMonth).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("monthly spent: %w", err)
	}
	return total, nil
}

// HighestSpendingDay groups by exact date and returns the max total.
// Ties break to the lexicographically smallest date.
func (r *SQLiteRepository) HighestSpendingDay(ctx context.Context, userID int64) (core.KeyTotal, error) {
	return r.highestBy(ctx, userID, "date")
}

// HighestSpendingCategory groups by category and returns the max total.
// Ties break to the lexicographically smallest category.
func (r *SQLiteRepository) HighestSpendingCategory(ctx context.Context, userID int64) (core.KeyTotal, error) {
	return r.highestBy(ctx, userID, "category")
}

func (r *SQLiteRepository) highestBy(ctx context.Context, userID int64, column string) (core.KeyTotal, error) {
	// column is always one of the fixed identifiers above, never user input
	query := fmt.Sprintf(
		"SELECT %s, SUM(amount) AS total FROM expenses WHERE user_id = ? GROUP BY %s ORDER BY total DESC, %s ASC LIMIT 1",
		column, column, column)

	var kt core.KeyTotal
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&kt.Key, &kt.Total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.KeyTotal{}, nil
		}
		return core.KeyTotal{}, fmt.Errorf("highest by %s: %w", column, err)
	}
	return kt, nil
}

// CategoryBreakdown returns (category, total) pairs ordered by category.
func (r *SQLiteRepository) CategoryBreakdown(ctx context.Context, userID int64) ([]core.KeyTotal, error) {
	return r.breakdown(ctx, userID,
		"SELECT category, SUM(amount) AS total FROM expenses WHERE user_id = ? GROUP BY category ORDER BY category")
}

// MonthlyBreakdown returns (month, total) pairs ascending by month.
func (r *SQLiteRepository) MonthlyBreakdown(ctx context.Context, userID int64) ([]core.KeyTotal, error) {
	return r.breakdown(ctx, userID,
		"SELECT substr(date,1,7) AS month, SUM(amount) AS total FROM expenses WHERE user_id = ? GROUP BY month ORDER BY month")
}

func (r *SQLiteRepository) breakdown(ctx context.Context, userID int64, query string) ([]core.KeyTotal, error) {
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("breakdown query: %w", err)
	}
	defer rows.Close()

	var out []core.KeyTotal
	for rows.Next() {
		var kt core.KeyTotal
		if err := rows.Scan(&kt.Key, &kt.Total); err != nil {
			return nil, fmt.Errorf("scan breakdown row: %w", err)
		}
		out = append(out, kt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate breakdown: %w", err)
	}
	return out, nil
}

// ---- ledger export support ----

// ExportRow is an expense joined with its owner's username, the shape
// appended to the backup ledger.
type ExportRow struct {
	Expense  core.Expense
	Username string
}

// GetExpenseForExport fetches an expense with its owner regardless of
// session scoping; only the export worker uses this.
func (r *SQLiteRepository) GetExpenseForExport(ctx context.Context, id int64) (*ExportRow, error) {
	var row ExportRow
	var note sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT e.id, e.user_id, e.category, e.amount, e.date, e.note, u.username
		 FROM expenses e JOIN users u ON u.id = e.user_id WHERE e.id = ?`,
		id).Scan(&row.Expense.ID, &row.Expense.UserID, &row.Expense.Category,
		&row.Expense.Amount, &row.Expense.Date, &note, &row.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("get expense for export: %w", err)
	}
	row.Expense.Note = note.String
	return &row, nil
}

// GetPendingExports returns ids of expenses not yet appended to the backup
// ledger. Backup mechanism in case event messages are lost.
func (r *SQLiteRepository) GetPendingExports(ctx context.Context, limit int) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id FROM expenses WHERE exported = 0 AND export_error = 0 ORDER BY id LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("get pending exports: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending export id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending exports: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) MarkExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET exported = 1, export_error = 0 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	slog.InfoContext(ctx, "Expense marked as exported", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkExportError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE expenses SET export_error = 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with export error", "id", id)
	return nil
}
