package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"expenses/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no expense has the requested id.
var ErrNotFound = errors.New("expense not found")

// sortKey orders DD/MM/YYYY text chronologically.
const sortKey = `substr(date, 7, 4) || substr(date, 4, 2) || substr(date, 1, 2)`

const expenseColumns = `id, date, category, amount, payment_method, description`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serialises writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// monthFilter returns the WHERE clause and args restricting rows to month.
// A nil month selects everything.
func monthFilter(month *core.MonthKey) (string, []any) {
	if month == nil {
		return "", nil
	}
	return ` WHERE date LIKE '%' || ?`, []any{month.StorageSuffix()}
}

// ListExpenses returns expenses for month (or all when nil), newest first.
func (r *SQLiteRepository) ListExpenses(ctx context.Context, month *core.MonthKey) ([]core.Expense, error) {
	where, args := monthFilter(month)
	query := `SELECT ` + expenseColumns + ` FROM expenses` + where +
		` ORDER BY ` + sortKey + ` DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// Summarize returns the count and total of the rows ListExpenses would return.
func (r *SQLiteRepository) Summarize(ctx context.Context, month *core.MonthKey) (core.Summary, error) {
	where, args := monthFilter(month)
	var s core.Summary
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(amount), 0) FROM expenses`+where, args...,
	).Scan(&s.Count, &s.Total)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize expenses: %w", err)
	}
	return s, nil
}

// AvailableMonths lists the distinct months that have expenses, newest first.
func (r *SQLiteRepository) AvailableMonths(ctx context.Context) ([]core.MonthKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT substr(date, 7, 4) || '-' || substr(date, 4, 2) AS ym
		FROM expenses
		ORDER BY ym DESC`)
	if err != nil {
		return nil, fmt.Errorf("list months: %w", err)
	}
	defer rows.Close()

	var months []core.MonthKey
	for rows.Next() {
		var ym string
		if err := rows.Scan(&ym); err != nil {
			return nil, fmt.Errorf("scan month: %w", err)
		}
		k, err := core.ParseMonthKey(ym)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed stored date", "month", ym, "error", err)
			continue
		}
		months = append(months, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate months: %w", err)
	}
	return months, nil
}

// CategoryTotals sums amounts per category for month, largest first.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, month core.MonthKey) ([]core.CategoryAmount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, SUM(amount) AS total
		FROM expenses
		WHERE date LIKE '%' || ?
		GROUP BY category
		ORDER BY total DESC, category ASC`, month.StorageSuffix())
	if err != nil {
		return nil, fmt.Errorf("category totals: %w", err)
	}
	defer rows.Close()

	var totals []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.Name, &ca.Amount); err != nil {
			return nil, fmt.Errorf("scan category total: %w", err)
		}
		totals = append(totals, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category totals: %w", err)
	}
	return totals, nil
}

// MonthReport aggregates the total and per-category breakdown for month.
func (r *SQLiteRepository) MonthReport(ctx context.Context, month core.MonthKey) (core.MonthReport, error) {
	report := core.MonthReport{Month: month}

	summary, err := r.Summarize(ctx, &month)
	if err != nil {
		return report, err
	}
	report.Total = summary.Total

	report.ByCategory, err = r.CategoryTotals(ctx, month)
	if err != nil {
		return report, err
	}
	return report, nil
}

// UsedCategories returns every distinct category stored, alphabetically.
func (r *SQLiteRepository) UsedCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT category FROM expenses ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// GetExpense retrieves a single expense by ID
func (r *SQLiteRepository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("get expense %d: %w: %w", id, ErrNotFound, err)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// CreateExpense inserts e and returns the new id.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	id, err := insertExpense(ctx, r.db, e)
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"date", e.Date,
		"category", e.Category,
		"amount", e.Amount.String())

	return id, nil
}

// UpdateExpense overwrites every field of the expense with e.ID.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses
		SET date = ?, category = ?, amount = ?, payment_method = ?, description = ?
		WHERE id = ?`,
		e.Date, e.Category, e.Amount.InexactFloat64(), e.PaymentMethod, e.Description, e.ID)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("update expense %d: %w", e.ID, ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense updated", "id", e.ID)
	return nil
}

// DeleteExpense removes the expense with id. Deleting a missing id is not an error.
func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.DebugContext(ctx, "Delete of missing expense ignored", "id", id)
		return nil
	}

	slog.InfoContext(ctx, "Expense deleted", "id", id)
	return nil
}

// EachExpense streams every expense in chronological order to fn, stopping
// at the first error fn returns.
func (r *SQLiteRepository) EachExpense(ctx context.Context, fn func(core.Expense) error) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses ORDER BY `+sortKey+` ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return fmt.Errorf("scan expense: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate expenses: %w", err)
	}
	return nil
}

// ReplaceAll discards the stored expenses, recreates the schema and inserts
// expenses with fresh ids. Nothing changes if any step fails.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, expenses []core.Expense) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
	}()

	if err = recreateSchema(ctx, tx); err != nil {
		return err
	}
	for i, e := range expenses {
		if _, err = insertExpense(ctx, tx, e); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Expenses replaced", "count", len(expenses))
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertExpense(ctx context.Context, db execer, e core.Expense) (int64, error) {
	res, err := db.ExecContext(ctx, `
		INSERT INTO expenses (date, category, amount, payment_method, description)
		VALUES (?, ?, ?, ?, ?)`,
		e.Date, e.Category, e.Amount.InexactFloat64(), e.PaymentMethod, e.Description)
	if err != nil {
		return 0, fmt.Errorf("insert expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inserted id: %w", err)
	}
	return id, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(s rowScanner) (core.Expense, error) {
	var e core.Expense
	err := s.Scan(&e.ID, &e.Date, &e.Category, &e.Amount, &e.PaymentMethod, &e.Description)
	return e, err
}
