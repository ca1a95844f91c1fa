package ports

import (
	"context"

	"expenses/internal/core"
)

// Ports implemented by the storage layer and consumed by services and handlers.
type (
	// ExpenseReader serves the listing, report and form views.
	ExpenseReader interface {
		// ListExpenses returns the expenses of month (all when nil), newest first.
		ListExpenses(ctx context.Context, month *core.MonthKey) ([]core.Expense, error)
		Summarize(ctx context.Context, month *core.MonthKey) (core.Summary, error)
		AvailableMonths(ctx context.Context) ([]core.MonthKey, error)
		MonthReport(ctx context.Context, month core.MonthKey) (core.MonthReport, error)
		UsedCategories(ctx context.Context) ([]string, error)
		GetExpense(ctx context.Context, id int64) (core.Expense, error)
	}

	// ExpenseWriter persists single expense changes.
	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) (int64, error)
		UpdateExpense(ctx context.Context, e core.Expense) error
		DeleteExpense(ctx context.Context, id int64) error
	}

	// ExpenseStreamer walks every stored expense in chronological order.
	ExpenseStreamer interface {
		EachExpense(ctx context.Context, fn func(core.Expense) error) error
	}

	// BulkReplacer swaps the whole dataset in one step.
	BulkReplacer interface {
		ReplaceAll(ctx context.Context, expenses []core.Expense) error
	}

	// HealthChecker reports storage reachability.
	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)
