package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func expense(date, category, amount string) core.Expense {
	return core.Expense{
		Date:          date,
		Category:      category,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: "Cash",
		Description:   category + " on " + date,
	}
}

func seed(t *testing.T, repo *SQLiteRepository, expenses ...core.Expense) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(expenses))
	for _, e := range expenses {
		id, err := repo.CreateExpense(context.Background(), e)
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func dates(expenses []core.Expense) []string {
	out := make([]string, len(expenses))
	for i, e := range expenses {
		out[i] = e.Date
	}
	return out
}

func TestCreateAndGetExpense(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ids := seed(t, repo, expense("05/03/2024", "Groceries", "12.5"))
	assert.Equal(t, int64(1), ids[0])

	got, err := repo.GetExpense(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "05/03/2024", got.Date)
	assert.Equal(t, "Groceries", got.Category)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("12.5")), "amount %s", got.Amount)
	assert.Equal(t, "Cash", got.PaymentMethod)

	_, err = repo.GetExpense(ctx, 999)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestListExpensesOrdersByCalendarDate(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed(t, repo,
		expense("31/01/2024", "Rent", "900"),
		expense("02/02/2024", "Groceries", "10"),
		expense("15/12/2023", "Health", "20"),
		expense("02/02/2024", "Transport", "3"),
	)

	all, err := repo.ListExpenses(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"02/02/2024", "02/02/2024", "31/01/2024", "15/12/2023"}, dates(all))
	// Same day: newest id first.
	assert.Equal(t, "Transport", all[0].Category)

	feb := core.MonthKey{Year: 2024, Month: 2}
	onlyFeb, err := repo.ListExpenses(ctx, &feb)
	require.NoError(t, err)
	assert.Len(t, onlyFeb, 2)

	var chronological []string
	require.NoError(t, repo.EachExpense(ctx, func(e core.Expense) error {
		chronological = append(chronological, e.Date)
		return nil
	}))
	assert.Equal(t, []string{"15/12/2023", "31/01/2024", "02/02/2024", "02/02/2024"}, chronological)
}

func TestMonthFilterDoesNotMatchOtherYears(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed(t, repo,
		expense("10/03/2024", "Groceries", "1"),
		expense("10/03/2023", "Groceries", "2"),
	)

	mar := core.MonthKey{Year: 2024, Month: 3}
	got, err := repo.ListExpenses(ctx, &mar)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10/03/2024", got[0].Date)

	s, err := repo.Summarize(ctx, &mar)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, "1", s.Total.String())
}

func TestSummarizeEmpty(t *testing.T) {
	repo := newTestRepo(t)

	s, err := repo.Summarize(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count)
	assert.True(t, s.Total.IsZero())
}

func TestAvailableMonthsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)

	seed(t, repo,
		expense("01/11/2023", "Rent", "1"),
		expense("20/01/2024", "Rent", "1"),
		expense("05/01/2024", "Rent", "1"),
		expense("09/12/2023", "Rent", "1"),
	)

	months, err := repo.AvailableMonths(context.Background())
	require.NoError(t, err)
	var keys []string
	for _, m := range months {
		keys = append(keys, m.String())
	}
	assert.Equal(t, []string{"2024-01", "2023-12", "2023-11"}, keys)
}

func TestMonthReport(t *testing.T) {
	repo := newTestRepo(t)

	seed(t, repo,
		expense("01/03/2024", "Groceries", "10.25"),
		expense("02/03/2024", "Rent", "800"),
		expense("03/03/2024", "Groceries", "4.75"),
		expense("04/04/2024", "Groceries", "99"),
	)

	report, err := repo.MonthReport(context.Background(), core.MonthKey{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, "815", report.Total.String())
	require.Len(t, report.ByCategory, 2)
	assert.Equal(t, "Rent", report.ByCategory[0].Name)
	assert.Equal(t, "Groceries", report.ByCategory[1].Name)
	assert.Equal(t, "15", report.ByCategory[1].Amount.String())
}

func TestUpdateExpense(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ids := seed(t, repo, expense("01/03/2024", "Groceries", "10"))

	updated := expense("15/04/2024", "Travel", "42.42")
	updated.ID = ids[0]
	updated.PaymentMethod = "Credit Card"
	require.NoError(t, repo.UpdateExpense(ctx, updated))

	got, err := repo.GetExpense(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "15/04/2024", got.Date)
	assert.Equal(t, "Travel", got.Category)
	assert.Equal(t, "Credit Card", got.PaymentMethod)
	assert.Equal(t, "42.42", got.Amount.String())

	missing := updated
	missing.ID = 404
	err = repo.UpdateExpense(ctx, missing)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestDeleteExpenseIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	ids := seed(t, repo, expense("01/03/2024", "Groceries", "10"))
	require.NoError(t, repo.DeleteExpense(ctx, ids[0]))
	require.NoError(t, repo.DeleteExpense(ctx, ids[0]))

	_, err := repo.GetExpense(ctx, ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceAllResetsIDs(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	seed(t, repo,
		expense("01/03/2024", "Groceries", "10"),
		expense("02/03/2024", "Groceries", "11"),
		expense("03/03/2024", "Groceries", "12"),
	)

	require.NoError(t, repo.ReplaceAll(ctx, []core.Expense{
		expense("01/01/2020", "Rent", "500"),
		expense("02/01/2020", "Utilities", "60.5"),
	}))

	all, err := repo.ListExpenses(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(2), all[0].ID)
	assert.Equal(t, int64(1), all[1].ID)

	id, err := repo.CreateExpense(ctx, expense("03/01/2020", "Rent", "1"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
}

func TestUsedCategories(t *testing.T) {
	repo := newTestRepo(t)

	seed(t, repo,
		expense("01/03/2024", "Travel", "1"),
		expense("02/03/2024", "Groceries", "1"),
		expense("03/03/2024", "Travel", "1"),
	)

	cats, err := repo.UsedCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Groceries", "Travel"}, cats)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	_, err = repo.CreateExpense(context.Background(), expense("01/03/2024", "Rent", "1"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.ListExpenses(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
