package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/middleware/ratelimit"
	"expenses/internal/services"
	"expenses/internal/storage"
)

var testCatalog = core.Catalog{
	Categories:     []string{"Groceries", "Rent"},
	PaymentMethods: []string{"Cash", "Credit Card"},
}

func newTestServer(t *testing.T, limit ratelimit.Config) (*Server, *storage.SQLiteRepository) {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "expenses.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.Config{Output: io.Discard})
	svc := services.NewExpenseService(repo, testCatalog, nil)

	srv, err := NewServer(":0", repo, svc, logger, limit)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, repo
}

func seed(t *testing.T, repo *storage.SQLiteRepository, date, category, amount, method, desc string) int64 {
	t.Helper()
	id, err := repo.CreateExpense(context.Background(), core.Expense{
		Date:          date,
		Category:      category,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: method,
		Description:   desc,
	})
	require.NoError(t, err)
	return id
}

func do(srv *Server, method, target string, form url.Values) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func validForm() url.Values {
	return url.Values{
		"date":           {"2024-03-05"},
		"category":       {"Groceries"},
		"amount":         {"12.50"},
		"payment_method": {"Cash"},
		"description":    {"weekly market"},
	}
}

func TestIndexRedirectsToListing(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.Config{})

	rr := do(srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses", rr.Header().Get("Location"))

	rr = do(srv, http.MethodGet, "/no-such-page", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.Config{})

	rr := do(srv, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])

	rr = do(srv, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var ready map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ready))
	assert.Equal(t, "ready", ready["status"])
	checks := ready["checks"].(map[string]any)
	assert.Equal(t, "ok", checks["database"])

	rr = do(srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "http_requests_total")
}

func TestAddFormRenders(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	seed(t, repo, "01/03/2024", "Books", "5", "Cash", "novel")

	rr := do(srv, http.MethodGet, "/add_expenses", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `action="/add_expenses"`)
	assert.Contains(t, body, `<option value="Credit Card">`)
	// configured and previously used categories are both suggested
	assert.Contains(t, body, `<option value="Rent">`)
	assert.Contains(t, body, `<option value="Books">`)
}

func TestAddExpenseSuccess(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})

	rr := do(srv, http.MethodPost, "/add_expenses", validForm())
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses?month=2024-03", rr.Header().Get("Location"))

	all, err := repo.ListExpenses(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "05/03/2024", all[0].Date)
	assert.Equal(t, "Groceries", all[0].Category)
	assert.Equal(t, "12.5", all[0].Amount.String())
	assert.Equal(t, "Cash", all[0].PaymentMethod)
	assert.Equal(t, "weekly market", all[0].Description)

	rr = do(srv, http.MethodGet, "/expenses?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "05/03/2024")
	assert.Contains(t, body, "weekly market")
	assert.Contains(t, body, "12.50")
}

func TestAddExpenseValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(url.Values)
		message string
	}{
		{"blank description", func(f url.Values) { f.Set("description", "  ") }, "Please fill in all fields"},
		{"missing category", func(f url.Values) { f.Del("category") }, "Please fill in all fields"},
		{"non-numeric amount", func(f url.Values) { f.Set("amount", "abc") }, "Invalid amount"},
		{"amount too large to store", func(f url.Values) { f.Set("amount", "1e400") }, "Invalid amount"},
		{"bad date", func(f url.Values) { f.Set("date", "2024-02-30") }, "Invalid date"},
		{"unknown payment method", func(f url.Values) { f.Set("payment_method", "Barter") }, "Invalid payment method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, repo := newTestServer(t, ratelimit.Config{})
			form := validForm()
			tt.mutate(form)

			rr := do(srv, http.MethodPost, "/add_expenses", form)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			body := rr.Body.String()
			assert.Contains(t, body, tt.message)
			// entered values are preserved
			assert.Contains(t, body, `value="`+form.Get("amount")+`"`)

			all, err := repo.ListExpenses(context.Background(), nil)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestOverflowingAmountLeavesPagesWorking(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	id := seed(t, repo, "10/03/2024", "Rent", "900", "Cash", "march rent")

	form := validForm()
	form.Set("amount", "1e400")
	rr := do(srv, http.MethodPost, "/add_expenses", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = do(srv, http.MethodPost, "/edit/"+strconv.FormatInt(id, 10), form)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid amount")

	for _, path := range []string{"/expenses?month=all", "/export", "/edit/" + strconv.FormatInt(id, 10)} {
		rr = do(srv, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	got, err := repo.GetExpense(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "900", got.Amount.String())
}

func TestEditBlankAmountReportsMissingFields(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	id := seed(t, repo, "10/03/2024", "Rent", "900", "Cash", "march rent")

	form := validForm()
	form.Set("amount", " ")
	rr := do(srv, http.MethodPost, "/edit/"+strconv.FormatInt(id, 10), form)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Please fill in all fields")
	assert.NotContains(t, rr.Body.String(), "Invalid amount")
}

func TestListFiltersByMonth(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	seed(t, repo, "10/03/2024", "Groceries", "10", "Cash", "march-2024")
	seed(t, repo, "02/04/2024", "Groceries", "20", "Cash", "april-2024")
	seed(t, repo, "15/03/2023", "Groceries", "30", "Cash", "march-2023")

	rr := do(srv, http.MethodGet, "/expenses?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "march-2024")
	assert.NotContains(t, body, "april-2024")
	assert.NotContains(t, body, "march-2023")

	// newest month by default
	body = do(srv, http.MethodGet, "/expenses", nil).Body.String()
	assert.Contains(t, body, "april-2024")
	assert.NotContains(t, body, "march-2024")

	// explicit "all" and malformed months
	body = do(srv, http.MethodGet, "/expenses?month=all", nil).Body.String()
	for _, d := range []string{"march-2024", "april-2024", "march-2023"} {
		assert.Contains(t, body, d)
	}
	assert.Contains(t, body, "60.00")

	body = do(srv, http.MethodGet, "/expenses?month=garbage", nil).Body.String()
	assert.Contains(t, body, "april-2024")
}

func TestListOrdersNewestFirst(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	seed(t, repo, "01/03/2024", "Groceries", "1", "Cash", "first-of-month")
	seed(t, repo, "20/03/2024", "Groceries", "1", "Cash", "late-in-month")

	body := do(srv, http.MethodGet, "/expenses?month=2024-03", nil).Body.String()
	assert.Less(t, strings.Index(body, "late-in-month"), strings.Index(body, "first-of-month"))
}

func TestListEmpty(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.Config{})

	rr := do(srv, http.MethodGet, "/expenses", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "No expenses recorded yet")
}

func TestEditExpense(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	id := seed(t, repo, "05/03/2024", "Groceries", "12.5", "Cash", "market")

	rr := do(srv, http.MethodGet, "/edit/1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `value="2024-03-05"`)
	assert.Contains(t, body, `value="market"`)
	assert.Contains(t, body, `<option value="Cash" selected>`)

	form := validForm()
	form.Set("date", "2024-04-01")
	form.Set("payment_method", "Credit Card")
	rr = do(srv, http.MethodPost, "/edit/1", form)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses?month=2024-04", rr.Header().Get("Location"))

	stored, err := repo.GetExpense(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "01/04/2024", stored.Date)
	assert.Equal(t, "Credit Card", stored.PaymentMethod)

	form.Set("amount", "abc")
	rr = do(srv, http.MethodPost, "/edit/1", form)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid amount")
	assert.Contains(t, rr.Body.String(), `action="/edit/1"`)
}

func TestEditUnknownIDRedirects(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.Config{})

	for _, target := range []string{"/edit/999", "/edit/abc", "/edit/-1"} {
		rr := do(srv, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusSeeOther, rr.Code, target)
		assert.Equal(t, "/expenses", rr.Header().Get("Location"), target)
	}

	rr := do(srv, http.MethodPost, "/edit/999", validForm())
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses", rr.Header().Get("Location"))
}

func TestDeleteExpense(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	id := seed(t, repo, "05/03/2024", "Groceries", "12.5", "Cash", "market")

	rr := do(srv, http.MethodGet, "/delete/1", nil)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/expenses", rr.Header().Get("Location"))

	_, err := repo.GetExpense(context.Background(), id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	for _, target := range []string{"/delete/1", "/delete/42", "/delete/abc"} {
		rr := do(srv, http.MethodPost, target, url.Values{})
		assert.Equal(t, http.StatusSeeOther, rr.Code, target)
		assert.Equal(t, "/expenses", rr.Header().Get("Location"), target)
	}
}

func TestReports(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	seed(t, repo, "01/03/2024", "Groceries", "40", "Cash", "a")
	seed(t, repo, "02/03/2024", "Rent", "900", "Cash", "b")
	seed(t, repo, "03/03/2024", "Groceries", "10", "Cash", "c")
	seed(t, repo, "03/02/2024", "Travel", "300", "Cash", "d")

	rr := do(srv, http.MethodGet, "/reports?month=2024-03", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "March 2024")
	assert.Contains(t, body, "950.00")
	assert.Contains(t, body, "50.00")
	assert.NotContains(t, body, "Travel")
	assert.Less(t, strings.Index(body, "Rent"), strings.Index(body, "Groceries"))

	// month without data renders blank sections
	rr = do(srv, http.MethodGet, "/reports?month=2020-01", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "<progress")
}

func TestReportsAllUsesNewestMonth(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	seed(t, repo, "01/03/2024", "Rent", "900", "Cash", "a")
	seed(t, repo, "03/02/2024", "Travel", "300", "Cash", "b")

	rr := do(srv, http.MethodGet, "/reports?month=all", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "March 2024")
	assert.Contains(t, body, "<progress")
	assert.Contains(t, body, "Rent")
	assert.NotContains(t, body, "Travel")
}

func TestReportsWithoutData(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.Config{})

	rr := do(srv, http.MethodGet, "/reports", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "<progress")
}

func TestExportCSV(t *testing.T) {
	srv, repo := newTestServer(t, ratelimit.Config{})
	seed(t, repo, "20/03/2024", "Groceries", "12.5", "Cash", "later")
	seed(t, repo, "01/03/2024", "Rent", "900", "Credit Card", "earlier, with comma")

	rr := do(srv, http.MethodGet, "/export", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="expenses_export.csv"`, rr.Header().Get("Content-Disposition"))

	want := "\ufeffdate,category,amount,payment_method,description\n" +
		"01/03/2024,Rent,900,Credit Card,\"earlier, with comma\"\n" +
		"20/03/2024,Groceries,12.5,Cash,later\n"
	assert.Equal(t, want, rr.Body.String())
}

func TestMiddlewareChain(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.Config{})

	rr := do(srv, http.MethodGet, "/expenses", nil)
	assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	rr = do(srv, http.MethodGet, "/static/style.css", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv, _ := newTestServer(t, ratelimit.Config{RequestsPerWindow: 1})

	assert.Equal(t, http.StatusSeeOther, do(srv, http.MethodPost, "/add_expenses", validForm()).Code)
	rr := do(srv, http.MethodPost, "/add_expenses", validForm())
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	// reads are never limited
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/expenses", nil).Code)
}
