package http

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expenses/internal/core"
)

// Form field names shared by the add and edit pages.
const (
	fieldDate          = "date"
	fieldCategory      = "category"
	fieldAmount        = "amount"
	fieldPaymentMethod = "payment_method"
	fieldDescription   = "description"
)

// monthAll disables the month filter on the listing.
const monthAll = "all"

// parseExpenseForm extracts the expense fields from a parsed form.
func parseExpenseForm(form url.Values) core.ExpenseInput {
	return core.ExpenseInput{
		Date:          sanitizeInput(form.Get(fieldDate)),
		Category:      sanitizeInput(form.Get(fieldCategory)),
		Amount:        sanitizeInput(form.Get(fieldAmount)),
		PaymentMethod: sanitizeInput(form.Get(fieldPaymentMethod)),
		Description:   sanitizeInput(form.Get(fieldDescription)),
	}
}

// parseID reads the {id} path segment. ok is false for anything but a
// positive integer.
func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// monthQuery is the interpreted ?month= parameter.
type monthQuery struct {
	All     bool
	Month   *core.MonthKey
	Invalid string // raw value that failed to parse
}

// parseMonthQuery reads ?month=. An empty value yields the zero monthQuery.
func parseMonthQuery(query url.Values) monthQuery {
	raw := strings.TrimSpace(query.Get("month"))
	switch {
	case raw == "":
		return monthQuery{}
	case strings.EqualFold(raw, monthAll):
		return monthQuery{All: true}
	}

	k, err := core.ParseMonthKey(raw)
	if err != nil {
		return monthQuery{Invalid: raw}
	}
	return monthQuery{Month: &k}
}

// validationMessage maps a validation error to the text shown on the form.
// ok is false when err is not a validation failure.
func validationMessage(err error) (msg string, ok bool) {
	switch {
	case errors.Is(err, core.ErrMissingFields):
		return "Please fill in all fields", true
	case errors.Is(err, core.ErrInvalidDate):
		return "Invalid date", true
	case errors.Is(err, core.ErrInvalidAmount):
		return "Invalid amount", true
	case errors.Is(err, core.ErrInvalidPaymentMethod):
		return "Invalid payment method", true
	default:
		return "", false
	}
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
