package core

import (
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// Expense is a single recorded transaction. Date holds the stored
	// DD/MM/YYYY representation.
	Expense struct {
		ID            int64
		Date          string
		Category      string
		Amount        decimal.Decimal
		PaymentMethod string
		Description   string
	}

	// ExpenseInput carries raw form values before validation.
	ExpenseInput struct {
		Date          string // YYYY-MM-DD, as sent by <input type="date">
		Category      string
		Amount        string
		PaymentMethod string
		Description   string
	}

	// Catalog is the configured set of default categories and the
	// payment method allow-list.
	Catalog struct {
		Categories     []string
		PaymentMethods []string
	}
)

var (
	ErrMissingFields        = errors.New("missing required fields")
	ErrInvalidDate          = errors.New("invalid date")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidMonth         = errors.New("invalid month")
)

// DefaultCatalog is used when no categories or payment methods are configured.
func DefaultCatalog() Catalog {
	return Catalog{
		Categories: []string{
			"Groceries", "Restaurants", "Transport", "Housing", "Utilities",
			"Health", "Education", "Entertainment", "Shopping", "Other",
		},
		PaymentMethods: []string{
			"Cash", "Credit Card", "Debit Card", "Bank Transfer", "Check", "Digital Wallet",
		},
	}
}

// AllowsPaymentMethod reports whether m is one of the configured payment methods.
func (c Catalog) AllowsPaymentMethod(m string) bool {
	return slices.Contains(c.PaymentMethods, m)
}

// CategoryOptions merges the configured categories with the ones already
// used in stored rows, keeping configured ones first.
func (c Catalog) CategoryOptions(used []string) []string {
	out := make([]string, 0, len(c.Categories)+len(used))
	seen := make(map[string]struct{}, cap(out))
	for _, list := range [][]string{c.Categories, used} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// Trimmed returns a copy of the input with surrounding whitespace removed.
func (in ExpenseInput) Trimmed() ExpenseInput {
	return ExpenseInput{
		Date:          strings.TrimSpace(in.Date),
		Category:      strings.TrimSpace(in.Category),
		Amount:        strings.TrimSpace(in.Amount),
		PaymentMethod: strings.TrimSpace(in.PaymentMethod),
		Description:   strings.TrimSpace(in.Description),
	}
}

// ToExpense validates the input against the catalog and builds an Expense
// ready to be stored. The returned ID is always zero.
func (in ExpenseInput) ToExpense(c Catalog) (Expense, error) {
	in = in.Trimmed()
	if in.Date == "" || in.Category == "" || in.Amount == "" || in.PaymentMethod == "" || in.Description == "" {
		return Expense{}, ErrMissingFields
	}

	date, err := ToStorageDate(in.Date)
	if err != nil {
		return Expense{}, err
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Expense{}, err
	}

	if !c.AllowsPaymentMethod(in.PaymentMethod) {
		return Expense{}, ErrInvalidPaymentMethod
	}

	return Expense{
		Date:          date,
		Category:      in.Category,
		Amount:        amount,
		PaymentMethod: in.PaymentMethod,
		Description:   in.Description,
	}, nil
}

// Input converts a stored expense back to form values.
func (e Expense) Input() ExpenseInput {
	date, err := ToInputDate(e.Date)
	if err != nil {
		date = ""
	}
	return ExpenseInput{
		Date:          date,
		Category:      e.Category,
		Amount:        e.Amount.String(),
		PaymentMethod: e.PaymentMethod,
		Description:   e.Description,
	}
}

// Month returns the month key of the stored date.
func (e Expense) Month() (MonthKey, error) {
	return MonthOfStorageDate(e.Date)
}
