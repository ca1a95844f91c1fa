package http

import (
	"slices"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

// View models consumed by the templates in web/templates.
type (
	monthOption struct {
		Key      string
		Label    string
		Selected bool
	}

	listPage struct {
		Title       string
		Months      []monthOption
		AllSelected bool
		MonthLabel  string
		Expenses    []core.Expense
		Count       int
		Total       decimal.Decimal
	}

	formPage struct {
		Title          string
		Action         string
		Submit         string
		Error          string
		Values         core.ExpenseInput
		Categories     []string
		PaymentMethods []string
	}

	categoryRow struct {
		Name   string
		Amount decimal.Decimal
		Width  int // percentage of the largest category, for the bar
	}

	reportPage struct {
		Title      string
		Months     []monthOption
		MonthKey   string
		MonthLabel string
		Total      decimal.Decimal
		Categories []categoryRow
	}

	// monthSelector feeds the shared "month_selector" partial.
	monthSelector struct {
		Action      string
		AllowAll    bool
		AllSelected bool
		Months      []monthOption
	}

	errorPage struct {
		Title   string
		Message string
	}
)

func newMonthSelector(action string, allowAll, allSelected bool, months []monthOption) monthSelector {
	return monthSelector{Action: action, AllowAll: allowAll, AllSelected: allSelected, Months: months}
}

// monthOptions lists the available months, newest first, marking selected.
// A selected month without data is still offered so the selector reflects
// the URL.
func monthOptions(available []core.MonthKey, selected *core.MonthKey) []monthOption {
	months := available
	if selected != nil && !slices.Contains(available, *selected) {
		months = append([]core.MonthKey{*selected}, available...)
		slices.SortFunc(months, func(a, b core.MonthKey) int {
			if a.Year != b.Year {
				return b.Year - a.Year
			}
			return int(b.Month) - int(a.Month)
		})
	}

	opts := make([]monthOption, 0, len(months))
	for _, k := range months {
		opts = append(opts, monthOption{
			Key:      k.String(),
			Label:    k.Label(),
			Selected: selected != nil && k == *selected,
		})
	}
	return opts
}

// newCategoryRows scales each category against the largest positive total.
func newCategoryRows(totals []core.CategoryAmount) []categoryRow {
	largest := decimal.Zero
	for _, c := range totals {
		if c.Amount.GreaterThan(largest) {
			largest = c.Amount
		}
	}

	hundred := decimal.NewFromInt(100)
	rows := make([]categoryRow, 0, len(totals))
	for _, c := range totals {
		width := 0
		if largest.IsPositive() && c.Amount.IsPositive() {
			width = int(c.Amount.Mul(hundred).Div(largest).Round(0).IntPart())
			// keep tiny values visible
			width = max(width, 2)
			width = min(width, 100)
		}
		rows = append(rows, categoryRow{Name: c.Name, Amount: c.Amount, Width: width})
	}
	return rows
}
