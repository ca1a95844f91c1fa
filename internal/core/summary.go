package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// Summary holds the row count and total of a filtered listing.
type Summary struct {
	Count int
	Total decimal.Decimal
}

// MonthReport is the aggregate view for a single month.
type MonthReport struct {
	Month      MonthKey
	Total      decimal.Decimal
	ByCategory []CategoryAmount
}
