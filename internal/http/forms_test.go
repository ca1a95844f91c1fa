package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

func TestParseMonthQuery(t *testing.T) {
	march := core.MonthKey{Year: 2024, Month: time.March}

	tests := []struct {
		raw  string
		want monthQuery
	}{
		{"", monthQuery{}},
		{"all", monthQuery{All: true}},
		{"ALL", monthQuery{All: true}},
		{"2024-03", monthQuery{Month: &march}},
		{" 2024-03 ", monthQuery{Month: &march}},
		{"2024-13", monthQuery{Invalid: "2024-13"}},
		{"march", monthQuery{Invalid: "march"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := parseMonthQuery(url.Values{"month": {tt.raw}})
			if got.All != tt.want.All || got.Invalid != tt.want.Invalid {
				t.Fatalf("parseMonthQuery(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
			if (got.Month == nil) != (tt.want.Month == nil) {
				t.Fatalf("parseMonthQuery(%q) month = %v, want %v", tt.raw, got.Month, tt.want.Month)
			}
			if got.Month != nil && *got.Month != *tt.want.Month {
				t.Errorf("parseMonthQuery(%q) month = %v, want %v", tt.raw, *got.Month, *tt.want.Month)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	tests := map[string]bool{
		"1":    true,
		"42":   true,
		"0":    false,
		"-3":   false,
		"abc":  false,
		"1.5":  false,
		"":     false,
		"9e99": false,
	}
	for raw, wantOK := range tests {
		r := httptest.NewRequest(http.MethodGet, "/edit/x", nil)
		r.SetPathValue("id", raw)
		if _, ok := parseID(r); ok != wantOK {
			t.Errorf("parseID(%q) ok = %v, want %v", raw, ok, wantOK)
		}
	}
}

func TestValidationMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
		ok   bool
	}{
		{core.ErrMissingFields, "Please fill in all fields", true},
		{fmt.Errorf("%w: %q", core.ErrInvalidDate, "x"), "Invalid date", true},
		{core.ErrInvalidAmount, "Invalid amount", true},
		{core.ErrInvalidPaymentMethod, "Invalid payment method", true},
		{fmt.Errorf("disk full"), "", false},
	}
	for _, tt := range tests {
		got, ok := validationMessage(tt.err)
		if got != tt.want || ok != tt.ok {
			t.Errorf("validationMessage(%v) = %q, %v; want %q, %v", tt.err, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseExpenseFormSanitizes(t *testing.T) {
	in := parseExpenseForm(url.Values{
		"date":           {" 2024-03-05 "},
		"category":       {"Food\x00"},
		"amount":         {"1,200.50"},
		"payment_method": {"Cash"},
		"description":    {"\tlunch\x07"},
	})
	if in.Date != "2024-03-05" || in.Category != "Food" || in.Description != "lunch" {
		t.Errorf("unexpected input: %+v", in)
	}
	if in.Amount != "1,200.50" {
		t.Errorf("amount altered: %q", in.Amount)
	}
}

func TestMonthOptions(t *testing.T) {
	available := []core.MonthKey{{Year: 2024, Month: time.April}, {Year: 2024, Month: time.March}}

	opts := monthOptions(available, &core.MonthKey{Year: 2024, Month: time.March})
	if len(opts) != 2 || opts[0].Key != "2024-04" || opts[1].Key != "2024-03" || !opts[1].Selected || opts[0].Selected {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts[1].Label != "March 2024" {
		t.Errorf("label = %q", opts[1].Label)
	}

	// a selected month without data is inserted in order
	opts = monthOptions(available, &core.MonthKey{Year: 2024, Month: time.May})
	if len(opts) != 3 || opts[0].Key != "2024-05" || !opts[0].Selected {
		t.Fatalf("unexpected options: %+v", opts)
	}

	if opts := monthOptions(nil, nil); len(opts) != 0 {
		t.Errorf("expected no options, got %+v", opts)
	}
}

func TestNewCategoryRows(t *testing.T) {
	rows := newCategoryRows([]core.CategoryAmount{
		{Name: "Rent", Amount: decimal.NewFromInt(1000)},
		{Name: "Groceries", Amount: decimal.NewFromInt(250)},
		{Name: "Coffee", Amount: decimal.NewFromInt(1)},
		{Name: "Refund", Amount: decimal.NewFromInt(-20)},
	})

	want := []int{100, 25, 2, 0}
	for i, w := range want {
		if rows[i].Width != w {
			t.Errorf("%s width = %d, want %d", rows[i].Name, rows[i].Width, w)
		}
	}
}
