package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	// StorageDateLayout is the layout of dates persisted in the expenses table.
	StorageDateLayout = "02/01/2006"
	// InputDateLayout is the layout used by HTML date inputs.
	InputDateLayout = "2006-01-02"
	// MonthKeyLayout is the layout of month keys used in URLs.
	MonthKeyLayout = "2006-01"
)

// MonthKey identifies a calendar month.
type MonthKey struct {
	Year  int
	Month time.Month
}

// ToStorageDate converts YYYY-MM-DD to DD/MM/YYYY.
func ToStorageDate(input string) (string, error) {
	t, err := time.Parse(InputDateLayout, strings.TrimSpace(input))
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, input)
	}
	return t.Format(StorageDateLayout), nil
}

// ToInputDate converts DD/MM/YYYY to YYYY-MM-DD.
func ToInputDate(stored string) (string, error) {
	t, err := ParseStorageDate(stored)
	if err != nil {
		return "", err
	}
	return t.Format(InputDateLayout), nil
}

// ParseStorageDate parses a DD/MM/YYYY date.
func ParseStorageDate(stored string) (time.Time, error) {
	t, err := time.Parse(StorageDateLayout, strings.TrimSpace(stored))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, stored)
	}
	return t, nil
}

// MonthOfStorageDate returns the month key of a DD/MM/YYYY date.
func MonthOfStorageDate(stored string) (MonthKey, error) {
	t, err := ParseStorageDate(stored)
	if err != nil {
		return MonthKey{}, err
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

// ParseMonthKey parses a YYYY-MM month key.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(MonthKeyLayout, strings.TrimSpace(s))
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

// String returns the YYYY-MM form.
func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

// StorageSuffix returns the "/MM/YYYY" tail shared by every stored date of the month.
func (k MonthKey) StorageSuffix() string {
	return fmt.Sprintf("/%02d/%04d", int(k.Month), k.Year)
}

// Label is a human readable name such as "March 2024".
func (k MonthKey) Label() string {
	return fmt.Sprintf("%s %d", k.Month.String(), k.Year)
}

// IsZero reports whether the key is unset.
func (k MonthKey) IsZero() bool {
	return k.Year == 0 && k.Month == 0
}
