// Package csvio reads and writes the expense CSV interchange format.
//
// Files start with a UTF-8 byte order mark and a header row naming the
// columns; dates use the stored DD/MM/YYYY form.
package csvio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"expenses/internal/core"
)

// Header is the column order written by Writer.
var Header = []string{"date", "category", "amount", "payment_method", "description"}

// DefaultFilename is the attachment name used for downloads.
const DefaultFilename = "expenses_export.csv"

var bom = []byte{0xEF, 0xBB, 0xBF}

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Writer streams expenses as CSV rows.
type Writer struct {
	w *csv.Writer
}

// NewWriter writes the byte order mark and header to w.
func NewWriter(w io.Writer) (*Writer, error) {
	if _, err := w.Write(bom); err != nil {
		return nil, fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &Writer{w: cw}, nil
}

// Write appends one expense row.
func (w *Writer) Write(e core.Expense) error {
	return w.w.Write([]string{
		e.Date,
		e.Category,
		e.Amount.String(),
		e.PaymentMethod,
		e.Description,
	})
}

// Flush writes buffered rows and reports any earlier write error.
func (w *Writer) Flush() error {
	w.w.Flush()
	return w.w.Error()
}

// ReadExpenses parses every row of r. Columns are matched by header name so
// their order does not matter. The first row whose amount is not a number
// fails the whole read.
func ReadExpenses(r io.Reader) ([]core.Expense, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		br.Discard(len(bom))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range Header {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
	}

	var expenses []core.Expense
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		field := func(name string) string {
			if i := idx[name]; i < len(rec) {
				return rec[i]
			}
			return ""
		}

		amount, err := core.ParsePlainAmount(field("amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %q", line, err, field("amount"))
		}

		expenses = append(expenses, core.Expense{
			Date:          field("date"),
			Category:      field("category"),
			Amount:        amount,
			PaymentMethod: field("payment_method"),
			Description:   field("description"),
		})
	}
	return expenses, nil
}

// ReadFile opens path and parses it with ReadExpenses. A missing file
// yields an error matching fs.ErrNotExist.
func ReadFile(path string) ([]core.Expense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	expenses, err := ReadExpenses(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return expenses, nil
}
