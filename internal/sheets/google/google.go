package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"expenses/internal/core"
	"expenses/internal/csvio"
	"expenses/internal/ports"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configures an Exporter. One of CredentialsJSON or CredentialsFile
// is required unless GOOGLE_APPLICATION_CREDENTIALS is set.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Exporter mirrors the expenses table into a single worksheet.
type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewExporter creates a Sheets client authenticated with a service account.
func NewExporter(ctx context.Context, opts Options) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Expenses"
	}

	svc, err := newSheetsService(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// credentialsJSON resolves the service account key from inline JSON, a file,
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func credentialsJSON(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)

	// Also check the standard Google Cloud environment variable
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		slog.DebugContext(ctx, "Checking GOOGLE_APPLICATION_CREDENTIALS", "path", file)
	}

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func newSheetsService(ctx context.Context, opts Options) (*gsheet.Service, error) {
	creds, err := credentialsJSON(ctx, opts)
	if err != nil {
		return nil, err
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// Export replaces the worksheet contents with the header and every expense
// from src in chronological order. It returns the number of expense rows written.
func (x *Exporter) Export(ctx context.Context, src ports.ExpenseStreamer) (int, error) {
	if x.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	var expenses []core.Expense
	if err := src.EachExpense(ctx, func(e core.Expense) error {
		expenses = append(expenses, e)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("load expenses: %w", err)
	}

	sheet := quoteSheetName(x.sheetName)
	_, err := x.svc.Spreadsheets.Values.Clear(x.spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("clear sheet %s: %w", x.sheetName, err)
	}

	vr := &gsheet.ValueRange{Values: buildValues(expenses)}
	_, err = x.svc.Spreadsheets.Values.Update(x.spreadsheetID, sheet+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("write sheet %s: %w", x.sheetName, err)
	}

	slog.InfoContext(ctx, "Exported expenses to Google Sheets",
		"spreadsheet_id", x.spreadsheetID,
		"sheet", x.sheetName,
		"rows", len(expenses))
	return len(expenses), nil
}

// buildValues lays out the header followed by one row per expense. Amounts
// are numbers so the sheet can sum them; dates stay as DD/MM/YYYY text.
func buildValues(expenses []core.Expense) [][]any {
	values := make([][]any, 0, len(expenses)+1)
	header := make([]any, len(csvio.Header))
	for i, h := range csvio.Header {
		header[i] = h
	}
	values = append(values, header)
	for _, e := range expenses {
		values = append(values, []any{
			e.Date,
			e.Category,
			e.Amount.InexactFloat64(),
			e.PaymentMethod,
			e.Description,
		})
	}
	return values
}

// quoteSheetName wraps a sheet name for use in A1 notation.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
