package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"expenses/internal/config"
	"expenses/internal/log"
	gsheet "expenses/internal/sheets/google"
)

func (a *app) sheetsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets-export",
		Short: "Mirror every expense into a Google Sheets worksheet",
		Long: `Clear the configured worksheet and write the CSV header plus every
expense, oldest first. Authenticates with a service account given by
GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE.`,
		Args: cobra.NoArgs,
		RunE: a.runSheetsExport,
	}

	cmd.Flags().String("spreadsheet", "", "spreadsheet id (env GOOGLE_SPREADSHEET_ID)")
	cmd.Flags().String("sheet", "", "worksheet name (env GOOGLE_SHEET_NAME)")
	_ = a.v.BindPFlag(config.KeyGoogleSpreadsheetID, cmd.Flags().Lookup("spreadsheet"))
	_ = a.v.BindPFlag(config.KeyGoogleSheetName, cmd.Flags().Lookup("sheet"))
	return cmd
}

func (a *app) runSheetsExport(cmd *cobra.Command, _ []string) error {
	if err := a.cfg.ValidateSheets(); err != nil {
		return err
	}

	ctx := cmd.Context()
	exporter, err := gsheet.NewExporter(ctx, gsheet.Options{
		SpreadsheetID:   a.cfg.GoogleSpreadsheetID,
		SheetName:       a.cfg.GoogleSheetName,
		CredentialsJSON: a.cfg.GoogleServiceAccountJSON,
		CredentialsFile: a.cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return err
	}

	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	n, err := exporter.Export(ctx, repo)
	if err != nil {
		return fmt.Errorf("sheets export failed: %w", err)
	}

	a.logger.WithComponent(log.ComponentSheets).Info("Sheet updated",
		log.NewFields().WithOperation(log.OpExport).WithCount(n).ToSlice()...)
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d expenses to sheet %q\n", n, a.cfg.GoogleSheetName)
	return nil
}
