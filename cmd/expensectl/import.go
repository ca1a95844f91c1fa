package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"expenses/internal/config"
	"expenses/internal/csvio"
	"expenses/internal/log"
)

func (a *app) importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace every expense with the rows of a CSV file",
		Long: `Drop the expenses table, recreate it and load the rows of a CSV file
with the header date,category,amount,payment_method,description.

The whole import is aborted, leaving the database untouched, if the file is
missing or any amount is not a number. Ids are reassigned starting at 1.`,
		Args: cobra.NoArgs,
		RunE: a.runImport,
	}

	cmd.Flags().String("csv", "", "CSV file to import (env CSV_PATH)")
	_ = a.v.BindPFlag(config.KeyCSVPath, cmd.Flags().Lookup("csv"))
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, _ []string) error {
	path := a.cfg.CSVPath

	expenses, err := csvio.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("import aborted: CSV file %s not found", path)
	}
	if err != nil {
		return fmt.Errorf("import aborted: %w", err)
	}

	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.ReplaceAll(cmd.Context(), expenses); err != nil {
		return fmt.Errorf("import aborted: %w", err)
	}

	a.logger.Info("CSV imported",
		log.NewFields().WithOperation(log.OpImport).WithCount(len(expenses)).ToSlice()...)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d expenses from %s\n", len(expenses), path)
	return nil
}
