package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"expenses/internal/core"
	"expenses/internal/csvio"
	"expenses/internal/log"
)

func (a *app) exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every expense to a CSV file",
		Long: `Write every expense, oldest first, to a CSV file in the same format as
the web app's download. Use --out - to write to standard output.`,
		Args: cobra.NoArgs,
		RunE: a.runExport,
	}

	cmd.Flags().String("out", csvio.DefaultFilename, "destination file, or - for stdout")
	return cmd
}

func (a *app) runExport(cmd *cobra.Command, _ []string) (err error) {
	out, _ := cmd.Flags().GetString("out")

	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	defer repo.Close()

	dst := cmd.OutOrStdout()
	if out != "-" {
		if dir := filepath.Dir(out); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		f, cerr := os.Create(out)
		if cerr != nil {
			return fmt.Errorf("create %s: %w", out, cerr)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close %s: %w", out, cerr)
			}
		}()
		dst = f
	}

	w, err := csvio.NewWriter(dst)
	if err != nil {
		return err
	}
	count := 0
	if err := repo.EachExpense(cmd.Context(), func(e core.Expense) error {
		count++
		return w.Write(e)
	}); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	a.logger.Info("CSV exported",
		log.NewFields().WithOperation(log.OpExport).WithCount(count).ToSlice()...)
	if out != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d expenses to %s\n", count, out)
	}
	return nil
}
