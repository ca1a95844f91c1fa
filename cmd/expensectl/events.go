package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/log"
	gsheet "expenses/internal/sheets/google"
	"expenses/internal/worker"
)

func (a *app) eventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print expense change events published by the web app",
		Long: `Connect to AMQP_URL and print every expense.created, expense.updated
and expense.deleted event from the configured queue until interrupted.

With --sync-sheets the Google Sheets mirror is rewritten once at startup and
again after every burst of events.`,
		Args: cobra.NoArgs,
		RunE: a.runEvents,
	}

	cmd.Flags().Bool("sync-sheets", false, "keep the Google Sheets mirror up to date")
	cmd.Flags().Duration("debounce", 5*time.Second, "wait this long after an event before syncing the sheet")
	return cmd
}

func (a *app) runEvents(cmd *cobra.Command, _ []string) error {
	if !a.cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is not set")
	}
	syncSheets, _ := cmd.Flags().GetBool("sync-sheets")
	debounce, _ := cmd.Flags().GetDuration("debounce")

	ctx := cmd.Context()
	logger := a.logger.WithComponent(log.ComponentAMQP)

	var mirror *worker.SyncWorker
	if syncSheets {
		if err := a.cfg.ValidateSheets(); err != nil {
			return err
		}
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
		mirror = worker.NewSyncWorker(repo, exporter, debounce)
	}

	client, err := amqp.DialWithRetry(ctx, a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("connect to broker: %w", err)
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	g, gctx := errgroup.WithContext(ctx)
	if mirror != nil {
		g.Go(func() error { return mirror.Run(gctx) })
	}
	g.Go(func() error {
		return client.ConsumeExpenseEvents(gctx, func(e *amqp.ExpenseEvent) error {
			logger.Debug("Expense event received", log.FieldExpenseID, e.ID, "type", e.Type)
			if _, err := fmt.Fprintf(out, "%s\t%s\tid=%d\tmonth=%s\n",
				e.Timestamp.Format("2006-01-02 15:04:05"), e.Type, e.ID, e.Month); err != nil {
				return err
			}
			if mirror != nil {
				return mirror.HandleEvent(gctx, e)
			}
			return nil
		})
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
