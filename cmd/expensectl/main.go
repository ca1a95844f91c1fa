// Command expensectl runs maintenance tasks against the expenses database:
// schema migration, CSV import and export, the Google Sheets mirror and the
// change event listener.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"expenses/internal/cli"
	"expenses/internal/config"
	"expenses/internal/log"
	"expenses/internal/storage"
)

// app carries the state resolved by the root command's pre-run hook.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger *log.Logger
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "expensectl",
		Short: "Maintenance utility for the expenses database",
		Long: `expensectl manages the SQLite database behind the expenses web app.

Settings come from the environment (or a .env file); flags override them.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
	}

	flags := root.PersistentFlags()
	flags.String("db", "", "SQLite database path (env SQLITE_DB_PATH)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.String("log-format", "", "log format: text, json (env LOG_FORMAT)")
	_ = a.v.BindPFlag(config.KeySQLiteDBPath, flags.Lookup("db"))
	_ = a.v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))

	root.AddCommand(
		a.migrateCmd(),
		a.importCmd(),
		a.exportCmd(),
		a.sheetsExportCmd(),
		a.eventsCmd(),
	)
	return root
}

func (a *app) init(_ *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}

	cfg, err := cli.LoadAndValidateConfig(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cli.SetupLogger(cfg, log.ComponentCLI)
	return nil
}

// openRepository opens the configured database, applying migrations.
func (a *app) openRepository() (*storage.SQLiteRepository, error) {
	return cli.InitSQLite(a.logger.WithComponent(log.ComponentStorage), a.cfg.SQLiteDBPath)
}
