// Command famfinctl is the operator tool for a famfin installation: schema
// migrations, seeding, one-off calculations and API token issuance.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"famfin/internal/cli"
	"famfin/internal/config"
	applog "famfin/internal/log"
	"famfin/internal/storage"
)

var (
	dbPath   string
	logLevel string
	cfg      *config.Config

	rootCmd = &cobra.Command{
		Use:   "famfinctl",
		Short: "Operate a famfin database",
		Long: `famfinctl manages the famfin SQLite database outside the API server.

It applies migrations, loads seed data, calculates agency snapshots and
payment cycle summaries on demand, and issues bearer tokens for the API.`,
		SilenceUsage:      true,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: $SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(snapshotCmd())
	rootCmd.AddCommand(cyclesCmd())
	rootCmd.AddCommand(incomeCmd())
	rootCmd.AddCommand(tokenCmd())
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(cmd *cobra.Command, _ []string) error {
	cli.LoadEnvFile()

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(logLevel),
		Format:    "text",
		Component: applog.ComponentCLI,
		Output:    cmd.ErrOrStderr(),
	})
	applog.SetDefault(logger)

	cfg = config.Load()
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	return nil
}

// openRepository opens the configured database, applying pending migrations.
func openRepository() (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.SQLiteDBPath, err)
	}
	return repo, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
