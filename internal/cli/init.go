// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/famfin, cmd/famfin-worker, cmd/agency-scheduler and cmd/famfinctl.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"famfin/internal/amqp"
	"famfin/internal/config"
	applog "famfin/internal/log"
	"famfin/internal/services"
	"famfin/internal/sheets"
	gsheet "famfin/internal/sheets/google"
	mem "famfin/internal/sheets/memory"
	"famfin/internal/storage"
)

// SetupLogger builds the process logger and installs it as the slog default.
func SetupLogger(level, format, component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(level),
		Format:    format,
		Component: component,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger, server bool) *config.Config {
	cfg := config.Load()
	validate := cfg.Validate
	if server {
		validate = cfg.ValidateServer
	}
	if err := validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err.Error())
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the SQLite repository, applying pending migrations.
// Returns the repository or exits the process on failure.
func InitSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteRepository {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", applog.FieldError, err.Error(), "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitExporter returns the Google Sheets exporter when a spreadsheet is
// configured and the in-memory one otherwise.
func InitExporter(ctx context.Context, logger *applog.Logger, cfg *config.Config) (sheets.SnapshotExporter, error) {
	if !cfg.SheetsEnabled() {
		logger.Warn("Google Sheets disabled, snapshots are exported to memory only")
		return mem.New(), nil
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSnapshotSheet,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// InitPublisher connects to the broker when one is configured. A nil client
// means snapshot events are not published; the export sweep still runs.
func InitPublisher(logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Warn("AMQP disabled, snapshot events will not be published")
		return nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err.Error())
		os.Exit(1)
	}
	return client
}

// NewAgencyService builds the agency service from the loaded settings.
func NewAgencyService(repo *storage.SQLiteRepository, cfg *config.Config, opts ...services.AgencyOption) (*services.AgencyService, error) {
	agencyCfg, err := cfg.AgencyConfig()
	if err != nil {
		return nil, err
	}
	return services.NewAgencyService(repo, agencyCfg, opts...), nil
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
