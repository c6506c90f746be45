package main

import (
	"context"
	"errors"
	"os"
	"time"

	"famfin/internal/cli"
	applog "famfin/internal/log"
	"famfin/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), applog.ComponentWorker)
	logger.Info("Starting famfin-worker")

	cfg := cli.LoadAndValidateConfig(logger, false)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	exporter, err := cli.InitExporter(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize snapshot exporter", applog.FieldError, err.Error())
		os.Exit(1)
	}

	exports := worker.NewExportWorker(repo, exporter, worker.ExportConfig{
		PollInterval: cfg.ExportInterval,
		BatchSize:    cfg.ExportBatchSize,
	})

	// The sweep exports anything whose event was lost, so it runs with or
	// without a broker.
	if err := exports.Start(ctx); err != nil {
		logger.Error("Failed to start export worker", applog.FieldError, err.Error())
		os.Exit(1)
	}

	if client := cli.InitPublisher(logger, cfg); client != nil {
		defer client.Close()
		go func() {
			err := client.ConsumeSnapshotMessages(ctx, exports.HandleSnapshotMessage)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", applog.FieldError, err.Error())
				cancel()
			}
		}()
	}

	<-ctx.Done()

	logger.Info("Shutting down worker...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := exports.Stop(shutdownCtx); err != nil {
		logger.Warn("Export worker did not stop cleanly", applog.FieldError, err.Error())
	}
	logger.Info("Worker shutdown complete")
}
