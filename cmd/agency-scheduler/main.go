package main

import (
	"context"
	"os"
	"time"

	"famfin/internal/cli"
	applog "famfin/internal/log"
	"famfin/internal/notify"
	"famfin/internal/services"
	"famfin/internal/worker"
)

// snapshotConcurrency bounds the users recalculated in parallel.
const snapshotConcurrency = 4

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), applog.ComponentScheduler)
	logger.Info("Starting agency-scheduler")

	cfg := cli.LoadAndValidateConfig(logger, false)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var opts []services.AgencyOption
	if publisher := cli.InitPublisher(logger, cfg); publisher != nil {
		defer publisher.Close()
		opts = append(opts, services.WithSnapshotPublisher(publisher))
	}
	agency, err := cli.NewAgencyService(repo, cfg, opts...)
	if err != nil {
		logger.Error("Invalid agency settings", applog.FieldError, err.Error())
		os.Exit(1)
	}

	scheduler := worker.NewScheduler(cfg.JobTimeout)

	recalculate := func(ctx context.Context) error {
		n, err := agency.CalculateAll(ctx, repo, snapshotConcurrency)
		logger.InfoContext(ctx, "Daily snapshots recalculated", "users", n)
		return err
	}
	if err := scheduler.Add("snapshots", cfg.SnapshotSchedule, recalculate); err != nil {
		logger.Error("Failed to schedule snapshots", applog.FieldError, err.Error())
		os.Exit(1)
	}

	if cfg.SMTPEnabled() {
		sender := notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
		reminders := services.NewReminderService(repo, services.NewPaymentCyclesService(repo, nil), sender, cfg.ReminderLeadDays, nil)
		remind := func(ctx context.Context) error {
			_, err := reminders.SendDue(ctx)
			return err
		}
		if err := scheduler.Add("reminders", cfg.ReminderSchedule, remind); err != nil {
			logger.Error("Failed to schedule reminders", applog.FieldError, err.Error())
			os.Exit(1)
		}
	} else {
		logger.Warn("SMTP disabled, payment reminders are not scheduled")
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	// Catch up on start so a restart after the daily tick still leaves
	// today's snapshots in place.
	scheduler.RunNow("snapshots", recalculate)
	scheduler.Start()
	for i, next := range scheduler.Entries() {
		logger.Info("Next run", "entry", i, "at", next.Format(time.RFC3339))
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop cleanly", applog.FieldError, err.Error())
	}
	logger.Info("Scheduler stopped")
}
