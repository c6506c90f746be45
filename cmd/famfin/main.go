package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"famfin/internal/cache"
	"famfin/internal/cli"
	apphttp "famfin/internal/http"
	applog "famfin/internal/log"
	"famfin/internal/middleware/ratelimit"
	"famfin/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), applog.ComponentApp)
	logger.Info("Starting famfin API")

	cfg := cli.LoadAndValidateConfig(logger, true)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	snapshots := cache.NewSnapshotCache(cfg.CacheSize, cfg.CacheTTL)
	caches := cache.NewManager()
	caches.Register(snapshots)

	opts := []services.AgencyOption{services.WithSnapshotCache(snapshots)}
	if publisher := cli.InitPublisher(logger, cfg); publisher != nil {
		defer publisher.Close()
		opts = append(opts, services.WithSnapshotPublisher(publisher))
	}
	agency, err := cli.NewAgencyService(repo, cfg, opts...)
	if err != nil {
		logger.Error("Invalid agency settings", applog.FieldError, err.Error())
		os.Exit(1)
	}

	cycles := services.NewPaymentCyclesService(repo, nil)
	savings := services.NewSavingsGoalService(repo, nil)
	budgets := services.NewCategoryBudgetService(repo, nil, cfg.BudgetWarningThreshold)

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:      ":" + cfg.Port,
		JWTSecret: cfg.JWTSecret,
		JWTIssuer: cfg.JWTIssuer,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger.WithComponent(applog.ComponentHTTP),
	}, apphttp.Services{
		Authorizer: services.NewAuthorizer(repo),
		Agency:     agency,
		Income:     services.NewIncomeService(repo, services.NewIncomeProjector(cfg.RecurrenceMaxSteps)),
		Cycles:     cycles,
		Projected:  services.NewProjectedExpenseService(repo, nil),
		Savings:    savings,
		Budgets:    budgets,
		Dashboard:  services.NewDashboardService(agency, cycles, savings, budgets, nil),
	}, repo)
	if err != nil {
		logger.Error("Failed to build HTTP server", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, cancel := cli.ShutdownContext(logger)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		caches.Run(gctx, time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", applog.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
