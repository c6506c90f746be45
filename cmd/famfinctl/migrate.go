package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"famfin/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply, roll back or inspect the embedded schema migrations.

The API server and workers apply pending migrations on startup; this
command exists for upgrades that should happen ahead of a deploy.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLiteDBPath), 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
			if err := storage.RunMigrations(storage.DSN(cfg.SQLiteDBPath)); err != nil {
				return err
			}
			slog.Info("Database migrations applied", "database", cfg.SQLiteDBPath)
			return printVersion(cmd)
		},
	})

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			if err := storage.RollbackMigrations(storage.DSN(cfg.SQLiteDBPath), steps); err != nil {
				return err
			}
			slog.Info("Database migrations rolled back", "database", cfg.SQLiteDBPath, "steps", steps)
			return printVersion(cmd)
		},
	}
	down.Flags().Int("steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command) error {
	version, dirty, err := storage.MigrationVersion(storage.DSN(cfg.SQLiteDBPath))
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]any{"version": version, "dirty": dirty})
}
