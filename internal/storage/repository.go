package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"famfin/internal/core"
	applog "famfin/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the persistent store for every entity of the
// application. Query methods are promoted from the embedded Queries.
type SQLiteRepository struct {
	*Queries
	db  *sql.DB
	dsn string
}

// DSN builds the modernc connection string for a database file, with foreign
// keys enforced and a busy timeout for concurrent writers.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite repository ready", "path", dbPath)

	return &SQLiteRepository{
		Queries: New(db),
		db:      db,
		dsn:     dsn,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping backs the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn inside a transaction, committing when it returns nil.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.Queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back transaction", applog.FieldError, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// OpenCycle records a newly posted statement for a card, closing the cycle it
// replaces so a card never has more than one open cycle.
func (r *SQLiteRepository) OpenCycle(ctx context.Context, c core.CreditCardCycle, at time.Time) (core.CreditCardCycle, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCardCycle{}, err
	}
	var created core.CreditCardCycle
	err := r.InTx(ctx, func(q *Queries) error {
		if err := q.CloseOpenCycles(ctx, c.CreditCardID, at); err != nil {
			return err
		}
		c.ClosedAt = nil
		var err error
		created, err = q.CreateCycle(ctx, c)
		return err
	})
	if err != nil {
		return core.CreditCardCycle{}, fmt.Errorf("open cycle: %w", err)
	}

	slog.InfoContext(ctx, "Opened credit card cycle",
		applog.FieldCardID, created.CreditCardID,
		applog.FieldCycleID, created.ID,
		"cycle_number", created.CycleNumber,
		"statement_date", created.StatementDate.String())
	return created, nil
}
