package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"famfin/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds every SQL statement of the application. It runs against a
// connection pool or a transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// colParser converts TEXT columns into domain values, keeping the first error.
type colParser struct {
	err error
}

func (p *colParser) date(s string) core.Date {
	if p.err != nil {
		return core.Date{}
	}
	t, err := time.Parse(core.DateLayout, s)
	if err != nil {
		p.err = fmt.Errorf("parse date column %q: %w", s, err)
		return core.Date{}
	}
	return core.Date{Time: t}
}

func (p *colParser) nullDate(ns sql.NullString) *core.Date {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	d := p.date(ns.String)
	return &d
}

func (p *colParser) time(s string) time.Time {
	if p.err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		p.err = fmt.Errorf("parse timestamp column %q: %w", s, err)
		return time.Time{}
	}
	return t.UTC()
}

func (p *colParser) nullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := p.time(ns.String)
	return &t
}

func dateArg(d core.Date) string {
	return d.Format(core.DateLayout)
}

func nullDateArg(d *core.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: dateArg(*d), Valid: true}
}

func timeArg(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullTimeArg(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: timeArg(*t), Valid: true}
}

func nullInt64Arg(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch code := se.Code(); {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case code&0xff == sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return false
}

func notFoundOr(err error, resource string, id int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound(resource, id)
	}
	return err
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
