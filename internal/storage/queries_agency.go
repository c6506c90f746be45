package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"famfin/internal/core"
)

const snapshotColumns = `id, user_id, calculated_for, credit_agency_cents, backed_agency_cents, available_credit_cents,
	projected_obligations_cents, upcoming_income_cents, total_credit_limit_cents, outstanding_balance_cents,
	pending_expenses_cents, minimum_payments_cents, buffer_cents, notes, calculated_at, exported_at`

func scanSnapshot(row rowScanner) (core.AgencySnapshot, error) {
	var (
		s                           core.AgencySnapshot
		calculatedFor, calculatedAt string
		exportedAt                  sql.NullString
	)
	err := row.Scan(&s.ID, &s.UserID, &calculatedFor, &s.CreditAgencyCents, &s.BackedAgencyCents,
		&s.AvailableCreditCents, &s.ProjectedObligationsCents, &s.UpcomingIncomeCents, &s.TotalCreditLimitCents,
		&s.OutstandingBalanceCents, &s.PendingExpensesCents, &s.MinimumPaymentsCents, &s.BufferCents,
		&s.Notes, &calculatedAt, &exportedAt)
	if err != nil {
		return core.AgencySnapshot{}, err
	}
	var p colParser
	s.CalculatedFor = p.date(calculatedFor)
	s.CalculatedAt = p.time(calculatedAt)
	s.ExportedAt = p.nullTime(exportedAt)
	return s, p.err
}

// UpsertAgencySnapshot inserts the snapshot or overwrites the row already
// stored for the same user and date, in one statement. Recalculation resets
// the export marker.
func (q *Queries) UpsertAgencySnapshot(ctx context.Context, s core.AgencySnapshot) (core.AgencySnapshot, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO agency_snapshots (user_id, calculated_for, credit_agency_cents, backed_agency_cents,
			available_credit_cents, projected_obligations_cents, upcoming_income_cents, total_credit_limit_cents,
			outstanding_balance_cents, pending_expenses_cents, minimum_payments_cents, buffer_cents, notes, calculated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, calculated_for) DO UPDATE SET
			credit_agency_cents = excluded.credit_agency_cents,
			backed_agency_cents = excluded.backed_agency_cents,
			available_credit_cents = excluded.available_credit_cents,
			projected_obligations_cents = excluded.projected_obligations_cents,
			upcoming_income_cents = excluded.upcoming_income_cents,
			total_credit_limit_cents = excluded.total_credit_limit_cents,
			outstanding_balance_cents = excluded.outstanding_balance_cents,
			pending_expenses_cents = excluded.pending_expenses_cents,
			minimum_payments_cents = excluded.minimum_payments_cents,
			buffer_cents = excluded.buffer_cents,
			notes = excluded.notes,
			calculated_at = excluded.calculated_at,
			exported_at = NULL,
			export_lease_until = NULL
		 RETURNING `+snapshotColumns,
		s.UserID, dateArg(s.CalculatedFor), s.CreditAgencyCents, s.BackedAgencyCents, s.AvailableCreditCents,
		s.ProjectedObligationsCents, s.UpcomingIncomeCents, s.TotalCreditLimitCents, s.OutstandingBalanceCents,
		s.PendingExpensesCents, s.MinimumPaymentsCents, s.BufferCents, s.Notes, timeArg(s.CalculatedAt))
	saved, err := scanSnapshot(row)
	if err != nil {
		return core.AgencySnapshot{}, fmt.Errorf("upsert agency snapshot: %w", err)
	}
	return saved, nil
}

func (q *Queries) GetAgencySnapshotByID(ctx context.Context, id int64) (core.AgencySnapshot, error) {
	s, err := scanSnapshot(q.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM agency_snapshots WHERE id = ?`, id))
	if err != nil {
		return core.AgencySnapshot{}, notFoundOr(err, "agency snapshot", id)
	}
	return s, nil
}

func (q *Queries) GetAgencySnapshot(ctx context.Context, userID int64, calculatedFor core.Date) (core.AgencySnapshot, error) {
	s, err := scanSnapshot(q.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM agency_snapshots WHERE user_id = ? AND calculated_for = ?`,
		userID, dateArg(calculatedFor)))
	if err != nil {
		return core.AgencySnapshot{}, notFoundOr(err, "agency snapshot for user", userID)
	}
	return s, nil
}

func (q *Queries) GetLatestAgencySnapshot(ctx context.Context, userID int64) (core.AgencySnapshot, error) {
	s, err := scanSnapshot(q.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM agency_snapshots WHERE user_id = ? ORDER BY calculated_for DESC LIMIT 1`,
		userID))
	if err != nil {
		return core.AgencySnapshot{}, notFoundOr(err, "agency snapshot for user", userID)
	}
	return s, nil
}

// ListAgencySnapshots returns snapshots with calculated_for in [from, to],
// newest first.
func (q *Queries) ListAgencySnapshots(ctx context.Context, userID int64, from, to core.Date) ([]core.AgencySnapshot, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM agency_snapshots
		 WHERE user_id = ? AND calculated_for BETWEEN ? AND ?
		 ORDER BY calculated_for DESC`,
		userID, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("list agency snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

// ListUnexportedSnapshots returns up to limit snapshots that still need to be
// pushed to the export sheet, oldest calculation first. Snapshots whose export
// lease is still held at now are skipped.
func (q *Queries) ListUnexportedSnapshots(ctx context.Context, limit int, now time.Time) ([]core.AgencySnapshot, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM agency_snapshots
		 WHERE exported_at IS NULL AND (export_lease_until IS NULL OR export_lease_until <= ?)
		 ORDER BY calculated_at, id LIMIT ?`, now.Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported snapshots: %w", err)
	}
	return collectSnapshots(rows)
}

// ClaimSnapshotExport takes the export lease on one calculation of a snapshot
// until the given time. It fails to claim when the snapshot is exported,
// recalculated since calculatedAt, or leased by someone else at now.
func (q *Queries) ClaimSnapshotExport(ctx context.Context, id int64, calculatedAt, now, until time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE agency_snapshots SET export_lease_until = ?
		 WHERE id = ? AND calculated_at = ? AND exported_at IS NULL
		   AND (export_lease_until IS NULL OR export_lease_until <= ?)`,
		until.Unix(), id, timeArg(calculatedAt), now.Unix())
	if err != nil {
		return false, fmt.Errorf("claim snapshot export: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

// MarkSnapshotExported stamps exported_at on a snapshot, provided it has not
// been recalculated since calculatedAt. It reports whether a row was stamped.
func (q *Queries) MarkSnapshotExported(ctx context.Context, id int64, calculatedAt, at time.Time) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE agency_snapshots SET exported_at = ? WHERE id = ? AND calculated_at = ?`,
		timeArg(at), id, timeArg(calculatedAt))
	if err != nil {
		return false, fmt.Errorf("mark snapshot exported: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

func collectSnapshots(rows *sql.Rows) ([]core.AgencySnapshot, error) {
	defer rows.Close()

	var snapshots []core.AgencySnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan agency snapshot: %w", err)
		}
		snapshots = append(snapshots, s)
	}
	return snapshots, rows.Err()
}
