package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"famfin/internal/core"
)

const projectedColumns = `id, user_id, amount_cents, category, description, expected_date, status, credit_card_id,
	transaction_id, notes, committed_at, paid_at, cancelled_at, cancelled_reason, created_at, updated_at`

func scanProjected(row rowScanner) (core.ProjectedExpense, error) {
	var (
		e                                core.ProjectedExpense
		expected, status                 string
		cardID, txID                     sql.NullInt64
		committedAt, paidAt, cancelledAt sql.NullString
		createdAt, updatedAt             string
	)
	err := row.Scan(&e.ID, &e.UserID, &e.AmountCents, &e.Category, &e.Description, &expected, &status,
		&cardID, &txID, &e.Notes, &committedAt, &paidAt, &cancelledAt, &e.CancelledReason, &createdAt, &updatedAt)
	if err != nil {
		return core.ProjectedExpense{}, err
	}
	var p colParser
	e.ExpectedDate = p.date(expected)
	e.Status = core.ProjectedExpenseStatus(status)
	e.CreditCardID = int64Ptr(cardID)
	e.TransactionID = int64Ptr(txID)
	e.CommittedAt = p.nullTime(committedAt)
	e.PaidAt = p.nullTime(paidAt)
	e.CancelledAt = p.nullTime(cancelledAt)
	e.CreatedAt = p.time(createdAt)
	e.UpdatedAt = p.time(updatedAt)
	return e, p.err
}

func (q *Queries) CreateProjectedExpense(ctx context.Context, e core.ProjectedExpense) (core.ProjectedExpense, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO projected_expenses (user_id, amount_cents, category, description, expected_date, status,
			credit_card_id, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING `+projectedColumns,
		e.UserID, e.AmountCents, e.Category, e.Description, dateArg(e.ExpectedDate), string(e.Status),
		nullInt64Arg(e.CreditCardID), e.Notes, timeArg(e.CreatedAt), timeArg(e.UpdatedAt))
	created, err := scanProjected(row)
	if err != nil {
		return core.ProjectedExpense{}, fmt.Errorf("insert projected expense: %w", err)
	}
	return created, nil
}

func (q *Queries) GetProjectedExpense(ctx context.Context, id int64) (core.ProjectedExpense, error) {
	e, err := scanProjected(q.db.QueryRowContext(ctx,
		`SELECT `+projectedColumns+` FROM projected_expenses WHERE id = ?`, id))
	if err != nil {
		return core.ProjectedExpense{}, notFoundOr(err, "projected expense", id)
	}
	return e, nil
}

// ListProjectedExpenses returns a user's projected expenses by expected date.
// An empty status lists all of them.
func (q *Queries) ListProjectedExpenses(ctx context.Context, userID int64, status core.ProjectedExpenseStatus) ([]core.ProjectedExpense, error) {
	query := `SELECT ` + projectedColumns + ` FROM projected_expenses WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY expected_date, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projected expenses: %w", err)
	}
	defer rows.Close()

	var out []core.ProjectedExpense
	for rows.Next() {
		e, err := scanProjected(rows)
		if err != nil {
			return nil, fmt.Errorf("scan projected expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateProjectedExpenseFields writes the editable fields of e, conditioned on
// the row still being in status expected. It reports whether a row changed.
func (q *Queries) UpdateProjectedExpenseFields(ctx context.Context, e core.ProjectedExpense, expected core.ProjectedExpenseStatus) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE projected_expenses
		 SET amount_cents = ?, category = ?, description = ?, expected_date = ?, credit_card_id = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		e.AmountCents, e.Category, e.Description, dateArg(e.ExpectedDate), nullInt64Arg(e.CreditCardID),
		e.Notes, timeArg(e.UpdatedAt), e.ID, string(expected))
	if err != nil {
		return false, fmt.Errorf("update projected expense: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

// TransitionProjectedExpenseParams carries one status change. Only the
// timestamp column matching To is written.
type TransitionProjectedExpenseParams struct {
	ID            int64
	From          core.ProjectedExpenseStatus
	To            core.ProjectedExpenseStatus
	At            time.Time
	Reason        string
	TransactionID *int64
}

// TransitionProjectedExpense moves a row from one status to another. The
// update only applies while the row is still in From.
func (q *Queries) TransitionProjectedExpense(ctx context.Context, arg TransitionProjectedExpenseParams) (bool, error) {
	var stampColumn string
	switch arg.To {
	case core.ProjectedCommitted:
		stampColumn = "committed_at"
	case core.ProjectedPaid:
		stampColumn = "paid_at"
	case core.ProjectedCancelled:
		stampColumn = "cancelled_at"
	default:
		return false, core.Fatal("no timestamp column for status %q", arg.To)
	}

	res, err := q.db.ExecContext(ctx,
		`UPDATE projected_expenses
		 SET status = ?, `+stampColumn+` = ?, updated_at = ?,
			cancelled_reason = CASE WHEN ? = 'cancelled' THEN ? ELSE cancelled_reason END,
			transaction_id = COALESCE(?, transaction_id)
		 WHERE id = ? AND status = ?`,
		string(arg.To), timeArg(arg.At), timeArg(arg.At),
		string(arg.To), arg.Reason,
		nullInt64Arg(arg.TransactionID),
		arg.ID, string(arg.From))
	if err != nil {
		return false, fmt.Errorf("transition projected expense: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

// DeletePlannedProjectedExpense removes a projected expense only while it is
// still planned.
func (q *Queries) DeletePlannedProjectedExpense(ctx context.Context, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM projected_expenses WHERE id = ? AND status = 'planned'`, id)
	if err != nil {
		return false, fmt.Errorf("delete projected expense: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}
