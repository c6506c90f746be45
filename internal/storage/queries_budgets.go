package storage

import (
	"context"
	"database/sql"
	"fmt"

	"famfin/internal/core"
)

const budgetColumns = `id, user_id, category, period, limit_amount_cents, warning_threshold, period_start, period_end,
	credit_card_id, active, created_at, updated_at`

func scanBudget(row rowScanner) (core.CategoryBudget, error) {
	var (
		b                    core.CategoryBudget
		period               string
		start, end           sql.NullString
		cardID               sql.NullInt64
		createdAt, updatedAt string
	)
	err := row.Scan(&b.ID, &b.UserID, &b.Category, &period, &b.LimitAmountCents, &b.WarningThreshold,
		&start, &end, &cardID, &b.Active, &createdAt, &updatedAt)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	var p colParser
	b.Period = core.BudgetPeriod(period)
	b.PeriodStart = p.nullDate(start)
	b.PeriodEnd = p.nullDate(end)
	b.CreditCardID = int64Ptr(cardID)
	b.CreatedAt = p.time(createdAt)
	b.UpdatedAt = p.time(updatedAt)
	return b, p.err
}

func duplicateBudget(b core.CategoryBudget) error {
	return core.Conflict("a %s budget for category %q already exists", b.Period, b.Category)
}

func (q *Queries) CreateCategoryBudget(ctx context.Context, b core.CategoryBudget) (core.CategoryBudget, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO category_budgets (user_id, category, period, limit_amount_cents, warning_threshold, period_start,
			period_end, credit_card_id, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING `+budgetColumns,
		b.UserID, b.Category, string(b.Period), b.LimitAmountCents, b.WarningThreshold, nullDateArg(b.PeriodStart),
		nullDateArg(b.PeriodEnd), nullInt64Arg(b.CreditCardID), b.Active, timeArg(b.CreatedAt), timeArg(b.UpdatedAt))
	created, err := scanBudget(row)
	if err != nil {
		if isUniqueViolation(err) {
			return core.CategoryBudget{}, duplicateBudget(b)
		}
		return core.CategoryBudget{}, fmt.Errorf("insert category budget: %w", err)
	}
	return created, nil
}

func (q *Queries) GetCategoryBudget(ctx context.Context, id int64) (core.CategoryBudget, error) {
	b, err := scanBudget(q.db.QueryRowContext(ctx, `SELECT `+budgetColumns+` FROM category_budgets WHERE id = ?`, id))
	if err != nil {
		return core.CategoryBudget{}, notFoundOr(err, "category budget", id)
	}
	return b, nil
}

func (q *Queries) ListCategoryBudgets(ctx context.Context, userID int64, activeOnly bool) ([]core.CategoryBudget, error) {
	query := `SELECT ` + budgetColumns + ` FROM category_budgets WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY category, period`

	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryBudget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateCategoryBudget(ctx context.Context, b core.CategoryBudget) (core.CategoryBudget, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE category_budgets
		 SET category = ?, period = ?, limit_amount_cents = ?, warning_threshold = ?, period_start = ?, period_end = ?,
			credit_card_id = ?, active = ?, updated_at = ?
		 WHERE id = ? RETURNING `+budgetColumns,
		b.Category, string(b.Period), b.LimitAmountCents, b.WarningThreshold, nullDateArg(b.PeriodStart),
		nullDateArg(b.PeriodEnd), nullInt64Arg(b.CreditCardID), b.Active, timeArg(b.UpdatedAt), b.ID)
	updated, err := scanBudget(row)
	if err != nil {
		if isUniqueViolation(err) {
			return core.CategoryBudget{}, duplicateBudget(b)
		}
		return core.CategoryBudget{}, notFoundOr(err, "category budget", b.ID)
	}
	return updated, nil
}
