package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"famfin/internal/core"
)

const goalColumns = `g.id, g.user_id, g.name, g.target_amount_cents, g.start_date, g.target_date, g.status, g.category,
	g.notes, g.completed_at, g.abandoned_at, g.abandoned_reason, g.created_at, g.updated_at`

// goalTotalsSelect joins each goal with the sum of its ledger.
const goalTotalsSelect = `SELECT ` + goalColumns + `, COALESCE(SUM(c.amount_cents), 0)
	FROM savings_goals g LEFT JOIN savings_contributions c ON c.goal_id = g.id`

// GoalWithTotal is a goal and the sum of its contributions.
type GoalWithTotal struct {
	Goal               core.SavingsGoal
	ContributionsCents int64
}

func scanGoalWithTotal(row rowScanner) (GoalWithTotal, error) {
	var (
		g                        core.SavingsGoal
		total                    int64
		start, status            string
		targetDate               sql.NullString
		completedAt, abandonedAt sql.NullString
		createdAt, updatedAt     string
	)
	err := row.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmountCents, &start, &targetDate, &status, &g.Category,
		&g.Notes, &completedAt, &abandonedAt, &g.AbandonedReason, &createdAt, &updatedAt, &total)
	if err != nil {
		return GoalWithTotal{}, err
	}
	var p colParser
	g.StartDate = p.date(start)
	g.TargetDate = p.nullDate(targetDate)
	g.Status = core.SavingsGoalStatus(status)
	g.CompletedAt = p.nullTime(completedAt)
	g.AbandonedAt = p.nullTime(abandonedAt)
	g.CreatedAt = p.time(createdAt)
	g.UpdatedAt = p.time(updatedAt)
	return GoalWithTotal{Goal: g, ContributionsCents: total}, p.err
}

func (q *Queries) CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error) {
	var id int64
	err := q.db.QueryRowContext(ctx,
		`INSERT INTO savings_goals (user_id, name, target_amount_cents, start_date, target_date, status, category,
			notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`,
		g.UserID, g.Name, g.TargetAmountCents, dateArg(g.StartDate), nullDateArg(g.TargetDate), string(g.Status),
		g.Category, g.Notes, timeArg(g.CreatedAt), timeArg(g.UpdatedAt)).Scan(&id)
	if err != nil {
		return core.SavingsGoal{}, fmt.Errorf("insert savings goal: %w", err)
	}
	g.ID = id
	return g, nil
}

// GetSavingsGoal returns the goal with its contribution total recomputed.
func (q *Queries) GetSavingsGoal(ctx context.Context, id int64) (GoalWithTotal, error) {
	gt, err := scanGoalWithTotal(q.db.QueryRowContext(ctx, goalTotalsSelect+` WHERE g.id = ? GROUP BY g.id`, id))
	if err != nil {
		return GoalWithTotal{}, notFoundOr(err, "savings goal", id)
	}
	return gt, nil
}

// ListSavingsGoals lists a user's goals with totals. An empty status lists all.
func (q *Queries) ListSavingsGoals(ctx context.Context, userID int64, status core.SavingsGoalStatus) ([]GoalWithTotal, error) {
	query := goalTotalsSelect + ` WHERE g.user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND g.status = ?`
		args = append(args, string(status))
	}
	query += ` GROUP BY g.id ORDER BY g.id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list savings goals: %w", err)
	}
	defer rows.Close()

	var out []GoalWithTotal
	for rows.Next() {
		gt, err := scanGoalWithTotal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan savings goal: %w", err)
		}
		out = append(out, gt)
	}
	return out, rows.Err()
}

// UpdateActiveSavingsGoal writes the editable fields of g while it is active.
func (q *Queries) UpdateActiveSavingsGoal(ctx context.Context, g core.SavingsGoal) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE savings_goals
		 SET name = ?, target_amount_cents = ?, start_date = ?, target_date = ?, category = ?, notes = ?, updated_at = ?
		 WHERE id = ? AND status = 'active'`,
		g.Name, g.TargetAmountCents, dateArg(g.StartDate), nullDateArg(g.TargetDate), g.Category, g.Notes,
		timeArg(g.UpdatedAt), g.ID)
	if err != nil {
		return false, fmt.Errorf("update savings goal: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

// CloseSavingsGoal moves an active goal to completed or abandoned.
func (q *Queries) CloseSavingsGoal(ctx context.Context, id int64, to core.SavingsGoalStatus, at time.Time, reason string) (bool, error) {
	var query string
	switch to {
	case core.GoalCompleted:
		query = `UPDATE savings_goals SET status = 'completed', completed_at = ?, updated_at = ?
			WHERE id = ? AND status = 'active'`
	case core.GoalAbandoned:
		query = `UPDATE savings_goals SET status = 'abandoned', abandoned_at = ?, updated_at = ?, abandoned_reason = ?
			WHERE id = ? AND status = 'active'`
	default:
		return false, core.Fatal("cannot close savings goal into status %q", to)
	}

	args := []any{timeArg(at), timeArg(at)}
	if to == core.GoalAbandoned {
		args = append(args, reason)
	}
	args = append(args, id)

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("close savings goal: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

const contributionColumns = `id, goal_id, amount_cents, source, contribution_date, notes, created_at`

func scanContribution(row rowScanner) (core.SavingsContribution, error) {
	var (
		c                       core.SavingsContribution
		source, date, createdAt string
	)
	if err := row.Scan(&c.ID, &c.GoalID, &c.AmountCents, &source, &date, &c.Notes, &createdAt); err != nil {
		return core.SavingsContribution{}, err
	}
	var p colParser
	c.Source = core.ContributionSource(source)
	c.ContributionDate = p.date(date)
	c.CreatedAt = p.time(createdAt)
	return c, p.err
}

// ErrGoalNotActive is returned when a contribution targets a goal that is
// no longer active.
var ErrGoalNotActive = errors.New("savings goal is not active")

// InsertContributionIfActive adds a ledger row in the same statement that
// checks the goal is still active.
func (q *Queries) InsertContributionIfActive(ctx context.Context, c core.SavingsContribution) (core.SavingsContribution, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO savings_contributions (goal_id, amount_cents, source, contribution_date, notes, created_at)
		 SELECT ?, ?, ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM savings_goals WHERE id = ? AND status = 'active')
		 RETURNING `+contributionColumns,
		c.GoalID, c.AmountCents, string(c.Source), dateArg(c.ContributionDate), c.Notes, timeArg(c.CreatedAt), c.GoalID)
	created, err := scanContribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SavingsContribution{}, ErrGoalNotActive
	}
	if err != nil {
		return core.SavingsContribution{}, fmt.Errorf("insert contribution: %w", err)
	}
	return created, nil
}

func (q *Queries) GetContribution(ctx context.Context, id int64) (core.SavingsContribution, error) {
	c, err := scanContribution(q.db.QueryRowContext(ctx,
		`SELECT `+contributionColumns+` FROM savings_contributions WHERE id = ?`, id))
	if err != nil {
		return core.SavingsContribution{}, notFoundOr(err, "contribution", id)
	}
	return c, nil
}

func (q *Queries) ListContributions(ctx context.Context, goalID int64) ([]core.SavingsContribution, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+contributionColumns+` FROM savings_contributions WHERE goal_id = ? ORDER BY contribution_date, id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var out []core.SavingsContribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteContribution removes a contribution only if it belongs to goalID.
func (q *Queries) DeleteContribution(ctx context.Context, goalID, id int64) (bool, error) {
	res, err := q.db.ExecContext(ctx, `DELETE FROM savings_contributions WHERE id = ? AND goal_id = ?`, id, goalID)
	if err != nil {
		return false, fmt.Errorf("delete contribution: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}
