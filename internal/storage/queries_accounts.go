package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"famfin/internal/core"
)

const userColumns = `id, email, display_name, role, created_at`

func scanUser(row rowScanner) (core.User, error) {
	var (
		u         core.User
		role      string
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &role, &createdAt); err != nil {
		return core.User{}, err
	}
	var p colParser
	u.Role = core.Role(role)
	u.CreatedAt = p.time(createdAt)
	return u, p.err
}

func (q *Queries) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.Role == "" {
		u.Role = core.RoleMember
	}
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO users (email, display_name, role) VALUES (?, ?, ?) RETURNING `+userColumns,
		u.Email, u.DisplayName, string(u.Role))
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.Conflict("user with email %q already exists", u.Email)
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

func (q *Queries) GetUser(ctx context.Context, id int64) (core.User, error) {
	u, err := scanUser(q.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return core.User{}, notFoundOr(err, "user", id)
	}
	return u, nil
}

func (q *Queries) UserExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := q.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check user: %w", err)
	}
	return true, nil
}

func (q *Queries) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := q.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

const cardColumns = `id, user_id, name, credit_limit_cents, cycle_anchor_day, statement_day, payment_due_day, autopay, active, created_at`

func scanCard(row rowScanner) (core.CreditCard, error) {
	var (
		c         core.CreditCard
		createdAt string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.CreditLimitCents, &c.CycleAnchorDay,
		&c.StatementDay, &c.PaymentDueDay, &c.Autopay, &c.Active, &createdAt)
	if err != nil {
		return core.CreditCard{}, err
	}
	var p colParser
	c.CreatedAt = p.time(createdAt)
	return c, p.err
}

func (q *Queries) CreateCreditCard(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO credit_cards (user_id, name, credit_limit_cents, cycle_anchor_day, statement_day, payment_due_day, autopay, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING `+cardColumns,
		c.UserID, c.Name, c.CreditLimitCents, c.CycleAnchorDay, c.StatementDay, c.PaymentDueDay, c.Autopay, c.Active)
	created, err := scanCard(row)
	if err != nil {
		return core.CreditCard{}, fmt.Errorf("insert credit card: %w", err)
	}
	return created, nil
}

func (q *Queries) GetCreditCard(ctx context.Context, id int64) (core.CreditCard, error) {
	c, err := scanCard(q.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM credit_cards WHERE id = ?`, id))
	if err != nil {
		return core.CreditCard{}, notFoundOr(err, "credit card", id)
	}
	return c, nil
}

func (q *Queries) ListActiveCreditCards(ctx context.Context, userID int64) ([]core.CreditCard, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE user_id = ? AND active = 1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var cards []core.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

const cycleColumns = `id, credit_card_id, cycle_number, cycle_start_date, statement_date, payment_due_date,
	statement_balance_cents, minimum_payment_cents, payment_recorded_on, closed_at`

func scanCycle(row rowScanner) (core.CreditCardCycle, error) {
	var (
		c                           core.CreditCardCycle
		start, statement, due       string
		paymentRecordedOn, closedAt sql.NullString
	)
	err := row.Scan(&c.ID, &c.CreditCardID, &c.CycleNumber, &start, &statement, &due,
		&c.StatementBalanceCents, &c.MinimumPaymentCents, &paymentRecordedOn, &closedAt)
	if err != nil {
		return core.CreditCardCycle{}, err
	}
	var p colParser
	c.CycleStartDate = p.date(start)
	c.StatementDate = p.date(statement)
	c.PaymentDueDate = p.date(due)
	c.PaymentRecordedOn = p.nullDate(paymentRecordedOn)
	c.ClosedAt = p.nullTime(closedAt)
	return c, p.err
}

func (q *Queries) CreateCycle(ctx context.Context, c core.CreditCardCycle) (core.CreditCardCycle, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO credit_card_cycles (credit_card_id, cycle_number, cycle_start_date, statement_date, payment_due_date,
			statement_balance_cents, minimum_payment_cents, payment_recorded_on, closed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING `+cycleColumns,
		c.CreditCardID, c.CycleNumber, dateArg(c.CycleStartDate), dateArg(c.StatementDate), dateArg(c.PaymentDueDate),
		c.StatementBalanceCents, c.MinimumPaymentCents, nullDateArg(c.PaymentRecordedOn), nullTimeArg(c.ClosedAt))
	created, err := scanCycle(row)
	if err != nil {
		if isUniqueViolation(err) {
			return core.CreditCardCycle{}, core.Conflict("cycle %d already exists for card %d", c.CycleNumber, c.CreditCardID)
		}
		return core.CreditCardCycle{}, fmt.Errorf("insert cycle: %w", err)
	}
	return created, nil
}

// CloseOpenCycles closes every open cycle of a card.
func (q *Queries) CloseOpenCycles(ctx context.Context, cardID int64, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE credit_card_cycles SET closed_at = ? WHERE credit_card_id = ? AND closed_at IS NULL`,
		timeArg(at), cardID)
	if err != nil {
		return fmt.Errorf("close open cycles: %w", err)
	}
	return nil
}

func (q *Queries) GetCycle(ctx context.Context, id int64) (core.CreditCardCycle, error) {
	c, err := scanCycle(q.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM credit_card_cycles WHERE id = ?`, id))
	if err != nil {
		return core.CreditCardCycle{}, notFoundOr(err, "cycle", id)
	}
	return c, nil
}

// ListOpenCycles returns the open cycles of the given cards.
func (q *Queries) ListOpenCycles(ctx context.Context, cardIDs []int64) ([]core.CreditCardCycle, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	args := make([]any, len(cardIDs))
	for i, id := range cardIDs {
		args[i] = id
	}
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+cycleColumns+` FROM credit_card_cycles
		 WHERE closed_at IS NULL AND credit_card_id IN (`+placeholders(len(cardIDs))+`)
		 ORDER BY credit_card_id, cycle_number`, args...)
	if err != nil {
		return nil, fmt.Errorf("list open cycles: %w", err)
	}
	defer rows.Close()

	var cycles []core.CreditCardCycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// SetCyclePaymentRecordedOn updates the recorded payment date of an open
// cycle. It reports false when the cycle is closed.
func (q *Queries) SetCyclePaymentRecordedOn(ctx context.Context, cycleID int64, on *core.Date) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE credit_card_cycles SET payment_recorded_on = ? WHERE id = ? AND closed_at IS NULL`,
		nullDateArg(on), cycleID)
	if err != nil {
		return false, fmt.Errorf("update cycle payment: %w", err)
	}
	n, err := rowsAffected(res)
	return n == 1, err
}

const streamColumns = `id, user_id, name, amount_cents, frequency, next_expected_date, active`

func scanStream(row rowScanner) (core.IncomeStream, error) {
	var (
		s         core.IncomeStream
		frequency string
		next      sql.NullString
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.AmountCents, &frequency, &next, &s.Active); err != nil {
		return core.IncomeStream{}, err
	}
	var p colParser
	s.Frequency = core.IncomeFrequency(frequency)
	s.NextExpectedDate = p.nullDate(next)
	return s, p.err
}

func (q *Queries) CreateIncomeStream(ctx context.Context, s core.IncomeStream) (core.IncomeStream, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO income_streams (user_id, name, amount_cents, frequency, next_expected_date, active)
		 VALUES (?, ?, ?, ?, ?, ?) RETURNING `+streamColumns,
		s.UserID, s.Name, s.AmountCents, string(s.Frequency), nullDateArg(s.NextExpectedDate), s.Active)
	created, err := scanStream(row)
	if err != nil {
		return core.IncomeStream{}, fmt.Errorf("insert income stream: %w", err)
	}
	return created, nil
}

func (q *Queries) GetIncomeStream(ctx context.Context, id int64) (core.IncomeStream, error) {
	s, err := scanStream(q.db.QueryRowContext(ctx, `SELECT `+streamColumns+` FROM income_streams WHERE id = ?`, id))
	if err != nil {
		return core.IncomeStream{}, notFoundOr(err, "income stream", id)
	}
	return s, nil
}

func (q *Queries) ListActiveIncomeStreams(ctx context.Context, userID int64) ([]core.IncomeStream, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+streamColumns+` FROM income_streams WHERE user_id = ? AND active = 1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list income streams: %w", err)
	}
	defer rows.Close()

	var streams []core.IncomeStream
	for rows.Next() {
		s, err := scanStream(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income stream: %w", err)
		}
		streams = append(streams, s)
	}
	return streams, rows.Err()
}

const transactionColumns = `id, user_id, type, amount_cents, credit_card_id, income_stream_id, cycle_id,
	transaction_date, category, description, pending`

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t                         core.Transaction
		txType, date              string
		cardID, streamID, cycleID sql.NullInt64
	)
	err := row.Scan(&t.ID, &t.UserID, &txType, &t.AmountCents, &cardID, &streamID, &cycleID,
		&date, &t.Category, &t.Description, &t.Pending)
	if err != nil {
		return core.Transaction{}, err
	}
	var p colParser
	t.Type = core.TransactionType(txType)
	t.CreditCardID = int64Ptr(cardID)
	t.IncomeStreamID = int64Ptr(streamID)
	t.CycleID = int64Ptr(cycleID)
	t.TransactionDate = p.date(date)
	return t, p.err
}

func (q *Queries) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO transactions (user_id, type, amount_cents, credit_card_id, income_stream_id, cycle_id,
			transaction_date, category, description, pending)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING `+transactionColumns,
		t.UserID, string(t.Type), t.AmountCents, nullInt64Arg(t.CreditCardID), nullInt64Arg(t.IncomeStreamID),
		nullInt64Arg(t.CycleID), dateArg(t.TransactionDate), t.Category, t.Description, t.Pending)
	created, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return created, nil
}

func (q *Queries) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	t, err := scanTransaction(q.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if err != nil {
		return core.Transaction{}, notFoundOr(err, "transaction", id)
	}
	return t, nil
}

// ListExpenseTransactions returns the user's expense transactions dated in
// [start, end]. An empty category matches every category.
func (q *Queries) ListExpenseTransactions(ctx context.Context, userID int64, category string, start, end core.Date) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ? AND type = 'expense' AND transaction_date BETWEEN ? AND ?`
	args := []any{userID, dateArg(start), dateArg(end)}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY transaction_date, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list expense transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}
