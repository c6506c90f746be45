package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"famfin/internal/core"
	"famfin/internal/storage"

	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func day(y int, m time.Month, d int) core.Date {
	return core.NewDate(y, m, d)
}

func ptr[T any](v T) *T {
	return &v
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "famfin.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUser(t *testing.T, repo *storage.SQLiteRepository, email string, role core.Role) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Email: email, DisplayName: email, Role: role})
	require.NoError(t, err)
	return u
}

func seedCard(t *testing.T, repo *storage.SQLiteRepository, userID int64, limit int64, autopay bool) core.CreditCard {
	t.Helper()
	c, err := repo.CreateCreditCard(context.Background(), core.CreditCard{
		UserID:           userID,
		Name:             "Visa",
		CreditLimitCents: limit,
		CycleAnchorDay:   5,
		StatementDay:     4,
		PaymentDueDay:    25,
		Autopay:          autopay,
		Active:           true,
	})
	require.NoError(t, err)
	return c
}

func seedCycle(t *testing.T, repo *storage.SQLiteRepository, cardID int64, statement, due core.Date, balance, minimum int64) core.CreditCardCycle {
	t.Helper()
	c, err := repo.OpenCycle(context.Background(), core.CreditCardCycle{
		CreditCardID:          cardID,
		CycleNumber:           1,
		CycleStartDate:        core.AddDays(statement, -30),
		StatementDate:         statement,
		PaymentDueDate:        due,
		StatementBalanceCents: balance,
		MinimumPaymentCents:   minimum,
	}, testNow)
	require.NoError(t, err)
	return c
}

func seedStream(t *testing.T, repo *storage.SQLiteRepository, userID, amount int64, freq core.IncomeFrequency, next *core.Date) core.IncomeStream {
	t.Helper()
	s, err := repo.CreateIncomeStream(context.Background(), core.IncomeStream{
		UserID:           userID,
		Name:             "Salary",
		AmountCents:      amount,
		Frequency:        freq,
		NextExpectedDate: next,
		Active:           true,
	})
	require.NoError(t, err)
	return s
}

func seedExpense(t *testing.T, repo *storage.SQLiteRepository, userID, cardID, amount int64, category string, on core.Date) core.Transaction {
	t.Helper()
	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:          userID,
		Type:            core.TransactionExpense,
		AmountCents:     -amount,
		CreditCardID:    &cardID,
		TransactionDate: on,
		Category:        category,
	})
	require.NoError(t, err)
	return tx
}
