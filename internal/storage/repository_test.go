package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"famfin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func newRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "famfin.db")
	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func mustUser(t *testing.T, repo *SQLiteRepository, email string) core.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), core.User{Email: email, DisplayName: "Test"})
	require.NoError(t, err)
	return u
}

func mustCard(t *testing.T, repo *SQLiteRepository, userID int64) core.CreditCard {
	t.Helper()
	c, err := repo.CreateCreditCard(context.Background(), core.CreditCard{
		UserID: userID, Name: "Visa", CreditLimitCents: 500000,
		CycleAnchorDay: 5, StatementDay: 4, PaymentDueDay: 25, Active: true,
	})
	require.NoError(t, err)
	return c
}

func TestMigrations(t *testing.T) {
	repo, path := newRepo(t)
	require.NoError(t, repo.Ping(context.Background()))

	version, dirty, err := MigrationVersion(DSN(path))
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Re-running is a no-op.
	require.NoError(t, RunMigrations(DSN(path)))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	u := mustUser(t, repo, "a@example.com")
	assert.Equal(t, core.RoleMember, u.Role)

	_, err := repo.CreateUser(ctx, core.User{Email: "a@example.com"})
	assert.ErrorIs(t, err, core.ErrConflict)

	ok, err := repo.UserExists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UserExists(ctx, u.ID+100)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetUser(ctx, u.ID+100)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestOpenCycleClosesPrevious(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	u := mustUser(t, repo, "a@example.com")
	card := mustCard(t, repo, u.ID)

	cycle := core.CreditCardCycle{
		CreditCardID:   card.ID,
		CycleNumber:    1,
		CycleStartDate: core.NewDate(2025, time.February, 5),
		StatementDate:  core.NewDate(2025, time.March, 4),
		PaymentDueDate: core.NewDate(2025, time.March, 25),
	}
	first, err := repo.OpenCycle(ctx, cycle, testNow)
	require.NoError(t, err)
	assert.True(t, first.IsOpen())

	cycle.CycleNumber = 2
	cycle.CycleStartDate = core.NewDate(2025, time.March, 5)
	cycle.StatementDate = core.NewDate(2025, time.April, 4)
	cycle.PaymentDueDate = core.NewDate(2025, time.April, 25)
	second, err := repo.OpenCycle(ctx, cycle, testNow)
	require.NoError(t, err)

	open, err := repo.ListOpenCycles(ctx, []int64{card.ID})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, second.ID, open[0].ID)

	closed, err := repo.GetCycle(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.ClosedAt)
	assert.True(t, closed.ClosedAt.Equal(testNow))

	ok, err := repo.SetCyclePaymentRecordedOn(ctx, first.ID, &cycle.StatementDate)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.OpenCycle(ctx, cycle, testNow)
	assert.ErrorIs(t, err, core.ErrConflict)

	none, err := repo.ListOpenCycles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListExpenseTransactions(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	u := mustUser(t, repo, "a@example.com")

	add := func(typ core.TransactionType, amount int64, category string, on core.Date) {
		_, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID: u.ID, Type: typ, AmountCents: amount, Category: category, TransactionDate: on,
		})
		require.NoError(t, err)
	}
	add(core.TransactionExpense, -100, "fuel", core.NewDate(2025, time.March, 1))
	add(core.TransactionExpense, -200, "food", core.NewDate(2025, time.March, 31))
	add(core.TransactionExpense, -300, "fuel", core.NewDate(2025, time.April, 1))
	add(core.TransactionIncome, 400, "fuel", core.NewDate(2025, time.March, 2))

	start, end := core.NewDate(2025, time.March, 1), core.NewDate(2025, time.March, 31)
	all, err := repo.ListExpenseTransactions(ctx, u.ID, "", start, end)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fuel, err := repo.ListExpenseTransactions(ctx, u.ID, "fuel", start, end)
	require.NoError(t, err)
	require.Len(t, fuel, 1)
	assert.Equal(t, int64(-100), fuel[0].AmountCents)
	assert.Equal(t, start, fuel[0].TransactionDate)
}

func TestAgencySnapshotUpsertAndExport(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	u := mustUser(t, repo, "a@example.com")
	day := core.NewDate(2025, time.March, 10)

	first, err := repo.UpsertAgencySnapshot(ctx, core.AgencySnapshot{
		UserID: u.ID, CalculatedFor: day, CreditAgencyCents: 100, CalculatedAt: testNow,
	})
	require.NoError(t, err)

	pending, err := repo.ListUnexportedSnapshots(ctx, 10, testNow)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	ok, err := repo.MarkSnapshotExported(ctx, first.ID, first.CalculatedAt, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	pending, err = repo.ListUnexportedSnapshots(ctx, 10, testNow)
	require.NoError(t, err)
	assert.Empty(t, pending)

	later := testNow.Add(time.Hour)
	second, err := repo.UpsertAgencySnapshot(ctx, core.AgencySnapshot{
		UserID: u.ID, CalculatedFor: day, CreditAgencyCents: 250, CalculatedAt: later,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(250), second.CreditAgencyCents)
	assert.Nil(t, second.ExportedAt)

	// A stale export of the first calculation must not stamp the new one.
	ok, err = repo.MarkSnapshotExported(ctx, first.ID, first.CalculatedAt, later)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetAgencySnapshot(ctx, u.ID, day)
	require.NoError(t, err)
	assert.True(t, got.CalculatedAt.Equal(later))

	_, err = repo.GetAgencySnapshot(ctx, u.ID, core.AddDays(day, 1))
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClaimSnapshotExport(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)
	u := mustUser(t, repo, "a@example.com")
	day := core.NewDate(2025, time.March, 10)

	snap, err := repo.UpsertAgencySnapshot(ctx, core.AgencySnapshot{
		UserID: u.ID, CalculatedFor: day, CreditAgencyCents: 100, CalculatedAt: testNow,
	})
	require.NoError(t, err)

	leaseEnd := testNow.Add(10 * time.Minute)
	ok, err := repo.ClaimSnapshotExport(ctx, snap.ID, snap.CalculatedAt, testNow, leaseEnd)
	require.NoError(t, err)
	assert.True(t, ok)

	// Only one holder at a time, and leased rows drop out of the pending list.
	ok, err = repo.ClaimSnapshotExport(ctx, snap.ID, snap.CalculatedAt, testNow.Add(time.Minute), leaseEnd)
	require.NoError(t, err)
	assert.False(t, ok)

	pending, err := repo.ListUnexportedSnapshots(ctx, 10, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, pending)

	// An expired lease can be taken over.
	pending, err = repo.ListUnexportedSnapshots(ctx, 10, leaseEnd)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	ok, err = repo.ClaimSnapshotExport(ctx, snap.ID, snap.CalculatedAt, leaseEnd, leaseEnd.Add(10*time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	// Recalculation releases the lease; the old calculation cannot be claimed.
	later := testNow.Add(time.Hour)
	again, err := repo.UpsertAgencySnapshot(ctx, core.AgencySnapshot{
		UserID: u.ID, CalculatedFor: day, CreditAgencyCents: 200, CalculatedAt: later,
	})
	require.NoError(t, err)

	pending, err = repo.ListUnexportedSnapshots(ctx, 10, later)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	ok, err = repo.ClaimSnapshotExport(ctx, snap.ID, snap.CalculatedAt, later, later.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ClaimSnapshotExport(ctx, again.ID, again.CalculatedAt, later, later.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	marked, err := repo.MarkSnapshotExported(ctx, again.ID, again.CalculatedAt, later)
	require.NoError(t, err)
	require.True(t, marked)

	// Exported snapshots are never claimed again.
	ok, err = repo.ClaimSnapshotExport(ctx, again.ID, again.CalculatedAt, later.Add(time.Hour), later.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo, _ := newRepo(t)

	err := repo.InTx(ctx, func(q *Queries) error {
		if _, err := q.CreateUser(ctx, core.User{Email: "a@example.com"}); err != nil {
			return err
		}
		return core.Conflict("abort")
	})
	assert.ErrorIs(t, err, core.ErrConflict)

	users, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}
