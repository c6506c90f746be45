package services

import (
	"context"
	"testing"
	"time"

	"famfin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCategoryBudget_Boundaries(t *testing.T) {
	budget := core.CategoryBudget{ID: 1, Category: "groceries", Period: core.PeriodMonthly, LimitAmountCents: 10000, WarningThreshold: 0.85}
	window := core.BudgetWindow{Start: day(2025, time.March, 1), End: day(2025, time.March, 31)}

	tests := []struct {
		spent         int64
		wantStatus    core.BudgetStatus
		wantRemaining int64
	}{
		{0, core.BudgetOK, 10000},
		{8499, core.BudgetOK, 1501},
		{8500, core.BudgetWarning, 1500},
		{9999, core.BudgetWarning, 1},
		{10000, core.BudgetOver, 0},
		{12500, core.BudgetOver, 0},
	}
	for _, tt := range tests {
		t.Run(core.FormatCents(tt.spent), func(t *testing.T) {
			var txs []core.Transaction
			if tt.spent > 0 {
				txs = append(txs, core.Transaction{
					Type:            core.TransactionExpense,
					Category:        "groceries",
					AmountCents:     -tt.spent,
					TransactionDate: day(2025, time.March, 15),
				})
			}
			ev := EvaluateCategoryBudget(budget, window, txs)
			assert.Equal(t, tt.spent, ev.SpentAmountCents)
			assert.Equal(t, tt.wantStatus, ev.Status)
			assert.Equal(t, tt.wantRemaining, ev.RemainingAmountCents)
		})
	}
}

func TestEvaluateCategoryBudget_Filters(t *testing.T) {
	budget := core.CategoryBudget{Category: "fuel", LimitAmountCents: 20000, WarningThreshold: 0.5}
	window := core.BudgetWindow{Start: day(2025, time.March, 1), End: day(2025, time.March, 31)}
	txs := []core.Transaction{
		{Type: core.TransactionExpense, Category: "fuel", AmountCents: -6000, TransactionDate: day(2025, time.March, 1)},
		{Type: core.TransactionExpense, Category: "fuel", AmountCents: -4000, TransactionDate: day(2025, time.March, 31)},
		{Type: core.TransactionExpense, Category: "fuel", AmountCents: -9000, TransactionDate: day(2025, time.April, 1)},
		{Type: core.TransactionExpense, Category: "dining", AmountCents: -9000, TransactionDate: day(2025, time.March, 10)},
		{Type: core.TransactionIncome, Category: "fuel", AmountCents: 9000, TransactionDate: day(2025, time.March, 10)},
	}

	ev := EvaluateCategoryBudget(budget, window, txs)
	assert.Equal(t, int64(10000), ev.SpentAmountCents)
	assert.Equal(t, 0.5, ev.Utilisation)
	assert.Equal(t, core.BudgetWarning, ev.Status)
}

func TestEvaluateCategoryBudget_ZeroThresholdIsKept(t *testing.T) {
	budget := core.CategoryBudget{Category: "groceries", LimitAmountCents: 10000, WarningThreshold: 0}
	window := core.BudgetWindow{Start: day(2025, time.March, 1), End: day(2025, time.March, 31)}
	txs := []core.Transaction{
		{Type: core.TransactionExpense, Category: "groceries", AmountCents: -100, TransactionDate: day(2025, time.March, 3)},
	}

	ev := EvaluateCategoryBudget(budget, window, txs)
	assert.Equal(t, core.BudgetWarning, ev.Status)
}

func TestBudgetWindow(t *testing.T) {
	ref := day(2025, time.March, 10)
	card := &core.CreditCard{CycleAnchorDay: 5, StatementDay: 4}

	monthly := core.CategoryBudget{Period: core.PeriodMonthly}
	w, err := BudgetWindow(monthly, ref, nil)
	require.NoError(t, err)
	assert.Equal(t, core.BudgetWindow{Start: day(2025, time.March, 1), End: day(2025, time.March, 31)}, w)

	cycle := core.CategoryBudget{Period: core.PeriodCycle}
	w, err = BudgetWindow(cycle, ref, card)
	require.NoError(t, err)
	assert.Equal(t, core.BudgetWindow{Start: day(2025, time.March, 5), End: day(2025, time.April, 4)}, w)

	w, err = BudgetWindow(cycle, ref, nil)
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.March, 1), w.Start)

	explicit := core.CategoryBudget{
		Period:      core.PeriodMonthly,
		PeriodStart: ptr(day(2025, time.January, 15)),
		PeriodEnd:   ptr(day(2025, time.February, 14)),
	}
	w, err = BudgetWindow(explicit, ref, nil)
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.January, 15), w.Start)
	assert.Equal(t, day(2025, time.February, 14), w.End)

	_, err = BudgetWindow(core.CategoryBudget{Period: "weekly"}, ref, nil)
	assert.ErrorIs(t, err, core.ErrFatal)
}

func TestCategoryBudgetService(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	owner := seedUser(t, repo, "owner@example.com", core.RoleMember)
	other := seedUser(t, repo, "other@example.com", core.RoleMember)
	card := seedCard(t, repo, owner.ID, 100000, false)
	svc := NewCategoryBudgetService(repo, fixedClock(testNow), 0)

	groceries, err := svc.Create(ctx, owner.ID, CreateCategoryBudgetInput{Category: "groceries", LimitAmountCents: 10000})
	require.NoError(t, err)
	assert.Equal(t, core.PeriodMonthly, groceries.Period)
	assert.Equal(t, 0.85, groceries.WarningThreshold)
	assert.True(t, groceries.Active)

	_, err = svc.Create(ctx, owner.ID, CreateCategoryBudgetInput{Category: "groceries", LimitAmountCents: 5000})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = svc.Create(ctx, owner.ID, CreateCategoryBudgetInput{Category: "fuel", LimitAmountCents: 0})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	dining, err := svc.Create(ctx, other.ID, CreateCategoryBudgetInput{Category: "dining", LimitAmountCents: 5000, WarningThreshold: ptr(0.0)})
	require.NoError(t, err)
	assert.Zero(t, dining.WarningThreshold)

	_, err = svc.Create(ctx, other.ID, CreateCategoryBudgetInput{Category: "travel", LimitAmountCents: 5000, WarningThreshold: ptr(-0.5)})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	fuel, err := svc.Create(ctx, owner.ID, CreateCategoryBudgetInput{
		Category:         "fuel",
		Period:           core.PeriodCycle,
		LimitAmountCents: 20000,
		WarningThreshold: ptr(0.5),
		CreditCardID:     &card.ID,
	})
	require.NoError(t, err)

	seedExpense(t, repo, owner.ID, card.ID, 8500, "groceries", day(2025, time.March, 2))
	seedExpense(t, repo, owner.ID, card.ID, 3000, "groceries", day(2025, time.February, 27))
	seedExpense(t, repo, owner.ID, card.ID, 4000, "fuel", day(2025, time.March, 4))
	seedExpense(t, repo, owner.ID, card.ID, 7000, "fuel", day(2025, time.March, 6))

	ev, err := svc.Evaluate(ctx, owner.ID, groceries.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8500), ev.SpentAmountCents)
	assert.Equal(t, core.BudgetWarning, ev.Status)

	ev, err = svc.Evaluate(ctx, owner.ID, fuel.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, day(2025, time.March, 5), ev.Window.Start)
	assert.Equal(t, int64(7000), ev.SpentAmountCents)
	assert.Equal(t, core.BudgetOK, ev.Status)

	_, err = svc.Evaluate(ctx, other.ID, fuel.ID, nil)
	assert.ErrorIs(t, err, core.ErrNotFound)

	all, err := svc.EvaluateAll(ctx, owner.ID, ptr(day(2025, time.February, 27)))
	require.NoError(t, err)
	require.Len(t, all, 2)

	updated, err := svc.Update(ctx, owner.ID, groceries.ID, CategoryBudgetPatch{LimitAmountCents: ptr(int64(8000)), Active: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, int64(8000), updated.LimitAmountCents)
	assert.False(t, updated.Active)

	active, err := svc.List(ctx, owner.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, fuel.ID, active[0].ID)

	_, err = svc.Update(ctx, owner.ID, fuel.ID, CategoryBudgetPatch{Category: ptr("groceries"), Period: ptr(core.PeriodMonthly)})
	assert.ErrorIs(t, err, core.ErrConflict)
}
