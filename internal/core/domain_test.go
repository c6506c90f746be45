package core

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("load goal: %w", NotFound("savings goal", 7))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "load goal: savings goal 7 not found", err.Error())

	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, "amountCents: amount must be positive", InvalidInput("amountCents", "amount must be positive").Error())
}

func TestCreditCardValidate(t *testing.T) {
	good := CreditCard{Name: "Visa", CreditLimitCents: 100000, CycleAnchorDay: 5, StatementDay: 4, PaymentDueDay: 25}
	require.NoError(t, good.Validate())

	bad := good
	bad.CreditLimitCents = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.StatementDay = 32
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = good
	bad.PaymentDueDay = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
}

func TestIncomeStreamValidate(t *testing.T) {
	s := IncomeStream{AmountCents: 420000, Frequency: FrequencySemimonthly}
	require.NoError(t, s.Validate())

	s.Frequency = "fortnightly"
	assert.ErrorIs(t, s.Validate(), ErrInvalidInput)

	s.Frequency = FrequencyMonthly
	s.AmountCents = -1
	assert.ErrorIs(t, s.Validate(), ErrInvalidInput)
}

func TestTransactionValidate(t *testing.T) {
	card := int64(1)
	tx := Transaction{Type: TransactionExpense, AmountCents: -500, TransactionDate: NewDate(2025, time.May, 2), CreditCardID: &card}
	require.NoError(t, tx.Validate())

	tx.CreditCardID = nil
	assert.ErrorIs(t, tx.Validate(), ErrInvalidInput, "expense without card")

	tx.Type = TransactionIncome
	require.NoError(t, tx.Validate())

	tx.AmountCents = 0
	assert.ErrorIs(t, tx.Validate(), ErrInvalidInput)
}

func TestSavingsGoalValidate(t *testing.T) {
	start := NewDate(2025, time.January, 1)
	before := NewDate(2024, time.December, 1)
	g := SavingsGoal{Name: "Holiday", TargetAmountCents: 150000, StartDate: start}
	require.NoError(t, g.Validate())

	g.TargetDate = &before
	assert.ErrorIs(t, g.Validate(), ErrInvalidInput)
}

func TestCategoryBudgetValidate(t *testing.T) {
	b := CategoryBudget{Category: "groceries", Period: PeriodMonthly, LimitAmountCents: 10000, WarningThreshold: DefaultWarningThreshold}
	require.NoError(t, b.Validate())

	b.WarningThreshold = 1.5
	assert.ErrorIs(t, b.Validate(), ErrInvalidInput)

	b.WarningThreshold = -0.1
	assert.ErrorIs(t, b.Validate(), ErrInvalidInput)

	for _, edge := range []float64{0, 1} {
		b.WarningThreshold = edge
		assert.NoError(t, b.Validate(), "threshold %v", edge)
	}

	b.WarningThreshold = 0.5
	start := NewDate(2025, time.May, 1)
	b.PeriodStart = &start
	assert.ErrorIs(t, b.Validate(), ErrInvalidInput, "start without end")

	b.Period = "weekly"
	b.PeriodStart = nil
	assert.ErrorIs(t, b.Validate(), ErrInvalidInput)
}
