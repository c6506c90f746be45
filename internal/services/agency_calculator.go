package services

import (
	"time"

	"famfin/internal/core"

	"github.com/shopspring/decimal"
)

// AgencyConfig holds the tunables of the agency calculation.
type AgencyConfig struct {
	// WindowDays is how far past calculatedFor obligations and income are
	// considered. The window is inclusive on both ends.
	WindowDays int
	// BufferRate is the share of the total credit limit held back.
	BufferRate decimal.Decimal
	// MaxRecurrenceSteps bounds income projection.
	MaxRecurrenceSteps int
}

func DefaultAgencyConfig() AgencyConfig {
	return AgencyConfig{
		WindowDays:         45,
		BufferRate:         decimal.RequireFromString("0.05"),
		MaxRecurrenceSteps: DefaultMaxRecurrenceSteps,
	}
}

func (c AgencyConfig) Validate() error {
	if c.WindowDays < 0 {
		return core.InvalidInput("windowDays", "must not be negative")
	}
	if c.BufferRate.IsNegative() || c.BufferRate.GreaterThan(decimal.NewFromInt(1)) {
		return core.InvalidInput("bufferRate", "must be between 0 and 1")
	}
	if c.MaxRecurrenceSteps <= 0 {
		return core.InvalidInput("maxRecurrenceSteps", "must be positive")
	}
	return nil
}

// Window returns the inclusive date range evaluated for calculatedFor.
func (c AgencyConfig) Window(calculatedFor core.Date) (core.Date, core.Date) {
	return calculatedFor, core.AddDays(calculatedFor, c.WindowDays)
}

// AgencyInputs is everything the calculation reads for one user.
type AgencyInputs struct {
	Cards               []core.CreditCard
	OpenCycles          []core.CreditCardCycle
	IncomeStreams       []core.IncomeStream
	ExpenseTransactions []core.Transaction
}

// AgencyFigures is the full breakdown of an agency calculation.
type AgencyFigures struct {
	WindowStart               core.Date          `json:"windowStart"`
	WindowEnd                 core.Date          `json:"windowEnd"`
	TotalCreditLimitCents     int64              `json:"totalCreditLimitCents"`
	OutstandingBalanceCents   int64              `json:"outstandingBalanceCents"`
	AvailableCreditCents      int64              `json:"availableCreditCents"`
	PendingExpensesCents      int64              `json:"pendingExpensesCents"`
	MinimumPaymentsCents      int64              `json:"minimumPaymentsCents"`
	ProjectedObligationsCents int64              `json:"projectedObligationsCents"`
	UpcomingIncomeCents       int64              `json:"upcomingIncomeCents"`
	UncoveredObligationsCents int64              `json:"uncoveredObligationsCents"`
	BufferCents               int64              `json:"bufferCents"`
	CreditAgencyCents         int64              `json:"creditAgencyCents"`
	BackedAgencyCents         int64              `json:"backedAgencyCents"`
	Income                    []IncomeProjection `json:"income"`
}

// ComputeAgency aggregates credit availability, near-term obligations and
// projected income into credit agency and backed agency. Every figure is
// clamped at zero.
func ComputeAgency(in AgencyInputs, calculatedFor core.Date, cfg AgencyConfig) (AgencyFigures, error) {
	start, end := cfg.Window(calculatedFor)
	f := AgencyFigures{WindowStart: start, WindowEnd: end}

	activeCards := make(map[int64]bool, len(in.Cards))
	for _, card := range in.Cards {
		if !card.Active {
			continue
		}
		activeCards[card.ID] = true
		f.TotalCreditLimitCents += card.CreditLimitCents
	}

	for _, cycle := range in.OpenCycles {
		if !cycle.IsOpen() || !activeCards[cycle.CreditCardID] {
			continue
		}
		f.OutstandingBalanceCents += cycle.StatementBalanceCents
		if cycle.PaymentDueDate.Within(start, end) {
			f.MinimumPaymentsCents += cycle.MinimumPaymentCents
		}
	}
	f.AvailableCreditCents = max(f.TotalCreditLimitCents-f.OutstandingBalanceCents, 0)

	for _, tx := range in.ExpenseTransactions {
		if tx.Type != core.TransactionExpense || !tx.TransactionDate.Within(start, end) {
			continue
		}
		f.PendingExpensesCents += core.AbsCents(tx.AmountCents)
	}
	f.ProjectedObligationsCents = f.PendingExpensesCents + f.MinimumPaymentsCents

	projector := NewIncomeProjector(cfg.MaxRecurrenceSteps)
	for _, stream := range in.IncomeStreams {
		if !stream.Active {
			continue
		}
		proj, err := projector.Project(stream, start, end)
		if err != nil {
			return AgencyFigures{}, err
		}
		f.UpcomingIncomeCents += proj.TotalCents
		f.Income = append(f.Income, proj)
	}

	f.UncoveredObligationsCents = max(f.ProjectedObligationsCents-f.UpcomingIncomeCents, 0)
	f.BufferCents = core.RoundCents(decimal.NewFromInt(f.TotalCreditLimitCents).Mul(cfg.BufferRate))
	f.CreditAgencyCents = max(f.AvailableCreditCents-f.BufferCents-f.UncoveredObligationsCents, 0)
	f.BackedAgencyCents = max(f.UpcomingIncomeCents-f.ProjectedObligationsCents, 0)
	return f, nil
}

// Snapshot turns the figures into the row persisted for a user and date.
func (f AgencyFigures) Snapshot(userID int64, calculatedFor core.Date, notes string, calculatedAt time.Time) core.AgencySnapshot {
	return core.AgencySnapshot{
		UserID:                    userID,
		CalculatedFor:             calculatedFor,
		CreditAgencyCents:         f.CreditAgencyCents,
		BackedAgencyCents:         f.BackedAgencyCents,
		AvailableCreditCents:      f.AvailableCreditCents,
		ProjectedObligationsCents: f.ProjectedObligationsCents,
		UpcomingIncomeCents:       f.UpcomingIncomeCents,
		TotalCreditLimitCents:     f.TotalCreditLimitCents,
		OutstandingBalanceCents:   f.OutstandingBalanceCents,
		PendingExpensesCents:      f.PendingExpensesCents,
		MinimumPaymentsCents:      f.MinimumPaymentsCents,
		BufferCents:               f.BufferCents,
		Notes:                     notes,
		CalculatedAt:              calculatedAt,
	}
}
