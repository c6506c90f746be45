// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for income recurrence. Each
// frequency has its own stepper that knows where the occurrence after a given
// one falls and how much a single occurrence pays out.

package services

import (
	"famfin/internal/core"

	"github.com/shopspring/decimal"
)

// IntervalStepper is the strategy interface for one income frequency.
type IntervalStepper interface {
	// Next returns the occurrence one interval after current.
	Next(current core.Date) core.Date
	// PayoutCents returns what one occurrence pays for a stream of the given amount.
	PayoutCents(amountCents int64) int64
}

// DayIntervalStepper advances by a fixed number of days.
type DayIntervalStepper struct {
	Days int
}

func (s DayIntervalStepper) Next(current core.Date) core.Date {
	return core.AddDays(current, s.Days)
}

func (DayIntervalStepper) PayoutCents(amountCents int64) int64 {
	return amountCents
}

// SemimonthlyStepper pays twice a month, approximated by a 15 day interval.
// The stored amount is the monthly total, so each occurrence pays half.
type SemimonthlyStepper struct{}

func (SemimonthlyStepper) Next(current core.Date) core.Date {
	return core.AddDays(current, 15)
}

func (SemimonthlyStepper) PayoutCents(amountCents int64) int64 {
	return core.RoundCents(decimal.NewFromInt(amountCents).Div(decimal.NewFromInt(2)))
}

// MonthIntervalStepper advances by whole calendar months, clamping to the
// last day of shorter months. The clamped day carries forward: a stream paid
// on Jan 31 is next paid on Feb 28, then Mar 28.
type MonthIntervalStepper struct {
	Months int
}

func (s MonthIntervalStepper) Next(current core.Date) core.Date {
	return core.AddMonthsClamped(current, s.Months)
}

func (MonthIntervalStepper) PayoutCents(amountCents int64) int64 {
	return amountCents
}

// intervalSteppers maps income frequencies to their steppers.
var intervalSteppers = map[core.IncomeFrequency]IntervalStepper{
	core.FrequencyWeekly:      DayIntervalStepper{Days: 7},
	core.FrequencyBiweekly:    DayIntervalStepper{Days: 14},
	core.FrequencySemimonthly: SemimonthlyStepper{},
	core.FrequencyMonthly:     MonthIntervalStepper{Months: 1},
	core.FrequencyQuarterly:   MonthIntervalStepper{Months: 3},
	core.FrequencyAnnually:    MonthIntervalStepper{Months: 12},
}

// GetIntervalStepper returns the stepper for a frequency. An unknown frequency
// is a fatal configuration error; it is never treated as zero income.
func GetIntervalStepper(frequency core.IncomeFrequency) (IntervalStepper, error) {
	stepper, ok := intervalSteppers[frequency]
	if !ok {
		return nil, core.Fatal("unsupported income frequency %q", frequency)
	}
	return stepper, nil
}
