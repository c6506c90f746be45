package services

import (
	"cmp"
	"slices"

	"famfin/internal/core"
)

// NextMonthlyOccurrence returns the given day in ref's month if that date is
// not before ref, otherwise the same day in the following month. Days are
// clamped to the month length.
func NextMonthlyOccurrence(ref core.Date, dayOfMonth int) core.Date {
	candidate := core.BuildMonthlyDate(ref.Year(), ref.Month(), dayOfMonth)
	if !candidate.Before(ref) {
		return candidate
	}
	return core.BuildMonthlyDate(ref.Year(), ref.Month()+1, dayOfMonth)
}

// CycleStartForStatement returns the cycle start for a statement. The anchor
// day is taken in the statement's month unless it is numerically after the
// statement day, in which case the cycle started the month before.
func CycleStartForStatement(statement core.Date, anchorDay int) core.Date {
	month := statement.Month()
	if anchorDay > statement.Day() {
		month--
	}
	return core.BuildMonthlyDate(statement.Year(), month, anchorDay)
}

// DueDateForStatement returns the payment due date for a statement. The
// result is always strictly after the statement date.
func DueDateForStatement(statement core.Date, dueDay int) core.Date {
	due := core.BuildMonthlyDate(statement.Year(), statement.Month(), dueDay)
	if due.After(statement) {
		return due
	}
	return core.BuildMonthlyDate(statement.Year(), statement.Month()+1, dueDay)
}

// ComputeUpcomingCycle derives the next billing cycle of a card from its
// day-of-month configuration alone.
func ComputeUpcomingCycle(card core.CreditCard, ref core.Date) core.UpcomingCycle {
	statement := NextMonthlyOccurrence(ref, card.StatementDay)
	due := DueDateForStatement(statement, card.PaymentDueDay)
	return core.UpcomingCycle{
		CycleStartDate:      CycleStartForStatement(statement, card.CycleAnchorDay),
		StatementDate:       statement,
		PaymentDueDate:      due,
		DaysUntilStatement:  core.DaysBetween(ref, statement),
		DaysUntilPaymentDue: core.DaysBetween(ref, due),
	}
}

// SummarizeCard combines a card's open cycle, if any, with its computed next
// cycle as of asOf.
func SummarizeCard(card core.CreditCard, open *core.CreditCardCycle, asOf core.Date) core.CycleSummary {
	upcoming := ComputeUpcomingCycle(card, asOf)
	summary := core.CycleSummary{
		CardID:        card.ID,
		CardName:      card.Name,
		Autopay:       card.Autopay,
		UpcomingCycle: &upcoming,
	}
	if open == nil {
		return summary
	}

	paid := open.PaymentRecordedOn != nil
	summary.CurrentCycle = &core.CurrentCycle{
		CycleID:               open.ID,
		CycleNumber:           open.CycleNumber,
		CycleStartDate:        open.CycleStartDate,
		StatementDate:         open.StatementDate,
		PaymentDueDate:        open.PaymentDueDate,
		StatementBalanceCents: open.StatementBalanceCents,
		MinimumPaymentCents:   open.MinimumPaymentCents,
		PaymentRecordedOn:     open.PaymentRecordedOn,
		IsPaid:                paid,
		IsOverdue:             !paid && open.PaymentDueDate.Before(asOf),
		DaysUntilDue:          core.DaysBetween(asOf, open.PaymentDueDate),
		DaysSinceStatement:    core.DaysBetween(open.StatementDate, asOf),
	}
	if card.Autopay {
		summary.RecommendedPaymentCents = open.MinimumPaymentCents
	} else {
		summary.RecommendedPaymentCents = open.StatementBalanceCents
	}
	return summary
}

// SortCycleSummaries orders summaries by their nearest known due date.
// Summaries without any due date go last; ties fall back to the card id.
func SortCycleSummaries(summaries []core.CycleSummary) {
	slices.SortStableFunc(summaries, func(a, b core.CycleSummary) int {
		if c := compareOptionalDates(a.NearestDueDate(), b.NearestDueDate()); c != 0 {
			return c
		}
		return cmp.Compare(a.CardID, b.CardID)
	})
}

func compareOptionalDates(a, b *core.Date) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return a.Time.Compare(b.Time)
}
