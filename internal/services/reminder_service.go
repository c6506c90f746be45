package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"famfin/internal/core"
)

// PaymentReminder is one open cycle its owner should be reminded about.
type PaymentReminder struct {
	User    core.User
	Summary core.CycleSummary
	AsOf    core.Date
}

// ReminderSender delivers payment reminders.
type ReminderSender interface {
	SendPaymentReminder(ctx context.Context, r PaymentReminder) error
}

// UserLister enumerates every user of the installation.
type UserLister interface {
	ListUsers(ctx context.Context) ([]core.User, error)
}

// DueForReminder reports whether a summary's open cycle is unpaid, has a
// balance, and is overdue or due within leadDays. Autopay cards are only
// reported once overdue.
func DueForReminder(s core.CycleSummary, leadDays int) bool {
	c := s.CurrentCycle
	if c == nil || c.IsPaid || c.StatementBalanceCents <= 0 {
		return false
	}
	if c.IsOverdue {
		return true
	}
	return !s.Autopay && c.DaysUntilDue >= 0 && c.DaysUntilDue <= leadDays
}

type ReminderService struct {
	users    UserLister
	cycles   *PaymentCyclesService
	sender   ReminderSender
	leadDays int
	clock    Clock
}

func NewReminderService(users UserLister, cycles *PaymentCyclesService, sender ReminderSender, leadDays int, clock Clock) *ReminderService {
	return &ReminderService{users: users, cycles: cycles, sender: sender, leadDays: leadDays, clock: clock}
}

// SendDue sends one reminder per due cycle across every user and returns how
// many were sent. A failure for one user does not stop the others.
func (s *ReminderService) SendDue(ctx context.Context) (int, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	asOf := s.clock.today()

	sent := 0
	var errs []error
	for _, u := range users {
		summaries, err := s.cycles.Summarize(ctx, u.ID, &asOf)
		if err != nil {
			errs = append(errs, fmt.Errorf("summarize cycles of user %d: %w", u.ID, err))
			continue
		}
		for _, summary := range summaries {
			if !DueForReminder(summary, s.leadDays) {
				continue
			}
			if err := s.sender.SendPaymentReminder(ctx, PaymentReminder{User: u, Summary: summary, AsOf: asOf}); err != nil {
				errs = append(errs, fmt.Errorf("remind user %d about card %d: %w", u.ID, summary.CardID, err))
				continue
			}
			sent++
		}
	}

	slog.InfoContext(ctx, "Payment reminders sent", "sent", sent, "failed", len(errs), "as_of", asOf.String())
	return sent, errors.Join(errs...)
}
