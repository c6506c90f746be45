package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"famfin/internal/core"
	"famfin/internal/services"

	"github.com/jordan-wright/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reminder(overdue bool, daysUntilDue int) services.PaymentReminder {
	return services.PaymentReminder{
		User: core.User{ID: 4, Email: "sam@example.com", DisplayName: "Sam"},
		Summary: core.CycleSummary{
			CardID:   9,
			CardName: "Visa",
			CurrentCycle: &core.CurrentCycle{
				PaymentDueDate:        core.NewDate(2025, time.March, 25),
				StatementBalanceCents: 264075,
				MinimumPaymentCents:   12000,
				IsOverdue:             overdue,
				DaysUntilDue:          daysUntilDue,
			},
			RecommendedPaymentCents: 264075,
		},
		AsOf: core.NewDate(2025, time.March, 22),
	}
}

func TestBuildReminderEmail(t *testing.T) {
	e, err := BuildReminderEmail("famfin@example.com", reminder(false, 3))
	require.NoError(t, err)
	assert.Equal(t, "famfin@example.com", e.From)
	assert.Equal(t, []string{"sam@example.com"}, e.To)
	assert.Equal(t, "Reminder: Visa payment due 2025-03-25", e.Subject)
	body := string(e.Text)
	assert.Contains(t, body, "Hi Sam,")
	assert.Contains(t, body, "2640.75 is due on 2025-03-25 (in 3 days)")
	assert.Contains(t, body, "Minimum payment: 120.00")

	overdue, err := BuildReminderEmail("famfin@example.com", reminder(true, -2))
	require.NoError(t, err)
	assert.Equal(t, "Overdue: Visa payment was due 2025-03-25", overdue.Subject)

	tomorrow, err := BuildReminderEmail("famfin@example.com", reminder(false, 1))
	require.NoError(t, err)
	assert.Contains(t, string(tomorrow.Text), "(tomorrow)")
}

func TestBuildReminderEmail_Invalid(t *testing.T) {
	r := reminder(false, 3)
	r.Summary.CurrentCycle = nil
	_, err := BuildReminderEmail("x@example.com", r)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	r = reminder(false, 3)
	r.User.Email = ""
	_, err = BuildReminderEmail("x@example.com", r)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestSMTPSender(t *testing.T) {
	var (
		gotAddr string
		gotAuth smtp.Auth
		gotMail *email.Email
	)
	s := NewSMTPSender(SMTPConfig{Host: "mail.example.com", Port: 587, Username: "u", Password: "p", From: "famfin@example.com"})
	s.send = func(e *email.Email, addr string, auth smtp.Auth) error {
		gotMail, gotAddr, gotAuth = e, addr, auth
		return nil
	}

	require.NoError(t, s.SendPaymentReminder(context.Background(), reminder(false, 2)))
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"sam@example.com"}, gotMail.To)

	s.send = func(*email.Email, string, smtp.Auth) error { return errors.New("relay denied") }
	err := s.SendPaymentReminder(context.Background(), reminder(false, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay denied")
}

func TestOutbox(t *testing.T) {
	var o Outbox
	require.NoError(t, o.SendPaymentReminder(context.Background(), reminder(true, -1)))
	sent := o.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, int64(9), sent[0].Summary.CardID)
}
