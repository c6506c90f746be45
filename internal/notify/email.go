// Package notify delivers payment reminders by email.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"

	"famfin/internal/core"
	applog "famfin/internal/log"
	"famfin/internal/services"

	"github.com/jordan-wright/email"
)

// SMTPConfig addresses the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender sends reminders through an SMTP server.
type SMTPSender struct {
	cfg  SMTPConfig
	send func(e *email.Email, addr string, auth smtp.Auth) error
}

var _ services.ReminderSender = (*SMTPSender)(nil)

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	return &SMTPSender{
		cfg: cfg,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

func (s *SMTPSender) SendPaymentReminder(ctx context.Context, r services.PaymentReminder) error {
	e, err := BuildReminderEmail(s.cfg.From, r)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	if err := s.send(e, addr, auth); err != nil {
		slog.ErrorContext(ctx, "Failed to send payment reminder",
			applog.FieldOperation, applog.OpRemind, applog.FieldUserID, r.User.ID, applog.FieldCardID, r.Summary.CardID, applog.FieldError, err)
		return fmt.Errorf("send reminder email: %w", err)
	}

	slog.InfoContext(ctx, "Payment reminder sent", applog.FieldUserID, r.User.ID, applog.FieldCardID, r.Summary.CardID, "subject", e.Subject)
	return nil
}

// BuildReminderEmail renders the reminder for one open cycle.
func BuildReminderEmail(from string, r services.PaymentReminder) (*email.Email, error) {
	c := r.Summary.CurrentCycle
	if c == nil {
		return nil, core.InvalidInput("currentCycle", "card %d has no open cycle", r.Summary.CardID)
	}
	if strings.TrimSpace(r.User.Email) == "" {
		return nil, core.InvalidInput("email", "user %d has no email address", r.User.ID)
	}

	name := r.User.DisplayName
	if name == "" {
		name = r.User.Email
	}

	e := email.NewEmail()
	e.From = from
	e.To = []string{r.User.Email}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	if c.IsOverdue {
		e.Subject = fmt.Sprintf("Overdue: %s payment was due %s", r.Summary.CardName, c.PaymentDueDate)
		fmt.Fprintf(&b, "The %s statement of %s was due on %s and no payment has been recorded.\n",
			r.Summary.CardName, core.FormatCents(c.StatementBalanceCents), c.PaymentDueDate)
	} else {
		e.Subject = fmt.Sprintf("Reminder: %s payment due %s", r.Summary.CardName, c.PaymentDueDate)
		fmt.Fprintf(&b, "The %s statement of %s is due on %s (%s).\n",
			r.Summary.CardName, core.FormatCents(c.StatementBalanceCents), c.PaymentDueDate, dueIn(c.DaysUntilDue))
	}
	fmt.Fprintf(&b, "Minimum payment: %s\n", core.FormatCents(c.MinimumPaymentCents))
	fmt.Fprintf(&b, "Recommended payment: %s\n", core.FormatCents(r.Summary.RecommendedPaymentCents))
	b.WriteString("\nRecord the payment in famfin once it is made to stop these reminders.\n")
	e.Text = []byte(b.String())
	return e, nil
}

func dueIn(days int) string {
	switch days {
	case 0:
		return "today"
	case 1:
		return "tomorrow"
	}
	return fmt.Sprintf("in %d days", days)
}

// Outbox collects reminders instead of sending them. It is used when no SMTP
// server is configured.
type Outbox struct {
	mu   sync.Mutex
	sent []services.PaymentReminder
}

var _ services.ReminderSender = (*Outbox)(nil)

func (o *Outbox) SendPaymentReminder(ctx context.Context, r services.PaymentReminder) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, r)
	slog.InfoContext(ctx, "Payment reminder queued in outbox", applog.FieldUserID, r.User.ID, applog.FieldCardID, r.Summary.CardID)
	return nil
}

func (o *Outbox) Sent() []services.PaymentReminder {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]services.PaymentReminder(nil), o.sent...)
}
