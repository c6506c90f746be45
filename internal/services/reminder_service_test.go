package services

import (
	"context"
	"errors"
	"testing"

	"famfin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []PaymentReminder
	fail map[int64]error
}

func (s *recordingSender) SendPaymentReminder(_ context.Context, r PaymentReminder) error {
	if err := s.fail[r.User.ID]; err != nil {
		return err
	}
	s.sent = append(s.sent, r)
	return nil
}

func TestDueForReminder(t *testing.T) {
	open := func(c core.CurrentCycle, autopay bool) core.CycleSummary {
		return core.CycleSummary{CurrentCycle: &c, Autopay: autopay}
	}
	tests := []struct {
		name    string
		summary core.CycleSummary
		want    bool
	}{
		{"no open cycle", core.CycleSummary{}, false},
		{"due within lead", open(core.CurrentCycle{StatementBalanceCents: 100, DaysUntilDue: 3}, false), true},
		{"due today", open(core.CurrentCycle{StatementBalanceCents: 100, DaysUntilDue: 0}, false), true},
		{"due beyond lead", open(core.CurrentCycle{StatementBalanceCents: 100, DaysUntilDue: 4}, false), false},
		{"paid", open(core.CurrentCycle{StatementBalanceCents: 100, DaysUntilDue: 1, IsPaid: true}, false), false},
		{"zero balance", open(core.CurrentCycle{DaysUntilDue: 1}, false), false},
		{"overdue", open(core.CurrentCycle{StatementBalanceCents: 100, DaysUntilDue: -2, IsOverdue: true}, false), true},
		{"autopay due soon", open(core.CurrentCycle{StatementBalanceCents: 100, DaysUntilDue: 1}, true), false},
		{"autopay overdue", open(core.CurrentCycle{StatementBalanceCents: 100, DaysUntilDue: -1, IsOverdue: true}, true), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DueForReminder(tt.summary, 3))
		})
	}
}

func TestReminderService_SendDue(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	today := core.Today(testNow)
	clock := fixedClock(testNow)

	soon := seedUser(t, repo, "soon@example.com", core.RoleMember)
	card := seedCard(t, repo, soon.ID, 100000, false)
	seedCycle(t, repo, card.ID, core.AddDays(today, -20), core.AddDays(today, 2), 50000, 2500)

	late := seedUser(t, repo, "late@example.com", core.RoleMember)
	lateCard := seedCard(t, repo, late.ID, 100000, false)
	seedCycle(t, repo, lateCard.ID, core.AddDays(today, -30), core.AddDays(today, -1), 50000, 2500)

	relaxed := seedUser(t, repo, "relaxed@example.com", core.RoleMember)
	relaxedCard := seedCard(t, repo, relaxed.ID, 100000, false)
	seedCycle(t, repo, relaxedCard.ID, core.AddDays(today, -5), core.AddDays(today, 20), 50000, 2500)

	sender := &recordingSender{}
	svc := NewReminderService(repo, NewPaymentCyclesService(repo, clock), sender, 3, clock)

	sent, err := svc.SendDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, soon.ID, sender.sent[0].User.ID)
	assert.Equal(t, late.ID, sender.sent[1].User.ID)
	assert.True(t, sender.sent[1].Summary.CurrentCycle.IsOverdue)
	assert.Equal(t, today, sender.sent[0].AsOf)

	boom := errors.New("smtp down")
	sender = &recordingSender{fail: map[int64]error{soon.ID: boom}}
	svc = NewReminderService(repo, NewPaymentCyclesService(repo, clock), sender, 3, clock)
	sent, err = svc.SendDue(ctx)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, sent)
}
