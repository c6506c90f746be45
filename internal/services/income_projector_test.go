package services

import (
	"context"
	"testing"
	"time"

	"famfin/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomeProjector_Project(t *testing.T) {
	start := day(2025, time.March, 1)
	end := core.AddDays(start, 45)

	tests := []struct {
		name       string
		stream     core.IncomeStream
		wantCount  int
		wantPayout int64
		wantDates  []core.Date
		wantTotal  int64
	}{
		{
			name:       "semimonthly halves the amount",
			stream:     core.IncomeStream{AmountCents: 420000, Frequency: core.FrequencySemimonthly, NextExpectedDate: ptr(day(2025, time.March, 1))},
			wantCount:  4,
			wantPayout: 210000,
			wantDates:  []core.Date{day(2025, time.March, 1), day(2025, time.March, 16), day(2025, time.March, 31), day(2025, time.April, 15)},
			wantTotal:  840000,
		},
		{
			name:       "semimonthly rounds odd cents",
			stream:     core.IncomeStream{AmountCents: 1001, Frequency: core.FrequencySemimonthly, NextExpectedDate: ptr(day(2025, time.April, 20))},
			wantCount:  0,
			wantPayout: 501,
			wantDates:  []core.Date{},
		},
		{
			name:       "monthly from a past anchor",
			stream:     core.IncomeStream{AmountCents: 300000, Frequency: core.FrequencyMonthly, NextExpectedDate: ptr(day(2025, time.January, 20))},
			wantCount:  1,
			wantPayout: 300000,
			wantDates:  []core.Date{day(2025, time.March, 20)},
			wantTotal:  300000,
		},
		{
			name:       "weekly",
			stream:     core.IncomeStream{AmountCents: 1000, Frequency: core.FrequencyWeekly, NextExpectedDate: ptr(day(2025, time.March, 27))},
			wantCount:  3,
			wantPayout: 1000,
			wantDates:  []core.Date{day(2025, time.March, 27), day(2025, time.April, 3), day(2025, time.April, 10)},
			wantTotal:  3000,
		},
		{
			name:       "window end is inclusive",
			stream:     core.IncomeStream{AmountCents: 500, Frequency: core.FrequencyQuarterly, NextExpectedDate: ptr(end)},
			wantCount:  1,
			wantPayout: 500,
			wantDates:  []core.Date{end},
			wantTotal:  500,
		},
		{
			name:       "no anchor date",
			stream:     core.IncomeStream{AmountCents: 500, Frequency: core.FrequencyMonthly},
			wantCount:  0,
			wantPayout: 500,
			wantDates:  []core.Date{},
		},
		{
			name:       "annual anchor after the window",
			stream:     core.IncomeStream{AmountCents: 500, Frequency: core.FrequencyAnnually, NextExpectedDate: ptr(day(2025, time.June, 1))},
			wantCount:  0,
			wantPayout: 500,
			wantDates:  []core.Date{},
		},
	}

	p := NewIncomeProjector(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proj, err := p.Project(tt.stream, start, end)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, proj.Count)
			assert.Equal(t, tt.wantPayout, proj.PerOccurrenceAmountCents)
			assert.Equal(t, tt.wantTotal, proj.TotalCents)
			assert.Equal(t, tt.wantDates, proj.Occurrences)
		})
	}
}

func TestIncomeProjector_MonthlyClampCarriesForward(t *testing.T) {
	stream := core.IncomeStream{AmountCents: 100, Frequency: core.FrequencyMonthly, NextExpectedDate: ptr(day(2025, time.January, 31))}

	proj, err := NewIncomeProjector(0).Project(stream, day(2025, time.February, 1), day(2025, time.April, 30))
	require.NoError(t, err)
	assert.Equal(t, []core.Date{
		day(2025, time.February, 28),
		day(2025, time.March, 28),
		day(2025, time.April, 28),
	}, proj.Occurrences)

	// Feb 28 -> Mar 28 -> Apr 28 -> May 28: only the April payment is inside.
	proj, err = NewIncomeProjector(0).Project(stream, day(2025, time.March, 29), day(2025, time.May, 13))
	require.NoError(t, err)
	assert.Equal(t, 1, proj.Count)
	assert.Equal(t, []core.Date{day(2025, time.April, 28)}, proj.Occurrences)
	assert.Equal(t, int64(100), proj.TotalCents)
}

func TestIntervalSteppers_Next(t *testing.T) {
	tests := []struct {
		frequency core.IncomeFrequency
		from      core.Date
		want      core.Date
	}{
		{core.FrequencyWeekly, day(2025, time.December, 29), day(2026, time.January, 5)},
		{core.FrequencyBiweekly, day(2025, time.February, 20), day(2025, time.March, 6)},
		{core.FrequencySemimonthly, day(2025, time.February, 20), day(2025, time.March, 7)},
		{core.FrequencyMonthly, day(2024, time.January, 31), day(2024, time.February, 29)},
		{core.FrequencyQuarterly, day(2025, time.November, 30), day(2026, time.February, 28)},
		{core.FrequencyAnnually, day(2024, time.February, 29), day(2025, time.February, 28)},
	}
	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			stepper, err := GetIntervalStepper(tt.frequency)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stepper.Next(tt.from))
		})
	}
}

func TestIncomeProjector_GuardStopsFarPastAnchor(t *testing.T) {
	stream := core.IncomeStream{AmountCents: 100, Frequency: core.FrequencyWeekly, NextExpectedDate: ptr(day(2000, time.January, 1))}
	start := day(2025, time.March, 1)

	proj, err := NewIncomeProjector(0).Project(stream, start, core.AddDays(start, 45))
	require.NoError(t, err)
	assert.Zero(t, proj.Count)
	assert.Zero(t, proj.TotalCents)

	// A larger bound reaches the window.
	proj, err = NewIncomeProjector(5000).Project(stream, start, core.AddDays(start, 45))
	require.NoError(t, err)
	assert.Equal(t, 7, proj.Count)
}

func TestIncomeProjector_GuardCapsCount(t *testing.T) {
	stream := core.IncomeStream{AmountCents: 100, Frequency: core.FrequencyWeekly, NextExpectedDate: ptr(day(2025, time.January, 1))}

	proj, err := NewIncomeProjector(3).Project(stream, day(2025, time.January, 1), day(2026, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, proj.Count)
	assert.Equal(t, int64(300), proj.TotalCents)
}

func TestIncomeProjector_UnknownFrequencyIsFatal(t *testing.T) {
	stream := core.IncomeStream{AmountCents: 100, Frequency: "fortnightly", NextExpectedDate: ptr(day(2025, time.January, 1))}

	_, err := NewIncomeProjector(0).Project(stream, day(2025, time.January, 1), day(2025, time.February, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrFatal)
}

func TestIncomeService_ProjectStream(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	owner := seedUser(t, repo, "owner@example.com", core.RoleMember)
	other := seedUser(t, repo, "other@example.com", core.RoleMember)
	stream := seedStream(t, repo, owner.ID, 420000, core.FrequencyMonthly, ptr(day(2025, time.March, 20)))

	svc := NewIncomeService(repo, NewIncomeProjector(0))

	proj, err := svc.ProjectStream(ctx, owner.ID, stream.ID, day(2025, time.March, 10), day(2025, time.April, 24))
	require.NoError(t, err)
	assert.Equal(t, 2, proj.Count)
	assert.Equal(t, int64(840000), proj.TotalCents)

	_, err = svc.ProjectStream(ctx, other.ID, stream.ID, day(2025, time.March, 10), day(2025, time.April, 24))
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.ProjectStream(ctx, owner.ID, stream.ID, day(2025, time.April, 24), day(2025, time.March, 10))
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
