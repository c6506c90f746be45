package services

import (
	"context"
	"testing"
	"time"

	"famfin/internal/core"
	"famfin/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSavingsFixture(t *testing.T) (*SavingsGoalService, core.User, core.User) {
	t.Helper()
	repo := newTestRepo(t)
	owner := seedUser(t, repo, "owner@example.com", core.RoleMember)
	other := seedUser(t, repo, "other@example.com", core.RoleMember)
	return NewSavingsGoalService(repo, fixedClock(testNow)), owner, other
}

func createGoal(t *testing.T, svc *SavingsGoalService, userID, target int64) core.GoalProgress {
	t.Helper()
	g, err := svc.Create(context.Background(), userID, CreateSavingsGoalInput{Name: "Holiday", TargetAmountCents: target})
	require.NoError(t, err)
	return g
}

func TestProgress(t *testing.T) {
	g := core.SavingsGoal{TargetAmountCents: 300000}

	p := Progress(g, 75000)
	assert.Equal(t, int64(225000), p.RemainingCents)
	assert.Equal(t, 0.25, p.ProgressRatio)

	over := Progress(g, 350000)
	assert.Equal(t, int64(0), over.RemainingCents)
	assert.Greater(t, over.ProgressRatio, 1.0)
}

func TestOutstandingCommitment(t *testing.T) {
	goals := []storage.GoalWithTotal{
		{Goal: core.SavingsGoal{Status: core.GoalActive, TargetAmountCents: 100000}, ContributionsCents: 40000},
		{Goal: core.SavingsGoal{Status: core.GoalActive, TargetAmountCents: 50000}, ContributionsCents: 70000},
		{Goal: core.SavingsGoal{Status: core.GoalCompleted, TargetAmountCents: 90000}},
		{Goal: core.SavingsGoal{Status: core.GoalAbandoned, TargetAmountCents: 90000}},
	}
	assert.Equal(t, int64(60000), OutstandingCommitment(goals))
}

func TestSavingsGoalService_Contributions(t *testing.T) {
	ctx := context.Background()
	svc, owner, other := newSavingsFixture(t)
	goal := createGoal(t, svc, owner.ID, 300000)

	assert.Equal(t, core.GoalActive, goal.Status)
	assert.Equal(t, core.Today(testNow), goal.StartDate)
	assert.Zero(t, goal.TotalContributionsCents)

	first, err := svc.AddContribution(ctx, owner.ID, goal.ID, ContributionInput{AmountCents: 50000})
	require.NoError(t, err)
	assert.Equal(t, core.SourceManual, first.Contribution.Source)
	assert.Equal(t, core.Today(testNow), first.Contribution.ContributionDate)
	assert.Equal(t, int64(50000), first.Goal.TotalContributionsCents)

	second, err := svc.AddContribution(ctx, owner.ID, goal.ID, ContributionInput{
		AmountCents:      25000,
		Source:           core.SourceTransfer,
		ContributionDate: ptr(day(2025, time.March, 1)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75000), second.Goal.TotalContributionsCents)
	assert.Equal(t, int64(225000), second.Goal.RemainingCents)

	list, err := svc.ListContributions(ctx, owner.ID, goal.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Contribution.ID, list[0].ID)

	_, err = svc.AddContribution(ctx, owner.ID, goal.ID, ContributionInput{AmountCents: 0})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.AddContribution(ctx, owner.ID, goal.ID, ContributionInput{AmountCents: 10, Source: "gift"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.AddContribution(ctx, other.ID, goal.ID, ContributionInput{AmountCents: 10})
	assert.ErrorIs(t, err, core.ErrNotFound)

	after, err := svc.DeleteContribution(ctx, owner.ID, goal.ID, first.Contribution.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), after.TotalContributionsCents)

	_, err = svc.DeleteContribution(ctx, owner.ID, goal.ID, first.Contribution.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestSavingsGoalService_DeleteContributionOfAnotherGoal(t *testing.T) {
	ctx := context.Background()
	svc, owner, _ := newSavingsFixture(t)
	a := createGoal(t, svc, owner.ID, 1000)
	b := createGoal(t, svc, owner.ID, 1000)

	added, err := svc.AddContribution(ctx, owner.ID, a.ID, ContributionInput{AmountCents: 100})
	require.NoError(t, err)

	_, err = svc.DeleteContribution(ctx, owner.ID, b.ID, added.Contribution.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	still, err := svc.Get(ctx, owner.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), still.TotalContributionsCents)
}

func TestSavingsGoalService_ClosedGoalsRejectChanges(t *testing.T) {
	ctx := context.Background()
	svc, owner, _ := newSavingsFixture(t)

	completed := createGoal(t, svc, owner.ID, 1000)
	done, err := svc.Complete(ctx, owner.ID, completed.ID)
	require.NoError(t, err)
	assert.Equal(t, core.GoalCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)

	abandoned := createGoal(t, svc, owner.ID, 1000)
	gone, err := svc.Abandon(ctx, owner.ID, abandoned.ID, " moved house ")
	require.NoError(t, err)
	assert.Equal(t, core.GoalAbandoned, gone.Status)
	assert.Equal(t, "moved house", gone.AbandonedReason)

	for _, id := range []int64{completed.ID, abandoned.ID} {
		_, err = svc.AddContribution(ctx, owner.ID, id, ContributionInput{AmountCents: 10})
		assert.ErrorIs(t, err, core.ErrConflict)

		_, err = svc.Update(ctx, owner.ID, id, SavingsGoalPatch{Name: ptr("renamed")})
		assert.ErrorIs(t, err, core.ErrConflict)

		_, err = svc.Complete(ctx, owner.ID, id)
		assert.ErrorIs(t, err, core.ErrConflict)

		_, err = svc.Abandon(ctx, owner.ID, id, "")
		assert.ErrorIs(t, err, core.ErrConflict)
	}
}

func TestSavingsGoalService_UpdateAndList(t *testing.T) {
	ctx := context.Background()
	svc, owner, other := newSavingsFixture(t)
	goal := createGoal(t, svc, owner.ID, 1000)
	closed := createGoal(t, svc, owner.ID, 1000)
	_, err := svc.Complete(ctx, owner.ID, closed.ID)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, owner.ID, goal.ID, SavingsGoalPatch{
		TargetAmountCents: ptr(int64(5000)),
		TargetDate:        ptr(day(2025, time.December, 1)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), updated.TargetAmountCents)
	require.NotNil(t, updated.TargetDate)

	cleared, err := svc.Update(ctx, owner.ID, goal.ID, SavingsGoalPatch{ClearTargetDate: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.TargetDate)

	_, err = svc.Update(ctx, owner.ID, goal.ID, SavingsGoalPatch{TargetDate: ptr(day(2020, time.January, 1))})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Update(ctx, other.ID, goal.ID, SavingsGoalPatch{Name: ptr("mine now")})
	assert.ErrorIs(t, err, core.ErrNotFound)

	active, err := svc.List(ctx, owner.ID, core.GoalActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, goal.ID, active[0].ID)

	all, err := svc.List(ctx, owner.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSavingsGoalService_OutstandingCommitments(t *testing.T) {
	ctx := context.Background()
	svc, owner, _ := newSavingsFixture(t)

	a := createGoal(t, svc, owner.ID, 100000)
	b := createGoal(t, svc, owner.ID, 50000)
	c := createGoal(t, svc, owner.ID, 80000)

	_, err := svc.AddContribution(ctx, owner.ID, a.ID, ContributionInput{AmountCents: 40000})
	require.NoError(t, err)
	_, err = svc.AddContribution(ctx, owner.ID, b.ID, ContributionInput{AmountCents: 60000})
	require.NoError(t, err)
	_, err = svc.Abandon(ctx, owner.ID, c.ID, "")
	require.NoError(t, err)

	outstanding, err := svc.OutstandingCommitments(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60000), outstanding)
}
