package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"famfin/internal/core"
	applog "famfin/internal/log"
	"famfin/internal/storage"

	"github.com/shopspring/decimal"
)

// SavingsStore is the storage SavingsGoalService needs.
type SavingsStore interface {
	CreateSavingsGoal(ctx context.Context, g core.SavingsGoal) (core.SavingsGoal, error)
	GetSavingsGoal(ctx context.Context, id int64) (storage.GoalWithTotal, error)
	ListSavingsGoals(ctx context.Context, userID int64, status core.SavingsGoalStatus) ([]storage.GoalWithTotal, error)
	UpdateActiveSavingsGoal(ctx context.Context, g core.SavingsGoal) (bool, error)
	CloseSavingsGoal(ctx context.Context, id int64, to core.SavingsGoalStatus, at time.Time, reason string) (bool, error)
	InsertContributionIfActive(ctx context.Context, c core.SavingsContribution) (core.SavingsContribution, error)
	ListContributions(ctx context.Context, goalID int64) ([]core.SavingsContribution, error)
	DeleteContribution(ctx context.Context, goalID, id int64) (bool, error)
}

// SavingsGoalService maintains savings goals and their contribution ledger.
// Goal totals are always recomputed from the ledger.
type SavingsGoalService struct {
	store SavingsStore
	clock Clock
}

func NewSavingsGoalService(store SavingsStore, clock Clock) *SavingsGoalService {
	return &SavingsGoalService{store: store, clock: clock}
}

type CreateSavingsGoalInput struct {
	Name              string     `json:"name"`
	TargetAmountCents int64      `json:"targetAmountCents"`
	StartDate         *core.Date `json:"startDate"`
	TargetDate        *core.Date `json:"targetDate"`
	Category          string     `json:"category"`
	Notes             string     `json:"notes"`
}

type SavingsGoalPatch struct {
	Name              *string    `json:"name"`
	TargetAmountCents *int64     `json:"targetAmountCents"`
	StartDate         *core.Date `json:"startDate"`
	TargetDate        *core.Date `json:"targetDate"`
	ClearTargetDate   bool       `json:"clearTargetDate"`
	Category          *string    `json:"category"`
	Notes             *string    `json:"notes"`
}

type ContributionInput struct {
	AmountCents      int64                   `json:"amountCents"`
	Source           core.ContributionSource `json:"source"`
	ContributionDate *core.Date              `json:"contributionDate"`
	Notes            string                  `json:"notes"`
}

// ContributionResult is a new ledger row with its goal's refreshed totals.
type ContributionResult struct {
	Goal         core.GoalProgress        `json:"goal"`
	Contribution core.SavingsContribution `json:"contribution"`
}

// Progress computes the derived totals of a goal from its ledger sum.
func Progress(g core.SavingsGoal, contributionsCents int64) core.GoalProgress {
	p := core.GoalProgress{
		SavingsGoal:             g,
		TotalContributionsCents: contributionsCents,
		RemainingCents:          max(g.TargetAmountCents-contributionsCents, 0),
	}
	if g.TargetAmountCents > 0 {
		p.ProgressRatio = decimal.NewFromInt(contributionsCents).
			Div(decimal.NewFromInt(g.TargetAmountCents)).
			Round(4).InexactFloat64()
	}
	return p
}

// OutstandingCommitment sums max(target - contributions, 0) over the active
// goals in goals.
func OutstandingCommitment(goals []storage.GoalWithTotal) int64 {
	var total int64
	for _, gt := range goals {
		if gt.Goal.Status != core.GoalActive {
			continue
		}
		total += max(gt.Goal.TargetAmountCents-gt.ContributionsCents, 0)
	}
	return total
}

func (s *SavingsGoalService) Create(ctx context.Context, userID int64, in CreateSavingsGoalInput) (core.GoalProgress, error) {
	now := s.clock.now()
	start := core.Today(now)
	if in.StartDate != nil {
		start = *in.StartDate
	}
	g := core.SavingsGoal{
		UserID:            userID,
		Name:              strings.TrimSpace(in.Name),
		TargetAmountCents: in.TargetAmountCents,
		StartDate:         start,
		TargetDate:        in.TargetDate,
		Status:            core.GoalActive,
		Category:          strings.TrimSpace(in.Category),
		Notes:             in.Notes,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := g.Validate(); err != nil {
		return core.GoalProgress{}, err
	}
	created, err := s.store.CreateSavingsGoal(ctx, g)
	if err != nil {
		return core.GoalProgress{}, err
	}
	slog.InfoContext(ctx, "Savings goal created", applog.FieldOperation, applog.OpCreate,
		applog.FieldUserID, userID, applog.FieldGoalID, created.ID, "target_cents", created.TargetAmountCents)
	return Progress(created, 0), nil
}

func (s *SavingsGoalService) ownedGoal(ctx context.Context, userID, id int64) (storage.GoalWithTotal, error) {
	gt, err := s.store.GetSavingsGoal(ctx, id)
	if err != nil {
		return storage.GoalWithTotal{}, err
	}
	if gt.Goal.UserID != userID {
		return storage.GoalWithTotal{}, core.NotFound("savings goal", id)
	}
	return gt, nil
}

func (s *SavingsGoalService) Get(ctx context.Context, userID, id int64) (core.GoalProgress, error) {
	gt, err := s.ownedGoal(ctx, userID, id)
	if err != nil {
		return core.GoalProgress{}, err
	}
	return Progress(gt.Goal, gt.ContributionsCents), nil
}

func (s *SavingsGoalService) List(ctx context.Context, userID int64, status core.SavingsGoalStatus) ([]core.GoalProgress, error) {
	if status != "" && !status.Valid() {
		return nil, core.InvalidInput("status", "unknown status %q", status)
	}
	goals, err := s.store.ListSavingsGoals(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	out := make([]core.GoalProgress, 0, len(goals))
	for _, gt := range goals {
		out = append(out, Progress(gt.Goal, gt.ContributionsCents))
	}
	return out, nil
}

// Update edits an active goal.
func (s *SavingsGoalService) Update(ctx context.Context, userID, id int64, patch SavingsGoalPatch) (core.GoalProgress, error) {
	gt, err := s.ownedGoal(ctx, userID, id)
	if err != nil {
		return core.GoalProgress{}, err
	}
	if !gt.Goal.Status.AcceptsChanges() {
		return core.GoalProgress{}, goalNotActive(id, gt.Goal.Status)
	}

	g := gt.Goal
	if patch.Name != nil {
		g.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.TargetAmountCents != nil {
		g.TargetAmountCents = *patch.TargetAmountCents
	}
	if patch.StartDate != nil {
		g.StartDate = *patch.StartDate
	}
	if patch.ClearTargetDate {
		g.TargetDate = nil
	} else if patch.TargetDate != nil {
		g.TargetDate = patch.TargetDate
	}
	if patch.Category != nil {
		g.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Notes != nil {
		g.Notes = *patch.Notes
	}
	g.UpdatedAt = s.clock.now()
	if err := g.Validate(); err != nil {
		return core.GoalProgress{}, err
	}

	ok, err := s.store.UpdateActiveSavingsGoal(ctx, g)
	if err != nil {
		return core.GoalProgress{}, err
	}
	if !ok {
		return core.GoalProgress{}, goalNotActive(id, "")
	}
	return s.Get(ctx, userID, id)
}

// Complete marks an active goal as completed.
func (s *SavingsGoalService) Complete(ctx context.Context, userID, id int64) (core.GoalProgress, error) {
	return s.close(ctx, userID, id, core.GoalCompleted, "")
}

// Abandon marks an active goal as abandoned with an optional reason.
func (s *SavingsGoalService) Abandon(ctx context.Context, userID, id int64, reason string) (core.GoalProgress, error) {
	return s.close(ctx, userID, id, core.GoalAbandoned, strings.TrimSpace(reason))
}

func (s *SavingsGoalService) close(ctx context.Context, userID, id int64, to core.SavingsGoalStatus, reason string) (core.GoalProgress, error) {
	gt, err := s.ownedGoal(ctx, userID, id)
	if err != nil {
		return core.GoalProgress{}, err
	}
	if !gt.Goal.Status.CanTransitionTo(to) {
		return core.GoalProgress{}, goalNotActive(id, gt.Goal.Status)
	}
	ok, err := s.store.CloseSavingsGoal(ctx, id, to, s.clock.now(), reason)
	if err != nil {
		return core.GoalProgress{}, err
	}
	if !ok {
		return core.GoalProgress{}, goalNotActive(id, "")
	}
	slog.InfoContext(ctx, "Savings goal closed", applog.FieldOperation, applog.OpTransition,
		applog.FieldUserID, userID, applog.FieldGoalID, id, "status", to)
	return s.Get(ctx, userID, id)
}

// AddContribution appends to the ledger of an active goal.
func (s *SavingsGoalService) AddContribution(ctx context.Context, userID, goalID int64, in ContributionInput) (ContributionResult, error) {
	now := s.clock.now()
	c := core.SavingsContribution{
		GoalID:           goalID,
		AmountCents:      in.AmountCents,
		Source:           in.Source,
		ContributionDate: core.Today(now),
		Notes:            in.Notes,
		CreatedAt:        now,
	}
	if c.Source == "" {
		c.Source = core.SourceManual
	}
	if in.ContributionDate != nil {
		c.ContributionDate = *in.ContributionDate
	}
	if err := c.Validate(); err != nil {
		return ContributionResult{}, err
	}

	gt, err := s.ownedGoal(ctx, userID, goalID)
	if err != nil {
		return ContributionResult{}, err
	}
	if !gt.Goal.Status.AcceptsChanges() {
		return ContributionResult{}, goalNotActive(goalID, gt.Goal.Status)
	}

	created, err := s.store.InsertContributionIfActive(ctx, c)
	if errors.Is(err, storage.ErrGoalNotActive) {
		return ContributionResult{}, goalNotActive(goalID, "")
	}
	if err != nil {
		return ContributionResult{}, err
	}

	goal, err := s.Get(ctx, userID, goalID)
	if err != nil {
		return ContributionResult{}, err
	}
	slog.InfoContext(ctx, "Savings contribution added",
		applog.FieldUserID, userID,
		applog.FieldGoalID, goalID,
		"contribution_id", created.ID,
		applog.FieldAmountCents, created.AmountCents,
		"total_cents", goal.TotalContributionsCents)
	return ContributionResult{Goal: goal, Contribution: created}, nil
}

func (s *SavingsGoalService) ListContributions(ctx context.Context, userID, goalID int64) ([]core.SavingsContribution, error) {
	if _, err := s.ownedGoal(ctx, userID, goalID); err != nil {
		return nil, err
	}
	out, err := s.store.ListContributions(ctx, goalID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.SavingsContribution{}
	}
	return out, nil
}

// DeleteContribution removes a ledger row of goalID. The goal's status is
// left untouched.
func (s *SavingsGoalService) DeleteContribution(ctx context.Context, userID, goalID, contributionID int64) (core.GoalProgress, error) {
	if _, err := s.ownedGoal(ctx, userID, goalID); err != nil {
		return core.GoalProgress{}, err
	}
	ok, err := s.store.DeleteContribution(ctx, goalID, contributionID)
	if err != nil {
		return core.GoalProgress{}, err
	}
	if !ok {
		return core.GoalProgress{}, core.NotFound("contribution", contributionID)
	}
	return s.Get(ctx, userID, goalID)
}

// OutstandingCommitments is the savings still owed across the user's active goals.
func (s *SavingsGoalService) OutstandingCommitments(ctx context.Context, userID int64) (int64, error) {
	goals, err := s.store.ListSavingsGoals(ctx, userID, core.GoalActive)
	if err != nil {
		return 0, err
	}
	return OutstandingCommitment(goals), nil
}

func goalNotActive(id int64, status core.SavingsGoalStatus) error {
	if status == "" {
		return core.Conflict("savings goal %d is no longer active", id)
	}
	return core.Conflict("savings goal %d is %s; only active goals accept changes", id, status)
}
