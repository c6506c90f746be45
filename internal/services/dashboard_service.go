package services

import (
	"context"
	"errors"
	"fmt"

	"famfin/internal/core"

	"golang.org/x/sync/errgroup"
)

// Dashboard gathers the figures a household looks at daily. Safe-to-spend
// is left to the reader: LatestSnapshot and OutstandingSavingsCents are its
// inputs.
type Dashboard struct {
	UserID                  int64                   `json:"userId"`
	AsOf                    core.Date               `json:"asOf"`
	LatestSnapshot          *core.AgencySnapshot    `json:"latestSnapshot"`
	PaymentCycles           []core.CycleSummary     `json:"paymentCycles"`
	OutstandingSavingsCents int64                   `json:"outstandingSavingsCents"`
	BudgetEvaluations       []core.BudgetEvaluation `json:"budgetEvaluations"`
}

type DashboardService struct {
	agency  *AgencyService
	cycles  *PaymentCyclesService
	savings *SavingsGoalService
	budgets *CategoryBudgetService
	clock   Clock
}

func NewDashboardService(agency *AgencyService, cycles *PaymentCyclesService, savings *SavingsGoalService,
	budgets *CategoryBudgetService, clock Clock) *DashboardService {
	return &DashboardService{agency: agency, cycles: cycles, savings: savings, budgets: budgets, clock: clock}
}

// Build assembles the dashboard of userID as of asOf (today when nil).
func (s *DashboardService) Build(ctx context.Context, userID int64, asOf *core.Date) (Dashboard, error) {
	day := s.clock.today()
	if asOf != nil {
		day = *asOf
	}
	d := Dashboard{UserID: userID, AsOf: day}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := s.agency.Latest(gctx, userID)
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("latest snapshot: %w", err)
		}
		d.LatestSnapshot = &snap
		return nil
	})
	g.Go(func() error {
		summaries, err := s.cycles.Summarize(gctx, userID, &day)
		if err != nil {
			return fmt.Errorf("payment cycles: %w", err)
		}
		d.PaymentCycles = summaries
		return nil
	})
	g.Go(func() error {
		outstanding, err := s.savings.OutstandingCommitments(gctx, userID)
		if err != nil {
			return fmt.Errorf("outstanding savings: %w", err)
		}
		d.OutstandingSavingsCents = outstanding
		return nil
	})
	g.Go(func() error {
		evals, err := s.budgets.EvaluateAll(gctx, userID, &day)
		if err != nil {
			return fmt.Errorf("budget evaluations: %w", err)
		}
		d.BudgetEvaluations = evals
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
