package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"famfin/internal/core"
	applog "famfin/internal/log"

	"github.com/shopspring/decimal"
)

var decimalOne = decimal.NewFromInt(1)

// EvaluateCategoryBudget sums the expense transactions of the budget's
// category dated inside window and classifies the spend against the limit.
func EvaluateCategoryBudget(b core.CategoryBudget, window core.BudgetWindow, txs []core.Transaction) core.BudgetEvaluation {
	var spent int64
	for _, tx := range txs {
		if tx.Type != core.TransactionExpense || tx.Category != b.Category {
			continue
		}
		if !tx.TransactionDate.Within(window.Start, window.End) {
			continue
		}
		spent += core.AbsCents(tx.AmountCents)
	}

	utilisation := decimal.Zero
	if b.LimitAmountCents > 0 {
		utilisation = decimal.NewFromInt(spent).Div(decimal.NewFromInt(b.LimitAmountCents))
	}

	threshold := decimal.NewFromFloat(b.WarningThreshold)

	status := core.BudgetOK
	switch {
	case utilisation.GreaterThanOrEqual(decimalOne):
		status = core.BudgetOver
	case utilisation.GreaterThanOrEqual(threshold):
		status = core.BudgetWarning
	}

	return core.BudgetEvaluation{
		BudgetID:             b.ID,
		Category:             b.Category,
		Period:               b.Period,
		Window:               window,
		LimitAmountCents:     b.LimitAmountCents,
		SpentAmountCents:     spent,
		RemainingAmountCents: max(b.LimitAmountCents-spent, 0),
		Utilisation:          utilisation.Round(4).InexactFloat64(),
		Status:               status,
	}
}

// BudgetWindow resolves the date range a budget covers around ref. Explicit
// bounds win; otherwise monthly budgets use ref's calendar month and cycle
// budgets use the billing cycle of card that contains ref.
func BudgetWindow(b core.CategoryBudget, ref core.Date, card *core.CreditCard) (core.BudgetWindow, error) {
	if b.PeriodStart != nil && b.PeriodEnd != nil {
		return core.BudgetWindow{Start: *b.PeriodStart, End: *b.PeriodEnd}, nil
	}
	switch b.Period {
	case core.PeriodMonthly:
		start, end := core.MonthBounds(ref)
		return core.BudgetWindow{Start: start, End: end}, nil
	case core.PeriodCycle:
		if card == nil {
			start, end := core.MonthBounds(ref)
			return core.BudgetWindow{Start: start, End: end}, nil
		}
		statement := NextMonthlyOccurrence(ref, card.StatementDay)
		return core.BudgetWindow{
			Start: CycleStartForStatement(statement, card.CycleAnchorDay),
			End:   statement,
		}, nil
	}
	return core.BudgetWindow{}, core.Fatal("unsupported budget period %q", b.Period)
}

// CategoryBudgetStore is the storage CategoryBudgetService needs.
type CategoryBudgetStore interface {
	GetCreditCard(ctx context.Context, id int64) (core.CreditCard, error)
	ListExpenseTransactions(ctx context.Context, userID int64, category string, start, end core.Date) ([]core.Transaction, error)
	CreateCategoryBudget(ctx context.Context, b core.CategoryBudget) (core.CategoryBudget, error)
	GetCategoryBudget(ctx context.Context, id int64) (core.CategoryBudget, error)
	ListCategoryBudgets(ctx context.Context, userID int64, activeOnly bool) ([]core.CategoryBudget, error)
	UpdateCategoryBudget(ctx context.Context, b core.CategoryBudget) (core.CategoryBudget, error)
}

type CategoryBudgetService struct {
	store            CategoryBudgetStore
	clock            Clock
	defaultThreshold float64
}

// NewCategoryBudgetService returns a service whose new budgets default to
// defaultThreshold; a non-positive value means core.DefaultWarningThreshold.
func NewCategoryBudgetService(store CategoryBudgetStore, clock Clock, defaultThreshold float64) *CategoryBudgetService {
	if defaultThreshold <= 0 {
		defaultThreshold = core.DefaultWarningThreshold
	}
	return &CategoryBudgetService{store: store, clock: clock, defaultThreshold: defaultThreshold}
}

type CreateCategoryBudgetInput struct {
	Category         string            `json:"category"`
	Period           core.BudgetPeriod `json:"period"`
	LimitAmountCents int64             `json:"limitAmountCents"`
	WarningThreshold *float64          `json:"warningThreshold"`
	PeriodStart      *core.Date        `json:"periodStart"`
	PeriodEnd        *core.Date        `json:"periodEnd"`
	CreditCardID     *int64            `json:"creditCardId"`
}

type CategoryBudgetPatch struct {
	Category         *string            `json:"category"`
	Period           *core.BudgetPeriod `json:"period"`
	LimitAmountCents *int64             `json:"limitAmountCents"`
	WarningThreshold *float64           `json:"warningThreshold"`
	PeriodStart      *core.Date         `json:"periodStart"`
	PeriodEnd        *core.Date         `json:"periodEnd"`
	ClearPeriod      bool               `json:"clearPeriod"`
	CreditCardID     *int64             `json:"creditCardId"`
	ClearCreditCard  bool               `json:"clearCreditCard"`
	Active           *bool              `json:"active"`
}

func (s *CategoryBudgetService) Create(ctx context.Context, userID int64, in CreateCategoryBudgetInput) (core.CategoryBudget, error) {
	now := s.clock.now()
	b := core.CategoryBudget{
		UserID:           userID,
		Category:         strings.TrimSpace(in.Category),
		Period:           in.Period,
		LimitAmountCents: in.LimitAmountCents,
		WarningThreshold: s.defaultThreshold,
		PeriodStart:      in.PeriodStart,
		PeriodEnd:        in.PeriodEnd,
		CreditCardID:     in.CreditCardID,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if b.Period == "" {
		b.Period = core.PeriodMonthly
	}
	if in.WarningThreshold != nil {
		b.WarningThreshold = *in.WarningThreshold
	}
	if err := b.Validate(); err != nil {
		return core.CategoryBudget{}, err
	}
	if _, err := s.ownedCard(ctx, userID, b.CreditCardID); err != nil {
		return core.CategoryBudget{}, err
	}
	created, err := s.store.CreateCategoryBudget(ctx, b)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	slog.InfoContext(ctx, "Category budget created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldUserID, userID,
		applog.FieldBudgetID, created.ID,
		"category", created.Category)
	return created, nil
}

func (s *CategoryBudgetService) Get(ctx context.Context, userID, id int64) (core.CategoryBudget, error) {
	b, err := s.store.GetCategoryBudget(ctx, id)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	if b.UserID != userID {
		return core.CategoryBudget{}, core.NotFound("category budget", id)
	}
	return b, nil
}

func (s *CategoryBudgetService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.CategoryBudget, error) {
	out, err := s.store.ListCategoryBudgets(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.CategoryBudget{}
	}
	return out, nil
}

func (s *CategoryBudgetService) Update(ctx context.Context, userID, id int64, patch CategoryBudgetPatch) (core.CategoryBudget, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.CategoryBudget{}, err
	}
	if patch.Category != nil {
		b.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Period != nil {
		b.Period = *patch.Period
	}
	if patch.LimitAmountCents != nil {
		b.LimitAmountCents = *patch.LimitAmountCents
	}
	if patch.WarningThreshold != nil {
		b.WarningThreshold = *patch.WarningThreshold
	}
	if patch.ClearPeriod {
		b.PeriodStart, b.PeriodEnd = nil, nil
	} else {
		if patch.PeriodStart != nil {
			b.PeriodStart = patch.PeriodStart
		}
		if patch.PeriodEnd != nil {
			b.PeriodEnd = patch.PeriodEnd
		}
	}
	if patch.ClearCreditCard {
		b.CreditCardID = nil
	} else if patch.CreditCardID != nil {
		b.CreditCardID = patch.CreditCardID
	}
	if patch.Active != nil {
		b.Active = *patch.Active
	}
	b.UpdatedAt = s.clock.now()

	if err := b.Validate(); err != nil {
		return core.CategoryBudget{}, err
	}
	if _, err := s.ownedCard(ctx, userID, b.CreditCardID); err != nil {
		return core.CategoryBudget{}, err
	}
	return s.store.UpdateCategoryBudget(ctx, b)
}

// Evaluate computes the utilisation of one budget for the period around ref
// (today when nil).
func (s *CategoryBudgetService) Evaluate(ctx context.Context, userID, id int64, ref *core.Date) (core.BudgetEvaluation, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.BudgetEvaluation{}, err
	}
	return s.evaluate(ctx, b, s.refOrToday(ref))
}

// EvaluateAll evaluates every active budget of userID.
func (s *CategoryBudgetService) EvaluateAll(ctx context.Context, userID int64, ref *core.Date) ([]core.BudgetEvaluation, error) {
	budgets, err := s.store.ListCategoryBudgets(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	day := s.refOrToday(ref)
	out := make([]core.BudgetEvaluation, 0, len(budgets))
	for _, b := range budgets {
		ev, err := s.evaluate(ctx, b, day)
		if err != nil {
			return nil, fmt.Errorf("evaluate budget %d: %w", b.ID, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *CategoryBudgetService) evaluate(ctx context.Context, b core.CategoryBudget, ref core.Date) (core.BudgetEvaluation, error) {
	var card *core.CreditCard
	if b.Period == core.PeriodCycle {
		c, err := s.ownedCard(ctx, b.UserID, b.CreditCardID)
		if err != nil {
			return core.BudgetEvaluation{}, err
		}
		card = c
	}
	window, err := BudgetWindow(b, ref, card)
	if err != nil {
		return core.BudgetEvaluation{}, err
	}
	txs, err := s.store.ListExpenseTransactions(ctx, b.UserID, b.Category, window.Start, window.End)
	if err != nil {
		return core.BudgetEvaluation{}, err
	}
	return EvaluateCategoryBudget(b, window, txs), nil
}

func (s *CategoryBudgetService) ownedCard(ctx context.Context, userID int64, cardID *int64) (*core.CreditCard, error) {
	if cardID == nil {
		return nil, nil
	}
	card, err := s.store.GetCreditCard(ctx, *cardID)
	if err != nil {
		return nil, err
	}
	if card.UserID != userID {
		return nil, core.NotFound("credit card", *cardID)
	}
	return &card, nil
}

func (s *CategoryBudgetService) refOrToday(ref *core.Date) core.Date {
	if ref != nil {
		return *ref
	}
	return s.clock.today()
}
