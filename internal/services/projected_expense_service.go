package services

import (
	"context"
	"log/slog"
	"strings"

	"famfin/internal/core"
	applog "famfin/internal/log"
	"famfin/internal/storage"
)

// ProjectedExpenseStore is the storage ProjectedExpenseService needs.
type ProjectedExpenseStore interface {
	GetCreditCard(ctx context.Context, id int64) (core.CreditCard, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	CreateProjectedExpense(ctx context.Context, e core.ProjectedExpense) (core.ProjectedExpense, error)
	GetProjectedExpense(ctx context.Context, id int64) (core.ProjectedExpense, error)
	ListProjectedExpenses(ctx context.Context, userID int64, status core.ProjectedExpenseStatus) ([]core.ProjectedExpense, error)
	UpdateProjectedExpenseFields(ctx context.Context, e core.ProjectedExpense, expected core.ProjectedExpenseStatus) (bool, error)
	TransitionProjectedExpense(ctx context.Context, arg storage.TransitionProjectedExpenseParams) (bool, error)
	DeletePlannedProjectedExpense(ctx context.Context, id int64) (bool, error)
}

// ProjectedExpenseService manages planned spending and its lifecycle.
type ProjectedExpenseService struct {
	store ProjectedExpenseStore
	clock Clock
}

func NewProjectedExpenseService(store ProjectedExpenseStore, clock Clock) *ProjectedExpenseService {
	return &ProjectedExpenseService{store: store, clock: clock}
}

type CreateProjectedExpenseInput struct {
	AmountCents  int64     `json:"amountCents"`
	Category     string    `json:"category"`
	Description  string    `json:"description"`
	ExpectedDate core.Date `json:"expectedDate"`
	CreditCardID *int64    `json:"creditCardId"`
	Notes        string    `json:"notes"`
}

// ProjectedExpensePatch holds the fields to change; nil fields stay as they are.
type ProjectedExpensePatch struct {
	AmountCents     *int64     `json:"amountCents"`
	Category        *string    `json:"category"`
	Description     *string    `json:"description"`
	ExpectedDate    *core.Date `json:"expectedDate"`
	CreditCardID    *int64     `json:"creditCardId"`
	ClearCreditCard bool       `json:"clearCreditCard"`
	Notes           *string    `json:"notes"`
}

// TransitionPayload carries the optional data of a status change.
type TransitionPayload struct {
	Reason        string `json:"reason"`
	TransactionID *int64 `json:"transactionId"`
}

func (s *ProjectedExpenseService) Create(ctx context.Context, userID int64, in CreateProjectedExpenseInput) (core.ProjectedExpense, error) {
	now := s.clock.now()
	e := core.ProjectedExpense{
		UserID:       userID,
		AmountCents:  in.AmountCents,
		Category:     strings.TrimSpace(in.Category),
		Description:  strings.TrimSpace(in.Description),
		ExpectedDate: in.ExpectedDate,
		Status:       core.ProjectedPlanned,
		CreditCardID: in.CreditCardID,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.Validate(); err != nil {
		return core.ProjectedExpense{}, err
	}
	if err := s.checkCard(ctx, userID, e.CreditCardID); err != nil {
		return core.ProjectedExpense{}, err
	}

	created, err := s.store.CreateProjectedExpense(ctx, e)
	if err != nil {
		return core.ProjectedExpense{}, err
	}
	slog.InfoContext(ctx, "Projected expense created",
		applog.FieldOperation, applog.OpCreate,
		applog.FieldUserID, userID,
		"projected_expense_id", created.ID,
		applog.FieldAmountCents, created.AmountCents,
		"expected_date", created.ExpectedDate.String())
	return created, nil
}

// Get returns a projected expense owned by userID.
func (s *ProjectedExpenseService) Get(ctx context.Context, userID, id int64) (core.ProjectedExpense, error) {
	e, err := s.store.GetProjectedExpense(ctx, id)
	if err != nil {
		return core.ProjectedExpense{}, err
	}
	if e.UserID != userID {
		return core.ProjectedExpense{}, core.NotFound("projected expense", id)
	}
	return e, nil
}

func (s *ProjectedExpenseService) List(ctx context.Context, userID int64, status core.ProjectedExpenseStatus) ([]core.ProjectedExpense, error) {
	if status != "" && !status.Valid() {
		return nil, core.InvalidInput("status", "unknown status %q", status)
	}
	out, err := s.store.ListProjectedExpenses(ctx, userID, status)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []core.ProjectedExpense{}
	}
	return out, nil
}

// Update applies a patch while the expense is planned or committed.
func (s *ProjectedExpenseService) Update(ctx context.Context, userID, id int64, patch ProjectedExpensePatch) (core.ProjectedExpense, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.ProjectedExpense{}, err
	}
	if !current.Status.Editable() {
		return core.ProjectedExpense{}, core.Conflict("projected expense %d is %s and can no longer be edited", id, current.Status)
	}

	next := current
	if patch.AmountCents != nil {
		next.AmountCents = *patch.AmountCents
	}
	if patch.Category != nil {
		next.Category = strings.TrimSpace(*patch.Category)
	}
	if patch.Description != nil {
		next.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.ExpectedDate != nil {
		next.ExpectedDate = *patch.ExpectedDate
	}
	if patch.ClearCreditCard {
		next.CreditCardID = nil
	} else if patch.CreditCardID != nil {
		next.CreditCardID = patch.CreditCardID
	}
	if patch.Notes != nil {
		next.Notes = *patch.Notes
	}
	next.UpdatedAt = s.clock.now()

	if err := next.Validate(); err != nil {
		return core.ProjectedExpense{}, err
	}
	if err := s.checkCard(ctx, userID, next.CreditCardID); err != nil {
		return core.ProjectedExpense{}, err
	}

	ok, err := s.store.UpdateProjectedExpenseFields(ctx, next, current.Status)
	if err != nil {
		return core.ProjectedExpense{}, err
	}
	if !ok {
		return core.ProjectedExpense{}, staleProjectedExpense(id, current.Status)
	}
	return s.store.GetProjectedExpense(ctx, id)
}

// Transition moves a projected expense to target, enforcing the lifecycle.
func (s *ProjectedExpenseService) Transition(ctx context.Context, userID, id int64, target core.ProjectedExpenseStatus, payload TransitionPayload) (core.ProjectedExpense, error) {
	if !target.Valid() {
		return core.ProjectedExpense{}, core.InvalidInput("status", "unknown status %q", target)
	}
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return core.ProjectedExpense{}, err
	}
	if !current.Status.CanTransitionTo(target) {
		return core.ProjectedExpense{}, core.Conflict("cannot move projected expense %d from %s to %s", id, current.Status, target)
	}
	if payload.TransactionID != nil {
		if target != core.ProjectedPaid {
			return core.ProjectedExpense{}, core.InvalidInput("transactionId", "only a paid expense links a settling transaction")
		}
		tx, err := s.store.GetTransaction(ctx, *payload.TransactionID)
		if err != nil {
			return core.ProjectedExpense{}, err
		}
		if tx.UserID != userID {
			return core.ProjectedExpense{}, core.NotFound("transaction", *payload.TransactionID)
		}
	}
	reason := strings.TrimSpace(payload.Reason)
	if target != core.ProjectedCancelled {
		reason = ""
	}

	ok, err := s.store.TransitionProjectedExpense(ctx, storage.TransitionProjectedExpenseParams{
		ID:            id,
		From:          current.Status,
		To:            target,
		At:            s.clock.now(),
		Reason:        reason,
		TransactionID: payload.TransactionID,
	})
	if err != nil {
		return core.ProjectedExpense{}, err
	}
	if !ok {
		return core.ProjectedExpense{}, staleProjectedExpense(id, current.Status)
	}

	slog.InfoContext(ctx, "Projected expense transitioned",
		applog.FieldOperation, applog.OpTransition,
		applog.FieldUserID, userID,
		"projected_expense_id", id,
		"from", current.Status,
		"to", target)

	return s.store.GetProjectedExpense(ctx, id)
}

// Delete removes a projected expense that is still planned.
func (s *ProjectedExpenseService) Delete(ctx context.Context, userID, id int64) error {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if !current.Status.Deletable() {
		return core.Conflict("projected expense %d is %s; only planned expenses can be deleted", id, current.Status)
	}
	ok, err := s.store.DeletePlannedProjectedExpense(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return staleProjectedExpense(id, current.Status)
	}
	return nil
}

func (s *ProjectedExpenseService) checkCard(ctx context.Context, userID int64, cardID *int64) error {
	if cardID == nil {
		return nil
	}
	card, err := s.store.GetCreditCard(ctx, *cardID)
	if err != nil {
		return err
	}
	if card.UserID != userID {
		return core.NotFound("credit card", *cardID)
	}
	return nil
}

func staleProjectedExpense(id int64, seen core.ProjectedExpenseStatus) error {
	return core.Conflict("projected expense %d changed concurrently; it is no longer %s", id, seen)
}
