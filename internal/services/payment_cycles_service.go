package services

import (
	"context"
	"log/slog"

	"famfin/internal/core"
	applog "famfin/internal/log"
)

// PaymentCycleStore is the storage PaymentCyclesService needs.
type PaymentCycleStore interface {
	GetCreditCard(ctx context.Context, id int64) (core.CreditCard, error)
	ListActiveCreditCards(ctx context.Context, userID int64) ([]core.CreditCard, error)
	GetCycle(ctx context.Context, id int64) (core.CreditCardCycle, error)
	ListOpenCycles(ctx context.Context, cardIDs []int64) ([]core.CreditCardCycle, error)
	SetCyclePaymentRecordedOn(ctx context.Context, cycleID int64, on *core.Date) (bool, error)
}

// PaymentCyclesService reports where each card stands in its billing cycle.
type PaymentCyclesService struct {
	store PaymentCycleStore
	clock Clock
}

func NewPaymentCyclesService(store PaymentCycleStore, clock Clock) *PaymentCyclesService {
	return &PaymentCyclesService{store: store, clock: clock}
}

// RecordPaymentInput either sets the recorded payment date or clears it.
type RecordPaymentInput struct {
	PaymentRecordedOn *core.Date `json:"paymentRecordedOn"`
	Clear             bool       `json:"clear"`
}

func (in RecordPaymentInput) Validate() error {
	if in.Clear && in.PaymentRecordedOn != nil {
		return core.InvalidInput("clear", "cannot set and clear the payment date at once")
	}
	if !in.Clear && in.PaymentRecordedOn == nil {
		return core.InvalidInput("paymentRecordedOn", "a payment date or clear=true is required")
	}
	return nil
}

// Summarize returns one summary per active card of the user, ordered by the
// nearest due date.
func (s *PaymentCyclesService) Summarize(ctx context.Context, userID int64, asOf *core.Date) ([]core.CycleSummary, error) {
	ref := s.clock.today()
	if asOf != nil {
		ref = *asOf
	}

	cards, err := s.store.ListActiveCreditCards(ctx, userID)
	if err != nil {
		return nil, err
	}
	cardIDs := make([]int64, len(cards))
	for i, c := range cards {
		cardIDs[i] = c.ID
	}
	cycles, err := s.store.ListOpenCycles(ctx, cardIDs)
	if err != nil {
		return nil, err
	}

	openByCard := make(map[int64]core.CreditCardCycle, len(cycles))
	for _, c := range cycles {
		if prev, ok := openByCard[c.CreditCardID]; ok && prev.CycleNumber > c.CycleNumber {
			continue
		}
		openByCard[c.CreditCardID] = c
	}

	summaries := make([]core.CycleSummary, 0, len(cards))
	for _, card := range cards {
		var open *core.CreditCardCycle
		if c, ok := openByCard[card.ID]; ok {
			open = &c
		}
		summaries = append(summaries, SummarizeCard(card, open, ref))
	}
	SortCycleSummaries(summaries)
	return summaries, nil
}

// UpcomingCycle computes the next cycle of a card owned by userID.
func (s *PaymentCyclesService) UpcomingCycle(ctx context.Context, userID, cardID int64, ref *core.Date) (core.UpcomingCycle, error) {
	card, err := s.ownedCard(ctx, userID, cardID)
	if err != nil {
		return core.UpcomingCycle{}, err
	}
	day := s.clock.today()
	if ref != nil {
		day = *ref
	}
	return ComputeUpcomingCycle(card, day), nil
}

// RecordPayment sets or clears the recorded payment date of an open cycle and
// returns the refreshed summary of its card.
func (s *PaymentCyclesService) RecordPayment(ctx context.Context, userID, cycleID int64, in RecordPaymentInput) (core.CycleSummary, error) {
	if err := in.Validate(); err != nil {
		return core.CycleSummary{}, err
	}

	cycle, err := s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return core.CycleSummary{}, err
	}
	card, err := s.store.GetCreditCard(ctx, cycle.CreditCardID)
	if err != nil {
		return core.CycleSummary{}, err
	}
	if card.UserID != userID {
		return core.CycleSummary{}, core.NotFound("cycle", cycleID)
	}
	if !cycle.IsOpen() {
		return core.CycleSummary{}, core.Conflict("cycle %d is closed", cycleID)
	}

	on := in.PaymentRecordedOn
	if in.Clear {
		on = nil
	}
	ok, err := s.store.SetCyclePaymentRecordedOn(ctx, cycleID, on)
	if err != nil {
		return core.CycleSummary{}, err
	}
	if !ok {
		return core.CycleSummary{}, core.Conflict("cycle %d was closed concurrently", cycleID)
	}

	cycle, err = s.store.GetCycle(ctx, cycleID)
	if err != nil {
		return core.CycleSummary{}, err
	}

	slog.InfoContext(ctx, "Recorded cycle payment",
		applog.FieldUserID, userID,
		applog.FieldCardID, card.ID,
		applog.FieldCycleID, cycleID,
		"cleared", in.Clear)

	return SummarizeCard(card, &cycle, s.clock.today()), nil
}

func (s *PaymentCyclesService) ownedCard(ctx context.Context, userID, cardID int64) (core.CreditCard, error) {
	card, err := s.store.GetCreditCard(ctx, cardID)
	if err != nil {
		return core.CreditCard{}, err
	}
	if card.UserID != userID {
		return core.CreditCard{}, core.NotFound("credit card", cardID)
	}
	return card, nil
}
