package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"famfin/internal/core"
	applog "famfin/internal/log"

	"golang.org/x/sync/errgroup"
)

// AgencyStore is the storage AgencyService needs.
type AgencyStore interface {
	ListActiveCreditCards(ctx context.Context, userID int64) ([]core.CreditCard, error)
	ListOpenCycles(ctx context.Context, cardIDs []int64) ([]core.CreditCardCycle, error)
	ListActiveIncomeStreams(ctx context.Context, userID int64) ([]core.IncomeStream, error)
	ListExpenseTransactions(ctx context.Context, userID int64, category string, start, end core.Date) ([]core.Transaction, error)
	UpsertAgencySnapshot(ctx context.Context, s core.AgencySnapshot) (core.AgencySnapshot, error)
	GetAgencySnapshot(ctx context.Context, userID int64, calculatedFor core.Date) (core.AgencySnapshot, error)
	GetLatestAgencySnapshot(ctx context.Context, userID int64) (core.AgencySnapshot, error)
	ListAgencySnapshots(ctx context.Context, userID int64, from, to core.Date) ([]core.AgencySnapshot, error)
}

// SnapshotPublisher announces freshly calculated snapshots.
type SnapshotPublisher interface {
	PublishSnapshotCalculated(ctx context.Context, s core.AgencySnapshot) error
}

// SnapshotCache keeps recently read or written snapshots in memory.
type SnapshotCache interface {
	Get(userID int64, calculatedFor core.Date) (core.AgencySnapshot, bool)
	Put(s core.AgencySnapshot)
}

// AgencyService calculates, stores and serves agency snapshots.
type AgencyService struct {
	store     AgencyStore
	publisher SnapshotPublisher
	cache     SnapshotCache
	cfg       AgencyConfig
	clock     Clock
}

// AgencyOption customises an AgencyService.
type AgencyOption func(*AgencyService)

// WithSnapshotPublisher publishes every calculated snapshot.
func WithSnapshotPublisher(p SnapshotPublisher) AgencyOption {
	return func(s *AgencyService) { s.publisher = p }
}

// WithSnapshotCache serves snapshot reads from c and refreshes it on write.
func WithSnapshotCache(c SnapshotCache) AgencyOption {
	return func(s *AgencyService) { s.cache = c }
}

func WithClock(c Clock) AgencyOption {
	return func(s *AgencyService) { s.clock = c }
}

func NewAgencyService(store AgencyStore, cfg AgencyConfig, opts ...AgencyOption) *AgencyService {
	s := &AgencyService{store: store, cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalculateInput carries the optional arguments of a calculation.
type CalculateInput struct {
	CalculatedFor *core.Date `json:"calculatedFor"`
	Notes         string     `json:"notes"`
}

// CalculateResult is the stored snapshot plus the breakdown behind it.
type CalculateResult struct {
	Snapshot core.AgencySnapshot `json:"snapshot"`
	Figures  AgencyFigures       `json:"figures"`
}

// Calculate computes the agency snapshot of userID for a date (today when
// absent) and stores it, replacing any snapshot of the same date.
func (s *AgencyService) Calculate(ctx context.Context, userID int64, in CalculateInput) (CalculateResult, error) {
	calculatedFor := s.clock.today()
	if in.CalculatedFor != nil {
		if in.CalculatedFor.IsZero() {
			return CalculateResult{}, core.InvalidInput("calculatedFor", "date is required")
		}
		calculatedFor = *in.CalculatedFor
	}
	if len(in.Notes) > 1000 {
		return CalculateResult{}, core.InvalidInput("notes", "too long (max 1000 characters)")
	}

	inputs, err := s.loadInputs(ctx, userID, calculatedFor)
	if err != nil {
		return CalculateResult{}, err
	}

	figures, err := ComputeAgency(inputs, calculatedFor, s.cfg)
	if err != nil {
		slog.ErrorContext(ctx, "Agency calculation failed", applog.NewFields().
			WithComponent(applog.ComponentAgency).
			WithOperation(applog.OpCalculate).
			WithUser(userID).
			WithError(err).
			ToSlice()...)
		return CalculateResult{}, err
	}

	snapshot, err := s.store.UpsertAgencySnapshot(ctx,
		figures.Snapshot(userID, calculatedFor, strings.TrimSpace(in.Notes), s.clock.now()))
	if err != nil {
		return CalculateResult{}, fmt.Errorf("store agency snapshot: %w", err)
	}
	if s.cache != nil {
		s.cache.Put(snapshot)
	}

	fields := applog.NewFields().
		WithComponent(applog.ComponentAgency).
		WithOperation(applog.OpCalculate).
		WithSnapshot(snapshot.ID, userID, calculatedFor.String())
	fields["credit_agency_cents"] = snapshot.CreditAgencyCents
	fields["backed_agency_cents"] = snapshot.BackedAgencyCents
	slog.InfoContext(ctx, "Agency snapshot calculated", fields.ToSlice()...)

	if s.publisher != nil {
		if err := s.publisher.PublishSnapshotCalculated(ctx, snapshot); err != nil {
			// Export is eventually consistent; the worker sweep picks it up.
			slog.WarnContext(ctx, "Failed to publish snapshot event",
				applog.FieldSnapshotID, snapshot.ID, applog.FieldError, err)
		}
	}

	return CalculateResult{Snapshot: snapshot, Figures: figures}, nil
}

// loadInputs fetches independent inputs concurrently, then the open cycles of
// the fetched cards.
func (s *AgencyService) loadInputs(ctx context.Context, userID int64, calculatedFor core.Date) (AgencyInputs, error) {
	start, end := s.cfg.Window(calculatedFor)
	var in AgencyInputs

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cards, err := s.store.ListActiveCreditCards(gctx, userID)
		if err != nil {
			return fmt.Errorf("load credit cards: %w", err)
		}
		in.Cards = cards
		return nil
	})
	g.Go(func() error {
		streams, err := s.store.ListActiveIncomeStreams(gctx, userID)
		if err != nil {
			return fmt.Errorf("load income streams: %w", err)
		}
		in.IncomeStreams = streams
		return nil
	})
	g.Go(func() error {
		txs, err := s.store.ListExpenseTransactions(gctx, userID, "", start, end)
		if err != nil {
			return fmt.Errorf("load expense transactions: %w", err)
		}
		in.ExpenseTransactions = txs
		return nil
	})
	if err := g.Wait(); err != nil {
		return AgencyInputs{}, err
	}

	cardIDs := make([]int64, len(in.Cards))
	for i, c := range in.Cards {
		cardIDs[i] = c.ID
	}
	cycles, err := s.store.ListOpenCycles(ctx, cardIDs)
	if err != nil {
		return AgencyInputs{}, fmt.Errorf("load open cycles: %w", err)
	}
	in.OpenCycles = cycles
	return in, nil
}

// Get returns the snapshot of userID for a date.
func (s *AgencyService) Get(ctx context.Context, userID int64, calculatedFor core.Date) (core.AgencySnapshot, error) {
	if s.cache != nil {
		if snap, ok := s.cache.Get(userID, calculatedFor); ok {
			return snap, nil
		}
	}
	snap, err := s.store.GetAgencySnapshot(ctx, userID, calculatedFor)
	if err != nil {
		return core.AgencySnapshot{}, err
	}
	if s.cache != nil {
		s.cache.Put(snap)
	}
	return snap, nil
}

// Latest returns the most recent snapshot of userID.
func (s *AgencyService) Latest(ctx context.Context, userID int64) (core.AgencySnapshot, error) {
	return s.store.GetLatestAgencySnapshot(ctx, userID)
}

// List returns snapshots in [from, to]. Missing bounds default to the last
// 30 days up to today.
func (s *AgencyService) List(ctx context.Context, userID int64, from, to *core.Date) ([]core.AgencySnapshot, error) {
	end := s.clock.today()
	if to != nil {
		end = *to
	}
	start := core.AddDays(end, -30)
	if from != nil {
		start = *from
	}
	if end.Before(start) {
		return nil, core.InvalidInput("to", "range end precedes its start")
	}
	snaps, err := s.store.ListAgencySnapshots(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	if snaps == nil {
		snaps = []core.AgencySnapshot{}
	}
	return snaps, nil
}

// CalculateAll recalculates today's snapshot of every listed user, a few at a
// time. One user's failure does not stop the others.
func (s *AgencyService) CalculateAll(ctx context.Context, users UserLister, concurrency int) (int, error) {
	all, err := users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu   sync.Mutex
		done int
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, u := range all {
		g.Go(func() error {
			_, err := s.Calculate(gctx, u.ID, CalculateInput{})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("user %d: %w", u.ID, err))
				return nil
			}
			done++
			return nil
		})
	}
	_ = g.Wait()
	return done, errors.Join(errs...)
}
