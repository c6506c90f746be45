package services

import (
	"context"

	"famfin/internal/core"
)

// DefaultMaxRecurrenceSteps bounds how far a projection walks an income
// stream, both to reach the window and inside it.
const DefaultMaxRecurrenceSteps = 500

// IncomeProjection is the result of projecting one stream over a window.
type IncomeProjection struct {
	StreamID                 int64       `json:"streamId"`
	WindowStart              core.Date   `json:"windowStart"`
	WindowEnd                core.Date   `json:"windowEnd"`
	Count                    int         `json:"count"`
	PerOccurrenceAmountCents int64       `json:"perOccurrenceAmountCents"`
	TotalCents               int64       `json:"totalCents"`
	Occurrences              []core.Date `json:"occurrences"`
}

// IncomeProjector counts the occurrences of recurring income inside a window.
type IncomeProjector struct {
	MaxSteps int
}

func NewIncomeProjector(maxSteps int) IncomeProjector {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxRecurrenceSteps
	}
	return IncomeProjector{MaxSteps: maxSteps}
}

func (p IncomeProjector) maxSteps() int {
	if p.MaxSteps <= 0 {
		return DefaultMaxRecurrenceSteps
	}
	return p.MaxSteps
}

// Project enumerates the occurrences of stream within [start, end].
//
// Starting at the stream's next expected date, the occurrence pointer is
// advanced until it reaches start. If that takes more than MaxSteps
// intervals the stream is treated as having no occurrences in the window.
// Counting inside the window is bounded by MaxSteps as well. A stream without
// an anchor date never pays out.
func (p IncomeProjector) Project(stream core.IncomeStream, start, end core.Date) (IncomeProjection, error) {
	stepper, err := GetIntervalStepper(stream.Frequency)
	if err != nil {
		return IncomeProjection{}, err
	}

	proj := IncomeProjection{
		StreamID:                 stream.ID,
		WindowStart:              start,
		WindowEnd:                end,
		PerOccurrenceAmountCents: stepper.PayoutCents(stream.AmountCents),
		Occurrences:              []core.Date{},
	}
	if stream.NextExpectedDate == nil || stream.NextExpectedDate.IsZero() || end.Before(start) {
		return proj, nil
	}

	limit := p.maxSteps()
	occurrence := *stream.NextExpectedDate
	for steps := 0; occurrence.Before(start); steps++ {
		if steps >= limit {
			return proj, nil
		}
		occurrence = stepper.Next(occurrence)
	}

	for !occurrence.After(end) && len(proj.Occurrences) < limit {
		proj.Occurrences = append(proj.Occurrences, occurrence)
		occurrence = stepper.Next(occurrence)
	}

	proj.Count = len(proj.Occurrences)
	proj.TotalCents = int64(proj.Count) * proj.PerOccurrenceAmountCents
	return proj, nil
}

// IncomeStore is the storage IncomeService needs.
type IncomeStore interface {
	GetIncomeStream(ctx context.Context, id int64) (core.IncomeStream, error)
}

// IncomeService exposes stream projections to callers.
type IncomeService struct {
	store     IncomeStore
	projector IncomeProjector
}

func NewIncomeService(store IncomeStore, projector IncomeProjector) *IncomeService {
	return &IncomeService{store: store, projector: projector}
}

// ProjectStream projects a stored stream owned by userID.
func (s *IncomeService) ProjectStream(ctx context.Context, userID, streamID int64, start, end core.Date) (IncomeProjection, error) {
	if end.Before(start) {
		return IncomeProjection{}, core.InvalidInput("end", "window end precedes its start")
	}
	stream, err := s.store.GetIncomeStream(ctx, streamID)
	if err != nil {
		return IncomeProjection{}, err
	}
	if stream.UserID != userID {
		return IncomeProjection{}, core.NotFound("income stream", streamID)
	}
	return s.projector.Project(stream, start, end)
}
