package core

import "slices"

// ProjectedExpenseStatus is the lifecycle state of a projected expense.
type ProjectedExpenseStatus string

const (
	ProjectedPlanned   ProjectedExpenseStatus = "planned"
	ProjectedCommitted ProjectedExpenseStatus = "committed"
	ProjectedPaid      ProjectedExpenseStatus = "paid"
	ProjectedCancelled ProjectedExpenseStatus = "cancelled"
)

var projectedExpenseTransitions = map[ProjectedExpenseStatus][]ProjectedExpenseStatus{
	ProjectedPlanned:   {ProjectedCommitted, ProjectedCancelled},
	ProjectedCommitted: {ProjectedPaid, ProjectedCancelled},
	ProjectedPaid:      {},
	ProjectedCancelled: {},
}

// ProjectedExpenseStatuses lists every known status in lifecycle order.
func ProjectedExpenseStatuses() []ProjectedExpenseStatus {
	return []ProjectedExpenseStatus{ProjectedPlanned, ProjectedCommitted, ProjectedPaid, ProjectedCancelled}
}

func (s ProjectedExpenseStatus) Valid() bool {
	_, ok := projectedExpenseTransitions[s]
	return ok
}

// Next returns the statuses reachable from s in one transition.
func (s ProjectedExpenseStatus) Next() []ProjectedExpenseStatus {
	return slices.Clone(projectedExpenseTransitions[s])
}

// CanTransitionTo reports whether s -> to is a legal transition.
func (s ProjectedExpenseStatus) CanTransitionTo(to ProjectedExpenseStatus) bool {
	return slices.Contains(projectedExpenseTransitions[s], to)
}

func (s ProjectedExpenseStatus) Terminal() bool {
	return s.Valid() && len(projectedExpenseTransitions[s]) == 0
}

// Editable reports whether free-form field edits are allowed in s.
func (s ProjectedExpenseStatus) Editable() bool {
	return s == ProjectedPlanned || s == ProjectedCommitted
}

func (s ProjectedExpenseStatus) Deletable() bool {
	return s == ProjectedPlanned
}

// SavingsGoalStatus is the lifecycle state of a savings goal.
type SavingsGoalStatus string

const (
	GoalActive    SavingsGoalStatus = "active"
	GoalCompleted SavingsGoalStatus = "completed"
	GoalAbandoned SavingsGoalStatus = "abandoned"
)

var savingsGoalTransitions = map[SavingsGoalStatus][]SavingsGoalStatus{
	GoalActive:    {GoalCompleted, GoalAbandoned},
	GoalCompleted: {},
	GoalAbandoned: {},
}

func (s SavingsGoalStatus) Valid() bool {
	_, ok := savingsGoalTransitions[s]
	return ok
}

func (s SavingsGoalStatus) Next() []SavingsGoalStatus {
	return slices.Clone(savingsGoalTransitions[s])
}

func (s SavingsGoalStatus) CanTransitionTo(to SavingsGoalStatus) bool {
	return slices.Contains(savingsGoalTransitions[s], to)
}

func (s SavingsGoalStatus) Terminal() bool {
	return s.Valid() && len(savingsGoalTransitions[s]) == 0
}

// AcceptsChanges reports whether edits and contributions are allowed in s.
func (s SavingsGoalStatus) AcceptsChanges() bool {
	return s == GoalActive
}
