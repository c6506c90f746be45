package core

// UpcomingCycle is a billing period derived purely from a card's day-of-month
// configuration and a reference date.
type UpcomingCycle struct {
	CycleStartDate      Date `json:"cycleStartDate"`
	StatementDate       Date `json:"statementDate"`
	PaymentDueDate      Date `json:"paymentDueDate"`
	DaysUntilStatement  int  `json:"daysUntilStatement"`
	DaysUntilPaymentDue int  `json:"daysUntilPaymentDue"`
}

// CurrentCycle describes a card's stored open cycle as of a reference date.
type CurrentCycle struct {
	CycleID               int64 `json:"cycleId"`
	CycleNumber           int   `json:"cycleNumber"`
	CycleStartDate        Date  `json:"cycleStartDate"`
	StatementDate         Date  `json:"statementDate"`
	PaymentDueDate        Date  `json:"paymentDueDate"`
	StatementBalanceCents int64 `json:"statementBalanceCents"`
	MinimumPaymentCents   int64 `json:"minimumPaymentCents"`
	PaymentRecordedOn     *Date `json:"paymentRecordedOn"`
	IsOverdue             bool  `json:"isOverdue"`
	IsPaid                bool  `json:"isPaid"`
	DaysUntilDue          int   `json:"daysUntilDue"`
	DaysSinceStatement    int   `json:"daysSinceStatement"`
}

// CycleSummary combines a card's open cycle, if any, with its computed next cycle.
type CycleSummary struct {
	CardID                  int64          `json:"cardId"`
	CardName                string         `json:"cardName"`
	Autopay                 bool           `json:"autopay"`
	CurrentCycle            *CurrentCycle  `json:"currentCycle"`
	UpcomingCycle           *UpcomingCycle `json:"upcomingCycle"`
	RecommendedPaymentCents int64          `json:"recommendedPaymentCents"`
}

// NearestDueDate is the current cycle's due date, else the upcoming one's.
func (s CycleSummary) NearestDueDate() *Date {
	if s.CurrentCycle != nil {
		d := s.CurrentCycle.PaymentDueDate
		return &d
	}
	if s.UpcomingCycle != nil {
		d := s.UpcomingCycle.PaymentDueDate
		return &d
	}
	return nil
}

type BudgetStatus string

const (
	BudgetOK      BudgetStatus = "ok"
	BudgetWarning BudgetStatus = "warning"
	BudgetOver    BudgetStatus = "over"
)

// BudgetWindow is an inclusive date range a budget applies to.
type BudgetWindow struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

type BudgetEvaluation struct {
	BudgetID             int64        `json:"budgetId"`
	Category             string       `json:"category"`
	Period               BudgetPeriod `json:"period"`
	Window               BudgetWindow `json:"window"`
	LimitAmountCents     int64        `json:"limitAmountCents"`
	SpentAmountCents     int64        `json:"spentAmountCents"`
	RemainingAmountCents int64        `json:"remainingAmountCents"`
	Utilisation          float64      `json:"utilisation"`
	Status               BudgetStatus `json:"status"`
}

// GoalProgress is a savings goal with its totals recomputed from the ledger.
type GoalProgress struct {
	SavingsGoal
	TotalContributionsCents int64   `json:"totalContributionsCents"`
	RemainingCents          int64   `json:"remainingCents"`
	ProgressRatio           float64 `json:"progressRatio"`
}
