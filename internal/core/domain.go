package core

import (
	"strings"
	"time"
)

const (
	FrequencyWeekly      IncomeFrequency = "weekly"
	FrequencyBiweekly    IncomeFrequency = "biweekly"
	FrequencySemimonthly IncomeFrequency = "semimonthly"
	FrequencyMonthly     IncomeFrequency = "monthly"
	FrequencyQuarterly   IncomeFrequency = "quarterly"
	FrequencyAnnually    IncomeFrequency = "annually"
)

const (
	TransactionExpense  TransactionType = "expense"
	TransactionIncome   TransactionType = "income"
	TransactionPayment  TransactionType = "payment"
	TransactionTransfer TransactionType = "transfer"
)

const (
	SourceManual     ContributionSource = "manual"
	SourceTransfer   ContributionSource = "transfer"
	SourceAutomation ContributionSource = "automation"
)

const (
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodCycle   BudgetPeriod = "cycle"
)

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// DefaultWarningThreshold is the budget utilisation at which a budget turns
// to warning when no threshold is given.
const DefaultWarningThreshold = 0.85

type (
	IncomeFrequency    string
	TransactionType    string
	ContributionSource string
	BudgetPeriod       string
	Role               string

	User struct {
		ID          int64     `json:"id"`
		Email       string    `json:"email"`
		DisplayName string    `json:"displayName"`
		Role        Role      `json:"role"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	CreditCard struct {
		ID               int64     `json:"id"`
		UserID           int64     `json:"userId"`
		Name             string    `json:"name"`
		CreditLimitCents int64     `json:"creditLimitCents"`
		CycleAnchorDay   int       `json:"cycleAnchorDay"`
		StatementDay     int       `json:"statementDay"`
		PaymentDueDay    int       `json:"paymentDueDay"`
		Autopay          bool      `json:"autopay"`
		Active           bool      `json:"active"`
		CreatedAt        time.Time `json:"createdAt"`
	}

	// CreditCardCycle is one statement period of a card. It is open while
	// ClosedAt is nil.
	CreditCardCycle struct {
		ID                    int64      `json:"id"`
		CreditCardID          int64      `json:"creditCardId"`
		CycleNumber           int        `json:"cycleNumber"`
		CycleStartDate        Date       `json:"cycleStartDate"`
		StatementDate         Date       `json:"statementDate"`
		PaymentDueDate        Date       `json:"paymentDueDate"`
		StatementBalanceCents int64      `json:"statementBalanceCents"`
		MinimumPaymentCents   int64      `json:"minimumPaymentCents"`
		PaymentRecordedOn     *Date      `json:"paymentRecordedOn"`
		ClosedAt              *time.Time `json:"closedAt"`
	}

	IncomeStream struct {
		ID               int64           `json:"id"`
		UserID           int64           `json:"userId"`
		Name             string          `json:"name"`
		AmountCents      int64           `json:"amountCents"`
		Frequency        IncomeFrequency `json:"frequency"`
		NextExpectedDate *Date           `json:"nextExpectedDate"`
		Active           bool            `json:"active"`
	}

	// Transaction amounts are signed: expenses negative, income positive.
	Transaction struct {
		ID              int64           `json:"id"`
		UserID          int64           `json:"userId"`
		Type            TransactionType `json:"type"`
		AmountCents     int64           `json:"amountCents"`
		CreditCardID    *int64          `json:"creditCardId"`
		IncomeStreamID  *int64          `json:"incomeStreamId"`
		CycleID         *int64          `json:"cycleId"`
		TransactionDate Date            `json:"transactionDate"`
		Category        string          `json:"category"`
		Description     string          `json:"description"`
		Pending         bool            `json:"pending"`
	}

	AgencySnapshot struct {
		ID                        int64      `json:"id"`
		UserID                    int64      `json:"userId"`
		CalculatedFor             Date       `json:"calculatedFor"`
		CreditAgencyCents         int64      `json:"creditAgencyCents"`
		BackedAgencyCents         int64      `json:"backedAgencyCents"`
		AvailableCreditCents      int64      `json:"availableCreditCents"`
		ProjectedObligationsCents int64      `json:"projectedObligationsCents"`
		UpcomingIncomeCents       int64      `json:"upcomingIncomeCents"`
		TotalCreditLimitCents     int64      `json:"totalCreditLimitCents"`
		OutstandingBalanceCents   int64      `json:"outstandingBalanceCents"`
		PendingExpensesCents      int64      `json:"pendingExpensesCents"`
		MinimumPaymentsCents      int64      `json:"minimumPaymentsCents"`
		BufferCents               int64      `json:"bufferCents"`
		Notes                     string     `json:"notes"`
		CalculatedAt              time.Time  `json:"calculatedAt"`
		ExportedAt                *time.Time `json:"exportedAt,omitempty"`
	}

	ProjectedExpense struct {
		ID              int64                  `json:"id"`
		UserID          int64                  `json:"userId"`
		AmountCents     int64                  `json:"amountCents"`
		Category        string                 `json:"category"`
		Description     string                 `json:"description"`
		ExpectedDate    Date                   `json:"expectedDate"`
		Status          ProjectedExpenseStatus `json:"status"`
		CreditCardID    *int64                 `json:"creditCardId"`
		TransactionID   *int64                 `json:"transactionId"`
		Notes           string                 `json:"notes"`
		CommittedAt     *time.Time             `json:"committedAt"`
		PaidAt          *time.Time             `json:"paidAt"`
		CancelledAt     *time.Time             `json:"cancelledAt"`
		CancelledReason string                 `json:"cancelledReason,omitempty"`
		CreatedAt       time.Time              `json:"createdAt"`
		UpdatedAt       time.Time              `json:"updatedAt"`
	}

	SavingsGoal struct {
		ID                int64             `json:"id"`
		UserID            int64             `json:"userId"`
		Name              string            `json:"name"`
		TargetAmountCents int64             `json:"targetAmountCents"`
		StartDate         Date              `json:"startDate"`
		TargetDate        *Date             `json:"targetDate"`
		Status            SavingsGoalStatus `json:"status"`
		Category          string            `json:"category"`
		Notes             string            `json:"notes"`
		CompletedAt       *time.Time        `json:"completedAt"`
		AbandonedAt       *time.Time        `json:"abandonedAt"`
		AbandonedReason   string            `json:"abandonedReason,omitempty"`
		CreatedAt         time.Time         `json:"createdAt"`
		UpdatedAt         time.Time         `json:"updatedAt"`
	}

	SavingsContribution struct {
		ID               int64              `json:"id"`
		GoalID           int64              `json:"goalId"`
		AmountCents      int64              `json:"amountCents"`
		Source           ContributionSource `json:"source"`
		ContributionDate Date               `json:"contributionDate"`
		Notes            string             `json:"notes"`
		CreatedAt        time.Time          `json:"createdAt"`
	}

	CategoryBudget struct {
		ID               int64        `json:"id"`
		UserID           int64        `json:"userId"`
		Category         string       `json:"category"`
		Period           BudgetPeriod `json:"period"`
		LimitAmountCents int64        `json:"limitAmountCents"`
		WarningThreshold float64      `json:"warningThreshold"`
		PeriodStart      *Date        `json:"periodStart"`
		PeriodEnd        *Date        `json:"periodEnd"`
		CreditCardID     *int64       `json:"creditCardId"`
		Active           bool         `json:"active"`
		CreatedAt        time.Time    `json:"createdAt"`
		UpdatedAt        time.Time    `json:"updatedAt"`
	}
)

func (f IncomeFrequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencySemimonthly,
		FrequencyMonthly, FrequencyQuarterly, FrequencyAnnually:
		return true
	}
	return false
}

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionExpense, TransactionIncome, TransactionPayment, TransactionTransfer:
		return true
	}
	return false
}

func (s ContributionSource) Valid() bool {
	switch s {
	case SourceManual, SourceTransfer, SourceAutomation:
		return true
	}
	return false
}

func (p BudgetPeriod) Valid() bool {
	return p == PeriodMonthly || p == PeriodCycle
}

// IsOpen reports whether the cycle has not been closed by a rollover yet.
func (c CreditCardCycle) IsOpen() bool {
	return c.ClosedAt == nil
}

// IsAdmin reports whether the user may act on behalf of other users.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func validDay(day int) bool {
	return day >= 1 && day <= 31
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return InvalidInput("name", "card name is required")
	}
	if c.CreditLimitCents <= 0 {
		return InvalidInput("creditLimitCents", "credit limit must be positive")
	}
	if !validDay(c.CycleAnchorDay) {
		return InvalidInput("cycleAnchorDay", "must be between 1 and 31")
	}
	if !validDay(c.StatementDay) {
		return InvalidInput("statementDay", "must be between 1 and 31")
	}
	if !validDay(c.PaymentDueDay) {
		return InvalidInput("paymentDueDay", "must be between 1 and 31")
	}
	return nil
}

func (c CreditCardCycle) Validate() error {
	if c.StatementBalanceCents < 0 {
		return InvalidInput("statementBalanceCents", "must not be negative")
	}
	if c.MinimumPaymentCents < 0 {
		return InvalidInput("minimumPaymentCents", "must not be negative")
	}
	if c.StatementDate.IsZero() || c.PaymentDueDate.IsZero() || c.CycleStartDate.IsZero() {
		return InvalidInput("statementDate", "cycle dates are required")
	}
	return nil
}

func (s IncomeStream) Validate() error {
	if s.AmountCents <= 0 {
		return InvalidInput("amountCents", "amount must be positive")
	}
	if !s.Frequency.Valid() {
		return InvalidInput("frequency", "unsupported frequency %q", s.Frequency)
	}
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return InvalidInput("type", "unsupported transaction type %q", t.Type)
	}
	if t.AmountCents == 0 {
		return InvalidInput("amountCents", "amount must be nonzero")
	}
	if t.TransactionDate.IsZero() {
		return InvalidInput("transactionDate", "date is required")
	}
	if (t.Type == TransactionExpense || t.Type == TransactionPayment) && t.CreditCardID == nil {
		return InvalidInput("creditCardId", "%s transactions require a credit card", t.Type)
	}
	return nil
}

func (e ProjectedExpense) Validate() error {
	if e.AmountCents <= 0 {
		return InvalidInput("amountCents", "amount must be positive")
	}
	if strings.TrimSpace(e.Category) == "" {
		return InvalidInput("category", "category is required")
	}
	if e.ExpectedDate.IsZero() {
		return InvalidInput("expectedDate", "date is required")
	}
	if len(e.Description) > 200 {
		return InvalidInput("description", "too long (max 200 characters)")
	}
	return nil
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return InvalidInput("name", "goal name is required")
	}
	if g.TargetAmountCents <= 0 {
		return InvalidInput("targetAmountCents", "target must be positive")
	}
	if g.StartDate.IsZero() {
		return InvalidInput("startDate", "date is required")
	}
	if g.TargetDate != nil && g.TargetDate.Before(g.StartDate) {
		return InvalidInput("targetDate", "must not precede the start date")
	}
	return nil
}

func (c SavingsContribution) Validate() error {
	if c.AmountCents <= 0 {
		return InvalidInput("amountCents", "amount must be positive")
	}
	if !c.Source.Valid() {
		return InvalidInput("source", "unsupported source %q", c.Source)
	}
	if c.ContributionDate.IsZero() {
		return InvalidInput("contributionDate", "date is required")
	}
	return nil
}

func (b CategoryBudget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return InvalidInput("category", "category is required")
	}
	if !b.Period.Valid() {
		return InvalidInput("period", "unsupported period %q", b.Period)
	}
	if b.LimitAmountCents <= 0 {
		return InvalidInput("limitAmountCents", "limit must be positive")
	}
	if b.WarningThreshold < 0 || b.WarningThreshold > 1 {
		return InvalidInput("warningThreshold", "must be a fraction in [0, 1]")
	}
	if (b.PeriodStart == nil) != (b.PeriodEnd == nil) {
		return InvalidInput("periodEnd", "explicit periods need both start and end")
	}
	if b.PeriodStart != nil && b.PeriodEnd.Before(*b.PeriodStart) {
		return InvalidInput("periodEnd", "must not precede the period start")
	}
	return nil
}
