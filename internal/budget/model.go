package budget

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/calendar"
	"github.com/fkhayef/finance/internal/money"
)

// PeriodType is the recurrence of a budget
type PeriodType string

const (
	PeriodWeekly    PeriodType = "weekly"
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
	PeriodYearly    PeriodType = "yearly"
	PeriodCustom    PeriodType = "custom"
)

// Valid reports whether p is a known period type
func (p PeriodType) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly, PeriodCustom:
		return true
	}
	return false
}

// Status classifies how much of a budget has been consumed
type Status string

const (
	StatusOnTrack    Status = "on_track"
	StatusWarning    Status = "warning"
	StatusOverBudget Status = "over_budget"
)

// Statuses lists every status in severity order
var Statuses = []Status{StatusOnTrack, StatusWarning, StatusOverBudget}

// Severity orders statuses so transitions can be compared
func (s Status) Severity() int {
	switch s {
	case StatusWarning:
		return 1
	case StatusOverBudget:
		return 2
	}
	return 0
}

// Budget is a spending limit over a period, optionally scoped to a category
// or subcategory.
type Budget struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	BudgetGroupID  *uuid.UUID      `json:"budget_group_id,omitempty"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PeriodType     PeriodType      `json:"period_type"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	CategoryID     *uuid.UUID      `json:"category_id,omitempty"`
	SubcategoryID  *uuid.UUID      `json:"subcategory_id,omitempty"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Limit returns the budget amount as Money
func (b *Budget) Limit() money.Money {
	return money.New(b.Amount, b.Currency)
}

// Covers reports whether day falls inside [start, end]. An open end never
// closes.
func (b *Budget) Covers(day time.Time) bool {
	d := calendar.Truncate(day)
	if d.Before(calendar.Truncate(b.StartDate)) {
		return false
	}
	return b.EndDate == nil || !d.After(calendar.Truncate(*b.EndDate))
}

// EffectivelyActive is the active flag combined with the period covering now
func (b *Budget) EffectivelyActive(now time.Time) bool {
	return b.IsActive && b.Covers(now)
}

// Expense is the slice of an expense record the aggregator needs
type Expense struct {
	ID                   uuid.UUID
	Amount               decimal.Decimal
	Currency             string
	AmountInBaseCurrency *decimal.Decimal
	BaseCurrency         string
	Date                 time.Time
	CategoryID           *uuid.UUID
	SubcategoryID        *uuid.UUID
}

// Performance is the derived consumption of one budget. It is never stored.
type Performance struct {
	BudgetID       uuid.UUID       `json:"budget_id"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Spent          decimal.Decimal `json:"spent"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed decimal.Decimal `json:"percentage_used"`
	Status         Status          `json:"status"`
	IsOverBudget   bool            `json:"is_over_budget"`
	ShouldAlert    bool            `json:"should_alert"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	AlertAmount    decimal.Decimal `json:"alert_amount"`
	Currency       string          `json:"currency"`
	PeriodType     PeriodType      `json:"period_type"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        *time.Time      `json:"end_date,omitempty"`
	ExpenseCount   int             `json:"expense_count"`
}

// Summary rolls several performances into totals. It is the single summary
// shape used for a user's current budgets and for budget groups.
type Summary struct {
	Currency          string          `json:"currency"`
	TotalBudget       decimal.Decimal `json:"total_budget"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalRemaining    decimal.Decimal `json:"total_remaining"`
	OverallPercentage decimal.Decimal `json:"overall_percentage"`
	OverallStatus     Status          `json:"overall_status"`
	BudgetCount       int             `json:"budget_count"`
	StatusCounts      map[Status]int  `json:"status_counts"`
	Budgets           []*Performance  `json:"budgets"`
}

// Alert is a budget whose consumption crossed its alert threshold
type Alert struct {
	Budget      *Budget      `json:"budget"`
	Performance *Performance `json:"performance"`
	AlertType   Status       `json:"alert_type"`
}

// Transition is a change in a budget's status caused by a new expense
type Transition struct {
	Budget *Budget
	From   Status
	To     *Performance
}
