package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/budget"
)

// MonthTotal is the spending of one calendar month. Total sums the amounts
// recorded in the user's base currency; Unconverted counts the expenses
// that had no such amount and were left out of Total.
type MonthTotal struct {
	Month       time.Time
	Count       int
	Total       decimal.Decimal
	Unconverted int
}

// CategoryTotal is the spending booked under one primary category. A nil
// CategoryID collects uncategorized expenses.
type CategoryTotal struct {
	CategoryID *uuid.UUID
	Count      int
	Total      decimal.Decimal
}

// YearlySummary is a calendar year of spending next to the current budgets
type YearlySummary struct {
	Year              int             `json:"year"`
	Currency          string          `json:"currency"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	TotalCount        int             `json:"total_count"`
	Unconverted       int             `json:"unconverted_count"`
	MonthlyBreakdown  []MonthSummary  `json:"monthly_breakdown"`
	CategoryBreakdown []CategoryShare `json:"category_breakdown"`
	BudgetPerformance *budget.Summary `json:"budget_performance"`
}

// MonthSummary is one month of a yearly summary or a trend
type MonthSummary struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// CategoryShare is a primary category's part of the yearly total
type CategoryShare struct {
	CategoryID *uuid.UUID      `json:"category_id,omitempty"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Count      int             `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
}

// TrendPoint is a month with its change against the month before. Change
// is nil when the previous month had no spending.
type TrendPoint struct {
	MonthSummary
	Change *decimal.Decimal `json:"change_percentage,omitempty"`
}

// Trends is the spending of the most recent months, oldest first
type Trends struct {
	Currency string          `json:"currency"`
	Months   []TrendPoint    `json:"months"`
	Average  decimal.Decimal `json:"average"`
}
