package budget

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/calendar"
)

// CreateBudgetRequest represents the request to create a budget
type CreateBudgetRequest struct {
	Name           string           `json:"name" validate:"required,min=1,max=100"`
	Amount         decimal.Decimal  `json:"amount" validate:"required,gte=0"`
	Currency       string           `json:"currency" validate:"required,len=3"`
	PeriodType     PeriodType       `json:"period_type" validate:"required,oneof=weekly monthly quarterly yearly custom"`
	StartDate      string           `json:"start_date" validate:"required"`
	EndDate        *string          `json:"end_date,omitempty"`
	CategoryID     *uuid.UUID       `json:"category_id,omitempty"`
	SubcategoryID  *uuid.UUID       `json:"subcategory_id,omitempty"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
	BudgetGroupID  *uuid.UUID       `json:"budget_group_id,omitempty"`
}

// UpdateBudgetRequest represents the request to update a budget. Scope
// fields are replaced together when ReplaceScope is set.
type UpdateBudgetRequest struct {
	Name           *string          `json:"name,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	PeriodType     *PeriodType      `json:"period_type,omitempty"`
	StartDate      *string          `json:"start_date,omitempty"`
	EndDate        *string          `json:"end_date,omitempty"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
	ReplaceScope   bool             `json:"replace_scope,omitempty"`
	CategoryID     *uuid.UUID       `json:"category_id,omitempty"`
	SubcategoryID  *uuid.UUID       `json:"subcategory_id,omitempty"`
}

// BudgetResponse represents the response for a budget
type BudgetResponse struct {
	ID             uuid.UUID       `json:"id"`
	BudgetGroupID  *uuid.UUID      `json:"budget_group_id,omitempty"`
	Name           string          `json:"name"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	PeriodType     PeriodType      `json:"period_type"`
	StartDate      string          `json:"start_date"`
	EndDate        *string         `json:"end_date,omitempty"`
	CategoryID     *uuid.UUID      `json:"category_id,omitempty"`
	SubcategoryID  *uuid.UUID      `json:"subcategory_id,omitempty"`
	AlertThreshold decimal.Decimal `json:"alert_threshold"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      string          `json:"created_at"`
	UpdatedAt      string          `json:"updated_at"`
}

// PerformanceResponse is the wire form of a Performance
type PerformanceResponse struct {
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
	StartDate      string          `json:"start_date"`
	EndDate        *string         `json:"end_date,omitempty"`
	ExpenseCount   int             `json:"expense_count"`
}

// SummaryResponse is the wire form of a Summary
type SummaryResponse struct {
	Currency          string                 `json:"currency"`
	TotalBudget       decimal.Decimal        `json:"total_budget"`
	TotalSpent        decimal.Decimal        `json:"total_spent"`
	TotalRemaining    decimal.Decimal        `json:"total_remaining"`
	OverallPercentage decimal.Decimal        `json:"overall_percentage"`
	OverallStatus     Status                 `json:"overall_status"`
	BudgetCount       int                    `json:"budget_count"`
	StatusCounts      map[Status]int         `json:"status_counts"`
	Budgets           []*PerformanceResponse `json:"budgets"`
}

// AlertResponse represents a budget over its alert threshold
type AlertResponse struct {
	Budget      *BudgetResponse      `json:"budget"`
	Performance *PerformanceResponse `json:"performance"`
	AlertType   Status               `json:"alert_type"`
}

// ToResponse converts a Budget model to a BudgetResponse DTO
func (b *Budget) ToResponse() *BudgetResponse {
	return &BudgetResponse{
		ID:             b.ID,
		BudgetGroupID:  b.BudgetGroupID,
		Name:           b.Name,
		Amount:         b.Amount,
		Currency:       b.Currency,
		PeriodType:     b.PeriodType,
		StartDate:      calendar.Format(b.StartDate),
		EndDate:        calendar.FormatOptional(b.EndDate),
		CategoryID:     b.CategoryID,
		SubcategoryID:  b.SubcategoryID,
		AlertThreshold: b.AlertThreshold,
		IsActive:       b.IsActive,
		CreatedAt:      b.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      b.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a Performance to its wire form
func (p *Performance) ToResponse() *PerformanceResponse {
	return &PerformanceResponse{
		BudgetID:       p.BudgetID,
		Name:           p.Name,
		Amount:         p.Amount,
		Spent:          p.Spent,
		Remaining:      p.Remaining,
		PercentageUsed: p.PercentageUsed,
		Status:         p.Status,
		IsOverBudget:   p.IsOverBudget,
		ShouldAlert:    p.ShouldAlert,
		AlertThreshold: p.AlertThreshold,
		AlertAmount:    p.AlertAmount,
		Currency:       p.Currency,
		PeriodType:     p.PeriodType,
		StartDate:      calendar.Format(p.StartDate),
		EndDate:        calendar.FormatOptional(p.EndDate),
		ExpenseCount:   p.ExpenseCount,
	}
}

// ToResponse converts a Summary to its wire form
func (s *Summary) ToResponse() *SummaryResponse {
	budgets := make([]*PerformanceResponse, len(s.Budgets))
	for i, p := range s.Budgets {
		budgets[i] = p.ToResponse()
	}
	return &SummaryResponse{
		Currency:          s.Currency,
		TotalBudget:       s.TotalBudget,
		TotalSpent:        s.TotalSpent,
		TotalRemaining:    s.TotalRemaining,
		OverallPercentage: s.OverallPercentage,
		OverallStatus:     s.OverallStatus,
		BudgetCount:       s.BudgetCount,
		StatusCounts:      s.StatusCounts,
		Budgets:           budgets,
	}
}

// ToResponse converts an Alert to its wire form
func (a *Alert) ToResponse() *AlertResponse {
	return &AlertResponse{
		Budget:      a.Budget.ToResponse(),
		Performance: a.Performance.ToResponse(),
		AlertType:   a.AlertType,
	}
}
