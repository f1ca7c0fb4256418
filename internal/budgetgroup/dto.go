package budgetgroup

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/calendar"
)

// CreateGroupRequest represents the request to create a budget group
type CreateGroupRequest struct {
	Name           string            `json:"name" validate:"required,min=1,max=100"`
	Description    *string           `json:"description,omitempty"`
	PeriodType     budget.PeriodType `json:"period_type" validate:"required,oneof=monthly quarterly yearly custom"`
	StartDate      string            `json:"start_date" validate:"required"`
	EndDate        *string           `json:"end_date,omitempty"`
	Currency       string            `json:"currency" validate:"required,len=3"`
	AlertThreshold *decimal.Decimal  `json:"alert_threshold,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// UpdateGroupRequest represents the request to update a budget group. The
// currency is fixed at creation.
type UpdateGroupRequest struct {
	Name           *string          `json:"name,omitempty"`
	Description    *string          `json:"description,omitempty"`
	StartDate      *string          `json:"start_date,omitempty"`
	EndDate        *string          `json:"end_date,omitempty"`
	AlertThreshold *decimal.Decimal `json:"alert_threshold,omitempty"`
	IsActive       *bool            `json:"is_active,omitempty"`
}

// AttachRequest lists budgets to move into a group
type AttachRequest struct {
	BudgetIDs []uuid.UUID `json:"budget_ids" validate:"required,min=1"`
}

// GenerateRequest asks for one budget per category in scope. Overrides
// replace DefaultAmount for individual categories.
type GenerateRequest struct {
	Scope         Scope                         `json:"scope" validate:"omitempty,oneof=primary subcategories all"`
	DefaultAmount decimal.Decimal               `json:"default_amount" validate:"gte=0"`
	Overrides     map[uuid.UUID]decimal.Decimal `json:"overrides,omitempty"`
}

// BulkUpdateRequest sets new amounts on member budgets
type BulkUpdateRequest struct {
	Amounts map[uuid.UUID]decimal.Decimal `json:"amounts" validate:"required,min=1"`
}

// GroupResponse represents the response for a budget group
type GroupResponse struct {
	ID             uuid.UUID                `json:"id"`
	Name           string                   `json:"name"`
	Description    *string                  `json:"description,omitempty"`
	PeriodType     budget.PeriodType        `json:"period_type"`
	StartDate      string                   `json:"start_date"`
	EndDate        string                   `json:"end_date"`
	Currency       string                   `json:"currency"`
	AlertThreshold *decimal.Decimal         `json:"alert_threshold,omitempty"`
	IsActive       bool                     `json:"is_active"`
	CreatedAt      string                   `json:"created_at"`
	UpdatedAt      string                   `json:"updated_at"`
	Budgets        []*budget.BudgetResponse `json:"budgets,omitempty"`
}

// ToResponse converts a Group model to a GroupResponse DTO
func (g *Group) ToResponse() *GroupResponse {
	return &GroupResponse{
		ID:             g.ID,
		Name:           g.Name,
		Description:    g.Description,
		PeriodType:     g.PeriodType,
		StartDate:      calendar.Format(g.StartDate),
		EndDate:        calendar.Format(g.EndDate),
		Currency:       g.Currency,
		AlertThreshold: g.AlertThreshold,
		IsActive:       g.IsActive,
		CreatedAt:      g.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      g.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// WithBudgets converts g and its member budgets
func (g *Group) WithBudgets(budgets []*budget.Budget) *GroupResponse {
	resp := g.ToResponse()
	resp.Budgets = make([]*budget.BudgetResponse, len(budgets))
	for i, b := range budgets {
		resp.Budgets[i] = b.ToResponse()
	}
	return resp
}
