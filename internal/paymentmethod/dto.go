package paymentmethod

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreatePaymentMethodRequest represents the request to create a payment method
type CreatePaymentMethodRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty" validate:"omitempty,max=50"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	SortOrder   int     `json:"sort_order" validate:"gte=0"`
	IsDefault   bool    `json:"is_default"`
}

// UpdatePaymentMethodRequest represents the request to update a payment method
type UpdatePaymentMethodRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty" validate:"omitempty,max=50"`
	Color       *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	SortOrder   *int    `json:"sort_order,omitempty" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

// ReorderItem moves one payment method to a new position
type ReorderItem struct {
	ID        uuid.UUID `json:"id"`
	SortOrder int       `json:"sort_order"`
}

// PaymentMethodResponse represents the response for a payment method
type PaymentMethodResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
	Color       *string   `json:"color,omitempty"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	IsDefault   bool      `json:"is_default"`
	CanDelete   bool      `json:"can_delete"`
	CreatedAt   string    `json:"created_at"`
}

// WithStatsResponse adds usage figures to a payment method
type WithStatsResponse struct {
	PaymentMethodResponse
	ExpenseCount int             `json:"expense_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	LastUsed     *string         `json:"last_used,omitempty"`
}

// DeleteResponse reports whether a delete removed the row or deactivated it
type DeleteResponse struct {
	Deleted     bool `json:"deleted"`
	Deactivated bool `json:"deactivated"`
}

// ToResponse converts a PaymentMethod model to a PaymentMethodResponse DTO.
// canDelete is true when no expense refers to the method.
func (m *PaymentMethod) ToResponse(canDelete bool) *PaymentMethodResponse {
	return &PaymentMethodResponse{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Icon:        m.Icon,
		Color:       m.Color,
		SortOrder:   m.SortOrder,
		IsActive:    m.IsActive,
		IsDefault:   m.IsDefault,
		CanDelete:   canDelete,
		CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (m *PaymentMethod) toStatsResponse(u Usage) *WithStatsResponse {
	resp := &WithStatsResponse{
		PaymentMethodResponse: *m.ToResponse(u.ExpenseCount == 0),
		ExpenseCount:          u.ExpenseCount,
		TotalAmount:           u.TotalAmount,
	}
	if u.LastUsed != nil {
		s := u.LastUsed.Format("2006-01-02")
		resp.LastUsed = &s
	}
	return resp
}
