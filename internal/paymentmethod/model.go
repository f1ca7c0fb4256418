package paymentmethod

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a user paid for an expense: cash, a card, a transfer.
// Inactive methods stay attached to old expenses but cannot be picked for new
// ones.
type PaymentMethod struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
	Color       *string   `json:"color,omitempty"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Usage summarizes the expenses paid with one method. Total sums the
// base-currency amounts.
type Usage struct {
	ExpenseCount int
	TotalAmount  decimal.Decimal
	LastUsed     *time.Time
}

type preset struct {
	name  string
	icon  string
	color string
}

// defaults are created on request for a user with no payment methods
var defaults = []preset{
	{name: "Cash", icon: "banknote", color: "#10B981"},
	{name: "Card", icon: "credit-card", color: "#3B82F6"},
	{name: "Bank Transfer", icon: "building-columns", color: "#8B5CF6"},
	{name: "Other", icon: "ellipsis-horizontal-circle", color: "#6B7280"},
}
