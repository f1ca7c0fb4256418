package expense

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/expense/share"
	"github.com/fkhayef/finance/internal/money"
)

// Expense is a single transaction recorded by a user. A shared expense owns
// its shares; they are removed with it.
type Expense struct {
	ID                   uuid.UUID        `json:"id"`
	UserID               uuid.UUID        `json:"user_id"`
	Amount               decimal.Decimal  `json:"amount"`
	Currency             string           `json:"currency"`
	AmountInBaseCurrency *decimal.Decimal `json:"amount_in_base_currency,omitempty"`
	BaseCurrency         *string          `json:"base_currency,omitempty"`
	ExchangeRate         *decimal.Decimal `json:"exchange_rate,omitempty"`
	Date                 time.Time        `json:"date"`
	Description          string           `json:"description"`
	CategoryID           *uuid.UUID       `json:"category_id,omitempty"`
	SubcategoryID        *uuid.UUID       `json:"subcategory_id,omitempty"`
	PaymentMethodID      *uuid.UUID       `json:"payment_method_id,omitempty"`
	IsShared             bool             `json:"is_shared"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`

	Shares []*Share `json:"shares,omitempty"`
}

// Total returns the expense amount as Money
func (e *Expense) Total() money.Money {
	return money.New(e.Amount, e.Currency)
}

// BudgetRecord is the view of e used for budget consumption
func (e *Expense) BudgetRecord() budget.Expense {
	base := ""
	if e.BaseCurrency != nil {
		base = *e.BaseCurrency
	}
	return budget.Expense{
		ID:                   e.ID,
		Amount:               e.Amount,
		Currency:             e.Currency,
		AmountInBaseCurrency: e.AmountInBaseCurrency,
		BaseCurrency:         base,
		Date:                 e.Date,
		CategoryID:           e.CategoryID,
		SubcategoryID:        e.SubcategoryID,
	}
}

// HasLockedShares reports whether any share is settled or part of a
// settlement, which freezes the split
func (e *Expense) HasLockedShares() bool {
	for _, s := range e.Shares {
		if s.Locked() {
			return true
		}
	}
	return false
}

// IsParticipant reports whether userID holds a share of e
func (e *Expense) IsParticipant(userID uuid.UUID) bool {
	for _, s := range e.Shares {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// Share is one participant's portion of a shared expense
type Share struct {
	ID              uuid.UUID        `json:"id"`
	ExpenseID       uuid.UUID        `json:"expense_id"`
	UserID          uuid.UUID        `json:"user_id"`
	ShareType       share.ShareType  `json:"share_type"`
	SharePercentage decimal.Decimal  `json:"share_percentage"`
	ShareAmount     decimal.Decimal  `json:"share_amount"`
	CustomAmount    *decimal.Decimal `json:"custom_amount,omitempty"`
	Currency        string           `json:"currency"`
	IsSettled       bool             `json:"is_settled"`
	SettledAt       *time.Time       `json:"settled_at,omitempty"`
	SettlementID    *uuid.UUID       `json:"settlement_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Locked reports whether the share can no longer be recalculated
func (s *Share) Locked() bool {
	return s.IsSettled || s.SettlementID != nil
}

// ListFilter narrows an expense listing
type ListFilter struct {
	From       *time.Time
	To         *time.Time
	CategoryID *uuid.UUID
	SharedOnly bool
	Limit      int
	Offset     int
}
