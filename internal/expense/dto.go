package expense

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/calendar"
	"github.com/fkhayef/finance/internal/expense/share"
)

// ParticipantRequest is one participant of a shared expense
type ParticipantRequest struct {
	UserID          string           `json:"user_id"`
	ShareType       string           `json:"share_type" validate:"required,oneof=equal percentage fixed_amount"`
	SharePercentage *decimal.Decimal `json:"share_percentage,omitempty"`
	CustomAmount    *decimal.Decimal `json:"custom_amount,omitempty"`
}

// CreateExpenseRequest represents the request to create an expense
type CreateExpenseRequest struct {
	Amount               decimal.Decimal      `json:"amount" validate:"required,gte=0"`
	Currency             string               `json:"currency" validate:"required,len=3"`
	AmountInBaseCurrency *decimal.Decimal     `json:"amount_in_base_currency,omitempty"`
	Date                 string               `json:"date" validate:"required"`
	Description          string               `json:"description" validate:"max=500"`
	CategoryID           *uuid.UUID           `json:"category_id,omitempty"`
	SubcategoryID        *uuid.UUID           `json:"subcategory_id,omitempty"`
	PaymentMethodID      *uuid.UUID           `json:"payment_method_id,omitempty"`
	IsShared             bool                 `json:"is_shared"`
	Participants         []ParticipantRequest `json:"participants,omitempty"`
}

// UpdateExpenseRequest represents the request to update an expense. A non-nil
// Participants list replaces the split; category fields are replaced together
// when ReplaceCategory is set.
type UpdateExpenseRequest struct {
	Amount          *decimal.Decimal     `json:"amount,omitempty"`
	Currency        *string              `json:"currency,omitempty"`
	Date            *string              `json:"date,omitempty"`
	Description     *string              `json:"description,omitempty"`
	ReplaceCategory bool                 `json:"replace_category,omitempty"`
	CategoryID      *uuid.UUID           `json:"category_id,omitempty"`
	SubcategoryID   *uuid.UUID           `json:"subcategory_id,omitempty"`
	PaymentMethodID *uuid.UUID           `json:"payment_method_id,omitempty"`
	IsShared        *bool                `json:"is_shared,omitempty"`
	Participants    []ParticipantRequest `json:"participants,omitempty"`
}

// PreviewRequest asks for a split without storing anything
type PreviewRequest struct {
	TotalAmount  decimal.Decimal      `json:"total_amount"`
	Currency     string               `json:"currency"`
	Participants []ParticipantRequest `json:"participants"`
}

// PreviewResponse is a draft split. Warnings are shown inline; they never
// block the client.
type PreviewResponse struct {
	*share.Result
	Warnings []string `json:"warnings"`
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID                   uuid.UUID        `json:"id"`
	UserID               uuid.UUID        `json:"user_id"`
	Amount               decimal.Decimal  `json:"amount"`
	Currency             string           `json:"currency"`
	AmountInBaseCurrency *decimal.Decimal `json:"amount_in_base_currency,omitempty"`
	BaseCurrency         *string          `json:"base_currency,omitempty"`
	ExchangeRate         *decimal.Decimal `json:"exchange_rate,omitempty"`
	Date                 string           `json:"date"`
	Description          string           `json:"description"`
	CategoryID           *uuid.UUID       `json:"category_id,omitempty"`
	SubcategoryID        *uuid.UUID       `json:"subcategory_id,omitempty"`
	PaymentMethodID      *uuid.UUID       `json:"payment_method_id,omitempty"`
	IsShared             bool             `json:"is_shared"`
	CreatedAt            string           `json:"created_at"`
	UpdatedAt            string           `json:"updated_at"`
	Shares               []*ShareResponse `json:"shares,omitempty"`
}

// ShareResponse represents the response for a share
type ShareResponse struct {
	ID              uuid.UUID        `json:"id"`
	ExpenseID       uuid.UUID        `json:"expense_id"`
	UserID          uuid.UUID        `json:"user_id"`
	ShareType       share.ShareType  `json:"share_type"`
	SharePercentage decimal.Decimal  `json:"share_percentage"`
	ShareAmount     decimal.Decimal  `json:"share_amount"`
	CustomAmount    *decimal.Decimal `json:"custom_amount,omitempty"`
	Currency        string           `json:"currency"`
	IsSettled       bool             `json:"is_settled"`
	SettledAt       *string          `json:"settled_at,omitempty"`
	SettlementID    *uuid.UUID       `json:"settlement_id,omitempty"`
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	resp := &ExpenseResponse{
		ID:                   e.ID,
		UserID:               e.UserID,
		Amount:               e.Amount,
		Currency:             e.Currency,
		AmountInBaseCurrency: e.AmountInBaseCurrency,
		BaseCurrency:         e.BaseCurrency,
		ExchangeRate:         e.ExchangeRate,
		Date:                 calendar.Format(e.Date),
		Description:          e.Description,
		CategoryID:           e.CategoryID,
		SubcategoryID:        e.SubcategoryID,
		PaymentMethodID:      e.PaymentMethodID,
		IsShared:             e.IsShared,
		CreatedAt:            e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:            e.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if len(e.Shares) > 0 {
		resp.Shares = make([]*ShareResponse, len(e.Shares))
		for i, s := range e.Shares {
			resp.Shares[i] = s.ToResponse()
		}
	}
	return resp
}

// ToResponse converts a Share model to a ShareResponse DTO
func (s *Share) ToResponse() *ShareResponse {
	resp := &ShareResponse{
		ID:              s.ID,
		ExpenseID:       s.ExpenseID,
		UserID:          s.UserID,
		ShareType:       s.ShareType,
		SharePercentage: s.SharePercentage,
		ShareAmount:     s.ShareAmount,
		CustomAmount:    s.CustomAmount,
		Currency:        s.Currency,
		IsSettled:       s.IsSettled,
		SettlementID:    s.SettlementID,
	}
	if s.SettledAt != nil {
		at := s.SettledAt.Format("2006-01-02T15:04:05Z")
		resp.SettledAt = &at
	}
	return resp
}

// toParticipants maps requests onto calculator input. Unknown share types
// pass through and are reported by the calculator with their index.
func toParticipants(reqs []ParticipantRequest) []share.Participant {
	out := make([]share.Participant, len(reqs))
	for i, r := range reqs {
		out[i] = share.Participant{
			UserID:          strings.TrimSpace(r.UserID),
			ShareType:       share.ShareType(strings.ToLower(strings.TrimSpace(r.ShareType))),
			SharePercentage: r.SharePercentage,
			CustomAmount:    r.CustomAmount,
		}
	}
	return out
}
