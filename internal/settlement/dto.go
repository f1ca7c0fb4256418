package settlement

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateSettlementRequest represents the request to create a settlement.
// Payer, receiver and amount follow from the net balance.
type CreateSettlementRequest struct {
	OtherUserID uuid.UUID `json:"other_user_id" validate:"required"`
	Currency    string    `json:"currency" validate:"required,len=3"`
}

// SettlementResponse represents the response for a settlement
type SettlementResponse struct {
	ID         uuid.UUID       `json:"id"`
	PayerID    uuid.UUID       `json:"payer_id"`
	ReceiverID uuid.UUID       `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     Status          `json:"status"`
	CreatedAt  string          `json:"created_at"`
	UpdatedAt  string          `json:"updated_at"`
}

// NetBalanceResponse represents the net balance with another user
type NetBalanceResponse struct {
	OtherUserID uuid.UUID       `json:"other_user_id"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
	Message     string          `json:"message"` // e.g. "You owe 12.50 EUR"
}

// ToResponse converts a Settlement model to a SettlementResponse DTO
func (s *Settlement) ToResponse() *SettlementResponse {
	return &SettlementResponse{
		ID:         s.ID,
		PayerID:    s.PayerID,
		ReceiverID: s.ReceiverID,
		Amount:     s.Amount,
		Currency:   s.Currency,
		Status:     s.Status,
		CreatedAt:  s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// ToResponse converts a NetBalance to a NetBalanceResponse with a readable
// message
func (b *NetBalance) ToResponse() *NetBalanceResponse {
	var message string
	switch {
	case b.Amount.IsPositive():
		message = fmt.Sprintf("You owe %s %s", b.Amount.StringFixed(2), b.Currency)
	case b.Amount.IsNegative():
		message = fmt.Sprintf("You are owed %s %s", b.Amount.Neg().StringFixed(2), b.Currency)
	default:
		message = "You are settled up"
	}
	return &NetBalanceResponse{
		OtherUserID: b.OtherUserID,
		Currency:    b.Currency,
		Amount:      b.Amount,
		Message:     message,
	}
}
