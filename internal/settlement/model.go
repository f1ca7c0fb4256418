package settlement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the status of a settlement
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
)

// Settlement is a bulk payment between two users in one currency. While it is
// pending, the shares it covers are locked to it.
type Settlement struct {
	ID         uuid.UUID       `json:"id"`
	PayerID    uuid.UUID       `json:"payer_id"`    // who sends the money
	ReceiverID uuid.UUID       `json:"receiver_id"` // who receives the money
	Amount     decimal.Decimal `json:"amount"`      // the net amount
	Currency   string          `json:"currency"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Involves reports whether userID is the payer or the receiver
func (s *Settlement) Involves(userID uuid.UUID) bool {
	return s.PayerID == userID || s.ReceiverID == userID
}

// NetBalance is the unsettled amount between a user and another user in one
// currency. Positive means the user owes the other user.
type NetBalance struct {
	OtherUserID uuid.UUID       `json:"other_user_id"`
	Currency    string          `json:"currency"`
	Amount      decimal.Decimal `json:"amount"`
}
