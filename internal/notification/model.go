package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a message shown to one user
type Notification struct {
	ID                uuid.UUID  `json:"id"`
	RecipientID       uuid.UUID  `json:"recipient_id"`
	Type              Type       `json:"type"`
	Message           string     `json:"message"`
	IsRead            bool       `json:"is_read"`
	RelatedEntityType *string    `json:"related_entity_type,omitempty"` // e.g., "BUDGET", "EXPENSE", "SETTLEMENT"
	RelatedEntityID   *uuid.UUID `json:"related_entity_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Type represents the type of notification
type Type string

const (
	TypeBudgetWarning       Type = "BUDGET_WARNING"
	TypeBudgetExceeded      Type = "BUDGET_EXCEEDED"
	TypeShareAssigned       Type = "SHARE_ASSIGNED"
	TypeShareSettled        Type = "SHARE_SETTLED"
	TypeSettlementRequested Type = "SETTLEMENT_REQUESTED"
	TypeSettlementConfirmed Type = "SETTLEMENT_CONFIRMED"
	TypeSettlementRejected  Type = "SETTLEMENT_REJECTED"
)

// Related entity types
const (
	EntityBudget     = "BUDGET"
	EntityExpense    = "EXPENSE"
	EntitySettlement = "SETTLEMENT"
)
