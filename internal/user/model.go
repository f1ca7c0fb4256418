package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system. BaseCurrency is the currency budgets
// and summaries are reported in.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name,omitempty"`
	BaseCurrency string    `json:"base_currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
