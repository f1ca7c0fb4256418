package share

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/money"
)

// ShareType defines how a participant's portion is derived
type ShareType string

const (
	TypeEqual       ShareType = "equal"
	TypePercentage  ShareType = "percentage"
	TypeFixedAmount ShareType = "fixed_amount"
)

// ParseShareType accepts the canonical names case-insensitively
func ParseShareType(s string) (ShareType, error) {
	switch t := ShareType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeEqual, TypePercentage, TypeFixedAmount:
		return t, nil
	default:
		return "", apperr.Validationf("share_type", "unknown share type %q", s)
	}
}

// Participant is one entry of a split request
type Participant struct {
	UserID          string           `json:"user_id"`
	ShareType       ShareType        `json:"share_type"`
	SharePercentage *decimal.Decimal `json:"share_percentage,omitempty"` // percentage shares
	CustomAmount    *decimal.Decimal `json:"custom_amount,omitempty"`    // fixed_amount shares
}

// Share is a participant enriched with the computed percentage and amount
type Share struct {
	UserID          string          `json:"user_id"`
	ShareType       ShareType       `json:"share_type"`
	SharePercentage decimal.Decimal `json:"share_percentage"`
	ShareAmount     decimal.Decimal `json:"share_amount"`
	Currency        string          `json:"currency"`
}

// Strategy computes shares for all participants of one share type
type Strategy interface {
	// Type returns the share type this strategy handles
	Type() ShareType

	// Validate checks a single participant's input for this strategy
	Validate(index int, p Participant) error

	// Calculate computes shares for the participants of this type, in order.
	// whole is true when they make up the entire participant list.
	Calculate(total money.Money, group []Participant, whole bool) []Share
}

// Registry resolves strategies by share type
type Registry struct {
	strategies map[ShareType]Strategy
}

// NewRegistry registers the built-in strategies
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[ShareType]Strategy)}
	r.Register(&EqualStrategy{})
	r.Register(&PercentageStrategy{})
	r.Register(&FixedAmountStrategy{})
	return r
}

// Register adds or replaces the strategy for its type
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Type()] = s
}

// Get returns the strategy for a share type
func (r *Registry) Get(t ShareType) (Strategy, error) {
	s, ok := r.strategies[t]
	if !ok {
		return nil, apperr.Validationf("share_type", "unknown share type %q", t)
	}
	return s, nil
}

func field(index int, name string) string {
	return fmt.Sprintf("participants[%d].%s", index, name)
}

func newShare(p Participant, pct, amount decimal.Decimal, currency string) Share {
	return Share{
		UserID:          p.UserID,
		ShareType:       p.ShareType,
		SharePercentage: pct,
		ShareAmount:     amount,
		Currency:        currency,
	}
}
