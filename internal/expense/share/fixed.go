package share

import (
	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/money"
)

// =============================================================================
// FIXED AMOUNT SHARE STRATEGY
// Each participant owes a stated amount; the percentage is derived from it
// =============================================================================

// FixedAmountStrategy implements Strategy for fixed_amount shares
type FixedAmountStrategy struct{}

func (s *FixedAmountStrategy) Type() ShareType {
	return TypeFixedAmount
}

// Validate requires a non-negative custom amount
func (s *FixedAmountStrategy) Validate(index int, p Participant) error {
	if p.CustomAmount == nil {
		return apperr.Validation(field(index, "custom_amount"), "required for fixed_amount shares")
	}
	if p.CustomAmount.IsNegative() {
		return apperr.Validation(field(index, "custom_amount"), "must not be negative")
	}
	return nil
}

// Calculate keeps every amount as given (rounded to the minor unit) and never
// rebalances; an over- or under-allocated split is left for the caller to
// report.
func (s *FixedAmountStrategy) Calculate(total money.Money, group []Participant, whole bool) []Share {
	shares := make([]Share, len(group))
	for i, p := range group {
		amount := money.RoundAmount(*p.CustomAmount, total.Currency)
		shares[i] = newShare(p, money.Ratio(amount, total.Amount), amount, total.Currency)
	}
	return shares
}
