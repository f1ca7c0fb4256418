package share

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/money"
)

// =============================================================================
// PERCENTAGE SHARE STRATEGY
// Each participant owes the stated percentage of the total
// =============================================================================

// PercentageStrategy implements Strategy for percentage shares
type PercentageStrategy struct{}

func (s *PercentageStrategy) Type() ShareType {
	return TypePercentage
}

// Validate requires a percentage between 0 and 100
func (s *PercentageStrategy) Validate(index int, p Participant) error {
	if p.SharePercentage == nil {
		return apperr.Validation(field(index, "share_percentage"), "required for percentage shares")
	}
	if p.SharePercentage.IsNegative() || p.SharePercentage.GreaterThan(money.Hundred) {
		return apperr.Validation(field(index, "share_percentage"), "must be between 0 and 100")
	}
	return nil
}

// Calculate converts each percentage into an amount. When the whole list is
// percentage-based and the percentages sum to exactly 100, rounding residue
// is moved onto the last participants holding a positive percentage so
// amounts sum to the total. A 0% participant always owes zero.
func (s *PercentageStrategy) Calculate(total money.Money, group []Participant, whole bool) []Share {
	if len(group) == 0 {
		return []Share{}
	}

	pcts := make([]decimal.Decimal, len(group))
	amounts := make([]decimal.Decimal, len(group))
	positive := make([]bool, len(group))
	for i, p := range group {
		pcts[i] = *p.SharePercentage
		amounts[i] = money.PercentOf(total.Amount, pcts[i], total.Currency)
		positive[i] = pcts[i].IsPositive()
	}

	if whole && money.Sum(pcts...).Equal(money.Hundred) {
		amounts = money.SpreadOver(amounts, positive, total.Amount, money.MinorUnit(total.Currency))
	}

	shares := make([]Share, len(group))
	for i, p := range group {
		shares[i] = newShare(p, pcts[i], amounts[i], total.Currency)
	}
	return shares
}
