package share

import (
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/money"
)

// =============================================================================
// EQUAL SHARE STRATEGY
// Every participant in the equal group gets 100/N percent of the total
// =============================================================================

// EqualStrategy implements Strategy for equal shares
type EqualStrategy struct{}

func (s *EqualStrategy) Type() ShareType {
	return TypeEqual
}

// Validate accepts any participant; equal shares carry no extra input
func (s *EqualStrategy) Validate(index int, p Participant) error {
	return nil
}

// Calculate assigns 100/N percent and total/N to each participant. Rounding
// residue is pushed onto the last participants so the group's percentages
// sum to exactly 100 and its amounts to exactly the total.
func (s *EqualStrategy) Calculate(total money.Money, group []Participant, whole bool) []Share {
	n := len(group)
	if n == 0 {
		return []Share{}
	}

	count := decimal.NewFromInt(int64(n))
	pct := money.RoundPercentage(money.Hundred.Div(count))
	amount := money.RoundAmount(total.Amount.Div(count), total.Currency)

	pcts := make([]decimal.Decimal, n)
	amounts := make([]decimal.Decimal, n)
	for i := range group {
		pcts[i] = pct
		amounts[i] = amount
	}
	pcts = money.Spread(pcts, money.Hundred, money.PercentageUnit)
	amounts = money.Spread(amounts, total.Amount, money.MinorUnit(total.Currency))

	shares := make([]Share, n)
	for i, p := range group {
		shares[i] = newShare(p, pcts[i], amounts[i], total.Currency)
	}
	return shares
}
