package share

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/money"
)

// Result is the outcome of a share calculation. An unbalanced split is
// reported through IsValid and Issues, never corrected.
type Result struct {
	Total           money.Money     `json:"total"`
	Shares          []Share         `json:"shares"`
	TotalPercentage decimal.Decimal `json:"total_percentage"`
	AllocatedAmount decimal.Decimal `json:"allocated_amount"`
	Unallocated     decimal.Decimal `json:"unallocated"`
	IsValid         bool            `json:"is_valid"`
	Issues          []string        `json:"issues,omitempty"`
}

// Calculator turns participant specifications into concrete shares
type Calculator struct {
	registry *Registry
}

// NewCalculator creates a calculator backed by the given registry, or the
// built-in strategies when registry is nil
func NewCalculator(registry *Registry) *Calculator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Calculator{registry: registry}
}

// Calculate computes shares for a draft. Participants may still have a blank
// user id.
func (c *Calculator) Calculate(total money.Money, participants []Participant) (*Result, error) {
	return c.calculate(total, participants, false)
}

// Finalize computes shares for records about to be stored. Every participant
// must name a distinct user.
func (c *Calculator) Finalize(total money.Money, participants []Participant) (*Result, error) {
	return c.calculate(total, participants, true)
}

func (c *Calculator) calculate(total money.Money, participants []Participant, final bool) (*Result, error) {
	if total.Amount.IsNegative() {
		return nil, apperr.Validation("total_amount", "must not be negative")
	}
	if err := money.ValidateCurrency(total.Currency); err != nil {
		return nil, apperr.Validation("currency", err.Error())
	}
	total = total.Round()

	if len(participants) == 0 {
		return &Result{
			Total:           total,
			Shares:          []Share{},
			TotalPercentage: decimal.Zero,
			AllocatedAmount: decimal.Zero,
			Unallocated:     total.Amount,
			Issues:          []string{"no participants"},
		}, nil
	}

	// Group participant indexes by type, keeping input order inside a group
	groups := make(map[ShareType][]int)
	var order []ShareType
	seen := make(map[string]int, len(participants))

	for i, p := range participants {
		strategy, err := c.registry.Get(p.ShareType)
		if err != nil {
			return nil, apperr.Validationf(field(i, "share_type"), "unknown share type %q", p.ShareType)
		}
		if err := strategy.Validate(i, p); err != nil {
			return nil, err
		}
		if final {
			id := strings.TrimSpace(p.UserID)
			if id == "" {
				return nil, apperr.Validation(field(i, "user_id"), "must not be blank")
			}
			if prev, dup := seen[id]; dup {
				return nil, apperr.Validationf(field(i, "user_id"), "duplicates participants[%d]", prev)
			}
			seen[id] = i
		}
		if _, ok := groups[p.ShareType]; !ok {
			order = append(order, p.ShareType)
		}
		groups[p.ShareType] = append(groups[p.ShareType], i)
	}

	shares := make([]Share, len(participants))
	whole := len(order) == 1
	for _, t := range order {
		idx := groups[t]
		group := make([]Participant, len(idx))
		for j, i := range idx {
			group[j] = participants[i]
		}

		strategy, _ := c.registry.Get(t)
		computed := strategy.Calculate(total, group, whole)
		if len(computed) != len(idx) {
			panic(fmt.Sprintf("share: %s strategy returned %d shares for %d participants", t, len(computed), len(idx)))
		}
		for j, i := range idx {
			shares[i] = computed[j]
		}
	}

	return evaluate(total, shares), nil
}

// evaluate checks the computed shares against the total. A split is valid
// only when the percentages sum to 100 and the amounts sum to the total, each
// within its tolerance.
func evaluate(total money.Money, shares []Share) *Result {
	pcts := make([]decimal.Decimal, len(shares))
	amounts := make([]decimal.Decimal, len(shares))
	for i, s := range shares {
		pcts[i] = s.SharePercentage
		amounts[i] = s.ShareAmount
	}

	res := &Result{
		Total:           total,
		Shares:          shares,
		TotalPercentage: money.Sum(pcts...),
		AllocatedAmount: money.Sum(amounts...),
	}
	res.Unallocated = total.Amount.Sub(res.AllocatedAmount)

	pctOK := money.WithinTolerance(res.TotalPercentage, money.Hundred, money.PercentageTolerance)
	if !pctOK {
		res.Issues = append(res.Issues, fmt.Sprintf("share percentages sum to %s, expected 100", res.TotalPercentage.StringFixed(2)))
	}

	unit := money.MinorUnit(total.Currency)
	amountOK := money.WithinTolerance(res.AllocatedAmount, total.Amount, unit)
	if !amountOK {
		places := money.MinorUnits(total.Currency)
		res.Issues = append(res.Issues, fmt.Sprintf("share amounts sum to %s, expected %s",
			res.AllocatedAmount.StringFixed(places), total.Amount.StringFixed(places)))
	}

	res.IsValid = pctOK && amountOK
	return res
}
