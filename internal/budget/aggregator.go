package budget

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/money"
)

// DefaultAlertThreshold is used when neither budget nor group names one
var DefaultAlertThreshold = decimal.NewFromInt(80)

// CategoryIndex resolves the parent of a category. ok is false for an unknown
// id and parent is nil for a primary category. *category.Hierarchy
// implements it.
type CategoryIndex interface {
	Parent(id uuid.UUID) (parent *uuid.UUID, ok bool)
}

// Aggregator computes budget performance from expense records. It holds no
// mutable state and is safe for concurrent use.
type Aggregator struct {
	categories       CategoryIndex
	defaultThreshold decimal.Decimal
}

// NewAggregator creates an aggregator. categories may be nil when no budget
// carries a category scope.
func NewAggregator(categories CategoryIndex, defaultThreshold decimal.Decimal) *Aggregator {
	if defaultThreshold.IsZero() {
		defaultThreshold = DefaultAlertThreshold
	}
	return &Aggregator{categories: categories, defaultThreshold: defaultThreshold}
}

// Classify applies the three-tier rule to a percentage
func Classify(percentageUsed, threshold decimal.Decimal) Status {
	switch {
	case percentageUsed.GreaterThanOrEqual(money.Hundred):
		return StatusOverBudget
	case percentageUsed.GreaterThanOrEqual(threshold):
		return StatusWarning
	default:
		return StatusOnTrack
	}
}

// scope is the resolved category filter of a budget
type scope struct {
	id    uuid.UUID
	exact bool
}

// resolveScope checks the budget's category references against the index.
// A subcategory scope matches exactly; a primary scope also matches its
// subcategories.
func (a *Aggregator) resolveScope(b *Budget) (*scope, error) {
	if b.CategoryID == nil && b.SubcategoryID == nil {
		return nil, nil
	}
	if a.categories == nil {
		return nil, apperr.Configurationf("budget %s has a category scope but no categories were loaded", b.ID)
	}

	if b.SubcategoryID != nil {
		parent, ok := a.categories.Parent(*b.SubcategoryID)
		if !ok {
			return nil, apperr.Configurationf("budget %s references unknown subcategory %s", b.ID, *b.SubcategoryID)
		}
		if parent == nil {
			return nil, apperr.Configurationf("budget %s: subcategory %s is a primary category", b.ID, *b.SubcategoryID)
		}
		if b.CategoryID != nil && *parent != *b.CategoryID {
			return nil, apperr.Configurationf("budget %s: subcategory %s does not belong to category %s", b.ID, *b.SubcategoryID, *b.CategoryID)
		}
		return &scope{id: *b.SubcategoryID, exact: true}, nil
	}

	parent, ok := a.categories.Parent(*b.CategoryID)
	if !ok {
		return nil, apperr.Configurationf("budget %s references unknown category %s", b.ID, *b.CategoryID)
	}
	if parent != nil {
		return nil, apperr.Configurationf("budget %s: category %s is a subcategory, use subcategory_id", b.ID, *b.CategoryID)
	}
	return &scope{id: *b.CategoryID}, nil
}

func (a *Aggregator) inScope(s *scope, e *Expense) bool {
	if s == nil {
		return true
	}
	if e.SubcategoryID != nil && *e.SubcategoryID == s.id {
		return true
	}
	if e.CategoryID != nil && *e.CategoryID == s.id {
		return true
	}
	if s.exact || e.SubcategoryID == nil {
		return false
	}
	parent, ok := a.categories.Parent(*e.SubcategoryID)
	return ok && parent != nil && *parent == s.id
}

// Matches reports whether e counts against b: its date is inside the
// budget period and its category falls inside the budget scope.
func (a *Aggregator) Matches(b *Budget, e *Expense) (bool, error) {
	s, err := a.resolveScope(b)
	if err != nil {
		return false, err
	}
	return b.Covers(e.Date) && a.inScope(s, e), nil
}

// amountIn returns the expense amount in the budget currency. A foreign
// expense counts through its base-currency amount, and only when that base
// is the budget currency.
func amountIn(e *Expense, currency string) (decimal.Decimal, error) {
	if e.Currency == currency {
		return e.Amount, nil
	}
	if e.AmountInBaseCurrency == nil {
		return decimal.Zero, apperr.Configurationf("expense %s in %s has no amount in %s", e.ID, e.Currency, currency)
	}
	if e.BaseCurrency != currency {
		return decimal.Zero, apperr.Configurationf("expense %s was converted to %q, budget is in %s", e.ID, e.BaseCurrency, currency)
	}
	return *e.AmountInBaseCurrency, nil
}

func (a *Aggregator) threshold(b *Budget) decimal.Decimal {
	if b.AlertThreshold.IsZero() {
		return a.defaultThreshold
	}
	return b.AlertThreshold
}

// Performance computes spent, remaining and status of b over expenses.
// Expenses outside the budget period or scope are skipped.
func (a *Aggregator) Performance(b *Budget, expenses []Expense) (*Performance, error) {
	s, err := a.resolveScope(b)
	if err != nil {
		return nil, err
	}

	spent := decimal.Zero
	count := 0
	for i := range expenses {
		e := &expenses[i]
		if !b.Covers(e.Date) || !a.inScope(s, e) {
			continue
		}
		amount, err := amountIn(e, b.Currency)
		if err != nil {
			return nil, err
		}
		spent = spent.Add(amount)
		count++
	}
	spent = money.RoundAmount(spent, b.Currency)

	// status is decided on the exact ratio; only the reported value is rounded
	threshold := a.threshold(b)
	exact := decimal.Zero
	if b.Amount.IsPositive() {
		exact = money.Percent(spent, b.Amount)
	}

	return &Performance{
		BudgetID:       b.ID,
		Name:           b.Name,
		Amount:         b.Amount,
		Spent:          spent,
		Remaining:      b.Amount.Sub(spent),
		PercentageUsed: money.RoundPercentage(exact),
		Status:         Classify(exact, threshold),
		IsOverBudget:   spent.GreaterThan(b.Amount),
		ShouldAlert:    exact.GreaterThanOrEqual(threshold),
		AlertThreshold: threshold,
		AlertAmount:    money.PercentOf(b.Amount, threshold, b.Currency),
		Currency:       b.Currency,
		PeriodType:     b.PeriodType,
		StartDate:      b.StartDate,
		EndDate:        b.EndDate,
		ExpenseCount:   count,
	}, nil
}

// Summarize totals performances that must all be denominated in currency.
// threshold may be nil to use the default.
func (a *Aggregator) Summarize(currency string, threshold *decimal.Decimal, perfs []*Performance) (*Summary, error) {
	t := a.defaultThreshold
	if threshold != nil && !threshold.IsZero() {
		t = *threshold
	}

	summary := &Summary{
		Currency:     currency,
		TotalBudget:  decimal.Zero,
		TotalSpent:   decimal.Zero,
		StatusCounts: make(map[Status]int, len(Statuses)),
		Budgets:      make([]*Performance, 0, len(perfs)),
	}
	for _, s := range Statuses {
		summary.StatusCounts[s] = 0
	}

	for _, p := range perfs {
		if p.Currency != currency {
			return nil, apperr.Configuration(
				"budget "+p.BudgetID.String()+" is in "+p.Currency+", summary currency is "+currency,
				money.ErrCurrencyMismatch,
			)
		}
		summary.TotalBudget = summary.TotalBudget.Add(p.Amount)
		summary.TotalSpent = summary.TotalSpent.Add(p.Spent)
		summary.StatusCounts[p.Status]++
		summary.Budgets = append(summary.Budgets, p)
	}

	summary.BudgetCount = len(summary.Budgets)
	summary.TotalRemaining = summary.TotalBudget.Sub(summary.TotalSpent)
	exact := decimal.Zero
	if summary.TotalBudget.IsPositive() {
		exact = money.Percent(summary.TotalSpent, summary.TotalBudget)
	}
	summary.OverallPercentage = money.RoundPercentage(exact)
	summary.OverallStatus = Classify(exact, t)

	return summary, nil
}
