package budgetgroup

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/calendar"
)

// Group is a named collection of budgets sharing one period and one currency
type Group struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	Name           string            `json:"name"`
	Description    *string           `json:"description,omitempty"`
	PeriodType     budget.PeriodType `json:"period_type"`
	StartDate      time.Time         `json:"start_date"`
	EndDate        time.Time         `json:"end_date"`
	Currency       string            `json:"currency"`
	AlertThreshold *decimal.Decimal  `json:"alert_threshold,omitempty"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Overlaps reports whether the group period shares at least one day with
// [from, to]
func (g *Group) Overlaps(from, to time.Time) bool {
	return !calendar.Truncate(g.StartDate).After(calendar.Truncate(to)) &&
		!calendar.Truncate(g.EndDate).Before(calendar.Truncate(from))
}

// validPeriod reports whether p can be used for a group. Groups never
// recur weekly.
func validPeriod(p budget.PeriodType) bool {
	switch p {
	case budget.PeriodMonthly, budget.PeriodQuarterly, budget.PeriodYearly, budget.PeriodCustom:
		return true
	}
	return false
}

// DeletePolicy decides what happens to member budgets when a group is deleted
type DeletePolicy string

const (
	// PolicyDeactivate keeps the group row inactive and detaches and
	// deactivates its budgets
	PolicyDeactivate DeletePolicy = "deactivate"
	// PolicyCascade deletes the group together with its budgets
	PolicyCascade DeletePolicy = "cascade"
)

// ParseDeletePolicy maps a configuration value to a policy
func ParseDeletePolicy(s string) (DeletePolicy, bool) {
	switch p := DeletePolicy(s); p {
	case PolicyDeactivate, PolicyCascade:
		return p, true
	}
	return "", false
}

// Scope selects which categories budgets are generated for
type Scope string

const (
	ScopePrimary       Scope = "primary"
	ScopeSubcategories Scope = "subcategories"
	ScopeAll           Scope = "all"
)
