package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/category"
	"github.com/fkhayef/finance/internal/money"
)

// MaxTrendMonths bounds the window of a trend request
const MaxTrendMonths = 24

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	MonthlyTotals(ctx context.Context, userID uuid.UUID, from, to time.Time, currency string) ([]MonthTotal, error)
	CategoryTotals(ctx context.Context, userID uuid.UUID, from, to time.Time, currency string) ([]CategoryTotal, error)
}

// BudgetSummarizer rolls up the user's current budgets
type BudgetSummarizer interface {
	Summary(ctx context.Context, userID uuid.UUID, currency string) (*budget.Summary, error)
}

// CategoryLoader loads a user's category hierarchy
type CategoryLoader interface {
	Hierarchy(ctx context.Context, userID uuid.UUID) (*category.Hierarchy, error)
}

// Service builds spending reports
type Service struct {
	repo       Store
	budgets    BudgetSummarizer
	categories CategoryLoader
	currencies budget.CurrencyResolver
	now        func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new analytics service
func NewService(repo Store, budgets BudgetSummarizer, categories CategoryLoader, currencies budget.CurrencyResolver, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		budgets:    budgets,
		categories: categories,
		currencies: currencies,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func monthKey(t time.Time) string {
	return t.Format("2006-01")
}

// Yearly summarizes a calendar year in the user's base currency. A zero
// year selects the current one.
func (s *Service) Yearly(ctx context.Context, userID uuid.UUID, year int) (*YearlySummary, error) {
	if year == 0 {
		year = s.now().Year()
	}
	if year < 1900 || year > 9999 {
		return nil, apperr.Validationf("year", "%d is out of range", year)
	}
	base, err := s.currencies.BaseCurrency(ctx, userID)
	if err != nil {
		return nil, err
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)

	months, err := s.repo.MonthlyTotals(ctx, userID, from, to, base)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]MonthTotal, len(months))
	for _, m := range months {
		byMonth[monthKey(m.Month)] = m
	}

	out := &YearlySummary{
		Year:             year,
		Currency:         base,
		TotalAmount:      decimal.Zero,
		MonthlyBreakdown: make([]MonthSummary, 12),
	}
	for i := range out.MonthlyBreakdown {
		key := monthKey(from.AddDate(0, i, 0))
		m := byMonth[key]
		out.MonthlyBreakdown[i] = MonthSummary{Month: key, Amount: m.Total, Count: m.Count}
		out.TotalAmount = out.TotalAmount.Add(m.Total)
		out.TotalCount += m.Count
		out.Unconverted += m.Unconverted
	}

	if out.CategoryBreakdown, err = s.categoryBreakdown(ctx, userID, from, to, base, out.TotalAmount); err != nil {
		return nil, err
	}
	if out.BudgetPerformance, err = s.budgets.Summary(ctx, userID, base); err != nil {
		return nil, err
	}
	return out, nil
}

// categoryBreakdown lists the primary categories by amount, largest first
func (s *Service) categoryBreakdown(ctx context.Context, userID uuid.UUID, from, to time.Time, base string, total decimal.Decimal) ([]CategoryShare, error) {
	totals, err := s.repo.CategoryTotals(ctx, userID, from, to, base)
	if err != nil {
		return nil, err
	}
	h, err := s.categories.Hierarchy(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]CategoryShare, 0, len(totals))
	for _, c := range totals {
		name := "Uncategorized"
		if c.CategoryID != nil {
			if cat, ok := h.Get(*c.CategoryID); ok {
				name = cat.Name
			}
		}
		out = append(out, CategoryShare{
			CategoryID: c.CategoryID,
			Name:       name,
			Amount:     c.Total,
			Count:      c.Count,
			Percentage: money.Ratio(c.Total, total),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Amount.Equal(out[j].Amount) {
			return out[i].Amount.GreaterThan(out[j].Amount)
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Trends reports the last months of spending, the current month included,
// with the change of each against the month before.
func (s *Service) Trends(ctx context.Context, userID uuid.UUID, months int) (*Trends, error) {
	if months < 1 || months > MaxTrendMonths {
		return nil, apperr.Validationf("months", "must be between 1 and %d", MaxTrendMonths)
	}
	base, err := s.currencies.BaseCurrency(ctx, userID)
	if err != nil {
		return nil, err
	}

	end := monthStart(s.now()).AddDate(0, 1, 0)
	first := end.AddDate(0, -months, 0)
	// one extra month so the oldest point has a change too
	totals, err := s.repo.MonthlyTotals(ctx, userID, first.AddDate(0, -1, 0), end, base)
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]MonthTotal, len(totals))
	for _, m := range totals {
		byMonth[monthKey(m.Month)] = m
	}

	out := &Trends{Currency: base, Months: make([]TrendPoint, months), Average: decimal.Zero}
	sum := decimal.Zero
	for i := range out.Months {
		month := first.AddDate(0, i, 0)
		cur, prev := byMonth[monthKey(month)], byMonth[monthKey(month.AddDate(0, -1, 0))]
		p := TrendPoint{MonthSummary: MonthSummary{Month: monthKey(month), Amount: cur.Total, Count: cur.Count}}
		if prev.Total.IsPositive() {
			change := money.RoundPercentage(money.Percent(cur.Total.Sub(prev.Total), prev.Total))
			p.Change = &change
		}
		out.Months[i] = p
		sum = sum.Add(cur.Total)
	}
	out.Average = money.RoundAmount(sum.Div(decimal.NewFromInt(int64(months))), base)
	return out, nil
}
