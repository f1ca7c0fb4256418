package budget

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/money"
)

type parents map[uuid.UUID]*uuid.UUID

func (p parents) Parent(id uuid.UUID) (*uuid.UUID, bool) {
	parent, ok := p[id]
	return parent, ok
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func monthBudget(amount string) *Budget {
	end := day("2024-03-31")
	return &Budget{
		ID:             uuid.New(),
		Name:           "March",
		Amount:         d(amount),
		Currency:       "EUR",
		PeriodType:     PeriodMonthly,
		StartDate:      day("2024-03-01"),
		EndDate:        &end,
		AlertThreshold: d("80"),
		IsActive:       true,
	}
}

func spend(amounts ...string) []Expense {
	out := make([]Expense, len(amounts))
	for i, a := range amounts {
		out[i] = Expense{ID: uuid.New(), Amount: d(a), Currency: "EUR", Date: day("2024-03-15")}
	}
	return out
}

func TestPerformanceScenarios(t *testing.T) {
	agg := NewAggregator(nil, DefaultAlertThreshold)

	tests := []struct {
		name          string
		amount        string
		expenses      []Expense
		wantSpent     string
		wantRemaining string
		wantPct       string
		wantStatus    Status
		wantOver      bool
		wantAlert     bool
	}{
		{
			name:          "warning at 82 percent",
			amount:        "500",
			expenses:      spend("200", "150", "60"),
			wantSpent:     "410",
			wantRemaining: "90",
			wantPct:       "82",
			wantStatus:    StatusWarning,
			wantAlert:     true,
		},
		{
			name:          "over budget",
			amount:        "500",
			expenses:      spend("500", "20"),
			wantSpent:     "520",
			wantRemaining: "-20",
			wantPct:       "104",
			wantStatus:    StatusOverBudget,
			wantOver:      true,
			wantAlert:     true,
		},
		{
			name:          "on track",
			amount:        "500",
			expenses:      spend("100"),
			wantSpent:     "100",
			wantRemaining: "400",
			wantPct:       "20",
			wantStatus:    StatusOnTrack,
		},
		{
			name:          "exactly at limit",
			amount:        "500",
			expenses:      spend("500"),
			wantSpent:     "500",
			wantRemaining: "0",
			wantPct:       "100",
			wantStatus:    StatusOverBudget,
			wantAlert:     true,
		},
		{
			name:          "zero amount budget",
			amount:        "0",
			expenses:      spend("10"),
			wantSpent:     "10",
			wantRemaining: "-10",
			wantPct:       "0",
			wantStatus:    StatusOnTrack,
			wantOver:      true,
		},
		{
			name:          "no expenses",
			amount:        "500",
			wantSpent:     "0",
			wantRemaining: "500",
			wantPct:       "0",
			wantStatus:    StatusOnTrack,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := agg.Performance(monthBudget(tt.amount), tt.expenses)
			if err != nil {
				t.Fatalf("Performance() error = %v", err)
			}
			if !p.Spent.Equal(d(tt.wantSpent)) {
				t.Errorf("Spent = %s, want %s", p.Spent, tt.wantSpent)
			}
			if !p.Remaining.Equal(d(tt.wantRemaining)) {
				t.Errorf("Remaining = %s, want %s", p.Remaining, tt.wantRemaining)
			}
			if !p.PercentageUsed.Equal(d(tt.wantPct)) {
				t.Errorf("PercentageUsed = %s, want %s", p.PercentageUsed, tt.wantPct)
			}
			if p.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", p.Status, tt.wantStatus)
			}
			if p.IsOverBudget != tt.wantOver {
				t.Errorf("IsOverBudget = %v, want %v", p.IsOverBudget, tt.wantOver)
			}
			if p.ShouldAlert != tt.wantAlert {
				t.Errorf("ShouldAlert = %v, want %v", p.ShouldAlert, tt.wantAlert)
			}
			if !p.Remaining.Equal(p.Amount.Sub(p.Spent)) {
				t.Errorf("Remaining %s != Amount %s - Spent %s", p.Remaining, p.Amount, p.Spent)
			}
		})
	}
}

func TestPerformanceRespectsPeriod(t *testing.T) {
	agg := NewAggregator(nil, DefaultAlertThreshold)
	b := monthBudget("100")

	expenses := []Expense{
		{Amount: d("1"), Currency: "EUR", Date: day("2024-02-29")},
		{Amount: d("2"), Currency: "EUR", Date: day("2024-03-01")},
		{Amount: d("4"), Currency: "EUR", Date: day("2024-03-31").Add(23 * time.Hour)},
		{Amount: d("8"), Currency: "EUR", Date: day("2024-04-01")},
	}

	p, err := agg.Performance(b, expenses)
	if err != nil {
		t.Fatalf("Performance() error = %v", err)
	}
	if !p.Spent.Equal(d("6")) || p.ExpenseCount != 2 {
		t.Errorf("Spent = %s over %d expenses, want 6 over 2", p.Spent, p.ExpenseCount)
	}

	b.EndDate = nil
	p, err = agg.Performance(b, expenses)
	if err != nil {
		t.Fatalf("Performance() error = %v", err)
	}
	if !p.Spent.Equal(d("14")) {
		t.Errorf("open-ended Spent = %s, want 14", p.Spent)
	}
}

func TestStatusMonotonicity(t *testing.T) {
	threshold := d("75")
	for pct := 0; pct <= 150; pct++ {
		p := decimal.NewFromInt(int64(pct))
		want := StatusOnTrack
		switch {
		case pct >= 100:
			want = StatusOverBudget
		case pct >= 75:
			want = StatusWarning
		}
		if got := Classify(p, threshold); got != want {
			t.Errorf("Classify(%d) = %s, want %s", pct, got, want)
		}
	}
}

func TestStatusDecidedBeforeRounding(t *testing.T) {
	agg := NewAggregator(nil, DefaultAlertThreshold)

	tests := []struct {
		name       string
		amount     string
		spent      string
		wantPct    string
		wantStatus Status
		wantAlert  bool
	}{
		{"a cent short of the limit", "100000", "99999.99", "100", StatusWarning, true},
		{"exactly the limit", "100000", "100000", "100", StatusOverBudget, true},
		{"just under the threshold", "100000", "79996", "80", StatusOnTrack, false},
		{"exactly the threshold", "100000", "80000", "80", StatusWarning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := monthBudget(tt.amount)
			p, err := agg.Performance(b, spend(tt.spent))
			if err != nil {
				t.Fatalf("Performance() error = %v", err)
			}
			if !p.PercentageUsed.Equal(d(tt.wantPct)) {
				t.Errorf("PercentageUsed = %s, want %s", p.PercentageUsed, tt.wantPct)
			}
			if p.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", p.Status, tt.wantStatus)
			}
			if p.ShouldAlert != tt.wantAlert {
				t.Errorf("ShouldAlert = %v, want %v", p.ShouldAlert, tt.wantAlert)
			}
			reached := !p.Spent.LessThan(p.Amount)
			if (p.Status == StatusOverBudget) != reached {
				t.Errorf("Status = %s but spent %s of %s", p.Status, p.Spent, p.Amount)
			}
		})
	}
}

func TestSummaryStatusDecidedBeforeRounding(t *testing.T) {
	agg := NewAggregator(nil, DefaultAlertThreshold)
	p, err := agg.Performance(monthBudget("100000"), spend("99999.99"))
	if err != nil {
		t.Fatalf("Performance() error = %v", err)
	}
	s, err := agg.Summarize("EUR", nil, []*Performance{p})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if !s.OverallPercentage.Equal(d("100")) || s.OverallStatus != StatusWarning {
		t.Errorf("overall = %s%% %s, want 100%% warning", s.OverallPercentage, s.OverallStatus)
	}
}

func TestCategoryScope(t *testing.T) {
	food, groceries, dining, travel := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	idx := parents{food: nil, travel: nil, groceries: &food, dining: &food}
	agg := NewAggregator(idx, DefaultAlertThreshold)

	expense := func(amount string, cat, sub *uuid.UUID) Expense {
		return Expense{Amount: d(amount), Currency: "EUR", Date: day("2024-03-10"), CategoryID: cat, SubcategoryID: sub}
	}
	expenses := []Expense{
		expense("10", &food, nil),
		expense("20", &food, &groceries),
		expense("40", nil, &dining),
		expense("80", &travel, nil),
		expense("160", nil, nil),
	}

	tests := []struct {
		name      string
		category  *uuid.UUID
		sub       *uuid.UUID
		wantSpent string
	}{
		{name: "unscoped", wantSpent: "310"},
		{name: "primary includes subcategories", category: &food, wantSpent: "70"},
		{name: "subcategory is exact", sub: &groceries, wantSpent: "20"},
		{name: "subcategory with its parent", category: &food, sub: &dining, wantSpent: "40"},
		{name: "unrelated primary", category: &travel, wantSpent: "80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := monthBudget("1000")
			b.CategoryID, b.SubcategoryID = tt.category, tt.sub

			p, err := agg.Performance(b, expenses)
			if err != nil {
				t.Fatalf("Performance() error = %v", err)
			}
			if !p.Spent.Equal(d(tt.wantSpent)) {
				t.Errorf("Spent = %s, want %s", p.Spent, tt.wantSpent)
			}
		})
	}
}

func TestInvalidScopeIsConfigurationError(t *testing.T) {
	food, groceries, travel := uuid.New(), uuid.New(), uuid.New()
	idx := parents{food: nil, travel: nil, groceries: &food}
	unknown := uuid.New()

	tests := []struct {
		name     string
		index    CategoryIndex
		category *uuid.UUID
		sub      *uuid.UUID
	}{
		{name: "unknown category", index: idx, category: &unknown},
		{name: "unknown subcategory", index: idx, sub: &unknown},
		{name: "subcategory under other parent", index: idx, category: &travel, sub: &groceries},
		{name: "primary used as subcategory", index: idx, sub: &food},
		{name: "subcategory used as category", index: idx, category: &groceries},
		{name: "no index loaded", category: &food},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator(tt.index, DefaultAlertThreshold)
			b := monthBudget("100")
			b.CategoryID, b.SubcategoryID = tt.category, tt.sub

			if _, err := agg.Performance(b, nil); !apperr.IsConfiguration(err) {
				t.Errorf("Performance() error = %v, want configuration error", err)
			}
		})
	}
}

func TestPerformanceUsesBaseCurrencyAmount(t *testing.T) {
	agg := NewAggregator(nil, DefaultAlertThreshold)
	b := monthBudget("100")
	converted := d("9.20")

	p, err := agg.Performance(b, []Expense{
		{Amount: d("10"), Currency: "USD", AmountInBaseCurrency: &converted, BaseCurrency: "EUR", Date: day("2024-03-02")},
		{Amount: d("5"), Currency: "EUR", Date: day("2024-03-02")},
	})
	if err != nil {
		t.Fatalf("Performance() error = %v", err)
	}
	if !p.Spent.Equal(d("14.20")) {
		t.Errorf("Spent = %s, want 14.20", p.Spent)
	}

	tests := []struct {
		name    string
		expense Expense
	}{
		{"missing base amount", Expense{Amount: d("10"), Currency: "USD", BaseCurrency: "EUR", Date: day("2024-03-02")}},
		{"base currency unknown", Expense{Amount: d("10"), Currency: "USD", AmountInBaseCurrency: &converted, Date: day("2024-03-02")}},
		{"base currency is not the budget's", Expense{Amount: d("10"), Currency: "USD", AmountInBaseCurrency: &converted, BaseCurrency: "GBP", Date: day("2024-03-02")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := agg.Performance(b, []Expense{tt.expense})
			if !apperr.IsConfiguration(err) {
				t.Errorf("error = %v, want configuration error", err)
			}
		})
	}
}

func TestPerformanceRejectsForeignBaseAmount(t *testing.T) {
	agg := NewAggregator(nil, DefaultAlertThreshold)
	b := monthBudget("100")
	b.Currency = "USD"
	base := d("90")

	_, err := agg.Performance(b, []Expense{
		{ID: uuid.New(), Amount: d("100"), Currency: "EUR", AmountInBaseCurrency: &base, BaseCurrency: "EUR", Date: day("2024-03-02")},
	})
	if !apperr.IsConfiguration(err) {
		t.Errorf("EUR base amount in a USD budget: error = %v, want configuration error", err)
	}
}

func TestSummarizeGroup(t *testing.T) {
	agg := NewAggregator(nil, DefaultAlertThreshold)

	groceries := monthBudget("300")
	groceries.AlertThreshold = d("80")
	dining := monthBudget("200")
	dining.AlertThreshold = d("80")

	p1, err := agg.Performance(groceries, spend("100"))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := agg.Performance(dining, spend("250"))
	if err != nil {
		t.Fatal(err)
	}

	s, err := agg.Summarize("EUR", nil, []*Performance{p1, p2})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	checks := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"total_budget", s.TotalBudget, "500"},
		{"total_spent", s.TotalSpent, "350"},
		{"total_remaining", s.TotalRemaining, "150"},
		{"overall_percentage", s.OverallPercentage, "70"},
	}
	for _, c := range checks {
		if !c.got.Equal(d(c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}

	if s.OverallStatus != StatusOnTrack {
		t.Errorf("OverallStatus = %s, want on_track", s.OverallStatus)
	}
	want := map[Status]int{StatusOnTrack: 1, StatusWarning: 0, StatusOverBudget: 1}
	if fmt.Sprint(s.StatusCounts) != fmt.Sprint(want) {
		t.Errorf("StatusCounts = %v, want %v", s.StatusCounts, want)
	}
	if s.BudgetCount != 2 {
		t.Errorf("BudgetCount = %d, want 2", s.BudgetCount)
	}

	groupThreshold := d("60")
	s, err = agg.Summarize("EUR", &groupThreshold, []*Performance{p1, p2})
	if err != nil {
		t.Fatal(err)
	}
	if s.OverallStatus != StatusWarning {
		t.Errorf("OverallStatus with 60%% threshold = %s, want warning", s.OverallStatus)
	}
}

func TestSummarizeRejectsMixedCurrencies(t *testing.T) {
	agg := NewAggregator(nil, DefaultAlertThreshold)

	usd := monthBudget("100")
	usd.Currency = "USD"
	p1, _ := agg.Performance(monthBudget("100"), nil)
	p2, _ := agg.Performance(usd, nil)

	_, err := agg.Summarize("EUR", nil, []*Performance{p1, p2})
	if !apperr.IsConfiguration(err) || !errors.Is(err, money.ErrCurrencyMismatch) {
		t.Errorf("Summarize() error = %v, want configuration error wrapping ErrCurrencyMismatch", err)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s, err := NewAggregator(nil, DefaultAlertThreshold).Summarize("EUR", nil, nil)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if s.BudgetCount != 0 || !s.OverallPercentage.IsZero() || s.OverallStatus != StatusOnTrack {
		t.Errorf("empty summary = %+v", s)
	}
}
