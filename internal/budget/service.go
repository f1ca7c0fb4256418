package budget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/calendar"
	"github.com/fkhayef/finance/internal/category"
	"github.com/fkhayef/finance/internal/money"
	"github.com/fkhayef/finance/pkg/metrics"
)

// Common errors
var (
	ErrBudgetNotFound = errors.New("budget not found")
)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Create(ctx context.Context, b *Budget) (*Budget, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Budget, error)
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Budget, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*Budget, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Budget, error)
	Update(ctx context.Context, b *Budget) (*Budget, error)
	SetGroup(ctx context.Context, ids []uuid.UUID, groupID *uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListExpenses(ctx context.Context, userID uuid.UUID, from time.Time, to *time.Time) ([]Expense, error)
}

// CategoryLoader loads a user's category hierarchy
type CategoryLoader interface {
	Hierarchy(ctx context.Context, userID uuid.UUID) (*category.Hierarchy, error)
}

// CurrencyResolver returns the currency a user's summaries are reported in
type CurrencyResolver interface {
	BaseCurrency(ctx context.Context, userID uuid.UUID) (string, error)
}

// AlertNotifier is told when a new expense moves a budget into a worse status
type AlertNotifier interface {
	BudgetStatusChanged(ctx context.Context, userID uuid.UUID, t *Transition) error
}

// Service handles budget business logic
type Service struct {
	repo             Store
	categories       CategoryLoader
	currencies       CurrencyResolver
	notifier         AlertNotifier
	metrics          *metrics.Metrics
	defaultThreshold decimal.Decimal
	now              func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithNotifier sets the receiver of status transitions
func WithNotifier(n AlertNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records alert counters on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new budget service
func NewService(repo Store, categories CategoryLoader, currencies CurrencyResolver, defaultThreshold decimal.Decimal, opts ...Option) *Service {
	s := &Service{
		repo:             repo,
		categories:       categories,
		currencies:       currencies,
		defaultThreshold: defaultThreshold,
		now:              time.Now,
	}
	if s.defaultThreshold.IsZero() {
		s.defaultThreshold = DefaultAlertThreshold
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultThreshold is the alert threshold applied when none is configured
func (s *Service) DefaultThreshold() decimal.Decimal {
	return s.defaultThreshold
}

func (s *Service) aggregator(ctx context.Context, userID uuid.UUID) (*Aggregator, error) {
	h, err := s.categories.Hierarchy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewAggregator(h, s.defaultThreshold), nil
}

// Create validates and stores a new budget
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateBudgetRequest) (*Budget, error) {
	b, err := s.fromRequest(userID, req)
	if err != nil {
		return nil, err
	}
	if err := s.checkScope(ctx, b); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, b)
}

// CreateMany validates and stores budgets built by another feature, such as
// budget generation for a group.
func (s *Service) CreateMany(ctx context.Context, userID uuid.UUID, reqs []*CreateBudgetRequest) ([]*Budget, error) {
	agg, err := s.aggregator(ctx, userID)
	if err != nil {
		return nil, err
	}

	budgets := make([]*Budget, 0, len(reqs))
	for _, req := range reqs {
		b, err := s.fromRequest(userID, req)
		if err != nil {
			return nil, err
		}
		if _, err := agg.resolveScope(b); err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}

	created := make([]*Budget, 0, len(budgets))
	for _, b := range budgets {
		c, err := s.repo.Create(ctx, b)
		if err != nil {
			return nil, err
		}
		created = append(created, c)
	}
	return created, nil
}

func (s *Service) fromRequest(userID uuid.UUID, req *CreateBudgetRequest) (*Budget, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	if req.Amount.IsNegative() {
		return nil, apperr.Validation("amount", "must not be negative")
	}
	currency := strings.ToUpper(req.Currency)
	if err := money.ValidateCurrency(currency); err != nil {
		return nil, apperr.Validation("currency", err.Error())
	}
	if !req.PeriodType.Valid() {
		return nil, apperr.Validationf("period_type", "unknown period type %q", req.PeriodType)
	}

	start, err := calendar.Parse("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := calendar.ParseOptional("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	if end == nil {
		end = DefaultEndDate(req.PeriodType, start)
	}
	if end != nil && end.Before(start) {
		return nil, apperr.Validation("end_date", "must not be before start_date")
	}

	threshold := s.defaultThreshold
	if req.AlertThreshold != nil {
		threshold = *req.AlertThreshold
	}
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}

	return &Budget{
		UserID:         userID,
		BudgetGroupID:  req.BudgetGroupID,
		Name:           name,
		Amount:         money.RoundAmount(req.Amount, currency),
		Currency:       currency,
		PeriodType:     req.PeriodType,
		StartDate:      start,
		EndDate:        end,
		CategoryID:     req.CategoryID,
		SubcategoryID:  req.SubcategoryID,
		AlertThreshold: threshold,
		IsActive:       true,
	}, nil
}

func validateThreshold(t decimal.Decimal) error {
	if t.IsNegative() || t.GreaterThan(money.Hundred) {
		return apperr.Validation("alert_threshold", "must be between 0 and 100")
	}
	return nil
}

func (s *Service) checkScope(ctx context.Context, b *Budget) error {
	if b.CategoryID == nil && b.SubcategoryID == nil {
		return nil
	}
	agg, err := s.aggregator(ctx, b.UserID)
	if err != nil {
		return err
	}
	_, err = agg.resolveScope(b)
	return err
}

// GetByID retrieves a budget owned by userID
func (s *Service) GetByID(ctx context.Context, userID, id uuid.UUID) (*Budget, error) {
	b, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil || b.UserID != userID {
		return nil, ErrBudgetNotFound
	}
	return b, nil
}

// List retrieves a user's budgets. current keeps only budgets that are
// effectively active today.
func (s *Service) List(ctx context.Context, userID uuid.UUID, activeOnly, current bool) ([]*Budget, error) {
	budgets, err := s.repo.ListByUser(ctx, userID, activeOnly || current)
	if err != nil {
		return nil, err
	}
	if !current {
		return budgets, nil
	}
	return s.current(budgets), nil
}

func (s *Service) current(budgets []*Budget) []*Budget {
	now := s.now()
	out := make([]*Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.EffectivelyActive(now) {
			out = append(out, b)
		}
	}
	return out
}

// ListByGroup retrieves the budgets attached to a group
func (s *Service) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*Budget, error) {
	return s.repo.ListByGroup(ctx, groupID)
}

// ListByIDs retrieves budgets owned by userID. Any id that is missing or
// foreign yields ErrBudgetNotFound.
func (s *Service) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Budget, error) {
	budgets, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[uuid.UUID]bool, len(budgets))
	for _, b := range budgets {
		if b.UserID == userID {
			found[b.ID] = true
		}
	}
	for _, id := range ids {
		if !found[id] {
			return nil, ErrBudgetNotFound
		}
	}
	return budgets, nil
}

// SetGroup attaches budgets to a group, or detaches them when groupID is nil
func (s *Service) SetGroup(ctx context.Context, ids []uuid.UUID, groupID *uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return s.repo.SetGroup(ctx, ids, groupID)
}

// Update modifies a budget owned by userID
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req *UpdateBudgetRequest) (*Budget, error) {
	existing, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	b := *existing

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("name", "must not be blank")
		}
		b.Name = name
	}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, apperr.Validation("amount", "must not be negative")
		}
		b.Amount = money.RoundAmount(*req.Amount, b.Currency)
	}
	if req.PeriodType != nil {
		if !req.PeriodType.Valid() {
			return nil, apperr.Validationf("period_type", "unknown period type %q", *req.PeriodType)
		}
		b.PeriodType = *req.PeriodType
	}
	if req.StartDate != nil {
		start, err := calendar.Parse("start_date", *req.StartDate)
		if err != nil {
			return nil, err
		}
		b.StartDate = start
	}
	if req.EndDate != nil {
		end, err := calendar.ParseOptional("end_date", req.EndDate)
		if err != nil {
			return nil, err
		}
		b.EndDate = end
	}
	if b.EndDate != nil && b.EndDate.Before(b.StartDate) {
		return nil, apperr.Validation("end_date", "must not be before start_date")
	}
	if req.AlertThreshold != nil {
		if err := validateThreshold(*req.AlertThreshold); err != nil {
			return nil, err
		}
		b.AlertThreshold = *req.AlertThreshold
	}
	if req.IsActive != nil {
		b.IsActive = *req.IsActive
	}
	if req.ReplaceScope {
		b.CategoryID, b.SubcategoryID = req.CategoryID, req.SubcategoryID
		if err := s.checkScope(ctx, &b); err != nil {
			return nil, err
		}
	}

	updated, err := s.repo.Update(ctx, &b)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrBudgetNotFound
	}
	return updated, nil
}

// UpdateAmounts sets new amounts on budgets already checked for ownership
func (s *Service) UpdateAmounts(ctx context.Context, budgets []*Budget, amounts map[uuid.UUID]decimal.Decimal) ([]*Budget, error) {
	for _, b := range budgets {
		if a, ok := amounts[b.ID]; ok && a.IsNegative() {
			return nil, apperr.Validationf("amount", "budget %s: must not be negative", b.ID)
		}
	}

	out := make([]*Budget, 0, len(budgets))
	for _, b := range budgets {
		a, ok := amounts[b.ID]
		if !ok {
			out = append(out, b)
			continue
		}
		changed := *b
		changed.Amount = money.RoundAmount(a, b.Currency)
		updated, err := s.repo.Update(ctx, &changed)
		if err != nil {
			return nil, err
		}
		out = append(out, updated)
	}
	return out, nil
}

// Deactivate clears the active flag of a budget
func (s *Service) Deactivate(ctx context.Context, userID, id uuid.UUID) (*Budget, error) {
	inactive := false
	return s.Update(ctx, userID, id, &UpdateBudgetRequest{IsActive: &inactive})
}

// Delete removes a budget owned by userID
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Evaluate computes the performance of each budget. The category hierarchy
// and the expenses covering every budget period are loaded concurrently.
func (s *Service) Evaluate(ctx context.Context, userID uuid.UUID, budgets []*Budget) ([]*Performance, error) {
	if len(budgets) == 0 {
		return []*Performance{}, nil
	}

	var (
		agg      *Aggregator
		expenses []Expense
	)
	from, to := span(budgets)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg, err = s.aggregator(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.ListExpenses(gctx, userID, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	perfs := make([]*Performance, len(budgets))
	for i, b := range budgets {
		p, err := agg.Performance(b, expenses)
		if err != nil {
			return nil, err
		}
		perfs[i] = p
	}
	return perfs, nil
}

// span returns the smallest date range covering every budget period
func span(budgets []*Budget) (time.Time, *time.Time) {
	from := budgets[0].StartDate
	var to *time.Time
	open := false
	for _, b := range budgets {
		if b.StartDate.Before(from) {
			from = b.StartDate
		}
		switch {
		case b.EndDate == nil:
			open = true
		case to == nil || b.EndDate.After(*to):
			end := *b.EndDate
			to = &end
		}
	}
	if open {
		return from, nil
	}
	return from, to
}

// Performance computes the performance of one budget
func (s *Service) Performance(ctx context.Context, userID, id uuid.UUID) (*Performance, error) {
	b, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	perfs, err := s.Evaluate(ctx, userID, []*Budget{b})
	if err != nil {
		return nil, err
	}
	return perfs[0], nil
}

// CurrentPerformances computes performance for every current budget
func (s *Service) CurrentPerformances(ctx context.Context, userID uuid.UUID) ([]*Performance, error) {
	budgets, err := s.List(ctx, userID, true, true)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, userID, budgets)
}

// Summary rolls up the user's current budgets denominated in currency. An
// empty currency selects the user's base currency.
func (s *Service) Summary(ctx context.Context, userID uuid.UUID, currency string) (*Summary, error) {
	if currency == "" {
		var err error
		if currency, err = s.currencies.BaseCurrency(ctx, userID); err != nil {
			return nil, err
		}
	}
	currency = strings.ToUpper(currency)

	budgets, err := s.List(ctx, userID, true, true)
	if err != nil {
		return nil, err
	}
	selected := make([]*Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.Currency == currency {
			selected = append(selected, b)
		}
	}

	perfs, err := s.Evaluate(ctx, userID, selected)
	if err != nil {
		return nil, err
	}
	return NewAggregator(nil, s.defaultThreshold).Summarize(currency, nil, perfs)
}

// Summarize totals performances already computed for a group
func (s *Service) Summarize(currency string, threshold *decimal.Decimal, perfs []*Performance) (*Summary, error) {
	return NewAggregator(nil, s.defaultThreshold).Summarize(currency, threshold, perfs)
}

// Alerts lists the current budgets at or above their alert threshold
func (s *Service) Alerts(ctx context.Context, userID uuid.UUID) ([]*Alert, error) {
	budgets, err := s.List(ctx, userID, true, true)
	if err != nil {
		return nil, err
	}
	perfs, err := s.Evaluate(ctx, userID, budgets)
	if err != nil {
		return nil, err
	}

	alerts := []*Alert{}
	for i, p := range perfs {
		if !p.ShouldAlert {
			continue
		}
		alerts = append(alerts, &Alert{Budget: budgets[i], Performance: p, AlertType: p.Status})
	}
	return alerts, nil
}

// ExpenseRecorded compares each matching current budget before and after the
// expense was stored and reports every transition into a worse status.
// previous is the stored version an edit replaced, nil for a new expense.
// Failures are logged; recording the expense itself has already succeeded.
func (s *Service) ExpenseRecorded(ctx context.Context, userID uuid.UUID, e Expense, previous *Expense) {
	transitions, err := s.transitions(ctx, userID, e, previous)
	if err != nil {
		slog.Warn("Failed to evaluate budget alerts", "user_id", userID, "expense_id", e.ID, "error", err)
		return
	}

	for _, t := range transitions {
		s.metrics.BudgetAlert(string(t.To.Status))
		slog.Info("Budget status changed",
			"user_id", userID,
			"budget_id", t.Budget.ID,
			"from", t.From,
			"to", t.To.Status,
			"percentage_used", t.To.PercentageUsed.String(),
		)
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.BudgetStatusChanged(ctx, userID, t); err != nil {
			slog.Warn("Failed to notify budget alert", "budget_id", t.Budget.ID, "error", err)
		}
	}
}

func (s *Service) transitions(ctx context.Context, userID uuid.UUID, e Expense, previous *Expense) ([]*Transition, error) {
	budgets, err := s.List(ctx, userID, true, true)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, nil
	}

	agg, err := s.aggregator(ctx, userID)
	if err != nil {
		return nil, err
	}

	var affected []*Budget
	for _, b := range budgets {
		ok, err := agg.Matches(b, &e)
		if err != nil {
			slog.Warn("Skipping misconfigured budget", "budget_id", b.ID, "error", err)
			continue
		}
		if ok {
			affected = append(affected, b)
		}
	}
	if len(affected) == 0 {
		return nil, nil
	}

	from, to := span(affected)
	after, err := s.repo.ListExpenses(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	before := make([]Expense, 0, len(after)+1)
	for _, x := range after {
		if x.ID != e.ID {
			before = append(before, x)
		}
	}
	if previous != nil {
		before = append(before, *previous)
	}

	var out []*Transition
	for _, b := range affected {
		prev, err := agg.Performance(b, before)
		if err != nil {
			return nil, err
		}
		next, err := agg.Performance(b, after)
		if err != nil {
			return nil, err
		}
		if next.Status.Severity() > prev.Status.Severity() {
			out = append(out, &Transition{Budget: b, From: prev.Status, To: next})
		}
	}
	return out, nil
}
