package budgetgroup

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/calendar"
	"github.com/fkhayef/finance/internal/category"
	"github.com/fkhayef/finance/internal/money"
)

// Common errors
var (
	ErrGroupNotFound     = errors.New("budget group not found")
	ErrBudgetNotInGroup  = errors.New("budget does not belong to this group")
	ErrGroupInactive     = errors.New("budget group is inactive")
	ErrNothingToGenerate = errors.New("no categories in scope without a budget")
)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Create(ctx context.Context, g *Group) (*Group, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Group, error)
	ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Group, error)
	ListOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*Group, error)
	Update(ctx context.Context, g *Group) (*Group, error)
	Delete(ctx context.Context, id uuid.UUID, policy DeletePolicy) error
}

// Budgets is the part of the budget feature a group works through.
// *budget.Service implements it.
type Budgets interface {
	CreateMany(ctx context.Context, userID uuid.UUID, reqs []*budget.CreateBudgetRequest) ([]*budget.Budget, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*budget.Budget, error)
	ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*budget.Budget, error)
	SetGroup(ctx context.Context, ids []uuid.UUID, groupID *uuid.UUID) error
	UpdateAmounts(ctx context.Context, budgets []*budget.Budget, amounts map[uuid.UUID]decimal.Decimal) ([]*budget.Budget, error)
	Evaluate(ctx context.Context, userID uuid.UUID, budgets []*budget.Budget) ([]*budget.Performance, error)
	Summarize(currency string, threshold *decimal.Decimal, perfs []*budget.Performance) (*budget.Summary, error)
}

// CategoryLoader loads a user's category hierarchy
type CategoryLoader interface {
	Hierarchy(ctx context.Context, userID uuid.UUID) (*category.Hierarchy, error)
}

// Service handles budget group business logic
type Service struct {
	repo       Store
	budgets    Budgets
	categories CategoryLoader
	policy     DeletePolicy
}

// NewService creates a new budget group service. An unknown policy falls
// back to PolicyDeactivate.
func NewService(repo Store, budgets Budgets, categories CategoryLoader, policy DeletePolicy) *Service {
	if _, ok := ParseDeletePolicy(string(policy)); !ok {
		policy = PolicyDeactivate
	}
	return &Service{repo: repo, budgets: budgets, categories: categories, policy: policy}
}

// Create validates and stores a new group. Monthly, quarterly and yearly
// groups derive their end date when none is given; custom groups need one.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateGroupRequest) (*Group, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name", "is required")
	}
	if !validPeriod(req.PeriodType) {
		return nil, apperr.Validationf("period_type", "unknown period type %q", req.PeriodType)
	}
	currency := strings.ToUpper(req.Currency)
	if err := money.ValidateCurrency(currency); err != nil {
		return nil, apperr.Validation("currency", err.Error())
	}
	if err := validateThreshold(req.AlertThreshold); err != nil {
		return nil, err
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
		end = budget.DefaultEndDate(req.PeriodType, start)
	}
	if end == nil {
		return nil, apperr.Validation("end_date", "is required for custom periods")
	}
	if !end.After(start) {
		return nil, apperr.Validation("end_date", "must be after start_date")
	}

	return s.repo.Create(ctx, &Group{
		UserID:         userID,
		Name:           name,
		Description:    req.Description,
		PeriodType:     req.PeriodType,
		StartDate:      start,
		EndDate:        *end,
		Currency:       currency,
		AlertThreshold: req.AlertThreshold,
		IsActive:       true,
	})
}

func validateThreshold(t *decimal.Decimal) error {
	if t != nil && (t.IsNegative() || t.GreaterThan(money.Hundred)) {
		return apperr.Validation("alert_threshold", "must be between 0 and 100")
	}
	return nil
}

// GetByID retrieves a group owned by userID
func (s *Service) GetByID(ctx context.Context, userID, id uuid.UUID) (*Group, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil || g.UserID != userID {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// GetWithBudgets retrieves a group together with its member budgets
func (s *Service) GetWithBudgets(ctx context.Context, userID, id uuid.UUID) (*Group, []*budget.Budget, error) {
	g, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	budgets, err := s.budgets.ListByGroup(ctx, g.ID)
	if err != nil {
		return nil, nil, err
	}
	return g, budgets, nil
}

// List retrieves a user's groups
func (s *Service) List(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Group, error) {
	return s.repo.ListByUser(ctx, userID, activeOnly)
}

// Overlapping lists the user's active groups sharing a day with [from, to]
func (s *Service) Overlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*Group, error) {
	if to.Before(from) {
		return nil, apperr.Validation("to", "must not be before from")
	}
	return s.repo.ListOverlapping(ctx, userID, from, to)
}

// Update modifies a group owned by userID
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req *UpdateGroupRequest) (*Group, error) {
	existing, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	g := *existing

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("name", "must not be blank")
		}
		g.Name = name
	}
	if req.Description != nil {
		g.Description = req.Description
	}
	if req.StartDate != nil {
		if g.StartDate, err = calendar.Parse("start_date", *req.StartDate); err != nil {
			return nil, err
		}
	}
	if req.EndDate != nil {
		if g.EndDate, err = calendar.Parse("end_date", *req.EndDate); err != nil {
			return nil, err
		}
	}
	if !g.EndDate.After(g.StartDate) {
		return nil, apperr.Validation("end_date", "must be after start_date")
	}
	if req.AlertThreshold != nil {
		if err := validateThreshold(req.AlertThreshold); err != nil {
			return nil, err
		}
		g.AlertThreshold = req.AlertThreshold
	}
	if req.IsActive != nil {
		g.IsActive = *req.IsActive
	}

	updated, err := s.repo.Update(ctx, &g)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrGroupNotFound
	}
	return updated, nil
}

// Attach moves budgets into the group. Every budget must be in the group
// currency.
func (s *Service) Attach(ctx context.Context, userID, id uuid.UUID, budgetIDs []uuid.UUID) ([]*budget.Budget, error) {
	g, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !g.IsActive {
		return nil, ErrGroupInactive
	}
	if len(budgetIDs) == 0 {
		return nil, apperr.Validation("budget_ids", "must not be empty")
	}

	budgets, err := s.budgets.ListByIDs(ctx, userID, budgetIDs)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		if b.Currency != g.Currency {
			return nil, apperr.Configuration(
				"budget "+b.ID.String()+" is in "+b.Currency+", group currency is "+g.Currency,
				money.ErrCurrencyMismatch,
			)
		}
	}

	if err := s.budgets.SetGroup(ctx, budgetIDs, &g.ID); err != nil {
		return nil, err
	}
	return s.budgets.ListByGroup(ctx, g.ID)
}

// Detach removes one budget from the group
func (s *Service) Detach(ctx context.Context, userID, id, budgetID uuid.UUID) error {
	g, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return err
	}
	budgets, err := s.budgets.ListByIDs(ctx, userID, []uuid.UUID{budgetID})
	if err != nil {
		return err
	}
	if b := budgets[0]; b.BudgetGroupID == nil || *b.BudgetGroupID != g.ID {
		return ErrBudgetNotInGroup
	}
	return s.budgets.SetGroup(ctx, []uuid.UUID{budgetID}, nil)
}

// Generate creates one budget per active category in scope, skipping
// categories the group already budgets for. Budgets take the group period
// and currency.
func (s *Service) Generate(ctx context.Context, userID, id uuid.UUID, req *GenerateRequest) ([]*budget.Budget, error) {
	g, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !g.IsActive {
		return nil, ErrGroupInactive
	}
	if req.Scope == "" {
		req.Scope = ScopePrimary
	}
	if req.DefaultAmount.IsNegative() {
		return nil, apperr.Validation("default_amount", "must not be negative")
	}

	h, err := s.categories.Hierarchy(ctx, userID)
	if err != nil {
		return nil, err
	}
	targets, err := inScope(h, req.Scope)
	if err != nil {
		return nil, err
	}

	eligible := make(map[uuid.UUID]bool, len(targets))
	for _, c := range targets {
		eligible[c.ID] = true
	}
	for catID, amount := range req.Overrides {
		if !eligible[catID] {
			return nil, apperr.Validationf("overrides", "category %s is not in scope %q", catID, req.Scope)
		}
		if amount.IsNegative() {
			return nil, apperr.Validationf("overrides", "category %s: amount must not be negative", catID)
		}
	}

	existing, err := s.budgets.ListByGroup(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	covered := make(map[uuid.UUID]bool, len(existing))
	for _, b := range existing {
		switch {
		case b.SubcategoryID != nil:
			covered[*b.SubcategoryID] = true
		case b.CategoryID != nil:
			covered[*b.CategoryID] = true
		}
	}

	start, end := calendar.Format(g.StartDate), calendar.Format(g.EndDate)
	var reqs []*budget.CreateBudgetRequest
	for _, c := range targets {
		if covered[c.ID] {
			continue
		}
		amount := req.DefaultAmount
		if o, ok := req.Overrides[c.ID]; ok {
			amount = o
		}
		r := &budget.CreateBudgetRequest{
			Name:           c.Name,
			Amount:         amount,
			Currency:       g.Currency,
			PeriodType:     g.PeriodType,
			StartDate:      start,
			EndDate:        &end,
			AlertThreshold: g.AlertThreshold,
			BudgetGroupID:  &g.ID,
		}
		if c.IsPrimary() {
			r.CategoryID = &c.ID
		} else {
			r.CategoryID, r.SubcategoryID = c.ParentID, &c.ID
			if parent, ok := h.Get(*c.ParentID); ok {
				r.Name = parent.Name + " / " + c.Name
			}
		}
		reqs = append(reqs, r)
	}
	if len(reqs) == 0 {
		return nil, ErrNothingToGenerate
	}

	return s.budgets.CreateMany(ctx, userID, reqs)
}

// inScope lists the active categories selected by scope, primaries first
func inScope(h *category.Hierarchy, scope Scope) ([]*category.Category, error) {
	var out []*category.Category
	for _, p := range h.Primaries() {
		if !p.IsActive {
			continue
		}
		if scope == ScopePrimary || scope == ScopeAll {
			out = append(out, p)
		}
		if scope == ScopeSubcategories || scope == ScopeAll {
			for _, c := range h.Children(p.ID) {
				if c.IsActive {
					out = append(out, c)
				}
			}
		}
	}
	switch scope {
	case ScopePrimary, ScopeSubcategories, ScopeAll:
		return out, nil
	}
	return nil, apperr.Validationf("scope", "unknown scope %q", scope)
}

// BulkUpdate sets new amounts on member budgets in one call
func (s *Service) BulkUpdate(ctx context.Context, userID, id uuid.UUID, amounts map[uuid.UUID]decimal.Decimal) ([]*budget.Budget, error) {
	g, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if len(amounts) == 0 {
		return nil, apperr.Validation("amounts", "must not be empty")
	}

	ids := make([]uuid.UUID, 0, len(amounts))
	for budgetID := range amounts {
		ids = append(ids, budgetID)
	}
	budgets, err := s.budgets.ListByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		if b.BudgetGroupID == nil || *b.BudgetGroupID != g.ID {
			return nil, ErrBudgetNotInGroup
		}
	}

	return s.budgets.UpdateAmounts(ctx, budgets, amounts)
}

// Summary evaluates the active member budgets and totals them in the group
// currency with the group threshold
func (s *Service) Summary(ctx context.Context, userID, id uuid.UUID) (*Group, *budget.Summary, error) {
	g, budgets, err := s.GetWithBudgets(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}

	active := make([]*budget.Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.IsActive {
			active = append(active, b)
		}
	}

	perfs, err := s.budgets.Evaluate(ctx, userID, active)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.budgets.Summarize(g.Currency, g.AlertThreshold, perfs)
	if err != nil {
		return nil, nil, err
	}
	return g, summary, nil
}

// Delete removes a group following the configured policy
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id, s.policy)
}

// Policy returns the delete policy in effect
func (s *Service) Policy() DeletePolicy {
	return s.policy
}
