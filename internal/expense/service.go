package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/calendar"
	"github.com/fkhayef/finance/internal/category"
	"github.com/fkhayef/finance/internal/currency"
	"github.com/fkhayef/finance/internal/expense/share"
	"github.com/fkhayef/finance/internal/money"
	"github.com/fkhayef/finance/internal/paymentmethod"
	"github.com/fkhayef/finance/pkg/metrics"
)

// Common errors
var (
	ErrExpenseNotFound     = errors.New("expense not found")
	ErrShareNotFound       = errors.New("share not found")
	ErrNotOwner            = errors.New("only the expense owner can change it")
	ErrNotShareParty       = errors.New("only the participant or the expense owner can settle a share")
	ErrSharesLocked        = errors.New("expense has settled shares or shares tied to a settlement")
	ErrShareAlreadySettled = errors.New("share is already settled")
)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Create(ctx context.Context, e *Expense) (*Expense, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]*Expense, int, error)
	Update(ctx context.Context, e *Expense, replaceShares bool) (*Expense, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetShareByID(ctx context.Context, id uuid.UUID) (*Share, error)
	SettleShare(ctx context.Context, id uuid.UUID) (*Share, error)
	ListSharesOwedBy(ctx context.Context, userID uuid.UUID, unsettledOnly bool) ([]*Share, error)
}

// CategoryLoader loads a user's category hierarchy
type CategoryLoader interface {
	Hierarchy(ctx context.Context, userID uuid.UUID) (*category.Hierarchy, error)
}

// RateConverter converts an amount into another currency
type RateConverter interface {
	Convert(ctx context.Context, m money.Money, to string) (*currency.Conversion, error)
}

// PaymentMethodLookup finds a payment method owned by a user
type PaymentMethodLookup interface {
	Lookup(ctx context.Context, userID, id uuid.UUID) (*paymentmethod.PaymentMethod, error)
}

// SpendingObserver is told about every stored expense
type SpendingObserver interface {
	ExpenseRecorded(ctx context.Context, userID uuid.UUID, e budget.Expense, previous *budget.Expense)
}

// ShareNotifier is told when shares are assigned or settled
type ShareNotifier interface {
	SharesAssigned(ctx context.Context, e *Expense) error
	ShareSettled(ctx context.Context, e *Expense, s *Share) error
}

// Service handles expense business logic
type Service struct {
	repo       Store
	calculator *share.Calculator
	categories CategoryLoader
	converter  RateConverter
	currencies budget.CurrencyResolver
	methods    PaymentMethodLookup
	observer   SpendingObserver
	notifier   ShareNotifier
	metrics    *metrics.Metrics
}

// Option configures a Service
type Option func(*Service)

// WithObserver sets the receiver of recorded expenses
func WithObserver(o SpendingObserver) Option {
	return func(s *Service) { s.observer = o }
}

// WithPaymentMethods checks payment_method_id against l
func WithPaymentMethods(l PaymentMethodLookup) Option {
	return func(s *Service) { s.methods = l }
}

// WithNotifier sets the receiver of share events
func WithNotifier(n ShareNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records share calculation counters on m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new expense service with dependencies injected
func NewService(repo Store, calculator *share.Calculator, categories CategoryLoader, converter RateConverter, currencies budget.CurrencyResolver, opts ...Option) *Service {
	if calculator == nil {
		calculator = share.NewCalculator(nil)
	}
	s := &Service{
		repo:       repo,
		calculator: calculator,
		categories: categories,
		converter:  converter,
		currencies: currencies,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Preview computes a draft split without storing anything. Imbalances come
// back as warnings.
func (s *Service) Preview(ctx context.Context, req *PreviewRequest) (*PreviewResponse, error) {
	total := money.New(req.TotalAmount, strings.ToUpper(req.Currency))
	participants := toParticipants(req.Participants)

	res, err := s.calculator.Calculate(total, participants)
	if err != nil {
		return nil, err
	}
	s.metrics.ShareCalculated("draft", res.IsValid)

	warnings := append([]string{}, res.Issues...)
	for i, p := range participants {
		if p.UserID == "" {
			warnings = append(warnings, fmt.Sprintf("participants[%d] has no user yet", i))
		}
	}
	return &PreviewResponse{Result: res, Warnings: warnings}, nil
}

// Create stores a new expense, splitting it when it is shared
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateExpenseRequest) (*Expense, error) {
	if req.Amount.IsNegative() {
		return nil, apperr.Validation("amount", "must not be negative")
	}
	cur := strings.ToUpper(req.Currency)
	if err := money.ValidateCurrency(cur); err != nil {
		return nil, apperr.Validation("currency", err.Error())
	}
	date, err := calendar.Parse("date", req.Date)
	if err != nil {
		return nil, err
	}

	e := &Expense{
		UserID:        userID,
		Amount:        money.RoundAmount(req.Amount, cur),
		Currency:      cur,
		Date:          date,
		Description:   strings.TrimSpace(req.Description),
		CategoryID:    req.CategoryID,
		SubcategoryID: req.SubcategoryID,
		IsShared:      req.IsShared,
	}
	if err := s.resolveCategory(ctx, e); err != nil {
		return nil, err
	}
	if err := s.resolvePaymentMethod(ctx, userID, req.PaymentMethodID); err != nil {
		return nil, err
	}
	e.PaymentMethodID = req.PaymentMethodID

	if req.AmountInBaseCurrency != nil {
		if req.AmountInBaseCurrency.IsNegative() {
			return nil, apperr.Validation("amount_in_base_currency", "must not be negative")
		}
		currency, err := s.currencies.BaseCurrency(ctx, userID)
		if err != nil {
			return nil, err
		}
		base := *req.AmountInBaseCurrency
		e.AmountInBaseCurrency = &base
		e.BaseCurrency = &currency
	} else if err := s.convertToBase(ctx, e); err != nil {
		return nil, err
	}

	if e.IsShared {
		if e.Shares, err = s.split(e, req.Participants); err != nil {
			return nil, err
		}
	}

	created, err := s.repo.Create(ctx, e)
	if err != nil {
		return nil, err
	}

	s.recorded(ctx, created, nil, created.IsShared)
	return created, nil
}

// resolveCategory checks the category fields against the user's hierarchy.
// A subcategory alone implies its primary.
func (s *Service) resolveCategory(ctx context.Context, e *Expense) error {
	if e.CategoryID == nil && e.SubcategoryID == nil {
		return nil
	}
	h, err := s.categories.Hierarchy(ctx, e.UserID)
	if err != nil {
		return err
	}

	if e.CategoryID != nil {
		c, ok := h.Get(*e.CategoryID)
		if !ok {
			return apperr.Configurationf("category %s does not exist", e.CategoryID)
		}
		if !c.IsPrimary() {
			return apperr.Configurationf("category %s is a subcategory; pass it as subcategory_id", e.CategoryID)
		}
	}
	if e.SubcategoryID != nil {
		parent, ok := h.Parent(*e.SubcategoryID)
		if !ok {
			return apperr.Configurationf("subcategory %s does not exist", e.SubcategoryID)
		}
		if parent == nil {
			return apperr.Configurationf("category %s is not a subcategory", e.SubcategoryID)
		}
		if e.CategoryID == nil {
			e.CategoryID = parent
		} else if *e.CategoryID != *parent {
			return apperr.Configurationf("subcategory %s does not belong to category %s", e.SubcategoryID, e.CategoryID)
		}
	}
	return nil
}

// resolvePaymentMethod accepts a nil id or an active method of userID
func (s *Service) resolvePaymentMethod(ctx context.Context, userID uuid.UUID, id *uuid.UUID) error {
	if id == nil || s.methods == nil {
		return nil
	}
	m, err := s.methods.Lookup(ctx, userID, *id)
	if errors.Is(err, paymentmethod.ErrPaymentMethodNotFound) {
		return apperr.Configurationf("payment method %s does not exist", id)
	}
	if err != nil {
		return err
	}
	if !m.IsActive {
		return apperr.Validationf("payment_method_id", "payment method %q is inactive", m.Name)
	}
	return nil
}

// convertToBase fills the base-currency amount using the owner's base currency
func (s *Service) convertToBase(ctx context.Context, e *Expense) error {
	base, err := s.currencies.BaseCurrency(ctx, e.UserID)
	if err != nil {
		return err
	}
	conv, err := s.converter.Convert(ctx, e.Total(), base)
	if err != nil {
		return err
	}
	amount, rate := conv.Converted.Amount, conv.Rate
	e.AmountInBaseCurrency = &amount
	e.BaseCurrency = &base
	e.ExchangeRate = &rate
	return nil
}

// split runs the calculator in finalize mode and turns its output into share
// records. An unbalanced split is rejected here so stored shares always add up.
func (s *Service) split(e *Expense, reqs []ParticipantRequest) ([]*Share, error) {
	if len(reqs) == 0 {
		return nil, apperr.Validation("participants", "are required for a shared expense")
	}
	participants := toParticipants(reqs)

	res, err := s.calculator.Finalize(e.Total(), participants)
	if err != nil {
		return nil, err
	}
	s.metrics.ShareCalculated("final", res.IsValid)
	if !res.IsValid {
		return nil, apperr.Validation("participants", strings.Join(res.Issues, "; "))
	}

	shares := make([]*Share, len(res.Shares))
	for i, computed := range res.Shares {
		uid, err := uuid.Parse(computed.UserID)
		if err != nil {
			return nil, apperr.Validationf(fmt.Sprintf("participants[%d].user_id", i), "%q is not a user id", computed.UserID)
		}
		shares[i] = &Share{
			UserID:          uid,
			ShareType:       computed.ShareType,
			SharePercentage: computed.SharePercentage,
			ShareAmount:     computed.ShareAmount,
			Currency:        computed.Currency,
		}
		if computed.ShareType == share.TypeFixedAmount {
			custom := *participants[i].CustomAmount
			shares[i].CustomAmount = &custom
		}
	}
	return shares, nil
}

// recorded runs the side effects of a stored expense. previous is the version
// an update replaced, nil on create.
func (s *Service) recorded(ctx context.Context, e, previous *Expense, sharesChanged bool) {
	if s.observer != nil {
		var before *budget.Expense
		if previous != nil {
			r := previous.BudgetRecord()
			before = &r
		}
		s.observer.ExpenseRecorded(ctx, e.UserID, e.BudgetRecord(), before)
	}
	if sharesChanged && e.IsShared && s.notifier != nil {
		if err := s.notifier.SharesAssigned(ctx, e); err != nil {
			slog.Warn("Failed to notify share participants", "expense_id", e.ID, "error", err)
		}
	}
}

// GetByID retrieves an expense visible to userID: its owner or a participant
func (s *Service) GetByID(ctx context.Context, userID, id uuid.UUID) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil || (e.UserID != userID && !e.IsParticipant(userID)) {
		return nil, ErrExpenseNotFound
	}
	return e, nil
}

func (s *Service) owned(ctx context.Context, userID, id uuid.UUID) (*Expense, error) {
	e, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, ErrNotOwner
	}
	return e, nil
}

// List retrieves the user's expenses with pagination
func (s *Service) List(ctx context.Context, userID uuid.UUID, f ListFilter, page, perPage int) ([]*Expense, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, apperr.Validation("to", "must not be before from")
	}

	f.Limit = perPage
	f.Offset = (page - 1) * perPage
	return s.repo.List(ctx, userID, f)
}

// Update changes an expense. Shares are recalculated when the amount, the
// currency, the participants or the shared flag change.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req *UpdateExpenseRequest) (*Expense, error) {
	existing, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	e := *existing
	moneyChanged := false

	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return nil, apperr.Validation("amount", "must not be negative")
		}
		moneyChanged = moneyChanged || !req.Amount.Equal(e.Amount)
		e.Amount = *req.Amount
	}
	if req.Currency != nil {
		cur := strings.ToUpper(*req.Currency)
		if err := money.ValidateCurrency(cur); err != nil {
			return nil, apperr.Validation("currency", err.Error())
		}
		moneyChanged = moneyChanged || cur != e.Currency
		e.Currency = cur
	}
	e.Amount = money.RoundAmount(e.Amount, e.Currency)

	if req.Date != nil {
		if e.Date, err = calendar.Parse("date", *req.Date); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		e.Description = strings.TrimSpace(*req.Description)
	}
	if req.ReplaceCategory {
		e.CategoryID, e.SubcategoryID = req.CategoryID, req.SubcategoryID
		if err := s.resolveCategory(ctx, &e); err != nil {
			return nil, err
		}
	}
	if req.PaymentMethodID != nil && (e.PaymentMethodID == nil || *req.PaymentMethodID != *e.PaymentMethodID) {
		if err := s.resolvePaymentMethod(ctx, userID, req.PaymentMethodID); err != nil {
			return nil, err
		}
		e.PaymentMethodID = req.PaymentMethodID
	}
	if moneyChanged {
		if err := s.convertToBase(ctx, &e); err != nil {
			return nil, err
		}
	}

	if req.IsShared != nil {
		e.IsShared = *req.IsShared
	}

	replace := false
	switch {
	case e.IsShared && (moneyChanged || req.Participants != nil || !existing.IsShared):
		participants := req.Participants
		if participants == nil {
			participants = participantsFrom(existing.Shares)
		}
		if e.Shares, err = s.split(&e, participants); err != nil {
			return nil, err
		}
		replace = true
	case !e.IsShared && existing.IsShared:
		e.Shares = nil
		replace = true
	}
	if replace && existing.HasLockedShares() {
		return nil, ErrSharesLocked
	}

	updated, err := s.repo.Update(ctx, &e, replace)
	if err != nil {
		return nil, err
	}

	s.recorded(ctx, updated, existing, replace)
	return updated, nil
}

// participantsFrom rebuilds calculator input from stored shares so a split can
// be recomputed for a new total
func participantsFrom(shares []*Share) []ParticipantRequest {
	out := make([]ParticipantRequest, len(shares))
	for i, sh := range shares {
		p := ParticipantRequest{UserID: sh.UserID.String(), ShareType: string(sh.ShareType)}
		switch sh.ShareType {
		case share.TypePercentage:
			pct := sh.SharePercentage
			p.SharePercentage = &pct
		case share.TypeFixedAmount:
			amount := sh.ShareAmount
			if sh.CustomAmount != nil {
				amount = *sh.CustomAmount
			}
			p.CustomAmount = &amount
		}
		out[i] = p
	}
	return out
}

// Unshare deletes an expense's shares and clears its shared flag
func (s *Service) Unshare(ctx context.Context, userID, id uuid.UUID) (*Expense, error) {
	notShared := false
	return s.Update(ctx, userID, id, &UpdateExpenseRequest{IsShared: &notShared})
}

// Delete removes an expense and its shares
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	e, err := s.owned(ctx, userID, id)
	if err != nil {
		return err
	}
	if e.HasLockedShares() {
		return ErrSharesLocked
	}
	return s.repo.Delete(ctx, id)
}

// SettleShare marks one share settled. The participant or the expense owner
// may do it; the owner is notified when someone else does.
func (s *Service) SettleShare(ctx context.Context, userID, shareID uuid.UUID) (*Share, error) {
	sh, err := s.repo.GetShareByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if sh == nil {
		return nil, ErrShareNotFound
	}

	e, err := s.repo.GetByID(ctx, sh.ExpenseID)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrShareNotFound
	}
	if userID != sh.UserID && userID != e.UserID {
		return nil, ErrNotShareParty
	}
	if sh.IsSettled {
		return nil, ErrShareAlreadySettled
	}
	if sh.SettlementID != nil {
		return nil, ErrSharesLocked
	}

	settled, err := s.repo.SettleShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if settled == nil {
		return nil, ErrShareNotFound
	}

	if userID != e.UserID && s.notifier != nil {
		if err := s.notifier.ShareSettled(ctx, e, settled); err != nil {
			slog.Warn("Failed to notify share settlement", "share_id", settled.ID, "error", err)
		}
	}
	return settled, nil
}

// ListMyShares retrieves the shares userID holds on other users' expenses
func (s *Service) ListMyShares(ctx context.Context, userID uuid.UUID, unsettledOnly bool) ([]*Share, error) {
	return s.repo.ListSharesOwedBy(ctx, userID, unsettledOnly)
}

// OutstandingTotal sums unsettled shares by currency
func OutstandingTotal(shares []*Share) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, sh := range shares {
		if sh.IsSettled {
			continue
		}
		totals[sh.Currency] = totals[sh.Currency].Add(sh.ShareAmount)
	}
	return totals
}
