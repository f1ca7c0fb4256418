package expense

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/category"
	"github.com/fkhayef/finance/internal/currency"
	"github.com/fkhayef/finance/internal/paymentmethod"
)

type memStore struct {
	mu       sync.Mutex
	expenses map[uuid.UUID]*Expense
}

func newMemStore() *memStore {
	return &memStore{expenses: map[uuid.UUID]*Expense{}}
}

func (s *memStore) withShareIDs(e *Expense) {
	for _, sh := range e.Shares {
		if sh.ID == uuid.Nil {
			sh.ID = uuid.New()
		}
		sh.ExpenseID = e.ID
	}
}

func (s *memStore) Create(_ context.Context, e *Expense) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *e
	c.ID = uuid.New()
	s.withShareIDs(&c)
	s.expenses[c.ID] = &c
	return &c, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok {
		return nil, nil
	}
	c := *e
	return &c, nil
}

func (s *memStore) List(_ context.Context, userID uuid.UUID, f ListFilter) ([]*Expense, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Expense
	for _, e := range s.expenses {
		if e.UserID == userID && (!f.SharedOnly || e.IsShared) {
			out = append(out, e)
		}
	}
	total := len(out)
	if f.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (s *memStore) Update(_ context.Context, e *Expense, replaceShares bool) (*Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *e
	if !replaceShares {
		c.Shares = s.expenses[e.ID].Shares
	}
	s.withShareIDs(&c)
	s.expenses[c.ID] = &c
	return &c, nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.expenses, id)
	return nil
}

func (s *memStore) findShare(id uuid.UUID) *Share {
	for _, e := range s.expenses {
		for _, sh := range e.Shares {
			if sh.ID == id {
				return sh
			}
		}
	}
	return nil
}

func (s *memStore) GetShareByID(_ context.Context, id uuid.UUID) (*Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh := s.findShare(id); sh != nil {
		c := *sh
		return &c, nil
	}
	return nil, nil
}

func (s *memStore) SettleShare(_ context.Context, id uuid.UUID) (*Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh := s.findShare(id)
	if sh == nil {
		return nil, nil
	}
	sh.IsSettled = true
	c := *sh
	return &c, nil
}

func (s *memStore) ListSharesOwedBy(_ context.Context, userID uuid.UUID, unsettledOnly bool) ([]*Share, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Share
	for _, e := range s.expenses {
		if e.UserID == userID {
			continue
		}
		for _, sh := range e.Shares {
			if sh.UserID == userID && (!unsettledOnly || !sh.IsSettled) {
				out = append(out, sh)
			}
		}
	}
	return out, nil
}

type staticCategories struct {
	h *category.Hierarchy
}

func (c staticCategories) Hierarchy(context.Context, uuid.UUID) (*category.Hierarchy, error) {
	return c.h, nil
}

type fixedCurrency string

func (c fixedCurrency) BaseCurrency(context.Context, uuid.UUID) (string, error) {
	return string(c), nil
}

type recordingObserver struct {
	recorded []budget.Expense
	previous []*budget.Expense
}

func (o *recordingObserver) ExpenseRecorded(_ context.Context, _ uuid.UUID, e budget.Expense, previous *budget.Expense) {
	o.recorded = append(o.recorded, e)
	o.previous = append(o.previous, previous)
}

type staticMethods map[uuid.UUID]*paymentmethod.PaymentMethod

func (m staticMethods) Lookup(_ context.Context, userID, id uuid.UUID) (*paymentmethod.PaymentMethod, error) {
	pm, ok := m[id]
	if !ok || pm.UserID != userID {
		return nil, paymentmethod.ErrPaymentMethodNotFound
	}
	return pm, nil
}

type recordingNotifier struct {
	assigned []*Expense
	settled  []*Share
}

func (n *recordingNotifier) SharesAssigned(_ context.Context, e *Expense) error {
	n.assigned = append(n.assigned, e)
	return nil
}

func (n *recordingNotifier) ShareSettled(_ context.Context, _ *Expense, s *Share) error {
	n.settled = append(n.settled, s)
	return nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	observer *recordingObserver
	notifier *recordingNotifier
	methods  staticMethods
	owner    uuid.UUID
	friend   uuid.UUID
	food     *category.Category
	dining   *category.Category
	travel   *category.Category
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		observer: &recordingObserver{},
		notifier: &recordingNotifier{},
		methods:  staticMethods{},
		owner:    uuid.New(),
		friend:   uuid.New(),
	}
	foodID := uuid.New()
	f.food = &category.Category{ID: foodID, UserID: f.owner, Name: "Food", IsActive: true}
	f.dining = &category.Category{ID: uuid.New(), UserID: f.owner, Name: "Dining", ParentID: &foodID, IsActive: true}
	f.travel = &category.Category{ID: uuid.New(), UserID: f.owner, Name: "Travel", IsActive: true}

	rates := currency.NewStaticProvider(map[string]map[string]decimal.Decimal{
		"USD": {"EUR": dec("0.85")},
	})
	f.svc = NewService(
		f.store,
		nil,
		staticCategories{h: category.NewHierarchy([]*category.Category{f.food, f.dining, f.travel})},
		currency.NewConverter(rates),
		fixedCurrency("EUR"),
		WithObserver(f.observer),
		WithNotifier(f.notifier),
		WithPaymentMethods(f.methods),
	)
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

func (f *fixture) sharedRequest(amount string, participants ...ParticipantRequest) *CreateExpenseRequest {
	return &CreateExpenseRequest{
		Amount:       dec(amount),
		Currency:     "EUR",
		Date:         "2024-03-10",
		Description:  "Dinner",
		IsShared:     true,
		Participants: participants,
	}
}

func TestCreateSharedEqualSplit(t *testing.T) {
	f := newFixture()
	third := uuid.New()

	e, err := f.svc.Create(context.Background(), f.owner, f.sharedRequest("100",
		ParticipantRequest{UserID: f.owner.String(), ShareType: "equal"},
		ParticipantRequest{UserID: f.friend.String(), ShareType: "equal"},
		ParticipantRequest{UserID: third.String(), ShareType: "EQUAL"},
	))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	wantAmounts := []string{"33.33", "33.33", "33.34"}
	if len(e.Shares) != len(wantAmounts) {
		t.Fatalf("got %d shares, want %d", len(e.Shares), len(wantAmounts))
	}
	for i, want := range wantAmounts {
		if !e.Shares[i].ShareAmount.Equal(dec(want)) {
			t.Errorf("share %d amount = %s, want %s", i, e.Shares[i].ShareAmount, want)
		}
		if e.Shares[i].ExpenseID != e.ID {
			t.Errorf("share %d expense_id = %s, want %s", i, e.Shares[i].ExpenseID, e.ID)
		}
	}
	if e.Shares[1].UserID != f.friend {
		t.Errorf("share 1 user = %s, want %s", e.Shares[1].UserID, f.friend)
	}

	if e.AmountInBaseCurrency == nil || !e.AmountInBaseCurrency.Equal(dec("100")) {
		t.Errorf("amount_in_base_currency = %v, want 100", e.AmountInBaseCurrency)
	}
	if len(f.observer.recorded) != 1 || f.observer.recorded[0].ID != e.ID {
		t.Errorf("observer saw %v, want the new expense", f.observer.recorded)
	}
	if len(f.notifier.assigned) != 1 {
		t.Errorf("SharesAssigned called %d times, want 1", len(f.notifier.assigned))
	}
}

func TestCreateRejects(t *testing.T) {
	f := newFixture()

	tests := []struct {
		name     string
		req      *CreateExpenseRequest
		wantKind apperr.Kind
	}{
		{
			name:     "negative amount",
			req:      &CreateExpenseRequest{Amount: dec("-1"), Currency: "EUR", Date: "2024-03-10"},
			wantKind: apperr.KindValidation,
		},
		{
			name:     "bad date",
			req:      &CreateExpenseRequest{Amount: dec("1"), Currency: "EUR", Date: "10/03/2024"},
			wantKind: apperr.KindValidation,
		},
		{
			name: "percentages short of 100",
			req: f.sharedRequest("50",
				ParticipantRequest{UserID: f.owner.String(), ShareType: "percentage", SharePercentage: ptr(dec("60"))},
				ParticipantRequest{UserID: f.friend.String(), ShareType: "percentage", SharePercentage: ptr(dec("30"))},
			),
			wantKind: apperr.KindValidation,
		},
		{
			name: "fixed amounts short of total",
			req: f.sharedRequest("50",
				ParticipantRequest{UserID: f.owner.String(), ShareType: "fixed_amount", CustomAmount: ptr(dec("20"))},
				ParticipantRequest{UserID: f.friend.String(), ShareType: "fixed_amount", CustomAmount: ptr(dec("20"))},
			),
			wantKind: apperr.KindValidation,
		},
		{
			name:     "blank participant",
			req:      f.sharedRequest("50", ParticipantRequest{ShareType: "equal"}),
			wantKind: apperr.KindValidation,
		},
		{
			name:     "participant is not a user id",
			req:      f.sharedRequest("50", ParticipantRequest{UserID: "bob", ShareType: "equal"}),
			wantKind: apperr.KindValidation,
		},
		{
			name:     "shared without participants",
			req:      f.sharedRequest("50"),
			wantKind: apperr.KindValidation,
		},
		{
			name:     "unknown category",
			req:      &CreateExpenseRequest{Amount: dec("1"), Currency: "EUR", Date: "2024-03-10", CategoryID: ptr(uuid.New())},
			wantKind: apperr.KindConfiguration,
		},
		{
			name:     "subcategory of another primary",
			req:      &CreateExpenseRequest{Amount: dec("1"), Currency: "EUR", Date: "2024-03-10", CategoryID: &f.travel.ID, SubcategoryID: &f.dining.ID},
			wantKind: apperr.KindConfiguration,
		},
		{
			name:     "no exchange rate",
			req:      &CreateExpenseRequest{Amount: dec("1"), Currency: "GBP", Date: "2024-03-10"},
			wantKind: apperr.KindConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.owner, tt.req)
			kind, ok := apperr.KindOf(err)
			if !ok || kind != tt.wantKind {
				t.Errorf("Create() error = %v, want kind %s", err, tt.wantKind)
			}
		})
	}

	if len(f.store.expenses) != 0 {
		t.Errorf("store holds %d expenses after rejected creates", len(f.store.expenses))
	}
}

func TestCreateFillsPrimaryFromSubcategory(t *testing.T) {
	f := newFixture()

	e, err := f.svc.Create(context.Background(), f.owner, &CreateExpenseRequest{
		Amount: dec("12.50"), Currency: "EUR", Date: "2024-03-10", SubcategoryID: &f.dining.ID,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.CategoryID == nil || *e.CategoryID != f.food.ID {
		t.Errorf("category_id = %v, want %s", e.CategoryID, f.food.ID)
	}
}

func TestCreateConvertsToBaseCurrency(t *testing.T) {
	f := newFixture()

	e, err := f.svc.Create(context.Background(), f.owner, &CreateExpenseRequest{
		Amount: dec("100"), Currency: "usd", Date: "2024-03-10",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if e.Currency != "USD" {
		t.Errorf("currency = %q, want USD", e.Currency)
	}
	if e.AmountInBaseCurrency == nil || !e.AmountInBaseCurrency.Equal(dec("85")) {
		t.Errorf("amount_in_base_currency = %v, want 85", e.AmountInBaseCurrency)
	}
	if e.ExchangeRate == nil || !e.ExchangeRate.Equal(dec("0.85")) {
		t.Errorf("exchange_rate = %v, want 0.85", e.ExchangeRate)
	}
}

func TestUpdateRecalculatesShares(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Create(ctx, f.owner, f.sharedRequest("100",
		ParticipantRequest{UserID: f.owner.String(), ShareType: "percentage", SharePercentage: ptr(dec("70"))},
		ParticipantRequest{UserID: f.friend.String(), ShareType: "percentage", SharePercentage: ptr(dec("30"))},
	))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	updated, err := f.svc.Update(ctx, f.owner, e.ID, &UpdateExpenseRequest{Amount: ptr(dec("50"))})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(updated.Shares) != 2 {
		t.Fatalf("got %d shares, want 2", len(updated.Shares))
	}
	if !updated.Shares[0].ShareAmount.Equal(dec("35")) || !updated.Shares[1].ShareAmount.Equal(dec("15")) {
		t.Errorf("share amounts = %s/%s, want 35/15", updated.Shares[0].ShareAmount, updated.Shares[1].ShareAmount)
	}
	if len(f.notifier.assigned) != 2 {
		t.Errorf("SharesAssigned called %d times, want 2", len(f.notifier.assigned))
	}

	// A description change leaves the split alone
	again, err := f.svc.Update(ctx, f.owner, e.ID, &UpdateExpenseRequest{Description: ptr("Lunch")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if again.Shares[0].ID != updated.Shares[0].ID {
		t.Error("shares were replaced on a description-only update")
	}
}

func TestUpdateRejectsLockedShares(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Create(ctx, f.owner, f.sharedRequest("40",
		ParticipantRequest{UserID: f.owner.String(), ShareType: "equal"},
		ParticipantRequest{UserID: f.friend.String(), ShareType: "equal"},
	))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := f.svc.SettleShare(ctx, f.friend, e.Shares[1].ID); err != nil {
		t.Fatalf("SettleShare() error = %v", err)
	}

	if _, err := f.svc.Update(ctx, f.owner, e.ID, &UpdateExpenseRequest{Amount: ptr(dec("60"))}); !errors.Is(err, ErrSharesLocked) {
		t.Errorf("Update() error = %v, want ErrSharesLocked", err)
	}
	if _, err := f.svc.Unshare(ctx, f.owner, e.ID); !errors.Is(err, ErrSharesLocked) {
		t.Errorf("Unshare() error = %v, want ErrSharesLocked", err)
	}
	if err := f.svc.Delete(ctx, f.owner, e.ID); !errors.Is(err, ErrSharesLocked) {
		t.Errorf("Delete() error = %v, want ErrSharesLocked", err)
	}
}

func TestUnshare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Create(ctx, f.owner, f.sharedRequest("40",
		ParticipantRequest{UserID: f.owner.String(), ShareType: "equal"},
		ParticipantRequest{UserID: f.friend.String(), ShareType: "equal"},
	))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.svc.Unshare(ctx, f.friend, e.ID); !errors.Is(err, ErrNotOwner) {
		t.Errorf("Unshare() by participant error = %v, want ErrNotOwner", err)
	}

	got, err := f.svc.Unshare(ctx, f.owner, e.ID)
	if err != nil {
		t.Fatalf("Unshare() error = %v", err)
	}
	if got.IsShared || len(got.Shares) != 0 {
		t.Errorf("after unshare: is_shared=%v shares=%d", got.IsShared, len(got.Shares))
	}
}

func TestSettleShare(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Create(ctx, f.owner, f.sharedRequest("40",
		ParticipantRequest{UserID: f.owner.String(), ShareType: "equal"},
		ParticipantRequest{UserID: f.friend.String(), ShareType: "equal"},
	))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	friendShare := e.Shares[1].ID

	if _, err := f.svc.SettleShare(ctx, uuid.New(), friendShare); !errors.Is(err, ErrNotShareParty) {
		t.Errorf("stranger SettleShare() error = %v, want ErrNotShareParty", err)
	}

	owed, err := f.svc.ListMyShares(ctx, f.friend, true)
	if err != nil || len(owed) != 1 {
		t.Fatalf("ListMyShares() = %d shares, %v; want 1", len(owed), err)
	}
	if got := OutstandingTotal(owed)["EUR"]; !got.Equal(dec("20")) {
		t.Errorf("outstanding = %s, want 20", got)
	}

	settled, err := f.svc.SettleShare(ctx, f.friend, friendShare)
	if err != nil {
		t.Fatalf("SettleShare() error = %v", err)
	}
	if !settled.IsSettled {
		t.Error("share not settled")
	}
	if len(f.notifier.settled) != 1 {
		t.Errorf("ShareSettled called %d times, want 1", len(f.notifier.settled))
	}

	if _, err := f.svc.SettleShare(ctx, f.owner, friendShare); !errors.Is(err, ErrShareAlreadySettled) {
		t.Errorf("second SettleShare() error = %v, want ErrShareAlreadySettled", err)
	}
	if _, err := f.svc.SettleShare(ctx, f.owner, uuid.New()); !errors.Is(err, ErrShareNotFound) {
		t.Errorf("unknown SettleShare() error = %v, want ErrShareNotFound", err)
	}
}

func TestGetByIDVisibility(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Create(ctx, f.owner, f.sharedRequest("40",
		ParticipantRequest{UserID: f.owner.String(), ShareType: "equal"},
		ParticipantRequest{UserID: f.friend.String(), ShareType: "equal"},
	))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := f.svc.GetByID(ctx, f.friend, e.ID); err != nil {
		t.Errorf("participant GetByID() error = %v", err)
	}
	if _, err := f.svc.GetByID(ctx, uuid.New(), e.ID); !errors.Is(err, ErrExpenseNotFound) {
		t.Errorf("stranger GetByID() error = %v, want ErrExpenseNotFound", err)
	}
	if _, err := f.svc.Update(ctx, f.friend, e.ID, &UpdateExpenseRequest{Description: ptr("mine")}); !errors.Is(err, ErrNotOwner) {
		t.Errorf("participant Update() error = %v, want ErrNotOwner", err)
	}
}

func TestPreviewReportsWarnings(t *testing.T) {
	f := newFixture()

	got, err := f.svc.Preview(context.Background(), &PreviewRequest{
		TotalAmount: dec("50"),
		Currency:    "eur",
		Participants: []ParticipantRequest{
			{UserID: f.owner.String(), ShareType: "percentage", SharePercentage: ptr(dec("70"))},
			{ShareType: "percentage", SharePercentage: ptr(dec("20"))},
		},
	})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if got.IsValid {
		t.Error("IsValid = true, want false")
	}
	// one imbalance per sum, plus the blank participant
	if len(got.Warnings) != 3 {
		t.Errorf("warnings = %v, want 3", got.Warnings)
	}
	if len(f.store.expenses) != 0 {
		t.Error("Preview stored an expense")
	}
}

func TestUpdatePassesPreviousVersionToObserver(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	e, err := f.svc.Create(ctx, f.owner, &CreateExpenseRequest{Amount: dec("40"), Currency: "USD", Date: "2024-03-10", Description: "Taxi"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if f.observer.previous[0] != nil {
		t.Errorf("create passed previous %+v, want nil", f.observer.previous[0])
	}
	if got := f.observer.recorded[0]; got.BaseCurrency != "EUR" || got.AmountInBaseCurrency == nil || !got.AmountInBaseCurrency.Equal(dec("34")) {
		t.Errorf("recorded base = %v %q, want 34 EUR", got.AmountInBaseCurrency, got.BaseCurrency)
	}

	if _, err := f.svc.Update(ctx, f.owner, e.ID, &UpdateExpenseRequest{Description: ptr("Airport taxi")}); err != nil {
		t.Fatalf("Update(description) error = %v", err)
	}
	if _, err := f.svc.Update(ctx, f.owner, e.ID, &UpdateExpenseRequest{Amount: ptr(dec("60"))}); err != nil {
		t.Fatalf("Update(amount) error = %v", err)
	}

	tests := []struct {
		name         string
		call         int
		wantPrevious string
		wantCurrent  string
	}{
		{"description edit", 1, "40", "40"},
		{"amount edit", 2, "40", "60"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := f.observer.previous[tt.call]
			if prev == nil || prev.ID != e.ID || !prev.Amount.Equal(dec(tt.wantPrevious)) {
				t.Fatalf("previous = %+v, want expense %s at %s", prev, e.ID, tt.wantPrevious)
			}
			if cur := f.observer.recorded[tt.call]; !cur.Amount.Equal(dec(tt.wantCurrent)) {
				t.Errorf("current amount = %s, want %s", cur.Amount, tt.wantCurrent)
			}
		})
	}
}

func TestCreateChecksPaymentMethod(t *testing.T) {
	f := newFixture()
	card := &paymentmethod.PaymentMethod{ID: uuid.New(), UserID: f.owner, Name: "Card", IsActive: true}
	retired := &paymentmethod.PaymentMethod{ID: uuid.New(), UserID: f.owner, Name: "Old Card"}
	foreign := &paymentmethod.PaymentMethod{ID: uuid.New(), UserID: f.friend, Name: "Cash", IsActive: true}
	for _, m := range []*paymentmethod.PaymentMethod{card, retired, foreign} {
		f.methods[m.ID] = m
	}

	tests := []struct {
		name     string
		method   uuid.UUID
		wantKind apperr.Kind
	}{
		{name: "active method", method: card.ID},
		{name: "inactive method", method: retired.ID, wantKind: apperr.KindValidation},
		{name: "another user's method", method: foreign.ID, wantKind: apperr.KindConfiguration},
		{name: "unknown method", method: uuid.New(), wantKind: apperr.KindConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &CreateExpenseRequest{Amount: dec("12"), Currency: "EUR", Date: "2024-03-10", PaymentMethodID: ptr(tt.method)}
			e, err := f.svc.Create(context.Background(), f.owner, req)
			if tt.wantKind == "" {
				if err != nil {
					t.Fatalf("Create() error = %v", err)
				}
				if e.PaymentMethodID == nil || *e.PaymentMethodID != tt.method {
					t.Errorf("PaymentMethodID = %v, want %s", e.PaymentMethodID, tt.method)
				}
				return
			}
			if kind, _ := apperr.KindOf(err); kind != tt.wantKind {
				t.Errorf("Create() error = %v, want %s", err, tt.wantKind)
			}
		})
	}
}

func TestUpdateKeepsRetiredPaymentMethod(t *testing.T) {
	f := newFixture()
	card := &paymentmethod.PaymentMethod{ID: uuid.New(), UserID: f.owner, Name: "Card", IsActive: true}
	f.methods[card.ID] = card

	e, err := f.svc.Create(context.Background(), f.owner, &CreateExpenseRequest{
		Amount: dec("12"), Currency: "EUR", Date: "2024-03-10", PaymentMethodID: ptr(card.ID),
	})
	if err != nil {
		t.Fatal(err)
	}

	card.IsActive = false
	updated, err := f.svc.Update(context.Background(), f.owner, e.ID, &UpdateExpenseRequest{
		Description: ptr("Lunch"), PaymentMethodID: ptr(card.ID),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.PaymentMethodID == nil || *updated.PaymentMethodID != card.ID {
		t.Errorf("PaymentMethodID = %v, want %s", updated.PaymentMethodID, card.ID)
	}
}
