package paymentmethod

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/cache"
)

type memStore struct {
	methods map[uuid.UUID]*PaymentMethod
	usage   map[uuid.UUID]Usage
	gets    int
}

func newMemStore() *memStore {
	return &memStore{methods: map[uuid.UUID]*PaymentMethod{}, usage: map[uuid.UUID]Usage{}}
}

func (s *memStore) Create(_ context.Context, userID uuid.UUID, req *CreatePaymentMethodRequest) (*PaymentMethod, error) {
	if req.IsDefault {
		for _, m := range s.methods {
			if m.UserID == userID {
				m.IsDefault = false
			}
		}
	}
	m := &PaymentMethod{
		ID: uuid.New(), UserID: userID, Name: req.Name, Description: req.Description, Icon: req.Icon,
		Color: req.Color, SortOrder: req.SortOrder, IsActive: true, IsDefault: req.IsDefault, CreatedAt: time.Now(),
	}
	s.methods[m.ID] = m
	return m, nil
}

func (s *memStore) CreateMany(ctx context.Context, userID uuid.UUID, reqs []*CreatePaymentMethodRequest) ([]*PaymentMethod, error) {
	var out []*PaymentMethod
	for _, req := range reqs {
		m, _ := s.Create(ctx, userID, req)
		out = append(out, m)
	}
	return out, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*PaymentMethod, error) {
	s.gets++
	m, ok := s.methods[id]
	if !ok {
		return nil, nil
	}
	c := *m
	return &c, nil
}

func (s *memStore) ListByUser(_ context.Context, userID uuid.UUID, includeInactive bool) ([]*PaymentMethod, error) {
	var out []*PaymentMethod
	for _, m := range s.methods {
		if m.UserID == userID && (m.IsActive || includeInactive) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *memStore) CountByUser(_ context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, m := range s.methods {
		if m.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) NameTaken(_ context.Context, userID uuid.UUID, name string, except *uuid.UUID) (bool, error) {
	for _, m := range s.methods {
		if m.UserID == userID && strings.EqualFold(m.Name, name) && (except == nil || *except != m.ID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Update(_ context.Context, id uuid.UUID, req *UpdatePaymentMethodRequest) (*PaymentMethod, error) {
	m, ok := s.methods[id]
	if !ok {
		return nil, nil
	}
	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Color != nil {
		m.Color = req.Color
	}
	if req.SortOrder != nil {
		m.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}
	c := *m
	return &c, nil
}

func (s *memStore) Reorder(_ context.Context, userID uuid.UUID, items []ReorderItem) error {
	for _, it := range items {
		if m, ok := s.methods[it.ID]; ok && m.UserID == userID {
			m.SortOrder = it.SortOrder
		}
	}
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.methods, id)
	return nil
}

func (s *memStore) InUse(_ context.Context, id uuid.UUID) (bool, error) {
	return s.usage[id].ExpenseCount > 0, nil
}

func (s *memStore) UsageByUser(_ context.Context, userID uuid.UUID) (map[uuid.UUID]Usage, error) {
	out := map[uuid.UUID]Usage{}
	for id, u := range s.usage {
		if m, ok := s.methods[id]; ok && m.UserID == userID {
			out[id] = u
		}
	}
	return out, nil
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func newTestService(store *memStore, clock cache.Clock) *Service {
	return NewService(store, cache.NewLRUCache[PaymentMethod](16, time.Minute, clock))
}

func create(t *testing.T, svc *Service, userID uuid.UUID, name string) *PaymentMethod {
	t.Helper()
	m, err := svc.Create(context.Background(), userID, &CreatePaymentMethodRequest{Name: name})
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	return m
}

func TestLookupIsCachedUntilExpiry(t *testing.T) {
	store := newMemStore()
	clock := &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(store, clock)
	ctx := context.Background()
	user := uuid.New()
	cash := create(t, svc, user, "Cash")

	for i := 0; i < 3; i++ {
		if _, err := svc.Lookup(ctx, user, cash.ID); err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
	}
	if store.gets != 1 {
		t.Errorf("store reads = %d, want 1", store.gets)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	if _, err := svc.Lookup(ctx, user, cash.ID); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if store.gets != 2 {
		t.Errorf("store reads after expiry = %d, want 2", store.gets)
	}
}

func TestLookupHidesOtherUsers(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()
	cash := create(t, svc, uuid.New(), "Cash")

	// the first call fills the cache, the second is answered from it
	for i := 0; i < 2; i++ {
		if _, err := svc.Lookup(ctx, uuid.New(), cash.ID); !errors.Is(err, ErrPaymentMethodNotFound) {
			t.Errorf("Lookup() error = %v, want ErrPaymentMethodNotFound", err)
		}
	}
	if _, err := svc.Lookup(ctx, cash.UserID, uuid.New()); !errors.Is(err, ErrPaymentMethodNotFound) {
		t.Errorf("Lookup(unknown) error = %v, want ErrPaymentMethodNotFound", err)
	}
}

func TestUpdateInvalidatesLookup(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()
	user := uuid.New()
	card := create(t, svc, user, "Card")

	if _, err := svc.Lookup(ctx, user, card.ID); err != nil {
		t.Fatal(err)
	}
	name := "Debit Card"
	if _, err := svc.Update(ctx, user, card.ID, &UpdatePaymentMethodRequest{Name: &name}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := svc.Lookup(ctx, user, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Debit Card" {
		t.Errorf("Name = %q, want Debit Card", got.Name)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	user := uuid.New()
	create(t, svc, user, "Cash")

	bad := "green"
	long := strings.Repeat("x", 51)

	tests := []struct {
		name      string
		req       CreatePaymentMethodRequest
		wantField string
	}{
		{name: "blank name", req: CreatePaymentMethodRequest{Name: "  "}, wantField: "name"},
		{name: "duplicate name ignoring case", req: CreatePaymentMethodRequest{Name: "CASH"}, wantField: "name"},
		{name: "bad color", req: CreatePaymentMethodRequest{Name: "Card", Color: &bad}, wantField: "color"},
		{name: "long icon", req: CreatePaymentMethodRequest{Name: "Card", Icon: &long}, wantField: "icon"},
		{name: "negative sort order", req: CreatePaymentMethodRequest{Name: "Card", SortOrder: -1}, wantField: "sort_order"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), user, &tt.req)
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Kind != apperr.KindValidation || ae.Field != tt.wantField {
				t.Errorf("Create() error = %v, want validation error on %s", err, tt.wantField)
			}
		})
	}

	// another user may reuse the name
	if _, err := svc.Create(context.Background(), uuid.New(), &CreatePaymentMethodRequest{Name: "Cash"}); err != nil {
		t.Errorf("Create() for another user error = %v", err)
	}
}

func TestCreateNormalizesColor(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	color := "#3b82f6"

	m, err := svc.Create(context.Background(), uuid.New(), &CreatePaymentMethodRequest{Name: "Card", Color: &color})
	if err != nil {
		t.Fatal(err)
	}
	if m.Color == nil || *m.Color != "#3B82F6" {
		t.Errorf("Color = %v, want #3B82F6", m.Color)
	}
}

func TestCreateDefaults(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()
	user := uuid.New()

	methods, err := svc.CreateDefaults(ctx, user)
	if err != nil {
		t.Fatalf("CreateDefaults() error = %v", err)
	}

	want := []string{"Cash", "Card", "Bank Transfer", "Other"}
	if len(methods) != len(want) {
		t.Fatalf("got %d methods, want %d", len(methods), len(want))
	}
	for i, m := range methods {
		if m.Name != want[i] || m.SortOrder != i+1 {
			t.Errorf("methods[%d] = %s/%d, want %s/%d", i, m.Name, m.SortOrder, want[i], i+1)
		}
		if m.IsDefault != (i == 0) {
			t.Errorf("methods[%d].IsDefault = %v", i, m.IsDefault)
		}
	}

	if _, err := svc.CreateDefaults(ctx, user); !errors.Is(err, ErrDefaultsExist) {
		t.Errorf("second CreateDefaults() error = %v, want ErrDefaultsExist", err)
	}
}

func TestDeleteRemovesOnlyUnusedWhenForced(t *testing.T) {
	tests := []struct {
		name            string
		used            bool
		force           bool
		wantDeleted     bool
		wantStillStored bool
	}{
		{name: "unused without force", force: false, wantStillStored: true},
		{name: "unused with force", force: true, wantDeleted: true},
		{name: "used with force", used: true, force: true, wantStillStored: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			svc := newTestService(store, nil)
			ctx := context.Background()
			user := uuid.New()
			m := create(t, svc, user, "Cash")
			if tt.used {
				store.usage[m.ID] = Usage{ExpenseCount: 2, TotalAmount: decimal.NewFromInt(30)}
			}

			deleted, err := svc.Delete(ctx, user, m.ID, tt.force)
			if err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("deleted = %v, want %v", deleted, tt.wantDeleted)
			}

			stored, ok := store.methods[m.ID]
			if ok != tt.wantStillStored {
				t.Fatalf("stored = %v, want %v", ok, tt.wantStillStored)
			}
			if ok && stored.IsActive {
				t.Error("kept method is still active")
			}
		})
	}
}

func TestDeletedMethodIsNotServedFromCache(t *testing.T) {
	svc := newTestService(newMemStore(), nil)
	ctx := context.Background()
	user := uuid.New()
	m := create(t, svc, user, "Cash")

	if _, err := svc.Lookup(ctx, user, m.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Delete(ctx, user, m.ID, false); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Lookup(ctx, user, m.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IsActive {
		t.Error("Lookup() returned the cached active version after deactivation")
	}
}

func TestListWithStatsMostUsedFirst(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	user := uuid.New()
	cash := create(t, svc, user, "Cash")
	card := create(t, svc, user, "Card")
	last := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	store.usage[card.ID] = Usage{ExpenseCount: 3, TotalAmount: decimal.NewFromInt(75), LastUsed: &last}

	stats, err := svc.ListWithStats(context.Background(), user)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 2 || stats[0].Method.ID != card.ID || stats[1].Method.ID != cash.ID {
		t.Fatalf("order = %v", stats)
	}
	if !stats[0].Usage.TotalAmount.Equal(decimal.NewFromInt(75)) || stats[1].Usage.ExpenseCount != 0 {
		t.Errorf("usage = %+v / %+v", stats[0].Usage, stats[1].Usage)
	}
}

func TestReorderRejectsForeignMethod(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, nil)
	ctx := context.Background()
	user := uuid.New()
	cash := create(t, svc, user, "Cash")
	foreign := create(t, svc, uuid.New(), "Card")

	_, err := svc.Reorder(ctx, user, []ReorderItem{{ID: cash.ID, SortOrder: 5}, {ID: foreign.ID, SortOrder: 1}})
	if !errors.Is(err, ErrPaymentMethodNotFound) {
		t.Fatalf("Reorder() error = %v, want ErrPaymentMethodNotFound", err)
	}
	if store.methods[cash.ID].SortOrder != 0 {
		t.Error("Reorder() applied a partial change")
	}

	out, err := svc.Reorder(ctx, user, []ReorderItem{{ID: cash.ID, SortOrder: 5}})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Method.SortOrder != 5 {
		t.Errorf("Reorder() = %+v", out)
	}
}
