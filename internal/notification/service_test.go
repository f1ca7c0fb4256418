package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/expense"
	"github.com/fkhayef/finance/pkg/metrics"
)

type memStore struct {
	items []*Notification
}

func (m *memStore) Create(_ context.Context, n *Notification) (*Notification, error) {
	c := *n
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.items = append(m.items, &c)
	return &c, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*Notification, error) {
	for _, n := range m.items {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListByRecipient(_ context.Context, recipientID uuid.UUID, limit, offset int, unreadOnly bool) ([]*Notification, int, error) {
	var out []*Notification
	for _, n := range m.items {
		if n.RecipientID == recipientID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *memStore) MarkAsRead(_ context.Context, id uuid.UUID) error {
	for _, n := range m.items {
		if n.ID == id {
			n.IsRead = true
		}
	}
	return nil
}

func (m *memStore) MarkAllAsRead(_ context.Context, recipientID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (m *memStore) UnreadCount(_ context.Context, recipientID uuid.UUID) (int, error) {
	count := 0
	for _, n := range m.items {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

type recordingPublisher struct {
	events []*Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e *Event) error {
	p.events = append(p.events, e)
	return p.err
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBudgetStatusChanged(t *testing.T) {
	user := uuid.New()
	b := &budget.Budget{ID: uuid.New(), Name: "Groceries"}

	tests := []struct {
		name     string
		status   budget.Status
		wantType Type
		wantText string
	}{
		{"warning", budget.StatusWarning, TypeBudgetWarning, "is at 85.00%"},
		{"over budget", budget.StatusOverBudget, TypeBudgetExceeded, "over its limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, pub := &memStore{}, &recordingPublisher{}
			svc := NewService(store, pub, nil)

			err := svc.BudgetStatusChanged(context.Background(), user, &budget.Transition{
				Budget: b,
				From:   budget.StatusOnTrack,
				To: &budget.Performance{
					Amount:         dec("200"),
					Spent:          dec("170"),
					PercentageUsed: dec("85"),
					Status:         tt.status,
					Currency:       "EUR",
				},
			})
			if err != nil {
				t.Fatalf("BudgetStatusChanged() error = %v", err)
			}

			if len(store.items) != 1 {
				t.Fatalf("stored %d notifications, want 1", len(store.items))
			}
			n := store.items[0]
			if n.Type != tt.wantType || n.RecipientID != user {
				t.Errorf("notification = %+v", n)
			}
			if !strings.Contains(n.Message, tt.wantText) {
				t.Errorf("message = %q, want it to contain %q", n.Message, tt.wantText)
			}
			if n.RelatedEntityID == nil || *n.RelatedEntityID != b.ID {
				t.Errorf("related entity = %v, want budget id", n.RelatedEntityID)
			}

			if len(pub.events) != 1 {
				t.Fatalf("published %d events, want 1", len(pub.events))
			}
			e := pub.events[0]
			if e.UserID != user || *e.BudgetID != b.ID || e.Status != string(tt.status) || e.Currency != "EUR" {
				t.Errorf("event = %+v", e)
			}
			if !e.Spent.Equal(dec("170")) || !e.Limit.Equal(dec("200")) {
				t.Errorf("spent/limit = %s/%s, want 170/200", e.Spent, e.Limit)
			}
			if e.OccurredAt.IsZero() {
				t.Error("occurred_at not set")
			}
		})
	}
}

func TestPublishFailureIsCounted(t *testing.T) {
	m := metrics.New()
	store := &memStore{}
	svc := NewService(store, &recordingPublisher{err: errors.New("broker down")}, m)

	err := svc.BudgetStatusChanged(context.Background(), uuid.New(), &budget.Transition{
		Budget: &budget.Budget{ID: uuid.New(), Name: "Rent"},
		To:     &budget.Performance{Status: budget.StatusOverBudget, Currency: "EUR"},
	})
	if err != nil {
		t.Fatalf("BudgetStatusChanged() error = %v, want publish failure swallowed", err)
	}
	if len(store.items) != 1 {
		t.Errorf("stored %d notifications, want 1", len(store.items))
	}

	expected := `
# HELP finance_event_publish_failures_total Events that could not be published to the broker.
# TYPE finance_event_publish_failures_total counter
finance_event_publish_failures_total 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "finance_event_publish_failures_total"); err != nil {
		t.Error(err)
	}
}

func TestSharesAssignedSkipsOwner(t *testing.T) {
	owner, friend := uuid.New(), uuid.New()
	store, pub := &memStore{}, &recordingPublisher{}
	svc := NewService(store, pub, nil)

	e := &expense.Expense{
		ID:          uuid.New(),
		UserID:      owner,
		Description: "Dinner",
		Shares: []*expense.Share{
			{ID: uuid.New(), UserID: owner, ShareAmount: dec("30"), Currency: "EUR"},
			{ID: uuid.New(), UserID: friend, ShareAmount: dec("20"), Currency: "EUR"},
		},
	}
	if err := svc.SharesAssigned(context.Background(), e); err != nil {
		t.Fatalf("SharesAssigned() error = %v", err)
	}

	if len(store.items) != 1 || store.items[0].RecipientID != friend {
		t.Fatalf("notifications = %+v, want one for the friend", store.items)
	}
	if want := `You owe 20.00 EUR for "Dinner"`; store.items[0].Message != want {
		t.Errorf("message = %q, want %q", store.items[0].Message, want)
	}
	if len(pub.events) != 1 || *pub.events[0].ShareID != e.Shares[1].ID {
		t.Errorf("events = %+v, want one for the friend's share", pub.events)
	}
}

func TestMarkAsRead(t *testing.T) {
	user := uuid.New()
	store := &memStore{}
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	n, err := svc.Create(ctx, user, TypeShareSettled, "settled", EntityExpense, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, user, TypeShareAssigned, "assigned", EntityExpense, uuid.New()); err != nil {
		t.Fatal(err)
	}

	if err := svc.MarkAsRead(ctx, n.ID, uuid.New()); !errors.Is(err, ErrNotRecipient) {
		t.Errorf("MarkAsRead() by stranger error = %v, want ErrNotRecipient", err)
	}
	if err := svc.MarkAsRead(ctx, uuid.New(), user); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("MarkAsRead() unknown error = %v, want ErrNotificationNotFound", err)
	}
	if err := svc.MarkAsRead(ctx, n.ID, user); err != nil {
		t.Fatalf("MarkAsRead() error = %v", err)
	}

	if count, _ := svc.UnreadCount(ctx, user); count != 1 {
		t.Errorf("UnreadCount() = %d, want 1", count)
	}
	if marked, _ := svc.MarkAllAsRead(ctx, user); marked != 1 {
		t.Errorf("MarkAllAsRead() = %d, want 1", marked)
	}
	unread, total, _ := svc.List(ctx, user, 0, 0, true)
	if len(unread) != 0 || total != 0 {
		t.Errorf("unread after MarkAllAsRead = %d", total)
	}
}
