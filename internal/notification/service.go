package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/finance/internal/budget"
	"github.com/fkhayef/finance/internal/expense"
	"github.com/fkhayef/finance/internal/settlement"
	"github.com/fkhayef/finance/pkg/metrics"
)

// Common errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNotRecipient         = errors.New("not the recipient of this notification")
)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Create(ctx context.Context, n *Notification) (*Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit, offset int, unreadOnly bool) ([]*Notification, int, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, recipientID uuid.UUID) (int, error)
	UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error)
}

// Service handles notification business logic. It stores a notification for
// every budget, share and settlement event and mirrors it to the publisher
// when one is configured.
type Service struct {
	repo      Store
	publisher Publisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewService creates a new notification service. publisher may be nil.
func NewService(repo Store, publisher Publisher, m *metrics.Metrics) *Service {
	return &Service{repo: repo, publisher: publisher, metrics: m, now: time.Now}
}

// Create stores a notification for one user
func (s *Service) Create(ctx context.Context, recipientID uuid.UUID, t Type, message, entityType string, entityID uuid.UUID) (*Notification, error) {
	return s.repo.Create(ctx, &Notification{
		RecipientID:       recipientID,
		Type:              t,
		Message:           message,
		RelatedEntityType: &entityType,
		RelatedEntityID:   &entityID,
	})
}

// List retrieves a user's notifications with pagination
func (s *Service) List(ctx context.Context, recipientID uuid.UUID, page, perPage int, unreadOnly bool) ([]*Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByRecipient(ctx, recipientID, perPage, offset, unreadOnly)
}

// UnreadCount returns how many notifications the user has not read
func (s *Service) UnreadCount(ctx context.Context, recipientID uuid.UUID) (int, error) {
	return s.repo.UnreadCount(ctx, recipientID)
}

// MarkAsRead marks a notification as read
func (s *Service) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNotificationNotFound
	}
	if n.RecipientID != userID {
		return ErrNotRecipient
	}

	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks every unread notification of a user as read
func (s *Service) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}

// publish hands e to the broker. A failed publish is logged and counted; the
// stored notification stands.
func (s *Service) publish(ctx context.Context, e *Event) {
	if s.publisher == nil {
		return
	}
	e.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.metrics.PublishFailed()
		slog.Warn("Failed to publish event", "type", e.Type, "user_id", e.UserID, "error", err)
	}
}

// BudgetStatusChanged records a budget entering warning or over_budget
func (s *Service) BudgetStatusChanged(ctx context.Context, userID uuid.UUID, t *budget.Transition) error {
	p := t.To
	typ := TypeBudgetWarning
	message := fmt.Sprintf("Budget %q is at %s%%: %s of %s %s spent",
		t.Budget.Name, p.PercentageUsed.StringFixed(2), p.Spent.StringFixed(2), p.Amount.StringFixed(2), p.Currency)
	if p.Status == budget.StatusOverBudget {
		typ = TypeBudgetExceeded
		message = fmt.Sprintf("Budget %q is over its limit: %s of %s %s spent",
			t.Budget.Name, p.Spent.StringFixed(2), p.Amount.StringFixed(2), p.Currency)
	}

	if _, err := s.Create(ctx, userID, typ, message, EntityBudget, t.Budget.ID); err != nil {
		return err
	}

	spent, limit := p.Spent, p.Amount
	s.publish(ctx, &Event{
		Type:     typ,
		UserID:   userID,
		BudgetID: &t.Budget.ID,
		Status:   string(p.Status),
		Spent:    &spent,
		Limit:    &limit,
		Currency: p.Currency,
	})
	return nil
}

// SharesAssigned tells every participant other than the owner what they owe
func (s *Service) SharesAssigned(ctx context.Context, e *expense.Expense) error {
	var errs []error
	for _, sh := range e.Shares {
		if sh.UserID == e.UserID {
			continue
		}
		message := fmt.Sprintf("You owe %s %s for %q", sh.ShareAmount.StringFixed(2), sh.Currency, describe(e))
		if _, err := s.Create(ctx, sh.UserID, TypeShareAssigned, message, EntityExpense, e.ID); err != nil {
			errs = append(errs, err)
			continue
		}

		amount := sh.ShareAmount
		s.publish(ctx, &Event{
			Type:      TypeShareAssigned,
			UserID:    sh.UserID,
			ExpenseID: &e.ID,
			ShareID:   &sh.ID,
			Amount:    &amount,
			Currency:  sh.Currency,
		})
	}
	return errors.Join(errs...)
}

// ShareSettled tells the expense owner that a participant settled
func (s *Service) ShareSettled(ctx context.Context, e *expense.Expense, sh *expense.Share) error {
	message := fmt.Sprintf("A share of %s %s for %q was settled", sh.ShareAmount.StringFixed(2), sh.Currency, describe(e))
	if _, err := s.Create(ctx, e.UserID, TypeShareSettled, message, EntityExpense, e.ID); err != nil {
		return err
	}

	amount := sh.ShareAmount
	s.publish(ctx, &Event{
		Type:      TypeShareSettled,
		UserID:    e.UserID,
		ExpenseID: &e.ID,
		ShareID:   &sh.ID,
		Amount:    &amount,
		Currency:  sh.Currency,
	})
	return nil
}

// SettlementRequested tells the receiver a payment is waiting for confirmation
func (s *Service) SettlementRequested(ctx context.Context, st *settlement.Settlement) error {
	message := fmt.Sprintf("A payment of %s %s is waiting for your confirmation", st.Amount.StringFixed(2), st.Currency)
	_, err := s.Create(ctx, st.ReceiverID, TypeSettlementRequested, message, EntitySettlement, st.ID)
	return err
}

// SettlementConfirmed tells the payer the receiver confirmed
func (s *Service) SettlementConfirmed(ctx context.Context, st *settlement.Settlement) error {
	message := fmt.Sprintf("Your payment of %s %s was confirmed", st.Amount.StringFixed(2), st.Currency)
	_, err := s.Create(ctx, st.PayerID, TypeSettlementConfirmed, message, EntitySettlement, st.ID)
	return err
}

// SettlementRejected tells the payer the receiver rejected
func (s *Service) SettlementRejected(ctx context.Context, st *settlement.Settlement) error {
	message := fmt.Sprintf("Your payment of %s %s was rejected", st.Amount.StringFixed(2), st.Currency)
	_, err := s.Create(ctx, st.PayerID, TypeSettlementRejected, message, EntitySettlement, st.ID)
	return err
}

func describe(e *expense.Expense) string {
	if e.Description != "" {
		return e.Description
	}
	return "an expense on " + e.Date.Format("2006-01-02")
}
