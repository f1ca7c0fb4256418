package settlement

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/expense"
	"github.com/fkhayef/finance/internal/money"
)

// Common errors
var (
	ErrSettlementNotFound  = errors.New("settlement not found")
	ErrAlreadySettled      = errors.New("already settled up - no pending shares")
	ErrNotReceiver         = errors.New("only the receiver can confirm or reject")
	ErrInvalidStatusChange = errors.New("settlement is no longer pending")
	ErrCannotSettleSelf    = errors.New("cannot create settlement with yourself")
	ErrSharesChanged       = errors.New("shares changed while creating the settlement, try again")
)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Create(ctx context.Context, s *Settlement, shareIDs []uuid.UUID) (*Settlement, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Settlement, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Settlement, int, error)
	Resolve(ctx context.Context, id uuid.UUID, status Status) (*Settlement, error)
	NetBalances(ctx context.Context, userID uuid.UUID) ([]*NetBalance, error)
}

// ShareLedger lists the open shares one user holds on another user's
// expenses. *expense.Repository implements it.
type ShareLedger interface {
	PendingSharesBetween(ctx context.Context, debtorID, creditorID uuid.UUID, currency string) ([]*expense.Share, error)
}

// Notifier is told about settlement lifecycle events
type Notifier interface {
	SettlementRequested(ctx context.Context, s *Settlement) error
	SettlementConfirmed(ctx context.Context, s *Settlement) error
	SettlementRejected(ctx context.Context, s *Settlement) error
}

// Service handles settlement business logic
type Service struct {
	repo     Store
	ledger   ShareLedger
	notifier Notifier
}

// NewService creates a new settlement service. notifier may be nil.
func NewService(repo Store, ledger ShareLedger, notifier Notifier) *Service {
	return &Service{repo: repo, ledger: ledger, notifier: notifier}
}

type openShares struct {
	owes, owed []*expense.Share
}

func (o openShares) net() decimal.Decimal {
	net := decimal.Zero
	for _, s := range o.owes {
		net = net.Add(s.ShareAmount)
	}
	for _, s := range o.owed {
		net = net.Sub(s.ShareAmount)
	}
	return net
}

func (o openShares) ids() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(o.owes)+len(o.owed))
	for _, s := range o.owes {
		ids = append(ids, s.ID)
	}
	for _, s := range o.owed {
		ids = append(ids, s.ID)
	}
	return ids
}

func (s *Service) open(ctx context.Context, userID, otherUserID uuid.UUID, currency string) (openShares, error) {
	owes, err := s.ledger.PendingSharesBetween(ctx, userID, otherUserID, currency)
	if err != nil {
		return openShares{}, err
	}
	owed, err := s.ledger.PendingSharesBetween(ctx, otherUserID, userID, currency)
	if err != nil {
		return openShares{}, err
	}
	return openShares{owes: owes, owed: owed}, nil
}

func normalizeCurrency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if err := money.ValidateCurrency(c); err != nil {
		return "", apperr.Validation("currency", err.Error())
	}
	return c, nil
}

// NetBalance returns the unsettled balance between userID and otherUserID in
// one currency: shares userID owes on the other's expenses minus the reverse
func (s *Service) NetBalance(ctx context.Context, userID, otherUserID uuid.UUID, currency string) (*NetBalance, error) {
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}
	o, err := s.open(ctx, userID, otherUserID, currency)
	if err != nil {
		return nil, err
	}
	return &NetBalance{
		OtherUserID: otherUserID,
		Currency:    currency,
		Amount:      money.RoundAmount(o.net(), currency),
	}, nil
}

// NetBalances returns every non-zero balance of the user
func (s *Service) NetBalances(ctx context.Context, userID uuid.UUID) ([]*NetBalance, error) {
	return s.repo.NetBalances(ctx, userID)
}

// Create opens a settlement for every open share between the two users in
// one currency. Whoever owes on balance pays; a zero balance still needs the
// other user's confirmation to clear mutual shares.
func (s *Service) Create(ctx context.Context, initiatorID uuid.UUID, req *CreateSettlementRequest) (*Settlement, error) {
	if req.OtherUserID == uuid.Nil {
		return nil, apperr.Validation("other_user_id", "is required")
	}
	if initiatorID == req.OtherUserID {
		return nil, ErrCannotSettleSelf
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	o, err := s.open(ctx, initiatorID, req.OtherUserID, currency)
	if err != nil {
		return nil, err
	}
	if len(o.owes) == 0 && len(o.owed) == 0 {
		return nil, ErrAlreadySettled
	}

	st := &Settlement{PayerID: initiatorID, ReceiverID: req.OtherUserID, Currency: currency}
	net := money.RoundAmount(o.net(), currency)
	if net.IsNegative() {
		st.PayerID, st.ReceiverID = req.OtherUserID, initiatorID
		net = net.Neg()
	}
	st.Amount = net

	created, err := s.repo.Create(ctx, st, o.ids())
	if err != nil {
		return nil, err
	}

	// the receiver confirms, so they are told unless they started it
	if created.ReceiverID != initiatorID {
		s.notify(ctx, created, Notifier.SettlementRequested)
	}
	return created, nil
}

// GetByID retrieves a settlement the user takes part in
func (s *Service) GetByID(ctx context.Context, userID, id uuid.UUID) (*Settlement, error) {
	st, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil || !st.Involves(userID) {
		return nil, ErrSettlementNotFound
	}
	return st, nil
}

// List retrieves the user's settlements with pagination
func (s *Service) List(ctx context.Context, userID uuid.UUID, page, perPage int) ([]*Settlement, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListByUser(ctx, userID, perPage, offset)
}

// Confirm lets the receiver confirm the payment; the locked shares become
// settled
func (s *Service) Confirm(ctx context.Context, userID, id uuid.UUID) (*Settlement, error) {
	return s.resolve(ctx, userID, id, StatusConfirmed, Notifier.SettlementConfirmed)
}

// Reject lets the receiver reject the payment; the locked shares are released
func (s *Service) Reject(ctx context.Context, userID, id uuid.UUID) (*Settlement, error) {
	return s.resolve(ctx, userID, id, StatusRejected, Notifier.SettlementRejected)
}

func (s *Service) resolve(ctx context.Context, userID, id uuid.UUID, status Status, event func(Notifier, context.Context, *Settlement) error) (*Settlement, error) {
	st, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if st.ReceiverID != userID {
		return nil, ErrNotReceiver
	}
	if st.Status != StatusPending {
		return nil, ErrInvalidStatusChange
	}

	resolved, err := s.repo.Resolve(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, resolved, event)
	return resolved, nil
}

func (s *Service) notify(ctx context.Context, st *Settlement, event func(Notifier, context.Context, *Settlement) error) {
	if s.notifier == nil {
		return
	}
	if err := event(s.notifier, ctx, st); err != nil {
		slog.Warn("Failed to notify settlement", "settlement_id", st.ID, "status", st.Status, "error", err)
	}
}
