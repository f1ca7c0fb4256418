package paymentmethod

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/cache"
)

// Common errors
var (
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrDefaultsExist         = errors.New("user already has payment methods")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID, req *CreatePaymentMethodRequest) (*PaymentMethod, error)
	CreateMany(ctx context.Context, userID uuid.UUID, reqs []*CreatePaymentMethodRequest) ([]*PaymentMethod, error)
	GetByID(ctx context.Context, id uuid.UUID) (*PaymentMethod, error)
	ListByUser(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]*PaymentMethod, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
	NameTaken(ctx context.Context, userID uuid.UUID, name string, except *uuid.UUID) (bool, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdatePaymentMethodRequest) (*PaymentMethod, error)
	Reorder(ctx context.Context, userID uuid.UUID, items []ReorderItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	InUse(ctx context.Context, id uuid.UUID) (bool, error)
	UsageByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]Usage, error)
}

// Service handles payment method business logic. Single-method lookups,
// which every expense write makes, are served from an LRU cache that each
// write through the service invalidates.
type Service struct {
	repo    Store
	lookups *cache.LRUCache[PaymentMethod]
}

// NewService creates a new payment method service. A nil lookups cache is
// replaced by a small one on the system clock.
func NewService(repo Store, lookups *cache.LRUCache[PaymentMethod]) *Service {
	if lookups == nil {
		lookups = cache.NewLRUCache[PaymentMethod](256, 5*time.Minute, nil)
	}
	return &Service{repo: repo, lookups: lookups}
}

// Lookup returns a payment method owned by userID, from cache when possible
func (s *Service) Lookup(ctx context.Context, userID, id uuid.UUID) (*PaymentMethod, error) {
	if m, ok := s.lookups.Get(id.String()); ok {
		if m.UserID != userID {
			return nil, ErrPaymentMethodNotFound
		}
		return &m, nil
	}

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrPaymentMethodNotFound
	}
	s.lookups.Set(id.String(), *m)
	if m.UserID != userID {
		return nil, ErrPaymentMethodNotFound
	}
	return m, nil
}

// Create adds a payment method. Names are unique per user, ignoring case.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreatePaymentMethodRequest) (*PaymentMethod, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateFields(&req.Name, req.Icon, req.Color, &req.SortOrder); err != nil {
		return nil, err
	}
	if err := s.checkName(ctx, userID, req.Name, nil); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, userID, req)
}

// CreateDefaults gives a user without payment methods the standard set
func (s *Service) CreateDefaults(ctx context.Context, userID uuid.UUID) ([]*PaymentMethod, error) {
	n, err := s.repo.CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrDefaultsExist
	}

	reqs := make([]*CreatePaymentMethodRequest, len(defaults))
	for i, p := range defaults {
		icon, color := p.icon, p.color
		reqs[i] = &CreatePaymentMethodRequest{
			Name:      p.name,
			Icon:      &icon,
			Color:     &color,
			SortOrder: i + 1,
			IsDefault: i == 0,
		}
	}
	return s.repo.CreateMany(ctx, userID, reqs)
}

// MethodStats pairs a payment method with its usage
type MethodStats struct {
	Method *PaymentMethod
	Usage  Usage
}

// List retrieves the user's payment methods in display order, each with its
// usage so callers can tell which ones may be deleted.
func (s *Service) List(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]MethodStats, error) {
	methods, err := s.repo.ListByUser(ctx, userID, includeInactive)
	if err != nil {
		return nil, err
	}
	usage, err := s.repo.UsageByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]MethodStats, len(methods))
	for i, m := range methods {
		out[i] = MethodStats{Method: m, Usage: usage[m.ID]}
	}
	return out, nil
}

// ListWithStats retrieves the user's active payment methods, most used first
func (s *Service) ListWithStats(ctx context.Context, userID uuid.UUID) ([]MethodStats, error) {
	out, err := s.List(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Usage.ExpenseCount > out[j].Usage.ExpenseCount
	})
	return out, nil
}

// CanDelete reports whether id may be removed outright
func (s *Service) CanDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	used, err := s.repo.InUse(ctx, id)
	if err != nil {
		return false, err
	}
	return !used, nil
}

// Update modifies a payment method owned by userID
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req *UpdatePaymentMethodRequest) (*PaymentMethod, error) {
	if _, err := s.Lookup(ctx, userID, id); err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := validateFields(req.Name, req.Icon, req.Color, req.SortOrder); err != nil {
		return nil, err
	}
	if req.Name != nil {
		if err := s.checkName(ctx, userID, *req.Name, &id); err != nil {
			return nil, err
		}
	}

	s.lookups.Delete(id.String())
	m, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrPaymentMethodNotFound
	}
	return m, nil
}

// Reorder moves the listed methods to new positions. Every id must belong
// to userID.
func (s *Service) Reorder(ctx context.Context, userID uuid.UUID, items []ReorderItem) ([]MethodStats, error) {
	for i, it := range items {
		if it.SortOrder < 0 {
			return nil, apperr.Validationf("payment_methods", "entry %d has a negative sort_order", i)
		}
		if _, err := s.Lookup(ctx, userID, it.ID); err != nil {
			return nil, err
		}
	}

	for _, it := range items {
		s.lookups.Delete(it.ID.String())
	}
	if err := s.repo.Reorder(ctx, userID, items); err != nil {
		return nil, err
	}
	return s.List(ctx, userID, true)
}

// Delete deactivates a payment method. With force, a method no expense uses
// is removed instead. It reports whether the row was removed.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID, force bool) (bool, error) {
	if _, err := s.Lookup(ctx, userID, id); err != nil {
		return false, err
	}
	s.lookups.Delete(id.String())

	if force {
		removable, err := s.CanDelete(ctx, id)
		if err != nil {
			return false, err
		}
		if removable {
			return true, s.repo.Delete(ctx, id)
		}
	}

	inactive := false
	_, err := s.repo.Update(ctx, id, &UpdatePaymentMethodRequest{IsActive: &inactive})
	return false, err
}

func (s *Service) checkName(ctx context.Context, userID uuid.UUID, name string, except *uuid.UUID) error {
	taken, err := s.repo.NameTaken(ctx, userID, name, except)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Validationf("name", "a payment method named %q already exists", name)
	}
	return nil
}

// validateFields checks the fields shared by create and update. nil means
// not supplied. A valid color is normalized to upper case in place.
func validateFields(name, icon, color *string, sortOrder *int) error {
	if name != nil {
		if *name == "" {
			return apperr.Validation("name", "is required")
		}
		if len(*name) > 100 {
			return apperr.Validation("name", "must be at most 100 characters")
		}
	}
	if icon != nil && len(*icon) > 50 {
		return apperr.Validation("icon", "must be at most 50 characters")
	}
	if color != nil {
		if !colorPattern.MatchString(*color) {
			return apperr.Validation("color", "must be a hex color like #10B981")
		}
		*color = strings.ToUpper(*color)
	}
	if sortOrder != nil && *sortOrder < 0 {
		return apperr.Validation("sort_order", "must not be negative")
	}
	return nil
}
