package user

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/fkhayef/finance/internal/apperr"
	"github.com/fkhayef/finance/internal/money"
)

// Common errors
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailAlreadyInUse = errors.New("email already in use")
	ErrNotSelf           = errors.New("users can only change their own account")
)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateUserRequest) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Service handles user business logic
type Service struct {
	repo            Store
	defaultCurrency string
}

// NewService creates a new user service. defaultCurrency is used for users
// created without a base currency and for unknown users.
func NewService(repo Store, defaultCurrency string) *Service {
	return &Service{repo: repo, defaultCurrency: strings.ToUpper(defaultCurrency)}
}

// Create creates a new user
func (s *Service) Create(ctx context.Context, req *CreateUserRequest) (*User, error) {
	u := &User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		FullName:     req.FullName,
		BaseCurrency: strings.ToUpper(req.BaseCurrency),
	}
	if n := len(u.Username); n < 3 || n > 50 {
		return nil, apperr.Validation("username", "must be between 3 and 50 characters")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return nil, apperr.Validation("email", "is not a valid address")
	}
	if u.BaseCurrency == "" {
		u.BaseCurrency = s.defaultCurrency
	}
	if err := money.ValidateCurrency(u.BaseCurrency); err != nil {
		return nil, apperr.Validation("base_currency", err.Error())
	}

	existing, err := s.repo.GetByEmail(ctx, u.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyInUse
	}

	return s.repo.Create(ctx, u)
}

// GetByID retrieves a user by their ID
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// List retrieves all users with pagination
func (s *Service) List(ctx context.Context, page, perPage int) ([]*User, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.List(ctx, perPage, offset)
}

// Update modifies the caller's own account
func (s *Service) Update(ctx context.Context, callerID, id uuid.UUID, req *UpdateUserRequest) (*User, error) {
	if callerID != id {
		return nil, ErrNotSelf
	}
	if req.Username != nil {
		name := strings.TrimSpace(*req.Username)
		if n := len(name); n < 3 || n > 50 {
			return nil, apperr.Validation("username", "must be between 3 and 50 characters")
		}
		req.Username = &name
	}
	if req.BaseCurrency != nil {
		code := strings.ToUpper(*req.BaseCurrency)
		if err := money.ValidateCurrency(code); err != nil {
			return nil, apperr.Validation("base_currency", err.Error())
		}
		req.BaseCurrency = &code
	}

	u, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// Delete removes the caller's own account
func (s *Service) Delete(ctx context.Context, callerID, id uuid.UUID) error {
	if callerID != id {
		return ErrNotSelf
	}
	return s.repo.Delete(ctx, id)
}

// BaseCurrency returns the currency userID reports in, or the default for
// users without a stored row
func (s *Service) BaseCurrency(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u == nil || u.BaseCurrency == "" {
		return s.defaultCurrency, nil
	}
	return u.BaseCurrency, nil
}
