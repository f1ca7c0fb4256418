package category

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/fkhayef/finance/internal/apperr"
)

// Common errors
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrHasSubcategories = errors.New("category has subcategories")
	ErrCategoryInUse    = errors.New("category is referenced by a budget")
)

// Store is the persistence used by Service. *Repository implements it.
type Store interface {
	Create(ctx context.Context, userID uuid.UUID, req *CreateCategoryRequest) (*Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Category, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Category, error)
	Update(ctx context.Context, id uuid.UUID, req *UpdateCategoryRequest) (*Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountChildren(ctx context.Context, id uuid.UUID) (int, error)
	IsReferencedByBudget(ctx context.Context, id uuid.UUID) (bool, error)
}

// Service handles category business logic
type Service struct {
	repo Store
}

// NewService creates a new category service
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Create adds a category. A parent must be one of the user's primary
// categories, so the hierarchy is never deeper than two levels.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateCategoryRequest) (*Category, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, apperr.Validation("name", "is required")
	}

	if req.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.UserID != userID {
			return nil, apperr.Validation("parent_id", "does not exist")
		}
		if !parent.IsPrimary() {
			return nil, apperr.Validation("parent_id", "must be a primary category")
		}
	}

	return s.repo.Create(ctx, userID, req)
}

// GetByID retrieves a category owned by userID
func (s *Service) GetByID(ctx context.Context, userID, id uuid.UUID) (*Category, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil || c.UserID != userID {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// List retrieves all categories of a user
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Hierarchy loads the user's categories into a lookup index
func (s *Service) Hierarchy(ctx context.Context, userID uuid.UUID) (*Hierarchy, error) {
	categories, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewHierarchy(categories), nil
}

// Update modifies a category owned by userID
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req *UpdateCategoryRequest) (*Category, error) {
	if _, err := s.GetByID(ctx, userID, id); err != nil {
		return nil, err
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("name", "must not be blank")
		}
		req.Name = &name
	}
	return s.repo.Update(ctx, id, req)
}

// Delete removes a category that has no subcategories and no budgets
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetByID(ctx, userID, id); err != nil {
		return err
	}

	n, err := s.repo.CountChildren(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasSubcategories
	}

	used, err := s.repo.IsReferencedByBudget(ctx, id)
	if err != nil {
		return err
	}
	if used {
		return ErrCategoryInUse
	}

	return s.repo.Delete(ctx, id)
}
