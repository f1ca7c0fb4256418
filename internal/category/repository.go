package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Repository handles category data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new category repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const categoryColumns = `id, user_id, name, parent_id, color, is_active, created_at`

func scanCategory(row interface{ Scan(...any) error }) (*Category, error) {
	c := &Category{}
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.ParentID, &c.Color, &c.IsActive, &c.CreatedAt)
	return c, err
}

// Create inserts a new category
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, req *CreateCategoryRequest) (*Category, error) {
	query := `
		INSERT INTO categories (user_id, name, parent_id, color)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, userID, req.Name, req.ParentID, req.Color))
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}
	return c, nil
}

// GetByID retrieves a category by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return c, nil
}

// ListByUser retrieves all categories of a user, primaries first
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	query := `
		SELECT ` + categoryColumns + `
		FROM categories
		WHERE user_id = $1
		ORDER BY parent_id NULLS FIRST, name
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []*Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// Update modifies an existing category
func (r *Repository) Update(ctx context.Context, id uuid.UUID, req *UpdateCategoryRequest) (*Category, error) {
	query := `
		UPDATE categories
		SET name = COALESCE($2, name),
		    color = COALESCE($3, color),
		    is_active = COALESCE($4, is_active)
		WHERE id = $1
		RETURNING ` + categoryColumns

	c, err := scanCategory(r.db.QueryRowContext(ctx, query, id, req.Name, req.Color, req.IsActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}
	return c, nil
}

// Delete removes a category
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// CountChildren returns the number of subcategories of id
func (r *Repository) CountChildren(ctx context.Context, id uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count subcategories: %w", err)
	}
	return n, nil
}

// IsReferencedByBudget reports whether any budget is scoped to id
func (r *Repository) IsReferencedByBudget(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM budgets WHERE category_id = $1 OR subcategory_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check budget references: %w", err)
	}
	return exists, nil
}
