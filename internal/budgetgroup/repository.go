package budgetgroup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/finance/internal/database"
)

// Repository handles budget group data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new budget group repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const groupColumns = `id, user_id, name, description, period_type, start_date, end_date,
	currency, alert_threshold, is_active, created_at, updated_at`

func scanGroup(row interface{ Scan(...any) error }) (*Group, error) {
	g := &Group{}
	err := row.Scan(
		&g.ID, &g.UserID, &g.Name, &g.Description, &g.PeriodType, &g.StartDate, &g.EndDate,
		&g.Currency, &g.AlertThreshold, &g.IsActive, &g.CreatedAt, &g.UpdatedAt,
	)
	return g, err
}

func (r *Repository) queryGroups(ctx context.Context, query string, args ...any) ([]*Group, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget groups: %w", err)
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Create inserts a new budget group
func (r *Repository) Create(ctx context.Context, g *Group) (*Group, error) {
	query := `
		INSERT INTO budget_groups (user_id, name, description, period_type, start_date, end_date,
			currency, alert_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + groupColumns

	created, err := scanGroup(r.db.QueryRowContext(ctx, query,
		g.UserID, g.Name, g.Description, g.PeriodType, g.StartDate, g.EndDate,
		g.Currency, g.AlertThreshold,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create budget group: %w", err)
	}
	return created, nil
}

// GetByID retrieves a budget group by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Group, error) {
	query := `SELECT ` + groupColumns + ` FROM budget_groups WHERE id = $1`

	g, err := scanGroup(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get budget group: %w", err)
	}
	return g, nil
}

// ListByUser retrieves a user's budget groups, newest period first
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM budget_groups
		WHERE user_id = $1 AND ($2 = FALSE OR is_active)
		ORDER BY start_date DESC, name
	`
	return r.queryGroups(ctx, query, userID, activeOnly)
}

// ListOverlapping retrieves the user's active groups whose period shares a
// day with [from, to]
func (r *Repository) ListOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*Group, error) {
	query := `
		SELECT ` + groupColumns + `
		FROM budget_groups
		WHERE user_id = $1 AND is_active AND start_date <= $3 AND end_date >= $2
		ORDER BY start_date, name
	`
	return r.queryGroups(ctx, query, userID, from, to)
}

// Update writes every mutable field of g
func (r *Repository) Update(ctx context.Context, g *Group) (*Group, error) {
	query := `
		UPDATE budget_groups
		SET name = $2, description = $3, start_date = $4, end_date = $5,
		    alert_threshold = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + groupColumns

	updated, err := scanGroup(r.db.QueryRowContext(ctx, query,
		g.ID, g.Name, g.Description, g.StartDate, g.EndDate, g.AlertThreshold, g.IsActive,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update budget group: %w", err)
	}
	return updated, nil
}

// Delete applies policy to the group and its member budgets in one
// transaction
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, policy DeletePolicy) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		switch policy {
		case PolicyCascade:
			if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE budget_group_id = $1`, id); err != nil {
				return fmt.Errorf("failed to delete group budgets: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM budget_groups WHERE id = $1`, id); err != nil {
				return fmt.Errorf("failed to delete budget group: %w", err)
			}
		default:
			query := `
				UPDATE budgets
				SET budget_group_id = NULL, is_active = FALSE, updated_at = NOW()
				WHERE budget_group_id = $1
			`
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return fmt.Errorf("failed to detach group budgets: %w", err)
			}
			query = `UPDATE budget_groups SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
			if _, err := tx.ExecContext(ctx, query, id); err != nil {
				return fmt.Errorf("failed to deactivate budget group: %w", err)
			}
		}
		return nil
	})
}
