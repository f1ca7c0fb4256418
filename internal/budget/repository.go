package budget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Repository handles budget data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new budget repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const budgetColumns = `id, user_id, budget_group_id, name, amount, currency, period_type,
	start_date, end_date, category_id, subcategory_id, alert_threshold, is_active,
	created_at, updated_at`

func scanBudget(row interface{ Scan(...any) error }) (*Budget, error) {
	b := &Budget{}
	err := row.Scan(
		&b.ID, &b.UserID, &b.BudgetGroupID, &b.Name, &b.Amount, &b.Currency, &b.PeriodType,
		&b.StartDate, &b.EndDate, &b.CategoryID, &b.SubcategoryID, &b.AlertThreshold, &b.IsActive,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func (r *Repository) queryBudgets(ctx context.Context, query string, args ...any) ([]*Budget, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// Create inserts a new budget
func (r *Repository) Create(ctx context.Context, b *Budget) (*Budget, error) {
	query := `
		INSERT INTO budgets (user_id, budget_group_id, name, amount, currency, period_type,
			start_date, end_date, category_id, subcategory_id, alert_threshold)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + budgetColumns

	created, err := scanBudget(r.db.QueryRowContext(ctx, query,
		b.UserID, b.BudgetGroupID, b.Name, b.Amount, b.Currency, b.PeriodType,
		b.StartDate, b.EndDate, b.CategoryID, b.SubcategoryID, b.AlertThreshold,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}
	return created, nil
}

// GetByID retrieves a budget by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = $1`

	b, err := scanBudget(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	return b, nil
}

// ListByUser retrieves a user's budgets, newest period first
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, activeOnly bool) ([]*Budget, error) {
	query := `
		SELECT ` + budgetColumns + `
		FROM budgets
		WHERE user_id = $1 AND ($2 = FALSE OR is_active)
		ORDER BY start_date DESC, name
	`
	return r.queryBudgets(ctx, query, userID, activeOnly)
}

// ListByGroup retrieves the budgets attached to a budget group
func (r *Repository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*Budget, error) {
	query := `
		SELECT ` + budgetColumns + `
		FROM budgets
		WHERE budget_group_id = $1
		ORDER BY name
	`
	return r.queryBudgets(ctx, query, groupID)
}

// ListByIDs retrieves budgets by id
func (r *Repository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ANY($1::uuid[]) ORDER BY name`
	return r.queryBudgets(ctx, query, pq.Array(uuidStrings(ids)))
}

// Update writes every mutable field of b
func (r *Repository) Update(ctx context.Context, b *Budget) (*Budget, error) {
	query := `
		UPDATE budgets
		SET name = $2, amount = $3, period_type = $4, start_date = $5, end_date = $6,
		    category_id = $7, subcategory_id = $8, alert_threshold = $9, is_active = $10,
		    budget_group_id = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + budgetColumns

	updated, err := scanBudget(r.db.QueryRowContext(ctx, query,
		b.ID, b.Name, b.Amount, b.PeriodType, b.StartDate, b.EndDate,
		b.CategoryID, b.SubcategoryID, b.AlertThreshold, b.IsActive, b.BudgetGroupID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update budget: %w", err)
	}
	return updated, nil
}

// SetGroup attaches the budgets to groupID, or detaches them when groupID is nil
func (r *Repository) SetGroup(ctx context.Context, ids []uuid.UUID, groupID *uuid.UUID) error {
	query := `UPDATE budgets SET budget_group_id = $1, updated_at = NOW() WHERE id = ANY($2::uuid[])`
	if _, err := r.db.ExecContext(ctx, query, groupID, pq.Array(uuidStrings(ids))); err != nil {
		return fmt.Errorf("failed to set budget group: %w", err)
	}
	return nil
}

// Delete removes a budget
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}
	return nil
}

// ListExpenses loads the user's expenses dated inside [from, to]. A nil to
// leaves the range open.
func (r *Repository) ListExpenses(ctx context.Context, userID uuid.UUID, from time.Time, to *time.Time) ([]Expense, error) {
	query := `
		SELECT id, amount, currency, amount_in_base_currency, base_currency, date, category_id, subcategory_id
		FROM expenses
		WHERE user_id = $1 AND date >= $2 AND ($3::date IS NULL OR date <= $3::date)
		ORDER BY date
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var e Expense
		var base decimal.NullDecimal
		var baseCurrency sql.NullString
		if err := rows.Scan(&e.ID, &e.Amount, &e.Currency, &base, &baseCurrency, &e.Date, &e.CategoryID, &e.SubcategoryID); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		if base.Valid {
			e.AmountInBaseCurrency = &base.Decimal
		}
		e.BaseCurrency = baseCurrency.String
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
