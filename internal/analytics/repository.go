package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository runs the aggregate queries over expenses
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new analytics repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// MonthlyTotals sums the user's expenses dated in [from, to) per month.
// Only base amounts recorded in currency are added up. Months without
// expenses are absent.
func (r *Repository) MonthlyTotals(ctx context.Context, userID uuid.UUID, from, to time.Time, currency string) ([]MonthTotal, error) {
	query := `
		SELECT DATE_TRUNC('month', date)::date,
		       COUNT(*),
		       COALESCE(SUM(amount_in_base_currency) FILTER (WHERE base_currency = $4), 0),
		       COUNT(*) FILTER (WHERE amount_in_base_currency IS NULL OR base_currency IS DISTINCT FROM $4)
		FROM expenses
		WHERE user_id = $1 AND date >= $2 AND date < $3
		GROUP BY 1
		ORDER BY 1
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly totals: %w", err)
	}
	defer rows.Close()

	var totals []MonthTotal
	for rows.Next() {
		var m MonthTotal
		if err := rows.Scan(&m.Month, &m.Count, &m.Total, &m.Unconverted); err != nil {
			return nil, fmt.Errorf("failed to scan monthly total: %w", err)
		}
		totals = append(totals, m)
	}
	return totals, rows.Err()
}

// CategoryTotals sums the user's expenses dated in [from, to) per primary
// category, under the same currency rule as MonthlyTotals.
func (r *Repository) CategoryTotals(ctx context.Context, userID uuid.UUID, from, to time.Time, currency string) ([]CategoryTotal, error) {
	query := `
		SELECT category_id,
		       COUNT(*),
		       COALESCE(SUM(amount_in_base_currency) FILTER (WHERE base_currency = $4), 0)
		FROM expenses
		WHERE user_id = $1 AND date >= $2 AND date < $3
		GROUP BY category_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to, currency)
	if err != nil {
		return nil, fmt.Errorf("failed to load category totals: %w", err)
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.CategoryID, &c.Count, &c.Total); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		totals = append(totals, c)
	}
	return totals, rows.Err()
}
