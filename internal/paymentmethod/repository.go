package paymentmethod

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fkhayef/finance/internal/database"
)

// Repository handles payment method data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new payment method repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const paymentMethodColumns = `id, user_id, name, description, icon, color, sort_order, is_active, is_default, created_at, updated_at`

func scanPaymentMethod(row interface{ Scan(...any) error }) (*PaymentMethod, error) {
	m := &PaymentMethod{}
	err := row.Scan(&m.ID, &m.UserID, &m.Name, &m.Description, &m.Icon, &m.Color,
		&m.SortOrder, &m.IsActive, &m.IsDefault, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func insert(ctx context.Context, tx *sql.Tx, userID uuid.UUID, req *CreatePaymentMethodRequest) (*PaymentMethod, error) {
	if req.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE payment_methods SET is_default = FALSE WHERE user_id = $1`, userID); err != nil {
			return nil, fmt.Errorf("failed to clear default payment method: %w", err)
		}
	}

	query := `
		INSERT INTO payment_methods (user_id, name, description, icon, color, sort_order, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + paymentMethodColumns

	m, err := scanPaymentMethod(tx.QueryRowContext(ctx, query,
		userID, req.Name, req.Description, req.Icon, req.Color, req.SortOrder, req.IsDefault,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create payment method: %w", err)
	}
	return m, nil
}

// Create inserts a payment method. A new default replaces the old one.
func (r *Repository) Create(ctx context.Context, userID uuid.UUID, req *CreatePaymentMethodRequest) (*PaymentMethod, error) {
	var created *PaymentMethod
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		created, err = insert(ctx, tx, userID, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateMany inserts several payment methods in one transaction
func (r *Repository) CreateMany(ctx context.Context, userID uuid.UUID, reqs []*CreatePaymentMethodRequest) ([]*PaymentMethod, error) {
	out := make([]*PaymentMethod, 0, len(reqs))
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, req := range reqs {
			m, err := insert(ctx, tx, userID, req)
			if err != nil {
				return err
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID retrieves a payment method by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*PaymentMethod, error) {
	query := `SELECT ` + paymentMethodColumns + ` FROM payment_methods WHERE id = $1`

	m, err := scanPaymentMethod(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment method: %w", err)
	}
	return m, nil
}

// ListByUser retrieves a user's payment methods in display order
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]*PaymentMethod, error) {
	query := `
		SELECT ` + paymentMethodColumns + `
		FROM payment_methods
		WHERE user_id = $1 AND (is_active OR $2)
		ORDER BY sort_order, name
	`

	rows, err := r.db.QueryContext(ctx, query, userID, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}
	defer rows.Close()

	var methods []*PaymentMethod
	for rows.Next() {
		m, err := scanPaymentMethod(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment method: %w", err)
		}
		methods = append(methods, m)
	}
	return methods, rows.Err()
}

// CountByUser returns how many payment methods a user has, inactive included
func (r *Repository) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_methods WHERE user_id = $1`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count payment methods: %w", err)
	}
	return n, nil
}

// NameTaken reports whether the user already has a method called name,
// ignoring case and the method except.
func (r *Repository) NameTaken(ctx context.Context, userID uuid.UUID, name string, except *uuid.UUID) (bool, error) {
	var taken bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payment_methods
			WHERE user_id = $1 AND LOWER(name) = LOWER($2) AND ($3::uuid IS NULL OR id <> $3)
		)
	`
	if err := r.db.QueryRowContext(ctx, query, userID, name, except).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check payment method name: %w", err)
	}
	return taken, nil
}

// Update modifies an existing payment method
func (r *Repository) Update(ctx context.Context, id uuid.UUID, req *UpdatePaymentMethodRequest) (*PaymentMethod, error) {
	query := `
		UPDATE payment_methods
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    icon = COALESCE($4, icon),
		    color = COALESCE($5, color),
		    sort_order = COALESCE($6, sort_order),
		    is_active = COALESCE($7, is_active),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + paymentMethodColumns

	m, err := scanPaymentMethod(r.db.QueryRowContext(ctx, query,
		id, req.Name, req.Description, req.Icon, req.Color, req.SortOrder, req.IsActive,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update payment method: %w", err)
	}
	return m, nil
}

// Reorder sets the sort order of the user's listed methods in one
// transaction. Ids that belong to someone else are left alone.
func (r *Repository) Reorder(ctx context.Context, userID uuid.UUID, items []ReorderItem) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, it := range items {
			_, err := tx.ExecContext(ctx,
				`UPDATE payment_methods SET sort_order = $3, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
				it.ID, userID, it.SortOrder,
			)
			if err != nil {
				return fmt.Errorf("failed to reorder payment methods: %w", err)
			}
		}
		return nil
	})
}

// Delete removes a payment method
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payment_methods WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete payment method: %w", err)
	}
	return nil
}

// InUse reports whether any expense was paid with id
func (r *Repository) InUse(ctx context.Context, id uuid.UUID) (bool, error) {
	var used bool
	query := `SELECT EXISTS (SELECT 1 FROM expenses WHERE payment_method_id = $1)`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&used); err != nil {
		return false, fmt.Errorf("failed to check payment method usage: %w", err)
	}
	return used, nil
}

// UsageByUser summarizes expense usage per payment method of userID.
// Methods never used are absent from the map.
func (r *Repository) UsageByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]Usage, error) {
	query := `
		SELECT payment_method_id, COUNT(*), COALESCE(SUM(COALESCE(amount_in_base_currency, amount)), 0), MAX(date)
		FROM expenses
		WHERE user_id = $1 AND payment_method_id IS NOT NULL
		GROUP BY payment_method_id
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment method usage: %w", err)
	}
	defer rows.Close()

	usage := make(map[uuid.UUID]Usage)
	for rows.Next() {
		var (
			id    uuid.UUID
			u     Usage
			total decimal.Decimal
			last  sql.NullTime
		)
		if err := rows.Scan(&id, &u.ExpenseCount, &total, &last); err != nil {
			return nil, fmt.Errorf("failed to scan payment method usage: %w", err)
		}
		u.TotalAmount = total
		if last.Valid {
			u.LastUsed = &last.Time
		}
		usage[id] = u
	}
	return usage, rows.Err()
}
