package expense

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/fkhayef/finance/internal/database"
)

// Repository handles expense and share data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new expense repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const expenseColumns = `id, user_id, amount, currency, amount_in_base_currency, base_currency, exchange_rate,
	date, description, category_id, subcategory_id, payment_method_id, is_shared, created_at, updated_at`

const shareColumns = `id, expense_id, user_id, share_type, share_percentage, share_amount,
	custom_amount, currency, is_settled, settled_at, settlement_id, created_at`

func scanExpense(row scanner) (*Expense, error) {
	e := &Expense{}
	err := row.Scan(
		&e.ID, &e.UserID, &e.Amount, &e.Currency, &e.AmountInBaseCurrency, &e.BaseCurrency, &e.ExchangeRate,
		&e.Date, &e.Description, &e.CategoryID, &e.SubcategoryID, &e.PaymentMethodID, &e.IsShared, &e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

func scanShare(row scanner) (*Share, error) {
	s := &Share{}
	err := row.Scan(
		&s.ID, &s.ExpenseID, &s.UserID, &s.ShareType, &s.SharePercentage, &s.ShareAmount,
		&s.CustomAmount, &s.Currency, &s.IsSettled, &s.SettledAt, &s.SettlementID, &s.CreatedAt,
	)
	return s, err
}

func queryShares(ctx context.Context, q queryer, query string, args ...any) ([]*Share, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shares: %w", err)
	}
	defer rows.Close()

	var shares []*Share
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

func insertShares(ctx context.Context, tx *sql.Tx, expenseID uuid.UUID, shares []*Share) ([]*Share, error) {
	query := `
		INSERT INTO expense_shares (expense_id, user_id, share_type, share_percentage, share_amount, custom_amount, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + shareColumns

	out := make([]*Share, len(shares))
	for i, s := range shares {
		created, err := scanShare(tx.QueryRowContext(ctx, query,
			expenseID, s.UserID, s.ShareType, s.SharePercentage, s.ShareAmount, s.CustomAmount, s.Currency,
		))
		if err != nil {
			return nil, fmt.Errorf("failed to create share: %w", err)
		}
		out[i] = created
	}
	return out, nil
}

// Create inserts an expense and its shares in one transaction
func (r *Repository) Create(ctx context.Context, e *Expense) (*Expense, error) {
	var created *Expense
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO expenses (user_id, amount, currency, amount_in_base_currency, base_currency, exchange_rate,
				date, description, category_id, subcategory_id, payment_method_id, is_shared)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING ` + expenseColumns

		var err error
		created, err = scanExpense(tx.QueryRowContext(ctx, query,
			e.UserID, e.Amount, e.Currency, e.AmountInBaseCurrency, e.BaseCurrency, e.ExchangeRate,
			e.Date, e.Description, e.CategoryID, e.SubcategoryID, e.PaymentMethodID, e.IsShared,
		))
		if err != nil {
			return fmt.Errorf("failed to create expense: %w", err)
		}

		created.Shares, err = insertShares(ctx, tx, created.ID, e.Shares)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves an expense with its shares
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses WHERE id = $1`

	e, err := scanExpense(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	e.Shares, err = queryShares(ctx, r.db, `SELECT `+shareColumns+` FROM expense_shares WHERE expense_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List retrieves a user's expenses, newest first, with the total count
// matching the filter
func (r *Repository) List(ctx context.Context, userID uuid.UUID, f ListFilter) ([]*Expense, int, error) {
	conds := []string{"user_id = $1"}
	args := []any{userID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("date >= $%d", *f.From)
	}
	if f.To != nil {
		add("date <= $%d", *f.To)
	}
	if f.CategoryID != nil {
		add("(category_id = $%[1]d OR subcategory_id = $%[1]d)", *f.CategoryID)
	}
	if f.SharedOnly {
		conds = append(conds, "is_shared")
	}
	where := strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count expenses: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM expenses
		WHERE %s
		ORDER BY date DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, expenseColumns, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, total, rows.Err()
}

// Update writes the expense row. When replaceShares is set the existing
// shares are deleted and e.Shares inserted in the same transaction.
func (r *Repository) Update(ctx context.Context, e *Expense, replaceShares bool) (*Expense, error) {
	var updated *Expense
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE expenses
			SET amount = $2, currency = $3, amount_in_base_currency = $4, base_currency = $5, exchange_rate = $6,
			    date = $7, description = $8, category_id = $9, subcategory_id = $10, payment_method_id = $11, is_shared = $12,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING ` + expenseColumns

		var err error
		updated, err = scanExpense(tx.QueryRowContext(ctx, query,
			e.ID, e.Amount, e.Currency, e.AmountInBaseCurrency, e.BaseCurrency, e.ExchangeRate,
			e.Date, e.Description, e.CategoryID, e.SubcategoryID, e.PaymentMethodID, e.IsShared,
		))
		if err != nil {
			return fmt.Errorf("failed to update expense: %w", err)
		}

		if !replaceShares {
			updated.Shares, err = queryShares(ctx, tx, `SELECT `+shareColumns+` FROM expense_shares WHERE expense_id = $1 ORDER BY created_at, id`, e.ID)
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM expense_shares WHERE expense_id = $1`, e.ID); err != nil {
			return fmt.Errorf("failed to delete shares: %w", err)
		}
		updated.Shares, err = insertShares(ctx, tx, e.ID, e.Shares)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an expense; its shares go with it
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}

// GetShareByID retrieves a share by its ID
func (r *Repository) GetShareByID(ctx context.Context, id uuid.UUID) (*Share, error) {
	s, err := scanShare(r.db.QueryRowContext(ctx, `SELECT `+shareColumns+` FROM expense_shares WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return s, nil
}

// SettleShare marks a single share settled
func (r *Repository) SettleShare(ctx context.Context, id uuid.UUID) (*Share, error) {
	query := `
		UPDATE expense_shares SET is_settled = TRUE, settled_at = NOW()
		WHERE id = $1
		RETURNING ` + shareColumns

	s, err := scanShare(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to settle share: %w", err)
	}
	return s, nil
}

// ListSharesOwedBy retrieves the shares userID holds on other users' expenses
func (r *Repository) ListSharesOwedBy(ctx context.Context, userID uuid.UUID, unsettledOnly bool) ([]*Share, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, s.share_type, s.share_percentage, s.share_amount,
		       s.custom_amount, s.currency, s.is_settled, s.settled_at, s.settlement_id, s.created_at
		FROM expense_shares s
		JOIN expenses e ON e.id = s.expense_id
		WHERE s.user_id = $1 AND e.user_id <> $1 AND ($2 = FALSE OR NOT s.is_settled)
		ORDER BY s.created_at DESC
	`
	return queryShares(ctx, r.db, query, userID, unsettledOnly)
}

// PendingSharesBetween retrieves unsettled, unlocked shares debtorID holds
// on creditorID's expenses in one currency
func (r *Repository) PendingSharesBetween(ctx context.Context, debtorID, creditorID uuid.UUID, currency string) ([]*Share, error) {
	query := `
		SELECT s.id, s.expense_id, s.user_id, s.share_type, s.share_percentage, s.share_amount,
		       s.custom_amount, s.currency, s.is_settled, s.settled_at, s.settlement_id, s.created_at
		FROM expense_shares s
		JOIN expenses e ON e.id = s.expense_id
		WHERE s.user_id = $1
		  AND e.user_id = $2
		  AND s.currency = $3
		  AND NOT s.is_settled
		  AND s.settlement_id IS NULL
		ORDER BY s.created_at
	`
	return queryShares(ctx, r.db, query, debtorID, creditorID, currency)
}
