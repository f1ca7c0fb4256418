package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fkhayef/finance/internal/database"
)

// Repository handles settlement data persistence
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new settlement repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const settlementColumns = `id, payer_id, receiver_id, amount, currency, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSettlement(row scanner) (*Settlement, error) {
	s := &Settlement{}
	err := row.Scan(&s.ID, &s.PayerID, &s.ReceiverID, &s.Amount, &s.Currency, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a pending settlement and locks shareIDs to it in one
// transaction. If any share was settled or locked meanwhile, nothing is
// written and ErrSharesChanged is returned.
func (r *Repository) Create(ctx context.Context, s *Settlement, shareIDs []uuid.UUID) (*Settlement, error) {
	var created *Settlement
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			INSERT INTO settlements (payer_id, receiver_id, amount, currency, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + settlementColumns

		var err error
		created, err = scanSettlement(tx.QueryRowContext(ctx, query, s.PayerID, s.ReceiverID, s.Amount, s.Currency, StatusPending))
		if err != nil {
			return fmt.Errorf("failed to create settlement: %w", err)
		}

		ids := make([]string, len(shareIDs))
		for i, id := range shareIDs {
			ids[i] = id.String()
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE expense_shares SET settlement_id = $2
			WHERE id = ANY($1::uuid[]) AND settlement_id IS NULL AND NOT is_settled
		`, pq.Array(ids), created.ID)
		if err != nil {
			return fmt.Errorf("failed to lock shares: %w", err)
		}
		if n, _ := res.RowsAffected(); int(n) != len(shareIDs) {
			return ErrSharesChanged
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetByID retrieves a settlement by its ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Settlement, error) {
	s, err := scanSettlement(r.db.QueryRowContext(ctx, `SELECT `+settlementColumns+` FROM settlements WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return s, nil
}

// ListByUser retrieves settlements where the user is payer or receiver
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Settlement, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM settlements WHERE payer_id = $1 OR receiver_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count settlements: %w", err)
	}

	query := `
		SELECT ` + settlementColumns + `
		FROM settlements
		WHERE payer_id = $1 OR receiver_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*Settlement
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan settlement: %w", err)
		}
		settlements = append(settlements, s)
	}
	return settlements, total, rows.Err()
}

// Resolve moves a pending settlement to status and applies it to the locked
// shares: confirmed settles them, rejected releases them.
func (r *Repository) Resolve(ctx context.Context, id uuid.UUID, status Status) (*Settlement, error) {
	var resolved *Settlement
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE settlements SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3
			RETURNING ` + settlementColumns

		var err error
		resolved, err = scanSettlement(tx.QueryRowContext(ctx, query, id, status, StatusPending))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrInvalidStatusChange
			}
			return fmt.Errorf("failed to update settlement status: %w", err)
		}

		sharesQuery := `UPDATE expense_shares SET settlement_id = NULL WHERE settlement_id = $1`
		if status == StatusConfirmed {
			sharesQuery = `UPDATE expense_shares SET is_settled = TRUE, settled_at = NOW() WHERE settlement_id = $1`
		}
		if _, err := tx.ExecContext(ctx, sharesQuery, id); err != nil {
			return fmt.Errorf("failed to update settled shares: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// NetBalances calculates the user's unsettled balance with every other user,
// per currency. Positive means the user owes them.
func (r *Repository) NetBalances(ctx context.Context, userID uuid.UUID) ([]*NetBalance, error) {
	query := `
		WITH
		user_owes AS (
			SELECT e.user_id AS other_user_id, s.currency, SUM(s.share_amount) AS amount
			FROM expense_shares s
			JOIN expenses e ON s.expense_id = e.id
			WHERE s.user_id = $1 AND e.user_id <> $1
			  AND NOT s.is_settled AND s.settlement_id IS NULL
			GROUP BY e.user_id, s.currency
		),
		others_owe AS (
			SELECT s.user_id AS other_user_id, s.currency, SUM(s.share_amount) AS amount
			FROM expense_shares s
			JOIN expenses e ON s.expense_id = e.id
			WHERE e.user_id = $1 AND s.user_id <> $1
			  AND NOT s.is_settled AND s.settlement_id IS NULL
			GROUP BY s.user_id, s.currency
		)
		SELECT
			COALESCE(uo.other_user_id, oo.other_user_id),
			COALESCE(uo.currency, oo.currency),
			COALESCE(uo.amount, 0) - COALESCE(oo.amount, 0) AS net_amount
		FROM user_owes uo
		FULL OUTER JOIN others_owe oo
			ON uo.other_user_id = oo.other_user_id AND uo.currency = oo.currency
		WHERE COALESCE(uo.amount, 0) - COALESCE(oo.amount, 0) <> 0
		ORDER BY ABS(COALESCE(uo.amount, 0) - COALESCE(oo.amount, 0)) DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get net balances: %w", err)
	}
	defer rows.Close()

	var balances []*NetBalance
	for rows.Next() {
		b := &NetBalance{}
		if err := rows.Scan(&b.OtherUserID, &b.Currency, &b.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan net balance: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
