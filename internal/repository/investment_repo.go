package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// InvestmentRepository handles all database operations for investments.
type InvestmentRepository struct {
	db *sqlx.DB
}

// NewInvestmentRepository creates a new InvestmentRepository.
func NewInvestmentRepository(db *sqlx.DB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// Create inserts a new investment inside an existing transaction.
func (r *InvestmentRepository) Create(ctx context.Context, tx *sqlx.Tx, inv *domain.Investment) error {
	query := `
		INSERT INTO investments
			(id, account_id, product_id, type, principal, current_value, interest_rate,
			 term_months, status, invested_at, maturity_date, updated_at)
		VALUES
			(:id, :account_id, :product_id, :type, :principal, :current_value, :interest_rate,
			 :term_months, :status, :invested_at, :maturity_date, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, inv); err != nil {
		return fmt.Errorf("investment_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches an investment by its primary key.
func (r *InvestmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Investment, error) {
	var inv domain.Investment
	err := r.db.GetContext(ctx, &inv, `SELECT * FROM investments WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("investment_repo.GetByID: %w", err)
	}
	return &inv, nil
}

// GetForUpdate locks an investment row inside a transaction and returns it.
// Termination paths (maturity, liquidation) lock first so a terminal status
// can never be written twice.
func (r *InvestmentRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Investment, error) {
	var inv domain.Investment
	err := tx.GetContext(ctx, &inv, `SELECT * FROM investments WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrInvestmentNotFound
		}
		return nil, fmt.Errorf("investment_repo.GetForUpdate: %w", err)
	}
	return &inv, nil
}

// GetByAccount returns all investments for an account, newest first.
func (r *InvestmentRepository) GetByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Investment, error) {
	var invs []*domain.Investment
	err := r.db.SelectContext(ctx, &invs,
		`SELECT * FROM investments WHERE account_id = $1 ORDER BY invested_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("investment_repo.GetByAccount: %w", err)
	}
	return invs, nil
}

// SumActiveValueByAccount returns the total current value of an account's
// active investments, for collateral checks.
func (r *InvestmentRepository) SumActiveValueByAccount(ctx context.Context, accountID uuid.UUID) (sql.NullFloat64, error) {
	var total sql.NullFloat64
	err := r.db.GetContext(ctx, &total,
		`SELECT SUM(current_value) FROM investments WHERE account_id = $1 AND status = 'active'`,
		accountID)
	if err != nil {
		return total, fmt.Errorf("investment_repo.SumActiveValueByAccount: %w", err)
	}
	return total, nil
}

// ListMaturedActive returns active fixed-term investments whose maturity date
// has passed, for the maturity processing pass.
func (r *InvestmentRepository) ListMaturedActive(ctx context.Context, now time.Time) ([]*domain.Investment, error) {
	var invs []*domain.Investment
	err := r.db.SelectContext(ctx, &invs, `
		SELECT * FROM investments
		WHERE status = 'active' AND maturity_date IS NOT NULL AND maturity_date <= $1
		ORDER BY maturity_date ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("investment_repo.ListMaturedActive: %w", err)
	}
	return invs, nil
}

// ListActiveMarketLinked returns active market-linked holdings for the
// revaluation pass.
func (r *InvestmentRepository) ListActiveMarketLinked(ctx context.Context) ([]*domain.Investment, error) {
	var invs []*domain.Investment
	err := r.db.SelectContext(ctx, &invs, `
		SELECT * FROM investments
		WHERE status = 'active' AND type IN ('mutual_fund', 'market_linked_insurance')
		ORDER BY invested_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("investment_repo.ListActiveMarketLinked: %w", err)
	}
	return invs, nil
}

// SetCurrentValue writes a revalued holding value.
func (r *InvestmentRepository) SetCurrentValue(ctx context.Context, id uuid.UUID, value decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE investments SET current_value = $1, updated_at = now() WHERE id = $2 AND status = 'active'`,
		value, id)
	if err != nil {
		return fmt.Errorf("investment_repo.SetCurrentValue: %w", err)
	}
	return nil
}

// Terminate writes a terminal status and final value inside a transaction.
// The WHERE clause guards terminal-state immutability: only active rows move.
func (r *InvestmentRepository) Terminate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status domain.InvestmentStatus, finalValue decimal.Decimal) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE investments
		SET status = $1, current_value = $2, updated_at = now()
		WHERE id = $3 AND status = 'active'`,
		string(status), finalValue, id)
	if err != nil {
		return fmt.Errorf("investment_repo.Terminate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrInvestmentNotActive
	}
	return nil
}
