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

// LoanRepository handles all database operations for loans and loan payments.
type LoanRepository struct {
	db *sqlx.DB
}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository(db *sqlx.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// Create inserts a new loan inside an existing transaction.
func (r *LoanRepository) Create(ctx context.Context, tx *sqlx.Tx, l *domain.Loan) error {
	query := `
		INSERT INTO loans
			(id, account_id, principal, interest_rate, term_months, monthly_payment,
			 remaining_balance, status, purpose, collateral, next_payment_due, created_at, updated_at)
		VALUES
			(:id, :account_id, :principal, :interest_rate, :term_months, :monthly_payment,
			 :remaining_balance, :status, :purpose, :collateral, :next_payment_due, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, l); err != nil {
		return fmt.Errorf("loan_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a loan by its primary key.
func (r *LoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	var l domain.Loan
	err := r.db.GetContext(ctx, &l, `SELECT * FROM loans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("loan_repo.GetByID: %w", err)
	}
	return &l, nil
}

// GetForUpdate locks a loan row inside a transaction and returns it.
func (r *LoanRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Loan, error) {
	var l domain.Loan
	err := tx.GetContext(ctx, &l, `SELECT * FROM loans WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("loan_repo.GetForUpdate: %w", err)
	}
	return &l, nil
}

// GetByAccount returns all loans for an account, newest first.
func (r *LoanRepository) GetByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	err := r.db.SelectContext(ctx, &loans,
		`SELECT * FROM loans WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("loan_repo.GetByAccount: %w", err)
	}
	return loans, nil
}

// CountActiveByAccount returns the number of active loans held by an account.
func (r *LoanRepository) CountActiveByAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM loans WHERE account_id = $1 AND status = 'active'`, accountID)
	if err != nil {
		return 0, fmt.Errorf("loan_repo.CountActiveByAccount: %w", err)
	}
	return count, nil
}

// UpdateOnPayment writes the post-payment remaining balance, status and next
// due date inside a transaction.
func (r *LoanRepository) UpdateOnPayment(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, remaining decimal.Decimal, status domain.LoanStatus, nextDue time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE loans
		SET remaining_balance = $1,
		    status            = $2,
		    next_payment_due  = $3,
		    updated_at        = now()
		WHERE id = $4`,
		remaining, string(status), nextDue, id)
	if err != nil {
		return fmt.Errorf("loan_repo.UpdateOnPayment: %w", err)
	}
	return nil
}

// LogPayment inserts a loan payment record inside a transaction.
func (r *LoanRepository) LogPayment(ctx context.Context, tx *sqlx.Tx, p *domain.LoanPayment) error {
	query := `
		INSERT INTO loan_payments
			(id, loan_id, amount, interest_portion, principal_portion, balance_after, paid_at)
		VALUES
			(:id, :loan_id, :amount, :interest_portion, :principal_portion, :balance_after, :paid_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("loan_repo.LogPayment: %w", err)
	}
	return nil
}

// GetPayments returns a loan's payment history in payment order.
func (r *LoanRepository) GetPayments(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	var payments []*domain.LoanPayment
	err := r.db.SelectContext(ctx, &payments,
		`SELECT * FROM loan_payments WHERE loan_id = $1 ORDER BY paid_at ASC`, loanID)
	if err != nil {
		return nil, fmt.Errorf("loan_repo.GetPayments: %w", err)
	}
	return payments, nil
}
