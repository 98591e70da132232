// Package repository contains the sqlx-backed persistence layer. Every repo
// is a thin struct over *sqlx.DB; multi-step mutations run inside a caller
// supplied *sqlx.Tx so services control transaction boundaries.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// AccountRepository handles all database operations for ledger accounts and
// their append-only transaction log.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new ledger account.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO ledger_accounts
			(id, character_id, balance, credit_score, credit_limit, interest_rate, status, created_at, updated_at)
		VALUES
			(:id, :character_id, :balance, :credit_score, :credit_limit, :interest_rate, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, a); err != nil {
		return fmt.Errorf("account_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches an account by its primary key.
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := r.db.GetContext(ctx, &a, `SELECT * FROM ledger_accounts WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("account_repo.GetByID: %w", err)
	}
	return &a, nil
}

// GetByCharacterID fetches the account belonging to a character.
func (r *AccountRepository) GetByCharacterID(ctx context.Context, characterID uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := r.db.GetContext(ctx, &a, `SELECT * FROM ledger_accounts WHERE character_id = $1`, characterID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("account_repo.GetByCharacterID: %w", err)
	}
	return &a, nil
}

// GetForUpdate locks an account row inside a transaction and returns it.
// Every read-modify-write on a balance must go through this lock so two
// concurrent requests against the same account cannot interleave.
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := tx.GetContext(ctx, &a, `SELECT * FROM ledger_accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("account_repo.GetForUpdate: %w", err)
	}
	return &a, nil
}

// SetBalance writes a new balance for a locked account row inside a transaction.
func (r *AccountRepository) SetBalance(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE ledger_accounts SET balance = $1, updated_at = now() WHERE id = $2`,
		balance, id)
	if err != nil {
		return fmt.Errorf("account_repo.SetBalance: %w", err)
	}
	return nil
}

// SetCreditScore updates the credit score inside a transaction.
func (r *AccountRepository) SetCreditScore(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, score int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE ledger_accounts SET credit_score = $1, updated_at = now() WHERE id = $2`,
		score, id)
	if err != nil {
		return fmt.Errorf("account_repo.SetCreditScore: %w", err)
	}
	return nil
}

// SetStatus transitions the account lifecycle state. Closed accounts stay
// closed; the WHERE clause refuses to resurrect them.
func (r *AccountRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.AccountStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE ledger_accounts SET status = $1, updated_at = now() WHERE id = $2 AND status != 'closed'`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("account_repo.SetStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// ListActiveWithBalance returns every active account with a positive balance,
// for the daily interest pass.
func (r *AccountRepository) ListActiveWithBalance(ctx context.Context) ([]*domain.Account, error) {
	var accounts []*domain.Account
	err := r.db.SelectContext(ctx, &accounts,
		`SELECT * FROM ledger_accounts WHERE status = 'active' AND balance > 0 ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("account_repo.ListActiveWithBalance: %w", err)
	}
	return accounts, nil
}

// LogTransaction appends an immutable ledger entry inside a transaction.
func (r *AccountRepository) LogTransaction(ctx context.Context, tx *sqlx.Tx, txn *domain.Transaction) error {
	query := `
		INSERT INTO account_transactions
			(id, account_id, type, amount, balance_after, description, ref_id, created_at)
		VALUES
			(:id, :account_id, :type, :amount, :balance_after, :description, :ref_id, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, txn); err != nil {
		return fmt.Errorf("account_repo.LogTransaction: %w", err)
	}
	return nil
}

// GetTransactions returns an account's ledger entries, newest first, paginated.
func (r *AccountRepository) GetTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	err := r.db.SelectContext(ctx, &txns, `
		SELECT * FROM account_transactions
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("account_repo.GetTransactions: %w", err)
	}
	return txns, nil
}

// GetAllTransactionsAsc returns the full ledger for an account in creation
// order, for replay verification.
func (r *AccountRepository) GetAllTransactionsAsc(ctx context.Context, accountID uuid.UUID) ([]*domain.Transaction, error) {
	var txns []*domain.Transaction
	err := r.db.SelectContext(ctx, &txns,
		`SELECT * FROM account_transactions WHERE account_id = $1 ORDER BY created_at ASC, id ASC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("account_repo.GetAllTransactionsAsc: %w", err)
	}
	return txns, nil
}
