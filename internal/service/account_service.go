package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/Playstrata/economy-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// CharacterStore is the read-only interface to the character system.
// Implemented by repository.CharacterRepository; declared here so services do
// not depend on where character data actually lives.
type CharacterStore interface {
	GetSnapshot(ctx context.Context, characterID uuid.UUID) (*domain.CharacterSnapshot, error)
}

// ──────────────────────────────────────────────────────────────────────────────
// AccountService
// ──────────────────────────────────────────────────────────────────────────────

// AccountService manages ledger accounts: opening, deposits, withdrawals and
// the daily interest pass. Every balance change is an atomic pair of balance
// write + appended Transaction whose BalanceAfter matches the new balance.
type AccountService struct {
	db         *sqlx.DB
	accounts   *repository.AccountRepository
	characters CharacterStore
	logger     *slog.Logger
}

// NewAccountService creates an AccountService.
func NewAccountService(
	db *sqlx.DB,
	accounts *repository.AccountRepository,
	characters CharacterStore,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		db:         db,
		accounts:   accounts,
		characters: characters,
		logger:     logger,
	}
}

// ── Results ──────────────────────────────────────────────────────────────────

// OpenAccountResult is returned by OpenAccount.
type OpenAccountResult struct {
	Status  OpStatus        `json:"status"`
	Account *domain.Account `json:"account,omitempty"`
}

// MoneyResult is returned by Deposit and Withdraw.
type MoneyResult struct {
	Status        OpStatus        `json:"status"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	TransactionID uuid.UUID       `json:"transaction_id"`
}

// ──────────────────────────────────────────────────────────────────────────────
// OpenAccount
// ──────────────────────────────────────────────────────────────────────────────

// OpenAccount creates a character's ledger account on first economic
// interaction. The opening credit score is seeded from the character's
// level, class, gold and luck; the tier sets credit limit and savings rate.
func (s *AccountService) OpenAccount(ctx context.Context, characterID uuid.UUID, tier domain.AccountTier) (*OpenAccountResult, error) {
	account, err := s.openAccount(ctx, characterID, tier)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &OpenAccountResult{Status: st}, nil
		}
		return nil, err
	}
	return &OpenAccountResult{
		Status:  ok(fmt.Sprintf("account opened with credit score %d", account.CreditScore)),
		Account: account,
	}, nil
}

func (s *AccountService) openAccount(ctx context.Context, characterID uuid.UUID, tier domain.AccountTier) (*domain.Account, error) {
	// One account per character, ever.
	if _, err := s.accounts.GetByCharacterID(ctx, characterID); err == nil {
		return nil, domain.ErrAccountExists
	} else if !domain.IsNotFound(err) {
		return nil, fmt.Errorf("account_service.openAccount: lookup: %w", err)
	}

	snapshot, err := s.characters.GetSnapshot(ctx, characterID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("account_service.openAccount: character: %w", err)
	}

	terms := domain.TermsForTier(tier)
	now := time.Now().UTC()
	account := &domain.Account{
		ID:           uuid.New(),
		CharacterID:  characterID,
		Balance:      decimal.Zero,
		CreditScore:  domain.SeedCreditScore(*snapshot),
		CreditLimit:  terms.CreditLimit,
		InterestRate: terms.InterestRate,
		Status:       domain.AccountActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err = s.accounts.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("account_service.openAccount: create: %w", err)
	}
	return account, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Deposit / Withdraw
// ──────────────────────────────────────────────────────────────────────────────

// Deposit credits amount to an active account.
func (s *AccountService) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*MoneyResult, error) {
	if !amount.IsPositive() {
		return &MoneyResult{Status: fail("amount must be positive")}, nil
	}
	txn, err := s.move(ctx, accountID, amount, domain.TxDeposit, "Deposit")
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &MoneyResult{Status: st}, nil
		}
		return nil, err
	}
	return &MoneyResult{
		Status:        ok("deposit completed"),
		NewBalance:    txn.BalanceAfter,
		TransactionID: txn.ID,
	}, nil
}

// Withdraw debits amount from an active account with sufficient balance.
func (s *AccountService) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*MoneyResult, error) {
	if !amount.IsPositive() {
		return &MoneyResult{Status: fail("amount must be positive")}, nil
	}
	txn, err := s.move(ctx, accountID, amount.Neg(), domain.TxWithdrawal, "Withdrawal")
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &MoneyResult{Status: st}, nil
		}
		return nil, err
	}
	return &MoneyResult{
		Status:        ok("withdrawal completed"),
		NewBalance:    txn.BalanceAfter,
		TransactionID: txn.ID,
	}, nil
}

// move applies one signed balance change atomically: lock account row, check
// status and funds, write balance, append ledger entry. The returned
// Transaction carries the committed BalanceAfter.
func (s *AccountService) move(ctx context.Context, accountID uuid.UUID, signed decimal.Decimal, txType domain.TxType, description string) (*domain.Transaction, error) {
	if !signed.Abs().IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("account_service.move: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		err = domain.ErrAccountNotActive
		return nil, err
	}

	newBalance := account.Balance.Add(signed)
	if newBalance.IsNegative() {
		err = domain.ErrInsufficientBalance
		return nil, err
	}

	if err = s.accounts.SetBalance(ctx, tx, accountID, newBalance); err != nil {
		return nil, err
	}

	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         txType,
		Amount:       signed,
		BalanceAfter: newBalance,
		Description:  description,
		CreatedAt:    time.Now().UTC(),
	}
	if err = s.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("account_service.move: commit: %w", err)
	}
	return txn, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// AccrueDailyInterest — called by the daily maintenance cycle
// ──────────────────────────────────────────────────────────────────────────────

// AccrueDailyInterest credits one day of savings interest to every active
// account with a positive balance. Interest below 0.01 is skipped, which also
// makes a repeated pass over a zero-balance account a no-op. A single failing
// account does NOT abort the others.
func (s *AccountService) AccrueDailyInterest(ctx context.Context) error {
	accounts, err := s.accounts.ListActiveWithBalance(ctx)
	if err != nil {
		return fmt.Errorf("account_service.AccrueDailyInterest: fetch: %w", err)
	}

	credited := 0
	for _, account := range accounts {
		if err := s.accrueOne(ctx, account.ID); err != nil {
			s.logger.Error("daily interest failed for account",
				"account_id", account.ID, "err", err)
			continue
		}
		credited++
	}
	s.logger.Info("daily interest pass complete", "accounts", len(accounts), "credited", credited)
	return nil
}

// accrueOne credits one account's daily interest inside its own transaction.
func (s *AccountService) accrueOne(ctx context.Context, accountID uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("account_service.accrueOne: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	account, err := s.accounts.GetForUpdate(ctx, tx, accountID)
	if err != nil {
		return err
	}
	earned := account.DailyInterest()
	if earned.IsZero() {
		// Below the crediting threshold; commit nothing.
		return tx.Rollback()
	}

	newBalance := account.Balance.Add(earned)
	if err = s.accounts.SetBalance(ctx, tx, accountID, newBalance); err != nil {
		return err
	}

	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    accountID,
		Type:         domain.TxInterest,
		Amount:       earned,
		BalanceAfter: newBalance,
		Description:  fmt.Sprintf("Daily interest at %s%% annual", account.InterestRate.StringFixed(2)),
		CreatedAt:    time.Now().UTC(),
	}
	if err = s.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("account_service.accrueOne: commit: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query & lifecycle helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetAccount returns a character's ledger account.
func (s *AccountService) GetAccount(ctx context.Context, characterID uuid.UUID) (*domain.Account, error) {
	account, err := s.accounts.GetByCharacterID(ctx, characterID)
	if err != nil {
		return nil, fmt.Errorf("account_service.GetAccount: %w", err)
	}
	return account, nil
}

// GetStatement returns an account's ledger entries, newest first.
func (s *AccountService) GetStatement(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Transaction, error) {
	txns, err := s.accounts.GetTransactions(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("account_service.GetStatement: %w", err)
	}
	return txns, nil
}

// Suspend freezes an account (ops action). No movements until reactivated.
func (s *AccountService) Suspend(ctx context.Context, accountID uuid.UUID) error {
	return s.accounts.SetStatus(ctx, accountID, domain.AccountSuspended)
}

// Reactivate lifts a suspension.
func (s *AccountService) Reactivate(ctx context.Context, accountID uuid.UUID) error {
	return s.accounts.SetStatus(ctx, accountID, domain.AccountActive)
}

// Close transitions an account to its terminal state. Accounts are never
// physically deleted.
func (s *AccountService) Close(ctx context.Context, accountID uuid.UUID) error {
	return s.accounts.SetStatus(ctx, accountID, domain.AccountClosed)
}
