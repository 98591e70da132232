package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Playstrata/economy-engine/internal/config"
	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/Playstrata/economy-engine/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// payoffEpsilon is the residual below which a loan counts as fully repaid.
// Rounded amortization payments leave a few hundredths behind on the last
// installment.
var payoffEpsilon = decimal.NewFromFloat(0.01)

// LoanService manages the loan book: applications, repayments and the credit
// score adjustments they earn.
type LoanService struct {
	db       *sqlx.DB
	loans    *repository.LoanRepository
	accounts *repository.AccountRepository
	cfg      *config.Config
	logger   *slog.Logger
}

// NewLoanService creates a LoanService.
func NewLoanService(
	db *sqlx.DB,
	loans *repository.LoanRepository,
	accounts *repository.AccountRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *LoanService {
	return &LoanService{
		db:       db,
		loans:    loans,
		accounts: accounts,
		cfg:      cfg,
		logger:   logger,
	}
}

// ── Results ──────────────────────────────────────────────────────────────────

// LoanApplicationResult is returned by ApplyForLoan.
type LoanApplicationResult struct {
	Status OpStatus     `json:"status"`
	Loan   *domain.Loan `json:"loan,omitempty"`
}

// LoanPaymentResult is returned by MakePayment.
type LoanPaymentResult struct {
	Status           OpStatus        `json:"status"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	PaidOff          bool            `json:"paid_off"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ApplyForLoan
// ──────────────────────────────────────────────────────────────────────────────

// ApplyForLoan evaluates an application against the account's credit state
// and, on approval, credits the principal in the same transaction that books
// the loan. Rejections (over the credit limit, loan cap reached, credit score
// too low) come back as failed results with no state change.
func (s *LoanService) ApplyForLoan(
	ctx context.Context,
	accountID uuid.UUID,
	amount decimal.Decimal,
	termMonths int,
	purpose string,
	collateral *string,
) (*LoanApplicationResult, error) {
	if !amount.IsPositive() {
		return &LoanApplicationResult{Status: fail("loan amount must be positive")}, nil
	}
	if termMonths < 1 {
		return &LoanApplicationResult{Status: fail("term must be at least one month")}, nil
	}

	loan, err := s.applyForLoan(ctx, accountID, amount, termMonths, purpose, collateral)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &LoanApplicationResult{Status: st}, nil
		}
		return nil, err
	}
	return &LoanApplicationResult{
		Status: ok(fmt.Sprintf("loan approved at %s%% annual, %s/month",
			loan.InterestRate.StringFixed(2), loan.MonthlyPayment.StringFixed(2))),
		Loan: loan,
	}, nil
}

func (s *LoanService) applyForLoan(
	ctx context.Context,
	accountID uuid.UUID,
	amount decimal.Decimal,
	termMonths int,
	purpose string,
	collateral *string,
) (*domain.Loan, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("loan_service.applyForLoan: begin tx: %w", err)
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

	loan, _, err := s.BookInTx(ctx, tx, account, account.Balance, amount, termMonths, purpose, collateral, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("loan_service.applyForLoan: commit: %w", err)
	}
	return loan, nil
}

// BookInTx books a loan and disburses its principal inside a caller-owned
// transaction, for financing flows that settle a purchase in the same unit of
// work. The caller passes its running balance and receives the post-disbursal
// balance back; the same gates as ApplyForLoan apply.
func (s *LoanService) BookInTx(
	ctx context.Context,
	tx *sqlx.Tx,
	account *domain.Account,
	balance, principal decimal.Decimal,
	termMonths int,
	purpose string,
	collateral *string,
	now time.Time,
) (*domain.Loan, decimal.Decimal, error) {
	if principal.GreaterThan(account.CreditLimit) {
		return nil, balance, domain.ErrOverCreditLimit
	}
	if account.CreditScore < s.cfg.Economy.MinLoanCreditScore {
		return nil, balance, domain.ErrCreditScoreTooLow
	}
	active, err := s.loans.CountActiveByAccount(ctx, account.ID)
	if err != nil {
		return nil, balance, err
	}
	if active >= s.cfg.Economy.MaxActiveLoans {
		return nil, balance, domain.ErrLoanCapReached
	}

	rate := account.InterestRate.Add(
		domain.LoanRiskAdjustment(purpose, account.CreditScore, collateral != nil))
	loan := &domain.Loan{
		ID:               uuid.New(),
		AccountID:        account.ID,
		Principal:        principal,
		InterestRate:     rate,
		TermMonths:       termMonths,
		MonthlyPayment:   domain.MonthlyLoanPayment(principal, rate, termMonths),
		RemainingBalance: principal,
		Status:           domain.LoanActive,
		Purpose:          purpose,
		Collateral:       collateral,
		NextPaymentDue:   now.AddDate(0, 1, 0),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.loans.Create(ctx, tx, loan); err != nil {
		return nil, balance, err
	}

	newBalance := balance.Add(principal)
	if err := s.accounts.SetBalance(ctx, tx, account.ID, newBalance); err != nil {
		return nil, balance, err
	}
	loanID := loan.ID
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Type:         domain.TxLoan,
		Amount:       principal,
		BalanceAfter: newBalance,
		Description:  fmt.Sprintf("Financing for %s", purpose),
		RefID:        &loanID,
		CreatedAt:    now,
	}
	if err := s.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return nil, balance, err
	}
	return loan, newBalance, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// MakePayment
// ──────────────────────────────────────────────────────────────────────────────

// MakePayment debits the owning account and splits the payment between one
// month of interest on the remaining balance and principal reduction. A
// payoff raises the credit score by 25, a partial payment by 2.
func (s *LoanService) MakePayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (*LoanPaymentResult, error) {
	if !amount.IsPositive() {
		return &LoanPaymentResult{Status: fail("payment amount must be positive")}, nil
	}

	payment, paidOff, err := s.makePayment(ctx, loanID, amount)
	if err != nil {
		if st, isBiz := failIfBusiness(err); isBiz {
			return &LoanPaymentResult{Status: st}, nil
		}
		return nil, err
	}

	msg := "payment recorded"
	if paidOff {
		msg = "loan fully repaid"
	}
	return &LoanPaymentResult{
		Status:           ok(msg),
		InterestPortion:  payment.InterestPortion,
		PrincipalPortion: payment.PrincipalPortion,
		RemainingBalance: payment.BalanceAfter,
		PaidOff:          paidOff,
	}, nil
}

func (s *LoanService) makePayment(ctx context.Context, loanID uuid.UUID, amount decimal.Decimal) (payment *domain.LoanPayment, paidOff bool, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("loan_service.makePayment: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	loan, err := s.loans.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, false, err
	}
	if !loan.IsActive() {
		err = domain.ErrLoanNotActive
		return nil, false, err
	}

	account, err := s.accounts.GetForUpdate(ctx, tx, loan.AccountID)
	if err != nil {
		return nil, false, err
	}
	if !account.IsActive() {
		err = domain.ErrAccountNotActive
		return nil, false, err
	}
	if account.Balance.LessThan(amount) {
		err = domain.ErrInsufficientBalance
		return nil, false, err
	}

	interest, principal := loan.SplitPayment(amount)
	remaining := loan.RemainingBalance.Sub(principal)
	if remaining.LessThanOrEqual(payoffEpsilon) {
		remaining = decimal.Zero
	}

	status := domain.LoanActive
	scoreBonus := domain.CreditScorePaymentBonus
	if remaining.IsZero() {
		status = domain.LoanPaidOff
		scoreBonus = domain.CreditScorePayoffBonus
		paidOff = true
	}

	now := time.Now().UTC()
	nextDue := loan.NextPaymentDue.AddDate(0, 1, 0)
	if err = s.loans.UpdateOnPayment(ctx, tx, loanID, remaining, status, nextDue); err != nil {
		return nil, false, err
	}

	payment = &domain.LoanPayment{
		ID:               uuid.New(),
		LoanID:           loanID,
		Amount:           amount,
		InterestPortion:  interest,
		PrincipalPortion: principal,
		BalanceAfter:     remaining,
		PaidAt:           now,
	}
	if err = s.loans.LogPayment(ctx, tx, payment); err != nil {
		return nil, false, err
	}

	newBalance := account.Balance.Sub(amount)
	if err = s.accounts.SetBalance(ctx, tx, account.ID, newBalance); err != nil {
		return nil, false, err
	}
	txn := &domain.Transaction{
		ID:           uuid.New(),
		AccountID:    account.ID,
		Type:         domain.TxLoanPayment,
		Amount:       amount.Neg(),
		BalanceAfter: newBalance,
		Description:  "Loan payment",
		RefID:        &loanID,
		CreatedAt:    now,
	}
	if err = s.accounts.LogTransaction(ctx, tx, txn); err != nil {
		return nil, false, err
	}

	newScore := domain.ClampCreditScore(account.CreditScore + scoreBonus)
	if err = s.accounts.SetCreditScore(ctx, tx, account.ID, newScore); err != nil {
		return nil, false, err
	}

	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("loan_service.makePayment: commit: %w", err)
	}
	return payment, paidOff, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// GetLoans returns every loan booked against an account.
func (s *LoanService) GetLoans(ctx context.Context, accountID uuid.UUID) ([]*domain.Loan, error) {
	loans, err := s.loans.GetByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loan_service.GetLoans: %w", err)
	}
	return loans, nil
}

// GetPaymentHistory returns a loan's repayments, newest first.
func (s *LoanService) GetPaymentHistory(ctx context.Context, loanID uuid.UUID) ([]*domain.LoanPayment, error) {
	payments, err := s.loans.GetPayments(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("loan_service.GetPaymentHistory: %w", err)
	}
	return payments, nil
}
