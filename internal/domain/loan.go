package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// LoanStatus represents the lifecycle state of a loan.
type LoanStatus string

const (
	LoanActive    LoanStatus = "active"
	LoanPaidOff   LoanStatus = "paid_off"
	LoanOverdue   LoanStatus = "overdue"   // reserved; no automatic transition yet
	LoanDefaulted LoanStatus = "defaulted" // reserved
)

// MaxActiveLoans caps how many loans an account may run concurrently.
const MaxActiveLoans = 3

// MinLoanCreditScore is the score floor below which applications are rejected.
const MinLoanCreditScore = 400

// Credit score adjustments applied by the loan book.
const (
	CreditScorePayoffBonus  = 25 // full payoff
	CreditScorePaymentBonus = 2  // partial scheduled payment
)

// purposeRisk maps a loan purpose to its base risk adjustment in percentage
// points (0–5). Unknown purposes take the "other" bucket.
var purposeRisk = map[string]int64{
	"business":  0,
	"property":  1,
	"equipment": 2,
	"training":  3,
	"adventure": 4,
	"other":     5,
}

// ──────────────────────────────────────────────────────────────────────────────
// Loan
// ──────────────────────────────────────────────────────────────────────────────

// Loan is a fixed-term amortizing loan owned by one account.
type Loan struct {
	ID               uuid.UUID       `json:"id"                 db:"id"`
	AccountID        uuid.UUID       `json:"account_id"         db:"account_id"`
	Principal        decimal.Decimal `json:"principal"          db:"principal"`
	InterestRate     decimal.Decimal `json:"interest_rate"      db:"interest_rate"` // annual, percent
	TermMonths       int             `json:"term_months"        db:"term_months"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment"    db:"monthly_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"  db:"remaining_balance"`
	Status           LoanStatus      `json:"status"             db:"status"`
	Purpose          string          `json:"purpose"            db:"purpose"`
	Collateral       *string         `json:"collateral"         db:"collateral"`
	NextPaymentDue   time.Time       `json:"next_payment_due"   db:"next_payment_due"`
	CreatedAt        time.Time       `json:"created_at"         db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"         db:"updated_at"`
}

// IsActive returns true while the loan still accrues and accepts payments.
func (l *Loan) IsActive() bool {
	return l.Status == LoanActive
}

// MonthlyRate returns the per-month interest rate as a decimal fraction
// (annual% / 1200).
func (l *Loan) MonthlyRate() decimal.Decimal {
	return l.InterestRate.Div(decimal.NewFromInt(1200))
}

// LoanPayment records a single repayment split into interest and principal.
type LoanPayment struct {
	ID               uuid.UUID       `json:"id"                db:"id"`
	LoanID           uuid.UUID       `json:"loan_id"           db:"loan_id"`
	Amount           decimal.Decimal `json:"amount"            db:"amount"`
	InterestPortion  decimal.Decimal `json:"interest_portion"  db:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion" db:"principal_portion"`
	BalanceAfter     decimal.Decimal `json:"balance_after"     db:"balance_after"`
	PaidAt           time.Time       `json:"paid_at"           db:"paid_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Loan arithmetic
// ──────────────────────────────────────────────────────────────────────────────

// MonthlyLoanPayment computes the standard amortization payment
//
//	P·r·(1+r)^n / ((1+r)^n − 1)
//
// with r = annualRate% / 1200. A zero rate degrades to simple division P/n.
// The result is rounded to 2 decimal places.
func MonthlyLoanPayment(principal, annualRate decimal.Decimal, termMonths int) decimal.Decimal {
	n := decimal.NewFromInt(int64(termMonths))
	r := annualRate.Div(decimal.NewFromInt(1200))
	if r.IsZero() {
		return principal.Div(n).Round(2)
	}
	one := decimal.NewFromInt(1)
	growth := one.Add(r).Pow(n) // (1+r)^n
	payment := principal.Mul(r).Mul(growth).Div(growth.Sub(one))
	return payment.Round(2)
}

// LoanRiskAdjustment returns the rate adjustment in percentage points for a
// loan application:
//
//	purpose risk (0–5) + credit tier penalty (+3 below 500, +1 below 600)
//	− 2 when collateral is pledged, floored at 0.
func LoanRiskAdjustment(purpose string, creditScore int, hasCollateral bool) decimal.Decimal {
	risk, ok := purposeRisk[purpose]
	if !ok {
		risk = purposeRisk["other"]
	}
	adj := decimal.NewFromInt(risk)

	switch {
	case creditScore < 500:
		adj = adj.Add(decimal.NewFromInt(3))
	case creditScore < 600:
		adj = adj.Add(decimal.NewFromInt(1))
	}

	if hasCollateral {
		adj = adj.Sub(decimal.NewFromInt(2))
	}

	if adj.IsNegative() {
		return decimal.Zero
	}
	return adj
}

// SplitPayment divides a repayment into its interest and principal portions
// for the current remaining balance. The interest portion is one month of
// interest on the remaining balance; anything above it reduces principal.
// A payment smaller than the accrued interest reduces no principal.
func (l *Loan) SplitPayment(amount decimal.Decimal) (interest, principal decimal.Decimal) {
	interest = l.RemainingBalance.Mul(l.MonthlyRate()).Round(2)
	principal = amount.Sub(interest)
	if principal.IsNegative() {
		principal = decimal.Zero
	}
	// Never amortize past zero.
	if principal.GreaterThan(l.RemainingBalance) {
		principal = l.RemainingBalance
	}
	return interest, principal
}
