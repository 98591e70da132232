// Package domain defines the core business entities and types for the
// Playstrata in-game economy engine.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// AccountStatus represents the lifecycle state of a ledger account.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"    // normal operation
	AccountSuspended AccountStatus = "suspended" // frozen by ops; no movements
	AccountClosed    AccountStatus = "closed"    // terminal; never deleted
)

// AccountTier selects the opening credit limit and savings rate.
type AccountTier string

const (
	TierStandard AccountTier = "standard"
	TierSilver   AccountTier = "silver"
	TierGold     AccountTier = "gold"
)

// Credit score bounds.
const (
	CreditScoreMin = 300
	CreditScoreMax = 850
)

// TierTerms holds the opening terms granted per account tier.
type TierTerms struct {
	CreditLimit  decimal.Decimal
	InterestRate decimal.Decimal // annual savings rate, percent
}

// tierTable is the static per-tier opening terms, loaded once.
var tierTable = map[AccountTier]TierTerms{
	TierStandard: {CreditLimit: decimal.NewFromInt(5000), InterestRate: decimal.NewFromFloat(2.0)},
	TierSilver:   {CreditLimit: decimal.NewFromInt(15000), InterestRate: decimal.NewFromFloat(2.5)},
	TierGold:     {CreditLimit: decimal.NewFromInt(50000), InterestRate: decimal.NewFromFloat(3.0)},
}

// TermsForTier returns the opening terms for a tier. Unknown tiers fall back
// to standard.
func TermsForTier(tier AccountTier) TierTerms {
	if t, ok := tierTable[tier]; ok {
		return t
	}
	return tierTable[TierStandard]
}

// ──────────────────────────────────────────────────────────────────────────────
// Account
// ──────────────────────────────────────────────────────────────────────────────

// Account is the ledger account every economic flow moves through.
// One per character; balance only changes inside a recorded Transaction.
type Account struct {
	ID           uuid.UUID       `json:"id"            db:"id"`
	CharacterID  uuid.UUID       `json:"character_id"  db:"character_id"`
	Balance      decimal.Decimal `json:"balance"       db:"balance"`
	CreditScore  int             `json:"credit_score"  db:"credit_score"`
	CreditLimit  decimal.Decimal `json:"credit_limit"  db:"credit_limit"`
	InterestRate decimal.Decimal `json:"interest_rate" db:"interest_rate"` // annual savings rate, percent
	Status       AccountStatus   `json:"status"        db:"status"`
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"    db:"updated_at"`
}

// IsActive returns true while the account can move money.
func (a *Account) IsActive() bool {
	return a.Status == AccountActive
}

// DailyInterest returns the interest earned for one simulated day, rounded to
// 2 decimal places. Amounts below 0.01 are reported as zero so maintenance
// passes skip them.
func (a *Account) DailyInterest() decimal.Decimal {
	earned := a.Balance.
		Mul(a.InterestRate).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(365)).
		Round(2)
	if earned.LessThan(decimal.NewFromFloat(0.01)) {
		return decimal.Zero
	}
	return earned
}

// ──────────────────────────────────────────────────────────────────────────────
// Credit scoring
// ──────────────────────────────────────────────────────────────────────────────

// classCreditBonus maps character classes to a credit score bonus. Unlisted
// classes get no bonus.
var classCreditBonus = map[string]int{
	"merchant": 30,
	"noble":    25,
	"artisan":  15,
	"mage":     10,
	"warrior":  5,
	"ranger":   0,
	"rogue":    -15,
}

// goldTierBonus returns the credit score bonus for a character's gold on hand.
func goldTierBonus(gold decimal.Decimal) int {
	switch {
	case gold.GreaterThanOrEqual(decimal.NewFromInt(100_000)):
		return 50
	case gold.GreaterThanOrEqual(decimal.NewFromInt(50_000)):
		return 35
	case gold.GreaterThanOrEqual(decimal.NewFromInt(10_000)):
		return 20
	case gold.GreaterThanOrEqual(decimal.NewFromInt(1_000)):
		return 10
	default:
		return 0
	}
}

// SeedCreditScore derives the opening credit score from a character's level,
// class, gold and luck:
//
//	score = 500 + min(level×10, 100) + classBonus + goldBonus + (luck−50)/2
//
// clamped to [CreditScoreMin, CreditScoreMax].
func SeedCreditScore(c CharacterSnapshot) int {
	score := 500

	levelBonus := c.Level * 10
	if levelBonus > 100 {
		levelBonus = 100
	}
	score += levelBonus
	score += classCreditBonus[c.Class]
	score += goldTierBonus(c.Gold)
	score += (c.Luck - 50) / 2

	return ClampCreditScore(score)
}

// ClampCreditScore bounds a score to the valid credit score range.
func ClampCreditScore(score int) int {
	if score < CreditScoreMin {
		return CreditScoreMin
	}
	if score > CreditScoreMax {
		return CreditScoreMax
	}
	return score
}

// ──────────────────────────────────────────────────────────────────────────────
// Transaction
// ──────────────────────────────────────────────────────────────────────────────

// TxType enumerates ledger transaction types for auditing.
type TxType string

const (
	TxDeposit          TxType = "deposit"
	TxWithdrawal       TxType = "withdrawal"
	TxInterest         TxType = "interest"
	TxLoan             TxType = "loan"
	TxLoanPayment      TxType = "loan_payment"
	TxInvestment       TxType = "investment"
	TxInvestmentReturn TxType = "investment_return"
	TxStockBuy         TxType = "stock_buy"
	TxStockSell        TxType = "stock_sell"
	TxDividend         TxType = "dividend"
	TxPurchase         TxType = "purchase"
)

// Transaction is an immutable append-only ledger entry. Amount is signed:
// credits positive, debits negative. BalanceAfter must equal the account
// balance at the moment the entry was written.
type Transaction struct {
	ID           uuid.UUID       `json:"id"            db:"id"`
	AccountID    uuid.UUID       `json:"account_id"    db:"account_id"`
	Type         TxType          `json:"type"          db:"type"`
	Amount       decimal.Decimal `json:"amount"        db:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after" db:"balance_after"`
	Description  string          `json:"description"   db:"description"`
	RefID        *uuid.UUID      `json:"ref_id"        db:"ref_id"` // loan/investment/trade/order ID
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"`
}

// ReplaySum replays a slice of ledger entries (in creation order) from zero
// and returns the resulting balance. For a consistent ledger this equals the
// account's current balance and every entry's BalanceAfter equals the running
// sum at that entry.
func ReplaySum(txns []*Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txns {
		sum = sum.Add(t.Amount)
	}
	return sum
}
