package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// InvestmentStatus represents the lifecycle state of an investment.
// Terminal states (matured, cancelled, liquidated) are immutable.
type InvestmentStatus string

const (
	InvestmentActive     InvestmentStatus = "active"
	InvestmentMatured    InvestmentStatus = "matured"
	InvestmentCancelled  InvestmentStatus = "cancelled"
	InvestmentLiquidated InvestmentStatus = "liquidated"
)

// ProductType groups investment products by their value model.
type ProductType string

const (
	ProductFixedDeposit          ProductType = "fixed_deposit"
	ProductGovernmentBond        ProductType = "government_bond"
	ProductCorporateBond         ProductType = "corporate_bond"
	ProductMutualFund            ProductType = "mutual_fund"
	ProductInsurance             ProductType = "insurance"
	ProductMarketLinkedInsurance ProductType = "market_linked_insurance"
)

// IsMarketLinked reports whether the product's value follows the market model
// (revalued each pass) rather than accruing fixed income.
func (t ProductType) IsMarketLinked() bool {
	return t == ProductMutualFund || t == ProductMarketLinkedInsurance
}

// Daily revaluation volatility bands per market-linked product type (±band).
const (
	FundVolatilityBand      = 0.15
	InsuranceVolatilityBand = 0.08
)

// ──────────────────────────────────────────────────────────────────────────────
// Product catalog — static configuration loaded once
// ──────────────────────────────────────────────────────────────────────────────

// InvestmentProduct is one entry of the static product catalog.
type InvestmentProduct struct {
	ID             string
	Name           string
	Type           ProductType
	MinAmount      decimal.Decimal
	MaxAmount      decimal.Decimal
	AnnualReturn   decimal.Decimal // percent
	TermMonths     int             // 0 = open-ended
	RiskLevel      string          // "low" | "medium" | "high"
	MinCreditScore int             // 0 = no gate
	MinLevel       int             // 0 = no gate
}

// productCatalog is the immutable investment product table.
var productCatalog = map[string]InvestmentProduct{
	"fd_basic": {
		ID: "fd_basic", Name: "Adventurer's Fixed Deposit", Type: ProductFixedDeposit,
		MinAmount: decimal.NewFromInt(100), MaxAmount: decimal.NewFromInt(50_000),
		AnnualReturn: decimal.NewFromFloat(4.0), TermMonths: 6, RiskLevel: "low",
	},
	"fd_premium": {
		ID: "fd_premium", Name: "Guildmaster's Fixed Deposit", Type: ProductFixedDeposit,
		MinAmount: decimal.NewFromInt(10_000), MaxAmount: decimal.NewFromInt(500_000),
		AnnualReturn: decimal.NewFromFloat(5.5), TermMonths: 12, RiskLevel: "low",
		MinCreditScore: 550,
	},
	"gov_bond": {
		ID: "gov_bond", Name: "Crown Treasury Bond", Type: ProductGovernmentBond,
		MinAmount: decimal.NewFromInt(500), MaxAmount: decimal.NewFromInt(200_000),
		AnnualReturn: decimal.NewFromFloat(3.5), TermMonths: 24, RiskLevel: "low",
	},
	"corp_bond": {
		ID: "corp_bond", Name: "Merchant Consortium Bond", Type: ProductCorporateBond,
		MinAmount: decimal.NewFromInt(1_000), MaxAmount: decimal.NewFromInt(100_000),
		AnnualReturn: decimal.NewFromFloat(7.0), TermMonths: 12, RiskLevel: "medium",
		MinCreditScore: 500,
	},
	"fund_balanced": {
		ID: "fund_balanced", Name: "Balanced Guild Fund", Type: ProductMutualFund,
		MinAmount: decimal.NewFromInt(250), MaxAmount: decimal.NewFromInt(250_000),
		AnnualReturn: decimal.NewFromFloat(9.0), TermMonths: 0, RiskLevel: "medium",
		MinLevel: 5,
	},
	"fund_growth": {
		ID: "fund_growth", Name: "Frontier Growth Fund", Type: ProductMutualFund,
		MinAmount: decimal.NewFromInt(1_000), MaxAmount: decimal.NewFromInt(500_000),
		AnnualReturn: decimal.NewFromFloat(14.0), TermMonths: 0, RiskLevel: "high",
		MinCreditScore: 600, MinLevel: 10,
	},
	"life_cover": {
		ID: "life_cover", Name: "Hero's Life Cover", Type: ProductInsurance,
		MinAmount: decimal.NewFromInt(500), MaxAmount: decimal.NewFromInt(50_000),
		AnnualReturn: decimal.NewFromFloat(2.5), TermMonths: 60, RiskLevel: "low",
	},
	"linked_cover": {
		ID: "linked_cover", Name: "Market-Linked Expedition Cover", Type: ProductMarketLinkedInsurance,
		MinAmount: decimal.NewFromInt(2_000), MaxAmount: decimal.NewFromInt(150_000),
		AnnualReturn: decimal.NewFromFloat(8.0), TermMonths: 36, RiskLevel: "medium",
		MinLevel: 8,
	},
}

// ProductByID looks up a catalog product. The second return is false for
// unknown IDs.
func ProductByID(id string) (InvestmentProduct, bool) {
	p, ok := productCatalog[id]
	return p, ok
}

// Products returns the full catalog. The returned map is the live table; do
// not mutate it.
func Products() map[string]InvestmentProduct {
	return productCatalog
}

// ──────────────────────────────────────────────────────────────────────────────
// Investment
// ──────────────────────────────────────────────────────────────────────────────

// Investment is a player's holding in one catalog product.
type Investment struct {
	ID           uuid.UUID        `json:"id"            db:"id"`
	AccountID    uuid.UUID        `json:"account_id"    db:"account_id"`
	ProductID    string           `json:"product_id"    db:"product_id"`
	Type         ProductType      `json:"type"          db:"type"`
	Principal    decimal.Decimal  `json:"principal"     db:"principal"`
	CurrentValue decimal.Decimal  `json:"current_value" db:"current_value"`
	InterestRate decimal.Decimal  `json:"interest_rate" db:"interest_rate"` // annual, percent
	TermMonths   int              `json:"term_months"   db:"term_months"`   // 0 = open-ended
	Status       InvestmentStatus `json:"status"        db:"status"`
	InvestedAt   time.Time        `json:"invested_at"   db:"invested_at"`
	MaturityDate *time.Time       `json:"maturity_date" db:"maturity_date"` // nil = open-ended
	UpdatedAt    time.Time        `json:"updated_at"    db:"updated_at"`
}

// IsActive returns true while the investment can mature, revalue or liquidate.
func (i *Investment) IsActive() bool {
	return i.Status == InvestmentActive
}

// DaysHeld returns whole days elapsed since purchase (never negative).
func (i *Investment) DaysHeld(now time.Time) int {
	d := int(now.Sub(i.InvestedAt).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// AccruedInterest returns simple daily-accrued interest on the principal:
// principal × rate% × daysHeld / 365, rounded to 2 places.
func (i *Investment) AccruedInterest(now time.Time) decimal.Decimal {
	days := decimal.NewFromInt(int64(i.DaysHeld(now)))
	return i.Principal.
		Mul(i.InterestRate).
		Div(decimal.NewFromInt(100)).
		Mul(days).
		Div(decimal.NewFromInt(365)).
		Round(2)
}

// LiquidationValue computes the early-exit value under the type-specific
// penalty rules:
//
//	fixed deposit            → 98% of principal
//	government/corporate bond → principal + accrued daily interest × 0.8
//	mutual fund              → 97% of latest current value
//	insurance products       → 70% of principal under 365 days held, else 90%
func (i *Investment) LiquidationValue(now time.Time) decimal.Decimal {
	switch i.Type {
	case ProductFixedDeposit:
		return i.Principal.Mul(decimal.NewFromFloat(0.98)).Round(2)
	case ProductGovernmentBond, ProductCorporateBond:
		partial := i.AccruedInterest(now).Mul(decimal.NewFromFloat(0.8))
		return i.Principal.Add(partial).Round(2)
	case ProductMutualFund:
		return i.CurrentValue.Mul(decimal.NewFromFloat(0.97)).Round(2)
	case ProductInsurance, ProductMarketLinkedInsurance:
		if i.DaysHeld(now) < 365 {
			return i.Principal.Mul(decimal.NewFromFloat(0.70)).Round(2)
		}
		return i.Principal.Mul(decimal.NewFromFloat(0.90)).Round(2)
	default:
		return i.CurrentValue.Round(2)
	}
}

// MaturityValue computes the value returned at scheduled maturity.
// Fixed-income types earn principal × rate% × term/12 over the full term;
// market-linked types pay out their latest current value.
func (i *Investment) MaturityValue() decimal.Decimal {
	if i.Type.IsMarketLinked() {
		return i.CurrentValue.Round(2)
	}
	term := decimal.NewFromInt(int64(i.TermMonths))
	gain := i.Principal.
		Mul(i.InterestRate).
		Div(decimal.NewFromInt(100)).
		Mul(term).
		Div(decimal.NewFromInt(12))
	return i.Principal.Add(gain).Round(2)
}

// RevaluedFundValue recomputes a market-linked holding's value from principal:
//
//	principal × (1 + dailyReturn × (1 + volatility))^daysHeld
//
// where dailyReturn = rate%/100/365 and volatility is freshly sampled each
// pass from the product-type band. The value is not a smooth path; each pass
// recomputes from principal.
func (i *Investment) RevaluedFundValue(now time.Time, volatility float64) decimal.Decimal {
	dailyReturn, _ := i.InterestRate.Div(decimal.NewFromInt(100)).Div(decimal.NewFromInt(365)).Float64()
	factor := math.Pow(1+dailyReturn*(1+volatility), float64(i.DaysHeld(now)))
	return i.Principal.Mul(decimal.NewFromFloat(factor)).Round(2)
}

// VolatilityBand returns the ± sampling band for a market-linked type.
func (t ProductType) VolatilityBand() float64 {
	if t == ProductMarketLinkedInsurance {
		return InsuranceVolatilityBand
	}
	return FundVolatilityBand
}
