package domain_test

import (
	"testing"
	"time"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// TestLiquidationValue covers each product family's early-exit penalty.
func TestLiquidationValue(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fixed deposit keeps 98% of principal", func(t *testing.T) {
		inv := &domain.Investment{
			Type:      domain.ProductFixedDeposit,
			Principal: decimal.NewFromInt(1_000),
		}
		if got := inv.LiquidationValue(now); !got.Equal(decimal.NewFromInt(980)) {
			t.Errorf("LiquidationValue = %s, want 980", got)
		}
	})

	t.Run("bond pays principal plus 80% of accrued interest", func(t *testing.T) {
		// 10 000 at 3.5%/yr held 100 days: accrued = 95.89, partial = 76.712.
		inv := &domain.Investment{
			Type:         domain.ProductGovernmentBond,
			Principal:    decimal.NewFromInt(10_000),
			InterestRate: decimal.NewFromFloat(3.5),
			InvestedAt:   now.AddDate(0, 0, -100),
		}
		if got := inv.LiquidationValue(now); !got.Equal(decimal.NewFromFloat(10_076.71)) {
			t.Errorf("LiquidationValue = %s, want 10076.71", got)
		}
	})

	t.Run("mutual fund keeps 97% of current value", func(t *testing.T) {
		inv := &domain.Investment{
			Type:         domain.ProductMutualFund,
			Principal:    decimal.NewFromInt(1_000),
			CurrentValue: decimal.NewFromInt(1_200),
		}
		if got := inv.LiquidationValue(now); !got.Equal(decimal.NewFromInt(1_164)) {
			t.Errorf("LiquidationValue = %s, want 1164", got)
		}
	})

	t.Run("insurance pays 70% young, 90% after a year", func(t *testing.T) {
		young := &domain.Investment{
			Type:       domain.ProductInsurance,
			Principal:  decimal.NewFromInt(1_000),
			InvestedAt: now.AddDate(0, 0, -364),
		}
		if got := young.LiquidationValue(now); !got.Equal(decimal.NewFromInt(700)) {
			t.Errorf("under 365 days = %s, want 700", got)
		}
		seasoned := &domain.Investment{
			Type:       domain.ProductInsurance,
			Principal:  decimal.NewFromInt(1_000),
			InvestedAt: now.AddDate(0, 0, -365),
		}
		if got := seasoned.LiquidationValue(now); !got.Equal(decimal.NewFromInt(900)) {
			t.Errorf("at 365 days = %s, want 900", got)
		}
	})
}

// TestMaturityValue: fixed-income types earn the full simple-interest term,
// market-linked types pay out their revalued current value.
func TestMaturityValue(t *testing.T) {
	// 10 000 at 5.5% over 12 months → 10 550.
	fd := &domain.Investment{
		Type:         domain.ProductFixedDeposit,
		Principal:    decimal.NewFromInt(10_000),
		InterestRate: decimal.NewFromFloat(5.5),
		TermMonths:   12,
	}
	if got := fd.MaturityValue(); !got.Equal(decimal.NewFromInt(10_550)) {
		t.Errorf("fixed deposit maturity = %s, want 10550", got)
	}

	// 500 at 3.5% over 24 months → 500 + 35 = 535.
	bond := &domain.Investment{
		Type:         domain.ProductGovernmentBond,
		Principal:    decimal.NewFromInt(500),
		InterestRate: decimal.NewFromFloat(3.5),
		TermMonths:   24,
	}
	if got := bond.MaturityValue(); !got.Equal(decimal.NewFromInt(535)) {
		t.Errorf("bond maturity = %s, want 535", got)
	}

	linked := &domain.Investment{
		Type:         domain.ProductMarketLinkedInsurance,
		Principal:    decimal.NewFromInt(2_000),
		CurrentValue: decimal.NewFromFloat(2_345.67),
	}
	if got := linked.MaturityValue(); !got.Equal(decimal.NewFromFloat(2_345.67)) {
		t.Errorf("market-linked maturity = %s, want current value 2345.67", got)
	}
}

// TestAccruedInterest: simple daily accrual, 10 000 at 7%/yr for 30 days:
// 10 000 × 0.07 × 30/365 = 57.53.
func TestAccruedInterest(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	inv := &domain.Investment{
		Principal:    decimal.NewFromInt(10_000),
		InterestRate: decimal.NewFromFloat(7.0),
		InvestedAt:   now.AddDate(0, 0, -30),
	}
	if got := inv.AccruedInterest(now); !got.Equal(decimal.NewFromFloat(57.53)) {
		t.Errorf("AccruedInterest = %s, want 57.53", got)
	}
}

// TestRevaluedFundValue sanity: at zero volatility the fund grows at the
// plain daily compounding rate, and never drops below principal for a
// positive rate.
func TestRevaluedFundValue(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	inv := &domain.Investment{
		Type:         domain.ProductMutualFund,
		Principal:    decimal.NewFromInt(10_000),
		InterestRate: decimal.NewFromFloat(9.0),
		InvestedAt:   now.AddDate(0, 0, -365),
	}

	flat := inv.RevaluedFundValue(now, 0)
	if flat.LessThanOrEqual(inv.Principal) {
		t.Errorf("zero-volatility value %s should exceed principal", flat)
	}

	// Sampling at the band edges shifts the value around the flat path.
	up := inv.RevaluedFundValue(now, domain.FundVolatilityBand)
	down := inv.RevaluedFundValue(now, -domain.FundVolatilityBand)
	if !up.GreaterThan(flat) || !down.LessThan(flat) {
		t.Errorf("volatility ordering violated: down=%s flat=%s up=%s", down, flat, up)
	}
	t.Logf("1y revaluation: down=%s flat=%s up=%s", down, flat, up)
}

// TestProductCatalog spot-checks the static catalog wiring.
func TestProductCatalog(t *testing.T) {
	p, ok := domain.ProductByID("fd_basic")
	if !ok {
		t.Fatal("fd_basic missing from catalog")
	}
	if p.Type != domain.ProductFixedDeposit || p.TermMonths != 6 {
		t.Errorf("fd_basic = %+v, want fixed_deposit / 6 months", p)
	}
	if _, ok := domain.ProductByID("ponzi_deluxe"); ok {
		t.Error("unknown product id should not resolve")
	}
	if !domain.ProductMutualFund.IsMarketLinked() || domain.ProductCorporateBond.IsMarketLinked() {
		t.Error("IsMarketLinked misclassifies product types")
	}
}
