package domain_test

import (
	"testing"
	"time"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestPositionApplyBuy: buying 10 @ 50 then 10 @ 70 averages the cost basis
// to 60 across 20 shares.
func TestPositionApplyBuy(t *testing.T) {
	p := &domain.Position{}
	p.ApplyBuy(10, decimal.NewFromInt(50))
	p.ApplyBuy(10, decimal.NewFromInt(70))

	if p.SharesOwned != 20 {
		t.Errorf("shares = %d, want 20", p.SharesOwned)
	}
	if !p.AverageCost.Equal(decimal.NewFromInt(60)) {
		t.Errorf("average cost = %s, want 60", p.AverageCost)
	}
	if !p.TotalInvested.Equal(decimal.NewFromInt(1_200)) {
		t.Errorf("total invested = %s, want 1200", p.TotalInvested)
	}
}

// TestPositionApplySell: a partial sale releases cost proportionally and
// leaves the per-share average unchanged.
func TestPositionApplySell(t *testing.T) {
	p := &domain.Position{}
	p.ApplyBuy(10, decimal.NewFromInt(50))
	p.ApplyBuy(10, decimal.NewFromInt(70))

	p.ApplySell(10)
	if p.SharesOwned != 10 {
		t.Errorf("shares = %d, want 10", p.SharesOwned)
	}
	if !p.TotalInvested.Equal(decimal.NewFromInt(600)) {
		t.Errorf("total invested = %s, want 600", p.TotalInvested)
	}
	if !p.AverageCost.Equal(decimal.NewFromInt(60)) {
		t.Errorf("average cost = %s, want 60 (unchanged)", p.AverageCost)
	}
}

// TestPositionFullSale zeroes everything, including valuation fields.
func TestPositionFullSale(t *testing.T) {
	p := &domain.Position{}
	p.ApplyBuy(15, decimal.NewFromInt(40))
	p.Revalue(decimal.NewFromInt(45))

	p.ApplySell(15)
	if p.SharesOwned != 0 || !p.TotalInvested.IsZero() ||
		!p.AverageCost.IsZero() || !p.CurrentValue.IsZero() || !p.UnrealizedGainLoss.IsZero() {
		t.Errorf("full sale left residue: %+v", p)
	}
}

// TestPositionRevalue: 20 shares with basis 1200 marked at 65 show a 100 gain.
func TestPositionRevalue(t *testing.T) {
	p := &domain.Position{}
	p.ApplyBuy(20, decimal.NewFromInt(60))
	p.Revalue(decimal.NewFromInt(65))

	if !p.CurrentValue.Equal(decimal.NewFromInt(1_300)) {
		t.Errorf("current value = %s, want 1300", p.CurrentValue)
	}
	if !p.UnrealizedGainLoss.Equal(decimal.NewFromInt(100)) {
		t.Errorf("unrealized P&L = %s, want 100", p.UnrealizedGainLoss)
	}
}

// TestNextStockPriceFloor: no combination of volatility and trend drives the
// price below the floor.
func TestNextStockPriceFloor(t *testing.T) {
	next := domain.NextStockPrice(decimal.NewFromFloat(0.02), 0.5, -0.9, -1)
	if next.LessThan(domain.MinStockPrice) {
		t.Errorf("price %s fell below floor %s", next, domain.MinStockPrice)
	}
}

// TestNextStockPrice: a deterministic move — last 100, volatility 0.03,
// trend 0.005, u = 1 — lands exactly on 100 × 1.035.
func TestNextStockPrice(t *testing.T) {
	next := domain.NextStockPrice(decimal.NewFromInt(100), 0.03, 0.005, 1)
	if !next.Equal(decimal.NewFromFloat(103.5)) {
		t.Errorf("next price = %s, want 103.5", next)
	}
	// u = 0 moves by trend alone.
	flat := domain.NextStockPrice(decimal.NewFromInt(100), 0.03, 0.005, 0)
	if !flat.Equal(decimal.NewFromFloat(100.5)) {
		t.Errorf("trend-only price = %s, want 100.5", flat)
	}
}

// TestDailyTrendBounds: the shared drift stays within ±amplitude.
func TestDailyTrendBounds(t *testing.T) {
	const amplitude = 0.005
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for h := 0; h < 24*30; h++ {
		trend := domain.DailyTrend(start.Add(time.Duration(h)*time.Hour), amplitude, 30*24*time.Hour)
		if trend > amplitude || trend < -amplitude {
			t.Fatalf("trend %f at hour %d outside ±%f", trend, h, amplitude)
		}
	}
}

// TestTradingFee: max(rate × notional, minimum).
func TestTradingFee(t *testing.T) {
	rate := decimal.NewFromFloat(0.002)
	min := decimal.NewFromInt(10)

	// 10 000 × 0.2% = 20 > minimum.
	if got := domain.TradingFee(decimal.NewFromInt(10_000), rate, min); !got.Equal(decimal.NewFromInt(20)) {
		t.Errorf("fee = %s, want 20", got)
	}
	// 1 000 × 0.2% = 2 → minimum applies.
	if got := domain.TradingFee(decimal.NewFromInt(1_000), rate, min); !got.Equal(min) {
		t.Errorf("fee = %s, want minimum 10", got)
	}
}

// TestMonthlyDividendPerShare: price 120, yield 6%/yr → 0.60/share/month.
func TestMonthlyDividendPerShare(t *testing.T) {
	c := &domain.Company{
		CurrentPrice:  decimal.NewFromInt(120),
		DividendYield: decimal.NewFromFloat(6.0),
	}
	if got := c.MonthlyDividendPerShare(); !got.Equal(decimal.NewFromFloat(0.6)) {
		t.Errorf("per share = %s, want 0.6", got)
	}
}

// TestNewPricePoint records open/close/high/low and the signed change.
func TestNewPricePoint(t *testing.T) {
	id := uuid.New()
	at := time.Now()

	up := domain.NewPricePoint(id, decimal.NewFromInt(100), decimal.NewFromInt(104), 5000, at)
	if !up.High.Equal(decimal.NewFromInt(104)) || !up.Low.Equal(decimal.NewFromInt(100)) {
		t.Errorf("up move high/low = %s/%s, want 104/100", up.High, up.Low)
	}
	if !up.ChangePercent.Equal(decimal.NewFromInt(4)) {
		t.Errorf("change%% = %s, want 4", up.ChangePercent)
	}

	down := domain.NewPricePoint(id, decimal.NewFromInt(100), decimal.NewFromInt(95), 5000, at)
	if !down.High.Equal(decimal.NewFromInt(100)) || !down.Low.Equal(decimal.NewFromInt(95)) {
		t.Errorf("down move high/low = %s/%s, want 100/95", down.High, down.Low)
	}
	if !down.Change.Equal(decimal.NewFromInt(-5)) {
		t.Errorf("change = %s, want -5", down.Change)
	}
}

// TestSectorVolatility: unknown sectors borrow the trade sector's value.
func TestSectorVolatility(t *testing.T) {
	if domain.SectorFinance.Volatility() >= domain.SectorTechnology.Volatility() {
		t.Error("finance should be calmer than technology")
	}
	if got := domain.Sector("necromancy").Volatility(); got != domain.SectorTrade.Volatility() {
		t.Errorf("unknown sector volatility = %f, want trade fallback", got)
	}
}
