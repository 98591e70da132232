package domain_test

import (
	"testing"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// TestSeedCreditScore validates the opening-score formula against worked
// examples. No I/O — pure arithmetic.
//
//	score = 500 + min(level×10, 100) + classBonus + goldBonus + (luck−50)/2
//
//	Merchant, level 12, gold 50 000, luck 70:
//	  500 + 100 (level capped) + 30 + 35 + 10 = 675
func TestSeedCreditScore(t *testing.T) {
	merchant := domain.CharacterSnapshot{
		Level: 12, Class: "merchant",
		Gold: decimal.NewFromInt(50_000), Luck: 70,
	}
	if got := domain.SeedCreditScore(merchant); got != 675 {
		t.Errorf("merchant score = %d, want 675", got)
	}

	// Rogue, level 1, penniless, luck 0: 500 + 10 − 15 + 0 − 25 = 470.
	rogue := domain.CharacterSnapshot{
		Level: 1, Class: "rogue",
		Gold: decimal.Zero, Luck: 0,
	}
	if got := domain.SeedCreditScore(rogue); got != 470 {
		t.Errorf("rogue score = %d, want 470", got)
	}

	// Unknown classes take no class bonus.
	drifter := domain.CharacterSnapshot{
		Level: 5, Class: "bard",
		Gold: decimal.NewFromInt(1_000), Luck: 50,
	}
	if got := domain.SeedCreditScore(drifter); got != 560 {
		t.Errorf("unlisted-class score = %d, want 560", got)
	}
}

func TestSeedCreditScoreStaysInBounds(t *testing.T) {
	extremes := []domain.CharacterSnapshot{
		{Level: 100, Class: "merchant", Gold: decimal.NewFromInt(10_000_000), Luck: 100},
		{Level: 0, Class: "rogue", Gold: decimal.Zero, Luck: 0},
	}
	for _, c := range extremes {
		got := domain.SeedCreditScore(c)
		if got < domain.CreditScoreMin || got > domain.CreditScoreMax {
			t.Errorf("score %d for %+v outside [%d,%d]",
				got, c, domain.CreditScoreMin, domain.CreditScoreMax)
		}
	}
}

// TestDailyInterest checks the per-day savings accrual:
//
//	10 000 at 2 %/yr → 10 000 × 2/100/365 = 0.5479… → 0.55
func TestDailyInterest(t *testing.T) {
	a := &domain.Account{
		Balance:      decimal.NewFromInt(10_000),
		InterestRate: decimal.NewFromFloat(2.0),
	}
	want := decimal.NewFromFloat(0.55)
	if got := a.DailyInterest(); !got.Equal(want) {
		t.Errorf("DailyInterest = %s, want %s", got, want)
	}
}

// TestDailyInterestBelowThreshold: sub-cent accruals report zero so the
// maintenance pass skips them, including the balance-0 case.
func TestDailyInterestBelowThreshold(t *testing.T) {
	cases := []decimal.Decimal{decimal.Zero, decimal.NewFromInt(1), decimal.NewFromInt(90)}
	for _, balance := range cases {
		a := &domain.Account{Balance: balance, InterestRate: decimal.NewFromFloat(2.0)}
		if got := a.DailyInterest(); !got.IsZero() {
			t.Errorf("DailyInterest(balance=%s) = %s, want 0", balance, got)
		}
	}
}

// TestReplaySum: replaying signed ledger entries from zero reproduces the
// balance, and each entry's BalanceAfter matches the running sum.
func TestReplaySum(t *testing.T) {
	amounts := []float64{5000, -510, 2000, 0.55, -879.16}
	running := decimal.Zero
	txns := make([]*domain.Transaction, 0, len(amounts))
	for _, amt := range amounts {
		running = running.Add(decimal.NewFromFloat(amt))
		txns = append(txns, &domain.Transaction{
			Amount:       decimal.NewFromFloat(amt),
			BalanceAfter: running,
		})
	}

	sum := domain.ReplaySum(txns)
	if !sum.Equal(running) {
		t.Errorf("ReplaySum = %s, want %s", sum, running)
	}

	check := decimal.Zero
	for i, txn := range txns {
		check = check.Add(txn.Amount)
		if !check.Equal(txn.BalanceAfter) {
			t.Errorf("entry %d: running sum %s != BalanceAfter %s", i, check, txn.BalanceAfter)
		}
	}
}

func TestTermsForTier(t *testing.T) {
	gold := domain.TermsForTier(domain.TierGold)
	if !gold.CreditLimit.Equal(decimal.NewFromInt(50_000)) {
		t.Errorf("gold credit limit = %s, want 50000", gold.CreditLimit)
	}
	// Unknown tiers fall back to standard terms.
	fallback := domain.TermsForTier("mithril")
	standard := domain.TermsForTier(domain.TierStandard)
	if !fallback.CreditLimit.Equal(standard.CreditLimit) {
		t.Errorf("unknown tier credit limit = %s, want standard %s",
			fallback.CreditLimit, standard.CreditLimit)
	}
}
