package domain_test

import (
	"testing"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// TestRankScore: suppliers rank by reputation minus markup, so a reputable
// but expensive supplier can lose to a cheaper mid-tier one.
func TestRankScore(t *testing.T) {
	premium := &domain.Supplier{Reputation: 90, MarkupPercentage: decimal.NewFromInt(35)}
	modest := &domain.Supplier{Reputation: 70, MarkupPercentage: decimal.NewFromInt(10)}

	if !modest.RankScore().GreaterThan(premium.RankScore()) {
		t.Errorf("modest (%s) should outrank premium (%s)",
			modest.RankScore(), premium.RankScore())
	}
	if !premium.RankScore().Equal(decimal.NewFromInt(55)) {
		t.Errorf("premium rank = %s, want 55", premium.RankScore())
	}
}

// TestQuotePrice: a 15% markup on a 200 base cost quotes 230.
func TestQuotePrice(t *testing.T) {
	s := &domain.Supplier{MarkupPercentage: decimal.NewFromInt(15)}
	if got := s.QuotePrice(decimal.NewFromInt(200)); !got.Equal(decimal.NewFromInt(230)) {
		t.Errorf("quote = %s, want 230", got)
	}
	// Zero markup passes the base cost through.
	free := &domain.Supplier{MarkupPercentage: decimal.Zero}
	if got := free.QuotePrice(decimal.NewFromFloat(99.99)); !got.Equal(decimal.NewFromFloat(99.99)) {
		t.Errorf("zero-markup quote = %s, want 99.99", got)
	}
}

// TestItemByCode spot-checks the procurement catalog.
func TestItemByCode(t *testing.T) {
	item, ok := domain.ItemByCode("silk_bolt")
	if !ok {
		t.Fatal("silk_bolt missing from catalog")
	}
	if item.Specialty != "textiles" || !item.BaseCost.Equal(decimal.NewFromInt(200)) {
		t.Errorf("silk_bolt = %+v, want textiles @ 200", item)
	}
	if _, ok := domain.ItemByCode("cursed_amulet"); ok {
		t.Error("unknown item code should not resolve")
	}
}
