package domain_test

import (
	"testing"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// TestServiceBaseCost: catalog lookups and the unknown-type miss.
func TestServiceBaseCost(t *testing.T) {
	cases := []struct {
		service domain.ServiceType
		want    int64
	}{
		{domain.ServiceWedding, 2_500},
		{domain.ServiceFestival, 1_200},
		{domain.ServiceBanquet, 800},
		{domain.ServiceExpedition, 1_500},
		{domain.ServiceFuneral, 600},
	}
	for _, tc := range cases {
		cost, ok := domain.ServiceBaseCost(tc.service)
		if !ok {
			t.Errorf("%s missing from cost table", tc.service)
			continue
		}
		if !cost.Equal(decimal.NewFromInt(tc.want)) {
			t.Errorf("%s base cost = %s, want %d", tc.service, cost, tc.want)
		}
	}
	if _, ok := domain.ServiceBaseCost("coronation"); ok {
		t.Error("unknown service type should not resolve")
	}
}

// TestInstallmentMath: the plan constants split a 2 000 package into a 600
// down payment and 1 400 financed over 6 months.
func TestInstallmentMath(t *testing.T) {
	total := decimal.NewFromInt(2_000)
	down := total.Mul(domain.InstallmentDownFraction).Round(2)
	if !down.Equal(decimal.NewFromInt(600)) {
		t.Errorf("down payment = %s, want 600", down)
	}
	financed := total.Sub(down)
	if !financed.Equal(decimal.NewFromInt(1_400)) {
		t.Errorf("financed = %s, want 1400", financed)
	}
	if domain.InstallmentPlanTermMonths != 6 || domain.LoanPlanTermMonths != 12 {
		t.Error("plan term constants changed")
	}
}

// TestInvestmentCollateralRatio: a 2 000 package needs 3 000 of active
// investment cover.
func TestInvestmentCollateralRatio(t *testing.T) {
	required := decimal.NewFromInt(2_000).Mul(domain.InvestmentCollateralRatio)
	if !required.Equal(decimal.NewFromInt(3_000)) {
		t.Errorf("required cover = %s, want 3000", required)
	}
}
