package domain_test

import (
	"testing"

	"github.com/Playstrata/economy-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// within reports whether got is inside tol of want. Amortization math rounds
// to cents at each step, so exact equality is too strict.
func within(got, want, tol decimal.Decimal) bool {
	return got.Sub(want).Abs().LessThanOrEqual(tol)
}

// TestMonthlyLoanPayment checks the amortization formula against a hand-worked
// example: 10 000 at 10 %/yr over 12 months pays 879.16/month.
func TestMonthlyLoanPayment(t *testing.T) {
	got := domain.MonthlyLoanPayment(
		decimal.NewFromInt(10_000), decimal.NewFromFloat(10.0), 12)
	want := decimal.NewFromFloat(879.16)
	if !got.Equal(want) {
		t.Errorf("payment = %s, want %s", got, want)
	}
}

// TestMonthlyLoanPaymentZeroRate: a 0 % loan degrades to principal/term.
func TestMonthlyLoanPaymentZeroRate(t *testing.T) {
	got := domain.MonthlyLoanPayment(decimal.NewFromInt(1200), decimal.Zero, 12)
	if !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("zero-rate payment = %s, want 100", got)
	}
}

// TestLoanRiskAdjustment covers the purpose/score/collateral matrix, including
// the floor at zero when collateral outweighs the purpose risk.
func TestLoanRiskAdjustment(t *testing.T) {
	cases := []struct {
		purpose    string
		score      int
		collateral bool
		want       int64
	}{
		{"business", 700, false, 0},
		{"adventure", 700, false, 4},
		{"adventure", 550, false, 5},  // +1 below 600
		{"adventure", 450, false, 7},  // +3 below 500
		{"adventure", 450, true, 5},   // collateral −2
		{"business", 700, true, 0},    // floored, not negative
		{"gambling", 700, false, 5},   // unknown purpose → "other"
	}
	for _, tc := range cases {
		got := domain.LoanRiskAdjustment(tc.purpose, tc.score, tc.collateral)
		if !got.Equal(decimal.NewFromInt(tc.want)) {
			t.Errorf("LoanRiskAdjustment(%s, %d, %v) = %s, want %d",
				tc.purpose, tc.score, tc.collateral, got, tc.want)
		}
	}
}

// TestSplitPayment: one month of interest on the remaining balance comes off
// the top, the rest amortizes principal.
func TestSplitPayment(t *testing.T) {
	l := &domain.Loan{
		RemainingBalance: decimal.NewFromInt(10_000),
		InterestRate:     decimal.NewFromFloat(10.0),
	}
	interest, principal := l.SplitPayment(decimal.NewFromFloat(879.16))
	// 10 000 × 10/1200 = 83.33
	if !interest.Equal(decimal.NewFromFloat(83.33)) {
		t.Errorf("interest = %s, want 83.33", interest)
	}
	if !principal.Equal(decimal.NewFromFloat(795.83)) {
		t.Errorf("principal = %s, want 795.83", principal)
	}
}

// TestSplitPaymentUndersized: a payment below one month's interest reduces no
// principal.
func TestSplitPaymentUndersized(t *testing.T) {
	l := &domain.Loan{
		RemainingBalance: decimal.NewFromInt(10_000),
		InterestRate:     decimal.NewFromFloat(10.0),
	}
	_, principal := l.SplitPayment(decimal.NewFromInt(50))
	if !principal.IsZero() {
		t.Errorf("principal = %s, want 0", principal)
	}
}

// TestSplitPaymentOverpayment: the principal portion is capped at the
// remaining balance so a final oversized payment never amortizes past zero.
func TestSplitPaymentOverpayment(t *testing.T) {
	l := &domain.Loan{
		RemainingBalance: decimal.NewFromInt(100),
		InterestRate:     decimal.NewFromFloat(10.0),
	}
	_, principal := l.SplitPayment(decimal.NewFromInt(500))
	if !principal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("principal = %s, want 100 (capped)", principal)
	}
}

// TestFullAmortization simulates the payment schedule end to end: paying the
// computed monthly payment for the full term drives the remaining balance to
// zero within a cent of rounding drift.
func TestFullAmortization(t *testing.T) {
	principal := decimal.NewFromInt(10_000)
	rate := decimal.NewFromFloat(10.0)
	const term = 12

	payment := domain.MonthlyLoanPayment(principal, rate, term)
	l := &domain.Loan{RemainingBalance: principal, InterestRate: rate}

	for month := 1; month <= term; month++ {
		_, prin := l.SplitPayment(payment)
		l.RemainingBalance = l.RemainingBalance.Sub(prin)
	}

	if !within(l.RemainingBalance, decimal.Zero, decimal.NewFromFloat(0.05)) {
		t.Errorf("balance after %d payments = %s, want ~0", term, l.RemainingBalance)
	}
	t.Logf("payment=%s final balance=%s", payment, l.RemainingBalance)
}
