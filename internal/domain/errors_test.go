package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Playstrata/economy-engine/internal/domain"
)

// TestIsNotFound: the predicate sees through fmt.Errorf %w wrapping, and
// plain errors stay out.
func TestIsNotFound(t *testing.T) {
	wrapped := fmt.Errorf("AccountService.GetAccount: %w", domain.ErrAccountNotFound)
	if !domain.IsNotFound(wrapped) {
		t.Error("wrapped ErrAccountNotFound should be IsNotFound")
	}
	if domain.IsNotFound(errors.New("connection reset")) {
		t.Error("arbitrary errors must not be IsNotFound")
	}
	if domain.IsNotFound(domain.ErrInsufficientBalance) {
		t.Error("ErrInsufficientBalance is a business rule, not a not-found")
	}
}

// TestIsBusinessRule separates the recoverable player-facing rejections from
// system faults. Not-found also counts as a business rule.
func TestIsBusinessRule(t *testing.T) {
	business := []error{
		domain.ErrInsufficientBalance,
		domain.ErrLoanCapReached,
		domain.ErrCreditScoreTooLow,
		domain.ErrEligibilityNotMet,
		domain.ErrPaymentOptionUnavailable,
		domain.ErrAccountNotFound, // not-found errors surface as failures too
		fmt.Errorf("LoanService.MakePayment: %w", domain.ErrLoanNotActive),
	}
	for _, err := range business {
		if !domain.IsBusinessRule(err) {
			t.Errorf("IsBusinessRule(%v) = false, want true", err)
		}
	}
	if domain.IsBusinessRule(errors.New("pq: connection refused")) {
		t.Error("system faults must not be business rules")
	}
}
