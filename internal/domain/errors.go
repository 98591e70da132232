package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Validation errors — rejected before any state change.
var (
	// ErrInvalidAmount is returned for non-positive deposit/withdraw/trade amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidShares is returned for non-positive share counts.
	ErrInvalidShares = errors.New("share count must be positive")

	// ErrAmountOutOfBounds is returned when an investment amount violates the
	// product's min/max.
	ErrAmountOutOfBounds = errors.New("amount is outside the product's allowed range")
)

// Account / ledger errors
var (
	// ErrAccountNotFound is returned when no ledger account matches.
	ErrAccountNotFound = errors.New("ledger account not found")

	// ErrAccountExists is returned when a character already has an account.
	ErrAccountExists = errors.New("character already has a ledger account")

	// ErrAccountNotActive is returned when operating on a suspended or closed account.
	ErrAccountNotActive = errors.New("ledger account is not active")

	// ErrInsufficientBalance is returned when a debit exceeds the balance.
	ErrInsufficientBalance = errors.New("insufficient account balance")
)

// Loan errors
var (
	// ErrLoanNotFound is returned when no loan matches.
	ErrLoanNotFound = errors.New("loan not found")

	// ErrLoanNotActive is returned when paying a settled loan.
	ErrLoanNotActive = errors.New("loan is not active")

	// ErrLoanCapReached is returned at the active-loan ceiling.
	ErrLoanCapReached = errors.New("maximum number of active loans reached")

	// ErrCreditScoreTooLow is returned when the score fails a gate.
	ErrCreditScoreTooLow = errors.New("credit score is below the required minimum")

	// ErrOverCreditLimit is returned when a requested principal exceeds the
	// account's credit limit.
	ErrOverCreditLimit = errors.New("requested amount exceeds credit limit")
)

// Investment errors
var (
	// ErrInvestmentNotFound is returned when no investment matches.
	ErrInvestmentNotFound = errors.New("investment not found")

	// ErrInvestmentNotActive is returned when terminating an investment that is
	// already in a terminal state.
	ErrInvestmentNotActive = errors.New("investment is not active")

	// ErrUnknownProduct is returned for product IDs missing from the catalog.
	ErrUnknownProduct = errors.New("unknown investment product")

	// ErrEligibilityNotMet is returned when a credit score or level gate fails.
	ErrEligibilityNotMet = errors.New("eligibility requirements not met")
)

// Market errors
var (
	// ErrCompanyNotFound is returned when no company matches.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrCompanyInactive is returned when trading a delisted company.
	ErrCompanyInactive = errors.New("company is not actively traded")

	// ErrPositionNotFound is returned when a character holds no position in the
	// requested company.
	ErrPositionNotFound = errors.New("portfolio position not found")

	// ErrInsufficientShares is returned when selling more shares than owned.
	ErrInsufficientShares = errors.New("insufficient shares owned")
)

// Supply network / orchestration errors
var (
	// ErrCharacterNotFound is returned when the character store has no snapshot.
	ErrCharacterNotFound = errors.New("character not found")

	// ErrSupplierNotFound is returned when no supplier matches.
	ErrSupplierNotFound = errors.New("supplier not found")

	// ErrNoSupplierForSpecialty is returned when no supplier serves a specialty.
	ErrNoSupplierForSpecialty = errors.New("no supplier available for specialty")

	// ErrUnknownItem is returned for item codes missing from the catalog.
	ErrUnknownItem = errors.New("unknown procurement item")

	// ErrUnknownServiceType is returned for service types missing from the
	// package price table.
	ErrUnknownServiceType = errors.New("unknown service type")

	// ErrPaymentOptionUnavailable is returned when the chosen payment path's
	// eligibility predicate fails.
	ErrPaymentOptionUnavailable = errors.New("payment option not available")

	// ErrServiceOrderNotFound is returned when no service order matches.
	ErrServiceOrderNotFound = errors.New("service order not found")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinels so IsNotFound stays
// in sync automatically.
var notFoundErrors = []error{
	ErrAccountNotFound,
	ErrLoanNotFound,
	ErrInvestmentNotFound,
	ErrCompanyNotFound,
	ErrPositionNotFound,
	ErrCharacterNotFound,
	ErrSupplierNotFound,
	ErrUnknownProduct,
	ErrUnknownItem,
	ErrUnknownServiceType,
	ErrServiceOrderNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// businessRuleErrors are the expected, recoverable rejections: validation and
// eligibility failures surfaced to players as structured failure results
// rather than system errors.
var businessRuleErrors = []error{
	ErrInvalidAmount,
	ErrInvalidShares,
	ErrAmountOutOfBounds,
	ErrAccountExists,
	ErrAccountNotActive,
	ErrInsufficientBalance,
	ErrLoanNotActive,
	ErrLoanCapReached,
	ErrCreditScoreTooLow,
	ErrOverCreditLimit,
	ErrInvestmentNotActive,
	ErrEligibilityNotMet,
	ErrCompanyInactive,
	ErrInsufficientShares,
	ErrNoSupplierForSpecialty,
	ErrPaymentOptionUnavailable,
}

// IsBusinessRule returns true for expected business-rule rejections. These
// never escalate past the service layer; everything else is a system fault.
func IsBusinessRule(err error) bool {
	if IsNotFound(err) {
		return true
	}
	for _, target := range businessRuleErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
