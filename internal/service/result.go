// Package service implements the economy engine's business operations.
// Services own the transaction boundaries: every multi-step mutation runs in
// one PostgreSQL transaction, and every balance change writes a ledger entry.
//
// Expected business-rule failures (insufficient funds, eligibility gates,
// unknown entities) surface as structured results with Success=false; Go
// errors are reserved for system faults.
package service

import "github.com/Playstrata/economy-engine/internal/domain"

// OpStatus is the success flag + human-readable message carried by every
// operation result handed to the outer API layer.
type OpStatus struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ok builds a successful status.
func ok(message string) OpStatus {
	return OpStatus{Success: true, Message: message}
}

// fail builds a failed status.
func fail(message string) OpStatus {
	return OpStatus{Success: false, Message: message}
}

// failIfBusiness converts an expected business-rule error into a failed
// status. The second return is false for system faults, which callers must
// propagate as Go errors instead.
func failIfBusiness(err error) (OpStatus, bool) {
	if err != nil && domain.IsBusinessRule(err) {
		return fail(err.Error()), true
	}
	return OpStatus{}, false
}
