package types

import (
	"github.com/samber/lo"

	ierr "github.com/blocapp/billing/internal/errors"
)

// InvoiceStatus represents the current state of an invoice in its lifecycle.
// Transitions only move forward: draft -> pending -> {paid, failed,
// cancelled}. paid, failed and cancelled are terminal; cancelled is reachable
// from any non-paid state.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusFailed    InvoiceStatus = "failed"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusPending,
		InvoiceStatusPaid,
		InvoiceStatusFailed,
		InvoiceStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid invoice status").
			WithHint("Please provide a valid invoice status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsTerminal reports whether no further transitions are allowed
func (s InvoiceStatus) IsTerminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusFailed || s == InvoiceStatusCancelled
}

// A draft must be finalized to pending before it can settle; cancellation
// stays reachable from every non-paid state so admins can void failed or
// unissued invoices.
var invoiceTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusPending, InvoiceStatusCancelled},
	InvoiceStatusPending: {InvoiceStatusPaid, InvoiceStatusFailed, InvoiceStatusCancelled},
	InvoiceStatusFailed:  {InvoiceStatusCancelled},
}

// CanTransitionTo reports whether the invoice state machine permits moving
// from the current status to the target status
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	return lo.Contains(invoiceTransitions[s], target)
}
