package types

import (
	"github.com/samber/lo"

	ierr "github.com/blocapp/billing/internal/errors"
)

// PaymentStatus represents the status of a payment.
// pending -> {processing, completed, cancelled}; processing -> {completed,
// failed}; completed -> refunded once the cumulative refund reaches the
// payment amount. Partial refunds keep the payment completed.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

func (s PaymentStatus) String() string {
	return string(s)
}

func (s PaymentStatus) Validate() error {
	allowed := []PaymentStatus{
		PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusRefunded,
		PaymentStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid payment status").
			WithHint("Please provide a valid payment status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusProcessing, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusProcessing: {PaymentStatusCompleted, PaymentStatusFailed},
	PaymentStatusCompleted:  {PaymentStatusRefunded},
}

// CanTransitionTo reports whether the payment state machine permits moving
// from the current status to the target status
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	return lo.Contains(paymentTransitions[s], target)
}

// PaymentMethod defines how a payment settles
type PaymentMethod string

const (
	// PaymentMethodCard settles through the external card processor
	PaymentMethodCard PaymentMethod = "card"
	// PaymentMethodBankTransfer settles by wire, reconciled by an admin
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	// PaymentMethodManual is an admin-attested out-of-band payment,
	// completed at creation time
	PaymentMethodManual PaymentMethod = "manual"
)

func (m PaymentMethod) String() string {
	return string(m)
}

func (m PaymentMethod) Validate() error {
	allowed := []PaymentMethod{
		PaymentMethodCard,
		PaymentMethodBankTransfer,
		PaymentMethodManual,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid payment method").
			WithHint("Please provide a valid payment method").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
