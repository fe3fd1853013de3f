package payment

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/types"
)

// Payment is a single attempt to settle an invoice
type Payment struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	InvoiceID string `json:"invoice_id"`

	Amount   decimal.Decimal     `json:"amount"`
	Currency string              `json:"currency"`
	Method   types.PaymentMethod `json:"method"`
	Status   types.PaymentStatus `json:"status"`

	// BankReference is the code the payer must put on the wire transfer so
	// the payment can be matched to the invoice
	BankReference string `json:"bank_reference,omitempty"`

	// Card metadata from the payment processor, display only
	CardLast4 string `json:"card_last4,omitempty"`
	CardBrand string `json:"card_brand,omitempty"`

	// ProcessorRef is the external processor's identifier for this charge
	ProcessorRef string `json:"processor_ref,omitempty"`

	RefundedAmount decimal.Decimal `json:"refunded_amount"`
	RefundReason   *string         `json:"refund_reason,omitempty"`
	FailureReason  *string         `json:"failure_reason,omitempty"`

	ProcessingAt *time.Time `json:"processing_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`

	IdempotencyKey string         `json:"idempotency_key,omitempty"`
	Metadata       types.Metadata `json:"metadata,omitempty"`

	types.BaseModel
}

// Validate validates the payment
func (p *Payment) Validate() error {
	if p.AccountID == "" {
		return ierr.NewError("account id is required").
			WithHint("Payment must belong to an account").
			Mark(ierr.ErrValidation)
	}
	if p.InvoiceID == "" {
		return ierr.NewError("invoice id is required").
			WithHint("Payment must reference an invoice").
			Mark(ierr.ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return ierr.NewError("invalid payment amount").
			WithHint("Payment amount must be greater than zero").
			WithReportableDetails(map[string]any{"amount": p.Amount}).
			Mark(ierr.ErrValidation)
	}
	if err := p.Method.Validate(); err != nil {
		return err
	}
	if err := p.Status.Validate(); err != nil {
		return err
	}
	return nil
}

// RemainingRefundable is the amount that can still be refunded
func (p *Payment) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundedAmount)
}

// IsFullyRefunded reports whether cumulative refunds have reached the
// payment amount
func (p *Payment) IsFullyRefunded() bool {
	return p.RefundedAmount.GreaterThanOrEqual(p.Amount)
}

// EnsureTransition rejects a status change the payment state machine does
// not permit
func (p *Payment) EnsureTransition(target types.PaymentStatus) error {
	if p.Status.CanTransitionTo(target) {
		return nil
	}
	return ierr.NewErrorf("cannot transition payment from %s to %s", p.Status, target).
		WithHintf("Payment is %s", p.Status).
		WithReportableDetails(map[string]any{
			"payment_id": p.ID,
			"from":       p.Status,
			"to":         target,
		}).
		Mark(ierr.ErrInvalidTransition)
}
