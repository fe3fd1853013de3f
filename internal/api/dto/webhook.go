package dto

import (
	"github.com/shopspring/decimal"

	ierr "github.com/blocapp/billing/internal/errors"
)

// Processor webhook event types
const (
	WebhookPaymentSucceeded = "payment.succeeded"
	WebhookPaymentFailed    = "payment.failed"
	WebhookPaymentRefunded  = "payment.refunded"
)

// WebhookEvent is the payload delivered by the payment processor
type WebhookEvent struct {
	ID   string      `json:"id" binding:"required"`
	Type string      `json:"type" binding:"required"`
	Data WebhookData `json:"data" binding:"required"`
}

// WebhookData identifies the payment the event refers to
type WebhookData struct {
	PaymentID string          `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

func (e *WebhookEvent) Validate() error {
	if e.Data.PaymentID == "" {
		return ierr.NewError("webhook event has no payment id").
			WithHint("Event data must reference a payment").
			WithReportableDetails(map[string]any{"event_id": e.ID, "type": e.Type}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
