package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/blocapp/billing/internal/domain/account"
	"github.com/blocapp/billing/internal/service"
	"github.com/blocapp/billing/internal/types"
)

// GenerateInvoiceRequest is the payload for triggering invoice generation
type GenerateInvoiceRequest struct {
	AccountID   string    `json:"account_id" binding:"required"`
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
	Draft       bool      `json:"draft,omitempty"`
}

func (r *GenerateInvoiceRequest) ToService() *service.GenerateInvoiceRequest {
	return &service.GenerateInvoiceRequest{
		AccountID:   r.AccountID,
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Draft:       r.Draft,
	}
}

// CancelInvoiceRequest carries the reason for voiding an invoice
type CancelInvoiceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// MarkInvoiceFailedRequest carries the failure reason
type MarkInvoiceFailedRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// MarkInvoicePaidRequest settles an invoice out of band, outside the
// payment lifecycle
type MarkInvoicePaidRequest struct {
	Method    types.PaymentMethod `json:"method" binding:"required"`
	PaymentID string              `json:"payment_id"`
}

// CreatePaymentRequest is the payload for recording a payment attempt
type CreatePaymentRequest struct {
	InvoiceID      string              `json:"invoice_id" binding:"required"`
	Method         types.PaymentMethod `json:"method" binding:"required"`
	Amount         decimal.Decimal     `json:"amount"`
	CardLast4      string              `json:"card_last4"`
	CardBrand      string              `json:"card_brand"`
	ProcessorRef   string              `json:"processor_ref"`
	IdempotencyKey string              `json:"idempotency_key"`
	Metadata       types.Metadata      `json:"metadata"`
}

func (r *CreatePaymentRequest) ToService() *service.CreatePaymentRequest {
	return &service.CreatePaymentRequest{
		InvoiceID:      r.InvoiceID,
		Method:         r.Method,
		Amount:         r.Amount,
		CardLast4:      r.CardLast4,
		CardBrand:      r.CardBrand,
		ProcessorRef:   r.ProcessorRef,
		IdempotencyKey: r.IdempotencyKey,
		Metadata:       r.Metadata,
	}
}

// RefundPaymentRequest is the payload for a partial or full refund
type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Reason string          `json:"reason"`
}

// RecordManualPaymentRequest registers an out-of-band payment
type RecordManualPaymentRequest struct {
	InvoiceID string          `json:"invoice_id" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Note      string          `json:"note"`
}

func (r *RecordManualPaymentRequest) ToService() *service.RecordManualPaymentRequest {
	return &service.RecordManualPaymentRequest{
		InvoiceID: r.InvoiceID,
		Amount:    r.Amount,
		Note:      r.Note,
	}
}

// UpdatePaymentStatusRequest applies a lifecycle transition
type UpdatePaymentStatusRequest struct {
	Status        types.PaymentStatus `json:"status" binding:"required"`
	FailureReason string              `json:"failure_reason"`
}

// ExtendTrialRequest extends an account's trial
type ExtendTrialRequest struct {
	Days int `json:"days" binding:"required"`
}

// ActivateSubscriptionRequest starts a paid billing period
type ActivateSubscriptionRequest struct {
	PeriodStart time.Time `json:"period_start" binding:"required"`
	PeriodEnd   time.Time `json:"period_end" binding:"required"`
}

// SuspendRequest carries the suspension reason
type SuspendRequest struct {
	Reason string `json:"reason"`
}

// SetCustomPricingRequest is the admin pricing override payload
type SetCustomPricingRequest struct {
	Enabled         bool            `json:"enabled"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Reason          string          `json:"reason"`
}

func (r *SetCustomPricingRequest) ToService(accountID string) *service.SetCustomPricingRequest {
	return &service.SetCustomPricingRequest{
		AccountID:       accountID,
		Enabled:         r.Enabled,
		PricePerUnit:    r.PricePerUnit,
		DiscountPercent: r.DiscountPercent,
		Reason:          r.Reason,
	}
}

// UpdateBillingContactRequest replaces the invoicing contact
type UpdateBillingContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	TaxID   string `json:"tax_id"`
	Address string `json:"address"`
}

func (r *UpdateBillingContactRequest) ToDomain() *account.BillingContact {
	return &account.BillingContact{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Company: r.Company,
		TaxID:   r.TaxID,
		Address: r.Address,
	}
}
