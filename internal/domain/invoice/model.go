package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/blocapp/billing/internal/domain/account"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/types"
)

// Invoice is a bill issued to a tenant account for one billing period
type Invoice struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`

	// InvoiceNumber is globally unique and strictly increasing within a
	// prefix+year, allocated transactionally
	InvoiceNumber string              `json:"invoice_number"`
	Status        types.InvoiceStatus `json:"status"`

	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	IssuedAt    time.Time  `json:"issued_at"`
	DueAt       time.Time  `json:"due_at"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`

	LineItems []LineItem `json:"line_items"`

	TotalUnits      int             `json:"total_units"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Currency        string          `json:"currency"`

	// BillingContact is snapshotted at issue time and immutable afterwards,
	// even if the account later edits its contact
	BillingContact *account.BillingContact `json:"billing_contact,omitempty"`

	PaymentMethod *types.PaymentMethod `json:"payment_method,omitempty"`
	PaymentID     string               `json:"payment_id,omitempty"`

	FailureReason *string    `json:"failure_reason,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CancelledBy   string     `json:"cancelled_by,omitempty"`
	CancelReason  *string    `json:"cancel_reason,omitempty"`

	PDFURL *string `json:"pdf_url,omitempty"`

	types.BaseModel
}

// LineItem is one billed sub-tenant on the invoice
type LineItem struct {
	Description string          `json:"description"`
	SubTenantID string          `json:"sub_tenant_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

// Validate validates the invoice
func (i *Invoice) Validate() error {
	if i.AccountID == "" {
		return ierr.NewError("account id is required").
			WithHint("Invoice must belong to an account").
			Mark(ierr.ErrValidation)
	}
	if i.InvoiceNumber == "" {
		return ierr.NewError("invoice number is required").
			WithHint("Invoice number cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if err := i.Status.Validate(); err != nil {
		return err
	}
	if i.Currency == "" {
		return ierr.NewError("currency is required").
			WithHint("Invoice currency cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if i.TotalAmount.IsNegative() {
		return ierr.NewError("invalid total amount").
			WithHint("Total amount must not be negative").
			Mark(ierr.ErrValidation)
	}

	// totalAmount = subtotal - discountAmount + taxAmount, each already
	// rounded to 2 decimal places
	expected := i.Subtotal.Sub(i.DiscountAmount).Add(i.TaxAmount)
	if !i.TotalAmount.Equal(expected) {
		return ierr.NewError("inconsistent invoice totals").
			WithHint("Invoice totals do not add up").
			WithReportableDetails(map[string]any{
				"subtotal":        i.Subtotal,
				"discount_amount": i.DiscountAmount,
				"tax_amount":      i.TaxAmount,
				"total_amount":    i.TotalAmount,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsPaid reports whether the invoice has been settled
func (i *Invoice) IsPaid() bool {
	return i.Status == types.InvoiceStatusPaid
}

// EnsureTransition rejects a status change the invoice state machine does
// not permit
func (i *Invoice) EnsureTransition(target types.InvoiceStatus) error {
	if i.Status.CanTransitionTo(target) {
		return nil
	}
	return ierr.NewErrorf("cannot transition invoice from %s to %s", i.Status, target).
		WithHintf("Invoice %s is %s", i.InvoiceNumber, i.Status).
		WithReportableDetails(map[string]any{
			"invoice_id": i.ID,
			"from":       i.Status,
			"to":         target,
		}).
		Mark(ierr.ErrInvalidTransition)
}
