package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blocapp/billing/internal/audit"
	"github.com/blocapp/billing/internal/domain/invoice"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/types"
)

// InvoiceService issues invoices and drives their lifecycle
type InvoiceService interface {
	// GenerateInvoice issues the invoice for one billing period. An account
	// with zero billable units gets no invoice and no error; the result
	// reports NothingToBill instead.
	GenerateInvoice(ctx context.Context, req *GenerateInvoiceRequest) (*GenerateInvoiceResult, error)

	GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*ListInvoicesResult, error)

	// GetCurrentInvoice returns the most recently issued invoice for the
	// account, or nil when none exist
	GetCurrentInvoice(ctx context.Context, accountID string) (*invoice.Invoice, error)

	GetPendingInvoices(ctx context.Context, accountID string) ([]*invoice.Invoice, error)
	HasInvoiceForPeriod(ctx context.Context, accountID string, periodStart time.Time) (bool, error)

	// FinalizeInvoice issues a draft invoice, moving it to pending
	FinalizeInvoice(ctx context.Context, id string) (*invoice.Invoice, error)

	// MarkPaid settles the invoice. Calling it on an already paid invoice
	// is a no-op returning the invoice unchanged.
	MarkPaid(ctx context.Context, id string, method types.PaymentMethod, paymentID string) (*invoice.Invoice, error)

	MarkFailed(ctx context.Context, id string, reason string) (*invoice.Invoice, error)

	// CancelInvoice voids an unpaid invoice. Cancelling a paid invoice is a
	// conflict; a credit note flow would be needed instead.
	CancelInvoice(ctx context.Context, id string, cancelledBy string, reason string) (*invoice.Invoice, error)

	GetInvoiceStats(ctx context.Context, accountID string) (*InvoiceStats, error)
	UpdatePDFURL(ctx context.Context, id string, url string) (*invoice.Invoice, error)
}

// GenerateInvoiceRequest describes one invoice generation run
type GenerateInvoiceRequest struct {
	AccountID   string    `json:"account_id" validate:"required"`
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
	// Draft persists the invoice for review instead of issuing it; it must
	// be finalized before it can be paid
	Draft bool `json:"draft,omitempty"`
}

func (r *GenerateInvoiceRequest) Validate() error {
	if r.AccountID == "" {
		return ierr.NewError("account id is required").
			WithHint("Account ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if r.PeriodStart.IsZero() || r.PeriodEnd.IsZero() {
		return ierr.NewError("billing period is required").
			WithHint("Period start and end must be set").
			Mark(ierr.ErrValidation)
	}
	if !r.PeriodEnd.After(r.PeriodStart) {
		return ierr.NewError("invalid billing period").
			WithHint("Period end must be after period start").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GenerateInvoiceResult is the outcome of a generation run
type GenerateInvoiceResult struct {
	Invoice       *invoice.Invoice `json:"invoice,omitempty"`
	NothingToBill bool             `json:"nothing_to_bill"`
	TotalUnits    int              `json:"total_units"`
}

type ListInvoicesResult struct {
	Items []*invoice.Invoice `json:"items"`
	Total int                `json:"total"`
}

// InvoiceStats summarizes an account's invoices
type InvoiceStats struct {
	TotalCount       int             `json:"total_count"`
	PaidCount        int             `json:"paid_count"`
	PendingCount     int             `json:"pending_count"`
	TotalBilled      decimal.Decimal `json:"total_billed"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	Currency         string          `json:"currency"`
}

type invoiceService struct {
	ServiceParams
	billing BillingService
}

func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		billing:       NewBillingService(params),
	}
}

func (s *invoiceService) GenerateInvoice(ctx context.Context, req *GenerateInvoiceRequest) (*GenerateInvoiceResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	acct, err := s.AccountRepo.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if err := acct.Subscription.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.InvoiceRepo.ExistsForPeriod(ctx, req.AccountID, req.PeriodStart)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ierr.NewError("invoice already exists for period").
			WithHintf("Account %s is already invoiced for this period", req.AccountID).
			WithReportableDetails(map[string]any{
				"account_id":   req.AccountID,
				"period_start": req.PeriodStart,
			}).
			Mark(ierr.ErrConflict)
	}

	calc, err := s.billing.CountBillableUnits(ctx, acct)
	if err != nil {
		return nil, err
	}
	if calc.TotalUnits == 0 {
		s.Logger.Infow("nothing to bill for period",
			"account_id", req.AccountID,
			"period_start", req.PeriodStart)
		return &GenerateInvoiceResult{NothingToBill: true}, nil
	}

	price, discount := acct.Subscription.EffectivePricing(
		s.Config.Billing.PricePerUnit, decimal.Zero)
	amounts := s.billing.CalculateAmounts(calc.TotalUnits, price, discount, s.Config.Billing.TaxRate)

	now := time.Now().UTC()
	number, err := s.CounterRepo.AllocateNumber(ctx, now)
	if err != nil {
		return nil, err
	}

	lineItems := make([]invoice.LineItem, 0, len(calc.Lines))
	for _, line := range calc.Lines {
		lineItems = append(lineItems, invoice.LineItem{
			Description: line.Name,
			SubTenantID: line.SubTenantID,
			Quantity:    line.Units,
			UnitPrice:   price,
			Amount:      types.RoundMoney(price.Mul(decimal.NewFromInt(int64(line.Units)))),
		})
	}

	status := types.InvoiceStatusPending
	if req.Draft {
		status = types.InvoiceStatusDraft
	}

	inv := &invoice.Invoice{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		AccountID:       req.AccountID,
		InvoiceNumber:   number,
		Status:          status,
		PeriodStart:     req.PeriodStart,
		PeriodEnd:       req.PeriodEnd,
		IssuedAt:        now,
		DueAt:           now.AddDate(0, 0, s.Config.Billing.DueDays),
		LineItems:       lineItems,
		TotalUnits:      calc.TotalUnits,
		PricePerUnit:    price,
		Subtotal:        amounts.Subtotal,
		DiscountPercent: discount,
		DiscountAmount:  amounts.DiscountAmount,
		TaxRate:         s.Config.Billing.TaxRate,
		TaxAmount:       amounts.TaxAmount,
		TotalAmount:     amounts.Total,
		Currency:        s.Config.Billing.Currency,
		BillingContact:  acct.Subscription.BillingContact,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice generated",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"account_id", inv.AccountID,
		"total_units", inv.TotalUnits,
		"total_amount", inv.TotalAmount)
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventInvoiceGenerated, map[string]any{
		"invoice_id":     inv.ID,
		"invoice_number": inv.InvoiceNumber,
		"account_id":     inv.AccountID,
		"total_amount":   inv.TotalAmount,
	})

	s.renderPDF(ctx, inv)

	return &GenerateInvoiceResult{Invoice: inv, TotalUnits: calc.TotalUnits}, nil
}

// renderPDF hands the invoice to the rendering backend; failures never
// fail the invoice itself
func (s *invoiceService) renderPDF(ctx context.Context, inv *invoice.Invoice) {
	url, err := s.PDF.RenderInvoicePDF(ctx, inv)
	if err != nil {
		s.Logger.Warnw("invoice pdf rendering failed",
			"invoice_id", inv.ID, "error", err)
		return
	}
	if url == "" {
		return
	}
	if _, err := s.UpdatePDFURL(ctx, inv.ID, url); err != nil {
		s.Logger.Warnw("failed to store invoice pdf url",
			"invoice_id", inv.ID, "error", err)
	}
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	return s.InvoiceRepo.Get(ctx, id)
}

func (s *invoiceService) ListInvoices(ctx context.Context, filter *types.InvoiceFilter) (*ListInvoicesResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	items, err := s.InvoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.InvoiceRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListInvoicesResult{Items: items, Total: total}, nil
}

func (s *invoiceService) GetCurrentInvoice(ctx context.Context, accountID string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.GetLatest(ctx, accountID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (s *invoiceService) GetPendingInvoices(ctx context.Context, accountID string) ([]*invoice.Invoice, error) {
	return s.InvoiceRepo.ListPending(ctx, accountID)
}

func (s *invoiceService) HasInvoiceForPeriod(ctx context.Context, accountID string, periodStart time.Time) (bool, error) {
	return s.InvoiceRepo.ExistsForPeriod(ctx, accountID, periodStart)
}

func (s *invoiceService) FinalizeInvoice(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.EnsureTransition(types.InvoiceStatusPending); err != nil {
		return nil, err
	}

	inv.Status = types.InvoiceStatusPending
	inv.Touch(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice finalized",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber)
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventInvoiceFinalized, map[string]any{
		"invoice_id":     inv.ID,
		"invoice_number": inv.InvoiceNumber,
	})
	return inv, nil
}

func (s *invoiceService) MarkPaid(ctx context.Context, id string, method types.PaymentMethod, paymentID string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.IsPaid() {
		return inv, nil
	}
	if err := inv.EnsureTransition(types.InvoiceStatusPaid); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv.Status = types.InvoiceStatusPaid
	inv.PaidAt = &now
	inv.PaymentMethod = &method
	inv.PaymentID = paymentID
	inv.FailureReason = nil
	inv.Touch(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Infow("invoice paid",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"method", method)
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventInvoicePaid, map[string]any{
		"invoice_id": inv.ID,
		"method":     method,
		"payment_id": paymentID,
	})
	return inv, nil
}

func (s *invoiceService) MarkFailed(ctx context.Context, id string, reason string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := inv.EnsureTransition(types.InvoiceStatusFailed); err != nil {
		return nil, err
	}

	inv.Status = types.InvoiceStatusFailed
	inv.FailureReason = &reason
	inv.Touch(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Logger.Warnw("invoice payment failed",
		"invoice_id", inv.ID, "reason", reason)
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventInvoicePaymentFailed, map[string]any{
		"invoice_id": inv.ID,
		"reason":     reason,
	})
	return inv, nil
}

func (s *invoiceService) CancelInvoice(ctx context.Context, id string, cancelledBy string, reason string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.IsPaid() {
		return nil, ierr.NewError("cannot cancel a paid invoice").
			WithHint("Paid invoices cannot be cancelled; issue a credit instead").
			WithReportableDetails(map[string]any{"invoice_id": id}).
			Mark(ierr.ErrConflict)
	}
	if err := inv.EnsureTransition(types.InvoiceStatusCancelled); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	inv.Status = types.InvoiceStatusCancelled
	inv.CancelledAt = &now
	inv.CancelledBy = cancelledBy
	inv.CancelReason = &reason
	inv.Touch(ctx)

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}

	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventInvoiceCancelled, map[string]any{
		"invoice_id": inv.ID,
		"reason":     reason,
	})
	return inv, nil
}

func (s *invoiceService) GetInvoiceStats(ctx context.Context, accountID string) (*InvoiceStats, error) {
	items, err := s.InvoiceRepo.List(ctx, &types.InvoiceFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		AccountID:   accountID,
	})
	if err != nil {
		return nil, err
	}

	stats := &InvoiceStats{Currency: s.Config.Billing.Currency}
	for _, inv := range items {
		if inv.Status == types.InvoiceStatusCancelled {
			continue
		}
		stats.TotalCount++
		stats.TotalBilled = stats.TotalBilled.Add(inv.TotalAmount)
		switch inv.Status {
		case types.InvoiceStatusPaid:
			stats.PaidCount++
			stats.TotalPaid = stats.TotalPaid.Add(inv.TotalAmount)
		case types.InvoiceStatusPending, types.InvoiceStatusFailed:
			stats.PendingCount++
			stats.TotalOutstanding = stats.TotalOutstanding.Add(inv.TotalAmount)
		}
	}
	return stats, nil
}

func (s *invoiceService) UpdatePDFURL(ctx context.Context, id string, url string) (*invoice.Invoice, error) {
	inv, err := s.InvoiceRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	inv.PDFURL = &url
	inv.Touch(ctx)
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}
