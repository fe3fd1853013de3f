package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blocapp/billing/internal/audit"
	"github.com/blocapp/billing/internal/domain/invoice"
	"github.com/blocapp/billing/internal/domain/payment"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/idempotency"
	"github.com/blocapp/billing/internal/types"
)

// PaymentService records payment attempts against invoices and drives
// their lifecycle, including processor webhooks
type PaymentService interface {
	// CreatePayment records a payment attempt. Manual payments complete
	// immediately and settle the invoice; card and bank transfer payments
	// start out pending.
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*payment.Payment, error)

	GetPayment(ctx context.Context, id string) (*payment.Payment, error)
	ListPayments(ctx context.Context, filter *types.PaymentFilter) (*ListPaymentsResult, error)

	// UpdatePaymentStatus applies a lifecycle transition, stamping the
	// matching timestamp. Completing a payment settles its invoice.
	UpdatePaymentStatus(ctx context.Context, id string, status types.PaymentStatus, failureReason string) (*payment.Payment, error)

	// RefundPayment refunds part or all of a completed payment. Cumulative
	// refunds never exceed the payment amount; only a full refund moves
	// the payment to refunded.
	RefundPayment(ctx context.Context, id string, amount decimal.Decimal, reason string) (*payment.Payment, error)

	// CancelPayment abandons a payment that has not started processing
	CancelPayment(ctx context.Context, id string) (*payment.Payment, error)

	// ConfirmBankTransfer marks a pending bank transfer as received and
	// settles its invoice
	ConfirmBankTransfer(ctx context.Context, id string) (*payment.Payment, error)

	// RecordManualPayment registers an out-of-band payment (cash, offline
	// transfer) already received and settles the invoice
	RecordManualPayment(ctx context.Context, req *RecordManualPaymentRequest) (*payment.Payment, error)

	ListPendingBankTransfers(ctx context.Context, accountID string) ([]*payment.Payment, error)
	GetPaymentStats(ctx context.Context, accountID string) (*PaymentStats, error)

	// Processor webhook handlers. All of them are idempotent: redelivered
	// events on an already settled payment succeed without side effects.
	HandlePaymentSucceeded(ctx context.Context, paymentID string) error
	HandlePaymentFailed(ctx context.Context, paymentID string, reason string) error
	HandlePaymentRefunded(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) error
}

// CreatePaymentRequest describes a new payment attempt
type CreatePaymentRequest struct {
	InvoiceID string              `json:"invoice_id" validate:"required"`
	Method    types.PaymentMethod `json:"method" validate:"required"`
	// Amount defaults to the invoice total when zero
	Amount         decimal.Decimal `json:"amount"`
	CardLast4      string          `json:"card_last4,omitempty"`
	CardBrand      string          `json:"card_brand,omitempty"`
	ProcessorRef   string          `json:"processor_ref,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	Metadata       types.Metadata  `json:"metadata,omitempty"`
}

func (r *CreatePaymentRequest) Validate() error {
	if r.InvoiceID == "" {
		return ierr.NewError("invoice id is required").
			WithHint("Payment must reference an invoice").
			Mark(ierr.ErrValidation)
	}
	if err := r.Method.Validate(); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return ierr.NewError("invalid payment amount").
			WithHint("Payment amount must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RecordManualPaymentRequest registers an already received payment
type RecordManualPaymentRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
	// Amount defaults to the invoice total when zero
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

type ListPaymentsResult struct {
	Items []*payment.Payment `json:"items"`
	Total int                `json:"total"`
}

// PaymentStats summarizes an account's payments
type PaymentStats struct {
	TotalCount     int             `json:"total_count"`
	CompletedCount int             `json:"completed_count"`
	PendingCount   int             `json:"pending_count"`
	FailedCount    int             `json:"failed_count"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalRefunded  decimal.Decimal `json:"total_refunded"`
	Currency       string          `json:"currency"`
}

type paymentService struct {
	ServiceParams
	invoices InvoiceService
}

func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
		invoices:      NewInvoiceService(params),
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*payment.Payment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.PaymentRepo.GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err == nil {
			return existing, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
	}

	inv, err := s.InvoiceRepo.Get(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.IsPaid() {
		return nil, ierr.NewError("invoice is already paid").
			WithHintf("Invoice %s does not need another payment", inv.InvoiceNumber).
			WithReportableDetails(map[string]any{"invoice_id": inv.ID}).
			Mark(ierr.ErrConflict)
	}
	if inv.Status == types.InvoiceStatusCancelled {
		return nil, ierr.NewError("invoice is cancelled").
			WithHintf("Invoice %s cannot be paid", inv.InvoiceNumber).
			Mark(ierr.ErrConflict)
	}

	amount := req.Amount
	if amount.IsZero() {
		amount = inv.TotalAmount
	}

	p := &payment.Payment{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		AccountID:      inv.AccountID,
		InvoiceID:      inv.ID,
		Amount:         amount,
		Currency:       inv.Currency,
		Method:         req.Method,
		Status:         types.PaymentStatusPending,
		CardLast4:      req.CardLast4,
		CardBrand:      req.CardBrand,
		ProcessorRef:   req.ProcessorRef,
		RefundedAmount: decimal.Zero,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}

	switch req.Method {
	case types.PaymentMethodBankTransfer:
		p.BankReference = bankReferenceFor(inv)
	case types.PaymentMethodManual:
		now := time.Now().UTC()
		p.Status = types.PaymentStatusCompleted
		p.CompletedAt = &now
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.PaymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("payment created",
		"payment_id", p.ID,
		"invoice_id", p.InvoiceID,
		"method", p.Method,
		"status", p.Status,
		"amount", p.Amount)
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventPaymentInitiated, map[string]any{
		"payment_id": p.ID,
		"invoice_id": p.InvoiceID,
		"method":     p.Method,
		"amount":     p.Amount,
	})

	if p.Status == types.PaymentStatusCompleted {
		if _, err := s.invoices.MarkPaid(ctx, inv.ID, p.Method, p.ID); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	return s.PaymentRepo.Get(ctx, id)
}

func (s *paymentService) ListPayments(ctx context.Context, filter *types.PaymentFilter) (*ListPaymentsResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	items, err := s.PaymentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.PaymentRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListPaymentsResult{Items: items, Total: total}, nil
}

func (s *paymentService) UpdatePaymentStatus(ctx context.Context, id string, status types.PaymentStatus, failureReason string) (*payment.Payment, error) {
	if err := status.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == status {
		return p, nil
	}
	if err := p.EnsureTransition(status); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p.Status = status
	switch status {
	case types.PaymentStatusProcessing:
		p.ProcessingAt = &now
	case types.PaymentStatusCompleted:
		p.CompletedAt = &now
	case types.PaymentStatusFailed:
		p.FailedAt = &now
		if failureReason != "" {
			p.FailureReason = &failureReason
		}
	case types.PaymentStatusCancelled:
		p.CancelledAt = &now
	}
	p.Touch(ctx)

	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("payment status updated",
		"payment_id", p.ID, "status", status)

	switch status {
	case types.PaymentStatusCompleted:
		s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventPaymentCompleted, map[string]any{
			"payment_id": p.ID,
			"invoice_id": p.InvoiceID,
			"amount":     p.Amount,
		})
		if _, err := s.invoices.MarkPaid(ctx, p.InvoiceID, p.Method, p.ID); err != nil {
			return nil, err
		}
	case types.PaymentStatusFailed:
		s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventPaymentFailed, map[string]any{
			"payment_id": p.ID,
			"invoice_id": p.InvoiceID,
			"reason":     failureReason,
		})
	}
	return p, nil
}

func (s *paymentService) RefundPayment(ctx context.Context, id string, amount decimal.Decimal, reason string) (*payment.Payment, error) {
	if !amount.IsPositive() {
		return nil, ierr.NewError("invalid refund amount").
			WithHint("Refund amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}

	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != types.PaymentStatusCompleted {
		return nil, ierr.NewErrorf("cannot refund a %s payment", p.Status).
			WithHint("Only completed payments can be refunded").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"status":     p.Status,
			}).
			Mark(ierr.ErrInvalidTransition)
	}
	if amount.GreaterThan(p.RemainingRefundable()) {
		return nil, ierr.NewError("refund exceeds refundable amount").
			WithHintf("Only %s is left to refund", p.RemainingRefundable()).
			WithReportableDetails(map[string]any{
				"payment_id":      p.ID,
				"requested":       amount,
				"refundable":      p.RemainingRefundable(),
				"refunded_so_far": p.RefundedAmount,
			}).
			Mark(ierr.ErrConflict)
	}

	now := time.Now().UTC()
	p.RefundedAmount = p.RefundedAmount.Add(amount)
	p.RefundedAt = &now
	if reason != "" {
		p.RefundReason = &reason
	}
	if p.IsFullyRefunded() {
		p.Status = types.PaymentStatusRefunded
	}
	p.Touch(ctx)

	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("payment refunded",
		"payment_id", p.ID,
		"amount", amount,
		"refunded_total", p.RefundedAmount,
		"status", p.Status)
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventPaymentRefunded, map[string]any{
		"payment_id":     p.ID,
		"invoice_id":     p.InvoiceID,
		"amount":         amount,
		"refunded_total": p.RefundedAmount,
		"reason":         reason,
	})
	return p, nil
}

func (s *paymentService) CancelPayment(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != types.PaymentStatusPending {
		return nil, ierr.NewErrorf("cannot cancel a %s payment", p.Status).
			WithHint("Only pending payments can be cancelled").
			WithReportableDetails(map[string]any{
				"payment_id": p.ID,
				"status":     p.Status,
			}).
			Mark(ierr.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	p.Status = types.PaymentStatusCancelled
	p.CancelledAt = &now
	p.Touch(ctx)

	if err := s.PaymentRepo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventPaymentCancelled, map[string]any{
		"payment_id": p.ID,
		"invoice_id": p.InvoiceID,
	})
	return p, nil
}

func (s *paymentService) ConfirmBankTransfer(ctx context.Context, id string) (*payment.Payment, error) {
	p, err := s.PaymentRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Method != types.PaymentMethodBankTransfer {
		return nil, ierr.NewError("payment is not a bank transfer").
			WithHintf("Payment %s was made by %s", p.ID, p.Method).
			Mark(ierr.ErrInvalidOperation)
	}
	if p.Status == types.PaymentStatusCompleted {
		return p, nil
	}

	if p.Status == types.PaymentStatusPending {
		if p, err = s.UpdatePaymentStatus(ctx, id, types.PaymentStatusProcessing, ""); err != nil {
			return nil, err
		}
	}
	p, err = s.UpdatePaymentStatus(ctx, id, types.PaymentStatusCompleted, "")
	if err != nil {
		return nil, err
	}

	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventBankTransferConfirmed, map[string]any{
		"payment_id":     p.ID,
		"invoice_id":     p.InvoiceID,
		"bank_reference": p.BankReference,
	})
	return p, nil
}

func (s *paymentService) RecordManualPayment(ctx context.Context, req *RecordManualPaymentRequest) (*payment.Payment, error) {
	metadata := types.Metadata{}
	if req.Note != "" {
		metadata["note"] = req.Note
	}
	// Manual entries come from a form the operator can resubmit, so the
	// idempotency key is derived from the payment itself.
	key := idempotency.NewGenerator().GenerateKey(idempotency.ScopePayment, map[string]any{
		"invoice_id": req.InvoiceID,
		"method":     types.PaymentMethodManual,
		"amount":     req.Amount.String(),
	})
	p, err := s.CreatePayment(ctx, &CreatePaymentRequest{
		InvoiceID:      req.InvoiceID,
		Method:         types.PaymentMethodManual,
		Amount:         req.Amount,
		Metadata:       metadata,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}

	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventManualPaymentRecorded, map[string]any{
		"payment_id": p.ID,
		"invoice_id": p.InvoiceID,
		"amount":     p.Amount,
	})
	return p, nil
}

func (s *paymentService) ListPendingBankTransfers(ctx context.Context, accountID string) ([]*payment.Payment, error) {
	return s.PaymentRepo.ListPendingBankTransfers(ctx, accountID)
}

func (s *paymentService) GetPaymentStats(ctx context.Context, accountID string) (*PaymentStats, error) {
	items, err := s.PaymentRepo.List(ctx, &types.PaymentFilter{
		QueryFilter: types.NewNoLimitQueryFilter(),
		AccountID:   accountID,
	})
	if err != nil {
		return nil, err
	}

	stats := &PaymentStats{Currency: s.Config.Billing.Currency}
	for _, p := range items {
		stats.TotalCount++
		stats.TotalRefunded = stats.TotalRefunded.Add(p.RefundedAmount)
		switch p.Status {
		case types.PaymentStatusCompleted, types.PaymentStatusRefunded:
			stats.CompletedCount++
			stats.TotalCollected = stats.TotalCollected.Add(p.Amount)
		case types.PaymentStatusPending, types.PaymentStatusProcessing:
			stats.PendingCount++
		case types.PaymentStatusFailed:
			stats.FailedCount++
		}
	}
	return stats, nil
}

func (s *paymentService) HandlePaymentSucceeded(ctx context.Context, paymentID string) error {
	p, err := s.PaymentRepo.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	// Redelivered event for an already settled payment
	if p.Status == types.PaymentStatusCompleted || p.Status == types.PaymentStatusRefunded {
		return nil
	}
	_, err = s.UpdatePaymentStatus(ctx, paymentID, types.PaymentStatusCompleted, "")
	return err
}

func (s *paymentService) HandlePaymentFailed(ctx context.Context, paymentID string, reason string) error {
	p, err := s.PaymentRepo.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.Status == types.PaymentStatusFailed {
		return nil
	}
	// A success that already landed wins over a late failure event
	if p.Status == types.PaymentStatusCompleted || p.Status == types.PaymentStatusRefunded {
		s.Logger.Warnw("ignoring failure event for settled payment",
			"payment_id", paymentID, "status", p.Status)
		return nil
	}
	_, err = s.UpdatePaymentStatus(ctx, paymentID, types.PaymentStatusFailed, reason)
	return err
}

func (s *paymentService) HandlePaymentRefunded(ctx context.Context, paymentID string, amount decimal.Decimal, reason string) error {
	p, err := s.PaymentRepo.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	if p.Status == types.PaymentStatusRefunded {
		return nil
	}
	_, err = s.RefundPayment(ctx, paymentID, amount, reason)
	return err
}

// bankReferenceFor builds the code the payer must quote on the transfer
func bankReferenceFor(inv *invoice.Invoice) string {
	suffix := types.GenerateShortIDWithPrefix("")
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	if suffix == "" {
		suffix = strings.ToUpper(types.GenerateUUID()[20:])
	}
	if inv.InvoiceNumber != "" {
		return fmt.Sprintf("%s-%s", inv.InvoiceNumber, suffix)
	}
	return fmt.Sprintf("BLC-%d-%s", time.Now().Unix(), suffix)
}
