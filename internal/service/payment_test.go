package service

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/blocapp/billing/internal/domain/invoice"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/pdf"
	"github.com/blocapp/billing/internal/repository/docstore"
	"github.com/blocapp/billing/internal/testutil"
	"github.com/blocapp/billing/internal/types"
)

type PaymentServiceSuite struct {
	testutil.BaseServiceTestSuite
	params   ServiceParams
	repos    *docstore.Repositories
	payments PaymentService
	invoices InvoiceService
}

func TestPaymentService(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.repos = docstore.NewRepositories(s.DB(), s.Config(), s.Logger(), s.Cache())
	s.params = NewServiceParams(
		s.Logger(), s.Config(), s.DB(), s.Audit(),
		pdf.NewNoopGenerator(s.Logger()), s.repos)
	s.payments = NewPaymentService(s.params)
	s.invoices = NewInvoiceService(s.params)
}

// seedInvoice writes a pending invoice directly, bypassing generation
func (s *PaymentServiceSuite) seedInvoice(id, number string, total string) *invoice.Invoice {
	now := time.Now().UTC()
	amount := decimal.RequireFromString(total)
	inv := &invoice.Invoice{
		ID:            id,
		AccountID:     "acct_1",
		InvoiceNumber: number,
		Status:        types.InvoiceStatusPending,
		PeriodStart:   now.AddDate(0, -1, 0),
		PeriodEnd:     now,
		IssuedAt:      now,
		DueAt:         now.AddDate(0, 0, 14),
		TotalUnits:    9,
		PricePerUnit:  decimal.RequireFromString("5.00"),
		Subtotal:      amount,
		TotalAmount:   amount,
		Currency:      "RON",
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.repos.Invoice.Create(s.GetContext(), inv))
	return inv
}

func (s *PaymentServiceSuite) TestManualPaymentCompletesImmediately() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")

	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodManual,
	})
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, p.Status)
	s.NotNil(p.CompletedAt)
	s.True(p.Amount.Equal(decimal.RequireFromString("45.00")))

	settled, err := s.repos.Invoice.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, settled.Status)
	s.Equal(p.ID, settled.PaymentID)
}

func (s *PaymentServiceSuite) TestBankTransferGetsReference() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")

	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodBankTransfer,
	})
	s.NoError(err)
	s.Equal(types.PaymentStatusPending, p.Status)
	s.True(strings.HasPrefix(p.BankReference, "BLC-2026-000001-"))

	// The invoice stays pending until the transfer is confirmed
	stored, err := s.repos.Invoice.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPending, stored.Status)
}

func (s *PaymentServiceSuite) TestConfirmBankTransferSettlesInvoice() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodBankTransfer,
	})
	s.NoError(err)

	confirmed, err := s.payments.ConfirmBankTransfer(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, confirmed.Status)
	s.NotNil(confirmed.ProcessingAt)
	s.NotNil(confirmed.CompletedAt)

	settled, err := s.repos.Invoice.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, settled.Status)

	// Confirming again is a no-op
	again, err := s.payments.ConfirmBankTransfer(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, again.Status)
}

func (s *PaymentServiceSuite) TestCannotPayPaidInvoice() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	_, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodManual,
	})
	s.NoError(err)

	_, err = s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodCard,
	})
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *PaymentServiceSuite) TestIdempotencyKeyReturnsExisting() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")

	first, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID:      inv.ID,
		Method:         types.PaymentMethodBankTransfer,
		IdempotencyKey: "idem_abc",
	})
	s.NoError(err)

	second, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID:      inv.ID,
		Method:         types.PaymentMethodBankTransfer,
		IdempotencyKey: "idem_abc",
	})
	s.NoError(err)
	s.Equal(first.ID, second.ID)
}

func (s *PaymentServiceSuite) TestRefundSequence() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodManual,
	})
	s.NoError(err)

	// Partial refund keeps the payment completed
	p, err = s.payments.RefundPayment(s.GetContext(), p.ID, decimal.RequireFromString("20.00"), "overcharge")
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, p.Status)
	s.True(p.RefundedAmount.Equal(decimal.RequireFromString("20.00")))

	// Second refund exhausts the amount and flips the status
	p, err = s.payments.RefundPayment(s.GetContext(), p.ID, decimal.RequireFromString("25.00"), "cancelled service")
	s.NoError(err)
	s.Equal(types.PaymentStatusRefunded, p.Status)
	s.True(p.RefundedAmount.Equal(decimal.RequireFromString("45.00")))

	// Any further refund exceeds the payment amount
	_, err = s.payments.RefundPayment(s.GetContext(), p.ID, decimal.RequireFromString("1.00"), "again")
	s.Error(err)
}

func (s *PaymentServiceSuite) TestRefundOverRemainingConflicts() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodManual,
	})
	s.NoError(err)

	_, err = s.payments.RefundPayment(s.GetContext(), p.ID, decimal.RequireFromString("20.00"), "")
	s.NoError(err)

	_, err = s.payments.RefundPayment(s.GetContext(), p.ID, decimal.RequireFromString("26.00"), "")
	s.Error(err)
	s.True(ierr.IsConflict(err))
}

func (s *PaymentServiceSuite) TestRefundPendingPaymentFails() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodBankTransfer,
	})
	s.NoError(err)

	_, err = s.payments.RefundPayment(s.GetContext(), p.ID, decimal.RequireFromString("10.00"), "")
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *PaymentServiceSuite) TestCancelOnlyFromPending() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodCard,
	})
	s.NoError(err)

	cancelled, err := s.payments.CancelPayment(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCancelled, cancelled.Status)
	s.NotNil(cancelled.CancelledAt)

	// Processing payments cannot be cancelled
	inv2 := s.seedInvoice("inv_2", "BLC-2026-000002", "45.00")
	p2, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv2.ID,
		Method:    types.PaymentMethodCard,
	})
	s.NoError(err)
	_, err = s.payments.UpdatePaymentStatus(s.GetContext(), p2.ID, types.PaymentStatusProcessing, "")
	s.NoError(err)

	_, err = s.payments.CancelPayment(s.GetContext(), p2.ID)
	s.Error(err)
	s.True(ierr.IsInvalidTransition(err))
}

func (s *PaymentServiceSuite) TestStatusTimestamps() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodCard,
	})
	s.NoError(err)

	p, err = s.payments.UpdatePaymentStatus(s.GetContext(), p.ID, types.PaymentStatusProcessing, "")
	s.NoError(err)
	s.NotNil(p.ProcessingAt)
	s.Nil(p.CompletedAt)

	p, err = s.payments.UpdatePaymentStatus(s.GetContext(), p.ID, types.PaymentStatusFailed, "card declined")
	s.NoError(err)
	s.NotNil(p.FailedAt)
	s.Require().NotNil(p.FailureReason)
	s.Equal("card declined", *p.FailureReason)
}

func (s *PaymentServiceSuite) TestWebhookSucceededIsIdempotent() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodCard,
	})
	s.NoError(err)

	s.NoError(s.payments.HandlePaymentSucceeded(s.GetContext(), p.ID))
	// Redelivery of the same event
	s.NoError(s.payments.HandlePaymentSucceeded(s.GetContext(), p.ID))

	stored, err := s.repos.Payment.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, stored.Status)
}

func (s *PaymentServiceSuite) TestLateFailureAfterSuccessIsIgnored() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodCard,
	})
	s.NoError(err)

	s.NoError(s.payments.HandlePaymentSucceeded(s.GetContext(), p.ID))
	s.NoError(s.payments.HandlePaymentFailed(s.GetContext(), p.ID, "late event"))

	stored, err := s.repos.Payment.Get(s.GetContext(), p.ID)
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, stored.Status)
}

func (s *PaymentServiceSuite) TestRecordManualPayment() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")

	p, err := s.payments.RecordManualPayment(s.GetContext(), &RecordManualPaymentRequest{
		InvoiceID: inv.ID,
		Note:      "paid cash at office",
	})
	s.NoError(err)
	s.Equal(types.PaymentStatusCompleted, p.Status)
	s.Equal("paid cash at office", p.Metadata["note"])

	settled, err := s.repos.Invoice.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Equal(types.InvoiceStatusPaid, settled.Status)

	// Resubmitting the same form returns the recorded payment
	replay, err := s.payments.RecordManualPayment(s.GetContext(), &RecordManualPaymentRequest{
		InvoiceID: inv.ID,
		Note:      "paid cash at office",
	})
	s.NoError(err)
	s.Equal(p.ID, replay.ID)
}

func (s *PaymentServiceSuite) TestPaymentStats() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	inv2 := s.seedInvoice("inv_2", "BLC-2026-000002", "30.00")

	_, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodManual,
	})
	s.NoError(err)
	_, err = s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv2.ID,
		Method:    types.PaymentMethodBankTransfer,
	})
	s.NoError(err)

	stats, err := s.payments.GetPaymentStats(s.GetContext(), "acct_1")
	s.NoError(err)
	s.Equal(2, stats.TotalCount)
	s.Equal(1, stats.CompletedCount)
	s.Equal(1, stats.PendingCount)
	s.True(stats.TotalCollected.Equal(decimal.RequireFromString("45.00")))
}

func (s *PaymentServiceSuite) TestListPendingBankTransfers() {
	inv := s.seedInvoice("inv_1", "BLC-2026-000001", "45.00")
	p, err := s.payments.CreatePayment(s.GetContext(), &CreatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    types.PaymentMethodBankTransfer,
	})
	s.NoError(err)

	pending, err := s.payments.ListPendingBankTransfers(s.GetContext(), "acct_1")
	s.NoError(err)
	s.Len(pending, 1)
	s.Equal(p.ID, pending[0].ID)
}
