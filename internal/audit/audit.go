package audit

import (
	"context"
	"time"

	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/store"
	"github.com/blocapp/billing/internal/types"
)

// Activity event types emitted by the billing core
const (
	EventInvoiceGenerated      = "INVOICE_GENERATED"
	EventInvoiceFinalized      = "INVOICE_FINALIZED"
	EventInvoicePaid           = "INVOICE_PAID"
	EventInvoicePaymentFailed  = "INVOICE_PAYMENT_FAILED"
	EventInvoiceCancelled      = "INVOICE_CANCELLED"
	EventPaymentInitiated      = "PAYMENT_INITIATED"
	EventPaymentCompleted      = "PAYMENT_COMPLETED"
	EventPaymentFailed         = "PAYMENT_FAILED"
	EventPaymentRefunded       = "PAYMENT_REFUNDED"
	EventPaymentCancelled      = "PAYMENT_CANCELLED"
	EventManualPaymentRecorded = "MANUAL_PAYMENT_RECORDED"
	EventBankTransferConfirmed = "BANK_TRANSFER_CONFIRMED"
	EventTrialExtended         = "ADMIN_TRIAL_EXTENDED"
	EventCustomPricingSet      = "ADMIN_CUSTOM_PRICING_SET"
	EventAccountSuspended      = "ADMIN_ACCOUNT_SUSPENDED"
	EventAccountReactivated    = "ADMIN_ACCOUNT_REACTIVATED"
	EventSubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	EventBillingContactUpdated = "BILLING_CONTACT_UPDATED"
	EventGroupSuspended        = "GROUP_SUSPENDED"
	EventGroupReactivated      = "GROUP_REACTIVATED"
)

// Logger is the consumed activity sink. Audit storage itself is external;
// the core only emits events.
type Logger interface {
	LogActivity(ctx context.Context, actorID, eventType string, details map[string]any)
}

// StoreLogger persists activity events to the document store. Failures are
// logged and swallowed: an audit write must never fail a business operation.
type StoreLogger struct {
	db  store.Client
	log *logger.Logger
}

func NewStoreLogger(db store.Client, log *logger.Logger) *StoreLogger {
	return &StoreLogger{db: db, log: log}
}

func (l *StoreLogger) LogActivity(ctx context.Context, actorID, eventType string, details map[string]any) {
	id := types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_EVENT)
	doc := store.Document{
		"id":         id,
		"actor_id":   actorID,
		"event_type": eventType,
		"details":    details,
		"request_id": types.GetRequestID(ctx),
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := l.db.Set(ctx, store.CollectionActivityLog, id, doc); err != nil {
		l.log.Warnw("failed to record activity event",
			"event_type", eventType,
			"actor_id", actorID,
			"error", err,
		)
	}
}

// NoopLogger discards activity events
type NoopLogger struct{}

func NewNoopLogger() *NoopLogger { return &NoopLogger{} }

func (NoopLogger) LogActivity(context.Context, string, string, map[string]any) {}
