package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocapp/billing/internal/api/dto"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/service"
)

type WebhookHandler struct {
	payments service.PaymentService
	log      *logger.Logger
}

func NewWebhookHandler(payments service.PaymentService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{payments: payments, log: log}
}

// HandlePaymentEvent ingests processor callbacks. Unknown event types are
// acknowledged so the processor does not retry them forever.
func (h *WebhookHandler) HandlePaymentEvent(c *gin.Context) {
	var event dto.WebhookEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid webhook payload").
			Mark(ierr.ErrValidation))
		return
	}
	if err := event.Validate(); err != nil {
		c.Error(err)
		return
	}

	ctx := c.Request.Context()

	var err error
	switch event.Type {
	case dto.WebhookPaymentSucceeded:
		err = h.payments.HandlePaymentSucceeded(ctx, event.Data.PaymentID)
	case dto.WebhookPaymentFailed:
		err = h.payments.HandlePaymentFailed(ctx, event.Data.PaymentID, event.Data.Reason)
	case dto.WebhookPaymentRefunded:
		err = h.payments.HandlePaymentRefunded(ctx, event.Data.PaymentID, event.Data.Amount, event.Data.Reason)
	default:
		h.log.Warnw("ignoring unknown webhook event type", "event_id", event.ID, "type", event.Type)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if err != nil {
		h.log.Error("Failed to process webhook event", "error", err, "event_id", event.ID)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "processed"})
}
