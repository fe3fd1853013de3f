package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/blocapp/billing/internal/api/dto"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/service"
	"github.com/blocapp/billing/internal/types"
)

type InvoiceHandler struct {
	service service.InvoiceService
	log     *logger.Logger
}

func NewInvoiceHandler(service service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: service, log: log}
}

func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	var req dto.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GenerateInvoice(c.Request.Context(), req.ToService())
	if err != nil {
		h.log.Error("Failed to generate invoice", "error", err)
		c.Error(err)
		return
	}

	if resp.NothingToBill {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get invoice", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var filter types.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	// The listing is scoped to the account in the path; a query override
	// naming a different account is rejected
	accountID := c.Param("account_id")
	if filter.AccountID != "" && filter.AccountID != accountID {
		c.Error(ierr.NewError("account id mismatch").
			WithHint("The account_id query parameter must match the path").
			Mark(ierr.ErrValidation))
		return
	}
	filter.AccountID = accountID

	resp, err := h.service.ListInvoices(c.Request.Context(), &filter)
	if err != nil {
		h.log.Error("Failed to list invoices", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) GetCurrentInvoice(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.GetCurrentInvoice(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to get current invoice", "error", err)
		c.Error(err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusOK, gin.H{"invoice": nil})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) GetPendingInvoices(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.GetPendingInvoices(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to list pending invoices", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) GetInvoiceStats(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.GetInvoiceStats(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to get invoice stats", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) HasInvoiceForPeriod(c *gin.Context) {
	accountID := c.Param("account_id")
	periodStart, err := time.Parse(time.RFC3339, c.Query("period_start"))
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("period_start must be an RFC3339 timestamp").
			Mark(ierr.ErrValidation))
		return
	}

	exists, err := h.service.HasInvoiceForPeriod(c.Request.Context(), accountID, periodStart)
	if err != nil {
		h.log.Error("Failed to check period", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	id := c.Param("id")
	var req dto.CancelInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	ctx := c.Request.Context()
	resp, err := h.service.CancelInvoice(ctx, id, types.GetActorID(ctx), req.Reason)
	if err != nil {
		h.log.Error("Failed to cancel invoice", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) FinalizeInvoice(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.service.FinalizeInvoice(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to finalize invoice", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) MarkInvoicePaid(c *gin.Context) {
	id := c.Param("id")
	var req dto.MarkInvoicePaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.MarkPaid(c.Request.Context(), id, req.Method, req.PaymentID)
	if err != nil {
		h.log.Error("Failed to mark invoice paid", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) MarkInvoiceFailed(c *gin.Context) {
	id := c.Param("id")
	var req dto.MarkInvoiceFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.MarkFailed(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.log.Error("Failed to mark invoice failed", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
