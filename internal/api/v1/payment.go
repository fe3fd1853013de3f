package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocapp/billing/internal/api/dto"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/service"
	"github.com/blocapp/billing/internal/types"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{service: service, log: log}
}

func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Error("Failed to bind JSON", "error", err)
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreatePayment(c.Request.Context(), req.ToService())
	if err != nil {
		h.log.Error("Failed to create payment", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Payment ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get payment", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var filter types.PaymentFilter
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

	resp, err := h.service.ListPayments(c.Request.Context(), &filter)
	if err != nil {
		h.log.Error("Failed to list payments", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) UpdatePaymentStatus(c *gin.Context) {
	id := c.Param("id")
	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdatePaymentStatus(c.Request.Context(), id, req.Status, req.FailureReason)
	if err != nil {
		h.log.Error("Failed to update payment status", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) RefundPayment(c *gin.Context) {
	id := c.Param("id")
	var req dto.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RefundPayment(c.Request.Context(), id, req.Amount, req.Reason)
	if err != nil {
		h.log.Error("Failed to refund payment", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) CancelPayment(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.service.CancelPayment(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to cancel payment", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) ConfirmBankTransfer(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.service.ConfirmBankTransfer(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to confirm bank transfer", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) RecordManualPayment(c *gin.Context) {
	var req dto.RecordManualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.RecordManualPayment(c.Request.Context(), req.ToService())
	if err != nil {
		h.log.Error("Failed to record manual payment", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PaymentHandler) ListPendingBankTransfers(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.ListPendingBankTransfers(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to list pending bank transfers", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) GetPaymentStats(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.GetPaymentStats(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to get payment stats", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
