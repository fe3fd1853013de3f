package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocapp/billing/internal/api/dto"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/service"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
	access  service.AccessPolicyService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionService, access service.AccessPolicyService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{service: service, access: access, log: log}
}

func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.GetSubscription(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to get subscription", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) StartTrial(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.StartTrial(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to start trial", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *SubscriptionHandler) ExtendTrial(c *gin.Context) {
	accountID := c.Param("account_id")
	var req dto.ExtendTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ExtendTrial(c.Request.Context(), accountID, req.Days)
	if err != nil {
		h.log.Error("Failed to extend trial", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) Activate(c *gin.Context) {
	accountID := c.Param("account_id")
	var req dto.ActivateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Activate(c.Request.Context(), accountID, req.PeriodStart, req.PeriodEnd)
	if err != nil {
		h.log.Error("Failed to activate subscription", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) Suspend(c *gin.Context) {
	accountID := c.Param("account_id")
	var req dto.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Suspend(c.Request.Context(), accountID, req.Reason)
	if err != nil {
		h.log.Error("Failed to suspend subscription", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) Reactivate(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.Reactivate(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to reactivate subscription", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) SetCustomPricing(c *gin.Context) {
	accountID := c.Param("account_id")
	var req dto.SetCustomPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.SetCustomPricing(c.Request.Context(), req.ToService(accountID))
	if err != nil {
		h.log.Error("Failed to set custom pricing", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) UpdateBillingContact(c *gin.Context) {
	accountID := c.Param("account_id")
	var req dto.UpdateBillingContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateBillingContact(c.Request.Context(), accountID, req.ToDomain())
	if err != nil {
		h.log.Error("Failed to update billing contact", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SubscriptionHandler) GetAccessPolicy(c *gin.Context) {
	accountID := c.Param("account_id")
	subTenantID := c.Query("sub_tenant_id")

	resp, err := h.access.ResolvePolicy(c.Request.Context(), accountID, subTenantID)
	if err != nil {
		h.log.Error("Failed to resolve access policy", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
