package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/service"
)

type BillingHandler struct {
	service service.BillingService
	log     *logger.Logger
}

func NewBillingHandler(service service.BillingService, log *logger.Logger) *BillingHandler {
	return &BillingHandler{service: service, log: log}
}

func (h *BillingHandler) EstimateMonthlyBill(c *gin.Context) {
	accountID := c.Param("account_id")
	resp, err := h.service.EstimateMonthlyBill(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to estimate monthly bill", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BillingHandler) HasBillableUnits(c *gin.Context) {
	accountID := c.Param("account_id")
	has, err := h.service.HasBillableUnits(c.Request.Context(), accountID)
	if err != nil {
		h.log.Error("Failed to check billable units", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_billable_units": has})
}
