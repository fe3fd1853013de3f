package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocapp/billing/internal/api/dto"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/logger"
	"github.com/blocapp/billing/internal/service"
)

type TenantGroupHandler struct {
	service service.TenantGroupService
	log     *logger.Logger
}

func NewTenantGroupHandler(service service.TenantGroupService, log *logger.Logger) *TenantGroupHandler {
	return &TenantGroupHandler{service: service, log: log}
}

func (h *TenantGroupHandler) GetGroup(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.service.GetGroup(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to get tenant group", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TenantGroupHandler) SuspendGroup(c *gin.Context) {
	id := c.Param("id")
	var req dto.SuspendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.SuspendGroup(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.log.Error("Failed to suspend tenant group", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *TenantGroupHandler) ReactivateGroup(c *gin.Context) {
	id := c.Param("id")
	resp, err := h.service.ReactivateGroup(c.Request.Context(), id)
	if err != nil {
		h.log.Error("Failed to reactivate tenant group", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
