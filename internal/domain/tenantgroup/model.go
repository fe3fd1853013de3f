package tenantgroup

import (
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/types"
)

// TenantGroup is an optional grouping of sub-tenants under shared billing
// and suspension control (an organization)
type TenantGroup struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	BillingStatus types.BillingStatus `json:"billing_status"`

	types.BaseModel
}

// IsSuspended reports whether the whole group is suspended
func (g *TenantGroup) IsSuspended() bool {
	return g != nil && g.BillingStatus == types.BillingStatusSuspended
}

// Validate validates the tenant group
func (g *TenantGroup) Validate() error {
	if g.ID == "" {
		return ierr.NewError("tenant group id is required").
			WithHint("Tenant group ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return g.BillingStatus.Validate()
}
