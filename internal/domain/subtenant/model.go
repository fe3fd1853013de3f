package subtenant

import (
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/types"
)

// Source records which resolution tier surfaced a sub-tenant for billing
type Source string

const (
	SourceDirect Source = "direct"
	SourceGroup  Source = "group"
	SourceLegacy Source = "legacy_owner"
)

// SubTenant is a billable organizational unit (a single property
// association) with its own suspension flag
type SubTenant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AccountID string `json:"account_id"`
	// GroupID links the sub-tenant to a tenant group, if any
	GroupID string `json:"group_id,omitempty"`
	// LegacyOwnerID is the historical owner field, consulted only when
	// neither direct ownership nor group membership resolves anything
	LegacyOwnerID string `json:"legacy_owner_id,omitempty"`

	BillingStatus types.BillingStatus `json:"billing_status"`
	// SuspendedByGroup is a denormalized cache of the owning group's
	// suspension, maintained by group suspend/reactivate. The group's
	// billing status stays the source of truth; every consumer computes
	// the logical OR.
	SuspendedByGroup bool `json:"suspended_by_group"`

	// Source is set during resolution and not persisted
	Source Source `json:"-"`

	types.BaseModel
}

// EffectivelySuspended reports whether the sub-tenant is excluded from
// billing and editing: suspended directly, flagged by its group, or member
// of a group that is currently suspended
func (s *SubTenant) EffectivelySuspended(groupSuspended bool) bool {
	return s.BillingStatus == types.BillingStatusSuspended || s.SuspendedByGroup || groupSuspended
}

// Validate validates the sub-tenant
func (s *SubTenant) Validate() error {
	if s.ID == "" {
		return ierr.NewError("sub-tenant id is required").
			WithHint("Sub-tenant ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if s.Name == "" {
		return ierr.NewError("sub-tenant name is required").
			WithHint("Sub-tenant name cannot be empty").
			Mark(ierr.ErrValidation)
	}
	return s.BillingStatus.Validate()
}
