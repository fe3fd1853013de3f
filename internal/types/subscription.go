package types

import (
	"github.com/samber/lo"

	ierr "github.com/blocapp/billing/internal/errors"
)

// SubscriptionStatus represents the persisted state of a tenant account's
// subscription. The status used for permission checks is the effective
// status, derived on every read; see account.Subscription.EffectiveStatus.
type SubscriptionStatus string

const (
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	allowed := []SubscriptionStatus{
		SubscriptionStatusTrial,
		SubscriptionStatusActive,
		SubscriptionStatusPastDue,
		SubscriptionStatusSuspended,
		SubscriptionStatusCancelled,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid subscription status").
			WithHint("Please provide a valid subscription status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
				"status":  s,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsReadOnly reports whether the status grants view access only
func (s SubscriptionStatus) IsReadOnly() bool {
	return s == SubscriptionStatusPastDue
}

// IsBlocked reports whether the status blocks all access, including view
func (s SubscriptionStatus) IsBlocked() bool {
	return s == SubscriptionStatusSuspended || s == SubscriptionStatusCancelled
}

// Permissions is the set of product rights derived from an effective
// subscription status
type Permissions struct {
	CanEdit            bool `json:"can_edit"`
	CanPublish         bool `json:"can_publish"`
	CanExportPDF       bool `json:"can_export_pdf"`
	CanCreateSubTenant bool `json:"can_create_sub_tenant"`
	CanView            bool `json:"can_view"`
	IsReadOnly         bool `json:"is_read_only"`
	IsBlocked          bool `json:"is_blocked"`
}

// PermissionsFor returns the permission matrix for an effective status:
// trial/active get full rights, past_due is view-only, suspended and
// cancelled are fully blocked.
func PermissionsFor(s SubscriptionStatus) Permissions {
	switch s {
	case SubscriptionStatusTrial, SubscriptionStatusActive:
		return Permissions{
			CanEdit:            true,
			CanPublish:         true,
			CanExportPDF:       true,
			CanCreateSubTenant: true,
			CanView:            true,
		}
	case SubscriptionStatusPastDue:
		return Permissions{
			CanView:    true,
			IsReadOnly: true,
		}
	default:
		return Permissions{
			IsReadOnly: true,
			IsBlocked:  true,
		}
	}
}

// BillingMode determines whether invoices are raised per tenant account or
// rolled up per tenant group
type BillingMode string

const (
	BillingModePerTenant BillingMode = "per_tenant"
	BillingModePerGroup  BillingMode = "per_group"
)

func (m BillingMode) String() string {
	return string(m)
}

func (m BillingMode) Validate() error {
	allowed := []BillingMode{
		BillingModePerTenant,
		BillingModePerGroup,
	}
	if !lo.Contains(allowed, m) {
		return ierr.NewError("invalid billing mode").
			WithHint("Please provide a valid billing mode").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
