package types

import (
	"github.com/samber/lo"

	ierr "github.com/blocapp/billing/internal/errors"
)

// BillingStatus is the suspension flag carried by sub-tenants and tenant
// groups, independent of the account subscription
type BillingStatus string

const (
	BillingStatusActive    BillingStatus = "active"
	BillingStatusSuspended BillingStatus = "suspended"
)

func (s BillingStatus) String() string {
	return string(s)
}

func (s BillingStatus) Validate() error {
	allowed := []BillingStatus{
		BillingStatusActive,
		BillingStatusSuspended,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid billing status").
			WithHint("Please provide a valid billing status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SheetStatus is the lifecycle state of a billing period snapshot. Only
// published sheets count toward billing.
type SheetStatus string

const (
	SheetStatusDraft     SheetStatus = "draft"
	SheetStatusPublished SheetStatus = "published"
)

func (s SheetStatus) String() string {
	return string(s)
}

func (s SheetStatus) Validate() error {
	allowed := []SheetStatus{
		SheetStatusDraft,
		SheetStatusPublished,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewError("invalid sheet status").
			WithHint("Please provide a valid sheet status").
			WithReportableDetails(map[string]any{
				"allowed": allowed,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
