package access

import (
	"time"

	"github.com/blocapp/billing/internal/domain/account"
	"github.com/blocapp/billing/internal/domain/subtenant"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	"github.com/blocapp/billing/internal/types"
)

// Source identifies which level of the hierarchy produced a restriction
type Source string

const (
	SourceSubscription Source = "subscription"
	SourceGroup        Source = "tenant_group"
	SourceSubTenant    Source = "sub_tenant"
	SourceNone         Source = "none"
)

// Reason codes surfaced to clients alongside a restriction
const (
	ReasonSubscriptionCancelled = "subscription_cancelled"
	ReasonSubscriptionSuspended = "subscription_suspended"
	ReasonTrialExpired          = "trial_expired"
	ReasonPastDue               = "payment_past_due"
	ReasonGroupSuspended        = "group_suspended"
	ReasonSubTenantSuspended    = "sub_tenant_suspended"
	ReasonSuspendedViaGroup     = "sub_tenant_suspended_via_group"
)

// Policy is the resolved access decision for one sub-tenant under one
// account. Restrictions cascade: the subscription outranks the group, the
// group outranks the sub-tenant, and only the first restriction that fires
// is reported.
type Policy struct {
	IsReadOnly  bool              `json:"is_read_only"`
	IsBlocked   bool              `json:"is_blocked"`
	Reason      string            `json:"reason,omitempty"`
	Source      Source            `json:"source"`
	Permissions types.Permissions `json:"permissions"`
}

// Compute resolves the policy from the subscription downward. subTenant and
// group may be nil when the check is account scoped.
func Compute(sub *account.Subscription, st *subtenant.SubTenant, group *tenantgroup.TenantGroup, now time.Time) Policy {
	status := sub.EffectiveStatus(now)
	perms := types.PermissionsFor(status)

	if status.IsBlocked() {
		reason := ReasonSubscriptionCancelled
		if status == types.SubscriptionStatusSuspended {
			reason = ReasonSubscriptionSuspended
		}
		return Policy{
			IsBlocked:   true,
			IsReadOnly:  true,
			Reason:      reason,
			Source:      SourceSubscription,
			Permissions: perms,
		}
	}

	if status.IsReadOnly() {
		reason := ReasonPastDue
		if sub.IsTrialExpired(now) {
			reason = ReasonTrialExpired
		}
		return Policy{
			IsReadOnly:  true,
			Reason:      reason,
			Source:      SourceSubscription,
			Permissions: perms,
		}
	}

	groupSuspended := group != nil && group.IsSuspended()
	if groupSuspended && (st == nil || st.GroupID == group.ID) {
		return Policy{
			IsReadOnly:  true,
			Reason:      ReasonGroupSuspended,
			Source:      SourceGroup,
			Permissions: readOnly(perms),
		}
	}

	if st != nil && st.EffectivelySuspended(groupSuspended) {
		reason := ReasonSubTenantSuspended
		if st.BillingStatus != types.BillingStatusSuspended {
			reason = ReasonSuspendedViaGroup
		}
		return Policy{
			IsReadOnly:  true,
			Reason:      reason,
			Source:      SourceSubTenant,
			Permissions: readOnly(perms),
		}
	}

	return Policy{Source: SourceNone, Permissions: perms}
}

// readOnly strips everything but view, the same shape a past_due
// subscription gets
func readOnly(p types.Permissions) types.Permissions {
	p.CanEdit = false
	p.CanPublish = false
	p.CanExportPDF = false
	p.CanCreateSubTenant = false
	p.IsReadOnly = true
	return p
}
