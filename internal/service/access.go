package service

import (
	"context"
	"time"

	"github.com/blocapp/billing/internal/domain/access"
	"github.com/blocapp/billing/internal/domain/subtenant"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	ierr "github.com/blocapp/billing/internal/errors"
)

// AccessPolicyService resolves what a user may do within a sub-tenant,
// cascading restrictions from the subscription through the tenant group
// down to the sub-tenant itself
type AccessPolicyService interface {
	// ResolvePolicy computes the policy for one sub-tenant under the
	// account. subTenantID may be empty for an account scoped check.
	ResolvePolicy(ctx context.Context, accountID, subTenantID string) (*access.Policy, error)

	// EnsureCanEdit fails with a permission error unless the resolved
	// policy allows edits
	EnsureCanEdit(ctx context.Context, accountID, subTenantID string) error
}

type accessPolicyService struct {
	ServiceParams
}

func NewAccessPolicyService(params ServiceParams) AccessPolicyService {
	return &accessPolicyService{ServiceParams: params}
}

func (s *accessPolicyService) ResolvePolicy(ctx context.Context, accountID, subTenantID string) (*access.Policy, error) {
	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var st *subtenant.SubTenant
	var group *tenantgroup.TenantGroup
	if subTenantID != "" {
		st, err = s.SubTenantRepo.Get(ctx, subTenantID)
		if err != nil {
			return nil, err
		}
		if st.GroupID != "" {
			group, err = s.TenantGroupRepo.Get(ctx, st.GroupID)
			if err != nil {
				if !ierr.IsNotFound(err) {
					return nil, err
				}
				// A dangling group reference falls back to the sub-tenant's
				// own denormalized suspension flag
				group = nil
			}
		}
	}

	policy := access.Compute(acct.Subscription, st, group, time.Now().UTC())
	return &policy, nil
}

func (s *accessPolicyService) EnsureCanEdit(ctx context.Context, accountID, subTenantID string) error {
	policy, err := s.ResolvePolicy(ctx, accountID, subTenantID)
	if err != nil {
		return err
	}
	if !policy.Permissions.CanEdit {
		return ierr.NewError("editing is not permitted").
			WithHintf("Access is restricted: %s", policy.Reason).
			WithReportableDetails(map[string]any{
				"account_id":    accountID,
				"sub_tenant_id": subTenantID,
				"reason":        policy.Reason,
				"source":        policy.Source,
			}).
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}
