package service

import (
	"context"

	"github.com/blocapp/billing/internal/audit"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	"github.com/blocapp/billing/internal/types"
)

// TenantGroupService manages group level suspension. Suspending a group
// cascades the denormalized flag onto its members; the group's own billing
// status stays the source of truth either way.
type TenantGroupService interface {
	GetGroup(ctx context.Context, id string) (*tenantgroup.TenantGroup, error)
	SuspendGroup(ctx context.Context, id string, reason string) (*tenantgroup.TenantGroup, error)
	ReactivateGroup(ctx context.Context, id string) (*tenantgroup.TenantGroup, error)
}

type tenantGroupService struct {
	ServiceParams
}

func NewTenantGroupService(params ServiceParams) TenantGroupService {
	return &tenantGroupService{ServiceParams: params}
}

func (s *tenantGroupService) GetGroup(ctx context.Context, id string) (*tenantgroup.TenantGroup, error) {
	return s.TenantGroupRepo.Get(ctx, id)
}

func (s *tenantGroupService) SuspendGroup(ctx context.Context, id string, reason string) (*tenantgroup.TenantGroup, error) {
	group, err := s.setGroupStatus(ctx, id, types.BillingStatusSuspended)
	if err != nil {
		return nil, err
	}
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventGroupSuspended, map[string]any{
		"group_id": id,
		"reason":   reason,
	})
	return group, nil
}

func (s *tenantGroupService) ReactivateGroup(ctx context.Context, id string) (*tenantgroup.TenantGroup, error) {
	group, err := s.setGroupStatus(ctx, id, types.BillingStatusActive)
	if err != nil {
		return nil, err
	}
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventGroupReactivated, map[string]any{
		"group_id": id,
	})
	return group, nil
}

func (s *tenantGroupService) setGroupStatus(ctx context.Context, id string, status types.BillingStatus) (*tenantgroup.TenantGroup, error) {
	group, err := s.TenantGroupRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if group.BillingStatus == status {
		return group, nil
	}

	group.BillingStatus = status
	group.Touch(ctx)
	if err := s.TenantGroupRepo.Update(ctx, group); err != nil {
		return nil, err
	}

	// Cascade the cached flag so per sub-tenant reads stay cheap. A member
	// that fails to update is logged; its effective suspension still
	// follows the group status.
	suspended := status == types.BillingStatusSuspended
	members, err := s.SubTenantRepo.ListByGroup(ctx, id)
	if err != nil {
		s.Logger.Warnw("failed to list group members for cascade",
			"group_id", id, "error", err)
		return group, nil
	}
	for _, st := range members {
		if st.SuspendedByGroup == suspended {
			continue
		}
		st.SuspendedByGroup = suspended
		st.Touch(ctx)
		if err := s.SubTenantRepo.Update(ctx, st); err != nil {
			s.Logger.Warnw("failed to cascade group suspension",
				"group_id", id,
				"sub_tenant_id", st.ID,
				"error", err)
		}
	}

	s.Logger.Infow("tenant group status changed",
		"group_id", id,
		"status", status,
		"members", len(members))
	return group, nil
}
