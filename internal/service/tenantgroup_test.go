package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/blocapp/billing/internal/domain/subtenant"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	"github.com/blocapp/billing/internal/pdf"
	"github.com/blocapp/billing/internal/repository/docstore"
	"github.com/blocapp/billing/internal/testutil"
	"github.com/blocapp/billing/internal/types"
)

type TenantGroupServiceSuite struct {
	testutil.BaseServiceTestSuite
	repos  *docstore.Repositories
	groups TenantGroupService
}

func TestTenantGroupService(t *testing.T) {
	suite.Run(t, new(TenantGroupServiceSuite))
}

func (s *TenantGroupServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.repos = docstore.NewRepositories(s.DB(), s.Config(), s.Logger(), s.Cache())
	params := NewServiceParams(
		s.Logger(), s.Config(), s.DB(), s.Audit(),
		pdf.NewNoopGenerator(s.Logger()), s.repos)
	s.groups = NewTenantGroupService(params)
}

func (s *TenantGroupServiceSuite) seed() {
	s.NoError(s.repos.TenantGroup.Create(s.GetContext(), &tenantgroup.TenantGroup{
		ID:            "grp_1",
		Name:          "Organizatia Test",
		BillingStatus: types.BillingStatusActive,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))
	for _, id := range []string{"st_a", "st_b"} {
		s.NoError(s.repos.SubTenant.Create(s.GetContext(), &subtenant.SubTenant{
			ID:            id,
			Name:          "Asociatia " + id,
			GroupID:       "grp_1",
			BillingStatus: types.BillingStatusActive,
			BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
		}))
	}
}

func (s *TenantGroupServiceSuite) TestSuspendCascadesToMembers() {
	s.seed()

	group, err := s.groups.SuspendGroup(s.GetContext(), "grp_1", "unpaid invoices")
	s.NoError(err)
	s.Equal(types.BillingStatusSuspended, group.BillingStatus)

	members, err := s.repos.SubTenant.ListByGroup(s.GetContext(), "grp_1")
	s.NoError(err)
	s.Len(members, 2)
	for _, st := range members {
		s.True(st.SuspendedByGroup)
		// The member's own billing status is untouched
		s.Equal(types.BillingStatusActive, st.BillingStatus)
	}
}

func (s *TenantGroupServiceSuite) TestReactivateClearsCachedFlag() {
	s.seed()
	_, err := s.groups.SuspendGroup(s.GetContext(), "grp_1", "unpaid")
	s.NoError(err)

	group, err := s.groups.ReactivateGroup(s.GetContext(), "grp_1")
	s.NoError(err)
	s.Equal(types.BillingStatusActive, group.BillingStatus)

	members, err := s.repos.SubTenant.ListByGroup(s.GetContext(), "grp_1")
	s.NoError(err)
	for _, st := range members {
		s.False(st.SuspendedByGroup)
	}
}

func (s *TenantGroupServiceSuite) TestSuspendIsIdempotent() {
	s.seed()
	_, err := s.groups.SuspendGroup(s.GetContext(), "grp_1", "unpaid")
	s.NoError(err)
	group, err := s.groups.SuspendGroup(s.GetContext(), "grp_1", "unpaid")
	s.NoError(err)
	s.Equal(types.BillingStatusSuspended, group.BillingStatus)
}
