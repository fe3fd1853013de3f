package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/blocapp/billing/internal/domain/access"
	"github.com/blocapp/billing/internal/domain/account"
	"github.com/blocapp/billing/internal/domain/subtenant"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/pdf"
	"github.com/blocapp/billing/internal/repository/docstore"
	"github.com/blocapp/billing/internal/testutil"
	"github.com/blocapp/billing/internal/types"
)

type AccessPolicyServiceSuite struct {
	testutil.BaseServiceTestSuite
	repos  *docstore.Repositories
	params ServiceParams
	access AccessPolicyService
}

func TestAccessPolicyService(t *testing.T) {
	suite.Run(t, new(AccessPolicyServiceSuite))
}

func (s *AccessPolicyServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.repos = docstore.NewRepositories(s.DB(), s.Config(), s.Logger(), s.Cache())
	s.params = NewServiceParams(
		s.Logger(), s.Config(), s.DB(), s.Audit(),
		pdf.NewNoopGenerator(s.Logger()), s.repos)
	s.access = NewAccessPolicyService(s.params)
}

func (s *AccessPolicyServiceSuite) seedAccount(id string, sub *account.Subscription) {
	s.NoError(s.repos.Account.Create(s.GetContext(), &account.Account{
		ID:           id,
		Email:        id + "@example.com",
		Name:         "Test Account",
		Subscription: sub,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *AccessPolicyServiceSuite) activeSubscription() *account.Subscription {
	start := time.Now().UTC().AddDate(0, 0, -10)
	end := start.AddDate(0, 1, 0)
	return &account.Subscription{
		Status:             types.SubscriptionStatusActive,
		CurrentPeriodStart: &start,
		CurrentPeriodEnd:   &end,
	}
}

func (s *AccessPolicyServiceSuite) TestEnsureCanEditActiveAccount() {
	s.seedAccount("acct_1", s.activeSubscription())

	s.NoError(s.access.EnsureCanEdit(s.GetContext(), "acct_1", ""))
}

func (s *AccessPolicyServiceSuite) TestEnsureCanEditExpiredTrial() {
	expired := time.Now().UTC().AddDate(0, 0, -3)
	s.seedAccount("acct_1", &account.Subscription{
		Status:      types.SubscriptionStatusTrial,
		TrialEndsAt: &expired,
	})

	err := s.access.EnsureCanEdit(s.GetContext(), "acct_1", "")
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *AccessPolicyServiceSuite) TestEnsureCanEditSuspendedSubTenant() {
	s.seedAccount("acct_1", s.activeSubscription())
	s.NoError(s.repos.SubTenant.Create(s.GetContext(), &subtenant.SubTenant{
		ID:            "sub_1",
		Name:          "Asociatia Nord",
		AccountID:     "acct_1",
		BillingStatus: types.BillingStatusSuspended,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))

	err := s.access.EnsureCanEdit(s.GetContext(), "acct_1", "sub_1")
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *AccessPolicyServiceSuite) TestResolvePolicySuspendedGroup() {
	s.seedAccount("acct_1", s.activeSubscription())
	s.NoError(s.repos.TenantGroup.Create(s.GetContext(), &tenantgroup.TenantGroup{
		ID:            "grp_1",
		Name:          "Grup Imobiliar",
		BillingStatus: types.BillingStatusSuspended,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))
	s.NoError(s.repos.SubTenant.Create(s.GetContext(), &subtenant.SubTenant{
		ID:            "sub_1",
		Name:          "Asociatia Nord",
		AccountID:     "acct_1",
		GroupID:       "grp_1",
		BillingStatus: types.BillingStatusActive,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))

	policy, err := s.access.ResolvePolicy(s.GetContext(), "acct_1", "sub_1")
	s.NoError(err)
	s.False(policy.IsBlocked)
	s.True(policy.IsReadOnly)
	s.False(policy.Permissions.CanEdit)
	s.Equal(access.SourceGroup, policy.Source)
	s.Equal(access.ReasonGroupSuspended, policy.Reason)
}
