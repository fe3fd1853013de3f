package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/blocapp/billing/internal/domain/account"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/pdf"
	"github.com/blocapp/billing/internal/repository/docstore"
	"github.com/blocapp/billing/internal/store"
	"github.com/blocapp/billing/internal/testutil"
	"github.com/blocapp/billing/internal/types"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	params ServiceParams
	repos  *docstore.Repositories
	subs   SubscriptionService
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.repos = docstore.NewRepositories(s.DB(), s.Config(), s.Logger(), s.Cache())
	s.params = NewServiceParams(
		s.Logger(), s.Config(), s.DB(), s.Audit(),
		pdf.NewNoopGenerator(s.Logger()), s.repos)
	s.subs = NewSubscriptionService(s.params)
}

func (s *SubscriptionServiceSuite) seedAccount(id string, sub *account.Subscription) {
	s.NoError(s.repos.Account.Create(s.GetContext(), &account.Account{
		ID:           id,
		Email:        id + "@example.com",
		Name:         "Test Account",
		Subscription: sub,
		BaseModel:    types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *SubscriptionServiceSuite) TestStartTrial() {
	s.seedAccount("acct_1", nil)

	view, err := s.subs.StartTrial(s.GetContext(), "acct_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusTrial, view.Status)
	s.Require().NotNil(view.TrialEndsAt)
	s.Equal(90, view.TrialDaysRemaining)
	s.True(view.Permissions.CanEdit)
}

func (s *SubscriptionServiceSuite) TestExpiredTrialReadsAsPastDue() {
	expired := time.Now().UTC().AddDate(0, 0, -3)
	s.seedAccount("acct_1", &account.Subscription{
		Status:      types.SubscriptionStatusTrial,
		TrialEndsAt: &expired,
	})

	view, err := s.subs.GetSubscription(s.GetContext(), "acct_1")
	s.NoError(err)
	// Stored status is untouched; only the effective status degrades
	s.Equal(types.SubscriptionStatusTrial, view.Status)
	s.Equal(types.SubscriptionStatusPastDue, view.EffectiveStatus)
	s.Equal(0, view.TrialDaysRemaining)
	s.False(view.Permissions.CanEdit)
	s.True(view.Permissions.CanView)
	s.False(view.Permissions.CanExportPDF)
}

func (s *SubscriptionServiceSuite) TestExtendTrialFromRunningTrialKeepsAccruedTime() {
	end := time.Now().UTC().AddDate(0, 0, 10)
	s.seedAccount("acct_1", &account.Subscription{
		Status:      types.SubscriptionStatusTrial,
		TrialEndsAt: &end,
	})

	view, err := s.subs.ExtendTrial(s.GetContext(), "acct_1", 30)
	s.NoError(err)
	s.Require().NotNil(view.TrialEndsAt)
	s.WithinDuration(end.AddDate(0, 0, 30), *view.TrialEndsAt, time.Second)
}

func (s *SubscriptionServiceSuite) TestExtendTrialFromExpiredTrialResumesFromNow() {
	expired := time.Now().UTC().AddDate(0, 0, -20)
	s.seedAccount("acct_1", &account.Subscription{
		Status:      types.SubscriptionStatusTrial,
		TrialEndsAt: &expired,
	})

	view, err := s.subs.ExtendTrial(s.GetContext(), "acct_1", 14)
	s.NoError(err)
	s.Require().NotNil(view.TrialEndsAt)
	s.WithinDuration(time.Now().UTC().AddDate(0, 0, 14), *view.TrialEndsAt, 5*time.Second)
	// The account is editable again
	s.Equal(types.SubscriptionStatusTrial, view.EffectiveStatus)
	s.True(view.Permissions.CanEdit)
}

func (s *SubscriptionServiceSuite) TestExtendTrialFailedWriteNotVisibleFromCache() {
	trialEnd := time.Now().UTC().AddDate(0, 0, 5)
	s.seedAccount("acct_1", &account.Subscription{
		Status:      types.SubscriptionStatusTrial,
		TrialEndsAt: &trialEnd,
	})

	// Warm the account cache
	_, err := s.repos.Account.Get(s.GetContext(), "acct_1")
	s.NoError(err)

	// Remove the backing document so the subscription write fails
	s.NoError(s.DB().Delete(s.GetContext(), store.CollectionAccounts, "acct_1"))

	_, err = s.subs.ExtendTrial(s.GetContext(), "acct_1", 30)
	s.Error(err)

	// A cached read after the failed write must still show the persisted
	// trial end, not the attempted extension
	acct, err := s.repos.Account.Get(s.GetContext(), "acct_1")
	s.NoError(err)
	s.Require().NotNil(acct.Subscription)
	s.Require().NotNil(acct.Subscription.TrialEndsAt)
	s.WithinDuration(trialEnd, *acct.Subscription.TrialEndsAt, time.Second)
}

func (s *SubscriptionServiceSuite) TestExtendTrialNeverShortens() {
	end := time.Now().UTC().AddDate(0, 0, 60)
	s.seedAccount("acct_1", &account.Subscription{
		Status:      types.SubscriptionStatusTrial,
		TrialEndsAt: &end,
	})

	view, err := s.subs.ExtendTrial(s.GetContext(), "acct_1", 1)
	s.NoError(err)
	s.True(view.TrialEndsAt.After(end))

	_, err = s.subs.ExtendTrial(s.GetContext(), "acct_1", 0)
	s.Error(err)
	s.True(ierr.IsValidation(err))

	_, err = s.subs.ExtendTrial(s.GetContext(), "acct_1", -5)
	s.Error(err)
}

func (s *SubscriptionServiceSuite) TestActivate() {
	s.seedAccount("acct_1", &account.Subscription{
		Status: types.SubscriptionStatusTrial,
	})

	start := time.Now().UTC()
	end := start.AddDate(0, 1, 0)
	view, err := s.subs.Activate(s.GetContext(), "acct_1", start, end)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, view.Status)
	s.Require().NotNil(view.CurrentPeriodEnd)
	s.True(view.CurrentPeriodEnd.Equal(end))
}

func (s *SubscriptionServiceSuite) TestSuspendAndReactivate() {
	s.seedAccount("acct_1", &account.Subscription{
		Status: types.SubscriptionStatusActive,
	})

	view, err := s.subs.Suspend(s.GetContext(), "acct_1", "chargeback")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusSuspended, view.Status)
	s.True(view.Permissions.IsBlocked)
	s.False(view.Permissions.CanView)

	view, err = s.subs.Reactivate(s.GetContext(), "acct_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, view.Status)
	s.True(view.Permissions.CanEdit)
}

func (s *SubscriptionServiceSuite) TestSetCustomPricing() {
	s.seedAccount("acct_1", &account.Subscription{
		Status: types.SubscriptionStatusActive,
	})

	view, err := s.subs.SetCustomPricing(s.GetContext(), &SetCustomPricingRequest{
		AccountID:       "acct_1",
		Enabled:         true,
		PricePerUnit:    decimal.RequireFromString("3.50"),
		DiscountPercent: decimal.RequireFromString("10"),
		Reason:          "bulk agreement",
	})
	s.NoError(err)
	s.Require().NotNil(view.CustomPricing)
	s.True(view.CustomPricing.Enabled)
	s.Equal("user_test", view.CustomPricing.SetBy)

	_, err = s.subs.SetCustomPricing(s.GetContext(), &SetCustomPricingRequest{
		AccountID:       "acct_1",
		Enabled:         true,
		DiscountPercent: decimal.RequireFromString("150"),
	})
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestUpdateBillingContact() {
	s.seedAccount("acct_1", &account.Subscription{
		Status: types.SubscriptionStatusActive,
	})

	view, err := s.subs.UpdateBillingContact(s.GetContext(), "acct_1", &account.BillingContact{
		Name:  "Maria Ionescu",
		Email: "maria@example.com",
	})
	s.NoError(err)
	s.Require().NotNil(view.BillingContact)
	s.Equal("Maria Ionescu", view.BillingContact.Name)

	_, err = s.subs.UpdateBillingContact(s.GetContext(), "acct_1", &account.BillingContact{Name: "No Email"})
	s.Error(err)
}

func (s *SubscriptionServiceSuite) TestWatchSubscription() {
	s.seedAccount("acct_1", &account.Subscription{
		Status: types.SubscriptionStatusActive,
	})

	changes := make(chan *SubscriptionView, 4)
	unsub, err := s.subs.WatchSubscription(s.GetContext(), "acct_1", func(v *SubscriptionView) {
		changes <- v
	})
	s.NoError(err)
	defer unsub()

	_, err = s.subs.Suspend(s.GetContext(), "acct_1", "test")
	s.NoError(err)

	select {
	case v := <-changes:
		s.Equal(types.SubscriptionStatusSuspended, v.Status)
	case <-time.After(2 * time.Second):
		s.Fail("no subscription change delivered")
	}
}
