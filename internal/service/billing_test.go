package service

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/blocapp/billing/internal/domain/account"
	"github.com/blocapp/billing/internal/domain/sheet"
	"github.com/blocapp/billing/internal/domain/subtenant"
	"github.com/blocapp/billing/internal/domain/tenantgroup"
	"github.com/blocapp/billing/internal/pdf"
	"github.com/blocapp/billing/internal/repository/docstore"
	"github.com/blocapp/billing/internal/store"
	"github.com/blocapp/billing/internal/testutil"
	"github.com/blocapp/billing/internal/types"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	params  ServiceParams
	repos   *docstore.Repositories
	billing BillingService
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.repos = docstore.NewRepositories(s.DB(), s.Config(), s.Logger(), s.Cache())
	s.params = NewServiceParams(
		s.Logger(), s.Config(), s.DB(), s.Audit(),
		pdf.NewNoopGenerator(s.Logger()), s.repos)
	s.billing = NewBillingService(s.params)
}

func (s *BillingServiceSuite) seedAccount(id string, directIDs, groupIDs []string) *account.Account {
	trialEnd := time.Now().UTC().AddDate(0, 0, 30)
	acct := &account.Account{
		ID:                 id,
		Email:              id + "@example.com",
		Name:               "Test Account",
		DirectSubTenantIDs: directIDs,
		GroupIDs:           groupIDs,
		Subscription: &account.Subscription{
			Status:      types.SubscriptionStatusTrial,
			TrialEndsAt: &trialEnd,
			BillingMode: types.BillingModePerTenant,
		},
		BaseModel: types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.repos.Account.Create(s.GetContext(), acct))
	return acct
}

func (s *BillingServiceSuite) seedSubTenant(id, name, groupID string, status types.BillingStatus) *subtenant.SubTenant {
	st := &subtenant.SubTenant{
		ID:            id,
		Name:          name,
		GroupID:       groupID,
		BillingStatus: status,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}
	s.NoError(s.repos.SubTenant.Create(s.GetContext(), st))
	return st
}

func (s *BillingServiceSuite) seedGroup(id string, status types.BillingStatus) {
	s.NoError(s.repos.TenantGroup.Create(s.GetContext(), &tenantgroup.TenantGroup{
		ID:            id,
		Name:          "Group " + id,
		BillingStatus: status,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	}))
}

func (s *BillingServiceSuite) seedSheet(subTenantID string, status types.SheetStatus, unitIDs ...string) {
	entries := make([]sheet.Entry, 0, len(unitIDs))
	for _, id := range unitIDs {
		entries = append(entries, sheet.Entry{UnitID: id})
	}
	now := time.Now().UTC()
	doc := &sheet.Sheet{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SHEET),
		SubTenantID: subTenantID,
		Status:      status,
		PeriodStart: now.AddDate(0, -1, 0),
		PeriodEnd:   now,
		Entries:     entries,
	}
	if status == types.SheetStatusPublished {
		doc.PublishedAt = &now
	}
	raw, err := store.DocumentFrom(doc)
	s.NoError(err)
	s.NoError(s.DB().Set(s.GetContext(), store.CollectionSheets, doc.ID, raw))
}

func (s *BillingServiceSuite) TestCountsUnionOfUnitsAcrossSheets() {
	acct := s.seedAccount("acct_1", []string{"st_a"}, nil)
	s.seedSubTenant("st_a", "Asociatia A", "", types.BillingStatusActive)

	// ap2 appears in both snapshots and must count once
	s.seedSheet("st_a", types.SheetStatusPublished, "ap1", "ap2")
	s.seedSheet("st_a", types.SheetStatusPublished, "ap2", "ap3")

	calc, err := s.billing.CountBillableUnits(s.GetContext(), acct)
	s.NoError(err)
	s.Equal(3, calc.TotalUnits)
	s.Len(calc.Lines, 1)
	s.Equal(3, calc.Lines[0].Units)
}

func (s *BillingServiceSuite) TestIgnoresDraftSheets() {
	acct := s.seedAccount("acct_1", []string{"st_a"}, nil)
	s.seedSubTenant("st_a", "Asociatia A", "", types.BillingStatusActive)

	s.seedSheet("st_a", types.SheetStatusPublished, "ap1")
	s.seedSheet("st_a", types.SheetStatusDraft, "ap2", "ap3")

	calc, err := s.billing.CountBillableUnits(s.GetContext(), acct)
	s.NoError(err)
	s.Equal(1, calc.TotalUnits)
}

func (s *BillingServiceSuite) TestOmitsZeroUnitSubTenants() {
	acct := s.seedAccount("acct_1", []string{"st_a", "st_b"}, nil)
	s.seedSubTenant("st_a", "Asociatia A", "", types.BillingStatusActive)
	s.seedSubTenant("st_b", "Asociatia B", "", types.BillingStatusActive)

	s.seedSheet("st_a", types.SheetStatusPublished, "ap1", "ap2")

	calc, err := s.billing.CountBillableUnits(s.GetContext(), acct)
	s.NoError(err)
	s.Equal(2, calc.TotalUnits)
	s.Len(calc.Lines, 1)
	s.Equal("st_a", calc.Lines[0].SubTenantID)
}

func (s *BillingServiceSuite) TestExcludesSuspendedSubTenants() {
	acct := s.seedAccount("acct_1", []string{"st_a", "st_b", "st_c"}, nil)
	s.seedSubTenant("st_a", "Asociatia A", "", types.BillingStatusActive)
	s.seedSubTenant("st_b", "Asociatia B", "", types.BillingStatusSuspended)
	stc := s.seedSubTenant("st_c", "Asociatia C", "", types.BillingStatusActive)
	stc.SuspendedByGroup = true
	s.NoError(s.repos.SubTenant.Update(s.GetContext(), stc))

	s.seedSheet("st_a", types.SheetStatusPublished, "ap1", "ap2")
	s.seedSheet("st_b", types.SheetStatusPublished, "ap3", "ap4", "ap5")
	s.seedSheet("st_c", types.SheetStatusPublished, "ap6")

	calc, err := s.billing.CountBillableUnits(s.GetContext(), acct)
	s.NoError(err)
	s.Equal(2, calc.TotalUnits)
	s.ElementsMatch([]string{"st_b", "st_c"}, calc.Suspended)
}

func (s *BillingServiceSuite) TestExcludesMembersOfSuspendedGroup() {
	acct := s.seedAccount("acct_1", nil, []string{"grp_1"})
	s.seedGroup("grp_1", types.BillingStatusSuspended)
	// The cached flag is stale on purpose; the group status must win
	s.seedSubTenant("st_a", "Asociatia A", "grp_1", types.BillingStatusActive)
	s.seedSheet("st_a", types.SheetStatusPublished, "ap1", "ap2")

	calc, err := s.billing.CountBillableUnits(s.GetContext(), acct)
	s.NoError(err)
	s.Equal(0, calc.TotalUnits)
	s.Equal([]string{"st_a"}, calc.Suspended)
}

func (s *BillingServiceSuite) TestResolutionMergesDirectAndGroup() {
	// st_shared is reachable both directly and through the group
	acct := s.seedAccount("acct_1", []string{"st_direct", "st_shared"}, []string{"grp_1"})
	s.seedGroup("grp_1", types.BillingStatusActive)
	s.seedSubTenant("st_direct", "Direct", "", types.BillingStatusActive)
	s.seedSubTenant("st_shared", "Shared", "grp_1", types.BillingStatusActive)
	s.seedSubTenant("st_member", "Member", "grp_1", types.BillingStatusActive)

	resolved, err := s.billing.ResolveSubTenants(s.GetContext(), acct)
	s.NoError(err)
	ids := lo.Map(resolved, func(st *subtenant.SubTenant, _ int) string { return st.ID })
	s.ElementsMatch([]string{"st_direct", "st_shared", "st_member"}, ids)
}

func (s *BillingServiceSuite) TestLegacyOwnerFallbackOnlyWhenEmpty() {
	acct := s.seedAccount("acct_1", nil, nil)

	legacy := s.seedSubTenant("st_legacy", "Legacy", "", types.BillingStatusActive)
	legacy.LegacyOwnerID = "acct_1"
	s.NoError(s.repos.SubTenant.Update(s.GetContext(), legacy))

	resolved, err := s.billing.ResolveSubTenants(s.GetContext(), acct)
	s.NoError(err)
	s.Len(resolved, 1)
	s.Equal("st_legacy", resolved[0].ID)
	s.Equal(subtenant.SourceLegacy, resolved[0].Source)

	// Once a direct sub-tenant exists, the legacy tier is not consulted
	acct.DirectSubTenantIDs = []string{"st_direct"}
	s.NoError(s.repos.Account.Update(s.GetContext(), acct))
	s.seedSubTenant("st_direct", "Direct", "", types.BillingStatusActive)

	resolved, err = s.billing.ResolveSubTenants(s.GetContext(), acct)
	s.NoError(err)
	s.Len(resolved, 1)
	s.Equal("st_direct", resolved[0].ID)
}

func (s *BillingServiceSuite) TestSkipsSubTenantsWithMissingSnapshots() {
	// st_ghost is referenced by the account but its record is gone
	acct := s.seedAccount("acct_1", []string{"st_a", "st_ghost"}, nil)
	s.seedSubTenant("st_a", "Asociatia A", "", types.BillingStatusActive)
	s.seedSheet("st_a", types.SheetStatusPublished, "ap1")

	calc, err := s.billing.CountBillableUnits(s.GetContext(), acct)
	s.NoError(err)
	s.Equal(1, calc.TotalUnits)
}

func (s *BillingServiceSuite) TestCalculateAmountsRoundsEachStep() {
	amounts := s.billing.CalculateAmounts(
		3,
		decimal.RequireFromString("3.333"),
		decimal.RequireFromString("10"),
		decimal.RequireFromString("19"),
	)
	// subtotal 9.999 -> 10.00, discount 1.00, tax on 9.00 at 19% -> 1.71
	s.True(amounts.Subtotal.Equal(decimal.RequireFromString("10.00")))
	s.True(amounts.DiscountAmount.Equal(decimal.RequireFromString("1.00")))
	s.True(amounts.TaxAmount.Equal(decimal.RequireFromString("1.71")))
	s.True(amounts.Total.Equal(decimal.RequireFromString("10.71")))
}

func (s *BillingServiceSuite) TestEstimateUsesCustomPricing() {
	acct := s.seedAccount("acct_1", []string{"st_a"}, nil)
	s.seedSubTenant("st_a", "Asociatia A", "", types.BillingStatusActive)
	s.seedSheet("st_a", types.SheetStatusPublished, "ap1", "ap2", "ap3", "ap4")

	acct.Subscription.CustomPricing = &account.CustomPricing{
		Enabled:         true,
		PricePerUnit:    decimal.RequireFromString("4.00"),
		DiscountPercent: decimal.RequireFromString("25"),
		SetBy:           "admin_1",
		SetAt:           time.Now().UTC(),
	}
	s.NoError(s.repos.Account.Update(s.GetContext(), acct))

	est, err := s.billing.EstimateMonthlyBill(s.GetContext(), "acct_1")
	s.NoError(err)
	s.Equal(4, est.TotalUnits)
	s.True(est.Amounts.Subtotal.Equal(decimal.RequireFromString("16.00")))
	s.True(est.Amounts.DiscountAmount.Equal(decimal.RequireFromString("4.00")))
	s.True(est.Amounts.Total.Equal(decimal.RequireFromString("12.00")))
}

func (s *BillingServiceSuite) TestHasBillableUnits() {
	acct := s.seedAccount("acct_1", []string{"st_a"}, nil)
	s.seedSubTenant("st_a", "Asociatia A", "", types.BillingStatusActive)

	has, err := s.billing.HasBillableUnits(s.GetContext(), acct.ID)
	s.NoError(err)
	s.False(has)

	s.seedSheet("st_a", types.SheetStatusPublished, "ap1")
	has, err = s.billing.HasBillableUnits(s.GetContext(), acct.ID)
	s.NoError(err)
	s.True(has)
}
