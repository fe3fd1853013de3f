package service

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"

	"github.com/blocapp/billing/internal/domain/account"
	"github.com/blocapp/billing/internal/domain/subtenant"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/types"
)

// maxSheetFetchers bounds the parallel sheet reads per calculation
const maxSheetFetchers = 8

// BillingService counts billable units and prices them. Counting reads only
// published billing period snapshots; a unit referenced by several
// snapshots of the same sub-tenant is still one unit.
type BillingService interface {
	// ResolveSubTenants finds every sub-tenant billable under the account:
	// directly owned ones and group members, deduplicated, with the legacy
	// owner lookup as fallback when both tiers come up empty
	ResolveSubTenants(ctx context.Context, acct *account.Account) ([]*subtenant.SubTenant, error)

	// CountBillableUnits resolves the account's sub-tenants, excludes the
	// suspended ones and counts distinct units per remaining sub-tenant.
	// The returned calculation is never nil; sub-tenants whose snapshots
	// cannot be read are reported in Skipped, not failed on.
	CountBillableUnits(ctx context.Context, acct *account.Account) (*UnitCalculation, error)

	// CalculateAmounts prices a unit count, rounding money at every step
	CalculateAmounts(units int, pricePerUnit, discountPercent, taxRate decimal.Decimal) Amounts

	// EstimateMonthlyBill previews the next invoice total for an account
	EstimateMonthlyBill(ctx context.Context, accountID string) (*BillEstimate, error)

	// HasBillableUnits reports whether an invoice would bill anything
	HasBillableUnits(ctx context.Context, accountID string) (bool, error)
}

// UnitCalculation is the result of one unit count
type UnitCalculation struct {
	TotalUnits int             `json:"total_units"`
	Lines      []SubTenantLine `json:"lines"`
	// Suspended lists sub-tenants excluded because of suspension
	Suspended []string `json:"suspended,omitempty"`
	// Skipped lists sub-tenants whose snapshots could not be read
	Skipped []string `json:"skipped,omitempty"`
}

// SubTenantLine is the unit count for one billable sub-tenant. Sub-tenants
// with zero units are omitted from the calculation.
type SubTenantLine struct {
	SubTenantID string `json:"sub_tenant_id"`
	Name        string `json:"name"`
	Units       int    `json:"units"`
}

// Amounts is a fully priced bill
type Amounts struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

// BillEstimate previews the next invoice for an account
type BillEstimate struct {
	AccountID       string          `json:"account_id"`
	TotalUnits      int             `json:"total_units"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Currency        string          `json:"currency"`
	Amounts         Amounts         `json:"amounts"`
	Lines           []SubTenantLine `json:"lines"`
}

type billingService struct {
	ServiceParams
}

func NewBillingService(params ServiceParams) BillingService {
	return &billingService{ServiceParams: params}
}

func (s *billingService) ResolveSubTenants(ctx context.Context, acct *account.Account) ([]*subtenant.SubTenant, error) {
	direct, err := s.SubTenantRepo.ListByIDs(ctx, acct.DirectSubTenantIDs)
	if err != nil {
		return nil, err
	}
	for _, st := range direct {
		st.Source = subtenant.SourceDirect
	}

	var viaGroups []*subtenant.SubTenant
	for _, groupID := range acct.GroupIDs {
		members, err := s.SubTenantRepo.ListByGroup(ctx, groupID)
		if err != nil {
			return nil, err
		}
		for _, st := range members {
			st.Source = subtenant.SourceGroup
		}
		viaGroups = append(viaGroups, members...)
	}

	// Direct ownership and group membership merge; a sub-tenant reachable
	// both ways counts once
	merged := lo.UniqBy(append(direct, viaGroups...), func(st *subtenant.SubTenant) string {
		return st.ID
	})
	if len(merged) > 0 {
		return merged, nil
	}

	// The legacy owner field is consulted only when the first two tiers
	// resolve nothing
	legacy, err := s.SubTenantRepo.ListByLegacyOwner(ctx, acct.ID)
	if err != nil {
		return nil, err
	}
	for _, st := range legacy {
		st.Source = subtenant.SourceLegacy
	}
	return legacy, nil
}

func (s *billingService) CountBillableUnits(ctx context.Context, acct *account.Account) (*UnitCalculation, error) {
	calc := &UnitCalculation{Lines: []SubTenantLine{}}

	subTenants, err := s.ResolveSubTenants(ctx, acct)
	if err != nil {
		return calc, err
	}
	if len(subTenants) == 0 {
		return calc, nil
	}

	groupSuspension, err := s.loadGroupSuspension(ctx, subTenants)
	if err != nil {
		return calc, err
	}

	var billable []*subtenant.SubTenant
	for _, st := range subTenants {
		if st.EffectivelySuspended(groupSuspension[st.GroupID]) {
			calc.Suspended = append(calc.Suspended, st.ID)
			continue
		}
		billable = append(billable, st)
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(maxSheetFetchers)
	for _, st := range billable {
		p.Go(func() {
			units, err := s.countUnits(ctx, st.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				s.Logger.Warnw("failed to count units for sub-tenant, skipping",
					"sub_tenant_id", st.ID,
					"account_id", acct.ID,
					"error", err)
				calc.Skipped = append(calc.Skipped, st.ID)
				return
			}
			if units == 0 {
				return
			}
			calc.Lines = append(calc.Lines, SubTenantLine{
				SubTenantID: st.ID,
				Name:        st.Name,
				Units:       units,
			})
		})
	}
	p.Wait()

	sort.Slice(calc.Lines, func(i, j int) bool {
		return calc.Lines[i].Name < calc.Lines[j].Name
	})
	for _, line := range calc.Lines {
		calc.TotalUnits += line.Units
	}
	return calc, nil
}

// countUnits unions the unit ids across every published snapshot of the
// sub-tenant
func (s *billingService) countUnits(ctx context.Context, subTenantID string) (int, error) {
	sheets, err := s.SheetRepo.ListPublished(ctx, subTenantID)
	if err != nil {
		return 0, err
	}
	units := make(map[string]struct{})
	for _, sh := range sheets {
		for id := range sh.UnitIDs() {
			units[id] = struct{}{}
		}
	}
	return len(units), nil
}

// loadGroupSuspension fetches each referenced group once and records
// whether it is suspended. A group that cannot be loaded is treated as not
// suspended; the sub-tenant's own denormalized flag still applies.
func (s *billingService) loadGroupSuspension(ctx context.Context, subTenants []*subtenant.SubTenant) (map[string]bool, error) {
	suspension := make(map[string]bool)
	for _, st := range subTenants {
		if st.GroupID == "" {
			continue
		}
		if _, seen := suspension[st.GroupID]; seen {
			continue
		}
		group, err := s.TenantGroupRepo.Get(ctx, st.GroupID)
		if err != nil {
			if ierr.IsNotFound(err) {
				s.Logger.Warnw("sub-tenant references missing group",
					"sub_tenant_id", st.ID,
					"group_id", st.GroupID)
				suspension[st.GroupID] = false
				continue
			}
			return nil, err
		}
		suspension[st.GroupID] = group.IsSuspended()
	}
	return suspension, nil
}

func (s *billingService) CalculateAmounts(units int, pricePerUnit, discountPercent, taxRate decimal.Decimal) Amounts {
	subtotal := types.RoundMoney(pricePerUnit.Mul(decimal.NewFromInt(int64(units))))
	discount := types.RoundMoney(subtotal.Mul(discountPercent).Div(decimal.NewFromInt(100)))
	taxable := subtotal.Sub(discount)
	tax := types.RoundMoney(taxable.Mul(taxRate).Div(decimal.NewFromInt(100)))
	return Amounts{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxAmount:      tax,
		Total:          taxable.Add(tax),
	}
}

func (s *billingService) EstimateMonthlyBill(ctx context.Context, accountID string) (*BillEstimate, error) {
	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}

	calc, err := s.CountBillableUnits(ctx, acct)
	if err != nil {
		return nil, err
	}

	price, discount := acct.Subscription.EffectivePricing(
		s.Config.Billing.PricePerUnit, decimal.Zero)

	return &BillEstimate{
		AccountID:       accountID,
		TotalUnits:      calc.TotalUnits,
		PricePerUnit:    price,
		DiscountPercent: discount,
		Currency:        s.Config.Billing.Currency,
		Amounts:         s.CalculateAmounts(calc.TotalUnits, price, discount, s.Config.Billing.TaxRate),
		Lines:           calc.Lines,
	}, nil
}

func (s *billingService) HasBillableUnits(ctx context.Context, accountID string) (bool, error) {
	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return false, err
	}
	calc, err := s.CountBillableUnits(ctx, acct)
	if err != nil {
		return false, err
	}
	return calc.TotalUnits > 0, nil
}
