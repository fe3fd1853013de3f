package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blocapp/billing/internal/audit"
	"github.com/blocapp/billing/internal/domain/account"
	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/store"
	"github.com/blocapp/billing/internal/types"
)

// SubscriptionService manages the account's recurring billing state
type SubscriptionService interface {
	// GetSubscription returns the subscription with its effective status
	// and derived trial fields
	GetSubscription(ctx context.Context, accountID string) (*SubscriptionView, error)

	// StartTrial puts a fresh account on trial for the configured number
	// of days
	StartTrial(ctx context.Context, accountID string) (*SubscriptionView, error)

	// ExtendTrial pushes the trial end out by the given days. The new end
	// is computed from whichever is later, now or the current end, so an
	// extension never shortens a trial.
	ExtendTrial(ctx context.Context, accountID string, days int) (*SubscriptionView, error)

	// Activate moves the account onto a paid period
	Activate(ctx context.Context, accountID string, periodStart, periodEnd time.Time) (*SubscriptionView, error)

	Suspend(ctx context.Context, accountID string, reason string) (*SubscriptionView, error)
	Reactivate(ctx context.Context, accountID string) (*SubscriptionView, error)

	SetCustomPricing(ctx context.Context, req *SetCustomPricingRequest) (*SubscriptionView, error)
	UpdateBillingContact(ctx context.Context, accountID string, contact *account.BillingContact) (*SubscriptionView, error)

	// WatchSubscription streams subscription changes for an account until
	// the returned handle is called
	WatchSubscription(ctx context.Context, accountID string, onChange func(*SubscriptionView)) (store.Unsubscribe, error)
}

// SubscriptionView is the subscription as clients see it: stored state plus
// the fields derived per read
type SubscriptionView struct {
	AccountID          string                   `json:"account_id"`
	Status             types.SubscriptionStatus `json:"status"`
	EffectiveStatus    types.SubscriptionStatus `json:"effective_status"`
	TrialEndsAt        *time.Time               `json:"trial_ends_at,omitempty"`
	TrialDaysRemaining int                      `json:"trial_days_remaining"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
	BillingContact     *account.BillingContact  `json:"billing_contact,omitempty"`
	CustomPricing      *account.CustomPricing   `json:"custom_pricing,omitempty"`
	BillingMode        types.BillingMode        `json:"billing_mode"`
	HasPaymentMethod   bool                     `json:"has_payment_method"`
	Permissions        types.Permissions        `json:"permissions"`
}

// SetCustomPricingRequest is an admin pricing override for one account
type SetCustomPricingRequest struct {
	AccountID       string          `json:"account_id" validate:"required"`
	Enabled         bool            `json:"enabled"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Reason          string          `json:"reason,omitempty"`
}

func (r *SetCustomPricingRequest) Validate() error {
	if r.AccountID == "" {
		return ierr.NewError("account id is required").
			WithHint("Account ID cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if r.Enabled {
		if r.PricePerUnit.IsNegative() {
			return ierr.NewError("invalid price per unit").
				WithHint("Price per unit must not be negative").
				Mark(ierr.ErrValidation)
		}
		if r.DiscountPercent.IsNegative() || r.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
			return ierr.NewError("invalid discount").
				WithHint("Discount percent must be between 0 and 100").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

func (s *subscriptionService) GetSubscription(ctx context.Context, accountID string) (*SubscriptionView, error) {
	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return s.view(accountID, acct.Subscription), nil
}

func (s *subscriptionService) StartTrial(ctx context.Context, accountID string) (*SubscriptionView, error) {
	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.Subscription != nil && acct.Subscription.Status != "" {
		return nil, ierr.NewError("account already has a subscription").
			WithHintf("Account %s is %s", accountID, acct.Subscription.Status).
			Mark(ierr.ErrConflict)
	}

	trialEnd := time.Now().UTC().AddDate(0, 0, s.Config.Billing.TrialDays)
	sub := &account.Subscription{
		Status:      types.SubscriptionStatusTrial,
		TrialEndsAt: &trialEnd,
		BillingMode: types.BillingModePerTenant,
	}
	if err := s.AccountRepo.UpdateSubscription(ctx, accountID, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("trial started",
		"account_id", accountID, "trial_ends_at", trialEnd)
	return s.view(accountID, sub), nil
}

func (s *subscriptionService) ExtendTrial(ctx context.Context, accountID string, days int) (*SubscriptionView, error) {
	if days <= 0 {
		return nil, ierr.NewError("invalid extension").
			WithHint("Extension days must be greater than zero").
			Mark(ierr.ErrValidation)
	}

	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sub := acct.Subscription
	if sub == nil {
		return nil, ierr.NewError("account has no subscription").
			WithHintf("Account %s cannot have its trial extended", accountID).
			Mark(ierr.ErrInvalidOperation)
	}

	// Extending from whichever is later means expired trials resume from
	// today and running trials keep their accrued time
	now := time.Now().UTC()
	base := now
	if sub.TrialEndsAt != nil && sub.TrialEndsAt.After(now) {
		base = *sub.TrialEndsAt
	}
	newEnd := base.AddDate(0, 0, days)

	sub.TrialEndsAt = &newEnd
	sub.Status = types.SubscriptionStatusTrial
	if err := s.AccountRepo.UpdateSubscription(ctx, accountID, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("trial extended",
		"account_id", accountID,
		"days", days,
		"trial_ends_at", newEnd)
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventTrialExtended, map[string]any{
		"account_id":    accountID,
		"days":          days,
		"trial_ends_at": newEnd,
	})
	return s.view(accountID, sub), nil
}

func (s *subscriptionService) Activate(ctx context.Context, accountID string, periodStart, periodEnd time.Time) (*SubscriptionView, error) {
	if !periodEnd.After(periodStart) {
		return nil, ierr.NewError("invalid billing period").
			WithHint("Period end must be after period start").
			Mark(ierr.ErrValidation)
	}

	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sub := acct.Subscription
	if sub == nil {
		sub = &account.Subscription{BillingMode: types.BillingModePerTenant}
	}

	sub.Status = types.SubscriptionStatusActive
	sub.CurrentPeriodStart = &periodStart
	sub.CurrentPeriodEnd = &periodEnd
	if err := s.AccountRepo.UpdateSubscription(ctx, accountID, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription activated",
		"account_id", accountID,
		"period_start", periodStart,
		"period_end", periodEnd)
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventSubscriptionActivated, map[string]any{
		"account_id":   accountID,
		"period_start": periodStart,
		"period_end":   periodEnd,
	})
	return s.view(accountID, sub), nil
}

func (s *subscriptionService) Suspend(ctx context.Context, accountID string, reason string) (*SubscriptionView, error) {
	sub, err := s.transition(ctx, accountID, types.SubscriptionStatusSuspended)
	if err != nil {
		return nil, err
	}
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventAccountSuspended, map[string]any{
		"account_id": accountID,
		"reason":     reason,
	})
	return s.view(accountID, sub), nil
}

func (s *subscriptionService) Reactivate(ctx context.Context, accountID string) (*SubscriptionView, error) {
	sub, err := s.transition(ctx, accountID, types.SubscriptionStatusActive)
	if err != nil {
		return nil, err
	}
	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventAccountReactivated, map[string]any{
		"account_id": accountID,
	})
	return s.view(accountID, sub), nil
}

func (s *subscriptionService) transition(ctx context.Context, accountID string, status types.SubscriptionStatus) (*account.Subscription, error) {
	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sub := acct.Subscription
	if sub == nil {
		return nil, ierr.NewError("account has no subscription").
			WithHintf("Account %s has no billing state", accountID).
			Mark(ierr.ErrInvalidOperation)
	}
	if sub.Status == status {
		return sub, nil
	}

	sub.Status = status
	if err := s.AccountRepo.UpdateSubscription(ctx, accountID, sub); err != nil {
		return nil, err
	}
	s.Logger.Infow("subscription status changed",
		"account_id", accountID, "status", status)
	return sub, nil
}

func (s *subscriptionService) SetCustomPricing(ctx context.Context, req *SetCustomPricingRequest) (*SubscriptionView, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	acct, err := s.AccountRepo.Get(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	sub := acct.Subscription
	if sub == nil {
		return nil, ierr.NewError("account has no subscription").
			WithHintf("Account %s has no billing state", req.AccountID).
			Mark(ierr.ErrInvalidOperation)
	}

	// The override only affects invoices generated from now on
	sub.CustomPricing = &account.CustomPricing{
		Enabled:         req.Enabled,
		PricePerUnit:    req.PricePerUnit,
		DiscountPercent: req.DiscountPercent,
		Reason:          req.Reason,
		SetBy:           types.GetActorID(ctx),
		SetAt:           time.Now().UTC(),
	}
	if err := s.AccountRepo.UpdateSubscription(ctx, req.AccountID, sub); err != nil {
		return nil, err
	}

	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventCustomPricingSet, map[string]any{
		"account_id":       req.AccountID,
		"enabled":          req.Enabled,
		"price_per_unit":   req.PricePerUnit,
		"discount_percent": req.DiscountPercent,
		"reason":           req.Reason,
	})
	return s.view(req.AccountID, sub), nil
}

func (s *subscriptionService) UpdateBillingContact(ctx context.Context, accountID string, contact *account.BillingContact) (*SubscriptionView, error) {
	if contact == nil || contact.Name == "" || contact.Email == "" {
		return nil, ierr.NewError("invalid billing contact").
			WithHint("Billing contact needs at least a name and email").
			Mark(ierr.ErrValidation)
	}

	acct, err := s.AccountRepo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sub := acct.Subscription
	if sub == nil {
		return nil, ierr.NewError("account has no subscription").
			WithHintf("Account %s has no billing state", accountID).
			Mark(ierr.ErrInvalidOperation)
	}

	sub.BillingContact = contact
	if err := s.AccountRepo.UpdateSubscription(ctx, accountID, sub); err != nil {
		return nil, err
	}

	s.Audit.LogActivity(ctx, types.GetActorID(ctx), audit.EventBillingContactUpdated, map[string]any{
		"account_id": accountID,
	})
	return s.view(accountID, sub), nil
}

func (s *subscriptionService) WatchSubscription(ctx context.Context, accountID string, onChange func(*SubscriptionView)) (store.Unsubscribe, error) {
	return s.AccountRepo.Watch(ctx, accountID, func(sub *account.Subscription) {
		onChange(s.view(accountID, sub))
	})
}

func (s *subscriptionService) view(accountID string, sub *account.Subscription) *SubscriptionView {
	now := time.Now().UTC()
	v := &SubscriptionView{
		AccountID:       accountID,
		EffectiveStatus: sub.EffectiveStatus(now),
		Permissions:     sub.Permissions(now),
	}
	if sub == nil {
		v.Status = types.SubscriptionStatusCancelled
		return v
	}
	v.Status = sub.Status
	v.TrialEndsAt = sub.TrialEndsAt
	v.TrialDaysRemaining = sub.TrialDaysRemaining(now)
	v.CurrentPeriodStart = sub.CurrentPeriodStart
	v.CurrentPeriodEnd = sub.CurrentPeriodEnd
	v.BillingContact = sub.BillingContact
	v.CustomPricing = sub.CustomPricing
	v.BillingMode = sub.BillingMode
	v.HasPaymentMethod = sub.HasPaymentMethod()
	return v
}
