package account

import (
	"time"

	"github.com/shopspring/decimal"

	ierr "github.com/blocapp/billing/internal/errors"
	"github.com/blocapp/billing/internal/types"
)

// Account is the billed customer: an administrator who owns sub-tenants
// directly, through tenant groups, or through the legacy owner field on the
// sub-tenant itself
type Account struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`

	// DirectSubTenantIDs are the sub-tenants owned directly by the account
	DirectSubTenantIDs []string `json:"direct_sub_tenant_ids,omitempty"`
	// GroupIDs are the tenant groups the account belongs to
	GroupIDs []string `json:"group_ids,omitempty"`

	Subscription *Subscription `json:"subscription,omitempty"`

	types.BaseModel
}

// Clone returns a deep copy. The repository caches clones and hands out
// clones so a caller mutating its copy can never touch the cached document.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.DirectSubTenantIDs = append([]string(nil), a.DirectSubTenantIDs...)
	out.GroupIDs = append([]string(nil), a.GroupIDs...)
	out.Subscription = a.Subscription.Clone()
	return &out
}

// Subscription is the account's recurring billing state. There is exactly
// one per account, embedded in the account document.
type Subscription struct {
	Status             types.SubscriptionStatus `json:"status"`
	TrialEndsAt        *time.Time               `json:"trial_ends_at,omitempty"`
	CurrentPeriodStart *time.Time               `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time               `json:"current_period_end,omitempty"`
	BillingContact     *BillingContact          `json:"billing_contact,omitempty"`
	CustomPricing      *CustomPricing           `json:"custom_pricing,omitempty"`
	BillingMode        types.BillingMode        `json:"billing_mode"`
	PaymentMethodRef   string                   `json:"payment_method_ref,omitempty"`
}

// Clone returns a deep copy of the subscription
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	out := *s
	out.TrialEndsAt = cloneTime(s.TrialEndsAt)
	out.CurrentPeriodStart = cloneTime(s.CurrentPeriodStart)
	out.CurrentPeriodEnd = cloneTime(s.CurrentPeriodEnd)
	if s.BillingContact != nil {
		contact := *s.BillingContact
		out.BillingContact = &contact
	}
	if s.CustomPricing != nil {
		pricing := *s.CustomPricing
		out.CustomPricing = &pricing
	}
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// BillingContact is the invoicing contact. Invoices snapshot it at issue
// time; later edits never touch issued invoices.
type BillingContact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
	TaxID   string `json:"tax_id,omitempty"`
	Address string `json:"address,omitempty"`
}

// CustomPricing is an admin-set override consulted only by future invoice
// generation; it never retroactively changes issued invoices
type CustomPricing struct {
	Enabled         bool            `json:"enabled"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	Reason          string          `json:"reason,omitempty"`
	SetBy           string          `json:"set_by"`
	SetAt           time.Time       `json:"set_at"`
}

// EffectiveStatus derives the status used for every permission check. A
// persisted trial whose trialEndsAt has passed reads as past_due without
// mutating the stored value, so a later payment or trial extension revives
// the account with a plain write.
func (s *Subscription) EffectiveStatus(now time.Time) types.SubscriptionStatus {
	if s == nil {
		return types.SubscriptionStatusCancelled
	}
	if s.Status == types.SubscriptionStatusTrial && s.IsTrialExpired(now) {
		return types.SubscriptionStatusPastDue
	}
	return s.Status
}

// IsTrialExpired reports whether a persisted trial has run out
func (s *Subscription) IsTrialExpired(now time.Time) bool {
	if s == nil || s.TrialEndsAt == nil {
		return false
	}
	if s.Status != types.SubscriptionStatusTrial {
		return false
	}
	return now.After(*s.TrialEndsAt)
}

// TrialDaysRemaining returns the whole days left in the trial, never
// negative. Returns 0 when there is no trial end date.
func (s *Subscription) TrialDaysRemaining(now time.Time) int {
	if s == nil || s.TrialEndsAt == nil {
		return 0
	}
	remaining := s.TrialEndsAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining.Hours() / 24)
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// Permissions returns the permission matrix for the effective status
func (s *Subscription) Permissions(now time.Time) types.Permissions {
	return types.PermissionsFor(s.EffectiveStatus(now))
}

// HasPaymentMethod reports whether a reusable payment method is on file
func (s *Subscription) HasPaymentMethod() bool {
	return s != nil && s.PaymentMethodRef != ""
}

// EffectivePricing resolves the pricing used by invoice generation: the
// custom override when enabled, else the given defaults
func (s *Subscription) EffectivePricing(defaultPrice, defaultDiscount decimal.Decimal) (pricePerUnit, discountPercent decimal.Decimal) {
	if s != nil && s.CustomPricing != nil && s.CustomPricing.Enabled {
		return s.CustomPricing.PricePerUnit, s.CustomPricing.DiscountPercent
	}
	return defaultPrice, defaultDiscount
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s == nil {
		return ierr.NewError("subscription is required").
			WithHint("Account has no subscription").
			Mark(ierr.ErrValidation)
	}
	if err := s.Status.Validate(); err != nil {
		return err
	}
	if s.BillingMode != "" {
		if err := s.BillingMode.Validate(); err != nil {
			return err
		}
	}
	if s.CustomPricing != nil && s.CustomPricing.Enabled {
		if s.CustomPricing.PricePerUnit.IsNegative() {
			return ierr.NewError("invalid custom price per unit").
				WithHint("Price per unit must not be negative").
				Mark(ierr.ErrValidation)
		}
		if s.CustomPricing.DiscountPercent.IsNegative() ||
			s.CustomPricing.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
			return ierr.NewError("invalid custom discount").
				WithHint("Discount percent must be between 0 and 100").
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
