package account

import (
	"context"

	"github.com/blocapp/billing/internal/store"
)

// Repository defines the interface for account persistence operations
type Repository interface {
	// Get retrieves an account by ID
	Get(ctx context.Context, id string) (*Account, error)

	// Create creates a new account
	Create(ctx context.Context, a *Account) error

	// Update updates an existing account
	Update(ctx context.Context, a *Account) error

	// UpdateSubscription replaces the account's embedded subscription
	UpdateSubscription(ctx context.Context, accountID string, sub *Subscription) error

	// Watch registers a callback for subscription changes on the account.
	// The returned handle stops delivery.
	Watch(ctx context.Context, accountID string, onChange func(*Subscription)) (store.Unsubscribe, error)
}
