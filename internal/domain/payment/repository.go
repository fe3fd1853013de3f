package payment

import (
	"context"

	"github.com/blocapp/billing/internal/types"
)

// Repository provides access to payment storage
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Get(ctx context.Context, id string) (*Payment, error)
	Update(ctx context.Context, p *Payment) error
	List(ctx context.Context, filter *types.PaymentFilter) ([]*Payment, error)
	Count(ctx context.Context, filter *types.PaymentFilter) (int, error)

	// GetByIdempotencyKey returns the payment recorded for the key, or
	// ErrNotFound when the key has not been seen
	GetByIdempotencyKey(ctx context.Context, key string) (*Payment, error)

	ListPendingBankTransfers(ctx context.Context, accountID string) ([]*Payment, error)
}
