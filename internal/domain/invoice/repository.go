package invoice

import (
	"context"
	"time"

	"github.com/blocapp/billing/internal/types"
)

// Repository provides access to invoice storage
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
	List(ctx context.Context, filter *types.InvoiceFilter) ([]*Invoice, error)
	Count(ctx context.Context, filter *types.InvoiceFilter) (int, error)

	// ExistsForPeriod reports whether the account already has a non
	// cancelled invoice covering the given period start
	ExistsForPeriod(ctx context.Context, accountID string, periodStart time.Time) (bool, error)

	// GetLatest returns the most recently issued invoice for the account,
	// or ErrNotFound when none exist
	GetLatest(ctx context.Context, accountID string) (*Invoice, error)

	ListPending(ctx context.Context, accountID string) ([]*Invoice, error)
}

// CounterRepository allocates unique invoice numbers. Allocation reads the
// counter, formats the number from the value read, and persists value+1 in
// the same transaction, so two concurrent allocations can never yield the
// same number.
type CounterRepository interface {
	AllocateNumber(ctx context.Context, now time.Time) (string, error)
}
