package sheet

import "context"

// Repository defines the read-only interface over billing period snapshots
type Repository interface {
	// ListPublished retrieves all published sheets for a sub-tenant
	ListPublished(ctx context.Context, subTenantID string) ([]*Sheet, error)
}
