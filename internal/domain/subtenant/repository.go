package subtenant

import "context"

// Repository defines the interface for sub-tenant persistence operations
type Repository interface {
	// Get retrieves a sub-tenant by ID
	Get(ctx context.Context, id string) (*SubTenant, error)

	// Create creates a new sub-tenant
	Create(ctx context.Context, st *SubTenant) error

	// Update updates an existing sub-tenant
	Update(ctx context.Context, st *SubTenant) error

	// ListByIDs loads the given sub-tenants, skipping ids that no longer
	// resolve
	ListByIDs(ctx context.Context, ids []string) ([]*SubTenant, error)

	// ListByGroup retrieves all sub-tenants belonging to a tenant group
	ListByGroup(ctx context.Context, groupID string) ([]*SubTenant, error)

	// ListByLegacyOwner retrieves sub-tenants by the historical owner field
	ListByLegacyOwner(ctx context.Context, ownerID string) ([]*SubTenant, error)
}
