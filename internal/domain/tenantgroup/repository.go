package tenantgroup

import "context"

// Repository defines the interface for tenant group persistence operations
type Repository interface {
	// Get retrieves a tenant group by ID
	Get(ctx context.Context, id string) (*TenantGroup, error)

	// Create creates a new tenant group
	Create(ctx context.Context, g *TenantGroup) error

	// Update updates an existing tenant group
	Update(ctx context.Context, g *TenantGroup) error
}
