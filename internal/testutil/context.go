package testutil

import (
	"context"

	"github.com/blocapp/billing/internal/types"
)

// SetupContext returns a context carrying the account and actor identity
// the way the request middleware would set it
func SetupContext(accountID, actorID string) context.Context {
	ctx := context.Background()
	ctx = types.SetAccountID(ctx, accountID)
	ctx = types.SetActorID(ctx, actorID)
	ctx = types.SetRequestID(ctx, types.GenerateUUID())
	return ctx
}
