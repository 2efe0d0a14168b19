package testutil

import (
	"context"

	"github.com/numera/numera/internal/types"
)

// SetupContext creates a context with the values request middleware would
// normally populate.
func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	ctx = types.SetUsername(ctx, "test_user")
	ctx = types.SetRequestID(ctx, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST))
	return ctx
}
