package types

import (
	"context"
	"fmt"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID     ContextKey = "ctx_request_id"
	CtxUserID        ContextKey = "ctx_user_id"
	CtxUsername      ContextKey = "ctx_username"
	CtxDBTransaction ContextKey = "ctx_db_transaction"

	// Default values
	DefaultUserID = "00000000-0000-0000-0000-000000000000"
)

func GetUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(CtxUserID).(string); ok {
		return userID
	}
	return ""
}

func GetUsername(ctx context.Context) string {
	if username, ok := ctx.Value(CtxUsername).(string); ok {
		return username
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

// SetUserID sets the acting user ID in the context
func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, CtxUserID, userID)
}

// SetUsername sets the acting user's display name in the context
func SetUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, CtxUsername, username)
}

// SetRequestID sets the request ID in the context
func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, CtxRequestID, requestID)
}

// ValidateUserContext validates that the acting user is present in the context
func ValidateUserContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context is nil")
	}

	userID := GetUserID(ctx)
	if userID == "" {
		return fmt.Errorf("no user found in context")
	}

	return nil
}
