package middleware

import (
	"context"

	"github.com/truckflow/dispatch-core/pkg/truckflow"
)

type contextKey string

const (
	ctxUser  contextKey = "user"
	ctxScope contextKey = "scope"
)

// UserFromContext returns the upstream user resolved by Identity.
func UserFromContext(ctx context.Context) *truckflow.User {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxUser).(*truckflow.User); ok {
		return v
	}
	return nil
}

// ScopeFromContext returns the organization scope resolved by Identity.
func ScopeFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxScope).(string); ok {
		return v
	}
	return ""
}

// WithUser injects the upstream user into the context.
func WithUser(ctx context.Context, user *truckflow.User) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUser, user)
}

// WithScope injects the organization scope into the context for downstream handlers.
func WithScope(ctx context.Context, scope string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxScope, scope)
}
