// Package tenant carries the current tenant id through a request context.
package tenant

import (
	"context"
	"errors"
	"strings"
)

// ErrMissingTenant is returned when no tenant id is attached to the context.
var ErrMissingTenant = errors.New("tenant id is required")

type ctxKey struct{}

// WithTenant returns a copy of ctx scoped to tenantID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, strings.TrimSpace(tenantID))
}

// FromContext returns the tenant id attached to ctx.
func FromContext(ctx context.Context) (string, error) {
	id, _ := ctx.Value(ctxKey{}).(string)
	if id == "" {
		return "", ErrMissingTenant
	}
	return id, nil
}
