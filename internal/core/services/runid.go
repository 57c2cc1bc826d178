package services

import "context"

type runIDKey struct{}

// WithRunID tags ctx with the ID of the run a question belongs to.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run ID set by WithRunID, or fallback.
func RunIDFromContext(ctx context.Context, fallback string) string {
	if id, ok := ctx.Value(runIDKey{}).(string); ok && id != "" {
		return id
	}
	return fallback
}
