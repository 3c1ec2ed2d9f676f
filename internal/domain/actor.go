package domain

import "context"

// SystemActor is recorded when no caller identity is present.
const SystemActor = "system"

type actorKey struct{}

// ContextWithActor returns a context carrying the acting user's id.
func ContextWithActor(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFromContext returns the acting user's id, or SystemActor.
func ActorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok && v != "" {
		return v
	}
	return SystemActor
}
