package shared

import "context"

// Actor identifies the already-authenticated caller of a request. Identity is
// established by the fronting session layer; this service only consumes it.
type Actor struct {
	ID        int64
	IPAddress string
	UserAgent string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The second return value is
// false when no authenticated actor is attached to the request.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
