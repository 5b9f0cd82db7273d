package domain

// Actor identifies who performed a mutation. It is either an authenticated
// user or one of the well-known sentinel identities, and is threaded through
// every write path as an explicit parameter.
type Actor struct {
	// ID is the authenticated user id, or a sentinel value.
	ID string

	// Authenticated is true when the actor came from a verified token.
	Authenticated bool
}

// Sentinel actors for writes with no authenticated principal.
var (
	// AnonymousActor attributes writes made without a token.
	AnonymousActor = Actor{ID: "unauthenticated"}

	// SystemActor attributes writes made by background or admin tooling.
	SystemActor = Actor{ID: "system"}

	// SelfActor attributes self-service auth flows (register, reset).
	SelfActor = Actor{ID: "self"}
)

// AuthenticatedActor returns an actor for a verified user id.
func AuthenticatedActor(userID string) Actor {
	return Actor{ID: userID, Authenticated: true}
}
