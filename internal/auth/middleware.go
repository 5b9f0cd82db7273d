package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/versebook/versebook/internal/domain"
)

type contextKey int

const actorKey contextKey = iota

// ActorFromContext returns the actor established by the middleware.
// Requests that never passed through authentication get the anonymous actor.
func ActorFromContext(ctx context.Context) domain.Actor {
	if actor, ok := ctx.Value(actorKey).(domain.Actor); ok {
		return actor
	}
	return domain.AnonymousActor
}

// WithActor returns a context carrying the actor. Exposed for tests.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Require rejects requests without a valid Bearer access token with a 401
// envelope and otherwise stores the authenticated actor in the context.
func Require(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := verifyRequest(tm, r)
			if err != nil {
				writeUnauthorized(w)
				return
			}
			ctx := WithActor(r.Context(), domain.AuthenticatedActor(claims.Subject))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional attaches the authenticated actor when a valid token is present
// and lets the request through as anonymous otherwise. Used on public read
// routes where the actor only matters for attribution.
func Optional(tm *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := domain.AnonymousActor
			if claims, err := verifyRequest(tm, r); err == nil {
				actor = domain.AuthenticatedActor(claims.Subject)
			}
			ctx := WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyRequest(tm *TokenManager, r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return nil, domain.ErrUnauthorized
	}
	return tm.Verify(token, TokenTypeAccess)
}

// writeUnauthorized emits the uniform error envelope without depending on
// the handler package.
func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"status":  http.StatusUnauthorized,
			"message": "missing or invalid access token",
		},
	})
}
