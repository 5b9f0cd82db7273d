// Package handler provides the HTTP surface of the Versebook API.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/versebook/versebook/internal/auth"
	"github.com/versebook/versebook/internal/metrics"
)

// Router assembles the API from the resource handlers, the auth surface,
// and the shared middleware stack.
type Router struct {
	auth    *AuthHandler
	users   *ResourceHandler
	links   *ResourceHandler
	poems   *ResourceHandler
	tokens  *auth.TokenManager
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Auth   *AuthHandler
	Users  *ResourceHandler
	Links  *ResourceHandler
	Poems  *ResourceHandler
	Tokens *auth.TokenManager

	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Metrics

	Logger zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	return &Router{
		auth:    config.Auth,
		users:   config.Users,
		links:   config.Links,
		poems:   config.Poems,
		tokens:  config.Tokens,
		metrics: config.Metrics,
		logger:  config.Logger.With().Str("component", "router").Logger(),
	}
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(rt.requestLogger)
	r.Use(chimw.Recoverer)
	if rt.metrics != nil {
		r.Use(rt.metrics.Middleware)
	}

	r.Get("/", rt.handleGreeting)
	r.Get("/health", rt.handleHealth)

	r.Route("/auth", rt.auth.RegisterRoutes)

	r.Route("/book-user", func(r chi.Router) {
		r.Use(auth.Require(rt.tokens))
		rt.users.RegisterRoutes(r)
	})

	r.Route("/link", func(r chi.Router) {
		r.Use(auth.Require(rt.tokens))
		rt.links.RegisterRoutes(r)
	})

	// Poems have an unauthenticated read-only surface alongside the
	// protected one. Static segments win over {id} in chi, so /public
	// and /get never collide with the protected routes.
	r.Route("/poem", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(auth.Optional(rt.tokens))
			rt.poems.RegisterPublicRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(auth.Require(rt.tokens))
			rt.poems.RegisterRoutes(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Status:  http.StatusNotFound,
			Message: "This route does not exist",
		}})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: errorDetail{
			Status:  http.StatusMethodNotAllowed,
			Message: "method not allowed",
		}})
	})

	return r
}

func (rt *Router) handleGreeting(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Welcome to the Versebook API",
	})
}

// handleHealth handles health check requests.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// requestLogger emits one structured log line per request.
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		rt.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", chimw.GetReqID(r.Context())).
			Msg("request completed")
	})
}
