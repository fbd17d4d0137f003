package main

import (
	"net/http"

	"github.com/ashureev/chatkeep/internal/api"
	"github.com/ashureev/chatkeep/internal/config"
	"github.com/ashureev/chatkeep/internal/conversation"
	"github.com/ashureev/chatkeep/internal/identity"
	"github.com/ashureev/chatkeep/internal/media"
	"github.com/ashureev/chatkeep/internal/middleware"
	"github.com/ashureev/chatkeep/internal/store"
	"github.com/ashureev/chatkeep/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// newAuthenticator picks the identity sources for cfg. Signed tokens are
// always honored when a secret is set; anonymous device identities only in development.
func newAuthenticator(cfg *config.Config) identity.Authenticator {
	var chain identity.Chain
	if cfg.Auth.Secret != "" {
		chain = append(chain, identity.NewTokenAuthenticator(cfg.Auth.Secret))
	}
	if cfg.IsDevelopment() {
		chain = append(chain, identity.NewAnonymousAuthenticator(false))
	}
	return chain
}

func newSigner(cfg *config.Config) *media.Signer {
	if !cfg.Media.Enabled() {
		return nil
	}
	return media.NewSigner(cfg.Media.URLEndpoint, cfg.Media.PublicKey, cfg.Media.PrivateKey, cfg.Media.TokenTTL)
}

// newRouter wires every route. The returned limiter, if any, must be closed on shutdown.
func newRouter(cfg *config.Config, repo store.Repository, svc *conversation.Service) (http.Handler, *middleware.RateLimiter) {
	var limiter *middleware.RateLimiter
	var limit func(http.Handler) http.Handler
	if cfg.RateLimit.RequestsPerWindow > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowDuration)
		limit = limiter.Limit
	}

	chatHandler := api.NewChatHandler(svc, cfg, limit)
	uploadHandler := api.NewUploadHandler(newSigner(cfg))
	healthHandler := api.NewHealthHandler(repo)

	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(middleware.ClientCORS(cfg.AllowedOrigins())))
	r.Use(identity.Middleware(newAuthenticator(cfg)))

	// Public routes.
	healthHandler.RegisterHealth(r)
	uploadHandler.RegisterRoutes(r)

	// Authenticated routes.
	chatHandler.RegisterRoutes(r)

	// Serve embedded client (SPA catch-all).
	r.Handle("/*", web.Handler())

	return r, limiter
}
