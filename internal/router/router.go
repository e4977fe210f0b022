// Copyright (c) 2025 Orbit Ops
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package router provides HTTP routing configuration for the Registry Replicator server.
package router

import (
	"github.com/orbitops/registry-replicator/internal/handler"
	"github.com/orbitops/registry-replicator/internal/middleware"
	"github.com/orbitops/registry-replicator/internal/types"

	"github.com/gin-gonic/gin"
)

// Router manages HTTP request routing and handler registration.
// It holds references to all HTTP handlers (replication, image inspection, auth).
type Router struct {
	replicateHandler *handler.ReplicateHandler
	imageHandler     *handler.ImageHandler
	authHandler      *handler.AuthHandler
	sessionValidator middleware.SessionValidator
}

// New creates a new Router instance with the provided handlers.
func New(replicateHandler *handler.ReplicateHandler, imageHandler *handler.ImageHandler, authHandler *handler.AuthHandler, sessionValidator middleware.SessionValidator) *Router {
	return &Router{
		replicateHandler: replicateHandler,
		imageHandler:     imageHandler,
		authHandler:      authHandler,
		sessionValidator: sessionValidator,
	}
}

// Setup initializes the Gin engine with middleware and routes.
// It configures the following middleware in order:
//  1. gin.Logger() - HTTP request logging
//  2. gin.Recovery() - Panic recovery
//  3. CORS - Cross-Origin Resource Sharing
//  4. Auth - OIDC authentication (if enabled)
//
// Returns a configured *gin.Engine ready to serve HTTP requests.
func (r *Router) Setup(cfg *types.Config) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger())
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	engine.Use(middleware.Auth(cfg.OIDC.Enabled, r.sessionValidator))

	// Disable trusted proxy feature for security
	engine.SetTrustedProxies(nil)

	r.registerRoutes(engine)

	return engine
}

// registerRoutes registers all API routes under /api/v1 prefix.
// Available endpoints:
//   - GET  /health             - Health check
//   - GET  /auth/login         - Redirect to OIDC provider for login
//   - GET  /auth/callback      - OIDC callback handler
//   - POST /auth/logout        - Logout current user
//   - GET  /auth/userinfo      - Get current user information
//   - GET  /replicate          - List replication tasks with pagination and filtering
//   - POST /replicate          - Create a new replication task
//   - GET  /replicate/:id      - Get replication task status and details
//   - GET  /replicate/:id/logs - Stream replication task logs via SSE
//   - GET  /env/defaults       - Get default registry configuration
//   - POST /inspect            - Inspect image and list available platforms
func (r *Router) registerRoutes(engine *gin.Engine) {
	api := engine.Group("/api/v1")
	{
		// Public endpoints (no auth required)
		api.GET("/health", r.replicateHandler.Health)

		// Auth endpoints
		auth := api.Group("/auth")
		{
			auth.GET("/login", r.authHandler.Login)
			auth.GET("/callback", r.authHandler.Callback)
			auth.POST("/logout", r.authHandler.Logout)
			auth.GET("/userinfo", r.authHandler.UserInfo)
		}

		// Protected endpoints (require auth if OIDC enabled)
		api.GET("/replicate", r.replicateHandler.ListTasks)
		api.POST("/replicate", r.replicateHandler.Replicate)
		api.GET("/replicate/:id", r.replicateHandler.GetStatus)
		api.GET("/replicate/:id/logs", r.replicateHandler.StreamLogs)
		api.GET("/env/defaults", r.replicateHandler.GetEnvDefaults)
		api.POST("/inspect", r.imageHandler.InspectImage)
	}
}
