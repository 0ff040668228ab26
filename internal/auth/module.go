// Package auth provides the authentication bounded context module: password
// sign-in, refresh token rotation and role assignment.
package auth

import (
	"deskcrm_backend/internal/auth/handler"
	"deskcrm_backend/internal/auth/repository"
	"deskcrm_backend/internal/auth/service"
	"deskcrm_backend/internal/events"
	apphttp "deskcrm_backend/internal/http"
	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/logger"
	"deskcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module with all its dependencies.
func NewModule(pool *pgxpool.Pool, cfg config.AuthServiceConfig, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg, eventBus, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public auth routes with stricter rate limiting
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter)
	m.handler.RegisterRoutes(authGroup)

	ctx.Admin.PUT("/users/:id/roles", m.handler.SetUserRoles)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
