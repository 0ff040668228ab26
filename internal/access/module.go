// Package access provides the access-control bounded context: bearer token
// authentication, effective permission resolution and row-level lead checks.
package access

import (
	"deskcrm_backend/internal/access/handler"
	"deskcrm_backend/internal/access/repository"
	"deskcrm_backend/internal/access/service"
	"deskcrm_backend/internal/events"
	apphttp "deskcrm_backend/internal/http"
	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the access bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	engine  *service.Engine
}

// NewModule creates the access module. permCache may be nil.
func NewModule(pool *pgxpool.Pool, permCache service.PermissionCache, cfg config.JWTConfig, log *logger.Logger) *Module {
	engine := service.New(repository.New(pool), permCache, cfg, log)
	return &Module{
		handler: handler.New(engine),
		engine:  engine,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "access"
}

// Engine returns the access engine for use by adapters.
func (m *Module) Engine() *service.Engine {
	return m.engine
}

// AuthMiddleware returns the middleware guarding the protected route group.
func (m *Module) AuthMiddleware() gin.HandlerFunc {
	return m.handler.Authenticate()
}

// RegisterRoutes mounts access routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/users/me/permissions", m.handler.GetMyPermissions)
}

// RegisterHandlers subscribes cache invalidation to permission changes.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.PermissionsChanged{}.EventName(), m.engine)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
