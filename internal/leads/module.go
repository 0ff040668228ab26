// Package leads provides the lead bounded context: access-filtered reads,
// the state lifecycle with its history ledger, and the legacy status audit.
package leads

import (
	"deskcrm_backend/internal/events"
	apphttp "deskcrm_backend/internal/http"
	"deskcrm_backend/internal/leads/backfill"
	"deskcrm_backend/internal/leads/handler"
	"deskcrm_backend/internal/leads/lifecycle"
	"deskcrm_backend/internal/leads/management"
	"deskcrm_backend/internal/leads/ports"
	"deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/platform/logger"
	"deskcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	lifecycle *lifecycle.Service
	auditor   *backfill.Auditor
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, graphs ports.GraphLoader, access ports.AccessChecker, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)

	mgmt := management.New(repo, access)
	lc := lifecycle.New(repo, graphs, access, bus, log)
	auditor := backfill.New(repo, graphs, log)

	return &Module{
		handler:   handler.New(mgmt, lc, val),
		lifecycle: lc,
		auditor:   auditor,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Lifecycle returns the state lifecycle service.
func (m *Module) Lifecycle() *lifecycle.Service {
	return m.lifecycle
}

// Auditor returns the legacy status auditor for the worker and backfill command.
func (m *Module) Auditor() *backfill.Auditor {
	return m.auditor
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Protected.Group("/leads")
	leads.GET("", m.handler.List)
	leads.GET("/:id", m.handler.GetByID)
	leads.GET("/:id/available-states", m.handler.AvailableStates)
	leads.POST("/:id/state", m.handler.ChangeState)
	leads.GET("/:id/history", m.handler.History)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
