// Package desks provides the desk pipeline bounded context: the state
// registry and the transition graph.
package desks

import (
	"deskcrm_backend/internal/desks/handler"
	"deskcrm_backend/internal/desks/repository"
	"deskcrm_backend/internal/desks/service"
	apphttp "deskcrm_backend/internal/http"
	"deskcrm_backend/platform/logger"
	"deskcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the desks bounded context module implementing http.Module.
type Module struct {
	handler     *handler.Handler
	registry    *service.Registry
	transitions *service.Transitions
}

// NewModule creates and initializes the desks module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	registry := service.NewRegistry(repo, log)
	transitions := service.NewTransitions(repo, log)

	return &Module{
		handler:     handler.New(registry, transitions, val),
		registry:    registry,
		transitions: transitions,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "desks"
}

// Transitions returns the transition graph service for use by adapters.
func (m *Module) Transitions() *service.Transitions {
	return m.transitions
}

// RegisterRoutes mounts desk routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	desks := ctx.Protected.Group("/desks/:deskId")
	desks.GET("/states", m.handler.ListStates)
	desks.POST("/states", m.handler.CreateState)
	desks.POST("/states/seed", m.handler.SeedStates)
	desks.PUT("/states/order", m.handler.ReorderStates)
	desks.GET("/transitions", m.handler.ListTransitions)
	desks.POST("/transitions", m.handler.CreateTransition)

	ctx.Protected.PATCH("/desk-states/:id/deactivate", m.handler.DeactivateState)
	ctx.Protected.PATCH("/desk-states/:id/selectable", m.handler.SetSelectable)
	ctx.Protected.GET("/desk-states/:id/next", m.handler.NextStates)
	ctx.Protected.GET("/desk-states/:id/next/:toId", m.handler.CheckTransition)
	ctx.Protected.DELETE("/transitions/:id", m.handler.DeleteTransition)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
