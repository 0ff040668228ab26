// Package adapters contains adapters that bridge different bounded contexts.
// These adapters implement interfaces defined by consuming domains while
// wrapping services from providing domains.
package adapters

import (
	"context"

	desksdomain "deskcrm_backend/internal/desks/domain"
	desksservice "deskcrm_backend/internal/desks/service"
	"deskcrm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// DeskGraphLoader adapts the desks transition service to the leads domain's
// GraphLoader port.
type DeskGraphLoader struct {
	transitions *desksservice.Transitions
}

// NewDeskGraphLoader creates a new adapter wrapping the transition service.
func NewDeskGraphLoader(transitions *desksservice.Transitions) *DeskGraphLoader {
	return &DeskGraphLoader{transitions: transitions}
}

// LoadGraph returns the desk's active states and edges, including global edges.
func (l *DeskGraphLoader) LoadGraph(ctx context.Context, deskID uuid.UUID) (*desksdomain.Graph, error) {
	return l.transitions.LoadGraph(ctx, deskID)
}

// Compile-time check that DeskGraphLoader implements ports.GraphLoader
var _ ports.GraphLoader = (*DeskGraphLoader)(nil)
