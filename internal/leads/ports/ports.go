// Package ports defines consumer-driven interfaces for the collaborators the
// leads domain needs from other modules.
package ports

import (
	"context"

	accessdomain "deskcrm_backend/internal/access/domain"
	desksdomain "deskcrm_backend/internal/desks/domain"

	"github.com/google/uuid"
)

// GraphLoader loads a desk's active states and edges.
type GraphLoader interface {
	LoadGraph(ctx context.Context, deskID uuid.UUID) (*desksdomain.Graph, error)
}

// AccessChecker answers row-level questions about leads. CanAccessLead must
// fail closed.
type AccessChecker interface {
	CanAccessLead(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID) bool
	LeadsFilter(id *accessdomain.Identity) accessdomain.LeadFilter
}
