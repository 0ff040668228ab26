package adapters

import (
	"context"

	accessdomain "deskcrm_backend/internal/access/domain"
	accessservice "deskcrm_backend/internal/access/service"
	"deskcrm_backend/internal/leads/ports"

	"github.com/google/uuid"
)

// LeadAccessChecker adapts the access engine to the leads domain's
// AccessChecker port.
type LeadAccessChecker struct {
	engine *accessservice.Engine
}

// NewLeadAccessChecker creates a new adapter wrapping the access engine.
func NewLeadAccessChecker(engine *accessservice.Engine) *LeadAccessChecker {
	return &LeadAccessChecker{engine: engine}
}

// CanAccessLead reports false for missing leads and on lookup errors.
func (c *LeadAccessChecker) CanAccessLead(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID) bool {
	return c.engine.CanAccessLead(ctx, id, leadID)
}

func (c *LeadAccessChecker) LeadsFilter(id *accessdomain.Identity) accessdomain.LeadFilter {
	return c.engine.LeadsFilter(id)
}

// Compile-time check that LeadAccessChecker implements ports.AccessChecker
var _ ports.AccessChecker = (*LeadAccessChecker)(nil)
