package adapters

import (
	"context"

	"deskcrm_backend/internal/events"
	"deskcrm_backend/internal/scheduler"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// FlagResolver closes the legacy status flag of a lead in-process.
type FlagResolver interface {
	ResolveLead(ctx context.Context, leadID uuid.UUID) error
}

// LeadEventEnqueuer moves committed lead state changes onto the task queue so
// follow-up work runs in the worker. When enqueueing fails the follow-up runs
// inline.
type LeadEventEnqueuer struct {
	queue    scheduler.LeadEventQueue
	fallback FlagResolver
	log      *logger.Logger
}

// NewLeadEventEnqueuer creates the bus handler.
func NewLeadEventEnqueuer(queue scheduler.LeadEventQueue, fallback FlagResolver, log *logger.Logger) *LeadEventEnqueuer {
	return &LeadEventEnqueuer{queue: queue, fallback: fallback, log: log}
}

// Handle implements events.Handler.
func (e *LeadEventEnqueuer) Handle(ctx context.Context, event events.Event) error {
	changed, ok := event.(events.LeadStateChanged)
	if !ok {
		return nil
	}

	err := e.queue.EnqueueLeadStateChanged(ctx, changed.LeadID)
	if err == nil {
		return nil
	}
	e.log.Warn("enqueue lead state change failed, resolving inline", "leadId", changed.LeadID, "error", err)
	if e.fallback == nil {
		return err
	}
	return e.fallback.ResolveLead(ctx, changed.LeadID)
}

// Compile-time check that LeadEventEnqueuer implements events.Handler
var _ events.Handler = (*LeadEventEnqueuer)(nil)
