// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"deskcrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadStateChanged is published after a state change has been committed.
type LeadStateChanged struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	DeskID     *uuid.UUID `json:"deskId,omitempty"`
	OldStateID *uuid.UUID `json:"oldStateId,omitempty"`
	NewStateID uuid.UUID  `json:"newStateId"`
	NewStatus  string     `json:"newStatus"`
	ChangedBy  uuid.UUID  `json:"changedBy"`
	Reason     string     `json:"reason,omitempty"`
}

func (e LeadStateChanged) EventName() string { return "leads.state_changed" }

// =============================================================================
// Access Events
// =============================================================================

// PermissionsChanged is published when a user's effective permissions may have
// changed and cached resolutions must be dropped.
type PermissionsChanged struct {
	BaseEvent
	UserID uuid.UUID `json:"userId"`
}

func (e PermissionsChanged) EventName() string { return "access.permissions_changed" }
