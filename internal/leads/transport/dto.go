package transport

import (
	"time"

	"github.com/google/uuid"
)

// ChangeStateRequest is the body of POST /leads/:id/state.
type ChangeStateRequest struct {
	NewStateID uuid.UUID `json:"newStateId" validate:"required"`
	Reason     *string   `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// ListLeadsRequest holds query parameters of GET /leads.
type ListLeadsRequest struct {
	DeskID   string `form:"deskId" validate:"omitempty,uuid"`
	Status   string `form:"status" validate:"max=64"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// StateRef is the resolved pipeline state of a lead.
type StateRef struct {
	ID    uuid.UUID `json:"id"`
	Label string    `json:"label"`
	Color string    `json:"color"`
}

// LeadResponse is a lead joined with its state, assignee and desk.
type LeadResponse struct {
	ID           uuid.UUID  `json:"id"`
	DeskID       *uuid.UUID `json:"deskId,omitempty"`
	DeskName     *string    `json:"deskName,omitempty"`
	AssignedTo   *uuid.UUID `json:"assignedTo,omitempty"`
	AssigneeName *string    `json:"assigneeName,omitempty"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	Email        *string    `json:"email,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	Status       string     `json:"status"`
	State        *StateRef  `json:"state,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// LeadListResponse is a page of leads.
type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// AvailableStateResponse is a state the lead can move to next.
type AvailableStateResponse struct {
	StateID            uuid.UUID  `json:"stateId"`
	Name               string     `json:"name"`
	Label              string     `json:"label"`
	Color              string     `json:"color"`
	IsFinal            bool       `json:"isFinal"`
	TransitionID       *uuid.UUID `json:"transitionId,omitempty"`
	RequiredPermission *string    `json:"requiredPermission,omitempty"`
	Permitted          bool       `json:"permitted"`
}

// AvailableStatesResponse lists next states. Unconstrained is true when the
// lead's status does not resolve and every selectable state is offered.
type AvailableStatesResponse struct {
	CurrentStateID *uuid.UUID               `json:"currentStateId,omitempty"`
	Unconstrained  bool                     `json:"unconstrained"`
	States         []AvailableStateResponse `json:"states"`
}

// HistoryEntryResponse is one recorded state change.
type HistoryEntryResponse struct {
	ID            uuid.UUID  `json:"id"`
	OldStateID    *uuid.UUID `json:"oldStateId,omitempty"`
	OldStateLabel *string    `json:"oldStateLabel,omitempty"`
	NewStateID    uuid.UUID  `json:"newStateId"`
	NewStateLabel string     `json:"newStateLabel"`
	ChangedBy     uuid.UUID  `json:"changedBy"`
	ChangedByName string     `json:"changedByName"`
	Reason        *string    `json:"reason,omitempty"`
	ChangedAt     time.Time  `json:"changedAt"`
}
