package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateStateRequest is the body of POST /desks/:deskId/states.
type CreateStateRequest struct {
	Name         string  `json:"name" validate:"required,statename,max=64"`
	DisplayName  string  `json:"displayName" validate:"omitempty,max=128"`
	Color        string  `json:"color" validate:"omitempty,hexcolor"`
	Icon         *string `json:"icon,omitempty" validate:"omitempty,max=64"`
	IsInitial    bool    `json:"isInitial"`
	IsFinal      bool    `json:"isFinal"`
	IsSelectable *bool   `json:"isSelectable,omitempty"`
}

// ReorderStatesRequest is the body of PUT /desks/:deskId/states/order.
type ReorderStatesRequest struct {
	StateIDs []uuid.UUID `json:"stateIds" validate:"required,min=1,dive,required"`
}

// SetSelectableRequest is the body of PATCH /desk-states/:id/selectable.
type SetSelectableRequest struct {
	Selectable *bool `json:"selectable" validate:"required"`
}

// StateResponse is a desk state as returned by the API.
type StateResponse struct {
	ID           uuid.UUID `json:"id"`
	DeskID       uuid.UUID `json:"deskId"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"displayName"`
	Color        string    `json:"color"`
	Icon         *string   `json:"icon,omitempty"`
	IsInitial    bool      `json:"isInitial"`
	IsFinal      bool      `json:"isFinal"`
	IsActive     bool      `json:"isActive"`
	IsSelectable bool      `json:"isSelectable"`
	SortOrder    int       `json:"sortOrder"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ListStatesRequest holds query parameters of GET /desks/:deskId/states.
type ListStatesRequest struct {
	IncludeInactive bool `form:"includeInactive"`
}

// CreateTransitionRequest is the body of POST /desks/:deskId/transitions.
type CreateTransitionRequest struct {
	FromStateID        uuid.UUID `json:"fromStateId" validate:"required"`
	ToStateID          uuid.UUID `json:"toStateId" validate:"required"`
	Global             bool      `json:"global"`
	RequiredPermission *string   `json:"requiredPermission,omitempty" validate:"omitempty,min=1,max=100"`
}

// TransitionResponse is an edge as returned by the API.
type TransitionResponse struct {
	ID                 uuid.UUID  `json:"id"`
	FromStateID        uuid.UUID  `json:"fromStateId"`
	ToStateID          uuid.UUID  `json:"toStateId"`
	DeskID             *uuid.UUID `json:"deskId,omitempty"`
	Global             bool       `json:"global"`
	RequiredPermission *string    `json:"requiredPermission,omitempty"`
	IsActive           bool       `json:"isActive"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// NextStateResponse is a state reachable in one hop from another.
type NextStateResponse struct {
	StateID            uuid.UUID `json:"stateId"`
	Name               string    `json:"name"`
	DisplayName        string    `json:"displayName"`
	Color              string    `json:"color"`
	IsFinal            bool      `json:"isFinal"`
	IsSelectable       bool      `json:"isSelectable"`
	TransitionID       uuid.UUID `json:"transitionId"`
	RequiredPermission *string   `json:"requiredPermission,omitempty"`
}

// TransitionCheckResponse answers whether one state may move to another.
type TransitionCheckResponse struct {
	FromStateID uuid.UUID `json:"fromStateId"`
	ToStateID   uuid.UUID `json:"toStateId"`
	Valid       bool      `json:"valid"`
}
