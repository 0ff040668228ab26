package repository

import (
	"context"

	"deskcrm_backend/internal/desks/domain"

	"github.com/google/uuid"
)

// NewState holds the columns of a state to insert.
type NewState struct {
	DeskID       uuid.UUID
	Name         string
	DisplayName  string
	Color        string
	Icon         *string
	IsInitial    bool
	IsFinal      bool
	IsSelectable bool
}

// NewTransition holds the columns of an edge to insert. A nil DeskID stores a
// global edge.
type NewTransition struct {
	FromStateID        uuid.UUID
	ToStateID          uuid.UUID
	DeskID             *uuid.UUID
	RequiredPermission *string
}

// SeedEdge is an edge between two template states referenced by name.
type SeedEdge struct {
	From               string
	To                 string
	RequiredPermission *string
}

// StateReader reads desk states.
type StateReader interface {
	DeskExists(ctx context.Context, deskID uuid.UUID) (bool, error)
	ListStates(ctx context.Context, deskID uuid.UUID, includeInactive bool) ([]domain.DeskState, error)
	GetState(ctx context.Context, id uuid.UUID) (domain.DeskState, error)
}

// StateWriter mutates desk states. States are never hard-deleted.
type StateWriter interface {
	CreateState(ctx context.Context, state NewState) (domain.DeskState, error)
	DeactivateState(ctx context.Context, id uuid.UUID) (domain.DeskState, error)
	SetSelectable(ctx context.Context, id uuid.UUID, selectable bool) (domain.DeskState, error)
	Reorder(ctx context.Context, deskID uuid.UUID, stateIDs []uuid.UUID) ([]domain.DeskState, error)
	Seed(ctx context.Context, deskID uuid.UUID, states []NewState, edges []SeedEdge) ([]domain.DeskState, error)
}

// TransitionReader reads the edges of a desk.
type TransitionReader interface {
	ListTransitions(ctx context.Context, deskID uuid.UUID) ([]domain.Transition, error)
	GetTransition(ctx context.Context, id uuid.UUID) (domain.Transition, error)
}

// TransitionWriter mutates edges.
type TransitionWriter interface {
	CreateTransition(ctx context.Context, t NewTransition) (domain.Transition, error)
	DeleteTransition(ctx context.Context, id uuid.UUID) error
}

// Repository combines all desk pipeline operations.
type Repository interface {
	StateReader
	StateWriter
	TransitionReader
	TransitionWriter
}
