// Package service implements the desk state registry and the transition
// graph operations.
package service

import (
	"context"

	accessdomain "deskcrm_backend/internal/access/domain"
	"deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/desks/repository"
	"deskcrm_backend/internal/desks/template"
	"deskcrm_backend/internal/desks/transport"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/logger"
	"deskcrm_backend/platform/sanitize"

	"github.com/google/uuid"
)

// Registry manages the named states of each desk.
type Registry struct {
	repo repository.Repository
	log  *logger.Logger
}

// NewRegistry creates a new desk state registry.
func NewRegistry(repo repository.Repository, log *logger.Logger) *Registry {
	return &Registry{repo: repo, log: log}
}

func requireDesk(ctx context.Context, repo repository.StateReader, deskID uuid.UUID) error {
	exists, err := repo.DeskExists(ctx, deskID)
	if err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("desk not found")
	}
	return nil
}

func authorizeView(id *accessdomain.Identity, deskID uuid.UUID) error {
	if !id.CanViewDesk(deskID) {
		return apperr.Forbidden("desk is outside your scope")
	}
	return nil
}

func authorizeManage(id *accessdomain.Identity, op accessdomain.Operation, deskID uuid.UUID) error {
	if !id.CanManageDesk(op, deskID) {
		return apperr.Forbidden("insufficient permissions for this desk")
	}
	return nil
}

// ListStates returns the desk's states ordered by sort_order. Inactive states
// are only included for callers allowed to manage them.
func (r *Registry) ListStates(ctx context.Context, id *accessdomain.Identity, deskID uuid.UUID, req transport.ListStatesRequest) ([]transport.StateResponse, error) {
	if err := authorizeView(id, deskID); err != nil {
		return nil, err
	}
	if err := requireDesk(ctx, r.repo, deskID); err != nil {
		return nil, err
	}

	includeInactive := req.IncludeInactive && id.CanManageDesk(accessdomain.OpManageDeskStates, deskID)
	states, err := r.repo.ListStates(ctx, deskID, includeInactive)
	if err != nil {
		return nil, err
	}
	return toStateResponses(states), nil
}

// CreateState adds a state at the end of the desk's pipeline.
func (r *Registry) CreateState(ctx context.Context, id *accessdomain.Identity, deskID uuid.UUID, req transport.CreateStateRequest) (transport.StateResponse, error) {
	if err := authorizeManage(id, accessdomain.OpManageDeskStates, deskID); err != nil {
		return transport.StateResponse{}, err
	}

	name := sanitize.Name(req.Name)
	if name == "" {
		return transport.StateResponse{}, apperr.Validation("state name is required")
	}
	if err := requireDesk(ctx, r.repo, deskID); err != nil {
		return transport.StateResponse{}, err
	}

	existing, err := r.repo.ListStates(ctx, deskID, true)
	if err != nil {
		return transport.StateResponse{}, err
	}
	if domain.HasName(existing, name) {
		return transport.StateResponse{}, apperr.Validation("a state with this name already exists in the desk")
	}
	if req.IsInitial {
		if initial, ok := domain.InitialState(existing); ok {
			return transport.StateResponse{}, apperr.Validation("desk already has an initial state").
				WithDetails(map[string]string{"initialStateId": initial.ID.String()})
		}
	}

	displayName := sanitize.Text(req.DisplayName)
	if displayName == "" {
		displayName = name
	}
	color := req.Color
	if color == "" {
		color = domain.DefaultColor
	}
	selectable := true
	if req.IsSelectable != nil {
		selectable = *req.IsSelectable
	}

	state, err := r.repo.CreateState(ctx, repository.NewState{
		DeskID:       deskID,
		Name:         name,
		DisplayName:  displayName,
		Color:        color,
		Icon:         req.Icon,
		IsInitial:    req.IsInitial,
		IsFinal:      req.IsFinal,
		IsSelectable: selectable,
	})
	if err != nil {
		return transport.StateResponse{}, err
	}

	r.log.Info("desk state created", "id", state.ID, "deskId", deskID, "name", state.Name)
	return toStateResponse(state), nil
}

// DeactivateState hides a state from the pipeline. It fails with a conflict
// while any lead's current status is the state.
func (r *Registry) DeactivateState(ctx context.Context, id *accessdomain.Identity, stateID uuid.UUID) (transport.StateResponse, error) {
	current, err := r.repo.GetState(ctx, stateID)
	if err != nil {
		return transport.StateResponse{}, err
	}
	if err := authorizeManage(id, accessdomain.OpManageDeskStates, current.DeskID); err != nil {
		return transport.StateResponse{}, err
	}

	state, err := r.repo.DeactivateState(ctx, stateID)
	if err != nil {
		return transport.StateResponse{}, err
	}

	r.log.Info("desk state deactivated", "id", state.ID, "deskId", state.DeskID)
	return toStateResponse(state), nil
}

// SetSelectable toggles whether a state may be chosen as a transition target.
func (r *Registry) SetSelectable(ctx context.Context, id *accessdomain.Identity, stateID uuid.UUID, req transport.SetSelectableRequest) (transport.StateResponse, error) {
	if req.Selectable == nil {
		return transport.StateResponse{}, apperr.Validation("selectable is required")
	}
	current, err := r.repo.GetState(ctx, stateID)
	if err != nil {
		return transport.StateResponse{}, err
	}
	if err := authorizeManage(id, accessdomain.OpManageDeskStates, current.DeskID); err != nil {
		return transport.StateResponse{}, err
	}

	state, err := r.repo.SetSelectable(ctx, stateID, *req.Selectable)
	if err != nil {
		return transport.StateResponse{}, err
	}

	r.log.Info("desk state selectability changed", "id", state.ID, "selectable", state.IsSelectable)
	return toStateResponse(state), nil
}

// Reorder rewrites the order of the desk's active states.
func (r *Registry) Reorder(ctx context.Context, id *accessdomain.Identity, deskID uuid.UUID, req transport.ReorderStatesRequest) ([]transport.StateResponse, error) {
	if err := authorizeManage(id, accessdomain.OpManageDeskStates, deskID); err != nil {
		return nil, err
	}
	if err := requireDesk(ctx, r.repo, deskID); err != nil {
		return nil, err
	}

	states, err := r.repo.Reorder(ctx, deskID, req.StateIDs)
	if err != nil {
		return nil, err
	}

	r.log.Info("desk states reordered", "deskId", deskID, "count", len(states))
	return toStateResponses(states), nil
}

// SeedDefaults creates the built-in pipeline in a desk without states.
func (r *Registry) SeedDefaults(ctx context.Context, id *accessdomain.Identity, deskID uuid.UUID) ([]transport.StateResponse, error) {
	if err := authorizeManage(id, accessdomain.OpManageDeskStates, deskID); err != nil {
		return nil, err
	}
	if !id.Can(accessdomain.OpManageTransitions) {
		return nil, apperr.Forbidden("seeding a pipeline also creates transitions")
	}

	pipeline, err := template.Default()
	if err != nil {
		return nil, err
	}

	states := make([]repository.NewState, 0, len(pipeline.States))
	for _, s := range pipeline.States {
		display := s.DisplayName
		if display == "" {
			display = s.Name
		}
		color := s.Color
		if color == "" {
			color = domain.DefaultColor
		}
		states = append(states, repository.NewState{
			DeskID:       deskID,
			Name:         s.Name,
			DisplayName:  display,
			Color:        color,
			Icon:         s.Icon,
			IsInitial:    s.Initial,
			IsFinal:      s.Final,
			IsSelectable: !s.Hidden,
		})
	}
	edges := make([]repository.SeedEdge, 0, len(pipeline.Transitions))
	for _, e := range pipeline.Transitions {
		edges = append(edges, repository.SeedEdge{From: e.From, To: e.To, RequiredPermission: e.RequiredPermission})
	}

	created, err := r.repo.Seed(ctx, deskID, states, edges)
	if err != nil {
		return nil, err
	}

	r.log.Info("desk pipeline seeded", "deskId", deskID, "states", len(created), "transitions", len(edges))
	return toStateResponses(created), nil
}

func toStateResponse(s domain.DeskState) transport.StateResponse {
	return transport.StateResponse{
		ID:           s.ID,
		DeskID:       s.DeskID,
		Name:         s.Name,
		DisplayName:  s.Label(),
		Color:        s.Color,
		Icon:         s.Icon,
		IsInitial:    s.IsInitial,
		IsFinal:      s.IsFinal,
		IsActive:     s.IsActive,
		IsSelectable: s.IsSelectable,
		SortOrder:    s.SortOrder,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toStateResponses(states []domain.DeskState) []transport.StateResponse {
	out := make([]transport.StateResponse, 0, len(states))
	for _, s := range states {
		out = append(out, toStateResponse(s))
	}
	return out
}
