package service

import (
	"context"
	"strings"

	accessdomain "deskcrm_backend/internal/access/domain"
	"deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/desks/repository"
	"deskcrm_backend/internal/desks/transport"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Transitions manages the directed edges of each desk and answers graph
// queries for the lead lifecycle.
type Transitions struct {
	repo repository.Repository
	log  *logger.Logger
}

// NewTransitions creates a new transition graph service.
func NewTransitions(repo repository.Repository, log *logger.Logger) *Transitions {
	return &Transitions{repo: repo, log: log}
}

// LoadGraph reads the desk's active states and edges into memory.
func (t *Transitions) LoadGraph(ctx context.Context, deskID uuid.UUID) (*domain.Graph, error) {
	states, err := t.repo.ListStates(ctx, deskID, false)
	if err != nil {
		return nil, err
	}
	edges, err := t.repo.ListTransitions(ctx, deskID)
	if err != nil {
		return nil, err
	}
	return domain.NewGraph(deskID, states, edges), nil
}

// IsValidTransition reports whether an active edge connects the two states in
// the desk. A self-transition is always valid.
func (t *Transitions) IsValidTransition(ctx context.Context, deskID, from, to uuid.UUID) (bool, error) {
	if from == to {
		return true, nil
	}
	g, err := t.LoadGraph(ctx, deskID)
	if err != nil {
		return false, err
	}
	return g.IsValid(from, to), nil
}

// AvailableTransitions returns the one-hop targets of a state.
func (t *Transitions) AvailableTransitions(ctx context.Context, deskID, from uuid.UUID) ([]domain.Available, error) {
	g, err := t.LoadGraph(ctx, deskID)
	if err != nil {
		return nil, err
	}
	return g.Available(from), nil
}

// NextStates lists the states one hop away from a state of a desk the caller
// can view.
func (t *Transitions) NextStates(ctx context.Context, id *accessdomain.Identity, stateID uuid.UUID) ([]transport.NextStateResponse, error) {
	from, err := t.repo.GetState(ctx, stateID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(id, from.DeskID); err != nil {
		return nil, err
	}

	available, err := t.AvailableTransitions(ctx, from.DeskID, from.ID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.NextStateResponse, 0, len(available))
	for _, a := range available {
		out = append(out, transport.NextStateResponse{
			StateID:            a.State.ID,
			Name:               a.State.Name,
			DisplayName:        a.State.DisplayName,
			Color:              a.State.Color,
			IsFinal:            a.State.IsFinal,
			IsSelectable:       a.State.IsSelectable,
			TransitionID:       a.TransitionID,
			RequiredPermission: a.RequiredPermission,
		})
	}
	return out, nil
}

// CheckTransition reports whether a lead in one state may move to another
// state of the same desk.
func (t *Transitions) CheckTransition(ctx context.Context, id *accessdomain.Identity, fromID, toID uuid.UUID) (transport.TransitionCheckResponse, error) {
	from, err := t.repo.GetState(ctx, fromID)
	if err != nil {
		return transport.TransitionCheckResponse{}, err
	}
	if err := authorizeView(id, from.DeskID); err != nil {
		return transport.TransitionCheckResponse{}, err
	}
	to, err := t.repo.GetState(ctx, toID)
	if err != nil {
		return transport.TransitionCheckResponse{}, err
	}
	if to.DeskID != from.DeskID {
		return transport.TransitionCheckResponse{}, apperr.Validation("states belong to different desks")
	}

	valid, err := t.IsValidTransition(ctx, from.DeskID, from.ID, to.ID)
	if err != nil {
		return transport.TransitionCheckResponse{}, err
	}
	return transport.TransitionCheckResponse{FromStateID: from.ID, ToStateID: to.ID, Valid: valid}, nil
}

// List returns the desk's own edges and the global edges between its states.
func (t *Transitions) List(ctx context.Context, id *accessdomain.Identity, deskID uuid.UUID) ([]transport.TransitionResponse, error) {
	if err := authorizeView(id, deskID); err != nil {
		return nil, err
	}
	if err := requireDesk(ctx, t.repo, deskID); err != nil {
		return nil, err
	}

	edges, err := t.repo.ListTransitions(ctx, deskID)
	if err != nil {
		return nil, err
	}
	out := make([]transport.TransitionResponse, 0, len(edges))
	for _, e := range edges {
		out = append(out, toTransitionResponse(e))
	}
	return out, nil
}

// Add stores a new edge between two active states of the desk. Global edges
// require global lead scope.
func (t *Transitions) Add(ctx context.Context, id *accessdomain.Identity, deskID uuid.UUID, req transport.CreateTransitionRequest) (transport.TransitionResponse, error) {
	if err := authorizeManage(id, accessdomain.OpManageTransitions, deskID); err != nil {
		return transport.TransitionResponse{}, err
	}
	if req.Global && id.LeadScope() != accessdomain.ScopeGlobal {
		return transport.TransitionResponse{}, apperr.Forbidden("global transitions require global scope")
	}

	from, err := t.repo.GetState(ctx, req.FromStateID)
	if err != nil {
		return transport.TransitionResponse{}, err
	}
	to, err := t.repo.GetState(ctx, req.ToStateID)
	if err != nil {
		return transport.TransitionResponse{}, err
	}
	if err := domain.ValidateEdge(deskID, from, to); err != nil {
		return transport.TransitionResponse{}, err
	}

	existing, err := t.repo.ListTransitions(ctx, deskID)
	if err != nil {
		return transport.TransitionResponse{}, err
	}
	for _, e := range existing {
		if e.FromStateID == from.ID && e.ToStateID == to.ID {
			return transport.TransitionResponse{}, apperr.Conflict("transition already exists")
		}
	}

	var perm *string
	if req.RequiredPermission != nil {
		if trimmed := strings.TrimSpace(*req.RequiredPermission); trimmed != "" {
			perm = &trimmed
		}
	}
	in := repository.NewTransition{FromStateID: from.ID, ToStateID: to.ID, RequiredPermission: perm}
	if !req.Global {
		desk := deskID
		in.DeskID = &desk
	}

	edge, err := t.repo.CreateTransition(ctx, in)
	if err != nil {
		return transport.TransitionResponse{}, err
	}

	t.log.Info("transition created", "id", edge.ID, "deskId", deskID, "from", from.Name, "to", to.Name, "global", edge.IsGlobal())
	return toTransitionResponse(edge), nil
}

// Remove deletes an edge.
func (t *Transitions) Remove(ctx context.Context, id *accessdomain.Identity, transitionID uuid.UUID) error {
	edge, err := t.repo.GetTransition(ctx, transitionID)
	if err != nil {
		return err
	}

	var deskID uuid.UUID
	if edge.DeskID != nil {
		deskID = *edge.DeskID
	} else {
		from, err := t.repo.GetState(ctx, edge.FromStateID)
		if err != nil {
			return err
		}
		deskID = from.DeskID
		if id.LeadScope() != accessdomain.ScopeGlobal {
			return apperr.Forbidden("global transitions require global scope")
		}
	}
	if err := authorizeManage(id, accessdomain.OpManageTransitions, deskID); err != nil {
		return err
	}

	if err := t.repo.DeleteTransition(ctx, transitionID); err != nil {
		return err
	}

	t.log.Info("transition removed", "id", transitionID, "deskId", deskID)
	return nil
}

func toTransitionResponse(t domain.Transition) transport.TransitionResponse {
	return transport.TransitionResponse{
		ID:                 t.ID,
		FromStateID:        t.FromStateID,
		ToStateID:          t.ToStateID,
		DeskID:             t.DeskID,
		Global:             t.IsGlobal(),
		RequiredPermission: t.RequiredPermission,
		IsActive:           t.IsActive,
		CreatedAt:          t.CreatedAt,
	}
}
