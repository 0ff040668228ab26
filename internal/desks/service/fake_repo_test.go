package service

import (
	"context"
	"io"
	"sort"
	"time"

	accessdomain "deskcrm_backend/internal/access/domain"
	"deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/desks/repository"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeRepo struct {
	desks       map[uuid.UUID]bool
	states      map[uuid.UUID]domain.DeskState
	transitions map[uuid.UUID]domain.Transition
	inUse       map[uuid.UUID]int64
}

var _ repository.Repository = (*fakeRepo)(nil)

func newFakeRepo(desks ...uuid.UUID) *fakeRepo {
	r := &fakeRepo{
		desks:       map[uuid.UUID]bool{},
		states:      map[uuid.UUID]domain.DeskState{},
		transitions: map[uuid.UUID]domain.Transition{},
		inUse:       map[uuid.UUID]int64{},
	}
	for _, d := range desks {
		r.desks[d] = true
	}
	return r
}

func (r *fakeRepo) DeskExists(_ context.Context, deskID uuid.UUID) (bool, error) {
	return r.desks[deskID], nil
}

func (r *fakeRepo) ListStates(_ context.Context, deskID uuid.UUID, includeInactive bool) ([]domain.DeskState, error) {
	out := []domain.DeskState{}
	for _, s := range r.states {
		if s.DeskID == deskID && (includeInactive || s.IsActive) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *fakeRepo) GetState(_ context.Context, id uuid.UUID) (domain.DeskState, error) {
	s, ok := r.states[id]
	if !ok {
		return domain.DeskState{}, apperr.NotFound("desk state not found")
	}
	return s, nil
}

func (r *fakeRepo) CreateState(ctx context.Context, in repository.NewState) (domain.DeskState, error) {
	all, _ := r.ListStates(ctx, in.DeskID, true)
	if domain.HasName(all, in.Name) {
		return domain.DeskState{}, apperr.Validation("a state with this name already exists in the desk")
	}
	next := 0
	for _, s := range all {
		if s.SortOrder > next {
			next = s.SortOrder
		}
	}
	now := time.Now()
	s := domain.DeskState{
		ID: uuid.New(), DeskID: in.DeskID, Name: in.Name, DisplayName: in.DisplayName, Color: in.Color, Icon: in.Icon,
		IsInitial: in.IsInitial, IsFinal: in.IsFinal, IsActive: true, IsSelectable: in.IsSelectable,
		SortOrder: next + 1, CreatedAt: now, UpdatedAt: now,
	}
	r.states[s.ID] = s
	return s, nil
}

func (r *fakeRepo) DeactivateState(_ context.Context, id uuid.UUID) (domain.DeskState, error) {
	s, ok := r.states[id]
	if !ok {
		return domain.DeskState{}, apperr.NotFound("desk state not found")
	}
	if r.inUse[id] > 0 {
		return domain.DeskState{}, apperr.Conflict("state is in use")
	}
	s.IsActive = false
	r.states[id] = s
	return s, nil
}

func (r *fakeRepo) SetSelectable(_ context.Context, id uuid.UUID, selectable bool) (domain.DeskState, error) {
	s, ok := r.states[id]
	if !ok {
		return domain.DeskState{}, apperr.NotFound("desk state not found")
	}
	s.IsSelectable = selectable
	r.states[id] = s
	return s, nil
}

func (r *fakeRepo) Reorder(ctx context.Context, deskID uuid.UUID, ids []uuid.UUID) ([]domain.DeskState, error) {
	active, _ := r.ListStates(ctx, deskID, false)
	existing := make([]uuid.UUID, 0, len(active))
	for _, s := range active {
		existing = append(existing, s.ID)
	}
	if err := domain.ValidateOrder(existing, ids); err != nil {
		return nil, err
	}
	for i, id := range ids {
		s := r.states[id]
		s.SortOrder = i + 1
		r.states[id] = s
	}
	return r.ListStates(ctx, deskID, false)
}

func (r *fakeRepo) Seed(ctx context.Context, deskID uuid.UUID, states []repository.NewState, edges []repository.SeedEdge) ([]domain.DeskState, error) {
	if !r.desks[deskID] {
		return nil, apperr.NotFound("desk not found")
	}
	if all, _ := r.ListStates(ctx, deskID, true); len(all) > 0 {
		return nil, apperr.Conflict("desk already has states")
	}
	created := []domain.DeskState{}
	byName := map[string]uuid.UUID{}
	for _, in := range states {
		s, err := r.CreateState(ctx, in)
		if err != nil {
			return nil, err
		}
		byName[s.Name] = s.ID
		created = append(created, s)
	}
	for _, e := range edges {
		desk := deskID
		_, _ = r.CreateTransition(ctx, repository.NewTransition{FromStateID: byName[e.From], ToStateID: byName[e.To], DeskID: &desk})
	}
	return created, nil
}

func (r *fakeRepo) ListTransitions(_ context.Context, deskID uuid.UUID) ([]domain.Transition, error) {
	out := []domain.Transition{}
	for _, t := range r.transitions {
		if t.DeskID != nil && *t.DeskID == deskID {
			out = append(out, t)
			continue
		}
		if t.DeskID == nil && r.states[t.FromStateID].DeskID == deskID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeRepo) GetTransition(_ context.Context, id uuid.UUID) (domain.Transition, error) {
	t, ok := r.transitions[id]
	if !ok {
		return domain.Transition{}, apperr.NotFound("transition not found")
	}
	return t, nil
}

func (r *fakeRepo) CreateTransition(_ context.Context, in repository.NewTransition) (domain.Transition, error) {
	t := domain.Transition{
		ID: uuid.New(), FromStateID: in.FromStateID, ToStateID: in.ToStateID, DeskID: in.DeskID,
		RequiredPermission: in.RequiredPermission, IsActive: true, CreatedAt: time.Now(),
	}
	r.transitions[t.ID] = t
	return t, nil
}

func (r *fakeRepo) DeleteTransition(_ context.Context, id uuid.UUID) error {
	if _, ok := r.transitions[id]; !ok {
		return apperr.NotFound("transition not found")
	}
	delete(r.transitions, id)
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("production", io.Discard)
}

func manager(deskIDs ...uuid.UUID) *accessdomain.Identity {
	perms := accessdomain.NewPermissionSet(
		string(accessdomain.PermViewDeskLeads),
		string(accessdomain.PermManageDeskStates),
		string(accessdomain.PermManageTransitions),
	)
	return accessdomain.NewIdentity(uuid.New(), []string{"desk_manager"}, perms, deskIDs)
}

func admin() *accessdomain.Identity {
	perms := accessdomain.NewPermissionSet(
		string(accessdomain.PermViewAllLeads),
		string(accessdomain.PermManageDeskStates),
		string(accessdomain.PermManageTransitions),
	)
	return accessdomain.NewIdentity(uuid.New(), []string{"admin"}, perms, nil)
}

func agent(deskIDs ...uuid.UUID) *accessdomain.Identity {
	perms := accessdomain.NewPermissionSet(string(accessdomain.PermViewAssignedLeads), string(accessdomain.PermChangeLeadState))
	return accessdomain.NewIdentity(uuid.New(), []string{"agent"}, perms, deskIDs)
}
