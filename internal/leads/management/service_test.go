package management

import (
	"context"
	"testing"

	accessdomain "deskcrm_backend/internal/access/domain"
	"deskcrm_backend/internal/leads/domain"
	"deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/internal/leads/transport"
	"deskcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	leads  []domain.LeadView
	params *repository.ListParams
}

func (f *fakeRepo) GetLeadView(_ context.Context, id uuid.UUID) (domain.LeadView, error) {
	for _, l := range f.leads {
		if l.ID == id {
			return l, nil
		}
	}
	return domain.LeadView{}, apperr.NotFound("lead not found")
}

func (f *fakeRepo) ListLeads(_ context.Context, p repository.ListParams) ([]domain.LeadView, int, error) {
	f.params = &p
	out := []domain.LeadView{}
	for _, l := range f.leads {
		if p.Filter.Matches(l.Access()) {
			out = append(out, l)
		}
	}
	return out, len(out), nil
}

type filterAccess struct{ repo *fakeRepo }

func (a filterAccess) CanAccessLead(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID) bool {
	l, err := a.repo.GetLeadView(ctx, leadID)
	return err == nil && id.CanAccess(l.Access())
}

func (a filterAccess) LeadsFilter(id *accessdomain.Identity) accessdomain.LeadFilter {
	return id.LeadsFilter()
}

func lead(desk *uuid.UUID, assignee *uuid.UUID) domain.LeadView {
	return domain.LeadView{Lead: domain.Lead{ID: uuid.New(), DeskID: desk, AssignedTo: assignee, Status: "New"}}
}

func TestListAppliesLeadsFilter(t *testing.T) {
	deskA, deskB := uuid.New(), uuid.New()
	me := uuid.New()
	repo := &fakeRepo{leads: []domain.LeadView{lead(&deskA, &me), lead(&deskA, nil), lead(&deskB, nil)}}
	svc := New(repo, filterAccess{repo})
	ctx := context.Background()

	deskScope := accessdomain.NewIdentity(me, nil, accessdomain.NewPermissionSet(string(accessdomain.PermViewDeskLeads)), []uuid.UUID{deskA})
	resp, err := svc.List(ctx, deskScope, transport.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 20, resp.PageSize)
	assert.Equal(t, 1, resp.TotalPages)

	selfScope := accessdomain.NewIdentity(me, nil, accessdomain.NewPermissionSet(string(accessdomain.PermViewAssignedLeads)), []uuid.UUID{deskA})
	resp, err = svc.List(ctx, selfScope, transport.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)

	global := accessdomain.NewIdentity(me, nil, accessdomain.NewPermissionSet(string(accessdomain.PermViewAllLeads)), nil)
	resp, err = svc.List(ctx, global, transport.ListLeadsRequest{Page: 2, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 100, resp.PageSize)
	assert.Equal(t, 100, repo.params.Offset)
}

func TestListWithoutScopeSkipsQuery(t *testing.T) {
	repo := &fakeRepo{}
	svc := New(repo, filterAccess{repo})

	resp, err := svc.List(context.Background(), accessdomain.NewIdentity(uuid.New(), nil, nil, nil), transport.ListLeadsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.NotNil(t, resp.Items)
	assert.Nil(t, repo.params)
}

func TestListRejectsMalformedDeskID(t *testing.T) {
	repo := &fakeRepo{}
	global := accessdomain.NewIdentity(uuid.New(), nil, accessdomain.NewPermissionSet(string(accessdomain.PermViewAllLeads)), nil)

	_, err := New(repo, filterAccess{repo}).List(context.Background(), global, transport.ListLeadsRequest{DeskID: "nope"})
	assert.Equal(t, apperr.KindValidation, apperr.GetKind(err))
}

func TestGetByIDChecksRowAccess(t *testing.T) {
	desk := uuid.New()
	colleague := uuid.New()
	l := lead(&desk, &colleague)
	repo := &fakeRepo{leads: []domain.LeadView{l}}
	svc := New(repo, filterAccess{repo})

	self := accessdomain.NewIdentity(uuid.New(), nil, accessdomain.NewPermissionSet(string(accessdomain.PermViewAssignedLeads)), []uuid.UUID{desk})
	_, err := svc.GetByID(context.Background(), self, l.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.GetKind(err))

	deskScope := accessdomain.NewIdentity(uuid.New(), nil, accessdomain.NewPermissionSet(string(accessdomain.PermViewDeskLeads)), []uuid.UUID{desk})
	resp, err := svc.GetByID(context.Background(), deskScope, l.ID)
	require.NoError(t, err)
	assert.Equal(t, l.ID, resp.ID)
}
