package backfill

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	desksdomain "deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/events"
	"deskcrm_backend/internal/leads/domain"
	"deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	desks   []uuid.UUID
	leads   map[uuid.UUID]domain.Lead
	states  map[uuid.UUID]desksdomain.DeskState
	flags   map[uuid.UUID]domain.StatusFlag
	history []domain.NewHistoryEntry
}

var _ Store = (*memStore)(nil)

func (m *memStore) ListDeskIDs(context.Context) ([]uuid.UUID, error) { return m.desks, nil }

func (m *memStore) ListLeadStatuses(_ context.Context, deskID uuid.UUID) ([]domain.LeadStatus, error) {
	out := []domain.LeadStatus{}
	for _, l := range m.leads {
		if l.DeskID != nil && *l.DeskID == deskID {
			out = append(out, domain.LeadStatus{LeadID: l.ID, Status: l.Status})
		}
	}
	return out, nil
}

func (m *memStore) FlagLead(_ context.Context, f domain.StatusFlag) (bool, error) {
	if existing, ok := m.flags[f.LeadID]; ok && existing.RawStatus == f.RawStatus {
		return false, nil
	}
	f.DetectedAt = time.Now()
	m.flags[f.LeadID] = f
	return true, nil
}

func (m *memStore) ResolveFlag(_ context.Context, leadID uuid.UUID) (bool, error) {
	_, ok := m.flags[leadID]
	delete(m.flags, leadID)
	return ok, nil
}

func (m *memStore) ListOpenFlags(context.Context) ([]domain.StatusFlag, error) {
	out := []domain.StatusFlag{}
	for _, f := range m.flags {
		out = append(out, f)
	}
	return out, nil
}

func (m *memStore) InTx(ctx context.Context, fn func(tx repository.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(memTx{m})
}

type memTx struct{ m *memStore }

func (t memTx) LockLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	l, ok := t.m.leads[id]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (t memTx) LockState(_ context.Context, id uuid.UUID) (desksdomain.DeskState, error) {
	return t.m.states[id], nil
}

func (t memTx) UpdateStatus(_ context.Context, leadID uuid.UUID, status string) (time.Time, error) {
	l := t.m.leads[leadID]
	l.Status = status
	t.m.leads[leadID] = l
	return time.Now(), nil
}

func (t memTx) AppendHistory(_ context.Context, e domain.NewHistoryEntry) (domain.HistoryEntry, error) {
	t.m.history = append(t.m.history, e)
	return domain.HistoryEntry{ID: uuid.New()}, nil
}

func (t memTx) ResolveFlag(ctx context.Context, leadID uuid.UUID) error {
	_, err := t.m.ResolveFlag(ctx, leadID)
	return err
}

type memGraphs struct{ m *memStore }

func (g memGraphs) LoadGraph(_ context.Context, deskID uuid.UUID) (*desksdomain.Graph, error) {
	states := []desksdomain.DeskState{}
	for _, s := range g.m.states {
		states = append(states, s)
	}
	return desksdomain.NewGraph(deskID, states, nil), nil
}

type fixture struct {
	store     *memStore
	auditor   *Auditor
	desk      uuid.UUID
	newState  desksdomain.DeskState
	contacted desksdomain.DeskState
}

func newFixture() *fixture {
	desk := uuid.New()
	store := &memStore{
		desks:  []uuid.UUID{desk},
		leads:  map[uuid.UUID]domain.Lead{},
		states: map[uuid.UUID]desksdomain.DeskState{},
		flags:  map[uuid.UUID]domain.StatusFlag{},
	}
	f := &fixture{store: store, desk: desk}
	f.newState = desksdomain.DeskState{ID: uuid.New(), DeskID: desk, Name: "New", IsActive: true, IsSelectable: true, SortOrder: 1}
	f.contacted = desksdomain.DeskState{ID: uuid.New(), DeskID: desk, Name: "Contacted", IsActive: true, IsSelectable: true, SortOrder: 2}
	store.states[f.newState.ID] = f.newState
	store.states[f.contacted.ID] = f.contacted
	f.auditor = New(store, memGraphs{store}, logger.NewWithWriter("production", io.Discard))
	return f
}

func (f *fixture) addLead(status string) uuid.UUID {
	desk := f.desk
	l := domain.Lead{ID: uuid.New(), DeskID: &desk, Status: status}
	f.store.leads[l.ID] = l
	return l.ID
}

func TestScanFlagsUnresolvedLeadsOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addLead("New")
	f.addLead("contacted")
	legacy := f.addLead("Hot Prospect")

	report, err := f.auditor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, ScanReport{Desks: 1, Scanned: 3, Flagged: 1}, report)
	assert.Contains(t, f.store.flags, legacy)

	report, err = f.auditor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Flagged)
}

func TestScanResolvesFixedLeads(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	lead := f.addLead("Hot Prospect")

	_, err := f.auditor.Scan(ctx)
	require.NoError(t, err)

	l := f.store.leads[lead]
	l.Status = "New"
	f.store.leads[lead] = l

	report, err := f.auditor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Resolved)
	assert.Empty(t, f.store.flags)
}

func TestApplyMapsByNameThenInitial(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	cased := f.addLead("CONTACTED")
	padded := f.addLead(" Contacted ")
	legacy := f.addLead("Hot Prospect")
	actor := uuid.New()

	inactive := desksdomain.DeskState{ID: uuid.New(), DeskID: f.desk, Name: "Archived", IsActive: false}
	f.store.states[inactive.ID] = inactive
	for _, id := range []uuid.UUID{cased, padded, legacy} {
		f.store.flags[id] = domain.StatusFlag{LeadID: id, DeskID: f.desk, RawStatus: f.store.leads[id].Status}
	}

	report, err := f.auditor.Apply(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fixed)
	assert.Equal(t, 1, report.Skipped, "the cased lead already resolves and only has its flag closed")

	assert.Equal(t, "CONTACTED", f.store.leads[cased].Status)
	assert.Equal(t, "Contacted", f.store.leads[padded].Status)
	assert.Equal(t, "New", f.store.leads[legacy].Status)

	require.Len(t, f.store.history, 2)
	targets := map[uuid.UUID]uuid.UUID{}
	for _, h := range f.store.history {
		assert.Nil(t, h.OldStateID)
		assert.Equal(t, actor, h.ChangedBy)
		assert.Equal(t, Reason, *h.Reason)
		targets[h.LeadID] = h.NewStateID
	}
	assert.Equal(t, f.contacted.ID, targets[padded])
	assert.Equal(t, f.newState.ID, targets[legacy])
	assert.Empty(t, f.store.flags)
}

func TestScanFlagsPaddedStatus(t *testing.T) {
	f := newFixture()
	padded := f.addLead("Contacted ")

	report, err := f.auditor.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Flagged)
	assert.Contains(t, f.store.flags, padded)
}

func TestApplySkipsDeskWithoutInitialState(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	delete(f.store.states, f.newState.ID)
	lead := f.addLead("Hot Prospect")
	f.store.flags[lead] = domain.StatusFlag{LeadID: lead, DeskID: f.desk, RawStatus: "Hot Prospect"}

	report, err := f.auditor.Apply(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, ApplyReport{Skipped: 1}, report)
	assert.Equal(t, "Hot Prospect", f.store.leads[lead].Status)
}

func TestApplyIgnoresDeletedLeads(t *testing.T) {
	f := newFixture()
	gone := uuid.New()
	f.store.flags[gone] = domain.StatusFlag{LeadID: gone, DeskID: f.desk, RawStatus: "x"}

	report, err := f.auditor.Apply(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
}

func TestHandleResolvesFlagOnStateChange(t *testing.T) {
	f := newFixture()
	lead := f.addLead("Hot Prospect")
	f.store.flags[lead] = domain.StatusFlag{LeadID: lead, DeskID: f.desk, RawStatus: "Hot Prospect"}

	require.NoError(t, f.auditor.Handle(context.Background(), events.LeadStateChanged{LeadID: lead}))
	assert.Empty(t, f.store.flags)

	require.NoError(t, f.auditor.Handle(context.Background(), events.PermissionsChanged{UserID: uuid.New()}))
}
