package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	accessdomain "deskcrm_backend/internal/access/domain"
	desksdomain "deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/events"
	"deskcrm_backend/internal/leads/domain"
	"deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// memStore is an in-memory leads store. InTx holds a mutex for the whole
// transaction, which stands in for the lead row lock.
type memStore struct {
	mu         sync.Mutex
	leads      map[uuid.UUID]domain.Lead
	states     map[uuid.UUID]desksdomain.DeskState
	edges      []desksdomain.Transition
	history    []domain.HistoryEntry
	failAppend bool
}

var _ Repository = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		leads:  map[uuid.UUID]domain.Lead{},
		states: map[uuid.UUID]desksdomain.DeskState{},
	}
}

func (m *memStore) InTx(ctx context.Context, fn func(tx repository.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	leads := make(map[uuid.UUID]domain.Lead, len(m.leads))
	for k, v := range m.leads {
		leads[k] = v
	}
	historyLen := len(m.history)

	if err := fn(memTx{m}); err != nil {
		m.leads = leads
		m.history = m.history[:historyLen]
		return err
	}
	return nil
}

func (m *memStore) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return l, nil
}

func (m *memStore) GetLeadView(ctx context.Context, id uuid.UUID) (domain.LeadView, error) {
	l, err := m.GetLead(ctx, id)
	if err != nil {
		return domain.LeadView{}, err
	}
	v := domain.LeadView{Lead: l}
	for _, s := range m.states {
		if l.DeskID != nil && s.DeskID == *l.DeskID && s.IsActive && desksdomain.FoldName(s.Name) == desksdomain.FoldName(l.Status) {
			sid, label, color := s.ID, s.Label(), s.Color
			v.StateID, v.StateLabel, v.StateColor = &sid, &label, &color
		}
	}
	return v, nil
}

func (m *memStore) ListHistory(_ context.Context, leadID uuid.UUID) ([]domain.HistoryView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.HistoryView{}
	for _, h := range m.history {
		if h.LeadID == leadID {
			out = append(out, domain.HistoryView{HistoryEntry: h, NewStateLabel: m.states[h.NewStateID].Label()})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ChangedAt.After(out[j].ChangedAt) })
	return out, nil
}

func (m *memStore) leadHistory(leadID uuid.UUID) []domain.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.HistoryEntry{}
	for _, h := range m.history {
		if h.LeadID == leadID {
			out = append(out, h)
		}
	}
	return out
}

func (m *memStore) status(leadID uuid.UUID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leads[leadID].Status
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
	s, ok := t.m.states[id]
	if !ok {
		return desksdomain.DeskState{}, apperr.NotFound("desk state not found")
	}
	return s, nil
}

func (t memTx) UpdateStatus(_ context.Context, leadID uuid.UUID, status string) (time.Time, error) {
	l := t.m.leads[leadID]
	l.Status = status
	l.UpdatedAt = time.Now()
	t.m.leads[leadID] = l
	return l.UpdatedAt, nil
}

func (t memTx) AppendHistory(_ context.Context, in domain.NewHistoryEntry) (domain.HistoryEntry, error) {
	if t.m.failAppend {
		return domain.HistoryEntry{}, errors.New("connection reset")
	}
	e := domain.HistoryEntry{
		ID: uuid.New(), LeadID: in.LeadID, OldStateID: in.OldStateID, NewStateID: in.NewStateID,
		ChangedBy: in.ChangedBy, Reason: in.Reason, ChangedAt: time.Now().Add(time.Duration(len(t.m.history)) * time.Millisecond),
	}
	t.m.history = append(t.m.history, e)
	return e, nil
}

func (t memTx) ResolveFlag(context.Context, uuid.UUID) error { return nil }

type memGraphs struct{ m *memStore }

func (g memGraphs) LoadGraph(_ context.Context, deskID uuid.UUID) (*desksdomain.Graph, error) {
	states := make([]desksdomain.DeskState, 0, len(g.m.states))
	for _, s := range g.m.states {
		states = append(states, s)
	}
	return desksdomain.NewGraph(deskID, states, g.m.edges), nil
}

type memAccess struct{ m *memStore }

func (a memAccess) CanAccessLead(ctx context.Context, id *accessdomain.Identity, leadID uuid.UUID) bool {
	l, err := a.m.GetLead(ctx, leadID)
	if err != nil {
		return false
	}
	return id.CanAccess(l.Access())
}

func (a memAccess) LeadsFilter(id *accessdomain.Identity) accessdomain.LeadFilter {
	return id.LeadsFilter()
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fixture struct {
	store                            *memStore
	bus                              *recordingBus
	logs                             *bytes.Buffer
	svc                              *Service
	desk                             uuid.UUID
	newS, contacted, qualified, lost desksdomain.DeskState
}

// newAlpha builds desk Alpha: New(initial) -> Contacted -> Qualified(final),
// plus a hidden Lost state reachable from Contacted.
func newAlpha() *fixture {
	store := newMemStore()
	bus := &recordingBus{}
	logs := &bytes.Buffer{}
	f := &fixture{store: store, bus: bus, logs: logs, desk: uuid.New()}

	mk := func(name string, order int) desksdomain.DeskState {
		s := desksdomain.DeskState{ID: uuid.New(), DeskID: f.desk, Name: name, DisplayName: name, Color: "#000000", IsActive: true, IsSelectable: true, SortOrder: order}
		store.states[s.ID] = s
		return s
	}
	f.newS = mk("New", 1)
	f.contacted = mk("Contacted", 2)
	f.qualified = mk("Qualified", 3)
	f.lost = mk("Lost", 4)

	edge := func(from, to desksdomain.DeskState) {
		desk := f.desk
		store.edges = append(store.edges, desksdomain.Transition{ID: uuid.New(), FromStateID: from.ID, ToStateID: to.ID, DeskID: &desk, IsActive: true})
	}
	edge(f.newS, f.contacted)
	edge(f.contacted, f.qualified)
	edge(f.contacted, f.lost)

	f.svc = New(store, memGraphs{store}, memAccess{store}, bus, logger.NewWithWriter("production", logs))
	return f
}

func (f *fixture) addLead(status string, assignedTo *uuid.UUID) uuid.UUID {
	desk := f.desk
	l := domain.Lead{ID: uuid.New(), DeskID: &desk, AssignedTo: assignedTo, FirstName: "Jan", LastName: "Jansen", Status: status}
	f.store.leads[l.ID] = l
	return l.ID
}

func deskAgent(desk uuid.UUID, extra ...string) *accessdomain.Identity {
	perms := append([]string{string(accessdomain.PermViewDeskLeads), string(accessdomain.PermChangeLeadState)}, extra...)
	return accessdomain.NewIdentity(uuid.New(), []string{"agent"}, accessdomain.NewPermissionSet(perms...), []uuid.UUID{desk})
}
