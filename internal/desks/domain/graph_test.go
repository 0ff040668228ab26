package domain

import (
	"strings"
	"testing"

	"deskcrm_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alphaDesk struct {
	desk                       uuid.UUID
	newS, contacted, qualified DeskState
	lost                       DeskState
	states                     []DeskState
	transitions                []Transition
}

func newAlphaDesk() alphaDesk {
	desk := uuid.New()
	mk := func(name string, order int, initial, final bool) DeskState {
		return DeskState{ID: uuid.New(), DeskID: desk, Name: name, DisplayName: name, IsInitial: initial, IsFinal: final, IsActive: true, IsSelectable: true, SortOrder: order}
	}
	a := alphaDesk{desk: desk}
	a.newS = mk("New", 1, true, false)
	a.contacted = mk("Contacted", 2, false, false)
	a.qualified = mk("Qualified", 3, false, true)
	a.lost = mk("Lost", 4, false, true)
	a.lost.IsActive = false
	a.states = []DeskState{a.qualified, a.newS, a.lost, a.contacted}
	a.transitions = []Transition{
		{ID: uuid.New(), FromStateID: a.newS.ID, ToStateID: a.contacted.ID, DeskID: &desk, IsActive: true},
		{ID: uuid.New(), FromStateID: a.contacted.ID, ToStateID: a.qualified.ID, DeskID: &desk, IsActive: true},
		{ID: uuid.New(), FromStateID: a.contacted.ID, ToStateID: a.lost.ID, DeskID: &desk, IsActive: true},
	}
	return a
}

func TestGraphValidatesOneHopEdges(t *testing.T) {
	a := newAlphaDesk()
	g := NewGraph(a.desk, a.states, a.transitions)

	assert.True(t, g.IsValid(a.newS.ID, a.contacted.ID))
	assert.True(t, g.IsValid(a.contacted.ID, a.qualified.ID))
	assert.False(t, g.IsValid(a.newS.ID, a.qualified.ID), "no path search")
	assert.False(t, g.IsValid(a.qualified.ID, a.newS.ID), "edges are directed")
	assert.False(t, g.IsValid(a.contacted.ID, a.lost.ID), "edge to inactive state is ignored")
}

func TestGraphSelfTransitionAlwaysValid(t *testing.T) {
	a := newAlphaDesk()
	g := NewGraph(a.desk, a.states, nil)

	for _, s := range g.States() {
		assert.True(t, g.IsValid(s.ID, s.ID), s.Name)
	}
}

func TestGraphStatesSortedAndActiveOnly(t *testing.T) {
	a := newAlphaDesk()
	g := NewGraph(a.desk, a.states, a.transitions)

	names := []string{}
	for _, s := range g.States() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"New", "Contacted", "Qualified"}, names)
}

func TestGraphResolveStatusIgnoresCase(t *testing.T) {
	a := newAlphaDesk()
	g := NewGraph(a.desk, a.states, a.transitions)

	s, ok := g.ResolveStatus("CONTACTED")
	require.True(t, ok)
	assert.Equal(t, a.contacted.ID, s.ID)

	_, ok = g.ResolveStatus("Legacy Hot")
	assert.False(t, ok)
	_, ok = g.ResolveStatus("Lost")
	assert.False(t, ok, "inactive states do not resolve")
}

func TestGraphInitialFallsBackToNew(t *testing.T) {
	a := newAlphaDesk()
	initial, ok := NewGraph(a.desk, a.states, nil).Initial()
	require.True(t, ok)
	assert.Equal(t, a.newS.ID, initial.ID)

	a.newS.IsInitial = false
	initial, ok = NewGraph(a.desk, []DeskState{a.contacted, a.newS}, nil).Initial()
	require.True(t, ok)
	assert.Equal(t, a.newS.ID, initial.ID)

	_, ok = NewGraph(a.desk, []DeskState{a.contacted}, nil).Initial()
	assert.False(t, ok)
}

func TestGraphAvailableCarriesRequiredPermission(t *testing.T) {
	a := newAlphaDesk()
	perm := "leads.approve"
	a.transitions = append(a.transitions, Transition{ID: uuid.New(), FromStateID: a.newS.ID, ToStateID: a.qualified.ID, RequiredPermission: &perm, IsActive: true})
	g := NewGraph(a.desk, a.states, a.transitions)

	available := g.Available(a.newS.ID)
	require.Len(t, available, 2)
	assert.Equal(t, a.contacted.ID, available[0].State.ID)
	assert.Nil(t, available[0].RequiredPermission)
	assert.Equal(t, a.qualified.ID, available[1].State.ID)
	assert.Equal(t, "leads.approve", *available[1].RequiredPermission)

	assert.Nil(t, g.Available(uuid.New()))
}

func TestGraphIgnoresOtherDeskAndInactiveEdges(t *testing.T) {
	a := newAlphaDesk()
	otherDesk := uuid.New()
	a.transitions = append(a.transitions,
		Transition{ID: uuid.New(), FromStateID: a.newS.ID, ToStateID: a.qualified.ID, DeskID: &otherDesk, IsActive: true},
		Transition{ID: uuid.New(), FromStateID: a.qualified.ID, ToStateID: a.newS.ID, DeskID: &a.desk, IsActive: false},
	)
	g := NewGraph(a.desk, a.states, a.transitions)

	assert.False(t, g.IsValid(a.newS.ID, a.qualified.ID))
	assert.False(t, g.IsValid(a.qualified.ID, a.newS.ID))
}

func TestValidateOrder(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	existing := []uuid.UUID{a, b, c}

	assert.NoError(t, ValidateOrder(existing, []uuid.UUID{c, a, b}))
	for name, supplied := range map[string][]uuid.UUID{
		"missing":   {a, b},
		"extra":     {a, b, c, uuid.New()},
		"foreign":   {a, b, uuid.New()},
		"duplicate": {a, a, b},
	} {
		err := ValidateOrder(existing, supplied)
		assert.Equal(t, apperr.KindValidation, apperr.GetKind(err), name)
	}
}

func TestValidateEdge(t *testing.T) {
	a := newAlphaDesk()

	assert.NoError(t, ValidateEdge(a.desk, a.newS, a.contacted))
	assert.Error(t, ValidateEdge(a.desk, a.newS, a.newS))
	assert.Error(t, ValidateEdge(a.desk, a.newS, a.lost))
	assert.Error(t, ValidateEdge(uuid.New(), a.newS, a.contacted))
}

func TestHasNameFoldsCase(t *testing.T) {
	states := []DeskState{{Name: "Qualified"}}
	assert.True(t, HasName(states, "QUALIFIED"))
	assert.False(t, HasName(states, " qualified"))
	assert.False(t, HasName(states, "Won"))
}

// sqlLowerEqual models the lower(status) = lower(name) predicate used by the
// in-use check, the lead view join and the status filter.
func sqlLowerEqual(status, name string) bool {
	return strings.ToLower(status) == strings.ToLower(name)
}

func TestResolveStatusAgreesWithInUseCheck(t *testing.T) {
	desk := uuid.New()
	contacted := DeskState{ID: uuid.New(), DeskID: desk, Name: "Contacted", IsActive: true}
	strasse := DeskState{ID: uuid.New(), DeskID: desk, Name: "Straße", IsActive: true}
	g := NewGraph(desk, []DeskState{contacted, strasse}, nil)

	for _, tc := range []struct {
		state  DeskState
		status string
		want   bool
	}{
		{contacted, "Contacted", true},
		{contacted, "cONTACTED", true},
		{contacted, "Contacted ", false},
		{contacted, " contacted", false},
		{strasse, "STRAßE", true},
		{strasse, "STRASSE", false},
	} {
		resolved, ok := g.ResolveStatus(tc.status)
		graphMatch := ok && resolved.ID == tc.state.ID
		assert.Equal(t, tc.want, graphMatch, "graph %q", tc.status)
		assert.Equal(t, sqlLowerEqual(tc.status, tc.state.Name), graphMatch, "graph and database disagree on %q", tc.status)
	}
}
