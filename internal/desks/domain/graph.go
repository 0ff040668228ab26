package domain

import (
	"sort"

	"github.com/google/uuid"
)

// Available is a one-hop target reachable from a state.
type Available struct {
	State              DeskState
	TransitionID       uuid.UUID
	RequiredPermission *string
}

type edge struct {
	to           int
	transitionID uuid.UUID
	permission   *string
}

// Graph is a desk's active states and edges, loaded once per request.
// States live in an arena slice; maps index into it by id and folded name.
type Graph struct {
	deskID uuid.UUID
	nodes  []DeskState
	byID   map[uuid.UUID]int
	byName map[string]int
	out    [][]edge
}

// NewGraph indexes the given states and transitions. Inactive states, inactive
// edges and edges whose endpoints are not both active states of the desk are
// left out.
func NewGraph(deskID uuid.UUID, states []DeskState, transitions []Transition) *Graph {
	active := make([]DeskState, 0, len(states))
	for _, s := range states {
		if s.IsActive && s.DeskID == deskID {
			active = append(active, s)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].SortOrder < active[j].SortOrder })

	g := &Graph{
		deskID: deskID,
		nodes:  active,
		byID:   make(map[uuid.UUID]int, len(active)),
		byName: make(map[string]int, len(active)),
		out:    make([][]edge, len(active)),
	}
	for i, s := range active {
		g.byID[s.ID] = i
		g.byName[FoldName(s.Name)] = i
	}

	for _, t := range transitions {
		if !t.IsActive {
			continue
		}
		if t.DeskID != nil && *t.DeskID != deskID {
			continue
		}
		from, okFrom := g.byID[t.FromStateID]
		to, okTo := g.byID[t.ToStateID]
		if !okFrom || !okTo || from == to {
			continue
		}
		g.out[from] = append(g.out[from], edge{to: to, transitionID: t.ID, permission: t.RequiredPermission})
	}

	for i := range g.out {
		edges := g.out[i]
		sort.SliceStable(edges, func(a, b int) bool {
			return g.nodes[edges[a].to].SortOrder < g.nodes[edges[b].to].SortOrder
		})
	}

	return g
}

// DeskID returns the desk the graph belongs to.
func (g *Graph) DeskID() uuid.UUID {
	return g.deskID
}

// States returns the active states ordered by sort order.
func (g *Graph) States() []DeskState {
	out := make([]DeskState, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// State looks up an active state by id.
func (g *Graph) State(id uuid.UUID) (DeskState, bool) {
	i, ok := g.byID[id]
	if !ok {
		return DeskState{}, false
	}
	return g.nodes[i], true
}

// ResolveStatus finds the active state whose name matches a lead status,
// ignoring case.
func (g *Graph) ResolveStatus(status string) (DeskState, bool) {
	i, ok := g.byName[FoldName(status)]
	if !ok {
		return DeskState{}, false
	}
	return g.nodes[i], true
}

// Initial returns the state flagged initial, or the state named "new".
func (g *Graph) Initial() (DeskState, bool) {
	if s, ok := InitialState(g.nodes); ok {
		return s, true
	}
	return g.ResolveStatus(fallbackInitialName)
}

// IsValid reports whether moving from one state to another is allowed.
// A self-transition is always valid.
func (g *Graph) IsValid(from, to uuid.UUID) bool {
	if from == to {
		return true
	}
	_, ok := g.Edge(from, to)
	return ok
}

// Edge returns the edge between two states.
func (g *Graph) Edge(from, to uuid.UUID) (Available, bool) {
	i, ok := g.byID[from]
	if !ok {
		return Available{}, false
	}
	j, ok := g.byID[to]
	if !ok {
		return Available{}, false
	}
	for _, e := range g.out[i] {
		if e.to == j {
			return Available{State: g.nodes[j], TransitionID: e.transitionID, RequiredPermission: e.permission}, true
		}
	}
	return Available{}, false
}

// Available returns the targets one hop away from a state, ordered by the
// target's sort order. There is no path search.
func (g *Graph) Available(from uuid.UUID) []Available {
	i, ok := g.byID[from]
	if !ok {
		return nil
	}
	out := make([]Available, 0, len(g.out[i]))
	for _, e := range g.out[i] {
		out = append(out, Available{State: g.nodes[e.to], TransitionID: e.transitionID, RequiredPermission: e.permission})
	}
	return out
}
