package domain

import (
	"deskcrm_backend/platform/apperr"

	"github.com/google/uuid"
)

// ValidateOrder checks that supplied is a permutation of existing.
func ValidateOrder(existing, supplied []uuid.UUID) error {
	if len(supplied) != len(existing) {
		return apperr.Validation("state order must list every state of the desk exactly once")
	}

	want := make(map[uuid.UUID]struct{}, len(existing))
	for _, id := range existing {
		want[id] = struct{}{}
	}
	seen := make(map[uuid.UUID]struct{}, len(supplied))
	for _, id := range supplied {
		if _, ok := want[id]; !ok {
			return apperr.Validation("state " + id.String() + " does not belong to the desk")
		}
		if _, dup := seen[id]; dup {
			return apperr.Validation("state " + id.String() + " is listed more than once")
		}
		seen[id] = struct{}{}
	}
	return nil
}

// ValidateEdge checks the endpoints of a new transition. Both must be active
// states of the desk and distinct.
func ValidateEdge(deskID uuid.UUID, from, to DeskState) error {
	if from.ID == to.ID {
		return apperr.Validation("self-transitions are implicit and cannot be stored")
	}
	if from.DeskID != deskID || to.DeskID != deskID {
		return apperr.Validation("both states must belong to the desk")
	}
	if !from.IsActive || !to.IsActive {
		return apperr.Validation("both states must be active")
	}
	return nil
}

// HasName reports whether a state with the same folded name exists.
func HasName(states []DeskState, name string) bool {
	folded := FoldName(name)
	for _, s := range states {
		if FoldName(s.Name) == folded {
			return true
		}
	}
	return false
}

// InitialState returns the active state flagged initial. A desk has at most one.
func InitialState(states []DeskState) (DeskState, bool) {
	for _, s := range states {
		if s.IsActive && s.IsInitial {
			return s, true
		}
	}
	return DeskState{}, false
}
