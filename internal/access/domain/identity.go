package domain

import (
	"github.com/google/uuid"
)

// Identity is an authenticated caller with its resolved permissions.
type Identity struct {
	ID          uuid.UUID
	Roles       []string
	Permissions PermissionSet
	DeskIDs     []uuid.UUID
	desks       map[uuid.UUID]struct{}
}

// NewIdentity builds an identity and indexes its desk assignments.
func NewIdentity(userID uuid.UUID, roles []string, perms PermissionSet, deskIDs []uuid.UUID) *Identity {
	if perms == nil {
		perms = PermissionSet{}
	}
	desks := make(map[uuid.UUID]struct{}, len(deskIDs))
	for _, id := range deskIDs {
		desks[id] = struct{}{}
	}
	return &Identity{
		ID:          userID,
		Roles:       roles,
		Permissions: perms,
		DeskIDs:     deskIDs,
		desks:       desks,
	}
}

// UserID returns the authenticated user's ID.
func (i *Identity) UserID() uuid.UUID {
	return i.ID
}

// HasPermission is an exact membership test against the effective set.
func (i *Identity) HasPermission(name string) bool {
	return i.Permissions.Has(Permission(name))
}

// Can reports whether the identity holds the permission guarding op.
// Unknown operations are denied.
func (i *Identity) Can(op Operation) bool {
	p, ok := RequiredPermission(op)
	return ok && i.Permissions.Has(p)
}

// InDesk reports whether the user is assigned to the desk.
func (i *Identity) InDesk(deskID uuid.UUID) bool {
	_, ok := i.desks[deskID]
	return ok
}

// LeadScope returns the widest lead scope the identity holds.
func (i *Identity) LeadScope() Scope {
	return i.Permissions.LeadScope()
}

// LeadAccess is the subset of a lead row needed for row-level checks.
type LeadAccess struct {
	LeadID     uuid.UUID
	DeskID     *uuid.UUID
	AssignedTo *uuid.UUID
}

// CanAccess applies the row-level rule: a global view permission, or the
// lead's desk among the user's desks with a desk-scope permission, or the
// lead assigned to the user with a self-scope permission.
func (i *Identity) CanAccess(lead LeadAccess) bool {
	if i.Permissions.Has(PermViewAllLeads) {
		return true
	}
	if lead.DeskID != nil && i.Permissions.Has(PermViewDeskLeads) && i.InDesk(*lead.DeskID) {
		return true
	}
	if lead.AssignedTo != nil && i.Permissions.Has(PermViewAssignedLeads) && *lead.AssignedTo == i.ID {
		return true
	}
	return false
}

// CanViewDesk reports whether desk-level configuration is visible to the identity.
func (i *Identity) CanViewDesk(deskID uuid.UUID) bool {
	return i.LeadScope() == ScopeGlobal || i.InDesk(deskID)
}

// CanManageDesk reports whether the identity may run op against the desk.
func (i *Identity) CanManageDesk(op Operation, deskID uuid.UUID) bool {
	return i.Can(op) && i.CanViewDesk(deskID)
}

// LeadFilter constrains lead listings. Exactly one mode applies, chosen by the
// widest scope: Unrestricted, DeskIDs or AssignedToID. A filter in none of
// the modes matches nothing.
type LeadFilter struct {
	Scope        Scope
	DeskIDs      []uuid.UUID
	AssignedToID *uuid.UUID
}

// Unrestricted reports whether the filter allows every lead.
func (f LeadFilter) Unrestricted() bool {
	return f.Scope == ScopeGlobal
}

// LeadsFilter derives the listing filter for the identity.
func (i *Identity) LeadsFilter() LeadFilter {
	switch i.LeadScope() {
	case ScopeGlobal:
		return LeadFilter{Scope: ScopeGlobal}
	case ScopeDesk:
		desks := make([]uuid.UUID, len(i.DeskIDs))
		copy(desks, i.DeskIDs)
		return LeadFilter{Scope: ScopeDesk, DeskIDs: desks}
	case ScopeSelf:
		id := i.ID
		return LeadFilter{Scope: ScopeSelf, AssignedToID: &id}
	default:
		return LeadFilter{Scope: ScopeNone}
	}
}

// Matches reports whether a lead passes the filter.
func (f LeadFilter) Matches(lead LeadAccess) bool {
	switch f.Scope {
	case ScopeGlobal:
		return true
	case ScopeDesk:
		if lead.DeskID == nil {
			return false
		}
		for _, id := range f.DeskIDs {
			if id == *lead.DeskID {
				return true
			}
		}
		return false
	case ScopeSelf:
		return lead.AssignedTo != nil && f.AssignedToID != nil && *lead.AssignedTo == *f.AssignedToID
	default:
		return false
	}
}
