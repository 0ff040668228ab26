// Package domain holds the access-control vocabulary shared by every module:
// typed permissions, lead-visibility scopes and the resolved caller identity.
package domain

import "sort"

// Permission is a flat permission name. There is no hierarchy or wildcard.
type Permission string

const (
	PermViewAllLeads      Permission = "leads.view.all"
	PermViewDeskLeads     Permission = "leads.view.desk"
	PermViewAssignedLeads Permission = "leads.view.assigned"
	PermChangeLeadState   Permission = "change_lead_state"
	PermManageDeskStates  Permission = "desk_states.manage"
	PermManageTransitions Permission = "desk_transitions.manage"
	PermManageAccess      Permission = "access.manage"
)

// PermissionSet is an effective permission set resolved once per request.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from raw permission names.
func NewPermissionSet(names ...string) PermissionSet {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		if name != "" {
			set[Permission(name)] = struct{}{}
		}
	}
	return set
}

// Has is an exact membership test.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Add inserts a permission.
func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

// Remove deletes a permission.
func (s PermissionSet) Remove(p Permission) {
	delete(s, p)
}

// Names returns the permission names sorted alphabetically.
func (s PermissionSet) Names() []string {
	names := make([]string, 0, len(s))
	for p := range s {
		names = append(names, string(p))
	}
	sort.Strings(names)
	return names
}

// Grant is a direct user grant. Granted=false revokes a role-derived permission.
type Grant struct {
	Permission string
	Granted    bool
}

// Effective computes (role permissions ∪ granted) − revoked.
func Effective(rolePermissions []string, grants []Grant) PermissionSet {
	set := NewPermissionSet(rolePermissions...)
	for _, g := range grants {
		if g.Granted {
			set.Add(Permission(g.Permission))
		}
	}
	for _, g := range grants {
		if !g.Granted {
			set.Remove(Permission(g.Permission))
		}
	}
	return set
}

// Operation names a guarded action.
type Operation string

const (
	OpChangeLeadState   Operation = "lead.change_state"
	OpManageDeskStates  Operation = "desk.manage_states"
	OpManageTransitions Operation = "desk.manage_transitions"
	OpManageAccess      Operation = "access.manage"
)

var operationPermissions = map[Operation]Permission{
	OpChangeLeadState:   PermChangeLeadState,
	OpManageDeskStates:  PermManageDeskStates,
	OpManageTransitions: PermManageTransitions,
	OpManageAccess:      PermManageAccess,
}

// RequiredPermission returns the permission guarding op.
func RequiredPermission(op Operation) (Permission, bool) {
	p, ok := operationPermissions[op]
	return p, ok
}
