package domain

// Scope is the breadth of lead visibility. Higher values are wider.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeSelf
	ScopeDesk
	ScopeGlobal
)

func (s Scope) String() string {
	switch s {
	case ScopeSelf:
		return "self"
	case ScopeDesk:
		return "desk"
	case ScopeGlobal:
		return "global"
	default:
		return "none"
	}
}

var scopePermissions = map[Permission]Scope{
	PermViewAllLeads:      ScopeGlobal,
	PermViewDeskLeads:     ScopeDesk,
	PermViewAssignedLeads: ScopeSelf,
}

// LeadScope returns the widest lead-visibility scope the set grants.
func (s PermissionSet) LeadScope() Scope {
	widest := ScopeNone
	for p, scope := range scopePermissions {
		if s.Has(p) && scope > widest {
			widest = scope
		}
	}
	return widest
}
