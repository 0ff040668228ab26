// Package domain holds the lead records moved through desk pipelines and
// the entries of their state history.
package domain

import (
	"strings"
	"time"

	accessdomain "deskcrm_backend/internal/access/domain"

	"github.com/google/uuid"
)

// Lead is a prospective customer. Status holds the name of a desk state.
type Lead struct {
	ID         uuid.UUID
	DeskID     *uuid.UUID
	AssignedTo *uuid.UUID
	FirstName  string
	LastName   string
	Email      *string
	Phone      *string
	Status     string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FullName joins first and last name.
func (l Lead) FullName() string {
	return strings.TrimSpace(l.FirstName + " " + l.LastName)
}

// Access returns the columns used by row-level checks.
func (l Lead) Access() accessdomain.LeadAccess {
	return accessdomain.LeadAccess{LeadID: l.ID, DeskID: l.DeskID, AssignedTo: l.AssignedTo}
}

// LeadView is a lead joined with its resolved state, assignee and desk.
// State fields are nil when the status does not resolve.
type LeadView struct {
	Lead
	StateID      *uuid.UUID
	StateLabel   *string
	StateColor   *string
	AssigneeName *string
	DeskName     *string
}

// LeadStatus is the minimal projection scanned by the status audit.
type LeadStatus struct {
	LeadID uuid.UUID
	Status string
}

// StatusFlag records a lead whose status does not resolve to an active
// state of its desk.
type StatusFlag struct {
	LeadID     uuid.UUID
	DeskID     uuid.UUID
	RawStatus  string
	DetectedAt time.Time
}
