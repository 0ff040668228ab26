// Package domain provides the pipeline model of a desk: its named states, the
// directed transitions between them and the in-memory graph used to validate
// lead state changes.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultColor is used when a state is created without a color.
const DefaultColor = "#6B7280"

// fallbackInitialName is the state treated as initial when none is flagged.
const fallbackInitialName = "new"

// FoldName is the key a lead status and a state name are compared on. It
// lowercases rune by rune and keeps whitespace, matching the lower(status) =
// lower(name) predicates and the lower(name) unique index in the database.
func FoldName(name string) string {
	return strings.ToLower(name)
}

// DeskState is one named pipeline stage of a desk.
type DeskState struct {
	ID           uuid.UUID
	DeskID       uuid.UUID
	Name         string
	DisplayName  string
	Color        string
	Icon         *string
	IsInitial    bool
	IsFinal      bool
	IsActive     bool
	IsSelectable bool
	SortOrder    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Label returns the display name, falling back to the name.
func (s DeskState) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// Transition is an allowed directed edge between two states. A nil DeskID
// marks a global edge.
type Transition struct {
	ID                 uuid.UUID
	FromStateID        uuid.UUID
	ToStateID          uuid.UUID
	DeskID             *uuid.UUID
	RequiredPermission *string
	IsActive           bool
	CreatedAt          time.Time
}

// IsGlobal reports whether the edge is not bound to a desk.
func (t Transition) IsGlobal() bool {
	return t.DeskID == nil
}
