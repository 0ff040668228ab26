package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewHistoryEntry is a state change about to be recorded. OldStateID is nil
// when the previous status did not resolve.
type NewHistoryEntry struct {
	LeadID     uuid.UUID
	OldStateID *uuid.UUID
	NewStateID uuid.UUID
	ChangedBy  uuid.UUID
	Reason     *string
}

// HistoryEntry is a recorded state change. Entries are never modified.
type HistoryEntry struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	OldStateID *uuid.UUID
	NewStateID uuid.UUID
	ChangedBy  uuid.UUID
	Reason     *string
	ChangedAt  time.Time
}

// HistoryView is a history entry with resolved labels.
type HistoryView struct {
	HistoryEntry
	OldStateLabel *string
	NewStateLabel string
	ChangedByName string
}
