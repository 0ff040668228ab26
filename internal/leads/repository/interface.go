package repository

import (
	"context"
	"time"

	accessdomain "deskcrm_backend/internal/access/domain"
	desksdomain "deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ListParams constrains a lead listing. Filter is always applied.
type ListParams struct {
	Filter accessdomain.LeadFilter
	DeskID *uuid.UUID
	Status string
	Search string
	Offset int
	Limit  int
}

// LeadReader reads leads outside of a transaction.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	GetLeadView(ctx context.Context, id uuid.UUID) (domain.LeadView, error)
	ListLeads(ctx context.Context, params ListParams) ([]domain.LeadView, int, error)
}

// TxStore holds the writes of a state change. Every method runs on the same
// transaction.
type TxStore interface {
	LockLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	LockState(ctx context.Context, id uuid.UUID) (desksdomain.DeskState, error)
	UpdateStatus(ctx context.Context, leadID uuid.UUID, status string) (time.Time, error)
	AppendHistory(ctx context.Context, entry domain.NewHistoryEntry) (domain.HistoryEntry, error)
	ResolveFlag(ctx context.Context, leadID uuid.UUID) error
}

// Transactor runs fn in a transaction, committing when fn returns nil.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx TxStore) error) error
}

// HistoryReader lists recorded state changes.
type HistoryReader interface {
	ListHistory(ctx context.Context, leadID uuid.UUID) ([]domain.HistoryView, error)
}

// FlagStore tracks leads whose status does not resolve.
type FlagStore interface {
	ListDeskIDs(ctx context.Context) ([]uuid.UUID, error)
	ListLeadStatuses(ctx context.Context, deskID uuid.UUID) ([]domain.LeadStatus, error)
	FlagLead(ctx context.Context, flag domain.StatusFlag) (bool, error)
	ResolveFlag(ctx context.Context, leadID uuid.UUID) (bool, error)
	ListOpenFlags(ctx context.Context) ([]domain.StatusFlag, error)
}

// Repository combines all leads repository operations.
type Repository interface {
	LeadReader
	Transactor
	HistoryReader
	FlagStore
}
