// Package ledger is the append-only store of lead state changes. It exposes
// no update or delete; the table additionally rejects both with a trigger.
package ledger

import (
	"context"
	"fmt"

	"deskcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	appendQuery = `
		INSERT INTO lead_state_history (lead_id, old_state_id, new_state_id, changed_by, reason)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, changed_at`

	listByLeadQuery = `
		SELECT h.id, h.lead_id, h.old_state_id, h.new_state_id, h.changed_by, h.reason, h.changed_at,
			os.display_name, ns.display_name, COALESCE(NULLIF(u.display_name, ''), u.email, '')
		FROM lead_state_history h
		JOIN desk_states ns ON ns.id = h.new_state_id
		LEFT JOIN desk_states os ON os.id = h.old_state_id
		LEFT JOIN users u ON u.id = h.changed_by
		WHERE h.lead_id = $1
		ORDER BY h.changed_at DESC, h.id DESC`
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Ledger appends and lists history entries.
type Ledger struct {
	db Querier
}

// New creates a ledger on the given connection or transaction.
func New(db Querier) *Ledger {
	return &Ledger{db: db}
}

// Append records one state change.
func (l *Ledger) Append(ctx context.Context, in domain.NewHistoryEntry) (domain.HistoryEntry, error) {
	entry := domain.HistoryEntry{
		LeadID:     in.LeadID,
		OldStateID: in.OldStateID,
		NewStateID: in.NewStateID,
		ChangedBy:  in.ChangedBy,
		Reason:     in.Reason,
	}
	err := l.db.QueryRow(ctx, appendQuery, in.LeadID, in.OldStateID, in.NewStateID, in.ChangedBy, in.Reason).
		Scan(&entry.ID, &entry.ChangedAt)
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("append state history: %w", err)
	}
	return entry, nil
}

// ListByLead returns a lead's history, newest first.
func (l *Ledger) ListByLead(ctx context.Context, leadID uuid.UUID) ([]domain.HistoryView, error) {
	rows, err := l.db.Query(ctx, listByLeadQuery, leadID)
	if err != nil {
		return nil, fmt.Errorf("list state history: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.HistoryView, error) {
		var v domain.HistoryView
		err := row.Scan(
			&v.ID, &v.LeadID, &v.OldStateID, &v.NewStateID, &v.ChangedBy, &v.Reason, &v.ChangedAt,
			&v.OldStateLabel, &v.NewStateLabel, &v.ChangedByName,
		)
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect state history: %w", err)
	}
	return entries, nil
}
