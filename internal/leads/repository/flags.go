package repository

import (
	"context"
	"fmt"

	"deskcrm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	listDeskIDsQuery = `SELECT id FROM desks ORDER BY id`

	listLeadStatusesQuery = `
		SELECT id, status
		FROM leads
		WHERE desk_id = $1
		ORDER BY id`

	flagLeadQuery = `
		INSERT INTO lead_status_flags (lead_id, desk_id, raw_status)
		VALUES ($1, $2, $3)
		ON CONFLICT (lead_id) DO UPDATE
		SET desk_id = EXCLUDED.desk_id,
			raw_status = EXCLUDED.raw_status,
			detected_at = CASE WHEN lead_status_flags.resolved_at IS NULL
				THEN lead_status_flags.detected_at ELSE now() END,
			resolved_at = NULL
		WHERE lead_status_flags.resolved_at IS NOT NULL
			OR lead_status_flags.raw_status <> EXCLUDED.raw_status`

	resolveFlagQuery = `
		UPDATE lead_status_flags
		SET resolved_at = now()
		WHERE lead_id = $1 AND resolved_at IS NULL`

	listOpenFlagsQuery = `
		SELECT lead_id, desk_id, raw_status, detected_at
		FROM lead_status_flags
		WHERE resolved_at IS NULL AND desk_id IS NOT NULL
		ORDER BY desk_id, detected_at`
)

func (r *Repo) ListDeskIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, listDeskIDsQuery)
	if err != nil {
		return nil, fmt.Errorf("list desks: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("collect desks: %w", err)
	}
	return ids, nil
}

func (r *Repo) ListLeadStatuses(ctx context.Context, deskID uuid.UUID) ([]domain.LeadStatus, error) {
	rows, err := r.pool.Query(ctx, listLeadStatusesQuery, deskID)
	if err != nil {
		return nil, fmt.Errorf("list lead statuses: %w", err)
	}
	statuses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LeadStatus, error) {
		var s domain.LeadStatus
		err := row.Scan(&s.LeadID, &s.Status)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect lead statuses: %w", err)
	}
	return statuses, nil
}

// FlagLead opens a flag for the lead. It reports false when an identical
// flag is already open.
func (r *Repo) FlagLead(ctx context.Context, flag domain.StatusFlag) (bool, error) {
	tag, err := r.pool.Exec(ctx, flagLeadQuery, flag.LeadID, flag.DeskID, flag.RawStatus)
	if err != nil {
		return false, fmt.Errorf("flag lead status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) ResolveFlag(ctx context.Context, leadID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, resolveFlagQuery, leadID)
	if err != nil {
		return false, fmt.Errorf("resolve status flag: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repo) ListOpenFlags(ctx context.Context) ([]domain.StatusFlag, error) {
	rows, err := r.pool.Query(ctx, listOpenFlagsQuery)
	if err != nil {
		return nil, fmt.Errorf("list status flags: %w", err)
	}
	flags, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StatusFlag, error) {
		var f domain.StatusFlag
		err := row.Scan(&f.LeadID, &f.DeskID, &f.RawStatus, &f.DetectedAt)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("collect status flags: %w", err)
	}
	return flags, nil
}
