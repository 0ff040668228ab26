package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	accessdomain "deskcrm_backend/internal/access/domain"
	desksdomain "deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/internal/leads/domain"
	"deskcrm_backend/internal/leads/ledger"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `l.id, l.desk_id, l.assigned_to, l.first_name, l.last_name, l.email, l.phone,
		l.status, l.created_at, l.updated_at`

const (
	getLeadQuery = `
		SELECT ` + leadColumns + `
		FROM leads l
		WHERE l.id = $1`

	lockLeadQuery = `
		SELECT ` + leadColumns + `
		FROM leads l
		WHERE l.id = $1
		FOR UPDATE`

	lockStateQuery = `
		SELECT id, desk_id, name, display_name, color, icon, is_initial, is_final,
			is_active, is_selectable, sort_order, created_at, updated_at
		FROM desk_states
		WHERE id = $1
		FOR SHARE`

	updateStatusQuery = `
		UPDATE leads
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	leadViewSelect = `
		SELECT ` + leadColumns + `,
			s.id, s.display_name, s.color, NULLIF(u.display_name, ''), d.name,
			COUNT(*) OVER ()
		FROM leads l
		LEFT JOIN desks d ON d.id = l.desk_id
		LEFT JOIN users u ON u.id = l.assigned_to
		LEFT JOIN LATERAL (
			SELECT ds.id, ds.display_name, ds.color
			FROM desk_states ds
			WHERE ds.desk_id = l.desk_id AND ds.is_active AND lower(ds.name) = lower(l.status)
			LIMIT 1
		) s ON true`

	getLeadViewQuery = leadViewSelect + `
		WHERE l.id = $1`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool   *pgxpool.Pool
	ledger *ledger.Ledger
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, ledger: ledger.New(pool)}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanLead(row pgx.Row) (domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(&l.ID, &l.DeskID, &l.AssignedTo, &l.FirstName, &l.LastName, &l.Email, &l.Phone,
		&l.Status, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func scanLeadView(row pgx.Row) (domain.LeadView, int, error) {
	var v domain.LeadView
	var total int
	err := row.Scan(&v.ID, &v.DeskID, &v.AssignedTo, &v.FirstName, &v.LastName, &v.Email, &v.Phone,
		&v.Status, &v.CreatedAt, &v.UpdatedAt,
		&v.StateID, &v.StateLabel, &v.StateColor, &v.AssigneeName, &v.DeskName, &total)
	return v, total, err
}

func (r *Repo) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx, getLeadQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound("lead not found")
		}
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

func (r *Repo) GetLeadView(ctx context.Context, id uuid.UUID) (domain.LeadView, error) {
	v, _, err := scanLeadView(r.pool.QueryRow(ctx, getLeadViewQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.LeadView{}, apperr.NotFound("lead not found")
		}
		return domain.LeadView{}, fmt.Errorf("get lead view: %w", err)
	}
	return v, nil
}

// buildListQuery applies the access filter before any caller-supplied
// condition. A filter without scope matches nothing.
func buildListQuery(p ListParams) (string, []any) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch p.Filter.Scope {
	case accessdomain.ScopeGlobal:
	case accessdomain.ScopeDesk:
		where = append(where, "l.desk_id = ANY("+arg(p.Filter.DeskIDs)+")")
	case accessdomain.ScopeSelf:
		where = append(where, "l.assigned_to = "+arg(p.Filter.AssignedToID))
	default:
		where = append(where, "false")
	}

	if p.DeskID != nil {
		where = append(where, "l.desk_id = "+arg(*p.DeskID))
	}
	if p.Status != "" {
		where = append(where, "lower(l.status) = lower("+arg(p.Status)+")")
	}
	if p.Search != "" {
		ph := arg("%" + p.Search + "%")
		where = append(where, "(l.first_name ILIKE "+ph+" OR l.last_name ILIKE "+ph+" OR l.email ILIKE "+ph+")")
	}

	query := leadViewSelect
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY l.updated_at DESC, l.id"
	query += "\n\t\tLIMIT " + arg(p.Limit) + " OFFSET " + arg(p.Offset)
	return query, args
}

func (r *Repo) ListLeads(ctx context.Context, params ListParams) ([]domain.LeadView, int, error) {
	query, args := buildListQuery(params)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	items := make([]domain.LeadView, 0)
	total := 0
	for rows.Next() {
		v, count, err := scanLeadView(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lead: %w", err)
		}
		total = count
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate leads: %w", err)
	}
	return items, total, nil
}

func (r *Repo) ListHistory(ctx context.Context, leadID uuid.UUID) ([]domain.HistoryView, error) {
	return r.ledger.ListByLead(ctx, leadID)
}

// InTx runs fn on a transaction-bound store.
func (r *Repo) InTx(ctx context.Context, fn func(tx TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(&txStore{tx: tx, ledger: ledger.New(tx)})
	})
}

type txStore struct {
	tx     pgx.Tx
	ledger *ledger.Ledger
}

// LockLead reads the lead with a row lock held until the transaction ends.
func (s *txStore) LockLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	l, err := scanLead(s.tx.QueryRow(ctx, lockLeadQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Lead{}, apperr.NotFound("lead not found")
		}
		return domain.Lead{}, fmt.Errorf("lock lead: %w", err)
	}
	return l, nil
}

// LockState reads the target state with a share lock so it cannot be
// deactivated before commit.
func (s *txStore) LockState(ctx context.Context, id uuid.UUID) (desksdomain.DeskState, error) {
	var st desksdomain.DeskState
	err := s.tx.QueryRow(ctx, lockStateQuery, id).Scan(
		&st.ID, &st.DeskID, &st.Name, &st.DisplayName, &st.Color, &st.Icon, &st.IsInitial, &st.IsFinal,
		&st.IsActive, &st.IsSelectable, &st.SortOrder, &st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return desksdomain.DeskState{}, apperr.NotFound("desk state not found")
		}
		return desksdomain.DeskState{}, fmt.Errorf("lock desk state: %w", err)
	}
	return st, nil
}

func (s *txStore) UpdateStatus(ctx context.Context, leadID uuid.UUID, status string) (time.Time, error) {
	var updatedAt time.Time
	if err := s.tx.QueryRow(ctx, updateStatusQuery, leadID, status).Scan(&updatedAt); err != nil {
		return time.Time{}, fmt.Errorf("update lead status: %w", err)
	}
	return updatedAt, nil
}

func (s *txStore) AppendHistory(ctx context.Context, entry domain.NewHistoryEntry) (domain.HistoryEntry, error) {
	return s.ledger.Append(ctx, entry)
}

func (s *txStore) ResolveFlag(ctx context.Context, leadID uuid.UUID) error {
	if _, err := s.tx.Exec(ctx, resolveFlagQuery, leadID); err != nil {
		return fmt.Errorf("resolve status flag: %w", err)
	}
	return nil
}
