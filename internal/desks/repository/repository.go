package repository

import (
	"context"
	"errors"
	"fmt"

	"deskcrm_backend/internal/desks/domain"
	"deskcrm_backend/platform/apperr"
	"deskcrm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const stateColumns = `id, desk_id, name, display_name, color, icon, is_initial, is_final,
		is_active, is_selectable, sort_order, created_at, updated_at`

const transitionColumns = `t.id, t.from_state_id, t.to_state_id, t.desk_id, t.required_permission,
		t.is_active, t.created_at`

const (
	deskExistsQuery = `SELECT EXISTS (SELECT 1 FROM desks WHERE id = $1)`

	listActiveStatesQuery = `
		SELECT ` + stateColumns + `
		FROM desk_states
		WHERE desk_id = $1 AND is_active
		ORDER BY sort_order, lower(name)`

	listAllStatesQuery = `
		SELECT ` + stateColumns + `
		FROM desk_states
		WHERE desk_id = $1
		ORDER BY is_active DESC, sort_order, lower(name)`

	getStateQuery = `
		SELECT ` + stateColumns + `
		FROM desk_states
		WHERE id = $1`

	insertStateQuery = `
		INSERT INTO desk_states (desk_id, name, display_name, color, icon, is_initial, is_final, is_selectable, sort_order)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, COALESCE(MAX(sort_order), 0) + 1
		FROM desk_states
		WHERE desk_id = $1
		RETURNING ` + stateColumns

	insertSeedStateQuery = `
		INSERT INTO desk_states (desk_id, name, display_name, color, icon, is_initial, is_final, is_selectable, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + stateColumns

	lockStateQuery = `
		SELECT ` + stateColumns + `
		FROM desk_states
		WHERE id = $1
		FOR UPDATE`

	countLeadsInStateQuery = `
		SELECT COUNT(*)
		FROM leads
		WHERE desk_id = $1 AND lower(status) = lower($2)`

	deactivateStateQuery = `
		UPDATE desk_states
		SET is_active = false, updated_at = now()
		WHERE id = $1
		RETURNING ` + stateColumns

	setSelectableQuery = `
		UPDATE desk_states
		SET is_selectable = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + stateColumns

	lockDeskQuery = `SELECT id FROM desks WHERE id = $1 FOR UPDATE`

	lockActiveStateIDsQuery = `
		SELECT id
		FROM desk_states
		WHERE desk_id = $1 AND is_active
		ORDER BY sort_order
		FOR UPDATE`

	countDeskStatesQuery = `SELECT COUNT(*) FROM desk_states WHERE desk_id = $1`

	updateSortOrderQuery = `
		UPDATE desk_states
		SET sort_order = $3, updated_at = now()
		WHERE id = $1 AND desk_id = $2`

	listTransitionsQuery = `
		SELECT ` + transitionColumns + `
		FROM state_transitions t
		JOIN desk_states fs ON fs.id = t.from_state_id
		WHERE t.desk_id = $1 OR (t.desk_id IS NULL AND fs.desk_id = $1)
		ORDER BY t.created_at, t.id`

	getTransitionQuery = `
		SELECT ` + transitionColumns + `
		FROM state_transitions t
		WHERE t.id = $1`

	insertTransitionQuery = `
		INSERT INTO state_transitions AS t (from_state_id, to_state_id, desk_id, required_permission)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + transitionColumns

	deleteTransitionQuery = `DELETE FROM state_transitions WHERE id = $1`
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new desks repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanState(row pgx.Row) (domain.DeskState, error) {
	var s domain.DeskState
	err := row.Scan(
		&s.ID, &s.DeskID, &s.Name, &s.DisplayName, &s.Color, &s.Icon, &s.IsInitial, &s.IsFinal,
		&s.IsActive, &s.IsSelectable, &s.SortOrder, &s.CreatedAt, &s.UpdatedAt,
	)
	return s, err
}

func collectState(row pgx.CollectableRow) (domain.DeskState, error) {
	return scanState(row)
}

func scanTransition(row pgx.Row) (domain.Transition, error) {
	var t domain.Transition
	err := row.Scan(&t.ID, &t.FromStateID, &t.ToStateID, &t.DeskID, &t.RequiredPermission, &t.IsActive, &t.CreatedAt)
	return t, err
}

func collectTransition(row pgx.CollectableRow) (domain.Transition, error) {
	return scanTransition(row)
}

func (r *Repo) DeskExists(ctx context.Context, deskID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, deskExistsQuery, deskID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check desk: %w", err)
	}
	return exists, nil
}

func (r *Repo) ListStates(ctx context.Context, deskID uuid.UUID, includeInactive bool) ([]domain.DeskState, error) {
	query := listActiveStatesQuery
	if includeInactive {
		query = listAllStatesQuery
	}
	rows, err := r.pool.Query(ctx, query, deskID)
	if err != nil {
		return nil, fmt.Errorf("list desk states: %w", err)
	}
	states, err := pgx.CollectRows(rows, collectState)
	if err != nil {
		return nil, fmt.Errorf("collect desk states: %w", err)
	}
	return states, nil
}

func (r *Repo) GetState(ctx context.Context, id uuid.UUID) (domain.DeskState, error) {
	s, err := scanState(r.pool.QueryRow(ctx, getStateQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DeskState{}, apperr.NotFound("desk state not found")
		}
		return domain.DeskState{}, fmt.Errorf("get desk state: %w", err)
	}
	return s, nil
}

func (r *Repo) CreateState(ctx context.Context, in NewState) (domain.DeskState, error) {
	s, err := scanState(r.pool.QueryRow(ctx, insertStateQuery,
		in.DeskID, in.Name, in.DisplayName, in.Color, in.Icon, in.IsInitial, in.IsFinal, in.IsSelectable,
	))
	if err != nil {
		return domain.DeskState{}, mapStateWriteError("create desk state", err)
	}
	return s, nil
}

const oneInitialStateIndex = "desk_states_one_initial_idx"

func mapStateWriteError(op string, err error) error {
	switch db.PgErrorCode(err) {
	case db.CodeUniqueViolation:
		if db.PgConstraintName(err) == oneInitialStateIndex {
			return apperr.Validation("desk already has an initial state")
		}
		return apperr.Validation("a state with this name already exists in the desk")
	case db.CodeForeignKeyViolation:
		return apperr.NotFound("desk not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

// DeactivateState soft-deletes a state. The state row is locked so a
// concurrent lead move into it waits for the decision.
func (r *Repo) DeactivateState(ctx context.Context, id uuid.UUID) (domain.DeskState, error) {
	var out domain.DeskState
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		s, err := scanState(tx.QueryRow(ctx, lockStateQuery, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("desk state not found")
			}
			return fmt.Errorf("lock desk state: %w", err)
		}
		if !s.IsActive {
			out = s
			return nil
		}

		var inUse int64
		if err := tx.QueryRow(ctx, countLeadsInStateQuery, s.DeskID, s.Name).Scan(&inUse); err != nil {
			return fmt.Errorf("count leads in state: %w", err)
		}
		if inUse > 0 {
			return apperr.Conflict(fmt.Sprintf("state %q is the current status of %d lead(s)", s.Name, inUse)).
				WithDetails(map[string]int64{"leads": inUse})
		}

		out, err = scanState(tx.QueryRow(ctx, deactivateStateQuery, id))
		if err != nil {
			return fmt.Errorf("deactivate desk state: %w", err)
		}
		return nil
	})
	return out, err
}

func (r *Repo) SetSelectable(ctx context.Context, id uuid.UUID, selectable bool) (domain.DeskState, error) {
	s, err := scanState(r.pool.QueryRow(ctx, setSelectableQuery, id, selectable))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DeskState{}, apperr.NotFound("desk state not found")
		}
		return domain.DeskState{}, fmt.Errorf("set state selectable: %w", err)
	}
	return s, nil
}

// Reorder rewrites sort_order of the desk's active states in one transaction.
func (r *Repo) Reorder(ctx context.Context, deskID uuid.UUID, stateIDs []uuid.UUID) ([]domain.DeskState, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, lockActiveStateIDsQuery, deskID)
		if err != nil {
			return fmt.Errorf("lock desk states: %w", err)
		}
		existing, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return fmt.Errorf("collect desk state ids: %w", err)
		}
		if err := domain.ValidateOrder(existing, stateIDs); err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, id := range stateIDs {
			batch.Queue(updateSortOrderQuery, id, deskID, i+1)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("update sort order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.ListStates(ctx, deskID, false)
}

// Seed inserts a complete pipeline into an empty desk.
func (r *Repo) Seed(ctx context.Context, deskID uuid.UUID, states []NewState, edges []SeedEdge) ([]domain.DeskState, error) {
	created := make([]domain.DeskState, 0, len(states))
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked uuid.UUID
		if err := tx.QueryRow(ctx, lockDeskQuery, deskID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("desk not found")
			}
			return fmt.Errorf("lock desk: %w", err)
		}

		var count int64
		if err := tx.QueryRow(ctx, countDeskStatesQuery, deskID).Scan(&count); err != nil {
			return fmt.Errorf("count desk states: %w", err)
		}
		if count > 0 {
			return apperr.Conflict("desk already has states")
		}

		byName := make(map[string]uuid.UUID, len(states))
		for i, in := range states {
			s, err := scanState(tx.QueryRow(ctx, insertSeedStateQuery,
				deskID, in.Name, in.DisplayName, in.Color, in.Icon, in.IsInitial, in.IsFinal, in.IsSelectable, i+1,
			))
			if err != nil {
				return mapStateWriteError("seed desk state", err)
			}
			byName[domain.FoldName(s.Name)] = s.ID
			created = append(created, s)
		}

		for _, e := range edges {
			from, okFrom := byName[domain.FoldName(e.From)]
			to, okTo := byName[domain.FoldName(e.To)]
			if !okFrom || !okTo {
				return apperr.Validation(fmt.Sprintf("template edge %s -> %s references an unknown state", e.From, e.To))
			}
			if _, err := tx.Exec(ctx, insertTransitionQuery, from, to, deskID, e.RequiredPermission); err != nil {
				return fmt.Errorf("seed transition: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Repo) ListTransitions(ctx context.Context, deskID uuid.UUID) ([]domain.Transition, error) {
	rows, err := r.pool.Query(ctx, listTransitionsQuery, deskID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	transitions, err := pgx.CollectRows(rows, collectTransition)
	if err != nil {
		return nil, fmt.Errorf("collect transitions: %w", err)
	}
	return transitions, nil
}

func (r *Repo) GetTransition(ctx context.Context, id uuid.UUID) (domain.Transition, error) {
	t, err := scanTransition(r.pool.QueryRow(ctx, getTransitionQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Transition{}, apperr.NotFound("transition not found")
		}
		return domain.Transition{}, fmt.Errorf("get transition: %w", err)
	}
	return t, nil
}

func (r *Repo) CreateTransition(ctx context.Context, in NewTransition) (domain.Transition, error) {
	t, err := scanTransition(r.pool.QueryRow(ctx, insertTransitionQuery,
		in.FromStateID, in.ToStateID, in.DeskID, in.RequiredPermission,
	))
	if err != nil {
		switch db.PgErrorCode(err) {
		case db.CodeUniqueViolation:
			return domain.Transition{}, apperr.Conflict("transition already exists")
		case db.CodeForeignKeyViolation:
			return domain.Transition{}, apperr.NotFound("desk state not found")
		}
		return domain.Transition{}, fmt.Errorf("create transition: %w", err)
	}
	return t, nil
}

func (r *Repo) DeleteTransition(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, deleteTransitionQuery, id)
	if err != nil {
		return fmt.Errorf("delete transition: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("transition not found")
	}
	return nil
}
