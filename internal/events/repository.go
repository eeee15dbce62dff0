package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/models"
)

// Visibility selects which events a listing exposes.
type Visibility int

const (
	// VisibilityPublished exposes published events only (anonymous and
	// member principals).
	VisibilityPublished Visibility = iota
	// VisibilityPublishedOrOwned adds the owner's events of any status
	// (organizer principals).
	VisibilityPublishedOrOwned
	// VisibilityAll exposes everything (admin).
	VisibilityAll
)

// ListFilter scopes an event listing.
type ListFilter struct {
	Visibility Visibility
	OwnerID    uuid.UUID          // owner for VisibilityPublishedOrOwned and OwnedOnly
	OwnedOnly  bool               // restrict to OwnerID's events regardless of status
	Status     models.EventStatus // optional exact-status filter ("" = any)
	Limit      int
	Offset     int
}

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, organizer_id, title, description, start_at, end_at, location, capacity, registered_count, status, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.StartAt, &e.EndAt,
		&e.Location, &e.Capacity, &e.RegisteredCount, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("event not found")
		}
		return nil, apperr.Storage("query event", err)
	}
	return &e, nil
}

// Insert creates a new event and fills in the generated fields.
func (r *Repository) Insert(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (organizer_id, title, description, start_at, end_at, location, capacity, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, registered_count, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.OrganizerID, e.Title, e.Description, e.StartAt, e.EndAt,
		e.Location, e.Capacity, string(e.Status)).
		Scan(&e.ID, &e.RegisteredCount, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return apperr.Storage("insert event", err)
	}
	return nil
}

// GetByID returns an event by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// Update persists the patchable fields of an event. Capacity and
// registered_count are deliberately not written here.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events
		SET title = $2, description = $3, start_at = $4, end_at = $5, location = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, e.ID, e.Title, e.Description, e.StartAt, e.EndAt, e.Location).
		Scan(&e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("event not found")
		}
		return apperr.Storage("update event", err)
	}
	return nil
}

// Delete removes an event. Registrations cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return apperr.Storage("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("event not found")
	}
	return nil
}

// List returns events matching the filter plus the unpaginated total.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]models.Event, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events`+where, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Storage("count events", err)
	}

	q := fmt.Sprintf(`SELECT %s FROM events%s ORDER BY start_at DESC LIMIT $%d OFFSET $%d`,
		eventColumns, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, q, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, apperr.Storage("list events", err)
	}
	defer rows.Close()

	var list []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.OrganizerID, &e.Title, &e.Description, &e.StartAt, &e.EndAt,
			&e.Location, &e.Capacity, &e.RegisteredCount, &e.Status, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, apperr.Storage("scan event", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperr.Storage("list events", err)
	}
	return list, total, nil
}

func buildWhere(f ListFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}

	switch {
	case f.OwnedOnly:
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf(`organizer_id = $%d`, len(args)))
	case f.Visibility == VisibilityPublished:
		conds = append(conds, `status = 'published'`)
	case f.Visibility == VisibilityPublishedOrOwned:
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf(`(status = 'published' OR organizer_id = $%d)`, len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf(`status = $%d`, len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Decide flips a pending event to the decided status and writes the audit
// row in the same transaction. Non-pending events fail with InvalidState.
func (r *Repository) Decide(ctx context.Context, eventID, adminID uuid.UUID, action models.ApprovalAction, to models.EventStatus) (*models.Event, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	e, err := scanEvent(tx.QueryRow(ctx,
		`UPDATE events SET status = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending'
		 RETURNING `+eventColumns,
		eventID, string(to)))
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			return nil, err
		}
		// Distinguish a missing event from a decided one.
		if _, getErr := scanEvent(tx.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID)); getErr != nil {
			return nil, getErr
		}
		return nil, apperr.InvalidState("event is not pending")
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO event_approval_audit (event_id, admin_id, action) VALUES ($1, $2, $3)`,
		eventID, adminID, string(action)); err != nil {
		return nil, apperr.Storage("insert approval audit", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("commit transaction", err)
	}
	return e, nil
}
