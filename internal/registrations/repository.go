package registrations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventmaster/backend/internal/apperr"
	"github.com/eventmaster/backend/internal/models"
)

// Repository handles registration persistence. Every transition that
// changes an event's registered_count runs in one transaction that locks
// the event row (SELECT ... FOR UPDATE), so the capacity check and the
// counter mutation cannot race with a concurrent registration.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const regColumns = `id, event_id, user_id, event_title, event_start_at, status, ticket_token, created_at`

func scanRegistration(row pgx.Row) (*models.Registration, error) {
	var reg models.Registration
	err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.EventTitle, &reg.EventStartAt,
		&reg.Status, &reg.TicketToken, &reg.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("registration not found")
		}
		return nil, apperr.Storage("query registration", err)
	}
	return &reg, nil
}

// GetByID returns a registration by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE id = $1`, id))
}

// GetByEventAndUser returns the (at most one) registration for a pair.
func (r *Repository) GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE event_id = $1 AND user_id = $2`, eventID, userID))
}

// GetByTicket returns a registration by its ticket token.
func (r *Repository) GetByTicket(ctx context.Context, token string) (*models.Registration, error) {
	return scanRegistration(r.pool.QueryRow(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE ticket_token = $1`, token))
}

// ListByUser returns a user's registrations, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, apperr.Storage("list registrations", err)
	}
	defer rows.Close()

	var list []models.Registration
	for rows.Next() {
		var reg models.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.EventTitle, &reg.EventStartAt,
			&reg.Status, &reg.TicketToken, &reg.CreatedAt); err != nil {
			return nil, apperr.Storage("scan registration", err)
		}
		list = append(list, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list registrations", err)
	}
	return list, nil
}

// ListAttendees returns an event's registrations joined with user info.
func (r *Repository) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]models.Attendee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.event_id, r.user_id, r.event_title, r.event_start_at, r.status, r.ticket_token, r.created_at,
		        u.display_name, u.email
		 FROM registrations r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.event_id = $1
		 ORDER BY r.created_at DESC`, eventID)
	if err != nil {
		return nil, apperr.Storage("list attendees", err)
	}
	defer rows.Close()

	var list []models.Attendee
	for rows.Next() {
		var a models.Attendee
		if err := rows.Scan(&a.ID, &a.EventID, &a.UserID, &a.EventTitle, &a.EventStartAt,
			&a.Status, &a.TicketToken, &a.CreatedAt, &a.UserDisplayName, &a.UserEmail); err != nil {
			return nil, apperr.Storage("scan attendee", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("list attendees", err)
	}
	return list, nil
}

// CreateActive inserts a new active registration (registered or checked_in)
// and increments the event counter, all inside one capacity-guarded
// transaction. reg.EventTitle and reg.EventStartAt are filled from the
// locked event row.
func (r *Repository) CreateActive(ctx context.Context, reg *models.Registration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	title, startAt, err := lockAndIncrement(ctx, tx, reg.EventID)
	if err != nil {
		return err
	}
	reg.EventTitle = title
	reg.EventStartAt = startAt

	err = tx.QueryRow(ctx,
		`INSERT INTO registrations (event_id, user_id, event_title, event_start_at, status, ticket_token)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		reg.EventID, reg.UserID, reg.EventTitle, reg.EventStartAt, string(reg.Status), reg.TicketToken).
		Scan(&reg.ID, &reg.CreatedAt)
	if err != nil {
		return apperr.Storage("insert registration", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return apperr.Storage("commit transaction", err)
	}
	return nil
}

// Reactivate flips a cancelled registration to the given active status,
// incrementing the event counter under the same capacity guard. When
// refreshCreatedAt is set the registration timestamp is reset.
func (r *Repository) Reactivate(ctx context.Context, id uuid.UUID, to models.RegistrationStatus, refreshCreatedAt bool) (*models.Registration, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	reg, err := scanRegistration(tx.QueryRow(ctx,
		`SELECT `+regColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if reg.Status != models.RegistrationCancelled {
		return nil, apperr.InvalidState("registration is not cancelled")
	}

	if _, _, err := lockAndIncrement(ctx, tx, reg.EventID); err != nil {
		return nil, err
	}

	q := `UPDATE registrations SET status = $2 WHERE id = $1 RETURNING ` + regColumns
	if refreshCreatedAt {
		q = `UPDATE registrations SET status = $2, created_at = NOW() WHERE id = $1 RETURNING ` + regColumns
	}
	updated, err := scanRegistration(tx.QueryRow(ctx, q, id, string(to)))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("commit transaction", err)
	}
	return updated, nil
}

// CancelActive flips an active registration to cancelled and decrements the
// event counter. The caller is responsible for state checks; a registration
// that is no longer active fails with InvalidState here.
func (r *Repository) CancelActive(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	reg, err := scanRegistration(tx.QueryRow(ctx,
		`UPDATE registrations SET status = 'cancelled'
		 WHERE id = $1 AND status = 'registered'
		 RETURNING `+regColumns, id))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.InvalidState("registration is not active")
		}
		return nil, err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE events SET registered_count = GREATEST(registered_count - 1, 0) WHERE id = $1`,
		reg.EventID); err != nil {
		return nil, apperr.Storage("decrement registered count", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Storage("commit transaction", err)
	}
	return reg, nil
}

// CheckIn flips a registered registration to checked_in. The counter is
// untouched: an active registration is already counted.
func (r *Repository) CheckIn(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, err := scanRegistration(r.pool.QueryRow(ctx,
		`UPDATE registrations SET status = 'checked_in'
		 WHERE id = $1 AND status = 'registered'
		 RETURNING `+regColumns, id))
	if err != nil && apperr.KindOf(err) == apperr.KindNotFound {
		return nil, apperr.InvalidState("registration is not in registered state")
	}
	return reg, err
}

// lockAndIncrement locks the event row, enforces capacity, and increments
// the counter. Returns the event's title and start time for snapshotting.
func lockAndIncrement(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) (string, time.Time, error) {
	var capacity, count int
	var title string
	var startAt time.Time
	err := tx.QueryRow(ctx,
		`SELECT capacity, registered_count, title, start_at FROM events WHERE id = $1 FOR UPDATE`, eventID).
		Scan(&capacity, &count, &title, &startAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, apperr.NotFound("event not found")
		}
		return "", time.Time{}, apperr.Storage("lock event row", err)
	}
	if count >= capacity {
		return "", time.Time{}, apperr.InvalidState("event is at full capacity")
	}
	if _, err := tx.Exec(ctx,
		`UPDATE events SET registered_count = registered_count + 1 WHERE id = $1`, eventID); err != nil {
		return "", time.Time{}, apperr.Storage("increment registered count", err)
	}
	return title, startAt, nil
}
