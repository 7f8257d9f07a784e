// AngelaMos | 2026
// repository.go

package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/angelamos/gatherly/internal/core"
)

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	GetBySlug(ctx context.Context, slug string) (*Event, error)
	Update(ctx context.Context, event *Event) error
	UpdateStatus(ctx context.Context, event *Event) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params ListEventsParams) ([]Event, int, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const eventColumns = `id, slug, title, description, category, status,
	       starts_at, ends_at, price_cents, capacity, booked_count,
	       organizer_id, venue_id, published_at, created_at, updated_at`

func (r *repository) Create(ctx context.Context, event *Event) error {
	query := `
		INSERT INTO events (
			id, slug, title, description, category, status,
			starts_at, ends_at, price_cents, capacity, organizer_id, venue_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		RETURNING booked_count, created_at, updated_at`

	err := r.db.GetContext(ctx, event, query,
		event.ID,
		event.Slug,
		event.Title,
		event.Description,
		event.Category,
		event.Status,
		event.StartsAt,
		event.EndsAt,
		event.PriceCents,
		event.Capacity,
		event.OrganizerID,
		event.VenueID,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create event: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create event: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE id = $1`, eventColumns)

	var event Event
	err := r.db.GetContext(ctx, &event, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get event: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	return &event, nil
}

func (r *repository) GetBySlug(
	ctx context.Context,
	slug string,
) (*Event, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		WHERE slug = $1`, eventColumns)

	var event Event
	err := r.db.GetContext(ctx, &event, query, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get event by slug: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event by slug: %w", err)
	}

	return &event, nil
}

func (r *repository) Update(ctx context.Context, event *Event) error {
	query := `
		UPDATE events
		SET title = $2,
			description = $3,
			category = $4,
			starts_at = $5,
			ends_at = $6,
			price_cents = $7,
			capacity = $8,
			venue_id = $9,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &event.UpdatedAt, query,
		event.ID,
		event.Title,
		event.Description,
		event.Category,
		event.StartsAt,
		event.EndsAt,
		event.PriceCents,
		event.Capacity,
		event.VenueID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update event: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, event *Event) error {
	query := `
		UPDATE events
		SET status = $2,
			published_at = $3,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &event.UpdatedAt, query,
		event.ID,
		event.Status,
		event.PublishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update event status: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}

	return nil
}

// Delete removes a draft event that never took a booking. The guards
// are repeated in SQL so a concurrent publish or booking cannot slip
// between the service check and the delete.
func (r *repository) Delete(ctx context.Context, id string) error {
	query := `
		DELETE FROM events
		WHERE id = $1
			AND status = 'draft'
			AND NOT EXISTS (
				SELECT 1 FROM bookings WHERE event_id = $1
			)`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete event: %w", core.ErrInvalidTransition)
	}

	return nil
}

func (r *repository) List(
	ctx context.Context,
	params ListEventsParams,
) ([]Event, int, error) {
	params.Normalize()

	var conditions []string
	var args []any
	argIdx := 1

	if params.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, params.Status)
		argIdx++
	}

	if params.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIdx))
		args = append(args, params.Category)
		argIdx++
	}

	if params.OrganizerID != "" {
		conditions = append(
			conditions, fmt.Sprintf("organizer_id = $%d", argIdx),
		)
		args = append(args, params.OrganizerID)
		argIdx++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf(
		"SELECT COUNT(*) FROM events %s", whereClause,
	)

	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM events
		%s
		ORDER BY starts_at ASC
		LIMIT $%d OFFSET $%d`,
		eventColumns, whereClause, argIdx, argIdx+1,
	)
	args = append(args, params.PageSize, params.Offset())

	var events []Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	return events, total, nil
}

func (r *repository) SlugExists(
	ctx context.Context,
	slug string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM events WHERE slug = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, slug); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}

	return exists, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
