// AngelaMos | 2026
// repository.go

package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/angelamos/gatherly/internal/core"
)

// errAlreadyCancelled signals a cancel that lost a race to another
// cancel of the same booking. The service treats it as success.
var errAlreadyCancelled = errors.New("booking already cancelled")

type Repository interface {
	// CreateWithCapacity inserts a confirmed booking inside one
	// transaction that holds the event row lock, so capacity checks
	// and the booked_count increment are atomic per event.
	CreateWithCapacity(ctx context.Context, booking *Booking) error
	// CancelWithRelease flips the booking to cancelled and returns
	// its seats to the event, again under the event row lock.
	CancelWithRelease(ctx context.Context, booking *Booking) error
	GetByID(ctx context.Context, id string) (*Booking, error)
	ListByUser(
		ctx context.Context,
		userID string,
		params ListBookingsParams,
	) ([]Booking, int, error)
	ListByEvent(
		ctx context.Context,
		eventID string,
		params ListBookingsParams,
	) ([]Booking, int, error)
}

type repository struct {
	db     *core.Database
	logger *slog.Logger
}

func NewRepository(db *core.Database, logger *slog.Logger) Repository {
	return &repository{db: db, logger: logger}
}

const bookingColumns = `id, user_id, event_id, seats, total_cents, status,
	       payment_id, created_at, cancelled_at`

// lockedEvent is the slice of the event row read under FOR UPDATE.
type lockedEvent struct {
	Status      string    `db:"status"`
	StartsAt    time.Time `db:"starts_at"`
	Capacity    int       `db:"capacity"`
	BookedCount int       `db:"booked_count"`
	PriceCents  int64     `db:"price_cents"`
}

func (r *repository) CreateWithCapacity(
	ctx context.Context,
	booking *Booking,
) error {
	return core.InTx(ctx, r.db.DB, func(tx *sqlx.Tx) error {
		var ev lockedEvent
		err := tx.GetContext(ctx, &ev, `
			SELECT status, starts_at, capacity, booked_count, price_cents
			FROM events
			WHERE id = $1
			FOR UPDATE`, booking.EventID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock event: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}

		// Re-checked under the lock: the event may have been
		// cancelled or started since the service looked at it.
		if ev.Status != "published" || !time.Now().Before(ev.StartsAt) {
			return fmt.Errorf("event not bookable: %w", core.ErrBookingClosed)
		}

		remaining := ev.Capacity - ev.BookedCount
		if remaining < booking.Seats {
			return core.InsufficientCapacityError(remaining)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET booked_count = booked_count + $2, updated_at = NOW()
			WHERE id = $1`, booking.EventID, booking.Seats)
		if err != nil {
			return fmt.Errorf("reserve seats: %w", err)
		}

		booking.TotalCents = int64(booking.Seats) * ev.PriceCents
		booking.Status = StatusConfirmed

		err = tx.GetContext(ctx, &booking.CreatedAt, `
			INSERT INTO bookings (
				id, user_id, event_id, seats, total_cents, status
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at`,
			booking.ID,
			booking.UserID,
			booking.EventID,
			booking.Seats,
			booking.TotalCents,
			booking.Status,
		)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}

		return nil
	})
}

func (r *repository) CancelWithRelease(
	ctx context.Context,
	booking *Booking,
) error {
	return core.InTx(ctx, r.db.DB, func(tx *sqlx.Tx) error {
		var ev struct {
			BookedCount int `db:"booked_count"`
		}
		err := tx.GetContext(ctx, &ev, `
			SELECT booked_count
			FROM events
			WHERE id = $1
			FOR UPDATE`, booking.EventID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock event: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("lock event: %w", err)
		}

		var cancelledAt time.Time
		err = tx.GetContext(ctx, &cancelledAt, `
			UPDATE bookings
			SET status = $2, cancelled_at = NOW()
			WHERE id = $1 AND status NOT IN ('cancelled', 'refunded')
			RETURNING cancelled_at`,
			booking.ID, StatusCancelled)
		if errors.Is(err, sql.ErrNoRows) {
			return errAlreadyCancelled
		}
		if err != nil {
			return fmt.Errorf("cancel booking: %w", err)
		}

		if ev.BookedCount < booking.Seats {
			// booked_count should never undercount live bookings.
			// Clamp at zero and raise the alarm rather than corrupt
			// the counter further.
			r.logger.Error("booked_count below seats being released",
				"event_id", booking.EventID,
				"booking_id", booking.ID,
				"booked_count", ev.BookedCount,
				"seats", booking.Seats,
			)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET booked_count = GREATEST(booked_count - $2, 0),
				updated_at = NOW()
			WHERE id = $1`, booking.EventID, booking.Seats)
		if err != nil {
			return fmt.Errorf("release seats: %w", err)
		}

		booking.Status = StatusCancelled
		booking.CancelledAt = &cancelledAt

		return nil
	})
}

func (r *repository) GetByID(
	ctx context.Context,
	id string,
) (*Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE id = $1`, bookingColumns)

	var booking Booking
	err := r.db.DB.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get booking: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}

	return &booking, nil
}

func (r *repository) ListByUser(
	ctx context.Context,
	userID string,
	params ListBookingsParams,
) ([]Booking, int, error) {
	return r.list(ctx, "user_id", userID, params)
}

func (r *repository) ListByEvent(
	ctx context.Context,
	eventID string,
	params ListBookingsParams,
) ([]Booking, int, error) {
	return r.list(ctx, "event_id", eventID, params)
}

func (r *repository) list(
	ctx context.Context,
	column, value string,
	params ListBookingsParams,
) ([]Booking, int, error) {
	params.Normalize()

	where := fmt.Sprintf("WHERE %s = $1", column)
	args := []any{value}

	if params.Status != "" {
		where += " AND status = $2"
		args = append(args, params.Status)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM bookings %s", where)

	var total int
	if err := r.db.DB.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		bookingColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, params.PageSize, params.Offset())

	var bookings []Booking
	if err := r.db.DB.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}

	return bookings, total, nil
}
