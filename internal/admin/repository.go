// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/angelamos/gatherly/internal/core"
)

type StatsRepository interface {
	PlatformStats(ctx context.Context) (*PlatformStats, error)
}

type statsRepository struct {
	db core.DBTX
}

func NewStatsRepository(db core.DBTX) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) PlatformStats(
	ctx context.Context,
) (*PlatformStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE deleted_at IS NULL)
				AS total_users,
			(SELECT COUNT(*) FROM events) AS total_events,
			(SELECT COUNT(*) FROM events WHERE status = 'published')
				AS published_events,
			(SELECT COUNT(*) FROM bookings) AS total_bookings,
			(SELECT COUNT(*) FROM bookings WHERE status = 'confirmed')
				AS confirmed_bookings,
			(SELECT COALESCE(SUM(seats), 0) FROM bookings
				WHERE status = 'confirmed') AS seats_booked,
			(SELECT COALESCE(SUM(total_cents), 0) FROM bookings
				WHERE status = 'confirmed') AS revenue_cents`

	var stats PlatformStats
	if err := r.db.GetContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("platform stats: %w", err)
	}

	return &stats, nil
}

type PlatformStats struct {
	TotalUsers        int64 `db:"total_users"        json:"total_users"`
	TotalEvents       int64 `db:"total_events"       json:"total_events"`
	PublishedEvents   int64 `db:"published_events"   json:"published_events"`
	TotalBookings     int64 `db:"total_bookings"     json:"total_bookings"`
	ConfirmedBookings int64 `db:"confirmed_bookings" json:"confirmed_bookings"`
	SeatsBooked       int64 `db:"seats_booked"       json:"seats_booked"`
	RevenueCents      int64 `db:"revenue_cents"      json:"revenue_cents"`
}
