// AngelaMos | 2026
// entity.go

package event

import (
	"fmt"
	"time"

	"github.com/angelamos/gatherly/internal/core"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// transitions is the whole lifecycle. Published is the only state
// bookings can be created in; cancelled and completed are terminal.
var transitions = map[string][]string{
	StatusDraft:     {StatusPublished},
	StatusPublished: {StatusCancelled, StatusCompleted},
	StatusCancelled: {},
	StatusCompleted: {},
}

type Event struct {
	ID          string     `db:"id"`
	Slug        string     `db:"slug"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Category    string     `db:"category"`
	Status      string     `db:"status"`
	StartsAt    time.Time  `db:"starts_at"`
	EndsAt      time.Time  `db:"ends_at"`
	PriceCents  int64      `db:"price_cents"`
	Capacity    int        `db:"capacity"`
	BookedCount int        `db:"booked_count"`
	OrganizerID string     `db:"organizer_id"`
	VenueID     *string    `db:"venue_id"`
	PublishedAt *time.Time `db:"published_at"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (e *Event) CanTransition(to string) bool {
	for _, next := range transitions[e.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition moves the event to the target status, stamping
// published_at on the draft→published edge.
func (e *Event) Transition(to string) error {
	if !e.CanTransition(to) {
		return fmt.Errorf(
			"%s to %s: %w", e.Status, to, core.ErrInvalidTransition,
		)
	}

	e.Status = to
	if to == StatusPublished {
		now := time.Now().UTC()
		e.PublishedAt = &now
	}

	return nil
}

func (e *Event) AvailableSeats() int {
	remaining := e.Capacity - e.BookedCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Bookable reports whether a new booking may be created against this
// event at the given instant.
func (e *Event) Bookable(now time.Time) bool {
	return e.Status == StatusPublished && now.Before(e.StartsAt)
}

func ValidStatus(s string) bool {
	_, ok := transitions[s]
	return ok
}
