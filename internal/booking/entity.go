// AngelaMos | 2026
// entity.go

package booking

import (
	"time"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

// Booking records a seat purchase. TotalCents is captured at creation
// from the event's price at that moment; later price edits on the
// event never touch it.
type Booking struct {
	ID          string     `db:"id"`
	UserID      string     `db:"user_id"`
	EventID     string     `db:"event_id"`
	Seats       int        `db:"seats"`
	TotalCents  int64      `db:"total_cents"`
	Status      string     `db:"status"`
	PaymentID   *string    `db:"payment_id"`
	CreatedAt   time.Time  `db:"created_at"`
	CancelledAt *time.Time `db:"cancelled_at"`
}

// Terminal reports whether the booking no longer holds seats.
func (b *Booking) Terminal() bool {
	return b.Status == StatusCancelled || b.Status == StatusRefunded
}
