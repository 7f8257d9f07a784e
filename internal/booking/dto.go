// AngelaMos | 2026
// dto.go

package booking

import (
	"time"
)

type CreateBookingRequest struct {
	EventID string `json:"event_id" validate:"required,uuid"`
	Seats   int    `json:"seats"    validate:"required,gte=1,lte=20"`
}

type BookingResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	EventID     string     `json:"event_id"`
	Seats       int        `json:"seats"`
	TotalCents  int64      `json:"total_cents"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}

type ListBookingsParams struct {
	Page     int
	PageSize int
	Status   string
}

func (p *ListBookingsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p *ListBookingsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToBookingResponse(b *Booking) BookingResponse {
	return BookingResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		EventID:     b.EventID,
		Seats:       b.Seats,
		TotalCents:  b.TotalCents,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		CancelledAt: b.CancelledAt,
	}
}

func ToBookingResponseList(bookings []Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, ToBookingResponse(&bookings[i]))
	}
	return out
}
