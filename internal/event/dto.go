// AngelaMos | 2026
// dto.go

package event

import (
	"time"
)

type CreateEventRequest struct {
	Title       string  `json:"title"       validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Category    string  `json:"category"    validate:"required,min=2,max=100"`
	StartsAt    string  `json:"starts_at"   validate:"required"`
	EndsAt      string  `json:"ends_at"     validate:"required"`
	PriceCents  int64   `json:"price_cents" validate:"gte=0"`
	Capacity    int     `json:"capacity"    validate:"required,gt=0"`
	VenueID     *string `json:"venue_id,omitempty" validate:"omitempty,uuid"`
}

// UpdateEventRequest uses pointers so absent fields are left untouched.
type UpdateEventRequest struct {
	Title       *string `json:"title,omitempty"       validate:"omitempty,min=3,max=200"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Category    *string `json:"category,omitempty"    validate:"omitempty,min=2,max=100"`
	StartsAt    *string `json:"starts_at,omitempty"`
	EndsAt      *string `json:"ends_at,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty" validate:"omitempty,gte=0"`
	Capacity    *int    `json:"capacity,omitempty"    validate:"omitempty,gt=0"`
	VenueID     *string `json:"venue_id,omitempty"    validate:"omitempty,uuid"`
}

type EventResponse struct {
	ID             string     `json:"id"`
	Slug           string     `json:"slug"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	StartsAt       time.Time  `json:"starts_at"`
	EndsAt         time.Time  `json:"ends_at"`
	PriceCents     int64      `json:"price_cents"`
	Capacity       int        `json:"capacity"`
	BookedCount    int        `json:"booked_count"`
	AvailableSeats int        `json:"available_seats"`
	OrganizerID    string     `json:"organizer_id"`
	VenueID        *string    `json:"venue_id,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type ListEventsParams struct {
	Page        int
	PageSize    int
	Status      string
	Category    string
	OrganizerID string
}

func (p *ListEventsParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 || p.PageSize > 100 {
		p.PageSize = 20
	}
}

func (p *ListEventsParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func ToEventResponse(e *Event) EventResponse {
	return EventResponse{
		ID:             e.ID,
		Slug:           e.Slug,
		Title:          e.Title,
		Description:    e.Description,
		Category:       e.Category,
		Status:         e.Status,
		StartsAt:       e.StartsAt,
		EndsAt:         e.EndsAt,
		PriceCents:     e.PriceCents,
		Capacity:       e.Capacity,
		BookedCount:    e.BookedCount,
		AvailableSeats: e.AvailableSeats(),
		OrganizerID:    e.OrganizerID,
		VenueID:        e.VenueID,
		PublishedAt:    e.PublishedAt,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func ToEventResponseList(events []Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, ToEventResponse(&events[i]))
	}
	return out
}
