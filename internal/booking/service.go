// AngelaMos | 2026
// service.go

package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/angelamos/gatherly/internal/core"
	"github.com/angelamos/gatherly/internal/policy"
)

// EventInfo is the slice of an event the booking flows need. The
// event package implements EventProvider so booking never imports it.
type EventInfo struct {
	ID          string
	OrganizerID string
	Status      string
	StartsAt    time.Time
}

type EventProvider interface {
	GetEventInfo(ctx context.Context, id string) (*EventInfo, error)
}

type Service struct {
	repo   Repository
	events EventProvider
	logger *slog.Logger
}

func NewService(
	repo Repository,
	events EventProvider,
	logger *slog.Logger,
) *Service {
	return &Service{repo: repo, events: events, logger: logger}
}

func (s *Service) Create(
	ctx context.Context,
	subject policy.Subject,
	req CreateBookingRequest,
) (*Booking, error) {
	if req.Seats < 1 {
		return nil, core.ValidationAppError("seats must be at least 1")
	}

	info, err := s.events.GetEventInfo(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("event")
		}
		return nil, err
	}

	// Cheap pre-check; the repository repeats it under the row lock.
	if info.Status != "published" {
		return nil, core.BookingClosedError("event is not published")
	}
	if !time.Now().Before(info.StartsAt) {
		return nil, core.BookingClosedError("event has already started")
	}

	booking := &Booking{
		ID:      uuid.New().String(),
		UserID:  subject.ID,
		EventID: req.EventID,
		Seats:   req.Seats,
	}

	if err := s.repo.CreateWithCapacity(ctx, booking); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.NotFoundError("event")
		}
		if errors.Is(err, core.ErrBookingClosed) {
			return nil, core.BookingClosedError("")
		}
		return nil, err
	}

	s.logger.Info("booking created",
		"booking_id", booking.ID,
		"event_id", booking.EventID,
		"user_id", booking.UserID,
		"seats", booking.Seats,
		"total_cents", booking.TotalCents,
	)

	return booking, nil
}

// Cancel releases a booking's seats. Cancelling an already cancelled
// or refunded booking is a no-op that returns the unchanged record.
func (s *Service) Cancel(
	ctx context.Context,
	subject policy.Subject,
	bookingID string,
) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !policy.Allow(subject, policy.ActionBookingCancel, policy.Resource{
		OwnerID: booking.UserID,
	}) {
		s.logger.Warn("booking cancel denied",
			"booking_id", bookingID,
			"owner_id", booking.UserID,
			"actor_id", subject.ID,
		)
		return nil, core.ForbiddenError("not your booking")
	}

	if booking.Terminal() {
		return booking, nil
	}

	if err := s.repo.CancelWithRelease(ctx, booking); err != nil {
		if errors.Is(err, errAlreadyCancelled) {
			return s.repo.GetByID(ctx, bookingID)
		}
		return nil, err
	}

	s.logger.Info("booking cancelled",
		"booking_id", booking.ID,
		"event_id", booking.EventID,
		"seats", booking.Seats,
		"actor_id", subject.ID,
	)

	return booking, nil
}

func (s *Service) GetByID(
	ctx context.Context,
	subject policy.Subject,
	bookingID string,
) (*Booking, error) {
	booking, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !policy.Allow(subject, policy.ActionBookingRead, policy.Resource{
		OwnerID: booking.UserID,
	}) {
		return nil, core.NotFoundError("booking")
	}

	return booking, nil
}

func (s *Service) ListMine(
	ctx context.Context,
	subject policy.Subject,
	params ListBookingsParams,
) ([]Booking, int, error) {
	return s.repo.ListByUser(ctx, subject.ID, params)
}

// ListByEvent is for organizers checking attendance on their own
// events; admins can read any event's bookings.
func (s *Service) ListByEvent(
	ctx context.Context,
	subject policy.Subject,
	eventID string,
	params ListBookingsParams,
) ([]Booking, int, error) {
	info, err := s.events.GetEventInfo(ctx, eventID)
	if err != nil {
		return nil, 0, err
	}

	if !policy.Allow(subject, policy.ActionBookingRead, policy.Resource{
		OwnerID: info.OrganizerID,
	}) {
		return nil, 0, core.ForbiddenError("not the event organizer")
	}

	return s.repo.ListByEvent(ctx, eventID, params)
}
