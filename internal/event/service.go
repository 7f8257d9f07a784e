// AngelaMos | 2026
// service.go

package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelamos/gatherly/internal/booking"
	"github.com/angelamos/gatherly/internal/core"
	"github.com/angelamos/gatherly/internal/policy"
)

var _ booking.EventProvider = (*Service)(nil)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(
	ctx context.Context,
	subject policy.Subject,
	req CreateEventRequest,
) (*Event, error) {
	if !policy.Allow(subject, policy.ActionEventCreate, policy.Resource{
		OwnerID: subject.ID,
	}) {
		return nil, core.ForbiddenError("only organizers can create events")
	}

	startsAt, endsAt, err := parseEventWindow(req.StartsAt, req.EndsAt)
	if err != nil {
		return nil, err
	}

	slug, err := s.uniqueSlug(ctx, req.Title)
	if err != nil {
		return nil, err
	}

	event := &Event{
		ID:          uuid.New().String(),
		Slug:        slug,
		Title:       req.Title,
		Description: req.Description,
		Category:    strings.ToLower(req.Category),
		Status:      StatusDraft,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		PriceCents:  req.PriceCents,
		Capacity:    req.Capacity,
		OrganizerID: subject.ID,
		VenueID:     req.VenueID,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		"event_id", event.ID,
		"slug", event.Slug,
		"organizer_id", event.OrganizerID,
	)

	return event, nil
}

// GetByID returns the event. Unpublished events are visible to the
// owner and admins only; everyone else gets a 404 rather than a 403
// so draft existence does not leak.
func (s *Service) GetByID(
	ctx context.Context,
	subject policy.Subject,
	id string,
) (*Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.visible(subject, event) {
		return nil, core.NotFoundError("event")
	}

	return event, nil
}

func (s *Service) GetBySlug(
	ctx context.Context,
	subject policy.Subject,
	slug string,
) (*Event, error) {
	event, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if !s.visible(subject, event) {
		return nil, core.NotFoundError("event")
	}

	return event, nil
}

func (s *Service) List(
	ctx context.Context,
	subject policy.Subject,
	params ListEventsParams,
) ([]Event, int, error) {
	// Non-owners browsing someone else's catalogue only see published
	// events. Admins and organizers listing their own keep the filter
	// they asked for.
	ownView := subject.ID != "" && params.OrganizerID == subject.ID
	if subject.Role != policy.RoleAdmin && !ownView {
		params.Status = StatusPublished
	}

	return s.repo.List(ctx, params)
}

func (s *Service) Update(
	ctx context.Context,
	subject policy.Subject,
	id string,
	req UpdateEventRequest,
) (*Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.Allow(subject, policy.ActionEventUpdate, policy.Resource{
		OwnerID: event.OrganizerID,
	}) {
		return nil, core.ForbiddenError("not the event organizer")
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Category != nil {
		event.Category = strings.ToLower(*req.Category)
	}
	if req.PriceCents != nil {
		// Existing bookings keep the total they were priced at.
		event.PriceCents = *req.PriceCents
	}
	if req.VenueID != nil {
		event.VenueID = req.VenueID
	}

	startsAt := event.StartsAt.Format(time.RFC3339)
	endsAt := event.EndsAt.Format(time.RFC3339)
	if req.StartsAt != nil {
		startsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		endsAt = *req.EndsAt
	}
	if req.StartsAt != nil || req.EndsAt != nil {
		event.StartsAt, event.EndsAt, err = parseEventWindow(startsAt, endsAt)
		if err != nil {
			return nil, err
		}
	}

	if req.Capacity != nil {
		if *req.Capacity < event.BookedCount {
			return nil, core.ValidationAppError(fmt.Sprintf(
				"capacity %d is below the %d seats already booked",
				*req.Capacity, event.BookedCount,
			))
		}
		event.Capacity = *req.Capacity
	}

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}

	return event, nil
}

func (s *Service) Publish(
	ctx context.Context,
	subject policy.Subject,
	id string,
) (*Event, error) {
	return s.transition(ctx, subject, id, StatusPublished,
		policy.ActionEventPublish)
}

func (s *Service) Cancel(
	ctx context.Context,
	subject policy.Subject,
	id string,
) (*Event, error) {
	return s.transition(ctx, subject, id, StatusCancelled,
		policy.ActionEventUpdate)
}

func (s *Service) Complete(
	ctx context.Context,
	subject policy.Subject,
	id string,
) (*Event, error) {
	return s.transition(ctx, subject, id, StatusCompleted,
		policy.ActionEventUpdate)
}

func (s *Service) Delete(
	ctx context.Context,
	subject policy.Subject,
	id string,
) error {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !policy.Allow(subject, policy.ActionEventDelete, policy.Resource{
		OwnerID: event.OrganizerID,
	}) {
		return core.ForbiddenError("not the event organizer")
	}

	if event.Status != StatusDraft {
		return core.InvalidTransitionError(
			"only draft events can be deleted; cancel it instead",
		)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, core.ErrInvalidTransition) {
			return core.InvalidTransitionError(
				"only draft events with no bookings can be deleted",
			)
		}
		return err
	}

	s.logger.Info("event deleted", "event_id", id, "actor_id", subject.ID)

	return nil
}

func (s *Service) transition(
	ctx context.Context,
	subject policy.Subject,
	id, target, action string,
) (*Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.Allow(subject, action, policy.Resource{
		OwnerID: event.OrganizerID,
	}) {
		return nil, core.ForbiddenError("not the event organizer")
	}

	if err := event.Transition(target); err != nil {
		return nil, core.InvalidTransitionError(fmt.Sprintf(
			"cannot move event from %s to %s", event.Status, target,
		))
	}

	if err := s.repo.UpdateStatus(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("event status changed",
		"event_id", event.ID,
		"status", event.Status,
		"actor_id", subject.ID,
	)

	return event, nil
}

// GetEventInfo implements booking.EventProvider.
func (s *Service) GetEventInfo(
	ctx context.Context,
	id string,
) (*booking.EventInfo, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &booking.EventInfo{
		ID:          event.ID,
		OrganizerID: event.OrganizerID,
		Status:      event.Status,
		StartsAt:    event.StartsAt,
	}, nil
}

func (s *Service) visible(subject policy.Subject, event *Event) bool {
	if event.Status == StatusPublished ||
		event.Status == StatusCancelled ||
		event.Status == StatusCompleted {
		return true
	}
	return subject.Role == policy.RoleAdmin || subject.ID == event.OrganizerID
}

// uniqueSlug derives a URL slug from the title, appending a short
// random suffix only when the plain slug is taken.
func (s *Service) uniqueSlug(
	ctx context.Context,
	title string,
) (string, error) {
	base := slugify(title)

	exists, err := s.repo.SlugExists(ctx, base)
	if err != nil {
		return "", err
	}
	if !exists {
		return base, nil
	}

	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return base + "-" + suffix, nil
}

func slugify(title string) string {
	var b strings.Builder
	lastDash := true

	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "event"
	}
	if len(slug) > 80 {
		slug = strings.Trim(slug[:80], "-")
	}

	return slug
}

func parseEventWindow(startsAt, endsAt string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startsAt)
	if err != nil {
		return time.Time{}, time.Time{},
			core.ValidationAppError("starts_at must be RFC3339")
	}

	end, err := time.Parse(time.RFC3339, endsAt)
	if err != nil {
		return time.Time{}, time.Time{},
			core.ValidationAppError("ends_at must be RFC3339")
	}

	start = start.UTC()
	end = end.UTC()

	if !start.Before(end) {
		return time.Time{}, time.Time{},
			core.ValidationAppError("starts_at must be before ends_at")
	}

	return start, end, nil
}
