// AngelaMos | 2026
// service_test.go

package event

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/angelamos/gatherly/internal/core"
	"github.com/angelamos/gatherly/internal/policy"
)

type fakeEventRepo struct {
	events map[string]*Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*Event)}
}

func (f *fakeEventRepo) Create(_ context.Context, e *Event) error {
	for _, existing := range f.events {
		if existing.Slug == e.Slug {
			return fmt.Errorf("create event: %w", core.ErrDuplicateKey)
		}
	}
	cp := *e
	cp.CreatedAt = time.Now()
	cp.UpdatedAt = cp.CreatedAt
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, id string) (*Event, error) {
	e, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("get event: %w", core.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEventRepo) GetBySlug(
	_ context.Context,
	slug string,
) (*Event, error) {
	for _, e := range f.events {
		if e.Slug == slug {
			cp := *e
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get event by slug: %w", core.ErrNotFound)
}

func (f *fakeEventRepo) Update(_ context.Context, e *Event) error {
	stored, ok := f.events[e.ID]
	if !ok {
		return fmt.Errorf("update event: %w", core.ErrNotFound)
	}
	cp := *e
	cp.BookedCount = stored.BookedCount
	cp.UpdatedAt = time.Now()
	f.events[e.ID] = &cp
	return nil
}

func (f *fakeEventRepo) UpdateStatus(_ context.Context, e *Event) error {
	stored, ok := f.events[e.ID]
	if !ok {
		return fmt.Errorf("update event status: %w", core.ErrNotFound)
	}
	stored.Status = e.Status
	stored.PublishedAt = e.PublishedAt
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeEventRepo) Delete(_ context.Context, id string) error {
	e, ok := f.events[id]
	if !ok || e.Status != StatusDraft || e.BookedCount > 0 {
		return fmt.Errorf("delete event: %w", core.ErrInvalidTransition)
	}
	delete(f.events, id)
	return nil
}

func (f *fakeEventRepo) List(
	_ context.Context,
	params ListEventsParams,
) ([]Event, int, error) {
	params.Normalize()
	var out []Event
	for _, e := range f.events {
		if params.Status != "" && e.Status != params.Status {
			continue
		}
		if params.OrganizerID != "" && e.OrganizerID != params.OrganizerID {
			continue
		}
		out = append(out, *e)
	}
	return out, len(out), nil
}

func (f *fakeEventRepo) SlugExists(
	_ context.Context,
	slug string,
) (bool, error) {
	for _, e := range f.events {
		if e.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func organizerSubject() policy.Subject {
	return policy.Subject{ID: "org-1", Role: policy.RoleOrganizer}
}

func validCreateRequest() CreateEventRequest {
	starts := time.Now().Add(48 * time.Hour)
	return CreateEventRequest{
		Title:      "Go Conference 2026",
		Category:   "Tech",
		StartsAt:   starts.Format(time.RFC3339),
		EndsAt:     starts.Add(8 * time.Hour).Format(time.RFC3339),
		PriceCents: 12500,
		Capacity:   100,
	}
}

func TestCreateRequiresOrganizerRole(t *testing.T) {
	svc := NewService(newFakeEventRepo(), discardLogger())

	_, err := svc.Create(
		context.Background(),
		policy.Subject{ID: "u-1", Role: policy.RoleUser},
		validCreateRequest(),
	)
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("Create() error = %v, want ErrForbidden", err)
	}
}

func TestCreateStartsAsDraftWithOwner(t *testing.T) {
	svc := NewService(newFakeEventRepo(), discardLogger())

	event, err := svc.Create(
		context.Background(), organizerSubject(), validCreateRequest(),
	)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if event.Status != StatusDraft {
		t.Fatalf("status = %q, want draft", event.Status)
	}
	if event.OrganizerID != "org-1" {
		t.Fatalf("organizer = %q, want org-1", event.OrganizerID)
	}
	if event.Slug != "go-conference-2026" {
		t.Fatalf("slug = %q", event.Slug)
	}
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	svc := NewService(newFakeEventRepo(), discardLogger())

	req := validCreateRequest()
	req.StartsAt, req.EndsAt = req.EndsAt, req.StartsAt

	_, err := svc.Create(context.Background(), organizerSubject(), req)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("Create() error = %v, want ErrInvalidInput", err)
	}
}

func TestCreateSlugCollisionGetsSuffix(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	first, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("first Create() error = %v", err)
	}

	second, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("second Create() error = %v", err)
	}

	if second.Slug == first.Slug {
		t.Fatalf("duplicate slug %q", second.Slug)
	}
	if !strings.HasPrefix(second.Slug, first.Slug+"-") {
		t.Fatalf("slug %q missing suffix on base %q", second.Slug, first.Slug)
	}
}

func TestDraftHiddenFromStrangers(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	event, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	stranger := policy.Subject{ID: "u-2", Role: policy.RoleUser}
	if _, err := svc.GetByID(ctx, stranger, event.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("stranger GetByID error = %v, want ErrNotFound", err)
	}

	if _, err := svc.GetByID(ctx, organizerSubject(), event.ID); err != nil {
		t.Fatalf("owner GetByID error = %v", err)
	}

	admin := policy.Subject{ID: "a-1", Role: policy.RoleAdmin}
	if _, err := svc.GetByID(ctx, admin, event.ID); err != nil {
		t.Fatalf("admin GetByID error = %v", err)
	}
}

func TestPublishPersistsStatusAndTimestamp(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	event, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	published, err := svc.Publish(ctx, organizerSubject(), event.ID)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if published.Status != StatusPublished || published.PublishedAt == nil {
		t.Fatalf("publish result: status=%q publishedAt=%v",
			published.Status, published.PublishedAt)
	}

	stored, _ := repo.GetByID(ctx, event.ID)
	if stored.Status != StatusPublished || stored.PublishedAt == nil {
		t.Fatal("publish not persisted")
	}

	// Publishing twice is not a valid transition.
	if _, err := svc.Publish(ctx, organizerSubject(), event.ID); !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("second Publish() error = %v, want ErrInvalidTransition", err)
	}
}

func TestUpdateCapacityCannotDropBelowBooked(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	event, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	repo.events[event.ID].BookedCount = 40

	smaller := 30
	_, err = svc.Update(ctx, organizerSubject(), event.ID, UpdateEventRequest{
		Capacity: &smaller,
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("Update() error = %v, want ErrInvalidInput", err)
	}

	larger := 50
	if _, err := svc.Update(ctx, organizerSubject(), event.ID, UpdateEventRequest{
		Capacity: &larger,
	}); err != nil {
		t.Fatalf("Update() to 50 error = %v", err)
	}
}

func TestUpdateForbiddenForNonOwner(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	event, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	title := "Hijacked"
	other := policy.Subject{ID: "org-2", Role: policy.RoleOrganizer}
	_, err = svc.Update(ctx, other, event.ID, UpdateEventRequest{Title: &title})
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("Update() error = %v, want ErrForbidden", err)
	}
}

func TestDeleteOnlyDrafts(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	event, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Publish(ctx, organizerSubject(), event.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	err = svc.Delete(ctx, organizerSubject(), event.ID)
	if !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("Delete() published error = %v, want ErrInvalidTransition", err)
	}

	draft, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create() draft error = %v", err)
	}
	if err := svc.Delete(ctx, organizerSubject(), draft.ID); err != nil {
		t.Fatalf("Delete() draft error = %v", err)
	}
}

func TestListForcesPublishedForStrangers(t *testing.T) {
	repo := newFakeEventRepo()
	svc := NewService(repo, discardLogger())
	ctx := context.Background()

	draft, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second, err := svc.Create(ctx, organizerSubject(), validCreateRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := svc.Publish(ctx, organizerSubject(), second.ID); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	anon := policy.Subject{}
	events, total, err := svc.List(ctx, anon, ListEventsParams{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(events) != 1 || events[0].ID != second.ID {
		t.Fatalf("anonymous list = %d events, want only the published one", total)
	}

	own, _, err := svc.List(ctx, organizerSubject(), ListEventsParams{
		OrganizerID: "org-1",
	})
	if err != nil {
		t.Fatalf("List() own error = %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("owner list = %d events, want 2 (incl. draft %s)",
			len(own), draft.ID)
	}
}
