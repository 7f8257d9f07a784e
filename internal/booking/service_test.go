// AngelaMos | 2026
// service_test.go

package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/angelamos/gatherly/internal/core"
	"github.com/angelamos/gatherly/internal/policy"
)

// fakeStore backs both the repository and the event provider, holding
// the event counters and bookings under one mutex the way the real
// implementation holds the event row lock.
type fakeStore struct {
	mu       sync.Mutex
	events   map[string]*EventInfo
	capacity map[string]int
	booked   map[string]int
	price    map[string]int64
	bookings map[string]*Booking
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   make(map[string]*EventInfo),
		capacity: make(map[string]int),
		booked:   make(map[string]int),
		price:    make(map[string]int64),
		bookings: make(map[string]*Booking),
	}
}

func (f *fakeStore) addEvent(
	id string, organizerID string, capacity int, priceCents int64,
) {
	f.events[id] = &EventInfo{
		ID:          id,
		OrganizerID: organizerID,
		Status:      "published",
		StartsAt:    time.Now().Add(24 * time.Hour),
	}
	f.capacity[id] = capacity
	f.price[id] = priceCents
}

func (f *fakeStore) GetEventInfo(
	_ context.Context,
	id string,
) (*EventInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("get event: %w", core.ErrNotFound)
	}
	cp := *info
	return &cp, nil
}

func (f *fakeStore) CreateWithCapacity(
	_ context.Context,
	booking *Booking,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, ok := f.events[booking.EventID]
	if !ok {
		return fmt.Errorf("lock event: %w", core.ErrNotFound)
	}
	if info.Status != "published" || !time.Now().Before(info.StartsAt) {
		return fmt.Errorf("event not bookable: %w", core.ErrBookingClosed)
	}

	remaining := f.capacity[booking.EventID] - f.booked[booking.EventID]
	if remaining < booking.Seats {
		return core.InsufficientCapacityError(remaining)
	}

	f.booked[booking.EventID] += booking.Seats
	booking.TotalCents = int64(booking.Seats) * f.price[booking.EventID]
	booking.Status = StatusConfirmed
	booking.CreatedAt = time.Now()

	cp := *booking
	f.bookings[booking.ID] = &cp
	return nil
}

func (f *fakeStore) CancelWithRelease(
	_ context.Context,
	booking *Booking,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, ok := f.bookings[booking.ID]
	if !ok {
		return fmt.Errorf("get booking: %w", core.ErrNotFound)
	}
	if stored.Terminal() {
		return errAlreadyCancelled
	}

	now := time.Now()
	stored.Status = StatusCancelled
	stored.CancelledAt = &now

	released := f.booked[booking.EventID] - booking.Seats
	if released < 0 {
		released = 0
	}
	f.booked[booking.EventID] = released

	booking.Status = StatusCancelled
	booking.CancelledAt = &now
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id string) (*Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("get booking: %w", core.ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (f *fakeStore) ListByUser(
	_ context.Context,
	userID string,
	params ListBookingsParams,
) ([]Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) ListByEvent(
	_ context.Context,
	eventID string,
	params ListBookingsParams,
) ([]Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.EventID == eventID {
			out = append(out, *b)
		}
	}
	return out, len(out), nil
}

func newTestService(store *fakeStore) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(store, store, logger)
}

func userSubject(id string) policy.Subject {
	return policy.Subject{ID: id, Role: policy.RoleUser}
}

func TestCreateCapturesPriceAtBookingTime(t *testing.T) {
	store := newFakeStore()
	store.addEvent("ev-1", "org-1", 100, 2500)
	svc := newTestService(store)

	booking, err := svc.Create(context.Background(), userSubject("u-1"),
		CreateBookingRequest{EventID: "ev-1", Seats: 3})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if booking.Status != StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", booking.Status)
	}
	if booking.TotalCents != 7500 {
		t.Fatalf("total = %d, want 7500", booking.TotalCents)
	}

	// A later price change must not touch the captured total.
	store.mu.Lock()
	store.price["ev-1"] = 9900
	store.mu.Unlock()

	got, err := svc.GetByID(context.Background(), userSubject("u-1"), booking.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.TotalCents != 7500 {
		t.Fatalf("total after price change = %d, want 7500", got.TotalCents)
	}
}

func TestCreateRejectsInvalidSeats(t *testing.T) {
	store := newFakeStore()
	store.addEvent("ev-1", "org-1", 10, 1000)
	svc := newTestService(store)

	_, err := svc.Create(context.Background(), userSubject("u-1"),
		CreateBookingRequest{EventID: "ev-1", Seats: 0})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("Create() error = %v, want ErrInvalidInput", err)
	}
}

func TestCreateUnknownEventIs404(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.Create(context.Background(), userSubject("u-1"),
		CreateBookingRequest{EventID: "missing", Seats: 1})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Create() error = %v, want ErrNotFound", err)
	}
}

func TestCreateClosedEvent(t *testing.T) {
	store := newFakeStore()
	store.addEvent("draft", "org-1", 10, 1000)
	store.events["draft"].Status = "draft"
	store.addEvent("started", "org-1", 10, 1000)
	store.events["started"].StartsAt = time.Now().Add(-time.Hour)
	svc := newTestService(store)

	for _, id := range []string{"draft", "started"} {
		_, err := svc.Create(context.Background(), userSubject("u-1"),
			CreateBookingRequest{EventID: id, Seats: 1})
		if !errors.Is(err, core.ErrBookingClosed) {
			t.Fatalf("Create(%s) error = %v, want ErrBookingClosed", id, err)
		}
	}
}

func TestCreateInsufficientCapacity(t *testing.T) {
	store := newFakeStore()
	store.addEvent("ev-1", "org-1", 2, 1000)
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, userSubject("u-1"),
		CreateBookingRequest{EventID: "ev-1", Seats: 2}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err := svc.Create(ctx, userSubject("u-2"),
		CreateBookingRequest{EventID: "ev-1", Seats: 1})
	if !errors.Is(err, core.ErrInsufficientCapacity) {
		t.Fatalf("Create() error = %v, want ErrInsufficientCapacity", err)
	}
}

func TestNoOverselling(t *testing.T) {
	const capacity = 5
	const contenders = 50

	store := newFakeStore()
	store.addEvent("ev-1", "org-1", capacity, 1000)
	svc := newTestService(store)

	var wg sync.WaitGroup
	results := make(chan error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := svc.Create(
				context.Background(),
				userSubject(fmt.Sprintf("u-%d", n)),
				CreateBookingRequest{EventID: "ev-1", Seats: 1},
			)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, capacityErrs int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, core.ErrInsufficientCapacity):
			capacityErrs++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != capacity {
		t.Fatalf("succeeded = %d, want exactly %d", succeeded, capacity)
	}
	if store.booked["ev-1"] != capacity {
		t.Fatalf("booked_count = %d, want %d", store.booked["ev-1"], capacity)
	}
	if capacityErrs != contenders-capacity {
		t.Fatalf("capacity errors = %d, want %d",
			capacityErrs, contenders-capacity)
	}
}

func TestCancelReleasesSeatsAndIsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addEvent("ev-1", "org-1", 10, 1000)
	svc := newTestService(store)
	ctx := context.Background()

	booking, err := svc.Create(ctx, userSubject("u-1"),
		CreateBookingRequest{EventID: "ev-1", Seats: 4})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if store.booked["ev-1"] != 4 {
		t.Fatalf("booked = %d, want 4", store.booked["ev-1"])
	}

	cancelled, err := svc.Cancel(ctx, userSubject("u-1"), booking.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("cancel result: status=%q cancelledAt=%v",
			cancelled.Status, cancelled.CancelledAt)
	}
	if store.booked["ev-1"] != 0 {
		t.Fatalf("booked after cancel = %d, want 0", store.booked["ev-1"])
	}

	// Second cancel is a no-op, returns the unchanged booking, and
	// must not release seats again.
	store.booked["ev-1"] = 3
	again, err := svc.Cancel(ctx, userSubject("u-1"), booking.ID)
	if err != nil {
		t.Fatalf("second Cancel() error = %v", err)
	}
	if again.Status != StatusCancelled {
		t.Fatalf("second cancel status = %q", again.Status)
	}
	if store.booked["ev-1"] != 3 {
		t.Fatalf("booked after repeat cancel = %d, want 3",
			store.booked["ev-1"])
	}
}

func TestCancelOwnershipIsolation(t *testing.T) {
	store := newFakeStore()
	store.addEvent("ev-1", "org-1", 10, 1000)
	svc := newTestService(store)
	ctx := context.Background()

	booking, err := svc.Create(ctx, userSubject("u-1"),
		CreateBookingRequest{EventID: "ev-1", Seats: 1})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	_, err = svc.Cancel(ctx, userSubject("u-2"), booking.ID)
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("stranger Cancel() error = %v, want ErrForbidden", err)
	}

	// Organizer role does not grant access to attendee bookings.
	organizer := policy.Subject{ID: "org-1", Role: policy.RoleOrganizer}
	_, err = svc.Cancel(ctx, organizer, booking.ID)
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("organizer Cancel() error = %v, want ErrForbidden", err)
	}

	admin := policy.Subject{ID: "a-1", Role: policy.RoleAdmin}
	if _, err := svc.Cancel(ctx, admin, booking.ID); err != nil {
		t.Fatalf("admin Cancel() error = %v", err)
	}
}

func TestListByEventRequiresOrganizerOwnership(t *testing.T) {
	store := newFakeStore()
	store.addEvent("ev-1", "org-1", 10, 1000)
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Create(ctx, userSubject("u-1"),
		CreateBookingRequest{EventID: "ev-1", Seats: 1}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	owner := policy.Subject{ID: "org-1", Role: policy.RoleOrganizer}
	bookings, total, err := svc.ListByEvent(ctx, owner, "ev-1",
		ListBookingsParams{})
	if err != nil {
		t.Fatalf("owner ListByEvent() error = %v", err)
	}
	if total != 1 || len(bookings) != 1 {
		t.Fatalf("owner sees %d bookings, want 1", total)
	}

	other := policy.Subject{ID: "org-2", Role: policy.RoleOrganizer}
	_, _, err = svc.ListByEvent(ctx, other, "ev-1", ListBookingsParams{})
	if !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("other organizer error = %v, want ErrForbidden", err)
	}
}
