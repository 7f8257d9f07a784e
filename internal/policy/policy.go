// AngelaMos | 2026
// policy.go

// Package policy is the single place authorization decisions are made.
// It is a pure function over (subject, action, resource ownership) with
// no transport or storage dependencies, so the same rules apply whether
// it is called from middleware, a service, or a test.
package policy

const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
)

// Actions the capability table knows about.
const (
	ActionBookingCreate = "booking.create"
	ActionBookingCancel = "booking.cancel"
	ActionBookingRead   = "booking.read"
	ActionEventCreate   = "event.create"
	ActionEventUpdate   = "event.update"
	ActionEventDelete   = "event.delete"
	ActionEventPublish  = "event.publish"
	ActionUserManage    = "user.manage"
	ActionContentManage = "content.manage"
)

// Subject is the acting principal, taken from verified token claims.
// Client-supplied role values must never reach this type.
type Subject struct {
	ID   string
	Role string
}

// Resource describes what is being acted on. OwnerID is the recorded
// owner (organizer for events, booking user for bookings); leave it
// empty for actions without an ownership dimension.
type Resource struct {
	OwnerID string
}

type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// Decide evaluates the capability table. Admin bypasses ownership on
// every action; ownership-scoped actions require the subject to be the
// recorded owner; role-gated actions require the minimum role.
func Decide(subject Subject, action string, resource Resource) Decision {
	if subject.ID == "" || subject.Role == "" {
		return deny("unauthenticated subject")
	}

	if subject.Role == RoleAdmin {
		return allow()
	}

	switch action {
	case ActionBookingCreate:
		return allow()

	case ActionBookingCancel, ActionBookingRead:
		if resource.OwnerID == subject.ID {
			return allow()
		}
		return deny("not the booking owner")

	case ActionEventCreate:
		if subject.Role == RoleOrganizer {
			return allow()
		}
		return deny("organizer role required")

	case ActionEventUpdate, ActionEventDelete, ActionEventPublish:
		if subject.Role != RoleOrganizer {
			return deny("organizer role required")
		}
		if resource.OwnerID != subject.ID {
			return deny("not the event owner")
		}
		return allow()

	case ActionUserManage, ActionContentManage:
		return deny("admin role required")

	default:
		return deny("unknown action")
	}
}

// Allow is the boolean shorthand for callers that do not need the
// denial reason.
func Allow(subject Subject, action string, resource Resource) bool {
	return Decide(subject, action, resource).Allowed
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleOrganizer || role == RoleAdmin
}
