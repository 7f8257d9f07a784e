// AngelaMos | 2026
// policy_test.go

package policy

import "testing"

func TestCapabilityTable(t *testing.T) {
	owner := Subject{ID: "user-1", Role: RoleUser}
	organizer := Subject{ID: "org-1", Role: RoleOrganizer}
	admin := Subject{ID: "admin-1", Role: RoleAdmin}

	cases := []struct {
		name     string
		subject  Subject
		action   string
		resource Resource
		want     bool
	}{
		{"user books", owner, ActionBookingCreate, Resource{}, true},
		{"user cancels own booking", owner, ActionBookingCancel, Resource{OwnerID: "user-1"}, true},
		{"user cancels foreign booking", owner, ActionBookingCancel, Resource{OwnerID: "user-2"}, false},
		{"user creates event", owner, ActionEventCreate, Resource{}, false},
		{"organizer creates event", organizer, ActionEventCreate, Resource{}, true},
		{"organizer edits own event", organizer, ActionEventUpdate, Resource{OwnerID: "org-1"}, true},
		{"organizer edits foreign event", organizer, ActionEventUpdate, Resource{OwnerID: "org-2"}, false},
		{"organizer publishes own event", organizer, ActionEventPublish, Resource{OwnerID: "org-1"}, true},
		{"organizer manages users", organizer, ActionUserManage, Resource{}, false},
		{"organizer manages content", organizer, ActionContentManage, Resource{}, false},
		{"user manages content", owner, ActionContentManage, Resource{}, false},
		{"admin cancels any booking", admin, ActionBookingCancel, Resource{OwnerID: "user-2"}, true},
		{"admin edits any event", admin, ActionEventUpdate, Resource{OwnerID: "org-2"}, true},
		{"admin manages users", admin, ActionUserManage, Resource{}, true},
		{"admin manages content", admin, ActionContentManage, Resource{}, true},
		{"unknown action denied", owner, "event.frobnicate", Resource{}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(tc.subject, tc.action, tc.resource)
			if got.Allowed != tc.want {
				t.Fatalf("Decide(%v, %s, %v) = %v, want allowed=%v (reason: %s)",
					tc.subject, tc.action, tc.resource, got.Allowed, tc.want, got.Reason)
			}
			if !got.Allowed && got.Reason == "" {
				t.Fatalf("denial without a reason for %s", tc.name)
			}
		})
	}
}

func TestUnauthenticatedSubjectDenied(t *testing.T) {
	d := Decide(Subject{}, ActionBookingCreate, Resource{})
	if d.Allowed {
		t.Fatal("empty subject must be denied")
	}
}

// A role claim outside the verified token must not grant anything: the
// table only ever sees the subject built from verified claims, so a
// forged role string that is not a known role falls through to deny.
func TestForgedRoleDenied(t *testing.T) {
	forged := Subject{ID: "user-1", Role: "superadmin"}
	if Allow(forged, ActionUserManage, Resource{}) {
		t.Fatal("unknown role must not reach admin capabilities")
	}
	if Allow(forged, ActionEventCreate, Resource{}) {
		t.Fatal("unknown role must not reach organizer capabilities")
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleUser, RoleOrganizer, RoleAdmin} {
		if !ValidRole(role) {
			t.Fatalf("expected %q to be valid", role)
		}
	}
	if ValidRole("root") {
		t.Fatal("unexpected valid role")
	}
}
