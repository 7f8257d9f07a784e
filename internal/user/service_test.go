// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/angelamos/gatherly/internal/auth"
	"github.com/angelamos/gatherly/internal/core"
)

type fakeUserRepo struct {
	users map[string]*User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email && !existing.IsDeleted() {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*User, error) {
	u, ok := f.users[id]
	if !ok || u.IsDeleted() {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(
	_ context.Context,
	email string,
) (*User, error) {
	for _, u := range f.users {
		if u.Email == email && !u.IsDeleted() {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
}

func (f *fakeUserRepo) Update(_ context.Context, u *User) error {
	stored, ok := f.users[u.ID]
	if !ok {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	stored.Phone = u.Phone
	return nil
}

func (f *fakeUserRepo) UpdatePassword(
	_ context.Context,
	id, passwordHash string,
) error {
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("update password: %w", core.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	return nil
}

func (f *fakeUserRepo) UpdateRole(_ context.Context, id, role string) error {
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("update role: %w", core.ErrNotFound)
	}
	u.Role = role
	return nil
}

func (f *fakeUserRepo) UpdateStatus(
	_ context.Context,
	id, status string,
) error {
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("update status: %w", core.ErrNotFound)
	}
	u.Status = status
	return nil
}

func (f *fakeUserRepo) RecordLogin(_ context.Context, id string) error {
	return nil
}

func (f *fakeUserRepo) IncrementTokenVersion(
	_ context.Context,
	id string,
) error {
	u, ok := f.users[id]
	if !ok {
		return fmt.Errorf("increment token version: %w", core.ErrNotFound)
	}
	u.TokenVersion++
	return nil
}

func (f *fakeUserRepo) SoftDelete(_ context.Context, id string) error {
	u, ok := f.users[id]
	if !ok || u.IsDeleted() {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}
	u.Status = StatusDeleted
	return nil
}

func (f *fakeUserRepo) List(
	_ context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	var out []User
	for _, u := range f.users {
		if !u.IsDeleted() {
			out = append(out, *u)
		}
	}
	return out, len(out), nil
}

func (f *fakeUserRepo) ExistsByEmail(
	_ context.Context,
	email string,
) (bool, error) {
	for _, u := range f.users {
		if u.Email == email && !u.IsDeleted() {
			return true, nil
		}
	}
	return false, nil
}

func seed(repo *fakeUserRepo, id, role string) {
	repo.users[id] = &User{
		ID:     id,
		Email:  id + "@example.com",
		Role:   role,
		Status: StatusActive,
	}
}

func TestCreateNormalizesEmailAndDefaults(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewService(repo)

	info, err := svc.Create(context.Background(), auth.CreateUserParams{
		Email:        "Alice@Example.COM",
		PasswordHash: "hash",
		FirstName:    "Alice",
		LastName:     "Ng",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if info.Email != "alice@example.com" {
		t.Fatalf("email = %q, want lowercased", info.Email)
	}
	if info.Role != RoleUser || info.Status != StatusActive {
		t.Fatalf("defaults: role=%q status=%q", info.Role, info.Status)
	}
}

func TestUpdateUserRoleRejectsUnknownRole(t *testing.T) {
	repo := newFakeUserRepo()
	seed(repo, "u-1", RoleUser)
	svc := NewService(repo)

	_, err := svc.UpdateUserRole(context.Background(), "u-1", "superuser")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("UpdateUserRole() error = %v, want ErrInvalidInput", err)
	}

	u, err := svc.UpdateUserRole(context.Background(), "u-1", RoleOrganizer)
	if err != nil {
		t.Fatalf("UpdateUserRole() error = %v", err)
	}
	if u.Role != RoleOrganizer {
		t.Fatalf("role = %q, want organizer", u.Role)
	}
}

func TestSuspensionBumpsTokenVersion(t *testing.T) {
	repo := newFakeUserRepo()
	seed(repo, "u-1", RoleUser)
	svc := NewService(repo)
	ctx := context.Background()

	u, err := svc.UpdateUserStatus(ctx, "u-1", StatusSuspended)
	if err != nil {
		t.Fatalf("UpdateUserStatus() error = %v", err)
	}
	if u.Status != StatusSuspended {
		t.Fatalf("status = %q, want suspended", u.Status)
	}
	if u.TokenVersion != 1 {
		t.Fatalf("token version = %d, want 1", u.TokenVersion)
	}

	// Reactivation does not bump the version again.
	u, err = svc.UpdateUserStatus(ctx, "u-1", StatusActive)
	if err != nil {
		t.Fatalf("UpdateUserStatus() error = %v", err)
	}
	if u.TokenVersion != 1 {
		t.Fatalf("token version after reactivate = %d, want 1", u.TokenVersion)
	}
}

func TestUpdateUserStatusRejectsDeleted(t *testing.T) {
	repo := newFakeUserRepo()
	seed(repo, "u-1", RoleUser)
	svc := NewService(repo)

	_, err := svc.UpdateUserStatus(context.Background(), "u-1", StatusDeleted)
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("UpdateUserStatus() error = %v, want ErrInvalidInput", err)
	}
}

func TestCanDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	seed(repo, "admin-1", RoleAdmin)
	seed(repo, "admin-2", RoleAdmin)
	seed(repo, "u-1", RoleUser)
	seed(repo, "u-2", RoleUser)
	svc := NewService(repo)
	ctx := context.Background()

	if err := svc.CanDeleteUser(ctx, "u-1", "u-1"); err != nil {
		t.Fatalf("self delete error = %v", err)
	}

	if err := svc.CanDeleteUser(ctx, "u-1", "u-2"); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("peer delete error = %v, want ErrForbidden", err)
	}

	if err := svc.CanDeleteUser(ctx, "admin-1", "u-1"); err != nil {
		t.Fatalf("admin delete user error = %v", err)
	}

	if err := svc.CanDeleteUser(ctx, "admin-1", "admin-2"); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("admin delete admin error = %v, want ErrForbidden", err)
	}
}

func TestGetMeRequiresIdentity(t *testing.T) {
	svc := NewService(newFakeUserRepo())

	_, err := svc.GetMe(context.Background(), "")
	if !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("GetMe() error = %v, want ErrUnauthorized", err)
	}
}
