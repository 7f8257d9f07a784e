// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/angelamos/gatherly/internal/policy"
)

type User struct {
	ID            string     `db:"id"`
	Email         string     `db:"email"`
	PasswordHash  string     `db:"password_hash"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Phone         *string    `db:"phone"`
	Role          string     `db:"role"`
	Status        string     `db:"status"`
	EmailVerified bool       `db:"email_verified"`
	TokenVersion  int        `db:"token_version"`
	LastLoginAt   *time.Time `db:"last_login_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	DeletedAt     *time.Time `db:"deleted_at"`
}

const (
	RoleUser      = policy.RoleUser
	RoleOrganizer = policy.RoleOrganizer
	RoleAdmin     = policy.RoleAdmin
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
	StatusDeleted   = "deleted"
)

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil || u.Status == StatusDeleted
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive && u.DeletedAt == nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func ValidStatus(status string) bool {
	return status == StatusActive ||
		status == StatusSuspended ||
		status == StatusDeleted
}
