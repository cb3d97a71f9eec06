package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's role in the platform.
type Role string

const (
	RoleAdministrator Role = "administrator"
	RoleOrganizer     Role = "organizer"
	RoleSecretary     Role = "secretary"
	RoleAttendee      Role = "attendee"
)

// ParseRole returns the Role for a request string, or false when unknown.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdministrator, RoleOrganizer, RoleSecretary, RoleAttendee:
		return Role(s), true
	}
	return "", false
}

// User represents a platform user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// IsAdministrator reports whether the user has the administrator role.
func (u *User) IsAdministrator() bool { return u.Role == RoleAdministrator }

// IsOrganizer reports whether the user has the organizer role.
func (u *User) IsOrganizer() bool { return u.Role == RoleOrganizer }

// IsSecretary reports whether the user has the secretary role.
func (u *User) IsSecretary() bool { return u.Role == RoleSecretary }

// IsAttendee reports whether the user has the attendee role.
func (u *User) IsAttendee() bool { return u.Role == RoleAttendee }
