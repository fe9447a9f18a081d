package roadside

import (
	"strings"

	"github.com/google/uuid"
)

// UserRole is the role carried by every user and every access token.
type UserRole string

const (
	// RoleDriver initiates sessions.
	RoleDriver UserRole = "DRIVER"
	// RoleOfficer is assigned to sessions and issues citations.
	RoleOfficer UserRole = "OFFICER"
	// RoleAdmin can see and act on every session.
	RoleAdmin UserRole = "ADMIN"
)

// Roles lists every known role.
var Roles = []UserRole{RoleDriver, RoleOfficer, RoleAdmin}

func (r UserRole) String() string {
	return string(r)
}

// IsValid reports whether r is one of the known roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleDriver, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// ParseRole is case insensitive and accepts an optional ROLE_ prefix.
func ParseRole(s string) (UserRole, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "ROLE_")
	r := UserRole(s)
	return r, r.IsValid()
}

// Actor is the authenticated caller of an operation. It is always passed
// explicitly; a zero Actor means nobody is authenticated.
type Actor struct {
	ID    uuid.UUID
	Role  UserRole
	Email string
}

// IsZero reports whether no identity is present.
func (a Actor) IsZero() bool {
	return a.ID == uuid.Nil
}

// HasRole reports whether the actor holds any of the roles.
func (a Actor) HasRole(roles ...UserRole) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// Ref returns the audit reference for the actor.
func (a Actor) Ref() ActorRef {
	if a.IsZero() {
		return ActorRef{Type: ActorTypeSystem}
	}
	return ActorRef{ID: a.ID.String(), Type: string(a.Role)}
}

// ActorFromUser builds the actor for a loaded user.
func ActorFromUser(u *User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, Role: u.Role, Email: u.Email}
}

// ActorTypeSystem marks events with no human actor.
const ActorTypeSystem = "system"

// ActorRef identifies who or what triggered an event.
type ActorRef struct {
	ID   string
	Type string
}
