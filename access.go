package roadside

import (
	"github.com/google/uuid"
)

// Participants is implemented by resources owned by a driver and
// optionally handled by an officer.
type Participants interface {
	ParticipantDriver() uuid.UUID
	ParticipantOfficer() (uuid.UUID, bool)
}

// CanAccess is the single relation predicate: the actor is the driver, the
// assigned officer, or an admin.
func CanAccess(p Participants, actor Actor) bool {
	if actor.IsZero() || p == nil {
		return false
	}
	if actor.Role == RoleAdmin {
		return true
	}
	if p.ParticipantDriver() == actor.ID {
		return true
	}
	if officerID, ok := p.ParticipantOfficer(); ok && officerID == actor.ID {
		return true
	}
	return false
}

// Action names an operation guarded by the access policy.
type Action string

const (
	ActionSessionCreate        Action = "session.create"
	ActionSessionRead          Action = "session.read"
	ActionSessionListMine      Action = "session.list_mine"
	ActionSessionListActive    Action = "session.list_active"
	ActionSessionListAssigned  Action = "session.list_assigned"
	ActionSessionUpdateStatus  Action = "session.update_status"
	ActionSessionAssignOfficer Action = "session.assign_officer"
	ActionSessionCancel        Action = "session.cancel"
	ActionSessionUpdateDetails Action = "session.update_details"
	ActionCitationIssue        Action = "citation.issue"
	ActionUserDeactivate       Action = "user.deactivate"
)

// RelationMode says how the relation predicate combines with the role set.
type RelationMode int

const (
	// RelationIgnored checks only the role set.
	RelationIgnored RelationMode = iota
	// RelationRequired requires CanAccess; the role set is not consulted.
	RelationRequired
	// RelationOrRole passes when the actor holds a listed role or CanAccess holds.
	RelationOrRole
)

// AccessRule is the requirement attached to one action. An empty role set
// with RelationIgnored admits any authenticated actor.
type AccessRule struct {
	Roles    []UserRole
	Relation RelationMode
}

// AccessPolicy maps actions to rules.
type AccessPolicy map[Action]AccessRule

// DefaultAccessPolicy returns the rule table for every action.
func DefaultAccessPolicy() AccessPolicy {
	return AccessPolicy{
		ActionSessionCreate:        {Roles: []UserRole{RoleDriver, RoleOfficer}},
		ActionSessionRead:          {Relation: RelationRequired},
		ActionSessionListMine:      {},
		ActionSessionListActive:    {Roles: []UserRole{RoleOfficer, RoleAdmin}},
		ActionSessionListAssigned:  {Roles: []UserRole{RoleOfficer}},
		ActionSessionUpdateStatus:  {Roles: []UserRole{RoleOfficer}, Relation: RelationOrRole},
		ActionSessionAssignOfficer: {Roles: []UserRole{RoleOfficer}},
		ActionSessionCancel:        {Relation: RelationRequired},
		ActionSessionUpdateDetails: {Relation: RelationRequired},
		ActionCitationIssue:        {Roles: []UserRole{RoleOfficer}},
		ActionUserDeactivate:       {Roles: []UserRole{RoleAdmin}},
	}
}

// Authorize checks actor against the rule for action. resource may be nil
// for actions that do not target one.
//
// Errors: ErrUnauthenticated for a zero actor, ErrRoleViolation when a
// role-only rule fails, ErrForbidden when the relation check fails.
// Unknown actions are denied.
func (p AccessPolicy) Authorize(action Action, actor Actor, resource Participants) error {
	if actor.IsZero() {
		return ErrUnauthenticated
	}

	rule, ok := p[action]
	if !ok {
		return ErrForbidden
	}

	switch rule.Relation {
	case RelationRequired:
		if !CanAccess(resource, actor) {
			return ErrForbidden
		}
	case RelationOrRole:
		if !actor.HasRole(rule.Roles...) && !CanAccess(resource, actor) {
			return ErrForbidden
		}
	default:
		if len(rule.Roles) > 0 && !actor.HasRole(rule.Roles...) {
			return ErrRoleViolation
		}
	}
	return nil
}

// RequireRole applies only the role gate of action.
func (p AccessPolicy) RequireRole(action Action, actor Actor) error {
	return p.Authorize(action, actor, nil)
}
