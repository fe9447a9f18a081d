package roadside_test

import (
	"testing"

	roadside "github.com/goliatone/go-roadside"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type resource struct {
	driver  uuid.UUID
	officer *uuid.UUID
}

func (r resource) ParticipantDriver() uuid.UUID { return r.driver }

func (r resource) ParticipantOfficer() (uuid.UUID, bool) {
	if r.officer == nil {
		return uuid.Nil, false
	}
	return *r.officer, true
}

func TestCanAccess(t *testing.T) {
	driver := roadside.Actor{ID: uuid.New(), Role: roadside.RoleDriver}
	officer := roadside.Actor{ID: uuid.New(), Role: roadside.RoleOfficer}
	otherOfficer := roadside.Actor{ID: uuid.New(), Role: roadside.RoleOfficer}
	admin := roadside.Actor{ID: uuid.New(), Role: roadside.RoleAdmin}
	stranger := roadside.Actor{ID: uuid.New(), Role: roadside.RoleDriver}

	unassigned := resource{driver: driver.ID}
	assigned := resource{driver: driver.ID, officer: &officer.ID}

	tests := []struct {
		name     string
		res      roadside.Participants
		actor    roadside.Actor
		expected bool
	}{
		{"driver owns unassigned", unassigned, driver, true},
		{"officer before assignment", unassigned, officer, false},
		{"assigned officer", assigned, officer, true},
		{"other officer", assigned, otherOfficer, false},
		{"admin", assigned, admin, true},
		{"stranger", assigned, stranger, false},
		{"anonymous", assigned, roadside.Actor{}, false},
		{"nil resource", nil, driver, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, roadside.CanAccess(tt.res, tt.actor))
		})
	}
}

func TestAccessPolicyAuthorize(t *testing.T) {
	policy := roadside.DefaultAccessPolicy()
	driver := roadside.Actor{ID: uuid.New(), Role: roadside.RoleDriver}
	officer := roadside.Actor{ID: uuid.New(), Role: roadside.RoleOfficer}
	admin := roadside.Actor{ID: uuid.New(), Role: roadside.RoleAdmin}
	stranger := roadside.Actor{ID: uuid.New(), Role: roadside.RoleDriver}
	res := resource{driver: driver.ID}

	tests := []struct {
		name   string
		action roadside.Action
		actor  roadside.Actor
		res    roadside.Participants
		err    error
	}{
		{"anonymous", roadside.ActionSessionRead, roadside.Actor{}, res, roadside.ErrUnauthenticated},
		{"driver creates", roadside.ActionSessionCreate, driver, nil, nil},
		{"officer creates", roadside.ActionSessionCreate, officer, nil, nil},
		{"admin cannot create", roadside.ActionSessionCreate, admin, nil, roadside.ErrRoleViolation},
		{"driver reads own", roadside.ActionSessionRead, driver, res, nil},
		{"stranger reads", roadside.ActionSessionRead, stranger, res, roadside.ErrForbidden},
		{"admin reads", roadside.ActionSessionRead, admin, res, nil},
		{"driver lists active", roadside.ActionSessionListActive, driver, nil, roadside.ErrRoleViolation},
		{"admin lists active", roadside.ActionSessionListActive, admin, nil, nil},
		{"officer updates unrelated", roadside.ActionSessionUpdateStatus, officer, res, nil},
		{"driver updates own", roadside.ActionSessionUpdateStatus, driver, res, nil},
		{"stranger updates", roadside.ActionSessionUpdateStatus, stranger, res, roadside.ErrForbidden},
		{"driver assigns", roadside.ActionSessionAssignOfficer, driver, res, roadside.ErrRoleViolation},
		{"officer issues citation", roadside.ActionCitationIssue, officer, nil, nil},
		{"driver issues citation", roadside.ActionCitationIssue, driver, nil, roadside.ErrRoleViolation},
		{"officer deactivates", roadside.ActionUserDeactivate, officer, nil, roadside.ErrRoleViolation},
		{"unknown action", roadside.Action("session.teleport"), admin, res, roadside.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Authorize(tt.action, tt.actor, tt.res)
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := roadside.ParseRole("role_officer")
	assert.True(t, ok)
	assert.Equal(t, roadside.RoleOfficer, role)

	_, ok = roadside.ParseRole("pilot")
	assert.False(t, ok)

	actor := roadside.Actor{ID: uuid.New(), Role: roadside.RoleAdmin}
	assert.True(t, actor.HasRole(roadside.RoleDriver, roadside.RoleAdmin))
	assert.Equal(t, string(roadside.RoleAdmin), actor.Ref().Type)
	assert.Equal(t, roadside.ActorTypeSystem, roadside.Actor{}.Ref().Type)
}
