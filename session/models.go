package session

import (
	"time"

	roadside "github.com/goliatone/go-roadside"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Session is one traffic stop encounter. Participants are referenced by id.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	DriverID    uuid.UUID  `bun:"driver_id,notnull,type:uuid" json:"driverId"`
	OfficerID   *uuid.UUID `bun:"officer_id,nullzero,type:uuid" json:"officerId,omitempty"`
	Status      Status     `bun:"status,notnull" json:"status"`
	Address     string     `bun:"address,notnull" json:"address"`
	Reason      string     `bun:"reason" json:"reason,omitempty"`
	Notes       string     `bun:"notes" json:"notes,omitempty"`
	Latitude    *float64   `bun:"latitude,nullzero" json:"latitude,omitempty"`
	Longitude   *float64   `bun:"longitude,nullzero" json:"longitude,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull" json:"updatedAt"`
	AssignedAt  *time.Time `bun:"assigned_at,nullzero" json:"assignedAt,omitempty"`
	StartedAt   *time.Time `bun:"started_at,nullzero" json:"startedAt,omitempty"`
	VerifiedAt  *time.Time `bun:"verified_at,nullzero" json:"verifiedAt,omitempty"`
	CompletedAt *time.Time `bun:"completed_at,nullzero" json:"completedAt,omitempty"`
	Version     int64      `bun:"version,notnull" json:"version"`

	// Transitions is loaded by the store, oldest first. It is never written
	// through the session row.
	Transitions []Transition `bun:"-" json:"transitions,omitempty"`
}

var _ roadside.Participants = (*Session)(nil)

// ParticipantDriver implements roadside.Participants.
func (s *Session) ParticipantDriver() uuid.UUID {
	if s == nil {
		return uuid.Nil
	}
	return s.DriverID
}

// ParticipantOfficer implements roadside.Participants.
func (s *Session) ParticipantOfficer() (uuid.UUID, bool) {
	if s == nil || s.OfficerID == nil || *s.OfficerID == uuid.Nil {
		return uuid.Nil, false
	}
	return *s.OfficerID, true
}

// HasOfficer reports whether an officer has been assigned.
func (s *Session) HasOfficer() bool {
	_, ok := s.ParticipantOfficer()
	return ok
}

// LastTransition returns the newest audit entry.
func (s *Session) LastTransition() (Transition, bool) {
	if s == nil || len(s.Transitions) == 0 {
		return Transition{}, false
	}
	return s.Transitions[len(s.Transitions)-1], true
}

// Transition is one append-only audit entry.
type Transition struct {
	bun.BaseModel `bun:"table:session_state_transitions,alias:sst"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	SessionID   uuid.UUID  `bun:"session_id,notnull,type:uuid,unique:session_seq" json:"sessionId"`
	Seq         int        `bun:"seq,notnull,unique:session_seq" json:"seq"`
	FromState   *Status    `bun:"from_state,nullzero" json:"fromState"`
	ToState     Status     `bun:"to_state,notnull" json:"toState"`
	TriggeredBy *uuid.UUID `bun:"triggered_by,nullzero,type:uuid" json:"triggeredBy,omitempty"`
	Reason      string     `bun:"reason" json:"reason,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,notnull" json:"createdAt"`
}

// Summary is the public view of a session.
type Summary struct {
	ID          uuid.UUID  `json:"id"`
	Status      Status     `json:"status"`
	Address     string     `json:"address"`
	Reason      string     `json:"reason,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	DriverID    uuid.UUID  `json:"driverId"`
	DriverName  string     `json:"driverName,omitempty"`
	OfficerID   *uuid.UUID `json:"officerId,omitempty"`
	OfficerName string     `json:"officerName,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	AssignedAt  *time.Time `json:"assignedAt,omitempty"`
	VerifiedAt  *time.Time `json:"verifiedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Page selects a slice of a listing. Number is zero based.
type Page struct {
	Number int `json:"page"`
	Size   int `json:"size"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxPageNumber   = 100_000
)

// Normalize clamps the page into sane bounds.
func (p Page) Normalize() Page {
	if p.Number < 0 {
		p.Number = 0
	}
	if p.Number > MaxPageNumber {
		p.Number = MaxPageNumber
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	return p.Number * p.Size
}

// PageResult is one page of summaries.
type PageResult struct {
	Items []Summary `json:"items"`
	Total int       `json:"total"`
	Page  int       `json:"page"`
	Size  int       `json:"size"`
}

// AllModels lists the tables owned by this package.
func AllModels() []any {
	return []any{
		(*Session)(nil),
		(*Transition)(nil),
	}
}
