package session

import "strings"

// Status is the lifecycle state of a session.
type Status string

const (
	StatusCreated         Status = "CREATED"
	StatusAssigned        Status = "ASSIGNED"
	StatusVerified        Status = "VERIFIED"
	StatusReasonsSelected Status = "REASONS_SELECTED"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

// ActiveStatuses are the statuses officers watch for.
var ActiveStatuses = []Status{StatusCreated, StatusAssigned, StatusVerified}

func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusAssigned, StatusVerified,
		StatusReasonsSelected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus is case insensitive.
func ParseStatus(v string) (Status, bool) {
	s := Status(strings.ToUpper(strings.TrimSpace(v)))
	return s, s.IsValid()
}
