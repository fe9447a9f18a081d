package session

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
)

// CreateRequest opens a session. The caller is the driver unless an officer
// names another driver with DriverID.
type CreateRequest struct {
	DriverID  *uuid.UUID `json:"driverId,omitempty"`
	Address   string     `json:"address"`
	Reason    string     `json:"reason"`
	Notes     string     `json:"notes"`
	Latitude  *float64   `json:"latitude,omitempty"`
	Longitude *float64   `json:"longitude,omitempty"`
}

func (r CreateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.By(requiredText), validation.Length(1, 500)),
		validation.Field(&r.Reason, validation.Length(0, 500)),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
		validation.Field(&r.Latitude, validation.By(latitude)),
		validation.Field(&r.Longitude, validation.By(longitude)),
	)
}

// StatusRequest asks for a status change.
type StatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (r StatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.By(statusName)),
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

// DetailsRequest patches the descriptive fields. Nil fields are left alone.
type DetailsRequest struct {
	Address   *string  `json:"address,omitempty"`
	Reason    *string  `json:"reason,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (r DetailsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.By(requiredText), validation.Length(1, 500)),
		validation.Field(&r.Reason, validation.Length(0, 500)),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
		validation.Field(&r.Latitude, validation.By(latitude)),
		validation.Field(&r.Longitude, validation.By(longitude)),
	)
}

// IsEmpty reports whether the patch changes nothing.
func (r DetailsRequest) IsEmpty() bool {
	return r.Address == nil && r.Reason == nil && r.Notes == nil &&
		r.Latitude == nil && r.Longitude == nil
}

func requiredText(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	default:
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func statusName(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, ok := ParseStatus(s); !ok {
		return errors.New("unknown status")
	}
	return nil
}

func latitude(value any) error {
	return coordinate(value, 90)
}

func longitude(value any) error {
	return coordinate(value, 180)
}

func coordinate(value any, limit float64) error {
	v, ok := value.(*float64)
	if !ok || v == nil {
		return nil
	}
	if *v < -limit || *v > limit {
		return errors.New("out of range")
	}
	return nil
}
