package roadside

import (
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is used to parse phone numbers without a country code.
const DefaultPhoneRegion = "US"

var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// RegisterRequest is the payload for self registration.
type RegisterRequest struct {
	Email       string        `json:"email"`
	Password    string        `json:"password"`
	Role        string        `json:"role"`
	FirstName   string        `json:"firstName"`
	LastName    string        `json:"lastName"`
	Phone       string        `json:"phone"`
	DateOfBirth *time.Time    `json:"dateOfBirth,omitempty"`
	License     *LicenseInput `json:"license,omitempty"`
	Badge       *BadgeInput   `json:"badge,omitempty"`
}

// LicenseInput is the optional driver license submitted at registration.
type LicenseInput struct {
	Number         string     `json:"number"`
	State          string     `json:"state"`
	Class          string     `json:"class"`
	Restrictions   string     `json:"restrictions"`
	ExpirationDate *time.Time `json:"expirationDate,omitempty"`
}

// BadgeInput is the optional officer badge submitted at registration.
type BadgeInput struct {
	Number       string `json:"number"`
	Department   string `json:"department"`
	Rank         string `json:"rank"`
	Jurisdiction string `json:"jurisdiction"`
}

// Validate runs the field rules. Role membership is checked by the Auther.
func (r RegisterRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Role, validation.By(validateRoleName)),
	)
	if err != nil {
		return err
	}
	if r.License != nil {
		if err := r.License.Validate(); err != nil {
			return validation.Errors{"license": err}
		}
	}
	if r.Badge != nil {
		if err := r.Badge.Validate(); err != nil {
			return validation.Errors{"badge": err}
		}
	}
	return nil
}

func (l LicenseInput) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Number, validation.Required, validation.Length(1, 50)),
		validation.Field(&l.State, validation.Required, validation.Match(stateCodePattern)),
	)
}

func (b BadgeInput) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Number, validation.Required, validation.Length(1, 50)),
		validation.Field(&b.Department, validation.Required, validation.Length(1, 200)),
	)
}

// LoginRequest is the payload for password authentication.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// RefreshRequest carries the refresh token in the body.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

func validateRoleName(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, ok := ParseRole(s); !ok {
		return errors.New("must be one of DRIVER, OFFICER, ADMIN")
	}
	return nil
}

// NormalizePhone parses phone in region and formats it as E.164. Empty
// input stays empty.
func NormalizePhone(phone, region string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultPhoneRegion
	}
	num, err := phonenumbers.Parse(phone, region)
	if err != nil {
		return "", validation.Errors{"phone": err}
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", validation.Errors{"phone": errors.New("is not a valid phone number")}
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
