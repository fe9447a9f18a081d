package roadside

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// KYCStatus tracks identity verification of a user profile.
type KYCStatus string

const (
	KYCPending    KYCStatus = "PENDING"
	KYCApproved   KYCStatus = "APPROVED"
	KYCRejected   KYCStatus = "REJECTED"
	KYCIncomplete KYCStatus = "INCOMPLETE"
)

// User is the identity record. Users are never deleted, only disabled.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Email        string    `bun:"email,notnull,unique" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         UserRole  `bun:"role,notnull" json:"role"`
	Enabled      bool      `bun:"enabled,notnull" json:"enabled"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`

	Profile *UserProfile `bun:"rel:has-one,join:id=user_id" json:"profile,omitempty"`
}

// UserProfile holds the personal details of a user.
type UserProfile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:upr"`

	ID                 uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID             uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id"`
	FirstName          string     `bun:"first_name,notnull" json:"first_name"`
	LastName           string     `bun:"last_name,notnull" json:"last_name"`
	Phone              string     `bun:"phone" json:"phone,omitempty"`
	DateOfBirth        *time.Time `bun:"date_of_birth,nullzero" json:"date_of_birth,omitempty"`
	KYCStatus          KYCStatus  `bun:"kyc_status,notnull" json:"kyc_status"`
	KYCRejectionReason string     `bun:"kyc_rejection_reason" json:"kyc_rejection_reason,omitempty"`
	CreatedAt          time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt          time.Time  `bun:"updated_at,notnull" json:"updated_at"`
}

// FullName joins first and last name.
func (p *UserProfile) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// DriverLicense is the credential record of a driver.
type DriverLicense struct {
	bun.BaseModel `bun:"table:driver_licenses,alias:dl"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID         uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id"`
	LicenseNumber  string     `bun:"license_number,notnull,unique" json:"license_number"`
	State          string     `bun:"state,notnull" json:"state"`
	LicenseClass   string     `bun:"license_class" json:"license_class,omitempty"`
	Restrictions   string     `bun:"restrictions" json:"restrictions,omitempty"`
	ExpirationDate *time.Time `bun:"expiration_date,nullzero" json:"expiration_date,omitempty"`
	Verified       bool       `bun:"verified,notnull" json:"verified"`
	CreatedAt      time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// OfficerBadge is the credential record of an officer.
type OfficerBadge struct {
	bun.BaseModel `bun:"table:officer_badges,alias:ob"`

	ID           uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID       uuid.UUID `bun:"user_id,notnull,unique,type:uuid" json:"user_id"`
	BadgeNumber  string    `bun:"badge_number,notnull,unique" json:"badge_number"`
	Department   string    `bun:"department,notnull" json:"department"`
	Rank         string    `bun:"rank" json:"rank,omitempty"`
	Jurisdiction string    `bun:"jurisdiction" json:"jurisdiction,omitempty"`
	Verified     bool      `bun:"verified,notnull" json:"verified"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
}

// RefreshTokenRecord is the server side state of an issued refresh token.
type RefreshTokenRecord struct {
	bun.BaseModel `bun:"table:refresh_tokens,alias:rt"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID     uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	ExpiresAt  time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	RevokedAt  *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	ReplacedBy *uuid.UUID `bun:"replaced_by,nullzero,type:uuid" json:"replaced_by,omitempty"`
	CreatedAt  time.Time  `bun:"created_at,notnull" json:"created_at"`
}

// UserSummary is the public view of a user.
type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	KYCStatus KYCStatus `json:"kycStatus,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary projects the public view. Missing profiles yield empty names.
func (u *User) Summary() UserSummary {
	if u == nil {
		return UserSummary{}
	}
	s := UserSummary{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
	if u.Profile != nil {
		s.FirstName = u.Profile.FirstName
		s.LastName = u.Profile.LastName
		s.Name = u.Profile.FullName()
		s.Phone = u.Profile.Phone
		s.KYCStatus = u.Profile.KYCStatus
	}
	return s
}

// DisplayName is the profile name, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if name := u.Profile.FullName(); name != "" {
		return name
	}
	return u.Email
}

// AllModels lists every table owned by the root package, in creation order.
func AllModels() []any {
	return []any{
		(*User)(nil),
		(*UserProfile)(nil),
		(*DriverLicense)(nil),
		(*OfficerBadge)(nil),
		(*RefreshTokenRecord)(nil),
	}
}
