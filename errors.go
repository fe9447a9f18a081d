package roadside

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeDuplicateIdentity       = "DUPLICATE_IDENTITY"
	TextCodeCredentialInUse         = "CREDENTIAL_IN_USE"
	TextCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	TextCodeAccountDisabled         = "ACCOUNT_DISABLED"
	TextCodeInvalidToken            = "INVALID_TOKEN"
	TextCodeTokenExpired            = "TOKEN_EXPIRED"
	TextCodeUnauthenticated         = "UNAUTHENTICATED"
	TextCodeRoleViolation           = "ROLE_VIOLATION"
	TextCodeForbidden               = "FORBIDDEN"
	TextCodeNotFound                = "NOT_FOUND"
	TextCodeConflict                = "CONCURRENT_MODIFICATION"
	TextCodeInvalidTransition       = "INVALID_SESSION_TRANSITION"
	TextCodeTerminalState           = "TERMINAL_SESSION_STATE"
	TextCodeOfficerAlreadyAssigned  = "OFFICER_ALREADY_ASSIGNED"
	TextCodeValidationFailed        = "VALIDATION_FAILED"
	TextCodeRegistrationRoleBlocked = "REGISTRATION_ROLE_NOT_ALLOWED"
)

// ErrDuplicateIdentity is returned when registering an email that already exists.
var ErrDuplicateIdentity = goerrors.New("identity already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(goerrors.CodeConflict)

// ErrCredentialInUse is returned when a license or badge number belongs to
// another account.
var ErrCredentialInUse = goerrors.New("license or badge number already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeCredentialInUse).
	WithCode(goerrors.CodeConflict)

// ErrInvalidCredentials is returned for unknown emails and wrong passwords alike.
var ErrInvalidCredentials = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountDisabled is returned when a deactivated account authenticates.
var ErrAccountDisabled = goerrors.New("account is deactivated", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountDisabled).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidToken covers bad signatures, wrong kinds and malformed tokens.
var ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is an invalid token whose exp is in the past.
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is returned when an operation needs an actor and has none.
var ErrUnauthenticated = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrRoleViolation is returned when the actor lacks the role an action requires.
var ErrRoleViolation = goerrors.New("role not permitted for this action", goerrors.CategoryAuthz).
	WithTextCode(TextCodeRoleViolation).
	WithCode(goerrors.CodeForbidden)

// ErrForbidden is returned when the actor is not related to the resource.
var ErrForbidden = goerrors.New("access denied", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrNotFound is returned for unknown users and sessions.
var ErrNotFound = goerrors.New("record not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrConflict is returned when a concurrent write won the race. Retryable.
var ErrConflict = goerrors.New("concurrent modification, retry", goerrors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(goerrors.CodeConflict)

// ErrInvalidTransition is returned when a requested status change is not in the graph.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrTerminalState is returned when a completed or cancelled session is asked to move.
var ErrTerminalState = goerrors.New("session state is terminal", goerrors.CategoryConflict).
	WithTextCode(TextCodeTerminalState).
	WithCode(goerrors.CodeConflict)

// ErrOfficerAlreadyAssigned is returned when assigning an officer twice.
var ErrOfficerAlreadyAssigned = goerrors.New("session already has an officer", goerrors.CategoryConflict).
	WithTextCode(TextCodeOfficerAlreadyAssigned).
	WithCode(goerrors.CodeConflict)

// ErrRegistrationRole is returned when self registration asks for a restricted role.
var ErrRegistrationRole = goerrors.New("role is not open for registration", goerrors.CategoryAuthz).
	WithTextCode(TextCodeRegistrationRoleBlocked).
	WithCode(goerrors.CodeForbidden)

// NewValidationError wraps an input validation failure.
func NewValidationError(err error) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "validation failed").
		WithTextCode(TextCodeValidationFailed).
		WithCode(goerrors.CodeBadRequest)
}

// NewInternalError wraps a storage or infrastructure failure.
func NewInternalError(err error, message string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message).
		WithCode(goerrors.CodeInternal)
}

// HasTextCode reports whether err carries one of the given text codes.
func HasTextCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	for _, code := range codes {
		if richErr.TextCode == code {
			return true
		}
	}
	return false
}

func IsDuplicateIdentity(err error) bool {
	return HasTextCode(err, TextCodeDuplicateIdentity)
}

func IsCredentialInUse(err error) bool {
	return HasTextCode(err, TextCodeCredentialInUse)
}

func IsInvalidCredentials(err error) bool {
	return HasTextCode(err, TextCodeInvalidCredentials)
}

// IsInvalidToken is true for malformed, forged and expired tokens.
func IsInvalidToken(err error) bool {
	return HasTextCode(err, TextCodeInvalidToken, TextCodeTokenExpired)
}

func IsTokenExpired(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

func IsUnauthenticated(err error) bool {
	return HasTextCode(err, TextCodeUnauthenticated)
}

func IsRoleViolation(err error) bool {
	return HasTextCode(err, TextCodeRoleViolation)
}

func IsForbidden(err error) bool {
	return HasTextCode(err, TextCodeForbidden)
}

func IsNotFound(err error) bool {
	return HasTextCode(err, TextCodeNotFound)
}

// IsConflict reports a lost optimistic-concurrency race. Callers may retry.
func IsConflict(err error) bool {
	return HasTextCode(err, TextCodeConflict)
}

func IsInvalidTransition(err error) bool {
	return HasTextCode(err, TextCodeInvalidTransition)
}

func IsTerminalState(err error) bool {
	return HasTextCode(err, TextCodeTerminalState)
}

func IsValidationError(err error) bool {
	return HasTextCode(err, TextCodeValidationFailed)
}
