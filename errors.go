package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "invalid_credentials"
	TextCodeEmailNotVerified   = "email_not_verified"
	TextCodeProviderDown       = "provider_unavailable"
	TextCodeRateLimited        = "rate_limited"
	TextCodeRoleRequired       = "role_required"
	TextCodeRoleNotAllowed     = "role_not_self_assignable"
	TextCodeProfileNotFound    = "profile_not_found"
	TextCodeProfileExists      = "profile_exists"
	TextCodeNotAuthorized      = "not_authorized"
	TextCodeTokenExpired       = "token_expired"
	TextCodeTokenMalformed     = "token_malformed"
)

// ErrInvalidCredentials is returned for a bad email/password pair. The
// message is deliberately identical for unknown emails and wrong passwords.
var ErrInvalidCredentials = errors.New("invalid email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrEmailNotVerified is returned when an identity exists but its email was
// never confirmed. The session stays unauthenticated; an unverified identity
// must not reach the profile store.
var ErrEmailNotVerified = errors.New("email address not verified", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)

// ErrProviderUnavailable is returned when the identity provider cannot be
// reached or answers with a non-auth failure.
var ErrProviderUnavailable = errors.New("authentication service unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeProviderDown).
	WithCode(errors.CodeInternal)

// ErrRateLimited is returned after too many failed attempts inside the
// cooldown window.
var ErrRateLimited = errors.New("too many attempts, try again later", errors.CategoryAuth).
	WithTextCode(TextCodeRateLimited).
	WithCode(errors.CodeUnauthorized)

// ErrRoleRequired is returned by federated registration when no role was
// provided.
var ErrRoleRequired = errors.New("a role is required to register", errors.CategoryValidation).
	WithTextCode(TextCodeRoleRequired).
	WithCode(errors.CodeBadRequest)

// ErrRoleNotSelfAssignable is returned when onboarding asks for a role that
// only out-of-band provisioning may grant.
var ErrRoleNotSelfAssignable = errors.New("role cannot be self-assigned", errors.CategoryValidation).
	WithTextCode(TextCodeRoleNotAllowed).
	WithCode(errors.CodeBadRequest)

// ErrProfileNotFound is returned when no profile exists for a subject.
var ErrProfileNotFound = errors.New("profile not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProfileNotFound).
	WithCode(errors.CodeNotFound)

// ErrProfileExists is returned when a conflicting profile already exists for
// the subject with different data.
var ErrProfileExists = errors.New("profile already exists", errors.CategoryConflict).
	WithTextCode(TextCodeProfileExists).
	WithCode(errors.CodeConflict)

// ErrNotAuthorized is returned when the caller's role does not permit an
// operation. Route guards render this state instead of raising it.
var ErrNotAuthorized = errors.New("role does not permit this action", errors.CategoryAuthz).
	WithTextCode(TextCodeNotAuthorized).
	WithCode(errors.CodeForbidden)

// ErrTokenExpired is returned for expired bearer tokens.
var ErrTokenExpired = errors.New("authentication token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail to parse or verify.
var ErrTokenMalformed = errors.New("authentication token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// ProfileAbsent reports whether a profile-store read should degrade to "no
// profile yet": not-found and transient failures both fail toward onboarding
// rather than toward a crash.
func ProfileAbsent(err error) bool {
	if err == nil {
		return false
	}
	return errors.IsNotFound(err) || errors.Is(err, ErrProfileNotFound)
}

// StatusAuthError maps a blocked lifecycle status to the auth error a login
// attempt should surface. Active and pending profiles return nil.
func StatusAuthError(status ProfileStatus) error {
	switch status {
	case ProfileStatusSuspended:
		return errors.New("account suspended", errors.CategoryAuth).
			WithTextCode("account_suspended").
			WithCode(errors.CodeForbidden)
	case ProfileStatusRejected:
		return errors.New("seller application rejected", errors.CategoryAuth).
			WithTextCode("seller_rejected").
			WithCode(errors.CodeForbidden)
	default:
		return nil
	}
}
