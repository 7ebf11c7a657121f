package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents structured bearer-token claims with the authorization
// flags route middleware needs without a store read.
type AuthClaims interface {
	Subject() string
	SubjectID() string
	Email() string
	Role() Role
	Approved() bool
	NeedsRoleSelection() bool
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// SessionClaims is the concrete implementation of AuthClaims
type SessionClaims struct {
	jwt.RegisteredClaims
	SID          string         `json:"sid,omitempty"`
	UserRole     string         `json:"role,omitempty"`
	ApprovedFlag bool           `json:"approved,omitempty"`
	NeedsRole    bool           `json:"needs_role,omitempty"`
	UserEmail    string         `json:"email,omitempty"`
	Scope        string         `json:"scope,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"` // extension payload
}

var _ AuthClaims = (*SessionClaims)(nil)

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// SubjectID returns the identity provider subject id.
func (c *SessionClaims) SubjectID() string {
	if c.SID != "" {
		return c.SID
	}
	return c.Subject()
}

// Email returns the subject's email address.
func (c *SessionClaims) Email() string {
	return c.UserEmail
}

// Role returns the profile role carried by the token.
func (c *SessionClaims) Role() Role {
	return Role(c.UserRole)
}

// Approved reports the approval flag snapshot taken at issue time.
func (c *SessionClaims) Approved() bool {
	return c.ApprovedFlag
}

// NeedsRoleSelection reports whether onboarding was unresolved at issue time.
func (c *SessionClaims) NeedsRoleSelection() bool {
	return c.NeedsRole
}

// HasRole checks if the token carries a specific role
func (c *SessionClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// ClaimsMetadata exposes metadata extensions for optional context enrichment.
func (c *SessionClaims) ClaimsMetadata() map[string]any {
	return c.Metadata
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
