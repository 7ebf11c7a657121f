package identity

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal. It is issued
// by the external IdentityProvider and lives only for the session.
type Identity interface {
	SubjectID() string
	Email() string
	EmailVerified() bool
	DisplayName() string
	AvatarURL() string
}

// IdentityProvider wraps the external authentication service. It owns the
// "is this session authenticated" truth; the Profile Store owns authorization.
type IdentityProvider interface {
	// Authenticate verifies the credentials. On ErrEmailNotVerified the
	// matched identity is returned alongside the error so callers can
	// re-send the verification email to that account.
	Authenticate(ctx context.Context, email, password string) (Identity, error)
	CreateIdentity(ctx context.Context, email, password, name string) (Identity, error)
	SendVerificationEmail(ctx context.Context, identity Identity) error
	// CurrentIdentity returns the cached identity for this session, or nil.
	CurrentIdentity() Identity
}

// ProfileStore is the durable authorization record boundary. Reads that fail
// transiently are treated as "profile absent" by the session; writes surface
// their errors to the caller.
type ProfileStore interface {
	Me(ctx context.Context) (*Profile, error)
	CreateProfile(ctx context.Context, in CreateProfileInput) (*Profile, error)
	UpdateProfile(ctx context.Context, patch ProfilePatch) (*Profile, error)
	ListProfiles(ctx context.Context) ([]*Profile, error)
	Transition(ctx context.Context, id string, action ApprovalAction, reason string) error
}

// CreateProfileInput is the payload for first-time profile creation.
type CreateProfileInput struct {
	Name   string `json:"name"`
	Role   Role   `json:"role"`
	Avatar string `json:"avatar,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// ProfilePatch is a partial self-service update. Nil fields are left alone.
// Status and approval are deliberately absent: those travel only through the
// administrator transition surface, which keeps the two write paths on
// disjoint field sets.
type ProfilePatch struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Phone  *string `json:"phone,omitempty"`
}

// Notifier enqueues user-facing notifications. Delivery is best-effort;
// callers must not roll back on Notify errors.
type Notifier interface {
	Notify(ctx context.Context, n *Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n *Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n *Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, n)
}

// TokenService issues and validates the short-lived bearer tokens used at the
// Profile Store boundary.
type TokenService interface {
	Generate(identity Identity, profile *Profile) (string, error)
	SignClaims(claims *SessionClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// TokenSource returns a fresh bearer token for a single outgoing call.
// Tokens must not be cached beyond that call.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function into a TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	if f == nil {
		return "", ErrProviderUnavailable
	}
	return f(ctx)
}

// Config holds identity options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetStoreBaseURL() string
}

// DefaultLogger returns the fallback stdout logger used when no Logger is
// configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
