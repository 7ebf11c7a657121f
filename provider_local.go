package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MaxLoginAttempts is the maximum number of failed attempts an account gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// LocalCredential backs the local identity provider. It exists for dev and
// test deployments where no external provider is wired in.
type LocalCredential struct {
	bun.BaseModel `bun:"table:local_credentials,alias:lcr"`

	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	Name           string     `bun:"name" json:"name,omitempty"`
	AvatarURL      string     `bun:"avatar_url" json:"avatar_url,omitempty"`
	EmailVerified  bool       `bun:"email_verified" json:"email_verified,omitempty"`
	LoginAttempts  int        `bun:"login_attempts,nullzero" json:"-"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at,nullzero" json:"-"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// CredentialTracker is the store the local provider reads and updates while
// verifying a login.
type CredentialTracker interface {
	GetByEmail(ctx context.Context, email string) (*LocalCredential, error)
	Register(ctx context.Context, record *LocalCredential) (*LocalCredential, error)
	TrackAttemptedLogin(ctx context.Context, record *LocalCredential) error
	TrackSuccessfulLogin(ctx context.Context, record *LocalCredential) error
}

// LocalProvider authenticates against locally stored bcrypt credentials.
type LocalProvider struct {
	store  CredentialTracker
	mailer Notifier
	sink   ActivitySink
	logger Logger

	mu      sync.RWMutex
	current Identity
}

var _ IdentityProvider = (*LocalProvider)(nil)

func NewLocalProvider(store CredentialTracker) *LocalProvider {
	return &LocalProvider{
		store:  store,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}
}

func (p *LocalProvider) WithLogger(l Logger) *LocalProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *LocalProvider) WithActivitySink(sink ActivitySink) *LocalProvider {
	p.sink = normalizeActivitySink(sink)
	return p
}

// WithMailer sets the notifier used to deliver verification email.
func (p *LocalProvider) WithMailer(mailer Notifier) *LocalProvider {
	p.mailer = mailer
	return p
}

// Authenticate verifies email/password and, on success, caches the identity
// for the session. Unverified email fails closed.
func (p *LocalProvider) Authenticate(ctx context.Context, email, password string) (Identity, error) {
	email = normalizeEmail(email)

	record, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			p.recordLogin(ctx, ActivityEventLoginFailure, email)
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve credential during verification")
	}

	if record.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*record.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			record.LoginAttempts = 0
		}
	}

	if record.LoginAttempts > MaxLoginAttempts {
		return nil, ErrRateLimited
	}

	if err := ComparePasswordAndHash(password, record.PasswordHash); err != nil {
		if err2 := p.store.TrackAttemptedLogin(ctx, record); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		p.recordLogin(ctx, ActivityEventLoginFailure, email)
		return nil, ErrInvalidCredentials
	}

	id := localIdentity{
		subjectID:     record.ID.String(),
		email:         record.Email,
		emailVerified: record.EmailVerified,
		name:          record.Name,
		avatarURL:     record.AvatarURL,
	}

	if !record.EmailVerified {
		// Returned alongside the error so the caller can address a
		// verification re-send to the account that just failed.
		return id, ErrEmailNotVerified
	}

	if err := p.store.TrackSuccessfulLogin(ctx, record); err != nil {
		p.logger.Error("failed to track successful login: %v", err)
	}

	p.setCurrent(id)
	p.recordLogin(ctx, ActivityEventLoginSuccess, id.subjectID)

	return id, nil
}

// CreateIdentity registers a new local credential. The identity starts
// unverified, so it cannot authenticate until the verification email is
// acted on.
func (p *LocalProvider) CreateIdentity(ctx context.Context, email, password, name string) (Identity, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errors.New("email is required", errors.CategoryValidation).
			WithTextCode("EMAIL_REQUIRED")
	}

	hash, err := HashPassword(password)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, errors.Wrap(richErr, errors.CategoryValidation, "invalid password provided")
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	record := &LocalCredential{
		Email:        email,
		PasswordHash: hash,
		Name:         name,
	}

	if id, err := hashid.NewUUID(email); err == nil {
		record.ID = id
	} else {
		record.ID = uuid.New()
	}

	record, err = p.store.Register(ctx, record)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryConflict, "could not create identity")
	}

	return localIdentity{
		subjectID:     record.ID.String(),
		email:         record.Email,
		emailVerified: record.EmailVerified,
		name:          record.Name,
		avatarURL:     record.AvatarURL,
	}, nil
}

func (p *LocalProvider) SendVerificationEmail(ctx context.Context, identity Identity) error {
	if identity == nil {
		return ErrInvalidCredentials
	}

	if p.mailer == nil {
		p.logger.Warn("no mailer configured, skipping verification email for %s", identity.Email())
		return nil
	}

	return p.mailer.Notify(ctx, &Notification{
		Kind:  NotificationKindVerifyEmail,
		Title: "Verify your email address",
		Body:  "Confirm " + identity.Email() + " to finish setting up your account.",
	})
}

func (p *LocalProvider) CurrentIdentity() Identity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// ClearCurrent drops the cached identity, e.g. on logout.
func (p *LocalProvider) ClearCurrent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = nil
}

func (p *LocalProvider) setCurrent(id Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = id
}

func (p *LocalProvider) recordLogin(ctx context.Context, event ActivityEventType, subject string) {
	_ = p.sink.Record(ctx, ActivityEvent{
		EventType:  event,
		Actor:      ActorRef{ID: subject, Type: "user"},
		SubjectID:  subject,
		OccurredAt: time.Now(),
	})
}

type localIdentity struct {
	subjectID     string
	email         string
	emailVerified bool
	name          string
	avatarURL     string
}

var _ Identity = localIdentity{}

func (a localIdentity) SubjectID() string {
	return a.subjectID
}

func (a localIdentity) Email() string {
	return a.email
}

func (a localIdentity) EmailVerified() bool {
	return a.emailVerified
}

func (a localIdentity) DisplayName() string {
	return a.name
}

func (a localIdentity) AvatarURL() string {
	return a.avatarURL
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
