package federated

import (
	"context"
	"errors"
	"fmt"
	"time"

	identity "github.com/artisania/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
)

// Authenticator orchestrates federated login flows. It owns the browser round
// trip (state blob, PKCE, callback) and account linking; it never provisions
// a role: a first-time subject comes back with no profile and the session
// routes them into role selection.
type Authenticator struct {
	providers    map[string]Provider
	stateManager StateManager
	accounts     identity.FederatedAccounts
	profiles     identity.Profiles
	tokenService identity.TokenService
	activitySink identity.ActivitySink
	config       AuthConfig
}

// AuthConfig configures the federated authenticator.
type AuthConfig struct {
	BaseURL              string
	CallbackPath         string
	DefaultRedirectURL   string
	StateEncryptionKey   []byte
	StateHMACKey         []byte
	StateTTL             time.Duration
	AllowSignup          bool
	RequireEmailVerified bool
}

// AuthOption configures the federated authenticator.
type AuthOption func(*Authenticator)

// NewAuthenticator creates a new federated authenticator.
func NewAuthenticator(
	accounts identity.FederatedAccounts,
	profiles identity.Profiles,
	tokenService identity.TokenService,
	config AuthConfig,
	opts ...AuthOption,
) *Authenticator {
	cfg := config
	if cfg.StateTTL == 0 {
		cfg.StateTTL = 10 * time.Minute
	}

	fa := &Authenticator{
		providers:    make(map[string]Provider),
		accounts:     accounts,
		profiles:     profiles,
		tokenService: tokenService,
		config:       cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(fa)
		}
	}

	if fa.stateManager == nil {
		fa.stateManager = NewEncryptedStateManager(
			cfg.StateEncryptionKey,
			cfg.StateHMACKey,
			cfg.StateTTL,
		)
	}

	return fa
}

// WithProvider registers a federated provider.
func WithProvider(provider Provider) AuthOption {
	return func(fa *Authenticator) {
		if provider == nil {
			return
		}
		fa.providers[provider.Name()] = provider
	}
}

// WithStateManager sets a custom state manager.
func WithStateManager(sm StateManager) AuthOption {
	return func(fa *Authenticator) {
		fa.stateManager = sm
	}
}

// WithActivitySink sets the activity sink for audit logging.
func WithActivitySink(sink identity.ActivitySink) AuthOption {
	return func(fa *Authenticator) {
		fa.activitySink = sink
	}
}

// BeginAuth starts the OAuth flow for a provider.
func (fa *Authenticator) BeginAuth(
	ctx context.Context,
	providerName string,
	opts ...BeginAuthOption,
) (*AuthRedirect, error) {
	provider, ok := fa.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	if fa.stateManager == nil {
		return nil, ErrInvalidState
	}

	cfg := &beginAuthConfig{
		action:      ActionLogin,
		redirectURL: fa.config.DefaultRedirectURL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}

	if cfg.action == ActionSignup {
		if !fa.config.AllowSignup {
			return nil, ErrSignupNotAllowed
		}
		// the role choice is mandatory before the redirect so the callback
		// can surface it for explicit confirmation
		if cfg.roleHint == "" {
			return nil, ErrRoleRequired
		}
	}

	codeVerifier, err := generateCodeVerifier()
	if err != nil {
		return nil, fmt.Errorf("failed to generate code verifier: %w", err)
	}
	codeChallenge := computeCodeChallenge(codeVerifier)

	state := &FlowState{
		Nonce:         generateNonce(),
		Provider:      providerName,
		CodeVerifier:  codeVerifier,
		RedirectURL:   cfg.redirectURL,
		Action:        cfg.action,
		RoleHint:      cfg.roleHint,
		LinkSubjectID: cfg.linkSubjectID,
		IssuedAt:      time.Now().Unix(),
		ExpiresAt:     time.Now().Add(fa.config.StateTTL).Unix(),
	}

	stateToken, err := fa.stateManager.Encode(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}

	authURL := provider.AuthCodeURL(stateToken, WithPKCE(codeChallenge, "S256"))

	return &AuthRedirect{
		URL:      authURL,
		State:    stateToken,
		Provider: providerName,
	}, nil
}

// CompleteAuth finishes the OAuth flow after callback. The returned result
// carries the profile when one exists; a nil profile means the subject still
// has to confirm a role through the registration surface.
func (fa *Authenticator) CompleteAuth(
	ctx context.Context,
	providerName string,
	code string,
	stateToken string,
) (*AuthResult, error) {
	if fa.stateManager == nil {
		return nil, ErrInvalidState
	}

	state, err := fa.stateManager.Decode(stateToken)
	if err != nil {
		if errors.Is(err, ErrStateExpired) {
			return nil, ErrStateExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	if state.Provider != providerName {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}

	if time.Now().Unix() > state.ExpiresAt {
		return nil, ErrStateExpired
	}

	provider, ok := fa.providers[providerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, providerName)
	}

	token, err := provider.Exchange(ctx, code, WithCodeVerifier(state.CodeVerifier))
	if err != nil {
		return nil, wrapProviderError(ErrTokenExchangeFailed, providerName, "exchange", err)
	}

	account, err := provider.UserInfo(ctx, token)
	if err != nil {
		return nil, wrapProviderError(ErrUserInfoFailed, providerName, "user_info", err)
	}

	if fa.config.RequireEmailVerified && !account.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	subjectID, isNewSubject, err := fa.resolveSubject(ctx, state, account)
	if err != nil {
		return nil, err
	}

	id := federatedIdentity{
		subjectID:     subjectID,
		email:         account.Email,
		emailVerified: account.EmailVerified,
		name:          account.Name,
		avatarURL:     account.AvatarURL,
	}

	profile, err := fa.lookupProfile(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	if profile != nil && !profile.IsActive() && !profile.PendingApproval() {
		return nil, identity.StatusAuthError(profile.Status)
	}

	jwtToken, err := fa.tokenService.Generate(id, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if fa.activitySink != nil {
		_ = fa.activitySink.Record(ctx, identity.ActivityEvent{
			EventType:  identity.ActivityEventFederatedLogin,
			SubjectID:  subjectID,
			Actor:      identity.ActorRef{Type: "federated", ID: providerName},
			OccurredAt: time.Now(),
			Metadata: map[string]any{
				"provider":         providerName,
				"provider_user_id": account.ProviderUserID,
				"action":           state.Action,
				"is_new_subject":   isNewSubject,
			},
		})
	}

	return &AuthResult{
		Identity:     id,
		Profile:      profile,
		Token:        jwtToken,
		IsNewSubject: isNewSubject,
		Provider:     providerName,
		Account:      account,
		RoleHint:     state.RoleHint,
		RedirectURL:  state.RedirectURL,
	}, nil
}

// resolveSubject finds an existing linked subject or mints a deterministic
// one from the provider principal and links it.
func (fa *Authenticator) resolveSubject(ctx context.Context, state *FlowState, account *Account) (string, bool, error) {
	existing, err := fa.accounts.GetByProviderUserID(ctx, account.Provider, account.ProviderUserID)
	if err == nil {
		return existing.SubjectID, false, nil
	}

	if !repository.IsRecordNotFound(err) {
		return "", false, fmt.Errorf("failed to look up federated account: %w", err)
	}

	subjectID := state.LinkSubjectID
	if subjectID == "" {
		if id, err := hashid.NewUUID(account.Provider + ":" + account.ProviderUserID); err == nil {
			subjectID = id.String()
		} else {
			return "", false, fmt.Errorf("failed to derive subject id: %w", err)
		}
	}

	record := &identity.FederatedAccount{
		SubjectID:      subjectID,
		Provider:       account.Provider,
		ProviderUserID: account.ProviderUserID,
		Email:          account.Email,
		Name:           account.Name,
		AvatarURL:      account.AvatarURL,
		ProfileData:    account.Raw,
	}

	if _, err := fa.accounts.Link(ctx, record); err != nil {
		return "", false, fmt.Errorf("failed to link federated account: %w", err)
	}

	return subjectID, true, nil
}

func (fa *Authenticator) lookupProfile(ctx context.Context, subjectID string) (*identity.Profile, error) {
	profile, err := fa.profiles.GetBySubjectID(ctx, subjectID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up profile: %w", err)
	}
	return profile, nil
}

// ListProviders returns all registered providers.
func (fa *Authenticator) ListProviders() []ProviderInfo {
	var providers []ProviderInfo
	for name, p := range fa.providers {
		providers = append(providers, ProviderInfo{
			Name:    name,
			AuthURL: p.AuthCodeURL(""),
		})
	}
	return providers
}

// ProviderInfo describes an available provider.
type ProviderInfo struct {
	Name    string
	AuthURL string
}

// AuthRedirect contains the authorization URL for redirecting users.
type AuthRedirect struct {
	URL      string
	State    string
	Provider string
}

// AuthResult contains the result of a successful authentication. Profile is
// nil for a first-time subject; RoleHint echoes the pre-redirect choice for
// the confirmation screen.
type AuthResult struct {
	Identity     identity.Identity
	Profile      *identity.Profile
	Token        string
	IsNewSubject bool
	Provider     string
	Account      *Account
	RoleHint     string
	RedirectURL  string
}

// BeginAuthOption configures the auth initiation.
type BeginAuthOption func(*beginAuthConfig)

type beginAuthConfig struct {
	action        string
	redirectURL   string
	roleHint      string
	linkSubjectID string
}

// ForAction sets the auth action (login, signup, link).
func ForAction(action string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.action = action
	}
}

// WithRedirectURL sets the post-auth redirect URL.
func WithRedirectURL(url string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.redirectURL = url
	}
}

// WithRoleHint records the role the user picked before the redirect.
func WithRoleHint(role string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.roleHint = role
	}
}

// ForLinkingSubject ties the flow to an existing subject for account linking.
func ForLinkingSubject(subjectID string) BeginAuthOption {
	return func(c *beginAuthConfig) {
		c.linkSubjectID = subjectID
		c.action = ActionLink
	}
}

// Actions.
const (
	ActionLogin  = "login"
	ActionSignup = "signup"
	ActionLink   = "link"
)

type federatedIdentity struct {
	subjectID     string
	email         string
	emailVerified bool
	name          string
	avatarURL     string
}

var _ identity.Identity = federatedIdentity{}

func (f federatedIdentity) SubjectID() string   { return f.subjectID }
func (f federatedIdentity) Email() string       { return f.email }
func (f federatedIdentity) EmailVerified() bool { return f.emailVerified }
func (f federatedIdentity) DisplayName() string { return f.name }
func (f federatedIdentity) AvatarURL() string   { return f.avatarURL }
