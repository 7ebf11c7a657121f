package identity

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// Snapshot is the observable session state. Identity and Profile always move
// together: an observer never sees a new identity without the matching
// profile fetch already resolved or recorded as absent.
type Snapshot struct {
	Identity Identity
	Profile  *Profile
	Loading  bool
	Err      error
}

// Authenticated reports whether the snapshot carries an identity.
func (s Snapshot) Authenticated() bool {
	return s.Identity != nil
}

// NeedsRoleSelection reports whether the subject still has to confirm a role.
// An authenticated identity with no profile counts: that is the recovery path
// for a registration that created the identity but lost the profile write.
func (s Snapshot) NeedsRoleSelection() bool {
	if s.Identity == nil {
		return false
	}
	if s.Profile == nil {
		return true
	}
	return s.Profile.NeedsRoleSelection
}

// PendingApproval reports whether the subject is a seller awaiting moderation.
func (s Snapshot) PendingApproval() bool {
	return s.Profile != nil && s.Profile.PendingApproval()
}

// Observer receives every published snapshot.
type Observer func(Snapshot)

// FederatedAuthenticator is the federated leg of the identity provider, kept
// separate because it involves a browser round trip the session does not own.
type FederatedAuthenticator interface {
	SignIn(ctx context.Context) (Identity, error)
}

// FederatedAuthenticatorFunc adapts a function to FederatedAuthenticator.
type FederatedAuthenticatorFunc func(ctx context.Context) (Identity, error)

func (f FederatedAuthenticatorFunc) SignIn(ctx context.Context) (Identity, error) {
	if f == nil {
		return nil, ErrProviderUnavailable
	}
	return f(ctx)
}

// SessionContext combines the identity provider's current identity with the
// profile store's record, and serializes every mutation against a fetch
// generation so a stale profile can never attach to a newer identity.
type SessionContext struct {
	provider  IdentityProvider
	federated FederatedAuthenticator
	store     ProfileStore
	drafts    DraftStore
	sink      ActivitySink
	logger    Logger

	mu         sync.Mutex
	generation uint64
	snapshot   Snapshot
	observers  []Observer
}

type SessionOption func(*SessionContext)

func WithSessionLogger(l Logger) SessionOption {
	return func(s *SessionContext) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithSessionActivitySink(sink ActivitySink) SessionOption {
	return func(s *SessionContext) {
		s.sink = normalizeActivitySink(sink)
	}
}

func WithSessionDraftStore(drafts DraftStore) SessionOption {
	return func(s *SessionContext) {
		s.drafts = drafts
	}
}

func WithFederatedAuthenticator(f FederatedAuthenticator) SessionOption {
	return func(s *SessionContext) {
		s.federated = f
	}
}

func NewSessionContext(provider IdentityProvider, store ProfileStore, opts ...SessionOption) *SessionContext {
	s := &SessionContext{
		provider: provider,
		store:    store,
		sink:     noopActivitySink{},
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Subscribe registers an observer and immediately delivers the current
// snapshot so late subscribers do not miss state.
func (s *SessionContext) Subscribe(fn Observer) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	s.observers = append(s.observers, fn)
	snap := s.snapshot
	s.mu.Unlock()

	fn(snap)
}

// Snapshot returns the current session state.
func (s *SessionContext) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Login authenticates with email/password and resolves the profile for the
// new identity. On EmailNotVerified the session stays unauthenticated and a
// verification email re-send is attempted.
func (s *SessionContext) Login(ctx context.Context, email, password string) error {
	gen := s.beginMutation()

	id, err := s.provider.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrEmailNotVerified) && id != nil {
			if sendErr := s.provider.SendVerificationEmail(ctx, id); sendErr != nil {
				s.logger.Warn("failed to re-send verification email: %v", sendErr)
			}
		}
		s.failMutation(gen, translateAuthError(err))
		return translateAuthError(err)
	}

	profile := s.resolveProfile(ctx)
	if !s.publishIdentity(gen, id, profile, nil) {
		return nil
	}

	s.recordActivity(ctx, ActivityEventLoginSuccess, id)
	return nil
}

// Register creates the external identity and then the profile in one flow.
// If the profile write fails after the identity exists, the session is left
// authenticated with no profile, which the redirect policy routes back into
// role selection for a retry.
func (s *SessionContext) Register(ctx context.Context, email, password, name string, role Role) error {
	if !role.IsValid() {
		return ErrRoleRequired
	}
	if !role.SelfAssignable() {
		return ErrRoleNotSelfAssignable
	}

	gen := s.beginMutation()

	id, err := s.provider.CreateIdentity(ctx, email, password, name)
	if err != nil {
		err = translateAuthError(err)
		s.failMutation(gen, err)
		return err
	}

	profile, err := s.store.CreateProfile(ctx, CreateProfileInput{
		Name: name,
		Role: role,
	})
	if err != nil {
		// identity exists, profile does not: publish the half state so the
		// caller lands in role selection instead of a dead end
		s.publishIdentity(gen, id, nil, nil)
		return errors.Wrap(err, errors.CategoryOperation, "identity created but profile registration failed")
	}

	s.clearDraft()
	if !s.publishIdentity(gen, id, profile, nil) {
		return nil
	}

	s.recordActivity(ctx, ActivityEventProfileCreated, id)
	return nil
}

// LoginWithFederatedProvider completes a federated sign in. When registering,
// the role choice is mandatory up front and is parked in the draft store; it
// is never applied silently. A first-time federated subject always lands in
// role selection and must confirm through CreateProfile.
func (s *SessionContext) LoginWithFederatedProvider(ctx context.Context, isRegistration bool, role Role) error {
	if s.federated == nil {
		return ErrProviderUnavailable
	}

	if isRegistration {
		if !role.IsValid() {
			return ErrRoleRequired
		}
		if !role.SelfAssignable() {
			return ErrRoleNotSelfAssignable
		}
		s.saveDraft(&RegistrationDraft{Role: role})
	}

	gen := s.beginMutation()

	id, err := s.federated.SignIn(ctx)
	if err != nil {
		err = translateAuthError(err)
		s.failMutation(gen, err)
		return err
	}

	profile := s.resolveProfile(ctx)
	if !s.publishIdentity(gen, id, profile, nil) {
		return nil
	}

	s.recordActivity(ctx, ActivityEventFederatedLogin, id)
	return nil
}

// CreateProfile confirms the role choice and creates the durable record.
// Safe to retry: the store keys the profile by subject.
func (s *SessionContext) CreateProfile(ctx context.Context, in CreateProfileInput) error {
	s.mu.Lock()
	id := s.snapshot.Identity
	gen := s.generation
	s.mu.Unlock()

	if id == nil {
		return ErrNotAuthorized
	}

	if draft, ok := s.loadDraft(); ok && in.Role == "" {
		in.Role = draft.Role
	}

	if !in.Role.IsValid() {
		return ErrRoleRequired
	}
	if !in.Role.SelfAssignable() {
		return ErrRoleNotSelfAssignable
	}

	s.setLoading(true)

	profile, err := s.store.CreateProfile(ctx, in)
	if err != nil {
		s.failMutation(gen, err)
		return err
	}

	s.clearDraft()
	if !s.publishIdentity(gen, id, profile, nil) {
		return nil
	}

	s.recordActivity(ctx, ActivityEventProfileCreated, id)
	return nil
}

// UpdateProfile applies a self-service patch. Failures surface to the caller
// and leave the local snapshot untouched.
func (s *SessionContext) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	s.mu.Lock()
	id := s.snapshot.Identity
	gen := s.generation
	s.mu.Unlock()

	if id == nil {
		return ErrNotAuthorized
	}

	s.setLoading(true)

	profile, err := s.store.UpdateProfile(ctx, patch)
	if err != nil {
		s.failMutation(gen, err)
		return err
	}

	if !s.publishIdentity(gen, id, profile, nil) {
		return nil
	}

	s.recordActivity(ctx, ActivityEventProfileUpdated, id)
	return nil
}

// Refresh re-resolves the profile for the current identity, the recovery path
// for a registration whose local update was lost mid-call.
func (s *SessionContext) Refresh(ctx context.Context) {
	s.mu.Lock()
	id := s.snapshot.Identity
	gen := s.generation
	s.mu.Unlock()

	if id == nil {
		return
	}

	s.setLoading(true)
	profile := s.resolveProfile(ctx)
	s.publishIdentity(gen, id, profile, nil)
}

// Logout clears identity and profile. Calling it while already logged out is
// a no-op, never an error.
func (s *SessionContext) Logout() {
	s.clearDraft()

	s.mu.Lock()
	s.generation++
	s.snapshot = Snapshot{}
	s.mu.Unlock()

	s.notify()
}

// resolveProfile treats read failures as "profile absent": the redirect
// policy then fails toward onboarding instead of crashing the page.
func (s *SessionContext) resolveProfile(ctx context.Context) *Profile {
	profile, err := s.store.Me(ctx)
	if err != nil {
		if !ProfileAbsent(err) {
			s.logger.Warn("profile read failed, treating as absent: %v", err)
		}
		return nil
	}
	return profile
}

// beginMutation bumps the fetch generation and flips loading on. Results of
// any in-flight fetch from an older generation will be discarded.
func (s *SessionContext) beginMutation() uint64 {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.snapshot.Loading = true
	s.snapshot.Err = nil
	s.mu.Unlock()

	s.notify()
	return gen
}

func (s *SessionContext) setLoading(loading bool) {
	s.mu.Lock()
	s.snapshot.Loading = loading
	s.mu.Unlock()

	s.notify()
}

// publishIdentity atomically installs the identity/profile pair, but only if
// the generation is still current. A result from a superseded generation is
// dropped on the floor.
func (s *SessionContext) publishIdentity(gen uint64, id Identity, profile *Profile, err error) bool {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return false
	}
	s.snapshot = Snapshot{
		Identity: id,
		Profile:  profile,
		Loading:  false,
		Err:      err,
	}
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *SessionContext) failMutation(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.snapshot.Loading = false
	s.snapshot.Err = err
	s.mu.Unlock()

	s.notify()
}

func (s *SessionContext) notify() {
	s.mu.Lock()
	snap := s.snapshot
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

func (s *SessionContext) saveDraft(draft *RegistrationDraft) {
	if s.drafts == nil {
		return
	}
	if err := s.drafts.Save(draft); err != nil {
		s.logger.Warn("failed to save registration draft: %v", err)
	}
}

func (s *SessionContext) loadDraft() (*RegistrationDraft, bool) {
	if s.drafts == nil {
		return nil, false
	}
	return s.drafts.Load()
}

func (s *SessionContext) clearDraft() {
	if s.drafts != nil {
		s.drafts.Clear()
	}
}

func (s *SessionContext) recordActivity(ctx context.Context, event ActivityEventType, id Identity) {
	_ = s.sink.Record(ctx, ActivityEvent{
		EventType:  event,
		Actor:      ActorRef{ID: id.SubjectID(), Type: "user"},
		SubjectID:  id.SubjectID(),
		OccurredAt: time.Now(),
	})
}

// translateAuthError maps provider failures onto the fixed user-facing set so
// raw provider codes never leak to callers.
func translateAuthError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrEmailNotVerified),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrRoleRequired),
		errors.Is(err, ErrRoleNotSelfAssignable):
		return err
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.Category {
		case errors.CategoryAuth, errors.CategoryValidation, errors.CategoryConflict:
			return err
		}
	}

	return ErrProviderUnavailable
}
