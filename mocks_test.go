package identity_test

import (
	"context"
	"sync"

	identity "github.com/artisania/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// testIdentity implements identity.Identity
type testIdentity struct {
	subjectID string
	email     string
	verified  bool
	name      string
	avatar    string
}

func (t testIdentity) SubjectID() string   { return t.subjectID }
func (t testIdentity) Email() string       { return t.email }
func (t testIdentity) EmailVerified() bool { return t.verified }
func (t testIdentity) DisplayName() string { return t.name }
func (t testIdentity) AvatarURL() string   { return t.avatar }

// MockIdentityProvider implements identity.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) Authenticate(ctx context.Context, email, password string) (identity.Identity, error) {
	args := m.Called(ctx, email, password)
	id, _ := args.Get(0).(identity.Identity)
	return id, args.Error(1)
}

func (m *MockIdentityProvider) CreateIdentity(ctx context.Context, email, password, name string) (identity.Identity, error) {
	args := m.Called(ctx, email, password, name)
	id, _ := args.Get(0).(identity.Identity)
	return id, args.Error(1)
}

func (m *MockIdentityProvider) SendVerificationEmail(ctx context.Context, id identity.Identity) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIdentityProvider) CurrentIdentity() identity.Identity {
	args := m.Called()
	id, _ := args.Get(0).(identity.Identity)
	return id
}

// MockProfileStore implements identity.ProfileStore
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Me(ctx context.Context) (*identity.Profile, error) {
	args := m.Called(ctx)
	profile, _ := args.Get(0).(*identity.Profile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) CreateProfile(ctx context.Context, in identity.CreateProfileInput) (*identity.Profile, error) {
	args := m.Called(ctx, in)
	profile, _ := args.Get(0).(*identity.Profile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) UpdateProfile(ctx context.Context, patch identity.ProfilePatch) (*identity.Profile, error) {
	args := m.Called(ctx, patch)
	profile, _ := args.Get(0).(*identity.Profile)
	return profile, args.Error(1)
}

func (m *MockProfileStore) ListProfiles(ctx context.Context) ([]*identity.Profile, error) {
	args := m.Called(ctx)
	profiles, _ := args.Get(0).([]*identity.Profile)
	return profiles, args.Error(1)
}

func (m *MockProfileStore) Transition(ctx context.Context, id string, action identity.ApprovalAction, reason string) error {
	args := m.Called(ctx, id, action, reason)
	return args.Error(0)
}

// MockNotifier implements identity.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n *identity.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// captureLogger records every log call so tests can assert on the rendered
// output.
type captureLogger struct {
	mu    sync.Mutex
	calls []logCall
}

type logCall struct {
	level  string
	format string
	args   []any
}

func (l *captureLogger) record(level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, logCall{level: level, format: format, args: args})
}

func (l *captureLogger) Debug(format string, args ...any) { l.record("debug", format, args...) }
func (l *captureLogger) Info(format string, args ...any)  { l.record("info", format, args...) }
func (l *captureLogger) Warn(format string, args ...any)  { l.record("warn", format, args...) }
func (l *captureLogger) Error(format string, args ...any) { l.record("error", format, args...) }

func (l *captureLogger) Calls() []logCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]logCall(nil), l.calls...)
}

// recordingSink collects activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []identity.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event identity.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []identity.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]identity.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

// MockProfiles overrides the repository methods the tests exercise; the
// embedded interface covers the rest.
type MockProfiles struct {
	mock.Mock
	identity.Profiles
}

func (m *MockProfiles) UpdateStatus(ctx context.Context, id uuid.UUID, status identity.ProfileStatus, opts ...identity.StatusUpdateOption) (*identity.Profile, error) {
	callArgs := []any{ctx, id, status}
	for _, opt := range opts {
		callArgs = append(callArgs, opt)
	}
	args := m.Called(callArgs...)
	profile, _ := args.Get(0).(*identity.Profile)
	return profile, args.Error(1)
}

func (m *MockProfiles) GetBySubjectID(ctx context.Context, subjectID string, criteria ...repository.SelectCriteria) (*identity.Profile, error) {
	args := m.Called(ctx, subjectID)
	profile, _ := args.Get(0).(*identity.Profile)
	return profile, args.Error(1)
}

func (m *MockProfiles) ListAll(ctx context.Context, criteria ...repository.SelectCriteria) ([]*identity.Profile, error) {
	args := m.Called(ctx)
	profiles, _ := args.Get(0).([]*identity.Profile)
	return profiles, args.Error(1)
}
