package identity

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SubjectResolver yields the caller's claims for a store operation. The
// default implementation reads claims previously attached to the context by
// the auth middleware.
type SubjectResolver func(ctx context.Context) (AuthClaims, error)

// ErrNoSubject is returned when a store call carries no authenticated caller.
var ErrNoSubject = goerrors.New("no authenticated subject", goerrors.CategoryAuth).
	WithTextCode("NO_SUBJECT").
	WithCode(goerrors.CodeUnauthorized)

// StoreService is the in-process ProfileStore, backed directly by the
// repository layer. It serves deployments where the session and the store
// share a process; remote deployments use the storeclient package instead.
type StoreService struct {
	repo    RepositoryManager
	subject SubjectResolver
	sink    ActivitySink
	logger  Logger
}

var _ ProfileStore = (*StoreService)(nil)

// StoreServiceOption configures a StoreService.
type StoreServiceOption func(*StoreService)

// WithStoreLogger sets the service logger.
func WithStoreLogger(logger Logger) StoreServiceOption {
	return func(s *StoreService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreActivitySink sets the audit sink.
func WithStoreActivitySink(sink ActivitySink) StoreServiceOption {
	return func(s *StoreService) {
		s.sink = normalizeActivitySink(sink)
	}
}

// WithSubjectResolver overrides how the caller's claims are resolved.
func WithSubjectResolver(resolver SubjectResolver) StoreServiceOption {
	return func(s *StoreService) {
		if resolver != nil {
			s.subject = resolver
		}
	}
}

// NewStoreService creates a repository backed ProfileStore.
func NewStoreService(repo RepositoryManager, opts ...StoreServiceOption) *StoreService {
	svc := &StoreService{
		repo:    repo,
		subject: claimsFromContext,
		sink:    normalizeActivitySink(nil),
		logger:  defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}

	return svc
}

func claimsFromContext(ctx context.Context) (AuthClaims, error) {
	claims, ok := GetClaims(ctx)
	if !ok || claims == nil {
		return nil, ErrNoSubject
	}
	return claims, nil
}

// SubjectFromIdentityProvider resolves the subject from a provider's cached
// session identity. Useful for embedded clients that never touch HTTP auth
// middleware.
func SubjectFromIdentityProvider(provider IdentityProvider) SubjectResolver {
	return func(ctx context.Context) (AuthClaims, error) {
		if provider == nil {
			return nil, ErrNoSubject
		}
		id := provider.CurrentIdentity()
		if id == nil {
			return nil, ErrNoSubject
		}
		return &SessionClaims{
			SID:       id.SubjectID(),
			UserEmail: id.Email(),
		}, nil
	}
}

// Me implements ProfileStore.
func (s *StoreService) Me(ctx context.Context) (*Profile, error) {
	claims, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.Profiles().GetBySubjectID(ctx, claims.SubjectID())
	if err != nil {
		if ProfileAbsent(err) {
			return nil, ErrProfileNotFound.WithMetadata(map[string]any{
				"subject_id": claims.SubjectID(),
			})
		}
		return nil, err
	}

	return profile, nil
}

// CreateProfile implements ProfileStore. Creation runs through the same
// command handler the HTTP surface uses, so both paths share the role
// validation and first-write-wins behavior.
func (s *StoreService) CreateProfile(ctx context.Context, in CreateProfileInput) (*Profile, error) {
	claims, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}

	msg := CreateProfileMessage{
		SubjectID: claims.SubjectID(),
		Email:     claims.Email(),
		Name:      in.Name,
		Role:      string(in.Role),
		Avatar:    in.Avatar,
		Phone:     in.Phone,
	}

	handler := NewCreateProfileHandler(s.repo, s.sink)
	if err := handler.Execute(ctx, msg); err != nil {
		return nil, err
	}

	return s.repo.Profiles().GetBySubjectID(ctx, claims.SubjectID())
}

// UpdateProfile implements ProfileStore. Only self-service fields are
// writable here; lifecycle columns travel through Transition.
func (s *StoreService) UpdateProfile(ctx context.Context, patch ProfilePatch) (*Profile, error) {
	claims, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}

	profile, err := s.repo.Profiles().GetBySubjectID(ctx, claims.SubjectID())
	if err != nil {
		if ProfileAbsent(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	if patch.Name != nil {
		profile.Name = *patch.Name
	}
	if patch.Avatar != nil {
		profile.Avatar = *patch.Avatar
	}
	if patch.Phone != nil {
		profile.Phone = *patch.Phone
	}

	return s.repo.Profiles().Update(ctx, profile)
}

// ListProfiles implements ProfileStore. Administrator only.
func (s *StoreService) ListProfiles(ctx context.Context) ([]*Profile, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}

	return s.repo.Profiles().ListAll(ctx)
}

// Transition implements ProfileStore. Administrator only.
func (s *StoreService) Transition(ctx context.Context, id string, action ApprovalAction, reason string) error {
	claims, err := s.requireAdmin(ctx)
	if err != nil {
		return err
	}

	if !action.IsValid() {
		return ErrInvalidTransition.WithMetadata(map[string]any{
			"action": string(action),
		})
	}

	profileID, err := uuid.Parse(id)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid profile id").
			WithTextCode("INVALID_ID")
	}

	profile, err := s.repo.Profiles().GetByID(ctx, profileID.String())
	if err != nil {
		if ProfileAbsent(err) {
			return ErrProfileNotFound
		}
		return err
	}

	actor := ActorRef{ID: claims.SubjectID(), Type: "admin"}
	opts := []TransitionOption{}
	if reason != "" {
		opts = append(opts, WithTransitionReason(reason))
	}

	var updated *Profile
	switch action {
	case ApprovalApprove:
		updated, err = s.repo.Profiles().Approve(ctx, actor, profile, opts...)
	case ApprovalReject:
		updated, err = s.repo.Profiles().Reject(ctx, actor, profile, opts...)
	case ApprovalSuspend:
		updated, err = s.repo.Profiles().Suspend(ctx, actor, profile, opts...)
	case ApprovalReactivate:
		updated, err = s.repo.Profiles().Reinstate(ctx, actor, profile, opts...)
	}
	if err != nil {
		return err
	}

	s.enqueueTransitionNotification(ctx, updated, action)

	return nil
}

func (s *StoreService) requireAdmin(ctx context.Context) (AuthClaims, error) {
	claims, err := s.subject(ctx)
	if err != nil {
		return nil, err
	}

	if !claims.HasRole(string(RoleAdmin)) {
		return nil, ErrNotAuthorized.WithMetadata(map[string]any{
			"subject_id": claims.SubjectID(),
		})
	}

	return claims, nil
}

func (s *StoreService) enqueueTransitionNotification(ctx context.Context, profile *Profile, action ApprovalAction) {
	if profile == nil {
		return
	}

	n := action.notificationFor(profile)
	if n == nil {
		return
	}

	if _, err := s.repo.Notifications().Enqueue(ctx, profile.ID, n.Kind, n.Title, n.Body); err != nil {
		s.logger.Warn("failed to enqueue transition notification for profile %s kind %s: %v", profile.ID.String(), n.Kind, err)
	}
}
