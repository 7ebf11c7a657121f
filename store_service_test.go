package identity_test

import (
	"context"
	"testing"

	identity "github.com/artisania/go-identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// stubRepoManager hands out the mocked profiles repository; the embedded
// interface covers methods the tests never reach.
type stubRepoManager struct {
	identity.RepositoryManager
	profiles identity.Profiles
}

func (s *stubRepoManager) Profiles() identity.Profiles { return s.profiles }

func adminContext() context.Context {
	return identity.WithClaimsContext(context.Background(), &identity.SessionClaims{
		SID:      "seed:admin",
		UserRole: "admin",
	})
}

func buyerContext(subjectID string) context.Context {
	return identity.WithClaimsContext(context.Background(), &identity.SessionClaims{
		SID:      subjectID,
		UserRole: "buyer",
	})
}

func TestStoreServiceMeRequiresSubject(t *testing.T) {
	profiles := &MockProfiles{}
	svc := identity.NewStoreService(&stubRepoManager{profiles: profiles})

	_, err := svc.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrNoSubject)

	profiles.AssertNotCalled(t, "GetBySubjectID", mock.Anything, mock.Anything)
}

func TestStoreServiceMeReturnsOwnProfile(t *testing.T) {
	profiles := &MockProfiles{}
	svc := identity.NewStoreService(&stubRepoManager{profiles: profiles})

	profile := &identity.Profile{SubjectID: "firebase:abc", Role: identity.RoleBuyer, Status: identity.ProfileStatusActive}
	profiles.On("GetBySubjectID", mock.Anything, "firebase:abc").Return(profile, nil).Once()

	got, err := svc.Me(buyerContext("firebase:abc"))
	require.NoError(t, err)
	assert.Same(t, profile, got)

	profiles.AssertExpectations(t)
}

func TestStoreServiceMeMapsAbsenceToProfileNotFound(t *testing.T) {
	profiles := &MockProfiles{}
	svc := identity.NewStoreService(&stubRepoManager{profiles: profiles})

	profiles.On("GetBySubjectID", mock.Anything, "firebase:new").
		Return(nil, identity.ErrProfileNotFound).
		Once()

	_, err := svc.Me(buyerContext("firebase:new"))
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrProfileNotFound)
}

func TestStoreServiceListProfilesIsAdminOnly(t *testing.T) {
	profiles := &MockProfiles{}
	svc := identity.NewStoreService(&stubRepoManager{profiles: profiles})

	_, err := svc.ListProfiles(buyerContext("firebase:abc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrNotAuthorized)

	profiles.AssertNotCalled(t, "ListAll", mock.Anything)

	expected := []*identity.Profile{{SubjectID: "firebase:abc"}}
	profiles.On("ListAll", mock.Anything).Return(expected, nil).Once()

	got, err := svc.ListProfiles(adminContext())
	require.NoError(t, err)
	assert.Equal(t, expected, got)
}

func TestStoreServiceTransitionValidation(t *testing.T) {
	profiles := &MockProfiles{}
	svc := identity.NewStoreService(&stubRepoManager{profiles: profiles})

	// non-admin callers are rejected before anything else
	err := svc.Transition(buyerContext("firebase:abc"), "some-id", identity.ApprovalApprove, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrNotAuthorized)

	// unknown action
	err = svc.Transition(adminContext(), "some-id", identity.ApprovalAction("promote"), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrInvalidTransition)

	// malformed profile id
	err = svc.Transition(adminContext(), "not-a-uuid", identity.ApprovalApprove, "")
	require.Error(t, err)
}

func TestSubjectFromIdentityProvider(t *testing.T) {
	resolver := identity.SubjectFromIdentityProvider(nil)
	_, err := resolver(context.Background())
	assert.ErrorIs(t, err, identity.ErrNoSubject)

	provider := &MockIdentityProvider{}
	provider.On("CurrentIdentity").Return(nil).Once()

	resolver = identity.SubjectFromIdentityProvider(provider)
	_, err = resolver(context.Background())
	assert.ErrorIs(t, err, identity.ErrNoSubject)

	id := testIdentity{subjectID: "firebase:abc", email: "maker@example.com"}
	provider.On("CurrentIdentity").Return(id).Once()

	claims, err := resolver(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "firebase:abc", claims.SubjectID())
	assert.Equal(t, "maker@example.com", claims.Email())
}
