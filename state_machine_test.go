package identity_test

import (
	"context"
	"testing"
	"time"

	identity "github.com/artisania/go-identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestProfileStateMachineTransitionToSuspendedSetsTimestamp(t *testing.T) {
	repo := &MockProfiles{}
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

	sm := identity.NewProfileStateMachine(repo, identity.WithStateMachineClock(func() time.Time {
		return now
	}))

	profile := &identity.Profile{
		ID:        uuid.New(),
		SubjectID: "firebase:abc",
		Status:    identity.ProfileStatusActive,
	}

	expected := &identity.Profile{
		ID:          profile.ID,
		SubjectID:   profile.SubjectID,
		Status:      identity.ProfileStatusSuspended,
		SuspendedAt: &now,
	}

	repo.On("UpdateStatus", mock.Anything, profile.ID, identity.ProfileStatusSuspended, mock.Anything).
		Return(expected, nil).
		Once()

	actor := identity.ActorRef{ID: "admin-1", Type: "admin"}
	updated, err := sm.Transition(context.Background(), actor, profile, identity.ProfileStatusSuspended)
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, identity.ProfileStatusSuspended, updated.Status)
	require.NotNil(t, updated.SuspendedAt)
	assert.True(t, updated.SuspendedAt.Equal(now))
	assert.False(t, updated.IsApproved)

	repo.AssertExpectations(t)
}

func TestProfileStateMachineRejectsInvalidTransition(t *testing.T) {
	repo := &MockProfiles{}
	sm := identity.NewProfileStateMachine(repo)

	profile := &identity.Profile{
		ID:        uuid.New(),
		SubjectID: "firebase:def",
		Status:    identity.ProfileStatusPending,
	}

	actor := identity.ActorRef{ID: "admin-1", Type: "admin"}
	_, err := sm.Transition(context.Background(), actor, profile, identity.ProfileStatusSuspended)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrInvalidTransition)

	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileStateMachineRejectedIsTerminal(t *testing.T) {
	repo := &MockProfiles{}
	sm := identity.NewProfileStateMachine(repo)

	profile := &identity.Profile{
		ID:        uuid.New(),
		SubjectID: "firebase:ghi",
		Status:    identity.ProfileStatusRejected,
	}

	actor := identity.ActorRef{ID: "admin-1", Type: "admin"}
	_, err := sm.Transition(context.Background(), actor, profile, identity.ProfileStatusActive)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrTerminalState)

	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestProfileStateMachineForceTransitionBypassesRules(t *testing.T) {
	repo := &MockProfiles{}
	sm := identity.NewProfileStateMachine(repo)

	profile := &identity.Profile{
		ID:        uuid.New(),
		SubjectID: "firebase:jkl",
		Status:    identity.ProfileStatusRejected,
	}

	expected := &identity.Profile{
		ID:        profile.ID,
		SubjectID: profile.SubjectID,
		Status:    identity.ProfileStatusActive,
	}

	repo.On("UpdateStatus", mock.Anything, profile.ID, identity.ProfileStatusActive).
		Return(expected, nil).
		Once()

	actor := identity.ActorRef{ID: "admin-1", Type: "admin"}
	updated, err := sm.Transition(context.Background(), actor, profile, identity.ProfileStatusActive, identity.WithForceTransition())
	require.NoError(t, err)

	assert.Equal(t, identity.ProfileStatusActive, updated.Status)
	assert.True(t, updated.IsApproved)

	repo.AssertExpectations(t)
}

func TestProfileStateMachineLeavingSuspendedClearsTimestamp(t *testing.T) {
	repo := &MockProfiles{}
	sm := identity.NewProfileStateMachine(repo)

	suspendedAt := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)
	profile := &identity.Profile{
		ID:          uuid.New(),
		SubjectID:   "firebase:mno",
		Status:      identity.ProfileStatusSuspended,
		SuspendedAt: &suspendedAt,
	}

	expected := &identity.Profile{
		ID:        profile.ID,
		SubjectID: profile.SubjectID,
		Status:    identity.ProfileStatusActive,
	}

	repo.On("UpdateStatus", mock.Anything, profile.ID, identity.ProfileStatusActive, mock.Anything).
		Return(expected, nil).
		Once()

	actor := identity.ActorRef{ID: "admin-1", Type: "admin"}
	updated, err := sm.Transition(context.Background(), actor, profile, identity.ProfileStatusActive)
	require.NoError(t, err)

	assert.Equal(t, identity.ProfileStatusActive, updated.Status)
	assert.Nil(t, updated.SuspendedAt)
	assert.True(t, updated.IsApproved)

	repo.AssertExpectations(t)
}

func TestProfileStateMachineRecordsActivity(t *testing.T) {
	repo := &MockProfiles{}
	sink := &recordingSink{}
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

	sm := identity.NewProfileStateMachine(repo,
		identity.WithStateMachineClock(func() time.Time { return now }),
		identity.WithStateMachineActivitySink(sink),
	)

	profile := &identity.Profile{
		ID:        uuid.New(),
		SubjectID: "firebase:pqr",
		Status:    identity.ProfileStatusPending,
	}

	repo.On("UpdateStatus", mock.Anything, profile.ID, identity.ProfileStatusActive).
		Return(profile, nil).
		Once()

	actor := identity.ActorRef{ID: "admin-1", Type: "admin"}
	_, err := sm.Transition(context.Background(), actor, profile, identity.ProfileStatusActive,
		identity.WithTransitionReason("verified storefront"))
	require.NoError(t, err)

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, identity.ActivityEventStatusChanged, events[0].EventType)
	assert.Equal(t, actor, events[0].Actor)
	assert.Equal(t, identity.ProfileStatusPending, events[0].FromStatus)
	assert.Equal(t, identity.ProfileStatusActive, events[0].ToStatus)
	assert.Equal(t, "verified storefront", events[0].Metadata["reason"])
	assert.True(t, events[0].OccurredAt.Equal(now))
}
