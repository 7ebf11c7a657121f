package identity_test

import (
	"testing"

	identity "github.com/artisania/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestProfileEnsureStatus(t *testing.T) {
	tests := []struct {
		name     string
		profile  identity.Profile
		expected identity.ProfileStatus
	}{
		{
			name:     "buyer defaults to active",
			profile:  identity.Profile{Role: identity.RoleBuyer},
			expected: identity.ProfileStatusActive,
		},
		{
			name:     "unapproved seller defaults to pending",
			profile:  identity.Profile{Role: identity.RoleSeller},
			expected: identity.ProfileStatusPending,
		},
		{
			name:     "approved seller defaults to active",
			profile:  identity.Profile{Role: identity.RoleSeller, IsApproved: true},
			expected: identity.ProfileStatusActive,
		},
		{
			name:     "admin defaults to active",
			profile:  identity.Profile{Role: identity.RoleAdmin},
			expected: identity.ProfileStatusActive,
		},
		{
			name:     "existing status untouched",
			profile:  identity.Profile{Role: identity.RoleSeller, Status: identity.ProfileStatusSuspended},
			expected: identity.ProfileStatusSuspended,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.profile.EnsureStatus()
			assert.Equal(t, tt.expected, tt.profile.Status)
		})
	}
}

func TestProfileSyncApproval(t *testing.T) {
	p := identity.Profile{Role: identity.RoleSeller, Status: identity.ProfileStatusActive}
	p.SyncApproval()
	assert.True(t, p.IsApproved)

	p.Status = identity.ProfileStatusSuspended
	p.SyncApproval()
	assert.False(t, p.IsApproved)
}

func TestProfilePendingApproval(t *testing.T) {
	var nilProfile *identity.Profile
	assert.False(t, nilProfile.PendingApproval())

	pending := &identity.Profile{Role: identity.RoleSeller, Status: identity.ProfileStatusPending}
	assert.True(t, pending.PendingApproval())

	approved := &identity.Profile{Role: identity.RoleSeller, Status: identity.ProfileStatusActive, IsApproved: true}
	assert.False(t, approved.PendingApproval())

	buyer := &identity.Profile{Role: identity.RoleBuyer, Status: identity.ProfileStatusActive, IsApproved: true}
	assert.False(t, buyer.PendingApproval())
}

func TestProfileResolved(t *testing.T) {
	var nilProfile *identity.Profile
	assert.False(t, nilProfile.Resolved())

	assert.False(t, (&identity.Profile{NeedsRoleSelection: true}).Resolved())
	assert.True(t, (&identity.Profile{}).Resolved())
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, identity.RoleBuyer.IsValid())
	assert.True(t, identity.RoleSeller.IsValid())
	assert.True(t, identity.RoleAdmin.IsValid())
	assert.False(t, identity.Role("owner").IsValid())
	assert.False(t, identity.Role("").IsValid())

	assert.True(t, identity.RoleBuyer.SelfAssignable())
	assert.True(t, identity.RoleSeller.SelfAssignable())
	assert.False(t, identity.RoleAdmin.SelfAssignable())

	assert.True(t, identity.RoleBuyer.AutoApproved())
	assert.False(t, identity.RoleSeller.AutoApproved())
	assert.True(t, identity.RoleAdmin.AutoApproved())

	assert.True(t, identity.RoleAdmin.CanModerate())
	assert.False(t, identity.RoleSeller.CanModerate())
}

func TestParseRole(t *testing.T) {
	role, ok := identity.ParseRole("seller")
	assert.True(t, ok)
	assert.Equal(t, identity.RoleSeller, role)

	_, ok = identity.ParseRole("superuser")
	assert.False(t, ok)
}
