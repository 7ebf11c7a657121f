package identity_test

import (
	"testing"

	identity "github.com/artisania/go-identity"
	"github.com/stretchr/testify/assert"
)

func sellerProfile(status identity.ProfileStatus) *identity.Profile {
	p := &identity.Profile{
		SubjectID: "firebase:seller",
		Role:      identity.RoleSeller,
		Status:    status,
	}
	p.SyncApproval()
	return p
}

func buyerProfile() *identity.Profile {
	p := &identity.Profile{
		SubjectID: "firebase:buyer",
		Role:      identity.RoleBuyer,
		Status:    identity.ProfileStatusActive,
	}
	p.SyncApproval()
	return p
}

func TestPolicyDecide(t *testing.T) {
	policy := identity.NewPolicy(identity.DefaultPolicyPaths())
	id := testIdentity{subjectID: "firebase:x", verified: true}

	tests := []struct {
		name   string
		snap   identity.Snapshot
		path   string
		stay   bool
		target string
	}{
		{
			name: "loading wins over everything",
			snap: identity.Snapshot{Identity: id, Loading: true},
			path: "/seller/dashboard",
			stay: true,
		},
		{
			name:   "needs role selection routes to onboarding",
			snap:   identity.Snapshot{Identity: id},
			path:   "/",
			target: "/onboarding/role",
		},
		{
			name: "needs role selection stays on onboarding",
			snap: identity.Snapshot{Identity: id},
			path: "/onboarding/role",
			stay: true,
		},
		{
			name: "needs role selection may log out",
			snap: identity.Snapshot{Identity: id},
			path: "/logout",
			stay: true,
		},
		{
			name: "unconfirmed role beats arbitrary deep link",
			snap: identity.Snapshot{
				Identity: id,
				Profile: &identity.Profile{
					Role:               identity.RoleSeller,
					Status:             identity.ProfileStatusPending,
					NeedsRoleSelection: true,
				},
			},
			path:   "/seller/pending",
			target: "/onboarding/role",
		},
		{
			name:   "resolved profile cannot re-enter onboarding",
			snap:   identity.Snapshot{Identity: id, Profile: buyerProfile()},
			path:   "/onboarding/role",
			target: "/",
		},
		{
			name:   "pending seller pinned to pending screen",
			snap:   identity.Snapshot{Identity: id, Profile: sellerProfile(identity.ProfileStatusPending)},
			path:   "/seller/dashboard",
			target: "/seller/pending",
		},
		{
			name: "pending seller stays on pending screen",
			snap: identity.Snapshot{Identity: id, Profile: sellerProfile(identity.ProfileStatusPending)},
			path: "/seller/pending",
			stay: true,
		},
		{
			name: "pending seller may log out",
			snap: identity.Snapshot{Identity: id, Profile: sellerProfile(identity.ProfileStatusPending)},
			path: "/logout",
			stay: true,
		},
		{
			name: "approved seller browses freely",
			snap: identity.Snapshot{Identity: id, Profile: sellerProfile(identity.ProfileStatusActive)},
			path: "/seller/dashboard",
			stay: true,
		},
		{
			name: "anonymous visitor stays put",
			snap: identity.Snapshot{},
			path: "/browse",
			stay: true,
		},
		{
			name: "anonymous visitor may sit on onboarding",
			snap: identity.Snapshot{},
			path: "/onboarding/role",
			stay: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			decision := policy.Decide(tc.snap, tc.path)
			if tc.stay {
				assert.True(t, decision.Stay(), "expected stay, got navigate to %q", decision.Target)
				return
			}
			assert.False(t, decision.Stay())
			assert.Equal(t, tc.target, decision.Target)
		})
	}
}

func TestPolicyIsPure(t *testing.T) {
	policy := identity.NewPolicy(identity.DefaultPolicyPaths())
	snap := identity.Snapshot{
		Identity: testIdentity{subjectID: "firebase:x"},
		Profile:  sellerProfile(identity.ProfileStatusPending),
	}

	first := policy.Decide(snap, "/seller/dashboard")
	second := policy.Decide(snap, "/seller/dashboard")
	assert.Equal(t, first, second)
}
