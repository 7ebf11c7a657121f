package identity_test

import (
	"testing"

	identity "github.com/artisania/go-identity"
	"github.com/stretchr/testify/assert"
)

func TestRoleGateEvaluate(t *testing.T) {
	gate := identity.NewRoleGate(identity.RoleSeller, identity.RoleAdmin)
	id := testIdentity{subjectID: "firebase:x", verified: true}

	tests := []struct {
		name    string
		snap    identity.Snapshot
		verdict identity.GuardVerdict
	}{
		{
			name:    "loading renders placeholder, never content",
			snap:    identity.Snapshot{Identity: id, Profile: sellerProfile(identity.ProfileStatusActive), Loading: true},
			verdict: identity.GuardRenderPlaceholder,
		},
		{
			name:    "anonymous denial",
			snap:    identity.Snapshot{},
			verdict: identity.GuardDenyAnonymous,
		},
		{
			name:    "wrong role denial",
			snap:    identity.Snapshot{Identity: id, Profile: buyerProfile()},
			verdict: identity.GuardDenyRole,
		},
		{
			name:    "missing profile denies on role, not anonymity",
			snap:    identity.Snapshot{Identity: id},
			verdict: identity.GuardDenyRole,
		},
		{
			name:    "allowed role renders children",
			snap:    identity.Snapshot{Identity: id, Profile: sellerProfile(identity.ProfileStatusActive)},
			verdict: identity.GuardRenderChildren,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.verdict, gate.Evaluate(tc.snap))
		})
	}
}

func TestRoleGateDeniedHelper(t *testing.T) {
	assert.True(t, identity.GuardDenyAnonymous.Denied())
	assert.True(t, identity.GuardDenyRole.Denied())
	assert.False(t, identity.GuardRenderChildren.Denied())
	assert.False(t, identity.GuardRenderPlaceholder.Denied())
	assert.False(t, identity.GuardDefer.Denied())
}

func TestRoleSelectionGateEvaluate(t *testing.T) {
	gate := identity.RoleSelectionGate{}
	id := testIdentity{subjectID: "firebase:x", verified: true}

	assert.Equal(t, identity.GuardRenderPlaceholder, gate.Evaluate(identity.Snapshot{Loading: true}))

	// authenticated with no profile: the orphaned-identity retry path
	assert.Equal(t, identity.GuardRenderChildren, gate.Evaluate(identity.Snapshot{Identity: id}))

	// unconfirmed role on an existing profile
	assert.Equal(t, identity.GuardRenderChildren, gate.Evaluate(identity.Snapshot{
		Identity: id,
		Profile:  &identity.Profile{Role: identity.RoleBuyer, Status: identity.ProfileStatusActive, NeedsRoleSelection: true},
	}))

	// resolved profile defers to the policy instead of denying in place
	assert.Equal(t, identity.GuardDefer, gate.Evaluate(identity.Snapshot{
		Identity: id,
		Profile:  buyerProfile(),
	}))

	// anonymous visitors defer too
	assert.Equal(t, identity.GuardDefer, gate.Evaluate(identity.Snapshot{}))
}
