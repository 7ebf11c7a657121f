package identity

// GuardVerdict is a render decision. Guards never navigate; cross-cutting
// redirects belong to the Policy so two gates in one render pass cannot issue
// conflicting navigations.
type GuardVerdict int

const (
	// GuardRenderChildren admits the protected content.
	GuardRenderChildren GuardVerdict = iota
	// GuardRenderPlaceholder shows a neutral loading state, never content,
	// never a denial.
	GuardRenderPlaceholder
	// GuardDenyAnonymous is the "not logged in" denial.
	GuardDenyAnonymous
	// GuardDenyRole is the "your role does not permit this" denial.
	GuardDenyRole
	// GuardDefer renders nothing and leaves the outcome to the redirect
	// policy.
	GuardDefer
)

// Denied reports whether the verdict is one of the denial states.
func (v GuardVerdict) Denied() bool {
	return v == GuardDenyAnonymous || v == GuardDenyRole
}

// RoleSelectionGate admits only sessions that still owe a role confirmation.
type RoleSelectionGate struct{}

// Evaluate renders the onboarding flow only for an authenticated identity
// with unresolved role selection. Anyone else defers to the policy, which
// routes resolved profiles back home.
func (RoleSelectionGate) Evaluate(snap Snapshot) GuardVerdict {
	if snap.Loading {
		return GuardRenderPlaceholder
	}

	if snap.NeedsRoleSelection() {
		return GuardRenderChildren
	}

	return GuardDefer
}

// RoleGate admits only profiles whose role is on the allow-list.
type RoleGate struct {
	Allowed []Role
}

// NewRoleGate builds a gate for the given roles.
func NewRoleGate(roles ...Role) RoleGate {
	return RoleGate{Allowed: roles}
}

// Evaluate is monotonic in loading: while the session is loading it renders
// only the placeholder. Once resolved it renders a denial in place with
// distinct reasons for anonymous vs wrong role.
func (g RoleGate) Evaluate(snap Snapshot) GuardVerdict {
	if snap.Loading {
		return GuardRenderPlaceholder
	}

	if !snap.Authenticated() {
		return GuardDenyAnonymous
	}

	if snap.Profile == nil || !g.allows(snap.Profile.Role) {
		return GuardDenyRole
	}

	return GuardRenderChildren
}

func (g RoleGate) allows(role Role) bool {
	for _, allowed := range g.Allowed {
		if allowed == role {
			return true
		}
	}
	return false
}
