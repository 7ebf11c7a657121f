package identity

// DecisionKind says whether the caller should stay put or navigate.
type DecisionKind int

const (
	DecisionStay DecisionKind = iota
	DecisionNavigate
)

// Decision is the outcome of a redirect policy evaluation.
type Decision struct {
	Kind   DecisionKind
	Target string
}

// Stay reports whether the requested destination is honored.
func (d Decision) Stay() bool {
	return d.Kind == DecisionStay
}

func stay() Decision {
	return Decision{Kind: DecisionStay}
}

func navigateTo(path string) Decision {
	return Decision{Kind: DecisionNavigate, Target: path}
}

// PolicyPaths names the destinations the policy can route to.
type PolicyPaths struct {
	Home            string
	RoleSelection   string
	PendingApproval string
	Logout          string
}

// DefaultPolicyPaths matches the route layout the guards assume.
func DefaultPolicyPaths() PolicyPaths {
	return PolicyPaths{
		Home:            "/",
		RoleSelection:   "/onboarding/role",
		PendingApproval: "/seller/pending",
		Logout:          "/logout",
	}
}

// Policy decides, for every session state change, whether the current path
// stands. It is pure: same snapshot and path, same decision, no side effects.
type Policy struct {
	paths PolicyPaths
}

func NewPolicy(paths PolicyPaths) *Policy {
	return &Policy{paths: paths}
}

// Decide maps (snapshot, path) to stay-or-navigate. Rule order is the whole
// design: loading wins over everything, role selection wins over approval
// pending, approval pending wins over arbitrary destinations.
func (p *Policy) Decide(snap Snapshot, path string) Decision {
	// never redirect on incomplete information
	if snap.Loading {
		return stay()
	}

	// authenticated but no confirmed role: everything routes into onboarding.
	// An absent profile lands here too, covering the orphaned-identity retry.
	if snap.NeedsRoleSelection() {
		if path == p.paths.RoleSelection || path == p.paths.Logout {
			return stay()
		}
		return navigateTo(p.paths.RoleSelection)
	}

	// a resolved profile has no business re-entering onboarding
	if path == p.paths.RoleSelection && snap.Authenticated() {
		return navigateTo(p.paths.Home)
	}

	// an unapproved seller is pinned to the pending screen, deep links
	// included; logout is the only other allowed destination
	if snap.PendingApproval() {
		if path == p.paths.PendingApproval || path == p.paths.Logout {
			return stay()
		}
		return navigateTo(p.paths.PendingApproval)
	}

	return stay()
}
