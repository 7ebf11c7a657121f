// Package identity implements the identity and access-control core of the
// Artisania marketplace: session state, onboarding/approval lifecycle, and the
// redirect policy that decides which screen a visitor may see.
//
// Session state:
//   - SessionContext is the single authoritative view of "who is this session
//     and what may they do". It combines the identity issued by an external
//     IdentityProvider with the durable Profile record, publishes both
//     atomically to observers, and discards stale profile fetches when the
//     identity changes mid-flight.
//
// Access control:
//   - Policy is a pure function from session snapshot and requested path to a
//     navigation outcome. RoleSelectionGate and RoleGate are its two page-level
//     consumers; neither issues its own navigation.
//
// Lifecycle:
//   - Profiles carry a ProfileStatus persisted via Bun. ProfileStateMachine
//     centralizes the transition graph (pending, active, rejected, suspended),
//     timestamps, hooks, and persistence. ApprovalWorkflow drives it from the
//     administrator surface and enqueues one best-effort notification per
//     transition.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the session,
//     providers, and the state machine. Sinks run best-effort (errors are
//     logged) so you can forward events without blocking authentication.
package identity
