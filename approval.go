package identity

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// ApprovalAction is an administrator transition against a profile.
type ApprovalAction string

const (
	ApprovalApprove    ApprovalAction = "approve"
	ApprovalReject     ApprovalAction = "reject"
	ApprovalSuspend    ApprovalAction = "suspend"
	ApprovalReactivate ApprovalAction = "reactivate"
)

// IsValid reports whether the action is a known transition.
func (a ApprovalAction) IsValid() bool {
	switch a {
	case ApprovalApprove, ApprovalReject, ApprovalSuspend, ApprovalReactivate:
		return true
	}
	return false
}

// TargetStatus maps the action to the lifecycle status it produces.
func (a ApprovalAction) TargetStatus() ProfileStatus {
	switch a {
	case ApprovalApprove, ApprovalReactivate:
		return ProfileStatusActive
	case ApprovalReject:
		return ProfileStatusRejected
	case ApprovalSuspend:
		return ProfileStatusSuspended
	}
	return ""
}

// NeedsRefetch reports whether the action can cascade beyond the single
// record. Approve is local-only; the rest invalidate the whole list, e.g. a
// suspended seller's listings disappear elsewhere.
func (a ApprovalAction) NeedsRefetch() bool {
	return a != ApprovalApprove
}

// ParseApprovalAction validates an action name from the wire.
func ParseApprovalAction(s string) (ApprovalAction, error) {
	action := ApprovalAction(s)
	if !action.IsValid() {
		return "", errors.New("unknown approval action", errors.CategoryBadInput).
			WithTextCode("INVALID_ACTION").
			WithMetadata(map[string]any{"action": s})
	}
	return action, nil
}

// notificationFor builds the single user-facing notification a transition
// owes the affected profile.
func (a ApprovalAction) notificationFor(profile *Profile) *Notification {
	n := &Notification{ProfileID: profile.ID}
	switch a {
	case ApprovalApprove:
		n.Kind = NotificationSellerApproved
		n.Title = "Your seller account was approved"
		n.Body = "You can start listing products right away."
	case ApprovalReject:
		n.Kind = NotificationSellerRejected
		n.Title = "Your seller application was not approved"
		n.Body = "Contact support if you believe this is a mistake."
	case ApprovalSuspend:
		n.Kind = NotificationAccountSuspended
		n.Title = "Your account was suspended"
		n.Body = "Your listings are no longer visible to buyers."
	case ApprovalReactivate:
		n.Kind = NotificationAccountRestored
		n.Title = "Your account was restored"
		n.Body = "Welcome back. Your listings are visible again."
	default:
		return nil
	}
	return n
}

// MutationResult makes the refetch policy auditable per operation: Applied is
// the optimistically updated list, NeedsRefetch says whether the caller must
// reconcile against the store.
type MutationResult struct {
	Applied      []*Profile
	NeedsRefetch bool
}

// ApprovalWorkflow is the administrator mutation surface. It keeps a local
// list for responsiveness, applies each transition optimistically, and rolls
// the list back if the store rejects the write.
type ApprovalWorkflow struct {
	store    ProfileStore
	notifier Notifier
	sink     ActivitySink
	logger   Logger

	mu       sync.Mutex
	profiles []*Profile
}

type ApprovalOption func(*ApprovalWorkflow)

func WithApprovalNotifier(n Notifier) ApprovalOption {
	return func(w *ApprovalWorkflow) {
		w.notifier = n
	}
}

func WithApprovalActivitySink(sink ActivitySink) ApprovalOption {
	return func(w *ApprovalWorkflow) {
		w.sink = normalizeActivitySink(sink)
	}
}

func WithApprovalLogger(l Logger) ApprovalOption {
	return func(w *ApprovalWorkflow) {
		if l != nil {
			w.logger = l
		}
	}
}

func NewApprovalWorkflow(store ProfileStore, opts ...ApprovalOption) *ApprovalWorkflow {
	w := &ApprovalWorkflow{
		store:  store,
		sink:   noopActivitySink{},
		logger: defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}

	return w
}

// Load fetches the full profile list from the store.
func (w *ApprovalWorkflow) Load(ctx context.Context) error {
	profiles, err := w.store.ListProfiles(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to load profile list")
	}

	w.mu.Lock()
	w.profiles = profiles
	w.mu.Unlock()

	return nil
}

// Profiles returns the current local list.
func (w *ApprovalWorkflow) Profiles() []*Profile {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]*Profile, len(w.profiles))
	copy(out, w.profiles)
	return out
}

func (w *ApprovalWorkflow) Approve(ctx context.Context, actor ActorRef, id string, reason string) (MutationResult, error) {
	return w.apply(ctx, actor, id, ApprovalApprove, reason)
}

func (w *ApprovalWorkflow) Reject(ctx context.Context, actor ActorRef, id string, reason string) (MutationResult, error) {
	return w.apply(ctx, actor, id, ApprovalReject, reason)
}

func (w *ApprovalWorkflow) Suspend(ctx context.Context, actor ActorRef, id string, reason string) (MutationResult, error) {
	return w.apply(ctx, actor, id, ApprovalSuspend, reason)
}

func (w *ApprovalWorkflow) Reactivate(ctx context.Context, actor ActorRef, id string, reason string) (MutationResult, error) {
	return w.apply(ctx, actor, id, ApprovalReactivate, reason)
}

func (w *ApprovalWorkflow) apply(ctx context.Context, actor ActorRef, id string, action ApprovalAction, reason string) (MutationResult, error) {
	if !action.IsValid() {
		return MutationResult{}, errors.New("unknown approval action", errors.CategoryBadInput).
			WithTextCode("INVALID_ACTION")
	}

	original, updated := w.applyOptimistic(id, action)
	if original == nil {
		return MutationResult{}, ErrProfileNotFound
	}

	if err := w.store.Transition(ctx, id, action, reason); err != nil {
		// the store said no: put the local record back exactly as it was
		w.rollback(id, original)
		return MutationResult{}, err
	}

	w.recordTransition(ctx, actor, original, updated, action, reason)
	w.enqueueNotification(ctx, updated, action)

	if action.NeedsRefetch() {
		if err := w.Load(ctx); err != nil {
			w.logger.Warn("post-transition refetch failed, keeping optimistic list: %v", err)
			return MutationResult{Applied: w.Profiles(), NeedsRefetch: true}, nil
		}
	}

	return MutationResult{Applied: w.Profiles(), NeedsRefetch: false}, nil
}

// applyOptimistic swaps the targeted record for its post-transition shape and
// returns the untouched original for rollback.
func (w *ApprovalWorkflow) applyOptimistic(id string, action ApprovalAction) (original, updated *Profile) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, p := range w.profiles {
		if p.ID.String() != id {
			continue
		}

		original = p

		next := *p
		next.Status = action.TargetStatus()
		if action == ApprovalSuspend {
			now := time.Now()
			next.SuspendedAt = &now
		} else {
			next.SuspendedAt = nil
		}
		next.SyncApproval()

		w.profiles[i] = &next
		return original, &next
	}

	return nil, nil
}

func (w *ApprovalWorkflow) rollback(id string, original *Profile) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, p := range w.profiles {
		if p.ID.String() == id {
			w.profiles[i] = original
			return
		}
	}
}

// enqueueNotification delivers the single notification a transition owes the
// affected user. Delivery is best-effort: the approval stands even if this
// fails.
func (w *ApprovalWorkflow) enqueueNotification(ctx context.Context, profile *Profile, action ApprovalAction) {
	if w.notifier == nil {
		return
	}

	n := action.notificationFor(profile)
	if n == nil {
		return
	}

	if err := w.notifier.Notify(ctx, n); err != nil {
		w.logger.Warn("notification delivery failed for profile %s kind %s: %v", profile.ID.String(), n.Kind, err)
		return
	}

	_ = w.sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventNotificationQueued,
		SubjectID:  profile.SubjectID,
		OccurredAt: time.Now(),
	})
}

func (w *ApprovalWorkflow) recordTransition(ctx context.Context, actor ActorRef, original, updated *Profile, action ApprovalAction, reason string) {
	metadata := map[string]any{"action": string(action)}
	if reason != "" {
		metadata["reason"] = reason
	}

	_ = w.sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventStatusChanged,
		Actor:      actor,
		SubjectID:  updated.SubjectID,
		FromStatus: original.Status,
		ToStatus:   updated.Status,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	})
}
