package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileStatus is the lifecycle state driven by the approval workflow.
type ProfileStatus string

const (
	// ProfileStatusPending is a seller awaiting administrator approval.
	ProfileStatusPending ProfileStatus = "pending"
	// ProfileStatusActive is a fully provisioned, usable profile.
	ProfileStatusActive ProfileStatus = "active"
	// ProfileStatusRejected is a seller an administrator turned down.
	ProfileStatusRejected ProfileStatus = "rejected"
	// ProfileStatusSuspended is an account an administrator took offline.
	ProfileStatusSuspended ProfileStatus = "suspended"
)

// Profile is the durable authorization record, keyed by the identity
// provider's subject id. Exactly one Profile exists per subject.
type Profile struct {
	bun.BaseModel `bun:"table:profiles,alias:prf"`

	ID                 uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SubjectID          string        `bun:"subject_id,notnull,unique" json:"subject_id,omitempty"`
	Email              string        `bun:"email,notnull,unique" json:"email,omitempty"`
	Name               string        `bun:"name,notnull" json:"name,omitempty"`
	Role               Role          `bun:"role,notnull" json:"role,omitempty"`
	Status             ProfileStatus `bun:"status,notnull" json:"status,omitempty"`
	IsApproved         bool          `bun:"is_approved" json:"is_approved"`
	NeedsRoleSelection bool          `bun:"needs_role_selection" json:"needs_role_selection"`
	Avatar             string        `bun:"avatar" json:"avatar,omitempty"`
	Phone              string        `bun:"phone" json:"phone,omitempty"`
	SuspendedAt        *time.Time    `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	CreatedAt          *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt          *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt          *time.Time    `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// EnsureStatus backfills the status for records created before the lifecycle
// column existed. Buyers and admins resolve to active, sellers to pending.
func (p *Profile) EnsureStatus() {
	if p.Status != "" {
		return
	}
	if p.Role == RoleSeller && !p.IsApproved {
		p.Status = ProfileStatusPending
		return
	}
	p.Status = ProfileStatusActive
}

// SyncApproval keeps the IsApproved column in lockstep with Status.
func (p *Profile) SyncApproval() {
	p.IsApproved = p.Status == ProfileStatusActive
}

// PendingApproval reports the "seller confirmed, not yet approved" state.
func (p *Profile) PendingApproval() bool {
	if p == nil {
		return false
	}
	p.EnsureStatus()
	return p.Role == RoleSeller && !p.IsApproved
}

func (p *Profile) IsActive() bool {
	return p != nil && p.Status == ProfileStatusActive
}

func (p *Profile) IsSuspended() bool {
	return p != nil && p.Status == ProfileStatusSuspended
}

func (p *Profile) IsRejected() bool {
	return p != nil && p.Status == ProfileStatusRejected
}

// Resolved reports whether onboarding finished: the profile exists and role
// selection is behind it. Once true it never reverts for that subject.
func (p *Profile) Resolved() bool {
	return p != nil && !p.NeedsRoleSelection
}

// NotificationKind categorizes approval-workflow notifications.
type NotificationKind string

const (
	NotificationSellerApproved   NotificationKind = "seller.approved"
	NotificationSellerRejected   NotificationKind = "seller.rejected"
	NotificationAccountSuspended NotificationKind = "account.suspended"
	NotificationAccountRestored  NotificationKind = "account.restored"
	NotificationKindVerifyEmail  NotificationKind = "account.verify_email"
)

// Notification is a user-facing message produced as a side effect of the
// approval workflow. Delivery is best-effort and never authoritative.
type Notification struct {
	bun.BaseModel `bun:"table:notifications,alias:ntf"`

	ID        uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ProfileID uuid.UUID        `bun:"profile_id,notnull,type:uuid" json:"profile_id,omitempty"`
	Profile   *Profile         `bun:"rel:has-one,join:profile_id=id" json:"profile,omitempty"`
	Kind      NotificationKind `bun:"kind,notnull" json:"kind,omitempty"`
	Title     string           `bun:"title,notnull" json:"title,omitempty"`
	Body      string           `bun:"body" json:"body,omitempty"`
	ReadAt    *time.Time       `bun:"read_at,nullzero" json:"read_at,omitempty"`
	CreatedAt *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// FederatedAccount links an external provider principal to a profile subject.
type FederatedAccount struct {
	bun.BaseModel `bun:"table:federated_accounts,alias:fda"`

	ID             uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	SubjectID      string         `bun:"subject_id,notnull" json:"subject_id,omitempty"`
	Provider       string         `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderUserID string         `bun:"provider_user_id,notnull" json:"provider_user_id,omitempty"`
	Email          string         `bun:"email" json:"email,omitempty"`
	Name           string         `bun:"name" json:"name,omitempty"`
	AvatarURL      string         `bun:"avatar_url" json:"avatar_url,omitempty"`
	ProfileData    map[string]any `bun:"profile_data" json:"profile_data,omitempty"`
	CreatedAt      *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
