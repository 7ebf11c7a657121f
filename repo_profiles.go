package identity

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpdateProfileStatusSQL writes status, approval, and suspension timestamp in
// one statement so the three columns can never drift apart.
var UpdateProfileStatusSQL = `UPDATE "profiles" AS "prf"
SET
	"status" = ?,
	"is_approved" = ?,
	"suspended_at" = ?,
	"updated_at" = ?
WHERE
	"prf"."deleted_at" IS NULL
AND (
	"prf"."id" = ?
) RETURNING *;`

type Profiles interface {
	repository.Repository[*Profile]

	GetBySubjectID(ctx context.Context, subjectID string, criteria ...repository.SelectCriteria) (*Profile, error)
	GetBySubjectIDTx(ctx context.Context, tx bun.IDB, subjectID string, criteria ...repository.SelectCriteria) (*Profile, error)

	Register(ctx context.Context, profile *Profile) (*Profile, error)
	RegisterTx(ctx context.Context, tx bun.IDB, profile *Profile) (*Profile, error)
	GetOrCreate(ctx context.Context, record *Profile) (*Profile, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error)
	Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error)
	Upsert(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
	UpsertTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*Profile, error)
	UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*Profile, error)

	ListAll(ctx context.Context, criteria ...repository.SelectCriteria) ([]*Profile, error)
	ListAllTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]*Profile, error)

	Approve(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error)
	Reject(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error)
	Suspend(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error)
	Reinstate(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error)
}

type profiles struct {
	repository.Repository[*Profile]
	db                  *bun.DB
	stateMachine        ProfileStateMachine
	stateMachineOptions []StateMachineOption
}

var (
	_ Profiles                        = (*profiles)(nil)
	_ repository.Repository[*Profile] = (*profiles)(nil)
)

type ProfilesOption func(*profiles)

func NewProfilesRepository(db *bun.DB, opts ...ProfilesOption) Profiles {
	repo := repository.NewRepository[*Profile](db, repository.ModelHandlers[*Profile]{
		NewRecord: func() *Profile { return &Profile{} },
		GetID: func(p *Profile) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Profile, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "subject_id"
		},
	})

	repoProfiles := &profiles{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoProfiles)
		}
	}

	return repoProfiles
}

func WithProfilesStateMachineOptions(options ...StateMachineOption) ProfilesOption {
	return func(p *profiles) {
		if len(options) == 0 {
			return
		}
		p.stateMachineOptions = append(p.stateMachineOptions, options...)
		p.stateMachine = nil
	}
}

func WithProfilesStateMachine(sm ProfileStateMachine) ProfilesOption {
	return func(p *profiles) {
		p.stateMachine = sm
	}
}

func (a *profiles) Register(ctx context.Context, profile *Profile) (*Profile, error) {
	return a.RegisterTx(ctx, a.db, profile)
}

func (a *profiles) RegisterTx(ctx context.Context, tx bun.IDB, profile *Profile) (*Profile, error) {
	return a.CreateTx(ctx, tx, profile)
}

func (a *profiles) GetBySubjectID(ctx context.Context, subjectID string, criteria ...repository.SelectCriteria) (*Profile, error) {
	return a.GetBySubjectIDTx(ctx, a.db, subjectID, criteria...)
}

func (a *profiles) GetBySubjectIDTx(ctx context.Context, tx bun.IDB, subjectID string, criteria ...repository.SelectCriteria) (*Profile, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Profile{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.subject_id = ?", subjectID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"subject_id": subjectID,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *profiles) Create(ctx context.Context, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *profiles) CreateTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.InsertCriteria) (*Profile, error) {
	prepareProfileDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *profiles) Upsert(ctx context.Context, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	return a.UpsertTx(ctx, a.db, record, criteria...)
}

func (a *profiles) UpsertTx(ctx context.Context, tx bun.IDB, record *Profile, criteria ...repository.UpdateCriteria) (*Profile, error) {
	existing, err := a.GetBySubjectIDTx(ctx, tx, record.SubjectID)
	if err == nil {
		record.ID = existing.ID
		return a.Repository.UpdateTx(ctx, tx, record, criteria...)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.RegisterTx(ctx, tx, record)
}

// GetOrCreate is the idempotent create path: a retry with the same subject
// finds the existing record instead of inserting a duplicate.
func (a *profiles) GetOrCreate(ctx context.Context, record *Profile) (*Profile, error) {
	return a.GetOrCreateTx(ctx, a.db, record)
}

func (a *profiles) GetOrCreateTx(ctx context.Context, tx bun.IDB, record *Profile) (*Profile, error) {
	profile, err := a.GetBySubjectIDTx(ctx, tx, record.SubjectID)
	if err == nil {
		return profile, nil
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	return a.CreateTx(ctx, tx, record)
}

func (a *profiles) UpdateStatus(ctx context.Context, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*Profile, error) {
	return a.UpdateStatusTx(ctx, a.db, id, status, opts...)
}

func (a *profiles) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status ProfileStatus, opts ...StatusUpdateOption) (*Profile, error) {
	record := &Profile{
		ID:     id,
		Status: status,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(record)
		}
	}

	record.SyncApproval()

	// NOTE: a partial ORM update cannot clear suspended_at or write a false
	// is_approved, so the status write goes through raw SQL.
	updated := &Profile{}
	now := time.Now()
	err := tx.NewRaw(
		UpdateProfileStatusSQL,
		string(record.Status),
		record.IsApproved,
		record.SuspendedAt,
		now,
		id,
	).Scan(ctx, updated)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return updated, nil
}

func (a *profiles) ListAll(ctx context.Context, criteria ...repository.SelectCriteria) ([]*Profile, error) {
	return a.ListAllTx(ctx, a.db, criteria...)
}

func (a *profiles) ListAllTx(ctx context.Context, tx bun.IDB, criteria ...repository.SelectCriteria) ([]*Profile, error) {
	var records []*Profile
	q := tx.NewSelect().Model(&records)

	for _, c := range criteria {
		q.Apply(c)
	}

	if err := q.Order("created_at DESC").Scan(ctx); err != nil {
		return nil, err
	}

	return records, nil
}

func (a *profiles) Approve(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error) {
	return a.lifecycleMachine().Transition(ctx, actor, profile, ProfileStatusActive, opts...)
}

func (a *profiles) Reject(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error) {
	return a.lifecycleMachine().Transition(ctx, actor, profile, ProfileStatusRejected, opts...)
}

func (a *profiles) Suspend(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error) {
	return a.lifecycleMachine().Transition(ctx, actor, profile, ProfileStatusSuspended, opts...)
}

func (a *profiles) Reinstate(ctx context.Context, actor ActorRef, profile *Profile, opts ...TransitionOption) (*Profile, error) {
	return a.lifecycleMachine().Transition(ctx, actor, profile, ProfileStatusActive, opts...)
}

func (a *profiles) lifecycleMachine() ProfileStateMachine {
	if a.stateMachine == nil {
		a.stateMachine = NewProfileStateMachine(a, a.stateMachineOptions...)
	}
	return a.stateMachine
}

// StatusUpdateOption allows callers to mutate the profile record before persisting status changes.
type StatusUpdateOption func(*Profile)

// WithSuspendedAt sets the SuspendedAt timestamp during a status transition.
func WithSuspendedAt(at *time.Time) StatusUpdateOption {
	return func(p *Profile) {
		p.SuspendedAt = at
	}
}

// prepareProfileDefaults resolves the fields createProfile must settle:
// deterministic id from the subject, lifecycle status from the role, and a
// role-selection flag that never survives creation.
func prepareProfileDefaults(record *Profile) {
	if record == nil {
		return
	}

	record.Email = strings.TrimSpace(strings.ToLower(record.Email))

	if record.Status == "" {
		if record.Role == RoleSeller {
			record.Status = ProfileStatusPending
		} else {
			record.Status = ProfileStatusActive
		}
	}
	record.SyncApproval()
	record.NeedsRoleSelection = false

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.SubjectID); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}
}
