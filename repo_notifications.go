package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Notifications interface {
	repository.Repository[*Notification]

	Enqueue(ctx context.Context, profileID uuid.UUID, kind NotificationKind, title, body string) (*Notification, error)
	EnqueueTx(ctx context.Context, tx bun.IDB, profileID uuid.UUID, kind NotificationKind, title, body string) (*Notification, error)
	ListForProfile(ctx context.Context, profileID uuid.UUID, criteria ...repository.SelectCriteria) ([]*Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error)
}

type notifications struct {
	repository.Repository[*Notification]
	db *bun.DB
}

var _ Notifications = (*notifications)(nil)

func NewNotificationsRepository(db *bun.DB) Notifications {
	repo := repository.NewRepository[*Notification](db, repository.ModelHandlers[*Notification]{
		NewRecord: func() *Notification { return &Notification{} },
		GetID: func(n *Notification) uuid.UUID {
			if n == nil {
				return uuid.Nil
			}
			return n.ID
		},
		SetID: func(n *Notification, id uuid.UUID) {
			if n != nil {
				n.ID = id
			}
		},
		GetIdentifier: func() string {
			return "id"
		},
	})

	return &notifications{
		Repository: repo,
		db:         db,
	}
}

// NewRepositoryNotifier adapts the notifications repository into a Notifier.
func NewRepositoryNotifier(repo Notifications) Notifier {
	return NotifierFunc(func(ctx context.Context, n *Notification) error {
		_, err := repo.Enqueue(ctx, n.ProfileID, n.Kind, n.Title, n.Body)
		return err
	})
}

func (a *notifications) Enqueue(ctx context.Context, profileID uuid.UUID, kind NotificationKind, title, body string) (*Notification, error) {
	return a.EnqueueTx(ctx, a.db, profileID, kind, title, body)
}

func (a *notifications) EnqueueTx(ctx context.Context, tx bun.IDB, profileID uuid.UUID, kind NotificationKind, title, body string) (*Notification, error) {
	record := &Notification{
		ID:        uuid.New(),
		ProfileID: profileID,
		Kind:      kind,
		Title:     title,
		Body:      body,
	}
	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *notifications) ListForProfile(ctx context.Context, profileID uuid.UUID, criteria ...repository.SelectCriteria) ([]*Notification, error) {
	var records []*Notification
	q := a.db.NewSelect().Model(&records)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.profile_id = ?", profileID).
		Order("created_at DESC").
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *notifications) MarkRead(ctx context.Context, id uuid.UUID) (*Notification, error) {
	now := time.Now()
	record := &Notification{
		ID:     id,
		ReadAt: &now,
	}
	return a.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}
