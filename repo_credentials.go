package identity

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Credentials interface {
	repository.Repository[*LocalCredential]
	CredentialTracker

	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}

type credentials struct {
	repository.Repository[*LocalCredential]
	db *bun.DB
}

var _ Credentials = (*credentials)(nil)

func NewCredentialsRepository(db *bun.DB) Credentials {
	repo := repository.NewRepository[*LocalCredential](db, repository.ModelHandlers[*LocalCredential]{
		NewRecord: func() *LocalCredential { return &LocalCredential{} },
		GetID: func(c *LocalCredential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *LocalCredential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &credentials{
		Repository: repo,
		db:         db,
	}
}

func (a *credentials) Register(ctx context.Context, record *LocalCredential) (*LocalCredential, error) {
	record.Email = strings.TrimSpace(strings.ToLower(record.Email))
	return a.Repository.Create(ctx, record)
}

func (a *credentials) GetByEmail(ctx context.Context, email string) (*LocalCredential, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &LocalCredential{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *credentials) TrackAttemptedLogin(ctx context.Context, record *LocalCredential) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(record.ID.String()),
	}

	update := &LocalCredential{}
	update.ID = record.ID
	update.LoginAttempts = record.LoginAttempts + 1
	now := time.Now()
	update.LoginAttemptAt = &now

	_, err := a.Repository.Update(ctx, update, criteria...)

	return err
}

func (a *credentials) TrackSuccessfulLogin(ctx context.Context, record *LocalCredential) error {
	// NOTE: the ORM partial update cannot NULL login_attempt_at, hence raw SQL.
	_, err := a.db.NewRaw(`
		UPDATE "local_credentials" AS "lcr"
		SET
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("lcr".id = ?);
	`, record.ID).Exec(ctx)

	return err
}

func (a *credentials) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	_, err := a.db.NewRaw(`
		UPDATE "local_credentials" AS "lcr"
		SET
			"email_verified" = TRUE
		WHERE
			("lcr".id = ?);
	`, id).Exec(ctx)

	return err
}
