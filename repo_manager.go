package identity

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Profiles() Profiles
	Notifications() Notifications
	FederatedAccounts() FederatedAccounts
}

type mngr struct {
	db                *bun.DB
	profiles          Profiles
	notifications     Notifications
	federatedAccounts FederatedAccounts
}

func NewRepositoryManager(db *bun.DB, opts ...ProfilesOption) RepositoryManager {
	return &mngr{
		db:                db,
		profiles:          NewProfilesRepository(db, opts...),
		notifications:     NewNotificationsRepository(db),
		federatedAccounts: NewFederatedAccountsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.profiles == nil {
		return errors.New("repository profiles should be initialized")
	}

	if m.notifications == nil {
		return errors.New("repository notifications should be initialized")
	}

	if m.federatedAccounts == nil {
		return errors.New("repository federatedAccounts should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Profiles() Profiles {
	return m.profiles
}

func (m mngr) Notifications() Notifications {
	return m.notifications
}

func (m mngr) FederatedAccounts() FederatedAccounts {
	return m.federatedAccounts
}
