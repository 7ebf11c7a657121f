package identity

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type FederatedAccounts interface {
	repository.Repository[*FederatedAccount]

	GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*FederatedAccount, error)
	GetByProviderUserIDTx(ctx context.Context, tx bun.IDB, provider, providerUserID string) (*FederatedAccount, error)
	Link(ctx context.Context, record *FederatedAccount) (*FederatedAccount, error)
	LinkTx(ctx context.Context, tx bun.IDB, record *FederatedAccount) (*FederatedAccount, error)
	ListBySubjectID(ctx context.Context, subjectID string) ([]*FederatedAccount, error)
	ListBySubjectIDTx(ctx context.Context, tx bun.IDB, subjectID string) ([]*FederatedAccount, error)
	Unlink(ctx context.Context, subjectID, provider string) error
	UnlinkTx(ctx context.Context, tx bun.IDB, subjectID, provider string) error
}

type federatedAccounts struct {
	repository.Repository[*FederatedAccount]
	db *bun.DB
}

var _ FederatedAccounts = (*federatedAccounts)(nil)

func NewFederatedAccountsRepository(db *bun.DB) FederatedAccounts {
	repo := repository.NewRepository[*FederatedAccount](db, repository.ModelHandlers[*FederatedAccount]{
		NewRecord: func() *FederatedAccount { return &FederatedAccount{} },
		GetID: func(f *FederatedAccount) uuid.UUID {
			if f == nil {
				return uuid.Nil
			}
			return f.ID
		},
		SetID: func(f *FederatedAccount, id uuid.UUID) {
			if f != nil {
				f.ID = id
			}
		},
		GetIdentifier: func() string {
			return "provider_user_id"
		},
	})

	return &federatedAccounts{
		Repository: repo,
		db:         db,
	}
}

func (a *federatedAccounts) GetByProviderUserID(ctx context.Context, provider, providerUserID string) (*FederatedAccount, error) {
	return a.GetByProviderUserIDTx(ctx, a.db, provider, providerUserID)
}

func (a *federatedAccounts) GetByProviderUserIDTx(ctx context.Context, tx bun.IDB, provider, providerUserID string) (*FederatedAccount, error) {
	provider = strings.TrimSpace(provider)
	providerUserID = strings.TrimSpace(providerUserID)
	if provider == "" || providerUserID == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &FederatedAccount{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_user_id = ?", providerUserID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"provider":         provider,
					"provider_user_id": providerUserID,
				})
		}
		return nil, err
	}

	return record, nil
}

// Link records the provider principal, updating profile metadata in place when
// the pair was already linked.
func (a *federatedAccounts) Link(ctx context.Context, record *FederatedAccount) (*FederatedAccount, error) {
	return a.LinkTx(ctx, a.db, record)
}

func (a *federatedAccounts) LinkTx(ctx context.Context, tx bun.IDB, record *FederatedAccount) (*FederatedAccount, error) {
	existing, err := a.GetByProviderUserIDTx(ctx, tx, record.Provider, record.ProviderUserID)
	if err == nil {
		record.ID = existing.ID
		record.SubjectID = existing.SubjectID
		return a.Repository.UpdateTx(ctx, tx, record)
	}

	if !repository.IsRecordNotFound(err) {
		return nil, err
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *federatedAccounts) ListBySubjectID(ctx context.Context, subjectID string) ([]*FederatedAccount, error) {
	return a.ListBySubjectIDTx(ctx, a.db, subjectID)
}

func (a *federatedAccounts) ListBySubjectIDTx(ctx context.Context, tx bun.IDB, subjectID string) ([]*FederatedAccount, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, repository.NewRecordNotFound()
	}

	records := []*FederatedAccount{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.subject_id = ?", subjectID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (a *federatedAccounts) Unlink(ctx context.Context, subjectID, provider string) error {
	return a.UnlinkTx(ctx, a.db, subjectID, provider)
}

func (a *federatedAccounts) UnlinkTx(ctx context.Context, tx bun.IDB, subjectID, provider string) error {
	subjectID = strings.TrimSpace(subjectID)
	provider = strings.TrimSpace(provider)
	if subjectID == "" || provider == "" {
		return repository.NewRecordNotFound()
	}

	_, err := tx.NewDelete().
		Model((*FederatedAccount)(nil)).
		Where("?TableAlias.subject_id = ?", subjectID).
		Where("?TableAlias.provider = ?", provider).
		Exec(ctx)

	return err
}
