package identity

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

type CreateProfileMessage struct {
	SubjectID string `json:"subject_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	Avatar    string `json:"avatar"`
	Phone     string `json:"phone"`
}

func (e CreateProfileMessage) Type() string { return "profile.create" }

type CreateProfileHandler struct {
	repo RepositoryManager
	sink ActivitySink
}

func NewCreateProfileHandler(repo RepositoryManager, sink ActivitySink) *CreateProfileHandler {
	return &CreateProfileHandler{
		repo: repo,
		sink: normalizeActivitySink(sink),
	}
}

func (h *CreateProfileHandler) Execute(ctx context.Context, event CreateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile creation",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *CreateProfileHandler) execute(ctx context.Context, event CreateProfileMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	role, ok := ParseRole(event.Role)
	if !ok {
		return ErrRoleRequired
	}

	if !role.SelfAssignable() {
		return ErrRoleNotSelfAssignable
	}

	profile := &Profile{}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		profile.SubjectID = strings.TrimSpace(event.SubjectID)
		profile.Email = event.Email
		profile.Name = getDisplayName(event.Name, event.Email)
		profile.Role = role
		profile.Avatar = event.Avatar
		profile.Phone = event.Phone

		if id, err := hashid.NewUUID(profile.SubjectID); err == nil {
			profile.ID = id
		}

		created, err := h.repo.Profiles().GetOrCreateTx(ctx, tx, profile)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create profile")
		}

		profile = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}

		return goerrors.Wrap(err, goerrors.CategoryInternal, "profile creation transaction failed")
	}

	_ = h.sink.Record(ctx, ActivityEvent{
		EventType:  ActivityEventProfileCreated,
		Actor:      ActorRef{ID: profile.SubjectID, Type: "user"},
		SubjectID:  profile.SubjectID,
		ToStatus:   profile.Status,
		OccurredAt: time.Now(),
	})

	return nil
}

func getDisplayName(name, email string) string {
	if name != "" {
		return name
	}

	if strings.Contains(email, "@") {
		name = strings.Split(email, "@")[0]
	}

	return name
}
