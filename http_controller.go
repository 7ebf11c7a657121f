package identity

import (
	"fmt"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

// RegisterIdentityRoutes mounts the profile and moderation surface.
func RegisterIdentityRoutes[T any](app router.Router[T], opts ...ProfileControllerOption) {
	controller := NewProfileController(opts...)

	protected := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
	)

	adminOnly := controller.Auther.ProtectedRoute(
		controller.Config,
		controller.Auther.MakeClientRouteAuthErrorHandler(false),
		RequireRoles(RoleAdmin),
		RequireApproved(),
	)

	app.Get("/auth/me", controller.Me, protected).SetName("auth.me")
	app.Post("/auth/register", controller.Register, protected).SetName("auth.register")
	app.Put("/auth/profile", controller.Update, protected).SetName("auth.profile")

	app.Get("/admin/users", controller.List, adminOnly).SetName("admin.users")
	app.Put("/admin/users/:id/:action", controller.Transition, adminOnly).SetName("admin.users.transition")
}

type ProfileController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       *RouteAuthenticator
	Config       Config
	Sink         ActivitySink
	ErrorHandler router.ErrorHandler
}

type ProfileControllerOption func(*ProfileController) *ProfileController

func WithControllerRepo(repo RepositoryManager) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *RouteAuthenticator) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Auther = auther
		return c
	}
}

func WithControllerConfig(cfg Config) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Config = cfg
		return c
	}
}

func WithControllerLogger(l Logger) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func WithControllerActivitySink(sink ActivitySink) ProfileControllerOption {
	return func(c *ProfileController) *ProfileController {
		c.Sink = normalizeActivitySink(sink)
		return c
	}
}

func NewProfileController(opts ...ProfileControllerOption) *ProfileController {
	c := &ProfileController{
		Logger: defLogger{},
		Sink:   noopActivitySink{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in profile controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in profile controller...")
	}

	if c.Config == nil {
		panic("Missing Config in profile controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Auther.ErrorHandler
	}

	return c
}

func (a *ProfileController) claims(ctx router.Context) (AuthClaims, error) {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return nil, ErrNotAuthorized
	}
	return claims, nil
}

// Me returns the caller's profile, the recovery read for a registration whose
// local update never landed.
func (a *ProfileController) Me(ctx router.Context) error {
	claims, err := a.claims(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	profile, err := a.Repo.Profiles().GetBySubjectID(ctx.Context(), claims.SubjectID())
	if err != nil {
		if ProfileAbsent(err) {
			return a.ErrorHandler(ctx, ErrProfileNotFound)
		}
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, profile)
}

// RegisterProfileRequest is the first-time profile creation payload.
type RegisterProfileRequest struct {
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
	Phone  string `json:"phone,omitempty"`
}

// Validate will run validation rules
func (r RegisterProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Role, validation.Required, validation.In(string(RoleBuyer), string(RoleSeller))),
		validation.Field(&r.Avatar, is.URL),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
	)
}

// Register creates the caller's profile. Retries with the same subject return
// the existing record instead of a duplicate.
func (a *ProfileController) Register(ctx router.Context) error {
	claims, err := a.claims(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(RegisterProfileRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register profile parse payload: %v", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse payload"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register profile validate payload: %v", err)
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if a.Debug {
		fmt.Println("======= PROFILE REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===============================")
	}

	msg := CreateProfileMessage{
		SubjectID: claims.SubjectID(),
		Email:     claims.Email(),
		Name:      payload.Name,
		Role:      payload.Role,
		Avatar:    payload.Avatar,
		Phone:     payload.Phone,
	}

	handler := NewCreateProfileHandler(a.Repo, a.Sink)
	if err := handler.Execute(ctx.Context(), msg); err != nil {
		a.Logger.Error("register profile error: %v", err)
		return a.ErrorHandler(ctx, err)
	}

	profile, err := a.Repo.Profiles().GetBySubjectID(ctx.Context(), claims.SubjectID())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, profile)
}

// UpdateProfileRequest is the self-service patch payload. Status and approval
// fields are absent on purpose: those travel only through the admin surface.
type UpdateProfileRequest struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Phone  *string `json:"phone,omitempty"`
}

// Validate will run validation rules
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Avatar, is.URL),
		validation.Field(&r.Phone, validation.By(ValidateOptionalPhoneNumber)),
	)
}

// Update applies a partial self-edit to the caller's profile.
func (a *ProfileController) Update(ctx router.Context) error {
	claims, err := a.claims(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(UpdateProfileRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("update profile parse payload: %v", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse payload"))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("update profile validate payload: %v", err)
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	profile, err := a.Repo.Profiles().GetBySubjectID(ctx.Context(), claims.SubjectID())
	if err != nil {
		if ProfileAbsent(err) {
			return a.ErrorHandler(ctx, ErrProfileNotFound)
		}
		return a.ErrorHandler(ctx, err)
	}

	if payload.Name != nil {
		profile.Name = *payload.Name
	}
	if payload.Avatar != nil {
		profile.Avatar = *payload.Avatar
	}
	if payload.Phone != nil {
		profile.Phone = *payload.Phone
	}

	updated, err := a.Repo.Profiles().Update(ctx.Context(), profile)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, updated)
}

// List returns every profile for the moderation screen.
func (a *ProfileController) List(ctx router.Context) error {
	profiles, err := a.Repo.Profiles().ListAll(ctx.Context())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, profiles)
}

// TransitionRequest carries the optional moderation reason.
type TransitionRequest struct {
	Reason string `json:"reason,omitempty"`
}

// Validate will run validation rules
func (r TransitionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

// Transition executes an administrator lifecycle action. The notification is
// enqueued after the write commits; its failure never unwinds the approval.
func (a *ProfileController) Transition(ctx router.Context) error {
	claims, err := a.claims(ctx)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	action, err := ParseApprovalAction(ctx.Param("action"))
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	id, err := ParseUUID(ctx.Param("id"))
	if err != nil {
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid profile id"))
	}

	payload := new(TransitionRequest)
	if err := ctx.Bind(payload); err != nil {
		// reason body is optional
		payload = &TransitionRequest{}
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	profile, err := a.Repo.Profiles().GetByID(ctx.Context(), id.String())
	if err != nil {
		if ProfileAbsent(err) {
			return a.ErrorHandler(ctx, ErrProfileNotFound)
		}
		return a.ErrorHandler(ctx, err)
	}

	actor := ActorRef{ID: claims.SubjectID(), Type: "admin"}
	opts := []TransitionOption{}
	if payload.Reason != "" {
		opts = append(opts, WithTransitionReason(payload.Reason))
	}

	updated, err := a.executeTransition(ctx, actor, profile, action, opts)
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	a.enqueueTransitionNotification(ctx, updated, action)

	return ctx.JSON(http.StatusNoContent, nil)
}

func (a *ProfileController) executeTransition(ctx router.Context, actor ActorRef, profile *Profile, action ApprovalAction, opts []TransitionOption) (*Profile, error) {
	stdCtx := ctx.Context()

	switch action {
	case ApprovalApprove:
		return a.Repo.Profiles().Approve(stdCtx, actor, profile, opts...)
	case ApprovalReject:
		return a.Repo.Profiles().Reject(stdCtx, actor, profile, opts...)
	case ApprovalSuspend:
		return a.Repo.Profiles().Suspend(stdCtx, actor, profile, opts...)
	case ApprovalReactivate:
		return a.Repo.Profiles().Reinstate(stdCtx, actor, profile, opts...)
	}

	return nil, goerrors.New("unknown approval action", goerrors.CategoryBadInput).
		WithTextCode("INVALID_ACTION")
}

func (a *ProfileController) enqueueTransitionNotification(ctx router.Context, profile *Profile, action ApprovalAction) {
	n := action.notificationFor(profile)
	if n == nil {
		return
	}

	if _, err := a.Repo.Notifications().Enqueue(ctx.Context(), profile.ID, n.Kind, n.Title, n.Body); err != nil {
		a.Logger.Warn("failed to enqueue transition notification for profile %s kind %s: %v", profile.ID.String(), n.Kind, err)
	}
}

// ValidatePhoneNumber checks a required phone field for E.164 plausibility.
func ValidatePhoneNumber(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(s, "US")
	if err != nil {
		return fmt.Errorf("invalid phone number")
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return fmt.Errorf("invalid phone number")
	}

	return nil
}

// ValidateOptionalPhoneNumber unwraps a *string before validating.
func ValidateOptionalPhoneNumber(value any) error {
	s, ok := value.(*string)
	if !ok || s == nil {
		return nil
	}
	return ValidatePhoneNumber(*s)
}
