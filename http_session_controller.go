package identity

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-router"
)

// RegisterSessionRoutes mounts the credential session surface: login, logout,
// and signup. Profile routes live in RegisterIdentityRoutes.
func RegisterSessionRoutes[T any](app router.Router[T], opts ...SessionControllerOption) {
	controller := NewSessionController(opts...)

	app.Post("/auth/login", controller.Login).SetName("auth.login")
	app.Post("/auth/logout", controller.Logout).SetName("auth.logout")
	app.Post("/auth/signup", controller.Signup).SetName("auth.signup")
}

type SessionController struct {
	Logger       Logger
	Session      *SessionContext
	Auther       *RouteAuthenticator
	ErrorHandler router.ErrorHandler
}

type SessionControllerOption func(*SessionController) *SessionController

func WithSessionControllerSession(session *SessionContext) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Session = session
		return c
	}
}

func WithSessionControllerAuther(auther *RouteAuthenticator) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		c.Auther = auther
		return c
	}
}

func WithSessionControllerLogger(l Logger) SessionControllerOption {
	return func(c *SessionController) *SessionController {
		if l != nil {
			c.Logger = l
		}
		return c
	}
}

func NewSessionController(opts ...SessionControllerOption) *SessionController {
	c := &SessionController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Session == nil {
		panic("Missing SessionContext in session controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in session controller...")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.Auther.ErrorHandler
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// Login authenticates credentials and sets the session cookie. The response
// carries the snapshot flags the client needs to route the user.
func (a *SessionController) Login(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	if err := a.Auther.Login(ctx, payload.Email, payload.Password); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusOK, a.snapshotResponse())
}

// Logout tears down the session and expires the cookie.
func (a *SessionController) Logout(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(http.StatusNoContent, nil)
}

// SignupRequest payload. Role is the self-assignable role choice; the admin
// role is rejected here.
type SignupRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
	Name     string `form:"name" json:"name"`
	Role     string `form:"role" json:"role"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(8, 128),
		),
		validation.Field(
			&r.Name,
			validation.Required,
			validation.Length(1, 120),
		),
		validation.Field(
			&r.Role,
			validation.Required,
			validation.In(string(RoleBuyer), string(RoleSeller)),
		),
	)
}

// Signup creates an identity and its profile in one flow. The account still
// needs email verification before it can log in.
func (a *SessionController) Signup(ctx router.Context) error {
	payload := new(SignupRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, router.ViewContext{
			"validation": FormatValidationErrorToMap(err),
		})
	}

	role, ok := ParseRole(payload.Role)
	if !ok {
		return a.ErrorHandler(ctx, ErrRoleRequired)
	}

	if err := a.Session.Register(ctx.Context(), payload.Email, payload.Password, payload.Name, role); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, a.snapshotResponse())
}

func (a *SessionController) snapshotResponse() router.ViewContext {
	snap := a.Session.Snapshot()

	out := router.ViewContext{
		"authenticated":        snap.Authenticated(),
		"needs_role_selection": snap.NeedsRoleSelection(),
		"pending_approval":     snap.PendingApproval(),
	}
	if snap.Profile != nil {
		out["profile"] = snap.Profile
	}

	return out
}
