package roadside

import (
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar is the subset of router.Router the controllers need.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// AuthControllerRoutes holds the auth endpoint paths.
type AuthControllerRoutes struct {
	Register   string
	Login      string
	Refresh    string
	Logout     string
	Me         string
	Deactivate string
}

// AuthController exposes the Auther over HTTP.
type AuthController struct {
	Auther *Auther
	Config Config
	Routes *AuthControllerRoutes
	Logger Logger
}

type AuthControllerOption func(*AuthController)

func WithAuthControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) {
		if routes != nil {
			c.Routes = routes
		}
	}
}

func WithAuthControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func NewAuthController(auther *Auther, cfg Config, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Auther: auther,
		Config: cfg,
		Logger: defLogger,
		Routes: &AuthControllerRoutes{
			Register:   "/auth/register",
			Login:      "/auth/login",
			Refresh:    "/auth/refresh",
			Logout:     "/auth/logout",
			Me:         "/auth/me",
			Deactivate: "/users/:id",
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.Auther == nil {
		panic("Missing Auther in auth controller...")
	}
	return c
}

// RegisterRoutes mounts the auth endpoints. protected guards /me and the
// admin endpoint.
func (a *AuthController) RegisterRoutes(r RouteRegistrar, protected router.MiddlewareFunc) {
	r.Post(a.Routes.Register, a.Register)
	r.Post(a.Routes.Login, a.Login)
	r.Post(a.Routes.Refresh, a.Refresh)
	r.Post(a.Routes.Logout, a.Logout)
	r.Get(a.Routes.Me, a.Me, protected)
	r.Delete(a.Routes.Deactivate, a.Deactivate, protected)
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, a.Logger, NewValidationError(err))
	}

	resp, err := a.Auther.Register(ctx.Context(), NewCookieWriter(ctx, a.Config), *payload)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}
	return ctx.JSON(http.StatusCreated, resp)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, a.Logger, NewValidationError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, a.Logger, NewValidationError(err))
	}

	resp, err := a.Auther.Authenticate(ctx.Context(), NewCookieWriter(ctx, a.Config), payload.Email, payload.Password)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}
	return ctx.JSON(router.StatusOK, resp)
}

func (a *AuthController) Refresh(ctx router.Context) error {
	payload := new(RefreshRequest)
	if err := ctx.Bind(payload); err != nil {
		return WriteError(ctx, a.Logger, NewValidationError(err))
	}
	if err := payload.Validate(); err != nil {
		return WriteError(ctx, a.Logger, NewValidationError(err))
	}

	resp, err := a.Auther.Refresh(ctx.Context(), NewCookieWriter(ctx, a.Config), payload.RefreshToken)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}
	return ctx.JSON(router.StatusOK, resp)
}

// Logout accepts an optional refresh token in the body.
func (a *AuthController) Logout(ctx router.Context) error {
	payload := new(RefreshRequest)
	_ = ctx.Bind(payload)

	if err := a.Auther.Logout(ctx.Context(), NewCookieWriter(ctx, a.Config), payload.RefreshToken); err != nil {
		return WriteError(ctx, a.Logger, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (a *AuthController) Me(ctx router.Context) error {
	actor, err := RequireRouterActor(ctx)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	summary, err := a.Auther.CurrentUser(ctx.Context(), actor)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}
	return ctx.JSON(router.StatusOK, summary)
}

func (a *AuthController) Deactivate(ctx router.Context) error {
	actor, err := RequireRouterActor(ctx)
	if err != nil {
		return WriteError(ctx, a.Logger, err)
	}

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return WriteError(ctx, a.Logger, ErrNotFound)
	}

	if err := a.Auther.DeactivateUser(ctx.Context(), actor, id); err != nil {
		return WriteError(ctx, a.Logger, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}
