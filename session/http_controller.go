package session

import (
	"context"
	"net/http"
	"strconv"

	roadside "github.com/goliatone/go-roadside"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Routes holds the session endpoint paths.
type Routes struct {
	Collection  string
	Mine        string
	Assigned    string
	Active      string
	Item        string
	Transitions string
	Status      string
	Assign      string
}

// HTTPController exposes the Service over HTTP. Every route expects the
// actor placed in locals by roadside.RouteAuthenticator.
type HTTPController struct {
	Service *Service
	Routes  *Routes
	Logger  roadside.Logger
}

type HTTPControllerOption func(*HTTPController)

func WithHTTPRoutes(routes *Routes) HTTPControllerOption {
	return func(c *HTTPController) {
		if routes != nil {
			c.Routes = routes
		}
	}
}

func WithHTTPLogger(logger roadside.Logger) HTTPControllerOption {
	return func(c *HTTPController) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

func NewHTTPController(svc *Service, opts ...HTTPControllerOption) *HTTPController {
	c := &HTTPController{
		Service: svc,
		Logger:  roadside.DefaultLogger(),
		Routes: &Routes{
			Collection:  "/sessions",
			Mine:        "/sessions/my",
			Assigned:    "/sessions/assigned",
			Active:      "/sessions/active",
			Item:        "/sessions/:id",
			Transitions: "/sessions/:id/transitions",
			Status:      "/sessions/:id/status",
			Assign:      "/sessions/:id/assign",
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.Service == nil {
		panic("Missing Service in session controller...")
	}
	return c
}

// RegisterRoutes mounts every session endpoint behind protected. The fixed
// listing paths are registered before the :id routes.
func (h *HTTPController) RegisterRoutes(r roadside.RouteRegistrar, protected router.MiddlewareFunc) {
	r.Post(h.Routes.Collection, h.Create, protected)
	r.Get(h.Routes.Mine, h.ListMine, protected)
	r.Get(h.Routes.Assigned, h.ListAssigned, protected)
	r.Get(h.Routes.Active, h.ListActive, protected)
	r.Get(h.Routes.Item, h.Get, protected)
	r.Get(h.Routes.Transitions, h.History, protected)
	r.Put(h.Routes.Status, h.UpdateStatus, protected)
	r.Put(h.Routes.Assign, h.AssignOfficer, protected)
	r.Patch(h.Routes.Item, h.UpdateDetails, protected)
	r.Delete(h.Routes.Item, h.Cancel, protected)
}

func (h *HTTPController) Create(ctx router.Context) error {
	actor, err := roadside.RequireRouterActor(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}

	payload := new(CreateRequest)
	if err := ctx.Bind(payload); err != nil {
		return h.fail(ctx, roadside.NewValidationError(err))
	}

	summary, err := h.Service.Create(ctx.Context(), actor, *payload)
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, summary)
}

func (h *HTTPController) ListMine(ctx router.Context) error {
	return h.list(ctx, h.Service.ListMine)
}

func (h *HTTPController) ListAssigned(ctx router.Context) error {
	return h.list(ctx, h.Service.ListAssigned)
}

func (h *HTTPController) ListActive(ctx router.Context) error {
	return h.list(ctx, h.Service.ListActive)
}

func (h *HTTPController) Get(ctx router.Context) error {
	actor, id, err := h.target(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}

	summary, err := h.Service.Get(ctx.Context(), actor, id)
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(router.StatusOK, summary)
}

func (h *HTTPController) History(ctx router.Context) error {
	actor, id, err := h.target(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}

	transitions, err := h.Service.History(ctx.Context(), actor, id)
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(router.StatusOK, transitions)
}

func (h *HTTPController) UpdateStatus(ctx router.Context) error {
	actor, id, err := h.target(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}

	payload := new(StatusRequest)
	if err := ctx.Bind(payload); err != nil {
		return h.fail(ctx, roadside.NewValidationError(err))
	}

	summary, err := h.Service.UpdateStatus(ctx.Context(), actor, id, *payload)
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(router.StatusOK, summary)
}

func (h *HTTPController) AssignOfficer(ctx router.Context) error {
	actor, id, err := h.target(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}

	summary, err := h.Service.AssignOfficer(ctx.Context(), actor, id)
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(router.StatusOK, summary)
}

func (h *HTTPController) UpdateDetails(ctx router.Context) error {
	actor, id, err := h.target(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}

	payload := new(DetailsRequest)
	if err := ctx.Bind(payload); err != nil {
		return h.fail(ctx, roadside.NewValidationError(err))
	}

	summary, err := h.Service.UpdateDetails(ctx.Context(), actor, id, *payload)
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(router.StatusOK, summary)
}

func (h *HTTPController) Cancel(ctx router.Context) error {
	actor, id, err := h.target(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}

	if _, err := h.Service.Cancel(ctx.Context(), actor, id); err != nil {
		return h.fail(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

type lister func(ctx context.Context, actor roadside.Actor, page Page) (PageResult, error)

func (h *HTTPController) list(ctx router.Context, fn lister) error {
	actor, err := roadside.RequireRouterActor(ctx)
	if err != nil {
		return h.fail(ctx, err)
	}

	result, err := fn(ctx.Context(), actor, pageFromQuery(ctx))
	if err != nil {
		return h.fail(ctx, err)
	}
	return ctx.JSON(router.StatusOK, result)
}

// target returns the actor and the :id param. Malformed ids are reported as
// missing sessions.
func (h *HTTPController) target(ctx router.Context) (roadside.Actor, uuid.UUID, error) {
	actor, err := roadside.RequireRouterActor(ctx)
	if err != nil {
		return roadside.Actor{}, uuid.Nil, err
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return roadside.Actor{}, uuid.Nil, roadside.ErrNotFound
	}
	return actor, id, nil
}

func pageFromQuery(ctx router.Context) Page {
	page := Page{}
	if n, err := strconv.Atoi(ctx.Query("page", "")); err == nil {
		page.Number = n
	}
	if n, err := strconv.Atoi(ctx.Query("size", "")); err == nil {
		page.Size = n
	}
	return page.Normalize()
}

func (h *HTTPController) fail(ctx router.Context, err error) error {
	return roadside.WriteError(ctx, h.Logger, err)
}
