package roadside

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// ActorResolver turns an access token into an Actor.
type ActorResolver interface {
	ResolveActor(ctx context.Context, accessToken string) (Actor, error)
}

type cookieWriter struct {
	ctx      router.Context
	name     string
	secure   bool
	sameSite string
	now      func() time.Time
}

// NewCookieWriter delivers the access token as an http-only cookie scoped
// to the whole site.
func NewCookieWriter(c router.Context, cfg Config) CredentialWriter {
	sameSite := cfg.GetCookieSameSite()
	if sameSite == "" {
		sameSite = "Lax"
	}
	return &cookieWriter{
		ctx:      c,
		name:     cfg.GetCookieName(),
		secure:   cfg.GetCookieSecure(),
		sameSite: sameSite,
		now:      time.Now,
	}
}

func (w *cookieWriter) SetAccessToken(token string, maxAge time.Duration) {
	w.ctx.Cookie(&router.Cookie{
		Name:     w.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Expires:  w.now().Add(maxAge),
		HTTPOnly: true,
		Secure:   w.secure,
		SameSite: w.sameSite,
	})
}

func (w *cookieWriter) ClearAccessToken() {
	w.ctx.Cookie(&router.Cookie{
		Name:     w.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  w.now().Add(-24 * time.Hour),
		HTTPOnly: true,
		Secure:   w.secure,
		SameSite: w.sameSite,
	})
}

// RouteAuthenticator guards routes with access tokens.
type RouteAuthenticator struct {
	resolver ActorResolver
	cfg      Config
	Logger   Logger
}

func NewRouteAuthenticator(resolver ActorResolver, cfg Config) *RouteAuthenticator {
	return &RouteAuthenticator{
		resolver: resolver,
		cfg:      cfg,
		Logger:   defLogger,
	}
}

// Protected rejects requests without a valid access token. The bearer
// header wins over the cookie.
func (a *RouteAuthenticator) Protected() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			token := ExtractBearerToken(c.Header(router.HeaderAuthorization))
			if token == "" {
				token = c.Cookies(a.cfg.GetCookieName())
			}
			if token == "" {
				return WriteError(c, a.Logger, ErrUnauthenticated)
			}

			actor, err := a.resolver.ResolveActor(c.Context(), token)
			if err != nil {
				return WriteError(c, a.Logger, err)
			}

			SetRouterActor(c, actor)
			return next(c)
		}
	}
}

// ExtractBearerToken returns the token of an "Authorization: Bearer" header.
func ExtractBearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// ErrorBody is the JSON shape of error responses.
type ErrorBody struct {
	Error    string         `json:"error"`
	Code     string         `json:"code,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ErrorStatus maps err to its HTTP status and body.
func ErrorStatus(err error) (int, ErrorBody) {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	code := richErr.Code
	if code == 0 {
		code = router.StatusInternalServerError
	}

	body := ErrorBody{Error: richErr.Message, Code: richErr.TextCode}
	if code < router.StatusInternalServerError {
		body.Metadata = richErr.Metadata
	}
	return code, body
}

// WriteError renders err as JSON with the mapped status.
func WriteError(c router.Context, logger Logger, err error) error {
	code, body := ErrorStatus(err)
	logger = resolveLogger(logger)
	if code >= router.StatusInternalServerError {
		logger.Error("request failed", "error", err, "code", code)
	} else {
		logger.Debug("request rejected",
			"error", body.Error,
			"text_code", body.Code,
			"details", print.MaybePrettyJSON(body.Metadata),
		)
	}
	return c.JSON(code, body)
}
