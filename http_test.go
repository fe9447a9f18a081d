package roadside_test

import (
	"context"
	"testing"
	"time"

	roadside "github.com/goliatone/go-roadside"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolveActor(ctx context.Context, token string) (roadside.Actor, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(roadside.Actor), args.Error(1)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header   string
		expected string
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi"},
		{"bearer   abc.def.ghi ", "abc.def.ghi"},
		{"Basic dXNlcjpwYXNz", ""},
		{"Bearer", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, roadside.ExtractBearerToken(tt.header), tt.header)
	}
}

func TestCookieWriter(t *testing.T) {
	opts := testOptions()
	opts.CookieSecure = true

	ctx := new(MockContext)
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "roadside_access" && c.Value == "jwt-token" &&
			c.HTTPOnly && c.Secure && c.SameSite == "Lax" && c.Path == "/" &&
			c.MaxAge == 60 && c.Expires.After(time.Now())
	})).Return().Once()
	ctx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == "roadside_access" && c.Value == "" &&
			c.MaxAge == -1 && c.Expires.Before(time.Now())
	})).Return().Once()

	w := roadside.NewCookieWriter(ctx, opts)
	w.SetAccessToken("jwt-token", time.Minute)
	w.ClearAccessToken()

	ctx.AssertExpectations(t)
}

func TestProtectedPrefersBearerHeader(t *testing.T) {
	opts := testOptions()
	actor := roadside.Actor{ID: uuid.New(), Role: roadside.RoleDriver}

	resolver := new(MockResolver)
	resolver.On("ResolveActor", mock.Anything, "header-token").Return(actor, nil).Once()

	ctx := new(MockContext)
	ctx.On("Header", router.HeaderAuthorization).Return("Bearer header-token")
	ctx.On("Context").Return(context.Background())
	ctx.On("Locals", roadside.ActorLocalsKey, actor).Return(nil).Once()
	ctx.On("Locals", roadside.ActorLocalsKey).Return(actor)

	var seen roadside.Actor
	handler := roadside.NewRouteAuthenticator(resolver, opts).Protected()(func(c router.Context) error {
		var err error
		seen, err = roadside.RequireRouterActor(c)
		return err
	})

	require.NoError(t, handler(ctx))
	assert.Equal(t, actor, seen)
	resolver.AssertExpectations(t)
	ctx.AssertExpectations(t)
	ctx.AssertNotCalled(t, "Cookies", opts.CookieName)
}

func TestProtectedFallsBackToCookie(t *testing.T) {
	opts := testOptions()
	actor := roadside.Actor{ID: uuid.New(), Role: roadside.RoleOfficer}

	resolver := new(MockResolver)
	resolver.On("ResolveActor", mock.Anything, "cookie-token").Return(actor, nil).Once()

	ctx := new(MockContext)
	ctx.On("Header", router.HeaderAuthorization).Return("")
	ctx.On("Cookies", opts.CookieName).Return("cookie-token")
	ctx.On("Context").Return(context.Background())
	ctx.On("Locals", roadside.ActorLocalsKey, actor).Return(nil).Once()

	called := false
	handler := roadside.NewRouteAuthenticator(resolver, opts).Protected()(func(c router.Context) error {
		called = true
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.True(t, called)
	resolver.AssertExpectations(t)
	ctx.AssertExpectations(t)
}

func TestProtectedRejectsMissingToken(t *testing.T) {
	opts := testOptions()
	resolver := new(MockResolver)
	code, _ := roadside.ErrorStatus(roadside.ErrUnauthenticated)

	ctx := new(MockContext)
	ctx.On("Header", router.HeaderAuthorization).Return("")
	ctx.On("Cookies", opts.CookieName).Return("")
	ctx.On("JSON", code, mock.Anything).Return(nil).Once()

	called := false
	handler := roadside.NewRouteAuthenticator(resolver, opts).Protected()(func(c router.Context) error {
		called = true
		return nil
	})

	require.NoError(t, handler(ctx))
	assert.False(t, called)
	resolver.AssertNotCalled(t, "ResolveActor", mock.Anything, mock.Anything)
	ctx.AssertExpectations(t)
}

func TestProtectedRejectsInvalidToken(t *testing.T) {
	opts := testOptions()
	resolver := new(MockResolver)
	resolver.On("ResolveActor", mock.Anything, "stale").Return(roadside.Actor{}, roadside.ErrTokenExpired).Once()
	code, _ := roadside.ErrorStatus(roadside.ErrTokenExpired)

	ctx := new(MockContext)
	ctx.On("Header", router.HeaderAuthorization).Return("Bearer stale")
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", code, mock.MatchedBy(func(body roadside.ErrorBody) bool {
		return body.Code == roadside.TextCodeTokenExpired
	})).Return(nil).Once()

	handler := roadside.NewRouteAuthenticator(resolver, opts).Protected()(func(c router.Context) error {
		t.Fatal("handler must not run")
		return nil
	})

	require.NoError(t, handler(ctx))
	ctx.AssertExpectations(t)
	ctx.AssertNotCalled(t, "Locals", roadside.ActorLocalsKey, mock.Anything)
}
