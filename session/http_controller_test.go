package session_test

import (
	"math"
	"net/http"
	"strconv"
	"testing"

	roadside "github.com/goliatone/go-roadside"
	"github.com/goliatone/go-roadside/session"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHTTPControllerGet(t *testing.T) {
	env := newTestEnv(t)
	driver := env.user(t, "a@x.com", roadside.RoleDriver, "Ada", "Driver")
	s := env.create(t, driver, "123 Main St")
	controller := session.NewHTTPController(env.svc)

	ctx := newMockContext(driver)
	ctx.On("Param", "id").Return(s.ID.String())

	var payload session.Summary
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(session.Summary)
	}).Return(nil)

	require.NoError(t, controller.Get(ctx))
	assert.Equal(t, s.ID, payload.ID)
	assert.Equal(t, "123 Main St", payload.Address)
}

func TestHTTPControllerMapsErrors(t *testing.T) {
	env := newTestEnv(t)
	driver := env.user(t, "a@x.com", roadside.RoleDriver, "Ada", "Driver")
	stranger := env.user(t, "c@x.com", roadside.RoleDriver, "Cy", "Stranger")
	s := env.create(t, driver, "123 Main St")
	controller := session.NewHTTPController(env.svc)

	cases := []struct {
		name  string
		actor roadside.Actor
		id    string
		err   error
	}{
		{"anonymous", roadside.Actor{}, s.ID.String(), roadside.ErrUnauthenticated},
		{"malformed id", driver, "not-a-uuid", roadside.ErrNotFound},
		{"stranger", stranger, s.ID.String(), roadside.ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectedCode, expectedBody := roadside.ErrorStatus(tc.err)

			ctx := newMockContext(tc.actor)
			ctx.On("Param", "id").Return(tc.id).Maybe()

			var body roadside.ErrorBody
			ctx.On("JSON", expectedCode, mock.Anything).Run(func(args mock.Arguments) {
				body = args.Get(1).(roadside.ErrorBody)
			}).Return(nil)

			require.NoError(t, controller.Get(ctx))
			assert.Equal(t, expectedBody.Code, body.Code)
			ctx.AssertExpectations(t)
		})
	}
}

func TestHTTPControllerListMineReadsPaging(t *testing.T) {
	env := newTestEnv(t)
	driver := env.user(t, "a@x.com", roadside.RoleDriver, "Ada", "Driver")
	env.create(t, driver, "1 First St")
	env.create(t, driver, "2 Second St")
	env.create(t, driver, "3 Third St")
	controller := session.NewHTTPController(env.svc)

	ctx := newMockContext(driver)
	ctx.On("Query", "page", "").Return("1")
	ctx.On("Query", "size", "").Return("2")

	var payload session.PageResult
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(session.PageResult)
	}).Return(nil)

	require.NoError(t, controller.ListMine(ctx))
	ctx.AssertExpectations(t)
	assert.Equal(t, 3, payload.Total)
	assert.Equal(t, 1, payload.Page)
	assert.Equal(t, 2, payload.Size)
	require.Len(t, payload.Items, 1)
	assert.Equal(t, "1 First St", payload.Items[0].Address)
}

func TestHTTPControllerUpdateStatusBindsPayload(t *testing.T) {
	env := newTestEnv(t)
	driver := env.user(t, "a@x.com", roadside.RoleDriver, "Ada", "Driver")
	s := env.create(t, driver, "123 Main St")
	controller := session.NewHTTPController(env.svc)

	ctx := newMockContext(driver)
	ctx.On("Param", "id").Return(s.ID.String())
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(0).(*session.StatusRequest)
		req.Status = "cancelled"
		req.Reason = "wrong car"
	}).Return(nil)

	var payload session.Summary
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(session.Summary)
	}).Return(nil)

	require.NoError(t, controller.UpdateStatus(ctx))
	assert.Equal(t, session.StatusCancelled, payload.Status)

	history, err := env.svc.History(env.ctx, driver, s.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "wrong car", history[1].Reason)
}

func TestHTTPControllerCancelReturnsNoContent(t *testing.T) {
	env := newTestEnv(t)
	driver := env.user(t, "a@x.com", roadside.RoleDriver, "Ada", "Driver")
	s := env.create(t, driver, "123 Main St")
	controller := session.NewHTTPController(env.svc)

	ctx := newMockContext(driver)
	ctx.On("Param", "id").Return(s.ID.String())
	ctx.On("NoContent", http.StatusNoContent).Return(nil)

	require.NoError(t, controller.Cancel(ctx))
	ctx.AssertExpectations(t)

	got, err := env.svc.Get(env.ctx, driver, s.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StatusCancelled, got.Status)
}

func TestHTTPControllerCreate(t *testing.T) {
	env := newTestEnv(t)
	driver := env.user(t, "a@x.com", roadside.RoleDriver, "Ada", "Driver")
	controller := session.NewHTTPController(env.svc)

	ctx := newMockContext(driver)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		req := args.Get(0).(*session.CreateRequest)
		req.Address = "123 Main St"
	}).Return(nil)

	var payload session.Summary
	ctx.On("JSON", http.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(session.Summary)
	}).Return(nil)

	require.NoError(t, controller.Create(ctx))
	assert.Equal(t, session.StatusCreated, payload.Status)
	assert.Equal(t, driver.ID, payload.DriverID)
}

func TestHTTPControllerListMineClampsHugePage(t *testing.T) {
	env := newTestEnv(t)
	driver := env.user(t, "a@x.com", roadside.RoleDriver, "Ada", "Driver")
	env.create(t, driver, "1 First St")
	controller := session.NewHTTPController(env.svc)

	ctx := newMockContext(driver)
	ctx.On("Query", "page", "").Return(strconv.Itoa(math.MaxInt))
	ctx.On("Query", "size", "").Return("100")

	var payload session.PageResult
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(session.PageResult)
	}).Return(nil)

	require.NoError(t, controller.ListMine(ctx))
	assert.Equal(t, session.MaxPageNumber, payload.Page)
	assert.Equal(t, 1, payload.Total)
	assert.Empty(t, payload.Items)
}
