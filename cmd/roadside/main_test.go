package main

import (
	"context"
	"net/http"
	"testing"
	"time"

	roadside "github.com/goliatone/go-roadside"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppCloseReleasesPartialSetup(t *testing.T) {
	db, err := roadside.OpenDB(":memory:")
	require.NoError(t, err)

	app := &App{logger: roadside.DefaultLogger(), db: db}
	app.Close()

	assert.Error(t, db.PingContext(context.Background()))

	empty := &App{logger: roadside.DefaultLogger()}
	assert.NotPanics(t, empty.Close)
}

func TestAppShutdownToleratesMissingServers(t *testing.T) {
	app := &App{
		logger: roadside.DefaultLogger(),
		metrics: &http.Server{
			Addr:              "127.0.0.1:0",
			ReadHeaderTimeout: time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Shutdown(ctx))
}
