package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	roadside "github.com/goliatone/go-roadside"
	"github.com/goliatone/go-roadside/activitymap"
	"github.com/goliatone/go-roadside/session"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type App struct {
	opts     roadside.Options
	logger   roadside.Logger
	zap      *zap.Logger
	db       *bun.DB
	redis    *redis.Client
	repo     roadside.RepositoryManager
	auther   *roadside.Auther
	sessions *session.Service
	activity roadside.ActivitySink
	srv      router.Server[*fiber.App]
	metrics  *http.Server
}

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "roadside:", err)
		os.Exit(1)
	}
}

// run owns every resource it opens so the deferred cleanups also cover the
// setup error paths.
func run(ctx context.Context) error {
	opts, err := roadside.LoadOptions(".env")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	zl, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer zl.Sync()

	app := &App{
		opts:   opts,
		zap:    zl,
		logger: roadside.NewZapLogger(zl.Named("roadside")),
	}
	defer app.Close()

	if err := WithPersistence(ctx, app); err != nil {
		app.logger.Error("persistence setup failed", "error", err)
		return err
	}

	if err := WithMetrics(app); err != nil {
		app.logger.Error("metrics setup failed", "error", err)
		return err
	}

	if err := WithServices(ctx, app); err != nil {
		app.logger.Error("service setup failed", "error", err)
		return err
	}

	WithHTTPServer(app)

	serveErr := make(chan error, 1)
	go func() {
		app.logger.Info("http server listening", "addr", opts.HTTPAddr)
		serveErr <- app.srv.Serve(opts.HTTPAddr)
	}()

	select {
	case sig := <-WaitExitSignal():
		app.logger.Info("shutting down", "signal", sig.String())
	case err := <-serveErr:
		if err != nil {
			app.logger.Error("http server stopped", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return app.Shutdown(shutdownCtx)
}

// Shutdown stops the listeners. Open stores are released by Close.
func (app *App) Shutdown(ctx context.Context) error {
	var errs []error
	if app.srv != nil {
		if err := app.srv.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if app.metrics != nil {
		if err := app.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Close releases the database and redis clients. Safe on a partial App.
func (app *App) Close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("redis close failed", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("database close failed", "error", err)
		}
	}
}

func WithPersistence(ctx context.Context, app *App) error {
	models := append(roadside.AllModels(), session.AllModels()...)
	db, err := roadside.OpenMigratedDB(ctx, roadside.PersistenceConfig{
		DSN:   app.opts.DatabaseURL,
		Debug: app.opts.DatabaseDebug,
	}, models...)
	if err != nil {
		return err
	}
	app.db = db

	var managerOpts []roadside.ManagerOption
	switch app.opts.RefreshStore {
	case roadside.RefreshStoreSQL:
		managerOpts = append(managerOpts, roadside.WithRefreshTokenStore(roadside.NewSQLRefreshTokenStore()))
	case roadside.RefreshStoreRedis:
		client := redis.NewClient(&redis.Options{Addr: app.opts.RedisAddr})
		app.redis = client
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		managerOpts = append(managerOpts, roadside.WithRefreshTokenStore(roadside.NewRedisRefreshTokenStore(client, "roadside:refresh:")))
	}

	app.repo = roadside.NewRepositoryManager(db, managerOpts...)
	app.repo.MustValidate()

	app.logger.Info("persistence ready", "refresh_store", app.opts.RefreshStore)
	return nil
}

// WithMetrics registers the activity counters and, when an address is
// configured, serves them on a dedicated listener.
func WithMetrics(app *App) error {
	sink, err := roadside.NewMetricsSink(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	app.activity = roadside.MultiActivitySink{
		sink,
		activitymap.LogSink(roadside.NewZapLogger(app.zap.Named("audit"))),
	}

	if app.opts.MetricsAddr == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	app.metrics = &http.Server{
		Addr:              app.opts.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		app.logger.Info("metrics listening", "addr", app.opts.MetricsAddr)
		if err := app.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server stopped", "error", err)
		}
	}()
	return nil
}

func WithServices(_ context.Context, app *App) error {
	tokens := roadside.NewTokenService(app.opts,
		roadside.WithTokenLogger(roadside.NewZapLogger(app.zap.Named("tokens"))),
	)

	app.auther = roadside.NewAuther(app.repo, tokens, app.opts,
		roadside.WithAutherLogger(roadside.NewZapLogger(app.zap.Named("auth"))),
		roadside.WithAutherActivitySink(app.activity),
	)

	app.sessions = session.NewService(
		session.NewStore(app.db),
		app.repo.Users(),
		session.WithServiceLogger(roadside.NewZapLogger(app.zap.Named("sessions"))),
		session.WithServiceActivitySink(app.activity),
	)
	return nil
}

func WithHTTPServer(app *App) {
	app.srv = router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: false,
			StrictRouting:     false,
		}))
	})

	r := app.srv.Router()
	r.Get("/healthz", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]string{"status": "ok"})
	})

	guard := roadside.NewRouteAuthenticator(app.auther, app.opts)
	guard.Logger = roadside.NewZapLogger(app.zap.Named("http"))
	protected := guard.Protected()

	roadside.NewAuthController(app.auther, app.opts,
		roadside.WithAuthControllerLogger(guard.Logger),
	).RegisterRoutes(r, protected)

	session.NewHTTPController(app.sessions,
		session.WithHTTPLogger(guard.Logger),
	).RegisterRoutes(r, protected)
}

// WaitExitSignal returns a channel that receives the first exit signal.
func WaitExitSignal() <-chan os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return ch
}
