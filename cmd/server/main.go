package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-progress/internal/api"
	"github.com/p-n-ai/pai-progress/internal/catalog"
	"github.com/p-n-ai/pai-progress/internal/learning"
	"github.com/p-n-ai/pai-progress/internal/notify"
	"github.com/p-n-ai/pai-progress/internal/platform/cache"
	"github.com/p-n-ai/pai-progress/internal/platform/config"
	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	sync, err := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer sync()

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	go reloadCatalogOnHangup(ctx, a.catalog)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Mode, "cache", cfg.HasCache())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	// Notification streams are hijacked connections that Shutdown does not wait for.
	a.notifications.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app holds the wired components and the resources to release on exit.
type app struct {
	handler       http.Handler
	catalog       *catalog.Loader
	notifications *notify.Gateway
	closers       []func()
}

// newApp wires storage, cache, catalog, service and HTTP handler from cfg.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	loader, err := catalog.NewLoader(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	a.catalog = loader

	checks := map[string]api.HealthChecker{}

	var (
		repo   learning.Repository
		events learning.EventLogger = learning.NopEventLogger{}
	)
	if cfg.UsesPostgres() {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		if cfg.Database.Migrate {
			if err := db.Migrate(ctx); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrating database: %w", err)
			}
		}

		store, err := learning.NewPostgresStore(db.Pool, loader)
		if err != nil {
			a.Close()
			return nil, err
		}
		repo = store
		events = learning.NewPostgresEventLogger(db.Pool)
		checks["database"] = db
	} else {
		repo = learning.NewMemoryStore(loader)
	}

	var (
		locker   learning.Locker = cache.NewLocalLocker()
		profiles learning.ProfileCache
	)
	if cfg.HasCache() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })

		locker = cache.NewRedisLocker(c, cfg.Gamification.LockTTL)
		profiles = cache.NewProfileCache(c, cfg.Gamification.ProfileCacheTTL)
		checks["cache"] = c
	}

	a.notifications = notify.NewGateway(0)
	a.closers = append(a.closers, a.notifications.Close)

	svc := learning.NewService(learning.ServiceConfig{
		Repository: repo,
		Catalog:    loader,
		Locker:     locker,
		Profiles:   profiles,
		Notifier:   a.notifications,
		Events:     events,
	})

	a.handler = api.NewServer(api.Config{
		Service:       svc,
		Notifications: a.notifications,
		Checks:        checks,
	})
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// reloadCatalogOnHangup rereads the catalog on SIGHUP until ctx is done.
func reloadCatalogOnHangup(ctx context.Context, loader *catalog.Loader) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := loader.Reload(); err != nil {
				slog.Error("catalog reload failed, keeping previous catalog", "error", err)
			}
		}
	}
}
