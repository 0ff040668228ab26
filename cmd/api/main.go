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

	"deskcrm_backend/internal/access"
	"deskcrm_backend/internal/access/cache"
	accessservice "deskcrm_backend/internal/access/service"
	"deskcrm_backend/internal/adapters"
	"deskcrm_backend/internal/auth"
	"deskcrm_backend/internal/desks"
	"deskcrm_backend/internal/events"
	apphttp "deskcrm_backend/internal/http"
	"deskcrm_backend/internal/http/router"
	"deskcrm_backend/internal/leads"
	"deskcrm_backend/internal/scheduler"
	"deskcrm_backend/migrations"
	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/db"
	"deskcrm_backend/platform/logger"
	"deskcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.GetMigrationsEnabled() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool, migrations.FS)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	permCache, closeCache := initPermissionCache(ctx, cfg, log)
	if closeCache != nil {
		defer closeCache()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	accessModule := access.NewModule(pool, permCache, cfg, log)
	accessModule.RegisterHandlers(eventBus)

	desksModule := desks.NewModule(pool, val, log)

	graphLoader := adapters.NewDeskGraphLoader(desksModule.Transitions())
	accessChecker := adapters.NewLeadAccessChecker(accessModule.Engine())
	leadsModule := leads.NewModule(pool, graphLoader, accessChecker, eventBus, val, log)

	authModule := auth.NewModule(pool, cfg, eventBus, val, log)

	stateChanged := events.LeadStateChanged{}.EventName()
	if queue, closeQueue := initTaskQueue(cfg, log); queue != nil {
		defer closeQueue()
		eventBus.Subscribe(stateChanged, adapters.NewLeadEventEnqueuer(queue, leadsModule.Auditor(), log))
	} else {
		eventBus.Subscribe(stateChanged, leadsModule.Auditor())
	}

	app := &apphttp.App{
		Config:         cfg,
		Logger:         log,
		Health:         pool,
		AuthMiddleware: accessModule.AuthMiddleware(),
		Modules: []apphttp.Module{
			authModule,
			accessModule,
			desksModule,
			leadsModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initPermissionCache returns a nil cache when Redis is absent or the TTL is
// disabled; permissions are then resolved on every request.
func initPermissionCache(ctx context.Context, cfg config.AccessConfig, log *logger.Logger) (accessservice.PermissionCache, func()) {
	if cfg.GetRedisURL() == "" || cfg.GetPermissionCacheTTL() <= 0 {
		log.Warn("permission cache disabled; resolving permissions per request")
		return nil, nil
	}

	redisCache, err := cache.NewRedisCache(ctx, cfg.GetRedisURL(), cfg.GetPermissionCacheTTL())
	if err != nil {
		log.Error("failed to initialize permission cache", "error", err)
		return nil, nil
	}

	return redisCache, func() {
		_ = redisCache.Close()
	}
}

func initTaskQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; lead events handled in-process")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
