package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"deskcrm_backend/internal/adapters"
	desksrepo "deskcrm_backend/internal/desks/repository"
	desksservice "deskcrm_backend/internal/desks/service"
	"deskcrm_backend/internal/leads/backfill"
	leadsrepo "deskcrm_backend/internal/leads/repository"
	"deskcrm_backend/internal/scheduler"
	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/db"
	"deskcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	if !cfg.IsSchedulerEnabled() {
		log.Error("REDIS_URL not configured; scheduler cannot start")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	transitions := desksservice.NewTransitions(desksrepo.New(pool), log)
	auditor := backfill.New(leadsrepo.New(pool), adapters.NewDeskGraphLoader(transitions), log)

	worker, err := scheduler.NewWorker(cfg, auditor, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic tasks", "error", err)
		panic("failed to initialize periodic tasks: " + err.Error())
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		periodic.Run(ctx)
	}()

	log.Info("scheduler running", "queue", cfg.GetAsynqQueueName(), "statusAuditCron", cfg.GetStatusAuditCron())
	wg.Wait()
	log.Info("scheduler stopped")
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
