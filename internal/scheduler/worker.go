package scheduler

import (
	"context"
	"fmt"

	"deskcrm_backend/internal/leads/backfill"
	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// StatusAuditor is the part of the lead status auditor the worker drives.
type StatusAuditor interface {
	Scan(ctx context.Context) (backfill.ScanReport, error)
	ResolveLead(ctx context.Context, leadID uuid.UUID) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	auditor StatusAuditor
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, auditor StatusAuditor, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(auditor, log)
	w.server = server
	return w, nil
}

func newWorker(auditor StatusAuditor, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		mux:     mux,
		auditor: auditor,
		log:     log,
	}

	mux.HandleFunc(TaskLeadStateChanged, w.handleLeadStateChanged)
	mux.HandleFunc(TaskStatusAudit, w.handleStatusAudit)
	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadStateChanged(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadStateChangedPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("invalid lead id %q: %w", payload.LeadID, asynq.SkipRetry)
	}

	return w.auditor.ResolveLead(ctx, leadID)
}

func (w *Worker) handleStatusAudit(ctx context.Context, _ *asynq.Task) error {
	report, err := w.auditor.Scan(ctx)
	if err != nil {
		w.log.Error("lead status audit failed", "error", err)
		return err
	}
	if report.Flagged > 0 {
		w.log.Warn("lead status audit found unresolved leads", "flagged", report.Flagged)
	}
	return nil
}
