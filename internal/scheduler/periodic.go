package scheduler

import (
	"context"
	"fmt"
	"time"

	"deskcrm_backend/platform/config"
	"deskcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Periodic enqueues the status audit on a cron schedule.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
	spec := cfg.GetStatusAuditCron()
	if spec == "" {
		return nil, nil
	}

	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	s := asynq.NewScheduler(opt, &asynq.SchedulerOpts{Location: time.UTC})
	entryID, err := s.Register(spec, NewStatusAuditTask(), asynq.Queue(queueName(cfg)), asynq.Unique(statusAuditUniqueTTL))
	if err != nil {
		return nil, fmt.Errorf("register status audit %q: %w", spec, err)
	}
	log.Info("status audit scheduled", "cron", spec, "entryId", entryID)

	return &Periodic{scheduler: s, log: log}, nil
}

// Run blocks until ctx is done.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}
	if err := p.scheduler.Start(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
		return
	}
	<-ctx.Done()
	p.scheduler.Shutdown()
}
