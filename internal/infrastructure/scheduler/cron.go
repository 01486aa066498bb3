package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"ESOAnnouncements/internal/ports"
	stdlogger "ESOAnnouncements/pkg/logger"
)

// CronScheduler triggers a job on a standard five-field cron expression. The
// job also runs once right after Start, and overlapping runs are skipped.
type CronScheduler struct {
	spec     string
	location *time.Location
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler configured via cron expression string.
func NewCronScheduler(spec string, location *time.Location, log *slog.Logger) *CronScheduler {
	if location == nil {
		location = time.UTC
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &CronScheduler{spec: spec, location: location, logger: log}
}

// Start registers the job and begins ticking. Calling Start twice is a no-op.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	schedule, err := cron.ParseStandard(c.spec)
	if err != nil {
		return fmt.Errorf("parse cron expression %q: %w", c.spec, err)
	}

	logger := cron.PrintfLogger(stdlogger.New(c.logger, "cron"))
	wrapped := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		job(time.Now().In(c.location))
	}))

	c.cron = cron.New(cron.WithLocation(c.location), cron.WithLogger(logger))
	c.cron.Schedule(schedule, wrapped)
	c.cron.Start()

	next := schedule.Next(time.Now().In(c.location))
	c.logger.Info("scheduler started", "cron", c.spec, "timezone", c.location.String(), "next_run", next)

	go wrapped.Run()
	return nil
}

// Stop halts the schedule and waits for a running job to finish or ctx to end.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	running := c.cron
	c.cron = nil
	c.mu.Unlock()

	if running == nil {
		return nil
	}

	select {
	case <-running.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
