package core

// scheduler.go runs the housekeeping jobs on cron schedules:
//  1. purge reviewed registration requests past the retention period
//  2. purge reset tokens that are used or expired
//
// A failing run is logged and retried at the next tick; it never stops the
// scheduler.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single housekeeping run.
const jobTimeout = 2 * time.Minute

// Housekeeping owns the cron runner for cleanup jobs.
type Housekeeping struct {
	cron *cron.Cron
}

// StartHousekeeping registers the cleanup jobs and starts the scheduler.
// Stop the returned Housekeeping on shutdown.
func (s *Service) StartHousekeeping() (*Housekeeping, error) {
	hk := s.cfg.Housekeeping
	loc, err := time.LoadLocation(hk.Timezone)
	if err != nil {
		return nil, fmt.Errorf("housekeeping timezone: %w", err)
	}

	c := cron.New(cron.WithLocation(loc))
	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context) (int64, error)
	}{
		{"registration_cleanup", hk.RegistrationSchedule, s.purgeRegistrations},
		{"reset_token_purge", hk.ResetTokenSchedule, s.purgeResetTokens},
	}
	for _, job := range jobs {
		if _, err := c.AddFunc(job.schedule, func() { s.runJob(job.name, job.run) }); err != nil {
			return nil, fmt.Errorf("schedule %s %q: %w", job.name, job.schedule, err)
		}
	}

	c.Start()
	slog.Info("housekeeping scheduler started",
		"timezone", hk.Timezone,
		"registration_schedule", hk.RegistrationSchedule,
		"reset_token_schedule", hk.ResetTokenSchedule,
		"retention_days", hk.RetentionDays,
	)
	return &Housekeeping{cron: c}, nil
}

func (s *Service) runJob(name string, run func(context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	n, err := run(ctx)
	if err != nil {
		slog.Error("housekeeping job failed", "job", name, "error", err)
		return
	}
	slog.Info("housekeeping job completed",
		"job", name,
		"rows_removed", n,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Stop prevents further runs and waits for a running job, or ctx, to end.
func (h *Housekeeping) Stop(ctx context.Context) {
	done := h.cron.Stop()
	select {
	case <-done.Done():
		slog.Info("housekeeping scheduler stopped")
	case <-ctx.Done():
		slog.Warn("housekeeping job still running at shutdown")
	}
}
