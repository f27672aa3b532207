// services/scheduler.go
package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// PeriodicJob is a unit of background work run by the scheduler.
type PeriodicJob interface {
	Name() string
	Run(ctx context.Context) error
}

// StartScheduler runs every job each interval until ctx is done. Jobs never
// overlap with themselves.
func StartScheduler(ctx context.Context, interval time.Duration, logger *slog.Logger, jobs ...PeriodicJob) (gocron.Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	for _, job := range jobs {
		job := job
		_, err := sched.NewJob(
			gocron.DurationJob(interval),
			gocron.NewTask(func() {
				started := time.Now()
				if err := job.Run(ctx); err != nil {
					logger.Error("scheduled job failed", "job", job.Name(), "error", err)
					return
				}
				logger.Info("scheduled job finished", "job", job.Name(), "took", time.Since(started).String())
			}),
			gocron.WithName(job.Name()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, err
		}
	}

	sched.Start()

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			logger.Warn("scheduler shutdown", "error", err)
		}
	}()

	return sched, nil
}
