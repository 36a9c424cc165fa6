package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	pkgcron "github.com/reviewinsight/server/internal/pkg/cron"
)

const sweepInterval = 10 * time.Minute

// sweeper drops expired entries from an in-process backend.
type sweeper struct {
	name        string
	description string
	fn          func(ctx context.Context) (int, error)
}

// registerCronJobs schedules one job per in-process backend.
func registerCronJobs(sched *pkgcron.Scheduler, sweepers []sweeper, logger *zap.Logger) {
	cronLogger := logger.Named("cron")
	for _, s := range sweepers {
		s := s
		sched.Register(pkgcron.Job{
			Name:        s.name,
			Description: s.description,
			Interval:    sweepInterval,
			Fn: func(ctx context.Context) error {
				removed, err := s.fn(ctx)
				if err != nil {
					cronLogger.Warn("sweep failed", zap.String("job", s.name), zap.Error(err))
					return err
				}
				if removed > 0 {
					cronLogger.Info("sweep done", zap.String("job", s.name), zap.Int("removed", removed))
				}
				return nil
			},
		})
	}
}
