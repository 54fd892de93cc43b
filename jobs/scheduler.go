// Package jobs runs the periodic housekeeping tasks.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ImageCleaner is the image cache's eviction pass.
type ImageCleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// NotificationPruner deletes inbox rows older than maxAge.
type NotificationPruner interface {
	Prune(maxAge time.Duration) (int64, error)
}

// LimiterSweeper drops idle rate limit buckets.
type LimiterSweeper interface {
	Sweep(idle time.Duration) int
}

type Config struct {
	ImageCleanupSpec      string
	NotificationPruneSpec string
	NotificationMaxAge    time.Duration
	JobTimeout            time.Duration
}

type Scheduler struct {
	cron *cron.Cron
	log  logrus.FieldLogger
	cfg  Config
}

func NewScheduler(cfg Config, log logrus.FieldLogger) *Scheduler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger)))
	return &Scheduler{cron: c, log: log, cfg: cfg}
}

// Register adds every job whose dependency is non-nil; all limiters share one sweep job.
func (s *Scheduler) Register(images ImageCleaner, inbox NotificationPruner, limiters ...LimiterSweeper) error {
	if images != nil && s.cfg.ImageCleanupSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.ImageCleanupSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
			defer cancel()
			n, err := images.Cleanup(ctx)
			s.report("image_cache_cleanup", int64(n), err)
		}); err != nil {
			return err
		}
	}
	if inbox != nil && s.cfg.NotificationPruneSpec != "" && s.cfg.NotificationMaxAge > 0 {
		if _, err := s.cron.AddFunc(s.cfg.NotificationPruneSpec, func() {
			n, err := inbox.Prune(s.cfg.NotificationMaxAge)
			s.report("notification_prune", n, err)
		}); err != nil {
			return err
		}
	}
	var sweepers []LimiterSweeper
	for _, l := range limiters {
		if l != nil {
			sweepers = append(sweepers, l)
		}
	}
	if len(sweepers) > 0 {
		if _, err := s.cron.AddFunc("@every 10m", func() {
			removed := 0
			for _, l := range sweepers {
				removed += l.Sweep(30 * time.Minute)
			}
			s.report("rate_limiter_sweep", int64(removed), nil)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) report(job string, n int64, err error) {
	entry := s.log.WithFields(logrus.Fields{"job": job, "affected": n})
	if err != nil {
		entry.WithError(err).Error("job failed")
		return
	}
	entry.Debug("job done")
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// Entries is the number of scheduled jobs.
func (s *Scheduler) Entries() int { return len(s.cron.Entries()) }
