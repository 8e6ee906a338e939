package revocation

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSweepSchedule runs the purge once an hour.
const DefaultSweepSchedule = "@every 1h"

// Sweeper periodically deletes revocation records past retention.
type Sweeper struct {
	purger    Purger
	retention time.Duration
	log       logrus.FieldLogger
	cron      *cron.Cron
	timeout   time.Duration
}

func NewSweeper(purger Purger, retention time.Duration, log logrus.FieldLogger) *Sweeper {
	return &Sweeper{
		purger:    purger,
		retention: retention,
		log:       log,
		cron:      cron.New(),
		timeout:   time.Minute,
	}
}

// Start schedules RunOnce on the given cron spec and starts the scheduler.
func (s *Sweeper) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.WithField("schedule", spec).Info("revocation sweeper started")
	return nil
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.purger.PurgeExpired(ctx, s.retention)
	if err != nil {
		s.log.WithError(err).Error("revocation purge failed")
		return 0, err
	}
	s.log.WithField("removed", n).Debug("revocation purge completed")
	return n, nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (s *Sweeper) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
