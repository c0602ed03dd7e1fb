// Package scheduler runs the agent's periodic jobs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job represents a scheduled task.
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks.
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]cron.EntryID
	log  *logrus.Entry
}

// New creates a new scheduler with the given timezone.
func New(timezone string, log *logrus.Entry) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		jobs: make(map[string]cron.EntryID),
		log:  log,
	}, nil
}

// AddDailyJob schedules a job at a fixed local time.
// timeStr format: "07:00" or "18:00"
func (s *Scheduler) AddDailyJob(name, timeStr string, job Job) error {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return fmt.Errorf("invalid time format %s: %w", timeStr, err)
	}

	schedule := fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
	entryID, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		s.log.WithField("job", name).Info("starting job")
		start := time.Now()

		if err := job(ctx); err != nil {
			s.log.WithField("job", name).WithError(err).Warn("job failed")
		} else {
			s.log.WithFields(logrus.Fields{
				"job":  name,
				"took": time.Since(start).String(),
			}).Info("job completed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.log.WithFields(logrus.Fields{"job": name, "schedule": schedule}).Info("job scheduled")
	return nil
}

// RunNow immediately executes a job, outside its schedule.
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s.log.WithField("job", name).Info("running job now")
	return job(ctx)
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once any
// running job finishes.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
