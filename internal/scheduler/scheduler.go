// Package scheduler runs the daily scrape jobs on a cron schedule.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// jobTimeout bounds a single scheduled run.
const jobTimeout = 10 * time.Minute

// Scheduler wraps a cron runner configured for the exchange's timezone.
type Scheduler struct {
	cron *cron.Cron
}

// New creates a scheduler in the given timezone, falling back to UTC when
// the zone cannot be loaded.
func New(timeZone string) *Scheduler {
	var opts []cron.Option
	if timeZone != "" {
		loc, err := time.LoadLocation(timeZone)
		if err == nil {
			opts = append(opts, cron.WithLocation(loc))
		} else {
			log.Printf("failed to load timezone %s, using UTC: %v", timeZone, err)
		}
	}
	return &Scheduler{cron: cron.New(opts...)}
}

// Add registers a named job on the given cron spec.
func (s *Scheduler) Add(spec, name string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		log.Printf("running scheduled job %s", name)
		if err := job(ctx); err != nil {
			log.Printf("scheduled job %s failed: %v", name, err)
		}
	})
	return err
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
