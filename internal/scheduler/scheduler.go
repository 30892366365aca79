// Package scheduler wires up the cron jobs that periodically run the
// refresh, the watched-removal sweep and the played-status sync. Jobs
// share one mutex: the data files have no concurrency story, so no two
// operations ever overlap.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Job is one scheduled operation.
type Job struct {
	Name string
	Spec string // cron spec, e.g. "@every 4h"
	Run  func(ctx context.Context) error
}

// Scheduler wraps robfig/cron and serializes the registered jobs.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
	mu   sync.Mutex
}

// New creates a scheduler for the given jobs.
func New(jobs ...Job) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: jobs,
	}
}

// Start registers the jobs and starts the scheduler. The first job runs
// once immediately so a fresh install is populated without waiting for
// the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, job := range s.jobs {
		job := job
		if _, err := s.cron.AddFunc(job.Spec, func() {
			s.runJob(ctx, job)
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", job.Name, err)
		}
		log.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("Scheduled job")
	}

	s.cron.Start()

	if len(s.jobs) > 0 {
		first := s.jobs[0]
		go s.runJob(ctx, first)
	}
	return nil
}

// Stop gracefully shuts down the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.mu.Lock()
	s.mu.Unlock()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	log.Info().Str("job", job.Name).Msg("Starting scheduled job")
	if err := job.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info().Str("job", job.Name).Msg("Job canceled by shutdown signal")
			return
		}
		log.Error().Err(err).Str("job", job.Name).Msg("Scheduled job failed")
		return
	}
	log.Info().Str("job", job.Name).Msg("Scheduled job finished")
}
