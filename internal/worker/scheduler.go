// Package worker runs periodic maintenance jobs next to the HTTP server.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is a unit of periodic work. Run is called once at start and then
// every Every until the scheduler stops.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job
	log  *zap.Logger
}

func NewScheduler(log *zap.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, log: log.Named("worker")}
}

// Run blocks until ctx is cancelled. A failing job is logged and retried on
// its next tick; it never stops the others.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		if j.Every <= 0 {
			s.log.Warn("job disabled: non-positive period", zap.String("job", j.Name))
			continue
		}
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	s.log.Info("scheduler started", zap.Int("jobs", len(s.jobs)))
	err := g.Wait()
	s.log.Info("scheduler stopped")
	return err
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	t := time.NewTicker(j.Every)
	defer t.Stop()

	s.runOnce(ctx, j)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.runOnce(ctx, j)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, j Job) {
	start := time.Now()
	err := safeRun(ctx, j.Run)
	if err != nil && ctx.Err() == nil {
		s.log.Error("job failed", zap.String("job", j.Name), zap.Error(err))
		return
	}
	s.log.Debug("job finished", zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
}

func safeRun(ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return fn(ctx)
}
