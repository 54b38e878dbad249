// Package scheduler runs the periodic batch jobs: depreciation and lettrage.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/simonvc/grandlivre/internal/depreciation"
	"github.com/simonvc/grandlivre/internal/ledger"
	"github.com/simonvc/grandlivre/internal/lettrage"
)

// Alerter tells an operator that a job hit an integrity error.
type Alerter interface {
	Alert(job string, err error)
}

// LogAlerter writes alerts to a logger, the standard one when Logger is nil.
type LogAlerter struct {
	Logger *log.Logger
}

func (a LogAlerter) Alert(job string, err error) {
	if a.Logger != nil {
		a.Logger.Printf("ALERT job %s: %v", job, err)
		return
	}
	log.Printf("ALERT job %s: %v", job, err)
}

type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context, now time.Time) error
}

type Scheduler struct {
	jobs    []Job
	alerter Alerter
	now     func() time.Time

	mu      sync.Mutex
	running map[string]bool
}

func New(alerter Alerter, jobs ...Job) *Scheduler {
	if alerter == nil {
		alerter = LogAlerter{}
	}
	return &Scheduler{jobs: jobs, alerter: alerter, now: time.Now, running: map[string]bool{}}
}

// Run ticks every job with a positive interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, j := range s.jobs {
		if j.Every <= 0 {
			log.Printf("scheduler: job %s disabled", j.Name)
			continue
		}
		j := j
		g.Go(func() error {
			ticker := time.NewTicker(j.Every)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					s.RunJob(ctx, j.Name)
				}
			}
		})
	}
	return g.Wait()
}

// RunJob runs one job now. A job still running from an earlier tick is
// skipped. Integrity errors are alerted; other errors are logged.
func (s *Scheduler) RunJob(ctx context.Context, name string) error {
	var job *Job
	for i := range s.jobs {
		if s.jobs[i].Name == name {
			job = &s.jobs[i]
		}
	}
	if job == nil {
		return fmt.Errorf("%w: job %q", ledger.ErrNotFound, name)
	}

	s.mu.Lock()
	if s.running[name] {
		s.mu.Unlock()
		log.Printf("scheduler: job %s still running, skipped", name)
		return nil
	}
	s.running[name] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.running, name)
		s.mu.Unlock()
	}()

	start := time.Now()
	err := job.Run(ctx, s.now())
	switch {
	case err == nil:
		log.Printf("scheduler: job %s done in %s", name, time.Since(start).Round(time.Millisecond))
	case errors.Is(err, ledger.ErrIntegrity):
		s.alerter.Alert(name, err)
	default:
		log.Printf("scheduler: job %s failed: %v", name, err)
	}
	return err
}

// LastClosedPeriod is the period before the one containing now.
func LastClosedPeriod(now time.Time, policy depreciation.Policy) ledger.Period {
	current := ledger.PeriodOf(now, policy.Monthly, policy.Calendar)
	start, _ := current.Bounds(policy.Calendar)
	return ledger.PeriodOf(start.AddDate(0, 0, -1), policy.Monthly, policy.Calendar)
}

// DepreciationJob books depreciation up to the last closed period.
func DepreciationJob(every time.Duration, policy depreciation.Policy, st depreciation.Store) Job {
	eng := depreciation.New(policy)
	return Job{
		Name:  "depreciation",
		Every: every,
		Run: func(ctx context.Context, now time.Time) error {
			_, err := eng.Run(ctx, st, LastClosedPeriod(now, policy))
			return err
		},
	}
}

func LettrageJob(every time.Duration, svc *lettrage.Service, st lettrage.Store) Job {
	return Job{
		Name:  "lettrage",
		Every: every,
		Run: func(ctx context.Context, now time.Time) error {
			_, err := svc.Run(ctx, st, now)
			return err
		},
	}
}
